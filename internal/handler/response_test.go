package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"fairshare/internal/model"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get project 1: %w", model.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("deadline: %w", model.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("insert: %w: %w", model.ErrConflict, errors.New("fk")), http.StatusConflict},
		{fmt.Errorf("ping: %w", model.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
