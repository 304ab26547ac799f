package trace

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithContext(context.Background(), "abc")
	if got := FromContext(ctx); got != "abc" {
		t.Fatalf("trace id = %q, want abc", got)
	}
	if got := FromContext(context.Background()); got != "" {
		t.Fatalf("empty context trace id = %q", got)
	}
}

func TestFromHeaderGeneratesWhenMissing(t *testing.T) {
	t.Parallel()

	if got := FromHeader("given"); got != "given" {
		t.Fatalf("header trace id = %q", got)
	}
	if _, err := uuid.Parse(FromHeader("")); err != nil {
		t.Fatalf("generated trace id is not a uuid: %v", err)
	}
}
