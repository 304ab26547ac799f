package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fairshare/internal/model"
)

// statusFor maps the tracker's error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes the error response for a tracker failure. Client errors carry
// the error text; server errors carry only a generic message.
func fail(c *gin.Context, log *zap.Logger, op string, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusServiceUnavailable:
		log.Error(op+": store unavailable", zap.Error(err))
		c.JSON(status, gin.H{"error": "storage unavailable"})
	case status >= http.StatusInternalServerError:
		log.Error(op+": failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
	default:
		log.Warn(op+": rejected", zap.Int("status", status), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// pathID parses a positive integer path parameter. It writes the 400 itself
// and reports false when the value is unusable.
func pathID(c *gin.Context, log *zap.Logger, op, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Warn(op+": invalid "+name+" format", zap.String(name, raw))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, log *zap.Logger, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Warn(op+": invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}
