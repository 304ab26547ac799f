package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fairshare/pkg/idempotency"
	"fairshare/pkg/metrics"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replay"
	maxIdempotencyKeyLength = 200
)

// createOnce runs create under the request's Idempotency-Key, when one is sent
// and a guard is configured, then writes {field: id}. A retry of a finished
// request gets the original id with 200 and Idempotent-Replay: true.
func createOnce(c *gin.Context, guard *idempotency.Guard, log *zap.Logger, op, field string, create func() (int64, error)) {
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" || guard == nil {
		id, err := create()
		if err != nil {
			fail(c, log, op, err)
			return
		}
		log.Info(op+": success", zap.Int64(field, id))
		c.JSON(http.StatusCreated, gin.H{field: id})
		return
	}
	if len(key) > maxIdempotencyKeyLength {
		log.Warn(op+": idempotency key too long", zap.Int("length", len(key)))
		c.JSON(http.StatusBadRequest, gin.H{"error": "idempotency key too long"})
		return
	}

	ctx := c.Request.Context()
	claim, err := guard.Begin(ctx, op, c.Request.URL.Path+"|"+key)
	if errors.Is(err, idempotency.ErrInFlight) {
		log.Warn(op+": duplicate request in flight", zap.String("idempotency_key", key))
		c.JSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
		return
	}
	if claim.Replayed {
		metrics.IncrementIdempotentReplay(op)
		log.Info(op+": replayed", zap.String("idempotency_key", key), zap.Int64(field, claim.ID))
		c.Header(IdempotentReplayHeader, "true")
		c.JSON(http.StatusOK, gin.H{field: claim.ID})
		return
	}

	id, err := create()
	if err != nil {
		guard.Abort(ctx, claim)
		fail(c, log, op, err)
		return
	}
	guard.Complete(ctx, claim, id)
	log.Info(op+": success", zap.Int64(field, id), zap.String("idempotency_key", key))
	c.JSON(http.StatusCreated, gin.H{field: id})
}
