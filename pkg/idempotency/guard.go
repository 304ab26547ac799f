// Package idempotency 为创建类请求提供 Idempotency-Key 支持，基于 Redis SETNX。
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pendingValue = "pending"

// ErrInFlight 同一个 key 的首个请求尚未完成
var ErrInFlight = errors.New("idempotent request in flight")

// Claim 是一次 Begin 的结果
type Claim struct {
	// Replayed 为 true 时 ID 是首个请求创建的资源
	Replayed bool
	ID       int64

	key   string
	owned bool
}

// Guard 记录 (scope, key) -> 创建出的资源 id
type Guard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewGuard(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Guard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{rdb: rdb, ttl: ttl, logger: logger}
}

func redisKey(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

// Begin 尝试占用 key。
// 首次：返回 owned claim，调用方执行操作后必须 Complete 或 Abort。
// 已完成：返回 Replayed=true 和保存的 id。
// 进行中：返回 ErrInFlight。
// Redis 不可用时放行（返回不持有 key 的 claim），与去重器一致。
func (g *Guard) Begin(ctx context.Context, scope, key string) (Claim, error) {
	k := redisKey(scope, key)

	ok, err := g.rdb.SetNX(ctx, k, pendingValue, g.ttl).Result()
	if err != nil {
		g.logger.Warn("idempotency claim failed, proceeding without guard",
			zap.String("scope", scope), zap.Error(err))
		return Claim{key: k}, nil
	}
	if ok {
		return Claim{key: k, owned: true}, nil
	}

	stored, err := g.rdb.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// 首个请求刚刚 Abort，重试抢占一次
			return g.retryClaim(ctx, scope, k)
		}
		g.logger.Warn("idempotency lookup failed, proceeding without guard",
			zap.String("scope", scope), zap.Error(err))
		return Claim{key: k}, nil
	}
	if stored == pendingValue {
		return Claim{}, ErrInFlight
	}

	id, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		g.logger.Error("corrupt idempotency record", zap.String("key", k), zap.String("value", stored))
		return Claim{key: k}, nil
	}
	return Claim{Replayed: true, ID: id, key: k}, nil
}

func (g *Guard) retryClaim(ctx context.Context, scope, k string) (Claim, error) {
	ok, err := g.rdb.SetNX(ctx, k, pendingValue, g.ttl).Result()
	if err != nil {
		g.logger.Warn("idempotency claim failed, proceeding without guard",
			zap.String("scope", scope), zap.Error(err))
		return Claim{key: k}, nil
	}
	if !ok {
		return Claim{}, ErrInFlight
	}
	return Claim{key: k, owned: true}, nil
}

// Complete 记录创建出的 id
func (g *Guard) Complete(ctx context.Context, c Claim, id int64) {
	if !c.owned {
		return
	}
	if err := g.rdb.Set(ctx, c.key, strconv.FormatInt(id, 10), g.ttl).Err(); err != nil {
		g.logger.Warn("failed to store idempotency result", zap.String("key", c.key), zap.Error(err))
	}
}

// Abort 释放 key，使后续重试可以重新执行
func (g *Guard) Abort(ctx context.Context, c Claim) {
	if !c.owned {
		return
	}
	if err := g.rdb.Del(ctx, c.key).Err(); err != nil {
		g.logger.Warn("failed to release idempotency key", zap.String("key", c.key), zap.Error(err))
	}
}
