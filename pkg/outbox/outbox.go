package outbox

import (
	"context"
	"encoding/json"
	"time"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Event 表示一个待发布的事件
type Event struct {
	ID            int64           `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   *int64          `json:"aggregate_id,omitempty"`
	RoutingKey    string          `json:"routing_key"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	RetryCount    int             `json:"retry_count"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Repository 是 outbox_events 表的读写接口，由各存储实现。
// 事件写入发生在业务事务内部（见 storage.Tx.RecordEvent），这里只负责派发侧。
type Repository interface {
	// PendingEvents 获取待发送的事件（status = pending 且已到重试时间）
	PendingEvents(ctx context.Context, limit int) ([]Event, error)
	// MarkSent 标记事件为已发送
	MarkSent(ctx context.Context, eventID int64) error
	// MarkFailed 增加重试次数；达到 maxRetries 后状态变为 failed
	MarkFailed(ctx context.Context, eventID int64, maxRetries int) error
	// GetEvent 根据 ID 获取事件（用于 Replay）
	GetEvent(ctx context.Context, eventID int64) (Event, error)
	// FailedEvents 获取所有失败的事件
	FailedEvents(ctx context.Context, limit int) ([]Event, error)
	// ResetEvent 将事件状态重置为 pending
	ResetEvent(ctx context.Context, eventID int64) error
}

// Publisher 将事件投递到消息队列
type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, body []byte) error
}

// NextRetry 计算第 retryCount 次失败后的下一次重试时间：5s, 10s, 15s...
func NextRetry(now time.Time, retryCount int) time.Time {
	return now.Add(time.Duration(retryCount) * 5 * time.Second)
}
