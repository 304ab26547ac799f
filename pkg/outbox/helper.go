package outbox

import (
	"encoding/json"
	"fmt"
)

// NewEvent 构造一个待写入 outbox 的事件（辅助函数）
func NewEvent(aggregateType string, aggregateID int64, routingKey string, payload any) (Event, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}

	id := aggregateID
	return Event{
		AggregateType: aggregateType,
		AggregateID:   &id,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	}, nil
}
