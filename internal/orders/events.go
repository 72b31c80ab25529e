package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"

	HeaderEventID      = "x-event-id"
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

type Envelope struct {
	EventID       string          `json:"eventId"`      // uuid
	EventType     string          `json:"eventType"`    // salah satu const di atas
	EventVersion  int             `json:"eventVersion"` // 1
	OccurredAt    time.Time       `json:"occurredAt"`   // RFC3339
	Producer      string          `json:"producer"`     // e.g., "order-api"
	TenantID      string          `json:"tenantId"`
	TraceID       string          `json:"traceId,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string          `json:"orderId"`
	ExternalID string          `json:"externalId"`
	OrderType  string          `json:"orderType,omitempty"`
	Table      string          `json:"tableNumber,omitempty"`
	Items      []Item          `json:"items"`
	Total      decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"orderId"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

// Emitter is implemented by the Kafka producer and the AMQP publisher.
type Emitter interface {
	Emit(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// NewEnvelope wraps payload in a v1 envelope correlated to orderID.
func NewEnvelope(eventType, producer, tenantID, orderID, traceID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TenantID:      tenantID,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       b,
	}, nil
}

func Publish(ctx context.Context, em Emitter, topic string, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return em.Emit(ctx, topic, PartitionKey(env.CorrelationID), b, map[string]string{
		HeaderEventID:      env.EventID,
		HeaderEventType:    env.EventType,
		HeaderEventVersion: strconv.Itoa(env.EventVersion),
	})
}

// UnwrapPayload memudahkan decode payload spesifik
func UnwrapPayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}
