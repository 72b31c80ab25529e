package orders

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type recordingEmitter struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
}

func (r *recordingEmitter) Emit(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	r.topic, r.key, r.value, r.headers = topic, key, value, headers
	return nil
}

func TestPublishEnvelope(t *testing.T) {
	env, err := NewEnvelope(EventOrderStatusChanged, "order-api", "demo", "o-42", "req-1",
		OrderStatusChangedPayload{OrderID: "o-42", From: StatusPlaced, To: StatusPreparing})
	if err != nil {
		t.Fatal(err)
	}

	em := &recordingEmitter{}
	if err := Publish(context.Background(), em, TopicOrderStatusChanged, env); err != nil {
		t.Fatal(err)
	}
	if em.topic != TopicOrderStatusChanged || string(em.key) != "o-42" {
		t.Errorf("topic/key = %s/%s", em.topic, em.key)
	}
	if em.headers[HeaderEventType] != EventOrderStatusChanged || em.headers[HeaderEventVersion] != "1" {
		t.Errorf("headers = %v", em.headers)
	}
	if em.headers[HeaderEventID] != env.EventID {
		t.Errorf("event id header = %q, want %q", em.headers[HeaderEventID], env.EventID)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(em.value, &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"eventId", "eventType", "eventVersion", "occurredAt", "producer", "tenantId", "traceId", "correlationId", "payload"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("envelope key %q missing in %s", k, em.value)
		}
	}
	if !strings.Contains(string(raw["payload"]), `"orderId":"o-42"`) {
		t.Errorf("payload = %s", raw["payload"])
	}

	var got Envelope
	if err := json.Unmarshal(em.value, &got); err != nil {
		t.Fatal(err)
	}
	p, err := UnwrapPayload[OrderStatusChangedPayload](got)
	if err != nil {
		t.Fatal(err)
	}
	if p.From != StatusPlaced || p.To != StatusPreparing || got.TenantID != "demo" {
		t.Errorf("payload = %+v, tenant = %s", p, got.TenantID)
	}
}
