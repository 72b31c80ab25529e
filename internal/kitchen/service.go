package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/ariefcatur/go-restaurant-pos/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type StatusStore interface {
	TransitionStatus(ctx context.Context, tenantID, id string, to orders.Status) (orders.Status, error)
}

type Service struct {
	Store       StatusStore
	Redis       redis.Cmdable
	Events      orders.Emitter
	ServiceName string
	Log         *logger.Logger
}

// HandleOrderPlaced: dipasang sebagai handler consumer. A freshly placed
// order is accepted by the kitchen and moved to preparing.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	return s.HandleBody(ctx, m.Value)
}

// HandleBody is the broker-neutral entry point used by the AMQP consumer.
func (s *Service) HandleBody(ctx context.Context, body []byte) error {
	var env orders.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; commit saja
		s.Log.Error("kitchen_bad_message", "undecodable envelope dropped", err, "size", len(body))
		return nil
	}
	return s.Handle(ctx, env)
}

func (s *Service) Handle(ctx context.Context, env orders.Envelope) (err error) {
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	// claim dulu biar dua worker tidak proses event yang sama
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	won, cerr := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	switch {
	case cerr != nil:
		// redis mati: lanjut tanpa dedup, transisi status sudah idempotent
		s.Log.Warn("kitchen_dedup_unavailable", "processing without dedup", "event_id", env.EventID, "error", cerr.Error())
	case !won:
		s.Log.Debug("kitchen_duplicate", "event already handled", "event_id", env.EventID)
		return nil
	default:
		defer func() {
			if err != nil {
				// lepas claim supaya redelivery bisa coba lagi
				_ = s.Redis.Del(context.WithoutCancel(ctx), dkey).Err()
			}
		}()
	}

	p, err := orders.UnwrapPayload[orders.OrderPlacedPayload](env)
	if err != nil {
		s.Log.Error("kitchen_bad_payload", "undecodable payload dropped", err, "event_id", env.EventID)
		return nil
	}

	from, err := s.Store.TransitionStatus(ctx, env.TenantID, p.OrderID, orders.StatusPreparing)
	switch {
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrNotFound):
		// replay, atau order sudah dibatalkan duluan
		s.Log.Info("kitchen_skip", "order not placed anymore", "order_id", p.OrderID, "status", string(from))
		return nil
	case err != nil:
		return err
	}

	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, env.TenantID, p.OrderID)
	_ = s.Redis.Del(ctx, statusKey).Err()

	out, err := orders.NewEnvelope(orders.EventOrderStatusChanged, s.ServiceName, env.TenantID, p.OrderID, env.TraceID,
		orders.OrderStatusChangedPayload{OrderID: p.OrderID, From: from, To: orders.StatusPreparing})
	if err != nil {
		return err
	}
	if err := orders.Publish(ctx, s.Events, orders.TopicOrderStatusChanged, out); err != nil {
		return err
	}

	s.Log.Info("kitchen_accepted", "order moved to preparing", "order_id", p.OrderID, "tenant", env.TenantID,
		"items", len(p.Items))
	return nil
}
