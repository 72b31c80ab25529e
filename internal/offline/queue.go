package offline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
)

var (
	ErrNotFound      = errors.New("offline order not found")
	ErrAlreadySynced = errors.New("offline order already synced")
)

// Store persists offline orders keyed by id.
type Store interface {
	Put(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, bool, error)
	// List returns orders with the given status, or all when status is "".
	List(ctx context.Context, status Status) ([]Order, error)
}

type Sender interface {
	CreateOrder(ctx context.Context, req orders.CreateRequest) (orders.Order, error)
}

// Backoff schedules the next attempt after n failed ones.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

var DefaultBackoff = Backoff{Base: 2 * time.Second, Max: 5 * time.Minute}

func (b Backoff) Delay(attempts int) time.Duration {
	if attempts <= 0 || b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < attempts; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

type FlushReport struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Parked  int `json:"parked"` // moved to failed in this run
}

// Queue is the durable offline order queue. Flushes are serialised; sends
// inside one flush are sequential, oldest order first.
type Queue struct {
	store       Store
	send        Sender
	backoff     Backoff
	maxAttempts int
	log         *logger.Logger
	now         func() time.Time

	flushMu sync.Mutex
}

type Option func(*Queue)

func WithBackoff(b Backoff) Option          { return func(q *Queue) { q.backoff = b } }
func WithMaxAttempts(n int) Option          { return func(q *Queue) { q.maxAttempts = n } }
func WithClock(now func() time.Time) Option { return func(q *Queue) { q.now = now } }

func NewQueue(store Store, send Sender, log *logger.Logger, opts ...Option) *Queue {
	q := &Queue{store: store, send: send, backoff: DefaultBackoff, maxAttempts: 20, log: log, now: time.Now}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue persists o as pending. An id that is already synced is left alone.
func (q *Queue) Enqueue(ctx context.Context, o Order) error {
	if o.ID == "" {
		return errors.New("offline order without id")
	}
	cur, ok, err := q.store.Get(ctx, o.ID)
	if err != nil {
		return err
	}
	if ok && cur.Status == StatusSynced {
		return nil
	}
	if ok {
		o.Attempts, o.LastError, o.NextAttemptAt = cur.Attempts, cur.LastError, cur.NextAttemptAt
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = q.now()
	}
	o.Status = StatusPending
	if err := q.store.Put(ctx, o); err != nil {
		return fmt.Errorf("enqueue %s: %w", o.ID, err)
	}
	q.log.Debug("offline_persisted", "order persisted as pending", "order_id", o.ID)
	return nil
}

// MarkSynced records that the server accepted o outside a flush, e.g. the
// direct send at checkout.
func (q *Queue) MarkSynced(ctx context.Context, id, serverID string) error {
	o, ok, err := q.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if o.Status == StatusSynced {
		return nil
	}
	o.Status = StatusSynced
	o.ServerID = serverID
	o.SyncedAt = q.now()
	o.LastError = ""
	o.NextAttemptAt = time.Time{}
	if err := q.store.Put(ctx, o); err != nil {
		return fmt.Errorf("mark %s synced: %w", id, err)
	}
	return nil
}

// RecordFailure keeps a pending order pending after a failed direct send and
// makes it due at the next flush. No attempt is consumed.
func (q *Queue) RecordFailure(ctx context.Context, id string, sendErr error) error {
	o, ok, err := q.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusPending {
		return nil
	}
	o.LastError = sendErr.Error()
	o.NextAttemptAt = time.Time{}
	if err := q.store.Put(ctx, o); err != nil {
		return fmt.Errorf("record failure %s: %w", id, err)
	}
	q.log.Info("offline_enqueued", "order queued for sync", "order_id", o.ID, "total", o.Totals.Total.String(),
		"error", o.LastError)
	return nil
}

// ListPending returns pending orders oldest first, ties broken by id.
func (q *Queue) ListPending(ctx context.Context) ([]Order, error) {
	return q.List(ctx, StatusPending)
}

func (q *Queue) List(ctx context.Context, status Status) ([]Order, error) {
	out, err := q.store.List(ctx, status)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Flush tries every due pending order once. A failure only affects that
// order; the loop moves on to the next one.
func (q *Queue) Flush(ctx context.Context) (FlushReport, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	var rep FlushReport
	pending, err := q.ListPending(ctx)
	if err != nil {
		return rep, err
	}

	for _, o := range pending {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if o.NextAttemptAt.After(q.now()) {
			rep.Skipped++
			continue
		}

		srv, sendErr := q.send.CreateOrder(ctx, o.Request())
		if sendErr == nil {
			o.Status = StatusSynced
			o.ServerID = srv.ID
			o.SyncedAt = q.now()
			o.LastError = ""
			o.NextAttemptAt = time.Time{}
			if err := q.store.Put(ctx, o); err != nil {
				return rep, fmt.Errorf("mark %s synced: %w", o.ID, err)
			}
			rep.Synced++
			q.log.Info("offline_synced", "queued order accepted by server", "order_id", o.ID, "server_id", srv.ID)
			continue
		}

		// checkout bisa saja sudah berhasil kirim order yang sama
		if cur, ok, err := q.store.Get(ctx, o.ID); err == nil && ok && cur.Status == StatusSynced {
			continue
		}
		o.Attempts++
		o.LastError = sendErr.Error()
		o.NextAttemptAt = q.now().Add(q.backoff.Delay(o.Attempts))
		if q.maxAttempts > 0 && o.Attempts >= q.maxAttempts {
			o.Status = StatusFailed
			rep.Parked++
			q.log.Warn("offline_parked", "giving up on order after max attempts", "order_id", o.ID,
				"attempts", o.Attempts, "error", o.LastError)
		} else {
			q.log.Warn("offline_retry_later", "sync failed", "order_id", o.ID, "attempts", o.Attempts,
				"next_attempt_at", o.NextAttemptAt, "error", o.LastError)
		}
		if err := q.store.Put(ctx, o); err != nil {
			return rep, fmt.Errorf("record attempt %s: %w", o.ID, err)
		}
		rep.Failed++
	}
	return rep, nil
}

// Retry returns a failed (or backing-off) order to pending, due immediately.
func (q *Queue) Retry(ctx context.Context, id string) (Order, error) {
	o, ok, err := q.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status == StatusSynced {
		return o, ErrAlreadySynced
	}
	o.Status = StatusPending
	o.Attempts = 0
	o.NextAttemptAt = time.Time{}
	if err := q.store.Put(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}
