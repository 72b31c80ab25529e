package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/cart"
	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/offline"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/google/uuid"
)

var ErrEmptyCart = errors.New("cart is empty")

// DefaultSendTimeout bounds the direct send at checkout. The queued copy is
// not flushed before it runs out.
const DefaultSendTimeout = 15 * time.Second

// Enqueuer is the durable side of checkout: the order is written there before
// the network is touched.
type Enqueuer interface {
	Enqueue(ctx context.Context, o offline.Order) error
	MarkSynced(ctx context.Context, id, serverID string) error
	RecordFailure(ctx context.Context, id string, sendErr error) error
}

type Options struct {
	Customer      *orders.Customer `json:"customer,omitempty"`
	TableNumber   string           `json:"tableNumber,omitempty"`
	OrderType     string           `json:"orderType,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
}

type Result struct {
	Order  offline.Order `json:"order"`
	Queued bool          `json:"queued"`
}

// Submitter turns the cart into an order and sends it. The order is persisted
// as pending first, so a crash mid-send leaves it in the queue. When the send
// fails the cart is cleared anyway: the ticket counts as taken locally and
// the queue owns delivery from then on.
type Submitter struct {
	Cart        *cart.Cart
	API         offline.Sender
	Queue       Enqueuer
	Log         *logger.Logger
	Now         func() time.Time
	SendTimeout time.Duration

	mu        sync.Mutex
	confirmed []offline.Order
}

func (s *Submitter) Submit(ctx context.Context, opt Options) (Result, error) {
	if err := orders.ValidateCustomer(opt.Customer); err != nil {
		return Result{}, err
	}
	if err := checkCart(s.Cart.Snapshot()); err != nil {
		return Result{}, err
	}
	snap := s.Cart.Take()
	if err := checkCart(snap); err != nil {
		s.Cart.Restore(snap)
		return Result{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	timeout := s.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	o := offline.Order{
		ID:            uuid.NewString(),
		Lines:         snap.Lines,
		Totals:        snap.Totals,
		Customer:      opt.Customer,
		OrderType:     opt.OrderType,
		TableNumber:   opt.TableNumber,
		PaymentMethod: opt.PaymentMethod,
		CreatedAt:     now().UTC(),
		// flush jangan kirim paralel dengan send di bawah
		NextAttemptAt: now().UTC().Add(timeout),
	}

	// simpan dulu, baru kirim
	persist := context.WithoutCancel(ctx)
	if err := s.Queue.Enqueue(persist, o); err != nil {
		s.Cart.Restore(snap)
		s.Log.Error("order_persist_failed", "could not persist order, cart restored", err, "order_id", o.ID)
		return Result{}, fmt.Errorf("persist order %s: %w", o.ID, err)
	}
	o.Status = offline.StatusPending

	sctx, cancel := context.WithTimeout(ctx, timeout)
	srv, err := s.API.CreateOrder(sctx, o.Request())
	cancel()
	if err == nil {
		o.Status = offline.StatusSynced
		o.ServerID = srv.ID
		o.SyncedAt = now().UTC()
		o.NextAttemptAt = time.Time{}
		if merr := s.Queue.MarkSynced(persist, o.ID, srv.ID); merr != nil {
			// masih pending di queue; resend aman karena externalId idempotent
			s.Log.Warn("order_mark_synced", "accepted order still pending locally", "order_id", o.ID,
				"error", merr.Error())
		}
		s.mu.Lock()
		s.confirmed = append(s.confirmed, o)
		s.mu.Unlock()
		s.Log.Info("order_submitted", "order accepted by server", "order_id", o.ID, "server_id", srv.ID)
		return Result{Order: o}, nil
	}

	s.Log.Warn("order_submit_failed", "server unreachable, order stays queued", "order_id", o.ID, "error", err.Error())
	o.LastError = err.Error()
	o.NextAttemptAt = time.Time{}
	if rerr := s.Queue.RecordFailure(persist, o.ID, err); rerr != nil {
		s.Log.Warn("order_record_failure", "could not record send failure", "order_id", o.ID, "error", rerr.Error())
	}
	return Result{Order: o, Queued: true}, nil
}

// checkCart rejects what the order API would reject anyway.
func checkCart(snap cart.Snapshot) error {
	if snap.Empty() {
		return ErrEmptyCart
	}
	if snap.Totals.Total.IsNegative() {
		return &orders.ValidationError{Msg: fmt.Sprintf("discount %s exceeds order amount", snap.Totals.Discount)}
	}
	return nil
}

// Confirmed lists orders the server accepted at checkout, oldest first.
func (s *Submitter) Confirmed() []offline.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]offline.Order{}, s.confirmed...)
}
