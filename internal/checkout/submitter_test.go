package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ariefcatur/go-restaurant-pos/internal/cart"
	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/offline"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
	"github.com/shopspring/decimal"
)

type stubAPI struct {
	err    error
	reqs   []orders.CreateRequest
	onSend func(req orders.CreateRequest) // dipanggil sekali, sebelum balas
}

func (s *stubAPI) CreateOrder(_ context.Context, req orders.CreateRequest) (orders.Order, error) {
	s.reqs = append(s.reqs, req)
	if f := s.onSend; f != nil {
		s.onSend = nil
		f(req)
	}
	if s.err != nil {
		return orders.Order{}, s.err
	}
	return orders.Order{ID: "srv-1", ExternalID: req.ExternalID, Status: orders.StatusPlaced}, nil
}

func setup(t *testing.T, api *stubAPI) (*Submitter, *cart.Cart, *offline.Queue) {
	t.Helper()
	store, err := offline.OpenFileStore(filepath.Join(t.TempDir(), "q.json"))
	if err != nil {
		t.Fatal(err)
	}
	q := offline.NewQueue(store, api, logger.Discard())
	c := cart.New(pricing.Rates{TaxRate: decimal.NewFromInt(5), ServiceChargeRate: decimal.NewFromInt(10)})
	return &Submitter{Cart: c, API: api, Queue: q, Log: logger.Discard()}, c, q
}

func addRendang(t *testing.T, c *cart.Cart) {
	t.Helper()
	it := menu.Item{ID: "rendang", Name: "Rendang", Price: decimal.NewFromInt(450), Available: true}
	if err := c.AddItem(it, 2, "extra sambal"); err != nil {
		t.Fatal(err)
	}
}

func TestSubmitOnline(t *testing.T) {
	api := &stubAPI{}
	s, c, q := setup(t, api)
	addRendang(t, c)

	res, err := s.Submit(context.Background(), Options{TableNumber: "T3"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Queued || res.Order.ServerID != "srv-1" || res.Order.Status != offline.StatusSynced {
		t.Fatalf("result = %+v", res)
	}
	if !res.Order.Totals.Total.Equal(decimal.NewFromInt(1035)) {
		t.Errorf("total = %s", res.Order.Totals.Total)
	}
	if !c.Snapshot().Empty() {
		t.Error("cart not cleared")
	}
	if len(s.Confirmed()) != 1 {
		t.Errorf("confirmed = %d", len(s.Confirmed()))
	}
	if p, _ := q.ListPending(context.Background()); len(p) != 0 {
		t.Errorf("queue has %d pending orders", len(p))
	}
	synced, _ := q.List(context.Background(), offline.StatusSynced)
	if len(synced) != 1 || synced[0].ID != res.Order.ID || synced[0].ServerID != "srv-1" {
		t.Errorf("synced = %+v", synced)
	}
	req := api.reqs[0]
	if req.ExternalID != res.Order.ID || req.Items[0].Notes != "extra sambal" || req.TableNumber != "T3" {
		t.Errorf("request = %+v", req)
	}
}

func TestSubmitOfflineQueuesAndClears(t *testing.T) {
	api := &stubAPI{err: errors.New("dial tcp: i/o timeout")}
	s, c, q := setup(t, api)
	addRendang(t, c)

	res, err := s.Submit(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Queued || res.Order.Status != offline.StatusPending {
		t.Fatalf("result = %+v", res)
	}
	if !c.Snapshot().Empty() {
		t.Error("cart should be cleared even when offline")
	}
	pending, _ := q.ListPending(context.Background())
	if len(pending) != 1 || pending[0].ID != res.Order.ID || pending[0].Status != offline.StatusPending {
		t.Fatalf("pending = %+v", pending)
	}
	if len(s.Confirmed()) != 0 {
		t.Error("offline order listed as confirmed")
	}
	if pending[0].LastError != "dial tcp: i/o timeout" || !pending[0].NextAttemptAt.IsZero() {
		t.Errorf("failed send should be due at next flush: %+v", pending[0])
	}
	if rep, _ := q.Flush(context.Background()); rep.Failed != 1 || rep.Skipped != 0 {
		t.Errorf("flush report = %+v", rep)
	}
}

func TestSubmitPersistsBeforeSending(t *testing.T) {
	api := &stubAPI{err: errors.New("connection reset by peer")}
	s, c, q := setup(t, api)
	addRendang(t, c)

	var seen []offline.Order
	var rep offline.FlushReport
	api.onSend = func(req orders.CreateRequest) {
		// proses mati di sini pun order sudah ada di disk
		seen, _ = q.ListPending(context.Background())
		rep, _ = q.Flush(context.Background())
	}

	res, err := s.Submit(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0].ID != res.Order.ID || seen[0].Status != offline.StatusPending {
		t.Fatalf("queue during send = %+v", seen)
	}
	if rep.Skipped != 1 || rep.Synced+rep.Failed != 0 {
		t.Errorf("flush during send should skip the in-flight order: %+v", rep)
	}
	if len(api.reqs) != 1 {
		t.Errorf("requests = %d, want 1", len(api.reqs))
	}
}

// failingQueue cannot write anything, like a full disk.
type failingQueue struct{ err error }

func (f failingQueue) Enqueue(context.Context, offline.Order) error { return f.err }
func (f failingQueue) MarkSynced(context.Context, string, string) error {
	return f.err
}
func (f failingQueue) RecordFailure(context.Context, string, error) error { return f.err }

func TestSubmitPersistFailureRestoresCart(t *testing.T) {
	api := &stubAPI{err: errors.New("connection refused")}
	s, c, _ := setup(t, api)
	s.Queue = failingQueue{err: errors.New("disk full")}
	addRendang(t, c)
	if err := c.SetTip(decimal.NewFromInt(15)); err != nil {
		t.Fatal(err)
	}
	before := c.Snapshot()

	res, err := s.Submit(context.Background(), Options{TableNumber: "T1"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want disk full", err)
	}
	if res.Queued || res.Order.ID != "" {
		t.Errorf("result = %+v", res)
	}
	after := c.Snapshot()
	if len(after.Lines) != 1 || after.Lines[0].Quantity != 2 || after.Lines[0].Notes != "extra sambal" {
		t.Fatalf("cart not restored: %+v", after)
	}
	if !after.Totals.Total.Equal(before.Totals.Total) || !after.Totals.Tip.Equal(decimal.NewFromInt(15)) {
		t.Errorf("totals = %+v, want %+v", after.Totals, before.Totals)
	}
	if len(api.reqs) != 0 {
		t.Error("order sent although it was never persisted")
	}
	if len(s.Confirmed()) != 0 {
		t.Error("confirmed should be empty")
	}
}

func TestSubmitRejectsNegativeTotal(t *testing.T) {
	api := &stubAPI{}
	s, c, q := setup(t, api)
	addRendang(t, c)

	if err := c.SetDiscount(decimal.NewFromInt(2000)); !errors.Is(err, cart.ErrDiscountTooLarge) {
		t.Fatalf("discount 2000 on 1035: err = %v", err)
	}
	if err := c.SetDiscount(decimal.NewFromInt(1000)); err != nil {
		t.Fatal(err)
	}
	// diskon lolos, lalu porsi dikurangi: total jadi negatif
	c.SetQuantity("rendang", 1)
	if !c.Snapshot().Totals.Total.IsNegative() {
		t.Fatalf("total = %s", c.Snapshot().Totals.Total)
	}

	_, err := s.Submit(context.Background(), Options{})
	if !orders.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if snap := c.Snapshot(); len(snap.Lines) != 1 || !snap.Totals.Discount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("cart changed on rejected checkout: %+v", snap)
	}
	if len(api.reqs) != 0 {
		t.Error("request sent for negative total")
	}
	if all, _ := q.List(context.Background(), ""); len(all) != 0 {
		t.Errorf("queue = %+v", all)
	}
}

func TestSubmitValidation(t *testing.T) {
	api := &stubAPI{}
	s, c, _ := setup(t, api)

	if _, err := s.Submit(context.Background(), Options{}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("empty cart: err = %v", err)
	}

	addRendang(t, c)
	_, err := s.Submit(context.Background(), Options{Customer: &orders.Customer{Name: "Sari"}})
	if !orders.IsValidation(err) {
		t.Fatalf("customer without phone: err = %v", err)
	}
	if c.Snapshot().Empty() {
		t.Error("cart cleared on validation failure")
	}
	if len(api.reqs) != 0 {
		t.Error("request sent on validation failure")
	}
}
