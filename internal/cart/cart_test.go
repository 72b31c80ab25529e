package cart

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
	"github.com/shopspring/decimal"
)

var rates = pricing.Rates{TaxRate: decimal.NewFromInt(5), ServiceChargeRate: decimal.NewFromInt(10)}

func item(id, price string) menu.Item {
	return menu.Item{ID: id, Name: "item " + id, Price: decimal.RequireFromString(price), Category: "mains", Available: true}
}

func TestAddItemExample(t *testing.T) {
	c := New(rates)
	if err := c.AddItem(item("nasi-goreng", "450"), 2, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	got := c.Snapshot().Totals
	want := map[string]string{"subtotal": "900", "tax": "45", "serviceCharge": "90", "total": "1035"}
	for k, v := range map[string]decimal.Decimal{
		"subtotal": got.Subtotal, "tax": got.Tax, "serviceCharge": got.ServiceCharge, "total": got.Total,
	} {
		if !v.Equal(decimal.RequireFromString(want[k])) {
			t.Errorf("%s = %s, want %s", k, v, want[k])
		}
	}
}

func TestAddItemMergesSameID(t *testing.T) {
	c := New(rates)
	_ = c.AddItem(item("a", "10"), 1, "no onion")
	_ = c.AddItem(item("a", "10"), 3, "")
	_ = c.AddItem(item("b", "5"), 1, "")

	s := c.Snapshot()
	if len(s.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(s.Lines))
	}
	if s.Lines[0].Quantity != 4 {
		t.Errorf("qty = %d, want 4", s.Lines[0].Quantity)
	}
	if s.Lines[0].Notes != "no onion" {
		t.Errorf("notes = %q, want kept", s.Lines[0].Notes)
	}
}

func TestAddItemRejects(t *testing.T) {
	c := New(rates)
	if err := c.AddItem(item("a", "10"), 0, ""); !errors.Is(err, ErrInvalidQty) {
		t.Errorf("qty 0: err = %v", err)
	}
	off := item("b", "10")
	off.Available = false
	if err := c.AddItem(off, 1, ""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("unavailable: err = %v", err)
	}
	if !c.Snapshot().Empty() {
		t.Error("cart changed after rejected adds")
	}
}

func TestSetQuantity(t *testing.T) {
	c := New(rates)
	_ = c.AddItem(item("a", "10"), 2, "")
	_ = c.AddItem(item("b", "3"), 1, "")

	c.SetQuantity("a", 5)
	if q := c.Snapshot().Lines[0].Quantity; q != 5 {
		t.Errorf("qty = %d, want 5", q)
	}

	c.SetQuantity("missing", 0) // no-op
	if n := len(c.Snapshot().Lines); n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}

	c.SetQuantity("a", 0)
	s := c.Snapshot()
	if len(s.Lines) != 1 || s.Lines[0].Item.ID != "b" {
		t.Fatalf("lines = %+v, want only b", s.Lines)
	}
	if !s.Totals.Subtotal.Equal(decimal.NewFromInt(3)) {
		t.Errorf("subtotal = %s, want 3", s.Totals.Subtotal)
	}
}

func TestTotalsInvariantRandomOps(t *testing.T) {
	c := New(rates)
	items := []menu.Item{item("a", "12.50"), item("b", "450"), item("c", "0.99"), item("d", "7")}
	rng := rand.New(rand.NewSource(42))
	hundred := decimal.NewFromInt(100)

	for i := 0; i < 500; i++ {
		it := items[rng.Intn(len(items))]
		switch rng.Intn(4) {
		case 0, 1:
			_ = c.AddItem(it, rng.Intn(3)+1, "")
		case 2:
			c.SetQuantity(it.ID, rng.Intn(4)-1)
		case 3:
			_ = c.SetTip(decimal.NewFromInt(int64(rng.Intn(20))))
			_ = c.SetDiscount(decimal.NewFromInt(int64(rng.Intn(10))))
		}

		s := c.Snapshot()
		sub := decimal.Zero
		for _, l := range s.Lines {
			if l.Quantity <= 0 {
				t.Fatalf("step %d: line %s has qty %d", i, l.Item.ID, l.Quantity)
			}
			sub = sub.Add(l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		tt := s.Totals
		if !tt.Subtotal.Equal(sub) {
			t.Fatalf("step %d: subtotal %s, want %s", i, tt.Subtotal, sub)
		}
		if !tt.Tax.Equal(sub.Mul(rates.TaxRate).Div(hundred).Round(2)) {
			t.Fatalf("step %d: tax %s", i, tt.Tax)
		}
		if !tt.ServiceCharge.Equal(sub.Mul(rates.ServiceChargeRate).Div(hundred).Round(2)) {
			t.Fatalf("step %d: service charge %s", i, tt.ServiceCharge)
		}
		want := tt.Subtotal.Add(tt.Tax).Add(tt.ServiceCharge).Add(tt.Tip).Sub(tt.Discount)
		if !tt.Total.Equal(want) {
			t.Fatalf("step %d: total %s, want %s", i, tt.Total, want)
		}
	}
}

func TestTakeClearsAndCopies(t *testing.T) {
	c := New(rates)
	_ = c.AddItem(item("a", "10"), 1, "")
	_ = c.SetTip(decimal.NewFromInt(2))

	s := c.Take()
	if len(s.Lines) != 1 || !s.Totals.Tip.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("snapshot = %+v", s)
	}
	after := c.Snapshot()
	if !after.Empty() || !after.Totals.Total.IsZero() {
		t.Fatalf("cart not cleared: %+v", after)
	}

	s.Lines[0].Quantity = 99
	_ = c.AddItem(item("a", "10"), 1, "")
	if c.Snapshot().Lines[0].Quantity != 1 {
		t.Error("snapshot shares memory with cart")
	}
}

func TestNegativeAdjustments(t *testing.T) {
	c := New(rates)
	if err := c.SetTip(decimal.NewFromInt(-1)); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("tip err = %v", err)
	}
	if err := c.SetDiscount(decimal.NewFromInt(-1)); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("discount err = %v", err)
	}
}

func TestSetDiscountCappedAtBill(t *testing.T) {
	c := New(rates)
	_ = c.AddItem(item("rendang", "450"), 2, "")

	err := c.SetDiscount(decimal.NewFromInt(2000))
	if !errors.Is(err, ErrDiscountTooLarge) {
		t.Fatalf("err = %v, want ErrDiscountTooLarge", err)
	}
	if s := c.Snapshot(); !s.Totals.Discount.IsZero() || !s.Totals.Total.Equal(decimal.NewFromInt(1035)) {
		t.Errorf("rejected discount changed totals: %+v", s.Totals)
	}

	// tepat sebesar tagihan boleh, total nol
	if err := c.SetDiscount(decimal.NewFromInt(1035)); err != nil {
		t.Fatal(err)
	}
	if !c.Snapshot().Totals.Total.IsZero() {
		t.Errorf("total = %s", c.Snapshot().Totals.Total)
	}

	// tip ikut menambah batas
	_ = c.SetTip(decimal.NewFromInt(100))
	if err := c.SetDiscount(decimal.NewFromInt(1135)); err != nil {
		t.Errorf("discount covered by tip: %v", err)
	}
	if err := New(rates).SetDiscount(decimal.NewFromInt(1)); !errors.Is(err, ErrDiscountTooLarge) {
		t.Errorf("discount on empty cart: err = %v", err)
	}
}

func TestRestoreMergesWithNewLines(t *testing.T) {
	c := New(rates)
	_ = c.AddItem(item("a", "10"), 2, "tanpa es")
	_ = c.SetTip(decimal.NewFromInt(5))
	snap := c.Take()

	_ = c.AddItem(item("a", "10"), 1, "")
	_ = c.AddItem(item("b", "20"), 1, "")
	c.Restore(snap)

	got := c.Snapshot()
	if len(got.Lines) != 2 || got.Lines[0].Item.ID != "a" || got.Lines[0].Quantity != 3 || got.Lines[1].Item.ID != "b" {
		t.Fatalf("lines = %+v", got.Lines)
	}
	if got.Lines[0].Notes != "tanpa es" {
		t.Errorf("notes = %q", got.Lines[0].Notes)
	}
	// subtotal 50, tax 2.5, service 5, tip 5
	if !got.Totals.Total.Equal(decimal.RequireFromString("62.5")) {
		t.Errorf("total = %s", got.Totals.Total)
	}
}
