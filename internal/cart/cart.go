package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQty     = errors.New("quantity must be positive")
	ErrUnavailable    = errors.New("menu item is not available")
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrDiscountTooLarge mirrors the order API, which rejects a negative total.
	ErrDiscountTooLarge = errors.New("discount exceeds order amount")
)

type Line struct {
	Item     menu.Item `json:"item"`
	Quantity int       `json:"quantity"`
	Notes    string    `json:"notes,omitempty"`
}

// Snapshot is a deep copy of the cart at one point in time.
type Snapshot struct {
	Lines  []Line         `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

func (s Snapshot) Empty() bool { return len(s.Lines) == 0 }

// Cart holds the lines of the ticket currently being rung up. Totals are
// recomputed after every mutation, so reads never see stale amounts.
type Cart struct {
	mu       sync.Mutex
	rates    pricing.Rates
	lines    []Line
	tip      decimal.Decimal
	discount decimal.Decimal
	totals   pricing.Totals
}

func New(rates pricing.Rates) *Cart {
	return &Cart{rates: rates}
}

// AddItem merges into the existing line for the same item id or appends a new
// one. Non-empty notes replace the previous notes of a merged line.
func (c *Cart) AddItem(item menu.Item, qty int, notes string) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQty, qty)
	}
	if !item.Available {
		return fmt.Errorf("%w: %s", ErrUnavailable, item.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(item.ID); i >= 0 {
		c.lines[i].Quantity += qty
		if notes != "" {
			c.lines[i].Notes = notes
		}
	} else {
		c.lines = append(c.lines, Line{Item: item, Quantity: qty, Notes: notes})
	}
	c.recompute()
	return nil
}

// SetQuantity with qty <= 0 removes the line. Unknown ids are a no-op.
func (c *Cart) SetQuantity(itemID string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(itemID)
	if i < 0 {
		return
	}
	if qty <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = qty
	}
	c.recompute()
}

func (c *Cart) SetTip(v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("tip: %w", ErrNegativeAmount)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tip = v
	c.recompute()
	return nil
}

func (c *Cart) SetDiscount(v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("discount: %w", ErrNegativeAmount)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := pricing.Compute(c.pricingLines(), c.rates, c.tip, v); t.Total.IsNegative() {
		return fmt.Errorf("%w: discount %s, bill %s", ErrDiscountTooLarge, v, t.Total.Add(v))
	}
	c.discount = v
	c.recompute()
	return nil
}

// Clear drops every line together with tip and discount.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.tip = decimal.Zero
	c.discount = decimal.Zero
	c.recompute()
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Take returns the snapshot and clears the cart in one step, so a line added
// concurrently ends up either in the snapshot or in the next ticket.
func (c *Cart) Take() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshotLocked()
	c.lines = nil
	c.tip = decimal.Zero
	c.discount = decimal.Zero
	c.recompute()
	return s
}

// Restore puts a taken snapshot back, e.g. when checkout could not persist
// it. Lines added since the Take are kept and merged by item id; tip and
// discount come back only if none were set in the meantime.
func (c *Cart) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := c.lines
	c.lines = copyLines(s.Lines)
	for _, l := range added {
		if i := c.indexOf(l.Item.ID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			if l.Notes != "" {
				c.lines[i].Notes = l.Notes
			}
		} else {
			c.lines = append(c.lines, l)
		}
	}
	if c.tip.IsZero() {
		c.tip = s.Totals.Tip
	}
	if c.discount.IsZero() {
		c.discount = s.Totals.Discount
	}
	c.recompute()
}

func (c *Cart) snapshotLocked() Snapshot {
	return Snapshot{Lines: copyLines(c.lines), Totals: c.totals}
}

func (c *Cart) indexOf(itemID string) int {
	for i, l := range c.lines {
		if l.Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	c.totals = pricing.Compute(c.pricingLines(), c.rates, c.tip, c.discount)
}

func (c *Cart) pricingLines() []pricing.Line {
	pl := make([]pricing.Line, 0, len(c.lines))
	for _, l := range c.lines {
		pl = append(pl, pricing.Line{UnitPrice: l.Item.Price, Qty: l.Quantity})
	}
	return pl
}

func copyLines(in []Line) []Line {
	out := make([]Line, len(in))
	for i, l := range in {
		out[i] = l
		if l.Item.Tags != nil {
			out[i].Item.Tags = append([]string(nil), l.Item.Tags...)
		}
		if l.Item.Calories != nil {
			v := *l.Item.Calories
			out[i].Item.Calories = &v
		}
	}
	return out
}
