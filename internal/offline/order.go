package offline

import (
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/cart"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	// StatusFailed is reached after MaxAttempts failed sends. Retry moves the
	// order back to pending.
	StatusFailed Status = "failed"
)

// Order is the terminal's copy of a checked-out ticket. ID doubles as the
// externalId sent to the API, which makes a resend after a lost response safe.
type Order struct {
	ID            string           `json:"id"`
	Lines         []cart.Line      `json:"lines"`
	Totals        pricing.Totals   `json:"totals"`
	Customer      *orders.Customer `json:"customerInfo,omitempty"`
	OrderType     string           `json:"orderType,omitempty"`
	TableNumber   string           `json:"tableNumber,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`

	Status        Status    `json:"status"`
	ServerID      string    `json:"serverId,omitempty"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"lastError,omitempty"`
	NextAttemptAt time.Time `json:"nextAttemptAt,omitempty"`
	SyncedAt      time.Time `json:"syncedAt,omitempty"`
}

// Request builds the API body. Prices are not sent; the server reprices.
func (o Order) Request() orders.CreateRequest {
	items := make([]orders.ItemInput, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, orders.ItemInput{MenuItemID: l.Item.ID, Quantity: l.Quantity, Notes: l.Notes})
	}
	return orders.CreateRequest{
		ExternalID:    o.ID,
		Items:         items,
		CustomerInfo:  o.Customer,
		PaymentMethod: o.PaymentMethod,
		OrderType:     o.OrderType,
		TableNumber:   o.TableNumber,
		Tip:           o.Totals.Tip,
		Discount:      o.Totals.Discount,
	}
}
