package orders

import (
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
	"github.com/shopspring/decimal"
)

const (
	TypeDineIn   = "dine-in"
	TypeTakeaway = "takeaway"
	TypeDelivery = "delivery"
)

type Customer struct {
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	LoyaltyPoints int    `json:"loyaltyPoints,omitempty"`
}

type Item struct {
	MenuItemID string          `json:"menuItemId"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	Notes      string          `json:"notes,omitempty"`
}

type Order struct {
	ID            string    `json:"id"`
	ExternalID    string    `json:"externalId"`
	TenantID      string    `json:"tenantId"`
	Items         []Item    `json:"items"`
	Status        Status    `json:"status"`
	OrderType     string    `json:"orderType"`
	TableNumber   string    `json:"tableNumber,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	Customer      *Customer `json:"customerInfo,omitempty"`
	pricing.Totals
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ItemInput struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

// CreateRequest is the body of POST /api/orders. ExternalID is the id the
// terminal generated; resubmitting the same id returns the existing order.
type CreateRequest struct {
	ExternalID    string          `json:"externalId,omitempty"`
	Items         []ItemInput     `json:"items"`
	CustomerInfo  *Customer       `json:"customerInfo,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	OrderType     string          `json:"orderType,omitempty"`
	TableNumber   string          `json:"tableNumber,omitempty"`
	Tip           decimal.Decimal `json:"tip"`
	Discount      decimal.Decimal `json:"discount"`
}

type SalesSummary struct {
	Date              string          `json:"date"`
	TotalSales        decimal.Decimal `json:"totalSales"`
	OrderCount        int             `json:"orderCount"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}
