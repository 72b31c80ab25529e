package orders

import (
	"errors"
	"testing"

	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
	"github.com/shopspring/decimal"
)

func TestQuote(t *testing.T) {
	rates := pricing.Rates{TaxRate: decimal.NewFromInt(5), ServiceChargeRate: decimal.NewFromInt(10)}
	catalog := map[string]menu.Item{
		"rendang": {ID: "rendang", Name: "Rendang", Price: decimal.NewFromInt(450), Available: true},
		"sate":    {ID: "sate", Name: "Sate", Price: decimal.NewFromInt(300), Available: false},
	}

	items, totals, err := Quote(CreateRequest{
		Items: []ItemInput{{MenuItemID: "rendang", Quantity: 2, Notes: "pedas"}},
	}, catalog, rates)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Rendang" || items[0].Notes != "pedas" {
		t.Errorf("items = %+v", items)
	}
	if !totals.Total.Equal(decimal.NewFromInt(1035)) {
		t.Errorf("total = %s, want 1035", totals.Total)
	}

	_, _, err = Quote(CreateRequest{Items: []ItemInput{{MenuItemID: "ghost", Quantity: 1}}}, catalog, rates)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown item: err = %v", err)
	}

	_, _, err = Quote(CreateRequest{Items: []ItemInput{{MenuItemID: "sate", Quantity: 1}}}, catalog, rates)
	if !IsValidation(err) {
		t.Errorf("unavailable item: err = %v", err)
	}

	_, _, err = Quote(CreateRequest{
		Items:    []ItemInput{{MenuItemID: "rendang", Quantity: 1}},
		Discount: decimal.NewFromInt(10000),
	}, catalog, rates)
	if !IsValidation(err) {
		t.Errorf("oversized discount: err = %v", err)
	}
}
