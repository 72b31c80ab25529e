package orders

import (
	"fmt"

	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/pricing"
)

// Quote prices a validated request against the menu. Client supplied prices
// are never trusted; unit prices come from the menu at order time.
func Quote(req CreateRequest, catalog map[string]menu.Item, rates pricing.Rates) ([]Item, pricing.Totals, error) {
	items := make([]Item, 0, len(req.Items))
	lines := make([]pricing.Line, 0, len(req.Items))
	for _, in := range req.Items {
		m, ok := catalog[in.MenuItemID]
		if !ok {
			return nil, pricing.Totals{}, fmt.Errorf("%w: %s", ErrItemNotFound, in.MenuItemID)
		}
		if !m.Available {
			return nil, pricing.Totals{}, invalid("menu item %s is not available", in.MenuItemID)
		}
		items = append(items, Item{
			MenuItemID: m.ID,
			Name:       m.Name,
			UnitPrice:  m.Price,
			Quantity:   in.Quantity,
			Notes:      in.Notes,
		})
		lines = append(lines, pricing.Line{UnitPrice: m.Price, Qty: in.Quantity})
	}
	totals := pricing.Compute(lines, rates, req.Tip, req.Discount)
	if totals.Total.IsNegative() {
		return nil, pricing.Totals{}, invalid("discount exceeds order amount")
	}
	return items, totals, nil
}
