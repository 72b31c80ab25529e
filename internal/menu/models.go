package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is immutable from the terminal's point of view; it is sourced from the
// API or from the local menu cache.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
	Calories    *int            `json:"calories,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty"`
}
