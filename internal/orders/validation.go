package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrItemNotFound      = errors.New("menu item not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError communicates rule violations back to handlers.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ValidateCustomer: phone wajib kalau ada data customer apa pun.
func ValidateCustomer(c *Customer) error {
	if c == nil {
		return nil
	}
	if strings.TrimSpace(c.Phone) == "" {
		return invalid("customer phone is required")
	}
	if len(c.Name) > 100 {
		return invalid("customer name must be at most 100 characters")
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return invalid("customer email %q is invalid", c.Email)
	}
	return nil
}

// Validate normalises defaults (order type) and checks the request shape.
// Prices are not part of the request; they are resolved from the menu.
func (r *CreateRequest) Validate() error {
	if len(r.Items) == 0 {
		return invalid("items are required")
	}
	for i, it := range r.Items {
		if it.MenuItemID == "" {
			return invalid("items[%d]: menuItemId is required", i)
		}
		if it.Quantity <= 0 {
			return invalid("items[%d]: quantity must be > 0", i)
		}
	}
	switch r.OrderType {
	case "":
		r.OrderType = TypeDineIn
	case TypeDineIn, TypeTakeaway, TypeDelivery:
	default:
		return invalid("orderType %q is invalid", r.OrderType)
	}
	if r.Tip.IsNegative() || r.Discount.IsNegative() {
		return invalid("tip and discount must not be negative")
	}
	if err := ValidateCustomer(r.CustomerInfo); err != nil {
		return err
	}
	if r.OrderType == TypeDelivery && (r.CustomerInfo == nil || r.CustomerInfo.Address == "") {
		return invalid("delivery orders require a customer address")
	}
	return nil
}
