package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rates dalam persen (5 = 5%). Tax dan service charge sama-sama dihitung
// dari subtotal, tidak saling compound.
type Rates struct {
	TaxRate           decimal.Decimal `json:"taxRate"`
	ServiceChargeRate decimal.Decimal `json:"serviceChargeRate"`
}

type Line struct {
	UnitPrice decimal.Decimal
	Qty       int
}

type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Discount      decimal.Decimal `json:"discount"`
	Tip           decimal.Decimal `json:"tip"`
	Total         decimal.Decimal `json:"total"`
}

// Compute: total = subtotal + tax + serviceCharge + tip - discount.
func Compute(lines []Line, r Rates, tip, discount decimal.Decimal) Totals {
	sub := decimal.Zero
	for _, l := range lines {
		sub = sub.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	tax := sub.Mul(r.TaxRate).Div(hundred).Round(2)
	svc := sub.Mul(r.ServiceChargeRate).Div(hundred).Round(2)
	return Totals{
		Subtotal:      sub.Round(2),
		Tax:           tax,
		ServiceCharge: svc,
		Discount:      discount.Round(2),
		Tip:           tip.Round(2),
		Total:         sub.Add(tax).Add(svc).Add(tip).Sub(discount).Round(2),
	}
}

func ParseRates(tax, service string) (Rates, error) {
	t, err := parsePercent("tax rate", tax)
	if err != nil {
		return Rates{}, err
	}
	s, err := parsePercent("service charge rate", service)
	if err != nil {
		return Rates{}, err
	}
	return Rates{TaxRate: t, ServiceChargeRate: s}, nil
}

func parsePercent(name, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", name, v, err)
	}
	if d.IsNegative() || d.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%s %s out of range [0,100]", name, v)
	}
	return d, nil
}
