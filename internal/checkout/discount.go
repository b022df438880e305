package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscountPolicy splits a lump discount across cart lines.
//
// Split must return one share per line, each rounded to 2 decimals, and
// the shares must sum to exactly total.
type DiscountPolicy interface {
	Name() string
	Split(total decimal.Decimal, lineTotals []decimal.Decimal) []decimal.Decimal
}

// Policy names accepted in checkout.discount_policy.
const (
	PolicyEven         = "even"
	PolicyProportional = "proportional"
)

// PolicyByName returns the named policy.
func PolicyByName(name string) (DiscountPolicy, error) {
	switch name {
	case "", PolicyEven:
		return EvenSplit{}, nil
	case PolicyProportional:
		return ProportionalSplit{}, nil
	}
	return nil, fmt.Errorf("unknown discount policy %q", name)
}

// EvenSplit gives every line the same share regardless of its value.
// The last line absorbs the rounding remainder.
type EvenSplit struct{}

func (EvenSplit) Name() string { return PolicyEven }

func (EvenSplit) Split(total decimal.Decimal, lineTotals []decimal.Decimal) []decimal.Decimal {
	n := len(lineTotals)
	if n == 0 {
		return nil
	}
	share := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = share
	}
	return absorbRemainder(total, shares)
}

// ProportionalSplit weights each share by the line's value.
type ProportionalSplit struct{}

func (ProportionalSplit) Name() string { return PolicyProportional }

func (ProportionalSplit) Split(total decimal.Decimal, lineTotals []decimal.Decimal) []decimal.Decimal {
	n := len(lineTotals)
	if n == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, t := range lineTotals {
		sum = sum.Add(t)
	}
	if sum.IsZero() {
		return EvenSplit{}.Split(total, lineTotals)
	}
	shares := make([]decimal.Decimal, n)
	for i, t := range lineTotals {
		shares[i] = total.Mul(t).Div(sum).Round(2)
	}
	return absorbRemainder(total, shares)
}

// absorbRemainder adjusts the last share so the shares sum to total.
func absorbRemainder(total decimal.Decimal, shares []decimal.Decimal) []decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares[:len(shares)-1] {
		sum = sum.Add(s)
	}
	shares[len(shares)-1] = total.Sub(sum)
	return shares
}
