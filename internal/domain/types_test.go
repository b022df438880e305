package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestProductPriceTiers(t *testing.T) {
	p := Product{Name: "MAGGI NOODLES", MRP: d("14"), SP5: d("13.30")}

	assert.True(t, p.Price(PriceMRP).Equal(d("14")))
	assert.True(t, p.Price(PriceSP5).Equal(d("13.30")))
	// SP10 column empty, derived from MRP.
	assert.True(t, p.Price(PriceSP10).Equal(d("12.6")))
}

func TestRecomputeSellingPrices(t *testing.T) {
	p := Product{MRP: d("100")}
	p.RecomputeSellingPrices()

	assert.True(t, p.SP5.Equal(d("95")))
	assert.True(t, p.SP10.Equal(d("90")))
}

func TestMargin(t *testing.T) {
	assert.True(t, Product{CostPrice: d("80"), MRP: d("100")}.Margin().Equal(d("25")))
	assert.True(t, Product{MRP: d("100")}.Margin().IsZero())
}

func TestCloneCopiesExtra(t *testing.T) {
	p := Product{Name: "X", Extra: map[string]string{"Brand": "Nestle"}}
	c := p.Clone()
	c.Extra["Brand"] = "Other"

	assert.Equal(t, "Nestle", p.Extra["Brand"])
}

func TestCartItemLineTotal(t *testing.T) {
	item := CartItem{ProductName: "PARLE-G", Quantity: 2, UnitPrice: d("10")}
	assert.True(t, item.LineTotal().Equal(d("20")))
}

func TestCustomerInfo(t *testing.T) {
	assert.True(t, CustomerInfo{Name: "Ravi", Phone: "  "}.IsWalkIn())
	assert.False(t, CustomerInfo{Phone: "9876543210"}.IsWalkIn())
	assert.Equal(t, WalkInCustomer, CustomerInfo{}.DisplayName())
	assert.Equal(t, "Ravi", CustomerInfo{Name: " Ravi "}.DisplayName())
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "PARLE-G", CanonicalName("  Parle-G "))
	assert.True(t, MovementQuickSale.IsSale())
	assert.False(t, MovementReturn.IsSale())
}
