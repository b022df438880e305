// =============================================================================
// Shop POS - Shared Types
// =============================================================================
//
// This package contains the records shared by every store and service:
//   - Product       : one catalog row
//   - CartItem      : one line of the cart being built
//   - SaleLine      : one sales ledger row (one per product per transaction)
//   - Customer      : one customer ledger record, keyed by phone
//   - Movement      : one stock movement log entry
//   - DeletedProduct: a soft-deleted catalog row kept for restore
//
// Money is always decimal.Decimal. Barcodes are always text.
//
// =============================================================================

package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT
// =============================================================================

// Product is one stocked item.
type Product struct {
	// SerialID is reassigned 1..N on every catalog save.
	// It is not a durable key across edits.
	SerialID int

	// Name is the business key. Stored uppercased.
	Name string

	// Category is informational. Derived from the name when blank.
	Category string

	CostPrice decimal.Decimal
	MRP       decimal.Decimal

	// SP5 and SP10 are the quick price options at 5% and 10% below MRP.
	SP5  decimal.Decimal
	SP10 decimal.Decimal

	// Quantity is the authoritative stock count. Never negative.
	Quantity int

	// Barcode is optional and unique when non-empty. Kept exactly as stored.
	Barcode string

	// MarginPercent mirrors the optional Actual_Margin_Percent column.
	MarginPercent decimal.NullDecimal

	// Extra holds catalog columns this program does not model (Brand,
	// Supplier, ...) so a load/save cycle does not drop them.
	Extra map[string]string
}

// PriceTier selects one of the product's price options.
type PriceTier string

const (
	PriceMRP  PriceTier = "mrp"
	PriceSP5  PriceTier = "sp5"
	PriceSP10 PriceTier = "sp10"
)

var (
	sp5Factor  = decimal.RequireFromString("0.95")
	sp10Factor = decimal.RequireFromString("0.90")
)

// Price returns the unit price for a tier. Missing SP columns fall back to
// the MRP-derived value.
func (p Product) Price(tier PriceTier) decimal.Decimal {
	switch tier {
	case PriceSP5:
		if p.SP5.IsPositive() {
			return p.SP5
		}
		return p.MRP.Mul(sp5Factor).Round(2)
	case PriceSP10:
		if p.SP10.IsPositive() {
			return p.SP10
		}
		return p.MRP.Mul(sp10Factor).Round(2)
	default:
		return p.MRP
	}
}

// RecomputeSellingPrices sets SP5 and SP10 from the current MRP.
func (p *Product) RecomputeSellingPrices() {
	p.SP5 = p.MRP.Mul(sp5Factor).Round(2)
	p.SP10 = p.MRP.Mul(sp10Factor).Round(2)
}

// Margin returns (MRP - cost) / cost * 100, or zero when cost is zero.
func (p Product) Margin() decimal.Decimal {
	if !p.CostPrice.IsPositive() {
		return decimal.Zero
	}
	return p.MRP.Sub(p.CostPrice).Div(p.CostPrice).Mul(decimal.NewFromInt(100)).Round(2)
}

// Clone returns a deep copy.
func (p Product) Clone() Product {
	if p.Extra != nil {
		extra := make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}

// CanonicalName is the stored form of a product name.
func CanonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// =============================================================================
// CART ITEM
// =============================================================================

// CartItem is one line of the cart. Quantity is always at least 1.
type CartItem struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// LineTotal is Quantity x UnitPrice.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// =============================================================================
// SALES LEDGER
// =============================================================================

// SaleLine is one sales ledger row. All rows of a checkout share TransactionID.
type SaleLine struct {
	TransactionID string
	Date          string
	Time          string
	CustomerName  string
	CustomerPhone string
	ProductName   string
	QuantitySold  int
	UnitPrice     decimal.Decimal
	TotalAmount   decimal.Decimal
	PaymentMethod string

	// Discount is the amount of the lump discount attributed to this line.
	Discount decimal.Decimal

	// FinalAmount is TotalAmount - Discount.
	FinalAmount decimal.Decimal
}

// Payment methods accepted at checkout.
const (
	PaymentCash   = "Cash"
	PaymentCard   = "Card"
	PaymentUPI    = "UPI"
	PaymentCredit = "Credit"
)

// WalkInCustomer is the name recorded for sales without a customer.
const WalkInCustomer = "Walk-in Customer"

// =============================================================================
// CUSTOMER
// =============================================================================

// Customer is one record of the customer ledger.
type Customer struct {
	Name             string          `json:"name"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	Address          string          `json:"address"`
	RegistrationDate string          `json:"registration_date"`
	TotalPurchases   decimal.Decimal `json:"total_purchases"`
	LastVisit        string          `json:"last_visit"`
	VisitCount       int             `json:"visit_count"`
	CustomerType     string          `json:"customer_type"`
	Notes            string          `json:"notes"`
	LoyaltyPoints    int             `json:"loyalty_points"`
}

// Customer types.
const (
	CustomerRegular   = "Regular"
	CustomerVIP       = "VIP"
	CustomerWholesale = "Wholesale"
	CustomerCredit    = "Credit"
)

// CustomerInfo is what the cashier enters at checkout.
// A blank Phone means a walk-in sale.
type CustomerInfo struct {
	Name  string
	Phone string
	Email string
}

// IsWalkIn reports whether the sale is not tracked in the customer ledger.
func (c CustomerInfo) IsWalkIn() bool {
	return strings.TrimSpace(c.Phone) == ""
}

// DisplayName returns the name to print, defaulting to the walk-in label.
func (c CustomerInfo) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return WalkInCustomer
}

// =============================================================================
// STOCK MOVEMENTS
// =============================================================================

// MovementType classifies an inventory-affecting event.
type MovementType string

const (
	MovementSale          MovementType = "SALE"
	MovementQuickSale     MovementType = "QUICK_SALE"
	MovementPurchase      MovementType = "PURCHASE"
	MovementAdjustmentIn  MovementType = "ADJUSTMENT_IN"
	MovementAdjustmentOut MovementType = "ADJUSTMENT_OUT"
	MovementReturn        MovementType = "RETURN"
	MovementRestore       MovementType = "RESTORE"
)

// IsSale reports whether the movement was produced by a sale.
func (t MovementType) IsSale() bool {
	return t == MovementSale || t == MovementQuickSale
}

// Movement is one stock movement log entry.
type Movement struct {
	ID          string
	Date        string
	Time        string
	ProductName string
	Type        MovementType
	Quantity    int
	StockBefore int
	StockAfter  int
	Reference   string
	Notes       string
	User        string
}

// =============================================================================
// DELETED PRODUCTS
// =============================================================================

// DeletedProduct is a soft-deleted catalog row.
type DeletedProduct struct {
	Product   Product
	DeletedAt string
	DeletedBy string
}
