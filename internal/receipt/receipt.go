// =============================================================================
// Shop POS - Receipt Projection
// =============================================================================
//
// Project turns the ledger rows of one transaction into a receipt. It is a
// pure function of its inputs: it reads the rows and a catalog snapshot and
// never touches a store.
//
// PER LINE:
//   mrp              = catalog MRP, or the sold unit price when the product
//                      has since been deleted
//   discount_percent = (mrp - unit_price) / mrp * 100, never below 0
//   savings          = (mrp - unit_price) * quantity, never below 0
//
// TOTALS:
//   subtotal      = sum of line totals before the lump discount
//   total_mrp     = sum of mrp * quantity
//   total_savings = line savings + lump discount
//   final_total   = sum of final amounts
//
// =============================================================================

package receipt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// sizePattern finds a pack size such as 200ML or 1 KG in a product name.
var sizePattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?\s*(?:ML|GM|G|KG|L|MG))\b`)

// Line is one receipt row.
type Line struct {
	Name            string
	Size            string
	Quantity        int
	MRP             decimal.Decimal
	DiscountPercent decimal.Decimal
	UnitPrice       decimal.Decimal
	LineTotal       decimal.Decimal
	Savings         decimal.Decimal

	// Deleted is true when the product is no longer in the catalog.
	Deleted bool
}

// Receipt is the projection of one transaction.
type Receipt struct {
	TransactionID string
	Date          string
	Time          string
	CustomerName  string
	CustomerPhone string
	PaymentMethod string

	Lines []Line

	Subtotal       decimal.Decimal
	TotalMRP       decimal.Decimal
	ItemSavings    decimal.Decimal
	Discount       decimal.Decimal
	TotalSavings   decimal.Decimal
	SavingsPercent decimal.Decimal
	FinalTotal     decimal.Decimal
}

// Project builds the receipt for txnID.
//
// PARAMETERS:
//   - txnID: The transaction to project.
//   - sales: Ledger rows. Rows of other transactions are ignored.
//   - products: Catalog snapshot used for MRP lookup.
//
// RETURNS:
//   - The receipt, or ErrTransactionNotFound when no row matches.
func Project(txnID string, sales []domain.SaleLine, products []domain.Product) (*Receipt, error) {
	mrp := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		mrp[domain.CanonicalName(p.Name)] = p.MRP
	}

	r := &Receipt{TransactionID: txnID}
	for _, row := range sales {
		if row.TransactionID != txnID {
			continue
		}
		if len(r.Lines) == 0 {
			r.Date = row.Date
			r.Time = row.Time
			r.CustomerName = row.CustomerName
			r.CustomerPhone = row.CustomerPhone
			r.PaymentMethod = row.PaymentMethod
		}
		r.Lines = append(r.Lines, projectLine(row, mrp))
		r.Discount = r.Discount.Add(row.Discount)
		r.FinalTotal = r.FinalTotal.Add(row.FinalAmount)
	}
	if len(r.Lines) == 0 {
		return nil, fmt.Errorf("%w: %s", apperr.ErrTransactionNotFound, txnID)
	}

	for _, l := range r.Lines {
		r.Subtotal = r.Subtotal.Add(l.LineTotal)
		r.TotalMRP = r.TotalMRP.Add(l.MRP.Mul(decimal.NewFromInt(int64(l.Quantity))))
		r.ItemSavings = r.ItemSavings.Add(l.Savings)
	}
	r.TotalSavings = r.ItemSavings.Add(r.Discount)
	if r.TotalMRP.IsPositive() {
		r.SavingsPercent = r.TotalSavings.Div(r.TotalMRP).Mul(hundred).Round(1)
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		r.CustomerName = domain.WalkInCustomer
	}
	return r, nil
}

func projectLine(row domain.SaleLine, catalogMRP map[string]decimal.Decimal) Line {
	name, size := SplitSize(row.ProductName)
	l := Line{
		Name:      name,
		Size:      size,
		Quantity:  row.QuantitySold,
		UnitPrice: row.UnitPrice,
		LineTotal: row.TotalAmount,
	}

	m, ok := catalogMRP[domain.CanonicalName(row.ProductName)]
	if !ok {
		m = row.UnitPrice
		l.Deleted = true
	}
	l.MRP = m

	if m.IsPositive() {
		perUnit := m.Sub(row.UnitPrice)
		if perUnit.IsPositive() {
			l.DiscountPercent = perUnit.Div(m).Mul(hundred).Round(1)
			l.Savings = perUnit.Mul(decimal.NewFromInt(int64(row.QuantitySold)))
		}
	}
	return l
}

// SplitSize separates a pack size from a product name, e.g.
// "DETTOL LIQUID 200ML" -> ("DETTOL LIQUID", "200ML").
func SplitSize(name string) (string, string) {
	loc := sizePattern.FindStringSubmatchIndex(name)
	if loc == nil {
		return name, ""
	}
	size := name[loc[2]:loc[3]]
	rest := strings.Join(strings.Fields(name[:loc[2]]+" "+name[loc[3]:]), " ")
	if rest == "" {
		return name, ""
	}
	return rest, size
}
