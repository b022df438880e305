package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/shopspring/decimal"
)

// Catalog file columns.
const (
	ColSerial   = "Sr_No"
	ColName     = "Product_Name"
	ColCategory = "Category"
	ColCost     = "Cost_Price"
	ColMRP      = "MRP"
	ColSP5      = "SP_5_Percent"
	ColSP10     = "SP_10_Percent"
	ColQuantity = "Quantity"
	ColBarcode  = "Barcode"
	ColMargin   = "Actual_Margin_Percent"
)

// Columns is the header written for a new catalog file.
var Columns = []string{ColSerial, ColName, ColCategory, ColCost, ColMRP, ColSP5, ColSP10, ColQuantity, ColBarcode}

var known = map[string]bool{
	ColSerial: true, ColName: true, ColCategory: true, ColCost: true, ColMRP: true,
	ColSP5: true, ColSP10: true, ColQuantity: true, ColBarcode: true, ColMargin: true,
}

// DecodeRow converts one catalog row into a Product. index is the 0-based
// row position, used when the serial column is blank.
func DecodeRow(row map[string]string, index int) (domain.Product, error) {
	p := domain.Product{
		Name:     domain.CanonicalName(row[ColName]),
		Category: strings.TrimSpace(row[ColCategory]),
		Barcode:  cleanText(row[ColBarcode]),
	}
	if p.Name == "" {
		return p, fmt.Errorf("row %d: missing %s", index+2, ColName)
	}

	var err error
	if p.SerialID, err = parseInt(row[ColSerial]); err != nil || p.SerialID <= 0 {
		p.SerialID = index + 1
	}
	if p.Quantity, err = parseInt(row[ColQuantity]); err != nil {
		return p, fmt.Errorf("row %d (%s): invalid %s %q", index+2, p.Name, ColQuantity, row[ColQuantity])
	}
	if p.Quantity < 0 {
		p.Quantity = 0
	}

	for col, dst := range map[string]*decimal.Decimal{ColCost: &p.CostPrice, ColMRP: &p.MRP, ColSP5: &p.SP5, ColSP10: &p.SP10} {
		if *dst, err = parseMoney(row[col]); err != nil {
			return p, fmt.Errorf("row %d (%s): invalid %s %q", index+2, p.Name, col, row[col])
		}
	}
	if m := cleanText(row[ColMargin]); m != "" {
		if d, err := decimal.NewFromString(m); err == nil {
			p.MarginPercent = decimal.NewNullDecimal(d)
		}
	}

	for k, v := range row {
		if known[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]string)
		}
		p.Extra[k] = v
	}
	return p, nil
}

// EncodeRow is the inverse of DecodeRow. The serial id is written as given.
func EncodeRow(p domain.Product) map[string]string {
	row := make(map[string]string, len(known)+len(p.Extra))
	for k, v := range p.Extra {
		row[k] = v
	}
	row[ColSerial] = strconv.Itoa(p.SerialID)
	row[ColName] = p.Name
	row[ColCategory] = p.Category
	row[ColCost] = formatMoney(p.CostPrice)
	row[ColMRP] = formatMoney(p.MRP)
	row[ColSP5] = formatMoney(p.SP5)
	row[ColSP10] = formatMoney(p.SP10)
	row[ColQuantity] = strconv.Itoa(p.Quantity)
	row[ColBarcode] = p.Barcode
	if p.MarginPercent.Valid {
		row[ColMargin] = p.MarginPercent.Decimal.StringFixed(2)
	}
	return row
}

// cleanText trims a cell and blanks spreadsheet null markers.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return s
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = cleanText(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseInt accepts "3" and "3.0"; spreadsheets write both.
func parseInt(s string) (int, error) {
	s = cleanText(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
