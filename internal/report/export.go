// =============================================================================
// Shop POS - XLSX Reports
// =============================================================================
//
// Read-only views of the ledger, catalog and customer store, written as
// XLSX workbooks into the reports directory.
//
// REPORTS:
//   - sales     : ledger rows in a date range, with a totals row
//   - daily     : per-date transactions, items, gross, discount and net
//   - inventory : stock valuation at cost and at MRP
//   - lowstock  : restock suggestions
//   - customers : the customer ledger
//
// FILE NAMING:
//   {report}_{timestamp}_{uuid}.xlsx (utils.GenerateOutputFileName)
//
// =============================================================================

package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/ledger"
	"github.com/ginjaninja78/shop-pos/internal/stock"
	"github.com/ginjaninja78/shop-pos/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Report names.
const (
	Sales     = "sales"
	Daily     = "daily"
	Inventory = "inventory"
	LowStock  = "lowstock"
	Customers = "customers"
)

// FileNameFormat is passed to utils.GenerateOutputFileName.
const FileNameFormat = "{report}_{timestamp}_{uuid}"

// Sheet is one worksheet of a report.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any

	// Totals is written in bold after the rows when set.
	Totals []any
}

// Exporter writes report workbooks.
type Exporter struct {
	dir string
	log zerolog.Logger
}

// NewExporter returns an Exporter writing into dir.
func NewExporter(dir string, log zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, log: log}
}

// =============================================================================
// REPORT BUILDERS
// =============================================================================

// SalesSheet lists ledger rows.
func SalesSheet(lines []domain.SaleLine) Sheet {
	s := Sheet{Name: "Sales", Headers: ledger.Columns}
	for _, l := range lines {
		s.Rows = append(s.Rows, []any{
			l.TransactionID, l.Date, l.Time, l.CustomerName, l.CustomerPhone, l.ProductName,
			l.QuantitySold, money(l.UnitPrice), money(l.TotalAmount), l.PaymentMethod,
			money(l.Discount), money(l.FinalAmount),
		})
	}
	t := ledger.Sum(lines)
	s.Totals = []any{
		fmt.Sprintf("%d transactions", t.Transactions), "", "", "", "", "TOTAL",
		t.Items, "", money(t.Gross), "", money(t.Discount), money(t.Net),
	}
	return s
}

// DailySheet aggregates ledger rows per date.
func DailySheet(lines []domain.SaleLine) Sheet {
	s := Sheet{Name: "Daily", Headers: []string{"Date", "Transactions", "Items", "Gross", "Discount", "Net"}}
	for _, d := range ledger.ByDate(lines) {
		s.Rows = append(s.Rows, []any{d.Date, d.Transactions, d.Items, money(d.Gross), money(d.Discount), money(d.Net)})
	}
	t := ledger.Sum(lines)
	s.Totals = []any{"TOTAL", t.Transactions, t.Items, money(t.Gross), money(t.Discount), money(t.Net)}
	return s
}

// InventorySheet values the stock at cost and at MRP.
func InventorySheet(products []domain.Product) Sheet {
	s := Sheet{Name: "Inventory", Headers: []string{
		"Sr_No", "Product_Name", "Category", "Quantity", "Cost_Price", "MRP",
		"Value_At_Cost", "Value_At_MRP", "Margin_Percent", "Barcode",
	}}
	costTotal, mrpTotal := decimal.Zero, decimal.Zero
	units := 0
	for _, p := range products {
		qty := decimal.NewFromInt(int64(p.Quantity))
		atCost := p.CostPrice.Mul(qty)
		atMRP := p.MRP.Mul(qty)
		costTotal = costTotal.Add(atCost)
		mrpTotal = mrpTotal.Add(atMRP)
		units += p.Quantity
		s.Rows = append(s.Rows, []any{
			p.SerialID, p.Name, p.Category, p.Quantity, money(p.CostPrice), money(p.MRP),
			money(atCost), money(atMRP), money(p.Margin()), p.Barcode,
		})
	}
	s.Totals = []any{"", "TOTAL", fmt.Sprintf("%d products", len(products)), units, "", "", money(costTotal), money(mrpTotal), "", ""}
	return s
}

// LowStockSheet lists restock suggestions.
func LowStockSheet(suggestions []stock.Suggestion) Sheet {
	s := Sheet{Name: "Low Stock", Headers: []string{
		"Product_Name", "Category", "Current_Stock", "Suggested_Qty", "Cost_Price", "Estimated_Value", "Priority",
	}}
	total := decimal.Zero
	for _, sg := range suggestions {
		total = total.Add(sg.EstimatedValue)
		s.Rows = append(s.Rows, []any{
			sg.Product.Name, sg.Product.Category, sg.Product.Quantity, sg.SuggestedQty,
			money(sg.Product.CostPrice), money(sg.EstimatedValue), sg.Priority,
		})
	}
	s.Totals = []any{"TOTAL", "", "", "", "", money(total), ""}
	return s
}

// CustomersSheet lists customer records.
func CustomersSheet(customers []domain.Customer) Sheet {
	s := Sheet{Name: "Customers", Headers: []string{
		"Name", "Phone", "Email", "Address", "Customer_Type", "Registration_Date",
		"Last_Visit", "Visit_Count", "Total_Purchases", "Loyalty_Points",
	}}
	for _, c := range customers {
		s.Rows = append(s.Rows, []any{
			c.Name, c.Phone, c.Email, c.Address, c.CustomerType, c.RegistrationDate,
			c.LastVisit, c.VisitCount, money(c.TotalPurchases), c.LoyaltyPoints,
		})
	}
	return s
}

// money converts an amount to a numeric cell value.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// =============================================================================
// WORKBOOK OUTPUT
// =============================================================================

// Write saves the sheets as a new workbook named after report and returns
// the file path.
func (e *Exporter) Write(report string, sheets ...Sheet) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("report %s has no sheets", report)
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	name := utils.GenerateOutputFileName(FileNameFormat, map[string]string{"report": report}, ".xlsx")
	path := filepath.Join(e.dir, name)

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return "", fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return "", fmt.Errorf("failed to add sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, bold); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	rows := 0
	for _, s := range sheets {
		rows += len(s.Rows)
	}
	e.log.Info().Str("report", report).Str("path", path).Int("rows", rows).Msg("report written")
	return path, nil
}

func writeSheet(f *excelize.File, sheet Sheet, bold int) error {
	header := make([]any, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(max(len(sheet.Headers), 1))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if sheet.Totals != nil {
		r := len(sheet.Rows) + 2
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(sheet.Name, cell, &sheet.Totals); err != nil {
			return fmt.Errorf("failed to write totals: %w", err)
		}
		if err := f.SetCellStyle(sheet.Name, cell, fmt.Sprintf("%s%d", lastCol, r), bold); err != nil {
			return fmt.Errorf("failed to style totals: %w", err)
		}
	}

	if err := f.SetColWidth(sheet.Name, "A", lastCol, 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}
