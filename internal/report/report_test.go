package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/catalog"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/stock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var _ CatalogWriter = (*catalog.Store)(nil)

func openCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.csv")
	csv := "Sr_No,Product_Name,Category,Cost_Price,MRP,SP_5_Percent,SP_10_Percent,Quantity,Barcode\n" +
		"1,MAGGI NOODLES,Instant Food,12,14,13.3,12.6,10,8901058000290\n" +
		"2,PARLE-G,Biscuits,8,10,9.5,9,5,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))
	s, err := catalog.Open(catalog.Options{
		Path:     path,
		Settings: config.CSVSettings{Delimiter: ","},
		Clock:    clock.NewFixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return s
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportCatalog(t *testing.T) {
	store := openCatalog(t)
	path := writeWorkbook(t, [][]any{
		{"Product Name", "MRP", "Qty", "Barcode", "Supplier"},
		{"Maggi Noodles", 15, 25, 8901058000290, "Nestle"},
		{"Tata Salt 1KG", 28, 12, 8904043901015, "Tata"},
		{"Bad Row", 10, "lots", "", ""},
		{"", "", "", "", ""},
	})

	res, err := ImportCatalog(path, store, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"MAGGI NOODLES"}, res.Updated)
	assert.Equal(t, []string{"TATA SALT 1KG"}, res.Added)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Skipped[0].Row)

	maggi, err := store.FindByName("MAGGI NOODLES")
	require.NoError(t, err)
	assert.Equal(t, 25, maggi.Quantity)
	assert.True(t, maggi.MRP.Equal(d("15")))
	assert.True(t, maggi.SP5.Equal(d("14.25")))
	// Columns missing from the sheet are left alone.
	assert.True(t, maggi.CostPrice.Equal(d("12")))
	assert.Equal(t, "Instant Food", maggi.Category)
	assert.Equal(t, "Nestle", maggi.Extra["Supplier"])

	salt, err := store.FindByName("TATA SALT 1KG")
	require.NoError(t, err)
	assert.Equal(t, "8904043901015", salt.Barcode)
	assert.Equal(t, 12, salt.Quantity)
}

func TestImportCatalogNeedsNameColumn(t *testing.T) {
	store := openCatalog(t)
	path := writeWorkbook(t, [][]any{{"MRP", "Qty"}, {10, 1}})
	_, err := ImportCatalog(path, store, zerolog.Nop())
	assert.Error(t, err)
}

func sales() []domain.SaleLine {
	line := func(txn, date, name string, qty int, total, disc string) domain.SaleLine {
		return domain.SaleLine{
			TransactionID: txn, Date: date, Time: "10:00:00", CustomerName: domain.WalkInCustomer,
			ProductName: name, QuantitySold: qty, UnitPrice: d("1"), TotalAmount: d(total),
			PaymentMethod: domain.PaymentCash, Discount: d(disc), FinalAmount: d(total).Sub(d(disc)),
		}
	}
	return []domain.SaleLine{
		line("TXN1", "2026-03-01", "MAGGI NOODLES", 3, "42", "3.1"),
		line("TXN1", "2026-03-01", "PARLE-G", 2, "20", "3.1"),
		line("TXN2", "2026-03-02", "PARLE-G", 1, "10", "0"),
	}
}

func TestSheets(t *testing.T) {
	s := SalesSheet(sales())
	assert.Len(t, s.Rows, 3)
	assert.Equal(t, "2 transactions", s.Totals[0])
	assert.Equal(t, 6, s.Totals[6])
	assert.InDelta(t, 65.8, s.Totals[11], 0.001)

	daily := DailySheet(sales())
	require.Len(t, daily.Rows, 2)
	assert.Equal(t, "2026-03-01", daily.Rows[0][0])
	assert.Equal(t, 1, daily.Rows[0][1])
	assert.InDelta(t, 55.8, daily.Rows[0][5], 0.001)

	inv := InventorySheet([]domain.Product{
		{Name: "A", Quantity: 2, CostPrice: d("10"), MRP: d("15")},
		{Name: "B", Quantity: 1, CostPrice: d("5"), MRP: d("6")},
	})
	assert.InDelta(t, 25.0, inv.Totals[6], 0.001)
	assert.InDelta(t, 36.0, inv.Totals[7], 0.001)

	low := LowStockSheet([]stock.Suggestion{{Product: domain.Product{Name: "A"}, SuggestedQty: 50, EstimatedValue: d("400"), Priority: stock.PriorityHigh}})
	assert.Equal(t, stock.PriorityHigh, low.Rows[0][6])
}

func TestExporterWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	e := NewExporter(dir, zerolog.Nop())

	path, err := e.Write(Daily, DailySheet(sales()), SalesSheet(sales()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "daily_"))
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Daily", "Sales"}, f.GetSheetList())

	header, err := f.GetCellValue("Daily", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Date", header)
	total, err := f.GetCellValue("Daily", "A4")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", total)
	txn, err := f.GetCellValue("Sales", "A2")
	require.NoError(t, err)
	assert.Equal(t, "TXN1", txn)

	_, err = e.Write(Customers)
	assert.Error(t, err)
}
