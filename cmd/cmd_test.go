package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/shop"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestShop(t *testing.T) *shop.Shop {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InventoryFile = filepath.Join(root, "inventory_master.csv")
	cfg.SalesFile = filepath.Join(root, "data", "sales_transactions.csv")
	cfg.CustomersFile = filepath.Join(root, "data", "customers.json")
	cfg.StockMovementsFile = filepath.Join(root, "data", "stock_movements.csv")
	cfg.DeletedProductsFile = filepath.Join(root, "data", "deleted_products.json")
	cfg.JournalFile = filepath.Join(root, "data", "pending_transaction.json")
	cfg.BackupDir = filepath.Join(root, "backups")
	cfg.ReportsDir = filepath.Join(root, "reports")
	cfg.ReceiptsDir = filepath.Join(root, "receipts")

	csv := "Sr_No,Product_Name,Category,Cost_Price,MRP,SP_5_Percent,SP_10_Percent,Quantity,Barcode\n" +
		"1,MAGGI NOODLES,Instant Food,12,14,13.3,12.6,10,8901058000290\n" +
		"2,PARLE-G,Biscuits,8,10,9.5,9,5,\n" +
		"3,PARLE MONACO,Biscuits,8,10,9.5,9,5,\n"
	require.NoError(t, os.WriteFile(cfg.InventoryFile, []byte(csv), 0644))

	clk := clock.NewFixed(time.Date(2026, 3, 1, 10, 45, 0, 0, time.UTC))
	s, err := shop.Open(cfg, clk, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestParseItemArg(t *testing.T) {
	tests := []struct {
		arg   string
		input string
		qty   int
		price string
	}{
		{"maggi", "maggi", 1, ""},
		{"maggi:3", "maggi", 3, ""},
		{"parle g:2:9", "parle g", 2, "9"},
		{"8901058000290:2:sp5", "8901058000290", 2, "sp5"},
		{"TEA: GREEN:4", "TEA: GREEN", 4, ""},
	}
	for _, tt := range tests {
		item, err := parseItemArg(tt.arg)
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.input, item.Input, tt.arg)
		assert.Equal(t, tt.qty, item.Quantity, tt.arg)
		assert.Equal(t, tt.price, item.Price, tt.arg)
	}

	_, err := parseItemArg(":3")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = parseItemArg("maggi:0")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUnitPrice(t *testing.T) {
	p := domain.Product{MRP: decimal.NewFromInt(20)}
	p.RecomputeSellingPrices()

	got, err := unitPrice(p, "")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(20)))

	got, err = unitPrice(p, "SP10")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(18)))

	got, err = unitPrice(p, "17.5")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("17.5")))

	_, err = unitPrice(p, "-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = unitPrice(p, "cheap")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSplitTrailing(t *testing.T) {
	input, qty, price := splitTrailing([]string{"parle", "g", "2", "9.5"})
	assert.Equal(t, "parle g", input)
	assert.Equal(t, 2, qty)
	assert.Equal(t, "9.5", price)

	input, qty, price = splitTrailing([]string{"maggi", "3"})
	assert.Equal(t, "maggi", input)
	assert.Equal(t, 3, qty)
	assert.Empty(t, price)

	input, qty, _ = splitTrailing([]string{"8901058000290"})
	assert.Equal(t, "8901058000290", input)
	assert.Equal(t, 1, qty)
}

func TestParsePurchaseItem(t *testing.T) {
	item, err := parsePurchaseItem("KIT KAT:24:18:25")
	require.NoError(t, err)
	assert.Equal(t, "KIT KAT", item.ProductName)
	assert.Equal(t, 24, item.Quantity)
	assert.True(t, item.UnitCost.Equal(decimal.NewFromInt(18)))
	assert.True(t, item.MRP.Equal(decimal.NewFromInt(25)))

	item, err = parsePurchaseItem("MAGGI NOODLES:48:11.5")
	require.NoError(t, err)
	assert.Equal(t, "MAGGI NOODLES", item.ProductName)
	assert.True(t, item.MRP.IsZero())

	_, err = parsePurchaseItem("MAGGI:lots:11")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = parsePurchaseItem("MAGGI")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCheckDateRange(t *testing.T) {
	assert.NoError(t, checkDateRange("", ""))
	assert.NoError(t, checkDateRange("2026-03-01", "2026-03-31"))
	assert.Error(t, checkDateRange("2026-3-1", ""))
	assert.Error(t, checkDateRange("2026-03-31", "2026-03-01"))
}

func TestRegisterSession(t *testing.T) {
	s := openTestShop(t)
	var out bytes.Buffer
	r := newRegister(s, &out, false)

	script := strings.Join([]string{
		"add 8901058000290 3",
		"add parle-g 2 9",
		"add parle",
		"1",
		"qty monaco 0",
		"discount 10",
		"customer 9876543210 Asha",
		"pay upi",
		"checkout",
		"quit",
	}, "\n")
	require.NoError(t, r.run(strings.NewReader(script)))

	require.Len(t, r.committed, 1, out.String())
	assert.Equal(t, "TXN20260301104500", r.committed[0])
	assert.True(t, r.cart.IsEmpty())

	lines, err := s.Ledger.Transaction(r.committed[0])
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, domain.PaymentUPI, lines[0].PaymentMethod)

	c, err := s.Customers.Get("9876543210")
	require.NoError(t, err)
	assert.Equal(t, "Asha", c.Name)

	maggi, err := s.Catalog.FindByName("MAGGI NOODLES")
	require.NoError(t, err)
	assert.Equal(t, 7, maggi.Quantity)
	assert.Contains(t, out.String(), "Bill: TXN20260301104500")
}

func TestRegisterKeepsGoingAfterErrors(t *testing.T) {
	s := openTestShop(t)
	var out bytes.Buffer
	r := newRegister(s, &out, false)

	script := "add maggi 99\ncheckout\nfly away\nadd maggi 1\n"
	require.NoError(t, r.run(strings.NewReader(script)))

	text := out.String()
	assert.Contains(t, text, "insufficient stock")
	assert.Contains(t, text, "unknown command")
	assert.Empty(t, r.committed)
	assert.Contains(t, text, "Dropped unpaid cart with 1 line(s).")
}

func TestPrintScan(t *testing.T) {
	s := openTestShop(t)
	var out bytes.Buffer
	require.NoError(t, printScan(&out, s.Resolver, "8901058000290"))
	assert.Contains(t, out.String(), "MAGGI NOODLES")
	assert.Contains(t, out.String(), "Matched:   exact")

	out.Reset()
	require.NoError(t, printScan(&out, s.Resolver, "parle"))
	assert.Contains(t, out.String(), "ambiguous")
	assert.Contains(t, out.String(), "PARLE MONACO")
}
