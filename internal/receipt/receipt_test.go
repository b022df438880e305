package receipt

import (
	"bytes"
	"os"
	"testing"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func row(txn, name string, qty int, unit, total, disc, final string) domain.SaleLine {
	return domain.SaleLine{
		TransactionID: txn,
		Date:          "2026-03-01",
		Time:          "10:45:00",
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
		ProductName:   name,
		QuantitySold:  qty,
		UnitPrice:     d(unit),
		TotalAmount:   d(total),
		PaymentMethod: domain.PaymentUPI,
		Discount:      d(disc),
		FinalAmount:   d(final),
	}
}

func fixture() ([]domain.SaleLine, []domain.Product) {
	sales := []domain.SaleLine{
		row("TXN1", "MAGGI NOODLES", 3, "14", "42", "3.1", "38.9"),
		row("TXN1", "PARLE-G", 2, "9", "18", "3.1", "14.9"),
		row("TXN0", "PARLE-G", 9, "9", "81", "0", "81"),
		row("TXN1", "OLD ITEM 200ML", 1, "5", "5", "0", "5"),
		row("TXN1", "SURF EXCEL", 1, "120", "120", "0", "120"),
	}
	products := []domain.Product{
		{Name: "MAGGI NOODLES", MRP: d("14")},
		{Name: "PARLE-G", MRP: d("10")},
		{Name: "SURF EXCEL", MRP: d("110")},
	}
	return sales, products
}

func TestProject(t *testing.T) {
	sales, products := fixture()

	r, err := Project("TXN1", sales, products)
	require.NoError(t, err)
	require.Len(t, r.Lines, 4)
	assert.Equal(t, "Asha", r.CustomerName)
	assert.Equal(t, domain.PaymentUPI, r.PaymentMethod)

	maggi := r.Lines[0]
	assert.True(t, maggi.DiscountPercent.IsZero())

	parle := r.Lines[1]
	assert.True(t, parle.MRP.Equal(d("10")))
	assert.True(t, parle.DiscountPercent.Equal(d("10")))
	assert.True(t, parle.Savings.Equal(d("2")))

	deleted := r.Lines[2]
	assert.True(t, deleted.Deleted)
	assert.Equal(t, "OLD ITEM", deleted.Name)
	assert.Equal(t, "200ML", deleted.Size)
	assert.True(t, deleted.MRP.Equal(d("5")))
	assert.True(t, deleted.DiscountPercent.IsZero())

	// Sold above MRP clamps to zero.
	surf := r.Lines[3]
	assert.True(t, surf.DiscountPercent.IsZero())
	assert.True(t, surf.Savings.IsZero())

	assert.True(t, r.Subtotal.Equal(d("185")))
	assert.True(t, r.TotalMRP.Equal(d("177")))
	assert.True(t, r.Discount.Equal(d("6.2")))
	assert.True(t, r.TotalSavings.Equal(d("8.2")))
	assert.True(t, r.SavingsPercent.Equal(d("4.6")), r.SavingsPercent.String())
	assert.True(t, r.FinalTotal.Equal(d("178.8")))
}

func TestProjectUnknownTransaction(t *testing.T) {
	sales, products := fixture()
	_, err := Project("TXN9", sales, products)
	assert.ErrorIs(t, err, apperr.ErrTransactionNotFound)
}

func TestProjectZeroMRP(t *testing.T) {
	sales := []domain.SaleLine{row("TXN2", "FREEBIE", 1, "0", "0", "0", "0")}
	r, err := Project("TXN2", sales, []domain.Product{{Name: "FREEBIE"}})
	require.NoError(t, err)
	assert.True(t, r.Lines[0].DiscountPercent.IsZero())
	assert.True(t, r.SavingsPercent.IsZero())
}

func TestSplitSize(t *testing.T) {
	tests := []struct{ in, name, size string }{
		{"DETTOL LIQUID 200ML", "DETTOL LIQUID", "200ML"},
		{"AMUL 1 KG BUTTER", "AMUL BUTTER", "1 KG"},
		{"PARLE-G", "PARLE-G", ""},
		{"5 STAR", "5 STAR", ""},
		{"500ML", "500ML", ""},
	}
	for _, tt := range tests {
		name, size := SplitSize(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.size, size, tt.in)
	}
}

func TestRenderers(t *testing.T) {
	sales, products := fixture()
	r, err := Project("TXN1", sales, products)
	require.NoError(t, err)
	shop := config.Default().Shop

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r, shop))
	out := buf.String()
	assert.Contains(t, out, shop.Name)
	assert.Contains(t, out, "Bill: TXN1")
	assert.Contains(t, out, "178.80")
	assert.Contains(t, out, "You saved 8.20 (4.6%)")

	dir := t.TempDir()
	path, err := WritePDF(dir, r, shop)
	require.NoError(t, err)
	assert.Equal(t, PDFPath(dir, "TXN1"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
