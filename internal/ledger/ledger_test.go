package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(txn, date, product string, qty int, price, discount string) domain.SaleLine {
	total := d(price).Mul(decimal.NewFromInt(int64(qty)))
	return domain.SaleLine{
		TransactionID: txn,
		Date:          date,
		Time:          "10:00:00",
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
		ProductName:   product,
		QuantitySold:  qty,
		UnitPrice:     d(price),
		TotalAmount:   total,
		PaymentMethod: domain.PaymentCash,
		Discount:      d(discount),
		FinalAmount:   total.Sub(d(discount)),
	}
}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "sales.csv"), config.CSVSettings{Delimiter: ","}, zerolog.Nop())
	require.NoError(t, err)
	return l
}

func TestAppendAndReload(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.Append([]domain.SaleLine{
		line("TXN20260301100000", "2026-03-01", "MAGGI NOODLES", 3, "14", "3.10"),
		line("TXN20260301100000", "2026-03-01", "PARLE-G", 2, "10", "3.10"),
	}))

	require.NoError(t, l.Reload())
	rows, err := l.Transaction("TXN20260301100000")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "9876543210", rows[0].CustomerPhone)
	assert.True(t, rows[0].FinalAmount.Equal(d("38.9")))
	assert.True(t, rows[1].FinalAmount.Equal(d("16.9")))

	_, err = l.Transaction("TXN-NOPE")
	assert.ErrorIs(t, err, apperr.ErrTransactionNotFound)
	assert.True(t, l.HasTransaction("TXN20260301100000"))
}

func TestReadsSpreadsheetArtifacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	content := "Transaction_ID,Date,Time,Customer_Name,Customer_Phone,Product_Name,Quantity_Sold,Unit_Price,Total_Amount,Payment_Method,Discount,Final_Amount\n" +
		"TXN1,2026-01-02,09:00:00,Walk-in Customer,nan,LUX SOAP,2.0,30,60,Cash,0,60\n" +
		",2026-01-02,09:00:00,bad,,X,1,1,1,Cash,0,1\n" +
		"TXN2,2026-01-03,09:00:00,Ravi,9812345678.0,LUX SOAP,1,30,30,UPI,3,27\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	l, err := Open(path, config.CSVSettings{Delimiter: ","}, zerolog.Nop())
	require.NoError(t, err)

	lines := l.Lines()
	require.Len(t, lines, 2)
	assert.Empty(t, lines[0].CustomerPhone)
	assert.Equal(t, 2, lines[0].QuantitySold)
	assert.Equal(t, "9812345678", lines[1].CustomerPhone)
	assert.Equal(t, []string{"TXN1", "TXN2"}, l.TransactionIDs())
	assert.Len(t, l.Between("2026-01-03", ""), 1)
	assert.Len(t, l.Between("", "2026-01-02"), 1)
}

func TestTruncateAndRemoveTransaction(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.Append([]domain.SaleLine{
		line("A", "2026-03-01", "X", 1, "5", "0"),
		line("B", "2026-03-01", "Y", 1, "5", "0"),
	}))

	require.NoError(t, l.RemoveTransaction("A"))
	assert.Equal(t, []string{"B"}, l.TransactionIDs())

	require.NoError(t, l.Truncate())
	require.NoError(t, l.Reload())
	assert.Empty(t, l.Lines())

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Transaction_ID,Date,Time")
}

func TestAggregates(t *testing.T) {
	lines := []domain.SaleLine{
		line("A", "2026-03-02", "MAGGI NOODLES", 3, "14", "3.10"),
		line("A", "2026-03-02", "PARLE-G", 2, "10", "3.10"),
		line("B", "2026-03-01", "maggi noodles", 1, "14", "0"),
	}

	total := Sum(lines)
	assert.Equal(t, 2, total.Transactions)
	assert.Equal(t, 6, total.Items)
	assert.True(t, total.Gross.Equal(d("76")))
	assert.True(t, total.Discount.Equal(d("6.2")))
	assert.True(t, total.Net.Equal(d("69.8")))

	days := ByDate(lines)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-01", days[0].Date)
	assert.Equal(t, 1, days[0].Transactions)

	sold := SoldQuantities(lines)
	assert.Equal(t, 4, sold["MAGGI NOODLES"])
	assert.Equal(t, 2, sold["PARLE-G"])
}
