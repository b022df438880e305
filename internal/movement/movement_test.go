package movement

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
	return Open(filepath.Join(t.TempDir(), "stock_movements.csv"), config.CSVSettings{}, clk, "", zerolog.Nop())
}

func TestRecordFillsDefaults(t *testing.T) {
	l := openTestLog(t)
	require.NoError(t, l.Record(domain.Movement{
		ProductName: "MAGGI NOODLES",
		Type:        domain.MovementSale,
		Quantity:    3,
		StockBefore: 10,
		StockAfter:  7,
		Reference:   "TXN1",
	}))

	moves, err := l.List(Filter{})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	m := moves[0]
	assert.True(t, strings.HasPrefix(m.ID, "MOV-"))
	assert.Equal(t, "2026-03-01", m.Date)
	assert.Equal(t, "09:30:00", m.Time)
	assert.Equal(t, "Admin", m.User)
	assert.Equal(t, 7, m.StockAfter)
}

func TestFilterReturnedAndRemoveSales(t *testing.T) {
	l := openTestLog(t)
	require.NoError(t, l.Record(
		domain.Movement{ProductName: "LUX SOAP", Type: domain.MovementSale, Quantity: 4, Reference: "TXN1"},
		domain.Movement{ProductName: "LUX SOAP", Type: domain.MovementReturn, Quantity: 1, Reference: "TXN1"},
		domain.Movement{ProductName: "lux soap", Type: domain.MovementReturn, Quantity: 2, Reference: "TXN1"},
		domain.Movement{ProductName: "LUX SOAP", Type: domain.MovementReturn, Quantity: 5, Reference: "TXN2"},
		domain.Movement{ProductName: "VIM BAR", Type: domain.MovementQuickSale, Quantity: 1, Reference: "QS1"},
		domain.Movement{ProductName: "VIM BAR", Type: domain.MovementPurchase, Quantity: 10, Reference: "PUR1"},
	))

	returned, err := l.Returned("TXN1", "Lux Soap")
	require.NoError(t, err)
	assert.Equal(t, 3, returned)

	last, err := l.List(Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, domain.MovementPurchase, last[1].Type)

	removed, err := l.RemoveSales()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	all, err := l.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for _, m := range all {
		assert.False(t, m.Type.IsSale())
	}
}

func TestReadsLegacyLogWithoutStockColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock_movements.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Date,Time,Product_Name,Movement_Type,Quantity,Reference,Notes,User\n"+
			"2025-12-01,10:00:00,VIM BAR,SALE,2.0,TXN9,Sale,Admin\n"), 0644))

	l := Open(path, config.CSVSettings{}, nil, "", zerolog.Nop())
	moves, err := l.List(Filter{Product: "vim bar"})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, 2, moves[0].Quantity)
	assert.Empty(t, moves[0].ID)

	require.NoError(t, l.Record(domain.Movement{ProductName: "VIM BAR", Type: domain.MovementPurchase, Quantity: 5}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	header := strings.SplitN(string(raw), "\n", 2)[0]
	assert.Contains(t, header, "Movement_ID")
	assert.Contains(t, header, "Stock_After")
}
