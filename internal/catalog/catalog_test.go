package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, csv string) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.csv")
	if csv != "" {
		require.NoError(t, os.WriteFile(path, []byte(csv), 0644))
	}
	deleted, err := OpenDeleted(filepath.Join(dir, "deleted_products.json"), 3)
	require.NoError(t, err)

	s, err := Open(Options{
		Path:     path,
		Settings: config.CSVSettings{Delimiter: ","},
		Deleted:  deleted,
		Clock:    clock.NewFixed(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return s, path
}

const sampleCSV = `Sr_No,Product_Name,Category,Cost_Price,MRP,SP_5_Percent,SP_10_Percent,Quantity,Barcode,Supplier
1,Maggi Noodles,,12,14,13.3,12.6,10,8901058000290,Nestle
2,PARLE-G,Biscuits,8,10,9.5,9,5,nan,Parle
7,Surf Excel,,90,110,104.5,99,0,8.90103E+12,HUL
`

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOpenParsesRows(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)
	require.Equal(t, 3, s.Len())

	p, err := s.FindByName("maggi noodles")
	require.NoError(t, err)
	assert.Equal(t, "MAGGI NOODLES", p.Name)
	assert.Equal(t, "Instant Food", p.Category)
	assert.True(t, p.MRP.Equal(money("14")))
	assert.Equal(t, 10, p.Quantity)
	assert.Equal(t, "Nestle", p.Extra["Supplier"])

	p, err = s.FindByName("PARLE-G")
	require.NoError(t, err)
	assert.Empty(t, p.Barcode)
	assert.Equal(t, "Biscuits", p.Category)

	p, err = s.FindBySerial(7)
	require.NoError(t, err)
	assert.Equal(t, "SURF EXCEL", p.Name)
}

func TestUnreadableRowsSurviveSave(t *testing.T) {
	csv := "Sr_No,Product_Name,Category,Cost_Price,MRP,SP_5_Percent,SP_10_Percent,Quantity,Barcode\n" +
		"1,A,X,1,2,0,0,5,\n" +
		"2,B,X,1,Rs 2,0,0,7,\n" +
		"3,A,X,1,2,0,0,9,\n"
	s, path := openTestStore(t, csv)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, s.Unreadable())

	_, err := s.AdjustQuantity("A", -1)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "1,A,X,1.00,2.00,0.00,0.00,4,")
	assert.Contains(t, text, "2,B,X,1,Rs 2,0,0,7,")
	assert.Contains(t, text, "3,A,X,1,2,0,0,9,")

	require.NoError(t, s.Reload())
	assert.Equal(t, 2, s.Unreadable())
	p, err := s.FindByName("A")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Quantity)
}

func TestMissingFileIsEmptyCatalog(t *testing.T) {
	s, _ := openTestStore(t, "")
	assert.Equal(t, 0, s.Len())
	_, err := s.FindByName("anything")
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestBarcodeRoundTripsAsText(t *testing.T) {
	s, path := openTestStore(t, "")
	_, err := s.Add(domain.Product{Name: "Leading Zero", MRP: money("5"), Quantity: 1, Barcode: "0123456789012"})
	require.NoError(t, err)

	require.NoError(t, s.Reload())
	p, err := s.FindByName("LEADING ZERO")
	require.NoError(t, err)
	assert.Equal(t, "0123456789012", p.Barcode)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ",0123456789012")
	assert.NotContains(t, string(raw), "E+")
}

func TestSaveResequencesSerialsAndKeepsColumns(t *testing.T) {
	s, path := openTestStore(t, sampleCSV)
	require.NoError(t, s.Save())

	p, err := s.FindByName("SURF EXCEL")
	require.NoError(t, err)
	assert.Equal(t, 3, p.SerialID)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	header := strings.SplitN(string(raw), "\n", 2)[0]
	assert.Contains(t, header, "Supplier")
	assert.True(t, strings.HasPrefix(header, "Sr_No,Product_Name"))
	assert.Contains(t, string(raw), "8.90103E+12")
}

func TestFindByBarcodeAndSubstring(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)

	p, err := s.FindByBarcode(" 8901058000290 ")
	require.NoError(t, err)
	assert.Equal(t, "MAGGI NOODLES", p.Name)

	p, err = s.FindByBarcode("8901030000000")
	require.NoError(t, err)
	assert.Equal(t, "SURF EXCEL", p.Name)

	assert.Len(t, s.FindBySubstring("e"), 3)
	assert.Len(t, s.FindBySubstring("parle"), 1)
	assert.Empty(t, s.FindBySubstring("zzz"))
}

func TestAdjustQuantityNeverGoesNegative(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)

	change, err := s.AdjustQuantity("PARLE-G", -5)
	require.NoError(t, err)
	assert.Equal(t, 5, change.Before)
	assert.Equal(t, 0, change.After)

	_, err = s.AdjustQuantity("PARLE-G", -1)
	assert.ErrorIs(t, err, apperr.ErrNegativeStock)

	p, _ := s.FindByName("PARLE-G")
	assert.Equal(t, 0, p.Quantity)

	_, err = s.SetQuantity("PARLE-G", -3)
	assert.ErrorIs(t, err, apperr.ErrNegativeStock)

	change, err = s.SetQuantity("PARLE-G", 12)
	require.NoError(t, err)
	assert.Equal(t, 12, change.Delta())
}

func TestApplyDeltasIsAllOrNothing(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)

	_, err := s.ApplyDeltas(map[string]int{"MAGGI NOODLES": -3, "PARLE-G": -6})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	var se *apperr.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "PARLE-G", se.Product)
	assert.Equal(t, 6, se.Requested)
	assert.Equal(t, 5, se.Available)

	m, _ := s.FindByName("MAGGI NOODLES")
	assert.Equal(t, 10, m.Quantity)

	changes, err := s.ApplyDeltas(map[string]int{"MAGGI NOODLES": -3, "PARLE-G": -2})
	require.NoError(t, err)
	assert.Len(t, changes, 2)
	m, _ = s.FindByName("MAGGI NOODLES")
	assert.Equal(t, 7, m.Quantity)

	_, err = s.ApplyDeltas(map[string]int{"GHOST": -1})
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestSnapshotRestore(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)
	snap := s.Snapshot()
	_, err := s.ApplyDeltas(map[string]int{"MAGGI NOODLES": -10})
	require.NoError(t, err)

	s.RestoreSnapshot(snap)
	m, _ := s.FindByName("MAGGI NOODLES")
	assert.Equal(t, 10, m.Quantity)
}

func TestAddValidates(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)

	_, err := s.Add(domain.Product{Name: "maggi noodles", MRP: money("14")})
	assert.ErrorIs(t, err, apperr.ErrDuplicateProduct)

	_, err = s.Add(domain.Product{Name: "New Item", MRP: money("14"), Barcode: "8901058000290"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateBarcode)

	_, err = s.Add(domain.Product{Name: "New Item", MRP: money("14"), Barcode: "x y"})
	assert.ErrorIs(t, err, apperr.ErrInvalidBarcodeFormat)

	_, err = s.Add(domain.Product{Name: "New Item", MRP: money("14"), Quantity: -1})
	assert.ErrorIs(t, err, apperr.ErrNegativeStock)

	p, err := s.Add(domain.Product{Name: " colgate paste ", CostPrice: money("40"), MRP: money("50"), Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, "COLGATE PASTE", p.Name)
	assert.Equal(t, "Personal Care", p.Category)
	assert.Equal(t, 4, p.SerialID)
	assert.True(t, p.SP5.Equal(money("47.5")))
	assert.True(t, p.SP10.Equal(money("45")))
}

func TestUpdateRenameAndUpsert(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)

	p, err := s.Update("parle-g", func(p *domain.Product) error {
		p.Name = "Parle-G 100g"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "PARLE-G 100G", p.Name)

	_, err = s.Update("PARLE-G 100G", func(p *domain.Product) error {
		p.Name = "maggi noodles"
		return nil
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicateProduct)

	p, err = s.Upsert(domain.Product{Name: "MAGGI NOODLES", MRP: money("15"), Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, p.SerialID)
	assert.Equal(t, 20, p.Quantity)
	assert.Equal(t, 3, s.Len())

	_, err = s.Upsert(domain.Product{Name: "Vicks", MRP: money("35"), Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
}

func TestSoftDeleteAndRestore(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)

	_, err := s.SoftDelete("MAGGI NOODLES")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	p, err := s.FindByName("PARLE-G")
	require.NoError(t, err)
	assert.Equal(t, 1, p.SerialID)

	deleted := s.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, "MAGGI NOODLES", deleted[0].Product.Name)
	assert.Equal(t, "Admin", deleted[0].DeletedBy)
	assert.Equal(t, "2026-03-01 10:00:00", deleted[0].DeletedAt)

	restored, err := s.Restore("maggi noodles")
	require.NoError(t, err)
	assert.Equal(t, 3, restored.SerialID)
	assert.Equal(t, "8901058000290", restored.Barcode)
	assert.Empty(t, s.Deleted())

	_, err = s.Restore("MAGGI NOODLES")
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestRestoreRefusesExistingName(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)
	_, err := s.SoftDelete("PARLE-G")
	require.NoError(t, err)
	_, err = s.Add(domain.Product{Name: "PARLE-G", MRP: money("10")})
	require.NoError(t, err)

	_, err = s.Restore("PARLE-G")
	assert.ErrorIs(t, err, apperr.ErrDuplicateProduct)
}

func TestDeletedStoreRetention(t *testing.T) {
	s, _ := openTestStore(t, "")
	fixed := s.opts.Clock.(*clock.Fixed)
	for i := 0; i < 5; i++ {
		_, err := s.Add(domain.Product{Name: fmt.Sprintf("ITEM %d", i), MRP: money("1")})
		require.NoError(t, err)
		_, err = s.SoftDelete(fmt.Sprintf("ITEM %d", i))
		require.NoError(t, err)
		fixed.Advance(time.Minute)
	}

	deleted := s.Deleted()
	require.Len(t, deleted, 3)
	assert.Equal(t, "ITEM 4", deleted[0].Product.Name)
	assert.Equal(t, "ITEM 2", deleted[2].Product.Name)
}

func TestPurgeDeletedProduct(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)
	_, err := s.SoftDelete("PARLE-G")
	require.NoError(t, err)

	require.NoError(t, s.opts.Deleted.Purge("parle-g"))
	assert.Empty(t, s.Deleted())
	assert.ErrorIs(t, s.opts.Deleted.Purge("PARLE-G"), apperr.ErrProductNotFound)

	_, err = s.Restore("PARLE-G")
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestAssignAndRemoveBarcode(t *testing.T) {
	s, _ := openTestStore(t, sampleCSV)

	_, err := s.AssignBarcode("PARLE-G", "8901058000290", false)
	assert.ErrorIs(t, err, apperr.ErrDuplicateBarcode)

	_, err = s.AssignBarcode("PARLE-G", "12", false)
	assert.ErrorIs(t, err, apperr.ErrInvalidBarcodeFormat)

	p, err := s.AssignBarcode("PARLE-G", "8901058000290", true)
	require.NoError(t, err)
	assert.Equal(t, "8901058000290", p.Barcode)

	m, _ := s.FindByName("MAGGI NOODLES")
	assert.Empty(t, m.Barcode)

	p, err = s.RemoveBarcode("PARLE-G")
	require.NoError(t, err)
	assert.Empty(t, p.Barcode)
}

func TestGuessCategory(t *testing.T) {
	assert.Equal(t, "Beverages", GuessCategory("Taj Mahal Tea 250g"))
	assert.Equal(t, "Detergents", GuessCategory("ariel matic"))
	assert.Equal(t, "Ayurvedic Products", GuessCategory("Patanjali Honey"))
	assert.Equal(t, DefaultCategory, GuessCategory("XYZ"))
}
