package csvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var comma = config.CSVSettings{Delimiter: ","}

func TestWriteThenReadKeepsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory_master.csv")
	headers := []string{"Sr_No", "Product_Name", "Barcode"}
	rows := []map[string]string{
		{"Sr_No": "1", "Product_Name": "MAGGI NOODLES", "Barcode": "0123456789012"},
		{"Sr_No": "2", "Product_Name": "PARLE-G, 100G", "Barcode": ""},
	}

	require.NoError(t, Write(path, comma, headers, rows))

	table, err := Read(path, comma)
	require.NoError(t, err)
	assert.Equal(t, headers, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "0123456789012", table.Rows[0]["Barcode"])
	assert.Equal(t, "PARLE-G, 100G", table.Rows[1]["Product_Name"])
}

func TestReadToleratesBOMRaggedAndEmptyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	body := "\ufeffTransaction_ID,Product_Name,,Quantity_Sold\nTXN1,MAGGI\n,,,\nTXN2,PARLE-G,x,2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	table, err := Read(path, comma)
	require.NoError(t, err)

	assert.Equal(t, []string{"Transaction_ID", "Product_Name", "Column_3", "Quantity_Sold"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "", table.Rows[0]["Quantity_Sold"])
	assert.Equal(t, "2", table.Rows[1]["Quantity_Sold"])
	assert.True(t, table.HasColumn("Transaction_ID"))
}

func TestReadOrEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	table, err := ReadOrEmpty(path, comma, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, table.Headers)
	assert.Empty(t, table.Rows)

	_, err = Read(path, comma)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMergeHeaders(t *testing.T) {
	got := MergeHeaders([]string{"Sr_No", "Brand"}, []string{"Sr_No", "Product_Name"})
	assert.Equal(t, []string{"Sr_No", "Brand", "Product_Name"}, got)
}

func TestStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte("A;B\n1;2\n\n3;4\n"), 0644))

	s, err := NewStream(path, config.CSVSettings{Delimiter: ";"})
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for s.Next() {
		got = append(got, s.Row()["A"]+s.Row()["B"])
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"12", "34"}, got)
	assert.Equal(t, []string{"A", "B"}, s.Headers())
}
