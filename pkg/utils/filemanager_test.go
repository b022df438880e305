package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "inventory_master.csv")

	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first")
		return err
	}))
	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "second")
		return err
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriteFileAtomicKeepsOldContentOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	err := WriteFileAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return errors.New("encode failed")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be cleaned up")
}

func TestBackupSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales_transactions.csv")
	require.NoError(t, os.WriteFile(src, []byte("Transaction_ID\n"), 0644))

	fm := NewFileManager(filepath.Join(dir, "backups"), "", "")
	backupDir, copied, err := fm.Backup("backup_before_clear", src, filepath.Join(dir, "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{src}, copied)
	assert.True(t, strings.HasPrefix(filepath.Base(backupDir), "backup_before_clear_"))
	assert.FileExists(t, filepath.Join(backupDir, "sales_transactions.csv"))
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{report}_{date}_{uuid}", map[string]string{"report": "sales"}, ".xlsx")

	assert.True(t, strings.HasPrefix(name, "sales_"))
	assert.True(t, strings.HasSuffix(name, ".xlsx"))
	assert.NotContains(t, name, "{")

	assert.Equal(t, "a.pdf", GenerateOutputFileName("a.pdf", nil, ".pdf"))
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restoration_report.txt")
	require.NoError(t, WriteSummary(path, "Restoration Report", []SummarySection{
		{Title: "Restored", Lines: []string{"MAGGI NOODLES +3"}},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Restoration Report")
	assert.Contains(t, string(data), "MAGGI NOODLES +3")
}

func TestCleanOldBackups(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "backup_old")
	fresh := filepath.Join(dir, "backup_new")
	require.NoError(t, os.Mkdir(old, 0755))
	require.NoError(t, os.Mkdir(fresh, 0755))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	fm := NewFileManager(dir, "", "")
	removed, err := fm.CleanOldBackups(24 * time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
}
