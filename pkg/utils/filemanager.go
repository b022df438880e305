// =============================================================================
// Shop POS - File Manager Utility
// =============================================================================
//
// This module provides the file utilities shared by the stores:
//   - Atomic whole-file rewrites (temp file + rename)
//   - Backups of the data files before maintenance runs
//   - Export and receipt file naming
//   - Plain-text summary reports
//   - Retention cleanup for old backups
//
// BACKUP STRATEGY:
//   - Each backup is a directory <label>_<timestamp> under BackupDir
//   - Files that do not exist yet are skipped, not reported as errors
//   - Backups are copies; the originals stay in place
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager owns the output directories that are not data stores.
type FileManager struct {
	// BackupDir receives backup directories.
	BackupDir string

	// ReportsDir receives XLSX exports.
	ReportsDir string

	// ReceiptsDir receives PDF receipts.
	ReceiptsDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(backupDir, reportsDir, receiptsDir string) *FileManager {
	return &FileManager{
		BackupDir:   backupDir,
		ReportsDir:  reportsDir,
		ReceiptsDir: receiptsDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.BackupDir, fm.ReportsDir, fm.ReceiptsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// ATOMIC WRITES
// =============================================================================

// WriteFileAtomic writes a whole file through a temporary sibling and
// renames it into place, so a crash never leaves a half-written store.
//
// PARAMETERS:
//   - path: The destination file.
//   - write: Called with the temporary file; its error aborts the write.
//
// RETURNS:
//   - An error if the temporary file cannot be written or renamed.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// BACKUPS
// =============================================================================

// Backup copies the given files into a new directory under BackupDir.
//
// PARAMETERS:
//   - label: Prefix for the backup directory name (e.g. "backup_before_clear").
//   - files: The files to copy. Missing files are skipped.
//
// RETURNS:
//   - The backup directory path.
//   - The files that were copied.
//   - An error if a copy fails.
func (fm *FileManager) Backup(label string, files ...string) (string, []string, error) {
	dir := filepath.Join(fm.BackupDir, fmt.Sprintf("%s_%s", label, time.Now().Format("20060102_150405")))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	var copied []string
	for _, file := range files {
		if !FileExists(file) {
			continue
		}
		if err := copyFile(file, filepath.Join(dir, filepath.Base(file))); err != nil {
			return dir, copied, fmt.Errorf("failed to back up %s: %w", file, err)
		}
		copied = append(copied, file)
	}

	return dir, copied, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//             plus any key of params, e.g. {report}.
//   - params: A map of placeholder values.
//   - ext: The extension to enforce, e.g. ".xlsx".
//
// EXAMPLE:
//   format: "{report}_{timestamp}_{uuid}"
//   params: {"report": "sales"}
//   output: "sales_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// SUMMARY REPORTS
// =============================================================================

// SummarySection is one titled block of a summary report.
type SummarySection struct {
	Title string
	Lines []string
}

// WriteSummary writes a plain-text summary report.
//
// PARAMETERS:
//   - path: The file to create.
//   - title: The report title.
//   - sections: The report body.
func WriteSummary(path, title string, sections []SummarySection) error {
	rule := strings.Repeat("=", 80)
	return WriteFileAtomic(path, func(w io.Writer) error {
		fmt.Fprintf(w, "%s\n%s\n\n", title, rule)
		fmt.Fprintf(w, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
		for _, s := range sections {
			fmt.Fprintf(w, "%s:\n%s\n", s.Title, strings.Repeat("-", 80))
			for _, line := range s.Lines {
				fmt.Fprintf(w, "  %s\n", line)
			}
			fmt.Fprintln(w)
		}
		_, err := fmt.Fprintf(w, "%s\nEnd of Summary\n", rule)
		return err
	})
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldBackups removes backup directories older than maxAge.
//
// RETURNS:
//   - The number of backup directories removed.
//   - An error if cleaning fails.
func (fm *FileManager) CleanOldBackups(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(fm.BackupDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list backups: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, fmt.Errorf("failed to stat backup: %w", err)
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(fm.BackupDir, entry.Name())); err != nil {
				return removed, fmt.Errorf("failed to clean backups: %w", err)
			}
			removed++
		}
	}

	return removed, nil
}
