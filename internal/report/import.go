package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/catalog"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// CatalogWriter is the part of the catalog store an import uses.
type CatalogWriter interface {
	FindByName(name string) (domain.Product, error)
	Add(p domain.Product) (domain.Product, error)
	Update(name string, edit func(p *domain.Product) error) (domain.Product, error)
}

// headerAliases maps a normalized spreadsheet header to a catalog column.
// Normalization lowercases and drops spaces and the characters _ . % -
var headerAliases = map[string]string{
	"srno":                catalog.ColSerial,
	"serial":              catalog.ColSerial,
	"productname":         catalog.ColName,
	"product":             catalog.ColName,
	"name":                catalog.ColName,
	"item":                catalog.ColName,
	"category":            catalog.ColCategory,
	"costprice":           catalog.ColCost,
	"cost":                catalog.ColCost,
	"mrp":                 catalog.ColMRP,
	"sp5percent":          catalog.ColSP5,
	"sp5":                 catalog.ColSP5,
	"sp10percent":         catalog.ColSP10,
	"sp10":                catalog.ColSP10,
	"quantity":            catalog.ColQuantity,
	"qty":                 catalog.ColQuantity,
	"stock":               catalog.ColQuantity,
	"barcode":             catalog.ColBarcode,
	"ean":                 catalog.ColBarcode,
	"actualmargin":        catalog.ColMargin,
	"actualmarginpercent": catalog.ColMargin,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", ".", "", "%", "", "-", "").Replace(h)
}

// RowIssue is a skipped import row.
type RowIssue struct {
	Row    int
	Reason string
}

// ImportResult describes a catalog import.
type ImportResult struct {
	SourceFile string
	Sheet      string
	Added      []string
	Updated    []string
	Skipped    []RowIssue
}

// ImportCatalog reads the first sheet of an XLSX workbook and upserts every
// row into the catalog. The header row is matched to catalog columns by
// name; other columns are kept as extra product fields. For an existing
// product only the columns present in the sheet are changed.
//
// PARAMETERS:
//   - path: The XLSX file.
//   - store: The catalog to write to.
//   - log: Receives one warning per skipped row.
//
// RETURNS:
//   - Which products were added, updated or skipped.
//   - An error if the workbook cannot be read or has no Product_Name column.
func ImportCatalog(path string, store CatalogWriter, log zerolog.Logger) (*ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	// Raw values keep long numeric barcodes out of scientific notation.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	headers := make([]string, len(rows[0]))
	hasName := false
	for i, h := range rows[0] {
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			headers[i] = col
			hasName = hasName || col == catalog.ColName
		} else {
			headers[i] = strings.TrimSpace(h)
		}
	}
	if !hasName {
		return nil, fmt.Errorf("sheet %s has no product name column", sheet)
	}

	result := &ImportResult{SourceFile: path, Sheet: sheet}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isRowEmpty(row) {
			continue
		}
		cells := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			if j < len(row) {
				cells[h] = strings.TrimSpace(row[j])
			} else {
				cells[h] = ""
			}
		}
		if code, ok := cells[catalog.ColBarcode]; ok {
			cells[catalog.ColBarcode] = strings.TrimSuffix(code, ".0")
		}

		p, err := catalog.DecodeRow(cells, i)
		if err != nil {
			result.skip(log, rowNum, err.Error())
			continue
		}
		added, err := upsert(store, p, cells)
		if err != nil {
			result.skip(log, rowNum, fmt.Sprintf("%s: %v", p.Name, err))
			continue
		}
		if added {
			result.Added = append(result.Added, p.Name)
		} else {
			result.Updated = append(result.Updated, p.Name)
		}
	}

	log.Info().
		Str("file", path).
		Int("added", len(result.Added)).
		Int("updated", len(result.Updated)).
		Int("skipped", len(result.Skipped)).
		Msg("catalog imported")
	return result, nil
}

func (r *ImportResult) skip(log zerolog.Logger, row int, reason string) {
	r.Skipped = append(r.Skipped, RowIssue{Row: row, Reason: reason})
	log.Warn().Int("row", row).Str("reason", reason).Msg("import row skipped")
}

// upsert adds p, or edits the existing product using only the columns
// present in cells.
func upsert(store CatalogWriter, p domain.Product, cells map[string]string) (bool, error) {
	_, err := store.FindByName(p.Name)
	if errors.Is(err, apperr.ErrProductNotFound) {
		_, err = store.Add(p)
		return true, err
	}
	if err != nil {
		return false, err
	}

	_, err = store.Update(p.Name, func(existing *domain.Product) error {
		has := func(col string) bool {
			_, ok := cells[col]
			return ok
		}
		if has(catalog.ColCategory) && p.Category != "" {
			existing.Category = p.Category
		}
		if has(catalog.ColCost) {
			existing.CostPrice = p.CostPrice
		}
		if has(catalog.ColMRP) {
			existing.MRP = p.MRP
			if !has(catalog.ColSP5) && !has(catalog.ColSP10) {
				existing.RecomputeSellingPrices()
			}
		}
		if has(catalog.ColSP5) {
			existing.SP5 = p.SP5
		}
		if has(catalog.ColSP10) {
			existing.SP10 = p.SP10
		}
		if has(catalog.ColQuantity) {
			existing.Quantity = p.Quantity
		}
		if has(catalog.ColBarcode) {
			existing.Barcode = p.Barcode
		}
		if has(catalog.ColMargin) {
			existing.MarginPercent = p.MarginPercent
		}
		for k, v := range p.Extra {
			if existing.Extra == nil {
				existing.Extra = make(map[string]string)
			}
			existing.Extra[k] = v
		}
		return nil
	})
	return false, err
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
