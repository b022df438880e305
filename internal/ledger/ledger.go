// =============================================================================
// Shop POS - Sales Ledger
// =============================================================================
//
// The sales ledger holds one row per product line per transaction. Rows are
// only ever appended; the clear-all maintenance operation is the single way
// to remove them. The whole file is rewritten on each append.
//
// =============================================================================

package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/csvstore"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger file columns.
const (
	ColTransactionID = "Transaction_ID"
	ColDate          = "Date"
	ColTime          = "Time"
	ColCustomerName  = "Customer_Name"
	ColCustomerPhone = "Customer_Phone"
	ColProductName   = "Product_Name"
	ColQuantitySold  = "Quantity_Sold"
	ColUnitPrice     = "Unit_Price"
	ColTotalAmount   = "Total_Amount"
	ColPaymentMethod = "Payment_Method"
	ColDiscount      = "Discount"
	ColFinalAmount   = "Final_Amount"
)

// Columns is the ledger header in file order.
var Columns = []string{
	ColTransactionID, ColDate, ColTime, ColCustomerName, ColCustomerPhone, ColProductName,
	ColQuantitySold, ColUnitPrice, ColTotalAmount, ColPaymentMethod, ColDiscount, ColFinalAmount,
}

// Ledger is the sales ledger file.
type Ledger struct {
	mu       sync.RWMutex
	path     string
	settings config.CSVSettings
	lines    []domain.SaleLine
	log      zerolog.Logger
}

// Open loads the ledger. A missing file is an empty ledger.
func Open(path string, settings config.CSVSettings, log zerolog.Logger) (*Ledger, error) {
	l := &Ledger{path: path, settings: settings, log: log}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the file.
func (l *Ledger) Reload() error {
	table, err := csvstore.ReadOrEmpty(l.path, l.settings, Columns)
	if err != nil {
		return apperr.Persistence("read ledger", l.path, err)
	}
	lines := make([]domain.SaleLine, 0, len(table.Rows))
	for i, row := range table.Rows {
		line, err := decodeLine(row)
		if err != nil {
			l.log.Warn().Err(err).Int("row", i+2).Str("file", l.path).Msg("skipping ledger row")
			continue
		}
		lines = append(lines, line)
	}

	l.mu.Lock()
	l.lines = lines
	l.mu.Unlock()
	return nil
}

// Path returns the ledger file.
func (l *Ledger) Path() string { return l.path }

// Lines returns every row in file order.
func (l *Ledger) Lines() []domain.SaleLine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.SaleLine(nil), l.lines...)
}

// Transaction returns the rows of one transaction.
func (l *Ledger) Transaction(id string) ([]domain.SaleLine, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.SaleLine
	for _, line := range l.lines {
		if line.TransactionID == id {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", apperr.ErrTransactionNotFound, id)
	}
	return out, nil
}

// HasTransaction reports whether any row carries id.
func (l *Ledger) HasTransaction(id string) bool {
	_, err := l.Transaction(id)
	return err == nil
}

// TransactionIDs returns distinct ids in first-seen order.
func (l *Ledger) TransactionIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, line := range l.lines {
		if !seen[line.TransactionID] {
			seen[line.TransactionID] = true
			ids = append(ids, line.TransactionID)
		}
	}
	return ids
}

// Between returns rows dated from..to inclusive (YYYY-MM-DD). An empty
// bound is open.
func (l *Ledger) Between(from, to string) []domain.SaleLine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.SaleLine
	for _, line := range l.lines {
		if from != "" && line.Date < from {
			continue
		}
		if to != "" && line.Date > to {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Append adds rows and rewrites the file. On a write failure the in-memory
// ledger is left as it was.
func (l *Ledger) Append(lines []domain.SaleLine) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.lines)
	l.lines = append(l.lines, lines...)
	if err := l.saveLocked(); err != nil {
		l.lines = l.lines[:n:n]
		return err
	}
	return nil
}

// Truncate removes every row, leaving the header.
func (l *Ledger) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.lines
	l.lines = nil
	if err := l.saveLocked(); err != nil {
		l.lines = old
		return err
	}
	return nil
}

// RemoveTransaction drops every row of id. Used only to undo an append
// that was part of a failed commit.
func (l *Ledger) RemoveTransaction(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.lines
	kept := make([]domain.SaleLine, 0, len(l.lines))
	for _, line := range l.lines {
		if line.TransactionID != id {
			kept = append(kept, line)
		}
	}
	l.lines = kept
	if err := l.saveLocked(); err != nil {
		l.lines = old
		return err
	}
	return nil
}

func (l *Ledger) saveLocked() error {
	rows := make([]map[string]string, len(l.lines))
	for i, line := range l.lines {
		rows[i] = encodeLine(line)
	}
	if err := csvstore.Write(l.path, l.settings, Columns, rows); err != nil {
		return apperr.Persistence("write ledger", l.path, err)
	}
	return nil
}

// =============================================================================
// AGGREGATES
// =============================================================================

// Totals sums a set of rows.
type Totals struct {
	Transactions int
	Items        int
	Gross        decimal.Decimal
	Discount     decimal.Decimal
	Net          decimal.Decimal
}

// Sum aggregates rows.
func Sum(lines []domain.SaleLine) Totals {
	var t Totals
	ids := make(map[string]bool)
	for _, line := range lines {
		ids[line.TransactionID] = true
		t.Items += line.QuantitySold
		t.Gross = t.Gross.Add(line.TotalAmount)
		t.Discount = t.Discount.Add(line.Discount)
		t.Net = t.Net.Add(line.FinalAmount)
	}
	t.Transactions = len(ids)
	return t
}

// DailyTotals groups rows by date, oldest first.
type DailyTotals struct {
	Date string
	Totals
}

// ByDate aggregates rows per date.
func ByDate(lines []domain.SaleLine) []DailyTotals {
	groups := make(map[string][]domain.SaleLine)
	for _, line := range lines {
		groups[line.Date] = append(groups[line.Date], line)
	}
	out := make([]DailyTotals, 0, len(groups))
	for date, group := range groups {
		out = append(out, DailyTotals{Date: date, Totals: Sum(group)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// SoldQuantities returns quantity sold per product.
func SoldQuantities(lines []domain.SaleLine) map[string]int {
	out := make(map[string]int)
	for _, line := range lines {
		out[domain.CanonicalName(line.ProductName)] += line.QuantitySold
	}
	return out
}

// =============================================================================
// CODEC
// =============================================================================

func decodeLine(row map[string]string) (domain.SaleLine, error) {
	line := domain.SaleLine{
		TransactionID: strings.TrimSpace(row[ColTransactionID]),
		Date:          strings.TrimSpace(row[ColDate]),
		Time:          strings.TrimSpace(row[ColTime]),
		CustomerName:  strings.TrimSpace(row[ColCustomerName]),
		CustomerPhone: cleanPhone(row[ColCustomerPhone]),
		ProductName:   strings.TrimSpace(row[ColProductName]),
		PaymentMethod: strings.TrimSpace(row[ColPaymentMethod]),
	}
	if line.TransactionID == "" {
		return line, fmt.Errorf("missing %s", ColTransactionID)
	}

	qty := strings.TrimSpace(row[ColQuantitySold])
	if n, err := strconv.Atoi(qty); err == nil {
		line.QuantitySold = n
	} else if d, derr := decimal.NewFromString(qty); derr == nil {
		line.QuantitySold = int(d.IntPart())
	} else {
		return line, fmt.Errorf("invalid %s %q", ColQuantitySold, qty)
	}

	for col, dst := range map[string]*decimal.Decimal{
		ColUnitPrice:   &line.UnitPrice,
		ColTotalAmount: &line.TotalAmount,
		ColDiscount:    &line.Discount,
		ColFinalAmount: &line.FinalAmount,
	} {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return line, fmt.Errorf("invalid %s %q", col, v)
		}
		*dst = d
	}
	return line, nil
}

func encodeLine(line domain.SaleLine) map[string]string {
	return map[string]string{
		ColTransactionID: line.TransactionID,
		ColDate:          line.Date,
		ColTime:          line.Time,
		ColCustomerName:  line.CustomerName,
		ColCustomerPhone: line.CustomerPhone,
		ColProductName:   line.ProductName,
		ColQuantitySold:  strconv.Itoa(line.QuantitySold),
		ColUnitPrice:     line.UnitPrice.StringFixed(2),
		ColTotalAmount:   line.TotalAmount.StringFixed(2),
		ColPaymentMethod: line.PaymentMethod,
		ColDiscount:      line.Discount.StringFixed(2),
		ColFinalAmount:   line.FinalAmount.StringFixed(2),
	}
}

// cleanPhone drops spreadsheet artifacts: "nan" and a trailing ".0" on
// numbers that were read as floats.
func cleanPhone(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return strings.TrimSuffix(s, ".0")
}
