// Package movement is the stock movement log: one row per inventory-affecting
// event, kept for audit and reporting.
package movement

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/csvstore"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Log file columns.
const (
	ColID          = "Movement_ID"
	ColDate        = "Date"
	ColTime        = "Time"
	ColProductName = "Product_Name"
	ColType        = "Movement_Type"
	ColQuantity    = "Quantity"
	ColStockBefore = "Stock_Before"
	ColStockAfter  = "Stock_After"
	ColReference   = "Reference"
	ColNotes       = "Notes"
	ColUser        = "User"
)

// Columns is the log header in file order.
var Columns = []string{
	ColID, ColDate, ColTime, ColProductName, ColType, ColQuantity,
	ColStockBefore, ColStockAfter, ColReference, ColNotes, ColUser,
}

// Log is the stock movement file.
type Log struct {
	mu       sync.Mutex
	path     string
	settings config.CSVSettings
	clock    clock.Clock
	user     string
	log      zerolog.Logger
}

// Open returns a Log for path. The file is read on demand.
func Open(path string, settings config.CSVSettings, clk clock.Clock, user string, log zerolog.Logger) *Log {
	if clk == nil {
		clk = clock.System{}
	}
	if user == "" {
		user = "Admin"
	}
	return &Log{path: path, settings: settings, clock: clk, user: user, log: log}
}

// Path returns the log file.
func (l *Log) Path() string { return l.path }

// Record appends movements, filling ID, date, time and user when blank.
func (l *Log) Record(movements ...domain.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := csvstore.ReadOrEmpty(l.path, l.settings, Columns)
	if err != nil {
		return apperr.Persistence("read movements", l.path, err)
	}
	headers := csvstore.MergeHeaders(table.Headers, Columns)

	now := l.clock.Now()
	for _, m := range movements {
		if m.ID == "" {
			m.ID = NewID()
		}
		if m.Date == "" {
			m.Date = now.Format(clock.DateLayout)
		}
		if m.Time == "" {
			m.Time = now.Format(clock.TimeLayout)
		}
		if m.User == "" {
			m.User = l.user
		}
		table.Rows = append(table.Rows, encode(m))
		l.log.Debug().
			Str("product", m.ProductName).
			Str("type", string(m.Type)).
			Int("qty", m.Quantity).
			Str("ref", m.Reference).
			Msg("stock movement")
	}

	if err := csvstore.Write(l.path, l.settings, headers, table.Rows); err != nil {
		return apperr.Persistence("write movements", l.path, err)
	}
	return nil
}

// NewID returns a movement id.
func NewID() string {
	return "MOV-" + strings.ToUpper(uuid.NewString()[:8])
}

// Filter selects movements. Zero fields match everything.
type Filter struct {
	Product   string
	Type      domain.MovementType
	Reference string
	Limit     int
}

// List returns matching movements, newest last. With a Limit, only the
// last Limit matches are returned.
func (l *Log) List(f Filter) ([]domain.Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := csvstore.ReadOrEmpty(l.path, l.settings, Columns)
	if err != nil {
		return nil, apperr.Persistence("read movements", l.path, err)
	}
	product := domain.CanonicalName(f.Product)

	var out []domain.Movement
	for _, row := range table.Rows {
		m := decode(row)
		if product != "" && domain.CanonicalName(m.ProductName) != product {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.Reference != "" && m.Reference != f.Reference {
			continue
		}
		out = append(out, m)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// Returned sums RETURN quantities for a product against a transaction.
func (l *Log) Returned(txnID, product string) (int, error) {
	moves, err := l.List(Filter{Product: product, Type: domain.MovementReturn, Reference: txnID})
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range moves {
		total += m.Quantity
	}
	return total, nil
}

// RemoveSales drops SALE and QUICK_SALE rows and returns how many went.
func (l *Log) RemoveSales() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := csvstore.ReadOrEmpty(l.path, l.settings, Columns)
	if err != nil {
		return 0, apperr.Persistence("read movements", l.path, err)
	}
	kept := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if domain.MovementType(strings.TrimSpace(row[ColType])).IsSale() {
			continue
		}
		kept = append(kept, row)
	}
	removed := len(table.Rows) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := csvstore.Write(l.path, l.settings, csvstore.MergeHeaders(table.Headers, Columns), kept); err != nil {
		return 0, apperr.Persistence("write movements", l.path, err)
	}
	return removed, nil
}

func encode(m domain.Movement) map[string]string {
	return map[string]string{
		ColID:          m.ID,
		ColDate:        m.Date,
		ColTime:        m.Time,
		ColProductName: m.ProductName,
		ColType:        string(m.Type),
		ColQuantity:    strconv.Itoa(m.Quantity),
		ColStockBefore: strconv.Itoa(m.StockBefore),
		ColStockAfter:  strconv.Itoa(m.StockAfter),
		ColReference:   m.Reference,
		ColNotes:       m.Notes,
		ColUser:        m.User,
	}
}

// decode is lenient: older logs lack the id and stock columns.
func decode(row map[string]string) domain.Movement {
	atoi := func(col string) int {
		v := strings.TrimSuffix(strings.TrimSpace(row[col]), ".0")
		n, _ := strconv.Atoi(v)
		return n
	}
	return domain.Movement{
		ID:          row[ColID],
		Date:        row[ColDate],
		Time:        row[ColTime],
		ProductName: row[ColProductName],
		Type:        domain.MovementType(strings.TrimSpace(row[ColType])),
		Quantity:    atoi(ColQuantity),
		StockBefore: atoi(ColStockBefore),
		StockAfter:  atoi(ColStockAfter),
		Reference:   row[ColReference],
		Notes:       row[ColNotes],
		User:        row[ColUser],
	}
}

// String renders a movement on one line for CLI listings.
func String(m domain.Movement) string {
	return fmt.Sprintf("%s %s %-14s %-30s %5d  %d -> %d  %s", m.Date, m.Time, m.Type, m.ProductName, m.Quantity, m.StockBefore, m.StockAfter, m.Reference)
}
