// =============================================================================
// Shop POS - Customer Ledger
// =============================================================================
//
// One record per phone number, stored as a JSON object keyed by phone.
// Checkout credits a purchase through UpsertOnPurchase; everything else is
// administrative.
//
// INVARIANTS:
//   - At most one record per phone.
//   - LoyaltyPoints never goes below zero.
//   - TotalPurchases only grows, except through Update and Rebuild.
//
// =============================================================================

package customer

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Types lists the accepted customer types.
var Types = []string{domain.CustomerRegular, domain.CustomerVIP, domain.CustomerWholesale, domain.CustomerCredit}

// Options configures a Ledger.
type Options struct {
	Path              string
	Clock             clock.Clock
	PointsPerCheckout int
	PointValue        decimal.Decimal
	Log               zerolog.Logger
}

// Ledger is the customer store.
type Ledger struct {
	mu      sync.RWMutex
	opts    Options
	records map[string]domain.Customer
}

// Open loads the store. A missing file is an empty store.
func Open(opts Options) (*Ledger, error) {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.PointsPerCheckout == 0 {
		opts.PointsPerCheckout = 1
	}
	l := &Ledger{opts: opts}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the file.
func (l *Ledger) Reload() error {
	records := make(map[string]domain.Customer)
	data, err := os.ReadFile(l.opts.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return apperr.Persistence("read customers", l.opts.Path, err)
	case len(strings.TrimSpace(string(data))) > 0:
		if err := json.Unmarshal(data, &records); err != nil {
			return apperr.Persistence("parse customers", l.opts.Path, err)
		}
	}

	// Normalize keys so legacy "98765.0" style keys collapse onto one record.
	// Keys are visited in order so merging is deterministic.
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	normalized := make(map[string]domain.Customer, len(records))
	for _, key := range keys {
		c := records[key]
		phone := NormalizePhone(c.Phone)
		if phone == "" {
			phone = NormalizePhone(key)
		}
		if phone == "" {
			l.opts.Log.Warn().Str("key", key).Msg("skipping customer without phone")
			continue
		}
		c.Phone = phone
		if prev, ok := normalized[phone]; ok {
			l.opts.Log.Warn().Str("phone", phone).Str("key", key).Msg("merging duplicate customer records")
			c = mergeCustomers(prev, c)
		}
		if c.CustomerType == "" {
			c.CustomerType = domain.CustomerRegular
		}
		normalized[phone] = c
	}

	l.mu.Lock()
	l.records = normalized
	l.mu.Unlock()
	return nil
}

// mergeCustomers folds b into a: totals and counters add up, the latest
// visit and the earliest registration win, blank details are filled in.
func mergeCustomers(a, b domain.Customer) domain.Customer {
	a.TotalPurchases = a.TotalPurchases.Add(b.TotalPurchases)
	a.VisitCount += b.VisitCount
	a.LoyaltyPoints += b.LoyaltyPoints
	if b.LastVisit > a.LastVisit {
		a.LastVisit = b.LastVisit
	}
	if b.RegistrationDate != "" && (a.RegistrationDate == "" || b.RegistrationDate < a.RegistrationDate) {
		a.RegistrationDate = b.RegistrationDate
	}
	a.Name = cmp.Or(a.Name, b.Name)
	a.Email = cmp.Or(a.Email, b.Email)
	a.Address = cmp.Or(a.Address, b.Address)
	a.CustomerType = cmp.Or(a.CustomerType, b.CustomerType)
	switch {
	case a.Notes == "":
		a.Notes = b.Notes
	case b.Notes != "" && b.Notes != a.Notes:
		a.Notes += "\n" + b.Notes
	}
	return a
}

func (l *Ledger) saveLocked() error {
	err := utils.WriteFileAtomic(l.opts.Path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(l.records); err != nil {
			return fmt.Errorf("failed to encode customers: %w", err)
		}
		return nil
	})
	return apperr.Persistence("write customers", l.opts.Path, err)
}

// mutate applies fn to a copy of the store and saves; on failure the
// in-memory store is unchanged.
func (l *Ledger) mutate(fn func(records map[string]domain.Customer) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := make(map[string]domain.Customer, len(l.records))
	for k, v := range l.records {
		before[k] = v
	}
	if err := fn(l.records); err != nil {
		l.records = before
		return err
	}
	if err := l.saveLocked(); err != nil {
		l.records = before
		return err
	}
	return nil
}

// Path returns the customer file.
func (l *Ledger) Path() string { return l.opts.Path }

// NormalizePhone trims a phone number and drops a float artifact ".0".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	switch strings.ToLower(phone) {
	case "nan", "none", "null":
		return ""
	}
	return strings.TrimSuffix(phone, ".0")
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns the record for phone.
func (l *Ledger) Get(phone string) (domain.Customer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.records[NormalizePhone(phone)]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: %s", apperr.ErrCustomerNotFound, phone)
	}
	return c, nil
}

// List returns every record sorted by name, then phone.
func (l *Ledger) List() []domain.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Customer, 0, len(l.records))
	for _, c := range l.records {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Phone < out[j].Phone
	})
	return out
}

// Search returns records whose name or phone contains term.
func (l *Ledger) Search(term string) []domain.Customer {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []domain.Customer
	for _, c := range l.List() {
		if strings.Contains(strings.ToLower(c.Name), term) || strings.Contains(c.Phone, term) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// PointsValue converts points to money at the configured rate.
func (l *Ledger) PointsValue(points int) decimal.Decimal {
	return l.opts.PointValue.Mul(decimal.NewFromInt(int64(points))).Round(2)
}

// =============================================================================
// CHECKOUT
// =============================================================================

// UpsertOnPurchase credits one checkout to the customer keyed by phone,
// creating the record if needed. Walk-in sales are rejected.
func (l *Ledger) UpsertOnPurchase(info domain.CustomerInfo, amount decimal.Decimal) (domain.Customer, error) {
	phone := NormalizePhone(info.Phone)
	if phone == "" {
		return domain.Customer{}, apperr.Invalid("walk-in sales have no customer record")
	}
	now := l.opts.Clock.Now()

	var out domain.Customer
	err := l.mutate(func(records map[string]domain.Customer) error {
		c, ok := records[phone]
		if !ok {
			c = domain.Customer{
				Phone:            phone,
				RegistrationDate: now.Format(clock.DateTimeLayout),
				CustomerType:     domain.CustomerRegular,
			}
		}
		if name := strings.TrimSpace(info.Name); name != "" {
			c.Name = name
		}
		if c.Name == "" {
			c.Name = domain.WalkInCustomer
		}
		if email := strings.TrimSpace(info.Email); email != "" {
			c.Email = email
		}
		c.TotalPurchases = c.TotalPurchases.Add(amount)
		c.LastVisit = now.Format(clock.DateLayout)
		c.VisitCount++
		c.LoyaltyPoints += l.opts.PointsPerCheckout
		records[phone] = c
		out = c
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	l.opts.Log.Debug().Str("phone", phone).Str("amount", amount.StringFixed(2)).Msg("customer credited")
	return out, nil
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

// Add creates a customer. Name and phone are required.
func (l *Ledger) Add(c domain.Customer) (domain.Customer, error) {
	c.Phone = NormalizePhone(c.Phone)
	c.Name = strings.TrimSpace(c.Name)
	if c.Phone == "" || c.Name == "" {
		return domain.Customer{}, apperr.Invalid("customer name and phone are required")
	}
	if c.CustomerType == "" {
		c.CustomerType = domain.CustomerRegular
	}
	if !slices.Contains(Types, c.CustomerType) {
		return domain.Customer{}, apperr.Invalid("unknown customer type %q", c.CustomerType)
	}
	now := l.opts.Clock.Now()
	if c.RegistrationDate == "" {
		c.RegistrationDate = now.Format(clock.DateTimeLayout)
	}
	if c.LastVisit == "" {
		c.LastVisit = now.Format(clock.DateLayout)
	}

	err := l.mutate(func(records map[string]domain.Customer) error {
		if _, ok := records[c.Phone]; ok {
			return fmt.Errorf("%w: %s", apperr.ErrCustomerExists, c.Phone)
		}
		records[c.Phone] = c
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

// Update edits a record. The phone key cannot change.
func (l *Ledger) Update(phone string, edit func(c *domain.Customer) error) (domain.Customer, error) {
	phone = NormalizePhone(phone)
	var out domain.Customer
	err := l.mutate(func(records map[string]domain.Customer) error {
		c, ok := records[phone]
		if !ok {
			return fmt.Errorf("%w: %s", apperr.ErrCustomerNotFound, phone)
		}
		if err := edit(&c); err != nil {
			return err
		}
		c.Phone = phone
		if !slices.Contains(Types, c.CustomerType) {
			return apperr.Invalid("unknown customer type %q", c.CustomerType)
		}
		if c.LoyaltyPoints < 0 {
			return fmt.Errorf("%w: %d", apperr.ErrInsufficientPoints, c.LoyaltyPoints)
		}
		records[phone] = c
		out = c
		return nil
	})
	return out, err
}

// AddNote appends a timestamped note on a new line.
func (l *Ledger) AddNote(phone, text string) (domain.Customer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Customer{}, apperr.Invalid("note is empty")
	}
	stamp := l.opts.Clock.Now().Format(clock.NoteStampLayout)
	return l.Update(phone, func(c *domain.Customer) error {
		note := fmt.Sprintf("[%s] %s", stamp, text)
		if c.Notes == "" {
			c.Notes = note
		} else {
			c.Notes += "\n" + note
		}
		return nil
	})
}

// AddPoints credits loyalty points.
func (l *Ledger) AddPoints(phone string, points int) (domain.Customer, error) {
	if points <= 0 {
		return domain.Customer{}, apperr.Invalid("points must be positive")
	}
	return l.Update(phone, func(c *domain.Customer) error {
		c.LoyaltyPoints += points
		return nil
	})
}

// RedeemPoints debits loyalty points and returns their money value.
func (l *Ledger) RedeemPoints(phone string, points int) (domain.Customer, decimal.Decimal, error) {
	if points <= 0 {
		return domain.Customer{}, decimal.Zero, apperr.Invalid("points must be positive")
	}
	c, err := l.Update(phone, func(c *domain.Customer) error {
		if points > c.LoyaltyPoints {
			return fmt.Errorf("%w: have %d, asked %d", apperr.ErrInsufficientPoints, c.LoyaltyPoints, points)
		}
		c.LoyaltyPoints -= points
		return nil
	})
	if err != nil {
		return domain.Customer{}, decimal.Zero, err
	}
	return c, l.PointsValue(points), nil
}

// Delete removes a record.
func (l *Ledger) Delete(phone string) error {
	phone = NormalizePhone(phone)
	return l.mutate(func(records map[string]domain.Customer) error {
		if _, ok := records[phone]; !ok {
			return fmt.Errorf("%w: %s", apperr.ErrCustomerNotFound, phone)
		}
		delete(records, phone)
		return nil
	})
}

// =============================================================================
// REBUILD
// =============================================================================

// Rebuild recomputes purchase totals, visits and points from ledger rows.
// Contact details, notes, type and registration date of existing records
// are kept; records with no sales are dropped. Returns the record count.
func (l *Ledger) Rebuild(lines []domain.SaleLine) (int, error) {
	type agg struct {
		name  string
		total decimal.Decimal
		last  string
		first string
		txns  map[string]bool
	}
	byPhone := make(map[string]*agg)
	var order []string
	for _, line := range lines {
		phone := NormalizePhone(line.CustomerPhone)
		if phone == "" {
			continue
		}
		a, ok := byPhone[phone]
		if !ok {
			a = &agg{txns: make(map[string]bool), first: line.Date}
			byPhone[phone] = a
			order = append(order, phone)
		}
		if name := strings.TrimSpace(line.CustomerName); name != "" {
			a.name = name
		}
		a.total = a.total.Add(line.FinalAmount)
		a.txns[line.TransactionID] = true
		if line.Date > a.last {
			a.last = line.Date
		}
		if line.Date < a.first {
			a.first = line.Date
		}
	}

	err := l.mutate(func(records map[string]domain.Customer) error {
		for phone := range records {
			if _, ok := byPhone[phone]; !ok {
				delete(records, phone)
			}
		}
		for _, phone := range order {
			a := byPhone[phone]
			c, ok := records[phone]
			if !ok {
				c = domain.Customer{Phone: phone, CustomerType: domain.CustomerRegular, RegistrationDate: a.first}
			}
			if a.name != "" {
				c.Name = a.name
			}
			c.TotalPurchases = a.total
			c.LastVisit = a.last
			c.VisitCount = len(a.txns)
			c.LoyaltyPoints = len(a.txns) * l.opts.PointsPerCheckout
			records[phone] = c
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.opts.Log.Info().Int("customers", len(order)).Msg("customers rebuilt from ledger")
	return len(order), nil
}
