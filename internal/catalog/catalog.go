// =============================================================================
// Shop POS - Product Catalog Store
// =============================================================================
//
// The catalog store owns the inventory file. It holds every product in memory
// and rewrites the whole file on save.
//
// ARCHITECTURE:
//   - Open loads the CSV once; Reload re-reads it after a failed commit.
//   - Lookups work on the in-memory copy and return clones.
//   - Admin mutations (Add, Update, SoftDelete, AssignBarcode, ...) save
//     immediately.
//   - ApplyDeltas mutates memory only; the checkout processor saves as part
//     of its commit.
//   - Save re-sequences serial ids to 1..N.
//   - Rows that do not decode stay out of memory but are written back
//     unchanged (apart from Sr_No) after the products.
//
// INVARIANTS:
//   - Quantity is never negative.
//   - At most one product per non-empty normalized barcode.
//   - Names are unique after canonicalization.
//
// =============================================================================

package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/barcode"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/csvstore"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
)

// =============================================================================
// TYPES
// =============================================================================

// Options configures a Store.
type Options struct {
	Path     string
	Settings config.CSVSettings
	Deleted  *DeletedStore
	Clock    clock.Clock
	User     string
	Log      zerolog.Logger
}

// Store is the product catalog.
type Store struct {
	mu       sync.RWMutex
	opts     Options
	headers  []string
	products []domain.Product
	// held are rows that did not decode. They are written back as read.
	held []map[string]string
}

// QuantityChange records one stock mutation.
type QuantityChange struct {
	Product string
	Before  int
	After   int
}

// Delta is After - Before.
func (c QuantityChange) Delta() int { return c.After - c.Before }

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Open loads the catalog. A missing file is an empty catalog.
func Open(opts Options) (*Store, error) {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.User == "" {
		opts.User = "Admin"
	}
	s := &Store{opts: opts}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload discards in-memory state and re-reads the file.
func (s *Store) Reload() error {
	table, err := csvstore.ReadOrEmpty(s.opts.Path, s.opts.Settings, Columns)
	if err != nil {
		return apperr.Persistence("read catalog", s.opts.Path, err)
	}

	products := make([]domain.Product, 0, len(table.Rows))
	var held []map[string]string
	seen := make(map[string]bool, len(table.Rows))
	for i, row := range table.Rows {
		p, err := DecodeRow(row, i)
		if err != nil {
			s.opts.Log.Warn().Err(err).Str("file", s.opts.Path).Msg("unreadable catalog row kept as is")
			held = append(held, row)
			continue
		}
		if seen[p.Name] {
			s.opts.Log.Warn().Str("product", p.Name).Msg("duplicate product name in catalog, later row kept as is")
			held = append(held, row)
			continue
		}
		seen[p.Name] = true
		if p.Category == "" {
			p.Category = GuessCategory(p.Name)
		}
		products = append(products, p)
	}

	s.mu.Lock()
	s.headers = csvstore.MergeHeaders(table.Headers, Columns)
	s.products = products
	s.held = held
	s.mu.Unlock()

	s.opts.Log.Debug().Int("products", len(products)).Str("file", s.opts.Path).Msg("catalog loaded")
	return nil
}

// Save writes the catalog, re-sequencing serial ids.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	headers := s.headers
	rows := make([]map[string]string, len(s.products))
	for i := range s.products {
		s.products[i].SerialID = i + 1
		if s.products[i].MarginPercent.Valid {
			headers = csvstore.MergeHeaders(headers, []string{ColMargin})
		}
		for k := range s.products[i].Extra {
			headers = csvstore.MergeHeaders(headers, []string{k})
		}
		rows[i] = EncodeRow(s.products[i])
	}
	for k, row := range s.held {
		out := make(map[string]string, len(row))
		for col, v := range row {
			out[col] = v
		}
		out[ColSerial] = strconv.Itoa(len(s.products) + k + 1)
		rows = append(rows, out)
	}
	s.headers = headers

	if err := csvstore.Write(s.opts.Path, s.opts.Settings, headers, rows); err != nil {
		return apperr.Persistence("write catalog", s.opts.Path, err)
	}
	return nil
}

// Unreadable returns how many rows of the file are carried through
// without being loaded as products.
func (s *Store) Unreadable() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.held)
}

// Path returns the catalog file.
func (s *Store) Path() string { return s.opts.Path }

// =============================================================================
// LOOKUPS
// =============================================================================

// Products returns a copy of every product in catalog order.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// FindByName returns the product with the given name, case-insensitively.
func (s *Store) FindByName(name string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(name)
	if i < 0 {
		return domain.Product{}, apperr.NotFound(name)
	}
	return s.products[i].Clone(), nil
}

// FindBySubstring returns every product whose name contains term,
// case-insensitively.
func (s *Store) FindBySubstring(term string) []domain.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), term) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// FindBySerial returns the product with the given serial id.
func (s *Store) FindBySerial(id int) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.SerialID == id {
			return p.Clone(), nil
		}
	}
	return domain.Product{}, apperr.NotFound(fmt.Sprintf("serial %d", id))
}

// FindByBarcode compares normalized forms of code and the stored barcodes.
func (s *Store) FindByBarcode(code string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.barcodeIndex(barcode.Normalize(code), "")
	if i < 0 {
		return domain.Product{}, apperr.NotFound(code)
	}
	return s.products[i].Clone(), nil
}

func (s *Store) indexOf(name string) int {
	name = domain.CanonicalName(name)
	for i, p := range s.products {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// barcodeIndex finds the product holding a normalized code, ignoring the
// product named except.
func (s *Store) barcodeIndex(code, except string) int {
	if code == "" {
		return -1
	}
	for i, p := range s.products {
		if p.Name != except && p.Barcode != "" && barcode.Normalize(p.Barcode) == code {
			return i
		}
	}
	return -1
}

// =============================================================================
// STOCK
// =============================================================================

// AdjustQuantity adds delta to a product's stock and saves. A result below
// zero fails with NegativeStock and changes nothing.
func (s *Store) AdjustQuantity(name string, delta int) (QuantityChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		return QuantityChange{}, apperr.NotFound(name)
	}
	p := &s.products[i]
	if p.Quantity+delta < 0 {
		return QuantityChange{}, apperr.NegativeStock(p.Name, delta, p.Quantity)
	}
	change := QuantityChange{Product: p.Name, Before: p.Quantity, After: p.Quantity + delta}
	p.Quantity = change.After
	if err := s.saveLocked(); err != nil {
		p.Quantity = change.Before
		return QuantityChange{}, err
	}
	return change, nil
}

// SetQuantity sets a product's stock to an absolute value and saves.
func (s *Store) SetQuantity(name string, quantity int) (QuantityChange, error) {
	s.mu.Lock()
	i := s.indexOf(name)
	if i < 0 {
		s.mu.Unlock()
		return QuantityChange{}, apperr.NotFound(name)
	}
	current := s.products[i].Quantity
	s.mu.Unlock()
	if quantity < 0 {
		return QuantityChange{}, apperr.NegativeStock(domain.CanonicalName(name), quantity-current, current)
	}
	return s.AdjustQuantity(name, quantity-current)
}

// ApplyDeltas applies several stock changes in memory, all or nothing.
// Nothing is saved. A negative result fails with InsufficientStock for
// the first offending product in name order.
func (s *Store) ApplyDeltas(deltas map[string]int) ([]QuantityChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(deltas))
	for name := range deltas {
		names = append(names, name)
	}
	sort.Strings(names)

	idx := make([]int, len(names))
	for n, name := range names {
		i := s.indexOf(name)
		if i < 0 {
			return nil, apperr.NotFound(name)
		}
		p := s.products[i]
		if p.Quantity+deltas[name] < 0 {
			return nil, apperr.InsufficientStock(p.Name, -deltas[name], p.Quantity)
		}
		idx[n] = i
	}

	changes := make([]QuantityChange, len(names))
	for n, name := range names {
		p := &s.products[idx[n]]
		changes[n] = QuantityChange{Product: p.Name, Before: p.Quantity, After: p.Quantity + deltas[name]}
		p.Quantity = changes[n].After
	}
	return changes, nil
}

// Snapshot returns a deep copy of the catalog for later rollback.
func (s *Store) Snapshot() []domain.Product {
	return s.Products()
}

// RestoreSnapshot replaces the in-memory catalog. It does not save.
func (s *Store) RestoreSnapshot(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make([]domain.Product, len(products))
	for i, p := range products {
		s.products[i] = p.Clone()
	}
}

// =============================================================================
// ADMIN MUTATIONS
// =============================================================================

// Add appends a new product and saves.
func (s *Store) Add(p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.prepare(p, "")
	if err != nil {
		return domain.Product{}, err
	}
	if s.indexOf(p.Name) >= 0 {
		return domain.Product{}, fmt.Errorf("%w: %s", apperr.ErrDuplicateProduct, p.Name)
	}

	s.products = append(s.products, p)
	if err := s.saveLocked(); err != nil {
		s.products = s.products[:len(s.products)-1]
		return domain.Product{}, err
	}
	s.opts.Log.Info().Str("product", p.Name).Msg("product added")
	return s.products[len(s.products)-1].Clone(), nil
}

// Update edits a product in place and saves. edit may rename the product.
func (s *Store) Update(name string, edit func(p *domain.Product) error) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return domain.Product{}, apperr.NotFound(name)
	}
	original := s.products[i]
	edited := original.Clone()
	if err := edit(&edited); err != nil {
		return domain.Product{}, err
	}

	edited, err := s.prepare(edited, original.Name)
	if err != nil {
		return domain.Product{}, err
	}
	if edited.Name != original.Name && s.indexOf(edited.Name) >= 0 {
		return domain.Product{}, fmt.Errorf("%w: %s", apperr.ErrDuplicateProduct, edited.Name)
	}

	s.products[i] = edited
	if err := s.saveLocked(); err != nil {
		s.products[i] = original
		return domain.Product{}, err
	}
	s.opts.Log.Info().Str("product", edited.Name).Msg("product updated")
	return s.products[i].Clone(), nil
}

// Upsert adds p, or replaces the product of the same name keeping its
// position.
func (s *Store) Upsert(p domain.Product) (domain.Product, error) {
	s.mu.RLock()
	exists := s.indexOf(p.Name) >= 0
	s.mu.RUnlock()
	if !exists {
		return s.Add(p)
	}
	return s.Update(p.Name, func(existing *domain.Product) error {
		serial := existing.SerialID
		*existing = p.Clone()
		existing.SerialID = serial
		return nil
	})
}

// prepare canonicalizes and validates a product about to be stored.
// self is the current name of the product being edited, if any.
func (s *Store) prepare(p domain.Product, self string) (domain.Product, error) {
	p.Name = domain.CanonicalName(p.Name)
	if p.Name == "" {
		return p, apperr.Invalid("product name is required")
	}
	if p.Quantity < 0 {
		return p, apperr.NegativeStock(p.Name, p.Quantity, 0)
	}
	if p.MRP.IsNegative() || p.CostPrice.IsNegative() {
		return p, apperr.Invalid("%s: prices cannot be negative", p.Name)
	}
	p.Barcode = strings.TrimSpace(p.Barcode)
	if p.Barcode != "" {
		if err := barcode.Validate(p.Barcode); err != nil {
			return p, err
		}
		if j := s.barcodeIndex(barcode.Normalize(p.Barcode), self); j >= 0 {
			return p, fmt.Errorf("%w: %s is on %s", apperr.ErrDuplicateBarcode, p.Barcode, s.products[j].Name)
		}
	}
	if p.Category == "" {
		p.Category = GuessCategory(p.Name)
	}
	if p.SP5.IsZero() && p.SP10.IsZero() {
		p.RecomputeSellingPrices()
	}
	return p, nil
}

// =============================================================================
// SOFT DELETE / RESTORE
// =============================================================================

// SoftDelete moves a product to the recently-deleted store and saves.
func (s *Store) SoftDelete(name string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return domain.Product{}, apperr.NotFound(name)
	}
	p := s.products[i]

	if s.opts.Deleted != nil {
		entry := domain.DeletedProduct{
			Product:   p.Clone(),
			DeletedAt: s.opts.Clock.Now().Format(clock.DateTimeLayout),
			DeletedBy: s.opts.User,
		}
		if err := s.opts.Deleted.put(entry); err != nil {
			return domain.Product{}, err
		}
	}

	before := s.products
	s.products = append(s.products[:i:i], s.products[i+1:]...)
	if err := s.saveLocked(); err != nil {
		s.products = before
		if s.opts.Deleted != nil {
			_ = s.opts.Deleted.remove(p.Name)
		}
		return domain.Product{}, err
	}
	s.opts.Log.Info().Str("product", p.Name).Msg("product deleted")
	return p, nil
}

// Restore brings a soft-deleted product back at the end of the catalog.
// It fails if a product of the same name exists. A barcode that has since
// been assigned elsewhere is dropped from the restored product.
func (s *Store) Restore(name string) (domain.Product, error) {
	if s.opts.Deleted == nil {
		return domain.Product{}, apperr.NotFound(name)
	}
	entry, ok := s.opts.Deleted.Get(name)
	if !ok {
		return domain.Product{}, apperr.NotFound(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := entry.Product
	if s.indexOf(p.Name) >= 0 {
		return domain.Product{}, fmt.Errorf("%w: %s", apperr.ErrDuplicateProduct, p.Name)
	}
	if p.Barcode != "" && s.barcodeIndex(barcode.Normalize(p.Barcode), "") >= 0 {
		s.opts.Log.Warn().Str("product", p.Name).Str("barcode", p.Barcode).Msg("barcode now in use, restoring without it")
		p.Barcode = ""
	}

	s.products = append(s.products, p)
	if err := s.saveLocked(); err != nil {
		s.products = s.products[:len(s.products)-1]
		return domain.Product{}, err
	}
	if err := s.opts.Deleted.remove(p.Name); err != nil {
		s.opts.Log.Warn().Err(err).Str("product", p.Name).Msg("restored product still listed as deleted")
	}
	s.opts.Log.Info().Str("product", p.Name).Msg("product restored")
	return s.products[len(s.products)-1].Clone(), nil
}

// Deleted returns the recently-deleted products, newest first.
func (s *Store) Deleted() []domain.DeletedProduct {
	if s.opts.Deleted == nil {
		return nil
	}
	return s.opts.Deleted.List()
}

// =============================================================================
// BARCODES
// =============================================================================

// AssignBarcode stores code on a product and saves. If another product
// holds the code, the call fails with DuplicateBarcode unless reassign is
// set, in which case the other product loses it.
func (s *Store) AssignBarcode(name, code string, reassign bool) (domain.Product, error) {
	code = strings.TrimSpace(code)
	if err := barcode.Validate(code); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return domain.Product{}, apperr.NotFound(name)
	}
	before := make([]domain.Product, len(s.products))
	copy(before, s.products)

	if j := s.barcodeIndex(barcode.Normalize(code), s.products[i].Name); j >= 0 {
		if !reassign {
			return domain.Product{}, fmt.Errorf("%w: %s is on %s", apperr.ErrDuplicateBarcode, code, s.products[j].Name)
		}
		s.opts.Log.Info().Str("barcode", code).Str("from", s.products[j].Name).Str("to", s.products[i].Name).Msg("barcode reassigned")
		s.products[j].Barcode = ""
	}
	s.products[i].Barcode = code

	if err := s.saveLocked(); err != nil {
		s.products = before
		return domain.Product{}, err
	}
	return s.products[i].Clone(), nil
}

// RemoveBarcode clears a product's barcode and saves.
func (s *Store) RemoveBarcode(name string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return domain.Product{}, apperr.NotFound(name)
	}
	old := s.products[i].Barcode
	s.products[i].Barcode = ""
	if err := s.saveLocked(); err != nil {
		s.products[i].Barcode = old
		return domain.Product{}, err
	}
	return s.products[i].Clone(), nil
}
