// =============================================================================
// Shop POS - Stock Operations
// =============================================================================
//
// Stock-in and stock correction outside of sales:
//   - Purchase   : receive goods from a supplier, update cost and prices
//   - Adjust     : set/add/subtract a product's quantity with a reason
//   - LowStock   : products at or below the threshold with restock advice
//
// Every quantity change is written to the stock movement log.
//
// INVARIANTS:
//   - Quantities never go below zero (NegativeStock).
//   - A purchase is applied to every item or to none.
//
// =============================================================================

package stock

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/catalog"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Adjustment modes.
const (
	ModeSet      = "set"
	ModeAdd      = "add"
	ModeSubtract = "subtract"
)

// DefaultReason is recorded when an adjustment has none.
const DefaultReason = "Manual adjustment"

// Restock priorities.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
)

// Catalog is the part of the catalog store stock operations use.
type Catalog interface {
	Products() []domain.Product
	FindByName(name string) (domain.Product, error)
	Add(p domain.Product) (domain.Product, error)
	Update(name string, edit func(p *domain.Product) error) (domain.Product, error)
	AdjustQuantity(name string, delta int) (catalog.QuantityChange, error)
	Snapshot() []domain.Product
	RestoreSnapshot(products []domain.Product)
	Save() error
}

// Movements records stock movements.
type Movements interface {
	Record(movements ...domain.Movement) error
}

// Options configures a Service.
type Options struct {
	Catalog   Catalog
	Movements Movements
	Clock     clock.Clock
	Config    config.StockConfig
	Log       zerolog.Logger
}

// Service runs stock operations.
type Service struct {
	catalog   Catalog
	movements Movements
	clock     clock.Clock
	cfg       config.StockConfig
	validate  *validation.Validator
	log       zerolog.Logger
}

// New builds a Service.
func New(opts Options) *Service {
	s := &Service{
		catalog:   opts.Catalog,
		movements: opts.Movements,
		clock:     opts.Clock,
		cfg:       opts.Config,
		validate:  validation.New(),
		log:       opts.Log,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	return s
}

// =============================================================================
// PURCHASES
// =============================================================================

// PurchaseItem is one line of a supplier invoice.
type PurchaseItem struct {
	ProductName string          `validate:"required,max=120"`
	Quantity    int             `validate:"gte=1"`
	UnitCost    decimal.Decimal `validate:"gte=0"`

	// MRP replaces the product's MRP when positive. Required for new products.
	MRP decimal.Decimal `validate:"gte=0"`

	// Category is used only when the product is created.
	Category string
}

// PurchasedLine is one applied purchase line.
type PurchasedLine struct {
	Product  domain.Product
	Quantity int
	UnitCost decimal.Decimal
	Created  bool
	Change   catalog.QuantityChange
}

// PurchaseResult describes a received purchase.
type PurchaseResult struct {
	PurchaseID string
	Supplier   string
	Invoice    string
	Lines      []PurchasedLine
	Total      decimal.Decimal
}

// Purchase receives items into stock. Existing products get a weighted
// average cost; unknown products are created.
//
// PARAMETERS:
//   - supplier: Supplier name, recorded on the movements.
//   - invoice: Supplier invoice number, may be empty.
//   - items: The invoice lines.
//
// RETURNS:
//   - The applied lines and the invoice total.
//   - An error if any line is invalid or the catalog cannot be saved. In
//     that case no line is applied.
func (s *Service) Purchase(supplier, invoice string, items []PurchaseItem) (*PurchaseResult, error) {
	if len(items) == 0 {
		return nil, apperr.Invalid("purchase has no items")
	}
	for i, item := range items {
		if err := s.validate.Check(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
	}

	result := &PurchaseResult{
		PurchaseID: "PUR" + s.clock.Now().Format(clock.StampLayout),
		Supplier:   strings.TrimSpace(supplier),
		Invoice:    strings.TrimSpace(invoice),
		Total:      decimal.Zero,
	}

	snapshot := s.catalog.Snapshot()
	for _, item := range items {
		line, err := s.receive(item)
		if err != nil {
			s.rollback(snapshot)
			return nil, err
		}
		result.Lines = append(result.Lines, line)
		result.Total = result.Total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	notes := "Purchase from " + result.Supplier
	if result.Invoice != "" {
		notes += ", invoice " + result.Invoice
	}
	moves := make([]domain.Movement, 0, len(result.Lines))
	for _, line := range result.Lines {
		moves = append(moves, domain.Movement{
			ProductName: line.Product.Name,
			Type:        domain.MovementPurchase,
			Quantity:    line.Quantity,
			StockBefore: line.Change.Before,
			StockAfter:  line.Change.After,
			Reference:   result.PurchaseID,
			Notes:       notes,
		})
	}
	s.record(moves...)

	s.log.Info().
		Str("purchase_id", result.PurchaseID).
		Str("supplier", result.Supplier).
		Int("lines", len(result.Lines)).
		Str("total", result.Total.StringFixed(2)).
		Msg("purchase received")
	return result, nil
}

func (s *Service) receive(item PurchaseItem) (PurchasedLine, error) {
	line := PurchasedLine{Quantity: item.Quantity, UnitCost: item.UnitCost}

	existing, err := s.catalog.FindByName(item.ProductName)
	if errors.Is(err, apperr.ErrProductNotFound) {
		if !item.MRP.IsPositive() {
			return line, apperr.Invalid("%s: MRP is required for a new product", item.ProductName)
		}
		p := domain.Product{
			Name:      item.ProductName,
			Category:  strings.TrimSpace(item.Category),
			CostPrice: item.UnitCost,
			MRP:       item.MRP,
			Quantity:  item.Quantity,
		}
		p.RecomputeSellingPrices()
		added, err := s.catalog.Add(p)
		if err != nil {
			return line, err
		}
		line.Product = added
		line.Created = true
		line.Change = catalog.QuantityChange{Product: added.Name, Before: 0, After: added.Quantity}
		return line, nil
	}
	if err != nil {
		return line, err
	}

	updated, err := s.catalog.Update(existing.Name, func(p *domain.Product) error {
		p.CostPrice = WeightedCost(p.Quantity, p.CostPrice, item.Quantity, item.UnitCost)
		p.Quantity += item.Quantity
		if item.MRP.IsPositive() {
			p.MRP = item.MRP
			p.RecomputeSellingPrices()
		}
		return nil
	})
	if err != nil {
		return line, err
	}
	line.Product = updated
	line.Change = catalog.QuantityChange{Product: updated.Name, Before: existing.Quantity, After: updated.Quantity}
	return line, nil
}

// WeightedCost returns the average unit cost after receiving qty units at
// unitCost on top of oldQty units at oldCost. An empty or negative old
// stock takes the new cost as is.
func WeightedCost(oldQty int, oldCost decimal.Decimal, qty int, unitCost decimal.Decimal) decimal.Decimal {
	if oldQty <= 0 {
		return unitCost
	}
	oq := decimal.NewFromInt(int64(oldQty))
	nq := decimal.NewFromInt(int64(qty))
	return oq.Mul(oldCost).Add(nq.Mul(unitCost)).Div(oq.Add(nq)).Round(2)
}

func (s *Service) rollback(snapshot []domain.Product) {
	s.catalog.RestoreSnapshot(snapshot)
	if err := s.catalog.Save(); err != nil {
		s.log.Error().Err(err).Msg("failed to restore catalog after purchase error")
	}
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// AdjustResult describes a stock adjustment.
type AdjustResult struct {
	Reference string
	Change    catalog.QuantityChange

	// Changed is false when the adjustment left the quantity as it was.
	Changed bool
}

// Adjust changes a product's quantity.
//
// PARAMETERS:
//   - name: The product.
//   - mode: ModeSet, ModeAdd or ModeSubtract.
//   - quantity: The new value for ModeSet, otherwise the amount.
//   - reason: Recorded on the movement. Defaults to DefaultReason.
func (s *Service) Adjust(name, mode string, quantity int, reason string) (*AdjustResult, error) {
	if quantity < 0 {
		return nil, apperr.Invalid("adjustment quantity cannot be negative")
	}
	p, err := s.catalog.FindByName(name)
	if err != nil {
		return nil, err
	}

	var delta int
	switch strings.ToLower(mode) {
	case ModeSet:
		delta = quantity - p.Quantity
	case ModeAdd:
		delta = quantity
	case ModeSubtract:
		delta = -quantity
	default:
		return nil, apperr.Invalid("unknown adjustment mode %q", mode)
	}
	if p.Quantity+delta < 0 {
		return nil, apperr.NegativeStock(p.Name, delta, p.Quantity)
	}

	result := &AdjustResult{Reference: "ADJ" + s.clock.Now().Format(clock.StampLayout)}
	if delta == 0 {
		result.Change = catalog.QuantityChange{Product: p.Name, Before: p.Quantity, After: p.Quantity}
		return result, nil
	}

	change, err := s.catalog.AdjustQuantity(p.Name, delta)
	if err != nil {
		return nil, err
	}
	result.Change = change
	result.Changed = true

	if strings.TrimSpace(reason) == "" {
		reason = DefaultReason
	}
	moveType := domain.MovementAdjustmentIn
	qty := delta
	if delta < 0 {
		moveType = domain.MovementAdjustmentOut
		qty = -delta
	}
	s.record(domain.Movement{
		ProductName: change.Product,
		Type:        moveType,
		Quantity:    qty,
		StockBefore: change.Before,
		StockAfter:  change.After,
		Reference:   result.Reference,
		Notes:       reason,
	})

	s.log.Info().
		Str("product", change.Product).
		Int("before", change.Before).
		Int("after", change.After).
		Str("reason", reason).
		Msg("stock adjusted")
	return result, nil
}

// record writes movements. The stock change is already saved, so a log
// failure is reported and not returned.
func (s *Service) record(moves ...domain.Movement) {
	if s.movements == nil || len(moves) == 0 {
		return
	}
	if err := s.movements.Record(moves...); err != nil {
		s.log.Warn().Err(err).Msg("failed to record stock movements")
	}
}

// =============================================================================
// LOW STOCK
// =============================================================================

// Suggestion is a restock recommendation for one product.
type Suggestion struct {
	Product        domain.Product
	SuggestedQty   int
	EstimatedValue decimal.Decimal
	Priority       string
}

// LowStock returns products at or below the threshold, emptiest first.
// A negative threshold uses the configured one.
func (s *Service) LowStock(threshold int) []Suggestion {
	if threshold < 0 {
		threshold = s.cfg.LowStockThreshold
	}
	var out []Suggestion
	for _, p := range s.catalog.Products() {
		if p.Quantity > threshold {
			continue
		}
		qty := max(s.cfg.RestockMinimum, p.Quantity+s.cfg.RestockBuffer)
		priority := PriorityMedium
		if p.Quantity == 0 {
			priority = PriorityHigh
		}
		out = append(out, Suggestion{
			Product:        p,
			SuggestedQty:   qty,
			EstimatedValue: p.CostPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2),
			Priority:       priority,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Product.Quantity != out[j].Product.Quantity {
			return out[i].Product.Quantity < out[j].Product.Quantity
		}
		return out[i].Product.Name < out[j].Product.Name
	})
	return out
}
