// =============================================================================
// Shop POS - Checkout Processor
// =============================================================================
//
// The processor is the only code allowed to change inventory and the sales
// ledger together. It turns a cart into a committed sale.
//
// CHECKOUT PIPELINE:
//   1. Validate the request (cart, payment method, discount)
//   2. Re-validate every line against current stock
//   3. Generate the transaction id
//   4. Price the sale and split the discount across lines
//   5. Write the pending-transaction journal record
//   6. Commit: catalog, then ledger, then customer, marking each step
//   7. Clear the journal and log stock movements
//
// FAILURE HANDLING:
//   Validation failures (steps 1-3) happen before any mutation. A write
//   failure in step 6 is compensated: the catalog snapshot is restored and
//   re-saved, ledger rows already written are removed, and every store is
//   reloaded from disk. If compensation itself fails the journal record is
//   left for `pos maintenance recover`.
//
// =============================================================================

package checkout

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/catalog"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/journal"
	"github.com/ginjaninja78/shop-pos/internal/movement"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Transaction id prefixes.
const (
	PrefixCheckout  = "TXN"
	PrefixQuickSale = "QS"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Catalog is the part of the catalog store the processor uses.
type Catalog interface {
	FindByName(name string) (domain.Product, error)
	ApplyDeltas(deltas map[string]int) ([]catalog.QuantityChange, error)
	AdjustQuantity(name string, delta int) (catalog.QuantityChange, error)
	Snapshot() []domain.Product
	RestoreSnapshot(products []domain.Product)
	Save() error
	Reload() error
}

// SalesLedger is the part of the sales ledger the processor uses.
type SalesLedger interface {
	Append(lines []domain.SaleLine) error
	RemoveTransaction(id string) error
	Transaction(id string) ([]domain.SaleLine, error)
	HasTransaction(id string) bool
	Lines() []domain.SaleLine
	Truncate() error
	Reload() error
}

// Customers is the part of the customer ledger the processor uses.
type Customers interface {
	Get(phone string) (domain.Customer, error)
	UpsertOnPurchase(info domain.CustomerInfo, amount decimal.Decimal) (domain.Customer, error)
	Reload() error
}

// Movements is the stock movement log.
type Movements interface {
	Record(movements ...domain.Movement) error
	Returned(txnID, product string) (int, error)
	RemoveSales() (int, error)
}

// Journal holds the pending-transaction record.
type Journal interface {
	Begin(p *journal.PendingTransaction) error
	Mark(p *journal.PendingTransaction, step string) error
	Clear() error
	Pending() (*journal.PendingTransaction, error)
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Options configures a Processor.
type Options struct {
	Catalog   Catalog
	Ledger    SalesLedger
	Customers Customers
	Movements Movements
	Journal   Journal
	Clock     clock.Clock
	Policy    DiscountPolicy

	// PaymentMethods lists accepted methods. Empty accepts the defaults.
	PaymentMethods []string

	Log zerolog.Logger
}

// Processor commits sales.
type Processor struct {
	catalog   Catalog
	ledger    SalesLedger
	customers Customers
	movements Movements
	journal   Journal
	clock     clock.Clock
	policy    DiscountPolicy
	payments  []string
	log       zerolog.Logger
}

// New builds a Processor.
func New(opts Options) *Processor {
	p := &Processor{
		catalog:   opts.Catalog,
		ledger:    opts.Ledger,
		customers: opts.Customers,
		movements: opts.Movements,
		journal:   opts.Journal,
		clock:     opts.Clock,
		policy:    opts.Policy,
		payments:  opts.PaymentMethods,
		log:       opts.Log,
	}
	if p.clock == nil {
		p.clock = clock.System{}
	}
	if p.policy == nil {
		p.policy = EvenSplit{}
	}
	if len(p.payments) == 0 {
		p.payments = []string{domain.PaymentCash, domain.PaymentCard, domain.PaymentUPI, domain.PaymentCredit}
	}
	return p
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Request is one checkout.
type Request struct {
	Items           []domain.CartItem
	Customer        domain.CustomerInfo
	PaymentMethod   string
	DiscountPercent decimal.Decimal
}

// Result describes a committed sale.
type Result struct {
	TransactionID string
	Date          string
	Time          string
	Lines         []domain.SaleLine
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Final         decimal.Decimal

	// Customer is the updated record, nil for walk-in sales.
	Customer *domain.Customer

	// StockChanges lists the quantity change per product.
	StockChanges []catalog.QuantityChange

	Stats Stats
}

// Stats contains commit statistics.
type Stats struct {
	Lines          int
	Units          int
	ProcessingTime time.Duration
}

// =============================================================================
// CHECKOUT
// =============================================================================

// Checkout commits a sale. It is all or nothing: either every store reflects
// the sale or, after an error, none does.
//
// RETURNS:
//   - The committed sale.
//   - EmptyCart, ProductNotFound, InsufficientStock or InvalidInput before
//     any mutation; PersistenceFailure after a compensated write failure.
func (p *Processor) Checkout(req Request) (*Result, error) {
	return p.commit(journal.KindCheckout, PrefixCheckout, req, domain.MovementSale)
}

// QuickSale sells quantity of one product at MRP, cash, to a walk-in.
func (p *Processor) QuickSale(productName string, quantity int) (*Result, error) {
	product, err := p.catalog.FindByName(productName)
	if err != nil {
		return nil, err
	}
	req := Request{
		Items:         []domain.CartItem{{ProductName: product.Name, Quantity: quantity, UnitPrice: product.MRP}},
		PaymentMethod: domain.PaymentCash,
	}
	return p.commit(journal.KindQuickSale, PrefixQuickSale, req, domain.MovementQuickSale)
}

func (p *Processor) commit(kind, prefix string, req Request, moveType domain.MovementType) (*Result, error) {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: VALIDATE REQUEST
	// =========================================================================

	if len(req.Items) == 0 {
		return nil, apperr.ErrEmptyCart
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = p.payments[0]
	}
	if !slices.Contains(p.payments, req.PaymentMethod) {
		return nil, apperr.Invalid("unknown payment method %q", req.PaymentMethod)
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(hundred) {
		return nil, apperr.Invalid("discount must be between 0 and 100, got %s", req.DiscountPercent)
	}

	// =========================================================================
	// STEP 2: VALIDATE STOCK
	// =========================================================================
	// Cart quantities were checked when lines were added, but stock may have
	// changed since. Every line is checked before anything is written.

	// Items naming the same product are merged into one line so the ledger
	// holds one row per product. They must agree on the unit price.
	deltas := make(map[string]int, len(req.Items))
	before := make(map[string]int, len(req.Items))
	position := make(map[string]int, len(req.Items))
	items := make([]domain.CartItem, 0, len(req.Items))
	units := 0
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, apperr.Invalid("%s: quantity must be at least 1", item.ProductName)
		}
		product, err := p.catalog.FindByName(item.ProductName)
		if err != nil {
			return nil, err
		}
		item.ProductName = product.Name
		if i, ok := position[product.Name]; ok {
			if !items[i].UnitPrice.Equal(item.UnitPrice) {
				return nil, apperr.Invalid("%s listed twice at different prices (%s and %s)",
					product.Name, items[i].UnitPrice.StringFixed(2), item.UnitPrice.StringFixed(2))
			}
			items[i].Quantity += item.Quantity
		} else {
			position[product.Name] = len(items)
			items = append(items, item)
		}
		deltas[product.Name] -= item.Quantity
		before[product.Name] = product.Quantity
		units += item.Quantity
	}
	req.Items = items
	for name, delta := range deltas {
		if before[name]+delta < 0 {
			return nil, apperr.InsufficientStock(name, -delta, before[name])
		}
	}

	// =========================================================================
	// STEP 3: TRANSACTION ID
	// =========================================================================

	now := p.clock.Now()
	txnID := p.newTransactionID(prefix, now)
	log := p.log.With().Str("txn_id", txnID).Logger()

	// =========================================================================
	// STEP 4: PRICE AND SPLIT DISCOUNT
	// =========================================================================

	lineTotals := make([]decimal.Decimal, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		lineTotals[i] = item.LineTotal()
		subtotal = subtotal.Add(lineTotals[i])
	}
	discount := subtotal.Mul(req.DiscountPercent).Div(hundred).Round(2)
	shares := p.policy.Split(discount, lineTotals)

	customerName := req.Customer.DisplayName()
	phone := strings.TrimSpace(req.Customer.Phone)
	lines := make([]domain.SaleLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = domain.SaleLine{
			TransactionID: txnID,
			Date:          now.Format(clock.DateLayout),
			Time:          now.Format(clock.TimeLayout),
			CustomerName:  customerName,
			CustomerPhone: phone,
			ProductName:   domain.CanonicalName(item.ProductName),
			QuantitySold:  item.Quantity,
			UnitPrice:     item.UnitPrice,
			TotalAmount:   lineTotals[i],
			PaymentMethod: req.PaymentMethod,
			Discount:      shares[i],
			FinalAmount:   lineTotals[i].Sub(shares[i]),
		}
	}

	result := &Result{
		TransactionID: txnID,
		Date:          now.Format(clock.DateLayout),
		Time:          now.Format(clock.TimeLayout),
		Lines:         lines,
		Subtotal:      subtotal,
		Discount:      discount,
		Final:         subtotal.Sub(discount),
	}

	// =========================================================================
	// STEP 5: JOURNAL
	// =========================================================================

	pending := &journal.PendingTransaction{
		TransactionID: txnID,
		Kind:          kind,
		CreatedAt:     now.Format(clock.DateTimeLayout),
		Lines:         lines,
		Deltas:        deltas,
		Before:        before,
		Customer:      req.Customer,
	}
	if !req.Customer.IsWalkIn() {
		if c, err := p.customers.Get(req.Customer.Phone); err == nil {
			pending.CustomerVisits = c.VisitCount
		}
	}
	if err := p.journal.Begin(pending); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 6: COMMIT
	// =========================================================================

	snapshot := p.catalog.Snapshot()
	changes, err := p.catalog.ApplyDeltas(deltas)
	if err != nil {
		p.clearJournal(log)
		return nil, err
	}
	if err := p.catalog.Save(); err != nil {
		return nil, p.fail(log, pending, snapshot, err)
	}
	if err := p.journal.Mark(pending, journal.StepCatalog); err != nil {
		return nil, p.fail(log, pending, snapshot, err)
	}

	if err := p.ledger.Append(lines); err != nil {
		return nil, p.fail(log, pending, snapshot, err)
	}
	if err := p.journal.Mark(pending, journal.StepLedger); err != nil {
		return nil, p.fail(log, pending, snapshot, err)
	}

	if !req.Customer.IsWalkIn() {
		c, err := p.customers.UpsertOnPurchase(req.Customer, result.Final)
		if err != nil {
			return nil, p.fail(log, pending, snapshot, err)
		}
		result.Customer = &c
		if err := p.journal.Mark(pending, journal.StepCustomer); err != nil {
			log.Warn().Err(err).Msg("failed to mark customer step")
		}
	}

	// =========================================================================
	// STEP 7: FINISH
	// =========================================================================

	p.clearJournal(log)
	p.recordMovements(log, changes, moveType, txnID, "Sale transaction")

	result.StockChanges = changes
	result.Stats = Stats{Lines: len(lines), Units: units, ProcessingTime: time.Since(startTime)}

	log.Info().
		Str("kind", kind).
		Int("lines", len(lines)).
		Str("subtotal", subtotal.StringFixed(2)).
		Str("discount", discount.StringFixed(2)).
		Str("final", result.Final.StringFixed(2)).
		Str("payment", req.PaymentMethod).
		Msg("sale committed")

	return result, nil
}

// newTransactionID formats prefix+timestamp and adds -2, -3, ... when the
// id is already in the ledger.
func (p *Processor) newTransactionID(prefix string, now time.Time) string {
	base := prefix + now.Format(clock.StampLayout)
	id := base
	for n := 2; p.ledger.HasTransaction(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

// =============================================================================
// FAILURE HANDLING
// =============================================================================

// fail compensates a partially applied commit and reloads every store.
// The returned error wraps cause as a PersistenceFailure.
func (p *Processor) fail(log zerolog.Logger, pending *journal.PendingTransaction, snapshot []domain.Product, cause error) error {
	log.Error().Err(cause).Strs("steps", pending.Steps).Msg("commit failed, compensating")

	var errs []error
	p.catalog.RestoreSnapshot(snapshot)
	if err := p.catalog.Save(); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore catalog: %w", err))
	}
	if p.ledger.HasTransaction(pending.TransactionID) {
		if err := p.ledger.RemoveTransaction(pending.TransactionID); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove ledger rows: %w", err))
		}
	}

	if len(errs) == 0 {
		p.clearJournal(log)
	} else {
		log.Error().Err(errors.Join(errs...)).Msg("compensation failed, pending record kept for recovery")
	}

	p.reloadAll(log)

	if errors.Is(cause, apperr.ErrPersistence) {
		return cause
	}
	return apperr.Persistence("commit "+pending.TransactionID, "", cause)
}

func (p *Processor) reloadAll(log zerolog.Logger) {
	if err := p.catalog.Reload(); err != nil {
		log.Error().Err(err).Msg("failed to reload catalog")
	}
	if err := p.ledger.Reload(); err != nil {
		log.Error().Err(err).Msg("failed to reload ledger")
	}
	if p.customers != nil {
		if err := p.customers.Reload(); err != nil {
			log.Error().Err(err).Msg("failed to reload customers")
		}
	}
}

func (p *Processor) clearJournal(log zerolog.Logger) {
	if err := p.journal.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear journal")
	}
}

// recordMovements logs stock movements. The sale is already committed, so a
// failure here is logged and not returned.
func (p *Processor) recordMovements(log zerolog.Logger, changes []catalog.QuantityChange, moveType domain.MovementType, ref, notes string) {
	if p.movements == nil {
		return
	}
	moves := make([]domain.Movement, 0, len(changes))
	for _, c := range changes {
		qty := c.Delta()
		if qty < 0 {
			qty = -qty
		}
		moves = append(moves, domain.Movement{
			ID:          movement.NewID(),
			ProductName: c.Product,
			Type:        moveType,
			Quantity:    qty,
			StockBefore: c.Before,
			StockAfter:  c.After,
			Reference:   ref,
			Notes:       notes,
		})
	}
	if err := p.movements.Record(moves...); err != nil {
		log.Warn().Err(err).Msg("failed to record stock movements")
	}
}
