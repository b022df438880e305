package checkout

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/catalog"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/journal"
	"github.com/ginjaninja78/shop-pos/internal/ledger"
	"github.com/ginjaninja78/shop-pos/pkg/utils"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RETURNS
// =============================================================================

// ReturnResult describes a processed return.
type ReturnResult struct {
	TransactionID string
	ProductName   string
	Quantity      int
	Refund        decimal.Decimal
	Stock         catalog.QuantityChange

	// Remaining is how many more units of this line can still be returned.
	Remaining int
}

// Return puts quantity units of a sold line back into stock and computes
// the refund. The ledger is not changed; earlier returns are counted from
// the movement log.
func (p *Processor) Return(txnID, productName string, quantity int) (*ReturnResult, error) {
	lines, err := p.ledger.Transaction(txnID)
	if err != nil {
		return nil, err
	}
	name := domain.CanonicalName(productName)

	var sold domain.SaleLine
	found := false
	for _, line := range lines {
		if domain.CanonicalName(line.ProductName) == name {
			sold = line
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s not in %s", apperr.ErrProductNotFound, productName, txnID)
	}

	already, err := p.movements.Returned(txnID, name)
	if err != nil {
		return nil, err
	}
	allowed := sold.QuantitySold - already
	if quantity < 1 || quantity > allowed {
		return nil, apperr.Invalid("return quantity must be between 1 and %d", allowed)
	}

	change, err := p.catalog.AdjustQuantity(name, quantity)
	if err != nil {
		return nil, err
	}

	err = p.movements.Record(domain.Movement{
		ProductName: name,
		Type:        domain.MovementReturn,
		Quantity:    quantity,
		StockBefore: change.Before,
		StockAfter:  change.After,
		Reference:   txnID,
		Notes:       "Return from transaction " + txnID,
	})
	if err != nil {
		// The movement log is what caps future returns; undo the stock change.
		if _, undoErr := p.catalog.AdjustQuantity(name, -quantity); undoErr != nil {
			p.log.Error().Err(undoErr).Str("txn_id", txnID).Msg("failed to undo return stock change")
		}
		return nil, err
	}

	refund := decimal.Zero
	if sold.QuantitySold > 0 {
		refund = sold.FinalAmount.Div(decimal.NewFromInt(int64(sold.QuantitySold))).
			Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	}

	p.log.Info().
		Str("txn_id", txnID).
		Str("product", name).
		Int("qty", quantity).
		Str("refund", refund.StringFixed(2)).
		Msg("return processed")

	return &ReturnResult{
		TransactionID: txnID,
		ProductName:   name,
		Quantity:      quantity,
		Refund:        refund,
		Stock:         change,
		Remaining:     allowed - quantity,
	}, nil
}

// =============================================================================
// CLEAR ALL TRANSACTIONS
// =============================================================================

// ClearResult describes a clear-all run.
type ClearResult struct {
	BackupDir      string
	BackedUp       []string
	Transactions   int
	Restored       []catalog.QuantityChange
	Unknown        map[string]int
	MovementsTaken int
}

// ClearAllTransactions backs up the data files, puts every sold quantity
// back into stock, empties the ledger and drops sale movements. Customer
// records are kept.
func (p *Processor) ClearAllTransactions(fm *utils.FileManager, files ...string) (*ClearResult, error) {
	dir, copied, err := fm.Backup("backup_before_clear", files...)
	if err != nil {
		return nil, fmt.Errorf("failed to back up before clearing: %w", err)
	}
	result := &ClearResult{BackupDir: dir, BackedUp: copied, Unknown: make(map[string]int)}

	lines := p.ledger.Lines()
	result.Transactions = ledger.Sum(lines).Transactions

	deltas := make(map[string]int)
	for name, qty := range ledger.SoldQuantities(lines) {
		if _, err := p.catalog.FindByName(name); err != nil {
			result.Unknown[name] = qty
			continue
		}
		deltas[name] = qty
	}

	snapshot := p.catalog.Snapshot()
	if result.Restored, err = p.catalog.ApplyDeltas(deltas); err != nil {
		return nil, err
	}
	if err := p.catalog.Save(); err != nil {
		p.catalog.RestoreSnapshot(snapshot)
		return nil, err
	}
	if err := p.ledger.Truncate(); err != nil {
		p.catalog.RestoreSnapshot(snapshot)
		if saveErr := p.catalog.Save(); saveErr != nil {
			p.log.Error().Err(saveErr).Str("backup", dir).Msg("catalog restore failed, recover from backup")
		}
		return nil, err
	}
	if p.movements != nil {
		if result.MovementsTaken, err = p.movements.RemoveSales(); err != nil {
			p.log.Warn().Err(err).Msg("failed to drop sale movements")
		}
	}

	if err := writeClearReport(filepath.Join(dir, "restoration_report.txt"), result); err != nil {
		p.log.Warn().Err(err).Msg("failed to write restoration report")
	}

	p.log.Info().
		Str("backup", dir).
		Int("transactions", result.Transactions).
		Int("products", len(result.Restored)).
		Int("unknown", len(result.Unknown)).
		Msg("transactions cleared")
	return result, nil
}

func writeClearReport(path string, r *ClearResult) error {
	restored := make([]string, 0, len(r.Restored))
	for _, c := range r.Restored {
		restored = append(restored, fmt.Sprintf("%s: %d -> %d (+%d)", c.Product, c.Before, c.After, c.Delta()))
	}
	unknown := make([]string, 0, len(r.Unknown))
	for name, qty := range r.Unknown {
		unknown = append(unknown, fmt.Sprintf("%s: %d units (not in catalog)", name, qty))
	}
	sort.Strings(unknown)

	return utils.WriteSummary(path, "INVENTORY RESTORATION REPORT", []utils.SummarySection{
		{Title: "Summary", Lines: []string{
			fmt.Sprintf("Transactions cleared: %d", r.Transactions),
			fmt.Sprintf("Products restored: %d", len(r.Restored)),
			fmt.Sprintf("Sale movements removed: %d", r.MovementsTaken),
			"Backed up: " + strings.Join(r.BackedUp, ", "),
		}},
		{Title: "Restored", Lines: restored},
		{Title: "Unknown Products", Lines: unknown},
	})
}

// =============================================================================
// RECOVERY
// =============================================================================

// Recovery actions.
const (
	RecoveryNone        = "none"
	RecoveryPending     = "pending"
	RecoveryRollForward = "roll_forward"
	RecoveryDiscard     = "discard"
)

// RecoveryReport describes what Recover found and did.
type RecoveryReport struct {
	Action  string
	Pending *journal.PendingTransaction

	// CatalogApplied is true when the catalog already reflects the sale.
	CatalogApplied bool
}

// Recover inspects the pending-transaction record. With apply set it rolls
// the commit forward when the catalog step completed, and discards the
// record when it did not.
func (p *Processor) Recover(apply bool) (*RecoveryReport, error) {
	pending, err := p.journal.Pending()
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return &RecoveryReport{Action: RecoveryNone}, nil
	}
	report := &RecoveryReport{Action: RecoveryPending, Pending: pending}
	report.CatalogApplied = pending.Done(journal.StepCatalog) || p.catalogReflects(pending)
	if !apply {
		return report, nil
	}

	log := p.log.With().Str("txn_id", pending.TransactionID).Logger()
	if !report.CatalogApplied {
		if err := p.journal.Clear(); err != nil {
			return nil, err
		}
		report.Action = RecoveryDiscard
		log.Info().Msg("pending transaction discarded")
		return report, nil
	}

	if !p.ledger.HasTransaction(pending.TransactionID) {
		if err := p.ledger.Append(pending.Lines); err != nil {
			return nil, err
		}
	}
	if !pending.Done(journal.StepCustomer) && !pending.Customer.IsWalkIn() && !p.customerCredited(pending) {
		final := decimal.Zero
		for _, line := range pending.Lines {
			final = final.Add(line.FinalAmount)
		}
		if _, err := p.customers.UpsertOnPurchase(pending.Customer, final); err != nil {
			return nil, err
		}
	}
	if err := p.journal.Clear(); err != nil {
		return nil, err
	}
	report.Action = RecoveryRollForward
	log.Info().Msg("pending transaction rolled forward")
	return report, nil
}

// customerCredited reports whether the customer record already counts this
// sale: its visit count moved past the one recorded before the commit.
func (p *Processor) customerCredited(pending *journal.PendingTransaction) bool {
	c, err := p.customers.Get(pending.Customer.Phone)
	if err != nil {
		return false
	}
	return c.VisitCount > pending.CustomerVisits
}

// catalogReflects reports whether every product in the record is at its
// expected post-sale quantity, which means the catalog save landed even
// though the step was never marked.
func (p *Processor) catalogReflects(pending *journal.PendingTransaction) bool {
	if len(pending.Before) == 0 {
		return false
	}
	for name, delta := range pending.Deltas {
		product, err := p.catalog.FindByName(name)
		if err != nil || product.Quantity != pending.Before[name]+delta {
			return false
		}
	}
	return true
}
