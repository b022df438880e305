// =============================================================================
// Shop POS - Pending Transaction Journal
// =============================================================================
//
// The journal makes a half-finished commit detectable. Before the processor
// touches any store it writes a PendingTransaction describing everything it
// is about to do; each completed step is marked; the record is deleted once
// all steps are done.
//
// A record found at startup means the previous process stopped mid-commit.
// Recovery uses the recorded steps to decide between rolling forward and
// discarding.
//
// =============================================================================

package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/pkg/utils"
	"github.com/google/uuid"
)

// Step names, in commit order.
const (
	StepCatalog  = "catalog"
	StepLedger   = "ledger"
	StepCustomer = "customer"
)

// Kind of operation being committed.
const (
	KindCheckout  = "checkout"
	KindQuickSale = "quick_sale"
)

// PendingTransaction is everything needed to finish or undo a commit.
type PendingTransaction struct {
	ID            string              `json:"id"`
	TransactionID string              `json:"transaction_id"`
	Kind          string              `json:"kind"`
	CreatedAt     string              `json:"created_at"`
	Lines         []domain.SaleLine   `json:"lines"`
	Deltas        map[string]int      `json:"deltas"`
	Before        map[string]int      `json:"before"`
	Customer      domain.CustomerInfo `json:"customer"`
	Steps         []string            `json:"steps"`

	// CustomerVisits is the customer's visit count before this sale, 0 for
	// a new customer. A higher count at recovery means the customer update
	// landed even though its step was never marked.
	CustomerVisits int `json:"customer_visits"`
}

// Done reports whether step has been marked.
func (p *PendingTransaction) Done(step string) bool {
	return slices.Contains(p.Steps, step)
}

// Journal stores at most one pending record.
type Journal struct {
	path string
}

// New returns a journal at path.
func New(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file.
func (j *Journal) Path() string { return j.path }

// Begin writes a new pending record.
func (j *Journal) Begin(p *PendingTransaction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Steps = nil
	return j.write(p)
}

// Mark records a completed step.
func (j *Journal) Mark(p *PendingTransaction, step string) error {
	if !p.Done(step) {
		p.Steps = append(p.Steps, step)
	}
	return j.write(p)
}

// Clear deletes the pending record.
func (j *Journal) Clear() error {
	err := os.Remove(j.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Persistence("clear journal", j.path, err)
	}
	return nil
}

// Pending returns the pending record, or nil when there is none.
func (j *Journal) Pending() (*PendingTransaction, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("read journal", j.path, err)
	}
	var p PendingTransaction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperr.Persistence("parse journal", j.path, err)
	}
	return &p, nil
}

func (j *Journal) write(p *PendingTransaction) error {
	err := utils.WriteFileAtomic(j.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("failed to encode pending transaction: %w", err)
		}
		return nil
	})
	return apperr.Persistence("write journal", j.path, err)
}
