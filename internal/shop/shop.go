// =============================================================================
// Shop POS - Store Wiring
// =============================================================================
//
// Opens every store named in the main configuration and builds the services
// on top of them. The CLI commands work against a *Shop and never open a
// file themselves.
//
// OPEN ORDER:
//   1. Deleted-products store, then the catalog
//   2. Sales ledger, customer ledger, movement log, journal
//   3. Barcode resolver over the catalog
//   4. Checkout processor, stock service, report exporter
//
// =============================================================================

package shop

import (
	"fmt"

	"github.com/ginjaninja78/shop-pos/internal/barcode"
	"github.com/ginjaninja78/shop-pos/internal/catalog"
	"github.com/ginjaninja78/shop-pos/internal/checkout"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/customer"
	"github.com/ginjaninja78/shop-pos/internal/journal"
	"github.com/ginjaninja78/shop-pos/internal/ledger"
	"github.com/ginjaninja78/shop-pos/internal/movement"
	"github.com/ginjaninja78/shop-pos/internal/report"
	"github.com/ginjaninja78/shop-pos/internal/stock"
	"github.com/ginjaninja78/shop-pos/pkg/utils"
	"github.com/rs/zerolog"
)

// Shop holds the open stores and services.
type Shop struct {
	Config *config.MainConfig
	Log    zerolog.Logger
	Clock  clock.Clock

	Catalog   *catalog.Store
	Deleted   *catalog.DeletedStore
	Ledger    *ledger.Ledger
	Customers *customer.Ledger
	Movements *movement.Log
	Journal   *journal.Journal

	Resolver  *barcode.Resolver
	Processor *checkout.Processor
	Stock     *stock.Service
	Reports   *report.Exporter
	Files     *utils.FileManager
}

// Open opens every store from cfg. A nil clk uses the system clock.
//
// RETURNS:
//   - The wired shop.
//   - An error if a store cannot be read or the configuration is invalid.
func Open(cfg *config.MainConfig, clk clock.Clock, log zerolog.Logger) (*Shop, error) {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Shop{Config: cfg, Log: log, Clock: clk}

	// =========================================================================
	// STEP 1: Catalog
	// =========================================================================
	deleted, err := catalog.OpenDeleted(cfg.DeletedProductsFile, cfg.Stock.DeletedRetention)
	if err != nil {
		return nil, fmt.Errorf("failed to open deleted products: %w", err)
	}
	s.Deleted = deleted

	s.Catalog, err = catalog.Open(catalog.Options{
		Path:     cfg.InventoryFile,
		Settings: cfg.CSV,
		Deleted:  deleted,
		Clock:    clk,
		User:     cfg.User,
		Log:      log.With().Str("store", "catalog").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// =========================================================================
	// STEP 2: Ledgers and logs
	// =========================================================================
	s.Ledger, err = ledger.Open(cfg.SalesFile, cfg.CSV, log.With().Str("store", "ledger").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to open sales ledger: %w", err)
	}

	pointValue, err := cfg.PointValue()
	if err != nil {
		return nil, err
	}
	s.Customers, err = customer.Open(customer.Options{
		Path:              cfg.CustomersFile,
		Clock:             clk,
		PointsPerCheckout: cfg.Loyalty.PointsPerCheckout,
		PointValue:        pointValue,
		Log:               log.With().Str("store", "customers").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open customers: %w", err)
	}

	s.Movements = movement.Open(cfg.StockMovementsFile, cfg.CSV, clk, cfg.User, log.With().Str("store", "movements").Logger())
	s.Journal = journal.New(cfg.JournalFile)

	// =========================================================================
	// STEP 3: Resolver
	// =========================================================================
	s.Resolver, err = barcode.NewResolver(s.Catalog, cfg.Resolver, log.With().Str("component", "resolver").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to build barcode resolver: %w", err)
	}

	// =========================================================================
	// STEP 4: Services
	// =========================================================================
	policy, err := checkout.PolicyByName(cfg.Checkout.DiscountPolicy)
	if err != nil {
		return nil, err
	}
	s.Processor = checkout.New(checkout.Options{
		Catalog:        s.Catalog,
		Ledger:         s.Ledger,
		Customers:      s.Customers,
		Movements:      s.Movements,
		Journal:        s.Journal,
		Clock:          clk,
		Policy:         policy,
		PaymentMethods: cfg.Checkout.PaymentMethods,
		Log:            log.With().Str("component", "checkout").Logger(),
	})

	s.Stock = stock.New(stock.Options{
		Catalog:   s.Catalog,
		Movements: s.Movements,
		Clock:     clk,
		Config:    cfg.Stock,
		Log:       log.With().Str("component", "stock").Logger(),
	})

	s.Reports = report.NewExporter(cfg.ReportsDir, log.With().Str("component", "reports").Logger())
	s.Files = utils.NewFileManager(cfg.BackupDir, cfg.ReportsDir, cfg.ReceiptsDir)
	if err := s.Files.EnsureDirectories(); err != nil {
		return nil, err
	}

	pending, err := s.Journal.Pending()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read pending transaction record")
	} else if pending != nil {
		log.Warn().
			Str("transaction", pending.TransactionID).
			Strs("steps", pending.Steps).
			Msg("Unfinished transaction found; run 'pos maintenance recover'")
	}

	log.Debug().
		Int("products", s.Catalog.Len()).
		Int("customers", s.Customers.Len()).
		Msg("Shop opened")
	return s, nil
}

// DataFiles lists the files a backup copies.
func (s *Shop) DataFiles() []string {
	return []string{
		s.Config.InventoryFile,
		s.Config.SalesFile,
		s.Config.CustomersFile,
		s.Config.StockMovementsFile,
		s.Config.DeletedProductsFile,
	}
}

// Backup copies the data files into a new labelled backup directory.
func (s *Shop) Backup(label string) (string, []string, error) {
	dir, copied, err := s.Files.Backup(label, s.DataFiles()...)
	if err != nil {
		return "", nil, err
	}
	s.Log.Info().Str("dir", dir).Int("files", len(copied)).Msg("Backup written")
	return dir, copied, nil
}

// ClearAllTransactions runs the clear-all maintenance over the data files.
func (s *Shop) ClearAllTransactions() (*checkout.ClearResult, error) {
	return s.Processor.ClearAllTransactions(s.Files, s.DataFiles()...)
}
