// =============================================================================
// Shop POS - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (pos)
//   ├── scan, register, sell, quicksale, return, receipt
//   ├── product (list, find, add, edit, delete, restore, deleted)
//   ├── barcode (assign, remove)
//   ├── stock (adjust, purchase, low, movements)
//   ├── customer (add, show, list, edit, note, points, redeem, delete, rebuild)
//   ├── report (sales, daily, inventory, lowstock, customers)
//   ├── import (catalog)
//   ├── maintenance (clear-transactions, recover, backup)
//   └── version
//
// CONFIGURATION:
//   openShop loads .env, the main config file and the POS_* environment,
//   builds the zerolog logger and opens every store.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/logging"
	"github.com/ginjaninja78/shop-pos/internal/shop"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile is loaded into the environment before the config file is read.
var envFile string

// verbose enables debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "pos",
	Short: "Shop POS - point of sale and inventory for a single shop",
	Long: `Shop POS keeps a product catalog, a sales ledger and a customer ledger in
flat files and runs the till on top of them.

Key Features:
  - Barcode resolution through a configurable matcher pipeline
  - All-or-nothing checkout with journal-based crash recovery
  - Purchases, stock adjustments, returns and quick sales
  - Customer loyalty points
  - Text and PDF receipts, XLSX reports and catalog import

Example Usage:
  pos scan 8901058000290               # Show what a barcode resolves to
  pos register                         # Interactive till session
  pos sell --item maggi:3 --phone 9876543210 --discount 10
  pos report daily --from 2026-03-01`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Optional KEY=VALUE file loaded before the configuration",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHOP BOOTSTRAP
// =============================================================================

// openShop loads the configuration and opens every store. The returned
// function closes the log file and must be called when the command ends.
func openShop() (*shop.Shop, func(), error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load main config: %w", err)
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:   mainConfig.LogLevel,
		File:    mainConfig.LogFile,
		Verbose: verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	done := func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	}

	s, err := shop.Open(mainConfig, nil, log)
	if err != nil {
		done()
		return nil, nil, err
	}
	return s, done, nil
}
