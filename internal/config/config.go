// =============================================================================
// Shop POS - Configuration Module
// =============================================================================
//
// This module loads the main application configuration. Every path the
// stores use comes from here; nothing in the business packages hardcodes
// a file location.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. Main config file (config.yaml, --config flag)
//   3. .env file in the working directory (godotenv)
//   4. POS_* environment variables (viper)
//
// ARCHITECTURE:
//   - Shop      : receipt header details
//   - Files     : inventory, ledger, customers, movements, journal, backups
//   - Checkout  : discount policy and payment methods
//   - Loyalty   : points earned per checkout and the redemption rate
//   - Resolver  : barcode matcher pipeline, aliases, rewrite rules
//   - Stock     : low-stock threshold, restock rule, deleted-product retention
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// Shop is printed at the top of every receipt.
	Shop ShopConfig `yaml:"shop"`

	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// InventoryFile is the catalog table.
	// Default: "./inventory_master.csv"
	InventoryFile string `yaml:"inventory_file"`

	// DataDir holds the ledger, customer and movement files.
	// Default: "./data"
	DataDir string `yaml:"data_dir"`

	// The following default to fixed names inside DataDir.
	SalesFile           string `yaml:"sales_file"`
	CustomersFile       string `yaml:"customers_file"`
	StockMovementsFile  string `yaml:"stock_movements_file"`
	DeletedProductsFile string `yaml:"deleted_products_file"`
	JournalFile         string `yaml:"journal_file"`

	// BackupDir receives copies of the data files before maintenance runs.
	// Default: "./backups"
	BackupDir string `yaml:"backup_dir"`

	// ReportsDir receives XLSX exports.
	// Default: "./reports"
	ReportsDir string `yaml:"reports_dir"`

	// ReceiptsDir receives PDF receipts.
	// Default: "./receipts"
	ReceiptsDir string `yaml:"receipts_dir"`

	// CSV controls how the flat files are read.
	CSV CSVSettings `yaml:"csv"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional JSON log sink. Empty means console only.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// User is recorded on stock movements.
	// Default: "Admin"
	User string `yaml:"user"`

	Checkout CheckoutConfig `yaml:"checkout"`
	Loyalty  LoyaltyConfig  `yaml:"loyalty"`
	Resolver ResolverConfig `yaml:"resolver"`
	Stock    StockConfig    `yaml:"stock"`
}

// ShopConfig is the receipt header.
type ShopConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	TaxID   string `yaml:"tax_id"`
	Footer  string `yaml:"footer"`
}

// CSVSettings contains the settings for reading the flat files.
type CSVSettings struct {
	// Delimiter is the field separator. "tab", "pipe" and "semicolon" are
	// accepted as names.
	// Default: ","
	Delimiter string `yaml:"delimiter"`
}

// CheckoutConfig controls the checkout processor.
type CheckoutConfig struct {
	// DiscountPolicy decides how a lump discount is split across lines.
	// Valid values: "even", "proportional"
	// Default: "even"
	DiscountPolicy string `yaml:"discount_policy"`

	// PaymentMethods lists the accepted payment methods.
	// Default: Cash, Card, UPI, Credit
	PaymentMethods []string `yaml:"payment_methods"`

	// DefaultPaymentMethod is used when none is given.
	// Default: "Cash"
	DefaultPaymentMethod string `yaml:"default_payment_method"`
}

// LoyaltyConfig controls loyalty points.
type LoyaltyConfig struct {
	// PointsPerCheckout is credited once per tracked checkout.
	// Default: 1
	PointsPerCheckout int `yaml:"points_per_checkout"`

	// PointValue is the currency value of one point.
	// Default: "0.1"
	PointValue string `yaml:"point_value"`
}

// ResolverConfig controls the barcode resolution pipeline.
type ResolverConfig struct {
	// Pipeline is the ordered list of matchers. First match wins.
	// Valid values: "alias", "exact", "prefix", "serial", "name"
	// Default: alias, exact, prefix, serial, name
	Pipeline []string `yaml:"pipeline"`

	// PrefixMinDigits and PrefixMaxDigits bound the prefix matcher.
	// Default: 8 and 10
	PrefixMinDigits int `yaml:"prefix_min_digits"`
	PrefixMaxDigits int `yaml:"prefix_max_digits"`

	// Aliases maps a scanned code to the stored barcode it stands for.
	// Known-bad labels are fixed here instead of in code.
	Aliases map[string]string `yaml:"aliases"`

	// RewriteRules are applied to every scan after normalization.
	RewriteRules []RewriteRule `yaml:"rewrite_rules"`
}

// RewriteRule is an ordered list of actions applied to scans that match.
type RewriteRule struct {
	// Name is used in logs.
	Name string `yaml:"name"`

	// Match is an optional regular expression. Empty matches every scan.
	Match string `yaml:"match"`

	Actions []RewriteAction `yaml:"actions"`
}

// RewriteAction is a single rewrite step.
//
// SUPPORTED TYPES:
//   - strip_prefix  : remove Value from the start
//   - strip_suffix  : remove Value from the end
//   - prepend       : add Value to the start
//   - replace       : replace every Pattern with Value
//   - regex_replace : replace every match of Pattern with Value
//   - pad_left      : left-pad with Value (default "0") to Length
//   - truncate      : keep the first Length characters
//   - digits_only   : drop every non-digit
type RewriteAction struct {
	Type    string `yaml:"type"`
	Value   string `yaml:"value,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
	Length  int    `yaml:"length,omitempty"`
}

// StockConfig controls stock reports and the deleted-products store.
type StockConfig struct {
	// LowStockThreshold flags products at or below this quantity.
	// Default: 10
	LowStockThreshold int `yaml:"low_stock_threshold"`

	// RestockMinimum and RestockBuffer drive the suggested order
	// quantity: max(RestockMinimum, current + RestockBuffer).
	// Default: 20 and 50
	RestockMinimum int `yaml:"restock_minimum"`
	RestockBuffer  int `yaml:"restock_buffer"`

	// DeletedRetention caps the deleted-products store.
	// Default: 50
	DeletedRetention int `yaml:"deleted_retention"`
}

// Matcher names accepted in Resolver.Pipeline.
var KnownMatchers = []string{"alias", "exact", "prefix", "serial", "name"}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     is not an error; defaults and environment overrides still apply.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be parsed or the result is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&config, newEnv())
	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process
// environment. A missing file is ignored. Variables already set win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// newEnv returns a viper instance bound to POS_* environment variables.
func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("POS")
	v.AutomaticEnv()
	return v
}

// applyEnvOverrides copies POS_* variables over the file values.
func applyEnvOverrides(config *MainConfig, v *viper.Viper) {
	overrides := map[string]*string{
		"data_dir":        &config.DataDir,
		"inventory_file":  &config.InventoryFile,
		"log_level":       &config.LogLevel,
		"log_file":        &config.LogFile,
		"discount_policy": &config.Checkout.DiscountPolicy,
		"shop_name":       &config.Shop.Name,
		"user":            &config.User,
	}
	for key, field := range overrides {
		if v.IsSet(key) {
			*field = v.GetString(key)
		}
	}
	if v.IsSet("low_stock_threshold") {
		config.Stock.LowStockThreshold = v.GetInt("low_stock_threshold")
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.Shop.Name == "" {
		config.Shop.Name = "General Store"
	}
	if config.Shop.Footer == "" {
		config.Shop.Footer = "Thank you for shopping with us!"
	}
	if config.InventoryFile == "" {
		config.InventoryFile = "./inventory_master.csv"
	}
	if config.DataDir == "" {
		config.DataDir = "./data"
	}
	if config.SalesFile == "" {
		config.SalesFile = filepath.Join(config.DataDir, "sales_transactions.csv")
	}
	if config.CustomersFile == "" {
		config.CustomersFile = filepath.Join(config.DataDir, "customers.json")
	}
	if config.StockMovementsFile == "" {
		config.StockMovementsFile = filepath.Join(config.DataDir, "stock_movements.csv")
	}
	if config.DeletedProductsFile == "" {
		config.DeletedProductsFile = filepath.Join(config.DataDir, "deleted_products.json")
	}
	if config.JournalFile == "" {
		config.JournalFile = filepath.Join(config.DataDir, "pending_transaction.json")
	}
	if config.BackupDir == "" {
		config.BackupDir = "./backups"
	}
	if config.ReportsDir == "" {
		config.ReportsDir = "./reports"
	}
	if config.ReceiptsDir == "" {
		config.ReceiptsDir = "./receipts"
	}
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.User == "" {
		config.User = "Admin"
	}

	// Checkout defaults.
	if config.Checkout.DiscountPolicy == "" {
		config.Checkout.DiscountPolicy = "even"
	}
	if len(config.Checkout.PaymentMethods) == 0 {
		config.Checkout.PaymentMethods = []string{"Cash", "Card", "UPI", "Credit"}
	}
	if config.Checkout.DefaultPaymentMethod == "" {
		config.Checkout.DefaultPaymentMethod = config.Checkout.PaymentMethods[0]
	}

	// Loyalty defaults.
	if config.Loyalty.PointsPerCheckout == 0 {
		config.Loyalty.PointsPerCheckout = 1
	}
	if config.Loyalty.PointValue == "" {
		config.Loyalty.PointValue = "0.1"
	}

	// Resolver defaults.
	if len(config.Resolver.Pipeline) == 0 {
		config.Resolver.Pipeline = slices.Clone(KnownMatchers)
	}
	if config.Resolver.PrefixMinDigits == 0 {
		config.Resolver.PrefixMinDigits = 8
	}
	if config.Resolver.PrefixMaxDigits == 0 {
		config.Resolver.PrefixMaxDigits = 10
	}

	// Stock defaults.
	if config.Stock.LowStockThreshold == 0 {
		config.Stock.LowStockThreshold = 10
	}
	if config.Stock.RestockMinimum == 0 {
		config.Stock.RestockMinimum = 20
	}
	if config.Stock.RestockBuffer == 0 {
		config.Stock.RestockBuffer = 50
	}
	if config.Stock.DeletedRetention == 0 {
		config.Stock.DeletedRetention = 50
	}
}

// validateMainConfig validates the main configuration and creates the
// directories the stores write into.
func validateMainConfig(config *MainConfig) error {
	switch config.Checkout.DiscountPolicy {
	case "even", "proportional":
	default:
		return fmt.Errorf("unknown discount_policy %q", config.Checkout.DiscountPolicy)
	}

	if !slices.Contains(config.Checkout.PaymentMethods, config.Checkout.DefaultPaymentMethod) {
		return fmt.Errorf("default_payment_method %q is not in payment_methods", config.Checkout.DefaultPaymentMethod)
	}

	if _, err := config.PointValue(); err != nil {
		return err
	}

	for _, name := range config.Resolver.Pipeline {
		if !slices.Contains(KnownMatchers, strings.ToLower(name)) {
			return fmt.Errorf("unknown resolver matcher %q", name)
		}
	}
	if config.Resolver.PrefixMinDigits < 1 || config.Resolver.PrefixMinDigits > config.Resolver.PrefixMaxDigits {
		return fmt.Errorf("invalid prefix digits range %d..%d", config.Resolver.PrefixMinDigits, config.Resolver.PrefixMaxDigits)
	}

	if config.Stock.LowStockThreshold < 0 || config.Stock.DeletedRetention < 1 {
		return fmt.Errorf("stock thresholds must be positive")
	}

	dirs := []string{
		config.DataDir,
		filepath.Dir(config.InventoryFile),
		filepath.Dir(config.SalesFile),
		filepath.Dir(config.CustomersFile),
		filepath.Dir(config.JournalFile),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// PointValue returns the configured value of one loyalty point.
func (c *MainConfig) PointValue() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(c.Loyalty.PointValue)
	if err != nil || v.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid loyalty point_value %q", c.Loyalty.PointValue)
	}
	return v, nil
}

// Comma returns the delimiter rune for the CSV settings.
func (s CSVSettings) Comma() rune {
	switch s.Delimiter {
	case "\\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	default:
		if len(s.Delimiter) > 0 {
			return rune(s.Delimiter[0])
		}
		return ','
	}
}
