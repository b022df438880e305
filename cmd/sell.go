// =============================================================================
// Shop POS - Sell Commands
// =============================================================================
//
// One-shot sales from the command line.
//
// COMMAND USAGE:
//   pos sell --item <input>[:qty[:price]] ... [flags]
//   pos quicksale <input> <qty>
//   pos return <txn> <product> <qty>
//
// ITEM FORMAT:
//   input is anything the barcode resolver accepts (barcode, Sr_No, name).
//   qty defaults to 1. price is a number or one of mrp, sp5, sp10; the
//   default is mrp.
//
// SELL PIPELINE:
//   1. Open the shop
//   2. Resolve every item and build the cart
//   3. Commit the checkout
//   4. Print the receipt (and the PDF with --pdf)
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/cart"
	"github.com/ginjaninja78/shop-pos/internal/checkout"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/receipt"
	"github.com/ginjaninja78/shop-pos/internal/shop"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	sellItems    []string
	sellDiscount float64
	sellPhone    string
	sellName     string
	sellEmail    string
	sellPayment  string
	sellPDF      bool
	sellConfirm  bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var sellCmd = &cobra.Command{
	Use:   "sell",
	Short: "Check out a list of items",
	Long: `Resolve each --item, check stock for the whole cart and commit the sale.

Nothing is written unless every line can be sold. A blank --phone makes the
sale a walk-in sale that is not recorded in the customer ledger.

Prefix matches on a barcode are guesses and are refused unless --yes is set.`,
	Example: `  pos sell --item 8901058000290:3 --item "parle g:2:9" --discount 10 --phone 9876543210 --name Asha`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSell(cmd.OutOrStdout())
	},
}

var quicksaleCmd = &cobra.Command{
	Use:   "quicksale <input> <qty>",
	Short: "Sell one product at MRP to a walk-in customer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return apperr.Invalid("quantity %q is not a number", args[1])
		}
		return runQuickSale(cmd.OutOrStdout(), args[0], qty)
	},
}

var returnCmd = &cobra.Command{
	Use:   "return <txn> <product> <qty>",
	Short: "Return units of a sold line to stock",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return apperr.Invalid("quantity %q is not a number", args[2])
		}
		return runReturn(cmd.OutOrStdout(), args[0], args[1], qty)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(sellCmd, quicksaleCmd, returnCmd)

	// ==========================================================================
	// LOCAL FLAGS
	// ==========================================================================

	sellCmd.Flags().StringArrayVarP(&sellItems, "item", "i", nil, "Item as <input>[:qty[:price]] (repeatable)")
	sellCmd.Flags().Float64VarP(&sellDiscount, "discount", "d", 0, "Lump discount percent over the whole cart")
	sellCmd.Flags().StringVar(&sellPhone, "phone", "", "Customer phone; blank for a walk-in sale")
	sellCmd.Flags().StringVar(&sellName, "name", "", "Customer name")
	sellCmd.Flags().StringVar(&sellEmail, "email", "", "Customer email")
	sellCmd.Flags().StringVar(&sellPayment, "payment", "", "Payment method (default from config)")
	sellCmd.Flags().BoolVar(&sellPDF, "pdf", false, "Also write a PDF receipt")
	sellCmd.Flags().BoolVarP(&sellConfirm, "yes", "y", false, "Accept barcode prefix guesses")
	sellCmd.MarkFlagRequired("item")
}

// =============================================================================
// SELL
// =============================================================================

func runSell(out io.Writer) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: OPEN THE SHOP
	// =========================================================================
	s, done, err := openShop()
	if err != nil {
		return err
	}
	defer done()

	// =========================================================================
	// STEP 2: BUILD THE CART
	// =========================================================================
	c := cart.New(s.Catalog)
	for _, arg := range sellItems {
		item, err := parseItemArg(arg)
		if err != nil {
			return err
		}
		match, err := s.Resolver.Resolve(item.Input)
		if err != nil {
			return err
		}
		if match.NeedsConfirmation && !sellConfirm {
			return fmt.Errorf("%q only matched %s by %s; rerun with --yes to accept", item.Input, match.Product.Name, match.Strategy)
		}
		price, err := unitPrice(match.Product, item.Price)
		if err != nil {
			return err
		}
		if err := c.Add(match.Product, item.Quantity, price); err != nil {
			return err
		}
		fmt.Fprintf(out, "  + %-30s x%-4d @ %s  (%s)\n", match.Product.Name, item.Quantity, price.StringFixed(2), match.Strategy)
	}

	// =========================================================================
	// STEP 3: COMMIT
	// =========================================================================
	payment := sellPayment
	if payment == "" {
		payment = s.Config.Checkout.DefaultPaymentMethod
	}
	res, err := s.Processor.Checkout(checkout.Request{
		Items:           c.Items(),
		Customer:        domain.CustomerInfo{Name: sellName, Phone: sellPhone, Email: sellEmail},
		PaymentMethod:   payment,
		DiscountPercent: decimal.NewFromFloat(sellDiscount),
	})
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 4: RECEIPT
	// =========================================================================
	if err := printReceipt(out, s, res.TransactionID, sellPDF); err != nil {
		return err
	}
	printCommitSummary(out, res, time.Since(startTime))
	return nil
}

// =============================================================================
// QUICK SALE AND RETURN
// =============================================================================

func runQuickSale(out io.Writer, input string, qty int) error {
	s, done, err := openShop()
	if err != nil {
		return err
	}
	defer done()

	match, err := s.Resolver.Resolve(input)
	if err != nil {
		return err
	}
	if match.NeedsConfirmation {
		return fmt.Errorf("%q only matched %s by %s; use the full barcode or name", input, match.Product.Name, match.Strategy)
	}

	res, err := s.Processor.QuickSale(match.Product.Name, qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Quick sale %s: %d x %s = %s\n", res.TransactionID, qty, match.Product.Name, res.Final.StringFixed(2))
	for _, ch := range res.StockChanges {
		fmt.Fprintf(out, "  stock %s: %d -> %d\n", ch.Product, ch.Before, ch.After)
	}
	return nil
}

func runReturn(out io.Writer, txnID, product string, qty int) error {
	s, done, err := openShop()
	if err != nil {
		return err
	}
	defer done()

	res, err := s.Processor.Return(txnID, product, qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Returned %d x %s from %s\n", res.Quantity, res.ProductName, res.TransactionID)
	fmt.Fprintf(out, "Refund:    %s\n", res.Refund.StringFixed(2))
	fmt.Fprintf(out, "Stock:     %d -> %d\n", res.Stock.Before, res.Stock.After)
	fmt.Fprintf(out, "Remaining: %d returnable\n", res.Remaining)
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// itemArg is one parsed --item value.
type itemArg struct {
	Input    string
	Quantity int
	Price    string
}

// parseItemArg splits <input>[:qty[:price]]. Trailing fields are only
// taken as qty and price when they parse, so names containing ':' survive.
func parseItemArg(arg string) (itemArg, error) {
	item := itemArg{Input: strings.TrimSpace(arg), Quantity: 1}
	parts := strings.Split(item.Input, ":")

	if n := len(parts); n >= 3 && isPriceArg(parts[n-1]) {
		if qty, err := strconv.Atoi(strings.TrimSpace(parts[n-2])); err == nil {
			item.Input = strings.Join(parts[:n-2], ":")
			item.Quantity = qty
			item.Price = strings.TrimSpace(parts[n-1])
			parts = nil
		}
	}
	if n := len(parts); n >= 2 {
		if qty, err := strconv.Atoi(strings.TrimSpace(parts[n-1])); err == nil {
			item.Input = strings.Join(parts[:n-1], ":")
			item.Quantity = qty
		}
	}

	item.Input = strings.TrimSpace(item.Input)
	if item.Input == "" {
		return item, apperr.Invalid("item %q has no product", arg)
	}
	if item.Quantity < 1 {
		return item, apperr.Invalid("item %q: quantity must be at least 1", arg)
	}
	return item, nil
}

func isPriceArg(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch domain.PriceTier(s) {
	case domain.PriceMRP, domain.PriceSP5, domain.PriceSP10:
		return true
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// unitPrice returns the price named by arg: a tier name, a number, or
// empty for MRP.
func unitPrice(p domain.Product, arg string) (decimal.Decimal, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch domain.PriceTier(arg) {
	case "", domain.PriceMRP:
		return p.Price(domain.PriceMRP), nil
	case domain.PriceSP5, domain.PriceSP10:
		return p.Price(domain.PriceTier(arg)), nil
	}
	price, err := decimal.NewFromString(arg)
	if err != nil {
		return decimal.Zero, apperr.Invalid("price %q is not a number or tier", arg)
	}
	if price.IsNegative() {
		return decimal.Zero, apperr.Invalid("price cannot be negative")
	}
	return price, nil
}

// printReceipt projects a committed transaction and prints it. With pdf
// set the PDF copy is written to the receipts directory.
func printReceipt(out io.Writer, s *shop.Shop, txnID string, pdf bool) error {
	r, err := receipt.Project(txnID, s.Ledger.Lines(), s.Catalog.Products())
	if err != nil {
		return err
	}
	if err := receipt.WriteText(out, r, s.Config.Shop); err != nil {
		return err
	}
	if pdf {
		path, err := receipt.WritePDF(s.Config.ReceiptsDir, r, s.Config.Shop)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nPDF receipt: %s\n", path)
	}
	return nil
}

func printCommitSummary(out io.Writer, res *checkout.Result, elapsed time.Duration) {
	fmt.Fprintln(out, "\n=== Sale Complete ===")
	fmt.Fprintf(out, "Transaction:   %s\n", res.TransactionID)
	fmt.Fprintf(out, "Lines:         %d\n", res.Stats.Lines)
	fmt.Fprintf(out, "Units:         %d\n", res.Stats.Units)
	fmt.Fprintf(out, "Total:         %s\n", res.Final.StringFixed(2))
	if res.Customer != nil {
		fmt.Fprintf(out, "Customer:      %s (%d points)\n", res.Customer.Name, res.Customer.LoyaltyPoints)
	}
	fmt.Fprintf(out, "Time elapsed:  %s\n", elapsed)
}
