// =============================================================================
// Shop POS - Scan and Receipt Commands
// =============================================================================
//
// COMMAND USAGE:
//   pos scan <input>          show what a scan resolves to, without selling
//   pos receipt <txn> [--pdf] reprint a committed transaction
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/barcode"
	"github.com/spf13/cobra"
)

var receiptPDF bool

var scanCmd = &cobra.Command{
	Use:   "scan <input>",
	Short: "Resolve a barcode, serial number or name",
	Long: `Run the input through the resolver pipeline and print the product, the
matcher that answered and any rewrite rules applied. Ambiguous input lists
every candidate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()
		return printScan(cmd.OutOrStdout(), s.Resolver, strings.Join(args, " "))
	},
}

var receiptCmd = &cobra.Command{
	Use:   "receipt <txn>",
	Short: "Print the receipt of a committed transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()
		return printReceipt(cmd.OutOrStdout(), s, args[0], receiptPDF)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd, receiptCmd)
	receiptCmd.Flags().BoolVar(&receiptPDF, "pdf", false, "Also write a PDF receipt")
}

func printScan(out io.Writer, resolver *barcode.Resolver, input string) error {
	if scan := barcode.NewScan(input); barcode.IsDigits(scan.Code) {
		fmt.Fprintf(out, "Code:      %s\n", scan.Code)
	}

	match, err := resolver.Resolve(input)
	var amb *apperr.AmbiguousMatchError
	if errors.As(err, &amb) {
		fmt.Fprintf(out, "%q is ambiguous (%s):\n", input, amb.Strategy)
		for _, p := range resolver.Candidates(input) {
			fmt.Fprintf(out, "  %-30s %-15s qty %d\n", p.Name, p.Barcode, p.Quantity)
		}
		return nil
	}
	if err != nil {
		return err
	}

	p := match.Product
	fmt.Fprintf(out, "Product:   %s\n", p.Name)
	fmt.Fprintf(out, "Sr_No:     %d\n", p.SerialID)
	fmt.Fprintf(out, "Category:  %s\n", p.Category)
	fmt.Fprintf(out, "Barcode:   %s\n", p.Barcode)
	fmt.Fprintf(out, "MRP:       %s (SP5 %s, SP10 %s)\n", p.MRP.StringFixed(2), p.SP5.StringFixed(2), p.SP10.StringFixed(2))
	fmt.Fprintf(out, "Stock:     %d\n", p.Quantity)
	fmt.Fprintf(out, "Matched:   %s\n", match.Strategy)
	if match.NeedsConfirmation {
		fmt.Fprintln(out, "Confirm:   yes (prefix guess)")
	}
	if len(match.Rewrites) > 0 {
		fmt.Fprintf(out, "Rewrites:  %s\n", strings.Join(match.Rewrites, ", "))
	}
	return nil
}
