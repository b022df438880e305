// =============================================================================
// Shop POS - Product and Barcode Commands
// =============================================================================
//
// COMMAND USAGE:
//   pos product list [--category C] [--low]
//   pos product find <term>
//   pos product add --name N --mrp M [--cost C] [--qty Q] [--category C] [--barcode B]
//   pos product edit <name> [--name N] [--mrp M] [--cost C] [--sp5 P] [--sp10 P] [--category C]
//   pos product delete <name>
//   pos product restore <name>
//   pos product deleted
//   pos product purge <name>
//   pos barcode assign <name> <code> [--reassign]
//   pos barcode remove <name>
//
// Stock quantities are changed through 'pos stock', never here, so every
// change is in the movement log.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	productCategory string
	productLow      bool

	productName    string
	productCost    string
	productMRP     string
	productSP5     string
	productSP10    string
	productQty     int
	productBarcode string

	barcodeReassign bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage the product catalog",
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		var products []domain.Product
		for _, p := range s.Catalog.Products() {
			if productCategory != "" && !strings.EqualFold(p.Category, productCategory) {
				continue
			}
			if productLow && p.Quantity > s.Config.Stock.LowStockThreshold {
				continue
			}
			products = append(products, p)
		}
		if err := printProducts(cmd.OutOrStdout(), products); err != nil {
			return err
		}
		if n := s.Catalog.Unreadable(); n > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d unreadable row(s) in %s are kept but not listed\n", n, s.Catalog.Path())
		}
		return nil
	},
}

var productFindCmd = &cobra.Command{
	Use:   "find <term>",
	Short: "Find products by name substring",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		hits := s.Catalog.FindBySubstring(strings.Join(args, " "))
		if len(hits) == 0 {
			return apperr.NotFound(strings.Join(args, " "))
		}
		return printProducts(cmd.OutOrStdout(), hits)
	},
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		cost, err := parseMoneyFlag("cost", productCost)
		if err != nil {
			return err
		}
		mrp, err := parseMoneyFlag("mrp", productMRP)
		if err != nil {
			return err
		}
		in := validation.ProductInput{
			Name:      productName,
			Category:  productCategory,
			CostPrice: cost,
			MRP:       mrp,
			Quantity:  productQty,
			Barcode:   productBarcode,
		}
		result := validation.New().Product(in)
		for _, w := range result.Warnings() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", w)
		}
		if err := result.Err(); err != nil {
			return err
		}

		p, err := s.Catalog.Add(in.Product())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) at MRP %s, stock %d\n", p.Name, p.Category, p.MRP.StringFixed(2), p.Quantity)
		return nil
	},
}

var productEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a product's name, prices or category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		flags := cmd.Flags()
		p, err := s.Catalog.Update(args[0], func(p *domain.Product) error {
			if flags.Changed("name") {
				p.Name = productName
			}
			if flags.Changed("category") {
				p.Category = productCategory
			}
			if flags.Changed("cost") {
				v, err := parseMoneyFlag("cost", productCost)
				if err != nil {
					return err
				}
				p.CostPrice = v
			}
			if flags.Changed("mrp") {
				v, err := parseMoneyFlag("mrp", productMRP)
				if err != nil {
					return err
				}
				p.MRP = v
				p.RecomputeSellingPrices()
			}
			if flags.Changed("sp5") {
				v, err := parseMoneyFlag("sp5", productSP5)
				if err != nil {
					return err
				}
				p.SP5 = v
			}
			if flags.Changed("sp10") {
				v, err := parseMoneyFlag("sp10", productSP10)
				if err != nil {
					return err
				}
				p.SP10 = v
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: MRP %s, SP5 %s, SP10 %s, cost %s, %s\n",
			p.Name, p.MRP.StringFixed(2), p.SP5.StringFixed(2), p.SP10.StringFixed(2), p.CostPrice.StringFixed(2), p.Category)
		return nil
	},
}

var productDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Move a product to the recently-deleted list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		p, err := s.Catalog.SoftDelete(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (stock %d). Restore with 'pos product restore'.\n", p.Name, p.Quantity)
		return nil
	},
}

var productRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Bring back a recently-deleted product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		p, err := s.Catalog.Restore(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s as Sr_No %d\n", p.Name, p.SerialID)
		if p.Barcode == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Note: the product has no barcode.")
		}
		return nil
	},
}

var productPurgeCmd = &cobra.Command{
	Use:   "purge <name>",
	Short: "Drop a product from the recently-deleted list for good",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		if err := s.Deleted.Purge(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", args[0])
		return nil
	},
}

var productDeletedCmd = &cobra.Command{
	Use:   "deleted",
	Short: "List recently-deleted products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DELETED AT\tBY\tPRODUCT\tQTY\tMRP\tBARCODE")
		for _, d := range s.Catalog.Deleted() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				d.DeletedAt, d.DeletedBy, d.Product.Name, d.Product.Quantity, d.Product.MRP.StringFixed(2), d.Product.Barcode)
		}
		return tw.Flush()
	},
}

var barcodeCmd = &cobra.Command{
	Use:   "barcode",
	Short: "Assign or remove product barcodes",
}

var barcodeAssignCmd = &cobra.Command{
	Use:   "assign <name> <code>",
	Short: "Store a barcode on a product",
	Long: `Store a barcode on a product. If another product already holds the code
the command fails unless --reassign is set, which moves the code.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		p, err := s.Catalog.AssignBarcode(args[0], args[1], barcodeReassign)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now has barcode %s\n", p.Name, p.Barcode)
		return nil
	},
}

var barcodeRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Clear a product's barcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		p, err := s.Catalog.RemoveBarcode(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed barcode from %s\n", p.Name)
		return nil
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(productCmd, barcodeCmd)
	productCmd.AddCommand(productListCmd, productFindCmd, productAddCmd, productEditCmd,
		productDeleteCmd, productRestoreCmd, productDeletedCmd, productPurgeCmd)
	barcodeCmd.AddCommand(barcodeAssignCmd, barcodeRemoveCmd)

	productListCmd.Flags().StringVar(&productCategory, "category", "", "Only this category")
	productListCmd.Flags().BoolVar(&productLow, "low", false, "Only products at or below the low-stock threshold")

	for _, c := range []*cobra.Command{productAddCmd, productEditCmd} {
		c.Flags().StringVar(&productName, "name", "", "Product name")
		c.Flags().StringVar(&productCategory, "category", "", "Category (guessed from the name when blank)")
		c.Flags().StringVar(&productCost, "cost", "0", "Cost price")
		c.Flags().StringVar(&productMRP, "mrp", "", "Maximum retail price")
	}
	productAddCmd.Flags().IntVar(&productQty, "qty", 0, "Opening stock")
	productAddCmd.Flags().StringVar(&productBarcode, "barcode", "", "Barcode")
	productAddCmd.MarkFlagRequired("name")
	productAddCmd.MarkFlagRequired("mrp")
	productEditCmd.Flags().StringVar(&productSP5, "sp5", "", "Selling price option 1")
	productEditCmd.Flags().StringVar(&productSP10, "sp10", "", "Selling price option 2")

	barcodeAssignCmd.Flags().BoolVar(&barcodeReassign, "reassign", false, "Take the code from the product that holds it")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func parseMoneyFlag(name, value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, apperr.Invalid("--%s %q is not a number", name, value)
	}
	if d.IsNegative() {
		return decimal.Zero, apperr.Invalid("--%s cannot be negative", name)
	}
	return d, nil
}

func printProducts(out io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SR\tPRODUCT\tCATEGORY\tQTY\tCOST\tMRP\tSP5\tSP10\tBARCODE\t")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			p.SerialID, p.Name, p.Category, p.Quantity, p.CostPrice.StringFixed(2),
			p.MRP.StringFixed(2), p.SP5.StringFixed(2), p.SP10.StringFixed(2), p.Barcode)
	}
	fmt.Fprintf(tw, "\t%d products\t\t\t\t\t\t\t\t\n", len(products))
	return tw.Flush()
}
