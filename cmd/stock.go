// =============================================================================
// Shop POS - Stock Commands
// =============================================================================
//
// COMMAND USAGE:
//   pos stock adjust <name> <set|add|subtract> <qty> [--reason R]
//   pos stock purchase --supplier S [--invoice I] --item "name:qty:cost[:mrp]" ...
//   pos stock low [--threshold N]
//   pos stock movements [--product P] [--type T] [--ref R] [--limit N]
//
// =============================================================================

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/movement"
	"github.com/ginjaninja78/shop-pos/internal/stock"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	adjustReason string

	purchaseSupplier string
	purchaseInvoice  string
	purchaseItems    []string
	purchaseCategory string

	lowThreshold int

	movementProduct string
	movementType    string
	movementRef     string
	movementLimit   int
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Adjust stock, receive purchases and review movements",
}

var stockAdjustCmd = &cobra.Command{
	Use:   "adjust <name> <set|add|subtract> <qty>",
	Short: "Correct a product's stock level",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return apperr.Invalid("quantity %q is not a number", args[2])
		}
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		res, err := s.Stock.Adjust(args[0], strings.ToLower(args[1]), qty, adjustReason)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !res.Changed {
			fmt.Fprintf(out, "%s unchanged at %d\n", res.Change.Product, res.Change.After)
			return nil
		}
		fmt.Fprintf(out, "%s: %d -> %d (%s)\n", res.Change.Product, res.Change.Before, res.Change.After, res.Reference)
		return nil
	},
}

var stockPurchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Receive a supplier invoice into stock",
	Long: `Receive every --item into stock in one step. Existing products get a
weighted average cost and, when an MRP is given, new selling prices. Unknown
products are created and need an MRP. If any line fails nothing is applied.`,
	Example: `  pos stock purchase --supplier "Nestle" --invoice INV-221 --item "MAGGI NOODLES:48:11.5" --item "KIT KAT:24:18:25"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items := make([]stock.PurchaseItem, 0, len(purchaseItems))
		for _, arg := range purchaseItems {
			item, err := parsePurchaseItem(arg)
			if err != nil {
				return err
			}
			item.Category = purchaseCategory
			items = append(items, item)
		}

		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		res, err := s.Stock.Purchase(purchaseSupplier, purchaseInvoice, items)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Purchase %s from %s %s\n", res.PurchaseID, res.Supplier, res.Invoice)
		fmt.Fprintln(tw, "PRODUCT\tQTY\tUNIT COST\tAVG COST\tSTOCK\tNEW")
		for _, l := range res.Lines {
			created := ""
			if l.Created {
				created = "yes"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d -> %d\t%s\n",
				l.Product.Name, l.Quantity, l.UnitCost.StringFixed(2), l.Product.CostPrice.StringFixed(2),
				l.Change.Before, l.Change.After, created)
		}
		fmt.Fprintf(tw, "TOTAL\t\t%s\t\t\t\n", res.Total.StringFixed(2))
		return tw.Flush()
	},
}

var stockLowCmd = &cobra.Command{
	Use:   "low",
	Short: "List products that need restocking",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		suggestions := s.Stock.LowStock(lowThreshold)
		out := cmd.OutOrStdout()
		if len(suggestions) == 0 {
			fmt.Fprintln(out, "No products at or below the threshold.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PRIORITY\tPRODUCT\tCATEGORY\tSTOCK\tORDER\tEST. VALUE")
		total := decimal.Zero
		for _, sg := range suggestions {
			total = total.Add(sg.EstimatedValue)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				sg.Priority, sg.Product.Name, sg.Product.Category, sg.Product.Quantity, sg.SuggestedQty, sg.EstimatedValue.StringFixed(2))
		}
		fmt.Fprintf(tw, "\t%d products\t\t\t\t%s\n", len(suggestions), total.StringFixed(2))
		return tw.Flush()
	},
}

var stockMovementsCmd = &cobra.Command{
	Use:   "movements",
	Short: "Show the stock movement log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		moves, err := s.Movements.List(movement.Filter{
			Product:   movementProduct,
			Type:      domain.MovementType(strings.ToUpper(movementType)),
			Reference: movementRef,
			Limit:     movementLimit,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, m := range moves {
			fmt.Fprintln(out, movement.String(m))
		}
		fmt.Fprintf(out, "%d movement(s)\n", len(moves))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stockCmd)
	stockCmd.AddCommand(stockAdjustCmd, stockPurchaseCmd, stockLowCmd, stockMovementsCmd)

	stockAdjustCmd.Flags().StringVar(&adjustReason, "reason", stock.DefaultReason, "Reason recorded on the movement")

	stockPurchaseCmd.Flags().StringVar(&purchaseSupplier, "supplier", "", "Supplier name")
	stockPurchaseCmd.Flags().StringVar(&purchaseInvoice, "invoice", "", "Supplier invoice number")
	stockPurchaseCmd.Flags().StringArrayVar(&purchaseItems, "item", nil, "Line as name:qty:cost[:mrp] (repeatable)")
	stockPurchaseCmd.Flags().StringVar(&purchaseCategory, "category", "", "Category for products created by this purchase")
	stockPurchaseCmd.MarkFlagRequired("supplier")
	stockPurchaseCmd.MarkFlagRequired("item")

	stockLowCmd.Flags().IntVar(&lowThreshold, "threshold", -1, "Stock level to report at or below (default from config)")

	stockMovementsCmd.Flags().StringVar(&movementProduct, "product", "", "Only this product")
	stockMovementsCmd.Flags().StringVar(&movementType, "type", "", "Only this movement type, e.g. SALE, PURCHASE, RETURN")
	stockMovementsCmd.Flags().StringVar(&movementRef, "ref", "", "Only this reference (transaction or purchase id)")
	stockMovementsCmd.Flags().IntVar(&movementLimit, "limit", 50, "Show at most the last N movements (0 for all)")
}

// parsePurchaseItem splits name:qty:cost[:mrp]. Fields are taken from the
// right so names may contain ':'.
func parsePurchaseItem(arg string) (stock.PurchaseItem, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 3 {
		return stock.PurchaseItem{}, apperr.Invalid("purchase item %q must be name:qty:cost[:mrp]", arg)
	}

	mrp := decimal.Zero
	if len(parts) >= 4 {
		if v, err := decimal.NewFromString(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			if _, err := decimal.NewFromString(strings.TrimSpace(parts[len(parts)-2])); err == nil {
				if _, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-3])); err == nil {
					mrp = v
					parts = parts[:len(parts)-1]
				}
			}
		}
	}

	n := len(parts)
	qty, err := strconv.Atoi(strings.TrimSpace(parts[n-2]))
	if err != nil {
		return stock.PurchaseItem{}, apperr.Invalid("purchase item %q: quantity %q is not a number", arg, parts[n-2])
	}
	cost, err := decimal.NewFromString(strings.TrimSpace(parts[n-1]))
	if err != nil {
		return stock.PurchaseItem{}, apperr.Invalid("purchase item %q: cost %q is not a number", arg, parts[n-1])
	}
	return stock.PurchaseItem{
		ProductName: strings.TrimSpace(strings.Join(parts[:n-2], ":")),
		Quantity:    qty,
		UnitCost:    cost,
		MRP:         mrp,
	}, nil
}
