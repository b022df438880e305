// =============================================================================
// Shop POS - Report and Import Commands
// =============================================================================
//
// COMMAND USAGE:
//   pos report sales     [--from D] [--to D]
//   pos report daily     [--from D] [--to D]
//   pos report inventory
//   pos report lowstock  [--threshold N]
//   pos report customers
//   pos import catalog <file.xlsx>
//
// Every report is written as an XLSX workbook into the reports directory.
// Dates are YYYY-MM-DD; an omitted bound is open.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/clock"
	"github.com/ginjaninja78/shop-pos/internal/report"
	"github.com/ginjaninja78/shop-pos/internal/shop"
	"github.com/spf13/cobra"
)

var (
	reportFrom      string
	reportTo        string
	reportThreshold int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write XLSX reports",
}

// newReportCmd builds one report subcommand around a sheet builder.
func newReportCmd(name, short string, build func(s *shop.Shop) ([]report.Sheet, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDateRange(reportFrom, reportTo); err != nil {
				return err
			}
			s, done, err := openShop()
			if err != nil {
				return err
			}
			defer done()

			sheets, err := build(s)
			if err != nil {
				return err
			}
			path, err := s.Reports.Write(name, sheets...)
			if err != nil {
				return err
			}
			printSheetSummary(cmd.OutOrStdout(), sheets)
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			return nil
		},
	}
}

var reportSalesCmd = newReportCmd(report.Sales, "Ledger rows with totals", func(s *shop.Shop) ([]report.Sheet, error) {
	lines := s.Ledger.Between(reportFrom, reportTo)
	return []report.Sheet{report.SalesSheet(lines), report.DailySheet(lines)}, nil
})

var reportDailyCmd = newReportCmd(report.Daily, "Per-day sales totals", func(s *shop.Shop) ([]report.Sheet, error) {
	lines := s.Ledger.Between(reportFrom, reportTo)
	return []report.Sheet{report.DailySheet(lines)}, nil
})

var reportInventoryCmd = newReportCmd(report.Inventory, "Stock valuation at cost and MRP", func(s *shop.Shop) ([]report.Sheet, error) {
	return []report.Sheet{report.InventorySheet(s.Catalog.Products())}, nil
})

var reportLowStockCmd = newReportCmd(report.LowStock, "Restock suggestions", func(s *shop.Shop) ([]report.Sheet, error) {
	return []report.Sheet{report.LowStockSheet(s.Stock.LowStock(reportThreshold))}, nil
})

var reportCustomersCmd = newReportCmd(report.Customers, "Customer ledger", func(s *shop.Shop) ([]report.Sheet, error) {
	return []report.Sheet{report.CustomersSheet(s.Customers.List())}, nil
})

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import data from spreadsheets",
}

var importCatalogCmd = &cobra.Command{
	Use:   "catalog <file.xlsx>",
	Short: "Add or update products from the first sheet of a workbook",
	Long: `Read the first sheet of an XLSX workbook. The header row is matched to the
catalog columns by name (Product Name, MRP, Qty, Barcode, ...); other columns
are kept as extra product fields. Existing products only change in the
columns present in the sheet. The data files are backed up first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		dir, _, err := s.Backup("backup_before_import")
		if err != nil {
			return err
		}
		res, err := report.ImportCatalog(args[0], s.Catalog, s.Log)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %s (sheet %s)\n", res.SourceFile, res.Sheet)
		fmt.Fprintf(out, "Added:    %d\n", len(res.Added))
		fmt.Fprintf(out, "Updated:  %d\n", len(res.Updated))
		fmt.Fprintf(out, "Skipped:  %d\n", len(res.Skipped))
		for _, issue := range res.Skipped {
			fmt.Fprintf(out, "  row %d: %s\n", issue.Row, issue.Reason)
		}
		fmt.Fprintf(out, "Backup:   %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd, importCmd)
	reportCmd.AddCommand(reportSalesCmd, reportDailyCmd, reportInventoryCmd, reportLowStockCmd, reportCustomersCmd)
	importCmd.AddCommand(importCatalogCmd)

	for _, c := range []*cobra.Command{reportSalesCmd, reportDailyCmd} {
		c.Flags().StringVar(&reportFrom, "from", "", "First date, YYYY-MM-DD")
		c.Flags().StringVar(&reportTo, "to", "", "Last date, YYYY-MM-DD")
	}
	reportLowStockCmd.Flags().IntVar(&reportThreshold, "threshold", -1, "Stock level to report at or below (default from config)")
}

func checkDateRange(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(clock.DateLayout, d); err != nil {
			return apperr.Invalid("date %q is not YYYY-MM-DD", d)
		}
	}
	if from != "" && to != "" && from > to {
		return apperr.Invalid("--from %s is after --to %s", from, to)
	}
	return nil
}

func printSheetSummary(out io.Writer, sheets []report.Sheet) {
	for _, sh := range sheets {
		fmt.Fprintf(out, "%-12s %d row(s)\n", sh.Name, len(sh.Rows))
	}
}
