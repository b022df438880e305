// =============================================================================
// Shop POS - Maintenance Commands
// =============================================================================
//
// COMMAND USAGE:
//   pos maintenance backup [--prune 720h]
//   pos maintenance recover [--apply]
//   pos maintenance clear-transactions --yes
//
// CLEAR-TRANSACTIONS PIPELINE:
//   1. Back up every data file
//   2. Put each sold quantity back into stock
//   3. Empty the sales ledger
//   4. Drop sale movements from the movement log
//   5. Write restoration_report.txt into the backup directory
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/shop-pos/internal/checkout"
	"github.com/ginjaninja78/shop-pos/internal/journal"
	"github.com/spf13/cobra"
)

var (
	backupMaxAge time.Duration
	recoverApply bool
	clearConfirm bool
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Backups, crash recovery and data resets",
}

var maintenanceBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the data files into a new backup directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		dir, copied, err := s.Backup("backup")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backed up %d file(s) to %s\n", len(copied), dir)
		if backupMaxAge > 0 {
			removed, err := s.Files.CleanOldBackups(backupMaxAge)
			if err != nil {
				return err
			}
			if removed > 0 {
				fmt.Fprintf(out, "Removed %d old backup(s)\n", removed)
			}
		}
		return nil
	},
}

var maintenanceRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Finish or discard a sale interrupted by a crash",
	Long: `Inspect the pending-transaction record left by an interrupted checkout.

Without --apply the record is only described. With --apply the sale is
rolled forward when the catalog already shows it (the ledger row and the
customer update are completed), and discarded when it does not.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		rep, err := s.Processor.Recover(recoverApply)
		if err != nil {
			return err
		}
		printRecovery(cmd.OutOrStdout(), rep)
		return nil
	},
}

var maintenanceClearCmd = &cobra.Command{
	Use:   "clear-transactions",
	Short: "Empty the sales ledger and put sold stock back",
	Long: `Back up the data files, add every sold quantity back to the catalog,
empty the sales ledger and drop sale movements. Customer records are kept;
run 'pos customer rebuild' afterwards to reset their totals.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirm {
			return errors.New("this removes every transaction; rerun with --yes to continue")
		}
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		res, err := s.ClearAllTransactions()
		if err != nil {
			return err
		}
		printClear(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(maintenanceCmd)
	maintenanceCmd.AddCommand(maintenanceBackupCmd, maintenanceRecoverCmd, maintenanceClearCmd)

	maintenanceBackupCmd.Flags().DurationVar(&backupMaxAge, "prune", 0, "Also remove backups older than this, e.g. 720h (0 keeps all)")
	maintenanceRecoverCmd.Flags().BoolVar(&recoverApply, "apply", false, "Roll forward or discard the pending sale")
	maintenanceClearCmd.Flags().BoolVar(&clearConfirm, "yes", false, "Confirm the reset")
}

func printRecovery(out io.Writer, rep *checkout.RecoveryReport) {
	if rep.Action == checkout.RecoveryNone {
		fmt.Fprintln(out, "No pending transaction.")
		return
	}
	p := rep.Pending
	fmt.Fprintf(out, "Transaction:  %s (%s, started %s)\n", p.TransactionID, p.Kind, p.CreatedAt)
	fmt.Fprintf(out, "Steps done:   %s\n", stepsDone(p))
	fmt.Fprintf(out, "Catalog:      applied=%t\n", rep.CatalogApplied)
	names := make([]string, 0, len(p.Deltas))
	for name := range p.Deltas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-30s %d -> %d\n", name, p.Before[name], p.Before[name]+p.Deltas[name])
	}

	switch rep.Action {
	case checkout.RecoveryPending:
		if rep.CatalogApplied {
			fmt.Fprintln(out, "Run with --apply to finish this sale.")
		} else {
			fmt.Fprintln(out, "Run with --apply to discard this sale; no store shows it.")
		}
	case checkout.RecoveryRollForward:
		fmt.Fprintln(out, "Sale rolled forward.")
	case checkout.RecoveryDiscard:
		fmt.Fprintln(out, "Pending record discarded.")
	}
}

func stepsDone(p *journal.PendingTransaction) string {
	if len(p.Steps) == 0 {
		return "none"
	}
	return strings.Join(p.Steps, ", ")
}

func printClear(out io.Writer, res *checkout.ClearResult) {
	fmt.Fprintln(out, "=== Transactions Cleared ===")
	fmt.Fprintf(out, "Backup:        %s (%d files)\n", res.BackupDir, len(res.BackedUp))
	fmt.Fprintf(out, "Transactions:  %d\n", res.Transactions)
	fmt.Fprintf(out, "Restored:      %d product(s)\n", len(res.Restored))
	for _, ch := range res.Restored {
		fmt.Fprintf(out, "  %-30s %d -> %d\n", ch.Product, ch.Before, ch.After)
	}
	if len(res.Unknown) > 0 {
		fmt.Fprintf(out, "Not in catalog: %d product(s)\n", len(res.Unknown))
		names := make([]string, 0, len(res.Unknown))
		for name := range res.Unknown {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-30s %d unit(s) not restored\n", name, res.Unknown[name])
		}
	}
	fmt.Fprintf(out, "Movements:     %d sale movement(s) removed\n", res.MovementsTaken)
}
