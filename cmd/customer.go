// =============================================================================
// Shop POS - Customer Commands
// =============================================================================
//
// COMMAND USAGE:
//   pos customer add <phone> <name> [--email E] [--address A] [--type T]
//   pos customer show <phone>
//   pos customer list [--search S]
//   pos customer edit <phone> [--name N] [--email E] [--address A] [--type T]
//   pos customer note <phone> <text...>
//   pos customer points <phone> <n>
//   pos customer redeem <phone> <n>
//   pos customer delete <phone>
//   pos customer rebuild
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/validation"
	"github.com/spf13/cobra"
)

var (
	customerName    string
	customerEmail   string
	customerAddress string
	customerType    string
	customerSearch  string
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage the customer ledger",
}

var customerAddCmd = &cobra.Command{
	Use:   "add <phone> <name...>",
	Short: "Register a customer",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := validation.CustomerInput{
			Phone:   args[0],
			Name:    strings.Join(args[1:], " "),
			Email:   customerEmail,
			Address: customerAddress,
			Type:    customerType,
		}
		if err := validation.New().Check(in); err != nil {
			return err
		}

		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		c, err := s.Customers.Add(in.Customer())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s, %s)\n", c.Name, c.Phone, c.CustomerType)
		return nil
	},
}

var customerShowCmd = &cobra.Command{
	Use:   "show <phone>",
	Short: "Show one customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		c, err := s.Customers.Get(args[0])
		if err != nil {
			return err
		}
		printCustomer(cmd.OutOrStdout(), c, s.Customers.PointsValue(c.LoyaltyPoints).StringFixed(2))
		return nil
	},
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		customers := s.Customers.List()
		if customerSearch != "" {
			customers = s.Customers.Search(customerSearch)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PHONE\tNAME\tTYPE\tVISITS\tPURCHASES\tPOINTS\tLAST VISIT")
		for _, c := range customers {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
				c.Phone, c.Name, c.CustomerType, c.VisitCount, c.TotalPurchases.StringFixed(2), c.LoyaltyPoints, c.LastVisit)
		}
		fmt.Fprintf(tw, "%d customer(s)\n", len(customers))
		return tw.Flush()
	},
}

var customerEditCmd = &cobra.Command{
	Use:   "edit <phone>",
	Short: "Edit a customer's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		flags := cmd.Flags()
		v := validation.New()
		c, err := s.Customers.Update(args[0], func(c *domain.Customer) error {
			in := validation.CustomerInput{
				Phone: c.Phone, Name: c.Name, Email: c.Email, Address: c.Address, Type: c.CustomerType,
			}
			if flags.Changed("name") {
				in.Name = customerName
			}
			if flags.Changed("email") {
				in.Email = customerEmail
			}
			if flags.Changed("address") {
				in.Address = customerAddress
			}
			if flags.Changed("type") {
				in.Type = customerType
			}
			if err := v.Check(in); err != nil {
				return err
			}
			edited := in.Customer()
			c.Name, c.Email, c.Address = edited.Name, edited.Email, edited.Address
			if edited.CustomerType != "" {
				c.CustomerType = edited.CustomerType
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", c.Name, c.Phone)
		return nil
	},
}

var customerNoteCmd = &cobra.Command{
	Use:   "note <phone> <text...>",
	Short: "Append a dated note",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		c, err := s.Customers.AddNote(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note added for %s\n", c.Name)
		return nil
	},
}

var customerPointsCmd = &cobra.Command{
	Use:   "points <phone> <n>",
	Short: "Credit loyalty points",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return apperr.Invalid("points %q is not a number", args[1])
		}
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		c, err := s.Customers.AddPoints(args[0], n)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d points\n", c.Name, c.LoyaltyPoints)
		return nil
	},
}

var customerRedeemCmd = &cobra.Command{
	Use:   "redeem <phone> <n>",
	Short: "Redeem loyalty points",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return apperr.Invalid("points %q is not a number", args[1])
		}
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		c, value, err := s.Customers.RedeemPoints(args[0], n)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Redeemed %d points worth %s; %s has %d left\n", n, value.StringFixed(2), c.Name, c.LoyaltyPoints)
		return nil
	},
}

var customerDeleteCmd = &cobra.Command{
	Use:   "delete <phone>",
	Short: "Delete a customer record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		if err := s.Customers.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted customer %s\n", args[0])
		return nil
	},
}

var customerRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute customer totals from the sales ledger",
	Long: `Back up the data files, then recompute purchase totals, visit counts and
points of every customer from the sales ledger. Contact details and notes
are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()

		dir, _, err := s.Backup("backup_before_rebuild")
		if err != nil {
			return err
		}
		n, err := s.Customers.Rebuild(s.Ledger.Lines())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d customer(s). Backup: %s\n", n, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerAddCmd, customerShowCmd, customerListCmd, customerEditCmd,
		customerNoteCmd, customerPointsCmd, customerRedeemCmd, customerDeleteCmd, customerRebuildCmd)

	for _, c := range []*cobra.Command{customerAddCmd, customerEditCmd} {
		c.Flags().StringVar(&customerEmail, "email", "", "Email address")
		c.Flags().StringVar(&customerAddress, "address", "", "Postal address")
		c.Flags().StringVar(&customerType, "type", "", "Regular, VIP, Wholesale or Credit")
	}
	customerEditCmd.Flags().StringVar(&customerName, "name", "", "Customer name")
	customerListCmd.Flags().StringVar(&customerSearch, "search", "", "Only names or phones containing this")
}

func printCustomer(out io.Writer, c domain.Customer, pointsValue string) {
	fmt.Fprintf(out, "Name:          %s\n", c.Name)
	fmt.Fprintf(out, "Phone:         %s\n", c.Phone)
	if c.Email != "" {
		fmt.Fprintf(out, "Email:         %s\n", c.Email)
	}
	if c.Address != "" {
		fmt.Fprintf(out, "Address:       %s\n", c.Address)
	}
	fmt.Fprintf(out, "Type:          %s\n", c.CustomerType)
	fmt.Fprintf(out, "Registered:    %s\n", c.RegistrationDate)
	fmt.Fprintf(out, "Last visit:    %s\n", c.LastVisit)
	fmt.Fprintf(out, "Visits:        %d\n", c.VisitCount)
	fmt.Fprintf(out, "Purchases:     %s\n", c.TotalPurchases.StringFixed(2))
	fmt.Fprintf(out, "Points:        %d (worth %s)\n", c.LoyaltyPoints, pointsValue)
	if c.Notes != "" {
		fmt.Fprintf(out, "Notes:\n%s\n", c.Notes)
	}
}
