// =============================================================================
// Shop POS - Register Command
// =============================================================================
//
// An interactive till session on stdin. One cart is built up line by line
// and committed with 'checkout'; the session then starts a fresh cart.
//
// COMMAND USAGE:
//   pos register [--pdf]
//
// SESSION COMMANDS:
//   add <input> [qty] [price]   resolve and add to the cart
//   qty <name> <n>              set a line quantity (0 removes it)
//   price <name> <p>            set a line price (number or mrp/sp5/sp10)
//   remove <name>               drop a line
//   list                        show the cart
//   clear                       empty the cart
//   discount <pct>              lump discount percent
//   customer <phone> [name]     attach a customer; 'customer -' for walk-in
//   pay <method>                payment method
//   checkout                    commit the sale and print the receipt
//   quit                        leave (an unpaid cart is dropped)
//
// =============================================================================

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/barcode"
	"github.com/ginjaninja78/shop-pos/internal/cart"
	"github.com/ginjaninja78/shop-pos/internal/checkout"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/ginjaninja78/shop-pos/internal/shop"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var registerPDF bool

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Run an interactive till session",
	Long: `Read cart commands from stdin, one per line. Type 'help' for the list.

Errors are printed and the session carries on; only 'quit' or end of input
ends it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openShop()
		if err != nil {
			return err
		}
		defer done()
		return newRegister(s, cmd.OutOrStdout(), registerPDF).run(cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().BoolVar(&registerPDF, "pdf", false, "Also write a PDF receipt for every sale")
}

// =============================================================================
// SESSION
// =============================================================================

// register is one till session.
type register struct {
	shop     *shop.Shop
	out      io.Writer
	in       *bufio.Scanner
	pdf      bool
	cart     *cart.Cart
	customer domain.CustomerInfo
	payment  string
	discount decimal.Decimal

	// committed lists the transaction ids of this session.
	committed []string
}

func newRegister(s *shop.Shop, out io.Writer, pdf bool) *register {
	r := &register{shop: s, out: out, pdf: pdf}
	r.reset()
	return r
}

func (r *register) reset() {
	r.cart = cart.New(r.shop.Catalog)
	r.customer = domain.CustomerInfo{}
	r.payment = r.shop.Config.Checkout.DefaultPaymentMethod
	r.discount = decimal.Zero
}

// run reads commands until quit or end of input.
func (r *register) run(in io.Reader) error {
	r.in = bufio.NewScanner(in)
	fmt.Fprintf(r.out, "%s register. Type 'help' for commands.\n", r.shop.Config.Shop.Name)
	for {
		fmt.Fprint(r.out, "> ")
		line, ok := r.readLine()
		if !ok {
			break
		}
		quit, err := r.exec(line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if quit {
			break
		}
	}
	if !r.cart.IsEmpty() {
		fmt.Fprintf(r.out, "Dropped unpaid cart with %d line(s).\n", r.cart.Len())
	}
	return r.in.Err()
}

func (r *register) readLine() (string, bool) {
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

// confirm asks a yes/no question on the session input.
func (r *register) confirm(question string) bool {
	fmt.Fprintf(r.out, "%s [y/N] ", question)
	answer, ok := r.readLine()
	return ok && strings.HasPrefix(strings.ToLower(answer), "y")
}

// exec runs one session command.
func (r *register) exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "add":
		return false, r.add(args)
	case "qty":
		return false, r.setQuantity(args)
	case "price":
		return false, r.setPrice(args)
	case "remove", "rm":
		if len(args) == 0 {
			return false, apperr.Invalid("usage: remove <name>")
		}
		name, err := r.lineName(strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		if err := r.cart.Remove(name); err != nil {
			return false, err
		}
		r.list()
	case "list", "ls":
		r.list()
	case "clear":
		r.cart.Clear()
		fmt.Fprintln(r.out, "Cart cleared.")
	case "discount":
		return false, r.setDiscount(args)
	case "customer":
		return false, r.setCustomer(args)
	case "pay":
		if len(args) != 1 {
			return false, apperr.Invalid("usage: pay <method>")
		}
		method, err := r.paymentMethod(args[0])
		if err != nil {
			return false, err
		}
		r.payment = method
		fmt.Fprintf(r.out, "Payment: %s\n", r.payment)
	case "checkout":
		return false, r.checkout()
	case "help", "?":
		fmt.Fprintln(r.out, "add <input> [qty] [price] | qty <name> <n> | price <name> <p> | remove <name>")
		fmt.Fprintln(r.out, "list | clear | discount <pct> | customer <phone> [name] | pay <method> | checkout | quit")
	case "quit", "exit", "q":
		return true, nil
	default:
		return false, apperr.Invalid("unknown command %q", verb)
	}
	return false, nil
}

// =============================================================================
// CART COMMANDS
// =============================================================================

func (r *register) add(args []string) error {
	if len(args) == 0 {
		return apperr.Invalid("usage: add <input> [qty] [price]")
	}
	input, qty, price := splitTrailing(args)

	match, err := r.shop.Resolver.Resolve(input)
	var amb *apperr.AmbiguousMatchError
	if errors.As(err, &amb) {
		fmt.Fprintf(r.out, "%q matches several products:\n", input)
		for i, name := range amb.Candidates {
			fmt.Fprintf(r.out, "  %d. %s\n", i+1, name)
		}
		fmt.Fprint(r.out, "Pick a number (blank to cancel): ")
		answer, ok := r.readLine()
		n, convErr := strconv.Atoi(answer)
		if !ok || convErr != nil || n < 1 || n > len(amb.Candidates) {
			return errors.New("cancelled")
		}
		p, err := r.shop.Catalog.FindByName(amb.Candidates[n-1])
		if err != nil {
			return err
		}
		match = &barcode.Match{Product: p, Strategy: amb.Strategy}
	} else if err != nil {
		return err
	}
	if match.NeedsConfirmation && !r.confirm(fmt.Sprintf("%q looks like %s. Add it?", input, match.Product.Name)) {
		return errors.New("cancelled")
	}

	unit, err := unitPrice(match.Product, price)
	if err != nil {
		return err
	}
	if err := r.cart.Add(match.Product, qty, unit); err != nil {
		return err
	}
	line, _ := r.cart.Line(match.Product.Name)
	fmt.Fprintf(r.out, "  + %s x%d @ %s (%s, %d in stock)\n",
		line.ProductName, line.Quantity, unit.StringFixed(2), match.Strategy, match.Product.Quantity)
	return nil
}

func (r *register) setQuantity(args []string) error {
	if len(args) < 2 {
		return apperr.Invalid("usage: qty <name> <n>")
	}
	qty, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return apperr.Invalid("quantity %q is not a number", args[len(args)-1])
	}
	name, err := r.lineName(strings.Join(args[:len(args)-1], " "))
	if err != nil {
		return err
	}
	line, _ := r.cart.Line(name)
	if err := r.cart.UpdateLine(name, qty, line.UnitPrice); err != nil {
		return err
	}
	r.list()
	return nil
}

func (r *register) setPrice(args []string) error {
	if len(args) < 2 {
		return apperr.Invalid("usage: price <name> <p>")
	}
	name, err := r.lineName(strings.Join(args[:len(args)-1], " "))
	if err != nil {
		return err
	}
	p, err := r.shop.Catalog.FindByName(name)
	if err != nil {
		return err
	}
	unit, err := unitPrice(p, args[len(args)-1])
	if err != nil {
		return err
	}
	line, _ := r.cart.Line(name)
	if err := r.cart.UpdateLine(name, line.Quantity, unit); err != nil {
		return err
	}
	r.list()
	return nil
}

// lineName maps user input to the name of a cart line: either the line
// name itself or whatever the resolver makes of it.
func (r *register) lineName(input string) (string, error) {
	if line, ok := r.cart.Line(input); ok {
		return line.ProductName, nil
	}
	match, err := r.shop.Resolver.Resolve(input)
	if err != nil {
		return "", err
	}
	if _, ok := r.cart.Line(match.Product.Name); !ok {
		return "", fmt.Errorf("%w: %s not in cart", apperr.ErrProductNotFound, match.Product.Name)
	}
	return match.Product.Name, nil
}

func (r *register) list() {
	if r.cart.IsEmpty() {
		fmt.Fprintln(r.out, "Cart is empty.")
		return
	}
	for i, item := range r.cart.Items() {
		fmt.Fprintf(r.out, "%3d. %-30s %4d x %8s = %9s\n",
			i+1, item.ProductName, item.Quantity, item.UnitPrice.StringFixed(2), item.LineTotal().StringFixed(2))
	}
	subtotal := r.cart.Subtotal()
	fmt.Fprintf(r.out, "     %-30s %4d %21s\n", "Subtotal", r.cart.Units(), subtotal.StringFixed(2))
	if r.discount.IsPositive() {
		off := subtotal.Mul(r.discount).Div(decimal.NewFromInt(100)).Round(2)
		fmt.Fprintf(r.out, "     %-30s %26s\n", "Discount "+r.discount.String()+"%", "-"+off.StringFixed(2))
		fmt.Fprintf(r.out, "     %-30s %26s\n", "Total", subtotal.Sub(off).StringFixed(2))
	}
	fmt.Fprintf(r.out, "     Customer: %s  Payment: %s\n", r.customer.DisplayName(), r.payment)
}

// =============================================================================
// SALE DETAILS
// =============================================================================

func (r *register) setDiscount(args []string) error {
	if len(args) != 1 {
		return apperr.Invalid("usage: discount <pct>")
	}
	pct, err := decimal.NewFromString(strings.TrimSuffix(args[0], "%"))
	if err != nil {
		return apperr.Invalid("discount %q is not a number", args[0])
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return apperr.Invalid("discount must be between 0 and 100")
	}
	r.discount = pct
	fmt.Fprintf(r.out, "Discount: %s%%\n", pct.String())
	return nil
}

func (r *register) setCustomer(args []string) error {
	if len(args) == 0 {
		return apperr.Invalid("usage: customer <phone> [name]")
	}
	if args[0] == "-" {
		r.customer = domain.CustomerInfo{}
		fmt.Fprintln(r.out, "Walk-in sale.")
		return nil
	}
	info := domain.CustomerInfo{Phone: args[0], Name: strings.Join(args[1:], " ")}
	if existing, err := r.shop.Customers.Get(info.Phone); err == nil {
		if info.Name == "" {
			info.Name = existing.Name
		}
		info.Email = existing.Email
		fmt.Fprintf(r.out, "Customer: %s (%s, %d points, %d visits)\n",
			existing.Name, existing.CustomerType, existing.LoyaltyPoints, existing.VisitCount)
	} else {
		fmt.Fprintf(r.out, "New customer %s will be created at checkout.\n", info.Phone)
	}
	r.customer = info
	return nil
}

func (r *register) paymentMethod(name string) (string, error) {
	for _, m := range r.shop.Config.Checkout.PaymentMethods {
		if strings.EqualFold(m, name) {
			return m, nil
		}
	}
	return "", apperr.Invalid("payment method %q is not one of %s", name, strings.Join(r.shop.Config.Checkout.PaymentMethods, ", "))
}

func (r *register) checkout() error {
	res, err := r.shop.Processor.Checkout(checkout.Request{
		Items:           r.cart.Items(),
		Customer:        r.customer,
		PaymentMethod:   r.payment,
		DiscountPercent: r.discount,
	})
	if err != nil {
		return err
	}
	r.committed = append(r.committed, res.TransactionID)
	if err := printReceipt(r.out, r.shop, res.TransactionID, r.pdf); err != nil {
		return err
	}
	if res.Customer != nil {
		fmt.Fprintf(r.out, "%s now has %d points.\n", res.Customer.Name, res.Customer.LoyaltyPoints)
	}
	r.reset()
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// splitTrailing takes "input words [qty] [price]" apart. The last token is
// a price only when the one before it is a quantity.
func splitTrailing(args []string) (string, int, string) {
	qty, price := 1, ""
	n := len(args)
	if n >= 3 && isPriceArg(args[n-1]) {
		if q, err := strconv.Atoi(args[n-2]); err == nil {
			return strings.Join(args[:n-2], " "), q, args[n-1]
		}
	}
	if n >= 2 {
		if q, err := strconv.Atoi(args[n-1]); err == nil {
			return strings.Join(args[:n-1], " "), q, price
		}
	}
	return strings.Join(args, " "), qty, price
}
