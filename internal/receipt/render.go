package receipt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/go-pdf/fpdf"
)

const textWidth = 48

// =============================================================================
// TEXT
// =============================================================================

// WriteText prints a fixed-width receipt.
func WriteText(w io.Writer, r *Receipt, shop config.ShopConfig) error {
	rule := strings.Repeat("-", textWidth)
	var b strings.Builder

	center(&b, shop.Name)
	center(&b, shop.Address)
	if shop.Phone != "" {
		center(&b, "Ph: "+shop.Phone)
	}
	if shop.TaxID != "" {
		center(&b, "GSTIN: "+shop.TaxID)
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Bill: %s\n", r.TransactionID)
	fmt.Fprintf(&b, "Date: %s %s\n", r.Date, r.Time)
	fmt.Fprintf(&b, "Customer: %s\n", r.CustomerName)
	if r.CustomerPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", r.CustomerPhone)
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%-18s %4s %7s %5s %7s\n", "Item", "Qty", "MRP", "Off%", "Amount")
	fmt.Fprintln(&b, rule)
	for _, l := range r.Lines {
		name := l.Name
		if len(name) > 18 {
			name = name[:18]
		}
		fmt.Fprintf(&b, "%-18s %4d %7s %5s %7s\n",
			name, l.Quantity, l.MRP.StringFixed(2), l.DiscountPercent.StringFixed(1), l.LineTotal.StringFixed(2))
		if len(l.Name) > 18 {
			fmt.Fprintf(&b, "  %s\n", l.Name[18:])
		}
		if l.Size != "" {
			fmt.Fprintf(&b, "  %s @ %s\n", l.Size, l.UnitPrice.StringFixed(2))
		}
	}
	fmt.Fprintln(&b, rule)
	total(&b, "Total MRP", r.TotalMRP.StringFixed(2))
	total(&b, "Subtotal", r.Subtotal.StringFixed(2))
	if r.Discount.IsPositive() {
		total(&b, "Discount", "-"+r.Discount.StringFixed(2))
	}
	total(&b, "TOTAL", r.FinalTotal.StringFixed(2))
	total(&b, "Paid by", r.PaymentMethod)
	fmt.Fprintln(&b, rule)
	if r.TotalSavings.IsPositive() {
		center(&b, fmt.Sprintf("You saved %s (%s%%)", r.TotalSavings.StringFixed(2), r.SavingsPercent.StringFixed(1)))
	}
	center(&b, shop.Footer)

	_, err := io.WriteString(w, b.String())
	return err
}

func center(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	pad := (textWidth - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(b, "%s%s\n", strings.Repeat(" ", pad), s)
}

func total(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-*s%*s\n", textWidth-12, label, 12, value)
}

// =============================================================================
// PDF
// =============================================================================

// PDFPath returns receipts_dir/receipt_<txn>.pdf.
func PDFPath(dir, txnID string) string {
	return filepath.Join(dir, fmt.Sprintf("receipt_%s.pdf", txnID))
}

// WritePDF renders the receipt on an 80 mm roll and writes it to
// dir/receipt_<txn>.pdf. It returns the file path.
func WritePDF(dir string, r *Receipt, shop config.ShopConfig) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create receipts directory: %w", err)
	}
	path := PDFPath(dir, r.TransactionID)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 200},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(true, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// Header
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, shop.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	for _, s := range []string{shop.Address, shop.Phone, shop.TaxID} {
		if s != "" {
			pdf.CellFormat(contentW, 4, s, "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 4, "Bill "+r.TransactionID, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, r.Date+" "+r.Time, "", 1, "L", false, 0, "")
	customer := r.CustomerName
	if r.CustomerPhone != "" {
		customer += " (" + r.CustomerPhone + ")"
	}
	pdf.CellFormat(contentW, 4, customer, "", 1, "L", false, 0, "")
	pdf.Ln(1)

	// Items
	cols := []float64{contentW * 0.40, contentW * 0.10, contentW * 0.16, contentW * 0.12, contentW * 0.22}
	pdf.SetFont("Helvetica", "B", 7)
	for i, h := range []string{"Item", "Qty", "MRP", "Off%", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 5, h, "TB", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 7)
	for _, l := range r.Lines {
		name := l.Name
		if len(name) > 22 {
			name = name[:22]
		}
		pdf.CellFormat(cols[0], 4, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 4, fmt.Sprint(l.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], 4, l.MRP.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 4, l.DiscountPercent.StringFixed(1), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4], 4, l.LineTotal.StringFixed(2), "", 1, "R", false, 0, "")
		if l.Size != "" {
			pdf.SetFont("Helvetica", "", 6)
			pdf.CellFormat(contentW, 3, "  "+l.Size, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 7)
		}
	}
	pdf.Line(4, pdf.GetY()+1, pageW-4, pdf.GetY()+1)
	pdf.Ln(2)

	// Totals
	labelW := contentW - cols[4]
	row := func(label, value string) {
		pdf.CellFormat(labelW, 4, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[4], 4, value, "", 1, "R", false, 0, "")
	}
	row("Total MRP", r.TotalMRP.StringFixed(2))
	row("Subtotal", r.Subtotal.StringFixed(2))
	if r.Discount.IsPositive() {
		row("Discount", "-"+r.Discount.StringFixed(2))
	}
	pdf.SetFont("Helvetica", "B", 9)
	row("TOTAL", r.FinalTotal.StringFixed(2))
	pdf.SetFont("Helvetica", "", 7)
	row("Paid by", r.PaymentMethod)

	pdf.Ln(2)
	if r.TotalSavings.IsPositive() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, fmt.Sprintf("You saved %s (%s%%)", r.TotalSavings.StringFixed(2), r.SavingsPercent.StringFixed(1)), "", 1, "C", false, 0, "")
	}
	if shop.Footer != "" {
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(contentW, 4, shop.Footer, "", 1, "C", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write receipt pdf: %w", err)
	}
	return path, nil
}
