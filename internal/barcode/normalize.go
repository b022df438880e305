// =============================================================================
// Shop POS - Barcode Normalization
// =============================================================================
//
// Scanners, spreadsheets and hand-typed SKUs all mangle barcodes in their own
// way. Normalization produces the comparison form of a code; the stored
// barcode is never rewritten.
//
// NORMALIZATION STEPS:
//   1. Trim whitespace
//   2. Treat "nan"/"none"/"null" as empty (spreadsheet artifacts)
//   3. Expand scientific notation (8.90105E+12 -> 8901050000000), only
//      when the result fits a barcode (maxCodeLength digits)
//   4. Strip a trailing ".0"
//   5. Lowercase
//
// =============================================================================

package barcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/shopspring/decimal"
)

// maxCodeLength is the longest barcode Validate accepts.
const maxCodeLength = 32

var (
	scientific   = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[eE][+-]?[0-9]+$`)
	validBarcode = regexp.MustCompile(`^[0-9A-Za-z-]{4,32}$`)
	digitsOnly   = regexp.MustCompile(`^[0-9]+$`)
)

// Scan is a raw input together with its comparison forms.
type Scan struct {
	// Raw is exactly what was entered.
	Raw string

	// Trimmed is Raw without surrounding whitespace. Name and serial
	// lookups use this form.
	Trimmed string

	// Code is the normalized barcode form.
	Code string
}

// NewScan builds a Scan from raw input.
func NewScan(raw string) Scan {
	return Scan{Raw: raw, Trimmed: strings.TrimSpace(raw), Code: Normalize(raw)}
}

// Normalize returns the comparison form of a barcode.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return ""
	}

	if scientific.MatchString(s) && expandedDigits(s) <= maxCodeLength {
		if d, err := decimal.NewFromString(s); err == nil && d.Equal(d.Truncate(0)) {
			s = d.StringFixed(0)
		}
	}

	s = strings.TrimSuffix(s, ".0")
	return strings.ToLower(s)
}

// expandedDigits returns the number of integer digits a scientific-notation
// string expands to, or maxCodeLength+1 when it is too long to expand.
func expandedDigits(s string) int {
	if len(s) > 2*maxCodeLength {
		return maxCodeLength + 1
	}
	mantissa, exp, _ := strings.Cut(strings.ToLower(s), "e")
	n, err := strconv.Atoi(exp)
	if err != nil || n < 0 || n > maxCodeLength {
		return maxCodeLength + 1
	}
	whole, _, _ := strings.Cut(mantissa, ".")
	return len(whole) + n
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	return digitsOnly.MatchString(s)
}

// Validate checks that a barcode about to be stored is well formed:
// 4 to 32 characters of letters, digits or hyphens after normalization.
func Validate(code string) error {
	n := Normalize(code)
	if !validBarcode.MatchString(n) {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidBarcodeFormat, code)
	}
	return nil
}
