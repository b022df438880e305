// =============================================================================
// Shop POS - Input Validation
// =============================================================================
//
// This module validates operator input before it reaches a store: product
// forms, customer forms and purchase lines. Rules are declared as struct
// tags and checked with go-playground/validator.
//
// VALIDATION STRATEGY:
//   1. Field-level: struct tags (required, ranges, email, barcode, phone)
//   2. Row-level: cross-field checks on the input form (MRP below cost)
//
// ERROR HANDLING:
//   - Errors are collected, not returned one at a time
//   - Each error names the field, the value and the rule that failed
//   - Warnings do not make a result invalid
//   - Result.Err() folds the fatal errors into one ErrInvalidInput
//
// CUSTOM TAGS:
//   - barcode : 4-32 characters of digits, letters or '-' after normalization
//   - phone   : 7-15 digits, optional leading '+', spaces and dashes ignored
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/barcode"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single failed rule.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the name of the field that failed validation.
	Field string

	// Value is the value that failed validation.
	Value string

	// Rule is the tag or check that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s (value: '%s')", strings.ToUpper(e.Severity), e.Field, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all validation errors, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityWarning {
		r.WarningCount++
		return
	}
	r.ErrorCount++
	r.IsValid = false
}

// Warnings returns only the warnings.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// Err returns nil for a valid result, otherwise an error wrapping
// apperr.ErrInvalidInput that lists every fatal error.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	var msgs []string
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			msgs = append(msgs, e.Field+" "+e.Message)
		}
	}
	return apperr.Invalid("%s", strings.Join(msgs, "; "))
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks tagged input structs.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Decimal fields compare as float64 so gte/gt/lte work on money.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("barcode", func(fl validator.FieldLevel) bool {
		return barcode.Validate(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct validates s against its tags.
func (v *Validator) Struct(s any) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.add(&ValidationError{Severity: SeverityError, Field: "input", Rule: "struct", Message: err.Error()})
		return result
	}
	for _, fe := range fieldErrs {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    fe.Field(),
			Value:    fmt.Sprint(fe.Value()),
			Rule:     fe.Tag(),
			Message:  message(fe),
		})
	}
	return result
}

// Check validates s and returns Err() of the result.
func (v *Validator) Check(s any) error {
	return v.Struct(s).Err()
}

// message turns a failed tag into readable text.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "barcode":
		return "must be 4-32 characters of digits, letters or '-'"
	case "phone":
		return "must be 7-15 digits"
	}
	return "failed " + fe.Tag()
}

// IsPhone reports whether s looks like a phone number.
func IsPhone(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// =============================================================================
// INPUT FORMS
// =============================================================================

// ProductInput is a product add/edit form.
type ProductInput struct {
	Name      string          `validate:"required,max=120"`
	Category  string          `validate:"max=60"`
	CostPrice decimal.Decimal `validate:"gte=0"`
	MRP       decimal.Decimal `validate:"gt=0"`
	Quantity  int             `validate:"gte=0"`
	Barcode   string          `validate:"omitempty,barcode"`
}

// Product converts the form to a catalog record. SP5 and SP10 are derived
// from MRP.
func (in ProductInput) Product() domain.Product {
	p := domain.Product{
		Name:      strings.TrimSpace(in.Name),
		Category:  strings.TrimSpace(in.Category),
		CostPrice: in.CostPrice,
		MRP:       in.MRP,
		Quantity:  in.Quantity,
		Barcode:   strings.TrimSpace(in.Barcode),
	}
	p.RecomputeSellingPrices()
	return p
}

// Product validates a product form. MRP below cost is a warning.
func (v *Validator) Product(in ProductInput) *ValidationResult {
	result := v.Struct(in)
	if in.MRP.LessThan(in.CostPrice) {
		result.add(&ValidationError{
			Severity: SeverityWarning,
			Field:    "MRP",
			Value:    in.MRP.String(),
			Rule:     "mrp_below_cost",
			Message:  "is below cost price " + in.CostPrice.String(),
		})
	}
	return result
}

// CustomerInput is a customer add/edit form.
type CustomerInput struct {
	Phone   string `validate:"required,phone"`
	Name    string `validate:"required,max=80"`
	Email   string `validate:"omitempty,email"`
	Address string `validate:"max=200"`
	Type    string `validate:"omitempty,oneof=Regular VIP Wholesale Credit"`
}

// Customer converts the form to a customer record.
func (in CustomerInput) Customer() domain.Customer {
	return domain.Customer{
		Phone:        strings.TrimSpace(in.Phone),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Address:      strings.TrimSpace(in.Address),
		CustomerType: in.Type,
	}
}
