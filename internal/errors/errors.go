package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound              = new(ErrCodeNotFound, "resource not found")
	ErrValidation            = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation      = new(ErrCodeInvalidOperation, "invalid operation")
	ErrSystem                = new(ErrCodeSystemError, "system error")
	ErrNoApplicableRule      = new(ErrCodeNoApplicableRule, "no applicable rate rule")
	ErrAmbiguousRuleMatch    = new(ErrCodeAmbiguousRuleMatch, "ambiguous rule match")
	ErrInvalidAmount         = new(ErrCodeInvalidAmount, "negative or invalid amount")
	ErrUnknownTaxType        = new(ErrCodeUnknownTaxType, "unknown tax type")
	ErrInvalidEffectiveRange = new(ErrCodeInvalidEffectiveRange, "invalid effective date range")
)

const (
	ErrCodeSystemError           = "system_error"
	ErrCodeNotFound              = "not_found"
	ErrCodeValidation            = "validation_error"
	ErrCodeInvalidOperation      = "invalid_operation"
	ErrCodeNoApplicableRule      = "no_applicable_rate_rule"
	ErrCodeAmbiguousRuleMatch    = "ambiguous_rule_match"
	ErrCodeInvalidAmount         = "negative_or_invalid_amount"
	ErrCodeUnknownTaxType        = "unknown_tax_type"
	ErrCodeInvalidEffectiveRange = "invalid_effective_date_range"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsNoApplicableRule checks if an error is a missing rate/penalty rule error
func IsNoApplicableRule(err error) bool {
	return errors.Is(err, ErrNoApplicableRule)
}

// IsAmbiguousRuleMatch checks if an error is an ambiguous rule match error
func IsAmbiguousRuleMatch(err error) bool {
	return errors.Is(err, ErrAmbiguousRuleMatch)
}

// IsInvalidAmount checks if an error is a negative or invalid amount error
func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}
