package types

import (
	"slices"

	ierr "github.com/levyline/levyline/internal/errors"
)

// PenaltyKind classifies a penalty rule. LateFiling and NonFiling are
// mutually exclusive regimes switched on the 30-day overdue threshold;
// LatePayment and UnderDeclaration are evaluated independently and are
// additive with the filing penalty.
type PenaltyKind string

const (
	PenaltyKindLateFiling       PenaltyKind = "late_filing"
	PenaltyKindNonFiling        PenaltyKind = "non_filing"
	PenaltyKindLatePayment      PenaltyKind = "late_payment"
	PenaltyKindUnderDeclaration PenaltyKind = "under_declaration"
)

func (k PenaltyKind) String() string {
	return string(k)
}

// IsFilingRegime reports whether the kind belongs to the mutually
// exclusive filing regime pair
func (k PenaltyKind) IsFilingRegime() bool {
	return k == PenaltyKindLateFiling || k == PenaltyKindNonFiling
}

func (k PenaltyKind) Validate() error {
	allowedValues := []string{
		PenaltyKindLateFiling.String(),
		PenaltyKindNonFiling.String(),
		PenaltyKindLatePayment.String(),
		PenaltyKindUnderDeclaration.String(),
	}
	if !slices.Contains(allowedValues, string(k)) {
		return ierr.NewError("invalid penalty kind").
			WithHintf("Penalty kind must be one of %v", allowedValues).
			WithReportableDetails(map[string]any{
				"penalty_kind": string(k),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PenaltyAmountKind defines how a penalty rule's value is turned into
// a monetary amount
type PenaltyAmountKind string

const (
	PenaltyAmountKindFixedAmount        PenaltyAmountKind = "fixed_amount"
	PenaltyAmountKindPercentOfLiability PenaltyAmountKind = "percent_of_liability"
	PenaltyAmountKindDailyRate          PenaltyAmountKind = "daily_rate"
	PenaltyAmountKindMonthlyRate        PenaltyAmountKind = "monthly_rate"
)

func (k PenaltyAmountKind) String() string {
	return string(k)
}

func (k PenaltyAmountKind) Validate() error {
	allowedValues := []string{
		PenaltyAmountKindFixedAmount.String(),
		PenaltyAmountKindPercentOfLiability.String(),
		PenaltyAmountKindDailyRate.String(),
		PenaltyAmountKindMonthlyRate.String(),
	}
	if !slices.Contains(allowedValues, string(k)) {
		return ierr.NewError("invalid penalty amount kind").
			WithHintf("Penalty amount kind must be one of %v", allowedValues).
			WithReportableDetails(map[string]any{
				"penalty_amount_kind": string(k),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
