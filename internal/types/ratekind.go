package types

import (
	"slices"

	ierr "github.com/levyline/levyline/internal/errors"
)

// RateKind defines how a rate table entry's value is interpreted
type RateKind string

const (
	// RateKindBracket is a progressive bracket schedule
	RateKindBracket RateKind = "bracket"
	// RateKindFlat is a single percentage applied to the whole base
	RateKindFlat RateKind = "flat"
	// RateKindFixedAmount is a literal monetary amount
	RateKindFixedAmount RateKind = "fixed_amount"
	// RateKindDailyRate is an annual percentage accrued per day (rate/365)
	RateKindDailyRate RateKind = "daily_rate"
	// RateKindMonthlyRate is a percentage accrued per elapsed month,
	// partial months counting as a full month
	RateKindMonthlyRate RateKind = "monthly_rate"
)

func (k RateKind) String() string {
	return string(k)
}

func (k RateKind) Validate() error {
	allowedValues := []string{
		RateKindBracket.String(),
		RateKindFlat.String(),
		RateKindFixedAmount.String(),
		RateKindDailyRate.String(),
		RateKindMonthlyRate.String(),
	}
	if !slices.Contains(allowedValues, string(k)) {
		return ierr.NewError("invalid rate kind").
			WithHintf("Rate kind must be one of %v", allowedValues).
			WithReportableDetails(map[string]any{
				"rate_kind": string(k),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
