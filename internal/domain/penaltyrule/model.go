package penaltyrule

import (
	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/types"
	"github.com/shopspring/decimal"
)

// PenaltyRule defines when and how a penalty is charged. A rule matches
// an obligation by tax type, optional taxpayer category, penalty kind
// and the overdue-day window [MinDaysLate, MaxDaysLate]. A nil
// MaxDaysLate leaves the window open-ended. Among equally specific
// matches the highest Priority wins; a priority tie is a configuration
// error surfaced at resolution time.
type PenaltyRule struct {
	ID               string                  `json:"id"`
	TaxType          types.TaxType           `json:"tax_type"`
	TaxpayerCategory types.TaxpayerCategory  `json:"taxpayer_category,omitempty"`
	PenaltyKind      types.PenaltyKind       `json:"penalty_kind"`
	MinDaysLate      int                     `json:"min_days_late"`
	MaxDaysLate      *int                    `json:"max_days_late,omitempty"`
	AmountKind       types.PenaltyAmountKind `json:"amount_kind"`
	Value            decimal.Decimal         `json:"value"`
	MinCap           *decimal.Decimal        `json:"min_cap,omitempty"`
	MaxCap           *decimal.Decimal        `json:"max_cap,omitempty"`
	Priority         int                     `json:"priority"`
}

// AppliesTo reports whether the overdue day count falls inside the
// rule's day window
func (r *PenaltyRule) AppliesTo(daysOverdue int) bool {
	if daysOverdue < r.MinDaysLate {
		return false
	}
	if r.MaxDaysLate != nil && daysOverdue > *r.MaxDaysLate {
		return false
	}
	return true
}

// Validate checks the rule is internally consistent before it is
// admitted into a registry snapshot
func (r *PenaltyRule) Validate() error {
	if err := r.TaxType.Validate(); err != nil {
		return err
	}
	if err := r.TaxpayerCategory.Validate(); err != nil {
		return err
	}
	if err := r.PenaltyKind.Validate(); err != nil {
		return err
	}
	if err := r.AmountKind.Validate(); err != nil {
		return err
	}

	if r.MinDaysLate < 0 {
		return ierr.NewError("penalty rule min_days_late cannot be negative").
			WithReportableDetails(map[string]any{
				"penalty_rule_id": r.ID,
				"min_days_late":   r.MinDaysLate,
			}).
			Mark(ierr.ErrValidation)
	}

	if r.MaxDaysLate != nil && *r.MaxDaysLate < r.MinDaysLate {
		return ierr.NewError("penalty rule day window is inverted").
			WithHint("max_days_late must be greater than or equal to min_days_late").
			WithReportableDetails(map[string]any{
				"penalty_rule_id": r.ID,
				"min_days_late":   r.MinDaysLate,
				"max_days_late":   *r.MaxDaysLate,
			}).
			Mark(ierr.ErrValidation)
	}

	if r.Value.IsNegative() {
		return ierr.NewError("penalty rule value cannot be negative").
			WithReportableDetails(map[string]any{
				"penalty_rule_id": r.ID,
				"value":           r.Value,
			}).
			Mark(ierr.ErrInvalidAmount)
	}

	if r.MinCap != nil && r.MaxCap != nil && r.MinCap.GreaterThan(*r.MaxCap) {
		return ierr.NewError("penalty rule caps are inverted").
			WithHint("min_cap must not exceed max_cap").
			WithReportableDetails(map[string]any{
				"penalty_rule_id": r.ID,
				"min_cap":         r.MinCap,
				"max_cap":         r.MaxCap,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}
