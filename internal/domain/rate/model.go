package rate

import (
	"time"

	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/types"
	"github.com/shopspring/decimal"
)

// TaxBracket is a single band of a progressive schedule. Percent is the
// marginal rate for the band expressed as a percentage (15 means 15%).
// A nil UpperBound marks the unbounded top band.
type TaxBracket struct {
	LowerBound decimal.Decimal  `json:"lower_bound"`
	UpperBound *decimal.Decimal `json:"upper_bound,omitempty"`
	Rate       decimal.Decimal  `json:"rate"`
}

// RateTableEntry is one effective-dated row of rate configuration.
// A nil EffectiveTo means the row is open-ended. An empty
// TaxpayerCategory means the row is the general fallback for its tax
// type; category rows outrank it at resolution time.
type RateTableEntry struct {
	ID               string                 `json:"id"`
	TaxType          types.TaxType          `json:"tax_type"`
	TaxpayerCategory types.TaxpayerCategory `json:"taxpayer_category,omitempty"`
	PaymentCategory  *types.PaymentCategory `json:"payment_category,omitempty"`
	EffectiveFrom    time.Time              `json:"effective_from"`
	EffectiveTo      *time.Time             `json:"effective_to,omitempty"`
	Kind             types.RateKind         `json:"kind"`
	Value            decimal.Decimal        `json:"value"`
	Brackets         []TaxBracket           `json:"brackets,omitempty"`
}

// ActiveAt reports whether the entry is in force on the given date.
// EffectiveFrom is inclusive, EffectiveTo exclusive.
func (e *RateTableEntry) ActiveAt(asOf time.Time) bool {
	if asOf.Before(e.EffectiveFrom) {
		return false
	}
	if e.EffectiveTo != nil && !asOf.Before(*e.EffectiveTo) {
		return false
	}
	return true
}

// Validate checks the entry is internally consistent before it is
// admitted into a registry snapshot
func (e *RateTableEntry) Validate() error {
	if err := e.TaxType.Validate(); err != nil {
		return err
	}
	if err := e.TaxpayerCategory.Validate(); err != nil {
		return err
	}
	if e.PaymentCategory != nil {
		if err := e.PaymentCategory.Validate(); err != nil {
			return err
		}
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}

	if e.EffectiveTo != nil && !e.EffectiveFrom.Before(*e.EffectiveTo) {
		return ierr.NewError("rate entry effective_from must precede effective_to").
			WithHint("The effective date range of the rate entry is inverted or empty").
			WithReportableDetails(map[string]any{
				"rate_entry_id":  e.ID,
				"tax_type":       e.TaxType,
				"effective_from": e.EffectiveFrom,
				"effective_to":   e.EffectiveTo,
			}).
			Mark(ierr.ErrInvalidEffectiveRange)
	}

	if e.Kind == types.RateKindBracket {
		return e.validateBrackets()
	}

	if e.Value.IsNegative() {
		return ierr.NewError("rate entry value cannot be negative").
			WithHint("Rate values and fixed amounts must be zero or positive").
			WithReportableDetails(map[string]any{
				"rate_entry_id": e.ID,
				"value":         e.Value,
			}).
			Mark(ierr.ErrInvalidAmount)
	}

	return nil
}

// validateBrackets enforces the structural invariants of a progressive
// schedule: bands start at zero, are sorted ascending and contiguous,
// and only the last band may be unbounded. Rate ordering across bands
// is a convention, not an invariant, so arbitrary schedules pass.
func (e *RateTableEntry) validateBrackets() error {
	if len(e.Brackets) == 0 {
		return ierr.NewError("bracket rate entry has no brackets").
			WithHint("A bracket schedule must define at least one band").
			WithReportableDetails(map[string]any{
				"rate_entry_id": e.ID,
			}).
			Mark(ierr.ErrValidation)
	}

	if !e.Brackets[0].LowerBound.IsZero() {
		return ierr.NewError("bracket schedule must start at zero").
			WithHint("The first bracket's lower bound must be 0").
			WithReportableDetails(map[string]any{
				"rate_entry_id": e.ID,
				"lower_bound":   e.Brackets[0].LowerBound,
			}).
			Mark(ierr.ErrValidation)
	}

	for i, b := range e.Brackets {
		last := i == len(e.Brackets)-1

		if b.UpperBound == nil {
			if !last {
				return ierr.NewError("only the top bracket may be unbounded").
					WithHint("An unbounded upper bound is only valid on the final bracket").
					WithReportableDetails(map[string]any{
						"rate_entry_id": e.ID,
						"bracket_index": i,
					}).
					Mark(ierr.ErrValidation)
			}
			continue
		}

		if !b.UpperBound.GreaterThan(b.LowerBound) {
			return ierr.NewError("bracket upper bound must exceed lower bound").
				WithReportableDetails(map[string]any{
					"rate_entry_id": e.ID,
					"bracket_index": i,
					"lower_bound":   b.LowerBound,
					"upper_bound":   b.UpperBound,
				}).
				Mark(ierr.ErrValidation)
		}

		if !last && !e.Brackets[i+1].LowerBound.Equal(*b.UpperBound) {
			return ierr.NewError("bracket schedule must be contiguous").
				WithHint("Each bracket's lower bound must equal the previous bracket's upper bound").
				WithReportableDetails(map[string]any{
					"rate_entry_id": e.ID,
					"bracket_index": i + 1,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}
