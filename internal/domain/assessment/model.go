package assessment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/types"
	"github.com/levyline/levyline/internal/validator"
	"github.com/shopspring/decimal"
)

// AssessmentRequest carries every input the engine needs, fully
// resolved by the calling subsystems before invocation. The engine
// performs no I/O and never consults the clock: AssessmentDate is the
// deterministic "today" so recomputations replay exactly.
type AssessmentRequest struct {
	ClientID         string                 `json:"client_id" validate:"required"`
	TaxType          types.TaxType          `json:"tax_type" validate:"required"`
	TaxpayerCategory types.TaxpayerCategory `json:"taxpayer_category,omitempty"`
	PaymentCategory  *types.PaymentCategory `json:"payment_category,omitempty"`

	// TaxableBase is the taxable income, profit or gross payment
	// amount depending on the tax type. For GST the OutputGST and
	// InputGST amounts are used instead.
	TaxableBase decimal.Decimal `json:"taxable_base"`
	OutputGST   decimal.Decimal `json:"output_gst"`
	InputGST    decimal.Decimal `json:"input_gst"`

	// Revenue is the gross revenue used by the MAT override and the
	// minimum-floor comparison
	Revenue decimal.Decimal `json:"revenue"`

	PeriodStart    time.Time  `json:"period_start" validate:"required"`
	PeriodEnd      time.Time  `json:"period_end" validate:"required"`
	DueDate        time.Time  `json:"due_date" validate:"required"`
	FiledDate      *time.Time `json:"filed_date,omitempty"`
	AssessmentDate time.Time  `json:"assessment_date" validate:"required"`

	AmountPaidToDate     decimal.Decimal `json:"amount_paid_to_date"`
	UnderDeclaredAmount  decimal.Decimal `json:"under_declared_amount"`
	ConsecutiveLossYears int             `json:"consecutive_loss_years"`
}

// Validate rejects requests the engine could not assess correctly
func (r *AssessmentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := r.TaxType.Validate(); err != nil {
		return err
	}
	if !r.TaxType.IsAssessable() {
		return ierr.NewError("tax type is not assessable").
			WithHint("Only income, corporate, gst and withholding assessments are supported").
			WithReportableDetails(map[string]any{
				"tax_type": r.TaxType,
			}).
			Mark(ierr.ErrUnknownTaxType)
	}
	if err := r.TaxpayerCategory.Validate(); err != nil {
		return err
	}
	if r.PaymentCategory != nil {
		if err := r.PaymentCategory.Validate(); err != nil {
			return err
		}
	}
	if r.TaxType == types.TaxTypeWithholding && r.PaymentCategory == nil {
		return ierr.NewError("payment_category is required for withholding assessments").
			WithHint("Withholding tax resolves its rate by payment category").
			Mark(ierr.ErrValidation)
	}

	if r.PeriodEnd.Before(r.PeriodStart) {
		return ierr.NewError("period_end precedes period_start").
			WithReportableDetails(map[string]any{
				"period_start": r.PeriodStart,
				"period_end":   r.PeriodEnd,
			}).
			Mark(ierr.ErrValidation)
	}

	for name, amount := range map[string]decimal.Decimal{
		"taxable_base":          r.TaxableBase,
		"output_gst":            r.OutputGST,
		"input_gst":             r.InputGST,
		"revenue":               r.Revenue,
		"amount_paid_to_date":   r.AmountPaidToDate,
		"under_declared_amount": r.UnderDeclaredAmount,
	} {
		if amount.IsNegative() {
			return ierr.NewErrorf("%s cannot be negative", name).
				WithHint("Monetary inputs must be zero or positive").
				WithReportableDetails(map[string]any{
					"field":  name,
					"amount": amount,
				}).
				Mark(ierr.ErrInvalidAmount)
		}
	}

	if r.ConsecutiveLossYears < 0 {
		return ierr.NewError("consecutive_loss_years cannot be negative").
			WithReportableDetails(map[string]any{
				"consecutive_loss_years": r.ConsecutiveLossYears,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// Fingerprint derives a stable hex digest from the request and the
// registry snapshot version. Assessment identifiers are built from it
// so that recomputations for reconciliation or audit replay reproduce
// identical results.
func (r *AssessmentRequest) Fingerprint(snapshotVersion string) (string, error) {
	payload, err := json.Marshal(struct {
		Request         *AssessmentRequest `json:"request"`
		SnapshotVersion string             `json:"snapshot_version"`
	}{Request: r, SnapshotVersion: snapshotVersion})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to fingerprint the assessment request").
			Mark(ierr.ErrSystem)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// EffectiveFiledDate is the date the filing regime is judged against:
// the filed date when one exists, the assessment date otherwise
func (r *AssessmentRequest) EffectiveFiledDate() time.Time {
	if r.FiledDate != nil {
		return *r.FiledDate
	}
	return r.AssessmentDate
}

// LineItemCode classifies a breakdown line
type LineItemCode string

const (
	LineItemCodeBaseTax        LineItemCode = "base_tax"
	LineItemCodeMATAdjustment  LineItemCode = "mat_adjustment"
	LineItemCodeMinimumFloor   LineItemCode = "minimum_floor_adjustment"
	LineItemCodePenalty        LineItemCode = "penalty"
	LineItemCodeInterest       LineItemCode = "interest"
	LineItemCodePaymentCredit  LineItemCode = "payment_credit"
)

// LineItem is one row of the itemized assessment breakdown. Amounts
// are rounded to 2 decimal places, half up, exactly once. Line IDs are
// assigned by the aggregator, derived from the assessment ID so a
// recomputation reproduces them exactly.
type LineItem struct {
	ID          string          `json:"id"`
	Code        LineItemCode    `json:"code"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewLineItem builds a breakdown line with the single final rounding
// applied
func NewLineItem(code LineItemCode, description string, amount decimal.Decimal) *LineItem {
	return &LineItem{
		Code:        code,
		Description: description,
		Amount:      types.RoundMoney(amount),
	}
}

// AssessmentResult is the engine's output: a pure value, produced fresh
// on every call and never mutated afterwards. Identifiers are derived
// from the request and snapshot version, so identical inputs always
// reproduce a byte-identical result.
type AssessmentResult struct {
	ID              string        `json:"id"`
	ReferenceNumber string        `json:"reference_number"`
	ClientID        string        `json:"client_id"`
	TaxType         types.TaxType `json:"tax_type"`
	SnapshotVersion string        `json:"snapshot_version"`

	BaseTax            decimal.Decimal  `json:"base_tax"`
	MATApplied         bool             `json:"mat_applied"`
	MATAmount          *decimal.Decimal `json:"mat_amount,omitempty"`
	FloorApplied       bool             `json:"floor_applied"`
	FloorAmount        *decimal.Decimal `json:"floor_amount,omitempty"`
	FinalBaseLiability decimal.Decimal  `json:"final_base_liability"`

	PenaltyKind   *types.PenaltyKind `json:"penalty_kind,omitempty"`
	PenaltyAmount decimal.Decimal    `json:"penalty_amount"`

	InterestAmount decimal.Decimal `json:"interest_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	TotalDue       decimal.Decimal `json:"total_due"`

	Breakdown []*LineItem `json:"breakdown"`
}
