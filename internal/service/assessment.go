package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/levyline/levyline/internal/domain/assessment"
	"github.com/levyline/levyline/internal/domain/rate"
	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/types"
	"github.com/shopspring/decimal"
)

// Assessment stages, reported on aggregate failures so callers can
// pinpoint the failing step without seeing internal rule data
const (
	StageRegistry     = "registry"
	StageBaseTax      = "base_tax"
	StageMAT          = "minimum_alternate_tax"
	StageMinimumFloor = "minimum_floor"
	StagePenalty      = "penalty"
	StageInterest     = "interest"
)

// AssessmentService orchestrates the calculators into one assessment
// result: base tax, the MAT override, the independent minimum-floor
// comparison, penalties, interest and the itemized breakdown.
type AssessmentService interface {
	// Assess computes the amount due using the current registry snapshot
	Assess(ctx context.Context, req *assessment.AssessmentRequest) (*assessment.AssessmentResult, error)

	// AssessWithSnapshot computes the amount due against an explicit
	// snapshot, so a whole batch shares one immutable view
	AssessWithSnapshot(ctx context.Context, req *assessment.AssessmentRequest, snapshot *rate.Snapshot) (*assessment.AssessmentResult, error)
}

type assessmentService struct {
	ServiceParams
	registry RateRegistryService
	taxCalc  TaxCalculatorService
	mat      MATEvaluatorService
	penalty  PenaltyService
	interest InterestService
}

// NewAssessmentService creates a new instance of AssessmentService
func NewAssessmentService(params ServiceParams) AssessmentService {
	return &assessmentService{
		ServiceParams: params,
		registry:      NewRateRegistryService(params),
		taxCalc:       NewTaxCalculatorService(params),
		mat:           NewMATEvaluatorService(params),
		penalty:       NewPenaltyService(params),
		interest:      NewInterestService(params),
	}
}

func (s *assessmentService) Assess(ctx context.Context, req *assessment.AssessmentRequest) (*assessment.AssessmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := s.registry.GetSnapshot(ctx)
	if err != nil {
		return nil, stageFailure(StageRegistry, err)
	}

	return s.AssessWithSnapshot(ctx, req, snapshot)
}

func (s *assessmentService) AssessWithSnapshot(ctx context.Context, req *assessment.AssessmentRequest, snapshot *rate.Snapshot) (*assessment.AssessmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Base liability per tax type
	base, err := s.taxCalc.Calculate(ctx, req, snapshot)
	if err != nil {
		return nil, stageFailure(StageBaseTax, err)
	}
	breakdown := append([]*assessment.LineItem{}, base.Lines...)

	// Loss-triggered MAT override
	matRes, err := s.mat.Evaluate(ctx, EvaluateMATParams{
		Revenue:              req.Revenue,
		BaseTax:              base.Amount,
		ConsecutiveLossYears: req.ConsecutiveLossYears,
		TaxpayerCategory:     req.TaxpayerCategory,
		AsOf:                 req.AssessmentDate,
	}, snapshot)
	if err != nil {
		return nil, stageFailure(StageMAT, err)
	}

	finalBase := matRes.FinalLiability
	if matRes.MATApplied && matRes.FinalLiability.GreaterThan(base.Amount) {
		breakdown = append(breakdown, assessment.NewLineItem(
			assessment.LineItemCodeMATAdjustment,
			fmt.Sprintf("Minimum alternate tax uplift from %s to %s", base.Amount, matRes.FinalLiability),
			matRes.FinalLiability.Sub(base.Amount),
		))
	}

	// Unconditional minimum floor: a comparison independent of MAT,
	// never merged into it. Absence of a floor row is not an error.
	floorAmount, floorApplied, err := s.minimumFloor(req, finalBase, snapshot)
	if err != nil {
		return nil, stageFailure(StageMinimumFloor, err)
	}
	if floorApplied {
		breakdown = append(breakdown, assessment.NewLineItem(
			assessment.LineItemCodeMinimumFloor,
			fmt.Sprintf("Minimum tax floor uplift from %s to %s", finalBase, *floorAmount),
			floorAmount.Sub(finalBase),
		))
		finalBase = *floorAmount
	}

	outstanding := finalBase.Sub(req.AmountPaidToDate)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	// Penalties on filing and payment timing
	penaltyRes, err := s.penalty.Assess(ctx, AssessPenaltyParams{
		Request:              req,
		OutstandingLiability: outstanding,
	}, snapshot)
	if err != nil {
		return nil, stageFailure(StagePenalty, err)
	}
	breakdown = append(breakdown, penaltyRes.Lines...)

	// Interest on whatever remains unpaid past the due date,
	// penalties included
	interestBase := finalBase.Add(penaltyRes.Total).Sub(req.AmountPaidToDate)
	if interestBase.IsNegative() {
		interestBase = decimal.Zero
	}
	interestAmount, err := s.interest.Accrue(ctx, AccrueInterestParams{
		Principal:        interestBase,
		DaysOverdue:      types.DaysOverdue(req.AssessmentDate, req.DueDate),
		TaxpayerCategory: req.TaxpayerCategory,
		AsOf:             req.AssessmentDate,
	}, snapshot)
	if err != nil {
		return nil, stageFailure(StageInterest, err)
	}
	if interestAmount.IsPositive() {
		breakdown = append(breakdown, assessment.NewLineItem(
			assessment.LineItemCodeInterest,
			fmt.Sprintf("Interest on unpaid balance of %s", interestBase),
			interestAmount,
		))
	}

	if req.AmountPaidToDate.IsPositive() {
		breakdown = append(breakdown, assessment.NewLineItem(
			assessment.LineItemCodePaymentCredit,
			"Payments received to date",
			req.AmountPaidToDate.Neg(),
		))
	}

	totalDue := finalBase.Add(penaltyRes.Total).Add(interestAmount).Sub(req.AmountPaidToDate)
	if totalDue.IsNegative() {
		// Overpayments route to the refund workflow, not this engine
		totalDue = decimal.Zero
	}

	fingerprint, err := req.Fingerprint(snapshot.Version())
	if err != nil {
		return nil, err
	}
	for i, line := range breakdown {
		line.ID = fmt.Sprintf("%s_%s_%02d", types.UUID_PREFIX_ASSESSMENT_LINE_ITEM, fingerprint[:12], i)
	}

	result := &assessment.AssessmentResult{
		ID:              fmt.Sprintf("%s_%s", types.UUID_PREFIX_ASSESSMENT, fingerprint[:24]),
		ReferenceNumber: types.SHORT_ID_PREFIX_ASSESSMENT + strings.ToUpper(fingerprint[:8]),
		ClientID:        req.ClientID,
		TaxType:         req.TaxType,
		SnapshotVersion: snapshot.Version(),

		BaseTax:            base.Amount,
		MATApplied:         matRes.MATApplied,
		MATAmount:          matRes.MATAmount,
		FloorApplied:       floorApplied,
		FloorAmount:        floorAmount,
		FinalBaseLiability: finalBase,

		PenaltyKind:   penaltyRes.FilingRegime,
		PenaltyAmount: penaltyRes.Total,

		InterestAmount: interestAmount,
		AmountPaid:     req.AmountPaidToDate,
		TotalDue:       types.RoundMoney(totalDue),

		Breakdown: breakdown,
	}

	s.Logger.Infow("assessment computed",
		"client_id", req.ClientID,
		"tax_type", req.TaxType,
		"assessment_id", result.ID,
		"snapshot_version", result.SnapshotVersion,
		"base_tax", result.BaseTax,
		"mat_applied", result.MATApplied,
		"penalty_amount", result.PenaltyAmount,
		"interest_amount", result.InterestAmount,
		"total_due", result.TotalDue,
	)

	return result, nil
}

// minimumFloor resolves the optional unconditional minimum-floor row
// and returns the floor amount when it exceeds the current liability
func (s *assessmentService) minimumFloor(req *assessment.AssessmentRequest, current decimal.Decimal, snapshot *rate.Snapshot) (*decimal.Decimal, bool, error) {
	entry, err := snapshot.Resolve(rate.ResolveParams{
		TaxType:          types.TaxTypeMinimumFloor,
		TaxpayerCategory: req.TaxpayerCategory,
		AsOf:             req.AssessmentDate,
	})
	if err != nil {
		if ierr.IsNoApplicableRule(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var floor decimal.Decimal
	switch entry.Kind {
	case types.RateKindFlat:
		floor = types.RoundMoney(req.Revenue.Mul(entry.Value).Div(decimal.NewFromInt(100)))
	case types.RateKindFixedAmount:
		floor = types.RoundMoney(entry.Value)
	default:
		return nil, false, ierr.NewError("minimum floor rows must be flat or fixed amount").
			WithReportableDetails(map[string]any{
				"rate_entry_id": entry.ID,
				"rate_kind":     entry.Kind,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if floor.GreaterThan(current) {
		return &floor, true, nil
	}
	return nil, false, nil
}

// stageFailure wraps a sub-component error with the failing stage name
// while preserving its typed sentinel marks
func stageFailure(stage string, err error) error {
	return ierr.WithError(err).
		WithMessagef("assessment stage %s failed", stage).
		WithReportableDetails(map[string]any{
			"stage": stage,
		}).
		Error()
}
