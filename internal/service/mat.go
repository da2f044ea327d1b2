package service

import (
	"context"
	"time"

	"github.com/levyline/levyline/internal/domain/rate"
	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/types"
	"github.com/shopspring/decimal"
)

// matTriggerLossYears is the number of consecutive prior loss years
// that switches the MAT override on. A profitable gap year resets the
// counter upstream, so the count arriving here is already consecutive.
const matTriggerLossYears = 2

// MATEvaluatorService decides whether the Minimum Alternate Tax
// overrides the base liability. It is independent of any unconditional
// minimum-floor rule, which the aggregator compares separately.
type MATEvaluatorService interface {
	Evaluate(ctx context.Context, params EvaluateMATParams, snapshot *rate.Snapshot) (*MATResult, error)
}

// EvaluateMATParams carries the inputs of one MAT evaluation
type EvaluateMATParams struct {
	Revenue              decimal.Decimal
	BaseTax              decimal.Decimal
	ConsecutiveLossYears int
	TaxpayerCategory     types.TaxpayerCategory
	AsOf                 time.Time
}

// MATResult reports the outcome. MATAmount is set only when the
// override was triggered.
type MATResult struct {
	FinalLiability decimal.Decimal
	MATApplied     bool
	MATAmount      *decimal.Decimal
}

type matEvaluatorService struct {
	ServiceParams
}

// NewMATEvaluatorService creates a new instance of MATEvaluatorService
func NewMATEvaluatorService(params ServiceParams) MATEvaluatorService {
	return &matEvaluatorService{
		ServiceParams: params,
	}
}

func (s *matEvaluatorService) Evaluate(ctx context.Context, params EvaluateMATParams, snapshot *rate.Snapshot) (*MATResult, error) {
	if params.Revenue.IsNegative() || params.BaseTax.IsNegative() {
		return nil, ierr.NewError("revenue and base tax cannot be negative").
			WithReportableDetails(map[string]any{
				"revenue":  params.Revenue,
				"base_tax": params.BaseTax,
			}).
			Mark(ierr.ErrInvalidAmount)
	}

	// MAT only ever triggers on sustained losses; revenue magnitude
	// alone is never enough
	if params.ConsecutiveLossYears < matTriggerLossYears {
		return &MATResult{
			FinalLiability: params.BaseTax,
			MATApplied:     false,
		}, nil
	}

	entry, err := snapshot.Resolve(rate.ResolveParams{
		TaxType:          types.TaxTypeMAT,
		TaxpayerCategory: params.TaxpayerCategory,
		AsOf:             params.AsOf,
	})
	if err != nil {
		return nil, err
	}

	if entry.Kind != types.RateKindFlat {
		return nil, ierr.NewError("MAT rate rows must be flat").
			WithReportableDetails(map[string]any{
				"rate_entry_id": entry.ID,
				"rate_kind":     entry.Kind,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	matAmount := types.RoundMoney(params.Revenue.Mul(entry.Value).Div(decimal.NewFromInt(100)))

	final := params.BaseTax
	if matAmount.GreaterThan(final) {
		final = matAmount
	}

	s.Logger.Debugw("MAT override triggered",
		"revenue", params.Revenue,
		"base_tax", params.BaseTax,
		"mat_amount", matAmount,
		"consecutive_loss_years", params.ConsecutiveLossYears,
	)

	return &MATResult{
		FinalLiability: final,
		MATApplied:     true,
		MATAmount:      &matAmount,
	}, nil
}
