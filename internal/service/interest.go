package service

import (
	"context"
	"time"

	"github.com/levyline/levyline/internal/domain/rate"
	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/types"
	"github.com/shopspring/decimal"
)

// InterestService computes interest on unpaid balances. The accrual
// basis comes from the resolved rate row's kind: a daily row accrues
// simple non-compounding interest at annual_rate/365 per day; a
// monthly row accrues per elapsed month with partial months counted
// as full. The calculator never assumes a basis the row doesn't state.
type InterestService interface {
	Accrue(ctx context.Context, params AccrueInterestParams, snapshot *rate.Snapshot) (decimal.Decimal, error)
}

// AccrueInterestParams carries the inputs of one accrual
type AccrueInterestParams struct {
	Principal        decimal.Decimal
	DaysOverdue      int
	TaxpayerCategory types.TaxpayerCategory
	AsOf             time.Time
}

type interestService struct {
	ServiceParams
}

// NewInterestService creates a new instance of InterestService
func NewInterestService(params ServiceParams) InterestService {
	return &interestService{
		ServiceParams: params,
	}
}

func (s *interestService) Accrue(ctx context.Context, params AccrueInterestParams, snapshot *rate.Snapshot) (decimal.Decimal, error) {
	if params.Principal.IsNegative() {
		return decimal.Zero, ierr.NewError("interest principal cannot be negative").
			WithReportableDetails(map[string]any{
				"principal": params.Principal,
			}).
			Mark(ierr.ErrInvalidAmount)
	}

	if params.Principal.IsZero() || params.DaysOverdue <= 0 {
		return decimal.Zero, nil
	}

	entry, err := snapshot.Resolve(rate.ResolveParams{
		TaxType:          types.TaxTypeLatePaymentInterest,
		TaxpayerCategory: params.TaxpayerCategory,
		AsOf:             params.AsOf,
	})
	if err != nil {
		return decimal.Zero, err
	}

	var interest decimal.Decimal
	switch entry.Kind {
	case types.RateKindDailyRate:
		// principal * (annualRate/365) * days, one rounding at the end
		interest = params.Principal.
			Mul(entry.Value).
			Div(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(365)).
			Mul(decimal.NewFromInt(int64(params.DaysOverdue)))
	case types.RateKindMonthlyRate:
		interest = params.Principal.
			Mul(entry.Value).
			Div(decimal.NewFromInt(100)).
			Mul(decimal.NewFromInt(int64(types.MonthsOverdue(params.DaysOverdue))))
	default:
		return decimal.Zero, ierr.NewError("interest rate rows must be daily or monthly").
			WithHint("The resolved interest rule does not state an accrual basis").
			WithReportableDetails(map[string]any{
				"rate_entry_id": entry.ID,
				"rate_kind":     entry.Kind,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	return types.RoundMoney(interest), nil
}
