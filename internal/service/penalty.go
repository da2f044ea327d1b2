package service

import (
	"context"
	"fmt"

	"github.com/levyline/levyline/internal/domain/assessment"
	"github.com/levyline/levyline/internal/domain/penaltyrule"
	"github.com/levyline/levyline/internal/domain/rate"
	"github.com/levyline/levyline/internal/types"
	"github.com/shopspring/decimal"
)

// regimeSwitchDays is the overdue day count at which a late filing
// stops being LateFiling and becomes NonFiling. Day 30 is still
// LateFiling; day 31 is NonFiling. The regimes never combine.
const regimeSwitchDays = 30

// PenaltyService determines the penalty regime and amounts from filing
// and payment timing. The filing regime is exclusive; late-payment and
// under-declaration penalties are assessed independently and add to it.
type PenaltyService interface {
	Assess(ctx context.Context, params AssessPenaltyParams, snapshot *rate.Snapshot) (*PenaltyResult, error)
}

// AssessPenaltyParams carries the request plus the liability the
// percentage penalties apply to
type AssessPenaltyParams struct {
	Request *assessment.AssessmentRequest

	// OutstandingLiability is the unpaid part of the final base
	// liability, floored at zero by the aggregator
	OutstandingLiability decimal.Decimal
}

// PenaltyResult is the combined penalty outcome. FilingRegime is nil
// when the return was filed on time.
type PenaltyResult struct {
	FilingRegime *types.PenaltyKind
	Total        decimal.Decimal
	Lines        []*assessment.LineItem
}

type penaltyService struct {
	ServiceParams
}

// NewPenaltyService creates a new instance of PenaltyService
func NewPenaltyService(params ServiceParams) PenaltyService {
	return &penaltyService{
		ServiceParams: params,
	}
}

func (s *penaltyService) Assess(ctx context.Context, params AssessPenaltyParams, snapshot *rate.Snapshot) (*PenaltyResult, error) {
	req := params.Request
	result := &PenaltyResult{Total: decimal.Zero}

	// Filing regime: LateFiling and NonFiling are mutually exclusive,
	// switched on the day count, never summed
	filingDaysOverdue := types.DaysOverdue(req.EffectiveFiledDate(), req.DueDate)
	if filingDaysOverdue > 0 {
		kind := types.PenaltyKindLateFiling
		if filingDaysOverdue > regimeSwitchDays {
			kind = types.PenaltyKindNonFiling
		}

		rule, err := snapshot.ResolvePenalty(rate.ResolvePenaltyParams{
			TaxType:          req.TaxType,
			TaxpayerCategory: req.TaxpayerCategory,
			PenaltyKind:      kind,
			DaysOverdue:      filingDaysOverdue,
		})
		if err != nil {
			return nil, err
		}

		amount := penaltyAmount(rule, params.OutstandingLiability, filingDaysOverdue)
		line := assessment.NewLineItem(
			assessment.LineItemCodePenalty,
			fmt.Sprintf("%s penalty, %d days overdue", kind, filingDaysOverdue),
			amount,
		)
		result.FilingRegime = &kind
		result.Lines = append(result.Lines, line)
		result.Total = result.Total.Add(line.Amount)

		s.Logger.Infow("filing penalty assessed",
			"client_id", req.ClientID,
			"penalty_kind", kind,
			"days_overdue", filingDaysOverdue,
			"penalty_rule_id", rule.ID,
			"amount", line.Amount,
		)
	}

	// Late payment is judged against the assessment date regardless of
	// filing status: a return filed on time can still be paid late
	paymentDaysOverdue := types.DaysOverdue(req.AssessmentDate, req.DueDate)
	if params.OutstandingLiability.IsPositive() && paymentDaysOverdue > 0 {
		rule, err := snapshot.ResolvePenalty(rate.ResolvePenaltyParams{
			TaxType:          req.TaxType,
			TaxpayerCategory: req.TaxpayerCategory,
			PenaltyKind:      types.PenaltyKindLatePayment,
			DaysOverdue:      paymentDaysOverdue,
		})
		if err != nil {
			return nil, err
		}

		amount := penaltyAmount(rule, params.OutstandingLiability, paymentDaysOverdue)
		line := assessment.NewLineItem(
			assessment.LineItemCodePenalty,
			fmt.Sprintf("%s penalty, %d days overdue", types.PenaltyKindLatePayment, paymentDaysOverdue),
			amount,
		)
		result.Lines = append(result.Lines, line)
		result.Total = result.Total.Add(line.Amount)
	}

	// Under-declaration is triggered by an established shortfall, not
	// by timing; day counts only select the rule window
	if req.UnderDeclaredAmount.IsPositive() {
		rule, err := snapshot.ResolvePenalty(rate.ResolvePenaltyParams{
			TaxType:          req.TaxType,
			TaxpayerCategory: req.TaxpayerCategory,
			PenaltyKind:      types.PenaltyKindUnderDeclaration,
			DaysOverdue:      paymentDaysOverdue,
		})
		if err != nil {
			return nil, err
		}

		amount := penaltyAmount(rule, params.OutstandingLiability, paymentDaysOverdue)
		line := assessment.NewLineItem(
			assessment.LineItemCodePenalty,
			fmt.Sprintf("%s penalty on shortfall of %s", types.PenaltyKindUnderDeclaration, req.UnderDeclaredAmount),
			amount,
		)
		result.Lines = append(result.Lines, line)
		result.Total = result.Total.Add(line.Amount)
	}

	return result, nil
}

// penaltyAmount turns a matched rule into a monetary amount. Daily and
// monthly rates count elapsed units from the rule's min_days_late
// threshold. The result is clamped into [min_cap, max_cap] when set.
func penaltyAmount(rule *penaltyrule.PenaltyRule, liability decimal.Decimal, daysOverdue int) decimal.Decimal {
	var amount decimal.Decimal

	elapsedDays := daysOverdue - rule.MinDaysLate
	if elapsedDays < 0 {
		elapsedDays = 0
	}

	switch rule.AmountKind {
	case types.PenaltyAmountKindFixedAmount:
		amount = rule.Value
	case types.PenaltyAmountKindPercentOfLiability:
		amount = liability.Mul(rule.Value).Div(decimal.NewFromInt(100))
	case types.PenaltyAmountKindDailyRate:
		amount = rule.Value.Mul(decimal.NewFromInt(int64(elapsedDays)))
	case types.PenaltyAmountKindMonthlyRate:
		amount = rule.Value.Mul(decimal.NewFromInt(int64(types.MonthsOverdue(elapsedDays))))
	}

	if rule.MinCap != nil && amount.LessThan(*rule.MinCap) {
		amount = *rule.MinCap
	}
	if rule.MaxCap != nil && amount.GreaterThan(*rule.MaxCap) {
		amount = *rule.MaxCap
	}

	return amount
}
