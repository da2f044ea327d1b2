package service

import (
	"context"
	"fmt"

	"github.com/levyline/levyline/internal/domain/assessment"
	"github.com/levyline/levyline/internal/domain/rate"
	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/types"
	"github.com/shopspring/decimal"
)

// TaxCalculatorService computes the base liability per tax type from a
// taxable base and the registry snapshot. It is pure: no I/O, no
// clock, no state between calls.
type TaxCalculatorService interface {
	Calculate(ctx context.Context, req *assessment.AssessmentRequest, snapshot *rate.Snapshot) (*BaseTaxResult, error)
}

// BaseTaxResult is the base liability plus its itemized lines. Amount
// is the sum of the rounded line amounts so the breakdown always
// reconciles.
type BaseTaxResult struct {
	Amount decimal.Decimal
	Lines  []*assessment.LineItem
}

type taxCalculatorService struct {
	ServiceParams
}

// NewTaxCalculatorService creates a new instance of TaxCalculatorService
func NewTaxCalculatorService(params ServiceParams) TaxCalculatorService {
	return &taxCalculatorService{
		ServiceParams: params,
	}
}

func (s *taxCalculatorService) Calculate(ctx context.Context, req *assessment.AssessmentRequest, snapshot *rate.Snapshot) (*BaseTaxResult, error) {
	switch req.TaxType {
	case types.TaxTypeIncome, types.TaxTypeCorporate:
		return s.calculateFromBase(req, snapshot)
	case types.TaxTypeGST:
		return s.calculateGST(req)
	case types.TaxTypeWithholding:
		return s.calculateWithholding(req, snapshot)
	default:
		return nil, ierr.NewError("unknown tax type").
			WithHint("The tax type has no base liability calculation").
			WithReportableDetails(map[string]any{
				"tax_type": req.TaxType,
			}).
			Mark(ierr.ErrUnknownTaxType)
	}
}

// calculateFromBase handles the schedule-driven tax heads: a bracket
// row walks the progressive schedule, a flat row applies one rate to
// the whole base. The resolved row's kind decides, never a default.
func (s *taxCalculatorService) calculateFromBase(req *assessment.AssessmentRequest, snapshot *rate.Snapshot) (*BaseTaxResult, error) {
	entry, err := snapshot.Resolve(rate.ResolveParams{
		TaxType:          req.TaxType,
		TaxpayerCategory: req.TaxpayerCategory,
		AsOf:             req.AssessmentDate,
	})
	if err != nil {
		return nil, err
	}

	switch entry.Kind {
	case types.RateKindBracket:
		return s.progressive(req, entry), nil
	case types.RateKindFlat:
		amount := req.TaxableBase.Mul(entry.Value).Div(decimal.NewFromInt(100))
		line := assessment.NewLineItem(
			assessment.LineItemCodeBaseTax,
			fmt.Sprintf("%s tax at %s%% on %s", req.TaxType, entry.Value, req.TaxableBase),
			amount,
		)
		return &BaseTaxResult{Amount: line.Amount, Lines: []*assessment.LineItem{line}}, nil
	default:
		return nil, ierr.NewError("rate kind cannot produce a base liability").
			WithHint("Base tax rows must be bracket or flat schedules").
			WithReportableDetails(map[string]any{
				"rate_entry_id": entry.ID,
				"rate_kind":     entry.Kind,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
}

// progressive walks the brackets in ascending order, accumulating the
// marginal tax of every band the taxable amount reaches. The walk is
// continuous at band boundaries: an amount equal to an upper bound
// taxes the full band and nothing in the next.
func (s *taxCalculatorService) progressive(req *assessment.AssessmentRequest, entry *rate.RateTableEntry) *BaseTaxResult {
	taxable := req.TaxableBase

	total := decimal.Zero
	lines := make([]*assessment.LineItem, 0, len(entry.Brackets))
	for _, b := range entry.Brackets {
		if taxable.LessThanOrEqual(b.LowerBound) {
			break
		}

		portionTop := taxable
		if b.UpperBound != nil && b.UpperBound.LessThan(taxable) {
			portionTop = *b.UpperBound
		}
		portion := portionTop.Sub(b.LowerBound)

		line := assessment.NewLineItem(
			assessment.LineItemCodeBaseTax,
			fmt.Sprintf("%s tax band %s to %s at %s%% on %s", req.TaxType, b.LowerBound, bracketTop(b), b.Rate, portion),
			portion.Mul(b.Rate).Div(decimal.NewFromInt(100)),
		)
		lines = append(lines, line)
		total = total.Add(line.Amount)
	}

	return &BaseTaxResult{Amount: total, Lines: lines}
}

// calculateGST nets the pre-computed output GST against input GST,
// floored at zero. Negative balances belong to the refund workflow,
// not this calculator.
func (s *taxCalculatorService) calculateGST(req *assessment.AssessmentRequest) (*BaseTaxResult, error) {
	net := req.OutputGST.Sub(req.InputGST)
	if net.IsNegative() {
		net = decimal.Zero
	}

	line := assessment.NewLineItem(
		assessment.LineItemCodeBaseTax,
		fmt.Sprintf("GST net of output %s less input %s", req.OutputGST, req.InputGST),
		net,
	)
	return &BaseTaxResult{Amount: line.Amount, Lines: []*assessment.LineItem{line}}, nil
}

// calculateWithholding applies the payment category's flat rate to the
// gross amount
func (s *taxCalculatorService) calculateWithholding(req *assessment.AssessmentRequest, snapshot *rate.Snapshot) (*BaseTaxResult, error) {
	entry, err := snapshot.Resolve(rate.ResolveParams{
		TaxType:          types.TaxTypeWithholding,
		TaxpayerCategory: req.TaxpayerCategory,
		PaymentCategory:  req.PaymentCategory,
		AsOf:             req.AssessmentDate,
	})
	if err != nil {
		return nil, err
	}

	if entry.Kind != types.RateKindFlat {
		return nil, ierr.NewError("withholding rate rows must be flat").
			WithReportableDetails(map[string]any{
				"rate_entry_id": entry.ID,
				"rate_kind":     entry.Kind,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	amount := req.TaxableBase.Mul(entry.Value).Div(decimal.NewFromInt(100))
	line := assessment.NewLineItem(
		assessment.LineItemCodeBaseTax,
		fmt.Sprintf("Withholding on %s at %s%% on gross %s", *req.PaymentCategory, entry.Value, req.TaxableBase),
		amount,
	)
	return &BaseTaxResult{Amount: line.Amount, Lines: []*assessment.LineItem{line}}, nil
}

func bracketTop(b rate.TaxBracket) string {
	if b.UpperBound == nil {
		return "above"
	}
	return b.UpperBound.String()
}
