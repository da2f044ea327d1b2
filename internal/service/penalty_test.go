package service

import (
	"testing"
	"time"

	"github.com/levyline/levyline/internal/domain/assessment"
	"github.com/levyline/levyline/internal/domain/penaltyrule"
	"github.com/levyline/levyline/internal/domain/rate"
	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/testutil"
	"github.com/levyline/levyline/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PenaltyServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PenaltyService
	snapshot *rate.Snapshot
}

func TestPenaltyService(t *testing.T) {
	suite.Run(t, new(PenaltyServiceSuite))
}

func (s *PenaltyServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.service = NewPenaltyService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		Cache:           s.GetCache(),
		RateRepo:        stores.RateRepo,
		PenaltyRuleRepo: stores.PenaltyRuleRepo,
	})

	rules := []*penaltyrule.PenaltyRule{
		{
			ID:          "pen_income_late_filing",
			TaxType:     types.TaxTypeIncome,
			PenaltyKind: types.PenaltyKindLateFiling,
			MinDaysLate: 1,
			MaxDaysLate: lo.ToPtr(30),
			AmountKind:  types.PenaltyAmountKindPercentOfLiability,
			Value:       decimal.NewFromInt(5),
			Priority:    10,
		},
		{
			ID:          "pen_income_non_filing",
			TaxType:     types.TaxTypeIncome,
			PenaltyKind: types.PenaltyKindNonFiling,
			MinDaysLate: 31,
			AmountKind:  types.PenaltyAmountKindPercentOfLiability,
			Value:       decimal.NewFromInt(10),
			Priority:    10,
		},
		{
			ID:               "pen_income_late_filing_small",
			TaxType:          types.TaxTypeIncome,
			TaxpayerCategory: types.TaxpayerCategorySmall,
			PenaltyKind:      types.PenaltyKindLateFiling,
			MinDaysLate:      1,
			MaxDaysLate:      lo.ToPtr(30),
			AmountKind:       types.PenaltyAmountKindFixedAmount,
			Value:            decimal.NewFromInt(2500),
			Priority:         10,
		},
		{
			ID:          "pen_income_late_payment",
			TaxType:     types.TaxTypeIncome,
			PenaltyKind: types.PenaltyKindLatePayment,
			MinDaysLate: 1,
			AmountKind:  types.PenaltyAmountKindPercentOfLiability,
			Value:       decimal.NewFromInt(2),
			Priority:    10,
		},
		{
			ID:          "pen_income_under_declaration",
			TaxType:     types.TaxTypeIncome,
			PenaltyKind: types.PenaltyKindUnderDeclaration,
			MinDaysLate: 0,
			AmountKind:  types.PenaltyAmountKindPercentOfLiability,
			Value:       decimal.NewFromInt(25),
			Priority:    10,
		},
		{
			ID:          "pen_gst_late_filing_daily",
			TaxType:     types.TaxTypeGST,
			PenaltyKind: types.PenaltyKindLateFiling,
			MinDaysLate: 1,
			MaxDaysLate: lo.ToPtr(30),
			AmountKind:  types.PenaltyAmountKindDailyRate,
			Value:       decimal.NewFromInt(100),
			MinCap:      lo.ToPtr(decimal.NewFromInt(500)),
			MaxCap:      lo.ToPtr(decimal.NewFromInt(1500)),
			Priority:    10,
		},
		{
			ID:          "pen_corp_non_filing_monthly",
			TaxType:     types.TaxTypeCorporate,
			PenaltyKind: types.PenaltyKindNonFiling,
			MinDaysLate: 31,
			AmountKind:  types.PenaltyAmountKindMonthlyRate,
			Value:       decimal.NewFromInt(10000),
			Priority:    10,
		},
	}

	snapshot, err := rate.NewSnapshot(nil, rules)
	s.Require().NoError(err)
	s.snapshot = snapshot
}

// newPenaltyRequest builds a request filed and assessed the given
// number of days after the due date
func (s *PenaltyServiceSuite) newPenaltyRequest(taxType types.TaxType, daysLate int) *assessment.AssessmentRequest {
	due := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	filed := due.AddDate(0, 0, daysLate)
	return &assessment.AssessmentRequest{
		ClientID:       "client_001",
		TaxType:        taxType,
		PeriodStart:    fixturePeriodStart,
		PeriodEnd:      fixturePeriodEnd,
		DueDate:        due,
		FiledDate:      &filed,
		AssessmentDate: filed,
	}
}

func (s *PenaltyServiceSuite) assess(req *assessment.AssessmentRequest, outstanding int64) (*PenaltyResult, error) {
	return s.service.Assess(s.GetContext(), AssessPenaltyParams{
		Request:              req,
		OutstandingLiability: decimal.NewFromInt(outstanding),
	}, s.snapshot)
}

func (s *PenaltyServiceSuite) TestOnTimeNoPenalty() {
	result, err := s.assess(s.newPenaltyRequest(types.TaxTypeIncome, 0), 0)
	s.NoError(err)
	s.Nil(result.FilingRegime)
	s.Empty(result.Lines)
	s.True(result.Total.IsZero())
}

func (s *PenaltyServiceSuite) TestRegimeSwitchAtThirtyDays() {
	// day 30 is still late filing
	result, err := s.assess(s.newPenaltyRequest(types.TaxTypeIncome, 30), 100000)
	s.NoError(err)
	s.Require().NotNil(result.FilingRegime)
	s.Equal(types.PenaltyKindLateFiling, *result.FilingRegime)

	// day 31 flips to non-filing
	result, err = s.assess(s.newPenaltyRequest(types.TaxTypeIncome, 31), 100000)
	s.NoError(err)
	s.Require().NotNil(result.FilingRegime)
	s.Equal(types.PenaltyKindNonFiling, *result.FilingRegime)
}

func (s *PenaltyServiceSuite) TestRegimesNeverCombine() {
	result, err := s.assess(s.newPenaltyRequest(types.TaxTypeIncome, 35), 200000)
	s.NoError(err)

	s.Require().NotNil(result.FilingRegime)
	s.Equal(types.PenaltyKindNonFiling, *result.FilingRegime)

	// one filing line at 10%, one late-payment line at 2%; no
	// late-filing amount anywhere
	s.Len(result.Lines, 2)
	s.True(result.Lines[0].Amount.Equal(decimal.NewFromInt(20000)), "got %s", result.Lines[0].Amount)
	s.True(result.Lines[1].Amount.Equal(decimal.NewFromInt(4000)), "got %s", result.Lines[1].Amount)
	s.True(result.Total.Equal(decimal.NewFromInt(24000)))
}

func (s *PenaltyServiceSuite) TestCategorySpecificRuleWins() {
	req := s.newPenaltyRequest(types.TaxTypeIncome, 10)
	req.TaxpayerCategory = types.TaxpayerCategorySmall
	req.AssessmentDate = req.DueDate // paid on time, filing only

	result, err := s.assess(req, 100000)
	s.NoError(err)
	s.Len(result.Lines, 1)
	s.True(result.Lines[0].Amount.Equal(decimal.NewFromInt(2500)), "got %s", result.Lines[0].Amount)
}

func (s *PenaltyServiceSuite) TestDailyRateCountsFromThreshold() {
	req := s.newPenaltyRequest(types.TaxTypeGST, 10)
	req.AssessmentDate = req.DueDate

	// 9 elapsed days past the 1-day threshold at 100 per day
	result, err := s.assess(req, 0)
	s.NoError(err)
	s.Len(result.Lines, 1)
	s.True(result.Lines[0].Amount.Equal(decimal.NewFromInt(900)), "got %s", result.Lines[0].Amount)
}

func (s *PenaltyServiceSuite) TestCapsClampTheAmount() {
	// 2 elapsed days would be 200, lifted to the 500 floor
	req := s.newPenaltyRequest(types.TaxTypeGST, 3)
	req.AssessmentDate = req.DueDate
	result, err := s.assess(req, 0)
	s.NoError(err)
	s.True(result.Total.Equal(decimal.NewFromInt(500)), "got %s", result.Total)

	// 24 elapsed days would be 2400, cut to the 1500 ceiling
	req = s.newPenaltyRequest(types.TaxTypeGST, 25)
	req.AssessmentDate = req.DueDate
	result, err = s.assess(req, 0)
	s.NoError(err)
	s.True(result.Total.Equal(decimal.NewFromInt(1500)), "got %s", result.Total)
}

func (s *PenaltyServiceSuite) TestMonthlyRatePenalty() {
	// 40 days overdue, 9 elapsed past the 31-day threshold, one month
	result, err := s.assess(s.newPenaltyRequest(types.TaxTypeCorporate, 40), 0)
	s.NoError(err)
	s.Require().NotNil(result.FilingRegime)
	s.Equal(types.PenaltyKindNonFiling, *result.FilingRegime)
	s.True(result.Total.Equal(decimal.NewFromInt(10000)), "got %s", result.Total)

	// 62 days overdue, 31 elapsed, two months
	result, err = s.assess(s.newPenaltyRequest(types.TaxTypeCorporate, 62), 0)
	s.NoError(err)
	s.True(result.Total.Equal(decimal.NewFromInt(20000)), "got %s", result.Total)
}

func (s *PenaltyServiceSuite) TestUnderDeclarationAddsOn() {
	req := s.newPenaltyRequest(types.TaxTypeIncome, 0)
	req.UnderDeclaredAmount = decimal.NewFromInt(50000)

	result, err := s.assess(req, 100000)
	s.NoError(err)

	s.Nil(result.FilingRegime)
	s.Len(result.Lines, 1)
	s.True(result.Total.Equal(decimal.NewFromInt(25000)), "got %s", result.Total)
}

func (s *PenaltyServiceSuite) TestLatePaymentWithoutLateFiling() {
	req := s.newPenaltyRequest(types.TaxTypeIncome, 0)
	req.AssessmentDate = req.DueDate.AddDate(0, 0, 15)

	result, err := s.assess(req, 100000)
	s.NoError(err)

	s.Nil(result.FilingRegime)
	s.Len(result.Lines, 1)
	s.True(result.Total.Equal(decimal.NewFromInt(2000)), "got %s", result.Total)
}

func (s *PenaltyServiceSuite) TestTriggeredWithoutRuleFails() {
	result, err := s.assess(s.newPenaltyRequest(types.TaxTypeWithholding, 10), 100000)
	s.Error(err)
	s.Nil(result)
	s.True(ierr.IsNoApplicableRule(err))
}
