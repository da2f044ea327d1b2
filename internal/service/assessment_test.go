package service

import (
	"testing"

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

type AssessmentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  AssessmentService
	snapshot *rate.Snapshot
}

func TestAssessmentService(t *testing.T) {
	suite.Run(t, new(AssessmentServiceSuite))
}

func assessmentFixtureEntries() []*rate.RateTableEntry {
	return []*rate.RateTableEntry{
		incomeBracketEntry(),
		corporateFlatEntry(types.TaxpayerCategoryGeneral, 29),
		matFlatEntry(2),
		{
			ID:               "rate_floor_large",
			TaxType:          types.TaxTypeMinimumFloor,
			TaxpayerCategory: types.TaxpayerCategoryLarge,
			EffectiveFrom:    fixtureEffectiveFrom,
			Kind:             types.RateKindFixedAmount,
			Value:            decimal.NewFromInt(500000),
		},
		interestEntry(types.RateKindDailyRate, 12),
	}
}

func assessmentFixtureRules() []*penaltyrule.PenaltyRule {
	return []*penaltyrule.PenaltyRule{
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
			ID:          "pen_income_late_payment",
			TaxType:     types.TaxTypeIncome,
			PenaltyKind: types.PenaltyKindLatePayment,
			MinDaysLate: 1,
			AmountKind:  types.PenaltyAmountKindPercentOfLiability,
			Value:       decimal.NewFromInt(2),
			Priority:    10,
		},
	}
}

func (s *AssessmentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.service = NewAssessmentService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		Cache:           s.GetCache(),
		RateRepo:        stores.RateRepo,
		PenaltyRuleRepo: stores.PenaltyRuleRepo,
	})

	snapshot, err := rate.NewSnapshot(assessmentFixtureEntries(), assessmentFixtureRules())
	s.Require().NoError(err)
	s.snapshot = snapshot
}

func (s *AssessmentServiceSuite) newRequest(taxType types.TaxType, base int64) *assessment.AssessmentRequest {
	return &assessment.AssessmentRequest{
		ClientID:       "client_001",
		TaxType:        taxType,
		TaxableBase:    decimal.NewFromInt(base),
		PeriodStart:    fixturePeriodStart,
		PeriodEnd:      fixturePeriodEnd,
		DueDate:        fixtureAssessedAt,
		AssessmentDate: fixtureAssessedAt,
	}
}

func (s *AssessmentServiceSuite) TestOnTimeFullyPaid() {
	req := s.newRequest(types.TaxTypeCorporate, 1000000)
	req.AmountPaidToDate = decimal.NewFromInt(290000)

	result, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.NoError(err)

	s.True(result.BaseTax.Equal(decimal.NewFromInt(290000)))
	s.False(result.MATApplied)
	s.False(result.FloorApplied)
	s.Nil(result.PenaltyKind)
	s.True(result.PenaltyAmount.IsZero())
	s.True(result.InterestAmount.IsZero())
	s.True(result.TotalDue.IsZero())

	// base tax line plus the payment credit
	s.Len(result.Breakdown, 2)
	s.Equal(assessment.LineItemCodePaymentCredit, result.Breakdown[1].Code)
	s.True(result.Breakdown[1].Amount.Equal(decimal.NewFromInt(-290000)))
}

func (s *AssessmentServiceSuite) TestLateUnpaidFullBreakdown() {
	req := s.newRequest(types.TaxTypeIncome, 900000)
	filed := req.DueDate.AddDate(0, 0, 35)
	req.FiledDate = &filed
	req.AssessmentDate = filed

	result, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.NoError(err)

	s.True(result.BaseTax.Equal(decimal.NewFromInt(45000)), "got %s", result.BaseTax)
	s.Require().NotNil(result.PenaltyKind)
	s.Equal(types.PenaltyKindNonFiling, *result.PenaltyKind)

	// non-filing 10% of 45000 plus late payment 2% of 45000
	s.True(result.PenaltyAmount.Equal(decimal.NewFromInt(5400)), "got %s", result.PenaltyAmount)

	// 50400 * 12% / 365 * 35 days
	s.True(result.InterestAmount.Equal(decimal.RequireFromString("579.95")), "got %s", result.InterestAmount)
	s.True(result.TotalDue.Equal(decimal.RequireFromString("50979.95")), "got %s", result.TotalDue)

	// two bracket lines, two penalty lines, one interest line
	s.Len(result.Breakdown, 5)
	codes := lo.Map(result.Breakdown, func(l *assessment.LineItem, _ int) assessment.LineItemCode { return l.Code })
	s.Equal([]assessment.LineItemCode{
		assessment.LineItemCodeBaseTax,
		assessment.LineItemCodeBaseTax,
		assessment.LineItemCodePenalty,
		assessment.LineItemCodePenalty,
		assessment.LineItemCodeInterest,
	}, codes)

	total := decimal.Zero
	for _, line := range result.Breakdown {
		total = total.Add(line.Amount)
	}
	s.True(result.TotalDue.Equal(total), "breakdown sums to %s, total due %s", total, result.TotalDue)
}

func (s *AssessmentServiceSuite) TestMATAndFloorBothCompared() {
	req := s.newRequest(types.TaxTypeCorporate, 100000)
	req.TaxpayerCategory = types.TaxpayerCategoryLarge
	req.Revenue = decimal.NewFromInt(20000000)
	req.ConsecutiveLossYears = 2

	result, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.NoError(err)

	// base 29000, MAT lifts to 400000, the fixed floor lifts further
	s.True(result.BaseTax.Equal(decimal.NewFromInt(29000)))
	s.True(result.MATApplied)
	s.Require().NotNil(result.MATAmount)
	s.True(result.MATAmount.Equal(decimal.NewFromInt(400000)))
	s.True(result.FloorApplied)
	s.Require().NotNil(result.FloorAmount)
	s.True(result.FloorAmount.Equal(decimal.NewFromInt(500000)))
	s.True(result.FinalBaseLiability.Equal(decimal.NewFromInt(500000)))
	s.True(result.TotalDue.Equal(decimal.NewFromInt(500000)))

	codes := lo.Map(result.Breakdown, func(l *assessment.LineItem, _ int) assessment.LineItemCode { return l.Code })
	s.Equal([]assessment.LineItemCode{
		assessment.LineItemCodeBaseTax,
		assessment.LineItemCodeMATAdjustment,
		assessment.LineItemCodeMinimumFloor,
	}, codes)
}

func (s *AssessmentServiceSuite) TestFloorBelowLiabilityIsInert() {
	req := s.newRequest(types.TaxTypeCorporate, 10000000)
	req.TaxpayerCategory = types.TaxpayerCategoryLarge

	result, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.NoError(err)

	s.True(result.BaseTax.Equal(decimal.NewFromInt(2900000)))
	s.False(result.FloorApplied)
	s.Nil(result.FloorAmount)
	s.True(result.FinalBaseLiability.Equal(decimal.NewFromInt(2900000)))
}

func (s *AssessmentServiceSuite) TestIdempotentReplay() {
	req := s.newRequest(types.TaxTypeIncome, 900000)
	filed := req.DueDate.AddDate(0, 0, 35)
	req.FiledDate = &filed
	req.AssessmentDate = filed

	first, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.Require().NoError(err)
	second, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.Require().NoError(err)

	// identical inputs against the same snapshot replay byte for
	// byte, identifiers included
	s.Equal(first.ID, second.ID)
	s.Equal(first.ReferenceNumber, second.ReferenceNumber)
	s.Equal(first, second)
}

func (s *AssessmentServiceSuite) TestOverpaymentClampsToZero() {
	req := s.newRequest(types.TaxTypeCorporate, 1000000)
	req.AmountPaidToDate = decimal.NewFromInt(400000)

	result, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.NoError(err)
	s.True(result.TotalDue.IsZero())
	s.True(result.AmountPaid.Equal(decimal.NewFromInt(400000)))
}

func (s *AssessmentServiceSuite) TestFailuresCarryTheStage() {
	// a triggered penalty with no configured rule fails the penalty
	// stage and keeps the typed cause
	bare, err := rate.NewSnapshot(assessmentFixtureEntries(), nil)
	s.Require().NoError(err)

	req := s.newRequest(types.TaxTypeIncome, 900000)
	filed := req.DueDate.AddDate(0, 0, 10)
	req.FiledDate = &filed
	req.AssessmentDate = filed

	_, err = s.service.AssessWithSnapshot(s.GetContext(), req, bare)
	s.Require().Error(err)
	s.True(ierr.IsNoApplicableRule(err))
	s.Contains(err.Error(), StagePenalty)

	// a triggered MAT with no MAT row fails the MAT stage
	noMAT, err := rate.NewSnapshot([]*rate.RateTableEntry{
		corporateFlatEntry(types.TaxpayerCategoryGeneral, 29),
	}, nil)
	s.Require().NoError(err)

	req = s.newRequest(types.TaxTypeCorporate, 100000)
	req.Revenue = decimal.NewFromInt(20000000)
	req.ConsecutiveLossYears = 2

	_, err = s.service.AssessWithSnapshot(s.GetContext(), req, noMAT)
	s.Require().Error(err)
	s.True(ierr.IsNoApplicableRule(err))
	s.Contains(err.Error(), StageMAT)
}

func (s *AssessmentServiceSuite) TestInvalidRequestRejected() {
	req := s.newRequest(types.TaxTypeIncome, 900000)
	req.ClientID = ""

	_, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *AssessmentServiceSuite) TestAssessUsesTheRegistry() {
	stores := s.GetStores()
	for _, entry := range assessmentFixtureEntries() {
		stores.RateRepo.Add(entry)
	}
	for _, rule := range assessmentFixtureRules() {
		stores.PenaltyRuleRepo.Add(rule)
	}

	result, err := s.service.Assess(s.GetContext(), s.newRequest(types.TaxTypeCorporate, 1000000))
	s.NoError(err)
	s.True(result.BaseTax.Equal(decimal.NewFromInt(290000)))
	s.NotEmpty(result.SnapshotVersion)
}

func (s *AssessmentServiceSuite) TestWithholdingRequiresPaymentCategory() {
	req := s.newRequest(types.TaxTypeWithholding, 100000)

	_, err := s.service.AssessWithSnapshot(s.GetContext(), req, s.snapshot)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func TestAssessmentRequestFingerprint(t *testing.T) {
	suiteReq := func() *assessment.AssessmentRequest {
		return &assessment.AssessmentRequest{
			ClientID:       "client_001",
			TaxType:        types.TaxTypeIncome,
			TaxableBase:    decimal.NewFromInt(900000),
			PeriodStart:    fixturePeriodStart,
			PeriodEnd:      fixturePeriodEnd,
			DueDate:        fixtureAssessedAt,
			AssessmentDate: fixtureAssessedAt,
		}
	}

	a, err := suiteReq().Fingerprint("v1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := suiteReq().Fingerprint("v1")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("same request produced different fingerprints: %s vs %s", a, b)
	}

	c, err := suiteReq().Fingerprint("v2")
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Fatal("different snapshot versions must fingerprint differently")
	}
}
