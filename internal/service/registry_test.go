package service

import (
	"errors"
	"testing"

	"github.com/levyline/levyline/internal/testutil"
	"github.com/levyline/levyline/internal/types"
	"github.com/stretchr/testify/suite"
)

type RateRegistryServiceSuite struct {
	testutil.BaseServiceTestSuite
	service RateRegistryService
}

func TestRateRegistryService(t *testing.T) {
	suite.Run(t, new(RateRegistryServiceSuite))
}

func (s *RateRegistryServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.service = NewRateRegistryService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		Cache:           s.GetCache(),
		RateRepo:        stores.RateRepo,
		PenaltyRuleRepo: stores.PenaltyRuleRepo,
	})
}

func (s *RateRegistryServiceSuite) TestSnapshotIsCached() {
	s.GetStores().RateRepo.Add(corporateFlatEntry(types.TaxpayerCategoryGeneral, 29))

	first, err := s.service.GetSnapshot(s.GetContext())
	s.Require().NoError(err)

	// a row added after the snapshot was cached is not visible
	s.GetStores().RateRepo.Add(incomeBracketEntry())

	second, err := s.service.GetSnapshot(s.GetContext())
	s.Require().NoError(err)
	s.Same(first, second)
}

func (s *RateRegistryServiceSuite) TestInvalidateRebuilds() {
	s.GetStores().RateRepo.Add(corporateFlatEntry(types.TaxpayerCategoryGeneral, 29))

	first, err := s.service.GetSnapshot(s.GetContext())
	s.Require().NoError(err)

	s.GetStores().RateRepo.Add(incomeBracketEntry())
	s.service.Invalidate(s.GetContext())

	second, err := s.service.GetSnapshot(s.GetContext())
	s.Require().NoError(err)
	s.NotSame(first, second)
	s.NotEqual(first.Version(), second.Version())
}

func (s *RateRegistryServiceSuite) TestRepositoryErrorPropagates() {
	s.GetStores().RateRepo.WithListError(errors.New("repository unavailable"))

	_, err := s.service.GetSnapshot(s.GetContext())
	s.Error(err)
}

func (s *RateRegistryServiceSuite) TestInvalidRowRejectsTheSnapshot() {
	bad := corporateFlatEntry(types.TaxpayerCategoryGeneral, 29)
	to := fixtureEffectiveFrom.AddDate(0, -1, 0)
	bad.EffectiveTo = &to
	s.GetStores().RateRepo.Add(bad)

	_, err := s.service.GetSnapshot(s.GetContext())
	s.Error(err)
}
