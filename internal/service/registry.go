package service

import (
	"context"

	"github.com/levyline/levyline/internal/cache"
	"github.com/levyline/levyline/internal/domain/rate"
)

// RateRegistryService builds and serves immutable registry snapshots.
// A snapshot is loaded once per batch window, cached, and shared
// read-only across concurrent assessments.
type RateRegistryService interface {
	// GetSnapshot returns the current registry snapshot, building and
	// caching one when none is live
	GetSnapshot(ctx context.Context) (*rate.Snapshot, error)

	// Invalidate drops the cached snapshot so the next call rebuilds
	// from the repositories
	Invalidate(ctx context.Context)
}

type rateRegistryService struct {
	ServiceParams
}

// NewRateRegistryService creates a new instance of RateRegistryService
func NewRateRegistryService(params ServiceParams) RateRegistryService {
	return &rateRegistryService{
		ServiceParams: params,
	}
}

func (s *rateRegistryService) GetSnapshot(ctx context.Context) (*rate.Snapshot, error) {
	cacheKey := cache.PrefixRegistrySnapshot + "current"

	if s.Cache != nil {
		if cached, found := s.Cache.Get(ctx, cacheKey); found {
			if snapshot, ok := cached.(*rate.Snapshot); ok {
				return snapshot, nil
			}
		}
	}

	entries, err := s.RateRepo.List(ctx)
	if err != nil {
		s.Logger.Errorw("failed to load rate entries for snapshot",
			"error", err,
		)
		return nil, err
	}

	rules, err := s.PenaltyRuleRepo.List(ctx)
	if err != nil {
		s.Logger.Errorw("failed to load penalty rules for snapshot",
			"error", err,
		)
		return nil, err
	}

	snapshot, err := rate.NewSnapshot(entries, rules)
	if err != nil {
		s.Logger.Errorw("failed to build registry snapshot",
			"error", err,
			"rate_entries", len(entries),
			"penalty_rules", len(rules),
		)
		return nil, err
	}

	s.Logger.Infow("built registry snapshot",
		"version", snapshot.Version(),
		"rate_entries", len(entries),
		"penalty_rules", len(rules),
	)

	if s.Cache != nil {
		s.Cache.Set(ctx, cacheKey, snapshot, s.Config.Cache.SnapshotTTL)
	}

	return snapshot, nil
}

func (s *rateRegistryService) Invalidate(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.Delete(ctx, cache.PrefixRegistrySnapshot+"current")
	}
}
