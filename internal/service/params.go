package service

import (
	"github.com/levyline/levyline/internal/cache"
	"github.com/levyline/levyline/internal/config"
	"github.com/levyline/levyline/internal/domain/penaltyrule"
	"github.com/levyline/levyline/internal/domain/rate"
	"github.com/levyline/levyline/internal/logger"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Cache  cache.Cache

	// Repositories
	RateRepo        rate.Repository
	PenaltyRuleRepo penaltyrule.Repository
}
