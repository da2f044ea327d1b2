package configfile

import (
	"context"
	"time"

	"github.com/levyline/levyline/internal/config"
	"github.com/levyline/levyline/internal/domain/penaltyrule"
	"github.com/levyline/levyline/internal/domain/rate"
	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/logger"
	"github.com/levyline/levyline/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

// Store loads rate and penalty configuration from the rates file once
// and serves it read-only. It implements the persisted-configuration
// collaborator the registry builds its snapshots from.
type Store struct {
	entries []*rate.RateTableEntry
	rules   []*penaltyrule.PenaltyRule
}

// rateFile mirrors the on-disk document shape
type rateFile struct {
	Rates        []rateRow        `mapstructure:"rates"`
	PenaltyRules []penaltyRuleRow `mapstructure:"penalty_rules"`
}

type rateRow struct {
	ID               string       `mapstructure:"id"`
	TaxType          string       `mapstructure:"tax_type"`
	TaxpayerCategory string       `mapstructure:"taxpayer_category"`
	PaymentCategory  string       `mapstructure:"payment_category"`
	EffectiveFrom    string       `mapstructure:"effective_from"`
	EffectiveTo      string       `mapstructure:"effective_to"`
	Kind             string       `mapstructure:"kind"`
	Value            float64      `mapstructure:"value"`
	Brackets         []bracketRow `mapstructure:"brackets"`
}

type bracketRow struct {
	LowerBound float64  `mapstructure:"lower_bound"`
	UpperBound *float64 `mapstructure:"upper_bound"`
	Rate       float64  `mapstructure:"rate"`
}

type penaltyRuleRow struct {
	ID               string   `mapstructure:"id"`
	TaxType          string   `mapstructure:"tax_type"`
	TaxpayerCategory string   `mapstructure:"taxpayer_category"`
	PenaltyKind      string   `mapstructure:"penalty_kind"`
	MinDaysLate      int      `mapstructure:"min_days_late"`
	MaxDaysLate      *int     `mapstructure:"max_days_late"`
	AmountKind       string   `mapstructure:"amount_kind"`
	Value            float64  `mapstructure:"value"`
	MinCap           *float64 `mapstructure:"min_cap"`
	MaxCap           *float64 `mapstructure:"max_cap"`
	Priority         int      `mapstructure:"priority"`
}

// NewStore reads the rates file named by the configuration and
// converts every row into its domain model. Parse failures surface
// with row context; they are configuration errors, not runtime ones.
func NewStore(cfg *config.Configuration, log *logger.Logger) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(cfg.Rates.Path)

	if err := v.ReadInConfig(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read the rates configuration file").
			WithReportableDetails(map[string]any{
				"path": cfg.Rates.Path,
			}).
			Mark(ierr.ErrValidation)
	}

	var file rateFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The rates configuration file is malformed").
			WithReportableDetails(map[string]any{
				"path": cfg.Rates.Path,
			}).
			Mark(ierr.ErrValidation)
	}

	store := &Store{}
	for i, row := range file.Rates {
		entry, err := row.toEntry()
		if err != nil {
			return nil, ierr.WithError(err).
				WithMessagef("rates[%d] is invalid", i).
				Mark(ierr.ErrValidation)
		}
		store.entries = append(store.entries, entry)
	}
	for i, row := range file.PenaltyRules {
		rule, err := row.toRule()
		if err != nil {
			return nil, ierr.WithError(err).
				WithMessagef("penalty_rules[%d] is invalid", i).
				Mark(ierr.ErrValidation)
		}
		store.rules = append(store.rules, rule)
	}

	log.Infow("loaded rates configuration",
		"path", cfg.Rates.Path,
		"rate_entries", len(store.entries),
		"penalty_rules", len(store.rules),
	)

	return store, nil
}

func (r rateRow) toEntry() (*rate.RateTableEntry, error) {
	effectiveFrom, err := time.Parse(dateLayout, r.EffectiveFrom)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("effective_from must be a YYYY-MM-DD date").
			Mark(ierr.ErrInvalidEffectiveRange)
	}

	var effectiveTo *time.Time
	if r.EffectiveTo != "" {
		to, err := time.Parse(dateLayout, r.EffectiveTo)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("effective_to must be a YYYY-MM-DD date").
				Mark(ierr.ErrInvalidEffectiveRange)
		}
		effectiveTo = &to
	}

	var paymentCategory *types.PaymentCategory
	if r.PaymentCategory != "" {
		paymentCategory = lo.ToPtr(types.PaymentCategory(r.PaymentCategory))
	}

	id := r.ID
	if id == "" {
		id = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RATE_TABLE_ENTRY)
	}

	return &rate.RateTableEntry{
		ID:               id,
		TaxType:          types.TaxType(r.TaxType),
		TaxpayerCategory: types.TaxpayerCategory(r.TaxpayerCategory),
		PaymentCategory:  paymentCategory,
		EffectiveFrom:    effectiveFrom,
		EffectiveTo:      effectiveTo,
		Kind:             types.RateKind(r.Kind),
		Value:            decimal.NewFromFloat(r.Value),
		Brackets: lo.Map(r.Brackets, func(b bracketRow, _ int) rate.TaxBracket {
			var upper *decimal.Decimal
			if b.UpperBound != nil {
				upper = lo.ToPtr(decimal.NewFromFloat(*b.UpperBound))
			}
			return rate.TaxBracket{
				LowerBound: decimal.NewFromFloat(b.LowerBound),
				UpperBound: upper,
				Rate:       decimal.NewFromFloat(b.Rate),
			}
		}),
	}, nil
}

func (r penaltyRuleRow) toRule() (*penaltyrule.PenaltyRule, error) {
	id := r.ID
	if id == "" {
		id = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PENALTY_RULE)
	}

	var minCap, maxCap *decimal.Decimal
	if r.MinCap != nil {
		minCap = lo.ToPtr(decimal.NewFromFloat(*r.MinCap))
	}
	if r.MaxCap != nil {
		maxCap = lo.ToPtr(decimal.NewFromFloat(*r.MaxCap))
	}

	return &penaltyrule.PenaltyRule{
		ID:               id,
		TaxType:          types.TaxType(r.TaxType),
		TaxpayerCategory: types.TaxpayerCategory(r.TaxpayerCategory),
		PenaltyKind:      types.PenaltyKind(r.PenaltyKind),
		MinDaysLate:      r.MinDaysLate,
		MaxDaysLate:      r.MaxDaysLate,
		AmountKind:       types.PenaltyAmountKind(r.AmountKind),
		Value:            decimal.NewFromFloat(r.Value),
		MinCap:           minCap,
		MaxCap:           maxCap,
		Priority:         r.Priority,
	}, nil
}

// RateRepository returns the store's rate.Repository view
func (s *Store) RateRepository() rate.Repository {
	return &rateRepository{store: s}
}

// PenaltyRuleRepository returns the store's penaltyrule.Repository view
func (s *Store) PenaltyRuleRepository() penaltyrule.Repository {
	return &penaltyRuleRepository{store: s}
}

type rateRepository struct {
	store *Store
}

func (r *rateRepository) List(_ context.Context) ([]*rate.RateTableEntry, error) {
	return r.store.entries, nil
}

type penaltyRuleRepository struct {
	store *Store
}

func (r *penaltyRuleRepository) List(_ context.Context) ([]*penaltyrule.PenaltyRule, error) {
	return r.store.rules, nil
}
