package rate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	ierr "github.com/levyline/levyline/internal/errors"
	"github.com/levyline/levyline/internal/domain/penaltyrule"
	"github.com/levyline/levyline/internal/types"
	"github.com/samber/lo"
)

// Snapshot is an immutable, effective-dated view of all rate and
// penalty configuration used for one assessment run. Snapshots are
// never mutated after construction, so any number of concurrent
// assessments may share one safely.
type Snapshot struct {
	version      string
	entries      []*RateTableEntry
	penaltyRules []*penaltyrule.PenaltyRule
}

// ResolveParams identifies the rate row an assessment needs
type ResolveParams struct {
	TaxType          types.TaxType
	TaxpayerCategory types.TaxpayerCategory
	PaymentCategory  *types.PaymentCategory
	AsOf             time.Time
}

// ResolvePenaltyParams identifies the penalty rule an obligation needs
type ResolvePenaltyParams struct {
	TaxType          types.TaxType
	TaxpayerCategory types.TaxpayerCategory
	PenaltyKind      types.PenaltyKind
	DaysOverdue      int
}

// NewSnapshot validates every row and seals them into a snapshot.
// Any invalid row rejects the whole snapshot: a registry that would
// produce wrong assessments must never come into existence.
func NewSnapshot(entries []*RateTableEntry, rules []*penaltyrule.PenaltyRule) (*Snapshot, error) {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	version, err := contentVersion(entries, rules)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		version:      version,
		entries:      entries,
		penaltyRules: rules,
	}, nil
}

// Version is a content-derived identifier for the snapshot, recorded on
// every assessment result so a recomputation can prove it used the same
// configuration
func (s *Snapshot) Version() string {
	return s.version
}

// Resolve finds the single rate row in force for the given tax type,
// taxpayer category and date. Category-specific rows outrank general
// rows; a missing row is a typed failure, never a silent default.
func (s *Snapshot) Resolve(params ResolveParams) (*RateTableEntry, error) {
	candidates := lo.Filter(s.entries, func(e *RateTableEntry, _ int) bool {
		if e.TaxType != params.TaxType {
			return false
		}
		if !matchPaymentCategory(e.PaymentCategory, params.PaymentCategory) {
			return false
		}
		return e.ActiveAt(params.AsOf)
	})

	// Category-specific rows first, then the general fallback
	exact := lo.Filter(candidates, func(e *RateTableEntry, _ int) bool {
		return !e.TaxpayerCategory.IsGeneral() && e.TaxpayerCategory == params.TaxpayerCategory
	})
	if picked, err := pickOne(exact, params); picked != nil || err != nil {
		return picked, err
	}

	general := lo.Filter(candidates, func(e *RateTableEntry, _ int) bool {
		return e.TaxpayerCategory.IsGeneral()
	})
	if picked, err := pickOne(general, params); picked != nil || err != nil {
		return picked, err
	}

	return nil, ierr.NewError("no applicable rate rule").
		WithHint("No rate is configured for this tax type, category and date").
		WithReportableDetails(map[string]any{
			"tax_type":          params.TaxType,
			"taxpayer_category": params.TaxpayerCategory,
			"payment_category":  params.PaymentCategory,
			"as_of":             params.AsOf,
		}).
		Mark(ierr.ErrNoApplicableRule)
}

// ResolvePenalty finds the single best-matching penalty rule for the
// given kind and overdue day count. Specificity ranks a rule matching
// both tax type and category above a tax-type-only rule; among equally
// specific candidates the highest priority wins and a priority tie is
// a configuration error.
func (s *Snapshot) ResolvePenalty(params ResolvePenaltyParams) (*penaltyrule.PenaltyRule, error) {
	candidates := lo.Filter(s.penaltyRules, func(r *penaltyrule.PenaltyRule, _ int) bool {
		return r.TaxType == params.TaxType &&
			r.PenaltyKind == params.PenaltyKind &&
			r.AppliesTo(params.DaysOverdue)
	})

	exact := lo.Filter(candidates, func(r *penaltyrule.PenaltyRule, _ int) bool {
		return !r.TaxpayerCategory.IsGeneral() && r.TaxpayerCategory == params.TaxpayerCategory
	})
	if picked, err := pickByPriority(exact, params); picked != nil || err != nil {
		return picked, err
	}

	general := lo.Filter(candidates, func(r *penaltyrule.PenaltyRule, _ int) bool {
		return r.TaxpayerCategory.IsGeneral()
	})
	if picked, err := pickByPriority(general, params); picked != nil || err != nil {
		return picked, err
	}

	return nil, ierr.NewError("no applicable penalty rule").
		WithHint("No penalty rule is configured for this tax type, kind and overdue window").
		WithReportableDetails(map[string]any{
			"tax_type":          params.TaxType,
			"taxpayer_category": params.TaxpayerCategory,
			"penalty_kind":      params.PenaltyKind,
			"days_overdue":      params.DaysOverdue,
		}).
		Mark(ierr.ErrNoApplicableRule)
}

// pickOne returns the sole candidate, or an ambiguity error when more
// than one row of the same specificity is active on the same date
func pickOne(candidates []*RateTableEntry, params ResolveParams) (*RateTableEntry, error) {
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return candidates[0], nil
	default:
		return nil, ierr.NewError("ambiguous rate rule match").
			WithHint("More than one rate row of the same specificity is active for this date").
			WithReportableDetails(map[string]any{
				"tax_type":          params.TaxType,
				"taxpayer_category": params.TaxpayerCategory,
				"as_of":             params.AsOf,
				"candidates": lo.Map(candidates, func(e *RateTableEntry, _ int) string {
					return e.ID
				}),
			}).
			Mark(ierr.ErrAmbiguousRuleMatch)
	}
}

// pickByPriority returns the highest-priority candidate, erroring on a
// tie at the top
func pickByPriority(candidates []*penaltyrule.PenaltyRule, params ResolvePenaltyParams) (*penaltyrule.PenaltyRule, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	best := lo.MaxBy(candidates, func(a, b *penaltyrule.PenaltyRule) bool {
		return a.Priority > b.Priority
	})
	tied := lo.Filter(candidates, func(r *penaltyrule.PenaltyRule, _ int) bool {
		return r.Priority == best.Priority
	})
	if len(tied) > 1 {
		return nil, ierr.NewError("ambiguous penalty rule match").
			WithHint("Multiple penalty rules of the same specificity share the highest priority").
			WithReportableDetails(map[string]any{
				"tax_type":     params.TaxType,
				"penalty_kind": params.PenaltyKind,
				"days_overdue": params.DaysOverdue,
				"candidates": lo.Map(tied, func(r *penaltyrule.PenaltyRule, _ int) string {
					return r.ID
				}),
			}).
			Mark(ierr.ErrAmbiguousRuleMatch)
	}

	return best, nil
}

func matchPaymentCategory(entry, requested *types.PaymentCategory) bool {
	if entry == nil && requested == nil {
		return true
	}
	if entry == nil || requested == nil {
		return false
	}
	return *entry == *requested
}

func contentVersion(entries []*RateTableEntry, rules []*penaltyrule.PenaltyRule) (string, error) {
	payload, err := json.Marshal(struct {
		Entries []*RateTableEntry          `json:"entries"`
		Rules   []*penaltyrule.PenaltyRule `json:"rules"`
	}{Entries: entries, Rules: rules})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to derive a snapshot version from the rate configuration").
			Mark(ierr.ErrSystem)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16], nil
}
