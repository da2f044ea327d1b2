package penaltyrule

import (
	"context"
)

// Repository defines the interface for penalty rule lookups
type Repository interface {
	// List returns every configured penalty rule
	List(ctx context.Context) ([]*PenaltyRule, error)
}
