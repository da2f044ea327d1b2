package rate

import (
	"context"
)

// Repository defines the interface for rate configuration lookups.
// Implementations are read-only from the engine's point of view; the
// registry loads all entries once per snapshot build.
type Repository interface {
	// List returns every rate table entry across all effective ranges
	List(ctx context.Context) ([]*RateTableEntry, error)
}
