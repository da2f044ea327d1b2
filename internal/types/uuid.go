package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex rate_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_RATE_TABLE_ENTRY = "rate"
	UUID_PREFIX_PENALTY_RULE     = "penrule"

	// Assessment identifiers are content-derived, not random, because
	// recomputing an assessment with identical inputs must reproduce
	// an identical result. They reuse these prefixes.
	UUID_PREFIX_ASSESSMENT           = "asmt"
	UUID_PREFIX_ASSESSMENT_LINE_ITEM = "asmt_line"
)

const (
	SHORT_ID_PREFIX_ASSESSMENT = "AS-"
)
