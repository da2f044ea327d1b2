package types

type RunMode string

const (
	// ModeLocal is the mode for running assessments locally against file-backed rates
	ModeLocal RunMode = "local"
	// ModeBatch is the mode for running the nightly batch recomputation
	ModeBatch RunMode = "batch"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
)
