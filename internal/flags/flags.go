package flags

// Package flags defines canonical CLI flag names shared across the
// CLI commands. Keeping these as constants avoids drift between Cobra
// flag wiring and code that references flags in error messages.
// IMPORTANT: These are flag *names* without leading dashes.
const (
	// Target
	FlagProvider    = "provider"
	FlagTenantID    = "tenant-id"
	FlagModules     = "modules"
	FlagSkipModules = "skip-modules"

	// Rules
	FlagLevel    = "level"
	FlagRulesDir = "rules-dir"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"
	FlagTables              = "tables"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagFailFast    = "fail-fast"
	FlagConfig      = "config"
	FlagVerbose     = "verbose"
	FlagQuiet       = "quiet"
	FlagNoColor     = "no-color"
)
