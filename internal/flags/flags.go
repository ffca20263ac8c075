package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// engine (e.g. the dry-run command echo).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().IntVarP(&cfg.Runtime.Jobs, flags.FlagJobs, "j", 0, "...")
//	arg := "--" + flags.FlagJobs
const (
	// Targeting
	FlagDepth    = "depth"
	FlagInclude  = "include"
	FlagExclude  = "exclude"
	FlagMaxRepos = "max-repos"
	FlagDryRun   = "dry-run"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagSerial       = "serial"
	FlagJobs         = "jobs"
	FlagTimeout      = "timeout"
	FlagNoAuth       = "no-auth"
	FlagNoTokenCheck = "no-token-check"
	FlagVerbose      = "verbose"
)
