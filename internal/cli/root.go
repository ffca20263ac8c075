package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fetchall/internal/config"
	"fetchall/internal/engine"
	"fetchall/internal/fetch"
	"fetchall/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfg = config.New()

var rootCmd = &cobra.Command{
	Use:   "fetchall [path]",
	Short: "Fetch every git repository under a directory",
	Long: `fetchall runs "git fetch" against the default remote of every repository
found under a directory, and prints one line per repository as each fetch
completes.

Every subdirectory of path (default: the current directory) is a candidate.
Folders that are not repositories, or that have no remote, are reported and
never stop the run. Working trees are never modified.

Authentication:
  HTTPS remotes on github.com use a token from GITHUB_TOKEN, GH_TOKEN, or
  the GitHub CLI (gh auth token), when one is available. The token is checked
  once against the GitHub API; --no-token-check skips the check and --no-auth
  fetches anonymously. SSH remotes use the running ssh-agent.

Output:
  Each outcome is printed as it arrives:
    [SUCCESS] name: N refs
    [KIND] name: detail
  where KIND is NOT_A_REPOSITORY, NO_REMOTE, REMOTE_RESOLUTION_FAILED,
  FETCH_FAILED, or CANCELLED (not started because the run was interrupted).

  Structured outputs can be written via:
  - --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
  - --emit: write an additional structured stream to stdout (json or ndjson)
  - --report: write a Markdown summary
  - --no-console: suppress the console sink (use with --emit/--out for machine output)

  NDJSON mode emits lifecycle Events with a "type" field (run.started,
  repo.outcome, run.finished).

Exit codes:
  0 = every repository fetched (or none found)
  1 = interrupted (Ctrl-C, SIGTERM, or --timeout)
  2 = some repositories did not fetch
  3 = fatal error (nothing was fetched)

Examples:
  # Fetch every repository in the current directory, in parallel
  fetchall

  # One at a time, in name order
  fetchall --serial ~/src

  # Two levels deep, at most 4 fetches at once
  fetchall -d 2 -j 4 ~/work

  # Stream machine-readable events
  fetchall ~/src --no-console --emit ndjson`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			cfg.Targeting.Root = args[0]
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		os.Exit(run(cmd.Context(), cfg))
	},
}

// run wires the git client, credentials and engine for one invocation.
func run(parent context.Context, cfg *config.Config) int {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	var auth fetch.AuthProvider
	if !cfg.Runtime.NoAuth {
		auth = fetch.NewGitHubCredentials(!cfg.Runtime.NoTokenCheck, os.Stderr, cfg.Runtime.Verbose)
	}

	task, err := fetch.NewTask(fetch.NewGoGit(auth), cfg.Runtime.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}

	return engine.NewEngine(task).Run(ctx, cfg)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (full error details, token checks, GitHub API calls)")

	// MAINTAINER NOTE: keep in sync with config.Config.

	// Targeting
	rootCmd.Flags().IntVarP(&cfg.Targeting.Depth, flags.FlagDepth, "d", cfg.Targeting.Depth, "Directory levels to search below path (1 = immediate subdirectories)")
	rootCmd.Flags().StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches the relative path, else the directory name")
	rootCmd.Flags().StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	rootCmd.Flags().IntVar(&cfg.Targeting.MaxRepos, flags.FlagMaxRepos, 0, "Maximum number of repositories to fetch (0 = unlimited)")
	rootCmd.Flags().BoolVar(&cfg.Targeting.DryRun, flags.FlagDryRun, false, "List the repositories that would be fetched and exit")

	// Output
	rootCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, cfg.Output.ConsoleFormat, "Console output format: text|json|ndjson")
	rootCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Only print these outcome kinds (e.g. FETCH_FAILED,NO_REMOTE). Comma-separated.")
	rootCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	rootCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	rootCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	rootCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	rootCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output and progress (use with --emit/--out/--report)")

	// Runtime
	rootCmd.Flags().BoolVarP(&cfg.Runtime.Serial, flags.FlagSerial, "s", false, "Fetch one repository at a time, in name order")
	rootCmd.Flags().IntVarP(&cfg.Runtime.Jobs, flags.FlagJobs, "j", 0, "Maximum concurrent fetches (0 = number of CPUs)")
	rootCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout for the whole run")
	rootCmd.Flags().BoolVar(&cfg.Runtime.NoAuth, flags.FlagNoAuth, false, "Do not use a GitHub token for HTTPS remotes")
	rootCmd.Flags().BoolVar(&cfg.Runtime.NoTokenCheck, flags.FlagNoTokenCheck, false, "Do not verify the GitHub token against the API before fetching")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(engine.ExitFatal)
	}
}
