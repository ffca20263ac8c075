package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fetchall/internal/fetch"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep the CLI
	// flags in internal/cli/root.go in sync.
	Targeting Targeting
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Root is the directory whose subdirectories are fetched (positional path).
	// Defaults to the current working directory.
	Root string

	// Depth is how many directory levels below Root are searched (see --depth).
	// 1 means immediate children only. Must be >= 1.
	Depth int

	// Include keeps only work items matching at least one pattern (see --include).
	// Go path.Match style; a pattern containing '/' matches the relative path,
	// otherwise it matches the directory name.
	Include []string

	// Exclude drops work items matching any pattern (see --exclude).
	// Same matching rules as Include.
	Exclude []string

	// MaxRepos limits how many work items are fetched (see --max-repos). 0 means unlimited.
	MaxRepos int

	// DryRun prints the discovered work items without fetching (see --dry-run).
	DryRun bool
}

type Output struct {
	// ConsoleFormat controls the console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus limits console output to these outcome kinds
	// (see --console-filter-status), e.g. FETCH_FAILED,NO_REMOTE.
	ConsoleFilterStatus []string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink and progress messages (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Serial fetches one repository at a time in discovery order (see --serial).
	Serial bool

	// Jobs caps concurrent fetches in parallel mode (see --jobs).
	// 0 means one worker per available CPU.
	Jobs int

	// Timeout bounds the whole run (see --timeout). Must be > 0.
	Timeout time.Duration

	// NoAuth disables token credentials for HTTPS GitHub remotes (see --no-auth).
	NoAuth bool

	// NoTokenCheck skips verifying the resolved token against the GitHub API
	// (see --no-token-check).
	NoTokenCheck bool

	// Verbose enables detailed diagnostics on stderr and full error details.
	Verbose bool
}

// ConcurrencyMode is the scheduling model for a run. It is fixed once the run
// starts.
type ConcurrencyMode struct {
	Serial bool
	// MaxWorkers caps parallel tasks; 0 means runtime.NumCPU().
	MaxWorkers int
}

// Workers returns the effective number of concurrent tasks.
func (m ConcurrencyMode) Workers() int {
	if m.Serial {
		return 1
	}
	if m.MaxWorkers > 0 {
		return m.MaxWorkers
	}
	return max(runtime.NumCPU(), 1)
}

func (m ConcurrencyMode) String() string {
	if m.Serial {
		return "serial"
	}
	return fmt.Sprintf("parallel(%d)", m.Workers())
}

func New() *Config {
	return &Config{
		Targeting: Targeting{
			Root:  ".",
			Depth: 1,
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Timeout: 30 * time.Minute,
		},
	}
}

// Mode returns the concurrency mode selected by Runtime.
func (c *Config) Mode() ConcurrencyMode {
	return ConcurrencyMode{Serial: c.Runtime.Serial, MaxWorkers: c.Runtime.Jobs}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Targeting.Include = splitCommaList(c.Targeting.Include)
	c.Targeting.Exclude = splitCommaList(c.Targeting.Exclude)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)
	c.Output.Emit = splitCommaList(c.Output.Emit)

	// Targeting validation
	if strings.TrimSpace(c.Targeting.Root) == "" {
		c.Targeting.Root = "."
	}
	if c.Targeting.Depth < 1 {
		return errors.New("--depth must be >= 1")
	}
	if c.Targeting.MaxRepos < 0 {
		return errors.New("--max-repos must be >= 0")
	}
	for _, p := range append(append([]string(nil), c.Targeting.Include...), c.Targeting.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, st := range c.Output.ConsoleFilterStatus {
		v := strings.ToUpper(strings.TrimSpace(st))
		if !knownKind(v) {
			return fmt.Errorf("unsupported --console-filter-status value: %s (must be one of: %s)", st, kindNames())
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
		c.Output.Emit[i] = v
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Jobs < 0 {
		return errors.New("--jobs must be >= 0")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	return nil
}

func knownKind(v string) bool {
	for _, k := range fetch.Kinds {
		if string(k) == v {
			return true
		}
	}
	return false
}

func kindNames() string {
	names := make([]string, 0, len(fetch.Kinds))
	for _, k := range fetch.Kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
