package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"fetchall/internal/config"
	"fetchall/internal/fetch"
	"fetchall/internal/output"
)

// Exit code contract:
//
//	0 = every work item fetched (or nothing to fetch)
//	1 = run interrupted (signal or --timeout)
//	2 = some work items did not succeed
//	3 = fatal error (nothing was scheduled)
const (
	ExitOK          = 0
	ExitInterrupted = 1
	ExitPartial     = 2
	ExitFatal       = 3
)

func exitCodeForRun(fatal, interrupted, partial bool) int {
	if fatal {
		return ExitFatal
	}
	if interrupted {
		return ExitInterrupted
	}
	if partial {
		return ExitPartial
	}
	return ExitOK
}

type Engine struct {
	Runner Runner

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

func NewEngine(runner Runner) *Engine {
	return &Engine{Runner: runner}
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func (e *Engine) setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	add := func(s output.Sink, err error) error {
		if err == nil {
			err = outMgr.AddSink(s)
		}
		if err != nil {
			outMgr.Close()
		}
		return err
	}

	if !cfg.Output.NoConsole {
		if err := add(output.NewConsoleSink(e.stdout(), cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus), nil); err != nil {
			return nil, err
		}
	}

	// Additional structured streams on stdout.
	for _, emit := range cfg.Output.Emit {
		if err := add(output.NewEmitSink(e.stdout(), emit)); err != nil {
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		if err := add(output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)); err != nil {
			return nil, err
		}
	}

	if cfg.Output.Report != "" {
		if err := add(output.NewReportSink(cfg.Output.Report)); err != nil {
			return nil, err
		}
	}

	return outMgr, nil
}

func (e *Engine) progressf(cfg *config.Config, format string, args ...any) {
	if cfg.Output.NoConsole {
		return
	}
	fmt.Fprintf(e.stderr(), format, args...)
}

func (e *Engine) verbosef(cfg *config.Config, format string, args ...any) {
	if !cfg.Runtime.Verbose {
		return
	}
	fmt.Fprintf(e.stderr(), "[verbose] "+format, args...)
}

func (e *Engine) discoverItems(cfg *config.Config) ([]fetch.WorkItem, bool) {
	e.progressf(cfg, "Discovering repositories in %s...\n", cfg.Targeting.Root)
	items, err := Discover(cfg.Targeting.Root, cfg.Targeting.Depth)
	if err != nil {
		fmt.Fprintf(e.stderr(), "Error discovering repositories: %v\n", err)
		return nil, false
	}
	return items, true
}

func (e *Engine) maybeDryRun(cfg *config.Config, plan *Plan) bool {
	if !cfg.Targeting.DryRun {
		return false
	}
	w := e.stdout()
	fmt.Fprintf(w, "Would fetch %d repositories (%s):\n", plan.Len(), plan.Mode)
	for _, it := range plan.Items {
		fmt.Fprintln(w, it.Name)
	}
	return true
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	if e.Runner == nil {
		fmt.Fprintln(e.stderr(), "Error: engine has no runner")
		return exitCodeForRun(true, false, false)
	}

	items, ok := e.discoverItems(cfg)
	if !ok {
		return exitCodeForRun(true, false, false)
	}
	discovered := len(items)
	items = FilterItems(items, cfg)
	if len(items) != discovered {
		e.verbosef(cfg, "%d of %d directories selected by filters\n", len(items), discovered)
	}
	e.progressf(cfg, "Found %d repositories.\n", len(items))

	plan, err := NewPlan(cfg.Targeting.Root, items, cfg.Mode())
	if err != nil {
		fmt.Fprintf(e.stderr(), "Error planning fetch: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	if e.maybeDryRun(cfg, plan) {
		return ExitOK
	}

	scheduler, err := NewScheduler(e.Runner)
	if err != nil {
		fmt.Fprintf(e.stderr(), "Error creating scheduler: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	outMgr, err := e.setupOutputManager(cfg)
	if err != nil {
		fmt.Fprintf(e.stderr(), "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer func() {
		if err := outMgr.Close(); err != nil {
			fmt.Fprintf(e.stderr(), "Error closing output sinks: %v\n", err)
		}
	}()

	e.verbosef(cfg, "fetching with %s\n", plan.Mode)
	_ = outMgr.Write(output.Event{
		Type:    output.EventRunStarted,
		Root:    plan.Root,
		Repos:   plan.Len(),
		Mode:    plan.Mode.String(),
		Workers: plan.Mode.Workers(),
	})

	resCh, errCh := scheduler.Execute(ctx, plan)

	counts := make(map[fetch.Kind]int)
	partial := false
	for o := range resCh {
		counts[o.Kind]++
		if !o.OK() {
			partial = true
		}
		if err := outMgr.Write(o); err != nil {
			e.verbosef(cfg, "output: %v\n", err)
		}
	}

	var schedErr error
	for err := range errCh {
		if err != nil {
			schedErr = err
		}
	}

	interrupted := ctx.Err() != nil
	fatal := schedErr != nil && !interrupted
	if fatal {
		fmt.Fprintf(e.stderr(), "Error: %v\n", schedErr)
	}
	if interrupted {
		cause := context.Cause(ctx)
		if errors.Is(cause, context.DeadlineExceeded) {
			fmt.Fprintf(e.stderr(), "Interrupted: timed out after %s\n", cfg.Runtime.Timeout)
		} else {
			fmt.Fprintf(e.stderr(), "Interrupted: %v\n", cause)
		}
	}

	code := exitCodeForRun(fatal, interrupted, partial)
	_ = outMgr.Write(output.Event{Type: output.EventRunFinished, ExitCode: &code, Counts: counts})
	return code
}
