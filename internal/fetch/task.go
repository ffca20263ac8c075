package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoRemote is returned by Repository.DefaultRemote when no remote can be
// selected for fetching. It is an expected configuration state, not a fault.
var ErrNoRemote = errors.New("no remote configured")

// Opener opens a directory as a git repository.
type Opener interface {
	Open(path string) (Repository, error)
}

type Repository interface {
	// DefaultRemote returns the remote used when fetching without an explicit
	// remote name, or ErrNoRemote.
	DefaultRemote() (Remote, error)
}

type Remote interface {
	Name() string
	// Fetch connects to the remote, reads its ref advertisement and fetches
	// new objects. It returns the number of advertised refs.
	Fetch(ctx context.Context) (int, error)
}

// Task fetches a single work item. It is safe for concurrent use as long as
// the Opener is.
type Task struct {
	opener  Opener
	verbose bool
	now     func() time.Time
}

func NewTask(opener Opener, verbose bool) (*Task, error) {
	if opener == nil {
		return nil, errors.New("opener is nil")
	}
	return &Task{opener: opener, verbose: verbose, now: time.Now}, nil
}

// Run resolves and fetches item. It never returns an error: every failure is
// reported as an Outcome.
func (t *Task) Run(ctx context.Context, item WorkItem) (out Outcome) {
	start := t.now()
	defer func() {
		if r := recover(); r != nil {
			out = FetchFailed(item, out.Remote, fmt.Sprintf("panic: %v", r))
		}
		out.Duration = t.now().Sub(start)
	}()
	return t.run(ctx, item)
}

func (t *Task) run(ctx context.Context, item WorkItem) Outcome {
	repo, err := t.opener.Open(item.Path)
	if err != nil {
		return NotARepository(item, presentError(err, t.verbose))
	}

	remote, err := repo.DefaultRemote()
	if errors.Is(err, ErrNoRemote) {
		return NoRemoteConfigured(item)
	}
	if err != nil {
		return RemoteResolutionFailed(item, presentError(err, t.verbose))
	}

	if err := ctx.Err(); err != nil {
		return FetchFailed(item, remote.Name(), interruptedDetail(ctx))
	}

	refs, err := remote.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return FetchFailed(item, remote.Name(), interruptedDetail(ctx))
		}
		return FetchFailed(item, remote.Name(), presentError(err, t.verbose))
	}
	return Succeeded(item, remote.Name(), refs)
}

func interruptedDetail(ctx context.Context) string {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = ctx.Err()
	}
	return "interrupted: " + cause.Error()
}
