package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"fetchall/internal/fetch"

	"golang.org/x/sync/errgroup"
)

// Runner produces the outcome of a single work item. *fetch.Task implements it.
type Runner interface {
	Run(ctx context.Context, item fetch.WorkItem) fetch.Outcome
}

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDrained:
		return "drained"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Scheduler runs the items of one plan, serially or with a bounded number of
// concurrent tasks. A Scheduler is single use.
type Scheduler struct {
	runner Runner
	state  atomic.Int32
}

func NewScheduler(runner Runner) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner is nil")
	}
	return &Scheduler{runner: runner}, nil
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Execute streams one outcome per plan item.
//
// Channel semantics:
//   - Exactly one Outcome is sent per item, also when ctx is cancelled: items
//     whose task had not started are reported as CANCELLED.
//   - The results channel is unbuffered; the caller must drain it.
//   - Serial mode sends outcomes in plan order. Parallel mode runs at most
//     Mode.Workers() tasks at a time and sends in completion order.
//   - The error channel carries setup errors and the cancellation cause, and
//     is closed after the results channel drains.
func (s *Scheduler) Execute(ctx context.Context, plan *Plan) (<-chan fetch.Outcome, <-chan error) {
	resultsCh := make(chan fetch.Outcome)
	errCh := make(chan error, 1)

	trySendErr := func(err error) {
		if err == nil {
			return
		}
		select {
		case errCh <- err:
		default:
		}
	}

	fail := func(err error) (<-chan fetch.Outcome, <-chan error) {
		trySendErr(err)
		close(resultsCh)
		close(errCh)
		return resultsCh, errCh
	}

	if ctx == nil {
		return fail(errors.New("context is nil"))
	}
	if plan == nil {
		return fail(errors.New("plan is nil"))
	}
	if s == nil || s.runner == nil {
		return fail(errors.New("scheduler is not initialized; use NewScheduler"))
	}
	if plan.Len() == 0 {
		if !s.state.CompareAndSwap(int32(StateIdle), int32(StateDrained)) {
			return fail(fmt.Errorf("scheduler already used (state %s)", s.State()))
		}
		close(resultsCh)
		close(errCh)
		return resultsCh, errCh
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fail(fmt.Errorf("scheduler already used (state %s)", s.State()))
	}

	go func() {
		defer close(errCh)
		defer close(resultsCh)
		defer s.state.Store(int32(StateDrained))

		if plan.Mode.Serial {
			for _, item := range plan.Items {
				resultsCh <- s.runOne(ctx, item)
			}
		} else {
			var g errgroup.Group
			g.SetLimit(plan.Mode.Workers())
			for _, item := range plan.Items {
				g.Go(func() error {
					resultsCh <- s.runOne(ctx, item)
					return nil
				})
			}
			_ = g.Wait()
		}

		trySendErr(context.Cause(ctx))
	}()

	return resultsCh, errCh
}

func (s *Scheduler) runOne(ctx context.Context, item fetch.WorkItem) fetch.Outcome {
	if ctx.Err() != nil {
		return fetch.Cancelled(item, "not started: "+context.Cause(ctx).Error())
	}
	return s.runner.Run(ctx, item)
}
