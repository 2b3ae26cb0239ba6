package goLoginRisk

import (
	"context"
	"sync"
)

// attemptGate serializes overlapping Login calls according to the configured
// concurrency mode. One gate guards one engine.
type attemptGate struct {
	mode ConcurrencyMode

	mu sync.Mutex

	// cancel_previous: slot of the attempt currently in flight.
	current *attemptSlot

	// ignore: the attempt later callers coalesce onto.
	inflight *inflightAttempt

	// serialize: tail of the FIFO chain; each attempt waits for the
	// previous one's channel to close.
	serialTail chan struct{}
}

type attemptSlot struct {
	cancel context.CancelFunc
}

type inflightAttempt struct {
	done    chan struct{}
	outcome LoginOutcome
	err     error
}

func newAttemptGate(mode ConcurrencyMode) *attemptGate {
	return &attemptGate{mode: mode}
}

// Run executes one attempt under the gate's discipline.
//
//   - cancel_previous: the new attempt cancels whatever is in flight and
//     runs immediately; the superseded attempt settles with its context
//     cancelled.
//   - ignore: while an attempt is in flight, new calls do not start a second
//     pipeline; they wait for the in-flight attempt and return its outcome
//     with ErrAttemptSuperseded.
//   - serialize: attempts run one at a time in arrival order.
func (g *attemptGate) Run(ctx context.Context, run func(context.Context) (LoginOutcome, error)) (LoginOutcome, error) {
	switch g.mode {
	case ModeIgnore:
		return g.runIgnore(ctx, run)
	case ModeSerialize:
		return g.runSerialize(ctx, run)
	default:
		return g.runCancelPrevious(ctx, run)
	}
}

func (g *attemptGate) runCancelPrevious(ctx context.Context, run func(context.Context) (LoginOutcome, error)) (LoginOutcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	slot := &attemptSlot{cancel: cancel}

	g.mu.Lock()
	if g.current != nil {
		g.current.cancel()
	}
	g.current = slot
	g.mu.Unlock()

	outcome, err := run(ctx)

	g.mu.Lock()
	// Only clear the slot if a newer attempt has not already replaced it.
	if g.current == slot {
		g.current = nil
	}
	g.mu.Unlock()
	cancel()

	return outcome, err
}

func (g *attemptGate) runIgnore(ctx context.Context, run func(context.Context) (LoginOutcome, error)) (LoginOutcome, error) {
	g.mu.Lock()
	if g.inflight != nil {
		attempt := g.inflight
		g.mu.Unlock()

		select {
		case <-attempt.done:
			return attempt.outcome, ErrAttemptSuperseded
		case <-ctx.Done():
			return LoginOutcome{}, ctx.Err()
		}
	}

	attempt := &inflightAttempt{done: make(chan struct{})}
	g.inflight = attempt
	g.mu.Unlock()

	outcome, err := run(ctx)

	attempt.outcome = outcome
	attempt.err = err

	// The marker is cleared unconditionally once the attempt settles, no
	// matter how it settled.
	g.mu.Lock()
	if g.inflight == attempt {
		g.inflight = nil
	}
	g.mu.Unlock()
	close(attempt.done)

	return outcome, err
}

func (g *attemptGate) runSerialize(ctx context.Context, run func(context.Context) (LoginOutcome, error)) (LoginOutcome, error) {
	mine := make(chan struct{})

	g.mu.Lock()
	prev := g.serialTail
	g.serialTail = mine
	g.mu.Unlock()

	release := func() {
		g.mu.Lock()
		if g.serialTail == mine {
			g.serialTail = nil
		}
		g.mu.Unlock()
		close(mine)
	}

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Keep FIFO order for attempts queued behind this one: release
			// our link only once the predecessor finishes.
			go func() {
				<-prev
				release()
			}()
			return LoginOutcome{}, ctx.Err()
		}
	}

	outcome, err := run(ctx)
	release()
	return outcome, err
}
