package goLoginRisk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newModeEngine(t *testing.T, mode ConcurrencyMode, transport *fakeTransport) *Engine {
	t.Helper()
	cfg := defaultConfig()
	cfg.Orchestrator.Mode = mode

	engine, err := New().
		WithConfig(cfg).
		WithTransport(transport).
		WithWarnLogger(func(string, ...any) {}).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestCancelPreviousSupersedesInFlight(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var firstCancelled atomic.Bool

	transport := &fakeTransport{
		exchange: func(ctx context.Context, _ LoginRequest, _ string) (ExchangeResult, error) {
			select {
			case <-firstStarted:
				// Later attempts pass straight through.
			default:
				close(firstStarted)
				select {
				case <-ctx.Done():
					firstCancelled.Store(true)
					return ExchangeResult{}, ctx.Err()
				case <-release:
				}
			}
			return ExchangeResult{Tokens: TokenPair{AccessToken: "at-1"}}, nil
		},
	}
	engine := newModeEngine(t, ModeCancelPrevious, transport)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstOutcome LoginOutcome
	go func() {
		defer wg.Done()
		firstOutcome, _ = engine.Login(context.Background(), validRequest())
	}()

	<-firstStarted
	second, err := engine.Login(context.Background(), validRequest())
	close(release)
	wg.Wait()

	if err != nil {
		t.Fatalf("second attempt failed: %v", err)
	}
	if second.Tag != OutcomeSuccess {
		t.Fatalf("newest attempt must win: %+v", second)
	}
	if !firstCancelled.Load() {
		t.Fatal("in-flight attempt was not cancelled by the newer one")
	}
	if firstOutcome.Tag != OutcomeError {
		t.Fatalf("superseded attempt must settle as error: %+v", firstOutcome)
	}
}

func TestCancelPreviousSupersededAttemptNeverCommits(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	transport := &fakeTransport{
		exchange: func(_ context.Context, _ LoginRequest, _ string) (ExchangeResult, error) {
			select {
			case <-firstStarted:
				return ExchangeResult{Tokens: TokenPair{AccessToken: "at-new"}}, nil
			default:
				close(firstStarted)
				return ExchangeResult{Tokens: TokenPair{AccessToken: "at-old"}}, nil
			}
		},
		confirm: func(_ context.Context, accessToken string) (Identity, error) {
			if accessToken == "at-old" {
				// The stale confirmation settles only after the newer attempt
				// has fully committed.
				<-release
				return Identity{UserID: "u-old", SessionID: "sess-old"}, nil
			}
			return Identity{UserID: "u-new", SessionID: "sess-new"}, nil
		},
	}
	engine := newModeEngine(t, ModeCancelPrevious, transport)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstOutcome LoginOutcome
	go func() {
		defer wg.Done()
		firstOutcome, _ = engine.Login(context.Background(), validRequest())
	}()
	<-firstStarted

	second, err := engine.Login(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("second attempt failed: %v", err)
	}
	if second.Tag != OutcomeSuccess || second.SessionID != "sess-new" {
		t.Fatalf("newest attempt must win: %+v", second)
	}

	close(release)
	wg.Wait()

	if firstOutcome.Tag != OutcomeError {
		t.Fatalf("superseded attempt must settle as error: %+v", firstOutcome)
	}
	st := engine.State()
	if st.Session == nil || st.Session.SessionID != "sess-new" {
		t.Fatalf("superseded attempt overwrote the newest commit: %+v", st.Session)
	}
}

func TestIgnoreCoalescesOntoInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	transport := &fakeTransport{
		exchange: func(ctx context.Context, _ LoginRequest, _ string) (ExchangeResult, error) {
			select {
			case <-started:
			default:
				close(started)
				<-release
			}
			return ExchangeResult{Tokens: TokenPair{AccessToken: "at-1"}}, nil
		},
	}
	engine := newModeEngine(t, ModeIgnore, transport)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if outcome, err := engine.Login(context.Background(), validRequest()); err != nil || outcome.Tag != OutcomeSuccess {
			t.Errorf("first attempt should succeed: %+v %v", outcome, err)
		}
	}()

	<-started
	done := make(chan struct{})
	var coalesced LoginOutcome
	var coalescedErr error
	go func() {
		coalesced, coalescedErr = engine.Login(context.Background(), validRequest())
		close(done)
	}()

	// The coalescing caller must wait for the in-flight attempt, not start a
	// second pipeline.
	time.Sleep(20 * time.Millisecond)
	if ex, _ := transport.calls(); ex != 1 {
		t.Fatalf("ignore mode must not start a second pipeline, saw %d exchanges", ex)
	}

	close(release)
	<-done
	wg.Wait()

	if !errors.Is(coalescedErr, ErrAttemptSuperseded) {
		t.Fatalf("coalesced caller must get ErrAttemptSuperseded, got %v", coalescedErr)
	}
	if coalesced.Tag != OutcomeSuccess {
		t.Fatalf("coalesced caller must receive the in-flight outcome: %+v", coalesced)
	}
	if ex, _ := transport.calls(); ex != 1 {
		t.Fatalf("expected exactly one backend exchange, got %d", ex)
	}
	if engine.MetricsSnapshot().Counters[MetricAttemptSuperseded] != 1 {
		t.Fatal("superseded counter not incremented")
	}
}

func TestIgnoreReleasesWaiterOnContextCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	transport := &fakeTransport{
		exchange: func(context.Context, LoginRequest, string) (ExchangeResult, error) {
			select {
			case <-started:
			default:
				close(started)
				<-release
			}
			return ExchangeResult{Tokens: TokenPair{AccessToken: "at-1"}}, nil
		},
	}
	engine := newModeEngine(t, ModeIgnore, transport)

	go func() { _, _ = engine.Login(context.Background(), validRequest()) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := engine.Login(ctx, validRequest()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cancelled waiter must get its context error, got %v", err)
	}
}

func TestSerializeRunsOneAtATime(t *testing.T) {
	var inFlight atomic.Int32
	var overlapped atomic.Bool

	transport := &fakeTransport{
		exchange: func(context.Context, LoginRequest, string) (ExchangeResult, error) {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return ExchangeResult{Tokens: TokenPair{AccessToken: "at-1"}}, nil
		},
	}
	engine := newModeEngine(t, ModeSerialize, transport)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if outcome, err := engine.Login(context.Background(), validRequest()); err != nil || outcome.Tag != OutcomeSuccess {
				t.Errorf("serialized attempt failed: %+v %v", outcome, err)
			}
		}()
	}
	wg.Wait()

	if overlapped.Load() {
		t.Fatal("serialize mode let two attempts overlap")
	}
	if ex, _ := transport.calls(); ex != 8 {
		t.Fatalf("every serialized attempt must run, got %d of 8", ex)
	}
}

func TestSerializeAbandonedWaiterKeepsOrder(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	transport := &fakeTransport{
		exchange: func(context.Context, LoginRequest, string) (ExchangeResult, error) {
			select {
			case <-started:
			default:
				close(started)
				<-release
			}
			return ExchangeResult{Tokens: TokenPair{AccessToken: "at-1"}}, nil
		},
	}
	engine := newModeEngine(t, ModeSerialize, transport)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = engine.Login(context.Background(), validRequest())
	}()
	<-started

	// Queue a waiter and abandon it.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := engine.Login(ctx, validRequest()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("abandoned waiter must get its context error, got %v", err)
	}

	// A third attempt queued behind the abandoned one must still run once the
	// head finishes.
	done := make(chan struct{})
	go func() {
		if outcome, err := engine.Login(context.Background(), validRequest()); err != nil || outcome.Tag != OutcomeSuccess {
			t.Errorf("queued attempt failed: %+v %v", outcome, err)
		}
		close(done)
	}()

	close(release)
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("attempt queued behind an abandoned waiter never ran")
	}
}
