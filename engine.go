package goLoginRisk

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/CrypticVoid/goLoginRisk/internal/audit"
	"github.com/CrypticVoid/goLoginRisk/internal/flows"
	"github.com/CrypticVoid/goLoginRisk/risk"
	"github.com/CrypticVoid/goLoginRisk/state"
	"github.com/CrypticVoid/goLoginRisk/token"
)

// Engine defines a public type used by goLoginRisk APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	store      *state.Store
	pipeline   *risk.Pipeline
	transport  Transport
	validator  Validator
	hasher     IdentifierHasher
	errMapper  ErrorMapper
	inspector  token.Inspector
	metrics    *Metrics
	dispatcher *audit.Dispatcher
	snapshots  state.SnapshotStore
	gate       *attemptGate
	warn       func(string, ...any)
	now        func() time.Time
	closed     atomic.Bool
}

// Login runs one login attempt end to end: validation, risk assessment,
// credential exchange, identity confirmation, and a single atomic state
// commit. Overlapping calls are arbitrated by the configured concurrency
// mode; under "ignore" a coalesced caller receives the in-flight attempt's
// outcome together with ErrAttemptSuperseded.
//
// A non-nil error is an engine-level failure (miswiring, closed engine, or
// a broken internal contract). User-facing failures settle as an outcome
// with tag "error".
func (e *Engine) Login(ctx context.Context, req LoginRequest) (LoginOutcome, error) {
	if e == nil || e.transport == nil {
		return LoginOutcome{}, ErrEngineNotReady
	}
	if e.closed.Load() {
		return LoginOutcome{}, ErrEngineClosed
	}

	outcome, err := e.gate.Run(ctx, func(ctx context.Context) (LoginOutcome, error) {
		return e.runAttempt(ctx, req)
	})
	if errors.Is(err, ErrAttemptSuperseded) {
		e.metrics.Inc(MetricAttemptSuperseded)
	}
	return outcome, err
}

func (e *Engine) runAttempt(ctx context.Context, req LoginRequest) (LoginOutcome, error) {
	outcome, err := flows.RunLogin(ctx, req, e.loginDeps(ctx))
	if err != nil {
		return LoginOutcome{}, err
	}

	event, err := e.buildAuditEvent(ctx, req, outcome)
	if err != nil {
		return LoginOutcome{}, err
	}
	e.emitAudit(ctx, event)

	return outcome, nil
}

func (e *Engine) loginDeps(ctx context.Context) flows.LoginDeps {
	return flows.LoginDeps{
		AttemptTimeout:     e.config.Orchestrator.AttemptTimeout,
		ExchangeTimeout:    e.config.Orchestrator.ExchangeTimeout,
		ConfirmTimeout:     e.config.Orchestrator.ConfirmTimeout,
		DefaultBlockReason: e.config.Risk.DefaultBlockReason,

		Now: e.now,

		ValidateRequest: e.validator.ValidateLogin,
		HashIdentifier:  e.hasher.Hash,
		Assess:          e.assess,

		ExchangeCredentials: e.transport.ExchangeCredentials,
		ConfirmIdentity:     e.transport.ConfirmIdentity,

		CommitBlocked: func(userID string, a risk.Assessment, reason string) error {
			return e.commitBlocked(ctx, userID, a, reason)
		},
		CommitChallenge: func(userID string, challenge MFAChallenge) error {
			return e.commitChallenge(ctx, userID, challenge)
		},
		CommitSuccess: func(tokens TokenPair, identity Identity, a risk.Assessment) error {
			return e.commitSuccess(ctx, tokens, identity, a)
		},

		MapError: e.errMapper.MapError,
		MetricInc: func(id int) {
			e.metrics.Inc(MetricID(id))
		},
		ObserveLatency: func(d time.Duration) {
			e.metrics.Observe(MetricLoginLatency, d)
		},
		Warn: e.warn,

		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginBlocked:     int(MetricLoginBlocked),
			MFALoginRequired: int(MetricMFARequired),
		},
		Errors: flows.LoginErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	}
}

// assess fills caller context (IP, user agent) into the risk context before
// the pipeline runs.
func (e *Engine) assess(ctx context.Context, device risk.DeviceInfo, rc *risk.Context) (risk.Assessment, error) {
	if rc.IP == "" {
		rc.IP = clientIPFromContext(ctx)
	}
	if device.UserAgent == "" {
		device.UserAgent = userAgentFromContext(ctx)
	}
	return e.pipeline.Assess(ctx, device, rc)
}

// commitBlocked is the one store mutation that happens without any backend
// call. Invariant enforcement demotes the auth sub-state and drops the
// session as part of the same commit.
func (e *Engine) commitBlocked(ctx context.Context, userID string, a risk.Assessment, reason string) error {
	score := a.Score
	err := e.store.Transaction(func(st *state.State) error {
		st.Security = state.SecurityState{
			Status:    state.SecurityBlocked,
			RiskLevel: risk.RiskLevel(score),
			RiskScore: &score,
			Reason:    reason,
		}
		if st.Auth.UserID == "" {
			st.Auth.UserID = userID
		}
		st.LastEvent = audit.EventPolicyViolation
		return nil
	})
	if err != nil {
		return err
	}
	e.persist(ctx)
	return nil
}

func (e *Engine) commitChallenge(ctx context.Context, userID string, challenge MFAChallenge) error {
	err := e.store.Transaction(func(st *state.State) error {
		st.Auth = state.AuthState{
			Status: state.AuthPendingSecondaryVerification,
			UserID: userID,
		}
		st.MFA = state.MFAState{
			Status:      state.MFAChallenged,
			ChallengeID: challenge.ChallengeID,
			Method:      challenge.Method,
		}
		st.LastEvent = audit.EventMFAChallenge
		return nil
	})
	if err != nil {
		return err
	}
	e.persist(ctx)
	return nil
}

func (e *Engine) commitSuccess(ctx context.Context, tokens TokenPair, identity Identity, a risk.Assessment) error {
	now := e.now()
	expires := e.inspector.SessionExpiry(tokens.AccessToken, now)
	score := a.Score
	level := risk.RiskLevel(score)

	err := e.store.Transaction(func(st *state.State) error {
		st.Auth = state.AuthState{
			Status: state.AuthAuthenticated,
			User: &state.User{
				UserID: identity.UserID,
				Email:  identity.Email,
			},
			UserID: identity.UserID,
		}
		st.Session = &state.Session{
			Status:       state.SessionActive,
			SessionID:    identity.SessionID,
			UserID:       identity.UserID,
			CreatedAt:    now.Unix(),
			ExpiresAt:    expires.Unix(),
			Grants:       state.NewPermissionSet(identity.Grants...),
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
		}
		if level == "high" || level == "critical" {
			st.Security = state.SecurityState{
				Status:    state.SecurityRiskDetected,
				RiskLevel: level,
				RiskScore: &score,
			}
		} else {
			st.Security = state.SecurityState{Status: state.SecurityNormal}
		}
		st.LastEvent = audit.EventLoginSuccess
		return nil
	})
	if err != nil {
		return err
	}
	e.persist(ctx)
	return nil
}

// persist snapshots the current state. Persistence is best effort; a failed
// save never fails the login that triggered it.
func (e *Engine) persist(ctx context.Context) {
	if e.snapshots == nil {
		return
	}
	if err := e.store.Save(ctx, e.snapshots); err != nil {
		e.warn("goLoginRisk: state snapshot save failed")
	}
}

// State returns a deep copy of the current auth state aggregate.
func (e *Engine) State() state.State {
	return e.store.State()
}

// Store exposes the underlying state store for hosts that drive sub-state
// transitions outside the login pipeline.
func (e *Engine) Store() *state.Store {
	return e.store
}

// RiskCatalog exposes the compiled rule catalog.
func (e *Engine) RiskCatalog() *risk.Catalog {
	return e.pipeline.Catalog()
}

// Logout resets the state aggregate to its initial value and clears any
// persisted snapshot.
func (e *Engine) Logout(ctx context.Context) error {
	e.store.Reset()
	if e.snapshots != nil {
		return e.snapshots.Clear(ctx)
	}
	return nil
}

// Close shuts the engine down. In-flight attempts finish; queued audit
// events are drained before Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.closed.CompareAndSwap(false, true) {
		e.dispatcher.Close()
	}
}

// AuditDropped reports how many audit events were dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.dispatcher.Dropped()
}

// MetricsSnapshot copies all engine counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}
