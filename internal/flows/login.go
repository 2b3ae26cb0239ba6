package flows

import (
	"context"
	"time"

	"github.com/CrypticVoid/goLoginRisk/risk"
)

// Request is the flow-local login request shape. Risk carries the caller
// supplied attempt context; the flow stamps the hashed identifier and the
// attempt timestamp onto it before assessment.
type Request struct {
	Identifier    string
	Password      string
	OAuthProvider string
	OAuthCode     string
	CorrelationID string
	Device        risk.DeviceInfo
	Risk          *risk.Context
}

// ExchangeResult is what the credential-exchange port returns: either a
// freshly issued token pair or a pending MFA challenge, never both.
type ExchangeResult struct {
	Tokens    TokenPair
	Challenge *MFAChallenge
}

// OutcomeTag is the closed set of login outcome tags.
type OutcomeTag string

const (
	OutcomeSuccess     OutcomeTag = "success"
	OutcomeMFARequired OutcomeTag = "mfa_required"
	OutcomeBlocked     OutcomeTag = "blocked"
	OutcomeError       OutcomeTag = "error"
)

// Operation tags recorded on the risk context and the audit trail.
const (
	OperationLogin      = "login"
	OperationOAuthLogin = "oauth_login"
)

// OperationFor reports the operation tag for a request: oauth_login when the
// request carries an OAuth provider, login otherwise.
func OperationFor(req Request) string {
	if req.OAuthProvider != "" {
		return OperationOAuthLogin
	}
	return OperationLogin
}

// ErrorInfo is the normalized failure shape attached to error outcomes.
type ErrorInfo struct {
	Kind      string
	Retryable bool
	Message   string
	Cause     error
}

// Outcome is the settled result of one login attempt. Exactly one tag is
// active; payload fields outside the active tag are zero.
type Outcome struct {
	Tag         OutcomeTag
	UserID      string
	SessionID   string
	ChallengeID string
	BlockReason string
	PolicyID    string
	RuleIDs     []risk.RuleID
	RiskScore   float64
	RiskLevel   string
	Err         *ErrorInfo
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginBlocked     int
	MFALoginRequired int
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady error
}

// LoginDeps captures login flow dependencies. Commit hooks receive the
// already-assessed attempt and must apply their store mutation atomically;
// the flow never touches the store on any failure path before a commit hook
// runs.
type LoginDeps struct {
	AttemptTimeout     time.Duration
	ExchangeTimeout    time.Duration
	ConfirmTimeout     time.Duration
	DefaultBlockReason string

	Now func() time.Time

	ValidateRequest func(Request) error
	HashIdentifier  func(string) string
	Assess          func(context.Context, risk.DeviceInfo, *risk.Context) (risk.Assessment, error)

	ExchangeCredentials func(context.Context, Request, string) (ExchangeResult, error)
	ConfirmIdentity     func(context.Context, string) (Identity, error)

	CommitBlocked   func(userID string, assessment risk.Assessment, reason string) error
	CommitChallenge func(userID string, challenge MFAChallenge) error
	CommitSuccess   func(tokens TokenPair, identity Identity, assessment risk.Assessment) error

	MapError       func(error) ErrorInfo
	MetricInc      func(int)
	ObserveLatency func(time.Duration)
	Warn           func(string, ...any)

	Metrics LoginMetrics
	Errors  LoginErrors
}

// RunLogin executes the login pipeline: validation, risk assessment,
// credential exchange, identity confirmation, commit. All recoverable
// failures settle as an error Outcome; a non-nil error return means the
// engine is miswired or an internal contract was broken, never a user-level
// failure.
//
// The commit discipline is fail-closed: the store is mutated only in the
// blocked, mfa_required, and success branches, each as a single atomic
// commit. A token pair whose identity confirmation fails is discarded and
// the store is left exactly as it was. An attempt whose context is cancelled
// before its commit settles as an error and never touches the store; the
// concurrency gate signals supersession through exactly that cancellation.
func RunLogin(ctx context.Context, req Request, deps LoginDeps) (Outcome, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.MapError == nil {
		deps.MapError = func(err error) ErrorInfo {
			return ErrorInfo{Kind: "unknown", Message: err.Error(), Cause: err}
		}
	}
	if deps.ValidateRequest == nil ||
		deps.HashIdentifier == nil ||
		deps.Assess == nil ||
		deps.ExchangeCredentials == nil ||
		deps.ConfirmIdentity == nil ||
		deps.CommitBlocked == nil ||
		deps.CommitSuccess == nil {
		return Outcome{}, deps.Errors.EngineNotReady
	}

	if deps.ObserveLatency != nil {
		start := deps.Now()
		defer func() {
			deps.ObserveLatency(time.Since(start))
		}()
	}

	// Attempt ceiling. Per-call timeouts below derive from this context, so
	// they can only tighten the deadline, never extend it.
	if deps.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.AttemptTimeout)
		defer cancel()
	}

	if err := deps.ValidateRequest(req); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return errorOutcome("", err, deps), nil
	}

	hashed := deps.HashIdentifier(req.Identifier)

	rc := risk.Context{}
	if req.Risk != nil {
		rc = *req.Risk
	}
	rc.UserID = hashed
	rc.Operation = OperationFor(req)
	if rc.Timestamp.IsZero() {
		rc.Timestamp = deps.Now()
	}

	assessment, err := deps.Assess(ctx, req.Device, &rc)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return errorOutcome(hashed, err, deps), nil
	}

	if assessment.Decision == risk.DecisionBlock {
		reason := assessment.BlockReason
		if reason == "" {
			reason = deps.DefaultBlockReason
		}
		// A cancelled attempt must never reach the store; a late backend
		// response would otherwise overwrite a newer attempt's commit.
		if err := ctx.Err(); err != nil {
			deps.MetricInc(deps.Metrics.LoginFailure)
			return errorOutcome(hashed, err, deps), nil
		}
		if err := deps.CommitBlocked(hashed, assessment, reason); err != nil {
			deps.Warn("goLoginRisk: blocked commit failed")
			deps.MetricInc(deps.Metrics.LoginFailure)
			return errorOutcome(hashed, err, deps), nil
		}
		deps.MetricInc(deps.Metrics.LoginBlocked)
		return Outcome{
			Tag:         OutcomeBlocked,
			UserID:      hashed,
			BlockReason: reason,
			PolicyID:    blockPolicyID(assessment),
			RuleIDs:     assessment.RuleIDs,
			RiskScore:   assessment.Score,
			RiskLevel:   risk.RiskLevel(assessment.Score),
		}, nil
	}

	// The catalog's challenge decision surfaces to the backend as a
	// step-up hint.
	decision := "allow"
	if assessment.Decision == risk.DecisionChallenge {
		decision = "require_mfa"
	}

	exchangeCtx, cancelExchange := callContext(ctx, deps.ExchangeTimeout)
	result, err := deps.ExchangeCredentials(exchangeCtx, req, decision)
	cancelExchange()
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return errorOutcome(hashed, err, deps), nil
	}

	if result.Challenge != nil {
		challenge := *result.Challenge
		if challenge.UserID == "" {
			challenge.UserID = hashed
		}
		if err := ctx.Err(); err != nil {
			deps.MetricInc(deps.Metrics.LoginFailure)
			return errorOutcome(hashed, err, deps), nil
		}
		if deps.CommitChallenge != nil {
			if err := deps.CommitChallenge(challenge.UserID, challenge); err != nil {
				deps.Warn("goLoginRisk: mfa challenge commit failed")
				deps.MetricInc(deps.Metrics.LoginFailure)
				return errorOutcome(hashed, err, deps), nil
			}
		}
		deps.MetricInc(deps.Metrics.MFALoginRequired)
		return Outcome{
			Tag:         OutcomeMFARequired,
			UserID:      challenge.UserID,
			ChallengeID: challenge.ChallengeID,
			RuleIDs:     assessment.RuleIDs,
			RiskScore:   assessment.Score,
			RiskLevel:   risk.RiskLevel(assessment.Score),
		}, nil
	}

	confirmCtx, cancelConfirm := callContext(ctx, deps.ConfirmTimeout)
	identity, err := deps.ConfirmIdentity(confirmCtx, result.Tokens.AccessToken)
	cancelConfirm()
	if err != nil {
		// Fail closed: the issued token pair is discarded, the store stays
		// untouched, and the attempt settles as an error.
		deps.MetricInc(deps.Metrics.LoginFailure)
		return errorOutcome(hashed, err, deps), nil
	}

	domain, err := NewLoginSuccess(result.Tokens, identity)
	if err != nil {
		return Outcome{}, err
	}
	tokens, confirmed, _ := domain.Success()

	if err := ctx.Err(); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return errorOutcome(hashed, err, deps), nil
	}
	if err := deps.CommitSuccess(tokens, confirmed, assessment); err != nil {
		deps.Warn("goLoginRisk: success commit failed")
		deps.MetricInc(deps.Metrics.LoginFailure)
		return errorOutcome(hashed, err, deps), nil
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	return Outcome{
		Tag:       OutcomeSuccess,
		UserID:    confirmed.UserID,
		SessionID: confirmed.SessionID,
		RuleIDs:   assessment.RuleIDs,
		RiskScore: assessment.Score,
		RiskLevel: risk.RiskLevel(assessment.Score),
	}, nil
}

func errorOutcome(userID string, err error, deps LoginDeps) Outcome {
	info := deps.MapError(err)
	return Outcome{
		Tag:    OutcomeError,
		UserID: userID,
		Err:    &info,
	}
}

// blockPolicyID reports the rule that forced the block, preferring the
// pipeline's recorded blocking rule over triggering order.
func blockPolicyID(a risk.Assessment) string {
	if a.BlockRuleID != "" {
		return string(a.BlockRuleID)
	}
	if len(a.RuleIDs) == 0 {
		return ""
	}
	return string(a.RuleIDs[0])
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, timeout)
}
