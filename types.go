package goLoginRisk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"strings"

	"github.com/CrypticVoid/goLoginRisk/internal/audit"
	"github.com/CrypticVoid/goLoginRisk/internal/flows"
)

// Public aliases over the internal flow and audit types so callers never
// import internal packages directly.
type (
	// LoginRequest defines a public type used by goLoginRisk APIs.
	LoginRequest = flows.Request
	// LoginOutcome defines a public type used by goLoginRisk APIs.
	LoginOutcome = flows.Outcome
	// OutcomeTag defines a public type used by goLoginRisk APIs.
	OutcomeTag = flows.OutcomeTag
	// ErrorInfo defines a public type used by goLoginRisk APIs.
	ErrorInfo = flows.ErrorInfo
	// TokenPair defines a public type used by goLoginRisk APIs.
	TokenPair = flows.TokenPair
	// Identity defines a public type used by goLoginRisk APIs.
	Identity = flows.Identity
	// MFAChallenge defines a public type used by goLoginRisk APIs.
	MFAChallenge = flows.MFAChallenge
	// ExchangeResult defines a public type used by goLoginRisk APIs.
	ExchangeResult = flows.ExchangeResult
	// DomainLoginResult defines a public type used by goLoginRisk APIs.
	DomainLoginResult = flows.DomainLoginResult
	// AuditEvent defines a public type used by goLoginRisk APIs.
	AuditEvent = audit.Event
	// AuditSink defines a public type used by goLoginRisk APIs.
	AuditSink = audit.Sink
)

const (
	// OutcomeSuccess is an exported constant or variable used by the login risk engine.
	OutcomeSuccess = flows.OutcomeSuccess
	// OutcomeMFARequired is an exported constant or variable used by the login risk engine.
	OutcomeMFARequired = flows.OutcomeMFARequired
	// OutcomeBlocked is an exported constant or variable used by the login risk engine.
	OutcomeBlocked = flows.OutcomeBlocked
	// OutcomeError is an exported constant or variable used by the login risk engine.
	OutcomeError = flows.OutcomeError
)

// Operation tags carried on risk contexts and audit events.
const (
	// OperationLogin is an exported constant or variable used by the login risk engine.
	OperationLogin = flows.OperationLogin
	// OperationOAuthLogin is an exported constant or variable used by the login risk engine.
	OperationOAuthLogin = flows.OperationOAuthLogin
)

// Error kinds carried by error outcomes.
const (
	// ErrorKindNetwork is an exported constant or variable used by the login risk engine.
	ErrorKindNetwork = "network"
	// ErrorKindInvalidCredentials is an exported constant or variable used by the login risk engine.
	ErrorKindInvalidCredentials = "invalid_credentials"
	// ErrorKindAccountLocked is an exported constant or variable used by the login risk engine.
	ErrorKindAccountLocked = "account_locked"
	// ErrorKindRateLimited is an exported constant or variable used by the login risk engine.
	ErrorKindRateLimited = "rate_limited"
	// ErrorKindUnknown is an exported constant or variable used by the login risk engine.
	ErrorKindUnknown = "unknown"
)

// NewLoginSuccess builds the success domain result. It refuses incomplete
// payloads; see flows.NewLoginSuccess.
func NewLoginSuccess(tokens TokenPair, identity Identity) (DomainLoginResult, error) {
	return flows.NewLoginSuccess(tokens, identity)
}

// NewMFARequired builds the mfa_required domain result.
func NewMFARequired(challenge MFAChallenge) DomainLoginResult {
	return flows.NewMFARequired(challenge)
}

// Validator checks a login request before any risk assessment or backend
// call happens.
type Validator interface {
	ValidateLogin(req LoginRequest) error
}

// Transport performs the backend calls of the login pipeline. The decision
// string passed to ExchangeCredentials is the risk engine's verdict
// ("allow" or "require_mfa") so backends can force step-up.
type Transport interface {
	ExchangeCredentials(ctx context.Context, req LoginRequest, decision string) (ExchangeResult, error)
	ConfirmIdentity(ctx context.Context, accessToken string) (Identity, error)
}

// IdentifierHasher hashes raw login identifiers before they reach risk
// assessment, the store, or audit. Raw identifiers never leave validation.
type IdentifierHasher interface {
	Hash(identifier string) string
}

// ErrorMapper normalizes transport and pipeline failures into the engine's
// error taxonomy.
type ErrorMapper interface {
	MapError(err error) ErrorInfo
}

type defaultValidator struct{}

func (defaultValidator) ValidateLogin(req LoginRequest) error {
	if strings.TrimSpace(req.Identifier) == "" {
		return errors.New("identifier is required")
	}
	if req.Password == "" && req.OAuthCode == "" {
		return errors.New("password or oauth code is required")
	}
	if req.OAuthCode != "" && strings.TrimSpace(req.OAuthProvider) == "" {
		return errors.New("oauth provider is required with an oauth code")
	}
	return nil
}

type sha256Hasher struct{}

func (sha256Hasher) Hash(identifier string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(identifier))))
	return hex.EncodeToString(sum[:])
}

type defaultErrorMapper struct{}

func (defaultErrorMapper) MapError(err error) ErrorInfo {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorInfo{Kind: ErrorKindNetwork, Retryable: true, Message: "request timed out", Cause: err}
	case errors.Is(err, context.Canceled):
		return ErrorInfo{Kind: ErrorKindNetwork, Retryable: false, Message: "attempt cancelled", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorInfo{Kind: ErrorKindNetwork, Retryable: netErr.Timeout(), Message: err.Error(), Cause: err}
	}
	return ErrorInfo{Kind: ErrorKindUnknown, Retryable: false, Message: err.Error(), Cause: err}
}
