package flows

import "errors"

// ErrIncompleteSuccess is raised when success construction is attempted
// without both a token pair and a confirmed identity. It marks an invariant
// bug upstream, not a recoverable runtime condition.
var ErrIncompleteSuccess = errors.New("domain login success requires token pair and confirmed identity")

// TokenPair is the credential-exchange result payload.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Identity is the confirmed identity/session record returned by identity
// confirmation.
type Identity struct {
	UserID    string
	SessionID string
	Email     string
	Grants    []string
}

// MFAChallenge describes a pending second-factor challenge.
type MFAChallenge struct {
	ChallengeID string
	UserID      string
	Method      string
}

// DomainLoginResult is the tagged domain result of a completed backend
// exchange: either success (token pair plus confirmed identity, both
// mandatory together) or a pending MFA challenge. The zero value is invalid;
// values are built exclusively through NewLoginSuccess and NewMFARequired,
// so a success without a confirmed identity is unrepresentable.
type DomainLoginResult struct {
	kind      string
	tokens    TokenPair
	identity  Identity
	challenge MFAChallenge
}

const (
	domainKindSuccess     = "success"
	domainKindMFARequired = "mfa_required"
)

// NewLoginSuccess builds the success variant. It refuses to build when the
// token pair or the identity is incomplete.
func NewLoginSuccess(tokens TokenPair, identity Identity) (DomainLoginResult, error) {
	if tokens.AccessToken == "" || identity.UserID == "" || identity.SessionID == "" {
		return DomainLoginResult{}, ErrIncompleteSuccess
	}
	return DomainLoginResult{
		kind:     domainKindSuccess,
		tokens:   tokens,
		identity: identity,
	}, nil
}

// NewMFARequired builds the mfa_required variant.
func NewMFARequired(challenge MFAChallenge) DomainLoginResult {
	return DomainLoginResult{
		kind:      domainKindMFARequired,
		challenge: challenge,
	}
}

// Success returns the success payload when that tag is active.
func (r DomainLoginResult) Success() (TokenPair, Identity, bool) {
	if r.kind != domainKindSuccess {
		return TokenPair{}, Identity{}, false
	}
	return r.tokens, r.identity, true
}

// Challenge returns the mfa_required payload when that tag is active.
func (r DomainLoginResult) Challenge() (MFAChallenge, bool) {
	if r.kind != domainKindMFARequired {
		return MFAChallenge{}, false
	}
	return r.challenge, true
}
