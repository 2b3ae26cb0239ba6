package state

import (
	"encoding/json"
	"sort"
)

// SchemaVersion is the persisted snapshot version. A snapshot with any other
// version is discarded on load.
const SchemaVersion = 1

// AuthStatus is the discriminator of the auth sub-state.
type AuthStatus string

const (
	// AuthUnauthenticated is an exported constant used by the state store.
	AuthUnauthenticated AuthStatus = "unauthenticated"
	// AuthAuthenticating is an exported constant used by the state store.
	AuthAuthenticating AuthStatus = "authenticating"
	// AuthAuthenticated is an exported constant used by the state store.
	AuthAuthenticated AuthStatus = "authenticated"
	// AuthSessionExpired is an exported constant used by the state store.
	AuthSessionExpired AuthStatus = "session_expired"
	// AuthPendingSecondaryVerification is an exported constant used by the state store.
	AuthPendingSecondaryVerification AuthStatus = "pending_secondary_verification"
	// AuthFailed is the error-tagged auth status.
	AuthFailed AuthStatus = "error"
)

// ErrorKindAccountLocked is the auth error kind forced by a blocked
// security posture.
const ErrorKindAccountLocked = "account_locked"

// User identifies the authenticated principal.
type User struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// AuthState is the auth sub-state. Payload fields are only meaningful for
// their tag: User accompanies authenticated, UserID survives demotion to
// session_expired, ErrorKind/ErrorMessage accompany error.
type AuthState struct {
	Status       AuthStatus `json:"status"`
	User         *User      `json:"user,omitempty"`
	UserID       string     `json:"user_id,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// SessionStatus is the discriminator of the session sub-state.
type SessionStatus string

const (
	// SessionActive is an exported constant used by the state store.
	SessionActive SessionStatus = "active"
	// SessionExpired is an exported constant used by the state store.
	SessionExpired SessionStatus = "expired"
	// SessionRevoked is an exported constant used by the state store.
	SessionRevoked SessionStatus = "revoked"
	// SessionSuspended is an exported constant used by the state store.
	SessionSuspended SessionStatus = "suspended"
)

// Session is the session sub-state; a nil Session means no session. Tokens
// are transient and never persisted.
type Session struct {
	Status       SessionStatus `json:"status"`
	SessionID    string        `json:"session_id"`
	UserID       string        `json:"user_id"`
	CreatedAt    int64         `json:"created_at,omitempty"`
	ExpiresAt    int64         `json:"expires_at,omitempty"`
	Grants       PermissionSet `json:"grants,omitempty"`
	AccessToken  string        `json:"-"`
	RefreshToken string        `json:"-"`
}

// MFAStatus is the discriminator of the mfa sub-state.
type MFAStatus string

const (
	// MFANotSetup is the mfa baseline.
	MFANotSetup MFAStatus = "not_setup"
	// MFAChallenged is the in-flight mfa status.
	MFAChallenged MFAStatus = "challenged"
	// MFAVerified is an exported constant used by the state store.
	MFAVerified MFAStatus = "verified"
)

// MFAState is the mfa sub-state.
type MFAState struct {
	Status      MFAStatus `json:"status"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	Method      string    `json:"method,omitempty"`
}

// OAuthStatus is the discriminator of the oauth sub-state.
type OAuthStatus string

const (
	// OAuthIdle is the oauth baseline.
	OAuthIdle OAuthStatus = "idle"
	// OAuthInitiating is the in-flight oauth status.
	OAuthInitiating OAuthStatus = "initiating"
	// OAuthLinked is an exported constant used by the state store.
	OAuthLinked OAuthStatus = "linked"
)

// OAuthState is the oauth sub-state.
type OAuthState struct {
	Status   OAuthStatus `json:"status"`
	Provider string      `json:"provider,omitempty"`
}

// SecurityStatus is the discriminator of the security sub-state.
type SecurityStatus string

const (
	// SecurityNormal is an exported constant used by the state store.
	SecurityNormal SecurityStatus = "normal"
	// SecurityRiskDetected is an exported constant used by the state store.
	SecurityRiskDetected SecurityStatus = "risk_detected"
	// SecurityBlocked is an exported constant used by the state store.
	SecurityBlocked SecurityStatus = "blocked"
)

// SecurityState is the security sub-state. risk_detected requires both
// RiskLevel and RiskScore; the snapshot validator enforces this on load.
type SecurityState struct {
	Status    SecurityStatus `json:"status"`
	RiskLevel string         `json:"risk_level,omitempty"`
	RiskScore *float64       `json:"risk_score,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// RecoveryStatus is the discriminator of the password recovery sub-state.
type RecoveryStatus string

const (
	// RecoveryIdle is the password recovery baseline.
	RecoveryIdle RecoveryStatus = "idle"
	// RecoveryRequested is an in-flight recovery status.
	RecoveryRequested RecoveryStatus = "requested"
	// RecoverySent is an in-flight recovery status.
	RecoverySent RecoveryStatus = "sent"
	// RecoveryCompleted is an exported constant used by the state store.
	RecoveryCompleted RecoveryStatus = "completed"
)

// PasswordRecoveryState is the password recovery sub-state.
type PasswordRecoveryState struct {
	Status RecoveryStatus `json:"status"`
}

// VerificationStatus is the discriminator of the verification sub-state.
type VerificationStatus string

const (
	// VerificationIdle is the verification baseline.
	VerificationIdle VerificationStatus = "idle"
	// VerificationSent is the in-flight verification status.
	VerificationSent VerificationStatus = "sent"
	// VerificationVerified is an exported constant used by the state store.
	VerificationVerified VerificationStatus = "verified"
)

// VerificationState is the verification sub-state.
type VerificationState struct {
	Status VerificationStatus `json:"status"`
}

// State is the versioned aggregate of the seven tagged sub-states, the
// extension bag, and the last applied event type (transient).
type State struct {
	Version          int                   `json:"version"`
	Auth             AuthState             `json:"auth"`
	Session          *Session              `json:"session"`
	MFA              MFAState              `json:"mfa"`
	OAuth            OAuthState            `json:"oauth"`
	Security         SecurityState         `json:"security"`
	PasswordRecovery PasswordRecoveryState `json:"password_recovery"`
	Verification     VerificationState     `json:"verification"`
	Extensions       map[string]any        `json:"extensions,omitempty"`
	LastEvent        string                `json:"-"`
}

// Initial returns the state a store starts from, and the state any corrupted
// snapshot falls back to.
func Initial() State {
	return State{
		Version:          SchemaVersion,
		Auth:             AuthState{Status: AuthUnauthenticated},
		Session:          nil,
		MFA:              MFAState{Status: MFANotSetup},
		OAuth:            OAuthState{Status: OAuthIdle},
		Security:         SecurityState{Status: SecurityNormal},
		PasswordRecovery: PasswordRecoveryState{Status: RecoveryIdle},
		Verification:     VerificationState{Status: VerificationIdle},
	}
}

// PermissionSet is a set-valued grants container. It serializes to an
// ordered list and rehydrates back into a set on load.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given grants.
func NewPermissionSet(grants ...string) PermissionSet {
	set := make(PermissionSet, len(grants))
	for _, g := range grants {
		set[g] = struct{}{}
	}
	return set
}

// Has reports membership.
func (p PermissionSet) Has(grant string) bool {
	_, ok := p[grant]
	return ok
}

// Values returns the grants in sorted order.
func (p PermissionSet) Values() []string {
	out := make([]string, 0, len(p))
	for g := range p {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted list.
func (p PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Values())
}

// UnmarshalJSON rehydrates the set from a list.
func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*p = NewPermissionSet(list...)
	return nil
}
