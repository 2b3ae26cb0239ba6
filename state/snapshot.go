package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSnapshotInvalid wraps every snapshot validation failure.
var ErrSnapshotInvalid = errors.New("invalid state snapshot")

// Serialize encodes the persistable subset of the aggregate. Transient
// fields (tokens, the last event marker) are excluded by construction;
// set-valued grants serialize as an ordered list.
func Serialize(s State) ([]byte, error) {
	s.Version = SchemaVersion
	return json.Marshal(s)
}

// persistedState mirrors the snapshot layout with the session kept raw so
// the null-or-object structural rule can be checked before decoding.
type persistedState struct {
	Version          int                   `json:"version"`
	Auth             AuthState             `json:"auth"`
	Session          json.RawMessage       `json:"session"`
	MFA              MFAState              `json:"mfa"`
	OAuth            OAuthState            `json:"oauth"`
	Security         SecurityState         `json:"security"`
	PasswordRecovery PasswordRecoveryState `json:"password_recovery"`
	Verification     VerificationState     `json:"verification"`
	Extensions       map[string]any        `json:"extensions,omitempty"`
}

// Restore decodes and validates a persisted snapshot, first structurally
// (version match, closed status enums, session null-or-object), then
// semantically (mandatory companion fields per status). Any failure at
// either level is returned as an ErrSnapshotInvalid; callers are expected to
// discard the whole blob and fall back to Initial.
func Restore(blob []byte) (State, error) {
	var p persistedState
	if err := json.Unmarshal(blob, &p); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}

	if p.Version != SchemaVersion {
		return State{}, fmt.Errorf("%w: version %d, want %d", ErrSnapshotInvalid, p.Version, SchemaVersion)
	}

	session, err := decodeSession(p.Session)
	if err != nil {
		return State{}, err
	}

	s := State{
		Version:          p.Version,
		Auth:             p.Auth,
		Session:          session,
		MFA:              p.MFA,
		OAuth:            p.OAuth,
		Security:         p.Security,
		PasswordRecovery: p.PasswordRecovery,
		Verification:     p.Verification,
		Extensions:       p.Extensions,
	}

	if err := validateStructural(s); err != nil {
		return State{}, err
	}
	if err := validateSemantic(s); err != nil {
		return State{}, err
	}
	return s, nil
}

// RestoreOrInitial is Restore with the mandated fallback applied.
func RestoreOrInitial(blob []byte) State {
	s, err := Restore(blob)
	if err != nil {
		return Initial()
	}
	return s
}

func decodeSession(raw json.RawMessage) (*Session, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: session is neither null nor an object", ErrSnapshotInvalid)
	}
	var sess Session
	if err := json.Unmarshal(trimmed, &sess); err != nil {
		return nil, fmt.Errorf("%w: session: %v", ErrSnapshotInvalid, err)
	}
	return &sess, nil
}

var (
	validAuthStatuses = map[AuthStatus]bool{
		AuthUnauthenticated:              true,
		AuthAuthenticating:               true,
		AuthAuthenticated:                true,
		AuthSessionExpired:               true,
		AuthPendingSecondaryVerification: true,
		AuthFailed:                       true,
	}
	validSessionStatuses = map[SessionStatus]bool{
		SessionActive:    true,
		SessionExpired:   true,
		SessionRevoked:   true,
		SessionSuspended: true,
	}
	validMFAStatuses = map[MFAStatus]bool{
		MFANotSetup:   true,
		MFAChallenged: true,
		MFAVerified:   true,
	}
	validOAuthStatuses = map[OAuthStatus]bool{
		OAuthIdle:       true,
		OAuthInitiating: true,
		OAuthLinked:     true,
	}
	validSecurityStatuses = map[SecurityStatus]bool{
		SecurityNormal:       true,
		SecurityRiskDetected: true,
		SecurityBlocked:      true,
	}
	validRecoveryStatuses = map[RecoveryStatus]bool{
		RecoveryIdle:      true,
		RecoveryRequested: true,
		RecoverySent:      true,
		RecoveryCompleted: true,
	}
	validVerificationStatuses = map[VerificationStatus]bool{
		VerificationIdle:     true,
		VerificationSent:     true,
		VerificationVerified: true,
	}
)

func validateStructural(s State) error {
	if !validAuthStatuses[s.Auth.Status] {
		return fmt.Errorf("%w: unknown auth status %q", ErrSnapshotInvalid, s.Auth.Status)
	}
	if s.Session != nil && !validSessionStatuses[s.Session.Status] {
		return fmt.Errorf("%w: unknown session status %q", ErrSnapshotInvalid, s.Session.Status)
	}
	if !validMFAStatuses[s.MFA.Status] {
		return fmt.Errorf("%w: unknown mfa status %q", ErrSnapshotInvalid, s.MFA.Status)
	}
	if !validOAuthStatuses[s.OAuth.Status] {
		return fmt.Errorf("%w: unknown oauth status %q", ErrSnapshotInvalid, s.OAuth.Status)
	}
	if !validSecurityStatuses[s.Security.Status] {
		return fmt.Errorf("%w: unknown security status %q", ErrSnapshotInvalid, s.Security.Status)
	}
	if !validRecoveryStatuses[s.PasswordRecovery.Status] {
		return fmt.Errorf("%w: unknown password recovery status %q", ErrSnapshotInvalid, s.PasswordRecovery.Status)
	}
	if !validVerificationStatuses[s.Verification.Status] {
		return fmt.Errorf("%w: unknown verification status %q", ErrSnapshotInvalid, s.Verification.Status)
	}
	return nil
}

func validateSemantic(s State) error {
	if s.Auth.Status == AuthAuthenticated && s.Auth.User == nil {
		return fmt.Errorf("%w: authenticated auth state missing user", ErrSnapshotInvalid)
	}
	if s.Session != nil {
		if s.Session.SessionID == "" || s.Session.UserID == "" {
			return fmt.Errorf("%w: session %q missing identifying fields", ErrSnapshotInvalid, s.Session.Status)
		}
	}
	if s.Security.Status == SecurityRiskDetected {
		if s.Security.RiskLevel == "" || s.Security.RiskScore == nil {
			return fmt.Errorf("%w: risk_detected requires riskLevel and riskScore", ErrSnapshotInvalid)
		}
	}
	return nil
}
