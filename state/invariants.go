package state

// In-flight status sets for the transient-substate reset step. These mirror
// the policy catalogs of the protocol; they are configuration data, not
// architecture.
var (
	inFlightMFA          = map[MFAStatus]bool{MFAChallenged: true}
	inFlightOAuth        = map[OAuthStatus]bool{OAuthInitiating: true}
	inFlightRecovery     = map[RecoveryStatus]bool{RecoveryRequested: true, RecoverySent: true}
	inFlightVerification = map[VerificationStatus]bool{VerificationSent: true}
)

// settledAuth are the auth statuses that force every in-flight transient
// sub-state back to its baseline. session_expired counts as still
// mid-authentication and is deliberately absent.
var settledAuth = map[AuthStatus]bool{
	AuthAuthenticated:   true,
	AuthUnauthenticated: true,
	AuthFailed:          true,
}

// Enforce re-derives a consistent aggregate from s. The pass runs in strict
// priority order: security dominance, then session consistency, then the
// transient-substate reset. Each step may override the outcome of a later
// one; security always wins. Enforce is pure and idempotent:
// Enforce(Enforce(s)) equals Enforce(s) for every s.
func Enforce(s State) State {
	s = enforceSecurityDominance(s)
	s = enforceSessionConsistency(s)
	s = enforceTransientReset(s)
	return s
}

// enforceSecurityDominance: a blocked security posture unconditionally
// forces an account_locked auth error and drops the session, regardless of
// any other field.
func enforceSecurityDominance(s State) State {
	if s.Security.Status != SecurityBlocked {
		return s
	}

	userID := s.Auth.UserID
	if s.Auth.User != nil {
		userID = s.Auth.User.UserID
	}
	s.Auth = AuthState{
		Status:       AuthFailed,
		UserID:       userID,
		ErrorKind:    ErrorKindAccountLocked,
		ErrorMessage: "account locked by security policy",
	}
	s.Session = nil
	return s
}

// enforceSessionConsistency: authenticated without an active session demotes
// to session_expired carrying the user id; any non-authenticated auth state
// forces the session away.
func enforceSessionConsistency(s State) State {
	if s.Auth.Status == AuthAuthenticated {
		if s.Session == nil || s.Session.Status != SessionActive {
			userID := s.Auth.UserID
			if s.Auth.User != nil {
				userID = s.Auth.User.UserID
			}
			s.Auth = AuthState{
				Status: AuthSessionExpired,
				UserID: userID,
			}
			s.Session = nil
		}
		return s
	}

	s.Session = nil
	return s
}

// enforceTransientReset: once auth settles, every transient sub-state still
// showing an in-flight status returns to its baseline.
func enforceTransientReset(s State) State {
	if !settledAuth[s.Auth.Status] {
		return s
	}

	if inFlightMFA[s.MFA.Status] {
		s.MFA = MFAState{Status: MFANotSetup}
	}
	if inFlightOAuth[s.OAuth.Status] {
		s.OAuth = OAuthState{Status: OAuthIdle}
	}
	if inFlightRecovery[s.PasswordRecovery.Status] {
		s.PasswordRecovery = PasswordRecoveryState{Status: RecoveryIdle}
	}
	if inFlightVerification[s.Verification.Status] {
		s.Verification = VerificationState{Status: VerificationIdle}
	}
	return s
}
