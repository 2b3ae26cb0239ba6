package state

import (
	"context"
	"sync"
)

// Store owns the auth aggregate for one client. Mutations go exclusively
// through the named setters, Patch, Transaction, ApplyEventType, and Reset;
// every one of them re-derives the aggregate through the invariant pass
// before the new state becomes observable.
//
// The store assumes a single logical writer (a client/session context, not a
// shared server); the internal mutex only protects readers observing a
// mutation in progress.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates a store holding the initial state.
func NewStore() *Store {
	return &Store{state: Initial()}
}

// NewStoreFrom creates a store seeded with s after one invariant pass, so a
// restored snapshot can never introduce an inconsistent combination.
func NewStoreFrom(s State) *Store {
	s.Version = SchemaVersion
	return &Store{state: Enforce(s)}
}

// State returns a deep copy of the current aggregate.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneState(s.state)
	fn(&next)
	s.state = Enforce(next)
}

// SetAuth replaces the auth sub-state.
func (s *Store) SetAuth(auth AuthState) {
	s.mutate(func(st *State) { st.Auth = auth })
}

// SetSession replaces the session sub-state; nil clears it.
func (s *Store) SetSession(session *Session) {
	s.mutate(func(st *State) { st.Session = cloneSession(session) })
}

// SetMFA replaces the mfa sub-state.
func (s *Store) SetMFA(mfa MFAState) {
	s.mutate(func(st *State) { st.MFA = mfa })
}

// SetOAuth replaces the oauth sub-state.
func (s *Store) SetOAuth(oauth OAuthState) {
	s.mutate(func(st *State) { st.OAuth = oauth })
}

// SetSecurity replaces the security sub-state.
func (s *Store) SetSecurity(sec SecurityState) {
	s.mutate(func(st *State) { st.Security = sec })
}

// SetPasswordRecovery replaces the password recovery sub-state.
func (s *Store) SetPasswordRecovery(rec PasswordRecoveryState) {
	s.mutate(func(st *State) { st.PasswordRecovery = rec })
}

// SetVerification replaces the verification sub-state.
func (s *Store) SetVerification(v VerificationState) {
	s.mutate(func(st *State) { st.Verification = v })
}

// Patch applies a bulk update; nil fields are left untouched. ClearSession
// distinguishes "drop the session" from "leave it alone".
type Patch struct {
	Auth             *AuthState
	Session          *Session
	ClearSession     bool
	MFA              *MFAState
	OAuth            *OAuthState
	Security         *SecurityState
	PasswordRecovery *PasswordRecoveryState
	Verification     *VerificationState
	Extensions       map[string]any
	EventType        string
}

// ApplyPatch applies p as one mutation.
func (s *Store) ApplyPatch(p Patch) {
	s.mutate(func(st *State) {
		if p.Auth != nil {
			st.Auth = *p.Auth
		}
		if p.ClearSession {
			st.Session = nil
		} else if p.Session != nil {
			st.Session = cloneSession(p.Session)
		}
		if p.MFA != nil {
			st.MFA = *p.MFA
		}
		if p.OAuth != nil {
			st.OAuth = *p.OAuth
		}
		if p.Security != nil {
			st.Security = *p.Security
		}
		if p.PasswordRecovery != nil {
			st.PasswordRecovery = *p.PasswordRecovery
		}
		if p.Verification != nil {
			st.Verification = *p.Verification
		}
		for k, v := range p.Extensions {
			if st.Extensions == nil {
				st.Extensions = map[string]any{}
			}
			st.Extensions[k] = v
		}
		if p.EventType != "" {
			st.LastEvent = p.EventType
		}
	})
}

// Transaction runs mutator against a deep, isolated working copy of the
// aggregate. Partial writes inside the mutator never leak: only when the
// mutator returns nil is the working copy passed through the invariant pass
// and swapped in, as one atomic update. An error discards the copy and
// leaves the store byte-for-byte unchanged.
func (s *Store) Transaction(mutator func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := cloneState(s.state)
	if err := mutator(&working); err != nil {
		return err
	}
	s.state = Enforce(working)
	return nil
}

// ApplyEventType records the last applied event type as a marker update.
// The invariant pass still runs; the marker itself cannot create
// inconsistency but the rule is every mutation, without exception.
func (s *Store) ApplyEventType(eventType string) {
	s.mutate(func(st *State) { st.LastEvent = eventType })
}

// Reset returns the store to the initial state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Initial()
}

// Save serializes the current aggregate and writes it to snapshots.
func (s *Store) Save(ctx context.Context, snapshots SnapshotStore) error {
	data, err := Serialize(s.State())
	if err != nil {
		return err
	}
	return snapshots.Save(ctx, data)
}

// Load builds a store from the persisted snapshot, falling back to the
// initial state when no snapshot exists or the blob fails validation.
// Restore failures are recovered locally and never surfaced to the caller.
func Load(ctx context.Context, snapshots SnapshotStore) *Store {
	if snapshots == nil {
		return NewStore()
	}
	data, err := snapshots.Load(ctx)
	if err != nil {
		return NewStore()
	}
	return NewStoreFrom(RestoreOrInitial(data))
}

func cloneState(s State) State {
	out := s
	out.Session = cloneSession(s.Session)
	if s.Auth.User != nil {
		user := *s.Auth.User
		out.Auth.User = &user
	}
	if s.Security.RiskScore != nil {
		score := *s.Security.RiskScore
		out.Security.RiskScore = &score
	}
	if s.Extensions != nil {
		ext := make(map[string]any, len(s.Extensions))
		for k, v := range s.Extensions {
			ext[k] = v
		}
		out.Extensions = ext
	}
	return out
}

func cloneSession(sess *Session) *Session {
	if sess == nil {
		return nil
	}
	out := *sess
	if sess.Grants != nil {
		grants := make(PermissionSet, len(sess.Grants))
		for g := range sess.Grants {
			grants[g] = struct{}{}
		}
		out.Grants = grants
	}
	return &out
}
