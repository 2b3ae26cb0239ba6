package state

import (
	"errors"
	"reflect"
	"testing"
)

func TestStoreStartsInitial(t *testing.T) {
	s := NewStore()
	if !reflect.DeepEqual(s.State(), Initial()) {
		t.Fatalf("new store must hold the initial state: %+v", s.State())
	}
}

func TestStateReturnsDeepCopy(t *testing.T) {
	s := NewStoreFrom(authenticatedState())

	first := s.State()
	first.Auth.User.UserID = "tampered"
	first.Session.SessionID = "tampered"
	*&first.Security.Status = SecurityBlocked

	second := s.State()
	if second.Auth.User.UserID != "u1" || second.Session.SessionID != "sess-1" {
		t.Fatalf("caller mutation leaked into the store: %+v", second)
	}
}

func TestSettersRunInvariantPass(t *testing.T) {
	s := NewStoreFrom(authenticatedState())

	// Dropping the session through the setter must demote auth in the same
	// observable update.
	s.SetSession(nil)

	got := s.State()
	if got.Auth.Status != AuthSessionExpired {
		t.Fatalf("setter skipped the invariant pass: %+v", got.Auth)
	}
}

func TestApplyPatchBulkUpdate(t *testing.T) {
	s := NewStore()
	auth := AuthState{Status: AuthAuthenticated, User: &User{UserID: "u1"}, UserID: "u1"}
	sess := &Session{Status: SessionActive, SessionID: "sess-1", UserID: "u1"}

	s.ApplyPatch(Patch{
		Auth:       &auth,
		Session:    sess,
		Extensions: map[string]any{"theme": "dark"},
		EventType:  "login_success",
	})

	got := s.State()
	if got.Auth.Status != AuthAuthenticated || got.Session == nil {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.Extensions["theme"] != "dark" {
		t.Fatalf("extension bag not merged: %+v", got.Extensions)
	}
	if got.LastEvent != "login_success" {
		t.Fatalf("event marker not recorded: %q", got.LastEvent)
	}
}

func TestApplyPatchClearSession(t *testing.T) {
	s := NewStoreFrom(authenticatedState())
	s.ApplyPatch(Patch{ClearSession: true})

	got := s.State()
	if got.Session != nil {
		t.Fatal("ClearSession must drop the session")
	}
	if got.Auth.Status != AuthSessionExpired {
		t.Fatalf("invariant pass must demote auth: %+v", got.Auth)
	}
}

func TestTransactionAtomicCommit(t *testing.T) {
	s := NewStore()

	err := s.Transaction(func(st *State) error {
		st.Auth = AuthState{Status: AuthAuthenticated, User: &User{UserID: "u1"}, UserID: "u1"}
		st.Session = &Session{Status: SessionActive, SessionID: "sess-1", UserID: "u1"}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	got := s.State()
	if got.Auth.Status != AuthAuthenticated || got.Session == nil {
		t.Fatalf("transaction not committed: %+v", got)
	}
}

func TestTransactionErrorDiscardsAllWrites(t *testing.T) {
	s := NewStore()
	before := s.State()
	boom := errors.New("boom")

	err := s.Transaction(func(st *State) error {
		st.Auth = AuthState{Status: AuthAuthenticated, User: &User{UserID: "u1"}, UserID: "u1"}
		st.Session = &Session{Status: SessionActive, SessionID: "sess-1", UserID: "u1"}
		st.Security = SecurityState{Status: SecurityBlocked}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error back, got %v", err)
	}
	if !reflect.DeepEqual(s.State(), before) {
		t.Fatalf("partial writes leaked:\n before %+v\n after %+v", before, s.State())
	}
}

func TestTransactionWorkingCopyIsolated(t *testing.T) {
	s := NewStoreFrom(authenticatedState())

	_ = s.Transaction(func(st *State) error {
		st.Auth.User.UserID = "mutated"
		return errors.New("discard")
	})

	if s.State().Auth.User.UserID != "u1" {
		t.Fatal("mutator reached the live aggregate through a shared pointer")
	}
}

func TestApplyEventTypeMarker(t *testing.T) {
	s := NewStore()
	s.ApplyEventType("policy_violation")
	if got := s.State().LastEvent; got != "policy_violation" {
		t.Fatalf("marker not applied: %q", got)
	}
}

func TestResetReturnsToInitial(t *testing.T) {
	s := NewStoreFrom(authenticatedState())
	s.Reset()
	if !reflect.DeepEqual(s.State(), Initial()) {
		t.Fatalf("reset must restore the initial state: %+v", s.State())
	}
}

func TestNewStoreFromEnforcesSeed(t *testing.T) {
	seed := authenticatedState()
	seed.Security = SecurityState{Status: SecurityBlocked, Reason: "seeded"}

	s := NewStoreFrom(seed)
	got := s.State()
	if got.Auth.Status != AuthFailed || got.Session != nil {
		t.Fatalf("seed must pass through the invariant pass: %+v", got)
	}
}

func TestPermissionSetRoundTrip(t *testing.T) {
	set := NewPermissionSet("write", "read", "admin")
	if !set.Has("read") || set.Has("missing") {
		t.Fatalf("membership broken: %v", set)
	}

	values := set.Values()
	want := []string{"admin", "read", "write"}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("values must be sorted: %v", values)
	}
}
