package state

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSerializeRestoreRoundTrip(t *testing.T) {
	s := authenticatedState()
	s.Session.Grants = NewPermissionSet("write", "read")
	s.Session.AccessToken = "at-secret"
	s.Session.RefreshToken = "rt-secret"
	s.Security = SecurityState{Status: SecurityRiskDetected, RiskLevel: "high", RiskScore: floatPtr(65)}
	s.Extensions = map[string]any{"theme": "dark"}
	s.LastEvent = "login_success"

	blob, err := Serialize(s)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	got, err := Restore(blob)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got.Auth.Status != AuthAuthenticated || got.Session == nil {
		t.Fatalf("round trip lost sub-states: %+v", got)
	}
	if !reflect.DeepEqual(got.Session.Grants, NewPermissionSet("read", "write")) {
		t.Fatalf("grants set not rehydrated: %v", got.Session.Grants)
	}
	if got.Session.AccessToken != "" || got.Session.RefreshToken != "" {
		t.Fatal("tokens must never survive persistence")
	}
	if got.LastEvent != "" {
		t.Fatalf("event marker is transient, got %q", got.LastEvent)
	}
	if got.Extensions["theme"] != "dark" {
		t.Fatalf("extension bag lost: %+v", got.Extensions)
	}
}

func TestSerializeGrantsOrderedList(t *testing.T) {
	s := authenticatedState()
	s.Session.Grants = NewPermissionSet("write", "admin", "read")

	blob, err := Serialize(s)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !strings.Contains(string(blob), `"grants":["admin","read","write"]`) {
		t.Fatalf("grants must serialize as a sorted list: %s", blob)
	}
}

func TestRestoreRejectsVersionMismatch(t *testing.T) {
	s := Initial()
	blob, _ := Serialize(s)
	blob = []byte(strings.Replace(string(blob), `"version":1`, `"version":2`, 1))

	if _, err := Restore(blob); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("version mismatch must invalidate the snapshot, got %v", err)
	}
}

func TestRestoreRejectsUnknownStatus(t *testing.T) {
	blob, _ := Serialize(Initial())
	for _, replace := range []struct{ from, to string }{
		{`"auth":{"status":"unauthenticated"}`, `"auth":{"status":"wedged"}`},
		{`"mfa":{"status":"not_setup"}`, `"mfa":{"status":"maybe"}`},
		{`"security":{"status":"normal"}`, `"security":{"status":"panicking"}`},
	} {
		mutated := strings.Replace(string(blob), replace.from, replace.to, 1)
		if mutated == string(blob) {
			t.Fatalf("fixture drifted, %q not found in %s", replace.from, blob)
		}
		if _, err := Restore([]byte(mutated)); !errors.Is(err, ErrSnapshotInvalid) {
			t.Fatalf("unknown enum %q must invalidate, got %v", replace.to, err)
		}
	}
}

func TestRestoreRejectsNonObjectSession(t *testing.T) {
	blob, _ := Serialize(Initial())
	mutated := strings.Replace(string(blob), `"session":null`, `"session":"sess-1"`, 1)
	if mutated == string(blob) {
		t.Fatalf("fixture drifted: %s", blob)
	}
	if _, err := Restore([]byte(mutated)); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("scalar session must invalidate, got %v", err)
	}
}

func TestRestoreRejectsAuthenticatedWithoutUser(t *testing.T) {
	s := authenticatedState()
	s.Auth.User = nil
	blob, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if _, err := Restore(blob); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("authenticated without user must invalidate, got %v", err)
	}
}

func TestRestoreRejectsSessionMissingIDs(t *testing.T) {
	s := authenticatedState()
	s.Session.UserID = ""
	blob, _ := json.Marshal(s)
	if _, err := Restore(blob); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("session without user id must invalidate, got %v", err)
	}

	s = authenticatedState()
	s.Session.SessionID = ""
	blob, _ = json.Marshal(s)
	if _, err := Restore(blob); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("session without session id must invalidate, got %v", err)
	}
}

func TestRestoreRejectsRiskDetectedMissingFields(t *testing.T) {
	s := Initial()
	s.Security = SecurityState{Status: SecurityRiskDetected, RiskLevel: "high"}
	blob, _ := json.Marshal(s)
	if _, err := Restore(blob); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("risk_detected without score must invalidate, got %v", err)
	}

	s.Security = SecurityState{Status: SecurityRiskDetected, RiskScore: floatPtr(70)}
	blob, _ = json.Marshal(s)
	if _, err := Restore(blob); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("risk_detected without level must invalidate, got %v", err)
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	if _, err := Restore([]byte("not json")); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("garbage must invalidate, got %v", err)
	}
}

func TestRestoreOrInitialFallsBack(t *testing.T) {
	if got := RestoreOrInitial([]byte("{}")); !reflect.DeepEqual(got, Initial()) {
		t.Fatalf("corrupted snapshot must fall back wholesale: %+v", got)
	}

	blob, _ := Serialize(authenticatedState())
	got := RestoreOrInitial(blob)
	if got.Auth.Status != AuthAuthenticated {
		t.Fatalf("valid snapshot must restore: %+v", got)
	}
}
