package audit

import (
	"errors"
	"testing"
	"time"
)

func testMapContext() Context {
	return Context{
		EventID:       "evt-1",
		CorrelationID: "corr-1",
		Timestamp:     time.Unix(1700000000, 0),
		Operation:     "oauth_login",
		IP:            "10.0.0.1",
		DeviceID:      "dev-1",
		DeviceType:    "desktop",
		Country:       "DE",
		UserAgent:     "ua/1.0",
		RiskScore:     42.5,
		Metadata:      map[string]string{"tenant": "t1"},
	}
}

func TestMapOutcomeSuccess(t *testing.T) {
	event, err := MapOutcome(Outcome{Tag: OutcomeSuccess, UserID: "u1", SessionID: "sess-1"}, testMapContext())
	if err != nil {
		t.Fatalf("MapOutcome failed: %v", err)
	}
	if event.EventType != EventLoginSuccess {
		t.Fatalf("expected %s, got %s", EventLoginSuccess, event.EventType)
	}
	if event.SessionID != "sess-1" || event.UserID != "u1" {
		t.Fatalf("outcome payload not mapped: %+v", event)
	}
}

func TestMapOutcomeSuccessRequiresSession(t *testing.T) {
	_, err := MapOutcome(Outcome{Tag: OutcomeSuccess, UserID: "u1"}, testMapContext())
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("success without session must be a contract violation, got %v", err)
	}
}

func TestMapOutcomeMFARequired(t *testing.T) {
	event, err := MapOutcome(Outcome{Tag: OutcomeMFARequired, UserID: "u1", ChallengeID: "ch-1"}, testMapContext())
	if err != nil {
		t.Fatalf("MapOutcome failed: %v", err)
	}
	if event.EventType != EventMFAChallenge || event.ChallengeID != "ch-1" {
		t.Fatalf("challenge payload not mapped: %+v", event)
	}
}

func TestMapOutcomeMFARequiresUser(t *testing.T) {
	_, err := MapOutcome(Outcome{Tag: OutcomeMFARequired, ChallengeID: "ch-1"}, testMapContext())
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("mfa challenge without user must be a contract violation, got %v", err)
	}
}

func TestMapOutcomeBlocked(t *testing.T) {
	event, err := MapOutcome(Outcome{
		Tag:         OutcomeBlocked,
		BlockReason: "tor_exit_detected",
		PolicyID:    "TOR_NETWORK",
	}, testMapContext())
	if err != nil {
		t.Fatalf("MapOutcome failed: %v", err)
	}
	if event.EventType != EventPolicyViolation {
		t.Fatalf("expected %s, got %s", EventPolicyViolation, event.EventType)
	}
	if event.Reason != "tor_exit_detected" || event.PolicyID != "TOR_NETWORK" {
		t.Fatalf("block payload not mapped: %+v", event)
	}
}

func TestMapOutcomeError(t *testing.T) {
	event, err := MapOutcome(Outcome{Tag: OutcomeError, ErrorKind: "network"}, testMapContext())
	if err != nil {
		t.Fatalf("MapOutcome failed: %v", err)
	}
	if event.EventType != EventLoginFailure || event.ErrorCode != "network" {
		t.Fatalf("error payload not mapped: %+v", event)
	}
}

func TestMapOutcomeUnknownTag(t *testing.T) {
	_, err := MapOutcome(Outcome{Tag: OutcomeTag("made_up")}, testMapContext())
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("unknown tag must be a contract violation, got %v", err)
	}
}

func TestMapOutcomeCopiesContextVerbatim(t *testing.T) {
	mc := testMapContext()
	event, err := MapOutcome(Outcome{Tag: OutcomeBlocked, BlockReason: "r"}, mc)
	if err != nil {
		t.Fatalf("MapOutcome failed: %v", err)
	}
	if event.EventID != mc.EventID || event.CorrelationID != mc.CorrelationID ||
		!event.Timestamp.Equal(mc.Timestamp) || event.Operation != mc.Operation ||
		event.IP != mc.IP ||
		event.DeviceID != mc.DeviceID || event.DeviceType != mc.DeviceType ||
		event.Country != mc.Country || event.UserAgent != mc.UserAgent ||
		event.RiskScore != mc.RiskScore || event.Metadata["tenant"] != "t1" {
		t.Fatalf("context fields not copied verbatim: %+v", event)
	}
}
