package risk

import (
	"context"
	"math"
	"testing"
)

func TestAssessAllowPath(t *testing.T) {
	p := NewPipeline(Policy{})
	device := DeviceInfo{DeviceType: DeviceDesktop, OS: "linux", Browser: "firefox"}

	a, err := p.Assess(context.Background(), device, &Context{UserID: "u1", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if a.Decision != Decision("") {
		t.Fatalf("clean attempt must reduce to allow, got %q", a.Decision)
	}
	if a.Score != 0 || len(a.RuleIDs) != 0 || len(a.Violations) != 0 {
		t.Fatalf("clean attempt should be empty: %+v", a)
	}
	if a.Context.UserID != "u1" {
		t.Fatalf("assessment record not built: %+v", a.Context)
	}
}

func TestAssessBlockCarriesReason(t *testing.T) {
	p := NewPipeline(Policy{})
	device := DeviceInfo{DeviceType: DeviceDesktop, OS: "linux", Browser: "firefox"}
	rc := &Context{Signals: &Signals{IsTor: boolPtr(true)}}

	a, err := p.Assess(context.Background(), device, rc)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if a.Decision != DecisionBlock {
		t.Fatalf("tor must block, got %q", a.Decision)
	}
	if a.BlockReason != "tor_exit_detected" {
		t.Fatalf("expected default tor reason, got %q", a.BlockReason)
	}
	if len(a.RuleIDs) != 1 || a.RuleIDs[0] != RuleTorNetwork {
		t.Fatalf("block must short-circuit to the blocking rule: %v", a.RuleIDs)
	}
	if a.BlockRuleID != RuleTorNetwork {
		t.Fatalf("blocking rule not recorded: %q", a.BlockRuleID)
	}
}

func TestAssessRemovesMalformedSignals(t *testing.T) {
	p := NewPipeline(Policy{})
	device := DeviceInfo{DeviceType: DeviceDesktop, OS: "linux", Browser: "firefox"}

	// Reputation is malformed (would block as critical if taken at face
	// value); velocity is valid and above threshold.
	rc := &Context{Signals: &Signals{
		ReputationScore: floatPtr(math.NaN()),
		VelocityScore:   floatPtr(80),
	}}

	a, err := p.Assess(context.Background(), device, rc)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if len(a.Violations) != 1 || a.Violations[0].Code != CodeInvalidScore {
		t.Fatalf("expected one INVALID_SCORE violation, got %v", a.Violations)
	}
	for _, id := range a.RuleIDs {
		if id == RuleCriticalReputation || id == RuleLowReputation {
			t.Fatalf("flagged reputation must not reach rules: %v", a.RuleIDs)
		}
	}
	found := false
	for _, id := range a.RuleIDs {
		if id == RuleHighVelocity {
			found = true
		}
	}
	if !found {
		t.Fatalf("valid velocity must still evaluate: %v", a.RuleIDs)
	}
	if rc.Signals.ReputationScore == nil {
		t.Fatal("sanitization must not mutate the caller's bundle")
	}
}

func TestAssessTotalScoreClamped(t *testing.T) {
	p := NewPipeline(Policy{})
	device := DeviceInfo{DeviceType: DeviceUnknown}
	rc := &Context{Signals: &Signals{
		VelocityScore:   floatPtr(100),
		ReputationScore: floatPtr(0),
	}}

	a, err := p.Assess(context.Background(), device, rc)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if a.Decision != DecisionBlock {
		t.Fatalf("zero reputation must block, got %q", a.Decision)
	}
	if a.Score > 100 {
		t.Fatalf("total score must be clamped, got %v", a.Score)
	}
}

func TestAssessObservesCancellation(t *testing.T) {
	p := NewPipeline(Policy{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Assess(ctx, DeviceInfo{}, &Context{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestRiskLevelBuckets(t *testing.T) {
	cases := map[float64]string{
		0:    "low",
		29.9: "low",
		30:   "medium",
		59.9: "medium",
		60:   "high",
		79.9: "high",
		80:   "critical",
		100:  "critical",
	}
	for score, want := range cases {
		if got := RiskLevel(score); got != want {
			t.Fatalf("RiskLevel(%v) = %q, want %q", score, got, want)
		}
	}
}
