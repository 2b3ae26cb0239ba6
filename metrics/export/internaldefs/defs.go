package internaldefs

import (
	goLoginRisk "github.com/CrypticVoid/goLoginRisk"
)

// CounterDef defines a public type used by goLoginRisk APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goLoginRisk.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goLoginRisk APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goLoginRisk.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the login risk engine.
var CounterDefs = []CounterDef{
	{ID: goLoginRisk.MetricLoginSuccess, Name: "gologinrisk_login_success_total", Help: "Successful login attempts."},
	{ID: goLoginRisk.MetricLoginFailure, Name: "gologinrisk_login_failure_total", Help: "Login attempts settled as errors."},
	{ID: goLoginRisk.MetricLoginBlocked, Name: "gologinrisk_login_blocked_total", Help: "Login attempts blocked by the risk catalog."},
	{ID: goLoginRisk.MetricMFARequired, Name: "gologinrisk_mfa_required_total", Help: "Login attempts requiring an MFA step-up."},
	{ID: goLoginRisk.MetricAttemptSuperseded, Name: "gologinrisk_attempt_superseded_total", Help: "Login attempts coalesced or superseded by a newer attempt."},
	{ID: goLoginRisk.MetricSnapshotRestored, Name: "gologinrisk_snapshot_restored_total", Help: "State snapshots restored on start."},
	{ID: goLoginRisk.MetricSnapshotRejected, Name: "gologinrisk_snapshot_rejected_total", Help: "State snapshots rejected by restore validation."},
}

// HistogramDefs is an exported constant or variable used by the login risk engine.
var HistogramDefs = []HistogramDef{
	{ID: goLoginRisk.MetricLoginLatency, Name: "gologinrisk_login_latency_seconds", Help: "Login attempt latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the login risk engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the login risk engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
