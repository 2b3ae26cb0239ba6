package risk

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"time"
)

// Extension is one link in the ordered context-extension chain. Each hook is
// optional; a nil hook skips the extension for that builder. Hooks receive
// the previous hook's output and must return a new value rather than mutate
// the shared signal/geo references in place.
type Extension struct {
	ExtendScoring    func(ScoringContext, *Context) ScoringContext
	ExtendRule       func(RuleContext, *Context) RuleContext
	ExtendAssessment func(AssessmentContext, *Context) AssessmentContext
}

var mutationChecks atomic.Bool

// SetMutationChecks toggles the development-only in-place mutation guard.
// When enabled, every builder fingerprints the shared signals subtree before
// running the extension chain and panics if the chain mutated it. This is a
// development aid only; it never influences the built views.
func SetMutationChecks(enabled bool) {
	mutationChecks.Store(enabled)
}

// BuildScoringContext assembles the minimal view used for base score
// computation. Signals and geo are shared by reference with the raw context;
// the raw context is not mutated downstream, so no deep copy is taken.
func BuildScoringContext(device DeviceInfo, rc *Context, exts []Extension) ScoringContext {
	view := ScoringContext{
		Device:  device,
		IP:      rc.IP,
		Geo:     rc.Geo,
		Signals: rc.Signals,
	}

	guard := newMutationGuard(rc)
	for _, ext := range exts {
		if ext.ExtendScoring == nil {
			continue
		}
		view = ext.ExtendScoring(view, rc)
	}
	guard.check("BuildScoringContext")

	return view
}

// BuildRuleContext assembles the view rule predicates evaluate against.
// PreviousGeo is lifted out of the signal bundle; IsNewDevice defaults to
// true whenever no previous session id is known (treat-as-new); riskScore is
// the caller-supplied running score.
func BuildRuleContext(device DeviceInfo, rc *Context, riskScore float64, exts []Extension) RuleContext {
	isNew := rc.PreviousSessionID == ""
	score := riskScore

	view := RuleContext{
		Device: device,
		Geo:    rc.Geo,
		Metadata: Metadata{
			IsNewDevice: &isNew,
			RiskScore:   &score,
		},
	}
	if rc.Signals != nil {
		view.PreviousGeo = rc.Signals.PreviousGeo
		view.Signals = &RuleSignals{
			IsVPN:           rc.Signals.IsVPN,
			IsTor:           rc.Signals.IsTor,
			IsProxy:         rc.Signals.IsProxy,
			ReputationScore: rc.Signals.ReputationScore,
			VelocityScore:   rc.Signals.VelocityScore,
		}
	}

	guard := newMutationGuard(rc)
	for _, ext := range exts {
		if ext.ExtendRule == nil {
			continue
		}
		view = ext.ExtendRule(view, rc)
	}
	guard.check("BuildRuleContext")

	return view
}

// BuildAssessmentContext assembles the durable record used later for audit.
// UserAgent is lifted from the device snapshot.
func BuildAssessmentContext(device DeviceInfo, rc *Context, exts []Extension) AssessmentContext {
	view := AssessmentContext{
		UserID:            rc.UserID,
		Operation:         rc.Operation,
		IP:                rc.IP,
		Geo:               rc.Geo,
		UserAgent:         device.UserAgent,
		PreviousSessionID: rc.PreviousSessionID,
		Timestamp:         rc.Timestamp,
		Signals:           rc.Signals,
	}

	guard := newMutationGuard(rc)
	for _, ext := range exts {
		if ext.ExtendAssessment == nil {
			continue
		}
		view = ext.ExtendAssessment(view, rc)
	}
	guard.check("BuildAssessmentContext")

	return view
}

// mutationGuard captures a deep fingerprint of the shared signals subtree so
// that accidental in-place mutation by an extension is caught immediately in
// development. Disabled guards cost one nil check.
type mutationGuard struct {
	rc     *Context
	before *Signals
}

func newMutationGuard(rc *Context) *mutationGuard {
	if !mutationChecks.Load() || rc == nil || rc.Signals == nil {
		return nil
	}
	return &mutationGuard{
		rc:     rc,
		before: cloneSignals(rc.Signals),
	}
}

func (g *mutationGuard) check(builder string) {
	if g == nil {
		return
	}
	if !reflect.DeepEqual(g.before, g.rc.Signals) {
		panic(fmt.Sprintf("goLoginRisk: extension mutated shared signals in place during %s", builder))
	}
}

// cloneSignals deep-copies the signal bundle, including the opaque external
// bag. The external bag is walked cycle-safely; values that are not plain
// map/slice containers (times, patterns, channels, arbitrary structs) are
// treated as opaque leaves and copied by reference.
func cloneSignals(s *Signals) *Signals {
	if s == nil {
		return nil
	}
	out := &Signals{
		ReputationScore: cloneFloat(s.ReputationScore),
		VelocityScore:   cloneFloat(s.VelocityScore),
		IsVPN:           cloneBool(s.IsVPN),
		IsTor:           cloneBool(s.IsTor),
		IsProxy:         cloneBool(s.IsProxy),
	}
	if s.PreviousGeo != nil {
		geo := GeoPoint{
			Country: s.PreviousGeo.Country,
			Lat:     cloneFloat(s.PreviousGeo.Lat),
			Lng:     cloneFloat(s.PreviousGeo.Lng),
		}
		out.PreviousGeo = &geo
	}
	if s.External != nil {
		seen := map[uintptr]bool{}
		out.External = cloneBag(s.External, seen)
	}
	return out
}

func cloneBag(bag map[string]any, seen map[uintptr]bool) map[string]any {
	ptr := reflect.ValueOf(bag).Pointer()
	if seen[ptr] {
		return bag
	}
	seen[ptr] = true

	out := make(map[string]any, len(bag))
	for k, v := range bag {
		out[k] = cloneValue(v, seen)
	}
	return out
}

func cloneValue(v any, seen map[uintptr]bool) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneBag(val, seen)
	case []any:
		ptr := reflect.ValueOf(val).Pointer()
		if seen[ptr] {
			return val
		}
		seen[ptr] = true
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item, seen)
		}
		return out
	case time.Time:
		return val
	default:
		return val
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
