package risk

import "math"

// ViolationCode identifies the closed set of signal validation failures.
type ViolationCode string

const (
	// CodeInvalidScore is an exported constant used by the signal validator.
	CodeInvalidScore ViolationCode = "INVALID_SCORE"
	// CodeInvalidCoordinates is an exported constant used by the signal validator.
	CodeInvalidCoordinates ViolationCode = "INVALID_COORDINATES"
	// CodeIncompleteCoordinates is an exported constant used by the signal validator.
	CodeIncompleteCoordinates ViolationCode = "INCOMPLETE_COORDINATES"
)

// Violation severity, scope, and impact are fixed: malformed signals degrade
// to "signal removed", never to a hard failure.
const (
	SeverityBlock       = "block"
	AffectsSignals      = "signals"
	ImpactRemovesSignal = "removes_signal"
)

// Machine-readable reasons carried in Violation.Meta.
const (
	ReasonNotFinite             = "not_finite"
	ReasonOutOfRange            = "out_of_range"
	ReasonLatNotFinite          = "lat_not_finite"
	ReasonLatOutOfRange         = "lat_out_of_range"
	ReasonLngNotFinite          = "lng_not_finite"
	ReasonLngOutOfRange         = "lng_out_of_range"
	ReasonIncompleteCoordinates = "incomplete_coordinates_spoofing_risk"
)

// Violation describes one semantically invalid populated signal field.
type Violation struct {
	Code     ViolationCode
	Severity string
	Affects  string
	Impact   string
	Meta     map[string]any
}

func newViolation(code ViolationCode, field, reason string, value any) Violation {
	return Violation{
		Code:     code,
		Severity: SeverityBlock,
		Affects:  AffectsSignals,
		Impact:   ImpactRemovesSignal,
		Meta: map[string]any{
			"field":  field,
			"reason": reason,
			"value":  value,
		},
	}
}

// ValidateSignals checks every populated numeric/geo field of the bundle for
// finiteness and domain range. Absent fields and a nil bundle produce no
// violations. A previousGeo pair with exactly one coordinate present is
// itself a violation, distinct from an out-of-range value: partial
// coordinates are flagged as a spoofing-risk signal, not merely bad data.
//
// ValidateSignals never mutates its input and never fails; multiple
// independent violations may be returned for one bundle.
func ValidateSignals(s *Signals) []Violation {
	if s == nil {
		return []Violation{}
	}

	violations := []Violation{}

	if s.ReputationScore != nil {
		if v, ok := scoreViolation("reputationScore", *s.ReputationScore); ok {
			violations = append(violations, v)
		}
	}
	if s.VelocityScore != nil {
		if v, ok := scoreViolation("velocityScore", *s.VelocityScore); ok {
			violations = append(violations, v)
		}
	}
	if s.PreviousGeo != nil {
		violations = append(violations, coordinateViolations(s.PreviousGeo)...)
	}

	return violations
}

func scoreViolation(field string, value float64) (Violation, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return newViolation(CodeInvalidScore, field, ReasonNotFinite, value), true
	}
	if value < 0 || value > 100 {
		return newViolation(CodeInvalidScore, field, ReasonOutOfRange, value), true
	}
	return Violation{}, false
}

func coordinateViolations(geo *GeoPoint) []Violation {
	hasLat := geo.Lat != nil
	hasLng := geo.Lng != nil

	// Neither coordinate present: the pair is simply absent.
	if !hasLat && !hasLng {
		return nil
	}
	if hasLat != hasLng {
		v := newViolation(CodeIncompleteCoordinates, "previousGeo", ReasonIncompleteCoordinates, nil)
		if hasLat {
			v.Meta["lat"] = *geo.Lat
		}
		if hasLng {
			v.Meta["lng"] = *geo.Lng
		}
		return []Violation{v}
	}

	var violations []Violation
	if math.IsNaN(*geo.Lat) || math.IsInf(*geo.Lat, 0) {
		violations = append(violations, newViolation(CodeInvalidCoordinates, "previousGeo", ReasonLatNotFinite, *geo.Lat))
	} else if *geo.Lat < -90 || *geo.Lat > 90 {
		violations = append(violations, newViolation(CodeInvalidCoordinates, "previousGeo", ReasonLatOutOfRange, *geo.Lat))
	}
	if math.IsNaN(*geo.Lng) || math.IsInf(*geo.Lng, 0) {
		violations = append(violations, newViolation(CodeInvalidCoordinates, "previousGeo", ReasonLngNotFinite, *geo.Lng))
	} else if *geo.Lng < -180 || *geo.Lng > 180 {
		violations = append(violations, newViolation(CodeInvalidCoordinates, "previousGeo", ReasonLngOutOfRange, *geo.Lng))
	}
	return violations
}

// finiteScore reports whether a score pointer holds a usable value in
// [0,100]. Predicates use this so that a bad score makes rules not fire,
// independent of whatever ValidateSignals separately reported.
func finiteScore(v *float64) bool {
	if v == nil {
		return false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return false
	}
	return *v >= 0 && *v <= 100
}
