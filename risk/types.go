package risk

import "time"

// DeviceType classifies the device a login attempt originates from.
type DeviceType string

const (
	// DeviceDesktop is an exported constant used by the risk catalog.
	DeviceDesktop DeviceType = "desktop"
	// DeviceMobile is an exported constant used by the risk catalog.
	DeviceMobile DeviceType = "mobile"
	// DeviceTablet is an exported constant used by the risk catalog.
	DeviceTablet DeviceType = "tablet"
	// DeviceIoT is an exported constant used by the risk catalog.
	DeviceIoT DeviceType = "iot"
	// DeviceUnknown is an exported constant used by the risk catalog.
	DeviceUnknown DeviceType = "unknown"
)

// GeoPoint is a coordinate pair with an optional resolved country code.
// Lat and Lng are pointers so that a partially populated pair (a spoofing
// signal, see ValidateSignals) stays representable.
type GeoPoint struct {
	Country string
	Lat     *float64
	Lng     *float64
}

// Signals is the raw signal bundle produced by an external risk-data
// collaborator. All fields are optional; the bundle is read-only from the
// perspective of this package.
type Signals struct {
	ReputationScore *float64
	VelocityScore   *float64
	PreviousGeo     *GeoPoint
	IsVPN           *bool
	IsTor           *bool
	IsProxy         *bool
	External        map[string]any
}

// DeviceInfo is an immutable per-attempt snapshot of the originating device.
type DeviceInfo struct {
	DeviceID   string
	DeviceType DeviceType
	OS         string
	Browser    string
	UserAgent  string
	Geo        *GeoPoint
	AppVersion string
	LastUsedAt time.Time
}

// Context is the raw risk context for one login attempt. UserID is expected
// to be privacy-safe already (the orchestrator hashes the raw identifier
// before it reaches this package); Operation tags the attempt kind ("login"
// or "oauth_login"). Built fresh per attempt, never shared.
type Context struct {
	UserID            string
	Operation         string
	IP                string
	Geo               *GeoPoint
	PreviousSessionID string
	Timestamp         time.Time
	Signals           *Signals
}

// RuleSignals is the flag/score subset of Signals visible to rule predicates.
type RuleSignals struct {
	IsVPN           *bool
	IsTor           *bool
	IsProxy         *bool
	ReputationScore *float64
	VelocityScore   *float64
}

// Metadata carries derived per-attempt facts into rule evaluation.
type Metadata struct {
	IsNewDevice *bool
	RiskScore   *float64
}

// ScoringContext is the minimal view used for base score computation.
type ScoringContext struct {
	Device  DeviceInfo
	Geo     *GeoPoint
	IP      string
	Signals *Signals
}

// RuleContext is the view rule predicates evaluate against.
type RuleContext struct {
	Device      DeviceInfo
	Geo         *GeoPoint
	PreviousGeo *GeoPoint
	Signals     *RuleSignals
	Metadata    Metadata
	Extra       map[string]any
}

// AssessmentContext is the durable record of an attempt's evaluation inputs,
// used later for audit.
type AssessmentContext struct {
	UserID            string
	Operation         string
	IP                string
	Geo               *GeoPoint
	UserAgent         string
	PreviousSessionID string
	Timestamp         time.Time
	Signals           *Signals
	Extra             map[string]any
}
