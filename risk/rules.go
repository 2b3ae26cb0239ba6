package risk

// RuleID names one rule from the closed catalog. IDs are globally unique
// across all four categories.
type RuleID string

const (
	// RuleUnknownDevice is an exported constant used by the risk catalog.
	RuleUnknownDevice RuleID = "UNKNOWN_DEVICE"
	// RuleIoTDevice is an exported constant used by the risk catalog.
	RuleIoTDevice RuleID = "IoT_DEVICE"
	// RuleMissingOS is an exported constant used by the risk catalog.
	RuleMissingOS RuleID = "MISSING_OS"
	// RuleMissingBrowser is an exported constant used by the risk catalog.
	RuleMissingBrowser RuleID = "MISSING_BROWSER"
	// RuleTorNetwork is an exported constant used by the risk catalog.
	RuleTorNetwork RuleID = "TOR_NETWORK"
	// RuleVPNDetected is an exported constant used by the risk catalog.
	RuleVPNDetected RuleID = "VPN_DETECTED"
	// RuleProxyDetected is an exported constant used by the risk catalog.
	RuleProxyDetected RuleID = "PROXY_DETECTED"
	// RuleCriticalReputation is an exported constant used by the risk catalog.
	RuleCriticalReputation RuleID = "CRITICAL_REPUTATION"
	// RuleLowReputation is an exported constant used by the risk catalog.
	RuleLowReputation RuleID = "LOW_REPUTATION"
	// RuleHighVelocity is an exported constant used by the risk catalog.
	RuleHighVelocity RuleID = "HIGH_VELOCITY"
	// RuleHighRiskCountry is an exported constant used by the risk catalog.
	RuleHighRiskCountry RuleID = "HIGH_RISK_COUNTRY"
	// RuleGeoMismatch is an exported constant used by the risk catalog.
	RuleGeoMismatch RuleID = "GEO_MISMATCH"
	// RuleIoTTor is an exported constant used by the risk catalog.
	RuleIoTTor RuleID = "IoT_TOR"
	// RuleNewDeviceVPN is an exported constant used by the risk catalog.
	RuleNewDeviceVPN RuleID = "NEW_DEVICE_VPN"
	// RuleHighRiskScore is an exported constant used by the risk catalog.
	RuleHighRiskScore RuleID = "HIGH_RISK_SCORE"
)

// Category groups rules; catalog concatenation order is device, network,
// geo, composite and serves as the evaluation fallback order for rules with
// no priority.
type Category string

const (
	// CategoryDevice is an exported constant used by the risk catalog.
	CategoryDevice Category = "device"
	// CategoryNetwork is an exported constant used by the risk catalog.
	CategoryNetwork Category = "network"
	// CategoryGeo is an exported constant used by the risk catalog.
	CategoryGeo Category = "geo"
	// CategoryComposite is an exported constant used by the risk catalog.
	CategoryComposite Category = "composite"
)

// Decision is the consequence a critical rule carries. The zero value marks
// an informational rule.
type Decision string

const (
	// DecisionBlock is an exported constant used by the risk catalog.
	DecisionBlock Decision = "block"
	// DecisionChallenge is an exported constant used by the risk catalog.
	DecisionChallenge Decision = "challenge"
)

// Rule is one member of the closed catalog.
type Rule struct {
	ID          RuleID
	Category    Category
	Evaluate    func(*RuleContext) bool
	ScoreImpact int
	Decision    Decision
	Priority    int
}

// Policy carries the tunable inputs of the catalog: the sanctioned-country
// set and the numeric thresholds. These are policy data, not architecture;
// zero values fall back to the defaults below.
type Policy struct {
	SanctionedCountries     []string
	CriticalReputationBelow float64
	LowReputationBelow      float64
	HighVelocityAt          float64
	HighRiskScoreAt         float64
	BlockReasons            map[RuleID]string
}

// DefaultSanctionedCountries is the default HIGH_RISK_COUNTRY set.
var DefaultSanctionedCountries = []string{"KP", "IR", "SY", "CU"}

// DefaultBlockReasons maps block rules to the reason hint the orchestrator
// records when committing a blocked attempt.
var DefaultBlockReasons = map[RuleID]string{
	RuleTorNetwork:         "tor_exit_detected",
	RuleCriticalReputation: "critical_ip_reputation",
}

func (p Policy) normalized() Policy {
	if p.SanctionedCountries == nil {
		p.SanctionedCountries = DefaultSanctionedCountries
	}
	if p.CriticalReputationBelow == 0 {
		p.CriticalReputationBelow = 10
	}
	if p.LowReputationBelow == 0 {
		p.LowReputationBelow = 30
	}
	if p.HighVelocityAt == 0 {
		p.HighVelocityAt = 70
	}
	if p.HighRiskScoreAt == 0 {
		p.HighRiskScoreAt = 80
	}
	if p.BlockReasons == nil {
		p.BlockReasons = DefaultBlockReasons
	}
	return p
}

func boolSignal(v *bool) bool {
	return v != nil && *v
}

// newRules builds the catalog in its fixed concatenation order.
func newRules(p Policy) []Rule {
	sanctioned := make(map[string]bool, len(p.SanctionedCountries))
	for _, c := range p.SanctionedCountries {
		sanctioned[c] = true
	}

	return []Rule{
		// ---- device ----
		{
			ID:       RuleUnknownDevice,
			Category: CategoryDevice,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Device.DeviceType == DeviceUnknown
			},
			ScoreImpact: 10,
		},
		{
			ID:       RuleIoTDevice,
			Category: CategoryDevice,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Device.DeviceType == DeviceIoT
			},
			ScoreImpact: 15,
		},
		{
			ID:       RuleMissingOS,
			Category: CategoryDevice,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Device.OS == ""
			},
			ScoreImpact: 5,
		},
		{
			ID:       RuleMissingBrowser,
			Category: CategoryDevice,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Device.Browser == ""
			},
			ScoreImpact: 5,
		},

		// ---- network ----
		{
			ID:       RuleTorNetwork,
			Category: CategoryNetwork,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Signals != nil && boolSignal(ctx.Signals.IsTor)
			},
			ScoreImpact: 50,
			Decision:    DecisionBlock,
			Priority:    100,
		},
		{
			ID:       RuleVPNDetected,
			Category: CategoryNetwork,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Signals != nil && boolSignal(ctx.Signals.IsVPN)
			},
			ScoreImpact: 15,
		},
		{
			ID:       RuleProxyDetected,
			Category: CategoryNetwork,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Signals != nil && boolSignal(ctx.Signals.IsProxy)
			},
			ScoreImpact: 10,
		},
		{
			ID:       RuleCriticalReputation,
			Category: CategoryNetwork,
			Evaluate: func(ctx *RuleContext) bool {
				if ctx.Signals == nil || !finiteScore(ctx.Signals.ReputationScore) {
					return false
				}
				return *ctx.Signals.ReputationScore < p.CriticalReputationBelow
			},
			ScoreImpact: 40,
			Decision:    DecisionBlock,
			Priority:    90,
		},
		{
			ID:       RuleLowReputation,
			Category: CategoryNetwork,
			Evaluate: func(ctx *RuleContext) bool {
				if ctx.Signals == nil || !finiteScore(ctx.Signals.ReputationScore) {
					return false
				}
				score := *ctx.Signals.ReputationScore
				return score >= p.CriticalReputationBelow && score < p.LowReputationBelow
			},
			ScoreImpact: 10,
		},
		{
			ID:       RuleHighVelocity,
			Category: CategoryNetwork,
			Evaluate: func(ctx *RuleContext) bool {
				if ctx.Signals == nil || !finiteScore(ctx.Signals.VelocityScore) {
					return false
				}
				return *ctx.Signals.VelocityScore >= p.HighVelocityAt
			},
			ScoreImpact: 20,
		},

		// ---- geo ----
		{
			ID:       RuleHighRiskCountry,
			Category: CategoryGeo,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Geo != nil && sanctioned[ctx.Geo.Country]
			},
			ScoreImpact: 25,
			Decision:    DecisionChallenge,
		},
		{
			ID:       RuleGeoMismatch,
			Category: CategoryGeo,
			Evaluate: func(ctx *RuleContext) bool {
				if ctx.Geo == nil || ctx.PreviousGeo == nil {
					return false
				}
				if ctx.Geo.Country == "" || ctx.PreviousGeo.Country == "" {
					return false
				}
				return ctx.Geo.Country != ctx.PreviousGeo.Country
			},
			ScoreImpact: 20,
			Decision:    DecisionChallenge,
		},

		// ---- composite ----
		{
			ID:       RuleIoTTor,
			Category: CategoryComposite,
			Evaluate: func(ctx *RuleContext) bool {
				return ctx.Device.DeviceType == DeviceIoT &&
					ctx.Signals != nil && boolSignal(ctx.Signals.IsTor)
			},
			ScoreImpact: 30,
			Decision:    DecisionBlock,
			Priority:    95,
		},
		{
			ID:       RuleNewDeviceVPN,
			Category: CategoryComposite,
			Evaluate: func(ctx *RuleContext) bool {
				if ctx.Signals == nil || !boolSignal(ctx.Signals.IsVPN) {
					return false
				}
				// Missing metadata is treated as a new device.
				return ctx.Metadata.IsNewDevice == nil || *ctx.Metadata.IsNewDevice
			},
			ScoreImpact: 20,
			Decision:    DecisionChallenge,
		},
		{
			ID:       RuleHighRiskScore,
			Category: CategoryComposite,
			Evaluate: func(ctx *RuleContext) bool {
				if !finiteScore(ctx.Metadata.RiskScore) {
					return false
				}
				return *ctx.Metadata.RiskScore >= p.HighRiskScoreAt
			},
			ScoreImpact: 25,
			Decision:    DecisionChallenge,
		},
	}
}
