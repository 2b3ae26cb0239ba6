package risk

// Base score weights. These are policy input, not architecture; they shape
// the running score handed to the rule catalog as metadata.riskScore.
const (
	velocityWeight    = 0.3
	reputationWeight  = 0.4
	torScoreImpact    = 30
	vpnScoreImpact    = 15
	proxyScoreImpact  = 10
	maxRiskScore      = 100
	minRiskScore      = 0
)

// BaseScore computes the deterministic signal-derived starting score for an
// attempt. Score fields that fail the finite/range test contribute nothing.
func BaseScore(sc ScoringContext) float64 {
	if sc.Signals == nil {
		return 0
	}

	score := 0.0
	if finiteScore(sc.Signals.VelocityScore) {
		score += *sc.Signals.VelocityScore * velocityWeight
	}
	if finiteScore(sc.Signals.ReputationScore) {
		score += (100 - *sc.Signals.ReputationScore) * reputationWeight
	}
	if boolSignal(sc.Signals.IsTor) {
		score += torScoreImpact
	}
	if boolSignal(sc.Signals.IsVPN) {
		score += vpnScoreImpact
	}
	if boolSignal(sc.Signals.IsProxy) {
		score += proxyScoreImpact
	}

	return clampScore(score)
}

func clampScore(v float64) float64 {
	if v < minRiskScore {
		return minRiskScore
	}
	if v > maxRiskScore {
		return maxRiskScore
	}
	return v
}
