package risk

import "context"

// Assessment is the outcome of one security evaluation pass.
type Assessment struct {
	// Decision is the reduced rule decision; the zero value means allow.
	Decision Decision
	// Score is the clamped total risk score (base score plus triggered rule
	// impacts).
	Score float64
	// RuleIDs are the triggered rules, in evaluation order.
	RuleIDs []RuleID
	// Violations are the signal validation findings; each flagged field was
	// removed from the views before rule evaluation.
	Violations []Violation
	// BlockReason is the pipeline's reason hint when Decision is block; may
	// be empty, in which case the orchestrator applies its configured
	// default.
	BlockReason string
	// BlockRuleID is the rule whose decision forced the block; empty unless
	// Decision is block.
	BlockRuleID RuleID
	// Context is the durable assessment record for audit.
	Context AssessmentContext
}

// RiskLevel buckets a score for the security sub-state.
func RiskLevel(score float64) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 30:
		return "medium"
	default:
		return "low"
	}
}

// Pipeline composes the signal validator, context builders, base scoring,
// and the rule catalog into one cancellable evaluation pass.
type Pipeline struct {
	catalog    *Catalog
	extensions []Extension
}

// NewPipeline builds a pipeline over the given policy with an optional
// ordered extension chain.
func NewPipeline(p Policy, exts ...Extension) *Pipeline {
	return &Pipeline{
		catalog:    NewCatalog(p),
		extensions: exts,
	}
}

// Catalog exposes the pipeline's rule catalog.
func (p *Pipeline) Catalog() *Catalog {
	return p.catalog
}

// Assess runs the full evaluation pass for one attempt. Malformed signal
// fields are removed (never a hard failure); the rule decision and total
// score are derived from the sanitized views. Assess observes ctx and fails
// fast on cancellation.
func (p *Pipeline) Assess(ctx context.Context, device DeviceInfo, rc *Context) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	if rc == nil {
		rc = &Context{}
	}

	violations := ValidateSignals(rc.Signals)
	sanitized := *rc
	sanitized.Signals = sanitizeSignals(rc.Signals, violations)

	scoringCtx := BuildScoringContext(device, &sanitized, p.extensions)
	base := BaseScore(scoringCtx)

	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	ruleCtx := BuildRuleContext(device, &sanitized, base, p.extensions)
	triggered := p.catalog.Evaluate(&ruleCtx)

	total := base
	for _, id := range triggered {
		if r, ok := p.catalog.Definition(id); ok {
			total += float64(r.ScoreImpact)
		}
	}
	total = clampScore(total)

	decision := p.catalog.ReduceActions(triggered)
	reason := ""
	var blockRule RuleID
	if decision == DecisionBlock {
		for _, id := range triggered {
			if r, ok := p.catalog.Definition(id); ok && r.Decision == DecisionBlock {
				reason = p.catalog.BlockReason(id)
				blockRule = id
				break
			}
		}
	}

	return Assessment{
		Decision:    decision,
		Score:       total,
		RuleIDs:     triggered,
		Violations:  violations,
		BlockReason: reason,
		BlockRuleID: blockRule,
		Context:     BuildAssessmentContext(device, &sanitized, p.extensions),
	}, nil
}

// sanitizeSignals returns a copy of the bundle with every flagged field
// removed. The input is never mutated; with no violations the original
// reference is reused.
func sanitizeSignals(s *Signals, violations []Violation) *Signals {
	if s == nil || len(violations) == 0 {
		return s
	}

	out := *s
	for _, v := range violations {
		field, _ := v.Meta["field"].(string)
		switch field {
		case "reputationScore":
			out.ReputationScore = nil
		case "velocityScore":
			out.VelocityScore = nil
		case "previousGeo":
			out.PreviousGeo = nil
		}
	}
	return &out
}
