package risk

import "sort"

// Catalog holds the fixed rule set for one policy, plus lookup indexes.
// Catalog instances are intended to be configured during initialization and
// then treated as immutable.
type Catalog struct {
	policy Policy
	rules  []Rule
	byID   map[RuleID]int
}

// NewCatalog builds the closed rule catalog for the given policy. Zero-value
// policy fields fall back to the package defaults.
func NewCatalog(p Policy) *Catalog {
	p = p.normalized()
	rules := newRules(p)
	byID := make(map[RuleID]int, len(rules))
	for i, r := range rules {
		byID[r.ID] = i
	}
	return &Catalog{
		policy: p,
		rules:  rules,
		byID:   byID,
	}
}

// Len returns the catalog cardinality.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Definition looks up one rule by id.
func (c *Catalog) Definition(id RuleID) (Rule, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// BlockReason returns the configured reason hint for a block rule, or ""
// when the rule carries no hint.
func (c *Catalog) BlockReason(id RuleID) string {
	return c.policy.BlockReasons[id]
}

// Evaluate runs the catalog against ctx and returns the triggered rule ids.
//
// Critical rules (those carrying a decision) are evaluated first in
// descending priority order. The instant a triggered critical rule's
// decision is block, evaluation stops: no further critical or informational
// rule runs, and none beyond the triggering rule appears in the result. A
// confirmed hard-block signal makes further risk computation moot and must
// not leak additional, possibly contradictory, lower-priority signals to the
// caller. Without a block, every informational rule is then evaluated in
// catalog order.
func (c *Catalog) Evaluate(ctx *RuleContext) []RuleID {
	critical := make([]Rule, 0, len(c.rules))
	informational := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if r.Decision != "" {
			critical = append(critical, r)
		} else {
			informational = append(informational, r)
		}
	}
	sort.SliceStable(critical, func(i, j int) bool {
		return critical[i].Priority > critical[j].Priority
	})

	triggered := []RuleID{}
	for _, r := range critical {
		if !r.Evaluate(ctx) {
			continue
		}
		triggered = append(triggered, r.ID)
		if r.Decision == DecisionBlock {
			return triggered
		}
	}
	for _, r := range informational {
		if r.Evaluate(ctx) {
			triggered = append(triggered, r.ID)
		}
	}
	return triggered
}

// WithDecisionImpact filters ids down to the rules carrying a decision.
// Unknown ids are dropped.
func (c *Catalog) WithDecisionImpact(ids []RuleID) []RuleID {
	out := []RuleID{}
	for _, id := range ids {
		if r, ok := c.Definition(id); ok && r.Decision != "" {
			out = append(out, id)
		}
	}
	return out
}

// MaxPriority returns the highest priority among ids, or 0 for an empty or
// all-informational set.
func (c *Catalog) MaxPriority(ids []RuleID) int {
	max := 0
	for _, id := range ids {
		if r, ok := c.Definition(id); ok && r.Priority > max {
			max = r.Priority
		}
	}
	return max
}

// SortByPriority returns a new slice of ids sorted by priority descending.
// The sort is stable and the input is never mutated; unknown ids sort as
// priority 0.
func (c *Catalog) SortByPriority(ids []RuleID) []RuleID {
	out := make([]RuleID, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		return c.priorityOf(out[i]) > c.priorityOf(out[j])
	})
	return out
}

func (c *Catalog) priorityOf(id RuleID) int {
	r, ok := c.Definition(id)
	if !ok {
		return 0
	}
	return r.Priority
}

// ReduceActions reduces the matched rule set to a single decision. Block
// wins over challenge whenever both are present, independent of relative
// priority; with only one decision kind present that kind is returned; with
// none the zero Decision is returned.
func (c *Catalog) ReduceActions(ids []RuleID) Decision {
	withDecision := c.WithDecisionImpact(ids)
	if len(withDecision) == 0 {
		return ""
	}

	sorted := c.SortByPriority(withDecision)
	result := Decision("")
	for _, id := range sorted {
		r, _ := c.Definition(id)
		if r.Decision == DecisionBlock {
			return DecisionBlock
		}
		if result == "" {
			result = r.Decision
		}
	}
	return result
}
