// Package risk implements the security evaluation half of the login core:
// signal sanity validation, per-attempt context building with an ordered
// extension chain, and a fixed, priority-ordered rule catalog with
// block-triggered short-circuit evaluation.
//
// Rule evaluation is deterministic: critical rules (those carrying a
// decision) run first in descending priority order, informational rules run
// afterwards in catalog order, and a triggered block stops everything on the
// spot. Signal values that fail the finite/range checks are treated as
// absent by every predicate, independent of what ValidateSignals reported.
//
//	Docs: docs/risk.md
package risk
