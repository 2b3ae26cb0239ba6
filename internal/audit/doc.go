// Package audit holds the canonical audit event model, the outcome-to-event
// mapper, the async dispatcher, and the built-in sinks. Delivery is
// fire-and-forget from the orchestrator's point of view; the mapper, in
// contrast, fails loudly when the orchestrator violated its own contract.
package audit
