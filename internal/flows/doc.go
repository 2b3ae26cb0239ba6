// Package flows contains the login orchestration pipeline as a dependency-
// injected function. The host package wires ports, store commits, metrics,
// and audit into a LoginDeps value; the flow itself owns only the step
// sequencing, the timeout layering, and the fail-closed commit invariant.
package flows
