// Package goLoginRisk is the decision-making core of a client-side login
// flow. For each login attempt it decides whether to allow, challenge, or
// block the attempt based on device, network, and geo risk signals,
// orchestrates the multi-step exchange that follows that decision, and
// guarantees that the locally held session/authentication state can never
// observably enter an inconsistent combination.
//
// The package is built around three pieces:
//
//   - the risk rule engine ([github.com/CrypticVoid/goLoginRisk/risk]),
//     a priority-ordered catalog with block short-circuit semantics,
//   - the login orchestrator ([Engine.Login]), a cancellable pipeline with
//     selectable concurrency disciplines and a fail-closed commit invariant,
//   - the auth state store ([github.com/CrypticVoid/goLoginRisk/state]),
//     which re-derives a consistent aggregate after every mutation and
//     validates its persisted snapshot on restore.
//
// Transport, request validation, identifier hashing, and error mapping are
// ports supplied by the caller; the engine is transport-agnostic.
//
//	Docs: docs/engine.md, docs/risk.md, docs/state.md
package goLoginRisk
