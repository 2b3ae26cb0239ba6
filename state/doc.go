// Package state holds the tagged session/authentication aggregate for one
// client. Every mutation, without exception, is re-derived through a fixed
// invariant pass before the new state becomes observable, so no caller can
// ever see "authenticated" with no session, tokens without a confirmed
// identity, or a blocked security posture with a live session.
//
// The aggregate persists as a versioned snapshot; a snapshot that fails
// structural or semantic validation on load is discarded wholesale in favor
// of the initial state. Partial trust of a corrupted snapshot is never
// attempted.
//
//	Docs: docs/state.md
package state
