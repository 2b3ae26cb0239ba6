package goLoginRisk

import (
	"time"

	"github.com/CrypticVoid/goLoginRisk/state"
)

// PostureReport is a point-in-time summary of the engine's configuration
// posture and current auth state, for operator dashboards and debugging.
type PostureReport struct {
	ConcurrencyMode  ConcurrencyMode
	AttemptTimeout   time.Duration
	DevChecksEnabled bool

	AuditEnabled bool
	AuditDropped uint64

	PersistenceEnabled bool

	AuthStatus     state.AuthStatus
	SessionActive  bool
	SecurityStatus state.SecurityStatus
	RiskLevel      string
	MFAStatus      state.MFAStatus

	RuleCount int
}

// PostureReport summarizes the engine posture. Safe on a nil receiver.
func (e *Engine) PostureReport() PostureReport {
	if e == nil {
		return PostureReport{}
	}

	st := e.store.State()

	return PostureReport{
		ConcurrencyMode:    e.config.Orchestrator.Mode,
		AttemptTimeout:     e.config.Orchestrator.AttemptTimeout,
		DevChecksEnabled:   e.config.DevChecks,
		AuditEnabled:       e.config.Audit.Enabled,
		AuditDropped:       e.dispatcher.Dropped(),
		PersistenceEnabled: e.snapshots != nil,
		AuthStatus:         st.Auth.Status,
		SessionActive:      st.Session != nil && st.Session.Status == state.SessionActive,
		SecurityStatus:     st.Security.Status,
		RiskLevel:          st.Security.RiskLevel,
		MFAStatus:          st.MFA.Status,
		RuleCount:          e.pipeline.Catalog().Len(),
	}
}
