package goLoginRisk

import (
	"errors"
	"time"

	"github.com/CrypticVoid/goLoginRisk/risk"
)

// ConcurrencyMode defines a public type used by goLoginRisk APIs.
//
// ConcurrencyMode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ConcurrencyMode string

const (
	// ModeCancelPrevious is an exported constant or variable used by the login risk engine.
	ModeCancelPrevious ConcurrencyMode = "cancel_previous"
	// ModeIgnore is an exported constant or variable used by the login risk engine.
	ModeIgnore ConcurrencyMode = "ignore"
	// ModeSerialize is an exported constant or variable used by the login risk engine.
	ModeSerialize ConcurrencyMode = "serialize"
)

// Config defines a public type used by goLoginRisk APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Orchestrator OrchestratorConfig
	Risk         RiskConfig
	Session      SessionConfig
	Audit        AuditConfig
	Metrics      MetricsConfig

	// DevChecks enables the development-only mutation guard on context
	// builder extensions. Keep it off in production paths.
	DevChecks bool
}

/*
====================================
ORCHESTRATOR CONFIG
====================================
*/

// OrchestratorConfig defines a public type used by goLoginRisk APIs.
//
// OrchestratorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OrchestratorConfig struct {
	Mode ConcurrencyMode
	// AttemptTimeout caps a whole login attempt. Per-call timeouts below
	// nest inside it.
	AttemptTimeout  time.Duration
	ExchangeTimeout time.Duration
	ConfirmTimeout  time.Duration
}

/*
====================================
RISK CONFIG
====================================
*/

// RiskConfig defines a public type used by goLoginRisk APIs.
//
// RiskConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RiskConfig struct {
	SanctionedCountries     []string
	CriticalReputationBelow float64
	LowReputationBelow      float64
	HighVelocityAt          float64
	HighRiskScoreAt         float64
	BlockReasons            map[risk.RuleID]string
	DefaultBlockReason      string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goLoginRisk APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// FallbackLifetime covers opaque access tokens with no readable expiry.
	FallbackLifetime time.Duration
	TokenLeeway      time.Duration
	SnapshotPrefix   string
	RestoreOnStart   bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goLoginRisk APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goLoginRisk APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Orchestrator: OrchestratorConfig{
			Mode:            ModeCancelPrevious,
			AttemptTimeout:  30 * time.Second,
			ExchangeTimeout: 10 * time.Second,
			ConfirmTimeout:  5 * time.Second,
		},
		Risk: RiskConfig{
			DefaultBlockReason: "security_policy",
		},
		Session: SessionConfig{
			FallbackLifetime: time.Hour,
			SnapshotPrefix:   "loginrisk",
			RestoreOnStart:   true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg

	if cfg.Risk.SanctionedCountries != nil {
		out.Risk.SanctionedCountries = append([]string(nil), cfg.Risk.SanctionedCountries...)
	}
	if cfg.Risk.BlockReasons != nil {
		out.Risk.BlockReasons = make(map[risk.RuleID]string, len(cfg.Risk.BlockReasons))
		for id, reason := range cfg.Risk.BlockReasons {
			out.Risk.BlockReasons[id] = reason
		}
	}

	return out
}

// Validate checks config consistency before the engine is built.
func (c *Config) Validate() error {
	switch c.Orchestrator.Mode {
	case ModeCancelPrevious, ModeIgnore, ModeSerialize:
	default:
		return errors.New("unknown concurrency mode")
	}
	if c.Orchestrator.AttemptTimeout < 0 ||
		c.Orchestrator.ExchangeTimeout < 0 ||
		c.Orchestrator.ConfirmTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Orchestrator.AttemptTimeout > 0 {
		if c.Orchestrator.ExchangeTimeout > c.Orchestrator.AttemptTimeout {
			return errors.New("exchange timeout exceeds attempt timeout")
		}
		if c.Orchestrator.ConfirmTimeout > c.Orchestrator.AttemptTimeout {
			return errors.New("confirm timeout exceeds attempt timeout")
		}
	}
	if c.Risk.LowReputationBelow < 0 || c.Risk.LowReputationBelow > 100 ||
		c.Risk.CriticalReputationBelow < 0 || c.Risk.CriticalReputationBelow > 100 {
		return errors.New("reputation thresholds must be within [0,100]")
	}
	if c.Risk.CriticalReputationBelow > c.Risk.LowReputationBelow && c.Risk.LowReputationBelow != 0 {
		return errors.New("critical reputation threshold exceeds low reputation threshold")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	if c.Session.FallbackLifetime < 0 || c.Session.TokenLeeway < 0 {
		return errors.New("session lifetimes must not be negative")
	}
	return nil
}

func (c *Config) riskPolicy() risk.Policy {
	var reasons map[risk.RuleID]string
	if len(c.Risk.BlockReasons) > 0 {
		reasons = make(map[risk.RuleID]string, len(c.Risk.BlockReasons))
		for id, reason := range c.Risk.BlockReasons {
			reasons[id] = reason
		}
	}
	return risk.Policy{
		SanctionedCountries:     append([]string(nil), c.Risk.SanctionedCountries...),
		CriticalReputationBelow: c.Risk.CriticalReputationBelow,
		LowReputationBelow:      c.Risk.LowReputationBelow,
		HighVelocityAt:          c.Risk.HighVelocityAt,
		HighRiskScoreAt:         c.Risk.HighRiskScoreAt,
		BlockReasons:            reasons,
	}
}
