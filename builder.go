package goLoginRisk

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CrypticVoid/goLoginRisk/internal/audit"
	"github.com/CrypticVoid/goLoginRisk/risk"
	"github.com/CrypticVoid/goLoginRisk/state"
	"github.com/CrypticVoid/goLoginRisk/token"
)

// Builder defines a public type used by goLoginRisk APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	transport  Transport
	validator  Validator
	hasher     IdentifierHasher
	errMapper  ErrorMapper
	snapshots  state.SnapshotStore
	auditSink  AuditSink
	extensions []risk.Extension
	warn       func(string, ...any)
	now        func() time.Time

	built bool
}

// New starts a builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTransport sets the backend transport. It is the only mandatory
// dependency.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithRedis wires snapshot persistence through a Redis client using the
// configured key prefix.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithSnapshotStore wires snapshot persistence through a custom store.
// Takes precedence over WithRedis.
func (b *Builder) WithSnapshotStore(s state.SnapshotStore) *Builder {
	b.snapshots = s
	return b
}

// WithValidator replaces the default login request validator.
func (b *Builder) WithValidator(v Validator) *Builder {
	b.validator = v
	return b
}

// WithIdentifierHasher replaces the default SHA-256 identifier hasher.
func (b *Builder) WithIdentifierHasher(h IdentifierHasher) *Builder {
	b.hasher = h
	return b
}

// WithErrorMapper replaces the default error taxonomy mapper.
func (b *Builder) WithErrorMapper(m ErrorMapper) *Builder {
	b.errMapper = m
	return b
}

// WithAuditSink sets the audit sink and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithExtension appends a context builder extension. Extensions run in
// registration order.
func (b *Builder) WithExtension(ext risk.Extension) *Builder {
	b.extensions = append(b.extensions, ext)
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithWarnLogger replaces the default warn logger.
func (b *Builder) WithWarnLogger(warn func(string, ...any)) *Builder {
	b.warn = warn
	return b
}

// WithClock replaces the engine clock, mainly for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and assembles the engine. With
// RestoreOnStart set, the persisted snapshot is restored through the full
// validation pass; any rejected snapshot falls back to the initial state.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.transport == nil {
		return nil, ErrTransportRequired
	}
	b.built = true

	if b.validator == nil {
		b.validator = defaultValidator{}
	}
	if b.hasher == nil {
		b.hasher = sha256Hasher{}
	}
	if b.errMapper == nil {
		b.errMapper = defaultErrorMapper{}
	}
	if b.warn == nil {
		b.warn = log.Printf
	}
	if b.now == nil {
		b.now = time.Now
	}

	snapshots := b.snapshots
	if snapshots == nil && b.redis != nil {
		snapshots = state.NewRedisSnapshotStore(b.redis, b.config.Session.SnapshotPrefix)
	}

	risk.SetMutationChecks(b.config.DevChecks)

	metrics := NewMetrics(b.config.Metrics)

	store := state.NewStore()
	if snapshots != nil && b.config.Session.RestoreOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		data, err := snapshots.Load(ctx)
		cancel()
		switch {
		case errors.Is(err, state.ErrNoSnapshot):
		case err != nil:
			b.warn("goLoginRisk: snapshot load failed on start")
		default:
			restored, rerr := state.Restore(data)
			if rerr != nil {
				// Any validation failure discards the snapshot wholesale.
				metrics.Inc(MetricSnapshotRejected)
				b.warn("goLoginRisk: persisted snapshot rejected, starting from initial state")
			} else {
				store = state.NewStoreFrom(restored)
				metrics.Inc(MetricSnapshotRestored)
			}
		}
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.auditSink)

	return &Engine{
		config:     b.config,
		store:      store,
		pipeline:   risk.NewPipeline(b.config.riskPolicy(), b.extensions...),
		transport:  b.transport,
		validator:  b.validator,
		hasher:     b.hasher,
		errMapper:  b.errMapper,
		inspector: token.Inspector{
			Leeway:      b.config.Session.TokenLeeway,
			FallbackTTL: b.config.Session.FallbackLifetime,
			Now:         b.now,
		},
		metrics:    metrics,
		dispatcher: dispatcher,
		snapshots:  snapshots,
		gate:       newAttemptGate(b.config.Orchestrator.Mode),
		warn:       b.warn,
		now:        b.now,
	}, nil
}
