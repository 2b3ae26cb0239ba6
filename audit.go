package goLoginRisk

import (
	"context"

	"github.com/google/uuid"

	"github.com/CrypticVoid/goLoginRisk/internal/audit"
	"github.com/CrypticVoid/goLoginRisk/internal/flows"
)

// NewChannelAuditSink returns a sink backed by a buffered channel, useful
// for tests and in-process consumers.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink returns a sink writing one JSON event per line.
var NewJSONWriterAuditSink = audit.NewJSONWriterSink

// buildAuditEvent maps one settled outcome to its audit event. A mapper
// contract violation propagates as a hard error out of Login.
func (e *Engine) buildAuditEvent(ctx context.Context, req LoginRequest, outcome LoginOutcome) (AuditEvent, error) {
	mapped := audit.Outcome{
		Tag:         audit.OutcomeTag(outcome.Tag),
		UserID:      outcome.UserID,
		SessionID:   outcome.SessionID,
		ChallengeID: outcome.ChallengeID,
		BlockReason: outcome.BlockReason,
		PolicyID:    outcome.PolicyID,
	}
	if outcome.Err != nil {
		mapped.ErrorKind = outcome.Err.Kind
	}

	mc := audit.Context{
		EventID:       uuid.NewString(),
		CorrelationID: req.CorrelationID,
		Timestamp:     e.now(),
		Operation:     flows.OperationFor(req),
		IP:            clientIPFromContext(ctx),
		DeviceID:      req.Device.DeviceID,
		DeviceType:    string(req.Device.DeviceType),
		UserAgent:     req.Device.UserAgent,
		RiskScore:     outcome.RiskScore,
	}
	if mc.CorrelationID == "" {
		mc.CorrelationID = correlationIDFromContext(ctx)
	}
	if mc.UserAgent == "" {
		mc.UserAgent = userAgentFromContext(ctx)
	}
	if req.Risk != nil {
		if req.Risk.IP != "" {
			mc.IP = req.Risk.IP
		}
		if req.Risk.Geo != nil {
			mc.Country = req.Risk.Geo.Country
		}
	}

	return audit.MapOutcome(mapped, mc)
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	e.dispatcher.Emit(ctx, event)
}
