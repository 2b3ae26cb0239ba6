package audit

import (
	"errors"
	"fmt"
	"time"
)

// ErrContractViolation marks an outcome the orchestrator should never have
// produced. It is raised instead of an audit event: a login success without
// a session id means the orchestrator itself is broken, and silently
// emitting a malformed audit record would hide that.
var ErrContractViolation = errors.New("audit contract violation")

// OutcomeTag is the closed set of orchestration outcome tags.
type OutcomeTag string

const (
	// OutcomeSuccess is an exported constant used by the audit mapper.
	OutcomeSuccess OutcomeTag = "success"
	// OutcomeMFARequired is an exported constant used by the audit mapper.
	OutcomeMFARequired OutcomeTag = "mfa_required"
	// OutcomeBlocked is an exported constant used by the audit mapper.
	OutcomeBlocked OutcomeTag = "blocked"
	// OutcomeError is an exported constant used by the audit mapper.
	OutcomeError OutcomeTag = "error"
)

// Outcome is the mapper-local view of an orchestration result.
type Outcome struct {
	Tag         OutcomeTag
	UserID      string
	SessionID   string
	ChallengeID string
	BlockReason string
	PolicyID    string
	ErrorKind   string
}

// Context carries the caller-supplied fields copied verbatim onto every
// mapped event regardless of outcome tag.
type Context struct {
	EventID       string
	CorrelationID string
	Timestamp     time.Time
	Operation     string
	IP            string
	DeviceID      string
	DeviceType    string
	Country       string
	UserAgent     string
	RiskScore     float64
	Metadata      map[string]string
}

// MapOutcome turns one orchestration outcome into its canonical audit
// event. It is pure and total over the four known tags; a tag outside them
// is an exhaustiveness violation and a hard error, never a silent drop.
func MapOutcome(o Outcome, mc Context) (Event, error) {
	event := Event{
		EventID:       mc.EventID,
		CorrelationID: mc.CorrelationID,
		Timestamp:     mc.Timestamp,
		Operation:     mc.Operation,
		UserID:        o.UserID,
		IP:            mc.IP,
		DeviceID:      mc.DeviceID,
		DeviceType:    mc.DeviceType,
		Country:       mc.Country,
		UserAgent:     mc.UserAgent,
		RiskScore:     mc.RiskScore,
		Metadata:      mc.Metadata,
	}

	switch o.Tag {
	case OutcomeSuccess:
		if o.SessionID == "" {
			return Event{}, fmt.Errorf("%w: login success without session id", ErrContractViolation)
		}
		event.EventType = EventLoginSuccess
		event.SessionID = o.SessionID
	case OutcomeMFARequired:
		if o.UserID == "" {
			return Event{}, fmt.Errorf("%w: mfa challenge without user id", ErrContractViolation)
		}
		event.EventType = EventMFAChallenge
		event.ChallengeID = o.ChallengeID
	case OutcomeBlocked:
		event.EventType = EventPolicyViolation
		event.Reason = o.BlockReason
		event.PolicyID = o.PolicyID
	case OutcomeError:
		event.EventType = EventLoginFailure
		event.ErrorCode = o.ErrorKind
	default:
		return Event{}, fmt.Errorf("%w: unknown outcome tag %q", ErrContractViolation, o.Tag)
	}

	return event, nil
}
