package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types, one per orchestration outcome tag.
const (
	EventLoginSuccess    = "login_success"
	EventMFAChallenge    = "mfa_challenge"
	EventPolicyViolation = "policy_violation"
	EventLoginFailure    = "login_failure"
)

// Event is the canonical audit record for one login attempt outcome.
type Event struct {
	EventID       string            `json:"event_id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	EventType     string            `json:"event_type"`
	Operation     string            `json:"operation,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	SessionID     string            `json:"session_id,omitempty"`
	ChallengeID   string            `json:"challenge_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	DeviceID      string            `json:"device_id,omitempty"`
	DeviceType    string            `json:"device_type,omitempty"`
	Country       string            `json:"country,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	RiskScore     float64           `json:"risk_score"`
	Reason        string            `json:"reason,omitempty"`
	PolicyID      string            `json:"policy_id,omitempty"`
	ErrorCode     string            `json:"error_code,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
