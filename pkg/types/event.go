package types

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// EventEnvelope is the message contract carried through Kafka for every
// policy mutation. All fields except CorrelationID are required.
type EventEnvelope struct {
	EventType     EventType `json:"eventType"`
	PolicyID      string    `json:"policyId"`
	TenantID      string    `json:"tenantId"`
	Timestamp     time.Time `json:"timestamp"`
	TriggeredBy   string    `json:"triggeredBy"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// Validate rejects malformed envelopes. The consumer fails loudly on a
// bad envelope instead of silently dropping it.
func (e *EventEnvelope) Validate() error {
	switch e.EventType {
	case EventCreate, EventUpdate, EventDelete:
	default:
		return fmt.Errorf("invalid eventType %q", e.EventType)
	}
	if e.PolicyID == "" {
		return fmt.Errorf("missing policyId")
	}
	if e.TenantID == "" {
		return fmt.Errorf("missing tenantId")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if e.TriggeredBy == "" {
		return fmt.Errorf("missing triggeredBy")
	}
	return nil
}
