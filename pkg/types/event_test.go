package types

import (
	"testing"
	"time"
)

func validEnvelope() EventEnvelope {
	return EventEnvelope{
		EventType:     EventCreate,
		PolicyID:      "6b8c1c9a-8f2a-4a3e-9d58-0a1b2c3d4e5f",
		TenantID:      "1f2e3d4c-5b6a-7980-aabb-ccddeeff0011",
		Timestamp:     time.Now().UTC(),
		TriggeredBy:   "alice",
		CorrelationID: "corr-1",
	}
}

func TestEnvelopeValidateAccepts(t *testing.T) {
	env := validEnvelope()
	if err := env.Validate(); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}

	// CorrelationID is the only optional field.
	env.CorrelationID = ""
	if err := env.Validate(); err != nil {
		t.Fatalf("correlationId must be optional, got %v", err)
	}
}

func TestEnvelopeValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EventEnvelope)
	}{
		{"bad event type", func(e *EventEnvelope) { e.EventType = "publish" }},
		{"empty event type", func(e *EventEnvelope) { e.EventType = "" }},
		{"missing policy id", func(e *EventEnvelope) { e.PolicyID = "" }},
		{"missing tenant id", func(e *EventEnvelope) { e.TenantID = "" }},
		{"missing timestamp", func(e *EventEnvelope) { e.Timestamp = time.Time{} }},
		{"missing triggered by", func(e *EventEnvelope) { e.TriggeredBy = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope()
			tt.mutate(&env)
			if err := env.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
