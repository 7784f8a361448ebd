package authctx

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

func TestCheckTenantMismatchIsNotFound(t *testing.T) {
	ec := &ExecutionContext{TenantID: uuid.New()}
	err := ec.CheckTenant(uuid.New())
	if !apperr.IsNotFound(err) {
		t.Fatalf("cross-tenant access must be NotFound, got %v", err)
	}
	if err := ec.CheckTenant(ec.TenantID); err != nil {
		t.Fatalf("same tenant must pass, got %v", err)
	}
}

func TestFromEnvelope(t *testing.T) {
	tenant := uuid.New()
	env := &types.EventEnvelope{
		EventType:     types.EventUpdate,
		PolicyID:      uuid.NewString(),
		TenantID:      tenant.String(),
		Timestamp:     time.Now().UTC(),
		TriggeredBy:   "alice",
		CorrelationID: "corr-42",
	}
	ec, err := FromEnvelope(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ec.TenantID != tenant {
		t.Fatalf("tenant id mismatch: %s", ec.TenantID)
	}
	if ec.ActorID != "alice" || ec.CorrelationID != "corr-42" {
		t.Fatalf("actor/correlation not carried: %+v", ec)
	}
	if ec.Envelope != env {
		t.Fatal("envelope not attached to context")
	}
}

func TestFromEnvelopeGeneratesCorrelationID(t *testing.T) {
	env := &types.EventEnvelope{
		EventType:   types.EventCreate,
		PolicyID:    uuid.NewString(),
		TenantID:    uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		TriggeredBy: "alice",
	}
	ec, err := FromEnvelope(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ec.CorrelationID == "" {
		t.Fatal("expected generated correlation id")
	}
}

func TestFromEnvelopeRejectsBadTenant(t *testing.T) {
	env := &types.EventEnvelope{
		EventType:   types.EventCreate,
		PolicyID:    uuid.NewString(),
		TenantID:    "not-a-uuid",
		Timestamp:   time.Now().UTC(),
		TriggeredBy: "alice",
	}
	if _, err := FromEnvelope(env); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
