package authctx

import (
	"github.com/google/uuid"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

// ExecutionContext carries the identity of one invocation: the tenant it
// acts for, the actor behind it and a correlation id for tracing. Worker
// invocations additionally carry the parsed event envelope.
type ExecutionContext struct {
	TenantID      uuid.UUID
	ActorID       string
	ActorName     string
	Groups        []string
	CorrelationID string
	Envelope      *types.EventEnvelope
}

// FromEnvelope builds the context a worker runs under from a validated
// event envelope.
func FromEnvelope(env *types.EventEnvelope) (*ExecutionContext, error) {
	tenantID, err := uuid.Parse(env.TenantID)
	if err != nil {
		return nil, apperr.Validation("invalid tenantId in event envelope")
	}
	correlationID := env.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &ExecutionContext{
		TenantID:      tenantID,
		ActorID:       env.TriggeredBy,
		ActorName:     env.TriggeredBy,
		CorrelationID: correlationID,
		Envelope:      env,
	}, nil
}

// CheckTenant compares a record's tenant against the context's tenant.
// A mismatch is reported as NotFound so callers cannot distinguish
// "exists for another tenant" from "does not exist".
func (c *ExecutionContext) CheckTenant(recordTenant uuid.UUID) error {
	if recordTenant != c.TenantID {
		return apperr.NotFound("record not found")
	}
	return nil
}
