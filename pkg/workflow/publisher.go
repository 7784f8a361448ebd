package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

// Publisher pushes a policy's rules to the external enforcement system.
type Publisher interface {
	Publish(ctx context.Context, policy *models.Policy, eventType types.EventType) error
}

// SimulatedPublisher stands in for the real enforcement integration: a
// fixed delay instead of a network call. A context deadline hit during
// the delay counts as a publish failure.
type SimulatedPublisher struct {
	Delay time.Duration
	Log   *zap.Logger
}

func (p *SimulatedPublisher) Publish(ctx context.Context, policy *models.Policy, eventType types.EventType) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.Delay):
	}
	p.Log.Info("published policy to enforcement system",
		zap.String("policy_id", policy.ID.String()),
		zap.String("tenant_id", policy.TenantID.String()),
		zap.String("event_type", string(eventType)),
	)
	return nil
}
