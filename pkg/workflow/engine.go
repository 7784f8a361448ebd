package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/metrics"
	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

// PolicyStore is the slice of the policy repository the engine needs.
type PolicyStore interface {
	GetByID(ec *authctx.ExecutionContext, policyID uuid.UUID) (*models.Policy, error)
	GetByIDAnyStatus(ec *authctx.ExecutionContext, policyID uuid.UUID) (*models.Policy, error)
	ListAll(ec *authctx.ExecutionContext) ([]models.Policy, error)
	SetStatus(ec *authctx.ExecutionContext, policyID uuid.UUID, status models.PolicyStatus) error
}

// RuleIndex is the denormalized lookup table the engine rebuilds after a
// successful publish.
type RuleIndex interface {
	SaveRules(ec *authctx.ExecutionContext, policy *models.Policy) error
	DeleteRules(ec *authctx.ExecutionContext, policyID, tenantID uuid.UUID) error
}

// Blacklist answers the IP-gate question.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, tenantID uuid.UUID, ip string) bool
}

// Engine runs one policy event through the workflow: IP gate, content
// validation, simulated enforcement publish, rule-index rebuild. There
// is no retry inside the engine; any error propagates to the consumer,
// which owns redelivery and the DLQ.
type Engine struct {
	store     PolicyStore
	index     RuleIndex
	blacklist Blacklist
	publisher Publisher
	log       *zap.Logger
	tracer    trace.Tracer

	publishTimeout time.Duration
}

func NewEngine(
	store PolicyStore,
	index RuleIndex,
	blacklist Blacklist,
	publisher Publisher,
	log *zap.Logger,
	tracer trace.Tracer,
	publishTimeout time.Duration,
) *Engine {
	return &Engine{
		store:          store,
		index:          index,
		blacklist:      blacklist,
		publisher:      publisher,
		log:            log,
		tracer:         tracer,
		publishTimeout: publishTimeout,
	}
}

// ProcessEvent handles one envelope. A nil return means the event is
// consumed, which includes the intentional blacklist skip. Any error
// means the message must be treated as undelivered.
func (e *Engine) ProcessEvent(ctx context.Context, env *types.EventEnvelope) error {
	timer := prometheus.NewTimer(metrics.PolicyEventDuration.WithLabelValues(string(env.EventType)))
	defer timer.ObserveDuration()

	ec, err := authctx.FromEnvelope(env)
	if err != nil {
		return err
	}
	policyID, err := uuid.Parse(env.PolicyID)
	if err != nil {
		return apperr.Validation("invalid policyId in event envelope")
	}

	log := e.log.With(
		zap.String("policy_id", env.PolicyID),
		zap.String("tenant_id", env.TenantID),
		zap.String("event_type", string(env.EventType)),
		zap.String("correlation_id", ec.CorrelationID),
	)

	outcome, err := e.run(ctx, ec, policyID, env.EventType, log)
	metrics.PolicyEventsProcessedTotal.WithLabelValues(string(env.EventType), outcome).Inc()
	return err
}

func (e *Engine) run(ctx context.Context, ec *authctx.ExecutionContext, policyID uuid.UUID, eventType types.EventType, log *zap.Logger) (string, error) {
	// IP gate. Delete events have no content to inspect.
	if eventType != types.EventDelete {
		blocked, err := e.ipGate(ctx, ec, policyID)
		if err != nil {
			return "error", err
		}
		if blocked {
			// Intentional skip: the event is consumed, the policy keeps
			// its current status and no alarm is raised.
			log.Info("policy event skipped by IP blacklist gate")
			metrics.BlacklistHitsTotal.WithLabelValues(string(eventType)).Inc()
			return "blocked", nil
		}
	}

	if err := e.validate(ctx, ec, policyID, eventType); err != nil {
		if apperr.IsValidation(err) {
			log.Warn("policy validation failed", zap.Error(err))
			return "validation_failed", err
		}
		return "error", err
	}

	if err := e.publish(ctx, ec, policyID, eventType, log); err != nil {
		metrics.PublishFailuresTotal.WithLabelValues(string(eventType)).Inc()
		return "publish_failed", err
	}

	if err := e.updateIndex(ctx, ec, policyID, eventType); err != nil {
		return "error", err
	}

	log.Info("policy event processed")
	return "done", nil
}

func (e *Engine) ipGate(ctx context.Context, ec *authctx.ExecutionContext, policyID uuid.UUID) (bool, error) {
	_, span := e.tracer.Start(ctx, "ip-gate")
	defer span.End()

	policy, err := e.store.GetByID(ec, policyID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	for _, rule := range policy.Rules {
		if rule.Source.IP == "" {
			continue
		}
		if e.blacklist.IsBlacklisted(ctx, ec.TenantID, rule.Source.IP) {
			span.AddEvent("blacklisted source ip")
			return true, nil
		}
	}
	return false, nil
}

// fetch loads the policy for a workflow stage. Delete events follow the
// API's soft delete, so for them the deleted record is the expected
// state, not an error.
func (e *Engine) fetch(ec *authctx.ExecutionContext, policyID uuid.UUID, eventType types.EventType) (*models.Policy, error) {
	if eventType == types.EventDelete {
		return e.store.GetByIDAnyStatus(ec, policyID)
	}
	return e.store.GetByID(ec, policyID)
}

func (e *Engine) validate(ctx context.Context, ec *authctx.ExecutionContext, policyID uuid.UUID, eventType types.EventType) error {
	_, span := e.tracer.Start(ctx, "validate")
	defer span.End()

	// GetByID already rejects deleted policies, which is the whole of
	// update terminal-state validation. A delete event arrives after the
	// API's soft delete, so its record is fetched regardless of status.
	policy, err := e.fetch(ec, policyID, eventType)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if eventType == types.EventDelete {
		return nil
	}

	existing, err := e.store.ListAll(ec)
	if err != nil {
		span.RecordError(err)
		return err
	}
	result := ValidatePolicy(policy, existing)
	if !result.IsValid {
		err := apperr.Validation(strings.Join(result.Issues, "; "))
		span.SetStatus(codes.Error, "validation failed")
		return err
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, ec *authctx.ExecutionContext, policyID uuid.UUID, eventType types.EventType, log *zap.Logger) error {
	pubCtx, span := e.tracer.Start(ctx, "publish")
	defer span.End()

	policy, err := e.fetch(ec, policyID, eventType)
	if err != nil {
		span.RecordError(err)
		return err
	}

	next := nextStatus(policy.Status, eventType)

	pubCtx, cancel := context.WithTimeout(pubCtx, e.publishTimeout)
	defer cancel()
	if err := e.publisher.Publish(pubCtx, policy, eventType); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		// A failed initial publish must leave the policy visibly
		// unpublished; update/delete failures are reported without a
		// status revert.
		if eventType == types.EventCreate {
			if revertErr := e.store.SetStatus(ec, policyID, models.StatusDraft); revertErr != nil {
				log.Error("failed to revert policy to draft after publish failure", zap.Error(revertErr))
			}
		}
		return fmt.Errorf("publish policy %s: %w", policyID, err)
	}

	if next != policy.Status {
		if err := e.store.SetStatus(ec, policyID, next); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

func (e *Engine) updateIndex(ctx context.Context, ec *authctx.ExecutionContext, policyID uuid.UUID, eventType types.EventType) error {
	_, span := e.tracer.Start(ctx, "index")
	defer span.End()

	if eventType == types.EventDelete {
		if err := e.index.DeleteRules(ec, policyID, ec.TenantID); err != nil {
			span.RecordError(err)
			return err
		}
		return nil
	}

	policy, err := e.store.GetByID(ec, policyID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := e.index.SaveRules(ec, policy); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// nextStatus computes the lifecycle transition for one event. Create
// always publishes, update publishes only a draft, delete is terminal.
func nextStatus(current models.PolicyStatus, eventType types.EventType) models.PolicyStatus {
	switch eventType {
	case types.EventCreate:
		return models.StatusPublished
	case types.EventUpdate:
		if current == models.StatusDraft {
			return models.StatusPublished
		}
		return current
	case types.EventDelete:
		return models.StatusDeleted
	}
	return current
}
