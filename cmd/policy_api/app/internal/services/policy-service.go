package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/kafka"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/repositories"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

// PolicyService writes mutations to the policy store and emits the
// matching event envelope to Kafka. Event emission is fire and forget:
// the caller observes workflow progress only through the policy's
// status field.
type PolicyService struct {
	repo     *repositories.PolicyRepository
	producer *kafka.Producer
	topic    string
	log      *zap.Logger
}

func NewPolicyService(db *gorm.DB, producer *kafka.Producer, topic string, log *zap.Logger) *PolicyService {
	return &PolicyService{
		repo:     repositories.NewPolicyRepository(db),
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

func (s *PolicyService) CreatePolicy(ctx context.Context, ec *authctx.ExecutionContext, draft repositories.PolicyDraft) (*models.Policy, error) {
	policy, err := s.repo.Create(ec, draft)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, ec, types.EventCreate, policy.ID)
	return policy, nil
}

func (s *PolicyService) GetPolicy(ec *authctx.ExecutionContext, id uuid.UUID) (*models.Policy, error) {
	return s.repo.GetByID(ec, id)
}

func (s *PolicyService) ListPolicies(ec *authctx.ExecutionContext, opts repositories.ListOptions) ([]models.Policy, error) {
	return s.repo.ListByTenant(ec, opts)
}

func (s *PolicyService) UpdatePolicy(ctx context.Context, ec *authctx.ExecutionContext, id uuid.UUID, patch repositories.PolicyPatch) (*models.Policy, error) {
	policy, err := s.repo.Update(ec, id, patch)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, ec, types.EventUpdate, policy.ID)
	return policy, nil
}

func (s *PolicyService) DeletePolicy(ctx context.Context, ec *authctx.ExecutionContext, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ec, id); err != nil {
		return err
	}
	s.emit(ctx, ec, types.EventDelete, id)
	return nil
}

func (s *PolicyService) emit(ctx context.Context, ec *authctx.ExecutionContext, eventType types.EventType, policyID uuid.UUID) {
	env := types.EventEnvelope{
		EventType:     eventType,
		PolicyID:      policyID.String(),
		TenantID:      ec.TenantID.String(),
		Timestamp:     time.Now().UTC(),
		TriggeredBy:   ec.ActorID,
		CorrelationID: ec.CorrelationID,
	}
	value, err := json.Marshal(env)
	if err != nil {
		s.log.Error("failed to marshal event envelope", zap.Error(err))
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(env.PolicyID), value); err != nil {
		// The store write already succeeded; the policy stays in its
		// current status until the event is re-emitted or the policy is
		// mutated again.
		s.log.Error("failed to emit policy event",
			zap.String("policy_id", env.PolicyID),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
