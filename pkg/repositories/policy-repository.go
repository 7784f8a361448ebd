package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
)

// PolicyRepository is the tenant-partitioned store for policies. Every
// method scopes its query by the caller's tenant; raw gorm errors never
// leave this layer.
type PolicyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// PolicyDraft is the caller-supplied part of a new policy.
type PolicyDraft struct {
	Name        string
	Description string
	Enabled     bool
	Rules       []models.PolicyRule
}

// PolicyPatch carries the fields an update may change. Nil pointers are
// left untouched; Created/CreatedBy are never writable.
type PolicyPatch struct {
	Name        *string
	Description *string
	Enabled     *bool
	Rules       []models.PolicyRule
}

// ListOptions filter the list endpoint.
type ListOptions struct {
	Status string
	Limit  int
	Offset int
}

// Create assigns a fresh id and audit fields and inserts the policy in
// draft status. An id collision surfaces as ConflictError.
func (r *PolicyRepository) Create(ec *authctx.ExecutionContext, draft PolicyDraft) (*models.Policy, error) {
	now := time.Now().UTC()
	policy := &models.Policy{
		ID:          uuid.New(),
		TenantID:    ec.TenantID,
		Name:        draft.Name,
		Description: draft.Description,
		Enabled:     draft.Enabled,
		Status:      models.StatusDraft,
		Rules:       draft.Rules,
		Created:     now,
		Updated:     now,
		CreatedBy:   ec.ActorID,
		UpdatedBy:   ec.ActorID,
	}
	if err := r.db.Create(policy).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("policy id already exists")
		}
		return nil, apperr.Internal(err)
	}
	return policy, nil
}

// GetByID returns the policy, or NotFound when it is absent, deleted or
// belongs to another tenant.
func (r *PolicyRepository) GetByID(ec *authctx.ExecutionContext, policyID uuid.UUID) (*models.Policy, error) {
	var policy models.Policy
	err := r.db.
		Where("id = ? AND tenant_id = ? AND status <> ?", policyID, ec.TenantID, models.StatusDeleted).
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("policy not found")
		}
		return nil, apperr.Internal(err)
	}
	if err := ec.CheckTenant(policy.TenantID); err != nil {
		return nil, err
	}
	return &policy, nil
}

// GetByIDAnyStatus returns the policy regardless of lifecycle status.
// The delete workflow runs after the API's soft delete, so the deleted
// record is its expected input there.
func (r *PolicyRepository) GetByIDAnyStatus(ec *authctx.ExecutionContext, policyID uuid.UUID) (*models.Policy, error) {
	var policy models.Policy
	err := r.db.
		Where("id = ? AND tenant_id = ?", policyID, ec.TenantID).
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("policy not found")
		}
		return nil, apperr.Internal(err)
	}
	if err := ec.CheckTenant(policy.TenantID); err != nil {
		return nil, err
	}
	return &policy, nil
}

// ListByTenant returns the tenant's non-deleted policies, newest first.
func (r *PolicyRepository) ListByTenant(ec *authctx.ExecutionContext, opts ListOptions) ([]models.Policy, error) {
	q := r.db.
		Where("tenant_id = ? AND status <> ?", ec.TenantID, models.StatusDeleted).
		Order("created DESC")
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var policies []models.Policy
	if err := q.Find(&policies).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return policies, nil
}

// ListAll returns every non-deleted policy for the tenant. Used by the
// workflow engine's tenant-wide name-uniqueness scan.
func (r *PolicyRepository) ListAll(ec *authctx.ExecutionContext) ([]models.Policy, error) {
	return r.ListByTenant(ec, ListOptions{})
}

// Update merges the patch onto the existing policy. The write is
// conditional on the record still existing for this tenant and not being
// deleted, so a concurrent delete surfaces as NotFound rather than a
// lost update.
func (r *PolicyRepository) Update(ec *authctx.ExecutionContext, policyID uuid.UUID, patch PolicyPatch) (*models.Policy, error) {
	fields := map[string]interface{}{
		"updated":    time.Now().UTC(),
		"updated_by": ec.ActorID,
	}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Enabled != nil {
		fields["enabled"] = *patch.Enabled
	}
	if patch.Rules != nil {
		serialized := models.Policy{Rules: patch.Rules}
		fields["rules"] = serialized.Rules
	}

	res := r.db.Model(&models.Policy{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", policyID, ec.TenantID, models.StatusDeleted).
		Updates(fields)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("policy not found")
	}
	return r.GetByID(ec, policyID)
}

// SoftDelete transitions the policy to deleted. Deleting an already
// deleted policy fails with NotFound; the conditional write guards
// against re-deleting.
func (r *PolicyRepository) SoftDelete(ec *authctx.ExecutionContext, policyID uuid.UUID) error {
	res := r.db.Model(&models.Policy{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", policyID, ec.TenantID, models.StatusDeleted).
		Updates(map[string]interface{}{
			"status":     models.StatusDeleted,
			"updated":    time.Now().UTC(),
			"updated_by": ec.ActorID,
		})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("policy not found")
	}
	return nil
}

// SetStatus moves the lifecycle forward on behalf of the workflow
// engine. No business validation happens here.
func (r *PolicyRepository) SetStatus(ec *authctx.ExecutionContext, policyID uuid.UUID, status models.PolicyStatus) error {
	res := r.db.Model(&models.Policy{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", policyID, ec.TenantID, models.StatusDeleted).
		Updates(map[string]interface{}{
			"status":     status,
			"updated":    time.Now().UTC(),
			"updated_by": ec.ActorID,
		})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("policy not found")
	}
	return nil
}
