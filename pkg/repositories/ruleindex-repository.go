package repositories

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
)

// batchSize caps one batch insert against the index table.
const batchSize = 25

// RuleIndexRepository owns the denormalized rule lookup table. The
// workflow engine is the only writer; API consumers only read.
type RuleIndexRepository struct {
	db *gorm.DB
}

func NewRuleIndexRepository(db *gorm.DB) *RuleIndexRepository {
	return &RuleIndexRepository{db: db}
}

// SaveRules rebuilds the index entries for a policy. Stale entries whose
// composite key no longer exists are removed first (policy_id acts as the
// secondary index), then the current rules are upserted in batches.
// Batches are issued sequentially; a mid-call failure leaves earlier
// batches committed, which is acceptable under idempotent overwrite
// semantics.
func (r *RuleIndexRepository) SaveRules(ec *authctx.ExecutionContext, policy *models.Policy) error {
	if err := ec.CheckTenant(policy.TenantID); err != nil {
		return err
	}

	entries := make([]models.RuleIndexEntry, 0, len(policy.Rules))
	for _, rule := range policy.Rules {
		entry, err := indexEntryFor(policy, rule, ec.ActorID)
		if err != nil {
			return apperr.Internal(err)
		}
		entries = append(entries, entry)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("policy_id = ? AND tenant_id = ?", policy.ID, policy.TenantID).
			Delete(&models.RuleIndexEntry{}).Error; err != nil {
			return apperr.Internal(err)
		}
		if len(entries) == 0 {
			return nil
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "source"}, {Name: "destination"}, {Name: "rule_id"},
			},
			UpdateAll: true,
		}).CreateInBatches(entries, batchSize).Error
		if err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}

// DeleteRules removes every index entry belonging to a policy.
func (r *RuleIndexRepository) DeleteRules(ec *authctx.ExecutionContext, policyID, tenantID uuid.UUID) error {
	if err := ec.CheckTenant(tenantID); err != nil {
		return err
	}
	err := r.db.
		Where("policy_id = ? AND tenant_id = ?", policyID, tenantID).
		Delete(&models.RuleIndexEntry{}).Error
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Query returns a tenant's index entries, optionally filtered by source
// user and/or destination domain (AND semantics when both are given).
func (r *RuleIndexRepository) Query(tenantID uuid.UUID, user, domain string) ([]models.RuleIndexEntry, error) {
	q := r.db.Where("tenant_id = ?", tenantID)
	if user != "" {
		q = q.Where("source = ?", user)
	}
	if domain != "" {
		q = q.Where("destination = ?", domain)
	}
	var entries []models.RuleIndexEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}

func (r *RuleIndexRepository) QueryByUser(tenantID uuid.UUID, user string) ([]models.RuleIndexEntry, error) {
	return r.Query(tenantID, user, "")
}

func (r *RuleIndexRepository) QueryByDomain(tenantID uuid.UUID, domain string) ([]models.RuleIndexEntry, error) {
	return r.Query(tenantID, "", domain)
}

func (r *RuleIndexRepository) QueryAll(tenantID uuid.UUID) ([]models.RuleIndexEntry, error) {
	return r.Query(tenantID, "", "")
}

func indexEntryFor(policy *models.Policy, rule models.PolicyRule, actor string) (models.RuleIndexEntry, error) {
	entry := models.RuleIndexEntry{
		TenantID:    policy.TenantID,
		Source:      rule.Source.Identifier(),
		Destination: rule.Destination.Domains,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Action:      rule.Action,
		PolicyID:    policy.ID,
		PolicyName:  policy.Name,
		UpdatedBy:   actor,
	}
	if rule.Time != nil {
		raw, err := json.Marshal(rule.Time)
		if err != nil {
			return entry, err
		}
		entry.Time = datatypes.JSON(raw)
	}
	raw, err := json.Marshal(rule.Track)
	if err != nil {
		return entry, err
	}
	entry.Track = datatypes.JSON(raw)
	return entry, nil
}
