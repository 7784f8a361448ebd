package services

import (
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/repositories"
)

// RuleIndexService serves the denormalized rule lookup table. Read-only:
// the worker owns all writes.
type RuleIndexService struct {
	repo *repositories.RuleIndexRepository
}

func NewRuleIndexService(db *gorm.DB) *RuleIndexService {
	return &RuleIndexService{repo: repositories.NewRuleIndexRepository(db)}
}

// LookupRules filters by source user and/or destination domain; both
// filters combine with AND semantics.
func (s *RuleIndexService) LookupRules(ec *authctx.ExecutionContext, user, domain string) ([]models.RuleIndexEntry, error) {
	return s.repo.Query(ec.TenantID, user, domain)
}
