package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
)

// CidrRepository stores each tenant's blocked network ranges. It
// implements blacklist.Store for the worker's read-through cache.
type CidrRepository struct {
	db *gorm.DB
}

func NewCidrRepository(db *gorm.DB) *CidrRepository {
	return &CidrRepository{db: db}
}

func (r *CidrRepository) ListCidrs(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	var cidrs []string
	err := r.db.WithContext(ctx).
		Model(&models.CidrBlockEntry{}).
		Where("tenant_id = ?", tenantID).
		Pluck("cidr", &cidrs).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return cidrs, nil
}

func (r *CidrRepository) Add(ctx context.Context, entry *models.CidrBlockEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (r *CidrRepository) List(ctx context.Context, tenantID uuid.UUID) ([]models.CidrBlockEntry, error) {
	var entries []models.CidrBlockEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}
