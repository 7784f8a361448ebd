package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) CreateTenant(tenant *models.Tenant) error {
	if err := r.db.Create(tenant).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (r *TenantRepository) GetTenantByID(id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.Preload("APIKeys").First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("tenant not found")
		}
		return nil, apperr.Internal(err)
	}
	return &tenant, nil
}

func (r *TenantRepository) CreateAPIKey(apiKey *models.APIKey) error {
	if err := r.db.Create(apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("API key already exists")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (r *TenantRepository) GetAPIKeyByHash(hash string) (*models.APIKey, error) {
	var apiKey models.APIKey
	if err := r.db.First(&apiKey, "hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid API key")
		}
		return nil, apperr.Internal(err)
	}
	return &apiKey, nil
}
