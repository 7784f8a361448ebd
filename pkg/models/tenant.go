package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"tenantId"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated"`

	APIKeys []APIKey `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// APIKey maps an opaque key hash to a tenant and actor. The API's auth
// middleware resolves incoming X-API-Key headers against this table
// (redis-cached) to build the ExecutionContext.
type APIKey struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenantId"`
	Hash      string         `gorm:"not null;uniqueIndex" json:"-"`
	ActorID   string         `gorm:"size:100;not null" json:"actorId"`
	ActorName string         `gorm:"size:100" json:"actorName"`
	Groups    pq.StringArray `gorm:"type:text[]" json:"groups"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created"`

	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
}
