package models

import (
	"time"

	"github.com/google/uuid"
)

// CidrBlockEntry is one blocked network range for a tenant. The set of
// entries per tenant feeds the worker's IP-blacklist gate through a
// TTL cache.
type CidrBlockEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenantId"`
	CIDR      string    `gorm:"size:50;not null" json:"cidr"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created"`
	CreatedBy string    `gorm:"size:100" json:"createdBy"`
}
