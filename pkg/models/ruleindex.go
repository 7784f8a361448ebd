package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RuleIndexEntry is one denormalized row per policy rule, keyed for fast
// lookup by (tenant, source, destination). Written exclusively by the
// workflow engine and rebuilt on every create/update; read-only to API
// consumers.
type RuleIndexEntry struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_rule_key,priority:1;index:idx_rule_user,priority:1;index:idx_rule_domain,priority:1" json:"tenantId"`
	Source      string         `gorm:"size:200;not null;uniqueIndex:idx_rule_key,priority:2;index:idx_rule_user,priority:2" json:"source"`
	Destination string         `gorm:"size:200;not null;uniqueIndex:idx_rule_key,priority:3;index:idx_rule_domain,priority:2" json:"destination"`
	RuleID      string         `gorm:"size:100;not null;uniqueIndex:idx_rule_key,priority:4" json:"ruleId"`
	RuleName    string         `gorm:"size:100" json:"ruleName"`
	Action      RuleAction     `gorm:"size:10;not null" json:"action"`
	Time        datatypes.JSON `gorm:"type:jsonb" json:"time,omitempty"`
	Track       datatypes.JSON `gorm:"type:jsonb" json:"track,omitempty"`
	PolicyID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"policyId"`
	PolicyName  string         `gorm:"size:100" json:"policyName"`
	Created     time.Time      `gorm:"autoCreateTime" json:"created"`
	Updated     time.Time      `gorm:"autoUpdateTime" json:"updated"`
	UpdatedBy   string         `gorm:"size:100" json:"updatedBy"`
}
