package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PolicyStatus string

const (
	StatusDraft     PolicyStatus = "draft"
	StatusPublished PolicyStatus = "published"
	StatusDeleted   PolicyStatus = "deleted"
)

type RuleAction string

const (
	ActionAllow RuleAction = "allow"
	ActionBlock RuleAction = "block"
)

// Policy is the authoritative record for one tenant-scoped access
// policy. Rules live in a jsonb column; the denormalized RuleIndexEntry
// table is rebuilt from them by the workflow engine.
type Policy struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"policyId"`
	TenantID    uuid.UUID    `gorm:"type:uuid;not null;index:idx_policies_tenant_created,priority:1" json:"tenantId"`
	Name        string       `gorm:"size:100;not null" json:"name"`
	Description string       `gorm:"size:500" json:"description"`
	Enabled     bool         `gorm:"default:true" json:"enabled"`
	Status      PolicyStatus `gorm:"size:20;not null;index" json:"status"`
	Rules       []PolicyRule `gorm:"serializer:json;type:jsonb" json:"rules"`
	Created     time.Time    `gorm:"autoCreateTime;index:idx_policies_tenant_created,priority:2,sort:desc" json:"created"`
	Updated     time.Time    `gorm:"autoUpdateTime" json:"updated"`
	CreatedBy   string       `gorm:"size:100" json:"createdBy"`
	UpdatedBy   string       `gorm:"size:100" json:"updatedBy"`
}

// PolicyRule is one access-control rule embedded in a policy. Exactly
// one of Source.User or Source.IP is populated.
type PolicyRule struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Source      RuleSource      `json:"source"`
	Destination RuleDestination `json:"destination"`
	Time        *TimeWindow     `json:"time,omitempty"`
	Action      RuleAction      `json:"action"`
	Track       RuleTrack       `json:"track"`
}

type RuleSource struct {
	User string `json:"user,omitempty"`
	IP   string `json:"ip,omitempty"`
}

// Identifier returns the source key used by the rule index: the user if
// set, else the IP. "unknown" is a defensive sentinel for rules that
// slipped past validation with neither populated.
func (s RuleSource) Identifier() string {
	if s.User != "" {
		return s.User
	}
	if s.IP != "" {
		return s.IP
	}
	return "unknown"
}

type RuleDestination struct {
	Domains string `json:"domains"`
}

// TimeWindow restricts when a rule applies. NotBetween is an excluded
// HH:MM range; the rule applies outside it on the listed weekdays
// (3-letter abbreviations, Monday first).
type TimeWindow struct {
	NotBetween []string `json:"not_between,omitempty"`
	Days       []string `json:"days,omitempty"`
}

type RuleTrack struct {
	Log     bool   `json:"log"`
	Comment string `json:"comment,omitempty"`
}

// NameEquals reports whether two policy names collide under the
// case-insensitive tenant-wide uniqueness rule.
func NameEquals(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
