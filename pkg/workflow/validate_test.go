package workflow

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
)

func validPolicy() *models.Policy {
	return &models.Policy{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		Name:        "Block FB",
		Description: "Block social media during work hours",
		Status:      models.StatusDraft,
		Rules: []models.PolicyRule{
			{
				ID:          "r1",
				Name:        "block facebook",
				Source:      models.RuleSource{User: "alice"},
				Destination: models.RuleDestination{Domains: "facebook.com"},
				Action:      models.ActionBlock,
				Time: &models.TimeWindow{
					NotBetween: []string{"09:00", "17:00"},
					Days:       []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
				},
				Track: models.RuleTrack{Log: true},
			},
		},
	}
}

func TestValidatePolicyAccepts(t *testing.T) {
	result := ValidatePolicy(validPolicy(), nil)
	if !result.IsValid {
		t.Fatalf("expected valid policy, got issues: %v", result.Issues)
	}
}

func TestValidatePolicyReportsAllIssues(t *testing.T) {
	policy := validPolicy()
	policy.Name = ""
	policy.Description = ""
	policy.Rules[0].ID = ""
	policy.Rules[0].Action = "drop"
	policy.Rules[0].Destination.Domains = ""

	result := ValidatePolicy(policy, nil)
	if result.IsValid {
		t.Fatal("expected invalid policy")
	}
	if len(result.Issues) != 5 {
		t.Fatalf("expected 5 independent issues, got %d: %v", len(result.Issues), result.Issues)
	}
	if !containsIssue(result.Issues, "Policy name is required") {
		t.Fatalf("missing name issue in %v", result.Issues)
	}

	// Validation is idempotent: a second pass over unchanged input yields
	// the identical issue set.
	again := ValidatePolicy(policy, nil)
	if !reflect.DeepEqual(result.Issues, again.Issues) {
		t.Fatalf("expected identical issues, got %v vs %v", result.Issues, again.Issues)
	}
}

func TestValidatePolicyNameLengthCountsRunes(t *testing.T) {
	policy := validPolicy()
	policy.Name = strings.Repeat("ü", 100) // 200 bytes, 100 characters
	result := ValidatePolicy(policy, nil)
	if !result.IsValid {
		t.Fatalf("100-character multibyte name must be accepted, got %v", result.Issues)
	}

	policy.Name = strings.Repeat("ü", 101)
	result = ValidatePolicy(policy, nil)
	if result.IsValid || !containsIssue(result.Issues, "at most 100 characters") {
		t.Fatalf("expected name-length issue at 101 characters, got %v", result.Issues)
	}
}

func TestValidatePolicyRequiresRules(t *testing.T) {
	policy := validPolicy()
	policy.Rules = nil
	result := ValidatePolicy(policy, nil)
	if result.IsValid || !containsIssue(result.Issues, "at least one rule") {
		t.Fatalf("expected missing-rules issue, got %v", result.Issues)
	}
}

func TestValidatePolicySourceExactlyOne(t *testing.T) {
	policy := validPolicy()
	policy.Rules[0].Source = models.RuleSource{User: "alice", IP: "10.0.0.1"}
	result := ValidatePolicy(policy, nil)
	if result.IsValid || !containsIssue(result.Issues, "exactly one of user or ip") {
		t.Fatalf("expected source issue for both set, got %v", result.Issues)
	}

	policy.Rules[0].Source = models.RuleSource{}
	result = ValidatePolicy(policy, nil)
	if result.IsValid || !containsIssue(result.Issues, "exactly one of user or ip") {
		t.Fatalf("expected source issue for neither set, got %v", result.Issues)
	}
}

func TestValidatePolicyTimeWindow(t *testing.T) {
	policy := validPolicy()
	policy.Rules[0].Time = &models.TimeWindow{
		NotBetween: []string{"9am", "17:00"},
		Days:       []string{"Monday"},
	}
	result := ValidatePolicy(policy, nil)
	if result.IsValid {
		t.Fatal("expected invalid time window")
	}
	if !containsIssue(result.Issues, `invalid time "9am"`) {
		t.Fatalf("missing HH:MM issue in %v", result.Issues)
	}
	if !containsIssue(result.Issues, `invalid day "Monday"`) {
		t.Fatalf("missing day issue in %v", result.Issues)
	}
}

func TestValidatePolicyNameUniqueness(t *testing.T) {
	policy := validPolicy()
	other := *validPolicy()
	other.ID = uuid.New()
	other.Name = "block fb" // case-insensitive collision

	result := ValidatePolicy(policy, []models.Policy{other})
	if result.IsValid || !containsIssue(result.Issues, "already in use") {
		t.Fatalf("expected duplicate-name issue, got %v", result.Issues)
	}
}

func TestValidatePolicyNameUniquenessExcludesSelf(t *testing.T) {
	policy := validPolicy()
	// The stored copy of the same policy must not count as a conflict,
	// so renaming a policy to its own name is allowed.
	stored := *policy
	result := ValidatePolicy(policy, []models.Policy{stored})
	if !result.IsValid {
		t.Fatalf("expected self-match to be excluded, got %v", result.Issues)
	}
}

func TestValidatePolicyIgnoresDeletedForUniqueness(t *testing.T) {
	policy := validPolicy()
	other := *validPolicy()
	other.ID = uuid.New()
	other.Status = models.StatusDeleted

	result := ValidatePolicy(policy, []models.Policy{other})
	if !result.IsValid {
		t.Fatalf("expected deleted policies to be excluded from uniqueness, got %v", result.Issues)
	}
}

func containsIssue(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return true
		}
	}
	return false
}
