package workflow

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
)

// ValidationResult aggregates every violation found in one pass so a
// single workflow run reports all problems at once instead of failing on
// the first.
type ValidationResult struct {
	IsValid bool
	Issues  []string
}

var validDays = map[string]bool{
	"Mon": true, "Tue": true, "Wed": true, "Thu": true,
	"Fri": true, "Sat": true, "Sun": true,
}

// ValidatePolicy runs the content checks for create/update events.
// existing is the tenant's full policy list, used for the
// case-insensitive name-uniqueness rule; the policy under validation is
// excluded by id so renaming a policy to its own name is not a conflict.
func ValidatePolicy(policy *models.Policy, existing []models.Policy) ValidationResult {
	var issues []string

	if policy.Name == "" {
		issues = append(issues, "Policy name is required")
	} else if utf8.RuneCountInString(policy.Name) > 100 {
		issues = append(issues, "Policy name must be at most 100 characters")
	}
	if policy.Description == "" {
		issues = append(issues, "Policy description is required")
	} else if utf8.RuneCountInString(policy.Description) > 500 {
		issues = append(issues, "Policy description must be at most 500 characters")
	}

	if len(policy.Rules) == 0 {
		issues = append(issues, "Policy must contain at least one rule")
	} else if len(policy.Rules) > 10 {
		issues = append(issues, "Policy must contain at most 10 rules")
	}

	for i, rule := range policy.Rules {
		issues = append(issues, validateRule(i, rule)...)
	}

	for _, other := range existing {
		if other.ID == policy.ID {
			continue
		}
		if other.Status == models.StatusDeleted {
			continue
		}
		if models.NameEquals(other.Name, policy.Name) {
			issues = append(issues, fmt.Sprintf("Policy name %q is already in use", policy.Name))
			break
		}
	}

	return ValidationResult{IsValid: len(issues) == 0, Issues: issues}
}

func validateRule(i int, rule models.PolicyRule) []string {
	var issues []string
	prefix := fmt.Sprintf("Rule %d", i+1)

	if rule.ID == "" {
		issues = append(issues, fmt.Sprintf("%s: rule id is required", prefix))
	}
	if rule.Name == "" {
		issues = append(issues, fmt.Sprintf("%s: rule name is required", prefix))
	}
	if rule.Action != models.ActionAllow && rule.Action != models.ActionBlock {
		issues = append(issues, fmt.Sprintf("%s: action must be allow or block", prefix))
	}

	hasUser := rule.Source.User != ""
	hasIP := rule.Source.IP != ""
	if hasUser == hasIP {
		issues = append(issues, fmt.Sprintf("%s: source must specify exactly one of user or ip", prefix))
	}

	if rule.Destination.Domains == "" {
		issues = append(issues, fmt.Sprintf("%s: destination domain is required", prefix))
	}

	if rule.Time != nil {
		issues = append(issues, validateTimeWindow(prefix, rule.Time)...)
	}
	return issues
}

func validateTimeWindow(prefix string, tw *models.TimeWindow) []string {
	var issues []string

	if len(tw.NotBetween) > 0 {
		if len(tw.NotBetween) != 2 {
			issues = append(issues, fmt.Sprintf("%s: not_between must hold exactly two times", prefix))
		}
		for _, v := range tw.NotBetween {
			if _, err := time.Parse("15:04", v); err != nil {
				issues = append(issues, fmt.Sprintf("%s: invalid time %q, expected HH:MM", prefix, v))
			}
		}
	}
	for _, day := range tw.Days {
		if !validDays[day] {
			issues = append(issues, fmt.Sprintf("%s: invalid day %q", prefix, day))
		}
	}
	return issues
}
