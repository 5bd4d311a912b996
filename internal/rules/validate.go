package rules

import (
	"fmt"
	"strings"
)

// ValidationError describes why a rule cannot be saved.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that r can be persisted. The rule id is not checked; the
// store assigns it.
func Validate(r Rule) error {
	hasPattern := false
	for _, p := range r.Pattern {
		if strings.TrimSpace(p) != "" {
			hasPattern = true
			break
		}
	}
	if !hasPattern {
		return &ValidationError{Field: "pattern", Message: "add at least one URL pattern"}
	}
	if strings.TrimSpace(r.GroupName) == "" {
		return &ValidationError{Field: "groupName", Message: "group name is required"}
	}
	if r.GroupColor != "" && !r.GroupColor.Valid() {
		return &ValidationError{Field: "groupColor", Message: fmt.Sprintf("unknown color %q", r.GroupColor)}
	}
	return nil
}
