package schema

import (
	"fmt"
	"strings"

	"mtrack/internal/service"
)

func invalid(field, reason string) error {
	return &service.ValidationError{Field: field, Reason: reason}
}

func invalidf(field, format string, args ...any) error {
	return invalid(field, fmt.Sprintf(format, args...))
}

// Validate checks candidate against the existing fields of its category and
// returns the normalized input. selfID is the id of the field being edited,
// or 0 for a new field. Options are dropped for non-Select types.
func Validate(existing []service.Field, candidate service.FieldInput, selfID int64) (service.FieldInput, error) {
	out := service.FieldInput{
		Name: strings.TrimSpace(candidate.Name),
		Type: candidate.Type,
	}
	if out.Name == "" {
		return out, invalid("name", "field name is required")
	}
	for _, f := range existing {
		if f.ID != selfID && f.Name == out.Name {
			return out, invalidf("name", "a field named %q already exists", out.Name)
		}
	}
	if !out.Type.Valid() {
		return out, invalidf("type", "unknown field type %q", candidate.Type)
	}
	if out.Type == service.FieldSelect {
		if err := ValidateOptions(candidate.Options); err != nil {
			return out, err
		}
		out.Options = append([]string(nil), candidate.Options...)
	}
	return out, nil
}

// ValidateCategory checks a category name and description before submission.
func ValidateCategory(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "category name is required")
	}
	if n := len([]rune(description)); n > service.MaxDescriptionLen {
		return invalidf("description", "description is %d characters, the limit is %d", n, service.MaxDescriptionLen)
	}
	return nil
}
