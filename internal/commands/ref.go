package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"mtrack/internal/service"
)

// ErrRefRequired indicates a required positional reference was missing.
var ErrRefRequired = errors.New("reference required")

// ParseID parses a positive numeric id. kind names the entity in errors.
func ParseID(kind, s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%s id required", kind)
	}
	if !isAllDigits(s) {
		return 0, fmt.Errorf("invalid %s id: %s", kind, s)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s id: %s", kind, s)
	}
	return id, nil
}

// ParseAssignments parses "Field=Value" arguments into raw form input.
// Only the first '=' separates name and value, so values may contain '='.
// An empty value is allowed and clears the field.
func ParseAssignments(args []string) (map[string]string, error) {
	raw := make(map[string]string, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment: %s (want Field=Value)", a)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid assignment: %s (empty field name)", a)
		}
		if _, dup := raw[name]; dup {
			return nil, fmt.Errorf("field assigned twice: %s", name)
		}
		raw[name] = value
	}
	return raw, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ResolveCategory resolves a category reference to an id. A reference made
// of digits is an id and costs no request; anything else is matched against
// category names case-insensitively and must match exactly one.
func ResolveCategory(ctx context.Context, svc service.Service, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, ErrRefRequired
	}
	if isAllDigits(ref) {
		return ParseID("category", ref)
	}

	cats, err := svc.ListCategories(ctx)
	if err != nil {
		return 0, err
	}
	var found []service.Category
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return 0, &service.ValidationError{Field: "category", Reason: "not found: " + ref}
	case 1:
		return found[0].ID, nil
	}
	return 0, &service.ValidationError{Field: "category", Reason: "ambiguous name: " + ref}
}

// FindField resolves a field reference (id or exact name) among fields.
func FindField(fields []service.Field, ref string) (service.Field, error) {
	if ref == "" {
		return service.Field{}, ErrRefRequired
	}
	if isAllDigits(ref) {
		id, err := ParseID("field", ref)
		if err != nil {
			return service.Field{}, err
		}
		for _, f := range fields {
			if f.ID == id {
				return f, nil
			}
		}
	}
	for _, f := range fields {
		if f.Name == ref {
			return f, nil
		}
	}
	return service.Field{}, &service.ValidationError{Field: "field", Reason: "not found: " + ref}
}
