// Package service defines the backend-agnostic interface for tracker operations.
package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldType is the closed set of field kinds a category can declare.
type FieldType string

const (
	FieldText    FieldType = "Text"
	FieldNotes   FieldType = "Notes"
	FieldNumber  FieldType = "Number"
	FieldDate    FieldType = "Date"
	FieldBoolean FieldType = "Boolean"
	FieldSelect  FieldType = "Select"
)

// FieldTypes lists every supported type in display order.
var FieldTypes = []FieldType{FieldText, FieldNotes, FieldNumber, FieldDate, FieldBoolean, FieldSelect}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNotes, FieldNumber, FieldDate, FieldBoolean, FieldSelect:
		return true
	}
	return false
}

// ParseFieldType resolves a type name case-insensitively ("select" -> Select).
func ParseFieldType(s string) (FieldType, error) {
	for _, t := range FieldTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown field type: %s", s)
}

// DefaultDescription is what the backend stores when a category has no description.
const DefaultDescription = "No description."

// MaxDescriptionLen is the backend column width for category descriptions.
const MaxDescriptionLen = 200

// Category is a named schema container owning fields and items.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// EntityID implements record.Entity.
func (c Category) EntityID() int64 { return c.ID }

// Values returns the searchable values of a category (its name).
func (c Category) Values() []string { return []string{c.Name} }

// Lookup returns the named attribute of a category.
func (c Category) Lookup(key string) (string, bool) {
	switch key {
	case "name":
		return c.Name, true
	case "description":
		return c.Description, true
	}
	return "", false
}

// Field is a typed column definition scoped to a category.
type Field struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id,omitempty"`
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Options    []string  `json:"options,omitempty"`
}

// EntityID implements record.Entity.
func (f Field) EntityID() int64 { return f.ID }

// FieldInput is the payload for creating or updating a field.
type FieldInput struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Options []string  `json:"options,omitempty"`
}

// Item is a record belonging to one category. Data keys are field names.
type Item struct {
	ID         int64          `json:"id"`
	CategoryID int64          `json:"category_id,omitempty"`
	Data       map[string]any `json:"data"`
	CreatedAt  *Timestamp     `json:"created_at,omitempty"`
}

// EntityID implements record.Entity.
func (i Item) EntityID() int64 { return i.ID }

// Values returns every data value stringified, in no particular order.
func (i Item) Values() []string {
	out := make([]string, 0, len(i.Data))
	for _, v := range i.Data {
		out = append(out, Stringify(v))
	}
	return out
}

// Lookup returns the stringified data value stored under key.
func (i Item) Lookup(key string) (string, bool) {
	v, ok := i.Data[key]
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

// Stringify renders a data value the way it is displayed and searched.
// Numbers lose trailing zeros, nil becomes the empty string.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// Timestamp is a backend datetime. The backend may omit the zone offset, in
// which case UTC is assumed.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts RFC 3339 as well as zone-less ISO datetimes.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON writes RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time.Format(time.RFC3339Nano) + `"`), nil
}

// Credentials are the username/password pair used by login and signup.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is the account returned by signup.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
