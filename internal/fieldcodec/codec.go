// Package fieldcodec maps each field type to its input widget and to the
// coercion from raw input text to the value stored in an item's data.
package fieldcodec

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"mtrack/internal/service"
)

// DateLayout is the ISO date format used by Date fields.
const DateLayout = "2006-01-02"

// Widget identifies the input control a field is edited with.
type Widget int

const (
	WidgetLine Widget = iota
	WidgetMultiline
	WidgetNumber
	WidgetDate
	WidgetToggle
	WidgetChoice
)

var widgetNames = [...]string{"line", "multiline", "number", "date", "toggle", "choice"}

func (w Widget) String() string {
	if int(w) < len(widgetNames) {
		return widgetNames[w]
	}
	return "widget(" + strconv.Itoa(int(w)) + ")"
}

// Codec is the per-type rule for one field.
type Codec struct {
	Field  service.Field
	Widget Widget
}

// For returns the codec of f. The second result is false for unknown types;
// forms skip such fields.
func For(f service.Field) (Codec, bool) {
	var w Widget
	switch f.Type {
	case service.FieldText:
		w = WidgetLine
	case service.FieldNotes:
		w = WidgetMultiline
	case service.FieldNumber:
		w = WidgetNumber
	case service.FieldDate:
		w = WidgetDate
	case service.FieldBoolean:
		w = WidgetToggle
	case service.FieldSelect:
		w = WidgetChoice
	default:
		return Codec{}, false
	}
	return Codec{Field: f, Widget: w}, true
}

// Options returns the choices of a Select field, nil otherwise.
func (c Codec) Options() []string {
	if c.Widget != WidgetChoice {
		return nil
	}
	return c.Field.Options
}

// Coerce converts raw input to the stored value.
func (c Codec) Coerce(raw string) (any, error) {
	switch c.Widget {
	case WidgetLine, WidgetMultiline:
		return raw, nil
	case WidgetNumber:
		// Stored as received; it only has to look like a number.
		s := strings.TrimSpace(raw)
		if s != "" {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return nil, c.invalid("%q is not a number", raw)
			}
		}
		return s, nil
	case WidgetDate:
		s := strings.TrimSpace(raw)
		if s != "" {
			if _, err := time.Parse(DateLayout, s); err != nil {
				return nil, c.invalid("%q is not a date (YYYY-MM-DD)", raw)
			}
		}
		return s, nil
	case WidgetToggle:
		s := strings.TrimSpace(raw)
		if s == "" {
			return false, nil
		}
		b, err := parseBool(s)
		if err != nil {
			return nil, c.invalid("%q is not a yes/no value", raw)
		}
		return b, nil
	case WidgetChoice:
		if raw == "" {
			return "", nil
		}
		for _, o := range c.Field.Options {
			if o == raw {
				return raw, nil
			}
		}
		return nil, c.invalid("%q is not one of %s", raw, strings.Join(c.Field.Options, ", "))
	}
	return nil, c.invalid("unsupported field type %s", c.Field.Type)
}

// Zero is the value a new item starts with for this field.
func (c Codec) Zero() any {
	if c.Widget == WidgetToggle {
		return false
	}
	return ""
}

// Format renders a stored value for display and editing.
func (c Codec) Format(v any) string {
	if c.Widget == WidgetToggle {
		switch x := v.(type) {
		case bool:
			if x {
				return "yes"
			}
			return "no"
		case string:
			if b, err := parseBool(x); err == nil {
				return c.Format(b)
			}
		}
	}
	return service.Stringify(v)
}

func (c Codec) invalid(format string, args ...any) error {
	return &service.ValidationError{Field: c.Field.Name, Reason: fmt.Sprintf(format, args...)}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// BuildData is the only path that writes item data. It starts from base (the
// current data of the item being edited, nil on create) so keys without a
// field definition survive, coerces every supplied value and, on create,
// fills unset fields with their zero value. Keys in raw must name a field.
func BuildData(fields []service.Field, raw map[string]string, base map[string]any) (map[string]any, error) {
	byName := make(map[string]Codec, len(fields))
	for _, f := range fields {
		if c, ok := For(f); ok {
			byName[f.Name] = c
		}
	}

	for name := range raw {
		if _, ok := byName[name]; !ok {
			return nil, &service.ValidationError{Field: name, Reason: "no such field"}
		}
	}

	creating := base == nil
	data := maps.Clone(base)
	if data == nil {
		data = make(map[string]any, len(byName))
	}
	for _, f := range fields {
		c, ok := byName[f.Name]
		if !ok {
			continue
		}
		s, supplied := raw[f.Name]
		if !supplied {
			if creating {
				data[f.Name] = c.Zero()
			}
			continue
		}
		v, err := c.Coerce(s)
		if err != nil {
			return nil, err
		}
		data[f.Name] = v
	}
	return data, nil
}

// Row renders the cells of item for the given fields in field order. Keys
// without a field definition are not rendered.
func Row(fields []service.Field, item service.Item) []string {
	cells := make([]string, 0, len(fields))
	for _, f := range fields {
		c, ok := For(f)
		if !ok {
			continue
		}
		cells = append(cells, c.Format(item.Data[f.Name]))
	}
	return cells
}

// Columns returns the names of the renderable fields, matching Row.
func Columns(fields []service.Field) []string {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := For(f); ok {
			cols = append(cols, f.Name)
		}
	}
	return cols
}
