package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// FieldValue holds one extracted field: either a single string or an ordered
// list of strings, depending on the rule's Multiple flag.
//
// Design decision: We use one type with a Multiple discriminator instead of
// map[string]any because:
//  1. The JSON shape stays under our control (string vs array, nothing else)
//  2. Exporters can flatten without type switches
//  3. Equality is well-defined, which the idempotence guarantee needs
type FieldValue struct {
	// Value is the extracted string when Multiple is false.
	Value string

	// Values are the extracted strings, in document order, when Multiple
	// is true.
	Values []string

	// Multiple mirrors the rule that produced this value.
	Multiple bool
}

// SingleValue wraps one string as a single-valued field.
func SingleValue(s string) FieldValue {
	return FieldValue{Value: s}
}

// MultiValue wraps a string list as a multi-valued field.
// The slice is used as-is; callers hand over ownership.
func MultiValue(ss []string) FieldValue {
	return FieldValue{Values: ss, Multiple: true}
}

// First returns the single value, or the first of the multiple values, or
// an empty string when the field holds nothing.
func (v FieldValue) First() string {
	if v.Multiple {
		if len(v.Values) == 0 {
			return ""
		}
		return v.Values[0]
	}
	return v.Value
}

// Flatten renders the field as one string for tabular output: single values
// as-is, multiple values joined with "; ".
func (v FieldValue) Flatten() string {
	if v.Multiple {
		return strings.Join(v.Values, "; ")
	}
	return v.Value
}

// Len returns how many values the field holds.
func (v FieldValue) Len() int {
	if v.Multiple {
		return len(v.Values)
	}
	if v.Value == "" {
		return 0
	}
	return 1
}

// Equal reports whether two field values hold the same content.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Multiple != o.Multiple {
		return false
	}
	if v.Multiple {
		return slices.Equal(v.Values, o.Values)
	}
	return v.Value == o.Value
}

// MarshalJSON renders single values as JSON strings and multiple values as
// JSON arrays, so exported records read naturally.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.Multiple {
		if v.Values == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.Values)
	}
	return json.Marshal(v.Value)
}

// UnmarshalJSON accepts either a JSON string or a JSON string array,
// matching MarshalJSON. Needed when replaying records from the history
// store.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("field value array: %w", err)
		}
		*v = MultiValue(values)
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("field value: %w", err)
	}
	*v = SingleValue(value)
	return nil
}

// Record is the structured extraction result for one Target. It is produced
// once per successfully extracted document and never mutated afterwards.
// Fields a rule could not produce (no match, failed transform) are simply
// absent from the map.
type Record struct {
	// SourceURL is the URL of the document the record was extracted from.
	SourceURL string `json:"source_url"`

	// Type is the scrape type of the target that produced the record.
	Type ScrapeType `json:"scrape_type"`

	// ContentHash is the hash of the source document, copied from the
	// Document so history consumers can detect content changes without
	// keeping document bodies around.
	ContentHash string `json:"content_hash,omitempty"`

	// Fields maps rule field names to their extracted values.
	Fields map[string]FieldValue `json:"fields"`
}

// Field returns the named field and whether it was extracted.
func (r *Record) Field(name string) (FieldValue, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// FieldNames returns the record's field names in sorted order.
// Sorting makes output deterministic; extraction itself does not order the
// map.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Equal reports whether two records hold identical content. Used to verify
// extraction is a pure function of its inputs.
func (r *Record) Equal(o *Record) bool {
	if r.SourceURL != o.SourceURL || r.Type != o.Type || len(r.Fields) != len(o.Fields) {
		return false
	}
	for name, v := range r.Fields {
		ov, ok := o.Fields[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
