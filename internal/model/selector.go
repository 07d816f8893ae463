package model

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Transform identifies how a matched node is turned into a field value.
type Transform string

const (
	// TransformText extracts the node's inner text, trimmed of surrounding
	// whitespace. This is the default when a rule names no transform.
	TransformText Transform = "text"

	// TransformAttribute extracts the value of a named attribute.
	// Nodes missing the attribute contribute no value.
	TransformAttribute Transform = "attribute"

	// TransformNumber extracts the leading numeric substring of the node's
	// text (sign, digits, optional decimal part; thousands separators are
	// dropped). Text with no numeric content fails only that field, never
	// the whole record.
	TransformNumber Transform = "number"
)

// IsValid reports whether t is a known transform.
func (t Transform) IsValid() bool {
	switch t {
	case TransformText, TransformAttribute, TransformNumber:
		return true
	}
	return false
}

// SelectorRule is a declarative description of one extracted field:
// where to look (Path), how many matches to take (Multiple), and how to
// turn matched nodes into values (Transform).
//
// Rules are plain data. The extractor interprets them; this package only
// validates them so that malformed rules are rejected when a Target is
// constructed rather than in the middle of a run.
type SelectorRule struct {
	// FieldName keys the extracted value in the record.
	// Must be unique within a Target's rule set.
	FieldName string `json:"field" yaml:"field"`

	// Path is a CSS selector evaluated against the parsed document.
	// Standard selector group syntax is accepted (comma-separated
	// alternatives, descendant combinators, attribute matchers).
	Path string `json:"path" yaml:"path"`

	// Multiple selects all matches in document order when true.
	// When false, only the first match is used.
	Multiple bool `json:"multiple,omitempty" yaml:"multiple,omitempty"`

	// Transform controls value derivation. Empty means TransformText.
	Transform Transform `json:"transform,omitempty" yaml:"transform,omitempty"`

	// Attribute names the attribute to read when Transform is
	// TransformAttribute. Ignored otherwise.
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`

	// Required marks a rule whose absence is worth reporting: a required
	// rule matching zero nodes is surfaced as a field failure instead of
	// being silently absent. The record as a whole still succeeds.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// MinRunes drops extracted values shorter than this many runes.
	// 0 disables the bound. Useful for filtering boilerplate fragments
	// out of broad selectors.
	MinRunes int `json:"min_runes,omitempty" yaml:"min_runes,omitempty"`

	// MaxRunes truncates extracted values to this many runes.
	// 0 disables the bound.
	MaxRunes int `json:"max_runes,omitempty" yaml:"max_runes,omitempty"`
}

// EffectiveTransform returns the rule's transform, defaulting to
// TransformText when none is set.
func (r SelectorRule) EffectiveTransform() Transform {
	if r.Transform == "" {
		return TransformText
	}
	return r.Transform
}

// Validate checks the rule for structural problems and compiles its selector
// path. It returns the first problem found.
//
// Design decision: We compile the CSS selector here, at construction time,
// because a typo in a selector should fail the run before any network I/O
// happens. Compilation results are discarded; the extractor compiles again
// via goquery, which accepts the same selector group grammar.
func (r SelectorRule) Validate() error {
	if strings.TrimSpace(r.FieldName) == "" {
		return ErrEmptyFieldName
	}
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("%w (field %q)", ErrEmptySelector, r.FieldName)
	}
	if _, err := cascadia.Compile(r.Path); err != nil {
		return fmt.Errorf("invalid selector %q for field %q: %w", r.Path, r.FieldName, err)
	}
	if r.Transform != "" && !r.Transform.IsValid() {
		return fmt.Errorf("%w (field %q has %q)", ErrUnknownTransform, r.FieldName, r.Transform)
	}
	if r.EffectiveTransform() == TransformAttribute && strings.TrimSpace(r.Attribute) == "" {
		return fmt.Errorf("%w (field %q)", ErrMissingAttribute, r.FieldName)
	}
	if r.MinRunes < 0 || r.MaxRunes < 0 {
		return fmt.Errorf("%w (field %q)", ErrNegativeRuneBound, r.FieldName)
	}
	return nil
}

// ValidateRules checks every rule in a set and enforces field name
// uniqueness across the set.
func ValidateRules(rules []SelectorRule) error {
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
		if seen[rule.FieldName] {
			return fmt.Errorf("%w: %q", ErrDuplicateField, rule.FieldName)
		}
		seen[rule.FieldName] = true
	}
	return nil
}
