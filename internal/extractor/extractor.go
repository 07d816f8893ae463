package extractor

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/websift/websift/internal/model"
)

// whitespaceRe collapses runs of whitespace inside extracted text. Markup
// indentation and line breaks are layout, not content.
var whitespaceRe = regexp.MustCompile(`\s+`)

// numberRe matches the leading numeric run of a text value: optional sign,
// digits with optional thousands separators, optional decimal part. It is
// applied with FindString, so currency symbols or labels before the number
// are skipped.
var numberRe = regexp.MustCompile(`[-+]?\d[\d,]*(?:\.\d+)?`)

// Extractor turns documents into records by interpreting selector rules.
// The zero-cost way to share one across workers is to construct it once and
// pass it by pointer; it holds no per-extraction state.
type Extractor struct {
	// logger receives absorbed field-level failures at debug level.
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for absorbed field failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Extract applies the rule set to the document and returns the record.
//
// Per-rule behavior:
//   - Multiple false, zero matches: the field is absent, not an error.
//     Required rules additionally log the miss.
//   - Multiple true: all matches contribute values in document order.
//   - Transform failures (no numeric content, missing attribute) drop only
//     the affected value; the rest of the record survives.
//
// The only error Extract returns is a ParseFailure, when the document body
// is empty or cannot be parsed as markup. The returned record's Type is left
// zero; the caller knows which target produced the document and labels the
// record itself.
func (e *Extractor) Extract(doc *model.Document, rules []model.SelectorRule) (*model.Record, error) {
	root, err := e.parse(doc)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]model.FieldValue, len(rules))
	for _, rule := range rules {
		value, ok, fieldErr := e.extractField(root, rule)
		if fieldErr != nil {
			// Absorbed: the field stays absent, the record survives.
			e.logger.Debug("field extraction failed",
				"url", doc.URL,
				"field", rule.FieldName,
				"error", fieldErr,
			)
			continue
		}
		if !ok {
			continue
		}
		fields[rule.FieldName] = value
	}

	return &model.Record{
		SourceURL:   doc.URL,
		ContentHash: doc.ContentHash,
		Fields:      fields,
	}, nil
}

// Text returns the document's visible text with scripts, styles, and
// whitespace runs removed. Used by keyword matching, which cares about what
// a reader would see rather than the markup.
func (e *Extractor) Text(doc *model.Document) string {
	root, err := e.parse(doc)
	if err != nil {
		return ""
	}
	root.Find("script,noscript,style").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(root.Text(), " "))
}

// parse builds the goquery document, mapping parse problems to ParseFailure.
func (e *Extractor) parse(doc *model.Document) (*goquery.Document, error) {
	if strings.TrimSpace(doc.Body) == "" {
		return nil, newParseFailure(fmt.Errorf("%w: %s", ErrEmptyDocument, doc.URL))
	}
	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Body))
	if err != nil {
		return nil, newParseFailure(err)
	}
	return root, nil
}

// extractField evaluates one rule. The bool reports whether a value was
// produced; the error is a field transform failure for the caller to absorb.
func (e *Extractor) extractField(root *goquery.Document, rule model.SelectorRule) (model.FieldValue, bool, error) {
	sel := root.Find(rule.Path)

	if rule.Multiple {
		values := make([]string, 0, sel.Length())
		var firstErr error
		sel.Each(func(_ int, s *goquery.Selection) {
			v, ok, err := nodeValue(s, rule)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if ok {
				values = append(values, v)
			}
		})
		if len(values) == 0 {
			if firstErr != nil {
				return model.FieldValue{}, false, newFieldFailure(rule.FieldName, firstErr)
			}
			if rule.Required {
				return model.FieldValue{}, false, newFieldFailure(rule.FieldName, ErrRequiredFieldMissing)
			}
			return model.FieldValue{}, false, nil
		}
		return model.MultiValue(values), true, nil
	}

	if sel.Length() == 0 {
		if rule.Required {
			return model.FieldValue{}, false, newFieldFailure(rule.FieldName, ErrRequiredFieldMissing)
		}
		return model.FieldValue{}, false, nil
	}

	v, ok, err := nodeValue(sel.First(), rule)
	if err != nil {
		return model.FieldValue{}, false, newFieldFailure(rule.FieldName, err)
	}
	if !ok {
		if rule.Required {
			return model.FieldValue{}, false, newFieldFailure(rule.FieldName, ErrRequiredFieldMissing)
		}
		return model.FieldValue{}, false, nil
	}
	return model.SingleValue(v), true, nil
}

// nodeValue derives one value from a matched node according to the rule's
// transform. The bool is false when the node contributes nothing (missing
// attribute, empty text, under the MinRunes bound); the error marks a real
// transform failure.
func nodeValue(s *goquery.Selection, rule model.SelectorRule) (string, bool, error) {
	switch rule.EffectiveTransform() {
	case model.TransformAttribute:
		raw, ok := s.Attr(rule.Attribute)
		if !ok {
			return "", false, nil
		}
		return boundValue(strings.TrimSpace(raw), rule)

	case model.TransformNumber:
		text := cleanText(s.Text())
		match := numberRe.FindString(text)
		if match == "" {
			return "", false, fmt.Errorf("%w in %q", ErrNoNumber, clip(text, 40))
		}
		match = strings.ReplaceAll(match, ",", "")
		if _, err := strconv.ParseFloat(match, 64); err != nil {
			return "", false, fmt.Errorf("parse number %q: %w", match, err)
		}
		return match, true, nil

	default: // model.TransformText
		return boundValue(cleanText(s.Text()), rule)
	}
}

// boundValue applies the rule's rune bounds: values under MinRunes are
// dropped, values over MaxRunes are truncated.
func boundValue(v string, rule model.SelectorRule) (string, bool, error) {
	if v == "" {
		return "", false, nil
	}
	if rule.MinRunes > 0 && utf8.RuneCountInString(v) < rule.MinRunes {
		return "", false, nil
	}
	if rule.MaxRunes > 0 {
		runes := []rune(v)
		if len(runes) > rule.MaxRunes {
			v = string(runes[:rule.MaxRunes])
		}
	}
	return v, true, nil
}

// cleanText trims a node's text and collapses internal whitespace runs.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// clip shortens a string for error messages.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
