// Package radario turns Radario order notifications into canonical orders.
package radario

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/mapping"
)

// DefaultCustomerName is used when no name can be derived at all.
const DefaultCustomerName = "Покупатель билета"

var errNotAnObject = errors.New("payload is not a JSON object")

// Extractor turns Radario notifications into canonical orders through an
// ordered list of field rules.
type Extractor struct {
	now   func() time.Time
	rules []fieldRule
}

// NewExtractor builds an extractor. now stamps refunds that arrive without
// any date; nil means time.Now.
func NewExtractor(now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{now: now, rules: defaultRules()}
}

// Decode parses a raw body into a JSON object, keeping numbers exact.
func Decode(raw []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, &entity.MalformedPayloadError{Err: err}
	}
	doc, ok := value.(map[string]any)
	if !ok {
		return nil, &entity.MalformedPayloadError{Err: errNotAnObject}
	}
	return doc, nil
}

// Decode is the package-level Decode exposed as a method.
func (e *Extractor) Decode(raw []byte) (map[string]any, error) {
	return Decode(raw)
}

// Extract decodes raw and runs ExtractDocument on the result.
func (e *Extractor) Extract(raw []byte) (*entity.Order, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument accepts any known envelope and returns the canonical order,
// or *entity.MissingFieldError listing every required field that is absent.
func (e *Extractor) ExtractDocument(doc map[string]any) (*entity.Order, error) {
	x := &extraction{
		doc:   unwrap(doc),
		order: &entity.Order{Source: entity.SourceRadario},
		now:   e.now().UTC(),
	}

	var missing []string
	for _, rule := range e.rules {
		value, ok := x.resolve(rule)
		if !ok {
			if rule.required {
				missing = append(missing, rule.name)
			}
			continue
		}
		rule.set(x.order, value)
	}

	if len(missing) > 0 {
		return nil, &entity.MissingFieldError{Fields: missing}
	}

	x.order.PaymentState = mapping.MapPaymentState(x.order.Status, x.order.PaymentSystemStatus)
	return x.order, nil
}

func (x *extraction) resolve(rule fieldRule) (any, bool) {
	for _, c := range rule.candidates {
		raw, ok := lookup(x.doc, c.path)
		if !ok {
			continue
		}
		if value, ok := c.cast(raw); ok {
			return value, true
		}
	}
	if rule.fallback != nil {
		return rule.fallback(x)
	}
	return nil, false
}
