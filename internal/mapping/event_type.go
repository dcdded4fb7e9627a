package mapping

import (
	"strings"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
)

// KeywordRule maps a lowercase title fragment to an event type.
type KeywordRule struct {
	Keyword string
	Type    entity.EventType
}

// EventTypeRegistry resolves free-text event titles. Matching is first-hit in
// rule order, so rules are only ever appended.
type EventTypeRegistry struct {
	version int
	rules   []KeywordRule
}

var defaultEventRules = []KeywordRule{
	{Keyword: "книжный клуб", Type: entity.EventBookClub},
	{Keyword: "мастер-класс", Type: entity.EventMasterClass},
	{Keyword: "экскурс", Type: entity.EventExcursion},
	{Keyword: "концерт", Type: entity.EventConcert},
	{Keyword: "лекци", Type: entity.EventLecture},
	{Keyword: "спектакл", Type: entity.EventPerformance},
	{Keyword: "выставк", Type: entity.EventExhibition},
	{Keyword: "квест", Type: entity.EventQuest},
	{Keyword: "детск", Type: entity.EventKids},
	{Keyword: "фестивал", Type: entity.EventFestival},
}

// NewEventTypeRegistry copies rules into a version 1 registry.
func NewEventTypeRegistry(rules []KeywordRule) *EventTypeRegistry {
	return &EventTypeRegistry{version: 1, rules: normalizeRules(rules)}
}

// DefaultEventTypeRegistry returns the built-in museum vocabulary.
func DefaultEventTypeRegistry() *EventTypeRegistry {
	return NewEventTypeRegistry(defaultEventRules)
}

func (r *EventTypeRegistry) Version() int {
	return r.version
}

// Rules returns a copy of the rules in match order.
func (r *EventTypeRegistry) Rules() []KeywordRule {
	return append([]KeywordRule(nil), r.rules...)
}

// Append returns a new registry with extra rules after the existing ones.
func (r *EventTypeRegistry) Append(rules ...KeywordRule) *EventTypeRegistry {
	merged := make([]KeywordRule, 0, len(r.rules)+len(rules))
	merged = append(merged, r.rules...)
	merged = append(merged, normalizeRules(rules)...)
	return &EventTypeRegistry{version: r.version + 1, rules: merged}
}

// Match returns the type of the first rule, in table order, whose keyword
// occurs in title. A second pass treats hyphens as spaces. Unmatched titles
// map to EventOther.
func (r *EventTypeRegistry) Match(title string) entity.EventType {
	text := strings.ToLower(strings.TrimSpace(title))
	if text == "" {
		return entity.EventOther
	}

	for _, rule := range r.rules {
		if strings.Contains(text, rule.Keyword) {
			return rule.Type
		}
	}

	dehyphenated := dehyphenate(text)
	for _, rule := range r.rules {
		if strings.Contains(dehyphenated, dehyphenate(rule.Keyword)) {
			return rule.Type
		}
	}

	return entity.EventOther
}

func normalizeRules(rules []KeywordRule) []KeywordRule {
	out := make([]KeywordRule, 0, len(rules))
	for _, rule := range rules {
		keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if keyword == "" {
			continue
		}
		out = append(out, KeywordRule{Keyword: keyword, Type: rule.Type})
	}
	return out
}

func dehyphenate(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("-", " ", "‑", " ", "–", " ").Replace(s)), " ")
}
