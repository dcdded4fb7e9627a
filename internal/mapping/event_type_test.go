package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
)

func TestEventTypeRegistryMatch(t *testing.T) {
	registry := DefaultEventTypeRegistry()

	tests := []struct {
		title    string
		expected entity.EventType
	}{
		{"Мастер-класс", entity.EventMasterClass},
		{"МАСТЕР-КЛАСС по гончарному делу", entity.EventMasterClass},
		{"Мастер класс по акварели", entity.EventMasterClass},
		{"Ночная экскурсия по музею", entity.EventExcursion},
		{"Органный концерт", entity.EventConcert},
		{"Лекция-концерт", entity.EventConcert},
		{"Открытая лекция", entity.EventLecture},
		{"Книжный клуб: Булгаков", entity.EventBookClub},
		{"Спектакль «Чайка»", entity.EventPerformance},
		{"Выставка графики", entity.EventExhibition},
		{"Квест для взрослых", entity.EventQuest},
		{"Детская программа выходного дня", entity.EventKids},
		{"Фестиваль света", entity.EventFestival},
		{"Встреча выпускников", entity.EventOther},
		{"", entity.EventOther},
		{"   ", entity.EventOther},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, registry.Match(tt.title))
		})
	}
}

// A title with two keywords resolves to the rule listed first, not the word
// that appears first in the title.
func TestEventTypeRegistryMatchIsTableOrdered(t *testing.T) {
	registry := DefaultEventTypeRegistry()

	assert.Equal(t, entity.EventConcert, registry.Match("Лекция, а после концерт"))
	assert.Equal(t, entity.EventConcert, registry.Match("Концерт и лекция"))
	assert.Equal(t, entity.EventBookClub, registry.Match("Экскурсия и книжный клуб"))

	reordered := NewEventTypeRegistry([]KeywordRule{
		{Keyword: "лекци", Type: entity.EventLecture},
		{Keyword: "концерт", Type: entity.EventConcert},
	})
	assert.Equal(t, entity.EventLecture, reordered.Match("Концерт и лекция"))
}

func TestEventTypeRegistryAppend(t *testing.T) {
	base := DefaultEventTypeRegistry()
	extended := base.Append(
		KeywordRule{Keyword: "Кино", Type: entity.EventType("Кинопоказ")},
		KeywordRule{Keyword: "концерт", Type: entity.EventType("Дубль")},
		KeywordRule{Keyword: "  ", Type: entity.EventOther},
	)

	assert.Equal(t, 1, base.Version())
	assert.Equal(t, 2, extended.Version())
	assert.Len(t, extended.Rules(), len(base.Rules())+2)
	assert.Equal(t, base.Rules(), extended.Rules()[:len(base.Rules())])

	assert.Equal(t, entity.EventType("Кинопоказ"), extended.Match("Ночь кино"))
	assert.Equal(t, entity.EventOther, base.Match("Ночь кино"))
	// appended duplicates never shadow existing rules
	assert.Equal(t, entity.EventConcert, extended.Match("Концерт"))
}

func TestEventTypeRegistryRulesIsACopy(t *testing.T) {
	registry := DefaultEventTypeRegistry()
	rules := registry.Rules()
	rules[0] = KeywordRule{Keyword: "концерт", Type: entity.EventOther}

	assert.Equal(t, entity.EventConcert, registry.Match("Концерт"))
}
