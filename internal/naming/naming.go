// Package naming builds the human-readable lead title and description.
package naming

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
)

const (
	MaxTitleLength       = 255
	MaxTitlePrefixLength = 120
	MaxDescriptionLength = 256
	maxEventTitleInDesc  = 80

	DefaultEventTitle = "Мероприятие"
	SourceTag         = "Источник: Radario"
	separator         = " | "
	ellipsis          = "…"
)

// BuildLeadTitle renders "Билет на {title} - Заказ #{id}" within the CRM name limit.
func BuildLeadTitle(eventTitle, orderID string) string {
	title := strings.TrimSpace(eventTitle)
	if title == "" {
		title = DefaultEventTitle
	}
	title = truncate(title, MaxTitlePrefixLength)

	suffix := " - Заказ #" + orderID
	name := "Билет на " + title + suffix
	if utf8.RuneCountInString(name) <= MaxTitleLength {
		return name
	}

	// an oversized order id still has to fit
	return truncate(name, MaxTitleLength)
}

// BuildLeadDescription joins the order fragments in priority order followed
// by the source tag. Trailing fragments are dropped until the text fits; the
// order id is always kept. If that is not enough the text is cut with an
// ellipsis.
func BuildLeadDescription(order *entity.Order) string {
	fragments := descriptionFragments(order)

	for n := len(fragments); n >= 1; n-- {
		text := join(fragments[:n])
		if utf8.RuneCountInString(text) <= MaxDescriptionLength {
			return text
		}
	}

	return truncate(join(fragments[:1]), MaxDescriptionLength)
}

func descriptionFragments(order *entity.Order) []string {
	fragments := []string{"Заказ #" + order.OrderID}

	if order.EventType != "" {
		fragments = append(fragments, "Тип: "+string(order.EventType))
	}
	if title := strings.TrimSpace(order.EventTitle); title != "" {
		fragments = append(fragments, truncate(title, maxEventTitleInDesc))
	}
	fragments = append(fragments, "Оплата: "+order.PaymentState.Label())
	fragments = append(fragments, "Сумма: "+order.FormattedAmount())
	if order.TicketsCount > 0 {
		fragments = append(fragments, "Билетов: "+strconv.Itoa(order.TicketsCount))
	}

	return fragments
}

func join(fragments []string) string {
	return strings.Join(append(append([]string(nil), fragments...), SourceTag), separator)
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-utf8.RuneCountInString(ellipsis)]) + ellipsis
}
