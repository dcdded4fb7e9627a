package naming

import (
	"strconv"
	"strings"
	"time"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
)

const noteDateLayout = "02.01.2006 15:04"

var moscow = time.FixedZone("MSK", 3*60*60)

// BuildLeadNote renders the full order as a multi-line note.
func BuildLeadNote(order *entity.Order) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	b.WriteString("Заказ Radario #" + order.OrderID + "\n")
	line("Покупатель", order.CustomerName)
	line("Email", order.Email)
	line("Телефон", order.Phone)
	line("Мероприятие", order.EventTitle)
	line("Тип события", string(order.EventType))
	line("Дата мероприятия", formatDate(order.EventDate))
	line("Статус оплаты", order.PaymentState.Label())
	line("Статус заказа", order.Status)
	line("Статус платёжной системы", order.PaymentSystemStatus)
	line("Сумма", order.FormattedAmount())
	if order.TicketsCount > 0 {
		line("Билетов", strconv.Itoa(order.TicketsCount))
	}
	line("Дата заказа", formatDate(order.CreatedDate))
	line("Дата оплаты", formatDate(order.PaymentDate))
	line("Дата возврата", formatDate(order.RefundDate))

	return strings.TrimRight(b.String(), "\n")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(moscow).Format(noteDateLayout)
}
