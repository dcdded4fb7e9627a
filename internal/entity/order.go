package entity

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"time"
)

// SourceRadario tags every order that came through the Radario webhook.
const SourceRadario = "radario"

// PaymentState is the canonical payment state of an order.
type PaymentState string

const (
	PaymentPaid      PaymentState = "paid"
	PaymentPending   PaymentState = "pending"
	PaymentRefunded  PaymentState = "refunded"
	PaymentCancelled PaymentState = "cancelled"
	PaymentUnknown   PaymentState = "unknown"
)

// Label is the operator-facing name shown in lead descriptions and notes.
func (s PaymentState) Label() string {
	switch s {
	case PaymentPaid:
		return "Оплачен"
	case PaymentPending:
		return "Ожидает оплаты"
	case PaymentRefunded:
		return "Возврат"
	case PaymentCancelled:
		return "Отменён"
	default:
		return "Неизвестно"
	}
}

// EventType is the canonical event category. The value doubles as its label.
type EventType string

const (
	EventMasterClass EventType = "Мастер-класс"
	EventExcursion   EventType = "Экскурсия"
	EventConcert     EventType = "Концерт"
	EventLecture     EventType = "Лекция"
	EventBookClub    EventType = "Книжный клуб"
	EventPerformance EventType = "Спектакль"
	EventExhibition  EventType = "Выставка"
	EventQuest       EventType = "Квест"
	EventKids        EventType = "Детская программа"
	EventFestival    EventType = "Фестиваль"
	EventOther       EventType = "Другое"
)

// DefaultCurrency is assumed when Radario omits the currency.
const DefaultCurrency = "RUB"

// Order is the canonical, schema-independent record of one Radario notification.
type Order struct {
	OrderID     string
	OrderNumber int64

	Email        string
	CustomerName string
	Phone        string

	Status              string
	PaymentSystemStatus string
	PaymentState        PaymentState

	// AmountMinor is the order total in minor units (kopecks).
	AmountMinor int64
	Currency    string

	EventTitle string
	EventType  EventType

	EventDate   *time.Time
	CreatedDate *time.Time
	PaymentDate *time.Time
	UpdateDate  *time.Time
	RefundDate  *time.Time

	TicketsCount int
	Source       string
}

// IsRefunded reports whether the order ended in a refund.
func (o *Order) IsRefunded() bool {
	return o.PaymentState == PaymentRefunded
}

// AmountMajor returns the total in major units (rubles).
func (o *Order) AmountMajor() float64 {
	return float64(o.AmountMinor) / 100
}

// WholeAmount rounds the total to whole major units, half away from zero.
func (o *Order) WholeAmount() int64 {
	if o.AmountMinor >= 0 {
		return (o.AmountMinor + 50) / 100
	}
	return -((-o.AmountMinor + 50) / 100)
}

// FormattedAmount renders the total as "1500.00 RUB" with ₽ for rubles.
func (o *Order) FormattedAmount() string {
	sign := ""
	minor := o.AmountMinor
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	currency := o.Currency
	if currency == "" || currency == DefaultCurrency {
		currency = "₽"
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

func (o *Order) String() string {
	return fmt.Sprintf("order %s (%s, %s)", o.OrderID, o.Email, o.PaymentState)
}

// ProjectOrderNumber derives the numeric order number stored in the CRM.
// All-digit ids are used as is; anything else gets a stable positive hash.
func ProjectOrderNumber(orderID string) int64 {
	if orderID != "" && isDigits(orderID) {
		if n, err := strconv.ParseInt(orderID, 10, 64); err == nil {
			return n
		}
	}
	h := fnv.New32a()
	h.Write([]byte(orderID))
	return int64(h.Sum32() & 0x7fffffff)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
