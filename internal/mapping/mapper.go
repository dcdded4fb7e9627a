package mapping

import "github.com/oktavaklaster/radario-amocrm/internal/entity"

// Mapper bundles the vocabulary lookups the sync flow needs.
type Mapper struct {
	events *EventTypeRegistry
}

func NewMapper(events *EventTypeRegistry) *Mapper {
	if events == nil {
		events = DefaultEventTypeRegistry()
	}
	return &Mapper{events: events}
}

func (m *Mapper) EventType(title string) entity.EventType {
	return m.events.Match(title)
}

func (m *Mapper) PaymentState(status, paymentSystemStatus string) entity.PaymentState {
	return MapPaymentState(status, paymentSystemStatus)
}

// Classify fills the derived enums of an extracted order.
func (m *Mapper) Classify(order *entity.Order) {
	order.EventType = m.EventType(order.EventTitle)
	order.PaymentState = m.PaymentState(order.Status, order.PaymentSystemStatus)
}

func (m *Mapper) RegistryVersion() int {
	return m.events.Version()
}
