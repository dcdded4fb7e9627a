package amocrm

import (
	"strconv"
	"time"

	"github.com/oktavaklaster/radario-amocrm/internal/config"
	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/mapping"
	"github.com/oktavaklaster/radario-amocrm/internal/naming"
)

// LeadSchema holds the pipeline and custom field ids of the account. A zero
// field id disables that field.
type LeadSchema struct {
	PipelineID   int
	StatusNewID  int
	StatusPaidID int
	StatusLostID int

	FieldOrderNumber   int
	FieldOrderRef      int
	FieldEventType     int
	FieldPaymentStatus int
	FieldDescription   int
	FieldTicketsCount  int
	FieldEventDate     int
	FieldPaymentDate   int
	FieldRefundDate    int

	EventTypes    mapping.EnumTable[entity.EventType]
	PaymentStatus mapping.EnumTable[entity.PaymentState]
}

// SchemaFromConfig builds the schema from configuration. Enum maps are keyed
// by event type label and by payment state code.
func SchemaFromConfig(cfg config.AmoCRMConfig) LeadSchema {
	eventTypes := make(map[entity.EventType]int, len(cfg.EventTypeEnums))
	for label, id := range cfg.EventTypeEnums {
		eventTypes[entity.EventType(label)] = id
	}
	paymentStatus := make(map[entity.PaymentState]int, len(cfg.PaymentStatusEnums))
	for code, id := range cfg.PaymentStatusEnums {
		paymentStatus[entity.PaymentState(code)] = id
	}

	return LeadSchema{
		PipelineID:         cfg.PipelineID,
		StatusNewID:        cfg.StatusNewID,
		StatusPaidID:       cfg.StatusPaidID,
		StatusLostID:       cfg.StatusLostID,
		FieldOrderNumber:   cfg.FieldOrderNumber,
		FieldOrderRef:      cfg.FieldOrderRef,
		FieldEventType:     cfg.FieldEventType,
		FieldPaymentStatus: cfg.FieldPaymentStatus,
		FieldDescription:   cfg.FieldDescription,
		FieldTicketsCount:  cfg.FieldTicketsCount,
		FieldEventDate:     cfg.FieldEventDate,
		FieldPaymentDate:   cfg.FieldPaymentDate,
		FieldRefundDate:    cfg.FieldRefundDate,
		EventTypes:         mapping.NewEnumTable(eventTypes, cfg.EventTypeFallbackEnum),
		PaymentStatus:      mapping.NewEnumTable(paymentStatus, cfg.PaymentStatusFallbackEnum),
	}
}

// leadFields renders every custom field the sync owns on a lead.
func (s LeadSchema) leadFields(order *entity.Order) []CustomFieldValue {
	fields := fieldSet{}
	fields.add(s.FieldOrderNumber, FieldValue{Value: order.OrderNumber})
	fields.add(s.FieldOrderRef, FieldValue{Value: order.OrderID})
	fields.add(s.FieldEventType, enumValue(s.EventTypes, order.EventType, string(order.EventType)))
	fields.add(s.FieldDescription, FieldValue{Value: naming.BuildLeadDescription(order)})
	if order.TicketsCount > 0 {
		fields.add(s.FieldTicketsCount, FieldValue{Value: order.TicketsCount})
	}
	fields.addDate(s.FieldEventDate, order.EventDate)
	fields.addDate(s.FieldPaymentDate, order.PaymentDate)
	fields = append(fields, s.paymentFields(order)...)
	return fields
}

// paymentFields are the fields that follow the payment state on updates.
func (s LeadSchema) paymentFields(order *entity.Order) fieldSet {
	fields := fieldSet{}
	fields.add(s.FieldPaymentStatus, enumValue(s.PaymentStatus, order.PaymentState, order.PaymentState.Label()))
	if order.IsRefunded() {
		fields.addDate(s.FieldRefundDate, order.RefundDate)
	}
	return fields
}

// enumValue prefers a configured enum id. Without one amoCRM matches the
// option by its label.
func enumValue[K comparable](table mapping.EnumTable[K], key K, label string) FieldValue {
	if id, _ := table.Lookup(key); id != 0 {
		return FieldValue{EnumID: id}
	}
	return FieldValue{Value: label}
}

type fieldSet []CustomFieldValue

func (f *fieldSet) add(fieldID int, value FieldValue) {
	if fieldID == 0 {
		return
	}
	*f = append(*f, CustomFieldValue{FieldID: fieldID, Values: []FieldValue{value}})
}

// addDate writes date fields as unix seconds.
func (f *fieldSet) addDate(fieldID int, t *time.Time) {
	if t == nil {
		return
	}
	f.add(fieldID, FieldValue{Value: t.Unix()})
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
