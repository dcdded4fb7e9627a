package radario

import (
	"time"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/mapping"
)

// candidate is one place a value may live in the order object.
type candidate struct {
	path string
	cast caster
}

// fieldRule extracts one canonical field. Candidates are tried in order; the
// first value that casts wins. If none does, fallback runs; a required
// rule that still has no value is reported as missing.
type fieldRule struct {
	name       string
	candidates []candidate
	required   bool
	fallback   func(x *extraction) (any, bool)
	set        func(o *entity.Order, v any)
}

// extraction is the state shared by rules while one order is decoded.
type extraction struct {
	doc   map[string]any
	order *entity.Order
	now   time.Time
}

func paths(cast caster, ps ...string) []candidate {
	out := make([]candidate, len(ps))
	for i, p := range ps {
		out[i] = candidate{path: p, cast: cast}
	}
	return out
}

func setTime(target func(o *entity.Order) **time.Time) func(o *entity.Order, v any) {
	return func(o *entity.Order, v any) {
		t := v.(time.Time)
		*target(o) = &t
	}
}

// defaultRules lists every field in dependency order: later rules may read
// what earlier ones set.
func defaultRules() []fieldRule {
	return []fieldRule{
		{
			name:       "id",
			candidates: paths(asIdentifier, "Id", "OrderId", "Order.Id"),
			required:   true,
			set:        func(o *entity.Order, v any) { o.OrderID = v.(string) },
		},
		{
			name:       "number",
			candidates: paths(asInt64, "OrderNumber", "Number"),
			fallback: func(x *extraction) (any, bool) {
				return entity.ProjectOrderNumber(x.order.OrderID), true
			},
			set: func(o *entity.Order, v any) { o.OrderNumber = v.(int64) },
		},
		{
			name:       entity.FieldEmail,
			candidates: paths(asEmail, "Email", "User.Email", "Buyer.Email", "Customer.Email", "Tickets.0.Email"),
			required:   true,
			set:        func(o *entity.Order, v any) { o.Email = v.(string) },
		},
		{
			name:       "status",
			candidates: paths(asString, "Status", "OrderStatus"),
			required:   true,
			set:        func(o *entity.Order, v any) { o.Status = v.(string) },
		},
		{
			name:       "event",
			candidates: paths(asPresent, "Event", "EventId"),
			required:   true,
			set:        func(o *entity.Order, v any) {},
		},
		{
			name:       "payment_system_status",
			candidates: paths(asString, "PaymentSystemStatus", "Payment.Status", "PaymentStatus"),
			set:        func(o *entity.Order, v any) { o.PaymentSystemStatus = v.(string) },
		},
		{
			name: "name",
			candidates: append(
				paths(asString,
					"Tickets.0.OwnerName", "Tickets.0.ParticipantName",
					"User.Name", "CustomerName", "BuyerName", "Buyer.Name"),
				candidate{path: "CustomData", cast: asCustomDataName},
			),
			fallback: func(x *extraction) (any, bool) {
				if name := nameFromEmail(x.order.Email); name != "" {
					return name, true
				}
				return DefaultCustomerName, true
			},
			set: func(o *entity.Order, v any) { o.CustomerName = v.(string) },
		},
		{
			name:       "phone",
			candidates: paths(asString, "Phone", "User.Phone", "Buyer.Phone", "Customer.Phone", "Tickets.0.Phone"),
			set:        func(o *entity.Order, v any) { o.Phone = v.(string) },
		},
		{
			name:       "amount",
			candidates: paths(asMinorAmount, "Amount", "TotalAmount", "Sum", "Price"),
			fallback:   func(*extraction) (any, bool) { return int64(0), true },
			set:        func(o *entity.Order, v any) { o.AmountMinor = v.(int64) },
		},
		{
			name:       "currency",
			candidates: paths(asString, "Currency", "Event.Currency"),
			fallback:   func(*extraction) (any, bool) { return entity.DefaultCurrency, true },
			set:        func(o *entity.Order, v any) { o.Currency = v.(string) },
		},
		{
			name:       "event_title",
			candidates: paths(asString, "Event.Title", "Event.Name", "EventTitle", "EventName"),
			set:        func(o *entity.Order, v any) { o.EventTitle = v.(string) },
		},
		{
			name:       "event_date",
			candidates: paths(asTime, "Event.BeginDate", "Event.StartDate", "Event.Date", "EventDate"),
			set:        setTime(func(o *entity.Order) **time.Time { return &o.EventDate }),
		},
		{
			name:       "created_date",
			candidates: paths(asTime, "CreatedDate", "CreateDate", "Created"),
			set:        setTime(func(o *entity.Order) **time.Time { return &o.CreatedDate }),
		},
		{
			name:       "payment_date",
			candidates: paths(asTime, "PaymentDate", "PaidDate", "Payment.Date"),
			set:        setTime(func(o *entity.Order) **time.Time { return &o.PaymentDate }),
		},
		{
			name:       "update_date",
			candidates: paths(asTime, "UpdateDate", "UpdatedDate", "ModifiedDate"),
			set:        setTime(func(o *entity.Order) **time.Time { return &o.UpdateDate }),
		},
		{
			name:       "tickets_count",
			candidates: paths(asInt, "TicketsCount", "TicketCount", "Count"),
			fallback: func(x *extraction) (any, bool) {
				if tickets, ok := lookup(x.doc, "Tickets"); ok {
					if list, ok := tickets.([]any); ok {
						return len(list), true
					}
				}
				return 0, true
			},
			set: func(o *entity.Order, v any) {
				if n := v.(int); n > 0 {
					o.TicketsCount = n
				}
			},
		},
		{
			name:       "refund_date",
			candidates: paths(asTime, "RefundDate", "RefundDetails.RefundDate", "Refund.Date"),
			fallback: func(x *extraction) (any, bool) {
				if mapping.MapPaymentState(x.order.Status, x.order.PaymentSystemStatus) != entity.PaymentRefunded {
					return nil, false
				}
				if x.order.UpdateDate != nil {
					return *x.order.UpdateDate, true
				}
				return x.now, true
			},
			set: setTime(func(o *entity.Order) **time.Time { return &o.RefundDate }),
		},
	}
}
