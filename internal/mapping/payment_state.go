package mapping

import (
	"strings"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
)

// MapPaymentState combines the order status and the payment system status.
// Refunds are checked first so a refunded order never reads as paid.
func MapPaymentState(status, paymentSystemStatus string) entity.PaymentState {
	s := strings.ToLower(strings.TrimSpace(status))
	pss := strings.ToLower(strings.TrimSpace(paymentSystemStatus))

	switch {
	case s == "refund" || s == "refunded" || pss == "refund" || pss == "refunded":
		return entity.PaymentRefunded
	case s == "paid" && (pss == "paid" || pss == ""):
		return entity.PaymentPaid
	case s == "pending" || pss == "pending":
		return entity.PaymentPending
	case s == "cancelled" || s == "canceled" || pss == "cancelled" || pss == "canceled":
		return entity.PaymentCancelled
	default:
		return entity.PaymentUnknown
	}
}
