package reconcile

import (
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/payments"
)

var statusTable = map[string]string{
	omnikassa.OrderStatusCompleted:  payments.StatusSuccess,
	omnikassa.OrderStatusCancelled:  payments.StatusCancelled,
	omnikassa.OrderStatusExpired:    payments.StatusExpired,
	omnikassa.OrderStatusInProgress: payments.StatusOpen,
}

// PaymentStatus maps a processor order status to a local payment status.
// ok is false for statuses that must leave the payment untouched.
func PaymentStatus(orderStatus string) (status string, ok bool) {
	status, ok = statusTable[orderStatus]
	return status, ok
}
