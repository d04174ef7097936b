package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/payments"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/reconcile"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/signing"
)

// ErrPaymentNotFound is returned for a valid return request naming an unknown order.
var ErrPaymentNotFound = errors.New("payment not found")

// ReturnOutcome is the result of VerifyReturn.
type ReturnOutcome int

const (
	// ReturnNotApplicable means the request carried no return parameters.
	ReturnNotApplicable ReturnOutcome = iota
	ReturnRejected
	ReturnApplied
)

// ReturnVerifier handles the consumer's browser return.
type ReturnVerifier struct {
	key     []byte
	store   payments.Store
	nowFunc func() time.Time
}

// NewReturnVerifier verifies return parameters with key and updates payments in store.
func NewReturnVerifier(key []byte, store payments.Store) *ReturnVerifier {
	return &ReturnVerifier{key: key, store: store, nowFunc: time.Now}
}

// VerifyReturn checks the return parameters and applies the reported status.
// Requests without any return parameter are not applicable. A missing or
// invalid signature is recorded as a note on the payment, when one matches the
// order ID, and the status is left unchanged.
func (v *ReturnVerifier) VerifyReturn(ctx context.Context, params omnikassa.ReturnParameters) (ReturnOutcome, *payments.Payment, error) {
	if params.Empty() {
		return ReturnNotApplicable, nil, nil
	}

	p, err := v.store.FindByMerchantOrderID(ctx, params.OrderID)
	if err != nil {
		return ReturnRejected, nil, fmt.Errorf("find payment by merchant order id: %w", err)
	}

	if !signing.Verify(params, v.key) {
		log.Printf("[notify] return request with invalid signature order_id=%q status=%q", params.OrderID, params.Status)
		if p != nil {
			p.AddNote(v.nowFunc(), fmt.Sprintf("Return request with invalid signature (status %q).", params.Status))
			if err := v.store.Save(ctx, p); err != nil {
				log.Printf("[notify] failed to record audit note on payment %s: %v", p.PaymentID, err)
			}
		}
		return ReturnRejected, p, ErrSignatureMismatch
	}

	if p == nil {
		return ReturnRejected, nil, fmt.Errorf("order %s: %w", params.OrderID, ErrPaymentNotFound)
	}
	if status, ok := reconcile.PaymentStatus(params.Status); ok {
		p.SetStatus(status)
	}
	p.AddNote(v.nowFunc(), fmt.Sprintf("Consumer returned with status %s.", params.Status))
	if err := v.store.Save(ctx, p); err != nil {
		return ReturnRejected, p, fmt.Errorf("save payment %s: %w", p.PaymentID, err)
	}
	return ReturnApplied, p, nil
}
