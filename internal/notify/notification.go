package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/signing"
)

var (
	// ErrSignatureMismatch marks a notification or return request that failed
	// verification. It is a protocol violation, never retried.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrNotificationExpired marks a validly signed notification past its expiry.
	ErrNotificationExpired = errors.New("notification expired")
)

// Outcome is the result of handling a notification that passed verification.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeAccepted
)

func (o Outcome) String() string {
	if o == OutcomeAccepted {
		return "accepted"
	}
	return "ignored"
}

// VerifyNotification checks the signature and expiry of n at now.
func VerifyNotification(n omnikassa.Notification, key []byte, now time.Time) error {
	if !signing.Verify(n, key) {
		return ErrSignatureMismatch
	}
	if n.Expiry != "" {
		exp, err := n.ExpiresAt()
		if err != nil {
			return fmt.Errorf("parse expiry %q: %w", n.Expiry, err)
		}
		if !now.Before(exp) {
			return ErrNotificationExpired
		}
	}
	return nil
}

// Dispatcher starts reconciliation for an accepted notification, typically by
// queueing it for the worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, n omnikassa.Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n omnikassa.Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n omnikassa.Notification) error {
	return f(ctx, n)
}

// NotificationHandler verifies push notifications and dispatches the ones
// that announce status changes.
type NotificationHandler struct {
	key        []byte
	dispatcher Dispatcher
	nowFunc    func() time.Time
}

// NewNotificationHandler verifies notifications with key and hands accepted ones to d.
func NewNotificationHandler(key []byte, d Dispatcher) *NotificationHandler {
	return &NotificationHandler{key: key, dispatcher: d, nowFunc: time.Now}
}

// Handle verifies n and dispatches it when it reports a status change. Other
// event names are ignored without error. Rejected notifications are never
// dispatched and leave no trace on payments.
func (h *NotificationHandler) Handle(ctx context.Context, n omnikassa.Notification) (Outcome, error) {
	if err := VerifyNotification(n, h.key, h.nowFunc()); err != nil {
		log.Printf("[notify] rejected notification event=%q poi=%d: %v", n.EventName, n.PoiID, err)
		return OutcomeIgnored, err
	}
	if n.EventName != omnikassa.EventOrderStatusChanged {
		log.Printf("[notify] ignoring event %q", n.EventName)
		return OutcomeIgnored, nil
	}
	if err := h.dispatcher.Dispatch(ctx, n); err != nil {
		return OutcomeIgnored, fmt.Errorf("dispatch notification: %w", err)
	}
	return OutcomeAccepted, nil
}
