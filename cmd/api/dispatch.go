package main

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/aws"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/notify"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/reconcile"
)

type reconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, msg aws.ReconcileMessage) error
}

type inlineReconciler interface {
	Reconcile(ctx context.Context, authentication string) (reconcile.Summary, error)
}

// queueDispatcher hands accepted notifications to the worker queue.
func queueDispatcher(q reconcileEnqueuer) notify.Dispatcher {
	return notify.DispatcherFunc(func(ctx context.Context, n omnikassa.Notification) error {
		msg := aws.ReconcileMessage{
			Authentication: n.Authentication,
			CorrelationID:  uuid.New().String(),
			PoiID:          n.PoiID,
		}
		log.Printf("[api] queueing reconcile corr=%s poi=%d", msg.CorrelationID, msg.PoiID)
		return q.EnqueueReconcile(ctx, msg)
	})
}

// inlineDispatcher reconciles inside the webhook request. Used when no queue
// is configured, e.g. when running locally.
func inlineDispatcher(r inlineReconciler) notify.Dispatcher {
	return notify.DispatcherFunc(func(ctx context.Context, n omnikassa.Notification) error {
		sum, err := r.Reconcile(ctx, n.Authentication)
		var unresolved *reconcile.UnresolvedOrdersError
		if !errors.Is(err, reconcile.ErrPaginationLimit) && errors.As(err, &unresolved) {
			log.Printf("[api] reconciled inline applied=%d unresolved=%v", sum.Applied, unresolved.IDs)
			return nil
		}
		if err != nil {
			return err
		}
		log.Printf("[api] reconciled inline pages=%d applied=%d", sum.Pages, sum.Applied)
		return nil
	})
}
