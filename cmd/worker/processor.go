package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/aws"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/metrics"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/reconcile"
)

// Processor handles SQS messages queued by the notification webhook.
type Processor struct {
	reconciler Reconciler
	counts     CountPublisher
}

// NewProcessor creates a worker processor. counts may be nil.
func NewProcessor(r Reconciler, counts CountPublisher) *Processor {
	return &Processor{reconciler: r, counts: counts}
}

// Handle processes a batch and reports only retryable failures, so a single
// transient error does not redeliver messages that were already handled.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			log.Printf("[worker] message=%s will be retried: %v", rec.MessageId, err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

// processMessage returns an error only when a retry can succeed.
func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg aws.ReconcileMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		log.Printf("[worker] dropping message=%s with invalid body: %v", rec.MessageId, err)
		return nil
	}
	if msg.Authentication == "" {
		log.Printf("[worker] dropping message=%s without authentication corr=%s", rec.MessageId, msg.CorrelationID)
		return nil
	}

	log.Printf("[worker] reconciling corr=%s poi=%d", msg.CorrelationID, msg.PoiID)
	sum, err := p.reconciler.Reconcile(ctx, msg.Authentication)
	result := classify(err)
	metrics.ObserveReconcile(result, sum.Applied, len(sum.Unresolved))
	p.publish(ctx, sum, result)

	var unresolved *reconcile.UnresolvedOrdersError
	switch {
	case err == nil:
		log.Printf("[worker] corr=%s done pages=%d applied=%d", msg.CorrelationID, sum.Pages, sum.Applied)
		return nil
	case errors.Is(err, reconcile.ErrPageSignature), errors.Is(err, reconcile.ErrPaginationLimit):
		log.Printf("[worker] corr=%s aborted permanently: %v", msg.CorrelationID, err)
		return nil
	case errors.As(err, &unresolved):
		log.Printf("[worker] corr=%s applied=%d unresolved=%v", msg.CorrelationID, sum.Applied, unresolved.IDs)
		return nil
	default:
		return err
	}
}

func classify(err error) string {
	var unresolved *reconcile.UnresolvedOrdersError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, reconcile.ErrPageSignature):
		return "signature_mismatch"
	case errors.Is(err, reconcile.ErrPaginationLimit):
		return "pagination_limit"
	case errors.As(err, &unresolved):
		return "unresolved"
	default:
		return "error"
	}
}

func (p *Processor) publish(ctx context.Context, sum reconcile.Summary, result string) {
	if p.counts == nil {
		return
	}
	counts := map[string]float64{
		"ReconcilePages":   float64(sum.Pages),
		"RowsApplied":      float64(sum.Applied),
		"UnresolvedOrders": float64(len(sum.Unresolved)),
	}
	if result != "ok" && result != "unresolved" {
		counts["ReconcileAborted"] = 1
	}
	if err := p.counts.PutCounts(ctx, counts); err != nil {
		log.Printf("[worker] metrics not published: %v", err)
	}
}
