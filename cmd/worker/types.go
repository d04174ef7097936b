package main

import (
	"context"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/reconcile"
)

// Reconciler runs one reconciliation for a notification's authentication token.
type Reconciler interface {
	Reconcile(ctx context.Context, authentication string) (reconcile.Summary, error)
}

// CountPublisher receives per-run counters, e.g. CloudWatch.
type CountPublisher interface {
	PutCounts(ctx context.Context, counts map[string]float64) error
}
