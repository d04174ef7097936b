package payments

import "context"

// Store persists payments. Lookups return (nil, nil) when nothing matches.
type Store interface {
	Get(ctx context.Context, paymentID string) (*Payment, error)
	FindBySlug(ctx context.Context, slug string) (*Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*Payment, error)
	Save(ctx context.Context, p *Payment) error
}
