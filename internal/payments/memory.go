package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by okctl dry runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	payments map[string]Payment
	nowFunc  func() time.Time
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payments: map[string]Payment{}, nowFunc: time.Now}
}

func (m *MemoryStore) Get(ctx context.Context, paymentID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (m *MemoryStore) FindBySlug(ctx context.Context, slug string) (*Payment, error) {
	return m.find(func(p Payment) bool { return slug != "" && p.Slug == slug })
}

func (m *MemoryStore) FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	return m.find(func(p Payment) bool { return transactionID != "" && p.TransactionID == transactionID })
}

func (m *MemoryStore) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*Payment, error) {
	return m.find(func(p Payment) bool { return merchantOrderID != "" && p.MerchantOrderID == merchantOrderID })
}

func (m *MemoryStore) find(match func(Payment) bool) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if match(p) {
			return clone(p), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) Save(ctx context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.payments[p.PaymentID] = *clone(*p)
	return nil
}

func clone(p Payment) *Payment {
	p.Notes = append([]Note(nil), p.Notes...)
	return &p
}
