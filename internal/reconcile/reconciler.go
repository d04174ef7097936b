package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/payments"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/signing"
)

// DefaultMaxPages bounds a single run.
const DefaultMaxPages = 100

var (
	// ErrPageSignature aborts a run when a result page fails verification.
	ErrPageSignature = errors.New("order results page signature mismatch")
	// ErrPaginationLimit is returned when the processor still reports more
	// results after MaxPages pages.
	ErrPaginationLimit = errors.New("order results pagination limit exceeded")
)

// UnresolvedOrdersError lists processor order IDs without a local payment.
// Rows that did resolve have already been applied.
type UnresolvedOrdersError struct {
	IDs []string
}

func (e *UnresolvedOrdersError) Error() string {
	return fmt.Sprintf("%d order result(s) without a local payment: %s", len(e.IDs), strings.Join(e.IDs, ", "))
}

// ResultsFetcher retrieves one page of order results.
type ResultsFetcher interface {
	FetchOrderResults(ctx context.Context, accessToken, authentication string, page int) (omnikassa.OrderResults, error)
}

// TokenProvider hands out a currently valid access token.
type TokenProvider interface {
	EnsureValid(ctx context.Context) (omnikassa.AccessToken, error)
}

// Options configures a Reconciler.
type Options struct {
	SigningKey []byte
	SlugPrefix string
	MaxPages   int
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	Pages      int
	Applied    int
	Unresolved []string
}

// Reconciler pulls order results for a notification and applies them to payments.
type Reconciler struct {
	fetcher  ResultsFetcher
	tokens   TokenProvider
	store    payments.Store
	key      []byte
	prefix   string
	maxPages int
	nowFunc  func() time.Time
}

// New creates a Reconciler. MaxPages defaults to DefaultMaxPages.
func New(fetcher ResultsFetcher, tokens TokenProvider, store payments.Store, opts Options) *Reconciler {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Reconciler{
		fetcher:  fetcher,
		tokens:   tokens,
		store:    store,
		key:      opts.SigningKey,
		prefix:   opts.SlugPrefix,
		maxPages: maxPages,
		nowFunc:  time.Now,
	}
}

// Reconcile pages through the results referenced by authentication. Pages and
// rows are applied in processor order. A bad page signature or the page limit
// stops the run; unresolved IDs are reported once, after every page.
func (r *Reconciler) Reconcile(ctx context.Context, authentication string) (Summary, error) {
	var sum Summary
	for page := 1; page <= r.maxPages; page++ {
		token, err := r.tokens.EnsureValid(ctx)
		if err != nil {
			return sum, err
		}
		results, err := r.fetcher.FetchOrderResults(ctx, token.Token, authentication, page)
		if err != nil {
			return sum, err
		}
		sum.Pages++
		if !signing.Verify(results, r.key) {
			log.Printf("[reconcile] page %d signature mismatch, aborting", page)
			return sum, fmt.Errorf("page %d: %w", page, ErrPageSignature)
		}

		for _, row := range results.OrderResults {
			applied, err := r.apply(ctx, row)
			if err != nil {
				return sum, err
			}
			if applied {
				sum.Applied++
			} else {
				sum.Unresolved = append(sum.Unresolved, row.OmnikassaOrderID)
			}
		}

		if !results.MoreOrderResultsAvailable {
			if len(sum.Unresolved) > 0 {
				return sum, &UnresolvedOrdersError{IDs: sum.Unresolved}
			}
			return sum, nil
		}
	}
	log.Printf("[reconcile] still more results after %d pages", r.maxPages)
	err := fmt.Errorf("after %d pages: %w", r.maxPages, ErrPaginationLimit)
	if len(sum.Unresolved) > 0 {
		err = errors.Join(err, &UnresolvedOrdersError{IDs: sum.Unresolved})
	}
	return sum, err
}

// apply writes one result row. It reports false when no payment matches.
func (r *Reconciler) apply(ctx context.Context, row omnikassa.OrderResult) (bool, error) {
	p, err := r.resolve(ctx, row.OmnikassaOrderID)
	if err != nil {
		return false, err
	}
	if p == nil {
		log.Printf("[reconcile] no payment for order %s (merchant order %s)", row.OmnikassaOrderID, row.MerchantOrderID)
		return false, nil
	}

	if status, ok := PaymentStatus(row.OrderStatus); ok {
		p.SetStatus(status)
	}
	if row.OrderStatus == omnikassa.OrderStatusCompleted && p.TransactionID == "" {
		if id, ok := row.FirstSuccessfulTransaction(); ok {
			p.SetTransactionID(id)
		}
	}
	if p.ProcessorOrderID == "" {
		p.ProcessorOrderID = row.OmnikassaOrderID
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return false, fmt.Errorf("encode order result %s: %w", row.OmnikassaOrderID, err)
	}
	p.AddNote(r.nowFunc(), "OmniKassa order result: "+string(raw))

	if err := r.store.Save(ctx, p); err != nil {
		return false, fmt.Errorf("save payment %s: %w", p.PaymentID, err)
	}
	return true, nil
}

// resolve looks up the payment by slug first, then by the legacy transaction ID.
func (r *Reconciler) resolve(ctx context.Context, omnikassaOrderID string) (*payments.Payment, error) {
	if omnikassaOrderID == "" {
		return nil, nil
	}
	p, err := r.store.FindBySlug(ctx, payments.Slug(r.prefix, omnikassaOrderID))
	if err != nil {
		return nil, fmt.Errorf("find payment by slug: %w", err)
	}
	if p != nil {
		return p, nil
	}
	p, err = r.store.FindByTransactionID(ctx, omnikassaOrderID)
	if err != nil {
		return nil, fmt.Errorf("find payment by transaction id: %w", err)
	}
	return p, nil
}
