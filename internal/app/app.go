// Package app wires configuration, AWS clients, the processor client and the
// token cache into the dependencies shared by the API, the worker and okctl.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/aws"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/client"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/config"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/metrics"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/payments"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/reconcile"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/tokens"
)

// Deps holds everything the entry points share.
type Deps struct {
	Config      *config.Config
	Key         []byte
	AWS         *aws.AWSClients
	Payments    *payments.DynamoStore
	Idempotency *idempotency.Store
	Client      *client.Client
	Tokens      *tokens.Cache
	Reconciler  *reconcile.Reconciler
}

// Build loads the config at path (optional) and constructs every dependency.
func Build(ctx context.Context, path string) (*Deps, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("aws clients: %w", err)
	}

	api := client.New(cfg.ClientOptions())
	cache, err := NewTokenCache(ctx, cfg, api)
	if err != nil {
		return nil, err
	}

	store := payments.NewDynamoStore(clients.DynamoDB, cfg.PaymentsTable)
	return &Deps{
		Config:      cfg,
		Key:         key,
		AWS:         clients,
		Payments:    store,
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Client:      api,
		Tokens:      cache,
		Reconciler: reconcile.New(api, cache, store, reconcile.Options{
			SigningKey: key,
			SlugPrefix: cfg.SlugPrefix,
			MaxPages:   cfg.MaxPages,
		}),
	}, nil
}

// NewTokenCache builds the access token cache. With a redis address the
// token is shared between processes and survives cold starts.
func NewTokenCache(ctx context.Context, cfg *config.Config, source tokens.TokenSource) (*tokens.Cache, error) {
	src := countingSource{source}
	if cfg.RedisAddr == "" {
		return tokens.NewCache(src, nil), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	store := tokens.NewRedisStore(rdb, cfg.TokenKey)
	cache := tokens.NewCache(src, store.Save)
	if err := tokens.SeedFrom(ctx, cache, store); err != nil {
		// A cold cache only costs one refresh.
		log.Printf("[app] token cache not seeded from redis: %v", err)
	}
	return cache, nil
}

type countingSource struct {
	tokens.TokenSource
}

func (s countingSource) RefreshAccessToken(ctx context.Context) (omnikassa.AccessToken, error) {
	t, err := s.TokenSource.RefreshAccessToken(ctx)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.TokenRefreshes.WithLabelValues(result).Inc()
	return t, err
}
