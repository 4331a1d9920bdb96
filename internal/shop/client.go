package shop

import (
	"context"
	"errors"
	"time"

	"github.com/merchantkit/storesync/internal/model"
)

var (
	// ErrAuthExpired marks a revoked or expired tenant credential. Not
	// retryable within the current sync cycle.
	ErrAuthExpired = errors.New("shop credential expired")
	// ErrRateLimited marks a 429 from the platform. Transient.
	ErrRateLimited = errors.New("shop api rate limited")
)

// ListOptions bounds a fetch. ModifiedSince keeps incremental sync payloads
// small; the zero value means a full fetch.
type ListOptions struct {
	Limit         int
	ModifiedSince time.Time
}

// Client is the read-side view of the e-commerce platform API. Every method
// returns an empty slice, never nil, when the tenant has no matching data.
type Client interface {
	GetStoreInfo(ctx context.Context, tenantID string, token string) (*model.Store, error)
	GetProducts(ctx context.Context, tenantID string, token string, opts ListOptions) ([]model.Product, error)
	GetOrders(ctx context.Context, tenantID string, token string, opts ListOptions) ([]model.Order, error)
	GetCustomers(ctx context.Context, tenantID string, token string, opts ListOptions) ([]model.Customer, error)
}
