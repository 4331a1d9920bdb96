package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/merchantkit/storesync/internal/model"
	"github.com/merchantkit/storesync/internal/rag"
	"github.com/merchantkit/storesync/internal/shop"
)

const (
	categoryStore     = "store"
	categoryProducts  = "products"
	categoryOrders    = "orders"
	categoryCustomers = "customers"
)

// syncCategories fetches and indexes the four entity categories concurrently.
// Each category fails or succeeds on its own: a broken orders endpoint never
// blocks product indexing.
func (o *Orchestrator) syncCategories(ctx context.Context, tenantID string, token string, since time.Time) []CategoryReport {
	opts := shop.ListOptions{ModifiedSince: since}

	type task struct {
		name  string
		fetch func(ctx context.Context) ([]model.Entity, error)
	}
	tasks := []task{
		{categoryStore, func(ctx context.Context) ([]model.Entity, error) {
			store, err := o.shop.GetStoreInfo(ctx, tenantID, token)
			if err != nil {
				return nil, err
			}
			return []model.Entity{*store}, nil
		}},
		{categoryProducts, func(ctx context.Context) ([]model.Entity, error) {
			products, err := o.shop.GetProducts(ctx, tenantID, token, opts)
			if err != nil {
				return nil, err
			}
			entities := make([]model.Entity, 0, len(products))
			for i := range products {
				entities = append(entities, products[i])
			}
			return entities, nil
		}},
		{categoryOrders, func(ctx context.Context) ([]model.Entity, error) {
			orders, err := o.shop.GetOrders(ctx, tenantID, token, opts)
			if err != nil {
				return nil, err
			}
			entities := make([]model.Entity, 0, len(orders))
			for i := range orders {
				entities = append(entities, orders[i])
			}
			return entities, nil
		}},
		{categoryCustomers, func(ctx context.Context) ([]model.Entity, error) {
			customers, err := o.shop.GetCustomers(ctx, tenantID, token, opts)
			if err != nil {
				return nil, err
			}
			entities := make([]model.Entity, 0, len(customers))
			for i := range customers {
				entities = append(entities, customers[i])
			}
			return entities, nil
		}},
	}

	results := make(chan CategoryReport, len(tasks))
	for _, t := range tasks {
		go func(t task) {
			results <- o.syncCategory(ctx, tenantID, t.name, t.fetch)
		}(t)
	}
	byName := make(map[string]CategoryReport, len(tasks))
	for range tasks {
		r := <-results
		byName[r.Name] = r
	}

	// Stable order regardless of completion order.
	reports := make([]CategoryReport, 0, len(tasks))
	for _, t := range tasks {
		reports = append(reports, byName[t.name])
	}
	return reports
}

func (o *Orchestrator) syncCategory(ctx context.Context, tenantID string, name string, fetch func(ctx context.Context) ([]model.Entity, error)) CategoryReport {
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID), zap.String("category", name))
	report := CategoryReport{Name: name}

	entities, err := fetch(ctx)
	if err != nil {
		logger.Error("category fetch failed", zap.Error(err))
		report.Err = err.Error()
		report.err = err
		return report
	}
	report.Fetched = len(entities)

	if o.archiver != nil && len(entities) > 0 {
		if err := o.archiver.Archive(ctx, tenantID, name, entities); err != nil {
			logger.Warn("snapshot archive failed", zap.Error(err))
		}
	}

	for _, entity := range entities {
		if ctx.Err() != nil {
			report.Err = ctx.Err().Error()
			report.err = ctx.Err()
			return report
		}
		if err := o.indexer.IndexEntity(ctx, entity, tenantID); err != nil {
			var idxErr *rag.IndexingError
			if errors.As(err, &idxErr) {
				// One bad entity must not sink its siblings.
				report.Failed++
				logger.Warn("entity indexing failed",
					zap.String("entity_id", entity.EntityID()), zap.Error(err))
				continue
			}
			report.Err = err.Error()
			report.err = err
			return report
		}
		report.Succeeded++
	}
	logger.Info("category synced",
		zap.Int("fetched", report.Fetched),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return report
}
