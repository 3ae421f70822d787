package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"farmlok/internal/catalog"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository interface {
	FindAll(ctx context.Context, clauses []catalog.FilterClause, skip, limit int64, sort catalog.SortSpec) ([]catalog.Product, error)
	Count(ctx context.Context, clauses []catalog.FilterClause) (int64, error)
	FindByID(ctx context.Context, id string) (catalog.Product, error)
	Create(ctx context.Context, product catalog.Product) (catalog.Product, error)
	Update(ctx context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error)
	Delete(ctx context.Context, id string) (catalog.Product, error)
}

// CacheInvalidator purges stale listing responses. Failures are absorbed on
// the other side of this interface; a mutation never waits on or fails from
// cache trouble.
type CacheInvalidator interface {
	InvalidateProductListings(ctx context.Context)
}

type Publisher interface {
	Publish(ctx context.Context, event catalog.ProductEvent) error
}

// Counters groups the mutation metrics the service maintains.
type Counters struct {
	Created prometheus.Counter
	Updated prometheus.Counter
	Deleted prometheus.Counter
}

type Service struct {
	repo      Repository
	cache     CacheInvalidator
	publisher Publisher
	logger    *slog.Logger
	counters  Counters
}

func New(repo Repository, cache CacheInvalidator, publisher Publisher, logger *slog.Logger, counters Counters) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		counters:  counters,
	}
}

// ListProducts translates the raw parameters once and issues the page query
// and the count with the identical filter, so the total stays consistent
// with the returned page.
func (s *Service) ListProducts(ctx context.Context, params map[string]string) ([]catalog.Product, int64, error) {
	q := catalog.ParseListQuery(params)

	items, err := s.repo.FindAll(ctx, q.Clauses, q.Skip, q.Limit, q.Sort)
	if err != nil {
		return nil, 0, fmt.Errorf("repo findAll: %w", err)
	}

	total, err := s.repo.Count(ctx, q.Clauses)
	if err != nil {
		return nil, 0, fmt.Errorf("repo count: %w", err)
	}

	return items, total, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	return product, nil
}

// CreateProduct persists the product attributed to userID. Any
// caller-supplied createdBy is overwritten; ownership attribution belongs
// to this layer alone.
func (s *Service) CreateProduct(ctx context.Context, product catalog.Product, userID primitive.ObjectID) (catalog.Product, error) {
	product.CreatedBy = userID

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return catalog.Product{}, err
	}

	s.afterMutation(ctx, catalog.EventCreated, created)
	s.counters.Created.Inc()
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return catalog.Product{}, err
	}

	s.afterMutation(ctx, catalog.EventUpdated, updated)
	s.counters.Updated.Inc()
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.afterMutation(ctx, catalog.EventDeleted, deleted)
	s.counters.Deleted.Inc()
	return nil
}

// afterMutation runs the post-success side effects: cache invalidation
// first (initiated before the response goes out, exactly once per
// successful mutation), then the event publish. Neither can fail the
// already-durable write.
func (s *Service) afterMutation(ctx context.Context, eventType string, product catalog.Product) {
	s.cache.InvalidateProductListings(ctx)

	if err := s.publisher.Publish(ctx, catalog.ProductEvent{
		EventType: eventType,
		ProductID: product.ID.Hex(),
		Name:      product.Name,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("publish catalog event failed",
			"event", eventType,
			"product_id", product.ID.Hex(),
			"error", err,
		)
	}
}
