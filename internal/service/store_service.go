package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

type storeRepository interface {
	List(ctx context.Context, filter models.StoreFilter) ([]models.Store, int, error)
	FindByID(ctx context.Context, id string) (*models.Store, error)
}

// StoreListing is the cacheable result of a directory query.
type StoreListing struct {
	Stores     []models.Store     `json:"stores"`
	Pagination *models.Pagination `json:"pagination"`
}

// StoreService serves the public store directory. Listings are cached;
// the directory changes rarely and tolerates a short staleness window.
type StoreService struct {
	repo   storeRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewStoreService constructs the store directory service.
func NewStoreService(repo storeRepository, cache *CacheService, logger *zap.Logger) *StoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreService{repo: repo, cache: cache, logger: logger}
}

// List returns active stores matching the filter, serving from cache
// when possible.
func (s *StoreService) List(ctx context.Context, filter models.StoreFilter) (*StoreListing, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	filter.Page = page
	filter.PageSize = pageSize

	key := storeListKey(filter)
	var cached StoreListing
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	stores, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stores")
	}

	listing := &StoreListing{
		Stores:     stores,
		Pagination: &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}

	if err := s.cache.Set(ctx, key, listing, 0); err != nil {
		s.logger.Warn("failed to cache store listing", zap.String("key", key), zap.Error(err))
	}
	return listing, nil
}

// Get returns a single store by ID.
func (s *StoreService) Get(ctx context.Context, id string) (*models.Store, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "store not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load store")
	}
	return store, nil
}

// InvalidateListings drops every cached directory page.
func (s *StoreService) InvalidateListings(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "stores:list:*")
}

func storeListKey(filter models.StoreFilter) string {
	return fmt.Sprintf("stores:list:%s:%s:%s:%d:%d", filter.Category, filter.Floor, filter.Search, filter.Page, filter.PageSize)
}
