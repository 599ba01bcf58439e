package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	"FinTrend/pkg/cache"
)

// CacheJobStore keeps job statuses in a cache.Service with a fixed TTL.
type CacheJobStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheJobStore(c cache.Service, ttl time.Duration) *CacheJobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CacheJobStore{cache: c, ttl: ttl}
}

func jobKey(id string) string { return cache.Key("job", id) }

func (s *CacheJobStore) PutStatus(ctx context.Context, st *models.JobStatus) error {
	if st == nil || st.ID == "" {
		return fmt.Errorf("job status requires an id")
	}
	if err := s.cache.Set(ctx, jobKey(st.ID), st, s.ttl); err != nil {
		return fmt.Errorf("put job %s: %w", st.ID, err)
	}
	return nil
}

func (s *CacheJobStore) GetStatus(ctx context.Context, id string) (*models.JobStatus, error) {
	st, err := cache.GetTyped[models.JobStatus](ctx, s.cache, jobKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, domrepo.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &st, nil
}

var _ domrepo.JobStore = (*CacheJobStore)(nil)
