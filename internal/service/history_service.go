package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenridge/replen/internal/cache"
	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/history"
)

// ErrNoHistory is returned when the memory bank has no configured store.
var ErrNoHistory = errors.New("no memory bank configured")

// HistoryService wraps the memory bank with ingestion and cached
// rolling-velocity lookups.
type HistoryService struct {
	store    *history.Store
	ingestor *history.Ingestor
	cache    cache.VelocityCache
	weeks    int
}

func NewHistoryService(store *history.Store, cfg config.HistoryConfig, columns config.ColumnMap, vc cache.VelocityCache) *HistoryService {
	if vc == nil {
		vc = cache.NewNoopVelocityCache()
	}
	svc := &HistoryService{store: store, cache: vc, weeks: cfg.WindowWeeks}
	if store != nil {
		svc.ingestor = history.NewIngestor(store, cfg, columns)
	}
	return svc
}

// Ingest runs one ingestion batch over the snapshot inbox. A successful
// batch invalidates all cached velocities.
func (s *HistoryService) Ingest(ctx context.Context) (*history.BatchSummary, error) {
	if s.ingestor == nil {
		return nil, ErrNoHistory
	}
	summary, err := s.ingestor.Run(ctx)
	if err != nil {
		return nil, err
	}
	if summary.Merged > 0 {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("could not invalidate velocity cache after ingestion")
		}
	}
	return summary, nil
}

// RollingVelocity returns the blended multi-week velocity for one SKU at one
// store, consulting the cache first.
func (s *HistoryService) RollingVelocity(ctx context.Context, sku, location string, weeks int) (history.RollingVelocity, error) {
	if s.store == nil {
		return history.RollingVelocity{}, ErrNoHistory
	}
	if weeks <= 0 {
		weeks = s.weeks
	}

	sku = domain.NormalizeSKU(sku)
	location = string(domain.NormalizeLocation(location))

	if rv, ok, err := s.cache.Get(ctx, sku, location, weeks); err == nil && ok {
		return rv, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("velocity cache read failed")
	}

	rv, err := s.store.RollingVelocity(ctx, sku, location, time.Now(), weeks)
	if err != nil {
		return history.RollingVelocity{}, err
	}

	if err := s.cache.Set(ctx, sku, location, weeks, rv); err != nil {
		log.Warn().Err(err).Msg("velocity cache write failed")
	}
	return rv, nil
}

// SnapshotDates lists the distinct report end dates in the bank, newest
// first.
func (s *HistoryService) SnapshotDates(ctx context.Context) ([]time.Time, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.SnapshotDates(ctx)
}
