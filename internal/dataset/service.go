package dataset

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/events"
)

// Fetcher stages the raw CSV files before parsing. The S3 fetcher downloads
// the objects into the data directory; a nil fetcher means local files only.
type Fetcher interface {
	Fetch(ctx context.Context) error
}

// Service composes fetch, load and cache into the single dataset entry
// point used by handlers and the scheduled refresh job.
type Service struct {
	loader  *Loader
	cache   *Cache
	fetcher Fetcher // optional
	bus     *events.Bus
	log     zerolog.Logger

	mu sync.Mutex // serializes reloads so a thundering herd loads once
}

// NewService creates the dataset service. fetcher may be nil.
func NewService(loader *Loader, cache *Cache, fetcher Fetcher, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		loader:  loader,
		cache:   cache,
		fetcher: fetcher,
		bus:     bus,
		log:     log.With().Str("service", "dataset").Logger(),
	}
}

// Dataset returns the current dataset, reloading when the cache is stale or
// empty. Load failures are reported once per attempt and the dashboard
// continues with empty tables - a data problem never takes the process down.
func (s *Service) Dataset(ctx context.Context) *Dataset {
	if ds, fresh := s.cache.Get(); fresh {
		return ds
	}

	ds, err := s.Refresh(ctx, "expired")
	if err != nil {
		// Serve the stale snapshot if one exists; empty tables otherwise.
		if stale, _ := s.cache.Get(); stale != nil {
			return stale
		}
		return Empty()
	}
	return ds
}

// Refresh forces a reload, updates the cache and publishes the outcome on
// the event bus. source describes what triggered the reload.
func (s *Service) Refresh(ctx context.Context, source string) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetcher != nil {
		if err := s.fetcher.Fetch(ctx); err != nil {
			// Fall through to local files; a stale local copy beats nothing.
			s.log.Warn().Err(err).Msg("Remote dataset fetch failed, using local files")
		}
	}

	ds, err := s.loader.Load()
	if err != nil {
		s.log.Error().Err(err).Str("source", source).Msg("Dataset load failed")
		s.bus.Publish(events.DatasetLoadFailed, events.DatasetLoadFailedData{Reason: err.Error()})
		s.cache.Set(ds) // empty dataset: avoids re-reporting on every request
		return ds, err
	}

	s.cache.Set(ds)
	s.bus.Publish(events.DatasetRefreshed, events.DatasetRefreshedData{
		SalesRows:    len(ds.Sales.Records),
		CustomerRows: len(ds.Customers.Records),
		Source:       source,
	})
	return ds, nil
}
