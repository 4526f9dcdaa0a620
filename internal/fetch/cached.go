package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backlab/internal/domain"
	"backlab/internal/store"
)

// Compile-time interface check.
var _ Fetcher = (*CachedFetcher)(nil)

// CachedFetcher wraps a Fetcher with a BarStore cache. Reads are served
// from the store when it already covers the requested range; otherwise the
// inner fetcher is consulted and the result written back.
type CachedFetcher struct {
	inner Fetcher
	store store.BarStore
	log   *slog.Logger
}

// NewCachedFetcher creates a CachedFetcher over inner backed by s.
func NewCachedFetcher(inner Fetcher, s store.BarStore) *CachedFetcher {
	return &CachedFetcher{
		inner: inner,
		store: s,
		log:   slog.Default().With("fetcher", "cached"),
	}
}

// Historical returns bars from the store when the cached range covers
// [start, end], fetching and persisting from the inner fetcher otherwise.
func (f *CachedFetcher) Historical(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	cached, err := f.store.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading cached bars: %w", err)
	}
	if covers(cached, start, end) {
		f.log.Debug("cache hit", "symbol", symbol, "bars", len(cached))
		return cached, nil
	}

	fetched, err := f.inner.Historical(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(fetched) > 0 {
		if err := f.store.WriteBars(ctx, fetched); err != nil {
			return nil, fmt.Errorf("caching fetched bars: %w", err)
		}
	}
	return fetched, nil
}

// Quote delegates to the inner fetcher; quotes are not cached.
func (f *CachedFetcher) Quote(ctx context.Context, symbol string) (float64, error) {
	return f.inner.Quote(ctx, symbol)
}

// covers reports whether the cached series plausibly spans the requested
// range. Daily bars skip weekends and holidays, so the edges are given a
// few days of slack.
func covers(bars domain.Series, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	const slack = 4 * 24 * time.Hour
	first := bars[0].Timestamp
	last := bars[len(bars)-1].Timestamp
	return first.Sub(start) <= slack && end.Sub(last) <= slack
}
