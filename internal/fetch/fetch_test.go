package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"backlab/internal/domain"
	"backlab/internal/store"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func writeCSV(t *testing.T, dir, symbol, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
}

func TestCSVFetcherHistorical(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAPL", `Date,Open,High,Low,Close,Volume
2024-01-02,100,102,99,101,10000
2024-01-03,101,103,100,102,11000
2024-01-04,102,104,101,103,12000
`)

	f := NewCSVFetcher(dir)
	bars, err := f.Historical(context.Background(), "aapl", day(2024, time.January, 1), day(2024, time.January, 3))
	if err != nil {
		t.Fatalf("Historical: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("Historical returned %d bars, want 2", len(bars))
	}
	if bars[0].Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", bars[0].Symbol)
	}
	if bars[1].Close != 102 {
		t.Errorf("bars[1].Close = %v, want 102", bars[1].Close)
	}
	if bars[1].Volume != 11000 {
		t.Errorf("bars[1].Volume = %d, want 11000", bars[1].Volume)
	}
}

func TestCSVFetcherBadRow(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BAD", `Date,Open,High,Low,Close,Volume
2024-01-02,100,102,99,not-a-number,10000
`)

	f := NewCSVFetcher(dir)
	if _, err := f.Historical(context.Background(), "BAD", day(2024, time.January, 1), day(2024, time.January, 31)); err == nil {
		t.Error("Historical should fail on a malformed close price")
	}
}

func TestCSVFetcherMissingFile(t *testing.T) {
	f := NewCSVFetcher(t.TempDir())
	if _, err := f.Historical(context.Background(), "NOPE", day(2024, time.January, 1), day(2024, time.January, 31)); err == nil {
		t.Error("Historical should fail when the symbol file is missing")
	}
}

// stubFetcher records calls and serves a fixed series.
type stubFetcher struct {
	bars  domain.Series
	calls int
}

func (s *stubFetcher) Historical(_ context.Context, _ string, _, _ time.Time) (domain.Series, error) {
	s.calls++
	return s.bars, nil
}

func (s *stubFetcher) Quote(_ context.Context, _ string) (float64, error) {
	if len(s.bars) == 0 {
		return 0, nil
	}
	return s.bars[len(s.bars)-1].Close, nil
}

func TestCachedFetcher(t *testing.T) {
	ctx := context.Background()

	bars := domain.Series{
		{Symbol: "AAPL", Timestamp: day(2024, time.January, 2), Open: 100, High: 102, Low: 99, Close: 101, Volume: 10000},
		{Symbol: "AAPL", Timestamp: day(2024, time.January, 3), Open: 101, High: 103, Low: 100, Close: 102, Volume: 11000},
	}
	stub := &stubFetcher{bars: bars}
	cf := NewCachedFetcher(stub, store.NewParquetStore(t.TempDir()))

	got, err := cf.Historical(ctx, "AAPL", day(2024, time.January, 2), day(2024, time.January, 3))
	if err != nil {
		t.Fatalf("Historical: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Historical returned %d bars, want 2", len(got))
	}
	if stub.calls != 1 {
		t.Fatalf("inner fetcher called %d times, want 1", stub.calls)
	}

	// Second read of the same range is served from the store.
	got, err = cf.Historical(ctx, "AAPL", day(2024, time.January, 2), day(2024, time.January, 3))
	if err != nil {
		t.Fatalf("Historical cached: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cached Historical returned %d bars, want 2", len(got))
	}
	if stub.calls != 1 {
		t.Errorf("inner fetcher called %d times after cache hit, want 1", stub.calls)
	}
}

func TestCachedFetcherMiss(t *testing.T) {
	ctx := context.Background()

	stub := &stubFetcher{}
	cf := NewCachedFetcher(stub, store.NewParquetStore(t.TempDir()))

	got, err := cf.Historical(ctx, "AAPL", day(2024, time.June, 1), day(2024, time.June, 30))
	if err != nil {
		t.Fatalf("Historical: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Historical returned %d bars, want 0", len(got))
	}
	if stub.calls != 1 {
		t.Errorf("inner fetcher called %d times, want 1", stub.calls)
	}
}
