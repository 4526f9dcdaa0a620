package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"backlab/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore using Parquet files on disk, one file per
// symbol and year.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// WriteBars writes bars to Parquet files grouped by symbol and year. Writes
// merge with existing data, deduplicating by timestamp with new records
// winning.
func (s *ParquetStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: strings.ToUpper(b.Symbol), year: b.Timestamp.Year()}
		groups[k] = append(groups[k], BarRecord{
			Symbol:    strings.ToUpper(b.Symbol),
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, k.year)

		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads bars for the symbol within [start, end], sorted by
// timestamp. Missing year files are skipped.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	var bars domain.Series
	for year := start.Year(); year <= end.Year(); year++ {
		records, err := readParquetFile[BarRecord](s.barPath(symbol, year))
		if err != nil {
			// No data stored for this year.
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			bars = append(bars, domain.Bar{
				Symbol:    r.Symbol,
				Timestamp: ts,
				Open:      r.Open,
				High:      r.High,
				Low:       r.Low,
				Close:     r.Close,
				Volume:    r.Volume,
			})
		}
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// ListSymbols lists all symbols that have bar data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "bars")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/bars/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "bars", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates records by timestamp, preferring incoming
// over existing ones. Results are sorted by timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
