package fetch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"backlab/internal/domain"
)

// Compile-time interface check.
var _ Fetcher = (*CSVFetcher)(nil)

// CSVFetcher reads daily bars from local CSV files, one file per symbol
// named <SYMBOL>.csv under a directory. Expected columns, with a header
// row: Date, Open, High, Low, Close, Volume.
type CSVFetcher struct {
	Dir string
}

// NewCSVFetcher creates a CSVFetcher reading from the given directory.
func NewCSVFetcher(dir string) *CSVFetcher {
	return &CSVFetcher{Dir: dir}
}

// Historical reads bars for the symbol within [start, end] from its CSV
// file.
func (f *CSVFetcher) Historical(_ context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	symbol = strings.ToUpper(symbol)
	path := fmt.Sprintf("%s/%s.csv", f.Dir, symbol)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 6

	// Skip header.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	var bars domain.Series
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", path, line, err)
		}

		bar, err := parseCSVBar(symbol, record)
		if err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, line, err)
		}
		if bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// Quote returns the close of the last bar in the symbol's file.
func (f *CSVFetcher) Quote(ctx context.Context, symbol string) (float64, error) {
	bars, err := f.Historical(ctx, symbol, time.Time{}, time.Now().AddDate(10, 0, 0))
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no bars for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}

func parseCSVBar(symbol string, record []string) (domain.Bar, error) {
	ts, err := time.Parse("2006-01-02", record[0])
	if err != nil {
		return domain.Bar{}, fmt.Errorf("date %q: %w", record[0], err)
	}

	prices := make([]float64, 4)
	for i, name := range []string{"open", "high", "low", "close"} {
		prices[i], err = strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("%s %q: %w", name, record[i+1], err)
		}
	}

	volume, err := strconv.ParseInt(record[5], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("volume %q: %w", record[5], err)
	}

	return domain.Bar{
		Symbol:    symbol,
		Timestamp: ts.UTC(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}, nil
}
