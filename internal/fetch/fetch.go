// Package fetch retrieves historical OHLCV bar data from external providers
// and local files.
package fetch

import (
	"context"
	"time"

	"backlab/internal/domain"
)

// Fetcher retrieves historical daily bars and current prices for a symbol.
type Fetcher interface {
	// Historical returns daily bars for the symbol within [start, end],
	// sorted by timestamp.
	Historical(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error)

	// Quote returns the most recent traded price for the symbol.
	Quote(ctx context.Context, symbol string) (float64, error)
}
