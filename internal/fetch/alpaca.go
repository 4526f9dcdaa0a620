package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"backlab/internal/domain"
	"backlab/internal/util"
)

// Compile-time interface check.
var _ Fetcher = (*AlpacaFetcher)(nil)

// AlpacaFetcher retrieves daily bars for US equities via the Alpaca
// market-data API.
type AlpacaFetcher struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	retries int
	log     *slog.Logger
}

// NewAlpacaFetcher creates an AlpacaFetcher configured with the given
// credentials. dataURL overrides the default market-data endpoint when
// non-empty. requestsPerMinute bounds the outbound request rate.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL string, requestsPerMinute int) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 200
	}

	return &AlpacaFetcher{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(requestsPerMinute),
		retries: 3,
		log:     slog.Default().With("fetcher", "alpaca"),
	}
}

// Historical fetches daily bars for the symbol within [start, end].
func (f *AlpacaFetcher) Historical(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(symbol)

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, f.retries, time.Second, func() error {
		var err error
		alpacaBars, err = f.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make(domain.Series, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: ab.Timestamp,
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}

	f.log.Debug("fetched bars", "symbol", symbol, "count", len(bars))
	return bars, nil
}

// Quote returns the price of the latest trade for the symbol.
func (f *AlpacaFetcher) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	symbol = strings.ToUpper(symbol)

	var trade *marketdata.Trade
	err := util.Retry(ctx, f.retries, time.Second, func() error {
		var err error
		trade, err = f.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("GetLatestTrade %s: %w", symbol, err)
	}
	return trade.Price, nil
}
