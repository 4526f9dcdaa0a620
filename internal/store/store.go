// Package store defines storage interfaces for persisting and retrieving
// domain objects: OHLCV bars, executed trades, emitted signals, and open
// positions.
package store

import (
	"context"
	"time"

	"backlab/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// sorted by timestamp.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error)

	// ListSymbols returns all distinct symbols available in storage.
	ListSymbols(ctx context.Context) ([]string, error)
}

// TradeStore persists and retrieves executed trade records.
type TradeStore interface {
	// SaveTrade inserts a closed trade into storage.
	SaveTrade(ctx context.Context, trade *domain.Trade) error

	// ListTrades returns the most recent trades for a strategy, up to
	// limit. An empty strategy matches all strategies.
	ListTrades(ctx context.Context, strategy string, limit int) ([]domain.Trade, error)
}

// SignalStore persists and retrieves emitted trading signals.
type SignalStore interface {
	// SaveSignal inserts a signal event into storage.
	SaveSignal(ctx context.Context, ev *domain.SignalEvent) error

	// ListSignals returns the most recent signals for a strategy, up to
	// limit. An empty strategy matches all strategies.
	ListSignals(ctx context.Context, strategy string, limit int) ([]domain.SignalEvent, error)
}

// PositionStore persists and retrieves open position records.
type PositionStore interface {
	// SavePosition inserts or updates the position for a symbol.
	SavePosition(ctx context.Context, pos *domain.Position) error

	// GetPosition retrieves the open position for a symbol, or nil when
	// none exists.
	GetPosition(ctx context.Context, symbol string) (*domain.Position, error)

	// ListPositions returns all open positions.
	ListPositions(ctx context.Context) ([]domain.Position, error)

	// DeletePosition removes the position for a symbol.
	DeletePosition(ctx context.Context, symbol string) error
}
