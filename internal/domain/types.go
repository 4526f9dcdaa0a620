// Package domain defines the core data types shared across backlab: OHLCV
// bars, trading signals, open positions, and executed trades.
package domain

import "time"

// Signal is a discrete trading decision produced by a strategy for one bar.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Bar is a single OHLCV observation.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Series is a chronologically ordered sequence of bars. Timestamps must be
// strictly increasing; ValidateSeries enforces this.
type Series []Bar

// Closes returns the close price of every bar.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Position is an open holding in a single symbol. At most one position per
// symbol may be open at a time.
type Position struct {
	Symbol     string
	Strategy   string
	EntryPrice float64
	Quantity   int64
	EntryTime  time.Time
	Cost       float64

	// StopLoss and Target are optional protective levels; zero means unset.
	StopLoss float64
	Target   float64
}

// Trade is the immutable record of a closed position. It is created exactly
// once when a position exits and never mutated afterward.
type Trade struct {
	Symbol        string
	Strategy      string
	EntryPrice    float64
	ExitPrice     float64
	EntryTime     time.Time
	ExitTime      time.Time
	Quantity      int64
	Profit        float64
	ProfitPercent float64
}

// SignalEvent records a signal emitted for a symbol at a point in time,
// for persistence and later review.
type SignalEvent struct {
	Symbol    string
	Strategy  string
	Signal    Signal
	Price     float64
	Timestamp time.Time
}

// NewTrade closes the given position at the exit price and time, computing
// realized profit.
func NewTrade(pos *Position, exitPrice float64, exitTime time.Time) Trade {
	profit := (exitPrice - pos.EntryPrice) * float64(pos.Quantity)
	return Trade{
		Symbol:        pos.Symbol,
		Strategy:      pos.Strategy,
		EntryPrice:    pos.EntryPrice,
		ExitPrice:     exitPrice,
		EntryTime:     pos.EntryTime,
		ExitTime:      exitTime,
		Quantity:      pos.Quantity,
		Profit:        profit,
		ProfitPercent: profit / pos.Cost * 100,
	}
}
