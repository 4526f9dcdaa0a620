// Package backtest replays historical bar series through a strategy against
// a capital ledger and reduces the resulting trades into performance
// statistics.
package backtest

import (
	"errors"
	"math"
	"time"

	"backlab/internal/domain"
)

var (
	// ErrPositionOpen is returned when an entry is attempted while a
	// position is already open for the symbol.
	ErrPositionOpen = errors.New("position already open for symbol")

	// ErrNoPosition is returned when an exit is attempted with no open
	// position for the symbol.
	ErrNoPosition = errors.New("no open position for symbol")

	// ErrInsufficientCapital is returned when an entry would overdraw the
	// available capital.
	ErrInsufficientCapital = errors.New("insufficient available capital")
)

// Ledger tracks capital, open positions, and the realized trade history of a
// single run. Available capital plus the cost of open positions always
// reconciles to the initial capital plus realized profit, and available
// capital never goes negative.
type Ledger struct {
	capital   float64
	available float64
	positions map[string]*domain.Position
	trades    []domain.Trade
	skipped   int
}

// NewLedger creates a ledger seeded with the given initial capital.
func NewLedger(capital float64) *Ledger {
	return &Ledger{
		capital:   capital,
		available: capital,
		positions: make(map[string]*domain.Position),
	}
}

// Capital returns the initial capital.
func (l *Ledger) Capital() float64 { return l.capital }

// Available returns the capital not currently locked in open positions.
func (l *Ledger) Available() float64 { return l.available }

// Position returns the open position for symbol, or nil.
func (l *Ledger) Position(symbol string) *domain.Position {
	return l.positions[symbol]
}

// OpenPositions returns a copy of all open positions.
func (l *Ledger) OpenPositions() []domain.Position {
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// Trades returns the realized trade history in close order.
func (l *Ledger) Trades() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Skipped returns the number of entry signals refused for lack of capital.
func (l *Ledger) Skipped() int { return l.skipped }

// Size computes the entry quantity for a price: the floor of the available
// capital times the position fraction divided by price. A result below one
// share means the entry must be refused; Size returns 0 in that case.
func (l *Ledger) Size(price, fraction float64) int64 {
	if price <= 0 || fraction <= 0 {
		return 0
	}
	qty := int64(math.Floor(l.available * fraction / price))
	if qty < 1 {
		return 0
	}
	return qty
}

// MarkSkipped records an entry signal that was refused for lack of capital.
// A refused entry is a normal no-op, not an error; the run continues.
func (l *Ledger) MarkSkipped() { l.skipped++ }

// Enter opens a position, locking price*qty of available capital.
func (l *Ledger) Enter(symbol, strategy string, price float64, qty int64, ts time.Time) (*domain.Position, error) {
	if _, open := l.positions[symbol]; open {
		return nil, ErrPositionOpen
	}
	cost := price * float64(qty)
	if qty < 1 || cost > l.available {
		return nil, ErrInsufficientCapital
	}

	pos := &domain.Position{
		Symbol:     symbol,
		Strategy:   strategy,
		EntryPrice: price,
		Quantity:   qty,
		EntryTime:  ts,
		Cost:       cost,
	}
	l.positions[symbol] = pos
	l.available -= cost
	return pos, nil
}

// Exit closes the open position for symbol at the given price, credits the
// proceeds back to available capital, and appends the immutable trade
// record.
func (l *Ledger) Exit(symbol string, price float64, ts time.Time) (domain.Trade, error) {
	pos, open := l.positions[symbol]
	if !open {
		return domain.Trade{}, ErrNoPosition
	}

	trade := domain.NewTrade(pos, price, ts)
	l.trades = append(l.trades, trade)
	l.available += price * float64(pos.Quantity)
	delete(l.positions, symbol)
	return trade, nil
}
