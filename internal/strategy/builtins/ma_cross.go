// Package builtins provides the built-in strategy implementations that ship
// with backlab.
package builtins

import (
	"backlab/internal/domain"
	"backlab/internal/indicator"
	"backlab/internal/strategy"
)

// Column names private to the MA crossover frame.
const (
	colMAShort = "MA_Short"
	colMALong  = "MA_Long"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACross)(nil)

// MACross implements a simple moving average crossover strategy. It signals
// BUY on the bar where the short-period SMA first crosses above the
// long-period SMA (golden cross) and SELL on the opposite transition (death
// cross).
type MACross struct {
	shortPeriod int
	longPeriod  int
}

// NewMACross creates a MACross strategy with the given short and long moving
// average periods. Non-positive periods fall back to the 20/50 defaults.
func NewMACross(short, long int) *MACross {
	if short <= 0 {
		short = 20
	}
	if long <= 0 {
		long = 50
	}
	return &MACross{
		shortPeriod: short,
		longPeriod:  long,
	}
}

// Name returns "ma-cross".
func (s *MACross) Name() string { return "ma-cross" }

// Warmup returns the long moving average period.
func (s *MACross) Warmup() int { return s.longPeriod }

// Prepare computes the short and long SMA columns over the series closes.
func (s *MACross) Prepare(bars domain.Series) *indicator.Frame {
	f := indicator.NewFrame(bars)
	closes := bars.Closes()
	f.Set(colMAShort, indicator.SMA(closes, s.shortPeriod))
	f.Set(colMALong, indicator.SMA(closes, s.longPeriod))
	return f
}

// Signal returns BUY exactly on a golden cross, SELL exactly on a death
// cross, and HOLD otherwise. Bars inside the warm-up window always HOLD.
func (s *MACross) Signal(f *indicator.Frame, i int) domain.Signal {
	if i+1 < s.longPeriod || i == 0 {
		return domain.SignalHold
	}

	diff := f.At(colMAShort, i) - f.At(colMALong, i)
	prev := f.At(colMAShort, i-1) - f.At(colMALong, i-1)

	// NaN comparisons are false, so an undefined previous diff (the first
	// bar after warm-up) never fires a cross.
	switch {
	case diff > 0 && prev <= 0:
		return domain.SignalBuy
	case diff < 0 && prev >= 0:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

// ShouldEnter reports a golden cross on bar i.
func (s *MACross) ShouldEnter(f *indicator.Frame, i int) bool {
	return s.Signal(f, i) == domain.SignalBuy
}

// ShouldExit reports a death cross on bar i.
func (s *MACross) ShouldExit(f *indicator.Frame, i int, _ *domain.Position) bool {
	return s.Signal(f, i) == domain.SignalSell
}
