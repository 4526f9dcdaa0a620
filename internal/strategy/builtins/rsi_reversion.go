package builtins

import (
	"backlab/internal/domain"
	"backlab/internal/indicator"
	"backlab/internal/strategy"
)

const colRSI = "RSI"

// Neutral band used for the early profit-take exit.
const (
	rsiNeutralLow   = 45.0
	rsiNeutralHigh  = 55.0
	profitTakeRatio = 1.02
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSIReversion)(nil)

// RSIReversion implements an RSI mean-reversion strategy: BUY when RSI drops
// into the oversold zone, SELL when it rises into the overbought zone. While
// RSI stays inside a zone the signal repeats; the position-existence guard in
// the runner makes repeats idempotent rather than pyramiding.
type RSIReversion struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIReversion creates an RSIReversion strategy. Non-positive parameters
// fall back to the 14/30/70 defaults.
func NewRSIReversion(period int, oversold, overbought float64) *RSIReversion {
	if period <= 0 {
		period = 14
	}
	if oversold <= 0 {
		oversold = 30
	}
	if overbought <= 0 {
		overbought = 70
	}
	return &RSIReversion{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}
}

// Name returns "rsi-reversion".
func (s *RSIReversion) Name() string { return "rsi-reversion" }

// Warmup returns the RSI period plus one bar for the first price delta.
func (s *RSIReversion) Warmup() int { return s.period + 1 }

// Prepare computes the RSI column over the series closes.
func (s *RSIReversion) Prepare(bars domain.Series) *indicator.Frame {
	f := indicator.NewFrame(bars)
	f.Set(colRSI, indicator.RSI(bars.Closes(), s.period))
	return f
}

// Signal returns BUY when RSI crosses into or remains inside the oversold
// zone, SELL analogously for the overbought zone, and HOLD otherwise. The
// crossing form is the stronger signal; remaining in the zone repeats it.
func (s *RSIReversion) Signal(f *indicator.Frame, i int) domain.Signal {
	if i+1 < s.Warmup() {
		return domain.SignalHold
	}

	rsi := f.At(colRSI, i)
	prev := f.At(colRSI, i-1)

	switch {
	case rsi < s.oversold && prev >= s.oversold:
		return domain.SignalBuy
	case rsi > s.overbought && prev <= s.overbought:
		return domain.SignalSell
	case rsi < s.oversold:
		return domain.SignalBuy
	case rsi > s.overbought:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

// ShouldEnter reports an oversold BUY signal on bar i.
func (s *RSIReversion) ShouldEnter(f *indicator.Frame, i int) bool {
	return s.Signal(f, i) == domain.SignalBuy
}

// ShouldExit fires when RSI reaches the overbought zone, or as an early
// profit-take when RSI has come back to the neutral band and the close sits
// more than 2% above the entry price.
func (s *RSIReversion) ShouldExit(f *indicator.Frame, i int, pos *domain.Position) bool {
	if i+1 < s.Warmup() {
		return false
	}

	rsi := f.At(colRSI, i)
	if rsi > s.overbought {
		return true
	}
	if rsi > rsiNeutralLow && rsi < rsiNeutralHigh {
		return f.Bars[i].Close > pos.EntryPrice*profitTakeRatio
	}
	return false
}
