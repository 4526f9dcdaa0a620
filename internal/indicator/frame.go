// Package indicator computes technical indicators over OHLCV series. Every
// function is a pure transform: it reads a series, never mutates it, and
// returns a column aligned 1:1 with the input bars. Entries inside an
// indicator's warm-up window are NaN.
package indicator

import (
	"math"

	"backlab/internal/domain"
)

// Column names used by the stock frame produced by AddAll.
const (
	ColSMA20      = "SMA_20"
	ColSMA50      = "SMA_50"
	ColSMA200     = "SMA_200"
	ColEMA12      = "EMA_12"
	ColEMA26      = "EMA_26"
	ColRSI        = "RSI"
	ColMACD       = "MACD"
	ColMACDSignal = "MACD_Signal"
	ColMACDHist   = "MACD_Hist"
	ColBBUpper    = "BB_Upper"
	ColBBMiddle   = "BB_Middle"
	ColBBLower    = "BB_Lower"
	ColATR        = "ATR"
	ColStochK     = "Stoch_K"
	ColStochD     = "Stoch_D"
	ColADX        = "ADX"
	ColOBV        = "OBV"
	ColVWAP       = "VWAP"
)

// Frame is a bar series augmented with named indicator columns. Each column
// has exactly one value per bar.
type Frame struct {
	Bars    domain.Series
	columns map[string][]float64
}

// NewFrame creates an empty frame over the given bars.
func NewFrame(bars domain.Series) *Frame {
	return &Frame{
		Bars:    bars,
		columns: make(map[string][]float64),
	}
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Bars) }

// Set stores a column under the given name. The column length must match the
// bar count.
func (f *Frame) Set(name string, col []float64) {
	if len(col) != len(f.Bars) {
		panic("indicator: column length does not match bar count")
	}
	f.columns[name] = col
}

// Column returns the named column. The second return value reports whether
// the column exists.
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.columns[name]
	return col, ok
}

// At returns the value of the named column at index i, or NaN when the
// column is absent.
func (f *Frame) At(name string, i int) float64 {
	col, ok := f.columns[name]
	if !ok {
		return math.NaN()
	}
	return col[i]
}

// AddAll computes the full stock indicator set over the series and returns
// the resulting frame.
func AddAll(bars domain.Series) *Frame {
	f := NewFrame(bars)
	closes := bars.Closes()

	f.Set(ColSMA20, SMA(closes, 20))
	f.Set(ColSMA50, SMA(closes, 50))
	f.Set(ColSMA200, SMA(closes, 200))
	f.Set(ColEMA12, EMA(closes, 12))
	f.Set(ColEMA26, EMA(closes, 26))

	f.Set(ColRSI, RSI(closes, 14))

	macd, signal, hist := MACD(closes, 12, 26, 9)
	f.Set(ColMACD, macd)
	f.Set(ColMACDSignal, signal)
	f.Set(ColMACDHist, hist)

	upper, middle, lower := Bollinger(closes, 20, 2)
	f.Set(ColBBUpper, upper)
	f.Set(ColBBMiddle, middle)
	f.Set(ColBBLower, lower)

	f.Set(ColATR, ATR(bars, 14))

	k, d := Stochastic(bars, 14, 3, 3)
	f.Set(ColStochK, k)
	f.Set(ColStochD, d)

	f.Set(ColADX, ADX(bars, 14))
	f.Set(ColOBV, OBV(bars))
	f.Set(ColVWAP, VWAP(bars))

	return f
}
