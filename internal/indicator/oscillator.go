package indicator

import (
	"math"

	"backlab/internal/domain"
)

// RSI computes the relative strength index over close prices. Average gain
// and loss are trailing period-bar simple means of the positive and negative
// price deltas. A zero average loss clamps the output to 100 (50 when the
// average gain is also zero) instead of dividing by zero.
func RSI(values []float64, period int) []float64 {
	n := len(values)
	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i], losses[i] = delta, 0
		} else {
			gains[i], losses[i] = 0, -delta
		}
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	out := nanSlice(n)
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		switch {
		case l == 0 && g == 0:
			out[i] = 50
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out
}

// Stochastic computes the stochastic oscillator. Raw %K measures where the
// close sits inside the trailing period's high-low range; %K is the smoothK
// moving average of the raw line and %D the smoothD moving average of %K.
// A zero range clamps raw %K to 50.
func Stochastic(bars domain.Series, period, smoothK, smoothD int) (k, d []float64) {
	n := len(bars)
	raw := nanSlice(n)
	for i := period - 1; i < n; i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for j := i - period + 1; j <= i; j++ {
			lo = math.Min(lo, bars[j].Low)
			hi = math.Max(hi, bars[j].High)
		}
		if hi == lo {
			raw[i] = 50
			continue
		}
		raw[i] = 100 * (bars[i].Close - lo) / (hi - lo)
	}

	k = SMA(raw, smoothK)
	d = SMA(k, smoothD)
	return k, d
}

// ADX computes the average directional index. Directional movement comes
// from bar-to-bar high and low deltas, the directional indicators divide the
// smoothed movement by ATR, and ADX is the trailing mean of DX.
func ADX(bars domain.Series, period int) []float64 {
	n := len(bars)
	plusDM := nanSlice(n)
	minusDM := nanSlice(n)
	for i := 1; i < n; i++ {
		plusDM[i] = math.Max(bars[i].High-bars[i-1].High, 0)
		minusDM[i] = math.Max(bars[i-1].Low-bars[i].Low, 0)
	}

	atr := ATR(bars, period)
	avgPlus := SMA(plusDM, period)
	avgMinus := SMA(minusDM, period)

	dx := nanSlice(n)
	for i := range dx {
		if math.IsNaN(avgPlus[i]) || math.IsNaN(avgMinus[i]) || math.IsNaN(atr[i]) || atr[i] == 0 {
			continue
		}
		plusDI := 100 * avgPlus[i] / atr[i]
		minusDI := 100 * avgMinus[i] / atr[i]
		if sum := plusDI + minusDI; sum > 0 {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
		} else {
			dx[i] = 0
		}
	}

	return SMA(dx, period)
}
