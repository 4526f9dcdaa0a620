package indicator

import (
	"math"

	"backlab/internal/domain"
)

// Bollinger computes Bollinger Bands: the middle band is the period SMA of
// values, the upper and lower bands sit k sample standard deviations away.
func Bollinger(values []float64, period int, k float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	upper = nanSlice(len(values))
	lower = nanSlice(len(values))

	for i := period - 1; i < len(values); i++ {
		if math.IsNaN(middle[i]) {
			continue
		}
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - middle[i]
			sq += d * d
		}
		// Sample standard deviation (n-1 denominator).
		std := 0.0
		if period > 1 {
			std = math.Sqrt(sq / float64(period-1))
		}
		upper[i] = middle[i] + k*std
		lower[i] = middle[i] - k*std
	}
	return upper, middle, lower
}

// ATR computes the average true range: the trailing period mean of the true
// range, where TR is the largest of high-low, |high-prevClose| and
// |low-prevClose|. The first bar has no previous close, so its TR is
// high-low.
func ATR(bars domain.Series, period int) []float64 {
	n := len(bars)
	tr := nanSlice(n)
	for i := 0; i < n; i++ {
		hl := bars[i].High - bars[i].Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(hl, math.Max(
			math.Abs(bars[i].High-prevClose),
			math.Abs(bars[i].Low-prevClose),
		))
	}
	return SMA(tr, period)
}
