package indicator

import "math"

// SMA computes the trailing simple moving average of values. The first
// period-1 entries are NaN; a NaN inside the window propagates to its output.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with smoothing factor
// alpha = 2/(period+1). The first output equals the first input; there is no
// separate SMA seed.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the MACD line (fast EMA minus slow EMA), the signal line
// (EMA of the MACD line), and the histogram (MACD minus signal).
func MACD(values []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	sig = EMA(macd, signal)

	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
