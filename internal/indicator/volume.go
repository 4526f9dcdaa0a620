package indicator

import "backlab/internal/domain"

// OBV computes on-balance volume: a running sum of volume signed by the
// direction of the close-to-close change. An unchanged close contributes
// nothing.
func OBV(bars domain.Series) []float64 {
	out := make([]float64, len(bars))
	cum := 0.0
	for i, b := range bars {
		if i > 0 {
			switch {
			case b.Close > bars[i-1].Close:
				cum += float64(b.Volume)
			case b.Close < bars[i-1].Close:
				cum -= float64(b.Volume)
			}
		}
		out[i] = cum
	}
	return out
}

// VWAP computes the volume-weighted average price cumulatively from the
// start of the series; there is no session reset. While cumulative volume is
// zero the typical price is used so the column stays finite.
func VWAP(bars domain.Series) []float64 {
	out := make([]float64, len(bars))
	var cumPV, cumVol float64
	for i, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		cumPV += typical * float64(b.Volume)
		cumVol += float64(b.Volume)
		if cumVol == 0 {
			out[i] = typical
			continue
		}
		out[i] = cumPV / cumVol
	}
	return out
}
