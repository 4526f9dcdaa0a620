package backtest

import "backlab/internal/domain"

// Stats aggregates the realized trades of one run. All ratios are guarded:
// a run with zero trades produces all-zero stats with the final capital
// equal to the initial capital.
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	AvgProfit     float64
	AvgWin        float64
	AvgLoss       float64
	MaxProfit     float64
	MaxLoss       float64
	FinalCapital  float64
	ReturnPercent float64
}

// ComputeStats reduces an ordered trade list into aggregate performance
// statistics for a run that started with the given capital. Only realized
// profit counts; the runner force-closes positions, so there is never
// unrealized P&L at the end of a run.
func ComputeStats(trades []domain.Trade, capital float64) Stats {
	s := Stats{FinalCapital: capital}
	if len(trades) == 0 {
		return s
	}

	var winSum, lossSum float64
	var lossCount int
	for i, tr := range trades {
		p := tr.Profit
		s.TotalProfit += p
		if p > 0 {
			s.WinningTrades++
			winSum += p
		} else if p < 0 {
			lossCount++
			lossSum += p
		}
		if i == 0 || p > s.MaxProfit {
			s.MaxProfit = p
		}
		if i == 0 || p < s.MaxLoss {
			s.MaxLoss = p
		}
	}

	s.TotalTrades = len(trades)
	// Break-even trades count as losers, matching the win-rate denominator.
	s.LosingTrades = s.TotalTrades - s.WinningTrades
	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	s.AvgProfit = s.TotalProfit / float64(s.TotalTrades)
	if s.WinningTrades > 0 {
		s.AvgWin = winSum / float64(s.WinningTrades)
	}
	if lossCount > 0 {
		s.AvgLoss = lossSum / float64(lossCount)
	}
	s.FinalCapital = capital + s.TotalProfit
	if capital > 0 {
		s.ReturnPercent = (s.FinalCapital - capital) / capital * 100
	}
	return s
}
