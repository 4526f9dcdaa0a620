package domain

import (
	"errors"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestValidateSeries(t *testing.T) {
	good := Series{
		{Symbol: "TCS", Timestamp: day(0), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Symbol: "TCS", Timestamp: day(1), Open: 11, High: 13, Low: 10, Close: 12, Volume: 200},
	}
	if err := ValidateSeries(good); err != nil {
		t.Fatalf("ValidateSeries(good) = %v, want nil", err)
	}

	if err := ValidateSeries(nil); err != nil {
		t.Errorf("ValidateSeries(empty) = %v, want nil", err)
	}
}

func TestValidateSeriesRejectsBadBars(t *testing.T) {
	cases := []struct {
		name string
		s    Series
	}{
		{"zero timestamp", Series{{Open: 1, High: 1, Low: 1, Close: 1}}},
		{"non-positive close", Series{{Timestamp: day(0), Open: 1, High: 1, Low: 1, Close: 0}}},
		{"high below low", Series{{Timestamp: day(0), Open: 1, High: 1, Low: 2, Close: 1}}},
		{"negative volume", Series{{Timestamp: day(0), Open: 1, High: 2, Low: 1, Close: 1, Volume: -1}}},
		{
			"non-monotonic timestamps",
			Series{
				{Timestamp: day(1), Open: 1, High: 2, Low: 1, Close: 1},
				{Timestamp: day(1), Open: 1, High: 2, Low: 1, Close: 1},
			},
		},
	}

	for _, tc := range cases {
		err := ValidateSeries(tc.s)
		if err == nil {
			t.Errorf("%s: ValidateSeries returned nil, want DataError", tc.name)
			continue
		}
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("%s: error type = %T, want *DataError", tc.name, err)
		}
	}
}

func TestNewTrade(t *testing.T) {
	pos := &Position{
		Symbol:     "INFY",
		Strategy:   "ma-cross",
		EntryPrice: 100,
		Quantity:   100,
		EntryTime:  day(0),
		Cost:       10000,
	}
	tr := NewTrade(pos, 110, day(5))

	if tr.Profit != 1000 {
		t.Errorf("Profit = %v, want 1000", tr.Profit)
	}
	if tr.ProfitPercent != 10 {
		t.Errorf("ProfitPercent = %v, want 10", tr.ProfitPercent)
	}
	if !tr.ExitTime.Equal(day(5)) {
		t.Errorf("ExitTime = %v, want %v", tr.ExitTime, day(5))
	}
	if tr.Strategy != "ma-cross" {
		t.Errorf("Strategy = %q, want %q", tr.Strategy, "ma-cross")
	}
}
