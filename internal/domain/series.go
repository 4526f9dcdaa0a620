package domain

import "fmt"

// DataError reports a malformed bar or a broken series invariant. A failed
// validation aborts a backtest before simulation starts; no partial run is
// produced.
type DataError struct {
	Index  int
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("bad bar at index %d: %s", e.Index, e.Reason)
}

// ValidateSeries checks every bar for well-formed OHLCV fields and verifies
// that timestamps are strictly increasing. An empty series is valid; callers
// treat it as the zero-trade boundary case.
func ValidateSeries(s Series) error {
	for i, b := range s {
		switch {
		case b.Timestamp.IsZero():
			return &DataError{Index: i, Reason: "zero timestamp"}
		case b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0:
			return &DataError{Index: i, Reason: "non-positive price field"}
		case b.High < b.Low:
			return &DataError{Index: i, Reason: fmt.Sprintf("high %v below low %v", b.High, b.Low)}
		case b.Volume < 0:
			return &DataError{Index: i, Reason: "negative volume"}
		}
		if i > 0 && !s[i-1].Timestamp.Before(b.Timestamp) {
			return &DataError{Index: i, Reason: "timestamp not after previous bar"}
		}
	}
	return nil
}
