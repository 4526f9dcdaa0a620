package builtins

import (
	"fmt"

	"backlab/internal/strategy"
)

// Strategy kinds recognized by the configuration surface.
const (
	KindMACrossover = "MA_CROSSOVER"
	KindRSI         = "RSI"
)

// Params carries the tunable parameters for the built-in strategies. Zero
// values select the defaults of the respective strategy.
type Params struct {
	ShortPeriod int
	LongPeriod  int
	RSIPeriod   int
	Oversold    float64
	Overbought  float64
}

// New constructs a built-in strategy of the given kind.
func New(kind string, p Params) (strategy.Strategy, error) {
	switch kind {
	case KindMACrossover:
		return NewMACross(p.ShortPeriod, p.LongPeriod), nil
	case KindRSI:
		return NewRSIReversion(p.RSIPeriod, p.Oversold, p.Overbought), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
}

// DefaultRegistry returns a registry with every built-in strategy registered
// under its default parameters.
func DefaultRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NewMACross(0, 0))
	r.Register(NewRSIReversion(0, 0, 0))
	return r
}
