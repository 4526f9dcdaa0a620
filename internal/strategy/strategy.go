// Package strategy defines the Strategy interface for rule-based trading
// strategies and provides a Registry for managing multiple strategy
// implementations.
package strategy

import (
	"sort"

	"backlab/internal/domain"
	"backlab/internal/indicator"
)

// Strategy is the interface that all trading strategies implement. Every
// per-bar method receives an indicator frame plus the current bar index i and
// must base its decision only on bars [0..i]; all indicator columns are
// trailing-window, so evaluation at i is identical whether the frame was
// built from the full series or just the prefix.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Warmup returns the number of bars the strategy needs before it can
	// produce a non-HOLD signal.
	Warmup() int

	// Prepare computes the indicator columns the strategy consults and
	// returns them as a frame over the given series.
	Prepare(bars domain.Series) *indicator.Frame

	// Signal returns the trading signal for bar i.
	Signal(f *indicator.Frame, i int) domain.Signal

	// ShouldEnter reports whether a new position should be opened on bar i.
	// The caller guarantees no position is currently open.
	ShouldEnter(f *indicator.Frame, i int) bool

	// ShouldExit reports whether the open position should be closed on bar i.
	ShouldExit(f *indicator.Frame, i int, pos *domain.Position) bool
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
