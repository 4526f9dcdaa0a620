package strategy

import (
	"testing"

	"backlab/internal/domain"
	"backlab/internal/indicator"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string   { return s.name }
func (s *stubStrategy) Warmup() int    { return 0 }
func (s *stubStrategy) Prepare(bars domain.Series) *indicator.Frame {
	return indicator.NewFrame(bars)
}
func (s *stubStrategy) Signal(_ *indicator.Frame, _ int) domain.Signal { return domain.SignalHold }
func (s *stubStrategy) ShouldEnter(_ *indicator.Frame, _ int) bool     { return false }
func (s *stubStrategy) ShouldExit(_ *indicator.Frame, _ int, _ *domain.Position) bool {
	return false
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &stubStrategy{name: "test-strategy"}

	r.Register(s)

	got, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Get returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "alpha"})
	r.Register(&stubStrategy{name: "beta"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}
