package scheduler

import "sync/atomic"

// Gate is the externally toggled enable switch for one trigger pipeline. The
// HTTP handlers flip it; the orchestrator reads it at the top of every tick.
type Gate struct {
	enabled atomic.Bool
}

// NewGate creates a Gate in the given initial state.
func NewGate(enabled bool) *Gate {
	g := &Gate{}
	g.enabled.Store(enabled)
	return g
}

// Enabled reports whether the pipeline is active.
func (g *Gate) Enabled() bool { return g.enabled.Load() }

// Enable activates the pipeline.
func (g *Gate) Enable() { g.enabled.Store(true) }

// Disable deactivates the pipeline.
func (g *Gate) Disable() { g.enabled.Store(false) }
