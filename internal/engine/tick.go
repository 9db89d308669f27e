// Package engine provides the town scheduler and the real-time loop that
// drives it.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/talgya/mini-town/internal/agents"
)

// Engine drives a Simulation in real time on a go-behaviortree ticker. Every
// interval it runs a two-node sequence: a pause gate, then one simulation
// tick.
type Engine struct {
	Interval time.Duration // real time between ticks

	// Callbacks run on the ticker goroutine after each tick, outside the lock.
	OnTick func(Result)
	OnDay  func(DayChanged)

	sim    *Simulation
	mu     sync.RWMutex
	paused atomic.Bool
	last   Snapshot
}

// NewEngine creates an engine for sim with a one-second interval.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Interval: time.Second,
		sim:      sim,
		last:     sim.Snapshot(),
	}
}

// Run starts the loop and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.sim.CurrentTick(), "interval", e.Interval, "run", e.sim.RunID)

	root := bt.New(bt.Sequence, bt.New(e.gate), bt.New(e.step))
	ticker := bt.NewTicker(ctx, e.Interval, root)
	<-ticker.Done()

	err := ticker.Err()
	slog.Info("simulation engine stopped", "tick", e.sim.CurrentTick())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (e *Engine) gate([]bt.Node) (bt.Status, error) {
	if e.paused.Load() {
		return bt.Failure, nil
	}
	return bt.Success, nil
}

func (e *Engine) step([]bt.Node) (bt.Status, error) {
	e.Step()
	return bt.Success, nil
}

// Step runs exactly one tick regardless of the pause gate.
func (e *Engine) Step() Result {
	e.mu.Lock()
	res := e.sim.Tick()
	e.last = res.Snapshot
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(res)
	}
	if res.DayChanged != nil && e.OnDay != nil {
		e.OnDay(*res.DayChanged)
	}
	return res
}

// Pause stops ticks from running until Resume.
func (e *Engine) Pause() {
	if !e.paused.Swap(true) {
		slog.Info("simulation paused", "tick", e.sim.CurrentTick())
	}
}

// Resume lets ticks run again.
func (e *Engine) Resume() {
	if e.paused.Swap(false) {
		slog.Info("simulation resumed", "tick", e.sim.CurrentTick())
	}
}

// Paused reports whether the pause gate is closed.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

// Snapshot returns the state published by the last tick.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Stats returns current aggregate statistics.
func (e *Engine) Stats() SimStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sim.updateStats()
	return e.sim.Stats
}

// RecentEvents returns up to n of the latest events, newest last.
func (e *Engine) RecentEvents(n int) []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	evs := e.sim.Events
	if n > 0 && len(evs) > n {
		evs = evs[len(evs)-n:]
	}
	out := make([]Event, len(evs))
	copy(out, evs)
	return out
}

// Memories returns an agent's memories. A negative day returns all of them,
// most recent first.
func (e *Engine) Memories(agentID string, day int) ([]agents.Memory, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.sim.AgentIndex[agentID]
	if !ok {
		return nil, false
	}
	if day < 0 {
		return a.RecentMemories(agents.MaxMemories), true
	}
	return a.MemoriesForDay(day), true
}

// AgentName returns the display name for an agent id.
func (e *Engine) AgentName(agentID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.sim.AgentIndex[agentID]
	if !ok {
		return "", false
	}
	return a.Name, true
}
