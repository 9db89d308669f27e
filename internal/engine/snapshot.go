package engine

import (
	"fmt"

	"github.com/talgya/mini-town/internal/needs"
	"github.com/talgya/mini-town/internal/world"
)

// AgentSnapshot is an immutable copy of one agent's visible state.
type AgentSnapshot struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Icon            string       `json:"icon"`
	Color           string       `json:"color"`
	Position        world.Point  `json:"position"`
	Activity        string       `json:"activity,omitempty"`
	Goal            string       `json:"goal"`
	Action          string       `json:"action"`
	State           string       `json:"state"`
	Needs           needs.Vector `json:"needs"`
	Money           float64      `json:"money"`
	InteractingWith string       `json:"interacting_with,omitempty"`
}

// Snapshot is the town as of the end of a tick.
type Snapshot struct {
	RunID    string          `json:"run_id"`
	Tick     uint64          `json:"tick"`
	Time     string          `json:"time"`
	Hour     int             `json:"hour"`
	Minute   int             `json:"minute"`
	Day      string          `json:"day"`
	DayIndex int             `json:"day_index"`
	Agents   []AgentSnapshot `json:"agents"`
}

// Snapshot copies the current state of every agent, in roster order.
func (s *Simulation) Snapshot() Snapshot {
	clock := s.World.Clock
	snap := Snapshot{
		RunID:    s.RunID,
		Tick:     s.tick,
		Time:     fmt.Sprintf("%02d:%02d", clock.Hour, clock.Minute),
		Hour:     clock.Hour,
		Minute:   clock.Minute,
		Day:      clock.DayName(),
		DayIndex: clock.Day,
		Agents:   make([]AgentSnapshot, len(s.Agents)),
	}
	for i, a := range s.Agents {
		snap.Agents[i] = AgentSnapshot{
			ID:              a.ID,
			Name:            a.Name,
			Icon:            a.Icon,
			Color:           a.Color,
			Position:        a.Position,
			Activity:        a.Activity,
			Goal:            a.Goal,
			Action:          a.Action,
			State:           a.State.String(),
			Needs:           a.Needs,
			Money:           a.Money,
			InteractingWith: a.InteractingWith,
		}
	}
	return snap
}

// Agent returns the snapshot of one agent.
func (snap Snapshot) Agent(id string) (AgentSnapshot, bool) {
	for _, a := range snap.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentSnapshot{}, false
}
