// Agent spawning: turns configured residents into live agents with their
// starting needs and behavior tree.
package agents

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/mini-town/internal/needs"
	"github.com/talgya/mini-town/internal/world"
)

// Spec describes one configured resident.
type Spec struct {
	ID          string
	Name        string
	Icon        string
	Color       string
	Home        world.Point
	WorkPlace   string
	Personality Personality
	Schedule    Schedule
	Money       float64
}

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	acts   world.Activities
	grid   *world.Grid
	tree   TreeConfig
	logger *slog.Logger
}

// NewSpawner creates an agent spawner with the given seed.
func NewSpawner(seed int64, g *world.Grid, acts world.Activities, tree TreeConfig, logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		acts:   acts,
		grid:   g,
		tree:   tree,
		logger: logger,
	}
}

// Spawn creates an agent at its home. Hunger and social start at random
// moderate levels; energy starts full.
func (s *Spawner) Spawn(spec Spec) (*Agent, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("agent %q has no id", spec.Name)
	}
	if !s.grid.Walkable(spec.Home) {
		return nil, fmt.Errorf("agent %s: home %v is not walkable", spec.ID, spec.Home)
	}
	if err := spec.Personality.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", spec.ID, err)
	}
	if err := spec.Schedule.Validate(s.acts); err != nil {
		return nil, fmt.Errorf("agent %s: %w", spec.ID, err)
	}

	a := &Agent{
		ID:          spec.ID,
		Name:        spec.Name,
		Icon:        spec.Icon,
		Color:       spec.Color,
		Position:    spec.Home,
		Home:        spec.Home,
		WorkPlace:   spec.WorkPlace,
		Personality: spec.Personality,
		Schedule:    spec.Schedule,
		Money:       spec.Money,
		Needs: needs.Vector{
			Hunger: float64(20 + s.rng.Intn(41)),
			Social: float64(40 + s.rng.Intn(41)),
			Energy: needs.Max,
		},
		Goal:   "Idle",
		Action: "Waking up",
		State:  StateIdle,
	}
	a.SetLogger(s.logger)

	if err := BuildTree(a, s.acts, s.tree); err != nil {
		return nil, err
	}
	return a, nil
}

// SpawnAll spawns every spec, failing on the first error or duplicate id.
func (s *Spawner) SpawnAll(specs []Spec) ([]*Agent, error) {
	seen := make(map[string]bool, len(specs))
	out := make([]*Agent, 0, len(specs))
	for _, spec := range specs {
		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate agent id %q", spec.ID)
		}
		seen[spec.ID] = true

		a, err := s.Spawn(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
