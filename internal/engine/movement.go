package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/world"
)

// move runs one movement decision for a moving agent: interrupt check,
// target and path resolution, then at most one step.
func (s *Simulation) move(c *agents.TickContext) {
	a := c.Agent

	if rule, ok := agents.Interrupting(c); ok {
		was := a.Destination
		held := append([]string(nil), a.Suppressed...)
		a.GoIdle()
		a.ResetTree()
		a.Tree().Tick(c)
		if a.GoalPriority < rule.Priority {
			// The urge could not be acted on, so the tree fell back to a
			// lower goal. Let that walk run without asking again.
			a.Logger().Debug("interrupt did not take", "rule", rule.Name, "goal", a.Goal)
			a.Suppressed = append(a.Suppressed, held...)
			a.Suppress(rule.Name)
			return
		}
		a.Logger().Info("destination superseded", "rule", rule.Name, "was", was)
		s.record(a.ID, "interrupt", fmt.Sprintf("%s stopped heading to %s (%s)", a.Name, agents.Humanize(was), rule.Name))
		return
	}

	occupied := s.occupied(a)
	if !a.HasPath() {
		if !s.plan(c, occupied) {
			return
		}
	}
	s.step(c, occupied)
}

// occupied returns every cell currently held by another agent.
func (s *Simulation) occupied(self *agents.Agent) world.PointSet {
	set := make(world.PointSet, len(s.Agents))
	for _, a := range s.Agents {
		if a != self {
			set.Add(a.Position)
		}
	}
	return set
}

// candidates lists the cells a destination name can resolve to.
func (s *Simulation) candidates(a *agents.Agent) ([]world.Point, error) {
	dest := a.Destination
	if dest == world.HomeLocation {
		return []world.Point{a.Home}, nil
	}
	if id, ok := agents.AgentDestination(dest); ok {
		other, ok := s.AgentIndex[id]
		if !ok {
			return nil, fmt.Errorf("%w: agent %q", world.ErrUnknownPlace, id)
		}
		return world.Vicinity(other.Position), nil
	}
	pl, err := s.World.Places.Get(dest)
	if err != nil {
		return nil, err
	}
	return pl.Coords, nil
}

// pickTarget chooses and reserves a free cell of the agent's destination.
func (s *Simulation) pickTarget(a *agents.Agent, occupied world.PointSet, exclude ...world.Point) (world.Point, error) {
	cells, err := s.candidates(a)
	if err != nil {
		return world.Point{}, err
	}
	p, ok := world.PickCell(cells, s.World.Grid, occupied, s.res, a.ID, s.rng, exclude...)
	if !ok {
		return world.Point{}, fmt.Errorf("%w: %s", world.ErrSaturated, a.Destination)
	}
	return p, nil
}

// plan resolves a target cell and a path. It reports whether the agent has a
// path to step along; failures send the agent back to idle.
func (s *Simulation) plan(c *agents.TickContext, occupied world.PointSet) bool {
	a := c.Agent
	target, err := s.pickTarget(a, occupied)
	if err != nil {
		if errors.Is(err, world.ErrSaturated) {
			s.abandon(c, fmt.Sprintf("I can't go to %s, there's no space.", agents.Humanize(a.Destination)), err)
		} else {
			s.abandon(c, fmt.Sprintf("I don't know how to get to %s.", agents.Humanize(a.Destination)), err)
		}
		return false
	}

	path, ok := world.FindPath(a.Position, target, s.World.Grid, occupied)
	if !ok {
		s.abandon(c, "I can't find a path to my destination.", world.ErrNoPath)
		return false
	}
	a.SetPath(path)
	if !a.HasPath() {
		s.arrive(c)
		return false
	}
	return true
}

// step moves the agent one cell. A blocked next cell triggers one replan;
// if that fails too the agent holds position and keeps its path.
func (s *Simulation) step(c *agents.TickContext, occupied world.PointSet) {
	a := c.Agent
	next, ok := a.NextStep()
	if !ok {
		return
	}
	if occupied.Has(next) {
		if !s.replan(c, occupied) {
			a.Logger().Debug("blocked, waiting", "at", a.Position, "next", next)
			return
		}
		next, _ = a.NextStep()
	}

	a.Position = next
	a.PathIndex++
	if !a.HasPath() {
		s.arrive(c)
	}
}

// replan picks a different free cell of the same destination and runs one
// BFS. With no other cell available the current target is retried against
// fresh occupancy. The old path is kept when nothing works.
func (s *Simulation) replan(c *agents.TickContext, occupied world.PointSet) bool {
	a := c.Agent
	oldTarget := a.Path[len(a.Path)-1]

	target, err := s.pickTarget(a, occupied, oldTarget)
	if err != nil {
		if occupied.Has(oldTarget) {
			return false
		}
		target = oldTarget
	}

	path, ok := world.FindPath(a.Position, target, s.World.Grid, occupied)
	if !ok || len(path) < 2 {
		return false
	}
	a.SetPath(path)
	return true
}

// arrive resolves the end of a walk: a conversation if the agent came to
// meet someone who is still free, otherwise back to idle.
func (s *Simulation) arrive(c *agents.TickContext) {
	a := c.Agent
	a.Path = nil
	a.PathIndex = 0

	if a.MeetWith == "" {
		a.GoIdle()
		a.ResetTree()
		return
	}

	other, ok := s.AgentIndex[a.MeetWith]
	if ok && other.State == agents.StateIdle && other.Interaction == nil &&
		other.Position != a.Position && a.Position.Touches(other.Position) {
		s.startInteraction(a, other)
		return
	}

	c.Remember("They seemed busy, so I decided not to interrupt.", 0.3)
	a.GoIdle()
	a.ResetTree()
}

// abandon gives up on the current destination.
func (s *Simulation) abandon(c *agents.TickContext, memory string, reason error) {
	a := c.Agent
	a.Logger().Info("giving up on destination", "destination", a.Destination, "reason", reason)
	s.record(a.ID, "movement", fmt.Sprintf("%s gave up on %s", a.Name, agents.Humanize(a.Destination)))
	c.Remember(memory, 0.3)
	a.GoIdle()
	a.ResetTree()
}
