package agents

import (
	"github.com/talgya/mini-town/internal/needs"
	"github.com/talgya/mini-town/internal/world"
)

// Per-tick drift with nothing in particular going on.
const (
	baseHunger = 0.2
	baseSocial = 0.1
	baseEnergy = -0.05
)

// Category is the kind of thing the agent is doing right now for needs
// purposes. Walking and idling count as free time.
func (a *Agent) Category() world.Category {
	switch a.State {
	case StateInteracting:
		return world.CategorySocialize
	case StateDoingAction:
		return a.Doing
	}
	return world.CategoryFree
}

// UpdateNeeds applies one tick of need drift.
func (a *Agent) UpdateNeeds() {
	a.Needs = a.Needs.Add(NeedsDelta(a.Personality.Profile(), a.Category()))
}

// NeedsDelta is the per-tick change for a personality doing cat.
func NeedsDelta(t Trait, cat world.Category) needs.Vector {
	d := needs.Vector{
		Hunger: baseHunger * t.HungerRate,
		Social: baseSocial * t.SocialRate,
		Energy: baseEnergy * t.EnergyRate,
	}

	switch cat {
	case world.CategorySleep:
		d.Hunger = 0.05 * t.HungerRate
		d.Social = 0.02 * t.SocialRate
		d.Energy = 0.6
	case world.CategoryWork:
		d.Hunger = 0.25 * t.HungerRate
		d.Energy = -0.15 * t.WorkDrain
	case world.CategoryEat:
		d.Hunger = -1.5
	case world.CategorySocialize:
		d.Social = -1.0
		d.Energy = t.SocialEnergy
	case world.CategoryStudy:
		d.Energy = -0.1 * t.WorkDrain
	case world.CategoryRelax:
		d.Energy = 0.2
	}
	return d
}
