package agents

import (
	"fmt"
	"sort"

	"github.com/talgya/mini-town/internal/needs"
)

// SleepWindow is the range of hours an agent sleeps. Start > End wraps past
// midnight.
type SleepWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DefaultSleep is used when no trait overrides it.
var DefaultSleep = SleepWindow{Start: 22, End: 7}

// Contains reports whether hour falls in the window.
func (w SleepWindow) Contains(hour int) bool {
	if w.Start == w.End {
		return false
	}
	if w.Start < w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// Trait is what a single personality tag changes about an agent.
type Trait struct {
	HungerRate float64 // multiplier on hunger rise
	SocialRate float64 // multiplier on social need rise
	EnergyRate float64 // multiplier on idle energy loss
	WorkDrain  float64 // multiplier on energy spent working
	// SocialEnergy is the energy change per tick spent socializing.
	SocialEnergy float64
	Sleep        *SleepWindow
	Weights      needs.Weights // multipliers on the default heuristic weights
}

func neutralTrait() Trait {
	return Trait{
		HungerRate: 1, SocialRate: 1, EnergyRate: 1, WorkDrain: 1,
		SocialEnergy: -0.05,
		Weights:      needs.Weights{Hunger: 1, Social: 1, Energy: 1, Money: 1},
	}
}

var traits = map[string]Trait{
	"extrovert": {
		HungerRate: 1, SocialRate: 1.5, EnergyRate: 1, WorkDrain: 1,
		SocialEnergy: 0.05,
		Weights:      needs.Weights{Hunger: 1, Social: 1.5, Energy: 1, Money: 1},
	},
	"introvert": {
		HungerRate: 1, SocialRate: 0.5, EnergyRate: 1, WorkDrain: 1,
		SocialEnergy: -0.15,
		Weights:      needs.Weights{Hunger: 1, Social: 0.6, Energy: 1.2, Money: 1},
	},
	"night_owl": {
		HungerRate: 1, SocialRate: 1, EnergyRate: 1, WorkDrain: 1,
		SocialEnergy: -0.05,
		Sleep:        &SleepWindow{Start: 1, End: 6},
		Weights:      needs.Weights{Hunger: 1, Social: 1, Energy: 1, Money: 1},
	},
	"sleepyhead": {
		HungerRate: 1, SocialRate: 1, EnergyRate: 1.2, WorkDrain: 1,
		SocialEnergy: -0.05,
		Sleep:        &SleepWindow{Start: 22, End: 10},
		Weights:      needs.Weights{Hunger: 1, Social: 1, Energy: 1.3, Money: 1},
	},
	"fatigue_prone": {
		HungerRate: 1, SocialRate: 1, EnergyRate: 1.2, WorkDrain: 1.5,
		SocialEnergy: -0.05,
		Weights:      needs.Weights{Hunger: 1, Social: 1, Energy: 1.3, Money: 1},
	},
	"glutton": {
		HungerRate: 1.3, SocialRate: 1, EnergyRate: 1, WorkDrain: 1,
		SocialEnergy: -0.05,
		Weights:      needs.Weights{Hunger: 1.4, Social: 1, Energy: 1, Money: 1},
	},
	"frugal": {
		HungerRate: 1, SocialRate: 1, EnergyRate: 1, WorkDrain: 1,
		SocialEnergy: -0.05,
		Weights:      needs.Weights{Hunger: 1, Social: 1, Energy: 1, Money: 3},
	},
	"ambitious": {
		HungerRate: 1, SocialRate: 1, EnergyRate: 1, WorkDrain: 1.2,
		SocialEnergy: -0.05,
		Weights:      needs.Weights{Hunger: 1, Social: 0.8, Energy: 1, Money: 2},
	},
}

// KnownTraits returns every supported personality tag, sorted.
func KnownTraits() []string {
	out := make([]string, 0, len(traits))
	for k := range traits {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Personality is an agent's set of trait tags.
type Personality []string

// Validate rejects unknown tags.
func (p Personality) Validate() error {
	for _, tag := range p {
		if _, ok := traits[tag]; !ok {
			return fmt.Errorf("unknown personality trait %q", tag)
		}
	}
	return nil
}

// Has reports whether the personality includes tag.
func (p Personality) Has(tag string) bool {
	for _, t := range p {
		if t == tag {
			return true
		}
	}
	return false
}

// Profile folds every tag into one trait. Rates and weights multiply,
// social energy takes the last tag that changes it, and the sleep window is
// the last one declared.
func (p Personality) Profile() Trait {
	out := neutralTrait()
	for _, tag := range p {
		t, ok := traits[tag]
		if !ok {
			continue
		}
		out.HungerRate *= t.HungerRate
		out.SocialRate *= t.SocialRate
		out.EnergyRate *= t.EnergyRate
		out.WorkDrain *= t.WorkDrain
		if t.SocialEnergy != neutralTrait().SocialEnergy {
			out.SocialEnergy = t.SocialEnergy
		}
		if t.Sleep != nil {
			out.Sleep = t.Sleep
		}
		out.Weights = out.Weights.Scale(t.Weights)
	}
	return out
}

// SleepWindow returns when the agent sleeps.
func (p Personality) SleepWindow() SleepWindow {
	if w := p.Profile().Sleep; w != nil {
		return *w
	}
	return DefaultSleep
}

// Weights returns the heuristic weights for this personality.
func (p Personality) Weights() needs.Weights {
	return needs.DefaultWeights().Scale(p.Profile().Weights)
}
