// Package needs defines the bounded need vector shared by agents and the
// heuristic evaluator.
package needs

// Min and Max bound every need value.
const (
	Min = 0.0
	Max = 100.0
)

// Vector holds an agent's needs. Hunger and Social rise when unmet; Energy
// falls when unmet.
type Vector struct {
	Hunger float64 `json:"hunger"`
	Social float64 `json:"social"`
	Energy float64 `json:"energy"`
}

// Clamp returns a copy with every need bounded to [Min, Max].
func (v Vector) Clamp() Vector {
	v.Hunger = clamp(v.Hunger)
	v.Social = clamp(v.Social)
	v.Energy = clamp(v.Energy)
	return v
}

// Add returns v+d, clamped.
func (v Vector) Add(d Vector) Vector {
	return Vector{
		Hunger: v.Hunger + d.Hunger,
		Social: v.Social + d.Social,
		Energy: v.Energy + d.Energy,
	}.Clamp()
}

// Pressure maps every need onto a scale where higher always means more urgent.
func (v Vector) Pressure() Vector {
	return Vector{
		Hunger: v.Hunger,
		Social: v.Social,
		Energy: Max - v.Energy,
	}
}

// InRange reports whether every need is within bounds.
func (v Vector) InRange() bool {
	return inRange(v.Hunger) && inRange(v.Social) && inRange(v.Energy)
}

// Weights scales each need (and money) when scoring predicted outcomes.
type Weights struct {
	Hunger float64 `json:"hunger"`
	Social float64 `json:"social"`
	Energy float64 `json:"energy"`
	Money  float64 `json:"money"`
}

// DefaultWeights favour hunger and energy over social contact.
func DefaultWeights() Weights {
	return Weights{Hunger: 1.5, Social: 1.0, Energy: 1.5, Money: 0.5}
}

// Scale multiplies each weight by the matching factor in m.
func (w Weights) Scale(m Weights) Weights {
	return Weights{
		Hunger: w.Hunger * m.Hunger,
		Social: w.Social * m.Social,
		Energy: w.Energy * m.Energy,
		Money:  w.Money * m.Money,
	}
}

func clamp(x float64) float64 {
	if x < Min {
		return Min
	}
	if x > Max {
		return Max
	}
	return x
}

func inRange(x float64) bool {
	return x >= Min && x <= Max
}
