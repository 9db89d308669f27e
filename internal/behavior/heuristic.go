package behavior

import (
	"math"

	"github.com/talgya/mini-town/internal/needs"
)

// Temperature controls how quickly raw scores saturate toward 0 or 1.
const Temperature = 20.0

// Score is a child's evaluation. Raw is the weighted improvement, Value the
// same number squashed into (0,1).
type Score struct {
	Name  string
	Raw   float64
	Value float64
}

// Evaluate predicts each child's outcome from its fixed effect and returns the
// index of the best one along with every score. Ties go to the earliest child.
func Evaluate[C Subject](c C, children []Node[C]) (int, []Score) {
	cur := c.Outcome()
	w := c.Weights()

	best := 0
	scores := make([]Score, len(children))
	for i, child := range children {
		raw := Improvement(w, cur, cur.Apply(child.Effect()))
		scores[i] = Score{Name: child.Name(), Raw: raw, Value: Normalize(raw)}
		if raw > scores[best].Raw {
			best = i
		}
	}
	return best, scores
}

// Improvement scores a predicted outcome against the current one: the
// weighted drop in each need's pressure plus the weighted money gain.
func Improvement(w needs.Weights, cur, pred Outcome) float64 {
	before, after := cur.Needs.Pressure(), pred.Needs.Pressure()
	return w.Hunger*(before.Hunger-after.Hunger) +
		w.Social*(before.Social-after.Social) +
		w.Energy*(before.Energy-after.Energy) +
		w.Money*(pred.Money-cur.Money)
}

// Normalize maps a raw score into (0,1) with a logistic curve.
func Normalize(raw float64) float64 {
	return 1 / (1 + math.Exp(-raw/Temperature))
}
