// Package behavior implements the behavior-tree runtime agents decide with:
// stateless Selector, stateful Sequence, committing StatefulSelector, and
// Condition/Action leaves. Statuses are go-behaviortree's bt.Status values.
//
// Nodes never keep a reference to world state between ticks. Every Tick and
// every heuristic evaluation receives the subject explicitly.
package behavior

import (
	"log/slog"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/talgya/mini-town/internal/needs"
)

// Status is the result of ticking a node.
type Status = bt.Status

const (
	Running = bt.Running
	Success = bt.Success
	Failure = bt.Failure
)

// Subject is the per-tick context a tree runs against. It exposes what the
// heuristic needs to predict and score outcomes.
type Subject interface {
	Outcome() Outcome
	Weights() needs.Weights
	Logger() *slog.Logger
}

// Node is a behavior-tree node. The set of implementations is closed:
// Selector, Sequence, StatefulSelector, Condition and Action.
type Node[C Subject] interface {
	Name() string
	Tick(c C) Status
	// Effect is the fixed estimate of what running this node does to needs
	// and money, used by the heuristic evaluator.
	Effect() Effect
	// Reset clears execution state, recursively for composites.
	Reset()

	variant() kind
}

type kind uint8

const (
	kindSelector kind = iota
	kindSequence
	kindStateful
	kindCondition
	kindAction
)

// Outcome is the part of a subject's state the heuristic reasons about.
type Outcome struct {
	Needs needs.Vector
	Money float64
}

// Effect is a predicted change to an Outcome.
type Effect struct {
	Needs needs.Vector
	Money float64
}

// Plus returns the sum of two effects.
func (e Effect) Plus(o Effect) Effect {
	return Effect{
		Needs: needs.Vector{
			Hunger: e.Needs.Hunger + o.Needs.Hunger,
			Social: e.Needs.Social + o.Needs.Social,
			Energy: e.Needs.Energy + o.Needs.Energy,
		},
		Money: e.Money + o.Money,
	}
}

// Apply returns the outcome after the effect, with needs clamped.
func (o Outcome) Apply(e Effect) Outcome {
	return Outcome{
		Needs: o.Needs.Add(e.Needs),
		Money: o.Money + e.Money,
	}
}

// Walk calls fn for n and every descendant, depth first.
func Walk[C Subject](n Node[C], fn func(Node[C])) {
	fn(n)
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// Children returns the direct children of a composite, or nil for leaves.
func Children[C Subject](n Node[C]) []Node[C] {
	switch n.variant() {
	case kindSelector:
		return n.(*Selector[C]).children
	case kindSequence:
		return n.(*Sequence[C]).children
	case kindStateful:
		return n.(*StatefulSelector[C]).children
	}
	return nil
}
