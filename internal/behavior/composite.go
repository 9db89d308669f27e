package behavior

import (
	"log/slog"
	"sort"
)

// Selector ticks children in order and returns the first non-FAILURE status.
// It keeps no state and re-evaluates from the first child every tick.
type Selector[C Subject] struct {
	name     string
	children []Node[C]
}

// NewSelector builds a Selector.
func NewSelector[C Subject](name string, children ...Node[C]) *Selector[C] {
	return &Selector[C]{name: name, children: children}
}

func (s *Selector[C]) Name() string { return s.name }
func (s *Selector[C]) variant() kind { return kindSelector }

func (s *Selector[C]) Tick(c C) Status {
	for _, child := range s.children {
		if st := child.Tick(c); st != Failure {
			return st
		}
	}
	return Failure
}

// Effect of a selector is the effect of its preferred (first) child.
func (s *Selector[C]) Effect() Effect {
	if len(s.children) == 0 {
		return Effect{}
	}
	return s.children[0].Effect()
}

func (s *Selector[C]) Reset() {
	for _, child := range s.children {
		child.Reset()
	}
}

// Sequence ticks children in order, remembering where it stopped. A child
// SUCCESS advances (and resets that child), RUNNING is returned with the index
// held, FAILURE resets the whole sequence. Completing the last child resets the
// sequence and returns SUCCESS.
type Sequence[C Subject] struct {
	name     string
	children []Node[C]
	index    int
}

// NewSequence builds a Sequence.
func NewSequence[C Subject](name string, children ...Node[C]) *Sequence[C] {
	return &Sequence[C]{name: name, children: children}
}

func (s *Sequence[C]) Name() string { return s.name }
func (s *Sequence[C]) variant() kind { return kindSequence }

// Index returns the child the next tick resumes from.
func (s *Sequence[C]) Index() int { return s.index }

func (s *Sequence[C]) Tick(c C) Status {
	for s.index < len(s.children) {
		child := s.children[s.index]
		switch child.Tick(c) {
		case Success:
			child.Reset()
			s.index++
		case Running:
			return Running
		default:
			s.Reset()
			return Failure
		}
	}
	s.Reset()
	return Success
}

// Effect of a sequence is the sum of its children's effects.
func (s *Sequence[C]) Effect() Effect {
	var e Effect
	for _, child := range s.children {
		e = e.Plus(child.Effect())
	}
	return e
}

func (s *Sequence[C]) Reset() {
	s.index = 0
	for _, child := range s.children {
		child.Reset()
	}
}

// StatefulSelector commits to one child until it stops reporting RUNNING.
// When uncommitted it ranks children with Evaluate, logs the scores, and ticks
// them best first until one does not fail.
type StatefulSelector[C Subject] struct {
	name      string
	children  []Node[C]
	committed int
}

// NewStatefulSelector builds a StatefulSelector.
func NewStatefulSelector[C Subject](name string, children ...Node[C]) *StatefulSelector[C] {
	return &StatefulSelector[C]{name: name, children: children, committed: -1}
}

func (s *StatefulSelector[C]) Name() string { return s.name }
func (s *StatefulSelector[C]) variant() kind { return kindStateful }

// Committed returns the committed child, if any.
func (s *StatefulSelector[C]) Committed() (Node[C], bool) {
	if s.committed < 0 {
		return nil, false
	}
	return s.children[s.committed], true
}

func (s *StatefulSelector[C]) Tick(c C) Status {
	if s.committed >= 0 {
		return s.tickChild(c, s.committed)
	}
	if len(s.children) == 0 {
		return Failure
	}

	best, scores := Evaluate(c, s.children)
	c.Logger().Debug("branch selected",
		"selector", s.name,
		"branch", s.children[best].Name(),
		"scores", scoreAttrs(scores),
	)

	for _, i := range rank(scores) {
		if st := s.tickChild(c, i); st != Failure {
			return st
		}
	}
	return Failure
}

func (s *StatefulSelector[C]) tickChild(c C, i int) Status {
	child := s.children[i]
	st := child.Tick(c)
	if st == Running {
		s.committed = i
		return st
	}
	s.committed = -1
	child.Reset()
	return st
}

// Effect of a stateful selector is the effect of its first child.
func (s *StatefulSelector[C]) Effect() Effect {
	if len(s.children) == 0 {
		return Effect{}
	}
	return s.children[0].Effect()
}

func (s *StatefulSelector[C]) Reset() {
	s.committed = -1
	for _, child := range s.children {
		child.Reset()
	}
}

// rank orders child indices by descending score, earliest first on ties.
func rank(scores []Score) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]].Raw > scores[order[b]].Raw
	})
	return order
}

func scoreAttrs(scores []Score) slog.Value {
	attrs := make([]slog.Attr, len(scores))
	for i, s := range scores {
		attrs[i] = slog.Float64(s.Name, s.Value)
	}
	return slog.GroupValue(attrs...)
}
