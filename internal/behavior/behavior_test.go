package behavior

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/needs"
)

type testSubject struct {
	out Outcome
	log *slog.Logger
}

func newSubject() *testSubject {
	return &testSubject{
		out: Outcome{Needs: needs.Vector{Hunger: 50, Social: 50, Energy: 50}, Money: 10},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (s *testSubject) Outcome() Outcome        { return s.out }
func (s *testSubject) Weights() needs.Weights  { return needs.DefaultWeights() }
func (s *testSubject) Logger() *slog.Logger    { return s.log }

// scripted returns an action that replays statuses and counts its ticks.
func scripted(name string, effect Effect, statuses ...Status) (*Action[*testSubject], *int) {
	calls := 0
	return NewAction(name, func(*testSubject) Status {
		st := statuses[min(calls, len(statuses)-1)]
		calls++
		return st
	}, effect), &calls
}

func TestSequence_FailureResets(t *testing.T) {
	s := newSubject()
	a, aCalls := scripted("a", Effect{}, Failure, Success)
	b, bCalls := scripted("b", Effect{}, Success)
	seq := NewSequence[*testSubject]("seq", a, b)

	assert.Equal(t, Failure, seq.Tick(s))
	assert.Equal(t, 0, seq.Index())
	assert.Equal(t, 1, *aCalls)
	assert.Equal(t, 0, *bCalls)

	// Next tick starts again from a.
	assert.Equal(t, Success, seq.Tick(s))
	assert.Equal(t, 2, *aCalls)
	assert.Equal(t, 1, *bCalls)
	assert.Equal(t, 0, seq.Index())
}

func TestSequence_RunningHoldsIndex(t *testing.T) {
	s := newSubject()
	a, aCalls := scripted("a", Effect{}, Success)
	b, bCalls := scripted("b", Effect{}, Running, Running, Success)
	seq := NewSequence[*testSubject]("seq", a, b)

	assert.Equal(t, Running, seq.Tick(s))
	assert.Equal(t, 1, seq.Index())
	assert.Equal(t, Running, seq.Tick(s))
	assert.Equal(t, Success, seq.Tick(s))
	assert.Equal(t, 1, *aCalls, "a must not be re-ticked while b runs")
	assert.Equal(t, 3, *bCalls)
	assert.Equal(t, 0, seq.Index())
}

func TestSequence_ResetPropagates(t *testing.T) {
	s := newSubject()
	inner := NewSequence[*testSubject]("inner",
		NewAction("ok", func(*testSubject) Status { return Success }, Effect{}),
		NewAction("wait", func(*testSubject) Status { return Running }, Effect{}),
	)
	outer := NewSelector[*testSubject]("outer", inner)

	assert.Equal(t, Running, outer.Tick(s))
	assert.Equal(t, 1, inner.Index())
	outer.Reset()
	assert.Equal(t, 0, inner.Index())
}

func TestSelector_FirstNonFailure(t *testing.T) {
	s := newSubject()
	a, _ := scripted("a", Effect{}, Failure)
	b, _ := scripted("b", Effect{}, Running)
	c, cCalls := scripted("c", Effect{}, Success)
	sel := NewSelector[*testSubject]("sel", a, b, c)

	assert.Equal(t, Running, sel.Tick(s))
	assert.Equal(t, 0, *cCalls)

	all := NewSelector[*testSubject]("fail", a)
	assert.Equal(t, Failure, all.Tick(s))
}

func TestStatefulSelector_HoldsCommitment(t *testing.T) {
	s := newSubject()
	eat := Effect{Needs: needs.Vector{Hunger: -30}}
	chat := Effect{Needs: needs.Vector{Social: -10}}

	snack, snackCalls := scripted("snack", eat, Running, Running, Success)
	talk, talkCalls := scripted("talk", chat, Success)
	ss := NewStatefulSelector[*testSubject]("free time", talk, snack)

	assert.Equal(t, Running, ss.Tick(s))
	committed, ok := ss.Committed()
	require.True(t, ok)
	assert.Equal(t, "snack", committed.Name())

	// Social need spikes: talking would now score higher, but snack is still running.
	s.out.Needs.Hunger = 0
	s.out.Needs.Social = 100
	assert.Equal(t, Running, ss.Tick(s))
	assert.Equal(t, Success, ss.Tick(s))
	assert.Equal(t, 3, *snackCalls)
	assert.Equal(t, 0, *talkCalls)

	_, ok = ss.Committed()
	assert.False(t, ok)

	// Released: the next tick re-evaluates and picks talk.
	assert.Equal(t, Success, ss.Tick(s))
	assert.Equal(t, 1, *talkCalls)
}

func TestStatefulSelector_FallsBackOnFailure(t *testing.T) {
	s := newSubject()
	best, bestCalls := scripted("best", Effect{Needs: needs.Vector{Hunger: -40}}, Failure)
	next, _ := scripted("next", Effect{Needs: needs.Vector{Social: -5}}, Running)
	ss := NewStatefulSelector[*testSubject]("ss", next, best)

	assert.Equal(t, Running, ss.Tick(s))
	assert.Equal(t, 1, *bestCalls)
	committed, ok := ss.Committed()
	require.True(t, ok)
	assert.Equal(t, "next", committed.Name())
}

func TestEvaluate(t *testing.T) {
	s := newSubject()
	children := []Node[*testSubject]{
		NewAction("nothing", func(*testSubject) Status { return Success }, Effect{}),
		NewAction("sleep", func(*testSubject) Status { return Success }, Effect{Needs: needs.Vector{Energy: 30}}),
		NewAction("nap", func(*testSubject) Status { return Success }, Effect{Needs: needs.Vector{Energy: 30}}),
		NewAction("shop", func(*testSubject) Status { return Success }, Effect{Money: -20}),
	}

	best, scores := Evaluate(s, children)
	assert.Equal(t, 1, best, "tie between sleep and nap goes to the earlier child")
	require.Len(t, scores, 4)
	assert.Equal(t, 0.5, scores[0].Value)
	assert.Equal(t, scores[1].Raw, scores[2].Raw)
	assert.Equal(t, 45.0, scores[1].Raw)
	assert.Less(t, scores[3].Value, 0.5)
	for _, sc := range scores {
		assert.Greater(t, sc.Value, 0.0)
		assert.Less(t, sc.Value, 1.0)
	}
}

func TestEffectAggregation(t *testing.T) {
	a := NewAction("a", func(*testSubject) Status { return Success }, Effect{Needs: needs.Vector{Hunger: -10}, Money: -2})
	b := NewAction("b", func(*testSubject) Status { return Success }, Effect{Needs: needs.Vector{Hunger: -5}})
	cond := NewCondition("c", func(*testSubject) bool { return true })

	seq := NewSequence[*testSubject]("seq", cond, a, b)
	assert.Equal(t, Effect{Needs: needs.Vector{Hunger: -15}, Money: -2}, seq.Effect())

	sel := NewSelector[*testSubject]("sel", b, a)
	assert.Equal(t, b.Effect(), sel.Effect())

	var names []string
	Walk(Node[*testSubject](NewSelector[*testSubject]("root", seq, sel)), func(n Node[*testSubject]) {
		names = append(names, n.Name())
	})
	assert.Equal(t, []string{"root", "seq", "c", "a", "b", "sel", "b", "a"}, names)
}
