// Package agents provides the town's residents: their state, needs model,
// daily schedule, personality traits, memory stream and behavior trees.
package agents

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/talgya/mini-town/internal/behavior"
	"github.com/talgya/mini-town/internal/needs"
	"github.com/talgya/mini-town/internal/world"
)

// State is what an agent is physically engaged in.
type State uint8

const (
	StateIdle State = iota
	StateMoving
	StateDoingAction
	StateInteracting
)

var stateNames = [...]string{"idle", "moving", "doing_action", "interacting"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Interaction is a conversation shared by two agents. Both hold the same
// pointer, so the countdown is decremented once per tick for the pair.
type Interaction struct {
	A, B      string
	Remaining int
	LastTick  uint64 // tick of the last decrement
}

// Partner returns the other participant.
func (in *Interaction) Partner(id string) string {
	if in.A == id {
		return in.B
	}
	return in.A
}

// Agent is a resident of the town.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`

	// Location
	Position    world.Point   `json:"position"`
	Home        world.Point   `json:"home"`
	WorkPlace   string        `json:"work_place,omitempty"`
	Destination string        `json:"destination,omitempty"` // place name, "home" or "agent:<id>"
	Path        []world.Point `json:"-"`
	PathIndex   int           `json:"-"` // next path cell to step onto

	// Disposition
	Personality Personality `json:"personality"`
	Schedule    Schedule    `json:"-"`
	Rules       []*Rule     `json:"-"`

	// Needs and resources
	Needs needs.Vector `json:"needs"`
	Money float64      `json:"money"`

	// What the agent is up to
	Activity     string         `json:"activity,omitempty"` // scheduled activity, "" = free time
	Goal         string         `json:"goal"`
	Action       string         `json:"action"`
	State        State          `json:"state"`
	GoalPriority int            `json:"-"`
	ActionTicks  int            `json:"-"`
	Doing        world.Category `json:"-"` // category of the action being performed
	DoingAt      string         `json:"-"` // location of the action being performed
	Lingering    int            `json:"-"`
	Suppressed   []string       `json:"-"` // rules that failed to take over the current walk

	// Social
	InteractingWith string       `json:"interacting_with,omitempty"`
	MeetWith        string       `json:"-"` // agent being walked to, before the conversation starts
	Interaction     *Interaction `json:"-"`

	Memories []Memory `json:"-"`
	memSeq   uint64

	tree behavior.Node[*TickContext]
	log  *slog.Logger
}

// Tree returns the agent's behavior tree.
func (a *Agent) Tree() behavior.Node[*TickContext] { return a.tree }

// ResetTree clears all execution state in the agent's tree.
func (a *Agent) ResetTree() {
	if a.tree != nil {
		a.tree.Reset()
	}
	a.Lingering = 0
}

// Logger returns the agent's logger.
func (a *Agent) Logger() *slog.Logger {
	if a.log == nil {
		return slog.Default().With("agent", a.ID)
	}
	return a.log
}

// SetLogger replaces the agent's logger; the agent id is attached.
func (a *Agent) SetLogger(l *slog.Logger) {
	a.log = l.With("agent", a.ID)
}

// GoIdle drops any movement or action and returns the agent to idle.
// Interaction state is left to the caller, which must release both sides.
func (a *Agent) GoIdle() {
	a.State = StateIdle
	a.Destination = ""
	a.Path = nil
	a.PathIndex = 0
	a.MeetWith = ""
	a.ActionTicks = 0
	a.Doing = world.CategoryFree
	a.DoingAt = ""
	a.GoalPriority = 0
	a.Suppressed = a.Suppressed[:0]
}

// Suppress stops rule from interrupting the agent until it next goes idle.
func (a *Agent) Suppress(rule string) {
	for _, r := range a.Suppressed {
		if r == rule {
			return
		}
	}
	a.Suppressed = append(a.Suppressed, rule)
}

func (a *Agent) suppressed(rule string) bool {
	for _, r := range a.Suppressed {
		if r == rule {
			return true
		}
	}
	return false
}

// MoveTo sets a destination and switches the agent to moving. The scheduler
// resolves a target cell and path on its next movement step.
func (a *Agent) MoveTo(dest string) {
	a.Destination = dest
	a.State = StateMoving
	a.Path = nil
	a.PathIndex = 0
}

// HasPath reports whether the agent has path cells left to step onto.
func (a *Agent) HasPath() bool {
	return a.PathIndex > 0 && a.PathIndex < len(a.Path)
}

// NextStep returns the next path cell.
func (a *Agent) NextStep() (world.Point, bool) {
	if !a.HasPath() {
		return world.Point{}, false
	}
	return a.Path[a.PathIndex], true
}

// SetPath installs a path that begins at the agent's position.
func (a *Agent) SetPath(path []world.Point) {
	a.Path = path
	a.PathIndex = 1
}

const agentPrefix = "agent:"

// MeetDestination is the destination name for walking up to another agent.
func MeetDestination(id string) string { return agentPrefix + id }

// AgentDestination extracts the agent id from a meeting destination.
func AgentDestination(dest string) (string, bool) {
	if !strings.HasPrefix(dest, agentPrefix) {
		return "", false
	}
	return strings.TrimPrefix(dest, agentPrefix), true
}

// View is a read-only copy of another agent's public state.
type View struct {
	ID       string
	Name     string
	Position world.Point
	State    State
}

// Roster gives tree nodes read access to every agent.
type Roster struct {
	byID  map[string]*Agent
	order []*Agent
}

// NewRoster indexes agents, keeping their order.
func NewRoster(list []*Agent) *Roster {
	r := &Roster{byID: make(map[string]*Agent, len(list)), order: list}
	for _, a := range list {
		r.byID[a.ID] = a
	}
	return r
}

// Lookup returns a view of the agent with the given id.
func (r *Roster) Lookup(id string) (View, bool) {
	a, ok := r.byID[id]
	if !ok {
		return View{}, false
	}
	return viewOf(a), true
}

// Views returns every agent in roster order.
func (r *Roster) Views() []View {
	out := make([]View, len(r.order))
	for i, a := range r.order {
		out[i] = viewOf(a)
	}
	return out
}

// Len returns the number of agents.
func (r *Roster) Len() int { return len(r.order) }

func viewOf(a *Agent) View {
	return View{ID: a.ID, Name: a.Name, Position: a.Position, State: a.State}
}

// WorldState is the shared, read-mostly town state a tree ticks against.
type WorldState struct {
	Clock      world.Clock
	Grid       *world.Grid
	Places     world.Places
	Activities world.Activities
	Roster     *Roster
	Tick       uint64
}

// TickContext is passed by pointer into every node tick and evaluation. It
// binds one agent to the world for the duration of one tick.
type TickContext struct {
	Agent *Agent
	World *WorldState
	Rand  *rand.Rand
}

// Outcome implements behavior.Subject.
func (c *TickContext) Outcome() behavior.Outcome {
	return behavior.Outcome{Needs: c.Agent.Needs, Money: c.Agent.Money}
}

// Weights implements behavior.Subject.
func (c *TickContext) Weights() needs.Weights {
	return c.Agent.Personality.Weights()
}

// Logger implements behavior.Subject.
func (c *TickContext) Logger() *slog.Logger {
	return c.Agent.Logger()
}

// Remember records a memory stamped with the current simulated time.
func (c *TickContext) Remember(content string, importance float32) {
	c.Agent.Remember(c.World.Clock, content, importance)
}
