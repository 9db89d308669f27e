// Behavior trees for residents. Every agent owns one tree built once at
// spawn time; the scheduler ticks it whenever the agent is idle.
package agents

import (
	"fmt"
	"strings"

	"github.com/talgya/mini-town/internal/behavior"
	"github.com/talgya/mini-town/internal/needs"
	"github.com/talgya/mini-town/internal/world"
)

type (
	node   = behavior.Node[*TickContext]
	status = behavior.Status
)

// Goal priorities. Urges carry their own rule priority above these.
const (
	PriorityFree     = 0
	PrioritySchedule = 1
)

// Urge is an urgent need that overrides the schedule: when Rule matches the
// agent goes to the activity's location and performs it.
type Urge struct {
	Rule     *Rule
	Goal     string
	Activity string
}

// TreeConfig names the activities the shared tree shape is built from.
type TreeConfig struct {
	Urges []Urge // highest priority first

	// Free-time options, ranked by the heuristic evaluator.
	Snack  string // bought and eaten at its location
	Stroll string // lingered at its location without a timed action
	Rest   string // performed at its location, usually home
	// ChatTicks estimates how long a conversation lasts for scoring.
	ChatTicks int
}

// BuildTree constructs the agent's tree and installs it together with the
// urge rules used for interrupts.
func BuildTree(a *Agent, acts world.Activities, cfg TreeConfig) error {
	for _, label := range []string{cfg.Snack, cfg.Stroll, cfg.Rest} {
		if _, ok := acts.Lookup(label); !ok {
			return fmt.Errorf("agent %s: free-time activity %q is not registered", a.ID, label)
		}
	}

	profile := a.Personality.Profile()
	branches := make([]node, 0, len(cfg.Urges)+3)
	rules := make([]*Rule, 0, len(cfg.Urges))

	for _, u := range cfg.Urges {
		if u.Rule == nil {
			return fmt.Errorf("agent %s: urge %q has no rule", a.ID, u.Goal)
		}
		act, ok := acts.Lookup(u.Activity)
		if !ok {
			return fmt.Errorf("agent %s: urge %q uses unknown activity %q", a.ID, u.Rule.Name, u.Activity)
		}
		rule := u.Rule
		rules = append(rules, rule)
		branches = append(branches, sequence(u.Rule.Name,
			condition(rule.Name+"?", rule.Match),
			setGoal("set goal: "+u.Goal, fixed(u.Goal), rule.Priority),
			goTo("go to "+act.Location, fixed(act.Location)),
			perform(act.Label, fixed(act.Label), effectOf(act, profile)),
		))
	}

	branches = append(branches,
		sequence("follow schedule",
			condition("has scheduled activity?", hasActivity),
			setGoal("set goal: scheduled", scheduledGoal, PrioritySchedule),
			goTo("go to scheduled place", scheduledLocation),
			perform("do scheduled activity", scheduledActivity, behavior.Effect{}),
		),
		freeTime(acts, cfg, profile),
		action("idle", idle, behavior.Effect{}),
	)

	a.tree = behavior.NewSelector(a.Name+"'s day", branches...)
	a.Rules = rules
	return nil
}

func freeTime(acts world.Activities, cfg TreeConfig, profile Trait) node {
	snack, _ := acts.Lookup(cfg.Snack)
	stroll, _ := acts.Lookup(cfg.Stroll)
	rest, _ := acts.Lookup(cfg.Rest)

	chat := behavior.Effect{Needs: scale(NeedsDelta(profile, world.CategorySocialize), float64(cfg.ChatTicks))}

	return statefulSelector("free time",
		sequence("grab a snack",
			condition("can afford "+snack.Label+"?", canAfford(snack.Label)),
			setGoal("set goal: snack", fixed("Grabbing a bite"), PriorityFree),
			goTo("go to "+snack.Location, fixed(snack.Location)),
			perform(snack.Label, fixed(snack.Label), effectOf(snack, profile)),
		),
		sequence("seek company",
			setGoal("set goal: company", fixed("Looking for someone to talk to"), PriorityFree),
			action("find company", findCompany, chat),
		),
		sequence("walk in the park",
			setGoal("set goal: stroll", fixed("Taking a stroll"), PriorityFree),
			goTo("go to "+stroll.Location, fixed(stroll.Location)),
			action("linger", linger(stroll.Label), effectOf(stroll, profile)),
		),
		sequence("rest at home",
			setGoal("set goal: rest", fixed("Resting at home"), PriorityFree),
			goTo("go to "+rest.Location, fixed(rest.Location)),
			perform(rest.Label, fixed(rest.Label), effectOf(rest, profile)),
		),
	)
}

// effectOf estimates what one session of act does to needs and money.
func effectOf(act world.Activity, profile Trait) behavior.Effect {
	e := behavior.Effect{
		Needs: scale(NeedsDelta(profile, act.Category), float64(act.Duration)),
		Money: -act.Cost,
	}
	if act.Category == world.CategoryEat {
		e.Needs.Hunger -= MealRelief
	}
	return e
}

func scale(v needs.Vector, k float64) needs.Vector {
	return needs.Vector{Hunger: v.Hunger * k, Social: v.Social * k, Energy: v.Energy * k}
}

func sequence(name string, children ...node) node {
	return behavior.NewSequence(name, children...)
}

func statefulSelector(name string, children ...node) node {
	return behavior.NewStatefulSelector(name, children...)
}

func condition(name string, pred func(*TickContext) bool) node {
	return behavior.NewCondition(name, pred)
}

func action(name string, fn func(*TickContext) status, effect behavior.Effect) node {
	return behavior.NewAction(name, fn, effect)
}

func fixed(s string) func(*TickContext) (string, bool) {
	return func(*TickContext) (string, bool) { return s, true }
}

// --- Conditions ---

func hasActivity(c *TickContext) bool {
	_, ok := c.World.Activities.Lookup(c.Agent.Activity)
	return ok
}

func canAfford(label string) func(*TickContext) bool {
	return func(c *TickContext) bool {
		act, ok := c.World.Activities.Lookup(label)
		return ok && c.Agent.Money >= act.Cost
	}
}

// AtDestination reports whether the agent already stands where dest points.
func AtDestination(c *TickContext, dest string) bool {
	a := c.Agent
	if dest == world.HomeLocation {
		return a.Position == a.Home
	}
	if id, ok := AgentDestination(dest); ok {
		other, ok := c.World.Roster.Lookup(id)
		return ok && other.Position != a.Position && a.Position.Touches(other.Position)
	}
	pl, err := c.World.Places.Get(dest)
	return err == nil && pl.Contains(a.Position)
}

// --- Actions ---

func setGoal(name string, text func(*TickContext) (string, bool), priority int) node {
	return action(name, func(c *TickContext) status {
		goal, ok := text(c)
		if !ok {
			return behavior.Failure
		}
		c.Agent.Goal = goal
		c.Agent.GoalPriority = priority
		return behavior.Success
	}, behavior.Effect{})
}

// goTo succeeds when the agent is already at the destination, otherwise it
// hands the destination to the scheduler and reports RUNNING.
func goTo(name string, dest func(*TickContext) (string, bool)) node {
	return action(name, func(c *TickContext) status {
		d, ok := dest(c)
		if !ok {
			return behavior.Failure
		}
		if AtDestination(c, d) {
			return behavior.Success
		}
		if d != world.HomeLocation {
			if _, err := c.World.Places.Get(d); err != nil {
				c.Logger().Debug("unknown destination", "destination", d)
				return behavior.Failure
			}
		}
		c.Agent.MoveTo(d)
		c.Agent.Action = "Walking to " + Humanize(d)
		return behavior.Running
	}, behavior.Effect{})
}

// MealRelief is the immediate hunger drop when a meal starts.
const MealRelief = 20.0

func perform(name string, label func(*TickContext) (string, bool), effect behavior.Effect) node {
	return action(name, func(c *TickContext) status {
		l, ok := label(c)
		if !ok {
			return behavior.Failure
		}
		act, ok := c.World.Activities.Lookup(l)
		if !ok {
			return behavior.Failure
		}
		a := c.Agent
		if !AtDestination(c, act.Location) {
			return behavior.Failure
		}
		if a.Money < act.Cost {
			c.Remember(fmt.Sprintf("I couldn't afford to %s.", strings.ToLower(Humanize(act.Label))), 0.4)
			return behavior.Failure
		}

		a.Money -= act.Cost
		a.State = StateDoingAction
		a.ActionTicks = act.Duration
		a.Doing = act.Category
		a.DoingAt = act.Location
		a.Action = act.Text
		if act.Category == world.CategoryEat {
			a.Needs = a.Needs.Add(needs.Vector{Hunger: -MealRelief})
		}
		return behavior.Success
	}, effect)
}

func findCompany(c *TickContext) status {
	a := c.Agent
	var (
		best  View
		found bool
	)
	for _, v := range c.World.Roster.Views() {
		if v.ID == a.ID || v.State != StateIdle {
			continue
		}
		if !found || a.Position.Manhattan(v.Position) < a.Position.Manhattan(best.Position) {
			best, found = v, true
		}
	}
	if !found {
		return behavior.Failure
	}

	a.MeetWith = best.ID
	a.MoveTo(MeetDestination(best.ID))
	a.Action = "Walking over to " + best.Name
	return behavior.Running
}

func linger(label string) func(*TickContext) status {
	return func(c *TickContext) status {
		act, ok := c.World.Activities.Lookup(label)
		if !ok {
			return behavior.Failure
		}
		a := c.Agent
		if a.Lingering == 0 {
			a.Lingering = act.Duration
			a.Action = act.Text
		}
		a.Lingering--
		if a.Lingering <= 0 {
			a.Lingering = 0
			return behavior.Success
		}
		return behavior.Running
	}
}

func idle(c *TickContext) status {
	c.Agent.Goal = "Idle"
	c.Agent.Action = "Hanging around"
	c.Agent.GoalPriority = PriorityFree
	return behavior.Success
}

// --- Schedule lookups ---

func scheduledActivity(c *TickContext) (string, bool) {
	return c.Agent.Activity, c.Agent.Activity != ""
}

func scheduledLocation(c *TickContext) (string, bool) {
	act, ok := c.World.Activities.Lookup(c.Agent.Activity)
	return act.Location, ok
}

func scheduledGoal(c *TickContext) (string, bool) {
	if c.Agent.Activity == "" {
		return "", false
	}
	return Humanize(c.Agent.Activity), true
}

// Humanize turns a label like "work_at_cafe" into "Work at cafe".
func Humanize(label string) string {
	if id, ok := AgentDestination(label); ok {
		label = id
	}
	s := strings.ReplaceAll(label, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
