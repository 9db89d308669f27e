package agents

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// RuleEnv is the environment rule expressions are evaluated against.
type RuleEnv struct {
	Hunger   float64 `expr:"hunger"`
	Social   float64 `expr:"social"`
	Energy   float64 `expr:"energy"`
	Money    float64 `expr:"money"`
	Hour     int     `expr:"hour"`
	Weekend  bool    `expr:"weekend"`
	Activity string  `expr:"activity"`
	State    string  `expr:"state"`
}

// Rule is a compiled boolean condition with a priority. Higher priority
// rules may interrupt a lower priority goal while the agent is walking.
type Rule struct {
	Name     string
	Source   string
	Priority int

	program *vm.Program
}

// CompileRule compiles src as a boolean expression over RuleEnv.
func CompileRule(name, src string, priority int) (*Rule, error) {
	program, err := expr.Compile(src, expr.Env(RuleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling rule %q: %w", name, err)
	}
	return &Rule{Name: name, Source: src, Priority: priority, program: program}, nil
}

// Match evaluates the rule for c. Evaluation errors count as no match.
func (r *Rule) Match(c *TickContext) bool {
	out, err := expr.Run(r.program, envFor(c))
	if err != nil {
		c.Logger().Warn("rule evaluation failed", "rule", r.Name, "error", err)
		return false
	}
	b, _ := out.(bool)
	return b
}

func envFor(c *TickContext) RuleEnv {
	a := c.Agent
	return RuleEnv{
		Hunger:   a.Needs.Hunger,
		Social:   a.Needs.Social,
		Energy:   a.Needs.Energy,
		Money:    a.Money,
		Hour:     c.World.Clock.Hour,
		Weekend:  c.World.Clock.Weekend(),
		Activity: a.Activity,
		State:    a.State.String(),
	}
}

// Interrupting returns the highest-priority matching rule that outranks the
// agent's current goal. Suppressed rules are skipped.
func Interrupting(c *TickContext) (*Rule, bool) {
	var best *Rule
	for _, r := range c.Agent.Rules {
		if r.Priority <= c.Agent.GoalPriority || c.Agent.suppressed(r.Name) {
			continue
		}
		if best != nil && r.Priority <= best.Priority {
			continue
		}
		if r.Match(c) {
			best = r
		}
	}
	return best, best != nil
}
