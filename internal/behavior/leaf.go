package behavior

// Condition is a leaf that checks a predicate. It must not mutate the subject.
type Condition[C Subject] struct {
	name string
	pred func(C) bool
}

// NewCondition builds a Condition leaf.
func NewCondition[C Subject](name string, pred func(C) bool) *Condition[C] {
	return &Condition[C]{name: name, pred: pred}
}

func (n *Condition[C]) Name() string { return n.name }
func (n *Condition[C]) variant() kind { return kindCondition }
func (n *Condition[C]) Effect() Effect { return Effect{} }
func (n *Condition[C]) Reset() {}

func (n *Condition[C]) Tick(c C) Status {
	if n.pred(c) {
		return Success
	}
	return Failure
}

// Action is a leaf that may mutate the subject and may span several ticks by
// returning RUNNING.
type Action[C Subject] struct {
	name   string
	fn     func(C) Status
	effect Effect
}

// NewAction builds an Action leaf with the predicted effect used for scoring.
func NewAction[C Subject](name string, fn func(C) Status, effect Effect) *Action[C] {
	return &Action[C]{name: name, fn: fn, effect: effect}
}

func (n *Action[C]) Name() string { return n.name }
func (n *Action[C]) variant() kind { return kindAction }
func (n *Action[C]) Effect() Effect { return n.effect }
func (n *Action[C]) Reset() {}

func (n *Action[C]) Tick(c C) Status {
	return n.fn(c)
}
