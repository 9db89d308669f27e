package agents

import (
	"fmt"

	"github.com/talgya/mini-town/internal/world"
)

// SleepActivity is the activity label used inside the sleep window.
const SleepActivity = "sleep_at_home"

// Slot maps an hour range [Start, End) to an activity.
type Slot struct {
	Start    int    `json:"start" yaml:"start"`
	End      int    `json:"end" yaml:"end"`
	Activity string `json:"activity" yaml:"activity"`
}

// Schedule is an agent's daily plan. An empty Weekend falls back to Weekday.
type Schedule struct {
	Weekday []Slot `json:"weekday" yaml:"weekday"`
	Weekend []Slot `json:"weekend" yaml:"weekend"`
}

// ActivityAt returns the activity for the given time. Sleep overrides the
// table; no matching slot means free time ("").
func (s Schedule) ActivityAt(c world.Clock, sleep SleepWindow) string {
	if sleep.Contains(c.Hour) {
		return SleepActivity
	}
	slots := s.Weekday
	if c.Weekend() && len(s.Weekend) > 0 {
		slots = s.Weekend
	}
	for _, slot := range slots {
		if c.Hour >= slot.Start && c.Hour < slot.End {
			return slot.Activity
		}
	}
	return ""
}

// Validate checks slot bounds and that each activity is registered.
func (s Schedule) Validate(acts world.Activities) error {
	for _, slots := range [][]Slot{s.Weekday, s.Weekend} {
		for _, slot := range slots {
			if slot.Start < 0 || slot.End > 24 || slot.Start >= slot.End {
				return fmt.Errorf("schedule slot %d-%d is not a valid hour range", slot.Start, slot.End)
			}
			if _, ok := acts.Lookup(slot.Activity); !ok {
				return fmt.Errorf("schedule slot %d-%d: unknown activity %q", slot.Start, slot.End, slot.Activity)
			}
		}
	}
	return nil
}
