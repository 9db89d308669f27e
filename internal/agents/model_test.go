package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/mini-town/internal/needs"
	"github.com/talgya/mini-town/internal/world"
)

func TestSchedule_ActivityAt(t *testing.T) {
	s := Schedule{
		Weekday: []Slot{{Start: 9, End: 12, Activity: "work_at_cafe"}, {Start: 12, End: 13, Activity: "eat_at_cafe"}},
		Weekend: []Slot{{Start: 10, End: 14, Activity: "hang_out_at_park"}},
	}

	tests := []struct {
		name  string
		clock world.Clock
		sleep SleepWindow
		want  string
	}{
		{"weekday work", world.Clock{Hour: 9, Day: 0}, DefaultSleep, "work_at_cafe"},
		{"weekday lunch", world.Clock{Hour: 12, Minute: 30, Day: 2}, DefaultSleep, "eat_at_cafe"},
		{"free afternoon", world.Clock{Hour: 15, Day: 2}, DefaultSleep, ""},
		{"weekend", world.Clock{Hour: 11, Day: 5}, DefaultSleep, "hang_out_at_park"},
		{"night", world.Clock{Hour: 23, Day: 1}, DefaultSleep, SleepActivity},
		{"sleepyhead morning", world.Clock{Hour: 9, Day: 1}, SleepWindow{Start: 22, End: 10}, SleepActivity},
		{"night owl late", world.Clock{Hour: 23, Day: 1}, SleepWindow{Start: 1, End: 6}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ActivityAt(tt.clock, tt.sleep))
		})
	}

	// No weekend table: weekday slots apply every day.
	weekdayOnly := Schedule{Weekday: s.Weekday}
	assert.Equal(t, "work_at_cafe", weekdayOnly.ActivityAt(world.Clock{Hour: 10, Day: 6}, DefaultSleep))
}

func TestPersonality(t *testing.T) {
	assert.Equal(t, SleepWindow{Start: 1, End: 6}, Personality{"night_owl"}.SleepWindow())
	assert.Equal(t, DefaultSleep, Personality{"extrovert"}.SleepWindow())
	assert.NoError(t, Personality{"introvert", "frugal"}.Validate())
	assert.Error(t, Personality{"shy"}.Validate())
	assert.True(t, Personality{"glutton"}.Has("glutton"))

	ext := Personality{"extrovert"}.Weights()
	assert.Greater(t, ext.Social, needs.DefaultWeights().Social)
	frugal := Personality{"frugal"}.Weights()
	assert.Greater(t, frugal.Money, needs.DefaultWeights().Money)
	assert.Contains(t, KnownTraits(), "fatigue_prone")
}

func TestNeedsDelta(t *testing.T) {
	ext := Personality{"extrovert"}.Profile()
	intro := Personality{"introvert"}.Profile()
	neutral := Personality(nil).Profile()

	assert.Greater(t, NeedsDelta(ext, world.CategoryFree).Social, NeedsDelta(intro, world.CategoryFree).Social)
	assert.Greater(t, NeedsDelta(ext, world.CategorySocialize).Energy, 0.0)
	assert.Less(t, NeedsDelta(intro, world.CategorySocialize).Energy, 0.0)
	assert.Less(t, NeedsDelta(neutral, world.CategorySocialize).Social, 0.0)
	assert.Greater(t, NeedsDelta(neutral, world.CategorySleep).Energy, 0.0)
	assert.Less(t, NeedsDelta(neutral, world.CategoryEat).Hunger, 0.0)

	tired := Personality{"fatigue_prone"}.Profile()
	assert.Less(t, NeedsDelta(tired, world.CategoryWork).Energy, NeedsDelta(neutral, world.CategoryWork).Energy)
}

func TestUpdateNeeds_StaysInRange(t *testing.T) {
	a := &Agent{ID: "a", Personality: Personality{"glutton", "fatigue_prone"}, Needs: needs.Vector{Hunger: 99, Social: 1, Energy: 1}}
	cats := []world.Category{world.CategoryWork, world.CategorySleep, world.CategoryEat, world.CategorySocialize}
	for i := 0; i < 5000; i++ {
		a.State = StateDoingAction
		a.Doing = cats[(i/250)%len(cats)]
		a.UpdateNeeds()
		if !a.Needs.InRange() {
			t.Fatalf("tick %d: needs out of range: %+v", i, a.Needs)
		}
	}
}

func TestMemory(t *testing.T) {
	a := &Agent{ID: "a"}
	mon := world.Clock{Hour: 9, Minute: 4, Day: 0}
	tue := world.Clock{Hour: 10, Day: 1}

	a.Remember(mon, "Had coffee.", 0.2)
	a.Remember(mon, "Met Sophia.", 0.8)
	a.Remember(tue, "Worked late.", 0.5)

	day := a.MemoriesForDay(0)
	if assert.Len(t, day, 2) {
		assert.Equal(t, "Had coffee.", day[0].Content)
		assert.Equal(t, "09:04", day[0].Time)
		assert.Equal(t, "Monday", day[0].DayName)
	}
	assert.Equal(t, "Worked late.", a.RecentMemories(1)[0].Content)
	assert.Equal(t, "Met Sophia.", a.ImportantMemories(1)[0].Content)

	a.KeepDay(1)
	if assert.Len(t, a.Memories, 1) {
		assert.Equal(t, "Worked late.", a.Memories[0].Content)
	}

	for i := 0; i < MaxMemories+10; i++ {
		a.Remember(tue, "noise", 0.1)
	}
	assert.Len(t, a.Memories, MaxMemories)
	assert.Equal(t, "Worked late.", a.ImportantMemories(1)[0].Content, "important memories survive")
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Cafe hobbs", Humanize("cafe_hobbs"))
	assert.Equal(t, "Emily", Humanize(MeetDestination("Emily")))
	assert.Equal(t, "", Humanize(""))
}
