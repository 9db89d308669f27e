package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Advance(t *testing.T) {
	tests := []struct {
		name    string
		start   Clock
		minutes int
		want    Clock
		roll    Rollover
	}{
		{"within hour", Clock{9, 0, 0}, 2, Clock{9, 2, 0}, Rollover{PrevDay: 0}},
		{"hour boundary", Clock{9, 58, 0}, 2, Clock{10, 0, 0}, Rollover{Hour: true, PrevDay: 0}},
		{"midnight", Clock{23, 58, 2}, 2, Clock{0, 0, 3}, Rollover{Hour: true, Day: true, PrevDay: 2}},
		{"week wraps", Clock{23, 58, 6}, 2, Clock{0, 0, 0}, Rollover{Hour: true, Day: true, PrevDay: 6}},
		{"zero", Clock{5, 5, 1}, 0, Clock{5, 5, 1}, Rollover{PrevDay: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.start
			r := c.Advance(tt.minutes)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.roll, r)
		})
	}
}

func TestClock_Names(t *testing.T) {
	c := Clock{Hour: 7, Minute: 5, Day: 5}
	assert.Equal(t, "Saturday", c.DayName())
	assert.True(t, c.Weekend())
	assert.Equal(t, "Saturday 07:05", c.String())
	assert.Equal(t, 425, c.MinuteOfDay())

	i, ok := DayIndex("Wednesday")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = DayIndex("Caturday")
	assert.False(t, ok)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategorySleep, CategoryOf("sleep"))
	assert.Equal(t, CategoryWork, CategoryOf("work_at_cafe"))
	assert.Equal(t, CategoryEat, CategoryOf("eat_breakfast"))
	assert.Equal(t, CategorySocialize, CategoryOf("hang_out_at_bar"))
	assert.Equal(t, CategoryStudy, CategoryOf("study_at_college"))
	assert.Equal(t, CategoryFree, CategoryOf(""))

	c, err := ParseCategory("relax")
	assert.NoError(t, err)
	assert.Equal(t, CategoryRelax, c)
	_, err = ParseCategory("nap")
	assert.Error(t, err)
}

func TestPlaces_Validate(t *testing.T) {
	g, err := NewGrid([]string{"PPG"}, "G")
	assert.NoError(t, err)

	ps := Places{"cafe": {Name: "cafe", Coords: []Point{Pt(0, 0), Pt(2, 0)}}}
	assert.NoError(t, ps.Validate(g))

	ps["field"] = &Place{Name: "field", Coords: []Point{Pt(2, 0)}}
	assert.Error(t, ps.Validate(g))

	_, err = ps.Get("library")
	assert.ErrorIs(t, err, ErrUnknownPlace)

	acts := Activities{"work": {Label: "work", Location: "bank", Duration: 1}}
	assert.ErrorIs(t, acts.Validate(ps), ErrUnknownPlace)
}

func TestActivities_ValidateHome(t *testing.T) {
	ps := Places{"cafe": {Name: "cafe", Coords: []Point{Pt(0, 0)}}}

	tests := []struct {
		name string
		act  Activity
		ok   bool
	}{
		{"home", Activity{Label: "sleep_at_home", Location: HomeLocation, Duration: 30}, true},
		{"home with negative cost", Activity{Label: "relax_at_home", Location: HomeLocation, Cost: -5, Duration: 6}, false},
		{"home without duration", Activity{Label: "relax_at_home", Location: HomeLocation}, false},
		{"place with negative cost", Activity{Label: "eat_at_cafe", Location: "cafe", Cost: -1, Duration: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Activities{tt.act.Label: tt.act}.Validate(ps)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
