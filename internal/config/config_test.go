package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/world"
)

func TestDefault_Builds(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	town, err := f.Build()
	require.NoError(t, err)

	assert.Equal(t, 30, town.Grid.Width)
	assert.Equal(t, 22, town.Grid.Height)
	assert.False(t, town.Grid.Walkable(world.Pt(0, 0)), "grass is blocked")
	assert.True(t, town.Grid.Walkable(world.Pt(1, 1)))

	require.Len(t, town.Agents, 6)
	assert.Equal(t, "emily", town.Agents[0].ID)
	assert.Equal(t, world.Pt(3, 14), town.Agents[0].Home)
	assert.Equal(t, "cafe_hobbs", town.Agents[0].WorkPlace)

	cafe, err := town.Places.Get("cafe_hobbs")
	require.NoError(t, err)
	assert.Equal(t, []world.Point{world.Pt(3, 6), world.Pt(4, 6), world.Pt(3, 7), world.Pt(4, 7)}, cafe.Coords)

	walk, ok := town.Activities.Lookup("walk_in_park")
	require.True(t, ok)
	assert.Equal(t, world.CategoryRelax, walk.Category)
	hang, _ := town.Activities.Lookup("hang_out_at_park")
	assert.Equal(t, world.CategorySocialize, hang.Category, "category inferred from label")

	require.Len(t, town.Tree.Urges, 2)
	assert.Equal(t, "exhausted", town.Tree.Urges[0].Rule.Name)

	assert.Equal(t, world.Clock{Hour: 7}, town.Start)
	assert.Equal(t, 2, town.Engine.TickMinutes)
	assert.Equal(t, 5, town.Engine.InteractionMin)
	assert.Equal(t, 12, town.Engine.InteractionMax)
}

func TestDefault_RunsAWeek(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	town, err := f.Build()
	require.NoError(t, err)
	sim, err := town.Simulation(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	days := 0
	ticksPerWeek := 7 * 24 * 60 / town.Engine.TickMinutes
	for i := 0; i < ticksPerWeek; i++ {
		res := sim.Tick()
		if res.DayChanged != nil {
			days++
		}
		for _, a := range sim.Agents {
			require.True(t, a.Needs.InRange(), "agent %s needs %+v", a.ID, a.Needs)
			require.True(t, town.Grid.Walkable(a.Position), "agent %s off the paths at %v", a.ID, a.Position)
		}
	}
	assert.Equal(t, 7, days)
	assert.Equal(t, world.Clock{Hour: 7}, sim.World.Clock)

	worked := false
	for _, a := range sim.Agents {
		if a.WorkPlace != "" && a.Money > 40 {
			worked = true
		}
	}
	assert.True(t, worked, "someone should have earned wages")
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "agents: [unterminated"},
		{"missing agents", "grid: {rows: [PP]}\nplaces: {a: {coords: [[0,0]]}}\nactivities: {x: {location: a, duration: 1}}\nfree_time: {snack: x, stroll: x, rest: x}\n"},
		{"unknown field", strings.Replace(string(defaultTown), "tuning:", "tuning:\n  speed: 3", 1)},
		{"bad cell", strings.Replace(string(defaultTown), "home: [3, 14]", "home: [3]", 1)},
		{"bad category", strings.Replace(string(defaultTown), "category: eat", "category: feast", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(strings.Replace(string(defaultTown), "home: [3, 14]", "home: [3]", 1)))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBuild_CrossReferences(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{"unknown location", "location: bar_hobbs", "location: moon_base", "unknown place"},
		{"unknown work place", "work_place: cafe_hobbs", "work_place: nowhere", "unknown place"},
		{"bad rule", `when: "energy < 15"`, `when: "energy <"`, "exhausted"},
		{"blocked place", "coords: [[7, 3], [8, 3], [7, 4], [8, 4]]", "coords: [[0, 0]]", "no walkable cells"},
		{"unknown urge activity", "activity: eat_at_cafe}", "activity: feast}", "unknown activity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(string(defaultTown), tt.from, tt.to, 1)
			require.NotEqual(t, string(defaultTown), doc, "fixture did not change")
			f, err := Parse([]byte(doc))
			require.NoError(t, err)
			_, err = f.Build()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSimulation_RejectsBadAgents(t *testing.T) {
	doc := strings.Replace(string(defaultTown), "personality: [extrovert]", "personality: [grumpy]", 1)
	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	town, err := f.Build()
	require.NoError(t, err)
	_, err = town.Simulation(nil)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "town.yaml")
	doc := strings.Replace(string(defaultTown), "seed: 1", "seed: 99", 1)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(99), f.Tuning.Seed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_TuningDefaults(t *testing.T) {
	doc := `
grid: {rows: ["PPP"]}
places: {spot: {coords: [[1, 0]]}}
activities:
  sleep_at_home: {location: home, duration: 30}
  sit_at_spot: {location: spot, duration: 3}
free_time: {snack: sit_at_spot, stroll: sit_at_spot, rest: sit_at_spot}
agents:
  - {id: solo, name: Solo, home: [0, 0]}
`
	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	town, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, town.Engine.TickMinutes)
	assert.Equal(t, 8, town.Tree.ChatTicks)
	assert.Empty(t, town.Tree.Urges)
	assert.Equal(t, agents.Schedule{}, town.Agents[0].Schedule)

	sim, err := town.Simulation(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		sim.Tick()
	}
}
