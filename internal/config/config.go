// Package config loads a town description from YAML. Documents are checked
// against an embedded JSON Schema before they are decoded, then built into
// the grid, place and activity registries, agent specs and scheduler tuning.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/world"
)

//go:embed town.yaml
var defaultTown []byte

//go:embed town.schema.json
var schemaJSON []byte

// ErrInvalid wraps every schema or semantic validation failure.
var ErrInvalid = errors.New("config: invalid town")

// Cell is an [x, y] grid coordinate.
type Cell [2]int

// Point converts the cell to a grid point.
func (c Cell) Point() world.Point { return world.Pt(c[0], c[1]) }

// File is the decoded YAML document.
type File struct {
	Tuning     Tuning                  `yaml:"tuning"`
	Grid       GridSpec                `yaml:"grid"`
	Places     map[string]PlaceSpec    `yaml:"places"`
	Activities map[string]ActivitySpec `yaml:"activities"`
	FreeTime   FreeTime                `yaml:"free_time"`
	Urges      []UrgeSpec              `yaml:"urges"`
	Agents     []AgentSpec             `yaml:"agents"`
}

// Tuning holds scheduler and real-time settings.
type Tuning struct {
	TickMinutes int   `yaml:"tick_minutes"`
	IntervalMs  int   `yaml:"interval_ms"`
	Seed        int64 `yaml:"seed"`
	Start       struct {
		Day    int `yaml:"day"`
		Hour   int `yaml:"hour"`
		Minute int `yaml:"minute"`
	} `yaml:"start"`
	Wage        float64 `yaml:"wage"`
	Interaction struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"interaction"`
	MaxEvents int `yaml:"max_events"`
	ChatTicks int `yaml:"chat_ticks"`
}

type GridSpec struct {
	Blocked string   `yaml:"blocked"`
	Rows    []string `yaml:"rows"`
}

type PlaceSpec struct {
	Kind   string `yaml:"kind"`
	Coords []Cell `yaml:"coords"`
}

type ActivitySpec struct {
	Location string  `yaml:"location"`
	Duration int     `yaml:"duration"`
	Cost     float64 `yaml:"cost"`
	Category string  `yaml:"category"`
	Text     string  `yaml:"text"`
}

type FreeTime struct {
	Snack  string `yaml:"snack"`
	Stroll string `yaml:"stroll"`
	Rest   string `yaml:"rest"`
}

// UrgeSpec is an interrupting need: When is an expr boolean over the
// agent's needs, money and time.
type UrgeSpec struct {
	Name     string `yaml:"name"`
	When     string `yaml:"when"`
	Priority int    `yaml:"priority"`
	Goal     string `yaml:"goal"`
	Activity string `yaml:"activity"`
}

type AgentSpec struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Icon        string          `yaml:"icon"`
	Color       string          `yaml:"color"`
	Home        Cell            `yaml:"home"`
	WorkPlace   string          `yaml:"work_place"`
	Money       float64         `yaml:"money"`
	Personality []string        `yaml:"personality"`
	Schedule    agents.Schedule `yaml:"schedule"`
}

// Town is a fully built, validated town.
type Town struct {
	Grid       *world.Grid
	Places     world.Places
	Activities world.Activities
	Agents     []agents.Spec
	Tree       agents.TreeConfig
	Start      world.Clock
	Engine     engine.Config
	Interval   time.Duration
}

var townSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("town.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("config: add schema: %v", err))
	}
	s, err := c.Compile("town.schema.json")
	if err != nil {
		panic(fmt.Sprintf("config: compile schema: %v", err))
	}
	return s
}

// Default returns the embedded default town document.
func Default() (*File, error) {
	return Parse(defaultTown)
}

// Load reads and parses a town document from path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates raw YAML against the schema and decodes it. Missing
// tuning fields take the scheduler defaults.
func Parse(raw []byte) (*File, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}

	f := &File{Tuning: defaultTuning()}
	if err := yaml.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("town.yaml: %w", err)
	}
	return f, nil
}

// validate converts the YAML document to JSON values and checks it against
// the embedded schema.
func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("town.yaml: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := townSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func defaultTuning() Tuning {
	d := engine.DefaultConfig()
	var t Tuning
	t.TickMinutes = d.TickMinutes
	t.IntervalMs = 1000
	t.Seed = d.Seed
	t.Start.Hour = 7
	t.Wage = d.Wage
	t.Interaction.Min = d.InteractionMin
	t.Interaction.Max = d.InteractionMax
	t.MaxEvents = d.MaxEvents
	t.ChatTicks = 8
	return t
}

// Build turns the document into registries and agent specs, checking the
// cross references the schema cannot express.
func (f *File) Build() (*Town, error) {
	blocked := f.Grid.Blocked
	if blocked == "" {
		blocked = "G"
	}
	g, err := world.NewGrid(f.Grid.Rows, blocked)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	places := make(world.Places, len(f.Places))
	for name, ps := range f.Places {
		pl := &world.Place{Name: name, Kind: ps.Kind, Coords: make([]world.Point, len(ps.Coords))}
		for i, c := range ps.Coords {
			pl.Coords[i] = c.Point()
		}
		places[name] = pl
	}
	if err := places.Validate(g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	acts := make(world.Activities, len(f.Activities))
	for label, as := range f.Activities {
		cat := world.CategoryOf(label)
		if as.Category != "" {
			if cat, err = world.ParseCategory(as.Category); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
			}
		}
		text := as.Text
		if text == "" {
			text = agents.Humanize(label)
		}
		acts[label] = world.Activity{
			Label:    label,
			Location: as.Location,
			Cost:     as.Cost,
			Category: cat,
			Duration: as.Duration,
			Text:     text,
		}
	}
	if _, ok := acts[agents.SleepActivity]; !ok {
		return nil, fmt.Errorf("%w: activity %q is required", ErrInvalid, agents.SleepActivity)
	}
	if err := acts.Validate(places); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	tree := agents.TreeConfig{
		Snack:     f.FreeTime.Snack,
		Stroll:    f.FreeTime.Stroll,
		Rest:      f.FreeTime.Rest,
		ChatTicks: f.Tuning.ChatTicks,
	}
	for _, us := range f.Urges {
		rule, err := agents.CompileRule(us.Name, us.When, us.Priority)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if _, ok := acts.Lookup(us.Activity); !ok {
			return nil, fmt.Errorf("%w: urge %q uses unknown activity %q", ErrInvalid, us.Name, us.Activity)
		}
		goal := us.Goal
		if goal == "" {
			goal = agents.Humanize(us.Activity)
		}
		tree.Urges = append(tree.Urges, agents.Urge{Rule: rule, Goal: goal, Activity: us.Activity})
	}

	specs := make([]agents.Spec, 0, len(f.Agents))
	for _, as := range f.Agents {
		if as.WorkPlace != "" {
			if _, err := places.Get(as.WorkPlace); err != nil {
				return nil, fmt.Errorf("%w: agent %s: %v", ErrInvalid, as.ID, err)
			}
		}
		specs = append(specs, agents.Spec{
			ID:          as.ID,
			Name:        as.Name,
			Icon:        as.Icon,
			Color:       as.Color,
			Home:        as.Home.Point(),
			WorkPlace:   as.WorkPlace,
			Personality: agents.Personality(as.Personality),
			Schedule:    as.Schedule,
			Money:       as.Money,
		})
	}

	t := f.Tuning
	return &Town{
		Grid:       g,
		Places:     places,
		Activities: acts,
		Agents:     specs,
		Tree:       tree,
		Start:      world.Clock{Day: t.Start.Day, Hour: t.Start.Hour, Minute: t.Start.Minute},
		Engine: engine.Config{
			TickMinutes:    t.TickMinutes,
			Wage:           t.Wage,
			InteractionMin: t.Interaction.Min,
			InteractionMax: t.Interaction.Max,
			Seed:           t.Seed,
			MaxEvents:      t.MaxEvents,
		},
		Interval: time.Duration(t.IntervalMs) * time.Millisecond,
	}, nil
}

// Simulation spawns the town's agents and wires them into a new
// simulation starting at the configured time.
func (t *Town) Simulation(logger *slog.Logger) (*engine.Simulation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	spawner := agents.NewSpawner(t.Engine.Seed, t.Grid, t.Activities, t.Tree, logger)
	list, err := spawner.SpawnAll(t.Agents)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}
	ws := &agents.WorldState{
		Clock:      t.Start,
		Grid:       t.Grid,
		Places:     t.Places,
		Activities: t.Activities,
	}
	return engine.NewSimulation(ws, list, t.Engine, logger)
}
