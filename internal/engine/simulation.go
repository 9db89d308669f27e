// Simulation ties the town together and runs one scheduler pass per tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/world"
)

// Config holds scheduler tuning.
type Config struct {
	TickMinutes    int     // simulated minutes per tick
	Wage           float64 // money per tick of work at the right place
	InteractionMin int     // conversation length bounds, in ticks
	InteractionMax int
	Seed           int64
	MaxEvents      int // events kept in memory
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		TickMinutes:    2,
		Wage:           0.5,
		InteractionMin: 5,
		InteractionMax: 12,
		Seed:           1,
		MaxEvents:      1000,
	}
}

// Event is a notable occurrence in the town.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Day         string `json:"day" db:"day"`
	Time        string `json:"time" db:"time"`
	AgentID     string `json:"agent_id,omitempty" db:"agent_id"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "movement", "social", "interrupt", "day"
}

// DayChanged is emitted once when the clock passes midnight.
type DayChanged struct {
	ID       string   `json:"id"`
	Tick     uint64   `json:"tick"`
	AgentIDs []string `json:"agent_ids"`
	Day      string   `json:"day"`       // name of the day that just ended
	DayIndex int      `json:"day_index"` // index of the day that just ended
	NewDay   int      `json:"new_day"`
}

// Result is everything one tick produced.
type Result struct {
	Snapshot   Snapshot
	DayChanged *DayChanged
	Events     []Event
}

// SimStats tracks aggregate town statistics.
type SimStats struct {
	Agents       int     `json:"agents"`
	AvgHunger    float64 `json:"avg_hunger"`
	AvgSocial    float64 `json:"avg_social"`
	AvgEnergy    float64 `json:"avg_energy"`
	TotalMoney   float64 `json:"total_money"`
	Conversation int     `json:"conversations"` // agents currently talking
}

// Simulation holds the town state and the scheduler.
type Simulation struct {
	World      *agents.WorldState
	Agents     []*agents.Agent
	AgentIndex map[string]*agents.Agent
	Events     []Event
	Stats      SimStats
	RunID      string

	cfg  Config
	rng  *rand.Rand
	res  *world.Reservations
	log  *slog.Logger
	tick uint64
}

// NewSimulation wires agents into a world. The agent slice order is the
// roster order; processing order is reshuffled every tick.
func NewSimulation(ws *agents.WorldState, ag []*agents.Agent, cfg Config, logger *slog.Logger) (*Simulation, error) {
	if cfg.TickMinutes <= 0 {
		return nil, fmt.Errorf("engine: tick minutes must be positive, got %d", cfg.TickMinutes)
	}
	if cfg.InteractionMin <= 0 || cfg.InteractionMax < cfg.InteractionMin {
		return nil, fmt.Errorf("engine: invalid interaction range %d..%d", cfg.InteractionMin, cfg.InteractionMax)
	}
	if logger == nil {
		logger = slog.Default()
	}

	index := make(map[string]*agents.Agent, len(ag))
	for _, a := range ag {
		if _, dup := index[a.ID]; dup {
			return nil, fmt.Errorf("engine: duplicate agent id %q", a.ID)
		}
		index[a.ID] = a
	}
	ws.Roster = agents.NewRoster(ag)

	sim := &Simulation{
		World:      ws,
		Agents:     ag,
		AgentIndex: index,
		RunID:      uuid.NewString(),
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		res:        world.NewReservations(),
		log:        logger,
	}
	sim.updateStats()
	return sim, nil
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.tick
}

// Tick advances the clock and runs one full agent-processing pass.
func (s *Simulation) Tick() Result {
	s.tick++
	s.World.Tick = s.tick
	s.res.Clear()
	firstEvent := len(s.Events)

	var dayChanged *DayChanged
	roll := s.World.Clock.Advance(s.cfg.TickMinutes)
	if roll.Hour {
		for _, a := range s.Agents {
			a.ResetTree()
		}
	}
	if roll.Day {
		dayChanged = s.endOfDay(roll.PrevDay)
	}

	s.resolveSchedules()

	for _, a := range s.processingOrder() {
		s.processAgent(a)
	}

	fresh := make([]Event, len(s.Events)-firstEvent)
	copy(fresh, s.Events[firstEvent:])
	if s.cfg.MaxEvents > 0 && len(s.Events) > s.cfg.MaxEvents {
		s.Events = s.Events[len(s.Events)-s.cfg.MaxEvents:]
	}

	return Result{
		Snapshot:   s.Snapshot(),
		DayChanged: dayChanged,
		Events:     fresh,
	}
}

// resolveSchedules derives each agent's activity from the clock.
func (s *Simulation) resolveSchedules() {
	clock := s.World.Clock
	for _, a := range s.Agents {
		if a.State == agents.StateMoving || a.State == agents.StateInteracting {
			continue
		}
		a.Activity = a.Schedule.ActivityAt(clock, a.Personality.SleepWindow())
	}
}

// processingOrder snapshots the agent list and shuffles it with the
// simulation's seeded source.
func (s *Simulation) processingOrder() []*agents.Agent {
	order := make([]*agents.Agent, len(s.Agents))
	copy(order, s.Agents)
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// processAgent runs one agent's slice of the tick. A panic is contained to
// the agent, which is returned to idle.
func (s *Simulation) processAgent(a *agents.Agent) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger().Error("agent tick failed", "tick", s.tick, "panic", r)
			s.releaseInteraction(a)
			a.GoIdle()
			a.ResetTree()
		}
	}()

	c := &agents.TickContext{Agent: a, World: s.World, Rand: s.rng}
	a.UpdateNeeds()

	switch a.State {
	case agents.StateDoingAction:
		s.progressAction(c)
	case agents.StateInteracting:
		s.progressInteraction(c)
	case agents.StateIdle:
		a.Tree().Tick(c)
	case agents.StateMoving:
		s.move(c)
	}
}

func (s *Simulation) progressAction(c *agents.TickContext) {
	a := c.Agent
	a.ActionTicks--
	if a.Doing == world.CategoryWork && s.atWorkplace(a) {
		a.Money += s.cfg.Wage
	}
	if a.ActionTicks <= 0 {
		a.GoIdle()
		a.ResetTree()
	}
}

// atWorkplace reports whether a is standing where its current work happens.
func (s *Simulation) atWorkplace(a *agents.Agent) bool {
	loc := a.DoingAt
	if loc == "" {
		return false
	}
	if a.WorkPlace != "" && loc != a.WorkPlace {
		return false
	}
	if loc == world.HomeLocation {
		return a.Position == a.Home
	}
	pl, err := s.World.Places.Get(loc)
	return err == nil && pl.Contains(a.Position)
}

func (s *Simulation) progressInteraction(c *agents.TickContext) {
	a := c.Agent
	in := a.Interaction
	if in == nil {
		a.Logger().Warn("interacting without a conversation", "with", a.InteractingWith)
		a.InteractingWith = ""
		a.GoIdle()
		a.ResetTree()
		return
	}
	if in.LastTick != s.tick {
		in.Remaining--
		in.LastTick = s.tick
	}
	if in.Remaining <= 0 {
		s.endInteraction(in)
	}
}

// startInteraction begins a conversation between a and b sharing one counter.
func (s *Simulation) startInteraction(a, b *agents.Agent) {
	span := s.cfg.InteractionMax - s.cfg.InteractionMin + 1
	in := &agents.Interaction{
		A:         a.ID,
		B:         b.ID,
		Remaining: s.cfg.InteractionMin + s.rng.Intn(span),
		LastTick:  s.tick,
	}
	for _, pair := range [2][2]*agents.Agent{{a, b}, {b, a}} {
		self, other := pair[0], pair[1]
		self.GoIdle()
		self.ResetTree()
		self.State = agents.StateInteracting
		self.Interaction = in
		self.InteractingWith = other.ID
		self.Goal = "Chatting with " + other.Name
		self.Action = "Talking"
	}

	clock := s.World.Clock
	b.Remember(clock, fmt.Sprintf("%s came over to talk to me.", a.Name), 0.6)
	a.Remember(clock, fmt.Sprintf("I went over to talk to %s.", b.Name), 0.6)
	s.record(a.ID, "social", fmt.Sprintf("%s and %s started talking", a.Name, b.Name))
}

// endInteraction releases both participants in the same call.
func (s *Simulation) endInteraction(in *agents.Interaction) {
	for _, id := range [2]string{in.A, in.B} {
		p, ok := s.AgentIndex[id]
		if !ok || p.Interaction != in {
			continue
		}
		partner := in.Partner(id)
		p.Interaction = nil
		p.InteractingWith = ""
		p.GoIdle()
		p.ResetTree()
		if other, ok := s.AgentIndex[partner]; ok {
			p.Remember(s.World.Clock, fmt.Sprintf("Finished my conversation with %s.", other.Name), 0.4)
		}
	}
}

func (s *Simulation) releaseInteraction(a *agents.Agent) {
	if a.Interaction != nil {
		s.endInteraction(a.Interaction)
	}
	a.InteractingWith = ""
	a.Interaction = nil
}

// endOfDay builds the day-changed event and logs the daily report.
func (s *Simulation) endOfDay(prevDay int) *DayChanged {
	ids := make([]string, len(s.Agents))
	for i, a := range s.Agents {
		ids[i] = a.ID
	}
	dc := &DayChanged{
		ID:       uuid.NewString(),
		Tick:     s.tick,
		AgentIDs: ids,
		Day:      world.DayNames[prevDay],
		DayIndex: prevDay,
		NewDay:   s.World.Clock.Day,
	}
	// The finished day stays readable through the next one for the
	// journal and the diaries; anything older goes.
	for _, a := range s.Agents {
		a.KeepDay(prevDay)
	}
	s.record("", "day", fmt.Sprintf("%s is over", dc.Day))
	s.TickDay(dc.Day)
	return dc
}

// TickDay refreshes statistics and logs the daily report.
func (s *Simulation) TickDay(day string) {
	s.updateStats()

	eventCounts := make(map[string]int)
	for _, e := range s.Events {
		eventCounts[e.Category]++
	}

	s.log.Info("daily report",
		"tick", s.tick,
		"day", day,
		"agents", s.Stats.Agents,
		"avg_hunger", fmt.Sprintf("%.1f", s.Stats.AvgHunger),
		"avg_social", fmt.Sprintf("%.1f", s.Stats.AvgSocial),
		"avg_energy", fmt.Sprintf("%.1f", s.Stats.AvgEnergy),
		"total_money", humanize.Commaf(s.Stats.TotalMoney),
		"events_social", humanize.Comma(int64(eventCounts["social"])),
		"events_movement", humanize.Comma(int64(eventCounts["movement"])),
		"events_interrupt", humanize.Comma(int64(eventCounts["interrupt"])),
	)
}

func (s *Simulation) updateStats() {
	var st SimStats
	for _, a := range s.Agents {
		st.Agents++
		st.AvgHunger += a.Needs.Hunger
		st.AvgSocial += a.Needs.Social
		st.AvgEnergy += a.Needs.Energy
		st.TotalMoney += a.Money
		if a.State == agents.StateInteracting {
			st.Conversation++
		}
	}
	if st.Agents > 0 {
		n := float64(st.Agents)
		st.AvgHunger /= n
		st.AvgSocial /= n
		st.AvgEnergy /= n
	}
	s.Stats = st
}

func (s *Simulation) record(agentID, category, description string) {
	clock := s.World.Clock
	s.Events = append(s.Events, Event{
		Tick:        s.tick,
		Day:         clock.DayName(),
		Time:        fmt.Sprintf("%02d:%02d", clock.Hour, clock.Minute),
		AgentID:     agentID,
		Description: description,
		Category:    category,
	})
}
