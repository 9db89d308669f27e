// Command townsim runs the mini-town agent simulation with its HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/talgya/mini-town/internal/api"
	"github.com/talgya/mini-town/internal/config"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/journal"
	"github.com/talgya/mini-town/internal/narrative"
	"github.com/talgya/mini-town/internal/recorder"
)

func main() {
	configPath := flag.String("config", "", "town YAML file (default: built-in town)")
	seed := flag.Int64("seed", 0, "override the configured seed")
	addr := flag.String("addr", ":8080", "HTTP listen address (empty disables the API)")
	dbPath := flag.String("db", journal.InMemory, "journal database path")
	recordDir := flag.String("record", "", "directory for zstd snapshot recordings")
	interval := flag.Duration("interval", 0, "override the real time between ticks")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *seed, *addr, *dbPath, *recordDir, *interval, logger); err != nil {
		slog.Error("townsim failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, seed int64, addr, dbPath, recordDir string, interval time.Duration, logger *slog.Logger) error {
	// ── Town ──────────────────────────────────────────────────────────
	var (
		file *config.File
		err  error
	)
	if configPath == "" {
		file, err = config.Default()
	} else {
		file, err = config.Load(configPath)
	}
	if err != nil {
		return err
	}
	town, err := file.Build()
	if err != nil {
		return err
	}
	if seed != 0 {
		town.Engine.Seed = seed
	}
	if interval > 0 {
		town.Interval = interval
	}

	sim, err := town.Simulation(logger)
	if err != nil {
		return err
	}
	slog.Info("town ready",
		"run", sim.RunID,
		"grid", town.Grid.String(),
		"places", len(town.Places),
		"activities", len(town.Activities),
		"agents", len(sim.Agents),
		"start", town.Start.String(),
	)

	// ── Journal ───────────────────────────────────────────────────────
	db, err := journal.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()
	slog.Info("journal opened", "path", dbPath)

	// ── Recorder ──────────────────────────────────────────────────────
	var rec *recorder.Recorder
	if recordDir != "" {
		if rec, err = recorder.New(recordDir, sim.RunID); err != nil {
			return fmt.Errorf("open recorder: %w", err)
		}
		defer rec.Close()
		slog.Info("recording snapshots", "dir", recordDir)
	}

	// ── Narrative ─────────────────────────────────────────────────────
	var llm narrative.Completer
	if client := narrative.NewClient(os.Getenv("ANTHROPIC_API_KEY")); client.Enabled() {
		llm = client
		slog.Info("LLM client enabled")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, diaries will use templates")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.NewEngine(sim)
	eng.Interval = town.Interval
	writer := narrative.NewWriter(llm, eng, db, logger)

	// ── HTTP API ──────────────────────────────────────────────────────
	var srv *api.Server
	if addr != "" {
		adminKey := os.Getenv("TOWNSIM_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("TOWNSIM_ADMIN_KEY not set, pause/resume are disabled")
		}
		srv = api.NewServer(eng, addr, adminKey)
		srv.Journal = db
		srv.Grid = town.Grid
		srv.Places = town.Places
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				slog.Error("HTTP API stopped", "error", err)
				stop()
			}
		}()
	}

	// Callbacks run on the ticker goroutine.
	eng.OnTick = func(res engine.Result) {
		if err := db.SaveEvents(sim.RunID, res.Events); err != nil {
			slog.Error("save events failed", "tick", res.Snapshot.Tick, "error", err)
		}
		if srv != nil {
			srv.Publish(res)
		}
		if rec != nil {
			if err := rec.Record(res); err != nil {
				slog.Error("record failed", "tick", res.Snapshot.Tick, "error", err)
			}
		}
	}
	diaries := &dayQueue{write: func(ctx context.Context, dc engine.DayChanged) error {
		_, err := writer.WriteDay(ctx, dc)
		return err
	}}
	defer func() {
		stop()
		diaries.Wait()
	}()
	eng.OnDay = func(dc engine.DayChanged) {
		if err := db.SaveDay(eng, dc); err != nil {
			slog.Error("daily save failed", "day", dc.Day, "error", err)
		}
		diaries.Go(ctx, dc)
	}

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nMini-town is alive: %d residents on a %dx%d grid.\n", len(sim.Agents), town.Grid.Width, town.Grid.Height)
	if addr != "" {
		fmt.Printf("API: http://localhost%s/api/v1/status\n", addr)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	if err := eng.Run(ctx); err != nil {
		return err
	}

	stats := eng.Stats()
	slog.Info("simulation stopped", "tick", sim.CurrentTick(), "total_money", stats.TotalMoney)
	return nil
}

// dayQueue writes each finished day off the ticker goroutine. Wait blocks
// until every write has returned, so the journal can be closed after it.
type dayQueue struct {
	write func(context.Context, engine.DayChanged) error
	wg    sync.WaitGroup
}

func (q *dayQueue) Go(ctx context.Context, dc engine.DayChanged) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.write(ctx, dc); err != nil {
			slog.Error("narrative failed", "day", dc.Day, "error", err)
		}
	}()
}

func (q *dayQueue) Wait() { q.wg.Wait() }
