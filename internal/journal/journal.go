// Package journal provides SQLite-backed storage for agent memories, town
// events and generated diaries. The default database lives in memory for
// the lifetime of the process.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/engine"
)

// InMemory is the path that selects a private in-memory database.
const InMemory = ":memory:"

// Entry kinds.
const (
	KindDiary = "diary"
	KindStory = "story"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("journal: not found")

// Entry is a generated diary page or daily town story.
type Entry struct {
	ID      string `json:"id" db:"id"`
	Kind    string `json:"kind" db:"kind"`
	AgentID string `json:"agent_id,omitempty" db:"agent_id"` // empty for stories
	Day     int    `json:"day" db:"day"`
	DayName string `json:"day_name" db:"day_name"`
	Text    string `json:"text" db:"text"`
	Source  string `json:"source" db:"source"` // "template" or "llm"
	Created int64  `json:"created" db:"created"` // unix seconds
}

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a database at path. An empty path or InMemory keeps
// everything in memory.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == "" || path == InMemory {
		dsn = InMemory
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		day INTEGER NOT NULL,
		day_name TEXT NOT NULL,
		time TEXT NOT NULL,
		content TEXT NOT NULL,
		importance REAL NOT NULL,
		UNIQUE (agent_id, seq)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		day TEXT NOT NULL,
		time TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		day_name TEXT NOT NULL,
		text TEXT NOT NULL,
		source TEXT NOT NULL,
		created INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memories_agent_day ON memories(agent_id, day);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_entries_day ON entries(day, kind);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMemories stores an agent's memories. Memories already stored are
// skipped, so the full stream can be passed every time.
func (db *DB) SaveMemories(agentID string, mems []agents.Memory) error {
	if len(mems) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO memories
		(id, agent_id, seq, day, day_name, time, content, importance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range mems {
		if _, err := stmt.Exec(uuid.NewString(), agentID, m.Seq, m.Day, m.DayName, m.Time, m.Content, m.Importance); err != nil {
			return fmt.Errorf("insert memory %s/%d: %w", agentID, m.Seq, err)
		}
	}
	return tx.Commit()
}

// Memories returns an agent's stored memories for day, oldest first.
func (db *DB) Memories(agentID string, day int) ([]agents.Memory, error) {
	var mems []agents.Memory
	err := db.conn.Select(&mems,
		`SELECT seq, day, day_name, time, content, importance FROM memories
		 WHERE agent_id = ? AND day = ? ORDER BY seq`,
		agentID, day,
	)
	return mems, err
}

// SaveEvents appends events recorded by a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			`INSERT INTO events (id, run_id, tick, day, time, agent_id, description, category)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), runID, e.Tick, e.Day, e.Time, e.AgentID, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns the most recent events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT tick, day, time, agent_id, description, category FROM events
		 ORDER BY tick DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return events, err
}

// SaveEntry stores a diary page or story, assigning an id and timestamp
// when missing.
func (db *DB) SaveEntry(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Created == 0 {
		e.Created = time.Now().Unix()
	}
	_, err := db.conn.NamedExec(`INSERT INTO entries
		(id, kind, agent_id, day, day_name, text, source, created)
		VALUES (:id, :kind, :agent_id, :day, :day_name, :text, :source, :created)`, e)
	if err != nil {
		return e, fmt.Errorf("insert %s entry: %w", e.Kind, err)
	}
	slog.Debug("journal entry saved", "kind", e.Kind, "agent", e.AgentID, "day", e.DayName)
	return e, nil
}

// Entries returns all entries of kind written for day, oldest first.
func (db *DB) Entries(kind string, day int) ([]Entry, error) {
	var out []Entry
	err := db.conn.Select(&out,
		`SELECT * FROM entries WHERE kind = ? AND day = ? ORDER BY created, rowid`,
		kind, day,
	)
	return out, err
}

// Diary returns the latest diary page an agent wrote for day.
func (db *DB) Diary(agentID string, day int) (Entry, error) {
	var e Entry
	err := db.conn.Get(&e,
		`SELECT * FROM entries WHERE kind = ? AND agent_id = ? AND day = ?
		 ORDER BY created DESC, rowid DESC LIMIT 1`,
		KindDiary, agentID, day,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("%w: diary of %s for day %d", ErrNotFound, agentID, day)
	}
	return e, err
}

// MetaLastDayTick is the meta key holding the tick of the last saved day.
const MetaLastDayTick = "last_day_tick"

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: meta %q", ErrNotFound, key)
	}
	return value, err
}

// MemorySource reads an agent's memories for a day.
type MemorySource interface {
	Memories(agentID string, day int) ([]agents.Memory, bool)
}

// SaveDay persists every agent's memories for a finished day together with
// the tick it ended on.
func (db *DB) SaveDay(src MemorySource, dc engine.DayChanged) error {
	slog.Info("saving day", "day", dc.Day, "agents", len(dc.AgentIDs))
	for _, id := range dc.AgentIDs {
		mems, ok := src.Memories(id, dc.DayIndex)
		if !ok {
			continue
		}
		if err := db.SaveMemories(id, mems); err != nil {
			return fmt.Errorf("save memories: %w", err)
		}
	}
	if err := db.SaveMeta(MetaLastDayTick, fmt.Sprintf("%d", dc.Tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}
