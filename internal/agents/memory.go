// Agent memory stream: notable experiences stamped with simulated day and
// time, read back by the narrative generator and the API.
package agents

import (
	"fmt"
	"sort"

	"github.com/talgya/mini-town/internal/world"
)

const MaxMemories = 50

// Memory records a notable experience in an agent's life.
type Memory struct {
	Day        int     `json:"day" db:"day"`
	DayName    string  `json:"day_name" db:"day_name"`
	Time       string  `json:"time" db:"time"` // HH:MM
	Seq        uint64  `json:"seq" db:"seq"`
	Content    string  `json:"content" db:"content"`
	Importance float32 `json:"importance" db:"importance"` // 0.0–1.0
}

// Remember appends a memory to the agent's stream. When full, the
// lowest-importance memory makes room if the new one matters more.
func (a *Agent) Remember(c world.Clock, content string, importance float32) {
	a.memSeq++
	m := Memory{
		Day:        c.Day,
		DayName:    c.DayName(),
		Time:       fmt.Sprintf("%02d:%02d", c.Hour, c.Minute),
		Seq:        a.memSeq,
		Content:    content,
		Importance: importance,
	}
	a.Logger().Debug("memory", "at", m.Time, "content", content)

	if len(a.Memories) < MaxMemories {
		a.Memories = append(a.Memories, m)
		return
	}

	minIdx := 0
	for i := 1; i < len(a.Memories); i++ {
		if a.Memories[i].Importance < a.Memories[minIdx].Importance {
			minIdx = i
		}
	}
	if m.Importance > a.Memories[minIdx].Importance {
		a.Memories[minIdx] = m
	}
}

// MemoriesForDay returns the memories recorded on day, oldest first.
func (a *Agent) MemoriesForDay(day int) []Memory {
	var out []Memory
	for _, m := range a.Memories {
		if m.Day == day {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// KeepDay drops every memory not recorded on day. Memories carry only the
// weekday, so the stream never holds more than the last day and the current
// one.
func (a *Agent) KeepDay(day int) {
	kept := a.Memories[:0]
	for _, m := range a.Memories {
		if m.Day == day {
			kept = append(kept, m)
		}
	}
	a.Memories = kept
}

// RecentMemories returns the most recent N memories, newest first.
func (a *Agent) RecentMemories(count int) []Memory {
	if len(a.Memories) == 0 {
		return nil
	}

	sorted := make([]Memory, len(a.Memories))
	copy(sorted, a.Memories)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Seq > sorted[j].Seq
	})

	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}

// ImportantMemories returns the top N memories by importance.
func (a *Agent) ImportantMemories(count int) []Memory {
	if len(a.Memories) == 0 {
		return nil
	}

	sorted := make([]Memory, len(a.Memories))
	copy(sorted, a.Memories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})

	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}
