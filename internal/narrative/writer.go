package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/journal"
)

// Entry sources.
const (
	SourceTemplate = "template"
	SourceLLM      = "llm"
)

// Source gives the writer read access to the town.
type Source interface {
	Memories(agentID string, day int) ([]agents.Memory, bool)
	AgentName(agentID string) (string, bool)
}

// Store keeps written entries.
type Store interface {
	SaveEntry(e journal.Entry) (journal.Entry, error)
}

// Day is everything written for one finished day.
type Day struct {
	Diaries []journal.Entry
	Story   journal.Entry
}

// Writer produces diaries and stories from day-changed events.
type Writer struct {
	Timeout time.Duration // per LLM call

	llm   Completer
	src   Source
	store Store
	log   *slog.Logger
}

// NewWriter creates a writer. llm and store may be nil: without llm every
// entry comes from the templates, without store nothing is persisted.
func NewWriter(llm Completer, src Source, store Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		Timeout: 45 * time.Second,
		llm:     llm,
		src:     src,
		store:   store,
		log:     logger,
	}
}

// WriteDay writes one diary page per agent of dc, then compiles the town
// story from those pages.
func (w *Writer) WriteDay(ctx context.Context, dc engine.DayChanged) (Day, error) {
	var day Day
	for _, id := range dc.AgentIDs {
		name, ok := w.src.AgentName(id)
		if !ok {
			continue
		}
		mems, _ := w.src.Memories(id, dc.DayIndex)
		e, err := w.save(w.diary(ctx, id, name, dc, mems))
		if err != nil {
			return day, err
		}
		day.Diaries = append(day.Diaries, e)
	}

	story, err := w.save(w.story(ctx, dc, day.Diaries))
	if err != nil {
		return day, err
	}
	day.Story = story

	w.log.Info("day written", "day", dc.Day, "diaries", len(day.Diaries), "story_source", story.Source)
	return day, nil
}

func (w *Writer) save(e journal.Entry) (journal.Entry, error) {
	if w.store == nil {
		return e, nil
	}
	saved, err := w.store.SaveEntry(e)
	if err != nil {
		return e, fmt.Errorf("save %s: %w", e.Kind, err)
	}
	return saved, nil
}

func (w *Writer) diary(ctx context.Context, id, name string, dc engine.DayChanged, mems []agents.Memory) journal.Entry {
	e := journal.Entry{
		Kind:    journal.KindDiary,
		AgentID: id,
		Day:     dc.DayIndex,
		DayName: dc.Day,
		Text:    TemplateDiary(name, dc.Day, mems),
		Source:  SourceTemplate,
	}

	var lines []string
	for _, m := range mems {
		lines = append(lines, "- "+m.Content)
	}
	prompt := fmt.Sprintf("You are %s, a resident of a lively town.\n"+
		"Today is %s. Here are your key memories and experiences for the day:\n%s\n"+
		"Write a detailed, believable diary entry for this day. Include your thoughts, feelings, "+
		"and any notable events or interactions. Use a natural, personal tone. "+
		"End with a reflection or hope for tomorrow.",
		name, dc.Day, strings.Join(lines, "\n"))

	if text, ok := w.complete(ctx, prompt, 500, "agent", id); ok {
		e.Text, e.Source = text, SourceLLM
	}
	return e
}

func (w *Writer) story(ctx context.Context, dc engine.DayChanged, diaries []journal.Entry) journal.Entry {
	e := journal.Entry{
		Kind:    journal.KindStory,
		Day:     dc.DayIndex,
		DayName: dc.Day,
		Text:    TemplateStory(dc.Day, w.names(diaries), diaries),
		Source:  SourceTemplate,
	}

	pages := make([]string, len(diaries))
	for i, d := range diaries {
		pages[i] = d.Text
	}
	prompt := fmt.Sprintf("Here are the diary entries of all residents for %s:\n%s\n"+
		"Write a vivid, engaging story summarizing the day in the town. Capture the atmosphere, "+
		"major events, and how the lives of the residents intertwined. Write as a storyteller "+
		"describing the town's day for a local newspaper. End with a closing remark or teaser "+
		"for the next day.",
		dc.Day, strings.Join(pages, "\n---\n"))

	if text, ok := w.complete(ctx, prompt, 800, "day", dc.Day); ok {
		e.Text, e.Source = text, SourceLLM
	}
	return e
}

// complete asks the LLM, logging and swallowing failures.
func (w *Writer) complete(ctx context.Context, prompt string, maxTokens int, attrs ...any) (string, bool) {
	if w.llm == nil {
		return "", false
	}
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	text, err := w.llm.Complete(ctx, "You write for a small town simulation. Do not mention that it is a simulation.", prompt, maxTokens)
	if err != nil {
		w.log.Warn("narrative call failed, using template", append(attrs, "error", err)...)
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func (w *Writer) names(diaries []journal.Entry) map[string]string {
	out := make(map[string]string, len(diaries))
	for _, d := range diaries {
		if name, ok := w.src.AgentName(d.AgentID); ok {
			out[d.AgentID] = name
		}
	}
	return out
}

// TemplateDiary renders a diary page from the day's memories.
func TemplateDiary(name, day string, mems []agents.Memory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear diary,\n\nToday was %s. ", day)
	if len(mems) == 0 {
		b.WriteString("Nothing much happened that I care to remember.\n")
	} else {
		fmt.Fprintf(&b, "I have %s worth writing down.\n\n", plural(len(mems), "thing", "things"))
		for _, m := range mems {
			fmt.Fprintf(&b, "At %s: %s\n", m.Time, m.Content)
		}
	}
	fmt.Fprintf(&b, "\nI hope tomorrow is a good day.\n%s\n", name)
	return b.String()
}

// TemplateStory compiles the town story from the day's diary pages.
func TemplateStory(day string, names map[string]string, diaries []journal.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in town\n\n", day)
	if len(diaries) == 0 {
		b.WriteString("The streets were quiet and no one wrote a word.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%s kept a diary today.\n", plural(len(diaries), "resident", "residents"))
	for _, d := range diaries {
		name := names[d.AgentID]
		if name == "" {
			name = d.AgentID
		}
		fmt.Fprintf(&b, "\n%s: %s\n", name, highlight(d.Text))
	}
	b.WriteString("\nWhat will tomorrow bring?\n")
	return b.String()
}

// highlight picks the most telling line of a diary page: the first
// remembered moment, else the first line after the greeting.
func highlight(text string) string {
	fallback := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "At "); ok {
			if _, content, ok := strings.Cut(rest, ": "); ok {
				return content
			}
		}
		if fallback == "" && line != "" && !strings.HasPrefix(line, "Dear diary") {
			fallback = line
		}
	}
	return fallback
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}
