package world

import (
	"errors"
	"fmt"
	"strings"
)

// HomeLocation is the reserved location name that resolves to an agent's own
// home cell rather than a shared place.
const HomeLocation = "home"

// ErrUnknownPlace is returned for place names missing from the registry.
var ErrUnknownPlace = errors.New("world: unknown place")

// Place is a named area of the town. Coords keep their declaration order so
// cell selection is reproducible under a fixed seed.
type Place struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Coords []Point `json:"coords"`
}

// Contains reports whether p is one of the place's cells.
func (pl *Place) Contains(p Point) bool {
	for _, c := range pl.Coords {
		if c == p {
			return true
		}
	}
	return false
}

// Places is the named-place registry.
type Places map[string]*Place

// Get looks up a place by name.
func (ps Places) Get(name string) (*Place, error) {
	pl, ok := ps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlace, name)
	}
	return pl, nil
}

// Validate checks that every place has at least one walkable, in-bounds cell.
func (ps Places) Validate(g *Grid) error {
	for name, pl := range ps {
		if len(pl.Coords) == 0 {
			return fmt.Errorf("world: place %q has no coordinates", name)
		}
		walkable := 0
		for _, c := range pl.Coords {
			if !g.InBounds(c) {
				return fmt.Errorf("world: place %q cell %v is off the grid", name, c)
			}
			if g.Walkable(c) {
				walkable++
			}
		}
		if walkable == 0 {
			return fmt.Errorf("world: place %q has no walkable cells", name)
		}
	}
	return nil
}

// Category groups activities by how they affect needs.
type Category uint8

const (
	CategoryFree Category = iota
	CategorySleep
	CategoryWork
	CategoryEat
	CategorySocialize
	CategoryStudy
	CategoryShop
	CategoryRelax
)

var categoryNames = [...]string{
	CategoryFree:      "free",
	CategorySleep:     "sleep",
	CategoryWork:      "work",
	CategoryEat:       "eat",
	CategorySocialize: "socialize",
	CategoryStudy:     "study",
	CategoryShop:      "shop",
	CategoryRelax:     "relax",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// ParseCategory converts a category name into a Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return CategoryFree, fmt.Errorf("world: unknown activity category %q", s)
}

// CategoryOf infers a category from an activity label such as
// "work_at_cafe" or "hang_out_at_park".
func CategoryOf(label string) Category {
	switch {
	case label == "":
		return CategoryFree
	case strings.HasPrefix(label, "sleep"):
		return CategorySleep
	case strings.HasPrefix(label, "work"):
		return CategoryWork
	case strings.HasPrefix(label, "eat"):
		return CategoryEat
	case strings.HasPrefix(label, "socialize"), strings.HasPrefix(label, "hang_out"):
		return CategorySocialize
	case strings.HasPrefix(label, "study"), strings.HasPrefix(label, "read"):
		return CategoryStudy
	case strings.HasPrefix(label, "shop"), strings.HasPrefix(label, "get_"):
		return CategoryShop
	case strings.HasPrefix(label, "relax"):
		return CategoryRelax
	}
	return CategoryFree
}

// Activity describes where a scheduled activity happens and what it costs.
type Activity struct {
	Label    string   `json:"label"`
	Location string   `json:"location"`
	Cost     float64  `json:"cost"`
	Category Category `json:"category"`
	Duration int      `json:"duration"` // ticks per session
	Text     string   `json:"text"`     // human-readable action text
}

// Activities is the activity registry keyed by label.
type Activities map[string]Activity

// Lookup returns the activity registered under label.
func (as Activities) Lookup(label string) (Activity, bool) {
	a, ok := as[label]
	return a, ok
}

// Validate checks that every activity points at a known place or at home.
func (as Activities) Validate(ps Places) error {
	for label, a := range as {
		if a.Duration <= 0 {
			return fmt.Errorf("world: activity %q has non-positive duration", label)
		}
		if a.Cost < 0 {
			return fmt.Errorf("world: activity %q has negative cost", label)
		}
		if a.Location == HomeLocation {
			continue
		}
		if _, err := ps.Get(a.Location); err != nil {
			return fmt.Errorf("activity %q: %w", label, err)
		}
	}
	return nil
}
