package world

import (
	"errors"
	"fmt"
	"strings"
)

// Terrain is the single-character code of a grid cell, e.g. 'P' for path or
// 'G' for grass.
type Terrain byte

// Grid holds the static terrain layout of the town. It is read-only once built.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	rows    [][]Terrain
	blocked [256]bool
}

// ErrEmptyGrid is returned when a layout has no cells.
var ErrEmptyGrid = errors.New("world: empty grid layout")

// NewGrid builds a grid from rows of terrain codes. Every cell whose code
// appears in blocked is not walkable. Rows must all have the same width.
func NewGrid(rows []string, blocked string) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}

	g := &Grid{
		Width:  len(rows[0]),
		Height: len(rows),
		rows:   make([][]Terrain, len(rows)),
	}
	for i := 0; i < len(blocked); i++ {
		g.blocked[blocked[i]] = true
	}

	for y, row := range rows {
		if len(row) != g.Width {
			return nil, fmt.Errorf("world: row %d has width %d, want %d", y, len(row), g.Width)
		}
		g.rows[y] = make([]Terrain, g.Width)
		for x := 0; x < len(row); x++ {
			g.rows[y][x] = Terrain(row[x])
		}
	}

	return g, nil
}

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Terrain returns the terrain code at p, or false if p is off the grid.
func (g *Grid) Terrain(p Point) (Terrain, bool) {
	if !g.InBounds(p) {
		return 0, false
	}
	return g.rows[p.Y][p.X], true
}

// Walkable reports whether agents may stand on p.
func (g *Grid) Walkable(p Point) bool {
	t, ok := g.Terrain(p)
	return ok && !g.blocked[t]
}

// CellCount returns the total number of cells.
func (g *Grid) CellCount() int {
	return g.Width * g.Height
}

// WalkableCount returns the number of walkable cells.
func (g *Grid) WalkableCount() int {
	n := 0
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.Walkable(Point{X: x, Y: y}) {
				n++
			}
		}
	}
	return n
}

// Rows returns the layout as strings, one per row.
func (g *Grid) Rows() []string {
	out := make([]string, g.Height)
	var b strings.Builder
	for y, row := range g.rows {
		b.Reset()
		for _, t := range row {
			b.WriteByte(byte(t))
		}
		out[y] = b.String()
	}
	return out
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, walkable=%d)", g.Width, g.Height, g.WalkableCount())
}
