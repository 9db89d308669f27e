// Package world provides the town grid, named places, the activity registry,
// the simulated clock, and BFS pathfinding over the grid.
package world

import "fmt"

// Point is a cell on the grid. X grows to the right, Y grows downward.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is a convenience constructor for Point.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Add returns p offset by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Touches reports whether q is p itself or one of its eight neighbours.
func (p Point) Touches(q Point) bool {
	return abs(p.X-q.X) <= 1 && abs(p.Y-q.Y) <= 1
}

// Manhattan returns the 4-connected distance between p and q.
func (p Point) Manhattan(q Point) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Step directions in BFS exploration order: down, up, right, left.
var stepDirections = [4]Point{
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
}

// vicinityDirections are the eight cells surrounding a point.
var vicinityDirections = [8]Point{
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 1, Y: 1},
	{X: 1, Y: -1},
	{X: -1, Y: 1},
	{X: -1, Y: -1},
}

// Vicinity returns the eight cells around p in a fixed order.
func Vicinity(p Point) []Point {
	out := make([]Point, 0, len(vicinityDirections))
	for _, d := range vicinityDirections {
		out = append(out, p.Add(d))
	}
	return out
}

// PointSet is an unordered set of cells.
type PointSet map[Point]struct{}

// NewPointSet builds a set from the given points.
func NewPointSet(points ...Point) PointSet {
	s := make(PointSet, len(points))
	for _, p := range points {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set. A nil set is empty.
func (s PointSet) Has(p Point) bool {
	_, ok := s[p]
	return ok
}

// Add inserts p.
func (s PointSet) Add(p Point) {
	s[p] = struct{}{}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
