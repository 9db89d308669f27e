package world

import "errors"

// Sentinel errors for movement resolution.
var (
	ErrNoPath    = errors.New("world: no path to target")
	ErrSaturated = errors.New("world: no free cell at destination")
)

// FindPath runs a breadth-first search from start to target over 4-connected
// neighbours, exploring down, up, right, left. A cell is traversable when it
// is walkable and either is the target or is not in occupied. The returned
// path includes both endpoints; start == target yields a single-cell path.
// The boolean is false when the target cannot be reached.
func FindPath(start, target Point, g *Grid, occupied PointSet) ([]Point, bool) {
	if !g.InBounds(start) || !g.Walkable(target) {
		return nil, false
	}
	if start == target {
		return []Point{start}, true
	}

	parent := make(map[Point]Point, g.CellCount())
	parent[start] = start
	queue := make([]Point, 0, g.CellCount())
	queue = append(queue, start)

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for _, d := range stepDirections {
			next := cur.Add(d)
			if _, seen := parent[next]; seen {
				continue
			}
			if !g.Walkable(next) {
				continue
			}
			if next != target && occupied.Has(next) {
				continue
			}
			parent[next] = cur
			if next == target {
				return tracePath(parent, start, target), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func tracePath(parent map[Point]Point, start, target Point) []Point {
	var rev []Point
	for p := target; p != start; p = parent[p] {
		rev = append(rev, p)
	}
	rev = append(rev, start)

	path := make([]Point, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

// Reachable returns the number of walkable cells connected to from,
// including from itself.
func Reachable(g *Grid, from Point) int {
	if !g.Walkable(from) {
		return 0
	}
	seen := NewPointSet(from)
	queue := []Point{from}
	for head := 0; head < len(queue); head++ {
		for _, d := range stepDirections {
			next := queue[head].Add(d)
			if seen.Has(next) || !g.Walkable(next) {
				continue
			}
			seen.Add(next)
			queue = append(queue, next)
		}
	}
	return len(seen)
}
