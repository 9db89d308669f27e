package world

import "math/rand"

// Reservations tracks cells claimed as movement targets during the current
// tick. It is distinct from occupancy: a reserved cell may still be empty.
type Reservations struct {
	owners map[Point]string
}

// NewReservations returns an empty reservation set.
func NewReservations() *Reservations {
	return &Reservations{owners: make(map[Point]string)}
}

// Reserve claims p for owner. It returns false if another owner already
// holds p. Re-reserving one's own cell succeeds.
func (r *Reservations) Reserve(p Point, owner string) bool {
	if cur, ok := r.owners[p]; ok && cur != owner {
		return false
	}
	r.owners[p] = owner
	return true
}

// Reserved reports whether p is claimed by anyone other than owner.
func (r *Reservations) Reserved(p Point, owner string) bool {
	cur, ok := r.owners[p]
	return ok && cur != owner
}

// Owner returns who reserved p.
func (r *Reservations) Owner(p Point) (string, bool) {
	cur, ok := r.owners[p]
	return cur, ok
}

// Clear drops every reservation. Called at the start of each tick.
func (r *Reservations) Clear() {
	clear(r.owners)
}

// Len returns the number of reserved cells.
func (r *Reservations) Len() int {
	return len(r.owners)
}

// PickCell chooses a free cell from candidates for owner and reserves it.
// A cell is free when it is walkable, not occupied, not reserved by another
// owner and not in exclude. Candidates keep their order, so the choice is
// reproducible for a given rng state. Returns false when the destination is
// saturated.
func PickCell(candidates []Point, g *Grid, occupied PointSet, res *Reservations,
	owner string, rng *rand.Rand, exclude ...Point) (Point, bool) {

	skip := NewPointSet(exclude...)
	free := make([]Point, 0, len(candidates))
	for _, c := range candidates {
		if !g.Walkable(c) || occupied.Has(c) || skip.Has(c) {
			continue
		}
		if res != nil && res.Reserved(c, owner) {
			continue
		}
		free = append(free, c)
	}
	if len(free) == 0 {
		return Point{}, false
	}

	pick := free[rng.Intn(len(free))]
	if res != nil {
		res.Reserve(pick, owner)
	}
	return pick, true
}
