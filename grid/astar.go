package grid

// node is a single A* search node. Adapted from the teacher's open/closed
// list structure (worldmap/astar.go) but keyed by tile rather than a
// reflect-based generic node, and bounded by an explicit expansion ceiling
// per spec.md §4.1 ("node budget, not wall-clock").
type node struct {
	parent *node
	pos    Tile
	g, h, f int
}

// DefaultPathLimit is a suggested node-expansion budget for callers that
// want one; ComputePath does not apply it on its own, and a limit of 0
// passed to ComputePath means no ceiling (spec.md §4.1).
const DefaultPathLimit = 2000

// ComputePath runs A* with a Manhattan heuristic from start to end,
// respecting movementType for traversability. out is populated with
// waypoints ordered from end back toward start (the last element is the
// next step — callers pop from the back on arrival), matching spec.md
// §4.1. limit bounds node expansions; 0 disables the ceiling. Returns
// false (with out left empty) if no path was found or the budget was
// exhausted without reaching the goal.
func (g *Grid) ComputePath(start, end Tile, movementType MovementType, limit int) (out []Tile, found bool) {
	if start.Equal(end) {
		return nil, true
	}

	open := []*node{{pos: start}}
	closed := make(map[Tile]bool)
	bestG := map[Tile]int{start: 0}

	expansions := 0
	for len(open) > 0 {
		if limit > 0 && expansions >= limit {
			return nil, false
		}
		expansions++

		// Pop lowest-f node (linear scan, matching the teacher's approach —
		// fine at the map sizes this engine targets).
		bestIdx := 0
		for i, n := range open {
			if n.f < open[bestIdx].f {
				bestIdx = i
			}
		}
		current := open[bestIdx]
		open = append(open[:bestIdx], open[bestIdx+1:]...)

		if current.pos.Equal(end) {
			path := make([]Tile, 0)
			for n := current; n.parent != nil; n = n.parent {
				path = append(path, n.pos)
			}
			return path, true
		}
		closed[current.pos] = true

		for _, d := range [4]Tile{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
			next := Tile{X: current.pos.X + d.X, Y: current.pos.Y + d.Y}
			if next.X < 0 || next.Y < 0 || next.X >= g.Width || next.Y >= g.Height {
				continue
			}
			if closed[next] {
				continue
			}
			if movementBlocking(g.CellAt(next.X, next.Y), movementType) {
				continue
			}

			tentativeG := current.g + 1
			if prevG, seen := bestG[next]; seen && tentativeG >= prevG {
				continue
			}
			bestG[next] = tentativeG

			h := next.ManhattanDistance(end)
			open = append(open, &node{
				parent: current,
				pos:    next,
				g:      tentativeG,
				h:      h,
				f:      tentativeG + h,
			})
		}
	}

	return nil, false
}

// BuildPath computes a path between two floating-point positions and
// returns it as map-space waypoints (tile centers), ordered end-to-start
// like ComputePath.
func (g *Grid) BuildPath(start, end Point, movementType MovementType, limit int) ([]Point, bool) {
	tiles, found := g.ComputePath(start.Tile(), end.Tile(), movementType, limit)
	if !found {
		return nil, false
	}
	pts := make([]Point, len(tiles))
	for i, t := range tiles {
		pts[i] = t.Point()
	}
	return pts, true
}

// RandomNeighbor uniformly samples a valid tile within Chebyshev distance
// radius of center; if none are valid, it returns center itself (spec.md
// §4.1 get_random_neighbor). roll is a uniform-int source over [0,n) —
// callers pass the shared simrand.Source.Pick so randomness consumption
// stays in the documented deterministic order.
func (g *Grid) RandomNeighbor(center Tile, radius int, movementType MovementType, collideType CollideType, pick func(n int) int) Point {
	candidates := make([]Tile, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			t := Tile{X: center.X + dx, Y: center.Y + dy}
			if t.X < 0 || t.Y < 0 || t.X >= g.Width || t.Y >= g.Height {
				continue
			}
			if !passable(g.CellAt(t.X, t.Y), movementType, collideType) {
				continue
			}
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return center.Point()
	}
	return candidates[pick(len(candidates))].Point()
}
