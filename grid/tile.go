package grid

import "math"

// CellType enumerates the collision layer's tile kinds, per spec.md §3.1.
type CellType int

const (
	Empty CellType = iota
	WallAll
	WallMovement
	HiddenAll
	HiddenMovement
	MapOnly
	MapOnlyAlt
	EntityAny
	EntityAlly
)

// MovementType tags which cell types an entity or hazard can traverse
// (spec.md §3.1, §4.1).
type MovementType int

const (
	Normal MovementType = iota
	Flying
	Intangible
)

// CollideType selects whether entity-occupied tiles count as blocking.
type CollideType int

const (
	CollideNormal CollideType = iota // ENTITY_COLLIDE_ALL
	CollideNone                      // ENTITY_COLLIDE_NONE
)

// Grid is the shared mutable collision layer (spec.md C1, §5 "shared
// mutable collision grid"). Out-of-bounds access behaves as WallAll
// (spec.md §4.1 failure model).
type Grid struct {
	Width, Height int
	cells         []CellType
	// static holds each tile's authored type, so block/unblock can restore
	// it without needing the caller to remember what was there before.
	static []CellType
}

// New builds a grid of the given dimensions, all tiles Empty.
func New(width, height int) *Grid {
	n := width * height
	g := &Grid{
		Width:  width,
		Height: height,
		cells:  make([]CellType, n),
		static: make([]CellType, n),
	}
	return g
}

func (g *Grid) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return 0, false
	}
	return y*g.Width + x, true
}

// CellAt returns the tile type at (x,y), treating out-of-bounds as WallAll.
func (g *Grid) CellAt(x, y int) CellType {
	idx, ok := g.index(x, y)
	if !ok {
		return WallAll
	}
	return g.cells[idx]
}

// SetStatic loads the authored tile type for (x,y) — used by the map
// loader, never by entity block/unblock.
func (g *Grid) SetStatic(x, y int, t CellType) {
	idx, ok := g.index(x, y)
	if !ok {
		return
	}
	g.cells[idx] = t
	g.static[idx] = t
}

// passable reports whether cellType can be entered by movementType under
// collideType, per spec.md §4.1(b)(c).
func passable(cellType CellType, movementType MovementType, collideType CollideType) bool {
	switch cellType {
	case EntityAny, EntityAlly:
		if collideType == CollideNormal {
			return false
		}
		return true
	case WallAll:
		return movementType == Intangible
	case HiddenAll:
		return movementType == Intangible
	case WallMovement:
		return movementType == Flying || movementType == Intangible
	case HiddenMovement:
		return movementType == Flying || movementType == Intangible
	default: // Empty, MapOnly, MapOnlyAlt
		return true
	}
}

// IsValidPosition reports whether a floating-point position sits on a
// passable tile for movementType/collideType (spec.md §4.1).
func (g *Grid) IsValidPosition(x, y float64, movementType MovementType, collideType CollideType) bool {
	tx, ty := int(x), int(y)
	if x < 0 {
		tx = int(x) - 1
	}
	if y < 0 {
		ty = int(y) - 1
	}
	if tx < 0 || ty < 0 || tx >= g.Width || ty >= g.Height {
		return false
	}
	return passable(g.CellAt(tx, ty), movementType, collideType)
}

// sightBlocking reports whether cellType blocks line-of-sight.
func sightBlocking(cellType CellType) bool {
	return cellType == WallAll || cellType == HiddenAll
}

// movementBlocking reports whether cellType blocks line-of-movement for
// movementType (WallMovement/HiddenMovement block ground movement but not
// sight; Flying/Intangible ignore them per §4.1).
func movementBlocking(cellType CellType, movementType MovementType) bool {
	switch cellType {
	case WallAll, HiddenAll:
		return movementType != Intangible
	case WallMovement, HiddenMovement:
		return movementType == Normal
	default:
		return false
	}
}

// bresenham walks the tile-coordinate line from (x1,y1) to (x2,y2),
// calling blocked on every intermediate tile (endpoints excluded per
// spec.md §4.1: "the endpoints themselves are not tested against
// entities" — callers supply a blocked predicate that only looks at
// static/terrain cell types, not entity occupancy).
func bresenham(x1, y1, x2, y2 int, blocked func(x, y int) bool) bool {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy
	x, y := x1, y1
	for {
		if (x != x1 || y != y1) && (x != x2 || y != y2) {
			if blocked(x, y) {
				return false
			}
		}
		if x == x2 && y == y2 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// LineOfSight reports whether (x1,y1) can see (x2,y2) — WallAll/HiddenAll
// tiles along the Bresenham path block it (spec.md §4.1).
func (g *Grid) LineOfSight(x1, y1, x2, y2 float64) bool {
	return bresenham(int(x1), int(y1), int(x2), int(y2), func(x, y int) bool {
		return sightBlocking(g.CellAt(x, y))
	})
}

// LineOfMovement reports whether a path along the Bresenham line between
// the two points is traversable by movementType (spec.md §4.1).
func (g *Grid) LineOfMovement(x1, y1, x2, y2 float64, movementType MovementType) bool {
	return bresenham(int(x1), int(y1), int(x2), int(y2), func(x, y int) bool {
		return movementBlocking(g.CellAt(x, y), movementType)
	})
}

// Move advances (x,y) by (dx,dy), sliding along an axis if the combined
// step is blocked but that axis alone is not (spec.md §4.1). The caller
// is expected to sub-step calls whose combined step exceeds one tile per
// axis. Returns whether the full intended step was achieved.
func (g *Grid) Move(x, y *float64, dx, dy float64, movementType MovementType, collideType CollideType) bool {
	nx, ny := *x+dx, *y+dy
	if g.IsValidPosition(nx, ny, movementType, collideType) {
		*x, *y = nx, ny
		return true
	}

	slidX := g.IsValidPosition(nx, *y, movementType, collideType)
	slidY := g.IsValidPosition(*x, ny, movementType, collideType)

	switch {
	case slidX && !slidY:
		*x = nx
		return false
	case slidY && !slidX:
		*y = ny
		return false
	case slidX && slidY:
		// Both axis-only moves are valid but the diagonal combination is
		// blocked (e.g. cutting a wall corner) — prefer the larger axis
		// delta, matching how a slide feels most natural along a wall.
		if abs2(dx) >= abs2(dy) {
			*x = nx
		} else {
			*y = ny
		}
		return false
	default:
		return false
	}
}

func abs2(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Block marks the tile containing (x,y) as occupied by an entity,
// remembering the prior static type so Unblock can restore it. Calling
// Block twice without an intervening Unblock is a caller error (spec.md
// §3.4 invariant: "a tile is blocked by at most one entity at a time").
func (g *Grid) Block(x, y float64, isAlly bool) {
	idx, ok := g.index(int(x), int(y))
	if !ok {
		return
	}
	if isAlly {
		g.cells[idx] = EntityAlly
	} else {
		g.cells[idx] = EntityAny
	}
}

// Unblock restores the tile containing (x,y) to its static (authored) type.
func (g *Grid) Unblock(x, y float64) {
	idx, ok := g.index(int(x), int(y))
	if !ok {
		return
	}
	g.cells[idx] = g.static[idx]
}

// IsFacing reports whether (x2,y2) lies within the 90-degree wedge of
// direction dir1 as seen from (x1,y1) (spec.md §4.1).
func IsFacing(x1, y1 float64, dir1 Direction, x2, y2 float64) bool {
	if x1 == x2 && y1 == y2 {
		return false
	}
	angle := Point{x1, y1}.Angle(Point{x2, y2})
	diff := math.Abs(math.Remainder(angle-dir1.Angle(), 2*math.Pi))
	return diff <= math.Pi/4
}
