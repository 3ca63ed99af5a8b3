package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openGrid(w, h int) *Grid {
	g := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.SetStatic(x, y, Empty)
		}
	}
	return g
}

func TestMoveImpliesValidPosition(t *testing.T) {
	g := openGrid(10, 10)
	x, y := 5.5, 5.5
	ok := g.Move(&x, &y, 0.4, 0.0, Normal, CollideNormal)
	require.True(t, ok)
	assert.True(t, g.IsValidPosition(x, y, Normal, CollideNormal))
}

func TestMoveSlidesAlongWall(t *testing.T) {
	g := openGrid(10, 10)
	g.SetStatic(6, 5, WallAll)
	g.SetStatic(6, 6, WallAll)
	x, y := 5.5, 5.5
	ok := g.Move(&x, &y, 0.9, 0.9, Normal, CollideNormal)
	assert.False(t, ok)
	assert.True(t, g.IsValidPosition(x, y, Normal, CollideNormal))
}

func TestBlockUnblockIsIdempotentInPairs(t *testing.T) {
	g := openGrid(5, 5)
	g.SetStatic(2, 2, MapOnly)
	before := g.CellAt(2, 2)

	g.Block(2.5, 2.5, false)
	assert.Equal(t, EntityAny, g.CellAt(2, 2))
	g.Unblock(2.5, 2.5)
	assert.Equal(t, before, g.CellAt(2, 2))

	g.Block(2.5, 2.5, true)
	assert.Equal(t, EntityAlly, g.CellAt(2, 2))
	g.Unblock(2.5, 2.5)
	assert.Equal(t, before, g.CellAt(2, 2))
}

func TestLineOfSightBlockedByWallAll(t *testing.T) {
	g := openGrid(10, 10)
	g.SetStatic(5, 5, WallAll)
	assert.False(t, g.LineOfSight(0, 5, 9, 5))
}

func TestLineOfMovementIgnoresWallMovementForFlying(t *testing.T) {
	g := openGrid(10, 10)
	g.SetStatic(5, 5, WallMovement)
	assert.False(t, g.LineOfMovement(0, 5, 9, 5, Normal))
	assert.True(t, g.LineOfMovement(0, 5, 9, 5, Flying))
	// Sight is never blocked by WallMovement.
	assert.True(t, g.LineOfSight(0, 5, 9, 5))
}

func TestComputePathFallbackAroundObstacle(t *testing.T) {
	g := openGrid(10, 10)
	for y := 0; y < 9; y++ {
		g.SetStatic(5, y, WallMovement)
	}
	path, found := g.ComputePath(Tile{X: 2, Y: 2}, Tile{X: 8, Y: 2}, Normal, 0)
	require.True(t, found)
	assert.Greater(t, len(path), 1)
	// Path corridor must route around the wall column at x=5, row<9.
	for _, t2 := range path {
		if t2.X == 5 {
			assert.Equal(t, 9, t2.Y)
		}
	}
}

func TestComputePathRespectsNodeLimit(t *testing.T) {
	g := openGrid(50, 50)
	_, found := g.ComputePath(Tile{X: 0, Y: 0}, Tile{X: 49, Y: 49}, Normal, 5)
	assert.False(t, found)
}

func TestRandomNeighborFallsBackToCenter(t *testing.T) {
	g := New(3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			g.SetStatic(x, y, WallAll)
		}
	}
	p := g.RandomNeighbor(Tile{X: 1, Y: 1}, 1, Normal, CollideNormal, func(n int) int { return 0 })
	assert.Equal(t, Tile{X: 1, Y: 1}.Point(), p)
}

func TestIsFacingWedge(t *testing.T) {
	assert.True(t, IsFacing(5, 5, DirEast, 8, 5))
	assert.False(t, IsFacing(5, 5, DirEast, 5, 8))
}
