package combatlog

import (
	"testing"

	"embercore/grid"

	"github.com/stretchr/testify/assert"
)

func TestPushCombatTextThenDrainReturnsInOrder(t *testing.T) {
	var q Queue
	q.PushCombatText(CategoryGiveDamage, grid.Point{X: 1, Y: 2}, 10, "10")
	q.PushCombatText(CategoryMiss, grid.Point{X: 1, Y: 2}, 0, "miss")

	entries := q.Drain()
	assert.Len(t, entries, 2)
	assert.Equal(t, CategoryGiveDamage, entries[0].Category)
	assert.Equal(t, 10.0, entries[0].Value)
	assert.Equal(t, CategoryMiss, entries[1].Category)
}

func TestDrainClearsTheQueue(t *testing.T) {
	var q Queue
	q.PushNarrative(KindUnique, "You are defeated.")
	assert.Len(t, q.Drain(), 1)
	assert.Empty(t, q.Drain())
}

func TestPushNarrativeCarriesKind(t *testing.T) {
	var q Queue
	q.PushNarrative(KindUnique, "Transformation expired.")
	q.PushNarrative(KindNormal, "Could not untransform at this position.")

	entries := q.Drain()
	assert.Equal(t, KindUnique, entries[0].Kind)
	assert.Equal(t, KindNormal, entries[1].Kind)
}
