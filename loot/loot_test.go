package loot

import (
	"testing"

	"embercore/grid"
	"embercore/simrand"

	"github.com/stretchr/testify/assert"
)

func TestRollTableFixedEntryAlwaysDrops(t *testing.T) {
	table := Table{Entries: []Entry{{ItemID: "gold_pile", Kind: EntryFixed, Min: 3, Max: 3}}}

	stacks := RollTable(table, 0, simrand.New(1))

	assert.Len(t, stacks, 1)
	assert.Equal(t, "gold_pile", stacks[0].ItemID)
	assert.Equal(t, 3, stacks[0].Quantity)
}

func TestRollTableWeightedZeroChanceNeverDrops(t *testing.T) {
	table := Table{Entries: []Entry{{ItemID: "relic", Kind: EntryWeighted, Chance: 0, Min: 1, Max: 1}}}

	stacks := RollTable(table, 0, simrand.New(1))

	assert.Len(t, stacks, 0)
}

func TestRollTableWeightedFullChanceAlwaysDrops(t *testing.T) {
	table := Table{Entries: []Entry{{ItemID: "coal", Kind: EntryWeighted, Chance: 100, Min: 1, Max: 1}}}

	stacks := RollTable(table, 0, simrand.New(1))

	assert.Len(t, stacks, 1)
	assert.Equal(t, "coal", stacks[0].ItemID)
}

func TestRollTableWeightedPrefersRarestAmongCleared(t *testing.T) {
	table := Table{Entries: []Entry{
		{ItemID: "common", Kind: EntryWeighted, Chance: 100, Min: 1, Max: 1},
		{ItemID: "rare", Kind: EntryWeighted, Chance: 100, Min: 1, Max: 1},
	}}
	table.Entries[1].Chance = 50

	// Item find of 100% doubles every effective chance, so both entries
	// clear their roll and the rarer one must win.
	stacks := RollTable(table, 100, simrand.New(1))

	assert.Len(t, stacks, 1)
	assert.Equal(t, "rare", stacks[0].ItemID)
}

func TestScaleCurrencyAppliesFindBonus(t *testing.T) {
	assert.Equal(t, 150, ScaleCurrency(100, 50))
	assert.Equal(t, 100, ScaleCurrency(100, 0))
}

func TestLogicGroundsDropAfterFlyTimerExpires(t *testing.T) {
	m := NewManager()
	m.FlyTicks = 2
	m.Spawn(Stack{ItemID: "gold", Quantity: 1}, grid.Point{}, true, false)

	played := 0
	m.Logic(func(name string) { played++ })
	m.Logic(func(name string) { played++ })
	assert.False(t, m.Drops[0].Grounded)

	m.Logic(func(name string) { played++ })
	assert.True(t, m.Drops[0].Grounded)
	assert.Equal(t, 1, played)
}

func TestAutopickupAbsorbsNonHeroCurrencyInRange(t *testing.T) {
	m := NewManager()
	m.AutopickupRange = 2
	m.Spawn(Stack{ItemID: "gold", Quantity: 5}, grid.Point{X: 1, Y: 0}, true, false)
	m.Drops[0].Grounded = true

	var absorbed []Stack
	m.Autopickup(grid.Point{X: 0, Y: 0}, func(s Stack) { absorbed = append(absorbed, s) })

	assert.Len(t, absorbed, 1)
	assert.Len(t, m.Drops, 0)
}

func TestAutopickupSkipsHeroDroppedCurrency(t *testing.T) {
	m := NewManager()
	m.AutopickupRange = 2
	m.Spawn(Stack{ItemID: "gold", Quantity: 5}, grid.Point{X: 1, Y: 0}, true, true)
	m.Drops[0].Grounded = true

	var absorbed []Stack
	m.Autopickup(grid.Point{X: 0, Y: 0}, func(s Stack) { absorbed = append(absorbed, s) })

	assert.Len(t, absorbed, 0)
	assert.Len(t, m.Drops, 1)
}

func TestNearestInRangeFindsClosestGroundedDrop(t *testing.T) {
	m := NewManager()
	m.InteractRange = 5
	m.Spawn(Stack{ItemID: "far"}, grid.Point{X: 4, Y: 0}, false, false)
	m.Spawn(Stack{ItemID: "near"}, grid.Point{X: 1, Y: 0}, false, false)
	m.Drops[0].Grounded = true
	m.Drops[1].Grounded = true

	idx, ok := m.NearestInRange(grid.Point{X: 0, Y: 0})

	assert.True(t, ok)
	assert.Equal(t, "near", m.Drops[idx].ItemID)
}

func TestTakeRemovesDropAndReturnsStack(t *testing.T) {
	m := NewManager()
	m.Spawn(Stack{ItemID: "potion", Quantity: 1}, grid.Point{}, false, false)

	s, ok := m.Take(0)

	assert.True(t, ok)
	assert.Equal(t, "potion", s.ItemID)
	assert.Len(t, m.Drops, 0)
}
