package power

import (
	"testing"

	"embercore/effect"
	"embercore/grid"
	"embercore/simrand"
	"embercore/stats"

	"github.com/stretchr/testify/assert"
)

func testBlock(layout *stats.Layout) *stats.Block {
	b := stats.NewBlock(layout, 1)
	b.Vector.Set(stats.HpMax, 100)
	b.Vector.Set(stats.Hp, 100)
	b.Vector.Set(stats.MpMax, 50)
	b.Vector.Set(stats.Mp, 50)
	return b
}

func testLayout() *stats.Layout {
	return stats.NewLayout([]string{"Melee", "Ranged"}, []string{"Fire"}, []string{"Physical"})
}

func TestActivateRejectsInsufficientMana(t *testing.T) {
	layout := testLayout()
	d := NewDispatcher(simrand.New(1))
	d.Register(&Definition{ID: "bolt", Kind: KindFixed, Cost: Cost{MP: 999}})

	src := testBlock(layout)
	src.Identity.IsHero = true
	ok := d.Activate("bolt", ActivationContext{Source: src})
	assert.False(t, ok)
}

func TestActivateChargesManaAndEmitsHazard(t *testing.T) {
	layout := testLayout()
	d := NewDispatcher(simrand.New(1))
	d.Register(&Definition{ID: "bolt", Kind: KindFixed, Cost: Cost{MP: 10}, Count: 1, BaseDamageType: "Melee"})

	src := testBlock(layout)
	src.Identity.IsHero = true
	src.Vector.SetDamageRange("Melee", 5, 10)

	ok := d.Activate("bolt", ActivationContext{Source: src})
	assert.True(t, ok)
	assert.Equal(t, 40.0, src.Vector.Get(stats.Mp))

	emissions := d.Drain()
	assert.Len(t, emissions, 1)
	assert.Equal(t, EmitHazard, emissions[0].EmKind)
	assert.Equal(t, 5.0, emissions[0].DmgMin)
}

func TestActivateRejectsWhenStunned(t *testing.T) {
	layout := testLayout()
	d := NewDispatcher(simrand.New(1))
	d.Register(&Definition{ID: "bolt", Kind: KindFixed})
	src := testBlock(layout)
	src.Effects.Agg.Stunned = true

	ok := d.Activate("bolt", ActivationContext{Source: src})
	assert.False(t, ok)
}

func TestMissileDispatchEmitsCountHazardsSpreadByAngle(t *testing.T) {
	layout := testLayout()
	d := NewDispatcher(simrand.New(2))
	d.Register(&Definition{ID: "spray", Kind: KindMissile, Count: 3, MissileAngle: 0.1})
	src := testBlock(layout)

	ok := d.Activate("spray", ActivationContext{Source: src})
	assert.True(t, ok)
	emissions := d.Drain()
	assert.Len(t, emissions, 3)
}

func TestReplaceByEffectSubstitutesPowerID(t *testing.T) {
	layout := testLayout()
	d := NewDispatcher(simrand.New(1))
	d.Register(&Definition{
		ID:   "base",
		Kind: KindFixed,
		ReplaceByEffect: []ReplaceRule{
			{OtherPowerID: "empowered", RequiredEffectID: "charged", RequiredCount: 1},
		},
	})
	d.Register(&Definition{ID: "empowered", Kind: KindFixed, Count: 2})

	src := testBlock(layout)
	src.Effects.AddEffect(effect.Definition{ID: "charged", Tag: effect.TagSpeed}, 1, 0, 10, effect.SourceHero, "", effect.TriggerNone)

	ok := d.Activate("base", ActivationContext{Source: src})
	assert.True(t, ok)
	emissions := d.Drain()
	assert.Len(t, emissions, 2)
	assert.Equal(t, "empowered", emissions[0].PowerID)
}

func TestCooldownSetOnSourcePowerSlot(t *testing.T) {
	layout := testLayout()
	d := NewDispatcher(simrand.New(1))
	d.Register(&Definition{ID: "bolt", Kind: KindFixed, Cooldown: 5})
	src := testBlock(layout)
	src.PowerSlots = []stats.PowerSlot{{PowerID: "bolt"}}

	d.Activate("bolt", ActivationContext{Source: src})
	assert.Equal(t, 5, src.PowerSlots[0].CooldownLeft)
}

func TestRepeaterStopsAtFirstWallMovementTile(t *testing.T) {
	layout := testLayout()
	g := grid.New(10, 10)
	g.SetStatic(3, 0, grid.WallMovement)

	d := NewDispatcher(simrand.New(1))
	d.SetGrid(g)
	d.Register(&Definition{ID: "chain_bolt", Kind: KindRepeater, Count: 6, Speed: 1})

	src := testBlock(layout)
	src.Pos = grid.Point{X: 0, Y: 0}
	src.Facing = grid.DirEast

	ok := d.Activate("chain_bolt", ActivationContext{Source: src})
	assert.True(t, ok)

	emissions := d.Drain()
	assert.Len(t, emissions, 3)
	assert.InDelta(t, 1, emissions[0].Pos.X, 1e-9)
	assert.InDelta(t, 2, emissions[1].Pos.X, 1e-9)
	assert.InDelta(t, 3, emissions[2].Pos.X, 1e-9)
	for _, e := range emissions {
		assert.Equal(t, emissions[0].ParentGroup, e.ParentGroup)
	}
}

func TestRepeaterUnaffectedWithNoGridWired(t *testing.T) {
	layout := testLayout()
	d := NewDispatcher(simrand.New(1))
	d.Register(&Definition{ID: "chain_bolt", Kind: KindRepeater, Count: 4, Speed: 1})

	src := testBlock(layout)
	src.Facing = grid.DirEast

	d.Activate("chain_bolt", ActivationContext{Source: src})
	assert.Len(t, d.Drain(), 4)
}
