package stats

import (
	"testing"

	"embercore/effect"

	"github.com/stretchr/testify/assert"
)

func testLayout() *Layout {
	return NewLayout(
		[]string{"Melee", "Ranged", "Mental"},
		[]string{"Fire", "Ice"},
		[]string{"Physical", "Mental", "Offense", "Defense"},
	)
}

func newTestBlock() *Block {
	b := NewBlock(testLayout(), 1)
	b.Vector.Set(HpMax, 100)
	b.Vector.Set(Hp, 100)
	b.Vector.Set(MpMax, 50)
	b.Vector.Set(Mp, 50)
	return b
}

func TestSetHPClampsToRange(t *testing.T) {
	b := newTestBlock()
	b.SetHP(150)
	assert.Equal(t, 100.0, b.Vector.Get(Hp))

	b.SetHP(-10)
	assert.Equal(t, 0.0, b.Vector.Get(Hp))
}

func TestSetHPZeroEntersDeadState(t *testing.T) {
	b := newTestBlock()
	assert.Equal(t, StateStance, b.State)
	b.SetHP(0)
	assert.Equal(t, StateDead, b.State)
	assert.True(t, b.Dead)
	assert.True(t, b.IsCorpse())
}

func TestApplyRawDamageConsumesShieldFirst(t *testing.T) {
	b := newTestBlock()
	b.Effects.AddEffect(effect.Definition{ID: "shield1", Tag: effect.TagShield}, 30, 30, -1, effect.SourceHero, "", effect.TriggerNone)

	dealt := b.ApplyRawDamage(20)
	assert.Equal(t, 20.0, dealt)
	assert.Equal(t, 100.0, b.Vector.Get(Hp))

	dealt = b.ApplyRawDamage(20)
	assert.Equal(t, 20.0, dealt)
	assert.Equal(t, 90.0, b.Vector.Get(Hp))
}

func TestTickLogicAppliesEffectDamageOverTime(t *testing.T) {
	b := newTestBlock()
	b.Effects.AddEffect(effect.Definition{ID: "dot", Tag: effect.TagDamage}, 5, 0, 10, effect.SourceEnemy, "", effect.TriggerNone)

	b.TickLogic(0, 0)
	assert.Equal(t, 95.0, b.Vector.Get(Hp))
}

func TestTickLogicSkipsRegenForCorpse(t *testing.T) {
	b := newTestBlock()
	b.SetHP(0)
	b.TickLogic(10, 10)
	assert.Equal(t, 0.0, b.Vector.Get(Hp))
}

func TestTickLogicDecrementsTimers(t *testing.T) {
	b := newTestBlock()
	b.GlobalCooldown = 2
	b.HitCooldown = 1
	b.PowerSlots = []PowerSlot{{PowerID: "p1", CooldownLeft: 3}}

	b.TickLogic(0, 0)
	assert.Equal(t, 1, b.GlobalCooldown)
	assert.Equal(t, 0, b.HitCooldown)
	assert.Equal(t, 2, b.PowerSlots[0].CooldownLeft)
}

func TestResolveBareEffectNamePrefersElementOverPrimary(t *testing.T) {
	b := newTestBlock()
	assert.Equal(t, effect.ValueResist, b.ResolveBareEffectName("Fire"))
	assert.Equal(t, effect.ValuePrimary, b.ResolveBareEffectName("Physical"))
	assert.Equal(t, effect.ValueStat, b.ResolveBareEffectName("custom_stat"))
}
