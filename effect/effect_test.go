package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func noopTarget() Target {
	hp := 100.0
	return Target{
		SetHP: func(v float64) { hp = v },
		HP:    func() float64 { return hp },
		HPMax: func() float64 { return 100 },
	}
}

func TestEffectExpiryExactDuration(t *testing.T) {
	s := NewSet(1)
	target := noopTarget()
	s.AddEffect(Definition{ID: "slow", Tag: TagSpeed}, 50, 0, 3, SourceEnemy, "", TriggerNone)

	for i := 0; i < 3; i++ {
		assert.True(t, s.HasEffect("slow", 1), "tick %d", i)
		s.Logic(target)
	}
	assert.False(t, s.HasEffect("slow", 1))
}

func TestShieldAbsorptionLaw(t *testing.T) {
	s := NewSet(1)
	target := noopTarget()
	s.AddEffect(Definition{ID: "shield1", Tag: TagShield}, 50, 50, -1, SourceHero, "", TriggerNone)

	residual := s.DamageShields(30)
	assert.Equal(t, 0.0, residual)
	assert.Equal(t, 20.0, s.items[0].Magnitude)

	residual = s.DamageShields(30)
	assert.Equal(t, 10.0, residual)
	assert.Equal(t, 0.0, s.items[0].Magnitude)

	s.Logic(target)
	assert.False(t, s.HasEffect("shield1", 1))
}

func TestKnockbackExclusivity(t *testing.T) {
	s := NewSet(1)
	ok := s.AddEffect(Definition{ID: "kb", Tag: TagKnockback}, 1, 0, 10, SourceEnemy, "", TriggerNone)
	assert.True(t, ok)
	ok = s.AddEffect(Definition{ID: "kb2", Tag: TagKnockback}, 1, 0, 10, SourceEnemy, "", TriggerNone)
	assert.False(t, ok)
	assert.Len(t, s.items, 1)
}

func TestImmunityRejectsDamage(t *testing.T) {
	s := NewSet(1)
	target := noopTarget()
	s.AddEffect(Definition{ID: "imdmg", Tag: TagImmunityDamage}, 0, 0, -1, SourceHero, "", TriggerNone)
	s.Logic(target) // aggregate immunity flags

	ok := s.AddEffect(Definition{ID: "dot", Tag: TagDamage}, 5, 0, 10, SourceEnemy, "", TriggerNone)
	assert.False(t, ok)
}

func TestImmunityPurgesConflictingEffectsImmediately(t *testing.T) {
	s := NewSet(1)
	target := noopTarget()
	s.AddEffect(Definition{ID: "stun1", Tag: TagStun}, 0, 0, 10, SourceEnemy, "", TriggerNone)
	_ = target
	assert.True(t, s.HasEffect("stun1", 1))

	s.AddEffect(Definition{ID: "imstun", Tag: TagImmunityStun}, 0, 0, -1, SourceHero, "", TriggerNone)
	assert.False(t, s.HasEffect("stun1", 1))
}

func TestDeathSentenceZeroesHPOnExpiry(t *testing.T) {
	s := NewSet(1)
	target := noopTarget()
	s.AddEffect(Definition{ID: "ds", Tag: TagDeathSentence}, 0, 0, 2, SourceEnemy, "", TriggerNone)
	s.Logic(target)
	assert.Equal(t, 100.0, target.HP())
	s.Logic(target)
	assert.Equal(t, 0.0, target.HP())
}

func TestMaxStacksEvictsOldest(t *testing.T) {
	s := NewSet(1)
	def := Definition{ID: "stacker", Tag: TagSpeed, CanStack: true, MaxStacks: 2}
	s.AddEffect(def, 90, 0, 100, SourceEnemy, "", TriggerNone)
	s.AddEffect(def, 91, 0, 100, SourceEnemy, "", TriggerNone)
	s.AddEffect(def, 92, 0, 100, SourceEnemy, "", TriggerNone)
	assert.Len(t, s.items, 2)
	assert.Equal(t, 91.0, s.items[0].Magnitude)
	assert.Equal(t, 92.0, s.items[1].Magnitude)
}
