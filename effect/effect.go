// Package effect implements the timed-modifier engine applied to a single
// entity's stat block (spec.md §4.2, C2). It has no dependency on the
// stats package: callers hand it a Target, the minimal surface an effect
// needs to read and mutate, which embercore/stats.Block implements. This
// mirrors the teacher's tactical/effects/system.go split between "effect
// data" and "what it does to an Attributes struct", generalized from a
// flat stat-modifier list to the closed tag set spec.md §3.3 enumerates.
package effect

// Tag is the closed set of recognised effect type tags (spec.md §3.3).
// AddEffect does not validate the tag and logs nothing: a Definition
// with ValueKind ValuePlain and a tag outside this set is stored like
// any other effect but adds nothing to the aggregates.
type Tag string

const (
	TagDamage               Tag = "damage"
	TagDamagePercent        Tag = "damage_percent"
	TagHPOT                 Tag = "hpot"
	TagHPOTPercent          Tag = "hpot_percent"
	TagMPOT                 Tag = "mpot"
	TagMPOTPercent          Tag = "mpot_percent"
	TagSpeed                Tag = "speed"
	TagAttackSpeed          Tag = "attack_speed"
	TagImmunity             Tag = "immunity"
	TagImmunityDamage       Tag = "immunity_damage"
	TagImmunitySlow         Tag = "immunity_slow"
	TagImmunityStun         Tag = "immunity_stun"
	TagImmunityHPSteal      Tag = "immunity_hp_steal"
	TagImmunityMPSteal      Tag = "immunity_mp_steal"
	TagImmunityKnockback    Tag = "immunity_knockback"
	TagImmunityDamageReflect Tag = "immunity_damage_reflect"
	TagImmunityStatDebuff   Tag = "immunity_stat_debuff"
	TagStun                 Tag = "stun"
	TagRevive                Tag = "revive"
	TagConvert               Tag = "convert"
	TagFear                  Tag = "fear"
	TagDeathSentence         Tag = "death_sentence"
	TagShield                Tag = "shield"
	TagHeal                  Tag = "heal"
	TagKnockback             Tag = "knockback"
	// TagStat/TagResist/TagPrimary are synthetic markers: any tag not
	// matching one of the above is treated as a stat name, a
	// "<element>_resist" name, or a primary-attribute name, per §3.3.
	// Aggregation routes those via the ValueKind field on Definition rather
	// than string-matching every possible stat/element/primary name,
	// since that table is engine-configuration, not spec-closed.
)

// SourceType is Hero/Ally/Enemy/Neutral (spec.md glossary).
type SourceType int

const (
	SourceHero SourceType = iota
	SourceAlly
	SourceEnemy
	SourceNeutral
)

// TriggerKind arms a passive/attached effect on an edge condition
// (spec.md glossary "Passive trigger"; §4.2 "trigger == ...").
type TriggerKind int

const (
	TriggerNone TriggerKind = iota
	TriggerBlock
	TriggerHit
	TriggerJoinCombat
	TriggerHalfDead
	TriggerDeath
)

// ValueKind distinguishes a plain type-tag effect from one that routes
// magnitude into a stat/resist/primary bonus vector (spec.md §3.2's
// "engine uses this offset to route magnitude into bonus, bonus_resist,
// bonus_primary").
type ValueKind int

const (
	ValuePlain ValueKind = iota
	ValueStat
	ValueResist
	ValuePrimary
)

// Definition is the immutable template an Effect instance is created
// from — the authored half of spec.md's Effect fields (§3.1) plus enough
// of §6.3's effect-definition fields to drive stacking.
type Definition struct {
	ID           string
	Tag          Tag
	ValueKind    ValueKind
	StatKey      string // stat/resist/primary name when ValueKind != ValuePlain
	CanStack     bool
	MaxStacks    int // <= 0 = unbounded
	GroupStack   bool
	Animation    string
	Icon         int
	Trigger      TriggerKind
}

// Instance is a live Effect applied to a Target (spec.md §3.1 "Effect").
type Instance struct {
	Def            Definition
	Magnitude      float64
	MagnitudeMax   float64 // shields: the cap the shield started with
	Duration       int     // -1 = infinite (spec.md duration >= 0 test applies only to finite effects)
	RemainingTicks int
	SourceType     SourceType
	PassivePowerID string
	AnimFrame      int
	AnimDone       bool
	triggeredOnce  bool
}

func (in *Instance) IsFinite() bool { return in.Duration >= 0 }

// Aggregates are recomputed from scratch every tick (spec.md §4.2,
// §5 "Effect aggregates ... never shared").
type Aggregates struct {
	DamagePerTick   float64
	HealPerTick     float64
	ManaPerTick     float64
	SpeedMultiplier float64 // 1.0 = unaffected; composes multiplicatively
	AttackSpeedPct  float64 // 100 = unaffected
	KnockbackActive bool

	ImmuneDamage         bool
	ImmuneSlow           bool
	ImmuneStun           bool
	ImmuneHPSteal        bool
	ImmuneMPSteal        bool
	ImmuneKnockback      bool
	ImmuneDamageReflect  bool
	ImmuneStatDebuff     bool

	StatBonus    map[string]float64
	ResistBonus  map[string]float64
	PrimaryBonus map[string]float64

	Stunned bool
	Feared  bool
}

func newAggregates() Aggregates {
	return Aggregates{
		SpeedMultiplier: 1.0,
		AttackSpeedPct:  100,
		StatBonus:       make(map[string]float64),
		ResistBonus:     make(map[string]float64),
		PrimaryBonus:    make(map[string]float64),
	}
}

// Target is the minimal surface effect.Set needs from a Stat Block. The
// stats package's Block type implements it; nothing in this package
// imports stats, so the dependency only ever runs one way.
type Target struct {
	// SetHP sets current HP, already clamped by the caller to [0, HPMax].
	SetHP func(v float64)
	HP    func() float64
	HPMax func() float64
	SetMP func(v float64)
	MP    func() float64
}

// Set is the ordered list of effects applied to one Stat Block, plus the
// aggregates recomputed each Logic() call (spec.md §4.2).
type Set struct {
	items []*Instance
	Agg   Aggregates

	// FramesPerTick is how many ticks make up one "periodic" application
	// step for damage/heal-over-time (spec.md §4.2 step 2: "every
	// engine-defined frames-per-second ticks"). Set by the engine from
	// configured max_frames_per_sec.
	FramesPerTick int
	frameCounter  int
}

func NewSet(framesPerTick int) *Set {
	if framesPerTick <= 0 {
		framesPerTick = 1
	}
	return &Set{Agg: newAggregates(), FramesPerTick: framesPerTick}
}

// Items exposes the live list read-only, e.g. for HasEffect/IsDebuffed
// callers outside this package and for tests.
func (s *Set) Items() []*Instance { return s.items }

// Logic advances one tick: decrements durations, removes expired effects
// (running death_sentence through target), recomputes aggregates, and
// advances each effect's animation frame (spec.md §4.2).
func (s *Set) Logic(target Target) {
	s.Agg = newAggregates()
	s.frameCounter++
	periodic := s.frameCounter%s.FramesPerTick == 0

	kept := s.items[:0]
	for _, in := range s.items {
		if in.IsFinite() && in.RemainingTicks > 0 {
			in.RemainingTicks--
			if in.RemainingTicks == 0 {
				if in.Def.Tag == TagDeathSentence && target.SetHP != nil {
					target.SetHP(0)
				}
				continue // removed: do not carry into aggregation below
			}
		}

		s.aggregateOne(in, target, periodic)

		// shield fully absorbed: removed once its cap was set and it hit 0
		if in.Def.Tag == TagShield && in.MagnitudeMax > 0 && in.Magnitude <= 0 {
			continue
		}
		// heal is removed on the first pass if it carries no animation;
		// with an animation it is kept until AnimDone is set, and nothing
		// in this package sets AnimDone.
		if in.Def.Tag == TagHeal && (in.Def.Animation == "" || in.AnimDone) {
			continue
		}

		if in.Def.Animation != "" && !in.AnimDone {
			in.AnimFrame++
		}

		kept = append(kept, in)
	}
	s.items = kept
}

func (s *Set) aggregateOne(in *Instance, target Target, periodic bool) {
	switch in.Def.ValueKind {
	case ValueStat:
		s.Agg.StatBonus[in.Def.StatKey] += in.Magnitude
		return
	case ValueResist:
		s.Agg.ResistBonus[in.Def.StatKey] += in.Magnitude
		return
	case ValuePrimary:
		s.Agg.PrimaryBonus[in.Def.StatKey] += in.Magnitude
		return
	}

	switch in.Def.Tag {
	case TagDamage:
		if periodic {
			s.Agg.DamagePerTick += in.Magnitude
		}
	case TagDamagePercent:
		if periodic && target.HPMax != nil {
			s.Agg.DamagePerTick += in.Magnitude / 100 * target.HPMax()
		}
	case TagHPOT:
		if periodic {
			s.Agg.HealPerTick += in.Magnitude
		}
	case TagHPOTPercent:
		if periodic && target.HPMax != nil {
			s.Agg.HealPerTick += in.Magnitude / 100 * target.HPMax()
		}
	case TagMPOT:
		if periodic {
			s.Agg.ManaPerTick += in.Magnitude
		}
	case TagMPOTPercent:
		if periodic && target.HPMax != nil {
			s.Agg.ManaPerTick += in.Magnitude / 100 * target.HPMax()
		}
	case TagSpeed:
		s.Agg.SpeedMultiplier *= in.Magnitude / 100
	case TagAttackSpeed:
		s.Agg.AttackSpeedPct = in.Magnitude
	case TagImmunity:
		s.Agg.ImmuneDamage = true
		s.Agg.ImmuneSlow = true
		s.Agg.ImmuneStun = true
		s.Agg.ImmuneKnockback = true
	case TagImmunityDamage:
		s.Agg.ImmuneDamage = true
	case TagImmunitySlow:
		s.Agg.ImmuneSlow = true
	case TagImmunityStun:
		s.Agg.ImmuneStun = true
	case TagImmunityHPSteal:
		s.Agg.ImmuneHPSteal = true
	case TagImmunityMPSteal:
		s.Agg.ImmuneMPSteal = true
	case TagImmunityKnockback:
		s.Agg.ImmuneKnockback = true
	case TagImmunityDamageReflect:
		s.Agg.ImmuneDamageReflect = true
	case TagImmunityStatDebuff:
		s.Agg.ImmuneStatDebuff = true
	case TagStun:
		s.Agg.Stunned = true
	case TagFear:
		s.Agg.Feared = true
	case TagKnockback:
		s.Agg.KnockbackActive = true
	}
}

// GetAttackSpeed returns the attack_speed aggregate, optionally filtered
// by the effect's authored animation name (spec.md §4.2 step 3).
func (s *Set) GetAttackSpeed(animName string) float64 {
	best := 100.0
	found := false
	for _, in := range s.items {
		if in.Def.Tag != TagAttackSpeed {
			continue
		}
		if animName != "" && in.Def.Animation != "" && in.Def.Animation != animName {
			continue
		}
		found = true
		if in.Magnitude > best {
			best = in.Magnitude
		}
	}
	if !found {
		return 100
	}
	return best
}

// rejected is returned by AddEffect to explain why nothing happened,
// matching spec.md §9's "encode as explicit Result/Option returns".
type rejected struct{ reason string }

func (r rejected) Error() string { return r.reason }

// AddEffect applies def at magnitude/duration to the set, honouring
// immunity gating, knockback/attack-speed exclusivity, stacking, and
// trigger-once semantics (spec.md §4.2). Returns false (with no
// mutation) when the effect is rejected.
func (s *Set) AddEffect(def Definition, magnitude float64, magnitudeMax float64, duration int, src SourceType, passivePowerID string, trigger TriggerKind) bool {
	if s.rejectedByImmunity(def, magnitude) {
		return false
	}
	if def.Tag == TagKnockback && s.hasActive(TagKnockback) {
		return false
	}
	if def.Tag == TagAttackSpeed && magnitude < 100 {
		return false
	}

	if trigger != TriggerNone {
		for _, in := range s.items {
			if in.Def.ID == def.ID && in.Def.Trigger == trigger && in.triggeredOnce {
				return false
			}
		}
	}

	in := &Instance{
		Def:            def,
		Magnitude:      magnitude,
		MagnitudeMax:   magnitudeMax,
		Duration:       duration,
		RemainingTicks: duration,
		SourceType:     src,
		PassivePowerID: passivePowerID,
		triggeredOnce:  trigger != TriggerNone,
	}

	if !def.CanStack {
		for i, existing := range s.items {
			if existing.Def.ID == def.ID {
				s.items[i] = in
				s.purgeConflictingIfImmunity(def)
				s.enforceMaxStacks(def)
				return true
			}
		}
		s.insertAfterLastMatching(def.ID, in)
		s.purgeConflictingIfImmunity(def)
		s.enforceMaxStacks(def)
		return true
	}

	if def.Tag == TagShield && def.GroupStack {
		for _, existing := range s.items {
			if existing.Def.ID == def.ID && existing.Def.Tag == TagShield {
				existing.Magnitude += magnitude
				if def.MaxStacks >= 0 {
					cap := magnitudeMax * float64(def.MaxStacks)
					if cap > 0 && existing.Magnitude > cap {
						existing.Magnitude = cap
					}
				}
				return true
			}
		}
	}

	s.insertAfterLastMatching(def.ID, in)
	s.purgeConflictingIfImmunity(def)
	s.enforceMaxStacks(def)
	return true
}

func (s *Set) insertAfterLastMatching(id string, in *Instance) {
	lastIdx := -1
	for i, existing := range s.items {
		if existing.Def.ID == id {
			lastIdx = i
		}
	}
	if lastIdx == -1 {
		s.items = append(s.items, in)
		return
	}
	s.items = append(s.items[:lastIdx+1], append([]*Instance{in}, s.items[lastIdx+1:]...)...)
}

func (s *Set) enforceMaxStacks(def Definition) {
	if def.MaxStacks <= 0 {
		return
	}
	count := 0
	oldestIdx := -1
	for i, in := range s.items {
		if in.Def.ID != def.ID {
			continue
		}
		count++
		if oldestIdx == -1 {
			oldestIdx = i
		}
	}
	if count > def.MaxStacks && oldestIdx >= 0 {
		s.items = append(s.items[:oldestIdx], s.items[oldestIdx+1:]...)
	}
}

func (s *Set) hasActive(tag Tag) bool {
	for _, in := range s.items {
		if in.Def.Tag == tag {
			return true
		}
	}
	return false
}

func (s *Set) rejectedByImmunity(def Definition, magnitude float64) bool {
	if def.Tag == TagDamage || def.Tag == TagDamagePercent {
		if s.Agg.ImmuneDamage {
			return true
		}
	}
	if def.Tag == TagSpeed && magnitude < 100 && s.Agg.ImmuneSlow {
		return true
	}
	if def.Tag == TagStun && s.Agg.ImmuneStun {
		return true
	}
	if def.Tag == TagKnockback && s.Agg.ImmuneKnockback {
		return true
	}
	if def.ValueKind == ValueStat && magnitude < 0 && s.Agg.ImmuneStatDebuff {
		return true
	}
	return false
}

// purgeConflictingIfImmunity removes active negative effects the new
// immunity forbids, immediately (spec.md §4.2: "immediately purge
// conflicting negative effects").
func (s *Set) purgeConflictingIfImmunity(def Definition) {
	isImmunity := def.Tag == TagImmunity ||
		def.Tag == TagImmunityDamage || def.Tag == TagImmunitySlow ||
		def.Tag == TagImmunityStun || def.Tag == TagImmunityKnockback ||
		def.Tag == TagImmunityHPSteal || def.Tag == TagImmunityMPSteal ||
		def.Tag == TagImmunityDamageReflect || def.Tag == TagImmunityStatDebuff
	if !isImmunity {
		return
	}

	kept := s.items[:0]
	for _, in := range s.items {
		if in.Def.ID == def.ID {
			kept = append(kept, in)
			continue
		}
		if conflictsWithImmunity(def.Tag, in) {
			continue
		}
		kept = append(kept, in)
	}
	s.items = kept
}

func conflictsWithImmunity(immunity Tag, in *Instance) bool {
	switch immunity {
	case TagImmunity:
		return in.Def.Tag == TagDamage || in.Def.Tag == TagDamagePercent ||
			(in.Def.Tag == TagSpeed && in.Magnitude < 100) ||
			in.Def.Tag == TagStun || in.Def.Tag == TagKnockback
	case TagImmunityDamage:
		return in.Def.Tag == TagDamage || in.Def.Tag == TagDamagePercent
	case TagImmunitySlow:
		return in.Def.Tag == TagSpeed && in.Magnitude < 100
	case TagImmunityStun:
		return in.Def.Tag == TagStun
	case TagImmunityKnockback:
		return in.Def.Tag == TagKnockback
	case TagImmunityStatDebuff:
		return in.Def.ValueKind == ValueStat && in.Magnitude < 0
	}
	return false
}

// DamageShields walks shield-typed effects in list order, subtracting
// from each magnitude until dmg is absorbed or shields run out, and
// returns the residual (spec.md §4.2, §8 "Shield absorption law").
func (s *Set) DamageShields(dmg float64) (residual float64) {
	residual = dmg
	for _, in := range s.items {
		if in.Def.Tag != TagShield || residual <= 0 {
			continue
		}
		if in.Magnitude <= 0 {
			continue
		}
		if in.Magnitude >= residual {
			in.Magnitude -= residual
			residual = 0
		} else {
			residual -= in.Magnitude
			in.Magnitude = 0
		}
	}
	return residual
}

// IsDebuffed reports whether any active effect is a negative condition
// per spec.md §4.2.
func (s *Set) IsDebuffed() bool {
	for _, in := range s.items {
		switch {
		case in.Def.Tag == TagDamage, in.Def.Tag == TagDamagePercent:
			return true
		case in.Def.Tag == TagSpeed && in.Magnitude < 100:
			return true
		case in.Def.Tag == TagStun, in.Def.Tag == TagKnockback:
			return true
		case in.Def.ValueKind == ValueStat && in.Magnitude < 0:
			return true
		}
	}
	return false
}

// HasEffect counts instances with the given id and reports whether the
// count meets reqCount (spec.md §4.2).
func (s *Set) HasEffect(id string, reqCount int) bool {
	count := 0
	for _, in := range s.items {
		if in.Def.ID == id {
			count++
		}
	}
	return count >= reqCount
}

// ClearEffects removes every effect.
func (s *Set) ClearEffects() { s.items = nil }

// RemoveEffectType removes every instance with the given tag.
func (s *Set) RemoveEffectType(tag Tag) {
	kept := s.items[:0]
	for _, in := range s.items {
		if in.Def.Tag != tag {
			kept = append(kept, in)
		}
	}
	s.items = kept
}

// RemoveEffectPassive removes every instance carrying the given passive
// power id.
func (s *Set) RemoveEffectPassive(passivePowerID string) {
	kept := s.items[:0]
	for _, in := range s.items {
		if in.PassivePowerID != passivePowerID {
			kept = append(kept, in)
		}
	}
	s.items = kept
}

// RemoveEffectID removes every instance with the given definition id.
func (s *Set) RemoveEffectID(id string) {
	kept := s.items[:0]
	for _, in := range s.items {
		if in.Def.ID != id {
			kept = append(kept, in)
		}
	}
	s.items = kept
}

// MarkTriggered is called by the owning Stat Block when a trigger
// (Block/Hit/JoinCombat/HalfDead/Death) fires, so trigger-tagged effects
// arm at most once per activation (spec.md §4.2).
func (s *Set) MarkTriggered(trigger TriggerKind) {
	for _, in := range s.items {
		if in.Def.Trigger == trigger {
			in.triggeredOnce = true
		}
	}
}
