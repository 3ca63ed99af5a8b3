// Package hazard implements the Hazard Manager (spec.md §4.4, C6): the
// in-flight projectile/AoE instances a Power emits, their per-tick
// integration and wall collision, and the takeHit damage pipeline run
// against a defending Stat Block. Grounded on other_examples' opd-ai-
// violence hazard system (timer-driven State machine, rng-seeded damage
// rolls) generalized from environmental traps to power-emitted
// projectiles, and on the teacher's deleted combat package for the
// accuracy/avoidance/absorption/crit roll order.
package hazard

import (
	"math"

	"embercore/combatlog"
	"embercore/effect"
	"embercore/grid"
	"embercore/power"
	"embercore/simrand"
	"embercore/stats"
)

// PartyRule decides whether src (a hazard's originating party) may hit
// defender, per spec.md §4.4 step 5 "party rule".
type PartyRule func(srcParty, defParty effect.SourceType, targetParty bool) bool

// DefaultPartyRule implements "hero/ally sources may hit allies only if
// target_party; enemy sources can hit anyone not enemy-allied".
func DefaultPartyRule(srcParty, defParty effect.SourceType, targetParty bool) bool {
	heroSide := srcParty == effect.SourceHero || srcParty == effect.SourceAlly
	defHeroSide := defParty == effect.SourceHero || defParty == effect.SourceAlly
	if heroSide {
		if defHeroSide {
			return targetParty
		}
		return true
	}
	return defHeroSide
}

// CombatTuning is the engine-configured bounds spec.md §4.4 steps 7/9/10/11
// reference (combat.min_avoidance, combat.min_absorb, etc).
type CombatTuning struct {
	MinAvoidance, MaxAvoidance     float64
	MinAbsorb, MaxAbsorb           float64
	MinAbsorbBlock, MaxAbsorbBlock float64
	MinElementResist, MaxElementResist float64
	MinCritDamage, MaxCritDamage   float64
	MinOverhitDamage, MaxOverhitDamage float64
	MinMissDamage, MaxMissDamage   float64
}

// DefaultCombatTuning mirrors the teacher's compiled-in combat constants,
// now data-driven (spec.md's ambient config stack loads this from file).
func DefaultCombatTuning() CombatTuning {
	return CombatTuning{
		MinAvoidance: 0, MaxAvoidance: 100,
		MinAbsorb: 0, MaxAbsorb: 90,
		MinAbsorbBlock: 50, MaxAbsorbBlock: 100,
		MinElementResist: 0, MaxElementResist: 100,
		MinCritDamage: 150, MaxCritDamage: 250,
		MinOverhitDamage: 110, MaxOverhitDamage: 150,
		MinMissDamage: 0, MaxMissDamage: 0,
	}
}

// Hazard is an in-flight instance emitted by a power (spec.md §3.1).
type Hazard struct {
	Source     *stats.Block
	PowerID    string
	Def        power.Definition

	SourceType effect.SourceType
	Pos        grid.Point
	Velocity   grid.Point
	Angle      float64
	Lifespan   int
	Radius     float64

	DmgMin, DmgMax float64
	Accuracy, Crit float64

	HitRegistry map[*stats.Block]bool // shared with parent if repeater child
	parent      *Hazard

	OnFloor      bool
	Active       bool
	HitWall      bool
	RemoveNow    bool
	SFXHitPlayed bool

	TargetParty bool // buff_party semantics reused for target_party gate
}

func newFromEmission(e power.Emission) *Hazard {
	h := &Hazard{
		Source:      e.SourceBlock,
		PowerID:     e.PowerID,
		Def:         e.Def,
		Pos:         e.Pos,
		Velocity:    e.Velocity,
		Angle:       e.Angle,
		Lifespan:    e.Def.Lifespan,
		Radius:      e.Def.Radius,
		DmgMin:      e.DmgMin,
		DmgMax:      e.DmgMax,
		Accuracy:    e.Accuracy,
		Crit:        e.Crit,
		Active:      true,
		HitRegistry: make(map[*stats.Block]bool),
	}
	if e.SourceBlock != nil {
		if e.SourceBlock.Identity.IsHero {
			h.SourceType = effect.SourceHero
		} else if e.SourceBlock.Identity.IsAlly {
			h.SourceType = effect.SourceAlly
		} else {
			h.SourceType = effect.SourceEnemy
		}
	}
	return h
}

// Manager owns the live hazard list (spec.md §4.4).
type Manager struct {
	hazards []*Hazard
	Grid    *grid.Grid
	Tuning  CombatTuning
	Rng     *simrand.Source
	Dispatcher *power.Dispatcher
	Log        *combatlog.Queue

	ScriptWall func(h *Hazard)
	PlaySound  func(name string)

	// UntransformHook reverts a transformed defender carrying
	// untransform_on_hit, invoked right after a landed hit (spec.md §3.1
	// "untransform_on_hit"). Wired by embercore/sim to
	// embercore/entity.Manager.Untransform.
	UntransformHook func(b *stats.Block)

	activate func(powerID string, src *stats.Block, at grid.Point) bool
}

func NewManager(g *grid.Grid, d *power.Dispatcher, rng *simrand.Source) *Manager {
	return &Manager{Grid: g, Dispatcher: d, Rng: rng, Tuning: DefaultCombatTuning()}
}

// Logic runs one tick: expire, drain, integrate, wall effects, entity
// sweep, sound — in the exact order spec.md §4.4 documents.
func (m *Manager) Logic(activate func(powerID string, src *stats.Block, at grid.Point) bool, defenders []*stats.Block) {
	m.activate = activate
	m.expire(activate)
	m.drainQueue()

	for _, h := range m.hazards {
		if !h.Active && h.RemoveNow {
			continue
		}
		h.Lifespan--
		m.integrate(h)
	}
	for _, h := range m.hazards {
		if h.HitWall {
			if m.ScriptWall != nil {
				m.ScriptWall(h)
			}
			if h.Def.ChainWallID != "" && m.Rng.Percent(h.Def.ChainWallChance) {
				activate(h.Def.ChainWallID, h.Source, h.Pos)
			}
		}
	}

	playedSound := false
	for _, h := range m.hazards {
		if !h.Active {
			continue
		}
		for _, def := range defenders {
			m.sweepOne(h, def, &playedSound)
		}
	}

	kept := m.hazards[:0]
	for _, h := range m.hazards {
		if h.RemoveNow || h.Lifespan <= 0 {
			continue
		}
		kept = append(kept, h)
	}
	m.hazards = kept
}

func (m *Manager) expire(activate func(powerID string, src *stats.Block, at grid.Point) bool) {
	for _, h := range m.hazards {
		if h.Lifespan <= 0 && h.Def.ChainExpireID != "" {
			if m.Rng.Percent(h.Def.ChainExpireChance) {
				activate(h.Def.ChainExpireID, h.Source, h.Pos)
			}
		}
	}
}

func (m *Manager) drainQueue() {
	if m.Dispatcher == nil {
		return
	}
	m.IngestEmissions(m.Dispatcher.Drain())
}

// IngestEmissions turns EmitHazard emissions into live Hazards, wiring
// repeater children to their parent's shared hit registry. Exposed so a
// caller that already drained the dispatcher itself (spec.md §4.9 step
// 7 "power dispatcher drains into Hazard Manager and Entity Manager
// spawn queue") can hand the hazard-kind emissions here directly instead
// of drainQueue re-draining (which would simply find nothing left).
func (m *Manager) IngestEmissions(emissions []power.Emission) {
	groups := make(map[int]*Hazard)
	for _, e := range emissions {
		switch e.EmKind {
		case power.EmitHazard:
			h := newFromEmission(e)
			if !e.IsParent && e.ParentGroup != 0 {
				if parent, ok := groups[e.ParentGroup]; ok {
					h.HitRegistry = parent.HitRegistry
					h.parent = parent
				}
			}
			if e.IsParent {
				groups[e.ParentGroup] = h
			}
			m.hazards = append(m.hazards, h)
		}
	}
}

// integrate advances h's position by one tick; animation advance itself
// is owned by the caller's anim.State, not tracked here.
func (m *Manager) integrate(h *Hazard) {
	if h.Velocity.X != 0 || h.Velocity.Y != 0 {
		h.Pos.X += h.Velocity.X
		h.Pos.Y += h.Velocity.Y
	}

	if m.Grid == nil {
		return
	}
	tile := h.Pos.Tile()
	if !m.Grid.IsValidPosition(float64(tile.X), float64(tile.Y), grid.Normal, grid.CollideNone) {
		h.HitWall = true
		h.Lifespan = 0
		if tile.X < 0 || tile.Y < 0 || tile.X >= m.Grid.Width || tile.Y >= m.Grid.Height {
			h.RemoveNow = true
		}
	}
}

func (m *Manager) sweepOne(h *Hazard, def *stats.Block, playedSound *bool) {
	if !h.Active || def.Dead || h.HitRegistry[def] {
		return
	}
	if h.Radius > 0 {
		if h.Pos.Distance(def.Pos) > h.Radius {
			return
		}
	}
	var defParty effect.SourceType
	switch {
	case def.Identity.IsHero:
		defParty = effect.SourceHero
	case def.Identity.IsAlly:
		defParty = effect.SourceAlly
	default:
		defParty = effect.SourceEnemy
	}
	if !DefaultPartyRule(h.SourceType, defParty, h.TargetParty) {
		return
	}

	landed := m.TakeHit(h, def)
	if landed {
		h.HitRegistry[def] = true
		if !h.Def.Multitarget {
			h.Active = false
			if !h.Def.CompleteAnimation {
				h.Lifespan = 0
			}
		}
		if !*playedSound && !h.SFXHitPlayed {
			h.SFXHitPlayed = true
			*playedSound = true
			if m.PlaySound != nil && h.Def.SoundFXHit != "" {
				m.PlaySound(h.Def.SoundFXHit)
			}
		}
	}
}

// TakeHit runs the 13-step damage pipeline of spec.md §4.4 against def,
// returning whether the hit landed (mutated def's state).
func (m *Manager) TakeHit(h *Hazard, def *stats.Block) bool {
	if def.Dead {
		return false
	}

	// Pre-chain: activated before impact resolves (spec.md §4.3's
	// "pre-chained power id", glossary "Chain power").
	if h.Def.ChainPreID != "" && m.Rng.Percent(h.Def.ChainPreChance) && m.activate != nil {
		m.activate(h.Def.ChainPreID, h.Source, h.Pos)
	}

	// Step 6: missile reflection.
	if def.Vector.Get(stats.Reflect) > 0 && m.Rng.Percent(def.Vector.Get(stats.Reflect)) {
		h.Angle += math.Pi
		h.Velocity.X, h.Velocity.Y = -h.Velocity.X, -h.Velocity.Y
		h.Lifespan = h.Def.Lifespan
		switch h.SourceType {
		case effect.SourceHero, effect.SourceAlly:
			h.SourceType = effect.SourceEnemy
		case effect.SourceEnemy:
			h.SourceType = effect.SourceHero
		}
		return false
	}

	// Step 7: accuracy vs avoidance.
	acc := h.Def.AccuracyMod.Apply(h.Accuracy, m.Rng)
	avoid := def.Vector.Get(stats.Avoidance)
	if h.Def.TraitAvoidIgnore {
		avoid = 0
	}
	raw := 100 - (acc - avoid)
	trueAvoidance := clamp(raw, m.Tuning.MinAvoidance, m.Tuning.MaxAvoidance)
	missed := !h.Def.PerfectAccuracy && m.Rng.FloatBetween(0, 100) < trueAvoidance
	overhit := raw < 0 && m.Rng.Percent(-raw)

	// Step 8: damage roll.
	dmg := m.Rng.FloatBetween(h.DmgMin, h.DmgMax)
	dmg = h.Def.DamageMod.Apply(dmg, m.Rng)

	// Step 9: elemental scaling.
	if h.Def.TraitElemental != "" {
		resist := clampResist(def.Vector.Resist(h.Def.TraitElemental), m.Tuning.MinElementResist, m.Tuning.MaxElementResist)
		dmg *= 1 - resist/100
	}

	// Step 10: absorption.
	if !h.Def.TraitArmorPen {
		lo, hi := m.Tuning.MinAbsorb, m.Tuning.MaxAbsorb
		if def.State == stats.StateBlock {
			lo, hi = m.Tuning.MinAbsorbBlock, m.Tuning.MaxAbsorbBlock
		}
		absorbMin := clamp(def.Vector.Get(stats.AbsorbMin), lo, hi)
		absorbMax := clamp(def.Vector.Get(stats.AbsorbMax), lo, hi)
		pct := m.Rng.FloatBetween(absorbMin, absorbMax)
		dmg -= dmg * pct / 100
		if pct < 100 && dmg < 1 && !h.Def.IgnoreZeroDamage {
			dmg = 1
		}
	}

	// Step 11: critical.
	critImpaired := 0.0
	if def.Effects.Agg.Stunned || def.Effects.Agg.SpeedMultiplier < 1 {
		critImpaired = h.Def.TraitCritsImpaired
	}
	critChance := h.Def.CritMod.Apply(h.Crit, m.Rng) + critImpaired
	isCrit := m.Rng.Percent(critChance)

	switch {
	case missed:
		dmg = m.Rng.FloatBetween(m.Tuning.MinMissDamage, m.Tuning.MaxMissDamage)
	case overhit:
		dmg *= m.Rng.FloatBetween(m.Tuning.MinOverhitDamage, m.Tuning.MaxOverhitDamage) / 100
	case isCrit:
		dmg *= m.Rng.FloatBetween(m.Tuning.MinCritDamage, m.Tuning.MaxCritDamage) / 100
	}

	if missed {
		if m.Log != nil {
			m.Log.PushCombatText(combatlog.CategoryMiss, def.Pos, 0, "miss")
		}
		return false
	}

	// Step 12: apply.
	dealt := def.ApplyRawDamage(dmg)
	if dmg > 0 {
		def.Effects.RemoveEffectType(effect.TagStun)
	}
	if m.Log != nil {
		cat := combatlog.CategoryTakeDamage
		if isCrit {
			cat = combatlog.CategoryCrit
		}
		m.Log.PushCombatText(cat, def.Pos, dealt, "")
		if h.Source != nil {
			m.Log.PushCombatText(combatlog.CategoryGiveDamage, h.Source.Pos, dealt, "")
		}
	}
	if def.Vector.Get(stats.HpSteal) > 0 && h.Source != nil {
		h.Source.SetHP(h.Source.Vector.Get(stats.Hp) + dealt*def.Vector.Get(stats.HpSteal)/100)
	}
	if def.Vector.Get(stats.MpSteal) > 0 && h.Source != nil {
		stolen := dealt * def.Vector.Get(stats.MpSteal) / 100
		h.Source.Vector.Set(stats.Mp, clamp(h.Source.Vector.Get(stats.Mp)+stolen, 0, h.Source.Vector.Get(stats.MpMax)))
	}
	if def.Vector.Get(stats.ReturnDamage) > 0 && h.Source != nil {
		if h.Source.Effects.Agg.ImmuneDamageReflect {
			if m.Log != nil {
				m.Log.PushCombatText(combatlog.CategoryImmune, h.Source.Pos, 0, "immune")
			}
		} else {
			h.Source.ApplyRawDamage(dealt * def.Vector.Get(stats.ReturnDamage) / 100)
		}
	}

	for _, id := range h.Def.RemoveEffects {
		def.Effects.RemoveEffectID(id)
	}

	// Step 13: reactions.
	if def.Vector.Get(stats.Hp) == 0 {
		def.TriggeredDeath = true
		if isCrit {
			def.State = stats.StateCritDead
		} else {
			def.State = stats.StateDead
		}
		def.Dead = true
		if m.Grid != nil {
			m.Grid.Unblock(def.Pos.X, def.Pos.Y)
		}
	} else if !m.Rng.Percent(def.Vector.Get(stats.Poise)) || isCrit {
		def.State = stats.StateHit
		def.HitCooldown = 0
		def.Effects.MarkTriggered(effect.TriggerHit)
	}

	if h.Def.PostPowerID != "" && m.Rng.Percent(h.Def.PostPowerChance) && m.activate != nil {
		m.activate(h.Def.PostPowerID, h.Source, def.Pos)
	}

	if def.Transform != nil && def.Transform.UntransformOnHit && m.UntransformHook != nil {
		m.UntransformHook(def)
	}

	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampResist(v, lo, hi float64) float64 {
	if hi >= 100 {
		if v < lo {
			return lo
		}
		return v
	}
	return clamp(v, lo, hi)
}
