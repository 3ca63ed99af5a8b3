// Package ai implements the per-entity behaviour tick (spec.md §4.5, C7):
// upkeep, target selection, power selection, movement, and animation-
// driven state advancement. Shared by creatures and the avatar (hero),
// which drives the same loop from input rather than autonomous scanning.
// Grounded on the teacher's behavior/creaturebehavior.go weapon-based
// behavior-selection idiom (generalized from a one-shot component tag to
// a full per-tick decision loop) and other_examples' L1JGO npc_ai.go
// Go-handles-detection/dispatch split.
package ai

import (
	"math"

	"embercore/grid"
	"embercore/simrand"
	"embercore/stats"
)

// EntityQuery is the minimal surface ai needs from embercore/entity's
// Manager for nearest-target scanning, kept as an interface so this
// package never imports entity (same split as effect.Target/stats.Block).
type EntityQuery interface {
	NearestHostile(pos grid.Point, sourceIsAllied bool, maxRange float64) (*stats.Block, bool)
	NearestCorpse(pos grid.Point, maxRange float64) (*stats.Block, bool)
}

// Tuning bundles the engine-configured constants spec.md §4.5 references
// by name (ALLY_TELEPORT_DISTANCE, encounter_dist, recalc chance, etc).
type Tuning struct {
	EncounterDist        float64
	AllyTeleportDistance float64
	PathRecalcChance     float64 // 0..100, per tick while following a stale path
	PathRetryCooldown    int     // ticks to wait after "no path found" before retrying
	PathNodeLimit        int
	FleeWedgeCount        int
}

func DefaultTuning() Tuning {
	return Tuning{
		EncounterDist:        12,
		AllyTeleportDistance: 20,
		PathRecalcChance:     5,
		PathRetryCooldown:    30,
		PathNodeLimit:        2000,
		FleeWedgeCount:       5,
	}
}

// Agent is the live behaviour state for one entity, separate from its
// Stat Block so the same ai.Tick function drives both creatures and the
// hero without the Stat Block needing to know about pathing internals.
type Agent struct {
	Block *stats.Block

	Target       *stats.Block
	HasTarget    bool
	PendingPowerID string // slot chosen by selectPower, activated once on the active frame
	Path         []grid.Point
	NoPathCooldown int
	FleeDir      grid.Direction
	Fleeing      bool
	AllyFleeTimer int

	HeroSide bool // true for hero/allies; governs target-selection polarity
}

// Activator is how ai dispatches a power; supplied by the caller at
// wiring time so this package never imports embercore/power's Dispatcher
// concretely beyond the Activate-shaped function signature.
type Activator func(powerID string, src *stats.Block, target *stats.Block, hasTarget bool) bool

// Environment bundles everything one Tick call needs beyond the Agent
// itself (spec.md §4.5's per-tick dependencies).
type Environment struct {
	Grid      *grid.Grid
	Hero      *stats.Block
	Queries   EntityQuery
	Activate  Activator
	Rng       *simrand.Source
	Tuning    Tuning
	HPRegenPerTick float64
	MPRegenPerTick float64
}

// Tick runs one full behaviour cycle for a, per spec.md §4.5. Corpses
// only decrement their corpse timer; non-hero-allied entities outside
// EncounterDist and never yet encountered are skipped entirely.
func Tick(a *Agent, env Environment) {
	b := a.Block
	if b.IsCorpse() {
		decr(&b.CorpseTimer)
		return
	}
	if !b.Identity.IsHero && !b.Identity.IsAlly && !b.Encountered {
		if env.Hero != nil && b.Pos.Distance(env.Hero.Pos) > env.Tuning.EncounterDist {
			return
		}
		b.Encountered = true
	}

	upkeep(a, env)
	selectTarget(a, env)
	selectPower(a, env)
	move(a, env)
	advanceState(a, env)
}

func decr(t *int) {
	if *t > 0 {
		*t--
	}
}

func upkeep(a *Agent, env Environment) {
	for _, passiveID := range a.Block.PassivePowers {
		if env.Activate != nil {
			env.Activate(passiveID, a.Block, nil, false)
		}
	}
	a.Block.TickLogic(env.HPRegenPerTick, env.MPRegenPerTick)
}

// selectTarget implements spec.md §4.5 step 2.
func selectTarget(a *Agent, env Environment) {
	if a.Block.Identity.IsAlly && !a.Block.InCombat && env.Hero != nil {
		if a.Block.Pos.Distance(env.Hero.Pos) > env.Tuning.AllyTeleportDistance {
			a.Block.Pos = env.Hero.Pos
		}
	}

	prevTarget := a.Target
	if env.Queries != nil {
		threat := a.Block.Tuning.ThreatRangeFar
		if threat <= 0 {
			threat = a.Block.Tuning.ThreatRange
		}
		if t, ok := env.Queries.NearestHostile(a.Block.Pos, a.Block.Identity.IsAlly || a.Block.Identity.IsHero, threat); ok {
			a.Target = t
			a.HasTarget = true
		} else if env.Hero != nil && !a.Block.Identity.IsHero && !a.Block.Identity.IsAlly {
			a.Target = env.Hero
			a.HasTarget = true
		}
	} else if env.Hero != nil && !a.Block.Identity.IsHero {
		a.Target = env.Hero
		a.HasTarget = true
	}

	switch a.Block.Tuning.CombatStyle {
	case stats.CombatStyleAggressive:
		if a.HasTarget {
			a.Block.InCombat = true
		}
	case stats.CombatStylePassive:
		// never autonomously enters combat
	default:
		if a.HasTarget && prevTarget != a.Target {
			a.Block.InCombat = true
		}
	}

	if a.Block.InCombat && prevTarget == nil && a.HasTarget && env.Activate != nil {
		env.Activate("ai_power_join_combat", a.Block, a.Target, true)
	}

	if a.HasTarget && (a.Target.Dead ||
		(a.Block.Tuning.CombatStyle != stats.CombatStyleAggressive &&
			a.Block.Pos.Distance(a.Target.Pos) > a.Block.Tuning.ThreatRangeFar && a.Block.Tuning.ThreatRangeFar > 0)) {
		a.Block.InCombat = false
		a.HasTarget = false
		a.Target = nil
	}

	if !a.Block.InCombat {
		wander(a, env)
	}

	if shouldFlee(a, env) {
		enterFlee(a, env)
	}
}

func wander(a *Agent, env Environment) {
	if len(a.Block.Waypoints) > 0 {
		return
	}
	t := a.Block.Tuning
	if t.WanderRadius <= 0 && t.WanderAreaW <= 0 {
		return
	}
	if env.Rng == nil {
		return
	}
	x := t.WanderAreaX + env.Rng.FloatBetween(0, max1(t.WanderAreaW))
	y := t.WanderAreaY + env.Rng.FloatBetween(0, max1(t.WanderAreaH))
	a.Block.Waypoints = append(a.Block.Waypoints, grid.Point{X: x, Y: y})
}

func max1(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func shouldFlee(a *Agent, env Environment) bool {
	if a.Block.Effects.Agg.Feared {
		return true
	}
	if !a.HasTarget || env.Rng == nil {
		return false
	}
	if a.Block.Pos.Distance(a.Target.Pos) > a.Block.Tuning.FleeRange {
		return false
	}
	return env.Rng.Percent(a.Block.Tuning.ChanceToFlee)
}

func enterFlee(a *Agent, env Environment) {
	a.Fleeing = true
	if !a.HasTarget {
		return
	}
	awayAngle := a.Target.Pos.Angle(a.Block.Pos)
	wedge := env.Tuning.FleeWedgeCount
	if wedge <= 0 {
		wedge = 5
	}
	spread := grid.Direction(0)
	if a.Fleeing && a.FleeDir != 0 {
		spread = a.FleeDir
	} else {
		spread = grid.DirectionFromAngle(awayAngle)
	}
	a.FleeDir = spread
}

// selectPower implements spec.md §4.5 step 3.
func selectPower(a *Agent, env Environment) {
	if a.Block.Effects.Agg.Stunned || a.Block.Effects.Agg.Feared || a.Fleeing {
		return
	}
	if a.Block.GlobalCooldown > 0 || !a.Block.InCombat {
		return
	}
	if a.Block.State != stats.StateStance && a.Block.State != stats.StateMove {
		return
	}

	slot, ok := pickSlot(a, env)
	if !ok {
		return
	}
	if slot.RequiresLOS && env.Grid != nil && a.HasTarget {
		if !env.Grid.LineOfSight(a.Block.Pos.X, a.Block.Pos.Y, a.Target.Pos.X, a.Target.Pos.Y) {
			return
		}
	}
	if env.Rng != nil && !env.Rng.Percent(slot.Chance) {
		return
	}
	a.Block.State = stats.StatePower
	a.PendingPowerID = slot.PowerID
}

func pickSlot(a *Agent, env Environment) (stats.PowerSlot, bool) {
	halfDead := a.Block.Vector.Get(stats.Hp) <= a.Block.Vector.Get(stats.HpMax)/2
	var ranged, melee, half *stats.PowerSlot
	for i := range a.Block.PowerSlots {
		s := &a.Block.PowerSlots[i]
		if s.CooldownLeft > 0 {
			continue
		}
		switch {
		case halfDead && half == nil:
			half = s
		case ranged == nil && a.HasTarget && a.Block.Pos.Distance(a.Target.Pos) > a.Block.Tuning.MeleeRange:
			ranged = s
		case melee == nil:
			melee = s
		}
	}
	switch {
	case halfDead && half != nil:
		return *half, true
	case ranged != nil:
		return *ranged, true
	case melee != nil:
		return *melee, true
	}
	return stats.PowerSlot{}, false
}

// move implements spec.md §4.5 step 4.
func move(a *Agent, env Environment) {
	if env.Grid == nil || a.Block.State == stats.StatePower || a.Block.State == stats.StateBlock {
		return
	}
	dest, ok := moveDestination(a)
	if !ok {
		return
	}

	env.Grid.Unblock(a.Block.Pos.X, a.Block.Pos.Y)
	defer env.Grid.Block(a.Block.Pos.X, a.Block.Pos.Y, a.Block.Identity.IsAlly || a.Block.Identity.IsHero)

	if env.Grid.LineOfMovement(a.Block.Pos.X, a.Block.Pos.Y, dest.X, dest.Y, a.Block.MovementType) {
		face(a, dest)
		step(a, env, dest)
		return
	}

	if len(a.Path) == 0 || (env.Rng != nil && env.Rng.Percent(env.Tuning.PathRecalcChance)) {
		recalcPath(a, env, dest)
	}
	if len(a.Path) > 0 {
		next := a.Path[len(a.Path)-1]
		face(a, next)
		if step(a, env, next) {
			if a.Block.Pos.Distance(next) < 1 {
				a.Path = a.Path[:len(a.Path)-1]
			}
		}
	}
}

func moveDestination(a *Agent) (grid.Point, bool) {
	if a.Fleeing && a.HasTarget {
		angle := a.FleeDir.Angle()
		return grid.Point{X: a.Block.Pos.X + cosApprox(angle), Y: a.Block.Pos.Y + sinApprox(angle)}, true
	}
	if a.Block.InCombat && a.HasTarget {
		return a.Target.Pos, true
	}
	if len(a.Block.Waypoints) > 0 {
		return a.Block.Waypoints[0], true
	}
	return grid.Point{}, false
}

func recalcPath(a *Agent, env Environment, dest grid.Point) {
	if a.NoPathCooldown > 0 {
		decr(&a.NoPathCooldown)
		return
	}
	limit := env.Tuning.PathNodeLimit
	if limit <= 0 {
		limit = 2000
	}
	path, found := env.Grid.BuildPath(a.Block.Pos, dest, a.Block.MovementType, limit)
	if !found {
		a.NoPathCooldown = env.Tuning.PathRetryCooldown
		a.Path = nil
		return
	}
	a.Path = path
}

func step(a *Agent, env Environment, dest grid.Point) bool {
	dx, dy := clampStep(dest.X-a.Block.Pos.X), clampStep(dest.Y-a.Block.Pos.Y)
	if dx == 0 && dy == 0 {
		return true
	}
	ok := env.Grid.Move(&a.Block.Pos.X, &a.Block.Pos.Y, dx, dy, a.Block.MovementType, grid.CollideNormal)
	if ok {
		return true
	}
	for _, candidateDir := range []int{1, -1} {
		rotated := a.Block.Facing.RotatedBy(candidateDir)
		angle := rotated.Angle()
		if env.Grid.Move(&a.Block.Pos.X, &a.Block.Pos.Y, cosApprox(angle)*stepMagnitude(dx, dy), sinApprox(angle)*stepMagnitude(dx, dy), a.Block.MovementType, grid.CollideNormal) {
			a.Block.Facing = rotated
			return true
		}
	}
	return false
}

func stepMagnitude(dx, dy float64) float64 {
	m := dx
	if dy > m {
		m = dy
	}
	if m == 0 {
		return 0.1
	}
	return m
}

func clampStep(d float64) float64 {
	const maxStep = 0.2
	if d > maxStep {
		return maxStep
	}
	if d < -maxStep {
		return -maxStep
	}
	return d
}

func face(a *Agent, dest grid.Point) {
	a.Block.Facing = grid.DirectionFromAngle(a.Block.Pos.Angle(dest))
}

func cosApprox(rad float64) float64 { return math.Cos(rad) }
func sinApprox(rad float64) float64 { return math.Sin(rad) }

// advanceState implements spec.md §4.5 step 5.
func advanceState(a *Agent, env Environment) {
	if a.Block.Anim == nil {
		return
	}
	a.Block.Anim.Advance()

	switch a.Block.State {
	case stats.StateDead, stats.StateCritDead:
		if a.Block.Anim.IsFirstFrame() {
			a.Block.CorpseTimer = 60
		}
		if a.Block.Anim.SecondToLastFrame() && env.Activate != nil {
			env.Activate("ai_power_death", a.Block, nil, false)
		}
		if a.Block.Anim.IsLastFrame() {
			if env.Grid != nil {
				env.Grid.Unblock(a.Block.Pos.X, a.Block.Pos.Y)
			}
		}
	case stats.StatePower:
		if a.Block.Anim.IsActiveFrame() && a.PendingPowerID != "" && env.Activate != nil {
			env.Activate(a.PendingPowerID, a.Block, a.Target, a.HasTarget)
			a.PendingPowerID = ""
		}
		if a.Block.Anim.IsLastFrame() {
			a.Block.State = stats.StateStance
		}
	default:
		if a.Block.Anim.IsLastFrame() && !a.Block.Anim.Def.Loop {
			a.Block.State = stats.StateStance
		}
	}
}
