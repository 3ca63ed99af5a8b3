// Package power implements the Power dispatcher (spec.md §4.3, C5): power
// definitions loaded once at data-load time, and activate(), which charges
// costs, resolves replace-by-effect substitution, and dispatches by kind
// into hazard/spawn "emissions" that embercore/hazard and embercore/entity
// drain on their own schedule. Grounded on the teacher's combat dispatch
// split (deleted combat/ package) generalized to the kind-tagged Power
// Definition spec.md §3.1 describes, and on other_examples' opd-ai-
// violence hazard system for the emit-then-drain queue idiom.
package power

import (
	"math"

	"embercore/combatlog"
	"embercore/effect"
	"embercore/grid"
	"embercore/simrand"
	"embercore/stats"

	"github.com/sirupsen/logrus"
)

// Kind is the power's dispatch kind (spec.md §3.1).
type Kind int

const (
	KindFixed Kind = iota
	KindMissile
	KindRepeater
	KindSpawn
	KindTransform
	KindEffect
	KindBlock
)

// ActivationState is the on-activation presentation state (spec.md §3.1).
type ActivationState int

const (
	OnActivateInstant ActivationState = iota
	OnActivateAttack
)

// StartingPos selects where a Fixed/Missile/Repeater hazard begins.
type StartingPos int

const (
	StartAtSource StartingPos = iota
	StartAtTarget
	StartAtMelee
)

// ModifierMode is shared by damage/accuracy/crit modifier triples.
type ModifierMode int

const (
	ModifyMultiply ModifierMode = iota
	ModifyAdd
	ModifyAbsolute
)

// Modifier is a (mode, min, max) triple applied against a base value
// (spec.md §3.1 "damage-modifier triple").
type Modifier struct {
	Mode ModifierMode
	Min  float64
	Max  float64
}

// Apply resolves the modifier against base using rng for the uniform
// draw between Min and Max. An unconfigured (zero-value) Modifier is
// treated as "no modifier" rather than "multiply by zero", since most
// Power Definition fields are optional and absent in authored data.
func (m Modifier) Apply(base float64, rng *simrand.Source) float64 {
	if m.Mode == ModifyMultiply && m.Min == 0 && m.Max == 0 {
		return base
	}
	roll := m.Min
	if m.Max > m.Min {
		roll = rng.FloatBetween(m.Min, m.Max)
	}
	switch m.Mode {
	case ModifyAdd:
		return base + roll
	case ModifyAbsolute:
		return roll
	default:
		return base * roll
	}
}

// PostEffect is one entry of a power's post_effect list (spec.md §3.1).
type PostEffect struct {
	EffectID     string
	Def          effect.Definition
	Magnitude    float64
	MagnitudeMax float64
	Duration     int
	Chance       float64
}

// ReplaceRule is one entry of replace_by_effect (spec.md §4.3 step 1).
type ReplaceRule struct {
	OtherPowerID     string
	RequiredEffectID string
	RequiredCount    int
}

// SpawnLevelMode controls handleSpawn's level resolution (spec.md §4.6).
type SpawnLevelMode int

const (
	SpawnLevelFixed SpawnLevelMode = iota
	SpawnLevelRatio
	SpawnLevelStatProportional
)

// Requirements bundles every activation gate spec.md §4.3 lists besides
// cost (cost has its own struct since it is also charged).
type Requirements struct {
	EquipFlags       []string
	RequiresLOS      bool
	RequiresEmptyTgt bool
	RequiresHP       float64 // source hp must exceed this unless Sacrifice
	Sacrifice        bool
	MetaPower        bool // must be replaced via equipment before use
	RequiresItem     string
	RequiresEquipped string
	RequiresSpawns   int // Spawn kind: max concurrent spawns from this power
	PartyMinCount    int // buff_party: required party-member count
}

// Cost is what activate() charges on success (spec.md §4.3 step 2).
type Cost struct {
	MP              float64
	RequiresItemID  string // consumable, removed from inventory
	EquippedItemID  string // must be equipped; not removed, at most one instance counted consumed
}

// Definition is the static, load-once power template (spec.md §3.1).
type Definition struct {
	ID   string
	Kind Kind

	OnActivate ActivationState
	Animation  string
	Cooldown   int

	Req  Requirements
	Cost Cost

	BaseDamageType string // selects stats.Vector.DamageMin/Max(type)
	DamageMod      Modifier
	AccuracyMod    Modifier
	CritMod        Modifier

	// Hazard fields.
	Radius          float64
	Lifespan        int
	Speed           float64
	Count           int
	MissileAngle    float64 // radians between simultaneous missiles
	AngleVariance   float64
	SpeedVariance   float64
	RepeaterDelay   int
	StartingPos     StartingPos
	TargetMovement  []grid.MovementType
	TraitArmorPen   bool
	TraitElemental  string // element name, "" = non-elemental
	TraitAvoidIgnore bool
	TraitCritsImpaired float64
	Multitarget     bool
	WallsBlockAOE   bool
	CompleteAnimation bool
	IgnoreZeroDamage  bool
	PerfectAccuracy   bool // skips the miss roll entirely (spec.md §4.4 step 7)

	PostEffects   []PostEffect
	BuffParty     []PostEffect
	BuffPartyPowerID string
	RemoveEffects []string // effect ids stripped from the defender on hit (spec.md §4.4 step 12)

	ChainPreID   string
	ChainPreChance float64
	ChainWallID  string
	ChainWallChance float64
	ChainExpireID string
	ChainExpireChance float64
	PostPowerID     string // activated on the defender after a successful hit
	PostPowerChance float64

	SpawnType      string // "", "summon", "untransform"
	SpawnLevelMode SpawnLevelMode
	SpawnLevelRatio float64
	SpawnStatName   string
	SpawnLimit      int
	TargetNeighbor  bool

	TransformCreatureID string
	TransformDuration   int
	ManualUntransform   bool
	KeepEquipment       bool
	UntransformOnHit    bool

	ReplaceByEffect []ReplaceRule

	ScriptTrigger string // "Cast", "Hit", "Wall"
	ScriptFile    string

	SoundFX     string
	SoundFXHit  string
}

// Actor is the minimal surface activate() needs from a Stat Block. power
// never imports stats.Block directly by pointer chasing beyond this
// surface so test doubles are cheap to build.
type Actor struct {
	Block *stats.Block
}

// EmissionKind tags what a drained Emission represents.
type EmissionKind int

const (
	EmitHazard EmissionKind = iota
	EmitSpawnEnemy
	EmitTransform
	EmitBlockState
)

// Emission is one unit of dispatched work queued for embercore/hazard or
// embercore/entity to drain on their own schedule (spec.md §4.9 step 7
// "Power dispatcher drains"). Plain data only, so this package never
// needs to import hazard or entity.
type Emission struct {
	EmKind EmissionKind

	SourceBlock *stats.Block
	PowerID     string

	Pos      grid.Point
	Angle    float64
	Velocity grid.Point

	DmgMin, DmgMax   float64
	Accuracy, Crit   float64
	Def              Definition
	ParentGroup      int // repeater children share the parent's group index
	IsParent         bool

	SpawnCreatureID string
	SpawnLevel      int

	TransformCreatureID     string
	TransformDuration       int
	TransformKeepEquipment  bool
	TransformManual         bool
	TransformUntransformOnHit bool
}

// ScriptExecutor invokes a map-event script at a position (spec.md §4.3
// step 6 "script_trigger == Cast"). Supplied by embercore/mapevent at
// wiring time; power never imports mapevent.
type ScriptExecutor func(trigger string, file string, at grid.Point)

// SoundPlayer plays a power's sound effect (spec.md §4.3 step 7).
type SoundPlayer func(name string)

// Dispatcher holds the loaded power table and the outbound emission
// queue (spec.md §4.3/§4.9).
type Dispatcher struct {
	byID      map[string]*Definition
	Rng       *simrand.Source
	Script    ScriptExecutor
	PlaySound SoundPlayer
	Grid      *grid.Grid // consulted by dispatchRepeater to stop at a WallMovement tile
	Log       *combatlog.Queue
	emissions []Emission
}

func NewDispatcher(rng *simrand.Source) *Dispatcher {
	return &Dispatcher{byID: make(map[string]*Definition), Rng: rng}
}

// SetGrid wires the collision grid a Repeater's wall-stop check reads.
func (d *Dispatcher) SetGrid(g *grid.Grid) {
	d.Grid = g
}

// wallMovementBlocked reports whether p's tile is a WallMovement (or
// stronger) cell. With no grid wired, nothing is ever blocked.
func (d *Dispatcher) wallMovementBlocked(p grid.Point) bool {
	if d.Grid == nil {
		return false
	}
	t := p.Tile()
	switch d.Grid.CellAt(t.X, t.Y) {
	case grid.WallMovement, grid.WallAll:
		return true
	default:
		return false
	}
}

// Register adds (or overwrites) a loaded power definition.
func (d *Dispatcher) Register(def *Definition) {
	d.byID[def.ID] = def
}

func (d *Dispatcher) Lookup(id string) (*Definition, bool) {
	def, ok := d.byID[id]
	return def, ok
}

// Drain returns and clears the queued emissions (spec.md §4.9 step 7).
func (d *Dispatcher) Drain() []Emission {
	out := d.emissions
	d.emissions = nil
	return out
}

func (d *Dispatcher) emit(e Emission) {
	d.emissions = append(d.emissions, e)
}

// PartyMembers/Inventory are resolved by the caller at activation time so
// this package doesn't need to know the hero/party/inventory model.
type ActivationContext struct {
	Source        *stats.Block
	Target        *stats.Block
	HasTarget     bool
	PartyMembers  []*stats.Block
	HasItem       func(id string) bool
	ConsumeItem   func(id string)
	HasEquipped   func(id string) bool
	CurrentSpawns func(powerID string) int
	IsTransformed func(b *stats.Block) bool
}

// Activate runs the full activation pipeline described in spec.md §4.3.
// Returns false (no mutation besides what already happened during gate
// evaluation) on any rejection.
func (d *Dispatcher) Activate(powerID string, ctx ActivationContext) bool {
	def, ok := d.byID[powerID]
	if !ok {
		logrus.WithField("power_id", powerID).Warn("activate: unknown power id")
		return false
	}
	src := ctx.Source
	if src == nil || src.Dead {
		return false
	}
	if src.Identity.IsHero && src.Vector.Get(stats.Mp) < def.Cost.MP {
		return false
	}
	if def.Req.RequiresHP > 0 && !def.Req.Sacrifice && src.Vector.Get(stats.Hp) <= def.Req.RequiresHP {
		return false
	}
	if def.Req.MetaPower {
		return false
	}
	if src.Effects.Agg.Stunned {
		return false
	}
	if def.Kind == KindSpawn && def.Req.RequiresSpawns > 0 && ctx.CurrentSpawns != nil {
		if ctx.CurrentSpawns(def.ID) >= def.Req.RequiresSpawns {
			return false
		}
	}
	if def.SpawnType == "untransform" && ctx.IsTransformed != nil && !ctx.IsTransformed(src) {
		return false
	}
	for _, flag := range def.Req.EquipFlags {
		if !hasTag(src.Identity.Tags, flag) {
			return false
		}
	}
	if def.Req.PartyMinCount > 0 && len(ctx.PartyMembers) < def.Req.PartyMinCount {
		return false
	}
	if def.Cost.RequiresItemID != "" && (ctx.HasItem == nil || !ctx.HasItem(def.Cost.RequiresItemID)) {
		return false
	}
	if def.Cost.EquippedItemID != "" && (ctx.HasEquipped == nil || !ctx.HasEquipped(def.Cost.EquippedItemID)) {
		return false
	}

	dispatchID := d.resolveReplaceByEffect(def, src)
	dispatchDef := def
	if dispatchID != def.ID {
		if replaced, ok := d.byID[dispatchID]; ok {
			dispatchDef = replaced
		}
	}

	// Step 2: charge costs.
	if src.Identity.IsHero {
		src.Vector.Add(stats.Mp, -def.Cost.MP)
	}
	if def.Req.Sacrifice {
		src.ApplyRawDamage(def.Req.RequiresHP)
	}
	if def.Cost.RequiresItemID != "" && ctx.ConsumeItem != nil {
		ctx.ConsumeItem(def.Cost.RequiresItemID)
	}

	d.dispatch(dispatchDef, src, ctx)

	for _, pe := range dispatchDef.PostEffects {
		if d.Rng.Percent(pe.Chance) && applyPostEffect(src.Effects, pe) && d.Log != nil {
			d.Log.PushCombatText(combatlog.CategoryBuff, src.Pos, 0, pe.EffectID)
		}
	}
	for _, member := range ctx.PartyMembers {
		for _, pe := range dispatchDef.BuffParty {
			if d.Rng.Percent(pe.Chance) && applyPostEffect(member.Effects, pe) && d.Log != nil {
				d.Log.PushCombatText(combatlog.CategoryBuff, member.Pos, 0, pe.EffectID)
			}
		}
	}

	for i := range src.PowerSlots {
		if src.PowerSlots[i].PowerID == def.ID || src.PowerSlots[i].PowerID == dispatchID {
			src.PowerSlots[i].CooldownLeft = def.Cooldown
		}
	}

	if dispatchDef.ScriptTrigger == "Cast" && d.Script != nil {
		d.Script("Cast", dispatchDef.ScriptFile, src.Pos)
	}
	if d.PlaySound != nil && dispatchDef.SoundFX != "" {
		d.PlaySound(dispatchDef.SoundFX)
	}

	return true
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// resolveReplaceByEffect returns def.ID unless a replace_by_effect rule's
// required effect is present with sufficient count, in which case the
// first matching rule's OtherPowerID is used (spec.md §4.3 step 1).
func (d *Dispatcher) resolveReplaceByEffect(def *Definition, src *stats.Block) string {
	for _, rule := range def.ReplaceByEffect {
		if src.Effects.HasEffect(rule.RequiredEffectID, rule.RequiredCount) {
			return rule.OtherPowerID
		}
	}
	return def.ID
}

func applyPostEffect(set *effect.Set, pe PostEffect) bool {
	return set.AddEffect(pe.Def, pe.Magnitude, pe.MagnitudeMax, pe.Duration, effect.SourceEnemy, "", effect.TriggerNone)
}

func (d *Dispatcher) dispatch(def *Definition, src *stats.Block, ctx ActivationContext) {
	switch def.Kind {
	case KindFixed:
		d.dispatchFixed(def, src, ctx)
	case KindMissile:
		d.dispatchMissile(def, src, ctx)
	case KindRepeater:
		d.dispatchRepeater(def, src, ctx)
	case KindSpawn:
		d.dispatchSpawn(def, src, ctx)
	case KindTransform:
		d.dispatchTransform(def, src, ctx)
	case KindBlock:
		src.TriggeredBlock = true
		src.State = stats.StateBlock
		src.Effects.MarkTriggered(effect.TriggerBlock)
	case KindEffect:
		// post-effects already applied by the caller; nothing hazard-like emitted.
	}
}

func (d *Dispatcher) startingPoint(def *Definition, src *stats.Block, ctx ActivationContext) grid.Point {
	switch def.StartingPos {
	case StartAtTarget:
		if ctx.HasTarget {
			return ctx.Target.Pos
		}
	case StartAtMelee:
		ang := angleTo(src, ctx)
		return grid.Point{X: src.Pos.X + math.Cos(ang), Y: src.Pos.Y + math.Sin(ang)}
	}
	return src.Pos
}

func angleTo(src *stats.Block, ctx ActivationContext) float64 {
	if !ctx.HasTarget {
		return src.Facing.Angle()
	}
	return src.Pos.Angle(ctx.Target.Pos)
}

func (d *Dispatcher) baseDamage(def *Definition, src *stats.Block) (min, max float64) {
	if def.BaseDamageType == "" {
		return 0, 0
	}
	return src.Vector.DamageMin(def.BaseDamageType), src.Vector.DamageMax(def.BaseDamageType)
}

func (d *Dispatcher) seedHazard(def *Definition, src *stats.Block, pos grid.Point, angle float64) Emission {
	dmin, dmax := d.baseDamage(def, src)
	speed := def.Speed
	if def.SpeedVariance > 0 {
		speed *= 1 + d.Rng.FloatBetween(-def.SpeedVariance, def.SpeedVariance)
	}
	return Emission{
		EmKind:      EmitHazard,
		SourceBlock: src,
		PowerID:     def.ID,
		Pos:         pos,
		Angle:       angle,
		Velocity:    grid.Point{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed},
		DmgMin:      dmin,
		DmgMax:      dmax,
		Accuracy:    src.Vector.Get(stats.Accuracy),
		Crit:        src.Vector.Get(stats.Crit),
		Def:         *def,
	}
}

func (d *Dispatcher) dispatchFixed(def *Definition, src *stats.Block, ctx ActivationContext) {
	pos := d.startingPoint(def, src, ctx)
	angle := angleTo(src, ctx)
	count := def.Count
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		d.emit(d.seedHazard(def, src, pos, angle))
	}
}

func (d *Dispatcher) dispatchMissile(def *Definition, src *stats.Block, ctx ActivationContext) {
	pos := d.startingPoint(def, src, ctx)
	baseAngle := angleTo(src, ctx)
	count := def.Count
	if count < 1 {
		count = 1
	}
	mid := float64(count-1) / 2
	for i := 0; i < count; i++ {
		variance := 0.0
		if def.AngleVariance > 0 {
			variance = d.Rng.FloatBetween(-def.AngleVariance, def.AngleVariance)
		}
		angle := baseAngle + (float64(i)-mid)*def.MissileAngle + variance
		d.emit(d.seedHazard(def, src, pos, angle))
	}
}

// dispatchRepeater emits at most def.Count hazards spaced by def.Speed
// along the vector to the target, stopping at the first WallMovement
// tile hit — the hazard landing on that tile is still emitted, but none
// past it (spec.md §4.3 step 3, §8 scenario #3: count=6 spacing=1 into a
// wall at x+3 emits exactly 3 hazards at x+1, x+2, x+3).
func (d *Dispatcher) dispatchRepeater(def *Definition, src *stats.Block, ctx ActivationContext) {
	pos := d.startingPoint(def, src, ctx)
	angle := angleTo(src, ctx)
	count := def.Count
	if count < 1 {
		count = 1
	}
	groupID := len(d.emissions)
	dir := grid.Point{X: math.Cos(angle), Y: math.Sin(angle)}
	for i := 0; i < count; i++ {
		step := float64(i+1) * def.Speed
		segPos := grid.Point{X: pos.X + dir.X*step, Y: pos.Y + dir.Y*step}
		e := d.seedHazard(def, src, segPos, angle)
		e.ParentGroup = groupID
		e.IsParent = i == 0
		d.emit(e)
		if d.wallMovementBlocked(segPos) {
			break
		}
	}
}

func (d *Dispatcher) dispatchSpawn(def *Definition, src *stats.Block, ctx ActivationContext) {
	count := def.Count
	if count < 1 {
		count = 1
	}
	pos := d.startingPoint(def, src, ctx)
	for i := 0; i < count; i++ {
		d.emit(Emission{
			EmKind:          EmitSpawnEnemy,
			SourceBlock:     src,
			PowerID:         def.ID,
			Pos:             pos,
			SpawnCreatureID: def.TransformCreatureID, // spawn creature id reuses the same field as transform's
			SpawnLevel:      resolveSpawnLevel(def, src),
		})
	}
}

func resolveSpawnLevel(def *Definition, src *stats.Block) int {
	switch def.SpawnLevelMode {
	case SpawnLevelRatio:
		return int(float64(src.Level) * def.SpawnLevelRatio)
	case SpawnLevelStatProportional:
		return int(src.Vector.Primary(def.SpawnStatName))
	default:
		return src.Level
	}
}

func (d *Dispatcher) dispatchTransform(def *Definition, src *stats.Block, ctx ActivationContext) {
	d.emit(Emission{
		EmKind:                    EmitTransform,
		SourceBlock:               src,
		PowerID:                   def.ID,
		TransformCreatureID:       def.TransformCreatureID,
		TransformDuration:         def.TransformDuration,
		TransformKeepEquipment:    def.KeepEquipment,
		TransformManual:           def.ManualUntransform,
		TransformUntransformOnHit: def.UntransformOnHit,
	})
}
