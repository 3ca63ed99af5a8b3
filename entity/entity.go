// Package entity implements the Entity Manager (spec.md §4.6, C8): the
// live Stat Block table, creature prototypes, spawn/new-map lifecycle,
// nearest-entity queries, and render-list collection. Grounded on the
// teacher's common/ecsutil.go EntityManager wrapper around
// github.com/bytearena/ecs, generalized from raw ecs.EntityID lookups to
// the index+generation Handle spec.md §9 calls for, and on
// github.com/norendren/go-fov for the fog-of-war filter on render
// collection (kept separate from embercore/grid's LineOfSight, which the
// simulation itself uses for targeting/power checks).
package entity

import (
	"embercore/anim"
	"embercore/combatlog"
	"embercore/grid"
	"embercore/power"
	"embercore/stats"

	"github.com/bytearena/ecs"
	fov "github.com/norendren/go-fov/fov"
)

// Prototype is a deep-loaded creature template consulted on spawn
// (spec.md §4.6 "a vector of prototypes... one deep-loaded creature per
// unique creature type").
type Prototype struct {
	CreatureID string
	Layout     *stats.Layout
	Build      func(layout *stats.Layout) *stats.Block
}

type slot struct {
	block      *stats.Block
	generation uint32
	ent        *ecs.Entity
	alive      bool
}

// Manager owns the live Stat Block table (spec.md §4.6).
type Manager struct {
	world      *ecs.Manager
	blockTag   ecs.Tag
	blockComp  *ecs.Component

	slots    []slot
	freeList []int

	Prototypes map[string]*Prototype

	SpawnQueue []SpawnedEnemy

	spawnCounts map[string]int // concurrent spawns alive per source power, for requires_spawns
}

// SpawnedEnemy is one queued Map-Enemy descriptor (spec.md §4.6
// handleNewMap / handleSpawn).
type SpawnedEnemy struct {
	CreatureID string
	Pos        grid.Point
	Level      int
	RequiresStatus    string
	RequiresNotStatus string
	SourcePowerID     string
	Summoner          stats.Handle
}

func NewManager() *Manager {
	m := &Manager{
		world:       ecs.NewManager(),
		Prototypes:  make(map[string]*Prototype),
		spawnCounts: make(map[string]int),
	}
	m.blockComp = m.world.NewComponent()
	m.blockTag = ecs.BuildTag(m.blockComp)
	return m
}

// Register adds b to the manager and returns its live Handle.
func (m *Manager) Register(b *stats.Block) stats.Handle {
	idx := -1
	if len(m.freeList) > 0 {
		idx = m.freeList[len(m.freeList)-1]
		m.freeList = m.freeList[:len(m.freeList)-1]
	}
	ent := m.world.NewEntity()
	ent.AddComponent(m.blockComp, b)
	if idx == -1 {
		m.slots = append(m.slots, slot{block: b, generation: 1, ent: ent, alive: true})
		idx = len(m.slots) - 1
	} else {
		m.slots[idx] = slot{block: b, generation: m.slots[idx].generation + 1, ent: ent, alive: true}
	}
	return stats.Handle{Index: idx, Generation: m.slots[idx].generation, Valid: true}
}

// Get resolves a Handle to its Block, reporting whether it is still live.
func (m *Manager) Get(h stats.Handle) (*stats.Block, bool) {
	if !h.Valid || h.Index < 0 || h.Index >= len(m.slots) {
		return nil, false
	}
	s := m.slots[h.Index]
	if !s.alive || s.generation != h.Generation {
		return nil, false
	}
	return s.block, true
}

// Destroy removes a Block, excising it from its summoner's summon list
// (spec.md §3.4/§8 "destroying a Stat Block excises it from
// summoner.summons").
func (m *Manager) Destroy(h stats.Handle) {
	b, ok := m.Get(h)
	if !ok {
		return
	}
	if b.HasSummoner {
		if summoner, ok := m.Get(b.Summoner); ok {
			excised := summoner.Summons[:0]
			for _, s := range summoner.Summons {
				if s != h {
					excised = append(excised, s)
				}
			}
			summoner.Summons = excised
		}
	}
	m.world.DisposeEntity(m.slots[h.Index].ent)
	m.slots[h.Index].alive = false
	m.slots[h.Index].block = nil
	m.freeList = append(m.freeList, h.Index)
}

// All returns every live Block (order not guaranteed stable across
// Destroy calls).
func (m *Manager) All() []*stats.Block {
	out := make([]*stats.Block, 0, len(m.slots))
	for _, s := range m.slots {
		if s.alive {
			out = append(out, s.block)
		}
	}
	return out
}

// HandleNewMap tears down existing entities except the hero and
// positive-speed allies, which are carried over at their current
// positions (they are not moved next to the hero), then consumes queued
// enemy descriptors (spec.md §4.6 handleNewMap).
func (m *Manager) HandleNewMap(hero *stats.Block, queued []SpawnedEnemy, statusOf func(string) bool) {
	kept := make([]*stats.Block, 0)
	for _, s := range m.slots {
		if !s.alive {
			continue
		}
		if s.block.Identity.IsAlly && s.block.Vector.Get(stats.Speed) > 0 && s.block != hero {
			kept = append(kept, s.block)
		}
	}
	for i := range m.slots {
		if m.slots[i].alive && m.slots[i].block != hero {
			isKept := false
			for _, k := range kept {
				if k == m.slots[i].block {
					isKept = true
					break
				}
			}
			if !isKept {
				m.slots[i].alive = false
				m.slots[i].block = nil
				m.freeList = append(m.freeList, i)
			}
		}
	}
	for _, enemy := range queued {
		if enemy.RequiresStatus != "" && statusOf != nil && !statusOf(enemy.RequiresStatus) {
			continue
		}
		if enemy.RequiresNotStatus != "" && statusOf != nil && statusOf(enemy.RequiresNotStatus) {
			continue
		}
		m.spawnFromPrototype(enemy)
	}
}

func (m *Manager) spawnFromPrototype(e SpawnedEnemy) (*stats.Block, stats.Handle) {
	proto, ok := m.Prototypes[e.CreatureID]
	if !ok {
		return nil, stats.Handle{}
	}
	b := proto.Build(proto.Layout)
	b.Pos = e.Pos
	b.Level = e.Level
	h := m.Register(b)
	return b, h
}

// HandleSpawn drains the power dispatcher's spawn emissions. The level
// comes already resolved on each emission (power resolves it by the
// declared SpawnLevelMode); max HP is not recomputed after the level is
// set (spec.md §4.6 handleSpawn).
func (m *Manager) HandleSpawn(emissions []power.Emission) {
	for _, e := range emissions {
		if e.EmKind != power.EmitSpawnEnemy {
			continue
		}
		spawned := SpawnedEnemy{CreatureID: e.SpawnCreatureID, Pos: e.Pos, Level: e.SpawnLevel, SourcePowerID: e.PowerID}
		b, h := m.spawnFromPrototype(spawned)
		if b == nil {
			continue
		}
		m.spawnCounts[e.PowerID]++
		if e.SourceBlock != nil {
			e.SourceBlock.Summons = append(e.SourceBlock.Summons, h)
			b.Summoner = m.handleOf(e.SourceBlock)
			b.HasSummoner = true
			for _, passive := range e.SourceBlock.PassivePowers {
				b.PassivePowers = append(b.PassivePowers, passive)
			}
		}
	}
}

// HandleTransform drains the power dispatcher's EmitTransform emissions,
// snapshotting the caster's original stats/identity and swapping in the
// target creature's Vector/MovementType/Anim (spec.md §4.3 "Transform",
// §8 scenario #5). A caster already mid-transform is left alone — a
// second Transform power while one is active doesn't stack or restart
// the timer.
func (m *Manager) HandleTransform(emissions []power.Emission) {
	for _, e := range emissions {
		if e.EmKind != power.EmitTransform {
			continue
		}
		src := e.SourceBlock
		if src == nil || src.Transform != nil {
			continue
		}
		proto, ok := m.Prototypes[e.TransformCreatureID]
		if !ok {
			continue
		}
		replacement := proto.Build(proto.Layout)

		src.Transform = &stats.TransformSnapshot{
			CreatureID:        src.Identity.CreatureID,
			Vector:            src.Vector,
			MovementType:      src.MovementType,
			Anim:              src.Anim,
			Tags:              src.Identity.Tags,
			LastValidPos:      src.Pos,
			SourcePowerID:     e.PowerID,
			ManualUntransform: e.TransformManual,
			UntransformOnHit:  e.TransformUntransformOnHit,
		}

		src.Vector = replacement.Vector
		src.MovementType = replacement.MovementType
		src.Anim = replacement.Anim
		src.Identity.CreatureID = e.TransformCreatureID
		if !e.TransformKeepEquipment {
			src.Identity.Tags = nil
		}
		src.TransformTimer = e.TransformDuration
	}
}

// Untransform restores b's pre-transform stats/identity (spec.md §8
// scenario #5 "original stats and equipment flags restored exactly"). If
// validAt reports b's current tile invalid (e.g. it reverted onto water),
// b is moved back to the last position it held while transformed instead.
func (m *Manager) Untransform(b *stats.Block, validAt func(grid.Point) bool, log *combatlog.Queue) {
	snap := b.Transform
	if snap == nil {
		return
	}
	b.Vector = snap.Vector
	b.MovementType = snap.MovementType
	b.Anim = snap.Anim
	b.Identity.CreatureID = snap.CreatureID
	b.Identity.Tags = snap.Tags
	b.Transform = nil
	b.TransformTimer = 0

	if validAt != nil && !validAt(b.Pos) {
		b.Pos = snap.LastValidPos
		if log != nil {
			log.PushNarrative(combatlog.KindUnique, "Transformation expired. You have been moved back to a safe place.")
		}
		return
	}
	if log != nil {
		log.PushNarrative(combatlog.KindUnique, "Transformation expired.")
	}
}

// TickTransforms reverts every live transformed Block whose timer has
// run out, skipping ones flagged manual_untransform (spec.md §3.1
// ManualUntransform: the caster's own untransform power clears those,
// not the timer).
func (m *Manager) TickTransforms(validAt func(grid.Point) bool, log *combatlog.Queue) {
	for _, s := range m.slots {
		if !s.alive || s.block.Transform == nil {
			continue
		}
		if validAt == nil || validAt(s.block.Pos) {
			s.block.Transform.LastValidPos = s.block.Pos
		}
		if s.block.Transform.ManualUntransform {
			continue
		}
		if s.block.TransformTimer <= 0 {
			m.Untransform(s.block, validAt, log)
		}
	}
}

func (m *Manager) handleOf(b *stats.Block) stats.Handle {
	for i, s := range m.slots {
		if s.alive && s.block == b {
			return stats.Handle{Index: i, Generation: s.generation, Valid: true}
		}
	}
	return stats.Handle{}
}

// CurrentSpawns reports how many live spawns trace back to powerID, for
// power.ActivationContext.CurrentSpawns (spec.md §4.3 requires_spawns).
func (m *Manager) CurrentSpawns(powerID string) int {
	return m.spawnCounts[powerID]
}

// NearestHostile implements embercore/ai.EntityQuery (spec.md §4.5 step
// 2 "scan all other entities").
func (m *Manager) NearestHostile(pos grid.Point, sourceIsAllied bool, maxRange float64) (*stats.Block, bool) {
	var best *stats.Block
	bestDist := maxRange
	for _, s := range m.slots {
		if !s.alive || s.block.Dead {
			continue
		}
		candidateIsAllied := s.block.Identity.IsAlly || s.block.Identity.IsHero
		if candidateIsAllied == sourceIsAllied {
			continue
		}
		d := pos.Distance(s.block.Pos)
		if maxRange > 0 && d > maxRange {
			continue
		}
		if best == nil || d < bestDist {
			best = s.block
			bestDist = d
		}
	}
	return best, best != nil
}

// NearestCorpse implements embercore/ai.EntityQuery.
func (m *Manager) NearestCorpse(pos grid.Point, maxRange float64) (*stats.Block, bool) {
	var best *stats.Block
	bestDist := maxRange
	for _, s := range m.slots {
		if !s.alive || !s.block.IsCorpse() {
			continue
		}
		d := pos.Distance(s.block.Pos)
		if maxRange > 0 && d > maxRange {
			continue
		}
		if best == nil || d < bestDist {
			best = s.block
			bestDist = d
		}
	}
	return best, best != nil
}

// EntityFocus implements the mouse-hit test of spec.md §4.6: tests the
// screen rectangle of each live entity (camera-projected) against a
// mouse point, honouring aliveOnly.
func (m *Manager) EntityFocus(mouse grid.Point, project func(grid.Point) (x, y, w, h float64), aliveOnly bool) (*stats.Block, bool) {
	for _, s := range m.slots {
		if !s.alive {
			continue
		}
		if aliveOnly && s.block.Dead {
			continue
		}
		x, y, w, h := project(s.block.Pos)
		if mouse.X >= x && mouse.X <= x+w && mouse.Y >= y && mouse.Y <= y+h {
			return s.block, true
		}
	}
	return nil, false
}

// Renderable is one draw entry produced by CollectRenderables (spec.md
// §4.6 "render collection").
type Renderable struct {
	Block *stats.Block
	Layer string
	Anim  *anim.State
	Pos   grid.Point
}

// CollectRenderables walks live entities, pushing exactly one "body"
// Renderable per entity that fog-of-war does not hide (spec.md §4.6).
// Separate animation layers and effect animations get no entries.
func (m *Manager) CollectRenderables(visibility *fov.View, tileOf func(grid.Point) (int, int)) []Renderable {
	out := make([]Renderable, 0, len(m.slots))
	for _, s := range m.slots {
		if !s.alive {
			continue
		}
		if visibility != nil {
			tx, ty := tileOf(s.block.Pos)
			if !visibility.IsVisible(tx, ty) {
				continue
			}
		}
		out = append(out, Renderable{Block: s.block, Layer: "body", Anim: s.block.Anim, Pos: s.block.Pos})
	}
	return out
}
