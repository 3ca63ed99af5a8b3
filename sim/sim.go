// Package sim implements the fixed-order tick scheduler (spec.md §4.9,
// C12): one frame advances camera, map tile animations, map-event
// statblock logic, event cooldowns, avatar/creature AI, the power
// dispatcher drain, entity spawn handling, hazard logic, and loot logic,
// in that exact order; render-list collection is left to the caller. A
// pending teleport pauses the AI-through-loot steps for one frame while
// the hero is moved to the destination (spec.md §4.9's last paragraph);
// the destination map itself is not loaded here. Single-threaded and
// cooperative per spec.md §5: no step suspends mid-tick.
package sim

import (
	"embercore/ai"
	"embercore/anim"
	"embercore/camera"
	"embercore/combatlog"
	"embercore/entity"
	"embercore/grid"
	"embercore/hazard"
	"embercore/loot"
	"embercore/mapevent"
	"embercore/power"
	"embercore/simrand"
	"embercore/stats"
)

// TileAnimator advances map-layer tile animations (water, lava, torches)
// — step 2 of the scheduler. Kept distinct from embercore/anim.State's
// per-entity use, but built on the same Definition/State so authored
// tile animations reuse the Bresenham frame-distribution logic.
type TileAnimator struct {
	States []*anim.State
}

func (t *TileAnimator) Advance() {
	for _, s := range t.States {
		s.Advance()
	}
}

// Simulation bundles the whole per-tick graph. Each field is the live
// manager for its component; sim only sequences calls between them, it
// owns no combat logic of its own.
type Simulation struct {
	Rng *simrand.Source

	Grid      *grid.Grid
	Camera    *camera.Camera
	TileAnims TileAnimator

	Entities *entity.Manager
	Powers   *power.Dispatcher
	Hazards  *hazard.Manager
	Loot     *loot.Manager
	Events   *mapevent.Manager
	Log      *combatlog.Queue

	Hero      *stats.Block
	HeroAgent *ai.Agent
	Agents    []*ai.Agent

	AITuning  ai.Tuning
	HPRegenPerTick float64
	MPRegenPerTick float64

	PendingTeleport *mapevent.TeleportRequest

	heroDefeatLogged bool

	scriptLoader func(file string) *mapevent.Event
	heroInput    func(hero *stats.Block) // avatar input application, step 5
}

// SetScriptLoader wires the SCRIPT step's sibling-file resolver.
func (s *Simulation) SetScriptLoader(f func(file string) *mapevent.Event) {
	s.scriptLoader = f
}

// SetHeroInput wires the avatar-input hook applied before creature AI
// (spec.md §4.9 step 5 "Avatar AI / input").
func (s *Simulation) SetHeroInput(f func(hero *stats.Block)) {
	s.heroInput = f
}

// activatorFromDispatcher adapts power.Dispatcher.Activate (which wants
// an ActivationContext) to the narrow func signatures embercore/ai and
// embercore/hazard consume, so neither package needs to import
// power.ActivationContext directly.
func (s *Simulation) activatorFromDispatcher(powerID string, src, target *stats.Block, hasTarget bool) bool {
	return s.Powers.Activate(powerID, power.ActivationContext{
		Source:        src,
		Target:        target,
		HasTarget:     hasTarget,
		CurrentSpawns: s.Entities.CurrentSpawns,
	})
}

func (s *Simulation) activatorForHazard(powerID string, src *stats.Block, at grid.Point) bool {
	caster := *src
	caster.Pos = at
	return s.activatorFromDispatcher(powerID, &caster, nil, false)
}

// Tick runs exactly one frame in the order spec.md §4.9 requires.
func (s *Simulation) Tick() {
	// Keep the dispatcher's wall-stop check current with the live map
	// (a teleport/map swap can replace s.Grid between ticks).
	if s.Powers != nil {
		s.Powers.SetGrid(s.Grid)
		s.Powers.Log = s.Log
	}
	if s.Hazards != nil {
		s.Hazards.Log = s.Log
		s.Hazards.UntransformHook = func(b *stats.Block) {
			if s.Entities != nil {
				s.Entities.Untransform(b, s.tileIsValid, s.Log)
			}
		}
	}

	// 1. Camera.
	if s.Camera != nil && s.Hero != nil {
		s.Camera.Follow(s.Hero.Pos)
		s.Camera.TickShake(s.Rng)
	}

	// 2. Map tile animations.
	s.TileAnims.Advance()

	// 3. Map event statblocks' logic() — cooldown-bearing
	// power-emitting events tick their cached caster's Stat Block.
	if s.Events != nil {
		for _, e := range s.Events.Events {
			if e.PowerCaster != nil {
				e.PowerCaster.TickLogic(0, 0)
			}
		}
	}

	// 4. Event cooldown decrement.
	if s.Events != nil {
		s.Events.DecrementCooldowns()
	}

	if s.PendingTeleport != nil {
		s.applyTeleport()
		return
	}

	// 5. Avatar AI / input.
	if s.heroInput != nil && s.Hero != nil {
		s.heroInput(s.Hero)
	}
	if s.HeroAgent != nil {
		ai.Tick(s.HeroAgent, s.envFor(s.HeroAgent))
	}

	// 6. Creature AI (Entity Manager).
	for _, a := range s.Agents {
		ai.Tick(a, s.envFor(a))
	}
	if s.Entities != nil {
		s.Entities.TickTransforms(s.tileIsValid, s.Log)
	}

	// 7. Power dispatcher drains (into Hazard Manager and Entity
	// Manager spawn queue).
	emissions := s.Powers.Drain()
	var spawnEmissions, transformEmissions []power.Emission
	for _, e := range emissions {
		switch e.EmKind {
		case power.EmitSpawnEnemy:
			spawnEmissions = append(spawnEmissions, e)
		case power.EmitTransform:
			transformEmissions = append(transformEmissions, e)
		}
	}
	if s.Hazards != nil {
		s.Hazards.IngestEmissions(emissions)
	}

	// 8. Entity Manager handleSpawn().
	if s.Entities != nil {
		s.Entities.HandleSpawn(spawnEmissions)
		s.Entities.HandleTransform(transformEmissions)
	}

	// 9. Hazard Manager logic().
	if s.Hazards != nil {
		s.Hazards.Logic(s.activatorForHazard, s.liveDefenders())
	}

	if s.Hero != nil && s.Hero.TriggeredDeath && !s.heroDefeatLogged {
		s.heroDefeatLogged = true
		if s.Log != nil {
			s.Log.PushNarrative(combatlog.KindUnique, "You are defeated.")
		}
	}

	// 10. Loot Manager logic() (flying -> grounded, pickup sound).
	if s.Loot != nil {
		s.Loot.Logic(nil)
	}

	// 11. Render-list collection is left to the caller (it owns the
	// renderer and fog-of-war view); embercore/entity.CollectRenderables
	// and embercore/loot's Drops slice are the inputs.
}

// tileIsValid answers entity.Manager's Untransform/TickTransforms "is
// this still a standable tile" check (spec.md §8 scenario #5's "if the
// hero tile is invalid (e.g. water)").
func (s *Simulation) tileIsValid(p grid.Point) bool {
	if s.Grid == nil {
		return true
	}
	return s.Grid.IsValidPosition(p.X, p.Y, grid.Normal, grid.CollideNone)
}

func (s *Simulation) liveDefenders() []*stats.Block {
	if s.Entities == nil {
		return nil
	}
	return s.Entities.All()
}

func (s *Simulation) envFor(a *ai.Agent) ai.Environment {
	return ai.Environment{
		Grid:           s.Grid,
		Hero:           s.Hero,
		Queries:        s.Entities,
		Activate:       s.activatorFromDispatcher,
		Rng:            s.Rng,
		Tuning:         s.AITuning,
		HPRegenPerTick: s.HPRegenPerTick,
		MPRegenPerTick: s.MPRegenPerTick,
	}
}

// applyTeleport consumes the pending teleport by moving the hero to its
// DestPos; Tick then skips steps 5-10 for this frame. DestMapID is not
// acted on: no map is loaded or swapped here.
func (s *Simulation) applyTeleport() {
	teleport := *s.PendingTeleport
	s.PendingTeleport = nil
	if s.Hero != nil {
		s.Hero.Pos = teleport.DestPos
	}
}

// QueueTeleport arms the one-frame teleport pause. Callers (map-event
// INTERMAP steps via Simulation.DrainEventTeleports, or direct map
// transitions) funnel through here so Tick's ordering invariant holds.
func (s *Simulation) QueueTeleport(req mapevent.TeleportRequest) {
	s.PendingTeleport = &req
}

// ExecuteEvent runs e through the Event manager using the script loader
// wired by SetScriptLoader, then queues any teleport it produced.
func (s *Simulation) ExecuteEvent(e *mapevent.Event, hero mapevent.HeroContext) bool {
	if s.Events == nil {
		return false
	}
	ran := s.Events.ExecuteEvent(e, hero, s.scriptLoader)
	s.DrainEventTeleports()
	return ran
}

// DrainEventTeleports pulls any teleport the Event manager queued this
// tick and arms it for next Tick's pause.
func (s *Simulation) DrainEventTeleports() {
	if s.Events == nil {
		return
	}
	teleports := s.Events.DrainTeleports()
	if len(teleports) > 0 {
		s.QueueTeleport(teleports[0])
	}
}
