package sim

import (
	"testing"

	"embercore/ai"
	"embercore/camera"
	"embercore/entity"
	"embercore/grid"
	"embercore/hazard"
	"embercore/loot"
	"embercore/mapevent"
	"embercore/power"
	"embercore/simrand"
	"embercore/stats"

	"github.com/stretchr/testify/assert"
)

func testLayout() *stats.Layout {
	return stats.NewLayout([]string{"Melee"}, []string{"Fire"}, []string{"Physical"})
}

func newTestSimulation() *Simulation {
	g := grid.New(20, 20)
	rng := simrand.New(7)
	dispatcher := power.NewDispatcher(rng)
	hero := stats.NewBlock(testLayout(), 1)
	hero.Identity.IsHero = true
	hero.Vector.Set(stats.HpMax, 100)
	hero.Vector.Set(stats.Hp, 100)

	return &Simulation{
		Rng:      rng,
		Grid:     g,
		Camera:   camera.New(800, 600, 8),
		Entities: entity.NewManager(),
		Powers:   dispatcher,
		Hazards:  hazard.NewManager(g, dispatcher, rng),
		Loot:     loot.NewManager(),
		Events:   mapevent.NewManager(g, dispatcher, rng),
		Hero:     hero,
		AITuning: ai.DefaultTuning(),
	}
}

func TestTickAdvancesCameraTowardHero(t *testing.T) {
	s := newTestSimulation()
	s.Hero.Pos = grid.Point{X: 50, Y: 0}

	s.Tick()

	assert.Greater(t, s.Camera.Position[0], 0.0)
}

func TestTickDecrementsEventCooldowns(t *testing.T) {
	s := newTestSimulation()
	e := &mapevent.Event{ID: "door", CooldownLeft: 2, KeepAfterTrigger: true}
	s.Events.Events = []*mapevent.Event{e}

	s.Tick()

	assert.Equal(t, 1, e.CooldownLeft)
}

func TestTickRunsCreatureAgents(t *testing.T) {
	s := newTestSimulation()
	b := stats.NewBlock(testLayout(), 1)
	b.Vector.Set(stats.HpMax, 30)
	b.Vector.Set(stats.Hp, 30)
	b.CorpseTimer = 4
	b.SetHP(0)
	agent := &ai.Agent{Block: b}
	s.Agents = []*ai.Agent{agent}

	s.Tick()

	assert.Equal(t, 3, b.CorpseTimer)
}

func TestPendingTeleportSkipsAIStepsForOneFrame(t *testing.T) {
	s := newTestSimulation()
	b := stats.NewBlock(testLayout(), 1)
	b.CorpseTimer = 4
	b.SetHP(0)
	agent := &ai.Agent{Block: b}
	s.Agents = []*ai.Agent{agent}
	s.PendingTeleport = &mapevent.TeleportRequest{DestMapID: "cave", DestPos: grid.Point{X: 3, Y: 3}}

	s.Tick()

	assert.Equal(t, 4, b.CorpseTimer) // AI step 6 never ran this frame
	assert.Equal(t, grid.Point{X: 3, Y: 3}, s.Hero.Pos)
	assert.Nil(t, s.PendingTeleport)
}

func TestTickDrainsSpawnEmissionsIntoEntityManager(t *testing.T) {
	s := newTestSimulation()
	s.Entities.Prototypes["imp"] = &entity.Prototype{
		CreatureID: "imp",
		Layout:     testLayout(),
		Build: func(layout *stats.Layout) *stats.Block {
			return stats.NewBlock(layout, 1)
		},
	}
	src := stats.NewBlock(testLayout(), 1)
	s.Powers.Register(&power.Definition{ID: "summon_imp", Kind: power.KindSpawn, TransformCreatureID: "imp"})
	s.Powers.Activate("summon_imp", power.ActivationContext{Source: src})

	s.Tick()

	assert.Len(t, s.Entities.All(), 1)
}
