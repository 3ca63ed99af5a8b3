// Package mapevent implements the Event manager and Campaign Status
// store (spec.md §4.7, C10). Events are data loaded from map files and
// executed through an in-order effect list; Campaign Status is a simple
// interned-string bool store consulted by both events and Stat Block
// spawn requirement gates (embercore/entity's requires_status). Shaped
// after embercore/hazard.Manager's queue-then-act loop and
// embercore/power's Requirements-gate-then-Activate pipeline, since an
// Event is, structurally, a power activation generalized over several
// non-power effect kinds.
package mapevent

import (
	"embercore/grid"
	"embercore/loot"
	"embercore/power"
	"embercore/simrand"
	"embercore/stats"

	"github.com/sirupsen/logrus"
)

// StatusStore is the Campaign Status store (spec.md §4.7 "simple
// interned-string -> bool store").
type StatusStore struct {
	statuses map[string]bool
}

func NewStatusStore() *StatusStore {
	return &StatusStore{statuses: make(map[string]bool)}
}

func (s *StatusStore) CheckStatus(name string) bool {
	return s.statuses[name]
}

func (s *StatusStore) SetStatus(name string) {
	s.statuses[name] = true
}

func (s *StatusStore) UnsetStatus(name string) {
	delete(s.statuses, name)
}

// Rect is an axis-aligned reach-rectangle in map units.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(p grid.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Requirements mirrors an Event Component's requires_* fields (spec.md
// §4.7 "checks per-component requirement gates: status, level, currency,
// item, class, hero inside reach-rect").
type Requirements struct {
	RequiresStatus    string
	RequiresNotStatus string
	MinLevel          int
	MinCurrency       int
	RequiresItem      string
	RequiresClass     string
	ReachRect         *Rect
}

// HeroContext is the minimal view of hero state Requirements checks
// against; kept as plain data rather than an avatar.PlayerData import so
// mapevent never depends on the avatar package.
type HeroContext struct {
	Pos      grid.Point
	Level    int
	Currency int
	Class    string
	HasItem  func(id string) bool
}

// CheckAllRequirements walks an event's requires_* fields (spec.md §4.7
// checkAllRequirements).
func (s *StatusStore) CheckAllRequirements(r Requirements, hero HeroContext) bool {
	if r.RequiresStatus != "" && !s.CheckStatus(r.RequiresStatus) {
		return false
	}
	if r.RequiresNotStatus != "" && s.CheckStatus(r.RequiresNotStatus) {
		return false
	}
	if r.MinLevel > 0 && hero.Level < r.MinLevel {
		return false
	}
	if r.MinCurrency > 0 && hero.Currency < r.MinCurrency {
		return false
	}
	if r.RequiresItem != "" && (hero.HasItem == nil || !hero.HasItem(r.RequiresItem)) {
		return false
	}
	if r.RequiresClass != "" && hero.Class != r.RequiresClass {
		return false
	}
	if r.ReachRect != nil && !r.ReachRect.Contains(hero.Pos) {
		return false
	}
	return true
}

// StepKind is one entry of an Event's ordered effect list (spec.md
// §4.7: "MAPMOD... POWER... INTERMAP... LOOT/REWARD_*...
// SET_STATUS/UNSET_STATUS... SPAWN... SCRIPT").
type StepKind int

const (
	StepMapMod StepKind = iota
	StepPower
	StepInterMap
	StepLoot
	StepRewardCurrency
	StepRewardItem
	StepSetStatus
	StepUnsetStatus
	StepSpawn
	StepScript
)

// Step is one tagged effect-list entry; only the fields relevant to Kind
// are populated by the loader.
type Step struct {
	Kind StepKind

	// StepMapMod
	TileX, TileY int
	Cell         grid.CellType

	// StepPower
	PowerID string

	// StepInterMap
	DestMapID string
	DestPos   grid.Point

	// StepLoot / StepRewardItem
	Table loot.Table

	// StepRewardCurrency
	CurrencyAmount int

	// StepSetStatus / StepUnsetStatus
	StatusName string

	// StepSpawn
	SpawnCreatureID string
	SpawnPos        grid.Point
	SpawnLevel      int

	// StepScript
	ScriptFile string
}

// Event mirrors the spec's Event/Event Component pair: static
// requirement/cooldown data plus an ordered Steps list, and — for
// events that include a POWER step — one cached Stat Block positioned
// at the event location used as that power's caster (spec.md §4.7
// "a cached per-event Stat Block... whose position is the event
// location").
type Event struct {
	ID               string
	Pos              grid.Point
	Requirements     Requirements
	Cooldown         int
	CooldownLeft     int
	KeepAfterTrigger bool
	Steps            []Step

	PowerCaster *stats.Block
}

// TeleportRequest is queued by an INTERMAP step for the sim scheduler to
// apply (spec.md §4.9 "teleport-pause handling").
type TeleportRequest struct {
	DestMapID string
	DestPos   grid.Point
}

// Manager owns the loaded event list, Campaign Status, and pending
// teleport queue.
type Manager struct {
	Events []*Event
	Status *StatusStore

	TeleportQueue []TeleportRequest

	Grid       *grid.Grid
	Dispatcher *power.Dispatcher
	Rng        *simrand.Source

	rewardCurrency func(amount int)
	rewardLoot     func(stacks []loot.Stack, pos grid.Point)
	spawnQueue     []SpawnRequest
}

// SpawnRequest is queued by a SPAWN step for embercore/entity to drain
// (spec.md §4.7 "SPAWN emits into the power dispatcher's queue" — routed
// here as plain data so mapevent never imports entity).
type SpawnRequest struct {
	CreatureID string
	Pos        grid.Point
	Level      int
}

func NewManager(g *grid.Grid, dispatcher *power.Dispatcher, rng *simrand.Source) *Manager {
	return &Manager{Status: NewStatusStore(), Grid: g, Dispatcher: dispatcher, Rng: rng}
}

// SetRewardHooks wires the currency/loot reward callbacks (kept as
// injected closures so mapevent never imports avatar or loot.Manager
// concretely).
func (m *Manager) SetRewardHooks(rewardCurrency func(int), rewardLoot func([]loot.Stack, grid.Point)) {
	m.rewardCurrency = rewardCurrency
	m.rewardLoot = rewardLoot
}

// DrainSpawnQueue returns and clears queued SPAWN steps.
func (m *Manager) DrainSpawnQueue() []SpawnRequest {
	out := m.spawnQueue
	m.spawnQueue = nil
	return out
}

// DecrementCooldowns is spec.md §4.9 step 4 "event cooldown decrement".
func (m *Manager) DecrementCooldowns() {
	for _, e := range m.Events {
		if e.CooldownLeft > 0 {
			e.CooldownLeft--
		}
	}
}

// ExecuteEvent runs e's requirement gate and cooldown check, then walks
// its Steps in order, discarding e afterward unless KeepAfterTrigger
// (spec.md §4.7 executeEvent). scriptLoader resolves a sibling-file
// script into an ephemeral Event for the SCRIPT step's recursive
// execution.
func (m *Manager) ExecuteEvent(e *Event, hero HeroContext, scriptLoader func(file string) *Event) bool {
	if e.CooldownLeft > 0 {
		return false
	}
	if !m.Status.CheckAllRequirements(e.Requirements, hero) {
		return false
	}

	for _, step := range e.Steps {
		m.runStep(e, step, hero, scriptLoader)
	}

	e.CooldownLeft = e.Cooldown
	if !e.KeepAfterTrigger {
		m.discard(e)
	}
	return true
}

func (m *Manager) runStep(e *Event, step Step, hero HeroContext, scriptLoader func(file string) *Event) {
	switch step.Kind {
	case StepMapMod:
		if m.Grid != nil {
			m.Grid.SetStatic(step.TileX, step.TileY, step.Cell)
		}
	case StepPower:
		if m.Dispatcher != nil && e.PowerCaster != nil {
			e.PowerCaster.Pos = e.Pos
			m.Dispatcher.Activate(step.PowerID, power.ActivationContext{Source: e.PowerCaster})
		}
	case StepInterMap:
		m.TeleportQueue = append(m.TeleportQueue, TeleportRequest{DestMapID: step.DestMapID, DestPos: step.DestPos})
	case StepLoot:
		if m.rewardLoot != nil && m.Rng != nil {
			stacks := loot.RollTable(step.Table, 0, m.Rng)
			m.rewardLoot(stacks, e.Pos)
		}
	case StepRewardItem:
		if m.rewardLoot != nil {
			m.rewardLoot([]loot.Stack{{ItemID: step.Table.Entries[0].ItemID, Quantity: 1}}, e.Pos)
		}
	case StepRewardCurrency:
		if m.rewardCurrency != nil {
			m.rewardCurrency(step.CurrencyAmount)
		}
	case StepSetStatus:
		m.Status.SetStatus(step.StatusName)
	case StepUnsetStatus:
		m.Status.UnsetStatus(step.StatusName)
	case StepSpawn:
		m.spawnQueue = append(m.spawnQueue, SpawnRequest{CreatureID: step.SpawnCreatureID, Pos: step.SpawnPos, Level: step.SpawnLevel})
	case StepScript:
		if scriptLoader != nil {
			if child := scriptLoader(step.ScriptFile); child != nil {
				m.ExecuteEvent(child, hero, scriptLoader)
			} else {
				logrus.WithField("file", step.ScriptFile).Warn("mapevent: script step could not resolve sibling event")
			}
		}
	}
}

func (m *Manager) discard(e *Event) {
	kept := m.Events[:0]
	for _, ev := range m.Events {
		if ev != e {
			kept = append(kept, ev)
		}
	}
	m.Events = kept
}

// DrainTeleports returns and clears pending teleport requests for the
// sim scheduler's teleport-pause handling (spec.md §4.9).
func (m *Manager) DrainTeleports() []TeleportRequest {
	out := m.TeleportQueue
	m.TeleportQueue = nil
	return out
}
