// Package loot implements the Loot Manager (spec.md §4.7, C9): drop
// table rolls, flying-loot animation, pickup hit-testing, autopickup,
// and currency-find scaling. Structured after embercore/hazard's
// Manager (queue-drain-then-logic shape) since floor loot is, like a
// hazard, a short-lived simulation object with its own per-tick state
// machine; rolls are drawn from embercore/simrand so drop results stay
// part of the single deterministic draw order (spec.md §9 "do not
// consume random numbers in draw-order code").
package loot

import (
	"embercore/grid"
	"embercore/simrand"
)

// EntryKind distinguishes the two drop-table shapes spec.md §4.7 names.
type EntryKind int

const (
	// EntryFixed always drops; rolled count is uniform(min, max).
	EntryFixed EntryKind = iota
	// EntryWeighted drops at most once per group, gated by a
	// chance-vs-threshold roll.
	EntryWeighted
)

// Entry is one row of a drop table.
type Entry struct {
	ItemID string
	Kind   EntryKind
	Chance float64 // percent, weighted entries only
	Min    int
	Max    int
}

// Table is a named group of drop entries consulted together on one
// death (spec.md §4.7 "at most one stack per group" for weighted rows).
type Table struct {
	Entries []Entry
}

// Stack is a resolved drop: an item id and rolled quantity.
type Stack struct {
	ItemID   string
	Quantity int
}

// State of a single flying-loot drop is spec.md §3's Loot Drop type:
// position, flying-timer, grounded flag, sound-played flag, and the
// dropped-by-hero flag that suppresses autopickup.
type Drop struct {
	Stack
	IsCurrency    bool
	Pos           grid.Point
	FlyTimer      int
	Grounded      bool
	SoundPlayed   bool
	DroppedByHero bool
}

// SoundPlayer plays the grounding/pickup sound effect.
type SoundPlayer func(name string)

// Manager owns every live floor Drop.
type Manager struct {
	Drops []Drop

	FlyTicks       int // ticks a drop spends airborne before Grounded
	GroundSound    string
	AutopickupRange float64
	InteractRange   float64
}

func NewManager() *Manager {
	return &Manager{FlyTicks: 6, GroundSound: "drop_ground", AutopickupRange: 1.5, InteractRange: 1.0}
}

// RollTable resolves a Table against a defender's ItemFind%, per spec.md
// §4.7: fixed entries always drop a uniform(min,max) count. Weighted
// entries each roll a uniform value in [0,100) independently against an
// effective chance scaled by threshold = ItemFind+100 (item-find raises
// every candidate's odds proportionally); among candidates that beat
// their roll, the single stack for the group goes to the lowest-Chance
// (rarest) candidate, ties broken by a uniform pick.
func RollTable(t Table, itemFindPercent float64, rng *simrand.Source) []Stack {
	out := make([]Stack, 0, len(t.Entries))
	threshold := itemFindPercent + 100

	var candidates []Entry
	for _, e := range t.Entries {
		if e.Kind == EntryFixed {
			out = append(out, Stack{ItemID: e.ItemID, Quantity: rng.Between(e.Min, e.Max)})
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return out
	}

	var cleared []Entry
	for _, e := range candidates {
		effective := e.Chance * threshold / 100
		if rng.FloatBetween(0, 100) < effective {
			cleared = append(cleared, e)
		}
	}
	if len(cleared) == 0 {
		return out
	}

	lowest := cleared[0].Chance
	for _, e := range cleared {
		if e.Chance < lowest {
			lowest = e.Chance
		}
	}
	var tied []Entry
	for _, e := range cleared {
		if e.Chance == lowest {
			tied = append(tied, e)
		}
	}
	chosen := tied[rng.Pick(len(tied))]
	out = append(out, Stack{ItemID: chosen.ItemID, Quantity: rng.Between(chosen.Min, chosen.Max)})
	return out
}

// ScaleCurrency applies defender.CurrencyFind% to a rolled currency
// quantity (spec.md §4.7 "currency drops are scaled by
// defender.CurrencyFind%").
func ScaleCurrency(base int, currencyFindPercent float64) int {
	scaled := float64(base) * (1 + currencyFindPercent/100)
	if scaled < 0 {
		return 0
	}
	return int(scaled)
}

// Spawn drops one Stack at pos into the manager's live Drop list.
func (m *Manager) Spawn(s Stack, pos grid.Point, isCurrency, droppedByHero bool) {
	m.Drops = append(m.Drops, Drop{
		Stack:         s,
		IsCurrency:    isCurrency,
		Pos:           pos,
		FlyTimer:      m.FlyTicks,
		DroppedByHero: droppedByHero,
	})
}

// Logic advances flying-loot animations to the grounded state and plays
// the ground sound exactly once per drop (spec.md §4.9 step 10 "Loot
// Manager logic(): flying -> grounded, pickup sound").
func (m *Manager) Logic(sound SoundPlayer) {
	for i := range m.Drops {
		d := &m.Drops[i]
		if d.Grounded {
			continue
		}
		if d.FlyTimer > 0 {
			d.FlyTimer--
			continue
		}
		d.Grounded = true
		if !d.SoundPlayed {
			if sound != nil {
				sound(m.GroundSound)
			}
			d.SoundPlayed = true
		}
	}
}

// HitTest resolves a mouse click rectangle against grounded drops
// (spec.md §4.7 "pickup hit-tests either a mouse click rectangle...").
func (m *Manager) HitTest(mouse grid.Point, project func(grid.Point) (x, y, w, h float64)) (int, bool) {
	for i, d := range m.Drops {
		if !d.Grounded {
			continue
		}
		x, y, w, h := project(d.Pos)
		if mouse.X >= x && mouse.X <= x+w && mouse.Y >= y && mouse.Y <= y+h {
			return i, true
		}
	}
	return -1, false
}

// NearestInRange finds the closest grounded drop within InteractRange of
// pos (spec.md §4.7 "'nearest within INTERACT_RANGE' by keyboard").
func (m *Manager) NearestInRange(pos grid.Point) (int, bool) {
	best := -1
	bestDist := m.InteractRange
	for i, d := range m.Drops {
		if !d.Grounded {
			continue
		}
		dist := pos.Distance(d.Pos)
		if dist > m.InteractRange {
			continue
		}
		if best == -1 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best, best != -1
}

// Autopickup absorbs grounded, non-hero-dropped currency within
// AutopickupRange of pos into an inventory callback, removing it from
// the floor (spec.md §4.7 "autopickup scans a small radius for
// non-hero-dropped currency").
func (m *Manager) Autopickup(pos grid.Point, absorb func(Stack)) {
	kept := m.Drops[:0]
	for _, d := range m.Drops {
		if d.Grounded && d.IsCurrency && !d.DroppedByHero && pos.Distance(d.Pos) <= m.AutopickupRange {
			if absorb != nil {
				absorb(d.Stack)
			}
			continue
		}
		kept = append(kept, d)
	}
	m.Drops = kept
}

// Take removes the drop at index i, returning its Stack (manual pickup
// via HitTest or NearestInRange).
func (m *Manager) Take(i int) (Stack, bool) {
	if i < 0 || i >= len(m.Drops) {
		return Stack{}, false
	}
	s := m.Drops[i].Stack
	m.Drops = append(m.Drops[:i], m.Drops[i+1:]...)
	return s, true
}
