// Package combatlog implements the log message queue spec.md §6.2
// requires as a produced-by-the-core interface: floating combat text
// (give-damage, take-damage, crit, miss, buff, immune) plus narrative
// messages, both typed normal/unique (spec.md §6.2, §7). Grounded on the
// original engine's CombatText class (addString/addInt + a displaytype
// enum), generalized from a render-owned widget list to a plain drained
// queue so embercore/hazard and embercore/sim can push without knowing
// how the caller renders or dismisses entries.
package combatlog

import "embercore/grid"

// Kind is spec.md §6.2's "type ∈ {normal, unique}" — unique messages are
// meant to interrupt/stand out (e.g. "You are defeated.") rather than
// stack with other floating text.
type Kind int

const (
	KindNormal Kind = iota
	KindUnique
)

// Category tags a combat-text entry (spec.md §4.4 step 12: "miss,
// take-damage, crit, give-damage, buff"), plus immune for a rejected hit
// (SPEC_FULL.md's supplemented category).
type Category int

const (
	CategoryGiveDamage Category = iota
	CategoryTakeDamage
	CategoryCrit
	CategoryMiss
	CategoryBuff
	CategoryImmune
)

// Entry is one queued message. Pos and Value are set for floating
// combat text; narrative entries leave Pos at its zero value and Value
// at 0.
type Entry struct {
	Kind     Kind
	Category Category
	Text     string
	Pos      grid.Point
	Value    float64
}

// Queue is a FIFO the core appends to and a caller (renderer/UI) drains
// once per frame. Not safe for concurrent use, matching the rest of
// this module's single-threaded tick model (spec.md §5).
type Queue struct {
	entries []Entry
}

// PushCombatText records floating damage/miss/crit/buff/immune text at
// pos.
func (q *Queue) PushCombatText(cat Category, pos grid.Point, value float64, text string) {
	q.entries = append(q.entries, Entry{Category: cat, Pos: pos, Value: value, Text: text})
}

// PushNarrative records a user-visible message with no associated world
// position (spec.md §7's "You are defeated.", "Transformation expired.").
func (q *Queue) PushNarrative(kind Kind, text string) {
	q.entries = append(q.entries, Entry{Kind: kind, Text: text})
}

// Drain returns and clears the queued entries.
func (q *Queue) Drain() []Entry {
	out := q.entries
	q.entries = nil
	return out
}
