// Package stats implements the Stat Block (spec.md §3.1/§3.2, C4): the
// per-entity mutable state everything else in the simulation reads and
// writes. Grounded on the teacher's common/commoncomponents.go Attributes
// struct (fixed numeric fields updated every tick) and common/ecsutil.go's
// EntityManager, generalized from a fixed struct to the configuration-
// sized vector spec.md §3.2 requires (damage types, elements, and primary
// attributes are authored per game, not compiled in).
package stats

// Index enumerates the fixed portion of the stat vector (spec.md §3.2).
// Configuration-driven entries (per-damage-type min/max, per-element
// resist, per-primary-attribute) are appended after StatCount and
// addressed by name through a Layout, not by a compiled index, since
// their count varies per game.
type Index int

const (
	Hp Index = iota
	HpMax
	HpRegen
	HpPercent
	Mp
	MpMax
	MpRegen
	MpPercent
	AbsorbMin
	AbsorbMax
	Accuracy
	Avoidance
	Crit
	HpSteal
	MpSteal
	ReturnDamage
	Reflect
	Poise
	ItemFind
	CurrencyFind
	XpGain
	Speed // movement speed; ally summons with Speed <= 0 don't carry over a map change
	StatCount // sentinel: number of fixed entries above
)

// Layout describes the configuration-driven tail of the stat vector:
// one min/max pair per declared damage type, one resist slot per
// element, and one slot per primary attribute (spec.md §3.2). The
// PrimaryOffset is "StatCount + 2*len(DamageTypes) + len(Elements)" per
// spec.md — the Effect engine uses it to decide whether a magnitude
// routes into bonus, bonus_resist, or bonus_primary.
type Layout struct {
	DamageTypes []string // e.g. "Melee", "Ranged", "Mental"
	Elements    []string // e.g. "Fire", "Ice"
	Primaries   []string // e.g. "Physical", "Mental", "Offense", "Defense"

	damageIndex map[string]int // index into the damage-type slice
	elemIndex   map[string]int
	primIndex   map[string]int
}

// NewLayout builds index lookups for the three configuration-driven
// tables. Call once at load, share the *Layout across all Stat Blocks.
func NewLayout(damageTypes, elements, primaries []string) *Layout {
	l := &Layout{DamageTypes: damageTypes, Elements: elements, Primaries: primaries}
	l.damageIndex = make(map[string]int, len(damageTypes))
	for i, d := range damageTypes {
		l.damageIndex[d] = i
	}
	l.elemIndex = make(map[string]int, len(elements))
	for i, e := range elements {
		l.elemIndex[e] = i
	}
	l.primIndex = make(map[string]int, len(primaries))
	for i, p := range primaries {
		l.primIndex[p] = i
	}
	return l
}

func (l *Layout) Size() int {
	return int(StatCount) + 2*len(l.DamageTypes) + len(l.Elements) + len(l.Primaries)
}

// PrimaryOffset is where primary-attribute bonus slots begin, per
// spec.md §3.2's formula.
func (l *Layout) PrimaryOffset() int {
	return int(StatCount) + 2*len(l.DamageTypes) + len(l.Elements)
}

func (l *Layout) damageMinIdx(damageType string) (int, bool) {
	i, ok := l.damageIndex[damageType]
	if !ok {
		return 0, false
	}
	return int(StatCount) + 2*i, true
}

func (l *Layout) resistIdx(element string) (int, bool) {
	i, ok := l.elemIndex[element]
	if !ok {
		return 0, false
	}
	return int(StatCount) + 2*len(l.DamageTypes) + i, true
}

func (l *Layout) primaryIdx(name string) (int, bool) {
	i, ok := l.primIndex[name]
	if !ok {
		return 0, false
	}
	return l.PrimaryOffset() + i, true
}

// HasPrimary/HasElement/HasDamageType let the effect-routing code in
// Block decide whether a bare stat-name effect tag is actually a
// primary/resist instead, per spec.md §3.3.
func (l *Layout) HasPrimary(name string) bool    { _, ok := l.primIndex[name]; return ok }
func (l *Layout) HasElement(name string) bool    { _, ok := l.elemIndex[name]; return ok }
func (l *Layout) HasDamageType(name string) bool { _, ok := l.damageIndex[name]; return ok }

// Vector is the raw numeric stat storage for one Stat Block.
type Vector struct {
	layout *Layout
	base   []float64 // authored/leveled values
}

func NewVector(layout *Layout) *Vector {
	return &Vector{layout: layout, base: make([]float64, layout.Size())}
}

func (v *Vector) Get(i Index) float64  { return v.base[i] }
func (v *Vector) Set(i Index, val float64) { v.base[i] = val }
func (v *Vector) Add(i Index, delta float64) { v.base[i] += delta }

func (v *Vector) DamageMin(damageType string) float64 {
	idx, ok := v.layout.damageMinIdx(damageType)
	if !ok {
		return 0
	}
	return v.base[idx]
}

func (v *Vector) DamageMax(damageType string) float64 {
	idx, ok := v.layout.damageMinIdx(damageType)
	if !ok {
		return 0
	}
	return v.base[idx+1]
}

func (v *Vector) SetDamageRange(damageType string, min, max float64) {
	idx, ok := v.layout.damageMinIdx(damageType)
	if !ok {
		return
	}
	v.base[idx] = min
	v.base[idx+1] = max
}

func (v *Vector) Resist(element string) float64 {
	idx, ok := v.layout.resistIdx(element)
	if !ok {
		return 0
	}
	return v.base[idx]
}

func (v *Vector) AddResist(element string, delta float64) {
	idx, ok := v.layout.resistIdx(element)
	if !ok {
		return
	}
	v.base[idx] += delta
}

func (v *Vector) Primary(name string) float64 {
	idx, ok := v.layout.primaryIdx(name)
	if !ok {
		return 0
	}
	return v.base[idx]
}

func (v *Vector) AddPrimary(name string, delta float64) {
	idx, ok := v.layout.primaryIdx(name)
	if !ok {
		return
	}
	v.base[idx] += delta
}

func (v *Vector) Layout() *Layout { return v.layout }
