// Package config defines the "engine settings" spec.md §6.1 lists as
// consumed by the core, replacing the teacher's compile-time
// config/config.go constants with a data-driven Settings struct loaded
// through embercore/dataformat. Each concern still maps onto the
// existing tuning structs those packages already own (embercore/hazard's
// CombatTuning, embercore/ai's Tuning) via the To*Tuning bridge methods,
// rather than each package reading file sections for itself.
package config

import (
	"fmt"

	"embercore/ai"
	"embercore/dataformat"
	"embercore/hazard"
)

// XPLevelEntry is one row of the XP table: the XP required to reach
// Level from the previous one.
type XPLevelEntry struct {
	Level int
	XP    int
}

// Settings bundles every engine-configured value spec.md §6.1's
// Configuration bullet names.
type Settings struct {
	MaxFramesPerSec int
	EncounterDist   float64
	InteractRange   float64
	CameraSpeed     float64

	Combat hazard.CombatTuning

	DamageTypes  []string
	Elements     []string
	PrimaryStats []string

	XPTable            []XPLevelEntry
	PartyXPPercent     float64
	LowHPThreshold     float64
	CorpseTimeoutTicks int

	MouseMoveDeadzoneX float64
	MouseMoveDeadzoneY float64
}

// Default mirrors the teacher's compiled-in constants, now the
// data-driven fallback used when no config file overrides a key.
func Default() Settings {
	return Settings{
		MaxFramesPerSec: 60,
		EncounterDist:   12,
		InteractRange:   2,
		CameraSpeed:     8,
		Combat:          hazard.DefaultCombatTuning(),
		DamageTypes:     []string{"Melee", "Ranged", "Mental"},
		Elements:        []string{"Fire", "Ice", "Lightning", "Poison"},
		PrimaryStats:    []string{"Physical", "Mental", "Offense", "Defense"},
		XPTable: []XPLevelEntry{
			{Level: 2, XP: 100},
			{Level: 3, XP: 250},
			{Level: 4, XP: 450},
		},
		PartyXPPercent:     50,
		LowHPThreshold:     25,
		CorpseTimeoutTicks: 300,
		MouseMoveDeadzoneX: 4,
		MouseMoveDeadzoneY: 4,
	}
}

// ToAITuning carries the settings that embercore/ai.Tuning cares about
// into that struct, leaving ai's per-creature fields (those live on the
// Stat Block's CreatureTuning) untouched.
func (s Settings) ToAITuning(base ai.Tuning) ai.Tuning {
	base.EncounterDist = s.EncounterDist
	return base
}

// ToCombatTuning returns the hazard package's clamp struct, already a
// direct field of Settings — kept as a method so callers don't need to
// know the field name changed across a refactor.
func (s Settings) ToCombatTuning() hazard.CombatTuning {
	return s.Combat
}

// Load reads path with embercore/dataformat and overlays any present
// keys onto Default(). Missing keys keep their default; a malformed
// value is skipped the same way, keeping the default, and is not logged.
func Load(path string) (Settings, error) {
	doc, err := dataformat.ParseFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	s := Default()
	section := doc.Section("engine")

	if v, ok := section.Int("max_frames_per_sec"); ok {
		s.MaxFramesPerSec = v
	}
	if v, ok := section.Float("encounter_dist"); ok {
		s.EncounterDist = v
	}
	if v, ok := section.Float("interact_range"); ok {
		s.InteractRange = v
	}
	if v, ok := section.Float("camera_speed"); ok {
		s.CameraSpeed = v
	}
	if v, ok := section.Float("min_absorb"); ok {
		s.Combat.MinAbsorb = v
	}
	if v, ok := section.Float("max_absorb"); ok {
		s.Combat.MaxAbsorb = v
	}
	if v, ok := section.Float("min_resist"); ok {
		s.Combat.MinElementResist = v
	}
	if v, ok := section.Float("max_resist"); ok {
		s.Combat.MaxElementResist = v
	}
	if v, ok := section.Float("min_block"); ok {
		s.Combat.MinAbsorbBlock = v
	}
	if v, ok := section.Float("max_block"); ok {
		s.Combat.MaxAbsorbBlock = v
	}
	if v, ok := section.Float("min_avoidance"); ok {
		s.Combat.MinAvoidance = v
	}
	if v, ok := section.Float("max_avoidance"); ok {
		s.Combat.MaxAvoidance = v
	}
	if vals, ok := section.List("damage_types"); ok {
		s.DamageTypes = vals
	}
	if vals, ok := section.List("elements"); ok {
		s.Elements = vals
	}
	if vals, ok := section.List("primary_stats"); ok {
		s.PrimaryStats = vals
	}
	if v, ok := section.Float("party_xp_percent"); ok {
		s.PartyXPPercent = v
	}
	if v, ok := section.Float("low_hp_threshold"); ok {
		s.LowHPThreshold = v
	}
	if v, ok := section.Int("corpse_timeout_ticks"); ok {
		s.CorpseTimeoutTicks = v
	}
	return s, nil
}
