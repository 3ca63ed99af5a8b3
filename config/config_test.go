package config

import (
	"os"
	"path/filepath"
	"testing"

	"embercore/ai"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesTeacherCompiledInConstants(t *testing.T) {
	s := Default()

	assert.Equal(t, 60, s.MaxFramesPerSec)
	assert.Equal(t, 0.0, s.Combat.MinAvoidance)
	assert.Equal(t, 100.0, s.Combat.MaxAvoidance)
}

func TestLoadOverlaysFileValuesOntoDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.txt")
	contents := "[engine]\nmax_frames_per_sec=30\ncamera_speed=4\nelements=Fire,Ice\n"
	err := os.WriteFile(path, []byte(contents), 0644)
	assert.NoError(t, err)

	s, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, 30, s.MaxFramesPerSec)
	assert.Equal(t, 4.0, s.CameraSpeed)
	assert.Equal(t, []string{"Fire", "Ice"}, s.Elements)
	// Untouched keys keep their default.
	assert.Equal(t, 12.0, s.EncounterDist)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestToAITuningCarriesEncounterDist(t *testing.T) {
	s := Default()
	s.EncounterDist = 20

	tuning := s.ToAITuning(ai.DefaultTuning())

	assert.Equal(t, 20.0, tuning.EncounterDist)
}

func TestToCombatTuningReturnsConfiguredClamps(t *testing.T) {
	s := Default()
	s.Combat.MinAbsorb = 5

	combat := s.ToCombatTuning()

	assert.Equal(t, 5.0, combat.MinAbsorb)
}
