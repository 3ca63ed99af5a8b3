package save

import (
	"os"
	"path/filepath"
	"testing"

	"embercore/grid"

	"github.com/stretchr/testify/assert"
	"github.com/vmihailenco/msgpack/v5"
)

func testState() PlayerState {
	return PlayerState{
		Class: "Warrior",
		Level: 5,
		XP:    1200,
		Stats: map[string]float64{
			"hp_max": 120,
			"mp_max": 40,
		},
		Primaries: map[string]int{"Might": 12, "Vitality": 9},
		UnlockedPowers: []string{
			"cleave", "shield_bash",
		},
		Inventory: []InventoryStack{
			{ItemID: "potion_minor", Quantity: 3},
		},
		Stash: []InventoryStack{
			{ItemID: "gem_ruby", Quantity: 1},
		},
		Equipment: []EquipmentSlot{
			{Slot: "main_hand", ItemID: "iron_sword"},
		},
		CurrentMapFile: "maps/crypt01.txt",
		HeroPos:        grid.Point{X: 14, Y: 8},
		CampaignStatus: map[string]bool{"met_blacksmith": true},
		TimePlayedSecs: 3600,
	}
}

func TestSaveThenLoadRoundTripsState(t *testing.T) {
	dir := t.TempDir()
	state := testState()

	err := Save(dir, state)
	assert.NoError(t, err)

	loaded, err := Load(dir)
	assert.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestHasSaveFileFalseBeforeFirstSave(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, HasSaveFile(dir))

	Save(dir, testState())

	assert.True(t, HasSaveFile(dir))
}

func TestSaveKeepsBackupOfPreviousFile(t *testing.T) {
	dir := t.TempDir()
	first := testState()
	Save(dir, first)

	second := testState()
	second.Level = 6
	Save(dir, second)

	bakPath := filepath.Join(dir, SaveFileName+".bak")
	_, err := os.Stat(bakPath)
	assert.NoError(t, err)
}

func TestLoadFailsOnCorruptedChecksum(t *testing.T) {
	dir := t.TempDir()
	Save(dir, testState())

	savePath := filepath.Join(dir, SaveFileName)
	encoded, err := os.ReadFile(savePath)
	assert.NoError(t, err)
	corrupted := append([]byte{}, encoded...)
	corrupted[len(corrupted)-1] ^= 0xFF
	os.WriteFile(savePath, corrupted, 0644)

	_, err = Load(dir)
	assert.Error(t, err)
}

func TestLoadFailsWhenNoSaveFileExists(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestDeleteRemovesSaveFile(t *testing.T) {
	dir := t.TempDir()
	Save(dir, testState())
	assert.True(t, HasSaveFile(dir))

	err := Delete(dir)
	assert.NoError(t, err)
	assert.False(t, HasSaveFile(dir))
}

func TestDeleteIsNoopWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()
	err := Delete(dir)
	assert.NoError(t, err)
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	state := testState()
	checksum, _, err := checksumOf(state)
	assert.NoError(t, err)

	envelope := Envelope{Version: CurrentSaveVersion + 1, Checksum: checksum, State: state}
	encoded, err := msgpack.Marshal(envelope)
	assert.NoError(t, err)

	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, SaveFileName), encoded, 0644)

	_, err = Load(dir)
	assert.Error(t, err)
}
