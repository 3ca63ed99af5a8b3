// Package save implements persistent player-state serialization (spec.md
// §6.2, C8's save surface). Grounded on the teacher's savesystem.go:
// atomic write (temp file + rename), a backup-before-overwrite step, and
// a checksum guarding against a truncated/corrupted file. Flattened from
// the teacher's ECS-chunk registry (squads/gear/etc. each self-
// describing) to the single flat PlayerState struct spec.md §6.2 names,
// since the combat core has no squad system to chunk over; encoded with
// vmihailenco/msgpack/v5 rather than encoding/json since that's the
// wire format this module's go.mod carries.
package save

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"embercore/grid"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	CurrentSaveVersion = 1
	SaveDirectory      = "saves"
	SaveFileName       = "hero_save.msgpack"
)

// EquipmentSlot is one named equipment slot -> item id mapping.
type EquipmentSlot struct {
	Slot   string `msgpack:"slot"`
	ItemID string `msgpack:"item_id"`
}

// InventoryStack is an item id plus quantity, used for both inventory
// and stash (spec.md §6.2 "inventory+stash (item ids and quantities)").
type InventoryStack struct {
	ItemID   string `msgpack:"item_id"`
	Quantity int    `msgpack:"quantity"`
}

// PlayerState is everything spec.md §6.2 requires the core to persist.
type PlayerState struct {
	Class  string `msgpack:"class"`
	Level  int    `msgpack:"level"`
	XP     int    `msgpack:"xp"`

	Stats     map[string]float64 `msgpack:"stats"`
	Primaries map[string]int     `msgpack:"primaries"`

	UnlockedPowers []string `msgpack:"unlocked_powers"`

	Inventory []InventoryStack `msgpack:"inventory"`
	Stash     []InventoryStack `msgpack:"stash"`
	Equipment []EquipmentSlot  `msgpack:"equipment"`

	CurrentMapFile string            `msgpack:"current_map_file"`
	HeroPos        grid.Point        `msgpack:"hero_pos"`
	CampaignStatus map[string]bool   `msgpack:"campaign_status"`
	TimePlayedSecs int64             `msgpack:"time_played_secs"`
}

// Envelope is the on-disk wrapper: a version tag, a checksum over the
// encoded PlayerState, and the state itself (spec.md §9 determinism
// requires a byte-identical round trip for the same input).
type Envelope struct {
	Version  int         `msgpack:"version"`
	Checksum string      `msgpack:"checksum"`
	State    PlayerState `msgpack:"state"`
}

func checksumOf(state PlayerState) (string, []byte, error) {
	encoded, err := msgpack.Marshal(state)
	if err != nil {
		return "", nil, fmt.Errorf("save: marshal state for checksum: %w", err)
	}
	hash := sha256.Sum256(encoded)
	return hex.EncodeToString(hash[:]), encoded, nil
}

// Save writes state to dir/SaveFileName via atomic write (temp file then
// rename), keeping one .bak of the previous save (spec.md §6.2; pattern
// grounded on the teacher's SaveGame).
func Save(dir string, state PlayerState) error {
	checksum, _, err := checksumOf(state)
	if err != nil {
		return err
	}
	envelope := Envelope{Version: CurrentSaveVersion, Checksum: checksum, State: state}

	encoded, err := msgpack.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("save: marshal envelope: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("save: create save directory: %w", err)
	}

	savePath := filepath.Join(dir, SaveFileName)
	tmpPath := savePath + ".tmp"
	bakPath := savePath + ".bak"

	if err := os.WriteFile(tmpPath, encoded, 0644); err != nil {
		return fmt.Errorf("save: write temp file: %w", err)
	}

	if _, err := os.Stat(savePath); err == nil {
		os.Remove(bakPath)
		if err := os.Rename(savePath, bakPath); err != nil {
			os.Remove(bakPath)
		}
	}

	if err := os.Rename(tmpPath, savePath); err != nil {
		return fmt.Errorf("save: finalize save file: %w", err)
	}
	return nil
}

// Load reads and validates dir/SaveFileName, returning the decoded
// PlayerState after a checksum check.
func Load(dir string) (PlayerState, error) {
	savePath := filepath.Join(dir, SaveFileName)
	encoded, err := os.ReadFile(savePath)
	if err != nil {
		return PlayerState{}, fmt.Errorf("save: read save file: %w", err)
	}

	var envelope Envelope
	if err := msgpack.Unmarshal(encoded, &envelope); err != nil {
		return PlayerState{}, fmt.Errorf("save: unmarshal envelope: %w", err)
	}
	if envelope.Version > CurrentSaveVersion {
		return PlayerState{}, fmt.Errorf("save: file version %d newer than supported version %d", envelope.Version, CurrentSaveVersion)
	}

	expected, _, err := checksumOf(envelope.State)
	if err != nil {
		return PlayerState{}, err
	}
	if expected != envelope.Checksum {
		return PlayerState{}, fmt.Errorf("save: checksum mismatch, file may be corrupted")
	}
	return envelope.State, nil
}

// HasSaveFile reports whether dir/SaveFileName exists.
func HasSaveFile(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, SaveFileName))
	return err == nil
}

// Delete removes dir/SaveFileName (e.g. on permadeath).
func Delete(dir string) error {
	path := filepath.Join(dir, SaveFileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("save: delete save file: %w", err)
	}
	return nil
}
