// Package app provides save state functionality for the NES emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"nescore/internal/bus"
	"nescore/internal/logging"
)

// StateManager manages save states: one JSON file per snapshot, named
// "<rom-stem>-<n>.dat" in the configured save directory. Save picks the
// next unused numeric suffix; load picks the most recently modified file
// for the current ROM.
type StateManager struct {
	saveDirectory string
	initialized   bool
}

// SaveFile is the on-disk representation of one save state.
type SaveFile struct {
	Version   string     `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	ROMPath   string     `json:"rom_path"`
	State     bus.State  `json:"state"`
}

// StateSlotInfo describes one save file on disk.
type StateSlotInfo struct {
	Index     int       `json:"index"`
	FilePath  string    `json:"file_path"`
	Timestamp time.Time `json:"timestamp"`
	FileSize  int64     `json:"file_size"`
}

// NewStateManager creates a new state manager rooted at saveDirectory.
func NewStateManager(saveDirectory string) *StateManager {
	manager := &StateManager{saveDirectory: saveDirectory}
	if err := manager.initialize(); err != nil {
		logging.Warnf("app", "state manager initialization failed: %v", err)
	}
	return manager
}

func (sm *StateManager) initialize() error {
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %v", err)
	}
	sm.initialized = true
	return nil
}

// romStem returns the ROM's base filename with its extension stripped, used
// as the save file's name prefix.
func romStem(romPath string) string {
	name := filepath.Base(romPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// slotFiles lists existing "<stem>-<n>.dat" files for romPath along with
// their numeric suffix, sorted by suffix ascending.
func (sm *StateManager) slotFiles(romPath string) []StateSlotInfo {
	stem := romStem(romPath)
	entries, err := os.ReadDir(sm.saveDirectory)
	if err != nil {
		return nil
	}

	var slots []StateSlotInfo
	prefix := stem + "-"
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".dat") {
			continue
		}
		middle := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".dat")
		n, err := strconv.Atoi(middle)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		slots = append(slots, StateSlotInfo{
			Index:     n,
			FilePath:  filepath.Join(sm.saveDirectory, name),
			Timestamp: info.ModTime(),
			FileSize:  info.Size(),
		})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Index < slots[j].Index })
	return slots
}

// SaveState writes a new save state for romPath, using the next unused
// numeric suffix.
func (sm *StateManager) SaveState(b *bus.Bus, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if b == nil {
		return fmt.Errorf("bus cannot be nil")
	}

	existing := sm.slotFiles(romPath)
	next := 0
	if len(existing) > 0 {
		next = existing[len(existing)-1].Index + 1
	}

	file := SaveFile{
		Version:   "1.0",
		Timestamp: time.Now(),
		ROMPath:   romPath,
		State:     b.Snapshot(),
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %v", err)
	}

	fileName := fmt.Sprintf("%s-%d.dat", romStem(romPath), next)
	filePath := filepath.Join(sm.saveDirectory, fileName)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write save state: %v", err)
	}
	return nil
}

// LoadState restores the bus from the most recently modified save state for
// romPath.
func (sm *StateManager) LoadState(b *bus.Bus, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if b == nil {
		return fmt.Errorf("bus cannot be nil")
	}

	slots := sm.slotFiles(romPath)
	if len(slots) == 0 {
		return fmt.Errorf("no save states found for %s", romPath)
	}

	latest := slots[0]
	for _, s := range slots[1:] {
		if s.Timestamp.After(latest.Timestamp) {
			latest = s
		}
	}

	data, err := os.ReadFile(latest.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read save state: %v", err)
	}

	var file SaveFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal save state: %v", err)
	}
	if file.ROMPath != romPath {
		return fmt.Errorf("save state is for a different ROM: %s", file.ROMPath)
	}

	b.Restore(file.State)
	return nil
}

// GetSlotInfo returns information about all save states for romPath.
func (sm *StateManager) GetSlotInfo(romPath string) []StateSlotInfo {
	return sm.slotFiles(romPath)
}

// GetSaveDirectory returns the save directory path.
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}

// SetSaveDirectory changes the save directory path.
func (sm *StateManager) SetSaveDirectory(directory string) error {
	sm.saveDirectory = directory
	return sm.initialize()
}

// Cleanup releases state manager resources.
func (sm *StateManager) Cleanup() error {
	sm.initialized = false
	return nil
}
