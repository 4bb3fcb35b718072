package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Snapshot is the on-disk schema. The underscore-joined keys and the
// upper-case config field names are load-bearing, older state files must
// keep loading.
type Snapshot struct {
	UserWarnings map[string]int `json:"user_warnings"`
	Config       SnapshotConfig `json:"antispam_config"`
}

type SnapshotConfig struct {
	MaxWarnings         int                `json:"MAX_WARNINGS"`
	BanDuration         int                `json:"BAN_DURATION"`
	DeleteSpam          bool               `json:"DELETE_SPAM"`
	BlacklistWords      []string           `json:"BLACKLIST_WORDS"`
	AdminIDs            []int64            `json:"ADMIN_IDS"`
	MaxRepeatedMessages int                `json:"MAX_REPEATED_MESSAGES"`
	RepeatTimeWindow    int                `json:"REPEAT_TIME_WINDOW"`
	BannedUsers         map[string]float64 `json:"banned_users"`
}

// FileStore persists full state snapshots to a single JSON file. Every
// save is a whole-file overwrite through a temp file and rename, so a
// crash mid-write never leaves a truncated state file behind.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot and rebuilds the state. A missing or unreadable
// file is not an error to the caller: the bot starts with compiled-in
// defaults and a diagnostic.
func (f *FileStore) Load() *State {
	entry := log.WithField("object", "FileStore").WithField("path", f.path)

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			entry.Info("no state file, starting with defaults")
		} else {
			entry.WithField("error", err.Error()).Error("cant read state file, starting with defaults")
		}
		return New(DefaultPolicy())
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		entry.WithField("error", err.Error()).Error("cant decode state file, starting with defaults")
		return New(DefaultPolicy())
	}
	return FromSnapshot(snapshot)
}

// Save overwrites the state file with the current snapshot. Last writer
// wins.
func (f *FileStore) Save(s *State) error {
	raw, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return errors.WithMessage(err, "cant encode state")
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return errors.WithMessage(err, "cant create temp state file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WithMessage(err, "cant write temp state file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WithMessage(err, "cant close temp state file")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.WithMessage(err, "cant replace state file")
	}
	return nil
}
