// Package state persists the daemon's round-progress record. The record is
// written as versioned JSON through an atomic rename so a crash between
// writes never leaves a corrupt or half-written file.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CurrentVersion is the schema version written by this build. Unknown
// fields from newer versions are preserved-on-read semantics are not
// needed; loading tolerates them by ignoring.
const CurrentVersion = 1

// State is the persistent round-progress record. Both round marks start
// unset (nil). Invariant: LastRoundTrained <= LastRoundProcessed+1 whenever
// both are set. The trained mark may lead the processed mark by exactly one
// round: it is persisted mid-round, before tournament-data processing, so a
// crash in between never re-runs training after restart.
type State struct {
	Version            int       `json:"version"`
	LastRoundProcessed *int      `json:"last_round_processed,omitempty"`
	LastRoundTrained   *int      `json:"last_round_trained,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitzero"`
}

// MarkProcessed records a round as processed.
func (s *State) MarkProcessed(round int) { s.LastRoundProcessed = &round }

// MarkTrained records a round as trained.
func (s *State) MarkTrained(round int) { s.LastRoundTrained = &round }

// Processed returns the last processed round and whether it is set.
func (s *State) Processed() (int, bool) {
	if s.LastRoundProcessed == nil {
		return 0, false
	}
	return *s.LastRoundProcessed, true
}

// Trained returns the last trained round and whether it is set.
func (s *State) Trained() (int, bool) {
	if s.LastRoundTrained == nil {
		return 0, false
	}
	return *s.LastRoundTrained, true
}

// Validate checks the trained/processed ordering invariant. The trained
// mark may point at the round currently in flight (processed+1), never
// further ahead.
func (s *State) Validate() error {
	if s.LastRoundProcessed != nil && s.LastRoundTrained != nil &&
		*s.LastRoundTrained > *s.LastRoundProcessed+1 {
		return fmt.Errorf("invalid state: last_round_trained (%d) ahead of last_round_processed (%d)",
			*s.LastRoundTrained, *s.LastRoundProcessed)
	}
	return nil
}

// Store loads and saves the state record at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state. A missing or empty file is not an error:
// it yields the default unset state (first run, or an operator reset).
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &State{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return &State{Version: CurrentVersion}, nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", s.path, err)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

// Save persists the state. Called immediately after every transition that
// must not repeat on restart, so the write is atomic: marshal to a temp
// file, then rename over the target.
func (s *Store) Save(st *State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	st.Version = CurrentVersion
	st.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
