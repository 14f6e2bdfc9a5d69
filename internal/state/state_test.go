package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	st, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := st.Processed(); ok {
		t.Error("expected no processed mark on first load")
	}
	if _, ok := st.Trained(); ok {
		t.Error("expected no trained mark on first load")
	}
	if st.Version != CurrentVersion {
		t.Errorf("expected version %d, got %d", CurrentVersion, st.Version)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o640); err != nil {
		t.Fatal(err)
	}

	st, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := st.Processed(); ok {
		t.Error("expected no processed mark from empty file")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o640); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path).Load(); err == nil {
		t.Error("expected error for corrupt state file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path)

	st := &State{}
	st.MarkTrained(181)
	st.MarkProcessed(182)
	if err := store.Save(st); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if processed, ok := loaded.Processed(); !ok || processed != 182 {
		t.Errorf("expected processed 182, got %d (set=%v)", processed, ok)
	}
	if trained, ok := loaded.Trained(); !ok || trained != 181 {
		t.Errorf("expected trained 181, got %d (set=%v)", trained, ok)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set on save")
	}
}

func TestSaveLoadMidRoundState(t *testing.T) {
	// The trained mark is persisted before the processed mark; a crash in
	// between leaves trained one round ahead, which must reload cleanly.
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path)

	st := &State{}
	st.MarkProcessed(181)
	st.MarkTrained(182)
	if err := store.Save(st); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	st := &State{}
	st.MarkProcessed(10)

	if err := NewStore(path).Save(st); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected state file to exist: %v", err)
	}
}

func TestValidateOrderingInvariant(t *testing.T) {
	cases := []struct {
		name      string
		processed *int
		trained   *int
		wantErr   bool
	}{
		{"both unset", nil, nil, false},
		{"only processed", intPtr(5), nil, false},
		{"only trained", nil, intPtr(5), false},
		{"trained equals processed", intPtr(5), intPtr(5), false},
		{"trained behind processed", intPtr(5), intPtr(3), false},
		{"trained on round in flight", intPtr(5), intPtr(6), false},
		{"trained ahead of round in flight", intPtr(3), intPtr(5), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &State{LastRoundProcessed: tc.processed, LastRoundTrained: tc.trained}
			err := st.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestSaveRejectsInvalidState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := &State{LastRoundProcessed: intPtr(3), LastRoundTrained: intPtr(7)}

	if err := NewStore(path).Save(st); err == nil {
		t.Error("expected save of invalid state to fail")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid state must not reach disk")
	}
}

func TestLoadRejectsInvalidState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	data, _ := json.Marshal(map[string]any{
		"version":              1,
		"last_round_processed": 3,
		"last_round_trained":   7,
	})
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path).Load(); err == nil {
		t.Error("expected load of invalid state to fail")
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	data := []byte(`{"version": 1, "last_round_processed": 7, "future_field": true}`)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatal(err)
	}

	st, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if processed, ok := st.Processed(); !ok || processed != 7 {
		t.Errorf("expected processed 7, got %d (set=%v)", processed, ok)
	}
}
