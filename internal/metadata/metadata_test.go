package metadata

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_InitializesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caches.json")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if store.Counter != 0 {
		t.Errorf("Counter = %d, want 0", store.Counter)
	}
	if len(store.Functions) != 0 {
		t.Errorf("Functions not empty: %v", store.Functions)
	}

	// The empty store must have been persisted.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metadata file not created: %v", err)
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("persisted store not valid JSON: %v", err)
	}
	if string(flat[CounterKey]) != "0" {
		t.Errorf("persisted counter = %s, want 0", flat[CounterKey])
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caches.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load succeeded on corrupt file")
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("error %v does not wrap ErrCorrupt", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caches.json")

	store := NewStore()
	store.Counter = 41
	name := store.NextFileName("gob")
	if name != "42.gob" {
		t.Errorf("NextFileName = %q, want 42.gob", name)
	}
	store.Append("fetch_rates", Entry{
		Args:       `(string:"USD")`,
		Kwargs:     "{}",
		FileName:   name,
		MaxAgeDays: 7,
	})

	if err := store.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Counter != 42 {
		t.Errorf("Counter = %d, want 42", loaded.Counter)
	}
	entries := loaded.Entries("fetch_rates")
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0] != store.Entries("fetch_rates")[0] {
		t.Errorf("entry mismatch: got %+v", entries[0])
	}
}

func TestFlatLayout(t *testing.T) {
	store := NewStore()
	store.Counter = 3
	store.Append("f", Entry{Args: "(int:1)", Kwargs: "{}", FileName: "3.gob", MaxAgeDays: 1})

	data, err := json.Marshal(store)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// The counter and the function arrays share one flat JSON object.
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("not a flat object: %v", err)
	}
	if len(flat) != 2 {
		t.Errorf("got %d top-level keys, want 2: %s", len(flat), data)
	}
	if string(flat[CounterKey]) != "3" {
		t.Errorf("counter key = %s, want 3", flat[CounterKey])
	}

	var entries []Entry
	if err := json.Unmarshal(flat["f"], &entries); err != nil {
		t.Fatalf("function entries: %v", err)
	}
	if entries[0].FileName != "3.gob" {
		t.Errorf("file_name = %q, want 3.gob", entries[0].FileName)
	}
}

func TestSetEntries_DropsEmptyKey(t *testing.T) {
	store := NewStore()
	store.Append("f", Entry{FileName: "1.gob"})

	store.SetEntries("f", nil)

	if _, ok := store.Functions["f"]; ok {
		t.Error("empty entry set was not dropped")
	}
}

func TestNextFileName_Monotonic(t *testing.T) {
	store := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := store.NextFileName("gob")
		if seen[name] {
			t.Fatalf("duplicate artifact name %q", name)
		}
		seen[name] = true
	}
	if store.Counter != 100 {
		t.Errorf("Counter = %d, want 100", store.Counter)
	}
}

func TestFunctionNames_SortedAndExcludesCounter(t *testing.T) {
	store := NewStore()
	store.Append("zeta", Entry{FileName: "1.gob"})
	store.Append("alpha", Entry{FileName: "2.gob"})

	names := store.FunctionNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("FunctionNames = %v, want [alpha zeta]", names)
	}
}
