package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ambientloop/internal/rotation"
)

func TestLoad_missingFileReturnsDefaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != rotation.DefaultSettings() {
		t.Errorf("got %+v, want defaults", got)
	}
}

func TestSaveLoad_roundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "settings.json"))
	want := rotation.Settings{
		HoldEnabled:    false,
		Hold:           3 * time.Second,
		Fade:           750 * time.Millisecond,
		Style:          rotation.StyleFade,
		InterClipDelay: 250 * time.Millisecond,
	}

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoad_partialFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"fade_ms": 500}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := rotation.DefaultSettings()
	if got.Fade != 500*time.Millisecond {
		t.Errorf("fade = %v, want 500ms", got.Fade)
	}
	if got.Hold != def.Hold || got.Style != def.Style || got.HoldEnabled != def.HoldEnabled {
		t.Errorf("got %+v, want other fields at defaults", got)
	}
}

func TestLoad_invalidValuesFallBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	body := `{"hold_ms": -100, "transition": "wipe", "fade_ms": 500}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := rotation.DefaultSettings()
	if got.Hold != def.Hold {
		t.Errorf("hold = %v, want default for a negative value", got.Hold)
	}
	if got.Style != def.Style {
		t.Errorf("style = %v, want default for an unknown transition", got.Style)
	}
	if got.Fade != 500*time.Millisecond {
		t.Errorf("fade = %v, want the valid 500ms applied", got.Fade)
	}
}

func TestLoad_corruptFileReturnsDefaultsAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(path).Load()
	if err == nil {
		t.Fatal("expected an error for a corrupt file")
	}
	if got != rotation.DefaultSettings() {
		t.Errorf("got %+v, want defaults alongside the error", got)
	}
}
