// Package settings persists the user tunables as a JSON file. Missing files
// and missing or invalid fields fall back to defaults; the store never
// invents values the engine cannot run with.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ambientloop/internal/rotation"
)

// Store is a file-backed rotation.SettingsStore.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store writing to path. The file need not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// fileValues is the persisted form, durations in milliseconds. Pointers so
// absent fields are distinguishable from zero values.
type fileValues struct {
	HoldEnabled      *bool   `json:"hold_enabled,omitempty"`
	HoldMs           *int64  `json:"hold_ms,omitempty"`
	FadeMs           *int64  `json:"fade_ms,omitempty"`
	Transition       *string `json:"transition,omitempty"`
	InterClipDelayMs *int64  `json:"inter_clip_delay_ms,omitempty"`
}

// Load reads the tunables, merging anything valid over the defaults. A
// missing file is not an error. On a read or parse error the defaults are
// returned alongside the error so callers can keep running.
func (s *Store) Load() (rotation.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := rotation.DefaultSettings()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("read settings: %w", err)
	}

	var v fileValues
	if err := json.Unmarshal(b, &v); err != nil {
		return out, fmt.Errorf("parse settings: %w", err)
	}

	if v.HoldEnabled != nil {
		out.HoldEnabled = *v.HoldEnabled
	}
	if v.HoldMs != nil && *v.HoldMs >= 0 {
		out.Hold = time.Duration(*v.HoldMs) * time.Millisecond
	}
	if v.FadeMs != nil && *v.FadeMs >= 0 {
		out.Fade = time.Duration(*v.FadeMs) * time.Millisecond
	}
	if v.Transition != nil && rotation.ValidStyle(rotation.TransitionStyle(*v.Transition)) {
		out.Style = rotation.TransitionStyle(*v.Transition)
	}
	if v.InterClipDelayMs != nil && *v.InterClipDelayMs >= 0 {
		out.InterClipDelay = time.Duration(*v.InterClipDelayMs) * time.Millisecond
	}
	return out, nil
}

// Save writes the tunables, creating the parent directory if needed.
func (s *Store) Save(in rotation.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold := in.Hold.Milliseconds()
	fade := in.Fade.Milliseconds()
	delay := in.InterClipDelay.Milliseconds()
	style := string(in.Style)
	v := fileValues{
		HoldEnabled:      &in.HoldEnabled,
		HoldMs:           &hold,
		FadeMs:           &fade,
		Transition:       &style,
		InterClipDelayMs: &delay,
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
