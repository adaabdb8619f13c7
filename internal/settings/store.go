package settings

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownTheme is returned for theme ids without a preset.
var ErrUnknownTheme = errors.New("unknown theme")

// Store holds the process-wide settings. Every reader gets a Snapshot copy,
// so renderers never observe a half-applied update.
type Store struct {
	mu        sync.RWMutex
	settings  Settings
	textDirty bool
}

func NewStore(initial Settings) *Store {
	store := &Store{settings: initial.Normalize()}
	if p, ok := LookupPreset(store.settings.Theme); ok {
		store.settings.Capabilities = p.Capabilities
	}
	return store
}

func (store *Store) Snapshot() Settings {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.settings
}

// Advance moves the animation clock forward by step and returns the new state.
func (store *Store) Advance(step float64) Settings {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.settings.Time += step
	return store.settings
}

// SetText stores text uppercased and marks it as user-edited.
func (store *Store) SetText(text string) {
	store.mu.Lock()
	store.settings.Text = strings.ToUpper(text)
	store.textDirty = true
	store.mu.Unlock()
}

// TextDirty reports whether the text was edited since start-up.
func (store *Store) TextDirty() bool {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.textDirty
}

// Update applies fn to a copy of the settings and stores the normalized result.
// Time, theme and capabilities are owned by the store and cannot be changed here.
func (store *Store) Update(fn func(*Settings)) Settings {
	store.mu.Lock()
	defer store.mu.Unlock()
	next := store.settings
	fn(&next)
	next.Time = store.settings.Time
	next.Theme = store.settings.Theme
	next.Capabilities = store.settings.Capabilities
	if next.Text != store.settings.Text {
		store.textDirty = true
	}
	store.settings = next.Normalize()
	return store.settings
}

// ApplyTheme switches the active theme. Capabilities are always copied from the
// preset; color mode, line count and text only while the text is untouched.
func (store *Store) ApplyTheme(id string) (Settings, error) {
	preset, ok := LookupPreset(id)
	if !ok {
		return Settings{}, fmt.Errorf("%w %q", ErrUnknownTheme, id)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	s := store.settings
	s.Theme = id
	s.Capabilities = preset.Capabilities

	if !store.textDirty {
		if preset.ColorMode != "" {
			s.ColorMode = preset.ColorMode
		}
		if preset.NumLines > 0 {
			s.NumLines = preset.NumLines
		}
		if preset.Text != "" {
			s.Text = preset.Text
		}
		if id != ThemeCCC && s.Text == LogoText {
			s.Text = DefaultText
		}
	}

	store.settings = s.Normalize()
	return store.settings, nil
}
