// Package store holds the groups and settings document of omf.
//
// A Store keeps two deep-independent copies of the document: the working
// copy that every edit mutates, and the saved copy that mirrors the files
// on disk. Save copies working to saved and persists it; Revert copies
// saved back to working.
//
// All access goes through one coarse mutex. Update runs a mutation under
// it and marks the store dirty; View and Snapshot read under it. The lock
// is never held while encoding or writing files.
package store

import (
	"context"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ioan45/open-my-files/logging"
)

var log = logging.NewLogger("store")

type Store struct {
	groupsPath   string
	settingsPath string

	mu      sync.Mutex
	working Document
	saved   Document
	dirty   bool

	// saveMu admits one save at a time; overlapping saves are dropped.
	saveMu sync.Mutex

	hookMu    sync.Mutex
	dirtyHook func(dirty bool)
}

// New creates an empty store backed by the given files. Nothing is read
// until LoadGroups and LoadSettings are called.
func New(groupsPath, settingsPath string) *Store {
	return &Store{
		groupsPath:   groupsPath,
		settingsPath: settingsPath,
		working:      Document{Groups: []Group{}, Settings: Settings{}},
		saved:        Document{Groups: []Group{}, Settings: Settings{}},
	}
}

// GroupsPath returns the groups file location.
func (s *Store) GroupsPath() string { return s.groupsPath }

// SettingsPath returns the settings file location.
func (s *Store) SettingsPath() string { return s.settingsPath }

// OnDirtyChange registers fn to be called, outside the lock, whenever the
// dirty flag flips.
func (s *Store) OnDirtyChange(fn func(dirty bool)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.dirtyHook = fn
}

func (s *Store) fireDirty(dirty bool) {
	s.hookMu.Lock()
	fn := s.dirtyHook
	s.hookMu.Unlock()
	if fn != nil {
		fn(dirty)
	}
}

// setDirty must be called with s.mu held. It reports whether the flag changed.
func (s *Store) setDirty(dirty bool) bool {
	if s.dirty == dirty {
		return false
	}
	s.dirty = dirty
	return true
}

// LoadGroups replaces both copies of the groups with the file contents.
func (s *Store) LoadGroups(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	groups, err := LoadGroups(s.groupsPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.saved.Groups = groups
	s.working.Groups = cloneGroups(groups)
	s.mu.Unlock()

	log.WithFields(logrus.Fields{"path": s.groupsPath, "groups": len(groups)}).Debug("Loaded groups")
	return nil
}

// LoadSettings replaces both copies of the settings with the file contents.
func (s *Store) LoadSettings(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	settings, err := LoadSettings(s.settingsPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.saved.Settings = settings
	s.working.Settings = cloneSettings(settings)
	s.mu.Unlock()

	log.WithField("path", s.settingsPath).Debug("Loaded settings")
	return nil
}

// SaveGroups copies the working groups to the saved copy and persists them.
func (s *Store) SaveGroups(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.saved.Groups = cloneGroups(s.working.Groups)
	groups := cloneGroups(s.saved.Groups)
	changed := s.setDirty(!reflect.DeepEqual(s.working.Settings, s.saved.Settings) && s.dirty)
	s.mu.Unlock()
	if changed {
		s.fireDirty(false)
	}

	return SaveGroups(s.groupsPath, groups)
}

// SaveSettings copies the working settings to the saved copy and persists them.
func (s *Store) SaveSettings(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.saved.Settings = cloneSettings(s.working.Settings)
	settings := cloneSettings(s.saved.Settings)
	changed := s.setDirty(!reflect.DeepEqual(s.working.Groups, s.saved.Groups) && s.dirty)
	s.mu.Unlock()
	if changed {
		s.fireDirty(false)
	}

	return SaveSettings(s.settingsPath, settings)
}

// Save persists the whole working document. Only one save runs at a time:
// a call that overlaps a running save returns (false, nil) immediately.
// On a write error the store stays dirty so a later save retries.
func (s *Store) Save(ctx context.Context) (bool, error) {
	if !s.saveMu.TryLock() {
		log.Debug("Save already in progress, dropping request")
		return false, nil
	}
	defer s.saveMu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.saved = s.working.Clone()
	snapshot := s.saved.Clone()
	changed := s.setDirty(false)
	s.mu.Unlock()
	if changed {
		s.fireDirty(false)
	}

	err := SaveGroups(s.groupsPath, snapshot.Groups)
	if err == nil {
		err = SaveSettings(s.settingsPath, snapshot.Settings)
	}
	if err != nil {
		s.mu.Lock()
		changed = s.setDirty(true)
		s.mu.Unlock()
		if changed {
			s.fireDirty(true)
		}
		return true, err
	}

	log.WithFields(logrus.Fields{"groups": len(snapshot.Groups)}).Info("Saved document")
	return true, nil
}

// Revert discards unsaved edits by copying the saved document to working.
func (s *Store) Revert() {
	s.mu.Lock()
	s.working = s.saved.Clone()
	changed := s.setDirty(false)
	s.mu.Unlock()
	if changed {
		s.fireDirty(false)
	}
	log.Debug("Reverted working copy")
}

// Update runs fn on the working copy under the store lock. When fn returns
// nil the store is marked dirty. fn must not block.
func (s *Store) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	err := fn(&s.working)
	changed := false
	if err == nil {
		changed = s.setDirty(true)
	}
	s.mu.Unlock()
	if changed {
		s.fireDirty(true)
	}
	return err
}

// Amend runs fn on both the working and the saved copy without touching
// the dirty flag. It is meant for corrections that must survive a Revert,
// such as forgetting a listening directory that no longer exists.
func (s *Store) Amend(fn func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.working)
	fn(&s.saved)
}

// View runs fn on the working copy under the store lock. fn must not
// retain or modify doc.
func (s *Store) View(fn func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.working)
}

// Snapshot returns a deep copy of the working document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

// SavedSnapshot returns a deep copy of the saved document.
func (s *Store) SavedSnapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved.Clone()
}

// Dirty reports whether the working copy has unsaved edits.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Setting reads a boolean setting from the working copy.
func (s *Store) Setting(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Settings[key]
}
