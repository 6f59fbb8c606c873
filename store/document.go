package store

import (
	"path/filepath"
	"strings"

	apperrors "github.com/ioan45/open-my-files/errors"
)

// EntryType tells how an entry is launched.
type EntryType string

const (
	EntryExecutable EntryType = "executable"
	EntryOther      EntryType = "other"
	EntryWebPage    EntryType = "web_page"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryExecutable, EntryOther, EntryWebPage:
		return true
	}
	return false
}

// IsFile reports whether entries of this type point at a local path.
func (t EntryType) IsFile() bool {
	return t == EntryExecutable || t == EntryOther
}

// Entry is one launchable item of a group.
type Entry struct {
	ID      int       `json:"entry_id"`
	Path    string    `json:"entry_path"`
	Type    EntryType `json:"entry_type"`
	Details string    `json:"entry_details"`
}

// Group is a named, ordered collection of entries. ListeningDir is set
// while the group mirrors a watched directory.
type Group struct {
	ID           int     `json:"group_id"`
	Name         string  `json:"group_name"`
	Entries      []Entry `json:"group_entries"`
	ListeningDir string  `json:"group_listening_dir,omitempty"`
}

// Recognized settings keys. Unknown keys are kept but ignored.
const (
	SettingStartWithWindows = "start_with_windows"
	SettingAutoSave         = "auto_save"
)

// Settings holds boolean preferences. Missing keys read as false.
type Settings map[string]bool

// Document is the full persisted state: groups plus settings.
type Document struct {
	Groups   []Group
	Settings Settings
}

// Clone returns a deep copy that shares no memory with d.
func (d *Document) Clone() Document {
	return Document{
		Groups:   cloneGroups(d.Groups),
		Settings: cloneSettings(d.Settings),
	}
}

func cloneGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i := range groups {
		out[i] = groups[i].Clone()
	}
	return out
}

// Clone returns a copy of g with its own entries slice.
func (g *Group) Clone() Group {
	out := *g
	out.Entries = make([]Entry, len(g.Entries))
	copy(out.Entries, g.Entries)
	return out
}

func cloneSettings(settings Settings) Settings {
	out := make(Settings, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out
}

// Group returns the group with the given id.
func (d *Document) Group(id int) (*Group, error) {
	if id < 0 || id >= len(d.Groups) {
		return nil, apperrors.GroupNotFound(id)
	}
	return &d.Groups[id], nil
}

// RenumberGroups reassigns dense group ids in list order.
func (d *Document) RenumberGroups() {
	for i := range d.Groups {
		d.Groups[i].ID = i
	}
}

// RenumberEntries reassigns dense entry ids within one group.
func (d *Document) RenumberEntries(groupID int) error {
	g, err := d.Group(groupID)
	if err != nil {
		return err
	}
	g.RenumberEntries()
	return nil
}

// CleanPath returns the absolute, cleaned, OS-separated form of p. Paths
// written with forward slashes on Windows compare equal to native ones.
func CleanPath(p string) string {
	p = filepath.FromSlash(p)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// GroupsListeningTo returns the groups whose ListeningDir equals dir.
func (d *Document) GroupsListeningTo(dir string) []*Group {
	var out []*Group
	for i := range d.Groups {
		if d.Groups[i].ListeningDir != "" && d.Groups[i].ListeningDir == dir {
			out = append(out, &d.Groups[i])
		}
	}
	return out
}

// RenumberEntries reassigns dense entry ids in list order.
func (g *Group) RenumberEntries() {
	for i := range g.Entries {
		g.Entries[i].ID = i
	}
}

// AddEntry appends an entry with the next id.
func (g *Group) AddEntry(path string, typ EntryType) {
	g.Entries = append(g.Entries, Entry{
		ID:   len(g.Entries),
		Path: path,
		Type: typ,
	})
}

// HasEntry reports whether an entry with exactly this path exists.
func (g *Group) HasEntry(path string) bool {
	for _, e := range g.Entries {
		if e.Path == path {
			return true
		}
	}
	return false
}

// RemoveEntriesByPath drops every entry with this path and renumbers.
// It returns the number of entries removed.
func (g *Group) RemoveEntriesByPath(path string) int {
	kept := g.Entries[:0]
	removed := 0
	for _, e := range g.Entries {
		if e.Path == path {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	g.Entries = kept
	g.RenumberEntries()
	return removed
}

// ClassifyPath returns EntryExecutable when the path has one of the given
// extensions (case-insensitive, with leading dot), EntryOther otherwise.
func ClassifyPath(path string, executableExts []string) EntryType {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return EntryOther
	}
	for _, e := range executableExts {
		if strings.ToLower(e) == ext {
			return EntryExecutable
		}
	}
	return EntryOther
}
