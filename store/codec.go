package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/internal/fileutil"
)

const indent = "\t"

// LoadGroups reads and validates a groups file. A missing or blank file
// yields an empty list. Ids are renumbered to their list positions.
func LoadGroups(path string) ([]Group, error) {
	data, err := readLocked(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []Group{}, nil
	}

	var groups []Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, apperrors.DecodeFailed(path, err)
	}
	if groups == nil {
		groups = []Group{}
	}

	for i := range groups {
		g := &groups[i]
		if strings.TrimSpace(g.Name) == "" {
			return nil, apperrors.InvalidData(path, fmt.Sprintf("group %d has no name", i)).
				WithDetail("group_index", i)
		}
		if g.Entries == nil {
			g.Entries = []Entry{}
		}
		if g.ListeningDir != "" {
			g.ListeningDir = CleanPath(g.ListeningDir)
		}
		for j, e := range g.Entries {
			if e.Path == "" {
				return nil, apperrors.InvalidData(path, fmt.Sprintf("entry %d of group %q has no path", j, g.Name)).
					WithDetail("group_index", i).
					WithDetail("entry_index", j)
			}
			if !e.Type.Valid() {
				return nil, apperrors.InvalidData(path, fmt.Sprintf("entry %d of group %q has unknown type %q", j, g.Name, e.Type)).
					WithDetail("group_index", i).
					WithDetail("entry_index", j)
			}
			if e.Type.IsFile() {
				g.Entries[j].Path = filepath.Clean(filepath.FromSlash(e.Path))
			}
		}
		g.ID = i
		g.RenumberEntries()
	}

	return groups, nil
}

// LoadSettings reads a settings file. A missing or blank file yields an
// empty map.
func LoadSettings(path string) (Settings, error) {
	data, err := readLocked(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return Settings{}, nil
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, apperrors.DecodeFailed(path, err)
	}
	if settings == nil {
		settings = Settings{}
	}
	return settings, nil
}

// SaveGroups writes groups as a tab-indented JSON array.
func SaveGroups(path string, groups []Group) error {
	if groups == nil {
		groups = []Group{}
	}
	return writeLocked(path, groups)
}

// SaveSettings writes settings as a tab-indented JSON object with sorted keys.
func SaveSettings(path string, settings Settings) error {
	if settings == nil {
		settings = Settings{}
	}
	return writeLocked(path, settings)
}

// readLocked returns nil data when the file is absent or blank.
func readLocked(path string) ([]byte, error) {
	var data []byte
	err := fileutil.WithFileLock(path+".lock", false, func() error {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return apperrors.DecodeFailed(path, err)
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			data = raw
		}
		return nil
	})
	return data, err
}

func writeLocked(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return apperrors.EncodeFailed(path, err)
	}

	if err := fileutil.EnsureParentDir(path); err != nil {
		return apperrors.EncodeFailed(path, err)
	}

	return fileutil.WithFileLock(path+".lock", true, func() error {
		if err := fileutil.WriteFileAtomically(path, data, 0644); err != nil {
			return apperrors.EncodeFailed(path, err)
		}
		return nil
	})
}
