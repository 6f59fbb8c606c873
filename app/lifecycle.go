package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/store"
)

// CreateGroup appends an empty group. A blank name does nothing and
// reports ok=false.
func (a *App) CreateGroup(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}

	var id int
	_ = a.store.Update(func(doc *store.Document) error {
		id = len(doc.Groups)
		doc.Groups = append(doc.Groups, store.Group{ID: id, Name: name, Entries: []store.Entry{}})
		return nil
	})

	log.WithFields(logrus.Fields{"group": id, "name": name}).Debug("Created group")
	a.events.publish(Event{Kind: EventGroupsChanged})
	return id, true
}

// RenameGroup changes a group's display name. A blank name does nothing.
func (a *App) RenameGroup(groupID int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	err := a.store.Update(func(doc *store.Document) error {
		g, err := doc.Group(groupID)
		if err != nil {
			return err
		}
		g.Name = name
		return nil
	})
	if err != nil {
		return err
	}
	a.events.publish(Event{Kind: EventGroupsChanged})
	return nil
}

// DeleteGroups removes the selected groups. Watches of listening groups
// are released first. Unknown ids are ignored.
func (a *App) DeleteGroups(ids []int) {
	selected := make(map[int]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	var doomed []store.Group
	a.store.View(func(doc *store.Document) {
		for i := range doc.Groups {
			if selected[doc.Groups[i].ID] {
				doomed = append(doomed, doc.Groups[i].Clone())
			}
		}
	})
	if len(doomed) == 0 {
		return
	}

	for _, g := range doomed {
		a.coord.RemoveListenerForDeletedGroup(g)
	}

	_ = a.store.Update(func(doc *store.Document) error {
		kept := doc.Groups[:0]
		for _, g := range doc.Groups {
			if !selected[g.ID] {
				kept = append(kept, g)
			}
		}
		doc.Groups = kept
		doc.RenumberGroups()
		return nil
	})

	log.WithField("count", len(doomed)).Debug("Deleted groups")
	a.events.publish(Event{Kind: EventGroupsChanged})
}

// AddFileEntries appends one entry per non-blank path, classified by its
// extension. It returns how many entries were added.
func (a *App) AddFileEntries(groupID int, paths []string) (int, error) {
	var clean []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}

	err := a.store.Update(func(doc *store.Document) error {
		g, err := doc.Group(groupID)
		if err != nil {
			return err
		}
		if len(clean) == 0 {
			return errNothingToDo
		}
		for _, p := range clean {
			g.AddEntry(p, store.ClassifyPath(p, a.cfg.Entries.ExecutableExtensions))
		}
		return nil
	})
	if err == errNothingToDo {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	a.events.publish(Event{Kind: EventEntriesChanged, GroupID: groupID})
	return len(clean), nil
}

// AddWebEntry appends a web page entry. A blank URL does nothing.
func (a *App) AddWebEntry(groupID int, url string) (bool, error) {
	url = strings.TrimSpace(url)

	err := a.store.Update(func(doc *store.Document) error {
		g, err := doc.Group(groupID)
		if err != nil {
			return err
		}
		if url == "" {
			return errNothingToDo
		}
		g.AddEntry(url, store.EntryWebPage)
		return nil
	})
	if err == errNothingToDo {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	a.events.publish(Event{Kind: EventEntriesChanged, GroupID: groupID})
	return true, nil
}

// DeleteEntries removes the selected entries of a group and renumbers the
// rest. Unknown ids are ignored.
func (a *App) DeleteEntries(groupID int, ids []int) error {
	selected := make(map[int]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	err := a.store.Update(func(doc *store.Document) error {
		g, err := doc.Group(groupID)
		if err != nil {
			return err
		}
		kept := g.Entries[:0]
		for _, e := range g.Entries {
			if !selected[e.ID] {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(g.Entries) {
			return errNothingToDo
		}
		g.Entries = kept
		return doc.RenumberEntries(groupID)
	})
	if err == errNothingToDo {
		return nil
	}
	if err != nil {
		return err
	}

	a.events.publish(Event{Kind: EventEntriesChanged, GroupID: groupID})
	return nil
}

// EditDetails sets the details of the selected entries. A nil text means
// the prompt was cancelled and nothing changes.
func (a *App) EditDetails(groupID int, ids []int, text *string) error {
	if text == nil {
		return nil
	}
	selected := make(map[int]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	err := a.store.Update(func(doc *store.Document) error {
		g, err := doc.Group(groupID)
		if err != nil {
			return err
		}
		touched := false
		for i := range g.Entries {
			if selected[g.Entries[i].ID] {
				g.Entries[i].Details = *text
				touched = true
			}
		}
		if !touched {
			return errNothingToDo
		}
		return nil
	})
	if err == errNothingToDo {
		return nil
	}
	if err != nil {
		return err
	}

	a.events.publish(Event{Kind: EventEntriesChanged, GroupID: groupID})
	return nil
}

// StartListening mirrors dir into the group's entries from now on.
func (a *App) StartListening(groupID int, dir string) error {
	if err := a.coord.StartListening(groupID, dir); err != nil {
		return err
	}
	a.events.publish(Event{Kind: EventGroupsChanged})
	a.events.publish(Event{Kind: EventEntriesChanged, GroupID: groupID})
	return nil
}

// StopListening detaches the group from its directory.
func (a *App) StopListening(groupID int) error {
	if err := a.coord.StopListening(groupID); err != nil {
		return err
	}
	a.events.publish(Event{Kind: EventGroupsChanged})
	a.events.publish(Event{Kind: EventEntriesChanged, GroupID: groupID})
	return nil
}

// SetSetting updates a recognized setting in the working copy. It takes
// effect for the OS on the next save.
func (a *App) SetSetting(key string, value bool) error {
	switch key {
	case store.SettingAutoSave, store.SettingStartWithWindows:
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown setting %q", key)).
			WithDetail("known", []string{store.SettingAutoSave, store.SettingStartWithWindows})
	}

	return a.store.Update(func(doc *store.Document) error {
		if doc.Settings == nil {
			doc.Settings = store.Settings{}
		}
		doc.Settings[key] = value
		return nil
	})
}

// Save persists the working document. An overlapping save is dropped and
// reports false without touching the status line. After a successful
// write the run-at-startup registration is brought in line with the saved
// start_with_windows setting.
func (a *App) Save(ctx context.Context, auto bool) (bool, error) {
	if !a.saveMu.TryLock() {
		return false, nil
	}
	defer a.saveMu.Unlock()

	prefix := ""
	if auto {
		prefix = "Auto save: "
	}
	a.status.Set(prefix + "Saving changes...")

	saved, err := a.store.Save(ctx)
	if !saved && err == nil {
		return false, nil
	}
	if err != nil {
		a.status.Set(prefix + "Failed to save changes!")
		log.WithError(err).Error("Save failed")
		return true, err
	}

	startup := a.store.SavedSnapshot().Settings[store.SettingStartWithWindows]
	if err := a.launcher.SetLaunchAtStartup(startup); err != nil {
		log.WithError(err).WithField("enabled", startup).Warn("Failed to update startup registration")
	}

	a.status.Set(prefix + "Changes have been successfully saved!")
	return true, nil
}

const flushRetryDelay = 20 * time.Millisecond

// Flush saves until no edit is pending, waiting out a save already in
// progress. Stop the watches first or Flush may keep chasing new events.
func (a *App) Flush(ctx context.Context) error {
	for a.store.Dirty() {
		saved, err := a.Save(ctx, false)
		if err != nil {
			return err
		}
		if saved {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(flushRetryDelay):
		}
	}
	return nil
}

// Revert drops unsaved edits and re-syncs the watches with the restored
// document.
func (a *App) Revert(ctx context.Context) error {
	a.store.Revert()
	if err := a.coord.Reconcile(ctx); err != nil {
		return err
	}
	a.status.Set("Changes have been reverted!")
	a.events.publish(Event{Kind: EventGroupsChanged})
	return nil
}
