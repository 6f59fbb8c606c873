package app

import (
	"fmt"

	"github.com/ioan45/open-my-files/store"
)

// OpenGroup launches every entry of the group in order on a background
// goroutine and returns at once. The returned channel is closed when the
// last entry has been handed to the OS. Web pages open in the browser,
// pausing once after the first so a cold browser can start; files that no
// longer exist are skipped.
func (a *App) OpenGroup(groupID int) (<-chan struct{}, error) {
	group, err := a.Group(groupID)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.openEntries(group)
	}()
	return done, nil
}

func (a *App) openEntries(group store.Group) {
	a.status.Set(fmt.Sprintf("Opening \"%s\" group...", group.Name))

	delay := a.cfg.FirstTabDelay()
	tabsOpened := 0
	for _, entry := range group.Entries {
		entryLog := log.WithField("path", entry.Path)

		if entry.Type == store.EntryWebPage {
			if tabsOpened == 1 && delay > 0 {
				a.sleep(delay)
			}
			if err := a.launcher.OpenURL(entry.Path, a.browserPath); err != nil {
				entryLog.WithError(err).Warn("Failed to open web page")
				continue
			}
			tabsOpened++
			continue
		}

		if !a.isFile(entry.Path) {
			entryLog.Debug("Skipping missing file")
			continue
		}
		if err := a.launcher.OpenFile(entry.Path); err != nil {
			entryLog.WithError(err).Warn("Failed to open file")
		}
	}

	a.status.Set(fmt.Sprintf("Group \"%s\" opened.", group.Name))
}
