// Package app is the application context of omf. An App owns the document
// store, the directory watch coordinator, the status line and the platform
// collaborators, and exposes every user-level operation. The terminal UI
// and the CLI both drive an App.
package app

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/ioan45/open-my-files/config"
	"github.com/ioan45/open-my-files/dirwatch"
	"github.com/ioan45/open-my-files/logging"
	"github.com/ioan45/open-my-files/store"
	"github.com/ioan45/open-my-files/watcher"
)

var log = logging.NewLogger("app")

// Launcher opens entries and manages the run-at-startup registration.
type Launcher interface {
	OpenFile(path string) error
	OpenURL(url, browserPath string) error
	SetLaunchAtStartup(enabled bool) error
}

type App struct {
	cfg         *config.Config
	store       *store.Store
	coord       *dirwatch.Coordinator
	launcher    Launcher
	browserPath string
	status      *Status
	events      *eventBus

	// saveMu orders the status messages of a save; overlapping saves drop.
	saveMu sync.Mutex

	isFile func(path string) bool
	sleep  func(d time.Duration)

	closeOnce sync.Once
}

// New wires an App for cfg. browserPath is used for web pages; empty means
// the system URL handler. Nothing is loaded until Start.
func New(cfg *config.Config, launcher Launcher, browserPath string) *App {
	observer := watcher.NewObserver(watcher.Options{
		PairingWindow: cfg.PairingWindow(),
		Ignore:        cfg.Watch.Ignore,
	})
	return newApp(cfg, launcher, browserPath, observer)
}

func newApp(cfg *config.Config, launcher Launcher, browserPath string, scheduler dirwatch.Scheduler) *App {
	a := &App{
		cfg:         cfg,
		store:       store.New(cfg.GroupsPath(), cfg.SettingsPath()),
		launcher:    launcher,
		browserPath: browserPath,
		events:      newEventBus(),
		isFile:      isRegularFile,
		sleep:       time.Sleep,
	}
	if cfg.Launch.BrowserPath != "" {
		a.browserPath = cfg.Launch.BrowserPath
	}
	a.status = newStatus(a.events.publish)
	a.coord = dirwatch.New(a.store, scheduler, cfg.Entries.ExecutableExtensions)

	a.store.OnDirtyChange(func(dirty bool) {
		a.events.publish(Event{Kind: EventDirtyChanged, Dirty: dirty})
	})
	a.coord.OnEntriesChanged(func(groupID int) {
		a.events.publish(Event{Kind: EventEntriesChanged, GroupID: groupID})
	})
	return a
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads the document without arming any watch. A corrupt data file
// is returned as a DECODE_FAILED error and left as is.
func (a *App) Load(ctx context.Context) error {
	if err := a.store.LoadGroups(ctx); err != nil {
		return err
	}
	return a.store.LoadSettings(ctx)
}

// Start loads the document and re-arms the watches of listening groups.
func (a *App) Start(ctx context.Context) error {
	if err := a.Load(ctx); err != nil {
		return err
	}
	return a.coord.Reconcile(ctx)
}

// StopWatching stops and joins every directory watch, so a following
// Dirty check or Save sees the final document. ResumeWatching undoes it.
func (a *App) StopWatching() {
	a.coord.Suspend()
}

// ResumeWatching re-arms the watches of listening groups.
func (a *App) ResumeWatching(ctx context.Context) error {
	return a.coord.Reconcile(ctx)
}

// Close stops every watch and closes subscriber channels. Unsaved edits
// are not written.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.coord.Close()
		a.events.close()
	})
}

// Subscribe returns a channel of change notifications and a function that
// cancels the subscription. Slow subscribers miss events.
func (a *App) Subscribe() (<-chan Event, func()) {
	return a.events.subscribe()
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Status() string { return a.status.Message() }

func (a *App) Dirty() bool { return a.store.Dirty() }

// Groups returns a copy of the working groups.
func (a *App) Groups() []store.Group {
	return a.store.Snapshot().Groups
}

// Group returns a copy of one working group.
func (a *App) Group(groupID int) (store.Group, error) {
	var out store.Group
	var err error
	a.store.View(func(doc *store.Document) {
		var g *store.Group
		g, err = doc.Group(groupID)
		if err == nil {
			out = g.Clone()
		}
	})
	return out, err
}

// Settings returns a copy of the working settings.
func (a *App) Settings() store.Settings {
	return a.store.Snapshot().Settings
}

// Watched returns the watched directories and how many groups share each.
func (a *App) Watched() map[string]int {
	return a.coord.Watched()
}
