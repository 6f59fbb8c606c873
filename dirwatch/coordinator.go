// Package dirwatch keeps listening groups in sync with their directories.
//
// A Coordinator owns one watcher.Watch per distinct listening directory,
// shared by every group bound to it. Events from the watches are applied
// to the working document through store.Update, under the same lock as
// user edits.
//
// Lock order is Coordinator.mu then the store lock. Watch goroutines take
// only the store lock, so the coordinator may wait for a watch to stop
// while holding its own mutex.
package dirwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/logging"
	"github.com/ioan45/open-my-files/store"
	"github.com/ioan45/open-my-files/watcher"
)

var log = logging.NewLogger("dirwatch")

// errNoChange aborts an Update that found nothing to do, so the store is
// not marked dirty.
var errNoChange = errors.New("no change")

// Scheduler is the part of watcher.Observer the coordinator needs.
type Scheduler interface {
	Schedule(dir string, handler watcher.Handler) (*watcher.Watch, error)
	Unschedule(w *watcher.Watch)
	Stop()
}

type dirWatch struct {
	watch *watcher.Watch
	refs  int
}

type Coordinator struct {
	store          *store.Store
	observer       Scheduler
	executableExts []string

	notifyMu sync.Mutex
	notify   func(groupID int)

	mu      sync.Mutex
	watches map[string]*dirWatch
	closed  bool
}

// New creates a coordinator. executableExts classifies created files.
func New(s *store.Store, observer Scheduler, executableExts []string) *Coordinator {
	return &Coordinator{
		store:          s,
		observer:       observer,
		executableExts: executableExts,
		watches:        make(map[string]*dirWatch),
	}
}

// OnEntriesChanged registers fn to be called after a watch event changed
// the entries of a group. fn runs on a watch goroutine, outside any lock.
func (c *Coordinator) OnEntriesChanged(fn func(groupID int)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.notify = fn
}

func (c *Coordinator) entriesChanged(groupIDs []int) {
	c.notifyMu.Lock()
	fn := c.notify
	c.notifyMu.Unlock()
	if fn == nil {
		return
	}
	for _, id := range groupIDs {
		fn(id)
	}
}

// normalizeDir returns the absolute, cleaned form of an existing directory.
func normalizeDir(dir string) (string, error) {
	if dir == "" {
		return "", apperrors.DirectoryNotFound(dir)
	}
	abs := store.CleanPath(dir)
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", apperrors.DirectoryNotFound(abs)
	}
	return abs, nil
}

// StartListening binds the group to dir and makes sure dir is watched.
// Two groups on the same directory share a watch.
func (c *Coordinator) StartListening(groupID int, dir string) error {
	absDir, err := normalizeDir(dir)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apperrors.New(apperrors.ErrCodeInternal, "directory watching has been shut down")
	}

	checkGroup := func(doc *store.Document) (*store.Group, error) {
		g, err := doc.Group(groupID)
		if err != nil {
			return nil, err
		}
		if g.ListeningDir != "" {
			return nil, apperrors.AlreadyListening(groupID, g.ListeningDir)
		}
		return g, nil
	}

	var checkErr error
	c.store.View(func(doc *store.Document) {
		_, checkErr = checkGroup(doc)
	})
	if checkErr != nil {
		return checkErr
	}

	if err := c.acquireLocked(absDir); err != nil {
		return err
	}

	err = c.store.Update(func(doc *store.Document) error {
		g, err := checkGroup(doc)
		if err != nil {
			return err
		}
		g.ListeningDir = absDir
		return nil
	})
	if err != nil {
		c.releaseLocked(absDir)
		return err
	}

	log.WithFields(logrus.Fields{"group": groupID, "dir": absDir}).Info("Started listening")
	return nil
}

// StopListening unbinds the group from its directory. The watch is removed
// once no group uses it.
func (c *Coordinator) StopListening(groupID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dir string
	err := c.store.Update(func(doc *store.Document) error {
		g, err := doc.Group(groupID)
		if err != nil {
			return err
		}
		if g.ListeningDir == "" {
			return apperrors.NotListening(groupID)
		}
		dir = g.ListeningDir
		g.ListeningDir = ""
		return nil
	})
	if err != nil {
		return err
	}

	c.releaseLocked(dir)
	log.WithFields(logrus.Fields{"group": groupID, "dir": dir}).Info("Stopped listening")
	return nil
}

// RemoveListenerForDeletedGroup drops the group's share of its watch. The
// document is left alone; the caller is removing the group.
func (c *Coordinator) RemoveListenerForDeletedGroup(group store.Group) {
	if group.ListeningDir == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(group.ListeningDir)
}

// Reconcile makes the set of watches match the working document. Groups
// whose directory no longer exists, or cannot be watched, silently stop
// listening in both the working and saved copies. Watches no group
// references are removed.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	wanted := make(map[string]int)
	unclean := false
	c.store.View(func(doc *store.Document) {
		for _, g := range doc.Groups {
			if g.ListeningDir == "" {
				continue
			}
			dir := store.CleanPath(g.ListeningDir)
			if dir != g.ListeningDir {
				unclean = true
			}
			wanted[dir]++
		}
	})
	// Events are matched against cleaned directories, so stored values
	// must be in the same form.
	if unclean {
		c.store.Amend(func(doc *store.Document) {
			for i := range doc.Groups {
				if g := &doc.Groups[i]; g.ListeningDir != "" {
					g.ListeningDir = store.CleanPath(g.ListeningDir)
				}
			}
		})
	}

	var dead []string
	for dir, refs := range wanted {
		if existing, ok := c.watches[dir]; ok {
			existing.refs = refs
			continue
		}
		if _, err := normalizeDir(dir); err != nil {
			log.WithField("dir", dir).Debug("Listening directory is gone, clearing")
			dead = append(dead, dir)
			continue
		}
		w, err := c.observer.Schedule(dir, watcher.HandlerFunc(c.HandleEvent))
		if err != nil {
			log.WithError(err).WithField("dir", dir).Warn("Failed to watch directory, clearing")
			dead = append(dead, dir)
			continue
		}
		c.watches[dir] = &dirWatch{watch: w, refs: refs}
	}

	for dir, dw := range c.watches {
		if _, ok := wanted[dir]; !ok {
			c.observer.Unschedule(dw.watch)
			delete(c.watches, dir)
		}
	}

	if len(dead) > 0 {
		c.store.Amend(func(doc *store.Document) {
			for _, dir := range dead {
				for _, g := range doc.GroupsListeningTo(dir) {
					g.ListeningDir = ""
				}
			}
		})
	}
	return nil
}

// Watched returns the watched directories with the number of groups
// sharing each.
func (c *Coordinator) Watched() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.watches))
	for dir, dw := range c.watches {
		out[dir] = dw.refs
	}
	return out
}

// Suspend stops every watch and waits for their goroutines without
// touching the document. No event is applied after Suspend returns.
// Reconcile arms the watches again; changes made in between are not
// replayed.
func (c *Coordinator) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for dir, dw := range c.watches {
		c.observer.Unschedule(dw.watch)
		delete(c.watches, dir)
	}
}

// Close stops every watch and waits for their goroutines. No event is
// applied after Close returns.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.observer.Stop()
	c.watches = make(map[string]*dirWatch)
}

func (c *Coordinator) acquireLocked(dir string) error {
	if dw, ok := c.watches[dir]; ok {
		dw.refs++
		return nil
	}
	w, err := c.observer.Schedule(dir, watcher.HandlerFunc(c.HandleEvent))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDirectoryNotFound, "failed to watch directory").
			WithDetail("dir", dir)
	}
	c.watches[dir] = &dirWatch{watch: w, refs: 1}
	return nil
}

func (c *Coordinator) releaseLocked(dir string) {
	dw, ok := c.watches[dir]
	if !ok {
		return
	}
	dw.refs--
	if dw.refs > 0 {
		return
	}
	c.observer.Unschedule(dw.watch)
	delete(c.watches, dir)
}

// HandleEvent applies a directory event to every group listening to the
// directory it happened in.
func (c *Coordinator) HandleEvent(e watcher.Event) {
	var changed []int
	var err error

	switch e.Type {
	case watcher.EventCreated:
		if e.IsDir {
			return
		}
		typ := store.ClassifyPath(e.Path, c.executableExts)
		err = c.store.Update(func(doc *store.Document) error {
			for _, g := range doc.GroupsListeningTo(filepath.Dir(e.Path)) {
				if g.HasEntry(e.Path) {
					continue
				}
				g.AddEntry(e.Path, typ)
				changed = append(changed, g.ID)
			}
			if len(changed) == 0 {
				return errNoChange
			}
			return nil
		})

	case watcher.EventDeleted:
		err = c.store.Update(func(doc *store.Document) error {
			for _, g := range doc.GroupsListeningTo(filepath.Dir(e.Path)) {
				if g.RemoveEntriesByPath(e.Path) > 0 {
					changed = append(changed, g.ID)
				}
			}
			if len(changed) == 0 {
				return errNoChange
			}
			return nil
		})

	case watcher.EventMoved:
		err = c.store.Update(func(doc *store.Document) error {
			for _, g := range doc.GroupsListeningTo(filepath.Dir(e.Path)) {
				// Already listed destinations keep their entry; the source goes
				if g.HasEntry(e.Dest) {
					if g.RemoveEntriesByPath(e.Path) > 0 {
						changed = append(changed, g.ID)
					}
					continue
				}
				touched := false
				for i := range g.Entries {
					if g.Entries[i].Path == e.Path {
						g.Entries[i].Path = e.Dest
						touched = true
					}
				}
				if touched {
					changed = append(changed, g.ID)
				}
			}
			if len(changed) == 0 {
				return errNoChange
			}
			return nil
		})

	default:
		return
	}

	if err != nil {
		if !errors.Is(err, errNoChange) {
			log.WithError(err).WithField("path", e.Path).Warn("Failed to apply directory event")
		}
		return
	}

	log.WithFields(logrus.Fields{"type": e.Type, "path": e.Path, "groups": changed}).Debug("Applied directory event")
	c.entriesChanged(changed)
}
