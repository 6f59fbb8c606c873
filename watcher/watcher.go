// Package watcher reports file creations, deletions and moves inside single
// directories.
//
// fsnotify has no move event: a rename arrives as Rename for the old name
// followed by Create for the new one. A Watch holds each Rename for a short
// pairing window; a Create inside the window turns it into one Moved event,
// otherwise the rename is reported as Deleted. Writes and chmods are not
// reported. Subdirectories are not watched.
//
// fsnotify exposes no rename cookie, so pairing is by timing alone: a file
// moved out of the directory followed within the window by an unrelated
// create is reported as a move between the two. A create does not pair
// when the old name exists again.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ioan45/open-my-files/logging"
)

var log = logging.NewLogger("watcher")

// DefaultPairingWindow is how long a rename waits for its create.
const DefaultPairingWindow = 100 * time.Millisecond

type EventType int

const (
	EventCreated EventType = iota
	EventDeleted
	EventMoved
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "CREATED"
	case EventDeleted:
		return "DELETED"
	case EventMoved:
		return "MOVED"
	default:
		return "UNKNOWN"
	}
}

// Event is a change inside a watched directory. Paths are absolute. Dest is
// only set for EventMoved. IsDir is only known for created and moved paths.
type Event struct {
	Type  EventType
	Path  string
	Dest  string
	IsDir bool
}

// Handler receives the events of a watch, one at a time, on the watch's
// goroutine.
type Handler interface {
	HandleEvent(Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event)

func (f HandlerFunc) HandleEvent(e Event) { f(e) }

// Options configures every watch of an Observer.
type Options struct {
	PairingWindow time.Duration
	// Ignore holds gitignore-style name patterns.
	Ignore []string
}

// Watch is one scheduled directory.
type Watch struct {
	ID  uuid.UUID
	Dir string

	fsw     *fsnotify.Watcher
	ignore  *IgnoreMatcher
	handler Handler
	window  time.Duration

	done    chan struct{}
	stopped chan struct{}
}

type heldRename struct {
	path    string
	ignored bool
}

func newWatch(dir string, handler Handler, opts Options) (*Watch, error) {
	matcher, err := NewIgnoreMatcher(dir, opts.Ignore)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	window := opts.PairingWindow
	if window <= 0 {
		window = DefaultPairingWindow
	}

	return &Watch{
		ID:      uuid.New(),
		Dir:     dir,
		fsw:     fsw,
		ignore:  matcher,
		handler: handler,
		window:  window,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

func (w *Watch) run() {
	defer close(w.stopped)

	var held *heldRename
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = nil
		timerC = nil
	}

	for {
		select {
		case <-w.done:
			stopTimer()
			return

		case <-timerC:
			timer = nil
			timerC = nil
			if held != nil && !held.ignored {
				w.deliver(Event{Type: EventDeleted, Path: held.path})
			}
			held = nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				stopTimer()
				return
			}

			switch {
			case event.Has(fsnotify.Rename):
				if event.Name == w.Dir {
					log.WithField("dir", w.Dir).Warn("Watched directory was moved")
					continue
				}
				// A second rename before the first was paired: the first left the directory
				if held != nil && !held.ignored {
					w.deliver(Event{Type: EventDeleted, Path: held.path})
				}
				stopTimer()
				held = &heldRename{path: event.Name, ignored: w.ignore.ShouldIgnore(event.Name)}
				timer = time.NewTimer(w.window)
				timerC = timer.C

			case event.Has(fsnotify.Create):
				ignored := w.ignore.ShouldIgnore(event.Name)
				isDir := statIsDir(event.Name)
				if held != nil {
					from := held
					held = nil
					stopTimer()
					switch {
					case from.ignored && ignored:
					case from.ignored:
						w.deliver(Event{Type: EventCreated, Path: event.Name, IsDir: isDir})
					case reappeared(from.path, event.Name):
						// The old name is back, so this create is unrelated to the rename
						if !ignored {
							w.deliver(Event{Type: EventCreated, Path: event.Name, IsDir: isDir})
						}
					case ignored:
						w.deliver(Event{Type: EventDeleted, Path: from.path})
					default:
						w.deliver(Event{Type: EventMoved, Path: from.path, Dest: event.Name, IsDir: isDir})
					}
					continue
				}
				if !ignored {
					w.deliver(Event{Type: EventCreated, Path: event.Name, IsDir: isDir})
				}

			case event.Has(fsnotify.Remove):
				if event.Name == w.Dir {
					log.WithField("dir", w.Dir).Warn("Watched directory was removed")
					continue
				}
				if !w.ignore.ShouldIgnore(event.Name) {
					w.deliver(Event{Type: EventDeleted, Path: event.Name})
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				stopTimer()
				return
			}
			log.WithError(err).WithField("dir", w.Dir).Warn("Watcher error")
		}
	}
}

// deliver hands e to the handler unless the watch is being stopped.
func (w *Watch) deliver(e Event) {
	select {
	case <-w.done:
		return
	default:
	}
	log.WithFields(logrus.Fields{"type": e.Type, "path": e.Path, "dest": e.Dest}).Debug("Directory event")
	w.handler.HandleEvent(e)
}

// reappeared reports whether oldPath names a file again, other than the
// one at newPath. Case-only renames on case-insensitive filesystems still
// pair.
func reappeared(oldPath, newPath string) bool {
	if oldPath == newPath {
		return true
	}
	oldInfo, err := os.Lstat(oldPath)
	if err != nil {
		return false
	}
	newInfo, err := os.Lstat(newPath)
	return err != nil || !os.SameFile(oldInfo, newInfo)
}

func statIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// stop ends the event loop and waits for it. In-flight handler calls
// complete first; none start afterwards.
func (w *Watch) stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	<-w.stopped
	if err := w.fsw.Close(); err != nil {
		log.WithError(err).WithField("dir", w.Dir).Debug("Failed to close fsnotify watcher")
	}
}

// Observer owns a set of watches that share one configuration.
type Observer struct {
	opts Options

	mu      sync.Mutex
	watches map[uuid.UUID]*Watch
	stopped bool
}

func NewObserver(opts Options) *Observer {
	return &Observer{
		opts:    opts,
		watches: make(map[uuid.UUID]*Watch),
	}
}

// Schedule starts watching dir and returns its handle. dir is made absolute.
func (o *Observer) Schedule(dir string, handler Handler) (*Watch, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, os.ErrClosed
	}

	w, err := newWatch(filepath.Clean(absDir), handler, o.opts)
	if err != nil {
		return nil, err
	}
	o.watches[w.ID] = w
	go w.run()

	log.WithFields(logrus.Fields{"dir": w.Dir, "id": w.ID}).Debug("Scheduled watch")
	return w, nil
}

// Unschedule stops w and waits for its goroutine. Unknown or already
// unscheduled watches are ignored. It must not be called from a handler.
func (o *Observer) Unschedule(w *Watch) {
	if w == nil {
		return
	}
	o.mu.Lock()
	_, ok := o.watches[w.ID]
	delete(o.watches, w.ID)
	o.mu.Unlock()
	if !ok {
		return
	}

	w.stop()
	log.WithFields(logrus.Fields{"dir": w.Dir, "id": w.ID}).Debug("Unscheduled watch")
}

// Len returns the number of scheduled watches.
func (o *Observer) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.watches)
}

// Stop unschedules every watch and refuses new ones.
func (o *Observer) Stop() {
	o.mu.Lock()
	o.stopped = true
	watches := make([]*Watch, 0, len(o.watches))
	for _, w := range o.watches {
		watches = append(watches, w)
	}
	o.watches = make(map[uuid.UUID]*Watch)
	o.mu.Unlock()

	for _, w := range watches {
		w.stop()
	}
}
