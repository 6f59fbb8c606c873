package dirwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/store"
	"github.com/ioan45/open-my-files/watcher"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	return store.New(filepath.Join(dir, "groups.json"), filepath.Join(dir, "settings.json"))
}

func newTestCoordinator(t *testing.T, s *store.Store) *Coordinator {
	t.Helper()
	observer := watcher.NewObserver(watcher.Options{PairingWindow: 50 * time.Millisecond})
	c := New(s, observer, []string{".exe"})
	t.Cleanup(c.Close)
	return c
}

func seedGroups(t *testing.T, s *store.Store, names ...string) {
	t.Helper()
	require.NoError(t, s.Update(func(doc *store.Document) error {
		for _, name := range names {
			doc.Groups = append(doc.Groups, store.Group{ID: len(doc.Groups), Name: name, Entries: []store.Entry{}})
		}
		return nil
	}))
}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	return filepath.Clean(dir)
}

func entries(s *store.Store, groupID int) []store.Entry {
	return s.Snapshot().Groups[groupID].Entries
}

func TestHandleEvent_CreateAppends(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)

	seedGroups(t, s, "Work")
	require.NoError(t, s.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = dir
		doc.Groups[0].AddEntry(filepath.Join(dir, "a"), store.EntryOther)
		doc.Groups[0].AddEntry(filepath.Join(dir, "b"), store.EntryOther)
		return nil
	}))

	var notified []int
	c.OnEntriesChanged(func(id int) { notified = append(notified, id) })

	c.HandleEvent(watcher.Event{Type: watcher.EventCreated, Path: filepath.Join(dir, "c.txt")})

	got := entries(s, 0)
	require.Len(t, got, 3)
	assert.Equal(t, store.Entry{ID: 2, Path: filepath.Join(dir, "c.txt"), Type: store.EntryOther, Details: ""}, got[2])
	assert.Equal(t, []int{0}, notified)
}

func TestHandleEvent_CreateClassifiesAndSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)

	seedGroups(t, s, "Games", "Other")
	require.NoError(t, s.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = dir
		return nil
	}))

	exe := filepath.Join(dir, "Game.EXE")
	c.HandleEvent(watcher.Event{Type: watcher.EventCreated, Path: exe})
	c.HandleEvent(watcher.Event{Type: watcher.EventCreated, Path: exe})
	c.HandleEvent(watcher.Event{Type: watcher.EventCreated, Path: filepath.Join(dir, "sub"), IsDir: true})

	got := entries(s, 0)
	require.Len(t, got, 1)
	assert.Equal(t, store.EntryExecutable, got[0].Type)
	assert.Empty(t, entries(s, 1), "groups not listening to the directory are untouched")
}

func TestHandleEvent_DeleteRenumbers(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)

	x, y, z := filepath.Join(dir, "x"), filepath.Join(dir, "y"), filepath.Join(dir, "z")
	seedGroups(t, s, "Work")
	require.NoError(t, s.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = dir
		doc.Groups[0].AddEntry(x, store.EntryOther)
		doc.Groups[0].AddEntry(y, store.EntryOther)
		doc.Groups[0].AddEntry(z, store.EntryOther)
		return nil
	}))

	c.HandleEvent(watcher.Event{Type: watcher.EventDeleted, Path: y})

	assert.Equal(t, []store.Entry{
		{ID: 0, Path: x, Type: store.EntryOther},
		{ID: 1, Path: z, Type: store.EntryOther},
	}, entries(s, 0))
}

func TestHandleEvent_MoveUpdatesPathOnly(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)

	oldPath, newPath := filepath.Join(dir, "old.txt"), filepath.Join(dir, "new.txt")
	seedGroups(t, s, "Work")
	require.NoError(t, s.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = dir
		doc.Groups[0].AddEntry(filepath.Join(dir, "first"), store.EntryOther)
		doc.Groups[0].AddEntry(oldPath, store.EntryOther)
		doc.Groups[0].Entries[1].Details = "keep me"
		return nil
	}))

	c.HandleEvent(watcher.Event{Type: watcher.EventMoved, Path: oldPath, Dest: newPath})

	got := entries(s, 0)
	assert.Equal(t, store.Entry{ID: 1, Path: newPath, Type: store.EntryOther, Details: "keep me"}, got[1])
}

func TestHandleEvent_MoveOntoListedPathDropsSource(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)

	gone, listed := filepath.Join(dir, "gone.txt"), filepath.Join(dir, "listed.txt")
	seedGroups(t, s, "Work")
	require.NoError(t, s.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = dir
		doc.Groups[0].AddEntry(gone, store.EntryOther)
		doc.Groups[0].AddEntry(listed, store.EntryOther)
		doc.Groups[0].Entries[1].Details = "mine"
		return nil
	}))

	c.HandleEvent(watcher.Event{Type: watcher.EventMoved, Path: gone, Dest: listed})

	assert.Equal(t, []store.Entry{
		{ID: 0, Path: listed, Type: store.EntryOther, Details: "mine"},
	}, entries(s, 0))
}

func TestHandleEvent_NoMatchLeavesClean(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	seedGroups(t, s, "Work")
	_, err := s.Save(context.Background())
	require.NoError(t, err)

	c.HandleEvent(watcher.Event{Type: watcher.EventDeleted, Path: filepath.Join(tempDir(t), "nothing")})
	assert.False(t, s.Dirty())
}

func TestStartListening_Errors(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)
	seedGroups(t, s, "Work")

	err := c.StartListening(0, filepath.Join(dir, "missing"))
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDirectoryNotFound))

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	err = c.StartListening(0, file)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDirectoryNotFound))

	err = c.StartListening(4, dir)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeGroupNotFound))

	require.NoError(t, c.StartListening(0, dir))
	err = c.StartListening(0, dir)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeAlreadyListening))
	assert.Equal(t, map[string]int{dir: 1}, c.Watched())

	require.NoError(t, c.StopListening(0))
	err = c.StopListening(0)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotListening))
	assert.Empty(t, c.Watched())
}

func TestStartListening_EndToEnd(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)
	seedGroups(t, s, "Downloads")

	require.NoError(t, c.StartListening(0, dir))
	assert.Equal(t, dir, s.Snapshot().Groups[0].ListeningDir)

	var mu sync.Mutex
	var notified []int
	c.OnEntriesChanged(func(id int) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, id)
	})

	path := filepath.Join(dir, "setup.exe")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.Eventually(t, func() bool {
		return len(entries(s, 0)) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, store.EntryExecutable, entries(s, 0)[0].Type)

	renamed := filepath.Join(dir, "installer.exe")
	require.NoError(t, os.Rename(path, renamed))
	require.Eventually(t, func() bool {
		got := entries(s, 0)
		return len(got) == 1 && got[0].Path == renamed
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(renamed))
	require.Eventually(t, func() bool {
		return len(entries(s, 0)) == 0
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Len(t, notified, 3)
	mu.Unlock()
}

func TestSharedWatch(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)
	seedGroups(t, s, "A", "B")

	require.NoError(t, c.StartListening(0, dir))
	require.NoError(t, c.StartListening(1, dir))
	assert.Equal(t, map[string]int{dir: 2}, c.Watched())

	// One shared watch delivers the event once to each group
	path := filepath.Join(dir, "shared.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.Groups[0].Entries) == 1 && len(snap.Groups[1].Entries) == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, c.StopListening(0))
	assert.Equal(t, map[string]int{dir: 1}, c.Watched())

	require.NoError(t, c.StopListening(1))
	assert.Empty(t, c.Watched())
}

func TestRemoveListenerForDeletedGroup(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)
	seedGroups(t, s, "A")
	require.NoError(t, c.StartListening(0, dir))

	group := s.Snapshot().Groups[0]
	c.RemoveListenerForDeletedGroup(group)
	assert.Empty(t, c.Watched())

	c.RemoveListenerForDeletedGroup(store.Group{Name: "idle"})
}

func TestReconcile_ClearsMissingDirectory(t *testing.T) {
	root := tempDir(t)
	groupsPath := filepath.Join(root, "groups.json")
	settingsPath := filepath.Join(root, "settings.json")
	watched := filepath.Join(root, "d")
	require.NoError(t, os.Mkdir(watched, 0755))

	first := store.New(groupsPath, settingsPath)
	seedGroups(t, first, "Work")
	require.NoError(t, first.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = watched
		doc.Groups[0].AddEntry(filepath.Join(watched, "a.txt"), store.EntryOther)
		return nil
	}))
	_, err := first.Save(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(watched))

	second := store.New(groupsPath, settingsPath)
	require.NoError(t, second.LoadGroups(context.Background()))
	c := newTestCoordinator(t, second)
	require.NoError(t, c.Reconcile(context.Background()))

	g := second.Snapshot().Groups[0]
	assert.Equal(t, "", g.ListeningDir)
	assert.Len(t, g.Entries, 1, "entries are retained")
	assert.Empty(t, c.Watched())

	second.Revert()
	assert.Equal(t, "", second.Snapshot().Groups[0].ListeningDir, "revert does not resurrect the listen")
}

func TestReconcile_ArmsPersistedWatches(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)
	seedGroups(t, s, "A", "B")
	require.NoError(t, s.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = dir
		doc.Groups[1].ListeningDir = dir
		return nil
	}))

	require.NoError(t, c.Reconcile(context.Background()))
	assert.Equal(t, map[string]int{dir: 2}, c.Watched())
}

func TestReconcile_CleansListeningDir(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)
	seedGroups(t, s, "Downloads")
	require.NoError(t, s.Update(func(doc *store.Document) error {
		doc.Groups[0].ListeningDir = dir + "/"
		return nil
	}))
	_, err := s.Save(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Reconcile(context.Background()))
	assert.Equal(t, map[string]int{dir: 1}, c.Watched())
	assert.Equal(t, dir, s.Snapshot().Groups[0].ListeningDir)
	assert.False(t, s.Dirty(), "cleaning the stored directory is not an edit")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), nil, 0644))
	require.Eventually(t, func() bool {
		return len(entries(s, 0)) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, filepath.Join(dir, "c.txt"), entries(s, 0)[0].Path)
}

func TestReconcile_ReloadedSlashedDirReceivesEvents(t *testing.T) {
	root := tempDir(t)
	dir := filepath.Join(root, "d")
	require.NoError(t, os.Mkdir(dir, 0755))
	groupsPath := filepath.Join(root, "groups.json")
	content := `[{"group_id": 0, "group_name": "Downloads", "group_entries": [], "group_listening_dir": "` +
		filepath.ToSlash(dir) + `/"}]`
	require.NoError(t, os.WriteFile(groupsPath, []byte(content), 0644))

	s := store.New(groupsPath, filepath.Join(root, "settings.json"))
	require.NoError(t, s.LoadGroups(context.Background()))
	c := newTestCoordinator(t, s)
	require.NoError(t, c.Reconcile(context.Background()))
	assert.Equal(t, map[string]int{dir: 1}, c.Watched())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), nil, 0644))
	require.Eventually(t, func() bool {
		return len(entries(s, 0)) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRevertDropsUnsavedWatch(t *testing.T) {
	s := newTestStore(t)
	c := newTestCoordinator(t, s)
	dir := tempDir(t)
	seedGroups(t, s, "A")
	_, err := s.Save(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.StartListening(0, dir))
	assert.Len(t, c.Watched(), 1)

	s.Revert()
	require.NoError(t, c.Reconcile(context.Background()))
	assert.Empty(t, c.Watched())
	assert.Equal(t, "", s.Snapshot().Groups[0].ListeningDir)
}

func TestClose_StopsDelivery(t *testing.T) {
	s := newTestStore(t)
	observer := watcher.NewObserver(watcher.Options{})
	c := New(s, observer, nil)
	dir := tempDir(t)
	seedGroups(t, s, "A")
	require.NoError(t, c.StartListening(0, dir))

	c.Close()
	c.Close()
	assert.Empty(t, c.Watched())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), nil, 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, entries(s, 0))

	err := c.StartListening(0, dir)
	assert.Error(t, err)
}
