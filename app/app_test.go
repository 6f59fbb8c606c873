package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioan45/open-my-files/config"
	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/store"
)

type call struct {
	kind   string
	target string
}

type fakeLauncher struct {
	mu       sync.Mutex
	calls    []call
	startup  []bool
	failURLs map[string]bool
}

func (f *fakeLauncher) OpenFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"file", path})
	return nil
}

func (f *fakeLauncher) OpenURL(url, browserPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failURLs[url] {
		return errors.New("browser crashed")
	}
	f.calls = append(f.calls, call{"url", url})
	return nil
}

func (f *fakeLauncher) SetLaunchAtStartup(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startup = append(f.startup, enabled)
	return nil
}

func (f *fakeLauncher) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestApp(t *testing.T) (*App, *fakeLauncher) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	launcher := &fakeLauncher{}
	a := New(cfg, launcher, "")
	a.sleep = func(time.Duration) {}
	t.Cleanup(a.Close)

	require.NoError(t, a.Start(context.Background()))
	return a, launcher
}

func TestCreateGroup(t *testing.T) {
	a, _ := newTestApp(t)

	assert.Empty(t, a.Groups())

	id, ok := a.CreateGroup("Work")
	require.True(t, ok)
	assert.Equal(t, 0, id)
	assert.Equal(t, []store.Group{{ID: 0, Name: "Work", Entries: []store.Entry{}}}, a.Groups())
	assert.True(t, a.Dirty())

	_, ok = a.CreateGroup("   ")
	assert.False(t, ok)
	assert.Len(t, a.Groups(), 1)
}

func TestDeleteGroups(t *testing.T) {
	a, _ := newTestApp(t)
	a.CreateGroup("A")
	a.CreateGroup("B")
	a.CreateGroup("C")
	a.CreateGroup("D")

	a.DeleteGroups([]int{0, 2, 99})

	groups := a.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, 0, groups[0].ID)
	assert.Equal(t, "B", groups[0].Name)
	assert.Equal(t, 1, groups[1].ID)
	assert.Equal(t, "D", groups[1].Name)
}

func TestDeleteGroups_ReleasesWatch(t *testing.T) {
	a, _ := newTestApp(t)
	dir := t.TempDir()
	a.CreateGroup("Downloads")
	require.NoError(t, a.StartListening(0, dir))
	require.Len(t, a.Watched(), 1)

	a.DeleteGroups([]int{0})
	assert.Empty(t, a.Watched())
	assert.Empty(t, a.Groups())
}

func TestEntries(t *testing.T) {
	a, _ := newTestApp(t)
	a.CreateGroup("Work")

	n, err := a.AddFileEntries(0, []string{"/bin/tool.exe", " ", "/docs/notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	added, err := a.AddWebEntry(0, "https://example.com")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = a.AddWebEntry(0, "")
	require.NoError(t, err)
	assert.False(t, added)

	g, err := a.Group(0)
	require.NoError(t, err)
	assert.Equal(t, []store.Entry{
		{ID: 0, Path: "/bin/tool.exe", Type: store.EntryExecutable},
		{ID: 1, Path: "/docs/notes.txt", Type: store.EntryOther},
		{ID: 2, Path: "https://example.com", Type: store.EntryWebPage},
	}, g.Entries)

	text := "read me"
	require.NoError(t, a.EditDetails(0, []int{0, 2}, &text))
	require.NoError(t, a.EditDetails(0, []int{1}, nil))

	require.NoError(t, a.DeleteEntries(0, []int{1}))

	g, err = a.Group(0)
	require.NoError(t, err)
	assert.Equal(t, []store.Entry{
		{ID: 0, Path: "/bin/tool.exe", Type: store.EntryExecutable, Details: "read me"},
		{ID: 1, Path: "https://example.com", Type: store.EntryWebPage, Details: "read me"},
	}, g.Entries)
}

func TestOperationsOnMissingGroup(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := a.AddFileEntries(3, []string{"/x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeGroupNotFound))

	_, err = a.AddWebEntry(3, "https://example.com")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeGroupNotFound))

	assert.True(t, apperrors.Is(a.DeleteEntries(3, []int{0}), apperrors.ErrCodeGroupNotFound))

	text := "x"
	assert.True(t, apperrors.Is(a.EditDetails(3, []int{0}, &text), apperrors.ErrCodeGroupNotFound))

	_, err = a.OpenGroup(3)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeGroupNotFound))

	assert.False(t, a.Dirty())
}

func TestSaveAndRevert(t *testing.T) {
	a, launcher := newTestApp(t)
	ctx := context.Background()

	a.CreateGroup("Work")
	require.NoError(t, a.SetSetting(store.SettingStartWithWindows, true))

	saved, err := a.Save(ctx, false)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.False(t, a.Dirty())
	assert.Contains(t, a.Status(), "Changes have been successfully saved!")
	assert.Equal(t, []bool{true}, launcher.startup)

	_, err = os.Stat(filepath.Join(a.Config().DataDir, config.GroupsFileName))
	require.NoError(t, err)

	a.CreateGroup("Scratch")
	require.NoError(t, a.SetSetting(store.SettingStartWithWindows, false))
	require.NoError(t, a.Revert(ctx))

	assert.Len(t, a.Groups(), 1)
	assert.True(t, a.Settings()[store.SettingStartWithWindows])
	assert.Contains(t, a.Status(), "Changes have been reverted!")
}

func TestSave_OverlapIsDropped(t *testing.T) {
	a, _ := newTestApp(t)
	a.CreateGroup("Work")

	a.saveMu.Lock()
	saved, err := a.Save(context.Background(), true)
	a.saveMu.Unlock()

	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, "", a.Status(), "dropped saves leave the status alone")
	assert.True(t, a.Dirty())
}

func TestSave_StartupFollowsSavedSetting(t *testing.T) {
	a, launcher := newTestApp(t)
	require.NoError(t, a.SetSetting(store.SettingStartWithWindows, true))

	// An edit lands while the save is writing.
	var once sync.Once
	a.store.OnDirtyChange(func(dirty bool) {
		if !dirty {
			once.Do(func() {
				require.NoError(t, a.SetSetting(store.SettingStartWithWindows, false))
			})
		}
	})

	saved, err := a.Save(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, a.Dirty())
	assert.Equal(t, []bool{true}, launcher.startup, "registration matches what was written")
}

func TestFlush_WaitsOutRunningSave(t *testing.T) {
	a, _ := newTestApp(t)
	a.CreateGroup("Work")

	a.saveMu.Lock()
	done := make(chan error, 1)
	go func() { done <- a.Flush(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	assert.True(t, a.Dirty())
	a.saveMu.Unlock()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("flush did not finish")
	}
	assert.False(t, a.Dirty())
}

func TestFlush_Cancelled(t *testing.T) {
	a, _ := newTestApp(t)
	a.CreateGroup("Work")

	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.Flush(ctx), context.Canceled)
}

func TestStopWatching(t *testing.T) {
	a, _ := newTestApp(t)
	dir := t.TempDir()
	a.CreateGroup("Downloads")
	require.NoError(t, a.StartListening(0, dir))
	_, err := a.Save(context.Background(), false)
	require.NoError(t, err)

	a.StopWatching()
	assert.Empty(t, a.Watched())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), nil, 0644))
	time.Sleep(300 * time.Millisecond)
	assert.False(t, a.Dirty(), "no event is applied once watching stopped")

	g, err := a.Group(0)
	require.NoError(t, err)
	assert.Equal(t, dir, g.ListeningDir, "the document keeps the listen")

	require.NoError(t, a.ResumeWatching(context.Background()))
	assert.Equal(t, map[string]int{dir: 1}, a.Watched())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "later.txt"), nil, 0644))
	require.Eventually(t, func() bool {
		g, err := a.Group(0)
		return err == nil && len(g.Entries) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSetSetting_Unknown(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.SetSetting("dark_mode", true)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput))
	assert.False(t, a.Dirty())
}

func TestRevert_DropsUnsavedWatch(t *testing.T) {
	a, _ := newTestApp(t)
	a.CreateGroup("Downloads")
	_, err := a.Save(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, a.StartListening(0, t.TempDir()))
	require.Len(t, a.Watched(), 1)

	require.NoError(t, a.Revert(context.Background()))
	assert.Empty(t, a.Watched())
	g, err := a.Group(0)
	require.NoError(t, err)
	assert.Equal(t, "", g.ListeningDir)
}

func TestStart_CorruptFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	require.NoError(t, os.WriteFile(cfg.GroupsPath(), []byte("[{"), 0644))

	a := New(cfg, &fakeLauncher{}, "")
	defer a.Close()

	err := a.Start(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDecodeFailed))
}

func TestOpenGroup(t *testing.T) {
	a, launcher := newTestApp(t)
	dir := t.TempDir()
	existing := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	var slept []time.Duration
	a.sleep = func(d time.Duration) { slept = append(slept, d) }

	a.CreateGroup("Morning")
	_, err := a.AddWebEntry(0, "https://one.example")
	require.NoError(t, err)
	_, err = a.AddFileEntries(0, []string{existing, filepath.Join(dir, "missing.txt")})
	require.NoError(t, err)
	_, err = a.AddWebEntry(0, "https://two.example")
	require.NoError(t, err)
	_, err = a.AddWebEntry(0, "https://three.example")
	require.NoError(t, err)

	done, err := a.OpenGroup(0)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("OpenGroup did not finish")
	}

	assert.Equal(t, []call{
		{"url", "https://one.example"},
		{"file", existing},
		{"url", "https://two.example"},
		{"url", "https://three.example"},
	}, launcher.recorded())
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, slept, "only the second tab waits")
	assert.Contains(t, a.Status(), `Group "Morning" opened.`)
}

func TestOpenGroup_FailedLaunchIsSkipped(t *testing.T) {
	a, launcher := newTestApp(t)
	launcher.failURLs = map[string]bool{"https://broken.example": true}

	a.CreateGroup("Web")
	_, err := a.AddWebEntry(0, "https://broken.example")
	require.NoError(t, err)
	_, err = a.AddWebEntry(0, "https://fine.example")
	require.NoError(t, err)

	done, err := a.OpenGroup(0)
	require.NoError(t, err)
	<-done

	assert.Equal(t, []call{{"url", "https://fine.example"}}, launcher.recorded())
}

func TestEvents(t *testing.T) {
	a, _ := newTestApp(t)
	events, cancel := a.Subscribe()
	defer cancel()

	a.CreateGroup("Work")

	var kinds []EventKind
	timeout := time.After(time.Second)
	for len(kinds) < 2 {
		select {
		case e := <-events:
			kinds = append(kinds, e.Kind)
		case <-timeout:
			t.Fatalf("got only %v", kinds)
		}
	}
	assert.ElementsMatch(t, []EventKind{EventDirtyChanged, EventGroupsChanged}, kinds)
}

func TestEvents_SlowSubscriberDrops(t *testing.T) {
	a, _ := newTestApp(t)
	_, cancel := a.Subscribe()
	defer cancel()

	// Nobody reads: publishing must not block
	finished := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			a.CreateGroup("G")
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(3 * time.Second):
		t.Fatal("publishing blocked on a full subscriber")
	}
}

func TestClose_ClosesSubscriptions(t *testing.T) {
	a, _ := newTestApp(t)
	events, _ := a.Subscribe()

	a.Close()
	_, ok := <-events
	assert.False(t, ok)
}

func TestWatchFeedsEntries(t *testing.T) {
	a, _ := newTestApp(t)
	events, cancel := a.Subscribe()
	defer cancel()

	dir := t.TempDir()
	a.CreateGroup("Downloads")
	require.NoError(t, a.StartListening(0, dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.exe"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		g, err := a.Group(0)
		return err == nil && len(g.Entries) == 1
	}, 3*time.Second, 10*time.Millisecond)

	g, err := a.Group(0)
	require.NoError(t, err)
	assert.Equal(t, store.EntryExecutable, g.Entries[0].Type)

	sawEntries := false
	for !sawEntries {
		select {
		case e := <-events:
			sawEntries = e.Kind == EventEntriesChanged && e.GroupID == 0
		case <-time.After(time.Second):
			t.Fatal("no entries_changed event")
		}
	}
}

func TestLoad_DoesNotArmWatches(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	listenDir := t.TempDir()
	require.NoError(t, store.SaveGroups(cfg.GroupsPath(), []store.Group{
		{ID: 0, Name: "Downloads", Entries: []store.Entry{}, ListeningDir: listenDir},
	}))

	a := New(cfg, &fakeLauncher{}, "")
	t.Cleanup(a.Close)
	require.NoError(t, a.Load(context.Background()))

	assert.Empty(t, a.Watched())
	g, err := a.Group(0)
	require.NoError(t, err)
	assert.Equal(t, listenDir, g.ListeningDir)
}
