// Package ui is the interactive terminal front end of omf, a bubbletea
// program driving an app.App.
package ui

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ioan45/open-my-files/app"
	"github.com/ioan45/open-my-files/logging"
	"github.com/ioan45/open-my-files/store"
)

var log = logging.NewLogger("ui")

type screen int

const (
	screenGroups screen = iota
	screenEntries
	screenHelp
)

type promptKind int

const (
	promptNone promptKind = iota
	promptNewGroup
	promptRenameGroup
	promptAddFiles
	promptAddWeb
	promptDetails
	promptListen
)

func (p promptKind) label() string {
	switch p {
	case promptNewGroup:
		return "New group name"
	case promptRenameGroup:
		return "Rename group"
	case promptAddFiles:
		return "File paths (separate with ;)"
	case promptAddWeb:
		return "Web page address"
	case promptDetails:
		return "Details"
	case promptListen:
		return "Directory to listen to"
	default:
		return ""
	}
}

// Messages
type appEventMsg app.Event

type eventsClosedMsg struct{}

type saveDoneMsg struct {
	err  error
	quit bool
}

type model struct {
	ctx    context.Context
	app    *app.App
	events <-chan app.Event
	theme  theme
	keys   keyMap
	help   help.Model
	input  textinput.Model

	screen      screen
	prevScreen  screen
	prompt      promptKind
	promptGroup int
	confirmExit bool

	groups   []store.Group
	group    store.Group
	groupID  int
	cursor   int
	selected map[int]bool

	status string
	err    error
	dirty  bool

	width  int
	height int
}

func newModel(ctx context.Context, a *app.App, events <-chan app.Event) model {
	input := textinput.New()
	input.CharLimit = 2048

	m := model{
		ctx:      ctx,
		app:      a,
		events:   events,
		theme:    newTheme(),
		keys:     defaultKeyMap(),
		help:     help.New(),
		input:    input,
		selected: make(map[int]bool),
	}
	m.refresh()
	return m
}

func waitForEvent(ch <-chan app.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return appEventMsg(e)
	}
}

func (m model) Init() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return waitForEvent(m.events)
}

// refresh re-reads everything shown from the app.
func (m *model) refresh() {
	m.groups = m.app.Groups()
	m.dirty = m.app.Dirty()
	m.status = m.app.Status()

	if m.viewingEntries() {
		g, err := m.app.Group(m.groupID)
		if err != nil {
			m.screen = screenGroups
			m.prevScreen = screenGroups
			m.resetSelection()
		} else {
			m.group = g
		}
	}
	m.clampCursor()
}

func (m *model) viewingEntries() bool {
	return m.screen == screenEntries || (m.screen == screenHelp && m.prevScreen == screenEntries)
}

// entriesChanged refreshes the open group after entries were added,
// removed or renumbered behind the UI's back. Marks are dropped since
// their ids may now name other entries; the cursor follows its path.
func (m *model) entriesChanged() {
	var current string
	if m.cursor < len(m.group.Entries) {
		current = m.group.Entries[m.cursor].Path
	}
	m.selected = make(map[int]bool)
	if m.prompt == promptDetails {
		m.endPrompt()
	}

	m.refresh()
	if !m.viewingEntries() || current == "" {
		return
	}
	for _, e := range m.group.Entries {
		if e.Path == current {
			m.cursor = e.ID
			return
		}
	}
}

func (m *model) listLen() int {
	if m.screen == screenEntries {
		return len(m.group.Entries)
	}
	return len(m.groups)
}

func (m *model) clampCursor() {
	n := m.listLen()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	for id := range m.selected {
		if id >= n {
			delete(m.selected, id)
		}
	}
}

func (m *model) resetSelection() {
	m.cursor = 0
	m.selected = make(map[int]bool)
}

// selectedIDs returns the marked items, or the item under the cursor when
// nothing is marked.
func (m *model) selectedIDs() []int {
	if len(m.selected) == 0 {
		if m.listLen() == 0 {
			return nil
		}
		return []int{m.cursor}
	}
	ids := make([]int, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *model) setErr(err error) {
	m.err = err
	if err != nil {
		log.WithError(err).Debug("Operation failed")
	}
}

func (m *model) startPrompt(kind promptKind, value string) tea.Cmd {
	m.prompt = kind
	m.input.Placeholder = kind.label()
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *model) endPrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

func (m model) saveCmd(quit bool) tea.Cmd {
	a, ctx := m.app, m.ctx
	if quit {
		return func() tea.Msg {
			return saveDoneMsg{err: a.Flush(context.WithoutCancel(ctx)), quit: true}
		}
	}
	return func() tea.Msg {
		_, err := a.Save(ctx, false)
		return saveDoneMsg{err: err}
	}
}

// resumeWatching re-arms the watches stopped when the user asked to quit.
func (m *model) resumeWatching() {
	m.setErr(m.app.ResumeWatching(m.ctx))
	m.refresh()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case appEventMsg:
		if msg.Kind == app.EventEntriesChanged && msg.GroupID == m.groupID && m.viewingEntries() {
			m.entriesChanged()
		} else {
			m.refresh()
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, nil

	case saveDoneMsg:
		m.setErr(msg.err)
		m.refresh()
		if msg.quit {
			if msg.err == nil {
				return m, tea.Quit
			}
			m.resumeWatching()
		}
		return m, nil

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		if m.confirmExit {
			return m.updateConfirmExit(msg)
		}
		return m.updateKey(msg)
	}

	return m, nil
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.endPrompt()
		return m, nil
	case tea.KeyEnter:
		kind, value := m.prompt, m.input.Value()
		m.endPrompt()
		m.setErr(m.submit(kind, value))
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) submit(kind promptKind, value string) error {
	switch kind {
	case promptNewGroup:
		if id, ok := m.app.CreateGroup(value); ok {
			m.cursor = id
		}
		return nil
	case promptRenameGroup:
		return m.app.RenameGroup(m.promptGroup, value)
	case promptAddFiles:
		_, err := m.app.AddFileEntries(m.groupID, strings.Split(value, ";"))
		return err
	case promptAddWeb:
		_, err := m.app.AddWebEntry(m.groupID, value)
		return err
	case promptDetails:
		ids := m.selectedIDs()
		m.selected = make(map[int]bool)
		return m.app.EditDetails(m.groupID, ids, &value)
	case promptListen:
		return m.app.StartListening(m.groupID, strings.TrimSpace(value))
	}
	return nil
}

func (m model) updateConfirmExit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirmExit = false
		return m, m.saveCmd(true)
	case "n", "N":
		return m, tea.Quit
	case "esc":
		m.confirmExit = false
		m.resumeWatching()
	}
	return m, nil
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil

	if m.screen == screenHelp {
		m.screen = m.prevScreen
		m.refresh()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.app.StopWatching()
		if m.app.Dirty() {
			m.confirmExit = true
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.prevScreen = m.screen
		m.screen = screenHelp
		return m, nil

	case key.Matches(msg, m.keys.Save):
		return m, m.saveCmd(false)

	case key.Matches(msg, m.keys.Revert):
		m.setErr(m.app.Revert(m.ctx))
		m.selected = make(map[int]bool)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Startup):
		m.setErr(m.app.SetSetting(store.SettingStartWithWindows, !m.app.Settings()[store.SettingStartWithWindows]))
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.AutoSave):
		m.setErr(m.app.SetSetting(store.SettingAutoSave, !m.app.Settings()[store.SettingAutoSave]))
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if m.listLen() > 0 {
			if m.selected[m.cursor] {
				delete(m.selected, m.cursor)
			} else {
				m.selected[m.cursor] = true
			}
		}
		return m, nil
	}

	if m.screen == screenEntries {
		return m.updateEntriesKey(msg)
	}
	return m.updateGroupsKey(msg)
}

func (m model) updateGroupsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if len(m.groups) == 0 {
			return m, nil
		}
		m.groupID = m.cursor
		m.screen = screenEntries
		m.resetSelection()
		m.refresh()

	case key.Matches(msg, m.keys.Open):
		if len(m.groups) > 0 {
			_, err := m.app.OpenGroup(m.cursor)
			m.setErr(err)
		}

	case key.Matches(msg, m.keys.New):
		return m, m.startPrompt(promptNewGroup, "")

	case key.Matches(msg, m.keys.Rename):
		if len(m.groups) > 0 {
			m.promptGroup = m.cursor
			return m, m.startPrompt(promptRenameGroup, m.groups[m.cursor].Name)
		}

	case key.Matches(msg, m.keys.Delete):
		ids := m.selectedIDs()
		if len(ids) > 0 {
			m.app.DeleteGroups(ids)
			m.selected = make(map[int]bool)
			m.refresh()
		}
	}
	return m, nil
}

func (m model) updateEntriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = screenGroups
		m.cursor = m.groupID
		m.selected = make(map[int]bool)
		m.refresh()

	case key.Matches(msg, m.keys.Open):
		_, err := m.app.OpenGroup(m.groupID)
		m.setErr(err)

	case key.Matches(msg, m.keys.AddFiles):
		return m, m.startPrompt(promptAddFiles, "")

	case key.Matches(msg, m.keys.AddWeb):
		return m, m.startPrompt(promptAddWeb, "")

	case key.Matches(msg, m.keys.Details):
		ids := m.selectedIDs()
		if len(ids) > 0 {
			return m, m.startPrompt(promptDetails, m.group.Entries[ids[0]].Details)
		}

	case key.Matches(msg, m.keys.Delete):
		ids := m.selectedIDs()
		if len(ids) > 0 {
			m.setErr(m.app.DeleteEntries(m.groupID, ids))
			m.selected = make(map[int]bool)
			m.refresh()
		}

	case key.Matches(msg, m.keys.Listen):
		if m.group.ListeningDir != "" {
			m.setErr(m.app.StopListening(m.groupID))
			m.refresh()
			return m, nil
		}
		return m, m.startPrompt(promptListen, "")
	}
	return m, nil
}

// Run shows the terminal UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App) error {
	events, cancel := a.Subscribe()
	defer cancel()

	p := tea.NewProgram(newModel(ctx, a, events), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	return nil
}
