package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ioan45/open-my-files/platform"
	"github.com/ioan45/open-my-files/store"
)

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.screen {
	case screenHelp:
		b.WriteString(m.renderHelp())
	case screenEntries:
		b.WriteString(m.renderEntries())
	default:
		b.WriteString(m.renderGroups())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m model) renderHeader() string {
	title := m.theme.title.Render("Open My Files")
	if m.screen == screenEntries {
		title += m.theme.muted.Render(" › ") + m.theme.title.Render(m.group.Name)
	}
	if m.dirty {
		title += m.theme.dirty.Render("  ● unsaved changes")
	}

	settings := m.app.Settings()
	flags := fmt.Sprintf("auto save: %s  start with system: %s",
		onOff(settings[store.SettingAutoSave]), onOff(settings[store.SettingStartWithWindows]))
	return title + "\n" + m.theme.muted.Render(flags)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (m model) renderRow(i int, text string) string {
	marker := "  "
	if i == m.cursor {
		marker = m.theme.cursor.Render("> ")
	}
	check := "[ ] "
	if m.selected[i] {
		check = m.theme.selected.Render("[x] ")
	}
	if i == m.cursor {
		text = m.theme.cursor.Render(text)
	}
	return marker + check + text
}

func (m model) renderGroups() string {
	if len(m.groups) == 0 {
		return m.theme.muted.Render("No groups yet. Press n to create one.") + "\n"
	}

	var b strings.Builder
	for i, g := range m.groups {
		line := fmt.Sprintf("%s %s", g.Name, m.theme.muted.Render(fmt.Sprintf("(%d)", len(g.Entries))))
		if g.ListeningDir != "" {
			line += m.theme.accent.Render("  ⟳ " + g.ListeningDir)
		}
		b.WriteString(m.renderRow(i, line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderEntries() string {
	var b strings.Builder
	if m.group.ListeningDir != "" {
		b.WriteString(m.theme.accent.Render("Listening to " + m.group.ListeningDir))
		b.WriteString("\n\n")
	}
	if len(m.group.Entries) == 0 {
		b.WriteString(m.theme.muted.Render("No entries. Press f to add files or w to add a web page."))
		b.WriteString("\n")
		return b.String()
	}

	for i, e := range m.group.Entries {
		line := fmt.Sprintf("%-10s %s", typeLabel(e.Type), displayName(e))
		if e.Details != "" {
			line += m.theme.muted.Render("  " + e.Details)
		}
		b.WriteString(m.renderRow(i, line))
		b.WriteString("\n")
	}
	return b.String()
}

func typeLabel(t store.EntryType) string {
	switch t {
	case store.EntryExecutable:
		return "[exe]"
	case store.EntryWebPage:
		return "[web]"
	default:
		return "[file]"
	}
}

func displayName(e store.Entry) string {
	if e.Type == store.EntryWebPage {
		return e.Path
	}
	return filepath.Base(e.Path) + "  " + filepath.Dir(e.Path)
}

func (m model) renderHelp() string {
	var b strings.Builder
	b.WriteString("Groups\n")
	b.WriteString(m.help.FullHelpView(groupsHelp(m.keys).FullHelp()))
	b.WriteString("\n\nInside a group\n")
	b.WriteString(m.help.FullHelpView(entriesHelp(m.keys).FullHelp()))
	b.WriteString("\n\n")
	b.WriteString("A listening group adds files created in its directory and drops deleted ones.\n")
	b.WriteString("More information: " + m.theme.accent.Render(platform.ProjectURL) + "\n")
	b.WriteString(m.theme.muted.Render("Press any key to go back."))
	return m.theme.panel.Render(b.String()) + "\n"
}

func (m model) renderFooter() string {
	var b strings.Builder

	if m.prompt != promptNone {
		b.WriteString(m.theme.prompt.Render(m.prompt.label() + ": "))
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.theme.muted.Render("enter to confirm, esc to cancel"))
		b.WriteString("\n")
		return b.String()
	}

	if m.confirmExit {
		b.WriteString(m.theme.dirty.Render("You have unsaved changes. Save before exiting? [y]es / [n]o / esc"))
		b.WriteString("\n")
		return b.String()
	}

	if m.err != nil {
		b.WriteString(m.theme.err.Render(m.err.Error()))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.theme.status.Render(m.status))
		b.WriteString("\n")
	}

	switch m.screen {
	case screenEntries:
		b.WriteString(m.help.ShortHelpView(entriesHelp(m.keys).ShortHelp()))
	case screenGroups:
		b.WriteString(m.help.ShortHelpView(groupsHelp(m.keys).ShortHelp()))
	}
	b.WriteString("\n")
	return b.String()
}
