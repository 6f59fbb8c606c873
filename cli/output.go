package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/alpkeskin/gotoon"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/store"
)

// GroupJSON is the listing form of a group.
type GroupJSON struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Entries      int    `json:"entries"`
	ListeningDir string `json:"listening_dir,omitempty"`
}

// EntryJSON is the output form of an entry.
type EntryJSON struct {
	ID      int    `json:"id"`
	Path    string `json:"path"`
	Type    string `json:"type"`
	Details string `json:"details,omitempty"`
}

// GroupDetailJSON is a group with its entries.
type GroupDetailJSON struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	ListeningDir string      `json:"listening_dir,omitempty"`
	Entries      []EntryJSON `json:"entries"`
}

func toGroupJSON(g store.Group) GroupJSON {
	return GroupJSON{ID: g.ID, Name: g.Name, Entries: len(g.Entries), ListeningDir: g.ListeningDir}
}

func toGroupDetailJSON(g store.Group) GroupDetailJSON {
	entries := make([]EntryJSON, len(g.Entries))
	for i, e := range g.Entries {
		entries[i] = EntryJSON{ID: e.ID, Path: e.Path, Type: string(e.Type), Details: e.Details}
	}
	return GroupDetailJSON{ID: g.ID, Name: g.Name, ListeningDir: g.ListeningDir, Entries: entries}
}

// formatFlags holds the machine-readable output switches of a command.
type formatFlags struct {
	json bool
	toon bool
}

func (f *formatFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.json, "json", "j", false, "Output in JSON format")
	cmd.Flags().BoolVarP(&f.toon, "toon", "t", false, "Output in TOON format (token-efficient for AI agents)")
	cmd.MarkFlagsMutuallyExclusive("json", "toon")
}

// write encodes v when a machine format was requested and reports whether
// it did.
func (f *formatFlags) write(w io.Writer, v any) (bool, error) {
	switch {
	case f.json:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return true, encoder.Encode(v)
	case f.toon:
		output, err := gotoon.Encode(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode TOON: %w", err)
		}
		_, err = fmt.Fprintln(w, output)
		return true, err
	}
	return false, nil
}

var tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := ltable.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	_, err := fmt.Fprintln(w, table.String())
	return err
}

func parseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("invalid %s id %q", kind, arg))
	}
	return id, nil
}

func parseIDs(kind string, args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := parseID(kind, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
