package tui

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/redactyl/piiscan/internal/files"
	"github.com/redactyl/piiscan/internal/ignore"
	"github.com/redactyl/piiscan/internal/report"
)

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

func (m Model) addToBaseline() tea.Cmd {
	f, ok := m.Selected()
	if !ok || m.opts.BaselinePath == "" {
		return nil
	}
	path := m.opts.BaselinePath
	return func() tea.Msg {
		base, err := report.LoadBaseline(path)
		if err != nil && !os.IsNotExist(err) {
			return statusMsg(fmt.Sprintf("Error loading baseline: %v", err))
		}
		key := report.Key(f)
		base.Items[key] = true
		if err := base.Save(path); err != nil {
			return statusMsg(fmt.Sprintf("Error writing baseline: %v", err))
		}
		return baselineMsg(key)
	}
}

func (m Model) ignoreFile() tea.Cmd {
	f, ok := m.Selected()
	if !ok {
		return nil
	}
	root := m.opts.Root
	return func() tea.Msg {
		if err := files.AppendIgnore(root, ignore.FileName, f.Path); err != nil {
			return statusMsg(fmt.Sprintf("Error writing %s: %v", ignore.FileName, err))
		}
		return statusMsg(fmt.Sprintf("Added %s to %s", f.Path, ignore.FileName))
	}
}

func (m Model) copyLocation() tea.Cmd {
	f, ok := m.Selected()
	if !ok {
		return func() tea.Msg { return statusMsg("No finding selected") }
	}
	loc := fmt.Sprintf("%s:%d:%d", f.Path, f.Line, f.Column)
	return func() tea.Msg {
		if err := clipboardWrite(loc); err != nil {
			return statusMsg(fmt.Sprintf("Clipboard error: %v", err))
		}
		return statusMsg("Copied: " + loc)
	}
}

// export writes the visible findings as JSON next to the scan root.
func (m Model) export() tea.Cmd {
	visible := m.Visible()
	if len(visible) == 0 {
		return func() tea.Msg { return statusMsg("No findings to export") }
	}
	name := filepath.Join(m.opts.Root, "piiscan-export-"+time.Now().Format("20060102-150405")+".json")
	return func() tea.Msg {
		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, visible); err != nil {
			return statusMsg(fmt.Sprintf("Export error: %v", err))
		}
		if err := os.WriteFile(name, buf.Bytes(), 0600); err != nil {
			return statusMsg(fmt.Sprintf("Export error: %v", err))
		}
		return statusMsg(fmt.Sprintf("Exported %d findings to %s", len(visible), name))
	}
}
