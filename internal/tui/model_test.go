package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/types"
)

func sample() []types.FileFinding {
	return []types.FileFinding{
		{Path: "users.csv", Line: 2, Column: 7, Match: "jane@example.com",
			Finding: types.Finding{EntityType: "EMAIL_ADDRESS", Start: 20, End: 36, Score: 1, Recognizer: "email"}},
		{Path: "notes.md", Line: 1, Column: 1, Match: "212-555-0199",
			Finding: types.Finding{EntityType: "PHONE_NUMBER", Start: 0, End: 12, Score: 0.6, Recognizer: "phone"}},
		{Path: "notes.md", Line: 3, Column: 5, Match: "Jane",
			Finding: types.Finding{EntityType: "PERSON", Start: 40, End: 44, Score: 0.3, Recognizer: "ner"}},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msgs to m. Commands from action keys run synchronously and
// their result is fed back; other commands (cursor blink, ticks) are dropped.
func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = next.(Model)
		km, ok := msg.(tea.KeyMsg)
		if !ok || cmd == nil || !strings.Contains("biye", km.String()) {
			continue
		}
		if out := cmd(); out != nil {
			next, _ = m.Update(out)
			m = next.(Model)
		}
	}
	return m
}

func newModel(t *testing.T, opts Options) Model {
	t.Helper()
	isolateConfig(t)
	m := New(sample(), opts, DefaultPrefs())
	return send(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
}

func TestModel_LevelFilterAndClear(t *testing.T) {
	m := newModel(t, Options{Root: t.TempDir()})
	assert.Len(t, m.Visible(), 3)

	m = send(t, m, key("1"))
	require.Len(t, m.Visible(), 1)
	assert.Equal(t, "EMAIL_ADDRESS", m.Visible()[0].EntityType)

	m = send(t, m, key("3"))
	require.Len(t, m.Visible(), 1)
	assert.Equal(t, "PERSON", m.Visible()[0].EntityType)

	m = send(t, m, key("esc"))
	assert.Len(t, m.Visible(), 3)
}

func TestModel_Search(t *testing.T) {
	m := newModel(t, Options{Root: t.TempDir()})
	m = send(t, m, key("/"), key("n"), key("o"), key("t"), key("e"), key("s"), key("enter"))
	assert.False(t, m.searchMode)
	assert.Len(t, m.Visible(), 2)

	m = send(t, m, key("/"), key("esc"))
	assert.Len(t, m.Visible(), 3)
}

func TestModel_MatchesMaskedByDefault(t *testing.T) {
	m := newModel(t, Options{Root: t.TempDir()})
	view := m.View()
	assert.NotContains(t, view, "jane@example.com")

	m = send(t, m, key("s"))
	assert.False(t, m.prefs.HideMatches)
	assert.Contains(t, m.View(), "jane@example.com")
}

func TestModel_ContextFromFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "users.csv"),
		[]byte("name,email\nJane, jane@example.com\nend\n"), 0644))
	m := newModel(t, Options{Root: root})

	f, ok := m.Selected()
	require.True(t, ok)
	ctx := m.context(f)
	assert.Contains(t, ctx, "     1 | ")
	assert.Contains(t, ctx, ">    2 | ")
	assert.NotContains(t, ctx, "jane@example.com")

	assert.Contains(t, m.context(types.FileFinding{Path: "a.zip::b.txt", Line: 1}), "no file context")
}

func TestModel_BaselineMarksRow(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, report.DefaultBaselinePath)
	m := newModel(t, Options{Root: root, BaselinePath: path})

	m = send(t, m, key("b"))
	base, err := report.LoadBaseline(path)
	require.NoError(t, err)
	assert.Len(t, base.Items, 1)
	assert.True(t, strings.HasPrefix(m.table.Rows()[0][0], "(b) "))

	// A new model picks the baseline up from disk.
	m2 := New(sample(), Options{Root: root, BaselinePath: path}, DefaultPrefs())
	assert.True(t, strings.HasPrefix(m2.table.Rows()[0][0], "(b) "))
}

func TestModel_IgnoreAppendsPath(t *testing.T) {
	root := t.TempDir()
	m := newModel(t, Options{Root: root})
	m = send(t, m, key("i"))
	b, err := os.ReadFile(filepath.Join(root, ".piiscanignore"))
	require.NoError(t, err)
	assert.Equal(t, "users.csv\n", string(b))
	assert.Contains(t, m.status, "users.csv")
}

func TestModel_CopyLocation(t *testing.T) {
	var got string
	old := clipboardWrite
	clipboardWrite = func(s string) error { got = s; return nil }
	defer func() { clipboardWrite = old }()

	m := newModel(t, Options{Root: t.TempDir()})
	m = send(t, m, key("down"), key("y"))
	assert.Equal(t, "notes.md:1:1", got)
	assert.Equal(t, "Copied: notes.md:1:1", m.status)

	clipboardWrite = func(string) error { return errors.New("no clipboard") }
	m = send(t, m, key("y"))
	assert.Contains(t, m.status, "Clipboard error")
}

func TestModel_Rescan(t *testing.T) {
	m := newModel(t, Options{Root: t.TempDir(), Rescan: func() ([]types.FileFinding, error) {
		return sample()[:1], nil
	}})
	next, cmd := m.Update(key("r"))
	m = next.(Model)
	assert.True(t, m.scanning)
	assert.Contains(t, m.View(), "Rescanning")
	require.NotNil(t, cmd)

	next, _ = m.Update(findingsMsg(sample()[:1]))
	m = next.(Model)
	assert.False(t, m.scanning)
	assert.Len(t, m.Visible(), 1)

	noRescan := newModel(t, Options{Root: t.TempDir()})
	noRescan = send(t, noRescan, key("r"))
	assert.Equal(t, "Rescan not available", noRescan.status)
}

func TestModel_Export(t *testing.T) {
	root := t.TempDir()
	m := newModel(t, Options{Root: root})
	m = send(t, m, key("1"), key("e"))
	matches, err := filepath.Glob(filepath.Join(root, "piiscan-export-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), "EMAIL_ADDRESS")
	assert.NotContains(t, string(b), "PHONE_NUMBER")
}

func TestModel_EmptyAndQuit(t *testing.T) {
	isolateConfig(t)
	m := New(nil, Options{}, DefaultPrefs())
	assert.Equal(t, "Initializing...", m.View())
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, m.View(), "No PII found")

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, "", next.(Model).View())
}
