// Package tui is an interactive browser for scan findings built on
// bubbletea. It shows a findings table, a detail pane with highlighted file
// context, and actions to baseline, ignore and copy findings.
package tui

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/redactyl/piiscan/internal/redact"
	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/types"
)

var (
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	statsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("237"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Bold(true)

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(1, 4)

	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

const defaultStatus = "q: quit | ?: help | /: search | 1-3: level | b: baseline | i: ignore | y: copy | r: rescan"

// Options configures a browser session.
type Options struct {
	// Root is the scan root; finding paths are relative to it.
	Root         string
	BaselinePath string
	// Rescan reruns the scan; nil disables the r key.
	Rescan func() ([]types.FileFinding, error)
	// Timestamp marks findings as loaded from a previous scan.
	Timestamp time.Time
}

type (
	findingsMsg []types.FileFinding
	statusMsg   string
	baselineMsg string
)

// Model is the bubbletea model of the browser.
type Model struct {
	opts     Options
	prefs    Prefs
	table    table.Model
	viewport viewport.Model
	spinner  spinner.Model
	search   textinput.Model

	findings  []types.FileFinding
	visible   []int // indices into findings after filters
	baselined map[string]bool

	query       string
	levelFilter string

	searchMode bool
	scanning   bool
	showHelp   bool
	ready      bool
	quitting   bool

	width, height int
	status        string
	statusUntil   time.Time
}

// New returns a browser over findings.
func New(findings []types.FileFinding, opts Options, prefs Prefs) Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1)
	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	t.SetStyles(s)

	// Line spinner avoids Braille characters that render poorly on some terminals
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	ti := textinput.New()
	ti.Placeholder = "Search path, entity, or recognizer..."
	ti.CharLimit = 100
	ti.Width = 50
	ti.Prompt = "/ "

	if prefs.ContextLines < 1 {
		prefs.ContextLines = DefaultPrefs().ContextLines
	}
	m := Model{
		opts:      opts,
		prefs:     prefs,
		table:     t,
		viewport:  viewport.New(80, 10),
		spinner:   sp,
		search:    ti,
		findings:  findings,
		baselined: map[string]bool{},
		status:    defaultStatus,
	}
	if opts.BaselinePath != "" {
		if base, err := report.LoadBaseline(opts.BaselinePath); err == nil {
			m.baselined = base.Items
		}
	}
	m.applyFilters()
	return m
}

func columns(width int) []table.Column {
	loc := width - 8 - 18 - 12 - 24 - 12
	if loc < 20 {
		loc = 20
	}
	return []table.Column{
		{Title: "Score", Width: 8},
		{Title: "Entity", Width: 18},
		{Title: "Location", Width: loc},
		{Title: "Recognizer", Width: 12},
		{Title: "Match", Width: 24},
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Selected returns the finding under the cursor.
func (m Model) Selected() (types.FileFinding, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return types.FileFinding{}, false
	}
	return m.findings[m.visible[idx]], true
}

// Visible returns the findings that pass the active filters.
func (m Model) Visible() []types.FileFinding {
	out := make([]types.FileFinding, 0, len(m.visible))
	for _, i := range m.visible {
		out = append(out, m.findings[i])
	}
	return out
}

func (m *Model) applyFilters() {
	q := strings.ToLower(m.query)
	m.visible = m.visible[:0]
	for i, f := range m.findings {
		if m.levelFilter != "" && report.Level(f.Score) != m.levelFilter {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(f.Path+" "+f.EntityType+" "+f.Recognizer), q) {
			continue
		}
		m.visible = append(m.visible, i)
	}
	m.rebuildRows()
}

func (m *Model) rebuildRows() {
	rows := make([]table.Row, 0, len(m.visible))
	for _, i := range m.visible {
		f := m.findings[i]
		score := strconv.FormatFloat(f.Score, 'f', 2, 64)
		if m.baselined[report.Key(f)] {
			score = "(b) " + score
		}
		rows = append(rows, table.Row{
			score,
			f.EntityType,
			fmt.Sprintf("%s:%d:%d", f.Path, f.Line, f.Column),
			f.Recognizer,
			m.display(f.Match),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
	m.updateDetail()
}

func (m Model) display(match string) string {
	if m.prefs.HideMatches {
		return redact.MaskValue(match)
	}
	return match
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusUntil = time.Now().Add(4 * time.Second)
}

func (m *Model) layout() {
	tableHeight := m.height/2 - 4
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.table.SetHeight(tableHeight)
	m.table.SetWidth(m.width - 2)
	m.table.SetColumns(columns(m.width - 2))
	m.viewport.Width = m.width - 2
	m.viewport.Height = m.height - tableHeight - 8
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.updateDetail()
}

func (m *Model) updateDetail() {
	f, ok := m.Selected()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  score %.2f (%s)\n", keyStyle.Render(f.EntityType), f.Recognizer, f.Score, report.Level(f.Score))
	fmt.Fprintf(&b, "%s:%d:%d\n", f.Path, f.Line, f.Column)
	if e := f.Explanation; e != nil {
		if e.PatternName != "" {
			fmt.Fprintf(&b, "pattern: %s\n", e.PatternName)
		}
		if e.SupportiveContextWord != "" {
			fmt.Fprintf(&b, "context word: %q (+%.2f)\n", e.SupportiveContextWord, e.ScoreContextImprovement)
		}
		if e.Textual != "" {
			fmt.Fprintln(&b, e.Textual)
		}
	}
	b.WriteString("\n")
	b.WriteString(m.context(f))
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

// context renders the lines around f with syntax highlighting. Findings
// inside archives or git history have no file on disk to read.
func (m Model) context(f types.FileFinding) string {
	if strings.Contains(f.Path, "::") || strings.Contains(f.Path, "@") {
		return "(no file context for archive or history findings)"
	}
	lines, first, err := readFileContext(filepath.Join(m.opts.Root, f.Path), f.Line, m.prefs.ContextLines)
	if err != nil {
		return fmt.Sprintf("(context unavailable: %v)", err)
	}
	var b strings.Builder
	for i, line := range lines {
		n := first + i
		marker := "  "
		if n == f.Line {
			marker = "> "
			if m.prefs.HideMatches && f.Match != "" {
				line = strings.ReplaceAll(line, f.Match, redact.MaskValue(f.Match))
			}
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", marker, n, highlightLine(line, f.Path))
	}
	return b.String()
}

func readFileContext(path string, target, around int) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	start := max(target-around, 1)
	end := target + around
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		if n >= start && n <= end {
			lines = append(lines, sc.Text())
		}
		if n > end {
			break
		}
	}
	return lines, start, sc.Err()
}

func highlightLine(line, filename string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		return line
	}
	lexer = chroma.Coalesce(lexer)
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return line
	}
	it, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, it); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (m *Model) rescan() tea.Cmd {
	rescan := m.opts.Rescan
	return func() tea.Msg {
		fs, err := rescan()
		if err != nil {
			return statusMsg(fmt.Sprintf("Scan error: %v", err))
		}
		return findingsMsg(fs)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case findingsMsg:
		m.scanning = false
		m.findings = []types.FileFinding(msg)
		m.opts.Timestamp = time.Time{}
		m.applyFilters()
		m.setStatus(fmt.Sprintf("Rescan complete: %d findings", len(m.findings)))
		return m, nil

	case statusMsg:
		m.scanning = false
		m.setStatus(string(msg))
		return m, nil

	case baselineMsg:
		m.baselined[string(msg)] = true
		m.rebuildRows()
		m.setStatus("Added finding to baseline")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.scanning {
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}
	if m.searchMode {
		switch msg.String() {
		case "enter":
			m.searchMode = false
			m.search.Blur()
		case "esc":
			m.searchMode = false
			m.search.Blur()
			m.search.SetValue("")
			m.query = ""
			m.applyFilters()
		default:
			m.search, cmd = m.search.Update(msg)
			m.query = m.search.Value()
			m.applyFilters()
		}
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "/":
		m.searchMode = true
		m.search.SetValue(m.query)
		return m, m.search.Focus()
	case "1", "2", "3":
		m.levelFilter = map[string]string{"1": "high", "2": "medium", "3": "low"}[msg.String()]
		m.applyFilters()
		m.setStatus(fmt.Sprintf("Showing %s findings only (Esc to clear)", m.levelFilter))
		return m, nil
	case "esc":
		m.levelFilter, m.query = "", ""
		m.search.SetValue("")
		m.applyFilters()
		return m, nil
	case "s":
		m.prefs.HideMatches = !m.prefs.HideMatches
		_ = SavePrefs(m.prefs)
		m.rebuildRows()
		return m, nil
	case "+", "=":
		m.prefs.ContextLines = min(m.prefs.ContextLines+2, 20)
		m.updateDetail()
		return m, nil
	case "-":
		m.prefs.ContextLines = max(m.prefs.ContextLines-2, 1)
		m.updateDetail()
		return m, nil
	case "r":
		if m.opts.Rescan == nil {
			m.setStatus("Rescan not available")
			return m, nil
		}
		m.scanning = true
		return m, tea.Batch(m.spinner.Tick, m.rescan())
	case "b":
		return m, m.addToBaseline()
	case "i":
		return m, m.ignoreFile()
	case "y":
		return m, m.copyLocation()
	case "e":
		return m, m.export()
	}

	m.table, cmd = m.table.Update(msg)
	m.updateDetail()
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}
	if m.scanning {
		box := popupStyle.Width(40).Align(lipgloss.Center).Render(m.spinner.View() + "  Rescanning...")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popupStyle.Render(helpText))
	}

	var high, medium, low int
	for _, f := range m.Visible() {
		switch report.Level(f.Score) {
		case "high":
			high++
		case "medium":
			medium++
		default:
			low++
		}
	}
	stats := fmt.Sprintf("Showing: %d/%d  |  %s %d  |  %s %d  |  %s %d",
		len(m.visible), len(m.findings),
		highStyle.Render("High:"), high,
		mediumStyle.Render("Medium:"), medium,
		lowStyle.Render("Low:"), low)
	if m.levelFilter != "" || m.query != "" {
		stats += fmt.Sprintf("  [FILTER: %s %s]", m.levelFilter, m.query)
	}
	if !m.opts.Timestamp.IsZero() {
		stats += "  (cached " + m.opts.Timestamp.Format("Jan 2 15:04") + ")"
	}

	var detail string
	switch {
	case len(m.findings) == 0:
		detail = "No PII found. Press 'r' to rescan."
	case len(m.visible) == 0:
		detail = "No findings match filter. Press 'Esc' to clear."
	default:
		detail = m.viewport.View()
	}

	status := m.status
	if !m.statusUntil.IsZero() && time.Now().After(m.statusUntil) {
		status = defaultStatus
	}
	if m.searchMode {
		status = m.search.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statsStyle.Width(m.width).Render(stats),
		borderStyle.Width(m.width-2).Render(m.table.View()),
		borderStyle.Width(m.width-2).Height(m.viewport.Height).Render(detail),
		statusStyle.Width(m.width).Render(status),
	)
}

const helpText = `Navigation   j/k, up/down, pgup/pgdn
Search       /  (Enter to apply, Esc to clear)
Filter       1 high  2 medium  3 low  Esc clear
Context      + / -  more or fewer lines
Show values  s  toggle masking of matched text
Baseline     b  accept the selected finding
Ignore       i  add the file to .piiscanignore
Copy         y  copy path:line:column
Export       e  write visible findings to JSON
Rescan       r
Quit         q`
