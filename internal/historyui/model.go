// Package historyui provides the Bubble Tea browser of stored runs.
package historyui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typobench/internal/report"
	"github.com/verte-zerg/typobench/internal/store"
)

const (
	tabRuns = iota
	tabReport
)

// mistakesShown is the number of mistakes rendered per task in the report
// tab.
const mistakesShown = 10

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the run history the browser reads.
type Source interface {
	ListRuns(ctx context.Context, filter store.Filter) ([]store.RunSummary, error)
	GetRun(ctx context.Context, idOrPrefix string) (store.Run, error)
}

// Model implements the Bubble Tea history UI.
type Model struct {
	source Source
	filter store.Filter

	runs     []store.RunSummary
	selected *store.Run
	errMsg   string

	tabs      []string
	activeTab int
	runTable  table.Model
	viewport  viewport.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a history UI model.
func NewModel(source Source, filter store.Filter) *Model {
	m := &Model{
		source:   source,
		filter:   filter,
		tabs:     []string{"Runs", "Report"},
		viewport: viewport.New(0, 0),
	}
	m.initInputs()
	m.rebuildRunTable(0)
	m.refreshRuns()
	m.renderReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderReport()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabRuns {
				m.openSelected()
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabRuns {
				m.runTable.GotoTop()
			} else {
				m.viewport.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabRuns {
				m.runTable.GotoBottom()
			} else {
				m.viewport.GotoBottom()
			}
			return m, nil
		default:
			var cmd tea.Cmd
			if m.activeTab == tabRuns {
				m.runTable, cmd = m.runTable.Update(msg)
			} else {
				m.viewport, cmd = m.viewport.Update(msg)
			}
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Corrector: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
	}
	m.setInputsFromFilter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	m.filterInputs[0].SetValue(m.filter.Corrector)
	if m.filter.Since != nil {
		m.filterInputs[1].SetValue(m.filter.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.filter.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.filter.Last))
	} else {
		m.filterInputs[2].SetValue("")
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.viewport.Width = m.width
	m.viewport.Height = bodyHeight
	m.rebuildRunTable(m.runTable.Cursor())
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabRuns {
		m.runTable.Focus()
	} else {
		m.runTable.Blur()
	}
}

func (m *Model) refreshRuns() {
	runs, err := m.source.ListRuns(context.Background(), m.filter)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load runs: %v", err)
		return
	}
	m.errMsg = ""
	m.runs = runs
	m.rebuildRunTable(len(runs) - 1)
}

// rebuildRunTable recreates the run table for the current size and moves the
// cursor to row. The table keeps its scroll offset across SetHeight, so
// resizing in place can leave leading rows hidden.
func (m *Model) rebuildRunTable(row int) {
	_, bodyHeight, _ := m.layoutHeights()
	m.runTable = buildRunTable(m.runs, m.width, bodyHeight)
	if row > 0 {
		m.runTable.MoveDown(row)
	}
	if m.activeTab == tabRuns {
		m.runTable.Focus()
	}
}

// openSelected loads the report of the highlighted run and shows it.
func (m *Model) openSelected() {
	idx := m.runTable.Cursor()
	if idx < 0 || idx >= len(m.runs) {
		return
	}
	id := m.runs[idx].ID.String()
	run, err := m.source.GetRun(context.Background(), id)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load run %s: %v", id[:8], err)
		return
	}
	m.errMsg = ""
	m.selected = &run
	m.renderReport()
	m.viewport.GotoTop()
	m.moveTab(tabReport - m.activeTab)
}

func (m *Model) renderReport() {
	if m.selected == nil {
		m.viewport.SetContent("Select a run and press enter.")
		return
	}
	run := m.selected
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Run %s  %s  corrector=%s  seed=%d  beta=%g  dataset=%s  sentences=%d  duration=%s\n\n",
		run.ID, run.StartedAt.Local().Format("2006-01-02 15:04"), run.Corrector, run.Seed, run.Beta,
		run.Dataset, run.Sentences, run.Duration.Round(time.Second))
	if err := report.Render(&buf, run.Report, report.Options{Color: true, Slices: true, Mistakes: mistakesShown}); err != nil {
		m.viewport.SetContent(fmt.Sprintf("Failed to render report: %v", err))
		return
	}
	m.viewport.SetContent(strings.TrimRight(buf.String(), "\n"))
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	corrector := m.filter.Corrector
	if corrector == "" {
		corrector = "any"
	}
	since := "any"
	if m.filter.Since != nil {
		since = m.filter.Since.Format("2006-01-02")
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	summary := fmt.Sprintf("Filter: corrector=%s  since=%s  last=%s  runs=%d  trend %s",
		corrector, since, last, len(m.runs), report.Sparkline(overallScores(m.runs)))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Move: up/down  Open: enter  Filter: /  Quit: q"
	if m.activeTab == tabReport {
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Filter: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody() string {
	if m.filterMode {
		return m.renderFilterForm()
	}
	if m.activeTab == tabRuns {
		if len(m.runs) == 0 {
			return "No runs found."
		}
		return tableMutedStyle.Render(m.runTable.View())
	}
	return m.viewport.View()
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		filter, err := m.parseFilter()
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filter = filter
		m.filterMode = false
		m.filterError = ""
		m.refreshRuns()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) parseFilter() (store.Filter, error) {
	filter := store.Filter{Corrector: strings.TrimSpace(m.filterInputs[0].Value())}
	if sinceInput := strings.TrimSpace(m.filterInputs[1].Value()); sinceInput != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sinceInput, time.Local)
		if err != nil {
			return store.Filter{}, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		filter.Since = &parsed
	}
	if lastInput := strings.TrimSpace(m.filterInputs[2].Value()); lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return store.Filter{}, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		filter.Last = parsed
	}
	return filter, nil
}

func buildRunTable(runs []store.RunSummary, width, height int) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Started", Width: 16},
		{Title: "Corrector", Width: 24},
		{Title: "Seed", Width: 6},
		{Title: "Overall", Width: 7},
		{Title: "Duration", Width: 9},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(runRows(runs)),
	)
	t.SetStyles(runTableStyles())
	t.SetWidth(width)
	t.SetHeight(max(1, height-1))
	return t
}

func runRows(runs []store.RunSummary) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, table.Row{
			r.ID.String()[:8],
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncateLine(r.Corrector, 24),
			strconv.FormatUint(r.Seed, 10),
			fmt.Sprintf("%.2f", r.OverallScore*100),
			r.Duration.Round(time.Second).String(),
		})
	}
	return rows
}

func runTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func overallScores(runs []store.RunSummary) []float64 {
	out := make([]float64, len(runs))
	for i, r := range runs {
		out[i] = r.OverallScore
	}
	return out
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
