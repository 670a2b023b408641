// Package tui provides the Bubble Tea progress view shown while an
// evaluation runs.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxBarWidth = 60

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// ProgressMsg reports finished jobs out of the total.
type ProgressMsg struct {
	Done  int
	Total int
}

type doneMsg struct{}

type tickMsg time.Time

// Model implements the Bubble Tea progress UI.
type Model struct {
	title  string
	bar    progress.Model
	cancel context.CancelFunc
	now    func() time.Time

	startedAt time.Time
	done      int
	total     int
	width     int

	canceling bool
	finished  bool
}

// NewModel constructs a progress model. cancel is called when the user
// interrupts the run.
func NewModel(title string, cancel context.CancelFunc) *Model {
	return &Model{
		title:     title,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		cancel:    cancel,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(maxBarWidth, msg.Width-4))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" || msg.Type == tea.KeyEsc {
			if !m.canceling && m.cancel != nil {
				m.cancel()
			}
			m.canceling = true
		}
		return m, nil
	case ProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		return m, nil
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, tick()
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.finished {
		return ""
	}
	lines := []string{
		titleStyle.Render(m.title),
		m.bar.ViewAs(m.ratio()),
		m.renderFooter(),
	}
	if m.canceling {
		lines = append(lines, errorStyle.Render("Canceling, waiting for running calls..."))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *Model) ratio() float64 {
	if m.total <= 0 {
		return 0
	}
	return min(1, float64(m.done)/float64(m.total))
}

func (m *Model) renderFooter() string {
	elapsed := m.now().Sub(m.startedAt).Round(time.Second)
	segments := []string{
		fmt.Sprintf("%d/%d jobs", m.done, m.total),
		fmt.Sprintf("Elapsed %s", elapsed),
	}
	if m.done > 0 && m.done < m.total {
		remaining := time.Duration(float64(elapsed) / float64(m.done) * float64(m.total-m.done))
		segments = append(segments, fmt.Sprintf("ETA %s", remaining.Round(time.Second)))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

// Run shows a progress bar on out while fn runs. fn receives a context
// that is canceled when the user quits, and a callback to report progress.
// The error of fn is returned once it has stopped.
func Run(ctx context.Context, title string, out io.Writer, fn func(ctx context.Context, progress func(done, total int)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewModel(title, cancel), tea.WithOutput(out))
	errc := make(chan error, 1)
	go func() {
		throttle := newThrottle()
		errc <- fn(ctx, func(done, total int) {
			if throttle.allow(done, total) {
				program.Send(ProgressMsg{Done: done, Total: total})
			}
		})
		program.Send(doneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-errc
		return fmt.Errorf("failed to run progress UI: %w", err)
	}
	return <-errc
}

// throttle passes an update when the done count moved by at least a
// thousandth of the total, and always passes the last one.
type throttle struct {
	last int
}

func newThrottle() *throttle {
	return &throttle{last: -1}
}

func (t *throttle) allow(done, total int) bool {
	step := max(1, total/1000)
	if done >= total || t.last < 0 || done-t.last >= step {
		t.last = done
		return true
	}
	return false
}
