// Package tui renders a live view of a poll run.
//
// It uses bubbletea: the loop reports into a Feed, the model consumes the
// feed one message at a time and re-renders.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/xr"
)

// historySize is the number of recent report lines kept on screen.
const historySize = 8

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Options configures a Model.
type Options struct {
	App  string
	Mode loop.Mode

	// Iterations is the loop bound; zero shows the run as unbounded.
	Iterations int

	// Matrix shows the model matrix of the latest pose.
	Matrix bool

	// Cancel stops the loop when the user quits.
	Cancel context.CancelFunc
}

// Model is the watch view.
type Model struct {
	opts    Options
	feed    *Feed
	spinner spinner.Model

	last    *loop.Sample
	reports int
	poses   int
	misses  int
	history []string

	done     bool
	stats    loop.Stats
	err      error
	quitting bool
	width    int
}

// New creates a watch model reading from feed.
func New(feed *Feed, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return &Model{opts: opts, feed: feed, spinner: s}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.feed.Next())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			if m.opts.Cancel != nil {
				m.opts.Cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SampleMsg:
		m.record(msg.Sample)
		return m, m.feed.Next()

	case DoneMsg:
		m.done = true
		m.stats = msg.Stats
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) record(s loop.Sample) {
	m.last = &s
	m.reports++
	line := xr.NoPoseMessage
	if s.Valid {
		m.poses++
		line = xr.FormatPose(s.Pose)
	} else {
		m.misses++
	}
	m.history = append(m.history, fmt.Sprintf("%5d  %s", s.Iteration, line))
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
}

// Reports returns the number of samples received.
func (m *Model) Reports() int {
	return m.reports
}

// Done reports whether the loop has finished.
func (m *Model) Done() bool {
	return m.done
}

// Err returns the loop's error once done.
func (m *Model) Err() error {
	return m.err
}

// View implements tea.Model.
func (m *Model) View() string {
	box := boxStyle
	if m.width > 0 {
		box = box.Width(max(40, m.width-2))
	}
	sections := []string{
		headerStyle.Render("◎ HEADPOSE"),
		m.renderStatus(),
		box.Render(m.renderPose()),
		m.renderCounters(),
	}
	if len(m.history) > 0 {
		sections = append(sections, mutedStyle.Render(strings.Join(m.history, "\n")))
	}
	if m.err != nil && !errors.Is(m.err, context.Canceled) {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("⚠ %v", m.err)))
	}
	if !m.done && !m.quitting {
		sections = append(sections, mutedStyle.Render("q → stop"))
	}
	return strings.Join(sections, "\n") + "\n"
}

func (m *Model) renderStatus() string {
	bound := fmt.Sprintf("%d (unbounded)", m.reports)
	if m.opts.Iterations > 0 {
		bound = fmt.Sprintf("%d/%d", m.reports, m.opts.Iterations)
	}
	app := m.opts.App
	if app == "" {
		app = "headpose"
	}
	switch {
	case m.done:
		return fmt.Sprintf("%s · %s · done %s in %s", app, m.opts.Mode, bound, m.stats.Elapsed().Round(time.Millisecond))
	case m.quitting:
		return fmt.Sprintf("%s · %s · stopping", app, m.opts.Mode)
	default:
		return fmt.Sprintf("%s %s · %s · %s", m.spinner.View(), app, m.opts.Mode, bound)
	}
}

func (m *Model) renderPose() string {
	if m.last == nil {
		return mutedStyle.Render("waiting for first pose")
	}
	title := titleStyle.Render(fmt.Sprintf("Iteration %d · frame %d", m.last.Iteration, m.last.Frame))
	if !m.last.Valid {
		return lipgloss.JoinVertical(lipgloss.Left, title, missStyle.Render(xr.NoPoseMessage))
	}
	body := xr.FormatPose(m.last.Pose)
	if m.opts.Matrix {
		body += "\n" + xr.FormatMatrix(m.last.Pose)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *Model) renderCounters() string {
	return fmt.Sprintf("poses %d · %s",
		m.poses,
		missStyle.Render(fmt.Sprintf("misses %d", m.misses)),
	)
}
