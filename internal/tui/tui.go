// Package tui is the optional multi-shard progress dashboard named in
// SPEC_FULL.md §2 ("an optional Bubble Tea progress dashboard for
// multi-shard runs"), adapted from the teacher's internal/tui/tui.go: same
// polling Model/tickMsg/dataMsg shape, now watching internal/acesrun's run
// ledger instead of the teacher's sessions/pipelines/docs/conventions.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/n0roo/aces/internal/acesrun"
)

// Model is the shard-progress dashboard's Bubble Tea model.
type Model struct {
	ledgerPath string
	shardCount int

	width, height int
	ready         bool
	lastRefresh   time.Time
	err           error

	runs []acesrun.Run

	spinner spinner.Model
}

type tickMsg time.Time

type dataMsg struct {
	runs []acesrun.Run
	err  error
}

// NewModel creates a dashboard model watching the ledger at ledgerPath for
// up to shardCount shards (0 means unknown/unbounded).
func NewModel(ledgerPath string, shardCount int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{ledgerPath: ledgerPath, shardCount: shardCount, spinner: s}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh, tickEvery(2*time.Second))
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Msg {
	ledger, err := acesrun.Open(m.ledgerPath)
	if err != nil {
		return dataMsg{err: err}
	}
	defer ledger.Close()

	runs, err := ledger.List(0)
	if err != nil {
		return dataMsg{err: err}
	}
	return dataMsg{runs: runs}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true

	case tickMsg:
		return m, tea.Batch(m.refresh, tickEvery(2*time.Second))

	case dataMsg:
		m.runs = msg.runs
		m.err = msg.err
		m.lastRefresh = time.Now()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(statusErrorStyle.Render(fmt.Sprintf("  error: %v", m.err)))
		b.WriteString("\n")
	} else if len(m.runs) == 0 {
		b.WriteString(statusMutedStyle.Render("  no runs recorded yet"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderRuns())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  [r] refresh  [q] quit"))
	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("aces extract")
	succeeded, failed, running := 0, 0, 0
	for _, r := range m.runs {
		switch r.Status {
		case acesrun.StatusSucceeded:
			succeeded++
		case acesrun.StatusFailed:
			failed++
		default:
			running++
		}
	}

	total := m.shardCount
	if total == 0 {
		total = len(m.runs)
	}
	var percent float64
	if total > 0 {
		percent = float64(succeeded) / float64(total)
	}

	summary := fmt.Sprintf("%d/%d shards done  (%d running, %d failed)", succeeded, total, running, failed)
	bar := RenderProgressBar(percent, 30)
	return boxStyle.Render(title + "\n" + bar + "  " + summary)
}

func (m Model) renderRuns() string {
	var b strings.Builder
	for _, r := range m.runs {
		icon := StatusIcon(r.Status)
		line := fmt.Sprintf("  %s shard %d/%d  %s", icon, r.ShardIndex, r.ShardCount, r.Status)
		if r.Status == acesrun.StatusSucceeded {
			line += fmt.Sprintf("  (%d rows)", r.RowCount)
		}
		if r.Error.Valid {
			line += statusErrorStyle.Render(fmt.Sprintf("  %s", r.Error.String))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the dashboard, polling the ledger at ledgerPath until the user
// quits. shardCount is the total number of shards expected, for the
// progress bar's denominator (0 if unknown).
func Run(ledgerPath string, shardCount int) error {
	p := tea.NewProgram(NewModel(ledgerPath, shardCount), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
