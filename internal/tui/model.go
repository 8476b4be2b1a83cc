package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wifiwatch/internal/analysis"
	"wifiwatch/internal/engine"
	"wifiwatch/internal/models"
)

// Controller is the part of the engine the dashboard drives.
type Controller interface {
	Join(ctx context.Context, n models.NetworkRecord, password string) error
	Leave(ctx context.Context) error
	DHCP(ctx context.Context) (string, error)
}

// Options configures the dashboard.
type Options struct {
	Interface string
	ReportDir string
	// OpTimeout bounds each join/leave/dhcp request.
	OpTimeout time.Duration
}

type DashboardModel struct {
	stats  *analysis.SessionStats
	ctl    Controller
	events <-chan engine.Event
	opts   Options

	table    table.Model
	networks []models.NetworkRecord
	eventLog []analysis.EventEntry
	alerts   []analysis.Alert
	conn     analysis.Connection

	status  string
	busy    bool
	stopped bool
}

// TickMsg triggers a refresh from the session stats.
type TickMsg time.Time

// EventMsg carries one engine event into the program.
type EventMsg engine.Event

type eventsClosedMsg struct{}

type opResultMsg struct {
	op     string
	detail string
	err    error
}

func NewDashboardModel(stats *analysis.SessionStats, ctl Controller, events <-chan engine.Event, opts Options) DashboardModel {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 30 * time.Second
	}

	columns := []table.Column{
		{Title: "Address", Width: 19},
		{Title: "SSID", Width: 24},
		{Title: "Ch", Width: 4},
		{Title: "Band", Width: 8},
		{Title: "Signal", Width: 8},
		{Title: "Security", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return DashboardModel{
		stats:  stats,
		ctl:    ctl,
		events: events,
		opts:   opts,
		table:  t,
		status: "Scanning...",
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForEvent(m.events))
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForEvent(events <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(ev)
	}
}

// runOp performs a controller request off the update loop.
func (m DashboardModel) runOp(op string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	timeout := m.opts.OpTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		detail, err := fn(ctx)
		return opResultMsg{op: op, detail: detail, err: err}
	}
}
