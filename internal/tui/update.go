package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"wifiwatch/internal/analysis"
	"wifiwatch/internal/engine"
	"wifiwatch/internal/models"
	"wifiwatch/internal/reporting"
)

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			return m.join()
		case "l":
			return m.request("leave", func(ctx context.Context) (string, error) {
				return "", m.ctl.Leave(ctx)
			})
		case "d":
			return m.request("dhcp", func(ctx context.Context) (string, error) {
				return m.ctl.DHCP(ctx)
			})
		case "r":
			stats, dir := m.stats, m.opts.ReportDir
			return m.request("report", func(context.Context) (string, error) {
				return reporting.GenerateSessionReport(stats, "html", dir)
			})
		}

	case EventMsg:
		m.stats.ProcessEvent(engine.Event(msg))
		if msg.Kind == engine.EventStop {
			m.stopped = true
			m.status = "Engine stopped."
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.stopped = true
		return m, nil

	case opResultMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		case msg.detail != "":
			m.status = fmt.Sprintf("%s: %s", msg.op, msg.detail)
		default:
			m.status = msg.op + " done"
		}
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m DashboardModel) join() (tea.Model, tea.Cmd) {
	n, ok := m.selected()
	if !ok {
		m.status = "No network selected."
		return m, nil
	}
	if !n.Open() {
		m.status = fmt.Sprintf("%s is encrypted; join it from the command line.", n.SSID)
		return m, nil
	}
	return m.request("join", func(ctx context.Context) (string, error) {
		return n.SSID, m.ctl.Join(ctx, n, "")
	})
}

func (m DashboardModel) request(op string, fn func(ctx context.Context) (string, error)) (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "Busy, wait for the previous request."
		return m, nil
	}
	if m.stopped && op != "report" {
		m.status = "Engine stopped."
		return m, nil
	}
	m.busy = true
	m.status = op + "..."
	return m, m.runOp(op, fn)
}

func (m DashboardModel) selected() (models.NetworkRecord, bool) {
	row := m.table.SelectedRow()
	if row == nil {
		return models.NetworkRecord{}, false
	}
	for _, n := range m.networks {
		if n.Address == row[0] {
			return n, true
		}
	}
	return models.NetworkRecord{}, false
}

func (m *DashboardModel) refresh() {
	m.networks = m.stats.GetNetworks()
	m.eventLog = m.stats.GetEventLog()
	m.alerts = m.stats.GetAlerts()
	m.conn = m.stats.Connection()

	rows := make([]table.Row, len(m.networks))
	for i, n := range m.networks {
		signal := formatInt(n.Signal, " dBm")
		if m.stats.IsVanished(n.Address) {
			signal = "gone"
		}
		rows[i] = table.Row{
			n.Address,
			n.SSID,
			formatInt(n.Channel, ""),
			analysis.BandForChannel(n.Channel),
			signal,
			n.Security(),
		}
	}
	m.table.SetRows(rows)
}

func formatInt(v *int, suffix string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d%s", *v, suffix)
}
