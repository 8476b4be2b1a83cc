package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

const eventLines = 8

func (m DashboardModel) View() string {
	headerText := fmt.Sprintf("WifiWatch - Interface: %s", m.opts.Interface)
	if m.conn.Connected {
		headerText += fmt.Sprintf(" [Connected: %s (%s)", m.conn.SSID, m.conn.Address)
		if m.conn.IP != "" {
			headerText += " " + m.conn.IP
		}
		headerText += "]"
	} else {
		headerText += " [Disconnected]"
	}
	title := titleStyle.Render(headerText)

	netBox := infoStyle.Render(fmt.Sprintf("Networks (%d seen)\n%s", len(m.networks), m.table.View()))

	// Recent events
	var evStrs []string
	start := 0
	if len(m.eventLog) > eventLines {
		start = len(m.eventLog) - eventLines
	}
	for _, ev := range m.eventLog[start:] {
		evStrs = append(evStrs, fmt.Sprintf("%s %-7s %s", ev.Timestamp.Format("15:04:05"), ev.Kind, ev.Summary))
	}
	if len(evStrs) == 0 {
		evStrs = append(evStrs, "Waiting for events...")
	}
	evBox := infoStyle.Render("Events:\n" + strings.Join(evStrs, "\n"))

	// Alerts
	var alertStrs []string
	for _, a := range m.alerts {
		alertStrs = append(alertStrs, alertStyle.Render(string(a.Type))+" "+a.Message)
	}
	if len(alertStrs) == 0 {
		alertStrs = append(alertStrs, "No alerts.")
	}
	alertBox := infoStyle.Render("Alerts:\n" + strings.Join(alertStrs, "\n"))

	// Layout
	row := lipgloss.JoinHorizontal(lipgloss.Top, evBox, alertBox)
	body := lipgloss.JoinVertical(lipgloss.Left, title, netBox, row)

	help := "enter join open network · l leave · d dhcp · r report · q quit"
	return body + "\n" + statusStyle.Render(m.status) + "\n" + help
}
