package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"time"

	"wifiwatch/internal/analysis"
)

// GenerateSessionReport writes a report of the session's activity into dir
// and returns the file path. Currently supports "html" format.
func GenerateSessionReport(stats *analysis.SessionStats, format, dir string) (string, error) {
	if format != "html" {
		return "", fmt.Errorf("unsupported format: %s", format)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("report_%s.html", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	// Gather data
	networks := stats.GetNetworks()
	counts := stats.GetEventCounts()
	alerts := stats.GetAllAlerts()
	events := stats.GetEventLog()
	conn := stats.Connection()

	connected := "disconnected"
	if conn.Connected {
		connected = fmt.Sprintf("%s (%s)", conn.SSID, conn.Address)
		if conn.IP != "" {
			connected += " " + conn.IP
		}
	}

	// Generate HTML content
	out := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>WifiWatch Session Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .alert { color: #d9534f; font-weight: bold; }
        .vanished { color: #999; }
    </style>
</head>
<body>
    <h1>WifiWatch Session Report</h1>
    <div class="summary">
        <p><strong>Session:</strong> %s</p>
        <p><strong>Date:</strong> %s</p>
        <p><strong>Duration:</strong> %s</p>
        <p><strong>Networks Seen:</strong> %d</p>
        <p><strong>Connection:</strong> %s</p>
    </div>

    <h2>Event Counts</h2>
    <table>
        <thead>
            <tr>
                <th>Event</th>
                <th>Count</th>
            </tr>
        </thead>
        <tbody>
`, timestamp, html.EscapeString(stats.SessionID()), time.Now().Format(time.RFC1123),
		time.Since(stats.Started()).Round(time.Second), stats.TotalSeen(), html.EscapeString(connected))

	for _, c := range counts {
		out += fmt.Sprintf("            <tr><td>%s</td><td>%d</td></tr>\n", c.Kind, c.Count)
	}

	out += `        </tbody>
    </table>

    <h2>Networks</h2>
    <table>
        <thead>
            <tr>
                <th>Address</th>
                <th>SSID</th>
                <th>Channel</th>
                <th>Band</th>
                <th>Signal</th>
                <th>Security</th>
            </tr>
        </thead>
        <tbody>
`

	if len(networks) == 0 {
		out += "            <tr><td colspan=\"6\">No networks seen during this session.</td></tr>\n"
	} else {
		for _, n := range networks {
			class := ""
			if stats.IsVanished(n.Address) {
				class = ` class="vanished"`
			}
			out += fmt.Sprintf("            <tr%s><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				class, n.Address, html.EscapeString(n.SSID), formatInt(n.Channel, ""),
				analysis.BandForChannel(n.Channel), formatInt(n.Signal, " dBm"), n.Security())
		}
	}

	out += `        </tbody>
    </table>

    <h2>Alerts</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Type</th>
                <th>Source</th>
                <th>Message</th>
            </tr>
        </thead>
        <tbody>
`

	if len(alerts) == 0 {
		out += "            <tr><td colspan=\"4\">No alerts triggered during this session.</td></tr>\n"
	} else {
		for _, alert := range alerts {
			out += fmt.Sprintf("            <tr><td>%s</td><td class=\"alert\">%s</td><td>%s</td><td>%s</td></tr>\n",
				alert.Timestamp.Format("15:04:05"), alert.Type, alert.Source, html.EscapeString(alert.Message))
		}
	}

	out += `        </tbody>
    </table>

    <h2>Recent Events</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Event</th>
                <th>Detail</th>
            </tr>
        </thead>
        <tbody>
`

	if len(events) == 0 {
		out += "            <tr><td colspan=\"3\">No events recorded.</td></tr>\n"
	} else {
		for _, ev := range events {
			out += fmt.Sprintf("            <tr><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				ev.Timestamp.Format("15:04:05"), ev.Kind, html.EscapeString(ev.Summary))
		}
	}

	out += `        </tbody>
    </table>
</body>
</html>`

	_, err = file.WriteString(out)
	if err != nil {
		return "", err
	}

	return filename, nil
}

func formatInt(v *int, suffix string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d%s", *v, suffix)
}
