package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wifiwatch/internal/analysis"
	"wifiwatch/internal/command"
	"wifiwatch/internal/config"
	"wifiwatch/internal/engine"
	"wifiwatch/internal/logger"
	"wifiwatch/internal/publish"
	"wifiwatch/internal/reporting"
	"wifiwatch/internal/tui"
)

var (
	configPath    string
	logFile       string
	debug         bool
	natsURL       string
	interfaceName string
	interface2    string
	interval      time.Duration
	spyInterval   time.Duration
	vanish        int
	purge         bool
	plain         bool
	reportDir     string
	reportOnExit  bool
)

var rootCmd = &cobra.Command{
	Use:   "wifiwatch",
	Short: "Track nearby wireless networks and the host's association",
	Long: `Scan for wireless networks at a fixed cadence and report when networks
appear, change, or vanish, and when the host joins or leaves one.

Examples:
  wifiwatch -i wlan0                      # Dashboard on wlan0
  wifiwatch -i wlan0 --plain              # Stream events to the log
  wifiwatch -i wlan0 --interval 30s       # Scan every 30 seconds
  wifiwatch --config /etc/wifiwatch.yaml  # Settings from a file`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&logFile, "log-file", "", "Write logs to this file")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.StringVar(&natsURL, "nats-url", "", "Publish events to this NATS server")

	f := rootCmd.Flags()
	f.StringVarP(&interfaceName, "iface", "i", "", "Wireless interface (default wlan0)")
	f.StringVar(&interface2, "iface2", "", "Secondary interface scanned when the primary is busy")
	f.DurationVar(&interval, "interval", 0, "Scan interval (default 60s)")
	f.DurationVar(&spyInterval, "spy-interval", 0, "Connection check interval (default 5s)")
	f.IntVar(&vanish, "vanish", 0, "Missed scans tolerated before a network vanishes (default 2)")
	f.BoolVar(&purge, "purge", false, "Forget networks when they vanish")
	f.BoolVar(&plain, "plain", false, "Log events instead of showing the dashboard")
	f.StringVar(&reportDir, "report-dir", "", "Directory for HTML session reports")
	f.BoolVar(&reportOnExit, "report", false, "Write a session report on exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies any flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("iface") {
		cfg.Wireless.Interface = interfaceName
	}
	if flags.Changed("iface2") {
		cfg.Wireless.Interface2 = interface2
	}
	if flags.Changed("interval") {
		cfg.Wireless.UpdateFrequency = interval
	}
	if flags.Changed("spy-interval") {
		cfg.Wireless.ConnectionSpyFrequency = spyInterval
	}
	if flags.Changed("vanish") {
		cfg.Wireless.VanishThreshold = vanish
	}
	if flags.Changed("purge") {
		cfg.Wireless.PurgeVanished = purge
	}
	if flags.Changed("report-dir") {
		cfg.Report.Dir = reportDir
	}
	if natsURL != "" {
		cfg.NATS.URL = natsURL
	}
	if logFile != "" {
		cfg.Logging.Output = logFile
	}
	if debug {
		cfg.Logging.Debug = true
	}

	return cfg, cfg.Validate()
}

// initLogging keeps logs off the terminal while the dashboard owns it.
func initLogging(cfg config.Config, dashboard bool) (io.Closer, error) {
	lc := cfg.Logging
	if dashboard {
		switch lc.Output {
		case "", "stdout", "stderr":
			lc.Output = "wifiwatch.log"
		}
	}
	return logger.Init(lc)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	closer, err := initLogging(cfg, !plain)
	if err != nil {
		return err
	}
	defer closer.Close()

	log := logger.WithComponent("main")
	sessionID := uuid.New().String()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(cfg.Engine(), command.NewShellExecutor(), logger.GetLogger())
	stats := analysis.NewSessionStats(sessionID)

	var wg sync.WaitGroup
	var outs []chan engine.Event

	if cfg.NATS.URL != "" {
		nc, err := publish.Connect(cfg.NATS.URL, logger.GetLogger())
		if err != nil {
			eng.Stop()
			return err
		}
		defer nc.Close()

		pubCh := make(chan engine.Event, 256)
		outs = append(outs, pubCh)
		pub := publish.NewPublisher(nc, cfg.NATS.SubjectPrefix, sessionID, logger.GetLogger())

		wg.Add(1)
		go func() {
			defer wg.Done()
			pub.Run(context.Background(), pubCh)
			if err := nc.Flush(); err != nil {
				log.Warn().Err(err).Msg("NATS flush failed")
			}
		}()
	}

	uiCh := make(chan engine.Event, 256)
	outs = append(outs, uiCh)
	go fanOut(eng.Events(), outs)

	log.Info().Str("session_id", sessionID).Str("interface", cfg.Wireless.Interface).Msg("Session started")

	if err := eng.Start(); err != nil {
		return err
	}

	if plain {
		go func() {
			<-ctx.Done()
			eng.Stop()
		}()
		for ev := range uiCh {
			stats.ProcessEvent(ev)
			logEvent(log, ev)
		}
	} else {
		model := tui.NewDashboardModel(stats, eng, uiCh, tui.Options{
			Interface: cfg.Wireless.Interface,
			ReportDir: cfg.Report.Dir,
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		_, runErr := p.Run()

		go func() {
			for range uiCh {
			}
		}()
		eng.Stop()

		if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
			log.Error().Err(runErr).Msg("Dashboard exited with error")
		}
	}

	wg.Wait()

	if reportOnExit {
		path, err := reporting.GenerateSessionReport(stats, "html", cfg.Report.Dir)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", path)
	}

	log.Info().Str("session_id", sessionID).Int("networks_seen", stats.TotalSeen()).Msg("Session ended")
	return nil
}

// fanOut copies every event to each subscriber and closes them when the
// source closes.
func fanOut(src <-chan engine.Event, outs []chan engine.Event) {
	for ev := range src {
		for _, out := range outs {
			out <- ev
		}
	}
	for _, out := range outs {
		close(out)
	}
}

func logEvent(log zerolog.Logger, ev engine.Event) {
	var e *zerolog.Event
	switch ev.Kind {
	case engine.EventCommand, engine.EventBatch:
		e = log.Debug()
	case engine.EventError:
		e = log.Warn()
	default:
		e = log.Info()
	}

	e = e.Str("event", string(ev.Kind))
	switch {
	case ev.Network != nil:
		e = e.Str("address", ev.Network.Address).Str("ssid", ev.Network.SSID)
		if ev.Network.Signal != nil {
			e = e.Int("signal", *ev.Network.Signal)
		}
		if ev.Network.Channel != nil {
			e = e.Int("channel", *ev.Network.Channel)
		}
	case ev.Link != nil:
		e = e.Str("address", ev.Link.Address).Str("ssid", ev.Link.SSID)
	case ev.Networks != nil:
		e = e.Int("count", len(ev.Networks))
	}
	if ev.IP != "" {
		e = e.Str("ip", ev.IP)
	}
	if ev.Command != "" {
		e = e.Str("command", ev.Command)
	}
	e.Msg(analysis.Summarize(ev))
}
