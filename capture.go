package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wifiwatch/internal/beacon"
	"wifiwatch/internal/engine"
	"wifiwatch/internal/logger"
	"wifiwatch/internal/publish"
	"wifiwatch/internal/registry"
)

var (
	captureIface  string
	captureFile   string
	captureWindow time.Duration
	captureVanish int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Track networks from captured beacon frames",
	Long: `Classify networks from 802.11 beacons and probe responses instead of
scan commands. Frames are read from a monitor-mode interface or a saved
capture file and grouped into fixed windows.

Examples:
  wifiwatch capture --monitor wlan0mon
  wifiwatch capture --file beacons.pcap --window 5s`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	f := captureCmd.Flags()
	f.StringVar(&captureIface, "monitor", "", "Monitor-mode interface to capture from")
	f.StringVar(&captureFile, "file", "", "Read frames from a pcap file")
	f.DurationVar(&captureWindow, "window", beacon.DefaultWindow, "Classification window")
	f.IntVar(&captureVanish, "vanish-windows", registry.DefaultVanishThreshold, "Missed windows tolerated before a network vanishes")
}

func runCapture(cmd *cobra.Command, _ []string) error {
	if (captureIface == "") == (captureFile == "") {
		return errors.New("exactly one of --monitor or --file is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closer, err := initLogging(cfg, false)
	if err != nil {
		return err
	}
	defer closer.Close()

	log := logger.WithComponent("capture")
	sessionID := uuid.New().String()

	var handle *pcap.Handle
	if captureFile != "" {
		handle, err = beacon.OpenFile(captureFile)
	} else {
		handle, err = beacon.OpenLive(captureIface)
	}
	if err != nil {
		return err
	}
	defer handle.Close()

	var pub *publish.Publisher
	if cfg.NATS.URL != "" {
		nc, err := publish.Connect(cfg.NATS.URL, logger.GetLogger())
		if err != nil {
			return err
		}
		defer nc.Close()
		pub = publish.NewPublisher(nc, cfg.NATS.SubjectPrefix, sessionID, logger.GetLogger())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(registry.Options{
		VanishThreshold: captureVanish,
		PurgeVanished:   cfg.Wireless.PurgeVanished,
	})
	collector := beacon.NewCollector(reg, captureWindow, logger.GetLogger())

	log.Info().Str("session_id", sessionID).Dur("window", captureWindow).Msg("Capture started")

	emit := func(w beacon.Window) {
		for _, ev := range w.Events(time.Now()) {
			logEvent(log, ev)
			if pub == nil {
				continue
			}
			if err := pub.Publish(ev); err != nil {
				log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("Publish failed")
			}
		}
	}

	err = collector.Run(ctx, beacon.Packets(handle), emit)
	if pub != nil {
		if perr := pub.Publish(engine.Event{Kind: engine.EventStop, Time: time.Now()}); perr != nil {
			log.Warn().Err(perr).Msg("Publish failed")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("capture failed: %w", err)
	}

	log.Info().Int("networks", reg.Len()).Msg("Capture finished")
	return nil
}
