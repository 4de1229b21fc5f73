// termwire-host runs a collab server and a synthetic scroll workload so
// the two subsystems can be exercised together without a real renderer
// or terminal attached.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixml/termwire/internal/collab"
	"github.com/helixml/termwire/internal/collabcfg"
	"github.com/helixml/termwire/internal/grid"
	"github.com/helixml/termwire/internal/presence"
	"github.com/helixml/termwire/internal/profile"
	"github.com/helixml/termwire/internal/scroll"
	"github.com/helixml/termwire/internal/scrollcfg"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "termwire-host",
		Short: "Run a termwire collab server with a synthetic scroll workload",
		RunE:  run,
	}
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()

	collabCfg, err := collabcfg.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load collab config")
		return err
	}
	scrollCfg, err := scrollcfg.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load scroll config")
		return err
	}

	server := collab.NewServer(collab.ServerConfig{
		ListenAddr:  collabCfg.ListenAddr,
		HostProfile: profile.Profile{Name: collabCfg.Name, Color: collabCfg.Color},
		OnJoin: func(peerID uint8, p profile.Profile) {
			logger.Info().Uint8("peer_id", peerID).Str("name", p.Name).Msg("peer joined")
		},
		OnLeave: func(peerID uint8) {
			logger.Info().Uint8("peer_id", peerID).Msg("peer left")
		},
		OnPresence: func(peerID uint8, pr presence.Presence, p profile.Profile) {
			logger.Debug().Uint8("peer_id", peerID).Int32("row", pr.Row).Int32("col", pr.Col).Msg("presence update")
		},
	}, logger)

	if err := server.Listen(); err != nil {
		logger.Error().Err(err).Msg("failed to listen")
		return err
	}
	logger.Info().Str("addr", server.Addr().String()).Str("join_code", server.JoinCode()).Msg("termwire-host ready")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(ctx) }()

	runSyntheticScrollWorkload(ctx, scrollCfg, logger)

	server.Stop()
	if err := <-errCh; err != nil && err != context.Canceled {
		return err
	}
	logger.Info().Msg("termwire-host shutdown complete")
	return nil
}

// runSyntheticScrollWorkload drives a scroll engine against a scratch
// grid on a fixed tick, purely to demonstrate that Flush/Populate/Restore
// complete within a frame budget end to end.
func runSyntheticScrollWorkload(ctx context.Context, cfg scrollcfg.Config, logger zerolog.Logger) {
	engine := scroll.New(cfg.EngineConfig(), nil)
	buf := grid.NewBuffer(24, 80)

	ticker := time.NewTicker(cfg.FrameInterval())
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		tick++
		if tick%120 == 0 {
			engine.QueueScroll(1, 1, 23, 0, 0)
		}
		if err := engine.Flush(cfg.FrameInterval().Seconds(), buf); err != nil {
			logger.Error().Err(err).Msg("scroll flush failed")
			continue
		}
		engine.PopulateCellsForRender(buf)
		engine.RestoreCells(buf)
	}
}
