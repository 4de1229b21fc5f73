// termwire-client connects to a termwire-host, sends its identity and a
// synthetic cursor trace, and prints peer join/leave/presence events to
// stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixml/termwire/internal/collab"
	"github.com/helixml/termwire/internal/presence"
	"github.com/helixml/termwire/internal/profile"
)

var (
	serverAddr string
	name       string
	color      uint32
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "termwire-client",
		Short: "Connect to a termwire collab server and print peer events",
		RunE:  run,
	}
	rootCmd.Flags().StringVar(&serverAddr, "addr", "127.0.0.1:0", "host:port of the termwire-host to connect to")
	rootCmd.Flags().StringVar(&name, "name", "guest", "display name to join as")
	rootCmd.Flags().Uint32Var(&color, "color", 0x9ece6a, "24-bit RGB display color")
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

	client := collab.NewClient(collab.ClientConfig{
		ServerAddr:   serverAddr,
		LocalProfile: profile.Profile{Name: name, Color: color},
		OnJoin: func(peerID uint8, p profile.Profile) {
			fmt.Printf("peer joined: id=%d name=%q\n", peerID, p.Name)
		},
		OnLeave: func(peerID uint8) {
			fmt.Printf("peer left: id=%d\n", peerID)
		},
		OnPresence: func(peerID uint8, pr presence.Presence, p profile.Profile) {
			fmt.Printf("presence: peer=%d file=%q row=%d col=%d mode=%d\n", peerID, pr.FileName, pr.Row, pr.Col, pr.Mode)
		},
	}, logger)

	if err := client.Connect(); err != nil {
		logger.Error().Err(err).Msg("failed to connect")
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- client.Run(ctx) }()

	sendSyntheticPresence(ctx, client)

	client.Stop()
	if err := <-errCh; err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// sendSyntheticPresence walks a cursor down a fake file so the client is
// useful as a standalone demonstration without a real editor attached.
func sendSyntheticPresence(ctx context.Context, client *collab.Client) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	row := int32(1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		client.SendPresence(presence.Presence{
			Mode:     presence.ModeNormal,
			Row:      row,
			Col:      1,
			FileName: "main.go",
		})
		row++
		if row > 100 {
			row = 1
		}
	}
}
