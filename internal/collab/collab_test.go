package collab

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/helixml/termwire/internal/presence"
	"github.com/helixml/termwire/internal/profile"
)

func testLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.Disabled)
}

func startServer(t *testing.T, cfg ServerConfig) (*Server, context.CancelFunc) {
	t.Helper()
	s := NewServer(cfg, testLogger())
	require.NoError(t, s.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		s.Stop()
	})
	return s, cancel
}

func startClient(t *testing.T, addr string, cfg ClientConfig) *Client {
	t.Helper()
	cfg.ServerAddr = addr
	c := NewClient(cfg, testLogger())
	require.NoError(t, c.Connect())
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		c.Stop()
	})
	return c
}

func TestCollab_JoinHandshake(t *testing.T) {
	var joined struct {
		sync.Mutex
		peerID uint8
		p      profile.Profile
	}

	s, _ := startServer(t, ServerConfig{
		ListenAddr:  "127.0.0.1:0",
		HostProfile: profile.Profile{Name: "host", Color: 0x7aa2f7},
		OnJoin: func(peerID uint8, p profile.Profile) {
			joined.Lock()
			joined.peerID = peerID
			joined.p = p
			joined.Unlock()
		},
	})

	c := startClient(t, s.Addr().String(), ClientConfig{
		LocalProfile: profile.Profile{Name: "alice", Color: 0xff0000},
	})

	require.Eventually(t, func() bool {
		return c.PeerID() != 0
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, uint8(1), c.PeerID())

	hp, ok := c.Peer(0)
	require.True(t, ok)
	require.Equal(t, "host", hp.Name)

	require.Eventually(t, func() bool {
		joined.Lock()
		defer joined.Unlock()
		return joined.peerID == 1
	}, time.Second, 5*time.Millisecond)
	joined.Lock()
	require.Equal(t, "alice", joined.p.Name)
	joined.Unlock()

	require.Eventually(t, func() bool {
		return s.PeerCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCollab_PresenceBroadcast(t *testing.T) {
	s, _ := startServer(t, ServerConfig{
		ListenAddr:  "127.0.0.1:0",
		HostProfile: profile.Profile{Name: "host"},
	})

	var seen struct {
		sync.Mutex
		pr presence.Presence
		ok bool
	}

	alice := startClient(t, s.Addr().String(), ClientConfig{
		LocalProfile: profile.Profile{Name: "alice"},
	})
	bob := startClient(t, s.Addr().String(), ClientConfig{
		LocalProfile: profile.Profile{Name: "bob"},
		OnPresence: func(peerID uint8, pr presence.Presence, p profile.Profile) {
			seen.Lock()
			seen.pr = pr
			seen.ok = true
			seen.Unlock()
		},
	})
	_ = bob

	require.Eventually(t, func() bool { return alice.PeerID() != 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bob.PeerID() != 0 }, time.Second, 5*time.Millisecond)

	alice.SendPresence(presence.Presence{Mode: presence.ModeInsert, Row: 3, Col: 7, FileName: "main.go"})

	require.Eventually(t, func() bool {
		seen.Lock()
		defer seen.Unlock()
		return seen.ok
	}, time.Second, 5*time.Millisecond)

	seen.Lock()
	defer seen.Unlock()
	require.Equal(t, presence.ModeInsert, seen.pr.Mode)
	require.Equal(t, int32(3), seen.pr.Row)
	require.Equal(t, "main.go", seen.pr.FileName)
}

func TestCollab_PeerLeave(t *testing.T) {
	var left struct {
		sync.Mutex
		peerID uint8
		fired  bool
	}

	s, _ := startServer(t, ServerConfig{
		ListenAddr:  "127.0.0.1:0",
		HostProfile: profile.Profile{Name: "host"},
		OnLeave: func(peerID uint8) {
			left.Lock()
			left.peerID = peerID
			left.fired = true
			left.Unlock()
		},
	})

	c := startClient(t, s.Addr().String(), ClientConfig{LocalProfile: profile.Profile{Name: "alice"}})
	require.Eventually(t, func() bool { return s.PeerCount() == 1 }, time.Second, 5*time.Millisecond)

	c.Stop()

	require.Eventually(t, func() bool {
		left.Lock()
		defer left.Unlock()
		return left.fired
	}, time.Second, 5*time.Millisecond)
	left.Lock()
	require.Equal(t, uint8(1), left.peerID)
	left.Unlock()

	require.Eventually(t, func() bool {
		return s.PeerCount() == 0
	}, time.Second, 5*time.Millisecond)
}
