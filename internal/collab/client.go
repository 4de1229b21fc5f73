package collab

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixml/termwire/internal/netio"
	"github.com/helixml/termwire/internal/presence"
	"github.com/helixml/termwire/internal/profile"
	"github.com/helixml/termwire/internal/wire"
)

const clientTickInterval = 10 * time.Millisecond

// ClientConfig configures a Client before Connect.
type ClientConfig struct {
	ServerAddr   string
	LocalProfile profile.Profile
	OnJoin       JoinCallback
	OnLeave      LeaveCallback
	OnPresence   PresenceCallback
}

// Client is the single-connection counterpart to Server: it connects to
// one host, sends its profile, and maintains a local directory of the
// other connected peers by id.
type Client struct {
	logger zerolog.Logger
	cfg    ClientConfig

	conn        net.Conn
	peerID      uint8 // 0 until welcome
	hostProfile profile.Profile

	directory [MaxPeers]profile.Profile
	present   [MaxPeers]bool

	buf  [inboundBufSize]byte
	wpos int

	stop chan struct{}
	done chan struct{}
}

// NewClient constructs a Client. Connect must be called before Run.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	return &Client{
		logger: logger.With().Str("component", "collab_client").Logger(),
		cfg:    cfg,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Connect dials the server. This is the client's one blocking call.
func (c *Client) Connect() error {
	conn, err := net.Dial("tcp", c.cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("collab: connect %s: %w", c.cfg.ServerAddr, err)
	}
	c.conn = conn
	c.logger.Info().Str("addr", c.cfg.ServerAddr).Msg("collab client connected")
	return c.sendJoin()
}

// PeerID returns the id assigned by the server, or 0 if welcome has not
// yet arrived.
func (c *Client) PeerID() uint8 { return c.peerID }

// Peer returns the profile for peerID if known (peerID == 0 is the host).
func (c *Client) Peer(peerID uint8) (profile.Profile, bool) {
	if peerID == 0 {
		return c.hostProfile, true
	}
	idx := int(peerID) - 1
	if idx < 0 || idx >= MaxPeers || !c.present[idx] {
		return profile.Profile{}, false
	}
	return c.directory[idx], true
}

// Run drives the client's read loop until ctx is cancelled or Stop is
// called. Must run on its own goroutine.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.conn.Close()

	ticker := time.NewTicker(clientTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		default:
		}

		buf := make([]byte, inboundBufSize)
		n, err := netio.TryRead(c.conn, buf, readWindow)
		switch {
		case err == nil:
			copy(c.buf[c.wpos:], buf[:n])
			c.wpos += n
			c.decode()
		case err == netio.ErrWouldBlock:
		default:
			c.logger.Debug().Err(err).Msg("connection lost")
			return err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		}
	}
}

// Stop signals the run loop to exit and waits for it to finish.
func (c *Client) Stop() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	<-c.done
}

func (c *Client) decode() {
	frames, consumed := wire.Decode(c.buf[:c.wpos])
	if consumed > 0 {
		remaining := copy(c.buf[:], c.buf[consumed:c.wpos])
		c.wpos = remaining
	}
	for _, f := range frames {
		c.handleFrame(f)
	}
}

func (c *Client) handleFrame(f wire.Frame) {
	switch f.Type {
	case wire.TypeWelcome:
		if len(f.Payload) < 1+profile.WireSize {
			return
		}
		c.peerID = f.Payload[0]
		hp, err := profile.Decode(f.Payload[1:])
		if err == nil {
			c.hostProfile = hp
		}

	case wire.TypePeerJoined:
		pr, err := profile.Decode(f.Payload)
		if err != nil {
			return
		}
		idx := int(pr.PeerID) - 1
		if idx >= 0 && idx < MaxPeers {
			c.directory[idx] = pr
			c.present[idx] = true
		}
		if c.cfg.OnJoin != nil {
			c.cfg.OnJoin(pr.PeerID, pr)
		}

	case wire.TypePeerLeft:
		if len(f.Payload) < 1 {
			return
		}
		departed := f.Payload[0]
		idx := int(departed) - 1
		if idx >= 0 && idx < MaxPeers {
			c.present[idx] = false
		}
		if c.cfg.OnLeave != nil {
			c.cfg.OnLeave(departed)
		}

	case wire.TypePresence:
		pr, err := presence.Decode(f.Payload)
		if err != nil {
			return
		}
		senderProfile, _ := c.Peer(pr.PeerID)
		if c.cfg.OnPresence != nil {
			c.cfg.OnPresence(pr.PeerID, pr, senderProfile)
		}

	default:
		c.logger.Debug().Uint8("type", uint8(f.Type)).Msg("unknown frame type, dropped")
	}
}

func (c *Client) sendJoin() error {
	frame := wire.Encode(wire.TypeJoin, encodeProfile(c.cfg.LocalProfile))
	_, err := netio.TryWrite(c.conn, frame, readWindow)
	if err != nil && err != netio.ErrWouldBlock {
		return fmt.Errorf("collab: send join: %w", err)
	}
	return nil
}

// SendPresence encodes and writes one presence frame, non-blocking. A
// short write or WouldBlock is dropped: presence is self-healing, the
// next tick's update supersedes it.
func (c *Client) SendPresence(pr presence.Presence) {
	frame := wire.Encode(wire.TypePresence, pr.Encode())
	if _, err := netio.TryWrite(c.conn, frame, readWindow); err != nil && err != netio.ErrWouldBlock {
		c.logger.Debug().Err(err).Msg("send presence failed")
	}
}
