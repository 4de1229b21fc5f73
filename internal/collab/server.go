// Package collab implements the peer-to-peer collaboration layer: a
// single-process TCP server and matching client exchanging identity and
// presence over the internal/wire framing protocol. There is no relay, no
// auth server, no encryption in transit, and at most eight peers --
// grounded on the accept-loop and mutex-protected-table shape of
// api/pkg/drm/manager.go, with the non-blocking read/write idiom of
// api/pkg/moonlight/backend.go.
package collab

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixml/termwire/internal/netio"
	"github.com/helixml/termwire/internal/presence"
	"github.com/helixml/termwire/internal/profile"
	"github.com/helixml/termwire/internal/wire"
)

// MaxPeers is the size of the bounded peers table. peer_id is a single
// wire byte, so this could grow to 255 without a wire-format change; 8 is
// the product decision, not a protocol limit.
const MaxPeers = 8

const (
	serverTickInterval = time.Millisecond
	readWindow         = time.Millisecond
)

// JoinCallback, LeaveCallback, and PresenceCallback let the host observe
// collab events without the server knowing anything about the host's UI
// thread. They may fire from the server's I/O goroutine; marshaling to
// another thread is the caller's responsibility.
type JoinCallback func(peerID uint8, p profile.Profile)
type LeaveCallback func(peerID uint8)
type PresenceCallback func(peerID uint8, pr presence.Presence, p profile.Profile)

// ServerConfig configures a Server before Listen.
type ServerConfig struct {
	ListenAddr   string
	HostProfile  profile.Profile
	OnJoin       JoinCallback
	OnLeave      LeaveCallback
	OnPresence   PresenceCallback
}

// Server accepts peers, assigns ids, and routes presence between them and
// the host. One dedicated goroutine owns the listen socket and every
// peer's I/O; the peers table is only ever touched from that goroutine.
type Server struct {
	logger zerolog.Logger
	cfg    ServerConfig

	listener net.Listener
	token    [16]byte

	mu    sync.Mutex // protects count for external readers (PeerCount)
	peers [MaxPeers]peer
	count int

	stop chan struct{}
	done chan struct{}
}

// NewServer constructs a Server bound to cfg. Listen must be called
// before Run.
func NewServer(cfg ServerConfig, logger zerolog.Logger) *Server {
	return &Server{
		logger: logger.With().Str("component", "collab_server").Logger(),
		cfg:    cfg,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Listen binds the listen socket. Call before Run. Binding to port 0
// (the default) lets the OS assign an ephemeral port, discoverable
// afterward via Addr.
func (s *Server) Listen() error {
	id := uuid.New()
	copy(s.token[:], id[:])

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("collab: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = ln
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("collab server listening")
	return nil
}

// Addr returns the bound listen address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// JoinCode renders a short human-typable code: the first 4 bytes of the
// session token as 8 hex characters, a colon, and the decimal port.
func (s *Server) JoinCode() string {
	tcpAddr, ok := s.listener.Addr().(*net.TCPAddr)
	port := 0
	if ok {
		port = tcpAddr.Port
	}
	return hex.EncodeToString(s.token[:4]) + ":" + strconv.Itoa(port)
}

// PeerCount returns the number of currently connected peers.
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Run drives the accept-and-route loop until ctx is cancelled or Stop is
// called. It owns the listen socket and every peer connection; it must
// run on its own goroutine, matching the collab layer's one-thread-per-
// endpoint scheduling model.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.closeAllPeers()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.stop:
		}
		s.listener.Close()
	}()

	if tcpLn, ok := s.listener.(*net.TCPListener); ok {
		tcpLn.SetDeadline(time.Now().Add(readWindow))
	}

	ticker := time.NewTicker(serverTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		default:
		}

		s.acceptOnce()
		s.readPeersOnce()

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		}
	}
}

// Stop signals the run loop to exit and waits for it to finish.
func (s *Server) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

func (s *Server) acceptOnce() {
	if tcpLn, ok := s.listener.(*net.TCPListener); ok {
		tcpLn.SetDeadline(time.Now().Add(readWindow))
	}
	conn, err := s.listener.Accept()
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return
		}
		select {
		case <-s.stop:
		default:
			s.logger.Debug().Err(err).Msg("accept error")
		}
		return
	}

	slot := s.firstFreeSlot()
	if slot < 0 {
		s.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("peers table full, rejecting connection")
		conn.Close()
		return
	}

	s.mu.Lock()
	s.peers[slot].reset(conn)
	s.count++
	s.mu.Unlock()
	s.logger.Debug().Int("slot", slot).Str("remote", conn.RemoteAddr().String()).Msg("peer accepted")
}

func (s *Server) firstFreeSlot() int {
	for i := range s.peers {
		if !s.peers[i].connected {
			return i
		}
	}
	return -1
}

func (s *Server) readPeersOnce() {
	for i := range s.peers {
		p := &s.peers[i]
		if !p.connected {
			continue
		}
		buf := make([]byte, inboundBufSize)
		n, err := netio.TryRead(p.conn, buf, readWindow)
		if err != nil {
			if err == netio.ErrWouldBlock {
				continue
			}
			s.removePeer(i)
			continue
		}
		p.appendInbound(buf[:n])
		s.decodePeer(i)
	}
}

func (s *Server) decodePeer(slot int) {
	p := &s.peers[slot]
	frames, consumed := wire.Decode(p.buf[:p.wpos])
	if consumed > 0 {
		p.shiftResidual(consumed)
	}
	for _, f := range frames {
		s.handleFrame(slot, f)
	}
}

func (s *Server) handleFrame(slot int, f wire.Frame) {
	p := &s.peers[slot]
	peerID := uint8(slot + 1)

	switch f.Type {
	case wire.TypeJoin:
		pr, err := profile.Decode(f.Payload)
		if err != nil {
			s.logger.Debug().Err(err).Int("slot", slot).Msg("malformed join payload, dropped")
			return
		}
		pr.PeerID = peerID
		p.profile = pr

		welcome := append([]byte{peerID}, s.cfg.HostProfile.Encode()[:]...)
		s.sendTo(slot, wire.Encode(wire.TypeWelcome, welcome))
		s.broadcastExcept(slot, wire.Encode(wire.TypePeerJoined, encodeProfile(pr)))

		if s.cfg.OnJoin != nil {
			s.cfg.OnJoin(peerID, pr)
		}

	case wire.TypePresence:
		pr, err := presence.Decode(f.Payload)
		if err != nil {
			s.logger.Debug().Err(err).Int("slot", slot).Msg("malformed presence payload, dropped")
			return
		}
		p.presence = pr
		s.broadcastExcept(slot, wire.Encode(wire.TypePresence, f.Payload))
		if s.cfg.OnPresence != nil {
			s.cfg.OnPresence(peerID, pr, p.profile)
		}

	default:
		s.logger.Debug().Uint8("type", uint8(f.Type)).Msg("unknown frame type, dropped")
	}
}

// BroadcastHostPresence pushes a host-authored presence update to every
// connected peer. The host's own peer id is 0.
func (s *Server) BroadcastHostPresence(pr presence.Presence) {
	frame := wire.Encode(wire.TypePresence, pr.Encode())
	for i := range s.peers {
		if s.peers[i].connected {
			s.sendTo(i, frame)
		}
	}
}

func (s *Server) sendTo(slot int, frame []byte) {
	p := &s.peers[slot]
	if _, err := netio.TryWrite(p.conn, frame, readWindow); err != nil && err != netio.ErrWouldBlock {
		s.logger.Debug().Err(err).Int("slot", slot).Msg("write failed")
	}
}

func (s *Server) broadcastExcept(exceptSlot int, frame []byte) {
	for i := range s.peers {
		if i == exceptSlot || !s.peers[i].connected {
			continue
		}
		s.sendTo(i, frame)
	}
}

func (s *Server) removePeer(slot int) {
	p := &s.peers[slot]
	peerID := uint8(slot + 1)

	if s.cfg.OnLeave != nil {
		s.cfg.OnLeave(peerID)
	}
	s.broadcastExcept(slot, wire.Encode(wire.TypePeerLeft, []byte{peerID}))

	p.conn.Close()
	s.mu.Lock()
	p.connected = false
	s.count--
	s.mu.Unlock()
	s.logger.Debug().Int("slot", slot).Msg("peer removed")
}

func (s *Server) closeAllPeers() {
	for i := range s.peers {
		if s.peers[i].connected {
			s.peers[i].conn.Close()
			s.peers[i].connected = false
		}
	}
}

func encodeProfile(p profile.Profile) []byte {
	enc := p.Encode()
	return enc[:]
}
