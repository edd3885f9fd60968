// Package webrtc carries room snapshots over an unordered, unreliable
// DataChannel so a late snapshot never holds up a newer one.
package webrtc

import (
	"context"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"snakeball-backend/protocol"
)

const (
	SnapshotChannel = "snapshots"

	gatherTimeout = 5 * time.Second
)

var ErrNotOpen = errors.New("data channel not open")

type Options struct {
	ICEServers     []string
	TURNURL        string
	TURNUsername   string
	TURNCredential string

	// OnOpen runs when a participant's snapshot channel opens, OnClose when
	// its peer goes away.
	OnOpen  func(participantID string, peer *Peer)
	OnClose func(participantID string)
	// OnMessage receives frames the client sends over the channel.
	OnMessage func(participantID string, frame []byte)

	Logger *zerolog.Logger
}

// Peer is one participant's connection. It implements broadcast.Sink with the
// msgpack codec.
type Peer struct {
	participantID string
	pc            *webrtc.PeerConnection
	dc            *webrtc.DataChannel
}

func (p *Peer) Codec() protocol.Codec {
	return protocol.MsgpackCodec{}
}

func (p *Peer) Send(frame []byte) error {
	if p.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	return p.dc.Send(frame)
}

type Manager struct {
	mu     sync.RWMutex
	peers  map[string]*Peer
	config webrtc.Configuration
	opts   Options
	log    zerolog.Logger
}

func NewManager(opts Options) *Manager {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Manager{
		peers:  make(map[string]*Peer),
		config: ICEConfiguration(opts),
		opts:   opts,
		log:    logger.With().Str("component", "webrtc").Logger(),
	}
}

// ICEConfiguration builds the STUN and optional TURN server list.
func ICEConfiguration(opts Options) webrtc.Configuration {
	var servers []webrtc.ICEServer
	if len(opts.ICEServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: opts.ICEServers})
	}
	if opts.TURNURL != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs: []string{
				opts.TURNURL + "?transport=udp",
				opts.TURNURL + "?transport=tcp",
			},
			Username:   opts.TURNUsername,
			Credential: opts.TURNCredential,
		})
	}
	return webrtc.Configuration{
		ICEServers:         servers,
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}

// Answer accepts a client offer for participantID and returns the complete
// answer, candidates included. Any previous peer of the participant is closed.
func (m *Manager) Answer(ctx context.Context, participantID string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	m.Remove(participantID)
	logger := m.log.With().Str("participant", participantID).Logger()

	pc, err := webrtc.NewPeerConnection(m.config)
	if err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(err, "new peer connection")
	}

	ordered := false
	retransmits := uint16(0)
	dc, err := pc.CreateDataChannel(SnapshotChannel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &retransmits,
	})
	if err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, errors.Wrap(err, "create data channel")
	}

	peer := &Peer{participantID: participantID, pc: pc, dc: dc}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		logger.Debug().Str("state", state.String()).Msg("ice connection state")
		switch state {
		case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateDisconnected, webrtc.ICEConnectionStateClosed:
			m.removePeer(peer)
		}
	})
	dc.OnOpen(func() {
		logger.Info().Msg("snapshot channel open")
		if m.opts.OnOpen != nil {
			m.opts.OnOpen(participantID, peer)
		}
	})
	dc.OnClose(func() {
		logger.Debug().Msg("snapshot channel closed")
		m.removePeer(peer)
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if m.opts.OnMessage != nil {
			m.opts.OnMessage(participantID, msg.Data)
		}
	})

	answer, err := negotiate(ctx, pc, offer)
	if err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, err
	}

	m.mu.Lock()
	m.peers[participantID] = peer
	m.mu.Unlock()
	return answer, nil
}

func negotiate(ctx context.Context, pc *webrtc.PeerConnection, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(err, "set remote description")
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(err, "create answer")
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(err, "set local description")
	}

	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()
	select {
	case <-gathered:
	case <-ctx.Done():
		return webrtc.SessionDescription{}, errors.Wrap(ctx.Err(), "gather candidates")
	}
	return *pc.LocalDescription(), nil
}

func (m *Manager) Peer(participantID string) (*Peer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	peer, ok := m.peers[participantID]
	return peer, ok
}

// Remove closes participantID's peer, if any.
func (m *Manager) Remove(participantID string) {
	m.mu.RLock()
	peer, ok := m.peers[participantID]
	m.mu.RUnlock()
	if ok {
		m.removePeer(peer)
	}
}

// removePeer forgets peer if it is still the participant's current one.
// Callbacks of a replaced peer therefore do not tear down its successor.
func (m *Manager) removePeer(peer *Peer) {
	m.mu.Lock()
	current, ok := m.peers[peer.participantID]
	if ok && current == peer {
		delete(m.peers, peer.participantID)
	}
	m.mu.Unlock()

	if err := peer.pc.Close(); err != nil {
		m.log.Debug().Err(err).Str("participant", peer.participantID).Msg("close peer")
	}
	if ok && current == peer && m.opts.OnClose != nil {
		m.opts.OnClose(peer.participantID)
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}

func (m *Manager) Close() {
	m.mu.RLock()
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.RUnlock()

	for _, p := range peers {
		m.removePeer(p)
	}
}
