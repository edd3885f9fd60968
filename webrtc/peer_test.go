package webrtc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICEConfiguration(t *testing.T) {
	cfg := ICEConfiguration(Options{
		ICEServers:     []string{"stun:stun.example.com:3478"},
		TURNURL:        "turn:turn.example.com:3478",
		TURNUsername:   "user",
		TURNCredential: "pass",
	})
	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, cfg.ICEServers[0].URLs)
	assert.Equal(t, []string{
		"turn:turn.example.com:3478?transport=udp",
		"turn:turn.example.com:3478?transport=tcp",
	}, cfg.ICEServers[1].URLs)
	assert.Equal(t, "user", cfg.ICEServers[1].Username)

	assert.Empty(t, ICEConfiguration(Options{}).ICEServers)
}

func clientOffer(t *testing.T) (*webrtc.PeerConnection, webrtc.SessionDescription) {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	_, err = pc.CreateDataChannel("control", nil)
	require.NoError(t, err)

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	gathered := webrtc.GatheringCompletePromise(pc)
	require.NoError(t, pc.SetLocalDescription(offer))
	<-gathered
	return pc, *pc.LocalDescription()
}

func TestAnswerNegotiatesSnapshotChannel(t *testing.T) {
	if testing.Short() {
		t.Skip("negotiates a real peer connection")
	}
	closed := make(chan string, 1)
	m := NewManager(Options{OnClose: func(id string) { closed <- id }})
	defer m.Close()

	client, offer := clientOffer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	answer, err := m.Answer(ctx, "p1", offer)
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	assert.True(t, strings.Contains(answer.SDP, "webrtc-datachannel"))
	require.NoError(t, client.SetRemoteDescription(answer))

	peer, ok := m.Peer("p1")
	require.True(t, ok)
	assert.Equal(t, "msgpack", peer.Codec().Name())
	assert.Equal(t, 1, m.Len())

	m.Remove("p1")
	assert.Equal(t, 0, m.Len())
	select {
	case id := <-closed:
		assert.Equal(t, "p1", id)
	case <-ctx.Done():
		t.Fatal("OnClose not called")
	}
	assert.ErrorIs(t, peer.Send([]byte("x")), ErrNotOpen)
}

func TestAnswerReplacesPreviousPeer(t *testing.T) {
	if testing.Short() {
		t.Skip("negotiates a real peer connection")
	}
	m := NewManager(Options{})
	defer m.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, offer := clientOffer(t)
	_, err := m.Answer(ctx, "p1", offer)
	require.NoError(t, err)
	first, _ := m.Peer("p1")

	_, offer = clientOffer(t)
	_, err = m.Answer(ctx, "p1", offer)
	require.NoError(t, err)
	second, _ := m.Peer("p1")

	assert.NotSame(t, first, second)
	assert.Equal(t, 1, m.Len())
}

func TestAnswerRejectsBadOffer(t *testing.T) {
	m := NewManager(Options{})
	_, err := m.Answer(context.Background(), "p1", webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "garbage"})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}
