package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"

	"snakeball-backend/auth"
)

type offerRequest struct {
	ParticipantID string `json:"participantId"`
	Offer         struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"offer"`
}

type answerResponse struct {
	Answer struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"answer"`
}

// HandleOffer opens a snapshot DataChannel for a participant that is already
// connected over the websocket. The websocket stays the reliable channel.
func (s *Server) HandleOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Offer.SDP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer"})
		return
	}

	player, ok := s.manager.Lobby.Get(req.ParticipantID)
	if !ok || player.Username != auth.Username(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "participant is not connected"})
		return
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: req.Offer.SDP}
	answer, err := s.webrtc.Answer(c.Request.Context(), player.ID, offer)
	if err != nil {
		s.log.Warn().Err(err).Str("participant", player.ID).Msg("webrtc negotiation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not negotiate"})
		return
	}

	var resp answerResponse
	resp.Answer.Type = answer.Type.String()
	resp.Answer.SDP = answer.SDP
	c.JSON(http.StatusOK, resp)
}
