package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"snakeball-backend/auth"
	"snakeball-backend/broadcast"
	"snakeball-backend/constants"
	"snakeball-backend/game"
	"snakeball-backend/models"
	"snakeball-backend/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 256
)

// ServeWS authenticates the token query parameter, upgrades the connection
// and runs it until either side closes.
func (s *Server) ServeWS(c *gin.Context) {
	username, err := s.tokens.Verify(auth.TokenFromRequest(c.Request), time.Now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	player := &models.Player{
		ID:       uuid.NewString(),
		Username: username,
		JoinedAt: time.Now(),
	}
	sink := broadcast.NewChanSink(sendBuffer)

	if err := s.manager.Connect(player, sink); err != nil {
		s.rejectConnection(conn, player, err)
		return
	}

	done := make(chan struct{})
	go s.writePump(player, conn, sink, done)
	s.readPump(player, conn, done)
}

func (s *Server) rejectConnection(conn *websocket.Conn, player *models.Player, err error) {
	defer conn.Close()
	s.log.Info().Err(err).Str("username", player.Username).Msg("connection rejected")

	code, message, ok := game.Describe(err)
	if !ok {
		code, message = "INTERNAL", "Could not connect"
	}
	frame, encErr := protocol.Encode(constants.MSG_ERROR, protocol.Error{Code: code, Message: message})
	if encErr != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, frame)
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code))
}

func (s *Server) readPump(player *models.Player, conn *websocket.Conn, done chan struct{}) {
	logger := s.log.With().Str("participant", player.ID).Str("username", player.Username).Logger()
	defer func() {
		s.webrtc.Remove(player.ID)
		s.manager.Disconnect(player.ID)
		close(done)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(rate.Limit(s.cfg.InputRate), s.cfg.InputBurst)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(errors.Wrap(err, "read")).Msg("websocket closed unexpectedly")
			}
			return
		}
		if !limiter.Allow() {
			logger.Warn().Msg("input rate exceeded, dropping message")
			continue
		}
		s.manager.HandleMessage(player, message)
	}
}

// writePump sends one frame per websocket message. Frames are never batched
// since each is a complete JSON document.
func (s *Server) writePump(player *models.Player, conn *websocket.Conn, sink *broadcast.ChanSink, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-sink.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug().Err(err).Str("participant", player.ID).Msg("write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
