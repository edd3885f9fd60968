package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"snakeball-backend/auth"
	"snakeball-backend/config"
	"snakeball-backend/game"
	"snakeball-backend/logging"
	webrtcManager "snakeball-backend/webrtc"
)

type Server struct {
	cfg     config.Config
	manager *game.Manager
	tokens  *auth.TokenManager
	webrtc  *webrtcManager.Manager
	log     zerolog.Logger
}

// NewServer wires the transports to manager. Snapshot DataChannels are
// attached to the hub as lossy sinks while they are open.
func NewServer(cfg config.Config, manager *game.Manager, tokens *auth.TokenManager) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		tokens:  tokens,
		log:     logging.For("http"),
	}
	s.webrtc = webrtcManager.NewManager(webrtcManager.Options{
		ICEServers:     cfg.ICEServers,
		TURNURL:        cfg.TURNURL,
		TURNUsername:   cfg.TURNUsername,
		TURNCredential: cfg.TURNCredential,
		OnOpen: func(id string, peer *webrtcManager.Peer) {
			manager.Hub.AttachLossy(id, peer)
		},
		OnClose: manager.Hub.DetachLossy,
		OnMessage: func(id string, frame []byte) {
			if player, ok := manager.Lobby.Get(id); ok {
				manager.HandleMessage(player, frame)
			}
		},
	})
	return s
}

func (s *Server) allowAllOrigins() bool {
	return len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.allowAllOrigins() || slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
	if s.allowAllOrigins() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	r.GET("/ws", s.ServeWS)

	api := r.Group("/api")
	api.POST("/login", s.Login)
	api.GET("/rooms", s.Rooms)
	api.GET("/ranking", s.Ranking)
	api.GET("/profile", auth.RequireAuth(s.tokens), s.Profile)

	r.POST("/webrtc/offer", auth.RequireAuth(s.tokens), s.HandleOffer)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("request")
	}
}

// Close tears down every peer connection.
func (s *Server) Close() {
	s.webrtc.Close()
}
