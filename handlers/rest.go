package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"snakeball-backend/auth"
	"snakeball-backend/stats"
)

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Token   string        `json:"token"`
	Profile stats.Profile `json:"profile"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || !auth.ValidUsername(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": auth.ErrInvalidUsername.Error()})
		return
	}

	profile, err := s.manager.Stats().FindOrCreate(c.Request.Context(), req.Username)
	if err != nil {
		s.log.Error().Err(err).Str("username", req.Username).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}

	token, err := s.tokens.Generate(req.Username, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("token generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, Profile: profile})
}

func (s *Server) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.RoomList())
}

func (s *Server) Ranking(c *gin.Context) {
	sortBy := c.DefaultQuery("sortBy", stats.SortResults)
	limit := stats.RankingLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v < limit {
		limit = v
	}

	ranking, err := s.manager.Stats().Ranking(c.Request.Context(), sortBy, limit)
	switch {
	case errors.Is(err, stats.ErrInvalidSort):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		s.log.Error().Err(err).Msg("ranking failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load ranking"})
	default:
		c.JSON(http.StatusOK, ranking)
	}
}

func (s *Server) Profile(c *gin.Context) {
	profile, err := s.manager.Stats().Profile(c.Request.Context(), auth.Username(c))
	switch {
	case errors.Is(err, stats.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		s.log.Error().Err(err).Msg("profile failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
	default:
		c.JSON(http.StatusOK, profile)
	}
}
