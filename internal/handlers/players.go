package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/ids"
	"github.com/wordroom/wordroom-server/internal/middleware"
	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/repo"
)

type createPlayerRequest struct {
	Name   string `json:"name" binding:"required"`
	Avatar string `json:"avatar"`
}

type createPlayerResponse struct {
	Player *models.Player `json:"player"`
	Token  string         `json:"token"`
}

// CreatePlayer registers a device-bound player and issues its token. There is
// no account system; losing the token means registering again.
func (s *Server) CreatePlayer(c *gin.Context) {
	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !models.ValidPlayerName(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player name must be 1-20 characters"})
		return
	}

	player := &models.Player{
		ID:        ids.NewEntityID(),
		Name:      strings.TrimSpace(req.Name),
		Avatar:    req.Avatar,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.players.Create(c.Request.Context(), player); err != nil {
		s.respondError(c, err)
		return
	}

	token, err := middleware.IssueToken(s.jwtSecret, player.ID)
	if err != nil {
		s.log.Error("failed to sign player token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	s.log.Info("player registered", zap.String("player", player.ID))
	c.JSON(http.StatusCreated, createPlayerResponse{Player: player, Token: token})
}

func (s *Server) GetPlayer(c *gin.Context) {
	player, err := s.players.Get(c.Request.Context(), c.Param("playerId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

type patchPlayerRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// PatchPlayer updates a player's own profile. Score is not settable over the
// API; only the game writes it.
func (s *Server) PatchPlayer(c *gin.Context) {
	playerID := c.Param("playerId")
	if c.GetString(middleware.ContextPlayerID) != playerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot modify another player"})
		return
	}

	var req patchPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Name != nil {
		if !models.ValidPlayerName(*req.Name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player name must be 1-20 characters"})
			return
		}
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}

	patch := repo.PlayerPatch{Name: req.Name, Avatar: req.Avatar}
	if err := s.players.Patch(c.Request.Context(), playerID, patch); err != nil {
		s.respondError(c, err)
		return
	}

	player, err := s.players.Get(c.Request.Context(), playerID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}
