package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/middleware"
	"github.com/wordroom/wordroom-server/internal/models"
)

type createRoomRequest struct {
	GameID string `json:"gameId" binding:"required"`
}

// CreateRoom opens a waiting room with the caller as host. Settings start
// from the game's catalog defaults.
func (s *Server) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	playerID := c.GetString(middleware.ContextPlayerID)
	room, err := s.lifecycle.CreateRoom(c.Request.Context(), playerID, req.GameID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *Server) GetRoom(c *gin.Context) {
	room, err := s.rooms.Get(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) JoinRoom(c *gin.Context) {
	code := c.Param("roomId")
	playerID := c.GetString(middleware.ContextPlayerID)
	if err := s.lifecycle.JoinRoom(c.Request.Context(), code, playerID); err != nil {
		s.respondError(c, err)
		return
	}
	room, err := s.rooms.Get(c.Request.Context(), code)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) LeaveRoom(c *gin.Context) {
	code := c.Param("roomId")
	playerID := c.GetString(middleware.ContextPlayerID)
	if err := s.lifecycle.LeaveRoom(c.Request.Context(), code, playerID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

type kickRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
}

func (s *Server) KickPlayer(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	code := c.Param("roomId")
	requesterID := c.GetString(middleware.ContextPlayerID)
	if err := s.lifecycle.KickPlayer(c.Request.Context(), code, requesterID, req.PlayerID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kicked": req.PlayerID})
}

// StartGame flips the room to playing and kicks off the round. If dealing the
// round fails the room is finished immediately rather than left playing with
// no questions.
func (s *Server) StartGame(c *gin.Context) {
	code := c.Param("roomId")
	requesterID := c.GetString(middleware.ContextPlayerID)

	room, err := s.lifecycle.StartGame(c.Request.Context(), code, requesterID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.runner.Begin(c.Request.Context(), room); err != nil {
		s.log.Error("failed to begin round, finishing room",
			zap.String("room", code), zap.Error(err))
		if ferr := s.lifecycle.FinishGame(c.Request.Context(), code); ferr != nil {
			s.log.Error("failed to finish aborted room",
				zap.String("room", code), zap.Error(ferr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start game"})
		return
	}
	c.JSON(http.StatusOK, room)
}

type readyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}

func (s *Server) SetReady(c *gin.Context) {
	var req readyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	code := c.Param("roomId")
	playerID := c.GetString(middleware.ContextPlayerID)
	if err := s.lifecycle.SetReady(c.Request.Context(), code, playerID, *req.Ready); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": *req.Ready})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var settings models.GameSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	code := c.Param("roomId")
	requesterID := c.GetString(middleware.ContextPlayerID)
	if err := s.lifecycle.UpdateSettings(c.Request.Context(), code, requesterID, settings); err != nil {
		s.respondError(c, err)
		return
	}
	room, err := s.rooms.Get(c.Request.Context(), code)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// GetSession returns the question set for a room's running round. Members
// only; spectators are not a thing.
func (s *Server) GetSession(c *gin.Context) {
	code := c.Param("roomId")
	playerID := c.GetString(middleware.ContextPlayerID)

	room, err := s.rooms.Get(c.Request.Context(), code)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !room.HasPlayer(playerID) {
		s.respondError(c, models.ErrNotMember)
		return
	}

	session, err := s.runner.Session(c.Request.Context(), code)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
