// Package handlers exposes the room lifecycle over HTTP and websockets. It
// translates requests into lifecycle calls and domain errors into status
// codes; no game rules live here.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/catalog"
	"github.com/wordroom/wordroom-server/internal/lifecycle"
	"github.com/wordroom/wordroom-server/internal/middleware"
	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/repo"
	"github.com/wordroom/wordroom-server/internal/rounds"
	"github.com/wordroom/wordroom-server/internal/watch"
)

// GameCatalog is the slice of the catalog the HTTP surface needs.
type GameCatalog interface {
	Games(ctx context.Context) ([]catalog.Game, error)
}

// RoundStarter begins and serves rounds for started rooms.
type RoundStarter interface {
	Begin(ctx context.Context, room *models.Room) error
	Session(ctx context.Context, code string) (*rounds.Session, error)
}

type Server struct {
	jwtSecret string

	players   *repo.Players
	rooms     *repo.Rooms
	lifecycle *lifecycle.Service
	catalog   GameCatalog
	runner    RoundStarter
	hub       *watch.Hub
	log       *zap.Logger
}

func NewServer(jwtSecret string, players *repo.Players, rooms *repo.Rooms, svc *lifecycle.Service, cat GameCatalog, runner RoundStarter, hub *watch.Hub, log *zap.Logger) *Server {
	return &Server{
		jwtSecret: jwtSecret,
		players:   players,
		rooms:     rooms,
		lifecycle: svc,
		catalog:   cat,
		runner:    runner,
		hub:       hub,
		log:       log,
	}
}

// Routes mounts the API. Registration is public; everything touching a player
// or room requires the player token.
func (s *Server) Routes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := middleware.PlayerAuth(s.jwtSecret)

	api := router.Group("/api")
	{
		api.POST("/players", s.CreatePlayer)
		api.GET("/players/:playerId", auth, s.GetPlayer)
		api.PATCH("/players/:playerId", auth, s.PatchPlayer)

		api.GET("/games", s.ListGames)

		api.POST("/rooms", auth, s.CreateRoom)
		api.GET("/rooms/:roomId", auth, s.GetRoom)
		api.POST("/rooms/:roomId/join", auth, s.JoinRoom)
		api.POST("/rooms/:roomId/leave", auth, s.LeaveRoom)
		api.POST("/rooms/:roomId/kick", auth, s.KickPlayer)
		api.POST("/rooms/:roomId/start", auth, s.StartGame)
		api.POST("/rooms/:roomId/ready", auth, s.SetReady)
		api.PATCH("/rooms/:roomId/settings", auth, s.UpdateSettings)
		api.GET("/rooms/:roomId/session", auth, s.GetSession)
	}

	ws := router.Group("/ws")
	{
		ws.GET("/rooms/:roomId", auth, s.WatchRoom)
	}
}
