package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/middleware"
	"github.com/wordroom/wordroom-server/internal/watch"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// eventBuffer bounds a client's backlog; the watcher drops clients that
	// fall further behind than this.
	eventBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// WatchRoom streams room state over a websocket. The first frame is the
// current snapshot; every committed change follows as a new versioned event.
// Clients send nothing meaningful; all mutations go through the HTTP API.
func (s *Server) WatchRoom(c *gin.Context) {
	code := c.Param("roomId")
	playerID := c.GetString(middleware.ContextPlayerID)

	if _, err := s.rooms.Get(c.Request.Context(), code); err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// One player may hold several tabs on the same room.
	clientID := playerID + ":" + uuid.New().String()
	out := make(chan watch.Event, eventBuffer)
	detach, err := s.hub.Attach(c.Request.Context(), code, clientID, out)
	if err != nil {
		conn.Close()
		return
	}

	s.log.Info("watch client connected",
		zap.String("room", code), zap.String("player", playerID))

	done := make(chan struct{})
	go s.writeEvents(conn, out, done)
	go s.readUntilClose(conn, code, playerID, detach, done)
}

// writeEvents pushes watcher events and keepalive pings until the client
// goes away or the watcher closes the outbox.
func (s *Server) writeEvents(conn *websocket.Conn, out chan watch.Event, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Watcher dropped us or shut down; the client reconnects.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// readUntilClose discards inbound frames and detaches when the connection
// dies. Reads also refresh the pong deadline.
func (s *Server) readUntilClose(conn *websocket.Conn, code, playerID string, detach func(), done chan struct{}) {
	defer func() {
		detach()
		close(done)
		conn.Close()
		s.log.Info("watch client disconnected",
			zap.String("room", code), zap.String("player", playerID))
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}
