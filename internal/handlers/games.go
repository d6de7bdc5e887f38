package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListGames returns the active game catalog.
func (s *Server) ListGames(c *gin.Context) {
	games, err := s.catalog.Games(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}
