package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/store"
)

// respondError maps domain errors onto status codes. Precondition failures
// and commit conflicts are both 409: the client refreshes and retries.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrRoomNotFound),
		errors.Is(err, models.ErrPlayerNotFound),
		errors.Is(err, models.ErrGameNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrNotHost),
		errors.Is(err, models.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrRoomNotJoinable),
		errors.Is(err, models.ErrRoomFull),
		errors.Is(err, models.ErrCannotKickHost),
		errors.Is(err, models.ErrNotEnoughPlayers),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrInvalidSettings):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrCodeSpaceExhausted),
		errors.Is(err, store.ErrUnreachable),
		errors.Is(err, store.ErrDenied):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})

	default:
		s.log.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
