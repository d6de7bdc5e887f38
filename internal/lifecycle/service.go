// Package lifecycle is the room state machine. It is the sole writer of a
// room's status, membership and host, and enforces every invariant inside the
// store's conditional-update cycle so concurrent clients cannot interleave a
// stale check with a write.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/ids"
	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/repo"
	"github.com/wordroom/wordroom-server/internal/store"
)

const defaultCodeAttempts = 10

// SettingsProvider supplies a game's default settings at room-creation time.
type SettingsProvider interface {
	DefaultSettings(ctx context.Context, gameID string) (models.GameSettings, error)
}

// Service coordinates room membership and status transitions.
type Service struct {
	rooms    *repo.Rooms
	players  *repo.Players
	settings SettingsProvider
	log      *zap.Logger

	// test seams
	now          func() time.Time
	newCode      func() string
	codeAttempts int
}

func New(rooms *repo.Rooms, players *repo.Players, settings SettingsProvider, log *zap.Logger) *Service {
	return &Service{
		rooms:        rooms,
		players:      players,
		settings:     settings,
		log:          log,
		now:          time.Now,
		newCode:      ids.NewRoomCode,
		codeAttempts: defaultCodeAttempts,
	}
}

// CreateRoom allocates a fresh code and writes the room in a single atomic
// create; no intermediate state is ever observable. Code collisions with live
// rooms trigger regeneration up to a bounded attempt count.
func (s *Service) CreateRoom(ctx context.Context, hostPlayerID, gameID string) (*models.Room, error) {
	if _, err := s.players.Get(ctx, hostPlayerID); err != nil {
		return nil, err
	}
	settings, err := s.settings.DefaultSettings(ctx, gameID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		now := s.now()
		room := &models.Room{
			ID:           s.newCode(),
			HostPlayerID: hostPlayerID,
			Players: map[string]models.Member{
				hostPlayerID: {JoinedAt: now.UnixMilli()},
			},
			Status:       models.StatusWaiting,
			GameID:       gameID,
			GameSettings: settings,
			CreatedAt:    now.UnixMilli(),
		}
		err := s.rooms.Create(ctx, room)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.Info("room created",
			zap.String("room", room.ID),
			zap.String("host", hostPlayerID),
			zap.String("game", gameID))
		return room, nil
	}
	return nil, models.ErrCodeSpaceExhausted
}

// JoinRoom seats a player. Preconditions are re-validated against the value
// the commit is conditioned on, so two joins racing for the last slot cannot
// both succeed. Joining a room you are already in is a no-op success, except
// that a member who left mid-game gets their ghost seat revived; membership
// stays frozen while playing, but a leaver may come back to their own seat.
func (s *Service) JoinRoom(ctx context.Context, code, playerID string) error {
	if _, err := s.players.Get(ctx, playerID); err != nil {
		return err
	}
	return s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, models.ErrRoomNotFound
		}
		if member, ok := room.Players[playerID]; ok {
			if room.Status == models.StatusPlaying && member.Ghost {
				member.Ghost = false
				room.Players[playerID] = member
				return room, nil
			}
			return nil, store.ErrSkipWrite
		}
		if room.Status != models.StatusWaiting {
			return nil, models.ErrRoomNotJoinable
		}
		if len(room.Players) >= room.GameSettings.MaxPlayers {
			return nil, models.ErrRoomFull
		}
		room.Players[playerID] = models.Member{JoinedAt: s.now().UnixMilli()}
		return room, nil
	})
}

// LeaveRoom removes a player's seat. The last member leaving deletes the room;
// a departing host hands off to the earliest-joined survivor in the same
// atomic swap, so no observer ever sees a hostless room. Once the game is
// playing, membership is frozen: the seat stays as a ghost and the host is not
// reassigned.
func (s *Service) LeaveRoom(ctx context.Context, code, playerID string) error {
	return s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, models.ErrRoomNotFound
		}
		member, ok := room.Players[playerID]
		if !ok {
			return nil, store.ErrSkipWrite
		}

		if room.Status == models.StatusPlaying {
			if member.Ghost {
				return nil, store.ErrSkipWrite
			}
			member.Ghost = true
			room.Players[playerID] = member
			if room.ActivePlayers() == 0 {
				// Everyone abandoned the game; nothing left to come back to.
				return nil, nil
			}
			return room, nil
		}

		delete(room.Players, playerID)
		if len(room.Players) == 0 {
			return nil, nil
		}
		if room.HostPlayerID == playerID {
			room.HostPlayerID = room.SuccessorHost()
		}
		return room, nil
	})
}

// KickPlayer is host-only removal with leave semantics, allowed while waiting.
func (s *Service) KickPlayer(ctx context.Context, code, requesterID, targetID string) error {
	return s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, models.ErrRoomNotFound
		}
		if room.HostPlayerID != requesterID {
			return nil, models.ErrNotHost
		}
		if room.Status != models.StatusWaiting {
			return nil, models.ErrInvalidTransition
		}
		if targetID == room.HostPlayerID {
			return nil, models.ErrCannotKickHost
		}
		if !room.HasPlayer(targetID) {
			return nil, store.ErrSkipWrite
		}
		delete(room.Players, targetID)
		return room, nil
	})
}

// StartGame flips waiting -> playing. One-way; there is no path back.
func (s *Service) StartGame(ctx context.Context, code, requesterID string) (*models.Room, error) {
	var started *models.Room
	err := s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, models.ErrRoomNotFound
		}
		if room.HostPlayerID != requesterID {
			return nil, models.ErrNotHost
		}
		if room.Status != models.StatusWaiting {
			return nil, models.ErrInvalidTransition
		}
		if len(room.Players) < room.GameSettings.MinPlayers {
			return nil, models.ErrNotEnoughPlayers
		}
		room.Status = models.StatusPlaying
		room.StartedAt = s.now().UnixMilli()
		started = room
		return room, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("game started", zap.String("room", code), zap.String("host", requesterID))
	return started, nil
}

// FinishGame flips playing -> finished. It is called by the round runner, not
// routed to arbitrary clients. Finishing twice is a no-op.
func (s *Service) FinishGame(ctx context.Context, code string) error {
	return s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, models.ErrRoomNotFound
		}
		switch room.Status {
		case models.StatusFinished:
			return nil, store.ErrSkipWrite
		case models.StatusWaiting:
			return nil, models.ErrInvalidTransition
		}
		room.Status = models.StatusFinished
		room.FinishedAt = s.now().UnixMilli()
		return room, nil
	})
}

// SetReady toggles a member's ready flag while the room is waiting.
func (s *Service) SetReady(ctx context.Context, code, playerID string, ready bool) error {
	return s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, models.ErrRoomNotFound
		}
		member, ok := room.Players[playerID]
		if !ok {
			return nil, models.ErrNotMember
		}
		if room.Status != models.StatusWaiting {
			return nil, models.ErrInvalidTransition
		}
		if member.Ready == ready {
			return nil, store.ErrSkipWrite
		}
		member.Ready = ready
		room.Players[playerID] = member
		return room, nil
	})
}

// UpdateSettings lets the host tune the settings snapshot before the game
// starts. Capacity can never drop below the current member count.
func (s *Service) UpdateSettings(ctx context.Context, code, requesterID string, settings models.GameSettings) error {
	if !validSettings(settings) {
		return models.ErrInvalidSettings
	}
	return s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, models.ErrRoomNotFound
		}
		if room.HostPlayerID != requesterID {
			return nil, models.ErrNotHost
		}
		if room.Status != models.StatusWaiting {
			return nil, models.ErrInvalidTransition
		}
		if settings.MaxPlayers < len(room.Players) {
			return nil, models.ErrInvalidSettings
		}
		room.GameSettings = settings
		return room, nil
	})
}

// ExpireRoom deletes rooms abandoned before start or long since finished.
// Codes become reusable once the document is gone. Returns whether the room
// was removed.
func (s *Service) ExpireRoom(ctx context.Context, code string, cutoff time.Time) (bool, error) {
	expired := false
	err := s.rooms.Update(ctx, code, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, store.ErrSkipWrite
		}
		var idleSince int64
		switch room.Status {
		case models.StatusWaiting:
			idleSince = room.CreatedAt
		case models.StatusFinished:
			idleSince = room.FinishedAt
		default:
			return nil, store.ErrSkipWrite
		}
		if idleSince > cutoff.UnixMilli() {
			return nil, store.ErrSkipWrite
		}
		expired = true
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	if expired {
		s.log.Info("room expired", zap.String("room", code))
	}
	return expired, nil
}

func validSettings(s models.GameSettings) bool {
	switch s.Difficulty {
	case "easy", "medium", "hard", "mixed":
	default:
		return false
	}
	return s.MinPlayers >= 2 &&
		s.MaxPlayers >= s.MinPlayers &&
		s.MaxPlayers <= 16 &&
		s.QuestionsCount >= 1 && s.QuestionsCount <= 50 &&
		s.TimePerQuestion >= 5 && s.TimePerQuestion <= 120
}
