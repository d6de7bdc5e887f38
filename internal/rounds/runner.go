// Package rounds drives a room from playing to finished. It is the game-logic
// collaborator the lifecycle service trusts with FinishGame: when a host
// starts a room, the runner deals a question set into the store and arms a
// timer that ends the game when the round clock runs out, whether or not any
// client is still connected.
package rounds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/catalog"
	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/quiz"
	"github.com/wordroom/wordroom-server/internal/store"
)

const (
	sessionPrefix = "sessions/"
	// graceWindow pads the round deadline so slow last answers still land.
	graceWindow = 5 * time.Second
	// wordOverdraw fetches spare words so multiple choice has distractors.
	wordOverdraw = 4

	finishTimeout = 10 * time.Second
)

func sessionPath(code string) string { return sessionPrefix + code }

// GameSource supplies the reference data a round is built from.
type GameSource interface {
	Game(ctx context.Context, id string) (*catalog.Game, error)
	Words(ctx context.Context, difficulty string, limit int) ([]catalog.Word, error)
}

// Finisher is the one lifecycle operation the runner needs.
type Finisher interface {
	FinishGame(ctx context.Context, code string) error
}

// Session is the per-round document at sessions/{roomId}.
type Session struct {
	RoomID    string          `json:"roomId"`
	GameID    string          `json:"gameId"`
	Questions []quiz.Question `json:"questions"`
	StartedAt int64           `json:"startedAt"`
	EndsAt    int64           `json:"endsAt"`
}

// Runner owns the round timers for this process.
type Runner struct {
	games    GameSource
	finisher Finisher
	st       store.Store
	log      *zap.Logger

	now func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewRunner(games GameSource, finisher Finisher, st store.Store, log *zap.Logger) *Runner {
	return &Runner{
		games:    games,
		finisher: finisher,
		st:       st,
		log:      log,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// Begin deals the question set for a freshly started room and schedules the
// finish. The room must already be playing; Begin does not touch room state
// except through FinishGame at the deadline.
func (r *Runner) Begin(ctx context.Context, room *models.Room) error {
	game, err := r.games.Game(ctx, room.GameID)
	if err != nil {
		return err
	}
	settings := room.GameSettings
	words, err := r.games.Words(ctx, settings.Difficulty, settings.QuestionsCount+wordOverdraw)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(r.now().UnixNano()))
	questions, err := quiz.GenerateQuestions(words, game.Mode, settings.QuestionsCount, rng)
	if err != nil {
		return fmt.Errorf("deal questions for room %s: %w", room.ID, err)
	}

	duration := time.Duration(len(questions)*settings.TimePerQuestion)*time.Second + graceWindow
	started := r.now()
	session := Session{
		RoomID:    room.ID,
		GameID:    room.GameID,
		Questions: questions,
		StartedAt: started.UnixMilli(),
		EndsAt:    started.Add(duration).UnixMilli(),
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := r.st.Write(ctx, sessionPath(room.ID), raw); err != nil {
		return err
	}

	r.mu.Lock()
	if old, ok := r.timers[room.ID]; ok {
		old.Stop()
	}
	r.timers[room.ID] = time.AfterFunc(duration, func() { r.finish(room.ID) })
	r.mu.Unlock()

	r.log.Info("round started",
		zap.String("room", room.ID),
		zap.String("game", room.GameID),
		zap.Int("questions", len(questions)),
		zap.Duration("duration", duration))
	return nil
}

// Session returns the live round document for a room.
func (r *Runner) Session(ctx context.Context, code string) (*Session, error) {
	raw, err := r.st.Read(ctx, sessionPath(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrRoomNotFound
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", code, err)
	}
	return &session, nil
}

// Cancel drops the pending finish timer, e.g. when the room vanished.
func (r *Runner) Cancel(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if timer, ok := r.timers[code]; ok {
		timer.Stop()
		delete(r.timers, code)
	}
}

// Stop cancels every pending round, for shutdown.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, timer := range r.timers {
		timer.Stop()
		delete(r.timers, code)
	}
}

func (r *Runner) finish(code string) {
	r.mu.Lock()
	delete(r.timers, code)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()

	err := r.finisher.FinishGame(ctx, code)
	switch {
	case err == nil:
		r.log.Info("round finished", zap.String("room", code))
	case errors.Is(err, models.ErrRoomNotFound):
		// Everyone already left; clean the orphan session.
		if derr := r.st.Delete(ctx, sessionPath(code)); derr != nil {
			r.log.Warn("failed to delete orphan session", zap.String("room", code), zap.Error(derr))
		}
	default:
		r.log.Error("failed to finish round", zap.String("room", code), zap.Error(err))
	}
}
