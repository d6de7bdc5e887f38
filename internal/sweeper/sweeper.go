// Package sweeper reclaims abandoned rooms on a schedule. Waiting rooms that
// never started and finished rooms nobody revisits are deleted after their
// TTLs, freeing their codes for reuse. Session documents whose room is gone
// are removed in the same pass.
package sweeper

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/lifecycle"
	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/repo"
	"github.com/wordroom/wordroom-server/internal/store"
)

const sessionPrefix = "sessions/"

const sweepTimeout = 30 * time.Second

type Sweeper struct {
	rooms     *repo.Rooms
	lifecycle *lifecycle.Service
	st        store.Store
	log       *zap.Logger

	waitingTTL  time.Duration
	finishedTTL time.Duration

	cron *cron.Cron
	now  func() time.Time
}

func New(rooms *repo.Rooms, svc *lifecycle.Service, st store.Store, log *zap.Logger, waitingTTL, finishedTTL time.Duration) *Sweeper {
	return &Sweeper{
		rooms:       rooms,
		lifecycle:   svc,
		st:          st,
		log:         log,
		waitingTTL:  waitingTTL,
		finishedTTL: finishedTTL,
		cron:        cron.New(),
		now:         time.Now,
	}
}

// Start schedules sweeps with a cron spec, e.g. "@every 10m".
func (s *Sweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("sweeper started", zap.String("schedule", spec))
	return nil
}

// Stop halts the schedule and waits for a running sweep to return.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs one pass and reports how many rooms were expired. Expiry goes
// through the lifecycle service so a room that picks up activity between the
// listing and the delete survives.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	expired := 0
	for _, room := range rooms {
		var cutoff time.Time
		switch room.Status {
		case models.StatusWaiting:
			cutoff = now.Add(-s.waitingTTL)
		case models.StatusFinished:
			cutoff = now.Add(-s.finishedTTL)
		default:
			continue
		}
		gone, err := s.lifecycle.ExpireRoom(ctx, room.ID, cutoff)
		if err != nil {
			s.log.Warn("failed to expire room", zap.String("room", room.ID), zap.Error(err))
			continue
		}
		if gone {
			expired++
		}
	}

	if err := s.sweepSessions(ctx); err != nil {
		s.log.Warn("failed to sweep sessions", zap.Error(err))
	}

	if expired > 0 {
		s.log.Info("sweep complete", zap.Int("expired", expired), zap.Int("scanned", len(rooms)))
	}
	return expired, nil
}

// sweepSessions deletes round documents whose room no longer exists or is no
// longer playing.
func (s *Sweeper) sweepSessions(ctx context.Context) error {
	docs, err := s.st.List(ctx, sessionPrefix)
	if err != nil {
		return err
	}
	for path := range docs {
		code := strings.TrimPrefix(path, sessionPrefix)
		room, err := s.rooms.Get(ctx, code)
		switch {
		case errors.Is(err, models.ErrRoomNotFound):
		case err != nil:
			continue
		case room.Status == models.StatusPlaying:
			continue
		}
		if err := s.st.Delete(ctx, path); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("failed to delete stale session", zap.String("room", code), zap.Error(err))
		}
	}
	return nil
}
