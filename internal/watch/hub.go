package watch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/repo"
)

// Hub hands out one Watcher per room, creating them on first attach and
// tearing them down once the last client detaches.
type Hub struct {
	ctx   context.Context
	rooms *repo.Rooms
	log   *zap.Logger

	mu       sync.Mutex
	watchers map[string]*Watcher
}

func NewHub(ctx context.Context, rooms *repo.Rooms, log *zap.Logger) *Hub {
	return &Hub{
		ctx:      ctx,
		rooms:    rooms,
		log:      log,
		watchers: make(map[string]*Watcher),
	}
}

// Attach subscribes a client outbox to a room's view and returns a detach
// function. The current view is already in the outbox when Attach returns.
func (h *Hub) Attach(ctx context.Context, code, clientID string, out chan Event) (func(), error) {
	for {
		if err := h.ctx.Err(); err != nil {
			return nil, err
		}
		h.mu.Lock()
		w, ok := h.watchers[code]
		if !ok {
			var created *Watcher
			created = newWatcher(h.ctx, code, h.rooms, h.log, func() {
				h.release(code, created)
			})
			w = created
			h.watchers[code] = w
			w.start()
		}
		h.mu.Unlock()

		err := w.attach(ctx, clientID, out)
		if err == nil {
			return func() { w.detach(clientID) }, nil
		}
		if ctx.Err() != nil || h.ctx.Err() != nil {
			// The caller gave up, or the hub itself is shutting down; a fresh
			// watcher would be born canceled, so retrying cannot succeed.
			return nil, err
		}
		// The watcher idled out between lookup and attach; take another pass
		// and build a fresh one.
	}
}

func (h *Hub) release(code string, w *Watcher) {
	h.mu.Lock()
	if h.watchers[code] == w {
		delete(h.watchers, code)
	}
	h.mu.Unlock()
	w.cancel()
}
