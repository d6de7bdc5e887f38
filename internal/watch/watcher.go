// Package watch keeps client views of a room in sync with the store. Each
// room gets one Watcher: an actor goroutine that owns the latest snapshot,
// fans immutable copies out to subscribed clients, and resubscribes with
// backoff when the store is unreachable instead of letting a frozen view pass
// for live.
package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/repo"
)

// EventType tags what a delivered event means for the client's view.
type EventType string

const (
	// EventSnapshot carries a fresh authoritative room state.
	EventSnapshot EventType = "snapshot"
	// EventDeleted means the room no longer exists.
	EventDeleted EventType = "deleted"
	// EventStale means the connection to the store is down; the client must
	// treat its view as possibly outdated until the next snapshot.
	EventStale EventType = "stale"
)

// Event is one update delivered to a subscribed client. Version increases
// with every committed change the watcher observes on its room.
type Event struct {
	Type    EventType    `json:"type"`
	Version int          `json:"version"`
	Room    *models.Room `json:"room,omitempty"`
}

type wmsg interface{ isWatchMsg() }

type attachMsg struct {
	id    string
	out   chan Event
	reply chan struct{}
}

type detachMsg struct{ id string }

type changeMsg struct{ room *models.Room }

type staleMsg struct{}

// getState is test-only: it reflects internal state without data races.
type getState struct{ reply chan view }

type view struct {
	version    int
	numClients int
	stale      bool
	exists     bool
}

func (attachMsg) isWatchMsg() {}
func (detachMsg) isWatchMsg() {}
func (changeMsg) isWatchMsg() {}
func (staleMsg) isWatchMsg()  {}
func (getState) isWatchMsg()  {}

// Watcher owns the live view of a single room.
type Watcher struct {
	code  string
	rooms *repo.Rooms
	log   *zap.Logger

	inbox  chan wmsg
	ctx    context.Context
	cancel context.CancelFunc
	onIdle func()

	// backoff seed for resubscription, shrunk in tests
	baseBackoff time.Duration

	// actor-owned state
	clients map[string]chan Event
	version int
	latest  *models.Room
	exists  bool
	stale   bool
	// synced flips on the first store delivery; attaches block until then so
	// no client ever sees a made-up view.
	synced  bool
	pending []chan struct{}
}

func newWatcher(parent context.Context, code string, rooms *repo.Rooms, log *zap.Logger, onIdle func()) *Watcher {
	ctx, cancel := context.WithCancel(parent)
	return &Watcher{
		code:        code,
		rooms:       rooms,
		log:         log,
		inbox:       make(chan wmsg, 64),
		ctx:         ctx,
		cancel:      cancel,
		onIdle:      onIdle,
		baseBackoff: time.Second,
		clients:     make(map[string]chan Event),
	}
}

func (w *Watcher) start() {
	go w.loop()
	go w.subscribeLoop()
}

// attach registers a client outbox and waits until the watcher has delivered
// the current view into it. Fails if the watcher has shut down.
func (w *Watcher) attach(ctx context.Context, id string, out chan Event) error {
	m := attachMsg{id: id, out: out, reply: make(chan struct{})}
	select {
	case w.inbox <- m:
	case <-w.ctx.Done():
		return w.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-m.reply:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Watcher) detach(id string) {
	select {
	case w.inbox <- detachMsg{id: id}:
	case <-w.ctx.Done():
	}
}

func (w *Watcher) post(m wmsg) {
	select {
	case w.inbox <- m:
	case <-w.ctx.Done():
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.ctx.Done():
			w.shutdown()
			return

		case m := <-w.inbox:
			switch msg := m.(type) {
			case attachMsg:
				w.clients[msg.id] = msg.out
				if w.synced {
					w.deliver(msg.id, msg.out, w.currentEvent())
					close(msg.reply)
				} else {
					w.pending = append(w.pending, msg.reply)
				}

			case detachMsg:
				delete(w.clients, msg.id)
				if len(w.clients) == 0 {
					w.onIdle()
				}

			case changeMsg:
				w.version++
				w.latest = msg.room
				w.exists = msg.room != nil
				w.stale = false
				w.markSynced()
				w.broadcast(w.currentEvent())

			case staleMsg:
				if w.stale {
					break
				}
				w.stale = true
				w.markSynced()
				w.broadcast(w.currentEvent())

			case getState:
				msg.reply <- view{
					version:    w.version,
					numClients: len(w.clients),
					stale:      w.stale,
					exists:     w.exists,
				}
			}
		}
	}
}

func (w *Watcher) markSynced() {
	w.synced = true
	for _, reply := range w.pending {
		close(reply)
	}
	w.pending = nil
}

func (w *Watcher) currentEvent() Event {
	switch {
	case w.stale:
		return Event{Type: EventStale, Version: w.version, Room: w.latest}
	case !w.exists:
		return Event{Type: EventDeleted, Version: w.version}
	default:
		return Event{Type: EventSnapshot, Version: w.version, Room: w.latest}
	}
}

func (w *Watcher) broadcast(ev Event) {
	for id, ch := range w.clients {
		w.deliver(id, ch, ev)
	}
}

// deliver never blocks the actor; a client that cannot keep up is dropped so
// it reconnects and resyncs rather than consuming an unbounded backlog.
func (w *Watcher) deliver(id string, ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
		w.log.Debug("dropping slow watch client",
			zap.String("room", w.code), zap.String("client", id))
		close(ch)
		delete(w.clients, id)
	}
}

func (w *Watcher) shutdown() {
	for id, ch := range w.clients {
		close(ch)
		delete(w.clients, id)
	}
}

// subscribeLoop keeps one store subscription alive for the watcher's
// lifetime. A failed subscribe marks the view stale and retries with
// exponential backoff.
func (w *Watcher) subscribeLoop() {
	backoff := w.baseBackoff
	for {
		unsub, err := w.rooms.Subscribe(w.ctx, w.code, func(room *models.Room) {
			w.post(changeMsg{room: room})
		})
		if err != nil {
			w.post(staleMsg{})
			w.log.Warn("room subscription failed, backing off",
				zap.String("room", w.code),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				return
			}
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			continue
		}
		backoff = w.baseBackoff
		<-w.ctx.Done()
		unsub()
		return
	}
}
