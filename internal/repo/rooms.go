// Package repo holds thin typed CRUD wrappers over the persistence gateway.
// No business rules live here; invariant enforcement belongs to the lifecycle
// service.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/store"
)

const roomPrefix = "rooms/"

func roomPath(code string) string { return roomPrefix + code }

// RoomUpdateFunc transforms a room document. current is nil when the room
// does not exist. Returning a nil room deletes it; returning
// store.ErrSkipWrite commits nothing and reports success.
type RoomUpdateFunc func(current *models.Room) (*models.Room, error)

// Rooms reads and writes room documents under rooms/{code}.
type Rooms struct {
	st  store.Store
	log *zap.Logger
}

func NewRooms(st store.Store, log *zap.Logger) *Rooms {
	return &Rooms{st: st, log: log}
}

func (r *Rooms) Get(ctx context.Context, code string) (*models.Room, error) {
	raw, err := r.st.Read(ctx, roomPath(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrRoomNotFound
		}
		return nil, err
	}
	var room models.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", code, err)
	}
	return &room, nil
}

// Create writes a new room document; store.ErrAlreadyExists passes through so
// the lifecycle service can regenerate the code.
func (r *Rooms) Create(ctx context.Context, room *models.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID, err)
	}
	return r.st.Create(ctx, roomPath(room.ID), raw)
}

// Update applies fn inside the store's conditional-update cycle. The room
// document is the unit of contention; fn may run several times.
func (r *Rooms) Update(ctx context.Context, code string, fn RoomUpdateFunc) error {
	return r.st.Update(ctx, roomPath(code), func(current []byte) ([]byte, error) {
		var room *models.Room
		if current != nil {
			room = &models.Room{}
			if err := json.Unmarshal(current, room); err != nil {
				return nil, fmt.Errorf("decode room %s: %w", code, err)
			}
		}
		next, err := fn(room)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		return json.Marshal(next)
	})
}

func (r *Rooms) Delete(ctx context.Context, code string) error {
	return r.st.Delete(ctx, roomPath(code))
}

// List returns every live room. Documents that fail to decode are skipped and
// logged rather than failing the whole sweep.
func (r *Rooms) List(ctx context.Context) ([]models.Room, error) {
	docs, err := r.st.List(ctx, roomPrefix)
	if err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(docs))
	for path, raw := range docs {
		var room models.Room
		if err := json.Unmarshal(raw, &room); err != nil {
			r.log.Warn("skipping undecodable room document",
				zap.String("path", path), zap.Error(err))
			continue
		}
		if room.ID == "" {
			room.ID = strings.TrimPrefix(path, roomPrefix)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// Subscribe delivers the room at subscribe time and after every committed
// change; nil means the room is gone.
func (r *Rooms) Subscribe(ctx context.Context, code string, fn func(*models.Room)) (store.Unsubscribe, error) {
	return r.st.Subscribe(ctx, roomPath(code), func(value []byte, ok bool) {
		if !ok {
			fn(nil)
			return
		}
		var room models.Room
		if err := json.Unmarshal(value, &room); err != nil {
			r.log.Warn("dropping undecodable room change",
				zap.String("room", code), zap.Error(err))
			return
		}
		fn(&room)
	})
}
