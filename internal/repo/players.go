package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/store"
)

const playerPrefix = "players/"

func playerPath(id string) string { return playerPrefix + id }

// PlayerPatch carries the fields a partial player update may touch.
type PlayerPatch struct {
	Name   *string
	Score  *int
	Avatar *string
}

// Players reads and writes player documents under players/{id}.
type Players struct {
	st  store.Store
	log *zap.Logger
}

func NewPlayers(st store.Store, log *zap.Logger) *Players {
	return &Players{st: st, log: log}
}

func (p *Players) Get(ctx context.Context, id string) (*models.Player, error) {
	raw, err := p.st.Read(ctx, playerPath(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrPlayerNotFound
		}
		return nil, err
	}
	var player models.Player
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", id, err)
	}
	return &player, nil
}

func (p *Players) Create(ctx context.Context, player *models.Player) error {
	raw, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("encode player %s: %w", player.ID, err)
	}
	return p.st.Create(ctx, playerPath(player.ID), raw)
}

// Patch merges the set fields into the stored document.
func (p *Players) Patch(ctx context.Context, id string, patch PlayerPatch) error {
	fields := make(map[string]json.RawMessage)
	if patch.Name != nil {
		fields["name"] = mustRaw(*patch.Name)
	}
	if patch.Score != nil {
		fields["score"] = mustRaw(*patch.Score)
	}
	if patch.Avatar != nil {
		fields["avatar"] = mustRaw(*patch.Avatar)
	}
	if len(fields) == 0 {
		return nil
	}
	err := p.st.Patch(ctx, playerPath(id), fields)
	if errors.Is(err, store.ErrNotFound) {
		return models.ErrPlayerNotFound
	}
	return err
}

func (p *Players) Delete(ctx context.Context, id string) error {
	return p.st.Delete(ctx, playerPath(id))
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		// Only strings and ints pass through here.
		panic(err)
	}
	return raw
}
