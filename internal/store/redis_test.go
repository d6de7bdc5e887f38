package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*Redis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, zap.NewNop()), client
}

func TestRedis_ReadAbsent(t *testing.T) {
	s, _ := newTestRedis(t)
	_, err := s.Read(context.Background(), "rooms/ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_WriteThenRead(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"id":"AAAAAA"}`)))
	val, err := s.Read(ctx, "rooms/AAAAAA")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"AAAAAA"}`, string(val))
}

func TestRedis_CreateRefusesExisting(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "rooms/AAAAAA", []byte(`{"v":1}`)))
	err := s.Create(ctx, "rooms/AAAAAA", []byte(`{"v":2}`))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	val, err := s.Read(ctx, "rooms/AAAAAA")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(val))
}

func TestRedis_UpdateRetriesOnInterference(t *testing.T) {
	s, client := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"n":0}`)))

	// First attempt invalidates its own watch by writing out of band; the
	// retry must see the interfering value.
	calls := 0
	err := s.Update(ctx, "rooms/AAAAAA", func(current []byte) ([]byte, error) {
		calls++
		if calls == 1 {
			require.NoError(t, client.Set(ctx, "wr:rooms/AAAAAA", `{"n":100}`, 0).Err())
		}
		var doc map[string]int
		require.NoError(t, json.Unmarshal(current, &doc))
		doc["n"]++
		return json.Marshal(doc)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	val, err := s.Read(ctx, "rooms/AAAAAA")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":101}`, string(val))
}

func TestRedis_UpdateSkipWrite(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":1}`)))
	err := s.Update(ctx, "rooms/AAAAAA", func(current []byte) ([]byte, error) {
		return nil, ErrSkipWrite
	})
	require.NoError(t, err)

	val, err := s.Read(ctx, "rooms/AAAAAA")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(val))
}

func TestRedis_UpdateNilDeletes(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":1}`)))
	require.NoError(t, s.Update(ctx, "rooms/AAAAAA", func(current []byte) ([]byte, error) {
		return nil, nil
	}))

	_, err := s.Read(ctx, "rooms/AAAAAA")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_PatchMergesOneLevel(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "players/p1", []byte(`{"name":"an","score":3}`)))
	err := s.Patch(ctx, "players/p1", map[string]json.RawMessage{
		"name": json.RawMessage(`"binh"`),
	})
	require.NoError(t, err)

	val, err := s.Read(ctx, "players/p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"binh","score":3}`, string(val))
}

func TestRedis_PatchAbsent(t *testing.T) {
	s, _ := newTestRedis(t)
	err := s.Patch(context.Background(), "players/nope", map[string]json.RawMessage{
		"name": json.RawMessage(`"x"`),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_List(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":1}`)))
	require.NoError(t, s.Write(ctx, "rooms/BBBBBB", []byte(`{"v":2}`)))
	require.NoError(t, s.Write(ctx, "players/p1", []byte(`{"v":3}`)))

	out, err := s.List(ctx, "rooms/")
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Contains(t, out, "rooms/AAAAAA")
	assert.Contains(t, out, "rooms/BBBBBB")
}

func TestRedis_SubscribeDeliversInitialThenChanges(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":1}`)))

	type change struct {
		value []byte
		ok    bool
	}
	changes := make(chan change, 8)
	unsub, err := s.Subscribe(ctx, "rooms/AAAAAA", func(value []byte, ok bool) {
		changes <- change{value, ok}
	})
	require.NoError(t, err)
	defer unsub()

	first := recvChange(t, changes)
	assert.True(t, first.ok)
	assert.JSONEq(t, `{"v":1}`, string(first.value))

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":2}`)))
	second := recvChange(t, changes)
	assert.True(t, second.ok)
	assert.JSONEq(t, `{"v":2}`, string(second.value))

	require.NoError(t, s.Delete(ctx, "rooms/AAAAAA"))
	third := recvChange(t, changes)
	assert.False(t, third.ok)
	assert.Nil(t, third.value)
}

func TestRedis_SubscribeDropsReplaysBehindSnapshot(t *testing.T) {
	s, client := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":1}`)))
	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":2}`)))

	type change struct {
		value []byte
		ok    bool
	}
	changes := make(chan change, 8)
	unsub, err := s.Subscribe(ctx, "rooms/AAAAAA", func(value []byte, ok bool) {
		changes <- change{value, ok}
	})
	require.NoError(t, err)
	defer unsub()

	initial := recvChange(t, changes)
	assert.JSONEq(t, `{"v":2}`, string(initial.value))

	// A change that committed before the initial snapshot was read arrives
	// late on the channel. It must be dropped, not replayed over the newer
	// view.
	require.NoError(t, client.Publish(ctx, "wr:change:rooms/AAAAAA",
		`{"rev":1,"data":{"v":1}}`).Err())

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`{"v":3}`)))
	next := recvChange(t, changes)
	assert.JSONEq(t, `{"v":3}`, string(next.value), "stale replay must never surface")
}

func recvChange[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change")
		panic("unreachable")
	}
}
