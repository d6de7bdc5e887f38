package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateRefusesExisting(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "rooms/AAAAAA", []byte(`{"v":1}`)))
	assert.ErrorIs(t, s.Create(ctx, "rooms/AAAAAA", []byte(`{"v":2}`)), ErrAlreadyExists)
}

func TestMemory_UpdateIsSerialized(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "counter", []byte(`{"n":0}`)))

	const writers = 64
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			err := s.Update(ctx, "counter", func(current []byte) ([]byte, error) {
				var doc map[string]int
				if err := json.Unmarshal(current, &doc); err != nil {
					return nil, err
				}
				doc["n"]++
				return json.Marshal(doc)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	val, err := s.Read(ctx, "counter")
	require.NoError(t, err)
	var doc map[string]int
	require.NoError(t, json.Unmarshal(val, &doc))
	assert.Equal(t, writers, doc["n"])
}

func TestMemory_SubscribeSeesCommitOrder(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	unsub, err := s.Subscribe(ctx, "rooms/AAAAAA", func(value []byte, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if !ok {
			seen = append(seen, "deleted")
			return
		}
		seen = append(seen, string(value))
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`1`)))
	require.NoError(t, s.Write(ctx, "rooms/AAAAAA", []byte(`2`)))
	require.NoError(t, s.Delete(ctx, "rooms/AAAAAA"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"deleted", "1", "2", "deleted"}, seen)
}

func TestMemory_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	calls := 0
	unsub, err := s.Subscribe(ctx, "p", func(value []byte, ok bool) { calls++ })
	require.NoError(t, err)
	unsub()

	require.NoError(t, s.Write(ctx, "p", []byte(`1`)))
	assert.Equal(t, 1, calls) // only the initial delivery
}

func TestMemory_FailureInjection(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	s.SetFailure(boom)
	_, err := s.Read(ctx, "x")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Write(ctx, "x", []byte(`1`)), boom)

	s.SetFailure(nil)
	assert.NoError(t, s.Write(ctx, "x", []byte(`1`)))
}
