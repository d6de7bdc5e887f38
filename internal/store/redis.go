package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "wr:"
	revPrefix     = "wr:rev:"
	channelPrefix = "wr:change:"

	defaultUpdateRetries = 8
)

// changeEnvelope is the published form of a committed mutation. Rev increases
// with every commit on a path, so a subscriber can drop a replay that was
// buffered behind its initial snapshot read. Data is null for deletions.
type changeEnvelope struct {
	Rev  int64           `json:"rev"`
	Data json.RawMessage `json:"data"`
}

// RedisConfig holds connection settings for the backing Redis instance.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Connect opens and pings a Redis client.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Redis implements Store on a single Redis instance. Documents are JSON blobs
// under keyPrefix+path with a revision counter under revPrefix+path; every
// committed mutation is published on channelPrefix+path so subscribers
// observe changes in commit order. Update uses WATCH/MULTI/EXEC optimistic
// transactions as the conditional-update primitive.
type Redis struct {
	client  *redis.Client
	log     *zap.Logger
	retries int
}

func NewRedis(client *redis.Client, log *zap.Logger) *Redis {
	return &Redis{client: client, log: log, retries: defaultUpdateRetries}
}

func (s *Redis) key(path string) string     { return keyPrefix + path }
func (s *Redis) revKey(path string) string  { return revPrefix + path }
func (s *Redis) channel(path string) string { return channelPrefix + path }

func (s *Redis) envelope(rev int64, data []byte) []byte {
	raw, err := json.Marshal(changeEnvelope{Rev: rev, Data: data})
	if err != nil {
		// Data is already valid JSON wherever this is called.
		panic(err)
	}
	return raw
}

func (s *Redis) Read(ctx context.Context, path string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		return nil, s.mapErr(err)
	}
	return val, nil
}

func (s *Redis) Write(ctx context.Context, path string, value []byte) error {
	rev, err := s.client.Incr(ctx, s.revKey(path)).Result()
	if err != nil {
		return s.mapErr(err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(path), value, 0)
		pipe.Publish(ctx, s.channel(path), s.envelope(rev, value))
		return nil
	})
	return s.mapErr(err)
}

func (s *Redis) Create(ctx context.Context, path string, value []byte) error {
	ok, err := s.client.SetNX(ctx, s.key(path), value, 0).Result()
	if err != nil {
		return s.mapErr(err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	rev, err := s.client.Incr(ctx, s.revKey(path)).Result()
	if err == nil {
		err = s.client.Publish(ctx, s.channel(path), s.envelope(rev, value)).Err()
	}
	if err != nil {
		s.log.Warn("publish after create failed", zap.String("path", path), zap.Error(err))
	}
	return nil
}

func (s *Redis) Patch(ctx context.Context, path string, fields map[string]json.RawMessage) error {
	return s.Update(ctx, path, func(current []byte) ([]byte, error) {
		return mergePatch(current, fields)
	})
}

func (s *Redis) Delete(ctx context.Context, path string) error {
	rev, err := s.client.Incr(ctx, s.revKey(path)).Result()
	if err != nil {
		return s.mapErr(err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(path))
		pipe.Publish(ctx, s.channel(path), s.envelope(rev, nil))
		return nil
	})
	return s.mapErr(err)
}

func (s *Redis) Update(ctx context.Context, path string, fn UpdateFunc) error {
	key := s.key(path)
	revKey := s.revKey(path)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			current = nil
		} else if err != nil {
			return s.mapErr(err)
		}
		rev, err := tx.Get(ctx, revKey).Int64()
		if err == redis.Nil {
			rev = 0
		} else if err != nil {
			return s.mapErr(err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, 0)
			}
			pipe.Set(ctx, revKey, rev+1, 0)
			pipe.Publish(ctx, s.channel(path), s.envelope(rev+1, next))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		err := s.client.Watch(ctx, txf, key, revKey)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrSkipWrite):
			return nil
		case errors.Is(err, redis.TxFailedErr):
			// Another writer got in between snapshot and commit; re-run the
			// whole read-validate-write cycle.
			continue
		default:
			return err
		}
	}
	s.log.Warn("conditional update exhausted retries", zap.String("path", path), zap.Int("retries", s.retries))
	return ErrConflict
}

func (s *Redis) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	iter := s.client.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasPrefix(key, revPrefix) {
			continue
		}
		val, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue // deleted between scan and get
		}
		if err != nil {
			return nil, s.mapErr(err)
		}
		out[strings.TrimPrefix(key, keyPrefix)] = val
	}
	if err := iter.Err(); err != nil {
		return nil, s.mapErr(err)
	}
	return out, nil
}

func (s *Redis) Subscribe(ctx context.Context, path string, fn ChangeFunc) (Unsubscribe, error) {
	ps := s.client.Subscribe(ctx, s.channel(path))
	// Force the SUBSCRIBE onto the wire before the initial read so no
	// committed change can fall between the two.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, s.mapErr(err)
	}

	// One MGET gives a consistent (value, rev) pair. A change committed after
	// the subscribe but before this read is buffered on the channel with a
	// rev at or below lastRev and dropped below instead of being replayed out
	// of order.
	vals, err := s.client.MGet(ctx, s.key(path), s.revKey(path)).Result()
	if err != nil {
		_ = ps.Close()
		return nil, s.mapErr(err)
	}
	var lastRev int64
	if str, ok := vals[1].(string); ok {
		lastRev, _ = strconv.ParseInt(str, 10, 64)
	}
	if str, ok := vals[0].(string); ok {
		fn([]byte(str), true)
	} else {
		fn(nil, false)
	}

	go func() {
		for msg := range ps.Channel() {
			var env changeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.log.Warn("dropping undecodable change message",
					zap.String("path", path), zap.Error(err))
				continue
			}
			if env.Rev <= lastRev {
				continue
			}
			lastRev = env.Rev
			if len(env.Data) == 0 || string(env.Data) == "null" {
				fn(nil, false)
			} else {
				fn(env.Data, true)
			}
		}
	}()

	return func() { _ = ps.Close() }, nil
}

// mapErr translates redis failures into the gateway taxonomy. Transaction
// aborts and context errors pass through untouched so Update can retry or
// surface them.
func (s *Redis) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.TxFailedErr) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "NOAUTH") || strings.Contains(msg, "NOPERM") || strings.Contains(msg, "WRONGPASS") {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
