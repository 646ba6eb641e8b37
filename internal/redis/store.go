package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// absentPayload is published when a document is removed or never existed
const absentPayload = ""

// Store keeps season documents as JSON strings in Redis and fans out
// changes with PUBLISH
type Store struct {
	client     *redis.Client
	prefix     string
	maxRetries int
	logger     *slog.Logger
}

// NewClient opens a Redis client and verifies the connection
func NewClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// NewStore wraps client as a store.Store rooted at prefix
func NewStore(client *redis.Client, prefix string, maxRetries int, logger *slog.Logger) *Store {
	if maxRetries <= 0 {
		maxRetries = store.DefaultMaxRetries
	}
	return &Store{
		client:     client,
		prefix:     prefix,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity for readiness probes
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("pinging", "", err)
	}
	return nil
}

// docKey returns the Redis key holding the document at path
func (s *Store) docKey(path string) string {
	return fmt.Sprintf("%s:doc:%s", s.prefix, path)
}

// channel returns the pub/sub channel carrying changes of path
func (s *Store) channel(path string) string {
	return fmt.Sprintf("%s:changes:%s", s.prefix, path)
}

// Read returns the document at path
func (s *Store) Read(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, s.docKey(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("reading", path, err)
	}
	return json.RawMessage(data), nil
}

// Write overwrites the document at path
func (s *Store) Write(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(path), data, 0)
		pipe.Publish(ctx, s.channel(path), data)
		return nil
	})
	if err != nil {
		return unavailable("writing", path, err)
	}
	return nil
}

// Merge sets only the given top-level fields
func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	_, err := s.AtomicUpdate(ctx, path, func(current json.RawMessage, exists bool) (any, error) {
		return store.MergeFields(current, exists, fields)
	})
	return err
}

// List returns the direct children of path
func (s *Store) List(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	parent := s.docKey(path)
	var keys []string
	iter := s.client.Scan(ctx, 0, parent+"/*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable("listing", path, err)
	}

	out := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("listing", path, err)
	}
	for i, key := range keys {
		child := strings.TrimPrefix(key, parent+"/")
		if child == "" || strings.Contains(child, "/") {
			continue
		}
		str, ok := values[i].(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		out[child] = json.RawMessage(str)
	}
	return out, nil
}

// AtomicUpdate runs fn inside WATCH/MULTI/EXEC and retries when another
// writer touched the key first
func (s *Store) AtomicUpdate(ctx context.Context, path string, fn store.UpdateFunc) (json.RawMessage, error) {
	key := s.docKey(path)
	var committed json.RawMessage
	// errors produced by fn are returned as-is, everything else is transport
	var fnErr error

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(json.RawMessage(current), exists)
		if err != nil {
			fnErr = err
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			fnErr = fmt.Errorf("encoding %s: %w", path, err)
			return fnErr
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Publish(ctx, s.channel(path), data)
			return nil
		})
		if err != nil {
			return err
		}
		committed = data
		return nil
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		fnErr = nil
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return committed, nil
		case fnErr != nil:
			return nil, fnErr
		case errors.Is(err, redis.TxFailedErr):
			s.logger.Debug("atomic update conflict, retrying", "path", path, "attempt", attempt+1)
		default:
			return nil, unavailable("updating", path, err)
		}
	}
	return nil, fmt.Errorf("updating %s: %w", path, store.ErrTooManyRetries)
}

// Subscribe fires fn with the current value and on every published change
func (s *Store) Subscribe(ctx context.Context, path string, fn store.Listener) (store.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, s.channel(path))
	// wait for the subscription to be confirmed so no change is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, unavailable("subscribing", path, err)
	}

	current, err := s.Read(ctx, path)
	switch {
	case err == nil:
		fn(current, true)
	case errors.Is(err, domain.ErrNotFound):
		fn(nil, false)
	default:
		_ = pubsub.Close()
		return nil, err
	}

	sub := &subscription{pubsub: pubsub, done: make(chan struct{})}
	ch := pubsub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload == absentPayload {
					fn(nil, false)
					continue
				}
				fn(json.RawMessage(msg.Payload), true)
			}
		}
	}()

	s.logger.Debug("subscribed", "path", path)
	return sub, nil
}

type subscription struct {
	pubsub *redis.PubSub
	once   sync.Once
	done   chan struct{}
	err    error
}

// Close unsubscribes and stops delivery
func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.pubsub.Close()
	})
	return s.err
}

func unavailable(op, path string, err error) error {
	if path == "" {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, path, domain.ErrStoreUnavailable, err)
}
