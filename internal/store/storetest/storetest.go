// Package storetest holds behaviour checks shared by every store.Store implementation.
package storetest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

type counter struct {
	N int `json:"n"`
}

// Run exercises s against the Store contract
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("read missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Read(context.Background(), "users/nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("write then read", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "teams/nice", map[string]any{"level": 2}))

		raw, err := s.Read(ctx, "teams/nice")
		require.NoError(t, err)
		assert.JSONEq(t, `{"level": 2}`, string(raw))
	})

	t.Run("merge keeps other fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "users/u1", map[string]any{"currency": 5, "team": "nice"}))
		require.NoError(t, s.Merge(ctx, "users/u1", map[string]any{"currency": 9}))

		raw, err := s.Read(ctx, "users/u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"currency": 9, "team": "nice"}`, string(raw))
	})

	t.Run("merge creates missing document", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Merge(ctx, "presence/u1", map[string]any{"online": true}))

		raw, err := s.Read(ctx, "presence/u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"online": true}`, string(raw))
	})

	t.Run("list direct children", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "submissions/u1/a", counter{N: 1}))
		require.NoError(t, s.Write(ctx, "submissions/u1/b", counter{N: 2}))
		require.NoError(t, s.Write(ctx, "submissions/u2/c", counter{N: 3}))

		children, err := s.List(ctx, "submissions/u1")
		require.NoError(t, err)
		assert.Len(t, children, 2)
		assert.JSONEq(t, `{"n": 2}`, string(children["b"]))
	})

	t.Run("typed update creates and increments", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			_, err := store.Update(ctx, s, "counters/x", func(c *counter, exists bool) error {
				c.N++
				return nil
			})
			require.NoError(t, err)
		}

		c, ok, err := store.ReadInto[counter](ctx, s, "counters/x")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, c.N)
	})

	t.Run("update error aborts without commit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "counters/x", counter{N: 1}))

		_, err := store.Update(ctx, s, "counters/x", func(c *counter, exists bool) error {
			c.N = 100
			return domain.ErrInsufficientFunds
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		c, _, err := store.ReadInto[counter](ctx, s, "counters/x")
		require.NoError(t, err)
		assert.Equal(t, 1, c.N)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const writers = 8
		const perWriter = 10

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					_, err := store.Update(ctx, s, "counters/shared", func(c *counter, exists bool) error {
						c.N++
						return nil
					})
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		c, _, err := store.ReadInto[counter](ctx, s, "counters/shared")
		require.NoError(t, err)
		assert.Equal(t, writers*perWriter, c.N)
	})

	t.Run("subscribe fires current then changes", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := make(chan counter, 8)
		sub, err := store.Watch(ctx, s, "counters/w", func(c counter, exists bool) {
			if !exists {
				c.N = -1
			}
			events <- c
		})
		require.NoError(t, err)
		defer sub.Close()

		assert.Equal(t, -1, next(t, events).N)

		require.NoError(t, s.Write(ctx, "counters/w", counter{N: 4}))
		assert.Equal(t, 4, next(t, events).N)

		require.NoError(t, sub.Close())
		require.NoError(t, s.Write(ctx, "counters/w", counter{N: 5}))
		select {
		case c := <-events:
			t.Fatalf("event after close: %+v", c)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("subscribe fires with existing value", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, s.Write(ctx, "teams/naughty", counter{N: 7}))

		got := make(chan json.RawMessage, 1)
		sub, err := s.Subscribe(ctx, "teams/naughty", func(v json.RawMessage, exists bool) {
			if exists {
				got <- v
			}
		})
		require.NoError(t, err)
		defer sub.Close()

		select {
		case v := <-got:
			assert.JSONEq(t, `{"n": 7}`, string(v))
		case <-time.After(2 * time.Second):
			t.Fatal("no initial value")
		}
	})
}

func next(t *testing.T, events <-chan counter) counter {
	t.Helper()
	select {
	case c := <-events:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return counter{}
	}
}
