package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/season-tracker/internal/domain"
)

type memoryDoc struct {
	value   json.RawMessage
	version uint64
}

// Memory is an in-process Store used by tests and single-node development
type Memory struct {
	mu         sync.RWMutex
	docs       map[string]memoryDoc
	seq        uint64
	subs       map[string]map[uint64]Listener
	nextSub    uint64
	maxRetries int
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		docs:       make(map[string]memoryDoc),
		subs:       make(map[string]map[uint64]Listener),
		maxRetries: DefaultMaxRetries,
	}
}

// Read returns the document at path
func (m *Memory) Read(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", path, domain.ErrStoreUnavailable, err)
	}
	m.mu.RLock()
	doc, ok := m.docs[path]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(doc.value), nil
}

// Write overwrites the document at path
func (m *Memory) Write(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, domain.ErrStoreUnavailable, err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	m.mu.Lock()
	m.commit(path, data)
	listeners := m.listeners(path)
	m.mu.Unlock()

	notify(listeners, data)
	return nil
}

// Merge sets only the given top-level fields
func (m *Memory) Merge(ctx context.Context, path string, fields map[string]any) error {
	_, err := m.AtomicUpdate(ctx, path, func(current json.RawMessage, exists bool) (any, error) {
		return MergeFields(current, exists, fields)
	})
	return err
}

// List returns the direct children of path
func (m *Memory) List(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w: %w", path, domain.ErrStoreUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage)
	for key, doc := range m.docs {
		if child, ok := childKey(path, key); ok {
			out[child] = clone(doc.value)
		}
	}
	return out, nil
}

// Subscribe fires fn with the current value and on every later change
func (m *Memory) Subscribe(ctx context.Context, path string, fn Listener) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("subscribing %s: %w: %w", path, domain.ErrStoreUnavailable, err)
	}

	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	if m.subs[path] == nil {
		m.subs[path] = make(map[uint64]Listener)
	}
	m.subs[path][id] = fn
	doc, ok := m.docs[path]
	m.mu.Unlock()

	if ok {
		fn(clone(doc.value), true)
	} else {
		fn(nil, false)
	}

	sub := &memorySubscription{store: m, path: path, id: id, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// AtomicUpdate applies fn to the latest value with optimistic retries
func (m *Memory) AtomicUpdate(ctx context.Context, path string, fn UpdateFunc) (json.RawMessage, error) {
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("updating %s: %w: %w", path, domain.ErrStoreUnavailable, err)
		}

		m.mu.RLock()
		doc, exists := m.docs[path]
		m.mu.RUnlock()

		next, err := fn(clone(doc.value), exists)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", path, err)
		}

		m.mu.Lock()
		if m.docs[path].version != doc.version {
			m.mu.Unlock()
			continue
		}
		m.commit(path, data)
		listeners := m.listeners(path)
		m.mu.Unlock()

		notify(listeners, data)
		return clone(data), nil
	}
	return nil, fmt.Errorf("updating %s: %w", path, ErrTooManyRetries)
}

// commit stores data under a fresh version. Callers hold mu.
func (m *Memory) commit(path string, data json.RawMessage) {
	m.seq++
	m.docs[path] = memoryDoc{value: data, version: m.seq}
}

// listeners snapshots the subscribers of path. Callers hold mu.
func (m *Memory) listeners(path string) []Listener {
	subs := m.subs[path]
	out := make([]Listener, 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

func (m *Memory) unsubscribe(path string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs[path], id)
	if len(m.subs[path]) == 0 {
		delete(m.subs, path)
	}
}

type memorySubscription struct {
	store *Memory
	path  string
	id    uint64
	once  sync.Once
	done  chan struct{}
}

// Close stops delivery to the listener
func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.store.unsubscribe(s.path, s.id)
		close(s.done)
	})
	return nil
}

func notify(listeners []Listener, data json.RawMessage) {
	for _, fn := range listeners {
		fn(clone(data), true)
	}
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
