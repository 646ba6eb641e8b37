package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/season-tracker/internal/domain"
)

// Listener receives the value at a path, or exists=false when it is absent
type Listener func(value json.RawMessage, exists bool)

// UpdateFunc computes the next value from the latest one. It may run more
// than once and must not have side effects outside its return values.
type UpdateFunc func(current json.RawMessage, exists bool) (any, error)

// Subscription is a cancellable change feed
type Subscription interface {
	Close() error
}

// Store is the persistence contract every component writes through.
// Transport failures wrap domain.ErrStoreUnavailable; a missing document on
// Read is domain.ErrNotFound.
type Store interface {
	// Read returns the document at path
	Read(ctx context.Context, path string) (json.RawMessage, error)
	// Write overwrites the document at path
	Write(ctx context.Context, path string, value any) error
	// Merge sets only the given top-level fields
	Merge(ctx context.Context, path string, fields map[string]any) error
	// List returns the direct children of path keyed by their last segment
	List(ctx context.Context, path string) (map[string]json.RawMessage, error)
	// Subscribe fires fn with the current value and again on every change
	// until the subscription is closed or ctx is done
	Subscribe(ctx context.Context, path string, fn Listener) (Subscription, error)
	// AtomicUpdate applies fn to the latest value and commits only if no
	// other writer changed it in between, retrying otherwise
	AtomicUpdate(ctx context.Context, path string, fn UpdateFunc) (json.RawMessage, error)
}

// ErrTooManyRetries is returned when an atomic update keeps losing the race
var ErrTooManyRetries = fmt.Errorf("%w: too many conflicting writers", domain.ErrStoreUnavailable)

// DefaultMaxRetries bounds optimistic retries of AtomicUpdate
const DefaultMaxRetries = 64

// Join builds a slash separated store path
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// ReadInto decodes the document at path into a T. The bool is false when
// the document does not exist.
func ReadInto[T any](ctx context.Context, s Store, path string) (T, bool, error) {
	var v T
	raw, err := s.Read(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return v, false, nil
		}
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return v, true, nil
}

// Update runs an atomic read-modify-write on a typed document. fn receives
// the zero value when the document is absent.
func Update[T any](ctx context.Context, s Store, path string, fn func(v *T, exists bool) error) (T, error) {
	var out T
	_, err := s.AtomicUpdate(ctx, path, func(current json.RawMessage, exists bool) (any, error) {
		var v T
		if exists {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", path, err)
			}
		}
		if err := fn(&v, exists); err != nil {
			return nil, err
		}
		out = v
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Watch subscribes with a typed listener. Undecodable values are reported as absent.
func Watch[T any](ctx context.Context, s Store, path string, fn func(v T, exists bool)) (Subscription, error) {
	return s.Subscribe(ctx, path, func(value json.RawMessage, exists bool) {
		var v T
		if exists {
			if err := json.Unmarshal(value, &v); err != nil {
				fn(v, false)
				return
			}
		}
		fn(v, exists)
	})
}

// MergeFields applies a shallow merge to an encoded document
func MergeFields(current json.RawMessage, exists bool, fields map[string]any) (map[string]any, error) {
	doc := make(map[string]any)
	if exists && len(current) > 0 && string(current) != "null" {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, fmt.Errorf("merging into non-object document: %w", err)
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return doc, nil
}

// childKey returns the last segment of key when it is a direct child of parent
func childKey(parent, key string) (string, bool) {
	prefix := parent + "/"
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(key, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
