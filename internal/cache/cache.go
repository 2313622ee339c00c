// Package cache keeps the bucket list, the per-bucket file lists and the
// per-file contents fetched from a gateway.
//
// Entries never expire. The bucket list and a bucket's file list can be
// invalidated explicitly; file content, once fetched, is kept for the life
// of the Store. Concurrent misses for the same key share one remote call.
package cache

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/logger"
	"github.com/slmtnm/s4json/internal/metrics"
)

const (
	kindBuckets = "buckets"
	kindFiles   = "files"
	kindContent = "content"
)

// Store is safe for concurrent use. Returned slices are shared snapshots and
// must not be modified.
type Store struct {
	gw gateway.Gateway

	buckets *table[struct{}, []string]
	files   *table[string, []gateway.FileEntry]
	content *table[string, string]
}

// New returns an empty Store backed by gw.
func New(gw gateway.Gateway) *Store {
	return &Store{
		gw:      gw,
		buckets: newTable[struct{}, []string](kindBuckets),
		files:   newTable[string, []gateway.FileEntry](kindFiles),
		content: newTable[string, string](kindContent),
	}
}

// Buckets returns the cached bucket list, fetching it on a miss.
func (s *Store) Buckets(ctx context.Context) ([]string, error) {
	return s.buckets.get(ctx, struct{}{}, func(ctx context.Context) ([]string, error) {
		buckets, err := s.gw.ListBuckets(ctx)
		if err != nil {
			return nil, err
		}
		return slices.Clip(slices.Clone(buckets)), nil
	})
}

// Files returns the cached file list of bucket, fetching it on a miss.
func (s *Store) Files(ctx context.Context, bucket string) ([]gateway.FileEntry, error) {
	return s.files.get(ctx, bucket, func(ctx context.Context) ([]gateway.FileEntry, error) {
		files, err := s.gw.ListFiles(ctx, bucket)
		if err != nil {
			return nil, err
		}
		return slices.Clip(slices.Clone(files)), nil
	})
}

// Content returns the cached content of the file at path, fetching it on a
// miss. Content is never refetched once stored.
func (s *Store) Content(ctx context.Context, path string) (string, error) {
	return s.content.get(ctx, path, func(ctx context.Context) (string, error) {
		return s.gw.GetContent(ctx, path)
	})
}

// InvalidateBuckets drops the cached bucket list.
func (s *Store) InvalidateBuckets() {
	s.buckets.drop(struct{}{})
}

// InvalidateFiles drops the cached file list of bucket.
func (s *Store) InvalidateFiles(bucket string) {
	s.files.drop(bucket)
}

// PeekFiles returns the cached file list of bucket without fetching.
func (s *Store) PeekFiles(bucket string) ([]gateway.FileEntry, bool) {
	return s.files.peek(bucket)
}

// table is one independently keyed region of the store.
type table[K comparable, V any] struct {
	kind  string
	mu    sync.RWMutex
	items map[K]V
	group singleflight.Group
}

func newTable[K comparable, V any](kind string) *table[K, V] {
	return &table[K, V]{
		kind:  kind,
		items: make(map[K]V),
	}
}

func (t *table[K, V]) peek(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[key]
	return v, ok
}

func (t *table[K, V]) drop(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, key)
}

func (t *table[K, V]) get(ctx context.Context, key K, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := t.peek(key); ok {
		metrics.CacheLookups.WithLabelValues(t.kind, "hit").Inc()
		return v, nil
	}

	// The shared fetch outlives any single waiter so one caller giving up
	// does not fail the others.
	fetchCtx := context.WithoutCancel(ctx)
	ch := t.group.DoChan(flightKey(key), func() (any, error) {
		// A flight that finished between the peek above and DoChan has
		// already stored its value.
		if v, ok := t.peek(key); ok {
			return v, nil
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			logger.Debug().Err(err).Str("kind", t.kind).Any("key", key).Msg("cache fetch failed")
			return nil, err
		}
		t.mu.Lock()
		t.items[key] = v
		t.mu.Unlock()
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		result := "miss"
		if res.Shared {
			result = "shared"
		}
		metrics.CacheLookups.WithLabelValues(t.kind, result).Inc()
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func flightKey[K comparable](key K) string {
	if s, ok := any(key).(string); ok {
		return s
	}
	return ""
}
