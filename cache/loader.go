// Package cache provides a bounded loading cache for outbound lookups.
//
// Entries expire a fixed duration after last access and capacity pressure
// evicts the least recently used key. Concurrent callers for a missing
// key share a single in-flight load. Negative results are cached as
// explicit absent markers; load errors are never cached, so the next
// access retries.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// LoadFunc fetches the value for a missing key. Returning found=false is
// a cacheable "does not exist"; returning an error leaves the key empty.
type LoadFunc[V any] func(ctx context.Context, key string) (value V, found bool, err error)

type entry[V any] struct {
	value V
	found bool
}

type Loader[V any] struct {
	items *ttlcache.Cache[string, entry[V]]
	group singleflight.Group
	load  LoadFunc[V]
}

// NewLoader creates a loader cache with the given idle expiry and
// capacity bound.
func NewLoader[V any](ttl time.Duration, capacity uint64, load LoadFunc[V]) *Loader[V] {
	items := ttlcache.New[string, entry[V]](
		ttlcache.WithTTL[string, entry[V]](ttl),
		ttlcache.WithCapacity[string, entry[V]](capacity),
	)
	go items.Start()
	return &Loader[V]{items: items, load: load}
}

// Get returns the cached value for key, loading it on a miss. found is
// false for a cached or freshly loaded negative result. The context of
// the caller that triggers the load is the one the load observes.
func (l *Loader[V]) Get(ctx context.Context, key string) (V, bool, error) {
	if item := l.items.Get(key); item != nil {
		cached := item.Value()
		return cached.value, cached.found, nil
	}

	result, err, _ := l.group.Do(key, func() (interface{}, error) {
		// A concurrent load may have populated the cache while this
		// caller waited on the flight group.
		if item := l.items.Get(key); item != nil {
			return item.Value(), nil
		}
		value, found, err := l.load(ctx, key)
		if err != nil {
			return nil, err
		}
		loaded := entry[V]{value: value, found: found}
		l.items.Set(key, loaded, ttlcache.DefaultTTL)
		return loaded, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}

	loaded := result.(entry[V])
	return loaded.value, loaded.found, nil
}

// Delete drops a key, forcing a reload on next access.
func (l *Loader[V]) Delete(key string) {
	l.items.Delete(key)
}

// Len returns the number of live entries.
func (l *Loader[V]) Len() int {
	return l.items.Len()
}

// Stop halts the background expiry worker.
func (l *Loader[V]) Stop() {
	l.items.Stop()
}
