package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultKeepUnused is how long an entry without subscribers is retained
// before eviction. A tunable grace period, not a correctness constant.
const DefaultKeepUnused = 60 * time.Second

// Result is what a subscriber sees: a value or an error, never both.
type Result struct {
	Value any
	Err   error
}

// Metrics receives cache events. All methods may be called concurrently.
type Metrics interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheAttach()
	RecordCacheRefetch()
	RecordCacheEviction()
	RecordPatchApplied()
	RecordPatchRolledBack()
}

type noopMetrics struct{}

func (noopMetrics) RecordCacheHit()        {}
func (noopMetrics) RecordCacheMiss()       {}
func (noopMetrics) RecordCacheAttach()     {}
func (noopMetrics) RecordCacheRefetch()    {}
func (noopMetrics) RecordCacheEviction()   {}
func (noopMetrics) RecordPatchApplied()    {}
func (noopMetrics) RecordPatchRolledBack() {}

// Store holds one entry per distinct query. All entry state is guarded by
// a single mutex; every change to an entry (fetch result, invalidation,
// optimistic patch, rollback) is applied under it in the order resolutions
// arrive, which is what gives the completion-order-wins guarantee.
type Store struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	keepUnused time.Duration
	metrics    Metrics
	nextSubID  int64
}

type entry struct {
	key      Key
	hasValue bool
	value    any
	err      error
	tags     map[Tag]struct{}
	stale    bool
	inflight bool
	// refetchPending records an invalidation that arrived while a fetch
	// was already in flight; the fetch result still lands, then a fresh
	// fetch is started.
	refetchPending bool
	fetch          func(ctx context.Context) (any, []Tag, error)
	subs           map[int64]*Subscription
	evict          *time.Timer
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKeepUnused sets the eviction grace period for subscriber-less entries.
func WithKeepUnused(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.keepUnused = d
		}
	}
}

// WithMetrics installs a cache event recorder.
func WithMetrics(m Metrics) StoreOption {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries:    make(map[Key]*entry),
		keepUnused: DefaultKeepUnused,
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscription is one consumer's handle on a cache entry. Updates delivers
// the current result and every subsequent change to that exact entry;
// the channel coalesces, so a slow reader always sees the latest state.
type Subscription struct {
	id     int64
	key    Key
	store  *Store
	ch     chan Result
	closed bool
}

// Updates returns the result channel.
func (sub *Subscription) Updates() <-chan Result { return sub.ch }

// Key returns the cache key this subscription is attached to.
func (sub *Subscription) Key() Key { return sub.key }

// Close detaches the subscription. When the last subscriber leaves, the
// entry stays cached for the keep-unused grace period. Closing twice is a
// no-op.
func (sub *Subscription) Close() {
	sub.store.unsubscribe(sub)
}

// notify must be called with the store lock held. It never blocks: a full
// channel is drained first so the subscriber observes the newest result.
func (sub *Subscription) notify(r Result) {
	if sub.closed {
		return
	}
	select {
	case sub.ch <- r:
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- r:
		default:
		}
	}
}

// Subscribe attaches to the entry for q, creating it if needed. The first
// subscriber to a missing or stale entry triggers a fetch; concurrent
// subscribers attach to the in-flight fetch instead of issuing another.
// If the entry already holds a fresh result or error it is delivered
// immediately.
func (s *Store) Subscribe(ctx context.Context, q Query) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := q.Key()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{
			key:  key,
			tags: make(map[Tag]struct{}),
			subs: make(map[int64]*Subscription),
		}
		s.entries[key] = e
	}
	e.fetch = q.Fetch
	if e.evict != nil {
		e.evict.Stop()
		e.evict = nil
	}

	s.nextSubID++
	sub := &Subscription{
		id:    s.nextSubID,
		key:   key,
		store: s,
		ch:    make(chan Result, 1),
	}
	e.subs[sub.id] = sub

	switch {
	case e.inflight:
		// Attach to the request already on the wire.
		s.metrics.RecordCacheAttach()
		if e.hasValue || e.err != nil {
			sub.notify(e.result())
		}
	case e.stale || (!e.hasValue && e.err == nil):
		if e.hasValue || e.err != nil {
			sub.notify(e.result())
		}
		s.metrics.RecordCacheMiss()
		s.startFetch(ctx, e)
	default:
		s.metrics.RecordCacheHit()
		sub.notify(e.result())
	}

	return sub
}

// Get is the one-shot read used by page rendering: subscribe, wait for the
// first settled result, detach. The entry stays warm for the grace period,
// so consecutive page loads share one upstream call.
func (s *Store) Get(ctx context.Context, q Query) (any, error) {
	sub := s.Subscribe(ctx, q)
	defer sub.Close()

	select {
	case r := <-sub.ch:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks every entry carrying one of the tags stale. Entries
// with subscribers refetch immediately; the rest refetch lazily on next
// subscription.
func (s *Store) Invalidate(tags ...Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if !hasAnyTag(e.tags, tags) {
			continue
		}
		s.invalidateEntry(e)
	}
}

// InvalidateMatching is Invalidate with an arbitrary selector.
func (s *Store) InvalidateMatching(match Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if match(e.key, e.tags) {
			s.invalidateEntry(e)
		}
	}
}

// Drop removes matching entries outright, notifying nobody. Used when a
// cached result must not survive at all, e.g. the profile at logout.
func (s *Store) Drop(match Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if !match(e.key, e.tags) {
			continue
		}
		if e.evict != nil {
			e.evict.Stop()
		}
		delete(s.entries, key)
	}
}

// Reset empties the store. Test isolation hook; never called on a live
// store with active subscribers.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if e.evict != nil {
			e.evict.Stop()
		}
		delete(s.entries, key)
	}
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Peek returns the cached value for key without subscribing or fetching.
func (s *Store) Peek(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

func (e *entry) result() Result {
	if e.err != nil {
		return Result{Err: e.err}
	}
	return Result{Value: e.value}
}

func hasAnyTag(set map[Tag]struct{}, tags []Tag) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// invalidateEntry must be called with the lock held.
func (s *Store) invalidateEntry(e *entry) {
	e.stale = true
	if e.inflight {
		e.refetchPending = true
		return
	}
	if len(e.subs) > 0 {
		s.metrics.RecordCacheRefetch()
		s.startFetch(context.Background(), e)
	}
}

// startFetch must be called with the lock held. The fetch itself runs
// outside the lock; its result is applied in completion order. The fetch
// deliberately survives subscriber cancellation so a fast resubscription
// finds a populated entry.
func (s *Store) startFetch(ctx context.Context, e *entry) {
	e.inflight = true
	fetch := e.fetch
	go func() {
		value, tags, err := fetch(context.WithoutCancel(ctx))
		s.applyFetchResult(e, value, tags, err)
	}()
}

func (s *Store) applyFetchResult(e *entry, value any, tags []Tag, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.inflight = false
	e.stale = false
	if err != nil {
		e.err = err
		e.hasValue = false
		e.value = nil
	} else {
		e.value = value
		e.hasValue = true
		e.err = nil
		e.tags = make(map[Tag]struct{}, len(tags))
		for _, t := range tags {
			e.tags[t] = struct{}{}
		}
	}

	for _, sub := range e.subs {
		sub.notify(e.result())
	}

	if e.refetchPending {
		e.refetchPending = false
		if len(e.subs) > 0 {
			s.metrics.RecordCacheRefetch()
			s.startFetch(context.Background(), e)
			return
		}
		e.stale = true
	}

	if len(e.subs) == 0 {
		s.armEviction(e)
	}
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true

	e, ok := s.entries[sub.key]
	if !ok {
		return
	}
	delete(e.subs, sub.id)
	if len(e.subs) == 0 && !e.inflight {
		s.armEviction(e)
	}
}

// armEviction must be called with the lock held.
func (s *Store) armEviction(e *entry) {
	if e.evict != nil {
		e.evict.Stop()
	}
	e.evict = time.AfterFunc(s.keepUnused, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		current, ok := s.entries[e.key]
		if !ok || current != e {
			return
		}
		if len(e.subs) > 0 || e.inflight {
			return
		}
		delete(s.entries, e.key)
		s.metrics.RecordCacheEviction()
		slog.Debug("cache entry evicted", "op", e.key.Op, "arg", e.key.Arg)
	})
}
