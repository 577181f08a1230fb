package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/recipe-console/internal/cache"
)

// fakeQuery is a controllable query: it counts fetches, can block until
// released, and can be switched to fail.
type fakeQuery struct {
	key  cache.Key
	tags []cache.Tag

	mu    sync.Mutex
	calls int
	value any
	err   error
	gate  chan struct{}
}

func newFakeQuery(op, arg string, value any, tags ...cache.Tag) *fakeQuery {
	return &fakeQuery{key: cache.Key{Op: op, Arg: arg}, value: value, tags: tags}
}

func (q *fakeQuery) Key() cache.Key { return q.key }

func (q *fakeQuery) Fetch(ctx context.Context) (any, []cache.Tag, error) {
	q.mu.Lock()
	q.calls++
	gate := q.gate
	value, err := q.value, q.err
	q.mu.Unlock()

	if gate != nil {
		<-gate
		q.mu.Lock()
		value, err = q.value, q.err
		q.mu.Unlock()
	}
	if err != nil {
		return nil, nil, err
	}
	return value, q.tags, nil
}

func (q *fakeQuery) fetchCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

func (q *fakeQuery) setValue(v any) {
	q.mu.Lock()
	q.value = v
	q.mu.Unlock()
}

func (q *fakeQuery) setErr(err error) {
	q.mu.Lock()
	q.err = err
	q.mu.Unlock()
}

// waitFor reads updates until the predicate matches or the timeout hits.
func waitFor(t *testing.T, sub *cache.Subscription, match func(cache.Result) bool) cache.Result {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-sub.Updates():
			if match(r) {
				return r
			}
		case <-deadline:
			t.Fatal("timed out waiting for subscription update")
		}
	}
}

func TestStore_Get_SecondReadIsCached(t *testing.T) {
	store := cache.NewStore()
	q := newFakeQuery("recipes.list", "page=1", "page-one")

	for i := 0; i < 2; i++ {
		v, err := store.Get(context.Background(), q)
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		if v != "page-one" {
			t.Fatalf("Get %d: unexpected value %v", i, v)
		}
	}

	if got := q.fetchCount(); got != 1 {
		t.Fatalf("expected exactly one fetch, got %d", got)
	}
}

func TestStore_ConcurrentSubscribersShareOneFetch(t *testing.T) {
	store := cache.NewStore()
	q := newFakeQuery("recipes.list", "page=1", "shared")
	q.gate = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := store.Get(context.Background(), q)
			if err != nil {
				t.Errorf("Get %d: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}

	// Give all five a moment to attach, then release the single fetch.
	time.Sleep(50 * time.Millisecond)
	close(q.gate)
	wg.Wait()

	if got := q.fetchCount(); got != 1 {
		t.Fatalf("expected one deduplicated fetch for 5 subscribers, got %d", got)
	}
	for i, v := range results {
		if v != "shared" {
			t.Fatalf("subscriber %d got %v", i, v)
		}
	}
}

func TestStore_Get_ErrorSurfaced(t *testing.T) {
	store := cache.NewStore()
	q := newFakeQuery("recipes.get", "9", nil)
	fetchErr := errors.New("upstream down")
	q.setErr(fetchErr)

	_, err := store.Get(context.Background(), q)
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	// A failed entry is not served as a silent success afterwards.
	_, err = store.Get(context.Background(), q)
	if err == nil {
		t.Fatal("expected error state to persist until a successful refetch")
	}
}

func TestStore_Invalidate_RefetchesSubscribedEntry(t *testing.T) {
	store := cache.NewStore()
	tag := cache.Tag{Type: "recipe", ID: "LIST"}
	q := newFakeQuery("recipes.list", "page=1", "v1", tag)

	sub := store.Subscribe(context.Background(), q)
	defer sub.Close()
	waitFor(t, sub, func(r cache.Result) bool { return r.Value == "v1" })

	q.setValue("v2")
	store.Invalidate(tag)

	waitFor(t, sub, func(r cache.Result) bool { return r.Value == "v2" })
	if got := q.fetchCount(); got != 2 {
		t.Fatalf("expected a second fetch after invalidation, got %d", got)
	}
}

func TestStore_Invalidate_UnsubscribedEntryRefetchesLazily(t *testing.T) {
	store := cache.NewStore()
	tag := cache.Tag{Type: "recipe", ID: "7"}
	q := newFakeQuery("recipes.get", "7", "old", tag)

	if _, err := store.Get(context.Background(), q); err != nil {
		t.Fatalf("Get: %v", err)
	}

	q.setValue("new")
	store.Invalidate(tag)

	// No subscribers: the invalidation alone must not fetch.
	time.Sleep(50 * time.Millisecond)
	if got := q.fetchCount(); got != 1 {
		t.Fatalf("expected no eager refetch without subscribers, got %d fetches", got)
	}

	v, err := store.Get(context.Background(), q)
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if v != "new" {
		t.Fatalf("expected refreshed value, got %v", v)
	}
	if got := q.fetchCount(); got != 2 {
		t.Fatalf("expected lazy refetch on next subscription, got %d", got)
	}
}

func TestStore_InvalidateMatching_SelectsByOperation(t *testing.T) {
	store := cache.NewStore()
	list := newFakeQuery("recipes.list", "page=1", "list-v1", cache.Tag{Type: "recipe", ID: "LIST"})
	single := newFakeQuery("recipes.get", "7", "single-v1", cache.Tag{Type: "recipe", ID: "7"})

	listSub := store.Subscribe(context.Background(), list)
	defer listSub.Close()
	singleSub := store.Subscribe(context.Background(), single)
	defer singleSub.Close()
	waitFor(t, listSub, func(r cache.Result) bool { return r.Value == "list-v1" })
	waitFor(t, singleSub, func(r cache.Result) bool { return r.Value == "single-v1" })

	if listSub.Key() != list.Key() || singleSub.Key() != single.Key() {
		t.Fatal("subscription keys must name the entries they attach to")
	}

	list.setValue("list-v2")
	single.setValue("single-v2")
	store.InvalidateMatching(cache.MatchOp("recipes.list"))

	waitFor(t, listSub, func(r cache.Result) bool { return r.Value == "list-v2" })
	if got := single.fetchCount(); got != 1 {
		t.Fatalf("selector must not touch other operations, got %d fetches", got)
	}
}

func TestStore_Invalidate_UnrelatedTagUntouched(t *testing.T) {
	store := cache.NewStore()
	q := newFakeQuery("recipes.get", "7", "value", cache.Tag{Type: "recipe", ID: "7"})

	if _, err := store.Get(context.Background(), q); err != nil {
		t.Fatalf("Get: %v", err)
	}

	store.Invalidate(cache.Tag{Type: "recipe", ID: "8"})

	if _, err := store.Get(context.Background(), q); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := q.fetchCount(); got != 1 {
		t.Fatalf("unrelated invalidation caused a refetch: %d fetches", got)
	}
}

func TestStore_EvictionAfterGracePeriod(t *testing.T) {
	store := cache.NewStore(cache.WithKeepUnused(30 * time.Millisecond))
	q := newFakeQuery("recipes.list", "page=1", "value")

	if _, err := store.Get(context.Background(), q); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}

	deadline := time.After(2 * time.Second)
	for store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("entry was not evicted after the grace period")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// A fresh read repopulates.
	if _, err := store.Get(context.Background(), q); err != nil {
		t.Fatalf("Get after eviction: %v", err)
	}
	if got := q.fetchCount(); got != 2 {
		t.Fatalf("expected refetch after eviction, got %d", got)
	}
}

func TestStore_SubscribedEntryNotEvicted(t *testing.T) {
	store := cache.NewStore(cache.WithKeepUnused(20 * time.Millisecond))
	q := newFakeQuery("recipes.list", "page=1", "value")

	sub := store.Subscribe(context.Background(), q)
	defer sub.Close()
	waitFor(t, sub, func(r cache.Result) bool { return r.Value == "value" })

	time.Sleep(80 * time.Millisecond)
	if store.Len() != 1 {
		t.Fatal("subscribed entry must not be evicted")
	}
}

func TestStore_AbandonedFetchStillPopulatesCache(t *testing.T) {
	store := cache.NewStore()
	q := newFakeQuery("recipes.list", "page=1", "late")
	q.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	sub := store.Subscribe(ctx, q)
	sub.Close()
	cancel()

	close(q.gate)

	// The in-flight fetch completes and lands in cache for a fast
	// resubscription, even though nobody was left watching.
	deadline := time.After(2 * time.Second)
	for {
		if v, ok := store.Peek(cache.Key{Op: "recipes.list", Arg: "page=1"}); ok && v == "late" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("abandoned fetch never populated the cache")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if _, err := store.Get(context.Background(), q); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := q.fetchCount(); got != 1 {
		t.Fatalf("resubscription should reuse the populated entry, got %d fetches", got)
	}
}

func TestStore_InvalidateDuringFlightRefetches(t *testing.T) {
	store := cache.NewStore()
	tag := cache.Tag{Type: "recipe", ID: "LIST"}
	q := newFakeQuery("recipes.list", "page=1", "v1", tag)

	sub := store.Subscribe(context.Background(), q)
	defer sub.Close()
	waitFor(t, sub, func(r cache.Result) bool { return r.Value == "v1" })

	// Stall the refetch triggered by the first invalidation, then
	// invalidate again mid-flight.
	q.gate = make(chan struct{})
	q.setValue("v2")
	store.Invalidate(tag)
	store.Invalidate(tag)
	q.setValue("v3")
	close(q.gate)

	waitFor(t, sub, func(r cache.Result) bool { return r.Value == "v3" })
}

func TestStore_Reset_DropsEverything(t *testing.T) {
	store := cache.NewStore()
	q := newFakeQuery("recipes.list", "page=1", "value")

	if _, err := store.Get(context.Background(), q); err != nil {
		t.Fatalf("Get: %v", err)
	}

	store.Reset()
	if store.Len() != 0 {
		t.Fatalf("expected empty store after Reset, got %d entries", store.Len())
	}
}
