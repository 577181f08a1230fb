// Package cache is a keyed store of query results shared across the
// console. Each distinct query (operation + canonical arguments) is one
// reference-counted entry; results carry tags naming the entities they
// contain, writes either invalidate tags or patch matching entries
// optimistically with an explicit rollback snapshot.
package cache

import "context"

// Key identifies one cache entry: an operation name plus the canonical
// encoding of its arguments. Argument normalization happens before the Key
// is built, so equal logical queries always collide on the same entry.
type Key struct {
	Op  string
	Arg string
}

// Tag labels a cached result with an entity (or collection) it depends on.
// Writes declare the tags they affect; the store resolves which entries
// that touches.
type Tag struct {
	Type string
	ID   string
}

// Query is a fetchable read operation. Fetch returns the result value and
// the tags it provides; the store never inspects the value itself.
type Query interface {
	Key() Key
	Fetch(ctx context.Context) (any, []Tag, error)
}

// Match selects entries by key and tag set.
type Match func(key Key, tags map[Tag]struct{}) bool

// MatchKey selects exactly one entry.
func MatchKey(k Key) Match {
	return func(key Key, _ map[Tag]struct{}) bool { return key == k }
}

// MatchOp selects every entry of one operation, regardless of arguments.
func MatchOp(op string) Match {
	return func(key Key, _ map[Tag]struct{}) bool { return key.Op == op }
}

// MatchTag selects every entry carrying the given tag.
func MatchTag(t Tag) Match {
	return func(_ Key, tags map[Tag]struct{}) bool {
		_, ok := tags[t]
		return ok
	}
}
