package cache

// PatchFunc rewrites one cached value speculatively. It receives the
// current value and returns the replacement; returning ok=false leaves the
// entry untouched. Subscribers hold references to the input, so
// implementations must return a modified copy rather than mutate it.
type PatchFunc func(value any) (any, bool)

// Patch is the explicit snapshot of an optimistic write: every entry it
// touched, with its exact prior state. It resolves exactly once, via
// Commit or Revert; later calls are no-ops.
type Patch struct {
	store    *Store
	touched  []patchedEntry
	resolved bool
}

type patchedEntry struct {
	e         *entry
	prevValue any
	prevHas   bool
	prevErr   error
}

// ApplyPatch synchronously rewrites every matching cached value and
// notifies its subscribers, before any network call is made. The returned
// Patch restores the prior state verbatim on Revert.
func (s *Store) ApplyPatch(match Match, fn PatchFunc) *Patch {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Patch{store: s}
	for _, e := range s.entries {
		if !match(e.key, e.tags) || !e.hasValue {
			continue
		}
		next, ok := fn(e.value)
		if !ok {
			continue
		}
		p.touched = append(p.touched, patchedEntry{
			e:         e,
			prevValue: e.value,
			prevHas:   e.hasValue,
			prevErr:   e.err,
		})
		e.value = next
		e.hasValue = true
		e.err = nil
		for _, sub := range e.subs {
			sub.notify(e.result())
		}
	}

	if len(p.touched) > 0 {
		s.metrics.RecordPatchApplied()
	}
	return p
}

// Touched reports how many entries the patch rewrote.
func (p *Patch) Touched() int { return len(p.touched) }

// Commit keeps the optimistic state. The next natural refetch reconciles
// it with the authoritative server result.
func (p *Patch) Commit() {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	p.resolved = true
	p.touched = nil
}

// Revert restores every touched entry from its snapshot and notifies
// subscribers. A refetch that completes after the revert overwrites the
// restored state; whichever resolution reaches the store lock last wins.
func (p *Patch) Revert() {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	if p.resolved {
		return
	}
	p.resolved = true

	for _, t := range p.touched {
		t.e.value = t.prevValue
		t.e.hasValue = t.prevHas
		t.e.err = t.prevErr
		for _, sub := range t.e.subs {
			sub.notify(t.e.result())
		}
	}
	if len(p.touched) > 0 {
		p.store.metrics.RecordPatchRolledBack()
	}
	p.touched = nil
}
