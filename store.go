// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Store is the §4.7 State built-in: a `key -> value` mapping, distinct
// from the general-purpose, arbitrarily-typed [StateHandler] in state.go.
// Store is what [SchedulerHandler.spawn] snapshots and merges at task-join
// boundaries (§5 Shared-resource policy).

// StoreGet is the effect operation for reading a key.
type StoreGet struct{ Key string }

func (StoreGet) OpResult() Erased { panic("phantom") }

// StorePut is the effect operation for writing a key.
type StorePut struct {
	Key   string
	Value Erased
}

func (StorePut) OpResult() struct{} { panic("phantom") }

// StoreModify is the effect operation for updating a key from its current
// value (zero value if absent) via f, returning the new value.
type StoreModify struct {
	Key string
	F   func(Erased) Erased
}

func (StoreModify) OpResult() Erased { panic("phantom") }

// StoreAtomicGet reads a key, using DefaultFactory (if non-nil) to seed a
// missing key instead of returning the zero value.
type StoreAtomicGet struct {
	Key            string
	DefaultFactory func() Erased
}

func (StoreAtomicGet) OpResult() Erased { panic("phantom") }

// StoreAtomicUpdate reads, transforms, and writes a key as one step; since
// the scheduler only switches tasks at suspension points and Store
// operations are not suspension points, two Gather'd siblings'
// AtomicUpdates on the same key can never interleave — the "atomic" in
// its name describes intent (no partial update is observable), which this
// cooperative scheduling model provides for free (§4.7).
type StoreAtomicUpdate struct {
	Key            string
	F              func(Erased) Erased
	DefaultFactory func() Erased
}

func (StoreAtomicUpdate) OpResult() Erased { panic("phantom") }

// StoreSnapshot returns a shallow copy of the entire store — "deep
// enough to be safe from subsequent mutation" (§4.7) for a map whose
// values are themselves treated as immutable once stored.
type StoreSnapshot struct{}

func (StoreSnapshot) OpResult() map[string]Erased { panic("phantom") }

// StoreHandler interprets Get/Put/Modify/AtomicGet/AtomicUpdate/Snapshot
// against a `map[string]any`. base, when non-nil, is the parent's value of
// each key at the moment this handler was cloned for a spawned task;
// [StoreHandler.mergeFrom] diffs against base to decide which of this
// task's writes survive the join (§5).
type StoreHandler struct {
	values map[string]Erased
	base   map[string]Erased
}

// NewStoreHandler creates a Store handler seeded with the given map. A nil
// initial map is treated as empty.
func NewStoreHandler(initial map[string]Erased) *StoreHandler {
	if initial == nil {
		initial = map[string]Erased{}
	}
	return &StoreHandler{values: initial}
}

// cloneForSpawn returns a handler over a shallow copy of h's current
// values, with base pinned to that same copy so a later merge can tell
// which keys this clone actually touched.
func (h *StoreHandler) cloneForSpawn() *StoreHandler {
	snap := make(map[string]Erased, len(h.values))
	for k, v := range h.values {
		snap[k] = v
	}
	base := make(map[string]Erased, len(snap))
	for k, v := range snap {
		base[k] = v
	}
	return &StoreHandler{values: snap, base: base}
}

// mergeFrom folds a completed child's deltas into h: for every key the
// child wrote, the child's value wins unless h (the parent) itself wrote
// a different value for that key since the spawn — "parent wins for keys
// it modified after the spawn point" (§5).
func (h *StoreHandler) mergeFrom(child *StoreHandler) {
	for k, cv := range child.values {
		bv, hadBase := child.base[k]
		if pv, hasParent := h.values[k]; hasParent {
			if hadBase && !valueEqual(pv, bv) {
				continue // parent touched k after spawn: parent wins
			}
			if !hadBase && !valueEqual(pv, cv) {
				continue // parent created k independently after spawn
			}
		}
		h.values[k] = cv
	}
}

func valueEqual(a, b Erased) bool {
	defer func() { recover() }()
	return a == b
}

// cloneForSpawnHandler and mergeFromHandler implement
// [spawnSnapshotter]/[spawnMerger] (scheduler.go) on top of cloneForSpawn
// and mergeFrom, letting [SchedulerHandler.spawn] give each task its own Store
// without tasks having to know its concrete map shape.
func (h *StoreHandler) cloneForSpawnHandler() Handler { return h.cloneForSpawn() }

func (h *StoreHandler) mergeFromHandler(child Handler) {
	c, ok := child.(*StoreHandler)
	if !ok {
		return
	}
	h.mergeFrom(c)
}

// Handle implements [Handler].
func (h *StoreHandler) Handle(op Operation, k *Continuation[Erased], _ *HandlerContext) (Program[Erased], bool) {
	switch o := op.(type) {
	case StoreGet:
		return Resume(k, h.values[o.Key]), true
	case StorePut:
		h.values[o.Key] = o.Value
		return Resume(k, Erased(struct{}{})), true
	case StoreModify:
		nv := o.F(h.values[o.Key])
		h.values[o.Key] = nv
		return Resume(k, nv), true
	case StoreAtomicGet:
		v, ok := h.values[o.Key]
		if !ok && o.DefaultFactory != nil {
			v = o.DefaultFactory()
			h.values[o.Key] = v
		}
		return Resume(k, v), true
	case StoreAtomicUpdate:
		cur, ok := h.values[o.Key]
		if !ok && o.DefaultFactory != nil {
			cur = o.DefaultFactory()
		}
		nv := o.F(cur)
		h.values[o.Key] = nv
		return Resume(k, nv), true
	case StoreSnapshot:
		snap := make(map[string]Erased, len(h.values))
		for k, v := range h.values {
			snap[k] = v
		}
		return Resume(k, Erased(snap)), true
	default:
		return nil, false
	}
}

// GetStore performs StoreGet for key, type-asserting the result to A.
func GetStore[A any](key string) Program[A] {
	return Map(Perform(StoreGet{Key: key}), func(v Erased) A {
		a, _ := v.(A)
		return a
	})
}

// PutStore performs StorePut for key.
func PutStore(key string, value Erased) Program[struct{}] {
	return Perform(StorePut{Key: key, Value: value})
}

// ModifyStore performs StoreModify for key.
func ModifyStore[A any](key string, f func(A) A) Program[A] {
	wrapped := func(v Erased) Erased {
		a, _ := v.(A)
		return f(a)
	}
	return Map(Perform(StoreModify{Key: key, F: wrapped}), func(v Erased) A {
		a, _ := v.(A)
		return a
	})
}

// RunStore runs a Program against a Store seeded with initial, returning
// both the result and the final store contents.
func RunStore[A any](initial map[string]Erased, m Program[A]) (A, map[string]Erased) {
	h := NewStoreHandler(initial)
	result := Handle(m, h)
	return result, h.values
}
