// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import "context"

// Cache effect operations (§4.7): a pluggable key/value side-effect, kept
// in core as an interface the way [spawnSnapshotter]/[spawnMerger] are —
// the concrete backends (in-memory, Redis) live in package kontcache,
// which does not import this package either: its Store interface has the
// same method set as [CacheStore], so its backends satisfy CacheStore
// without a dependency in either direction.

// CacheStore is anything that can back [CacheHandler]: package kontcache's
// Memory and Redis both satisfy it.
type CacheStore interface {
	Get(ctx context.Context, key string) (Erased, bool, error)
	Put(ctx context.Context, key string, value Erased) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// CacheGet is the effect operation for reading a cached value. OpResult's
// zero case (no entry) is distinguished from "entry exists and is the zero
// value" via Found.
type CacheGet struct{ Key string }

// CacheResult is [CacheGet]'s result: the stored value and whether the key
// was present at all.
type CacheResult struct {
	Value Erased
	Found bool
}

func (CacheGet) OpResult() CacheResult { panic("phantom") }

// CachePut is the effect operation for writing a cached value.
type CachePut struct {
	Key   string
	Value Erased
}

func (CachePut) OpResult() struct{} { panic("phantom") }

// CacheExists is the effect operation for checking a key's presence
// without reading (and without the decode cost) its value.
type CacheExists struct{ Key string }

func (CacheExists) OpResult() bool { panic("phantom") }

// CacheDelete is the effect operation for removing a cached entry. Deleting
// an absent key is not an error (§4.7).
type CacheDelete struct{ Key string }

func (CacheDelete) OpResult() struct{} { panic("phantom") }

// CacheHandler interprets the Cache* operations against a [CacheStore],
// surfacing a backend failure as a Go panic the way the scheduler's own
// effects do ([MissingHandlerError], [TaskCancelledError], …) rather than
// through the Failed/Recover side channel — a cache backend's I/O error is
// an infrastructure fault, not a modeled program outcome.
type CacheHandler struct {
	store CacheStore
	ctx   context.Context
}

// NewCacheHandler installs store, dispatching backend calls with ctx — a
// fixed context for the handler's lifetime, since Program carries no
// context of its own (§4.7: Cache operations are synchronous from the
// calling task's point of view; a backend that needs genuine async I/O
// should be fronted with [Await] instead).
func NewCacheHandler(store CacheStore, ctx context.Context) *CacheHandler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &CacheHandler{store: store, ctx: ctx}
}

// Handle implements [Handler].
func (h *CacheHandler) Handle(op Operation, k *Continuation[Erased], _ *HandlerContext) (Program[Erased], bool) {
	switch o := op.(type) {
	case CacheGet:
		v, found, err := h.store.Get(h.ctx, o.Key)
		if err != nil {
			panic(err)
		}
		return Resume(k, Erased(CacheResult{Value: v, Found: found})), true
	case CachePut:
		if err := h.store.Put(h.ctx, o.Key, o.Value); err != nil {
			panic(err)
		}
		return Resume(k, Erased(struct{}{})), true
	case CacheExists:
		ok, err := h.store.Exists(h.ctx, o.Key)
		if err != nil {
			panic(err)
		}
		return Resume(k, Erased(ok)), true
	case CacheDelete:
		if err := h.store.Delete(h.ctx, o.Key); err != nil {
			panic(err)
		}
		return Resume(k, Erased(struct{}{})), true
	default:
		return nil, false
	}
}

// CacheGetValue reads a cached entry. A miss is reported as a
// [CacheResult] with Found false rather than by raising [CacheMiss].
func CacheGetValue(key string) Program[CacheResult] {
	return Perform(CacheGet{Key: key})
}

// CachePutValue writes a cached entry.
func CachePutValue(key string, value Erased) Program[struct{}] {
	return Perform(CachePut{Key: key, Value: value})
}

// CacheHasKey checks a cached entry's presence.
func CacheHasKey(key string) Program[bool] {
	return Perform(CacheExists{Key: key})
}

// CacheDeleteKey removes a cached entry.
func CacheDeleteKey(key string) Program[struct{}] {
	return Perform(CacheDelete{Key: key})
}
