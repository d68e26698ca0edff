// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Reader effect operations.
//
// Env is a read-only, key/value environment with a stack of overlays: each
// [Local] pushes one overlay for the dynamic extent of its body, and
// lookup walks overlays innermost-first before falling through to the
// base map (§3 Env). A value stored under a key may itself be a
// [Program][any]; [Dep] resolves it lazily on first access and memoizes
// the result in the innermost overlay where it was found (§3).

// Ask is the effect operation for reading a plain environment value.
// Perform(Ask[string]{Key: "db_url"}) returns the value of type string
// bound to that key, or raises [MissingEnvKeyError].
type Ask[A any] struct{ Key string }

func (Ask[A]) OpResult() A { panic("phantom") }

// Dep is the effect operation for reading a lazily-resolved environment
// value: if the bound value is a Program[Erased], it is run once and the
// result memoized in the innermost overlay it was found in; subsequent
// Dep/Ask on the same key in that scope return the memoized value. A
// Program of any other result type is returned as-is. [Ask] resolves a
// bound value the same way.
type Dep[A any] struct{ Key string }

func (Dep[A]) OpResult() A { panic("phantom") }

// Local is the effect operation that scopes Overlay for the dynamic
// extent of Body, popping it again once Body completes.
type Local[A any] struct {
	Overlay map[string]Erased
	Body    Program[A]
}

func (Local[A]) OpResult() A { panic("phantom") }

// envOverlay is one entry on the Reader's overlay stack (§3: "a stack of
// overlays").
type envOverlay struct {
	values map[string]Erased
}

// ReaderHandler interprets Ask/Dep/Local against a base environment and a
// stack of per-scope overlays. Use [NewReaderHandler] to create one.
type ReaderHandler struct {
	base     map[string]Erased
	overlays []*envOverlay
}

// NewReaderHandler creates a Reader handler seeded with the given base
// environment.
func NewReaderHandler(env map[string]Erased) *ReaderHandler {
	return &ReaderHandler{base: env}
}

// snapshot copies the overlay stack by reference to the slice header only
// (§5: "Env is snapshotted by value at spawn time"): since [Local] always
// pushes a brand new overlay rather than mutating an existing one in
// place, sharing the overlay pointers themselves is safe — subsequent
// pushes in either the parent or the spawned child extend their own copy
// of the slice header and are invisible to the other.
func (h *ReaderHandler) snapshot() *ReaderHandler {
	overlays := make([]*envOverlay, len(h.overlays))
	copy(overlays, h.overlays)
	return &ReaderHandler{base: h.base, overlays: overlays}
}

// cloneForSpawnHandler implements [spawnSnapshotter]. Env has no merge-back
// counterpart: §5 only snapshots it by value at spawn time.
func (h *ReaderHandler) cloneForSpawnHandler() Handler { return h.snapshot() }

// lookup walks overlays innermost-first, then the base map, returning the
// raw bound value together with where it was found: ov is the overlay it
// was found in, or nil if it came from the base map.
func (h *ReaderHandler) lookup(key string) (v Erased, ov *envOverlay, ok bool) {
	for i := len(h.overlays) - 1; i >= 0; i-- {
		cur := h.overlays[i]
		if v, ok := cur.values[key]; ok {
			return v, cur, true
		}
	}
	if v, ok := h.base[key]; ok {
		return v, nil, true
	}
	return nil, nil, false
}

// resolve returns the value bound to key (§3: "a key whose value is itself
// an Expression is resolved lazily on first Ask/Dep and then memoized"). A
// bound value of dynamic type Program[Erased] is forced exactly once and
// the result written back where it was found, so a second Ask/Dep on the
// same key in the same scope returns the memoized value without re-running
// the expression.
func (h *ReaderHandler) resolve(key string) (Erased, bool) {
	v, ov, ok := h.lookup(key)
	if !ok {
		return nil, false
	}
	lazyExpr, pending := v.(Program[Erased])
	if !pending {
		return v, true
	}
	resolved := Handle(lazyExpr)
	if ov != nil {
		ov.values[key] = resolved
	} else {
		h.base[key] = resolved
	}
	return resolved, true
}

// Handle implements [Handler].
func (h *ReaderHandler) Handle(op Operation, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool) {
	switch o := op.(type) {
	case interface{ askKey() string }:
		v, ok := h.resolve(o.askKey())
		if !ok {
			panic(&MissingEnvKeyError{Key: o.askKey()})
		}
		return Resume(k, v), true
	case interface {
		localRun(h *ReaderHandler, ctx *HandlerContext) Resumed
	}:
		return Resume(k, o.localRun(h, ctx)), true
	default:
		return nil, false
	}
}

func (o Ask[A]) askKey() string { return o.Key }
func (o Dep[A]) askKey() string { return o.Key }

// localRun pushes Overlay, evaluates Body against the full ambient stack
// (ctx.Stack — the same stack dispatchOp handed this Handle call, which
// still includes this very ReaderHandler at ctx.From), and pops the overlay
// again once Body settles, however it settles. Dispatching against
// ctx.Stack instead of an isolated one-handler stack is what lets Body
// perform any other ambient effect (State, Writer, Spawn, ...) and still
// find its handler, the same way WithHandlerFrame dispatches its own body.
func (o Local[A]) localRun(h *ReaderHandler, ctx *HandlerContext) Resumed {
	child := &envOverlay{values: o.Overlay}
	h.overlays = append(h.overlays, child)
	defer func() { h.overlays = h.overlays[:len(h.overlays)-1] }()
	return evalProgram(erase(o.Body), ctx.Stack)
}

// AskEnv fuses Ask with Bind: performs Ask(key), then passes the value to
// f.
func AskEnv[A, B any](key string, f func(A) Program[B]) Program[B] {
	return Bind(Perform(Ask[A]{Key: key}), f)
}

// LocalEnv runs body with overlay pushed onto the environment for its
// dynamic extent.
func LocalEnv[A any](overlay map[string]Erased, body Program[A]) Program[A] {
	return Perform(Local[A]{Overlay: overlay, Body: body})
}

// RunReader runs a Program against the given base environment.
func RunReader[A any](env map[string]Erased, m Program[A]) A {
	return Handle(m, NewReaderHandler(env))
}
