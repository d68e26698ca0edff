// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import (
	"log/slog"
	"sync"

	"github.com/petermattis/goid"
)

// Await bridges the cooperative, single-goroutine scheduler (scheduler.go)
// to a value that genuinely settles on another goroutine — a network
// callback, a timer, a database driver's own worker pool (§4.7). Unlike
// [promise] (promise.go), which only ever resolves from the scheduler's own
// goroutine, [ExternalPromise] must be safe to complete from anywhere; the
// bridge is [extWaker], a small mutex-guarded mailbox the scheduler drains
// on its own goroutine instead of letting a foreign goroutine touch the
// ready-heap directly.

// extWaker is a single-producer-from-anywhere, single-consumer-on-the-
// scheduler-goroutine mailbox of deferred ready-queue mutations. Any
// goroutine may call deliver; only [SchedulerHandler.drain] ever calls
// drain, so nothing here needs to protect h.ready itself — deliver never
// touches it, only the closures drain runs do, and those always run on the
// scheduler's own goroutine.
type extWaker struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

func newExtWaker() *extWaker {
	return &extWaker{wake: make(chan struct{}, 1)}
}

// deliver queues fn to run on the scheduler goroutine and nudges it awake
// if it is blocked waiting for external work.
func (w *extWaker) deliver(fn func()) {
	w.mu.Lock()
	w.pending = append(w.pending, fn)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// drain returns and clears every queued delivery.
func (w *extWaker) drain() []func() {
	w.mu.Lock()
	out := w.pending
	w.pending = nil
	w.mu.Unlock()
	return out
}

// futureState is the lifecycle of an [ExternalPromise].
type futureState int

const (
	futurePending futureState = iota
	futureResolved
	futureRejected
)

// ExternalPromise is a value that settles exactly once, from any goroutine,
// via [ExternalPromise.Complete] or [ExternalPromise.Fail]. [Await] blocks
// the calling task until it settles, without blocking the scheduler's own
// goroutine in the meantime — other tasks keep running.
type ExternalPromise[A any] struct {
	mu        sync.Mutex
	state     futureState
	value     A
	err       error
	observers []func(Erased, error)
	ownerGoid int64
}

// NewExternalPromise creates a pending promise. ownerGoid records the
// goroutine that created it, logged (at Debug level, when
// [EnableEffectSiteCapture] is on) alongside whichever goroutine eventually
// completes it — a diagnostic aid when tracking down a bridge that
// unexpectedly settles synchronously instead of from the backend goroutine
// it was meant to come from, the same kind of per-goroutine bookkeeping
// internal/runtime_default.go's goroutine-keyed runtime registry performs
// with the same library.
func NewExternalPromise[A any]() *ExternalPromise[A] {
	return &ExternalPromise[A]{ownerGoid: goid.Get()}
}

// Complete settles the promise successfully. Calling it more than once, or
// after [ExternalPromise.Fail], is a no-op: the promise already settled.
func (p *ExternalPromise[A]) Complete(v A) {
	p.settle(func() {
		p.state = futureResolved
		p.value = v
	}, Erased(v), nil)
}

// Fail settles the promise with an error.
func (p *ExternalPromise[A]) Fail(err error) {
	p.settle(func() {
		p.state = futureRejected
		p.err = err
	}, nil, err)
}

func (p *ExternalPromise[A]) settle(mutate func(), v Erased, err error) {
	p.mu.Lock()
	if p.state != futurePending {
		p.mu.Unlock()
		return
	}
	mutate()
	observers := p.observers
	p.observers = nil
	p.mu.Unlock()

	if debugGoroutineCrossingEnabled() && goid.Get() != p.ownerGoid {
		debugLogCrossGoroutineSettle(p.ownerGoid)
	}

	for _, cb := range observers {
		cb(v, err)
	}
}

// subscribe registers cb to run once the promise settles. If it is already
// settled, cb runs synchronously on the calling goroutine — callers
// (dispatchFuture below) only ever call subscribe from code that is
// prepared for either timing.
func (p *ExternalPromise[A]) subscribe(cb func(Erased, error)) {
	p.mu.Lock()
	if p.state == futurePending {
		p.observers = append(p.observers, cb)
		p.mu.Unlock()
		return
	}
	state, v, err := p.state, p.value, p.err
	p.mu.Unlock()
	if state == futureResolved {
		cb(Erased(v), nil)
	} else {
		cb(nil, err)
	}
}

func debugGoroutineCrossingEnabled() bool { return siteCaptureEnabled.Load() }

func debugLogCrossGoroutineSettle(ownerGoid int64) {
	// Threading the owning scheduler's own *slog.Logger through here would
	// need a back-reference ExternalPromise doesn't otherwise carry;
	// slog.Default is adequate for a debug-only trace.
	slog.Default().Debug("doeffvm: external promise settled from a different goroutine than it was created on",
		"owner_goid", ownerGoid, "settler_goid", goid.Get())
}

// AwaitOp is the effect operation for blocking on an [ExternalPromise]
// without blocking the scheduler goroutine (§4.7).
type AwaitOp[A any] struct {
	Promise *ExternalPromise[A]
}

func (AwaitOp[A]) OpResult() A { panic("phantom") }

// futureOp is satisfied by AwaitOp[A] for any A, the same structural trick
// [writerOp]/[recoverOp]/[schedulerOp] use to dodge Go's type-switch
// limitation on partially instantiated generics.
type futureOp interface {
	dispatchFuture(h *FutureHandler, k *Continuation[Erased]) (Program[Erased], bool)
}

func (o AwaitOp[A]) dispatchFuture(h *FutureHandler, k *Continuation[Erased]) (Program[Erased], bool) {
	waiter := h.sched.current
	var once sync.Once
	settle := func(v Erased, err error) {
		once.Do(func() {
			h.waker.deliver(func() {
				h.sched.pendingAwait--
				waiter.cancelHook = nil
				if err != nil {
					h.sched.enqueue(waiter, func() Resumed { panic(err) })
					return
				}
				a, _ := v.(A)
				h.sched.enqueue(waiter, func() Resumed { return k.Resume(Erased(a)) })
			})
		})
	}
	h.sched.pendingAwait++
	o.Promise.subscribe(settle)
	waiter.cancelHook = func() {
		once.Do(func() {
			h.sched.pendingAwait--
			h.sched.enqueue(waiter, func() Resumed { return schedulerYield{} })
		})
	}
	return Pure[Erased](schedulerYield{}), true
}

// FutureHandler implements [Handler] for [AwaitOp], delegating the actual
// cross-goroutine wake-up to the owning [SchedulerHandler]'s [extWaker].
// It is shared by reference across every task the way [SchedulerHandler]
// itself is: Await has nothing to isolate per spawned task.
type FutureHandler struct {
	sched *SchedulerHandler
	waker *extWaker
}

// NewFutureHandler creates a handler for Await bound to sched's own waker,
// so a settling promise wakes the same drain loop that is blocked on it.
func NewFutureHandler(sched *SchedulerHandler) *FutureHandler {
	return &FutureHandler{sched: sched, waker: sched.waker}
}

// Handle implements [Handler].
func (h *FutureHandler) Handle(op Operation, k *Continuation[Erased], _ *HandlerContext) (Program[Erased], bool) {
	if fop, ok := op.(futureOp); ok {
		return fop.dispatchFuture(h, k)
	}
	return nil, false
}

// Await blocks the current task until promise settles, yielding the
// scheduler goroutine to other ready tasks in the meantime.
func Await[A any](promise *ExternalPromise[A]) Program[A] {
	return Perform(AwaitOp[A]{Promise: promise})
}
