// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import (
	"container/heap"
	"log/slog"

	"github.com/google/uuid"
)

// Scheduler is the cooperative, single-goroutine task runtime of §4.5/§5.
// It is the generalization of the teacher's plain Handle-to-completion
// model: instead of one Program running against a fixed handler stack
// until it returns, SchedulerHandler drives a ready-queue of tasks, each
// its own Program plus its own snapshot of the spawn-time handler stack,
// switching between them only at explicit suspension points
// (Wait/Race/AcquireSemaphore).
//
// A task never runs concurrently with another on real OS threads; "task"
// here names a cooperative unit of scheduling, not an os/goroutine-level
// concept. [ExternalPromise] (future.go) is the bridge to code that
// genuinely lives on another goroutine.

// spawnSnapshotter is implemented by handlers that need their own isolated
// copy when a task spawns a child, so the child's mutations don't alias
// the parent's (Store, State, Writer, Reader). Handlers that don't
// implement it — [SchedulerHandler] itself, [ErrorHandler], a cache or
// future handler — are shared by reference across every task.
type spawnSnapshotter interface {
	cloneForSpawnHandler() Handler
}

// spawnMerger is implemented by handlers whose child-task deltas should
// fold back into the parent at a successful join (Store, State, Writer).
// Reader implements [spawnSnapshotter] but not spawnMerger: there is
// nothing to merge back for a read-only environment.
type spawnMerger interface {
	mergeFromHandler(child Handler)
}

// schedulerYield is the sentinel a suspending scheduling effect resumes
// evaluation with. It is never a legitimate Program result — user code has
// no way to construct one — so [SchedulerHandler.drain] can tell a
// genuinely completed task apart from one that merely yielded control back
// to the ready-queue.
type schedulerYield struct{}

type taskState int

const (
	taskReady taskState = iota
	taskRunning
	taskBlocked
	taskCompleted
	taskFailed
	taskCancelled
)

// task is the scheduler's internal bookkeeping for one spawned unit of
// work (§4.5 Task). The public-facing [TaskHandle] wraps a *task without
// exposing any of these fields.
type task struct {
	id            string
	priority      int
	state         taskState
	promise       *promise
	parent        *task
	fireAndForget bool
	startExpr     Program[Erased]
	stack         []*handlerEntry
	cancelHook    func()
	// createdSite is this task's Spawn call site (§4.8 spawn chain),
	// empty unless [EnableEffectSiteCapture] is on.
	createdSite siteInfo
}

type readyItem struct {
	task     *task
	run      func() Resumed
	priority int
	seq      int
}

type schedHeap []*readyItem

func (h schedHeap) Len() int { return len(h) }
func (h schedHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h schedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *schedHeap) Push(x any)   { *h = append(*h, x.(*readyItem)) }
func (h *schedHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// SchedulerHandler implements [Handler] for every scheduling and semaphore
// operation (SpawnOp/WaitOp/CancelOp/RaceOp, CreateSemaphoreOp/
// AcquireSemaphoreOp/ReleaseSemaphoreOp). Exactly one instance drives the
// ready-queue for a given [Run]/[AsyncRun] call; it is shared by reference
// into every task's spawned handler stack.
type SchedulerHandler struct {
	seq      int
	ready    schedHeap
	current  *task
	tasks    map[string]*task
	unjoined map[string]*task
	sems     map[string]*semaphore
	semSeq   int
	logger   *slog.Logger
	metrics  *Metrics

	// waker and pendingAwait back [Await] (future.go): an ExternalPromise
	// settling on a foreign goroutine delivers its wake-up through waker
	// instead of touching h.ready directly, since the ready-heap is only
	// ever safe to mutate from whichever goroutine is running drain.
	// pendingAwait is touched only from that goroutine (incremented while
	// dispatching AwaitOp, decremented while flushing a delivery), so it
	// needs no lock of its own.
	waker        *extWaker
	pendingAwait int
}

// NewScheduler creates an empty scheduler. logger receives the
// unjoined-task warning emitted by [SchedulerHandler.finish]; a nil logger
// uses [slog.Default].
func NewScheduler(logger *slog.Logger) *SchedulerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerHandler{
		tasks:    map[string]*task{},
		unjoined: map[string]*task{},
		sems:     map[string]*semaphore{},
		logger:   logger,
		waker:    newExtWaker(),
	}
}

// Handle implements [Handler].
func (h *SchedulerHandler) Handle(op Operation, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool) {
	if sop, ok := op.(schedulerOp); ok {
		return sop.dispatchScheduler(h, k, ctx)
	}
	if sop, ok := op.(semaphoreOp); ok {
		return sop.dispatchSemaphore(h, k)
	}
	return nil, false
}

// runRoot spawns expr as the root task (never fire-and-forget), drains the
// ready-queue to completion, and reports the root's outcome. It is the
// entry point [Run]/[AsyncRun] use (run.go).
func (h *SchedulerHandler) runRoot(expr Program[Erased], stack []*handlerEntry) (Erased, error) {
	root := h.spawn(expr, SpawnOptions{Priority: PriorityNormal}, stack)
	// The root runs on the caller's own handlers rather than spawn-time
	// clones, so their final Store/Writer contents are the root's; and
	// runRoot itself joins the root, so it is never reported as unjoined.
	root.stack = stack
	delete(h.unjoined, root.id)
	h.drain()
	if root.promise.state == promiseRejected {
		return nil, root.promise.err
	}
	return root.promise.value, nil
}

func (h *SchedulerHandler) nextSeq() int {
	h.seq++
	return h.seq
}

func (h *SchedulerHandler) enqueue(t *task, run func() Resumed) {
	heap.Push(&h.ready, &readyItem{task: t, run: run, priority: t.priority, seq: h.nextSeq()})
}

// spawn creates a child task from parentStack (the handler stack active at
// the Spawn call site), cloning every [spawnSnapshotter] handler in it so
// the child's Store/State/Writer/Reader writes are isolated until a
// successful [SchedulerHandler.wait] merges them back (§5).
func (h *SchedulerHandler) spawn(expr Program[Erased], opts SpawnOptions, parentStack []*handlerEntry) *task {
	t := &task{
		id:            uuid.NewString(),
		priority:      opts.Priority,
		state:         taskReady,
		promise:       newPromise(),
		parent:        h.current,
		fireAndForget: opts.FireAndForget,
		startExpr:     expr,
		stack:         cloneStackForSpawn(parentStack),
		createdSite:   opts.Site,
	}
	h.tasks[t.id] = t
	if !opts.FireAndForget {
		h.unjoined[t.id] = t
	}
	if h.metrics != nil {
		h.metrics.observeSpawn(t.priority)
	}
	h.enqueue(t, func() Resumed { return evalProgram(t.startExpr, t.stack) })
	return t
}

// cloneStackForSpawn returns a new stack slice sharing every handler that
// isn't a [spawnSnapshotter] and cloning every one that is.
func cloneStackForSpawn(stack []*handlerEntry) []*handlerEntry {
	out := make([]*handlerEntry, len(stack))
	for i, e := range stack {
		if snap, ok := e.handler.(spawnSnapshotter); ok {
			out[i] = &handlerEntry{handler: snap.cloneForSpawnHandler(), site: e.site}
		} else {
			out[i] = e
		}
	}
	return out
}

// mergeStackFromChild folds every [spawnMerger] handler's deltas in
// childStack back into the corresponding entry of parentStack, positionally
// — spawn clones preserve index alignment, so this never needs to search.
func mergeStackFromChild(parentStack, childStack []*handlerEntry) {
	for i := range parentStack {
		if i >= len(childStack) {
			break
		}
		if m, ok := parentStack[i].handler.(spawnMerger); ok {
			m.mergeFromHandler(childStack[i].handler)
		}
	}
}

// wait registers waiter := h.current to resume once t settles, merging
// t's spawn-scoped handler state back into parentStack on success (§5).
// The caller (WaitOp.dispatchScheduler) always yields afterward: whether t
// is already settled or not, resumption happens on a later ready-queue
// tick, never synchronously within the Perform call — see spawn.go's
// package doc for what that means for Safe/Recover wrapped around Wait.
func (h *SchedulerHandler) wait(t *task, parentStack []*handlerEntry, k *Continuation[Erased]) {
	waiter := h.current
	settled := false
	t.promise.subscribe(func() {
		if settled {
			return
		}
		settled = true
		waiter.cancelHook = nil
		delete(h.unjoined, t.id)
		if t.promise.state == promiseResolved {
			mergeStackFromChild(parentStack, t.stack)
			v := t.promise.value
			h.enqueue(waiter, func() Resumed { return k.Resume(v) })
			return
		}
		err := t.promise.err
		h.enqueue(waiter, func() Resumed { panic(err) })
	})
	waiter.cancelHook = func() {
		if settled {
			return
		}
		settled = true
		h.enqueue(waiter, func() Resumed { return schedulerYield{} })
	}
}

// raceResultBox carries a winning Race index/value in type-erased form;
// convert (supplied by [RaceOp.dispatchScheduler], the only caller that
// still knows the concrete element type A) turns it into the
// Program[RaceResult[A]] the caller actually asked for.
type raceResultBox struct {
	index int
	value Erased
}

// race spawns every expr, then subscribes to all of their promises at
// once: the first to settle wins, cancels the rest, and wakes the caller
// with convert's rendering of its result (or its error, on a failing win).
func (h *SchedulerHandler) race(exprs []Program[Erased], parentStack []*handlerEntry, k *Continuation[Erased], convert func(raceResultBox) Erased) {
	children := make([]*task, len(exprs))
	for i, e := range exprs {
		children[i] = h.spawn(e, SpawnOptions{Priority: PriorityNormal}, parentStack)
	}
	waiter := h.current
	done := false
	for i, c := range children {
		i, c := i, c
		c.promise.subscribe(func() {
			if done {
				return
			}
			done = true
			waiter.cancelHook = nil
			delete(h.unjoined, c.id)
			for _, other := range children {
				if other != c {
					h.cancel(other)
				}
			}
			if c.promise.state == promiseResolved {
				v := c.promise.value
				h.enqueue(waiter, func() Resumed {
					return k.Resume(convert(raceResultBox{index: i, value: v}))
				})
				return
			}
			err := c.promise.err
			h.enqueue(waiter, func() Resumed { panic(err) })
		})
	}
	waiter.cancelHook = func() {
		if done {
			return
		}
		done = true
		for _, c := range children {
			h.cancel(c)
		}
		h.enqueue(waiter, func() Resumed { return schedulerYield{} })
	}
}

// cancel marks t cancelled. A task still in the ready-queue (never
// started) is skipped when popped; a task blocked on a promise or
// semaphore is woken immediately with [TaskCancelledError] via its stored
// cancelHook rather than waiting for whatever it was blocked on.
func (h *SchedulerHandler) cancel(t *task) {
	switch t.state {
	case taskCompleted, taskFailed, taskCancelled:
		return
	case taskBlocked:
		t.state = taskCancelled
		if t.cancelHook != nil {
			hook := t.cancelHook
			t.cancelHook = nil
			hook()
		}
	default:
		t.state = taskCancelled
	}
	delete(h.unjoined, t.id)
	if h.metrics != nil {
		h.metrics.observeCancel()
	}
}

// drain pops ready items by (priority desc, insertion-sequence asc) and
// runs each until the whole queue is empty and no [Await] is still pending
// on an external completion — the scheduler's main loop (§5, §4.7 Await).
func (h *SchedulerHandler) drain() {
	for {
		h.flushExternal()
		for h.ready.Len() > 0 {
			item := heap.Pop(&h.ready).(*readyItem)
			t := item.task
			if t.state == taskCancelled {
				t.promise.reject(&TaskCancelledError{TaskID: t.id})
				continue
			}
			prevCurrent := h.current
			h.current = t
			t.state = taskRunning
			result, err := h.runTick(item.run)
			h.current = prevCurrent

			switch {
			case err != nil:
				t.state = taskFailed
				t.promise.reject(err)
				if h.metrics != nil {
					h.metrics.observeFail()
				}
			case isSchedulerYield(result):
				t.state = taskBlocked
			default:
				t.state = taskCompleted
				t.promise.resolve(result)
				if h.metrics != nil {
					h.metrics.observeComplete()
				}
			}
			if h.metrics != nil {
				h.metrics.observeQueueDepth(h.ready.Len())
			}
			h.flushExternal()
		}
		if h.pendingAwait <= 0 {
			break
		}
		<-h.waker.wake
		h.flushExternal()
	}
	h.finish()
}

// flushExternal runs every delivery an [ExternalPromise] queued from
// outside this goroutine, enqueueing whatever ready-queue work each one
// produces. Safe to call at any point in drain's own loop, including when
// nothing is pending.
func (h *SchedulerHandler) flushExternal() {
	for _, fn := range h.waker.drain() {
		fn()
	}
}

// runTick runs one ready-queue step, converting a recovered panic into an
// error exactly like [runSafe] does, except [HandlerContractError] is
// re-panicked: it is fatal for the whole scheduler run, not just the one
// task that happened to trip it (§7).
func (h *SchedulerHandler) runTick(run func() Resumed) (result Resumed, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if hce, ok := r.(*HandlerContractError); ok {
			panic(hce)
		}
		if e, ok := r.(error); ok {
			err = e
			return
		}
		err = &Failure{Err: errAny{r}}
	}()
	return run(), nil
}

func isSchedulerYield(v Resumed) bool {
	_, ok := v.(schedulerYield)
	return ok
}

// finish logs a single warning, once the ready-queue has drained, giving
// the count of spawned, non-fire-and-forget tasks that were never joined
// (§5) and how to avoid it. Nothing is logged when every task was joined.
func (h *SchedulerHandler) finish() {
	if len(h.unjoined) == 0 {
		return
	}
	h.logger.Warn("doeffvm: tasks spawned but never joined",
		"count", len(h.unjoined),
		"hint", "join each task with Wait, or spawn it with FireAndForget()")
}
