// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Spawn/Wait/Cancel/Race effect operations (§4.5 Concurrency) plus the
// Gather/Parallel combinators built on top of them.
//
// Suspension here is a known, deliberate trade-off of the
// sentinel-returning cooperative scheduler (scheduler.go): Wait, Race, and
// AcquireSemaphore correctly yield control back to the ready-queue only
// when no task-local [WithHandler]/[Safe]/[Recover]/[Bracket] frame sits
// between the task's own entry point and the suspending effect — such a
// frame treats the yield sentinel as an ordinary completed value instead
// of propagating it. A task whose own Wait fails still fails as a whole,
// and that failure is observable correctly by whoever awaits it; wrapping
// an individual Wait call in Safe/Recover to catch just that failure is
// not supported. See DESIGN.md.

// Priority constants for [WithPriority] (§4.5): higher values run first
// within the ready-queue, ties broken by insertion order.
const (
	PriorityIdle   = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// SpawnOptions configures a spawned task.
type SpawnOptions struct {
	Priority      int
	FireAndForget bool
	// Site is the Spawn call site, captured when [EnableEffectSiteCapture]
	// is on (§4.8 spawn chain).
	Site siteInfo
}

// SpawnOption mutates [SpawnOptions]; passed to [Spawn].
type SpawnOption func(*SpawnOptions)

// WithPriority sets the spawned task's scheduling priority.
func WithPriority(p int) SpawnOption {
	return func(o *SpawnOptions) { o.Priority = p }
}

// FireAndForget marks a spawned task as not requiring a join: the
// scheduler's unjoined-task warning (§5) does not consider it.
func FireAndForget() SpawnOption {
	return func(o *SpawnOptions) { o.FireAndForget = true }
}

func spawnOptions(opts []SpawnOption) SpawnOptions {
	o := SpawnOptions{Priority: PriorityNormal}
	for _, f := range opts {
		f(&o)
	}
	return o
}

// TaskHandle identifies a spawned task and carries its result type for
// [Wait]/[Cancel]. It is opaque outside this package.
type TaskHandle[A any] struct {
	t *task
}

// ID returns the task's identifier, used in traces and logs.
func (h *TaskHandle[A]) ID() string { return h.t.id }

// SpawnOp is the effect operation for starting a new task. Perform returns
// immediately with a [TaskHandle]; the child does not run any step of its
// body before Spawn returns to the caller (§4.5).
type SpawnOp[A any] struct {
	Expr Program[A]
	Opts SpawnOptions
}

func (SpawnOp[A]) OpResult() *TaskHandle[A] { panic("phantom") }

func (o SpawnOp[A]) dispatchScheduler(h *SchedulerHandler, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool) {
	t := h.spawn(erase(o.Expr), o.Opts, ctx.Stack)
	return Resume(k, Erased(&TaskHandle[A]{t: t})), true
}

// WaitOp is the effect operation for joining a task: it blocks the current
// task until the awaited task settles, then either returns its value or
// fails with its error (§4.5, §5 merge-at-join).
type WaitOp[A any] struct {
	Task *TaskHandle[A]
}

func (WaitOp[A]) OpResult() A { panic("phantom") }

func (o WaitOp[A]) dispatchScheduler(h *SchedulerHandler, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool) {
	h.wait(o.Task.t, ctx.Stack, k)
	return Pure[Erased](schedulerYield{}), true
}

// CancelOp is the effect operation for cancelling a task. Cancelling a
// task that has already settled is a no-op (§4.5).
type CancelOp[A any] struct {
	Task *TaskHandle[A]
}

func (CancelOp[A]) OpResult() struct{} { panic("phantom") }

func (o CancelOp[A]) dispatchScheduler(h *SchedulerHandler, k *Continuation[Erased], _ *HandlerContext) (Program[Erased], bool) {
	h.cancel(o.Task.t)
	return Resume(k, Erased(struct{}{})), true
}

// RaceResult is Race's result: the winning expression's program-order
// index and its value.
type RaceResult[A any] struct {
	Index int
	Value A
}

// RaceOp is the effect operation for running several expressions
// concurrently and taking whichever settles first, cancelling the rest
// (§4.5).
type RaceOp[A any] struct {
	Exprs []Program[A]
}

func (RaceOp[A]) OpResult() RaceResult[A] { panic("phantom") }

func (o RaceOp[A]) dispatchScheduler(h *SchedulerHandler, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool) {
	exprs := make([]Program[Erased], len(o.Exprs))
	for i, e := range o.Exprs {
		exprs[i] = erase(e)
	}
	convert := func(box raceResultBox) Erased {
		v, _ := box.value.(A)
		return Erased(RaceResult[A]{Index: box.index, Value: v})
	}
	h.race(exprs, ctx.Stack, k, convert)
	return Pure[Erased](schedulerYield{}), true
}

// schedulerOp is satisfied by every scheduling operation regardless of its
// own generic result type, the same structural-dispatch trick [writerOp]
// and [recoverOp] use.
type schedulerOp interface {
	dispatchScheduler(h *SchedulerHandler, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool)
}

// Spawn starts expr as a new task and returns its handle without running
// any of its body.
func Spawn[A any](expr Program[A], opts ...SpawnOption) Program[*TaskHandle[A]] {
	o := spawnOptions(opts)
	o.Site = captureSite(0)
	return Perform(SpawnOp[A]{Expr: expr, Opts: o})
}

// Wait blocks until the given task settles, returning its value or
// propagating its failure.
func Wait[A any](h *TaskHandle[A]) Program[A] {
	return Perform(WaitOp[A]{Task: h})
}

// Cancel requests cancellation of a task.
func Cancel[A any](h *TaskHandle[A]) Program[struct{}] {
	return Perform(CancelOp[A]{Task: h})
}

// Race runs every expr concurrently and resolves with whichever settles
// first, cancelling the remaining siblings.
func Race[A any](exprs ...Program[A]) Program[RaceResult[A]] {
	return Perform(RaceOp[A]{Exprs: exprs})
}

// Gather runs each expr to completion one at a time, in program order,
// collecting their results. This is the resolved semantics for Gather
// (§9 Open Questions): deterministic, serial composition, so a failure at
// position i never leaves a "still running" sibling to cancel — nothing
// past i has started yet. Use [Parallel] when the exprs should genuinely
// overlap.
func Gather[A any](exprs ...Program[A]) Program[[]A] {
	return gatherSeq(exprs, 0, make([]A, len(exprs)))
}

func gatherSeq[A any](exprs []Program[A], i int, acc []A) Program[[]A] {
	if i == len(exprs) {
		return Pure(acc)
	}
	return Bind(Spawn(exprs[i]), func(h *TaskHandle[A]) Program[[]A] {
		return Bind(Wait(h), func(v A) Program[[]A] {
			acc[i] = v
			return gatherSeq(exprs, i+1, acc)
		})
	})
}

// Parallel spawns every expr up front, then joins them one at a time in
// program order, so the exprs genuinely run concurrently (the scheduler
// interleaves them across the ready-queue) while the result slice is still
// ordered the way the caller wrote it. If joining handles[i] fails, the
// failure propagates immediately; any siblings past i that are still
// running are left unjoined rather than actively cancelled — they surface
// in the scheduler's unjoined-task warning (§5) instead of silently
// leaking. Use [Race] when the remaining siblings must be torn down
// eagerly.
func Parallel[A any](exprs ...Program[A]) Program[[]A] {
	if len(exprs) == 0 {
		return Pure([]A{})
	}
	return parallelSpawn(exprs, 0, make([]*TaskHandle[A], len(exprs)))
}

func parallelSpawn[A any](exprs []Program[A], i int, handles []*TaskHandle[A]) Program[[]A] {
	if i == len(exprs) {
		return parallelJoin(handles, 0, make([]A, len(handles)))
	}
	return Bind(Spawn(exprs[i]), func(h *TaskHandle[A]) Program[[]A] {
		handles[i] = h
		return parallelSpawn(exprs, i+1, handles)
	})
}

func parallelJoin[A any](handles []*TaskHandle[A], i int, acc []A) Program[[]A] {
	if i == len(handles) {
		return Pure(acc)
	}
	return Bind(Wait(handles[i]), func(v A) Program[[]A] {
		acc[i] = v
		return parallelJoin(handles, i+1, acc)
	})
}
