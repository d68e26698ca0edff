// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import "fmt"

// semaphore is the FIFO counting semaphore of §4.6: `{max, available,
// waiters}`. Acquire/Release are only ever driven by [SchedulerHandler]
// (scheduler.go), which holds the single goroutine running the machine
// loop, so no internal locking is needed — the invariant `0 <= available
// <= max` is maintained by construction, not by mutual exclusion.
type semaphore struct {
	id        string
	max       int
	available int
	waiters   []semWaiter
}

// semWaiter is one task blocked in Acquire: its task id (for Cancel) and
// the callback that settles its wait, either with nil (a permit was
// transferred to it) or a cancellation error.
type semWaiter struct {
	taskID string
	wake   func(err error)
}

func newSemaphore(id string, n int) (*semaphore, error) {
	if n <= 0 {
		return nil, &SemaphoreReleaseError{Reason: "CreateSemaphore requires n >= 1"}
	}
	return &semaphore{id: id, max: n, available: n}, nil
}

// tryAcquire takes a permit immediately if one is available.
func (s *semaphore) tryAcquire() bool {
	if s.available > 0 {
		s.available--
		return true
	}
	return false
}

// enqueue registers a blocked acquirer at the tail of the FIFO.
func (s *semaphore) enqueue(w semWaiter) {
	s.waiters = append(s.waiters, w)
}

// release transfers the freed permit directly to the head waiter (FIFO
// fairness, §4.6) rather than incrementing available and letting whoever
// next calls Acquire take it; only when no one is waiting does the permit
// return to the pool. Returns an error if that would push available past
// max — releasing more than was ever acquired.
func (s *semaphore) release() error {
	if len(s.waiters) > 0 {
		head := s.waiters[0]
		s.waiters = s.waiters[1:]
		head.wake(nil)
		return nil
	}
	if s.available >= s.max {
		return &SemaphoreReleaseError{Reason: "released too many"}
	}
	s.available++
	return nil
}

// cancelWaiter removes a blocked acquirer by task id without consuming a
// permit — cancellation non-leak (§8 testable property) — and settles its
// wait with a [TaskCancelledError].
func (s *semaphore) cancelWaiter(taskID string) {
	out := s.waiters[:0]
	for _, w := range s.waiters {
		if w.taskID == taskID {
			w.wake(&TaskCancelledError{TaskID: taskID})
			continue
		}
		out = append(out, w)
	}
	s.waiters = out
}

// SemaphoreHandle identifies a semaphore created by [CreateSemaphore]. It
// is opaque outside this package.
type SemaphoreHandle struct {
	id string
}

// CreateSemaphoreOp is the effect operation for creating a semaphore with
// n permits.
type CreateSemaphoreOp struct{ N int }

func (CreateSemaphoreOp) OpResult() *SemaphoreHandle { panic("phantom") }

// AcquireSemaphoreOp is the effect operation for taking a permit, blocking
// if none is available.
type AcquireSemaphoreOp struct{ Sem *SemaphoreHandle }

func (AcquireSemaphoreOp) OpResult() struct{} { panic("phantom") }

// ReleaseSemaphoreOp is the effect operation for returning a permit.
type ReleaseSemaphoreOp struct{ Sem *SemaphoreHandle }

func (ReleaseSemaphoreOp) OpResult() struct{} { panic("phantom") }

// semaphoreOp is satisfied by every semaphore operation; unlike
// [schedulerOp] it needs no per-type generic dispatch trick since none of
// these three operations is itself generic.
type semaphoreOp interface {
	dispatchSemaphore(h *SchedulerHandler, k *Continuation[Erased]) (Program[Erased], bool)
}

func (o CreateSemaphoreOp) dispatchSemaphore(h *SchedulerHandler, k *Continuation[Erased]) (Program[Erased], bool) {
	h.semSeq++
	id := fmt.Sprintf("sem-%d", h.semSeq)
	sem, err := newSemaphore(id, o.N)
	if err != nil {
		panic(err)
	}
	h.sems[id] = sem
	return Resume(k, Erased(&SemaphoreHandle{id: id})), true
}

func (o AcquireSemaphoreOp) dispatchSemaphore(h *SchedulerHandler, k *Continuation[Erased]) (Program[Erased], bool) {
	sem := h.sems[o.Sem.id]
	if sem.tryAcquire() {
		return Resume(k, Erased(struct{}{})), true
	}
	waiter := h.current
	sem.enqueue(semWaiter{
		taskID: waiter.id,
		wake: func(err error) {
			h.enqueue(waiter, func() Resumed {
				if err != nil {
					panic(err)
				}
				return k.Resume(Erased(struct{}{}))
			})
		},
	})
	waiter.cancelHook = func() { sem.cancelWaiter(waiter.id) }
	if h.metrics != nil {
		h.metrics.semWait.Observe(float64(len(sem.waiters)))
	}
	return Pure[Erased](schedulerYield{}), true
}

func (o ReleaseSemaphoreOp) dispatchSemaphore(h *SchedulerHandler, k *Continuation[Erased]) (Program[Erased], bool) {
	sem := h.sems[o.Sem.id]
	if err := sem.release(); err != nil {
		panic(err)
	}
	return Resume(k, Erased(struct{}{})), true
}

// CreateSemaphore creates a new counting semaphore with n permits.
func CreateSemaphore(n int) Program[*SemaphoreHandle] {
	return Perform(CreateSemaphoreOp{N: n})
}

// AcquireSemaphore takes a permit from sem, blocking until one is free.
func AcquireSemaphore(sem *SemaphoreHandle) Program[struct{}] {
	return Perform(AcquireSemaphoreOp{Sem: sem})
}

// ReleaseSemaphore returns a permit to sem.
func ReleaseSemaphore(sem *SemaphoreHandle) Program[struct{}] {
	return Perform(ReleaseSemaphoreOp{Sem: sem})
}
