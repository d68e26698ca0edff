// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// promiseState is the lifecycle of an internal [promise] (§3 Promise).
type promiseState int

const (
	promisePending promiseState = iota
	promiseResolved
	promiseRejected
)

// promise is a single-producer, multi-consumer result cell backing one
// task's result (§3). [SchedulerHandler] resolves it exactly once, when the
// task finishes; waiters register callbacks with subscribe (see
// [SchedulerHandler.wait] and race in scheduler.go), which run on the
// scheduler's own goroutine, since the whole machine runs on one
// goroutine — unlike [ExternalPromise]
// (future.go), which genuinely resolves from another goroutine and so
// does need a cross-goroutine wake channel.
type promise struct {
	state   promiseState
	value   Erased
	err     error
	waiters []func()
}

func newPromise() *promise {
	return &promise{state: promisePending}
}

// subscribe registers cb to run once the promise settles, in the order
// subscriptions were added (§5: "wakes all waiters... preserving insertion
// order"). If the promise is already settled, cb runs immediately — there
// is nothing left to wait for. cb must not block; it is invoked from the
// scheduler's own drain loop (see scheduler.go), never from another
// goroutine.
func (p *promise) subscribe(cb func()) {
	if p.state != promisePending {
		cb()
		return
	}
	p.waiters = append(p.waiters, cb)
}

// resolve settles the promise with a success value and runs every waiter
// registered so far, in FIFO order. Resolving an already-settled promise is
// a no-op: each promise backs exactly one task, which finishes exactly
// once.
func (p *promise) resolve(v Erased) {
	if p.state != promisePending {
		return
	}
	p.state = promiseResolved
	p.value = v
	p.notify()
}

// reject settles the promise with a failure and runs every waiter.
func (p *promise) reject(err error) {
	if p.state != promisePending {
		return
	}
	p.state = promiseRejected
	p.err = err
	p.notify()
}

func (p *promise) notify() {
	waiters := p.waiters
	p.waiters = nil
	for _, cb := range waiters {
		cb()
	}
}
