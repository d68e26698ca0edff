// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gen lets an effectful computation be written as ordinary,
// sequential Go code instead of a chain of doeffvm.Bind calls: a generator
// function receives a yield callback, calls it once per effect it wants to
// perform, and gets back whatever the active handler resumed with — the
// same rendezvous protocol other_examples' goroutine-based coro package
// uses for its yield/Resume pair, here driving a doeffvm.Program instead of
// a plain bool "still alive" signal.
//
// The generator's goroutine and the Program's evaluation never run at the
// same time: each runs while the other is blocked on a channel, so a
// generator body needs no synchronization of its own, exactly as coro.go
// documents for its own yield/Resume rendezvous.
package gen

import (
	"errors"
	"fmt"
	"runtime"

	"code.hybscloud.com/doeffvm"
)

// Func is a generator body. yield performs op against the handler stack
// active wherever the resulting Program eventually runs, and returns once
// that handler resumes — exactly the value [doeffvm.Perform] would have
// returned had op been a statically typed operation performed directly.
type Func[A any] func(yield func(op doeffvm.Operation) doeffvm.Erased) A

// ErrLeak is the panic a generator's yield call raises if the [doeffvm.Program]
// built from it is abandoned — garbage collected — before ever resuming it
// again, mirroring coro.go's own ErrLeak: a generator stuck on yield forever
// is a goroutine leak, not a silent hang.
var ErrLeak = errors.New("gen: generator abandoned before its pending effect was resumed")

// ErrKilled wraps [ErrLeak] (or another cause) as the panic value a leaked
// generator's yield raises.
type ErrKilled struct{ By error }

func (e ErrKilled) Error() string { return fmt.Sprintf("gen: generator killed: %v", e.By) }

func (e ErrKilled) Unwrap() error { return e.By }

// coroResult is what a generator's goroutine reports when it finishes:
// either its return value, or a panic value to re-raise on the driving
// side, preserving the ordinary Go semantics of a panicking Perform call
// site.
type coroResult[A any] struct {
	value    A
	panicVal any
	hasPanic bool
}

// coroutine is the goroutine-pair state for one Do call: yieldCh carries a
// pending operation from the generator to the driver, resumeCh carries the
// handler's answer back, and doneCh carries the final outcome. All three
// are unbuffered: a send only completes once its counterpart has arrived,
// which is what keeps the generator and the driver from ever running
// concurrently.
type coroutine[A any] struct {
	yieldCh  chan doeffvm.Operation
	resumeCh chan doeffvm.Erased
	doneCh   chan coroResult[A]
	killCh   chan struct{}
}

// sentinel is finalized when the driver side of a coroutine becomes
// unreachable without having driven it to completion — the same
// finalizer-on-a-throwaway-value trick coro.go uses, tied here to the
// returned Program's own continuation closures rather than to a Resume
// function, since Do has no separate handle to finalize.
type sentinel struct {
	kill chan struct{}
}

func newCoroutine[A any](f Func[A]) *coroutine[A] {
	co := &coroutine[A]{
		yieldCh:  make(chan doeffvm.Operation),
		resumeCh: make(chan doeffvm.Erased),
		doneCh:   make(chan coroResult[A], 1),
		killCh:   make(chan struct{}),
	}
	s := &sentinel{kill: co.killCh}
	runtime.SetFinalizer(s, func(s *sentinel) { close(s.kill) })

	go co.run(f, s)
	return co
}

func (co *coroutine[A]) run(f Func[A], keepAlive *sentinel) {
	defer runtime.KeepAlive(keepAlive)
	defer func() {
		if r := recover(); r != nil {
			co.doneCh <- coroResult[A]{panicVal: r, hasPanic: true}
		}
	}()

	yield := func(op doeffvm.Operation) doeffvm.Erased {
		select {
		case co.yieldCh <- op:
		case <-co.killCh:
			panic(ErrKilled{By: ErrLeak})
		}
		select {
		case v := <-co.resumeCh:
			return v
		case <-co.killCh:
			panic(ErrKilled{By: ErrLeak})
		}
	}

	v := f(yield)
	co.doneCh <- coroResult[A]{value: v}
}

// next blocks until the generator either yields its next operation or
// finishes.
func (co *coroutine[A]) next() (op doeffvm.Operation, done bool, r coroResult[A]) {
	select {
	case op := <-co.yieldCh:
		return op, false, coroResult[A]{}
	case r := <-co.doneCh:
		return nil, true, r
	}
}

func (co *coroutine[A]) resume(v doeffvm.Erased) { co.resumeCh <- v }

// Do builds a [doeffvm.Program] that runs f, performing each effect f
// yields against whatever handler stack the Program eventually evaluates
// under. Composing Do's result with the rest of the library — Bind, Map,
// WithHandler, Spawn — works exactly like composing any other Program,
// since Do produces one.
func Do[A any](f Func[A]) doeffvm.Program[A] {
	co := newCoroutine(f)
	return drive(co)
}

func drive[A any](co *coroutine[A]) doeffvm.Program[A] {
	op, done, r := co.next()
	if done {
		if r.hasPanic {
			panic(r.panicVal)
		}
		return doeffvm.Pure(r.value)
	}
	return doeffvm.Bind(doeffvm.PerformErased(op), func(v doeffvm.Erased) doeffvm.Program[A] {
		co.resume(v)
		return drive(co)
	})
}
