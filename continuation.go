// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import "sync/atomic"

// Continuation is the one-shot resumption handle a handler body receives
// when its [Handler] accepts an effect operation (see handler.go). It
// captures the rest of the suspended computation and the handler-stack
// snapshot active at the point [Perform] yielded.
//
// A Continuation can be resumed at most once. Resuming it runs the rest of
// the computation against the full original stack, so a handler that
// resumes its own continuation is back in scope for effects performed
// further down that computation — only the handler body itself dispatches
// against the narrower, self-excluding slice (see dispatch.go).
type Continuation[A any] struct {
	used  atomic.Uint32
	rest  Frame
	stack []*handlerEntry
}

func newContinuation[A any](rest Frame, stack []*handlerEntry) *Continuation[A] {
	return &Continuation[A]{rest: rest, stack: stack}
}

// Resume continues the suspended computation with v. Panics if the
// continuation has already been resumed or discarded.
func (k *Continuation[A]) Resume(v A) Resumed {
	if k.used.Add(1) != 1 {
		panic("doeffvm: continuation resumed twice")
	}
	return evalProgram(Program[Erased]{Value: Erased(v), Frame: k.rest}, k.stack)
}

// TryResume is the non-panicking form of Resume: it reports false instead
// of panicking when the continuation was already used.
func (k *Continuation[A]) TryResume(v A) (Resumed, bool) {
	if k.used.Add(1) != 1 {
		return nil, false
	}
	return evalProgram(Program[Erased]{Value: Erased(v), Frame: k.rest}, k.stack), true
}

// Discard marks the continuation as used without invoking it, abandoning
// the rest of the suspended computation. A handler that returns without
// resuming or discarding its continuation leaks nothing (there is no
// finalizer to run) but the abandoned computation's own Bracket/OnError
// cleanups, if any were already entered, do not fire.
func (k *Continuation[A]) Discard() {
	k.used.Store(1)
}
