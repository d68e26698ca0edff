// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import "sync/atomic"

// Affine wraps a plain Go continuation with one-shot enforcement. The
// continuation can be resumed at most once; subsequent attempts panic
// (Resume) or report failure (TryResume).
//
// [Continuation] builds the same guarantee into the handler-dispatch
// protocol; Affine is the lower-level primitive for hand-written CPS code
// that never goes through Perform/dispatchOp at all, such as [Step]'s
// [Suspension].
type Affine[R, A any] struct {
	used   atomic.Uintptr
	resume func(A) R
}

// Once creates an affine continuation from a regular continuation function.
func Once[R, A any](k func(A) R) *Affine[R, A] {
	return &Affine[R, A]{resume: k}
}

// Resume invokes the continuation with the given value. Panics if the
// continuation has already been used.
func (a *Affine[R, A]) Resume(v A) R {
	if a.used.Add(1) != 1 {
		panic("doeffvm: affine continuation resumed twice")
	}
	return a.resume(v)
}

// TryResume attempts to invoke the continuation, reporting false instead of
// panicking if it was already used.
func (a *Affine[R, A]) TryResume(v A) (R, bool) {
	if a.used.Add(1) != 1 {
		var zero R
		return zero, false
	}
	return a.resume(v), true
}

// Discard marks the continuation as used without invoking it.
func (a *Affine[R, A]) Discard() {
	a.used.Store(1)
}
