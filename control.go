// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Delimited control operators over the low-level Cont encoding.
// Shift/Reset follow Danvy & Filinski's formulation (1990) and work on
// [Cont] values only: the handler-dispatch protocol (dispatch.go) captures
// its one-shot [Continuation] without them. Most callers never call these
// directly.

// Shift captures the current continuation up to the nearest Reset.
// The function f receives the captured continuation k, which can be
// invoked zero or more times: Shift enforces no at-most-once restriction
// ([Affine] and [Continuation] are the one-shot types).
func Shift[R, A any](f func(k func(A) R) R) Cont[R, A] {
	return Cont[R, A](f)
}

// Reset establishes a delimiter for Shift.
// Continuations captured by Shift stop at the nearest enclosing Reset.
func Reset[R, A any](m Cont[A, A]) Cont[R, A] {
	return ContReturn[R, A](ContRun(m))
}
