// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Cont represents a continuation-passing computation.
// Cont[R, A] computes a value of type A, with final result type R.
//
// The function receives a continuation k of type func(A) R, which represents
// "the rest of the computation". Applying k to a value of type A produces
// the final result of type R.
//
// Cont is the low-level encoding underneath [Program]; most callers build
// programs with the Program-level combinators (Pure, Bind, Map, Perform)
// instead of working with Cont directly. Cont remains the vocabulary of
// [Shift]/[Reset] and of the [Reify]/[Reflect] bridge; the continuation
// engine (continuation.go) does not use it.
type Cont[R, A any] func(k func(A) R) R

// ContReturn lifts a pure value into the continuation monad.
// The resulting computation immediately passes the value to its continuation.
func ContReturn[R, A any](a A) Cont[R, A] {
	return func(k func(A) R) R {
		return k(a)
	}
}

// Eff is an effectful Cont computation that produces a value of type A,
// with Resumed as its answer type. This is the continuation shape the
// dispatch engine manipulates.
type Eff[A any] = Cont[Resumed, A]

// liftEff lifts a value into an Eff with no effects.
func liftEff[A any](a A) Eff[A] {
	return ContReturn[Resumed](a)
}

// ContSuspend creates a continuation from a CPS function. This is the
// primitive constructor for continuations that need direct access to the
// continuation.
func ContSuspend[R, A any](f func(func(A) R) R) Cont[R, A] {
	return Cont[R, A](f)
}

// contSuspension is the Cont-world counterpart of an EffectFrame: a
// suspended effect operation carried as a Resumed value, the shape the
// [Reify]/[Reflect] bridge converts to and from Program's EffectFrame.
type contSuspension struct {
	op Operation
	k  func(Resumed) Resumed
}

// PerformCont triggers an effect operation from closure-based [Eff] code.
// It exists only to give hand-written Cont computations a way to perform
// effects that [Reify] can later convert into a [Program]; ordinary code
// should build programs with [Perform] directly.
func PerformCont[O Op[O, A], A any](op O) Eff[A] {
	return func(k func(A) Resumed) Resumed {
		return contSuspension{op: op, k: func(v Resumed) Resumed { return k(v.(A)) }}
	}
}
