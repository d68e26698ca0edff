// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Monad operations for the low-level Cont continuation.
//
// Minimal definition: ContReturn (unit) and ContBind are necessary and
// sufficient. ContMap and ContThen are derived operations kept as
// optimizations to avoid intermediate closure allocations. The Program-level
// equivalents (Bind, Map, Then in program.go) are what most callers use.

// ContBind sequences two continuations (monadic bind).
// It runs m, then passes the result to f to get a new continuation.
func ContBind[R, A, B any](m Cont[R, A], f func(A) Cont[R, B]) Cont[R, B] {
	return func(k func(B) R) R {
		return m(func(a A) R {
			return f(a)(k)
		})
	}
}

// ContMap applies a pure function to the result of a continuation.
func ContMap[R, A, B any](m Cont[R, A], f func(A) B) Cont[R, B] {
	return func(k func(B) R) R {
		return m(func(a A) R {
			return k(f(a))
		})
	}
}

// ContThen sequences two continuations, discarding the first result.
func ContThen[R, A, B any](m Cont[R, A], n Cont[R, B]) Cont[R, B] {
	return func(k func(B) R) R {
		return m(func(_ A) R {
			return n(k)
		})
	}
}
