// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Collection combinators (§8 Public API surface: `sequence`, `traverse`)
// plus the Kleisli-arrow application and transform-pipeline helpers
// (§4/SUPPLEMENTED FEATURES) carried over from `doeff/run.py`'s
// `ProgramRunResult`/`run_program` pipeline, minus its CLI-level symbol
// discovery — these operate purely on [Program] values.
//
// These run strictly sequentially, one element at a time, the same
// deterministic-by-construction choice [Gather] makes in spawn.go: a
// concurrent variant is [Parallel]/[Spawn] composed by the caller, not a
// hidden behavior of sequence/traverse themselves.

// Sequence runs each Program in ms in order, collecting their results into
// a slice in the same order.
func Sequence[A any](ms []Program[A]) Program[[]A] {
	return sequenceFrom(ms, 0, make([]A, len(ms)))
}

func sequenceFrom[A any](ms []Program[A], i int, acc []A) Program[[]A] {
	if i == len(ms) {
		return Pure(acc)
	}
	return Bind(ms[i], func(v A) Program[[]A] {
		acc[i] = v
		return sequenceFrom(ms, i+1, acc)
	})
}

// Traverse applies f to each element of xs in order, threading each
// resulting Program and collecting the results — Sequence composed with a
// map, but built directly so it need not allocate the intermediate slice
// of programs Sequence(Map(xs, f)) would.
func Traverse[A, B any](xs []A, f func(A) Program[B]) Program[[]B] {
	return traverseFrom(xs, f, 0, make([]B, len(xs)))
}

func traverseFrom[A, B any](xs []A, f func(A) Program[B], i int, acc []B) Program[[]B] {
	if i == len(xs) {
		return Pure(acc)
	}
	return Bind(f(xs[i]), func(v B) Program[[]B] {
		acc[i] = v
		return traverseFrom(xs, f, i+1, acc)
	})
}

// ApplyKleisli threads m through each arrow in turn, binding the previous
// step's result into the next — composing a pipeline of same-typed
// Kleisli arrows (A -> Program[A]) the way `doeff/run.py`'s "kleisli apply"
// step composes a chain of named effect transforms, minus its symbol-table
// resolution.
func ApplyKleisli[A any](m Program[A], arrows ...func(A) Program[A]) Program[A] {
	for _, arrow := range arrows {
		step := arrow
		m = Bind(m, func(v A) Program[A] { return Call(step, v) })
	}
	return m
}

// ApplyTransforms folds a sequence of whole-program transforms over m, in
// order — the Program-level counterpart to ApplyKleisli for arrows that
// need to see (and possibly discard or wrap) the Program itself rather than
// just its eventual value, such as wrapping it in [Safe] or [WithHandler].
func ApplyTransforms[A any](m Program[A], transforms ...func(Program[A]) Program[A]) Program[A] {
	for _, t := range transforms {
		m = Call(t, m)
	}
	return m
}
