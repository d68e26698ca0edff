// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Resource-safety combinators built on top of the typed [Fail]/[RunError]
// error channel (result.go): acquire → use → release, with release run
// whether use succeeds or fails with the typed error E. A Go panic
// escaping use (an untyped runtime failure such as [MissingHandlerError])
// propagates without running release.

// Bracket acquires a resource, runs use against it, and always runs
// release afterward — even if use raised an error of type E. The returned
// Program resolves to the typed Either result of running use, caught via
// [TryRecover] rather than an isolated [RunError] call, so use may still
// perform any other ambient effect (State, Writer, Spawn, ...) and find its
// handler; release itself is not expected to fail and is sequenced with
// [Then].
func Bracket[E, R, A any](
	acquire Program[R],
	release func(R) Program[struct{}],
	use func(R) Program[A],
) Program[Either[E, A]] {
	return Bind(acquire, func(resource R) Program[Either[E, A]] {
		caught := TryRecover[E, Either[E, A]](
			Map(use(resource), func(v A) Either[E, A] { return Right[E, A](v) }),
			func(e E) Program[Either[E, A]] { return Pure(Left[E, A](e)) },
		)
		return Bind(caught, func(result Either[E, A]) Program[Either[E, A]] {
			return Then(release(resource), Pure(result))
		})
	})
}

// OnError runs cleanup only when body raises an error of type E, then
// re-raises the same error after cleanup completes.
func OnError[E, A any](body Program[A], cleanup func(E) Program[struct{}]) Program[A] {
	return TryRecover(body, func(e E) Program[A] {
		return Bind(cleanup(e), func(struct{}) Program[A] {
			return Fail[E, A](e)
		})
	})
}
