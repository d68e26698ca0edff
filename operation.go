// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Operation is the interface for effect operations raised by [Perform].
// All values passed to a [Handler]'s Handle method implement this interface.
type Operation any

// Resumed is the interface for values flowing through effect suspension and
// resumption. A [Continuation]'s Resume and a [Handler]'s own Perform calls
// all produce Resumed.
type Resumed any

// Op is the F-bounded interface for effect operations. Each effect defines
// concrete types implementing Op with the appropriate result type
// parameter; the self-referencing constraint gives the compiler knowledge
// of both the concrete operation type and its result type at Perform call
// sites.
//
// Example:
//
//	type Ask[E any] struct{ doeffvm.Phantom[E] }
type Op[O Op[O, A], A any] interface {
	OpResult() A
}

// Phantom is an embeddable zero-size type providing the [Op] result marker.
// Embed Phantom[A] in an operation struct to satisfy [Op] without writing a
// manual OpResult method.
type Phantom[A any] struct{}

// OpResult implements the phantom type marker for [Op].
func (Phantom[A]) OpResult() A { panic("phantom") }

// identityResume passes an effect's resume value through unchanged; used by
// every EffectFrame built from Perform, since the frame's own A-typed
// result IS the handler's response value once re-erased.
func identityResume(v Erased) Erased { return v }

// Perform triggers an effect operation and suspends the Program until a
// handler on the active stack accepts it (see [Handler] and dispatch.go).
func Perform[O Op[O, A], A any](op O) Program[A] {
	return programSuspend[A](&EffectFrame{
		Operation: op,
		Resume:    identityResume,
		Next:      ReturnFrame{},
		Site:      captureSite(0),
	})
}

// performErased is Perform without static result-type information, used by
// [Delegate] and [Pass] to forward an operation that was already received
// as an erased [Operation] value.
func performErased(op Operation) Program[Erased] {
	return programSuspend[Erased](&EffectFrame{
		Operation: op,
		Resume:    identityResume,
		Next:      ReturnFrame{},
		Site:      captureSite(0),
	})
}

// PerformErased is the exported counterpart of performErased, for code
// outside this package that only has an [Operation] value in hand rather
// than a statically-typed [Op] — package gen's generator bridge is built
// this way, since a generator's yield point doesn't know its operation's
// result type at compile time.
func PerformErased(op Operation) Program[Erased] {
	return performErased(op)
}
