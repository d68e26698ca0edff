// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Erased represents a type-erased value in the defunctionalized frame chain.
// Frame types carry Erased payloads so a homogeneous evaluation pipeline can
// walk heterogeneous Program[A] chains; concrete types are recovered via
// type assertions at frame boundaries.
type Erased = any

// Frame is the interface for defunctionalized continuation frames.
// Implementations carry the data needed to continue computation.
// Dispatch uses type switches, not tags — Frame is a pure marker interface.
type Frame interface {
	frame()
}

// ReturnFrame signals computation completion: the evaluator returns the
// current value as the final result.
type ReturnFrame struct{}

func (ReturnFrame) frame() {}

// BindFrame represents monadic bind: Bind(m, f).
type BindFrame struct {
	F    func(Erased) Program[Erased]
	Next Frame
}

func (*BindFrame) frame() {}

// MapFrame represents functor mapping: Map(m, f).
type MapFrame struct {
	F    func(Erased) Erased
	Next Frame
}

func (*MapFrame) frame() {}

// ThenFrame represents sequencing with discard: Then(m, n).
type ThenFrame struct {
	Second Program[Erased]
	Next   Frame
}

func (*ThenFrame) frame() {}

// EffectFrame represents a suspended effect operation awaiting a handler.
type EffectFrame struct {
	Operation Operation
	// Resume converts the handler's response value into the next
	// evaluation value. Most effects use identityResume.
	Resume func(Erased) Erased
	Next   Frame
	// Site is this effect's Perform call site, captured when
	// [EnableEffectSiteCapture] is on (§4.8 effect-creation stack).
	Site siteInfo
}

func (*EffectFrame) frame() {}

// WithHandlerFrame installs a handler for the evaluation of Body, popping it
// again once Body completes or short-circuits. Built by [WithHandler].
type WithHandlerFrame struct {
	Handler Handler
	Body    Program[Erased]
	Next    Frame
	// Site is this handler's install call site (§4.8 handler chain).
	Site siteInfo
}

func (*WithHandlerFrame) frame() {}

// ResumeFrame resumes a captured [Continuation], splicing its frame chain
// and handler-stack snapshot back into evaluation. Built by [Resume].
type ResumeFrame struct {
	Run func() Resumed
}

func (*ResumeFrame) frame() {}

// SafeFrame runs Body against the active handler stack, catching the
// recoverable subset of the runtime's own panics (§7 error taxonomy) into
// an [Either] instead of letting them propagate further. Built by [Safe].
type SafeFrame struct {
	Body Program[Erased]
	// Wrap converts the Either[error, Erased] produced by running Body
	// into the Either[error, A] the call site's Safe[A] actually asked
	// for, since SafeFrame itself only deals in erased values.
	Wrap func(Either[error, Erased]) Erased
	Next Frame
}

func (*SafeFrame) frame() {}

// Program is a defunctionalized, stack-safe continuation value: a chain of
// [Frame]s describing the rest of a computation, plus the value reached so
// far when the chain has nothing left to unwind (Frame == ReturnFrame{}).
//
// Unlike the closure-based [Cont], Program carries explicit frame data, so
// long chains of Bind/Then evaluate iteratively (see evalProgram in
// dispatch.go) without growing the Go call stack.
type Program[A any] struct {
	Value A
	Frame Frame
}

// Pure creates a completed Program holding the given value.
func Pure[A any](a A) Program[A] {
	return Program[A]{Value: a, Frame: ReturnFrame{}}
}

// programSuspend creates a Program suspended at the given frame.
func programSuspend[A any](frame Frame) Program[A] {
	var zero A
	return Program[A]{Value: zero, Frame: frame}
}

// erase converts a typed Program into its Erased-value form for frame
// construction, preserving the frame chain.
func erase[A any](m Program[A]) Program[Erased] {
	return Program[Erased]{Value: Erased(m.Value), Frame: m.Frame}
}

// Bind sequences two programs, feeding the first's result into f.
func Bind[A, B any](m Program[A], f func(A) Program[B]) Program[B] {
	if _, ok := m.Frame.(ReturnFrame); ok {
		return f(m.Value)
	}
	bf := &BindFrame{
		F: func(a Erased) Program[Erased] {
			return erase(f(a.(A)))
		},
		Next: ReturnFrame{},
	}
	return programSuspend[B](chainFrames(m.Frame, bf))
}

// Map applies a pure function to a Program's result.
func Map[A, B any](m Program[A], f func(A) B) Program[B] {
	if _, ok := m.Frame.(ReturnFrame); ok {
		return Pure(f(m.Value))
	}
	mf := &MapFrame{
		F:    func(a Erased) Erased { return f(a.(A)) },
		Next: ReturnFrame{},
	}
	return programSuspend[B](chainFrames(m.Frame, mf))
}

// Then sequences two programs, discarding the first result.
func Then[A, B any](m Program[A], n Program[B]) Program[B] {
	if _, ok := m.Frame.(ReturnFrame); ok {
		return n
	}
	tf := &ThenFrame{Second: erase(n), Next: ReturnFrame{}}
	return programSuspend[B](chainFrames(m.Frame, tf))
}

// chainFrames links two frame chains together. Returns the other operand
// when either side is ReturnFrame (the identity element for composition),
// so construction is O(1): either an existing operand or one new node.
func chainFrames(first, second Frame) Frame {
	if _, ok := first.(ReturnFrame); ok {
		return second
	}
	if _, ok := second.(ReturnFrame); ok {
		return first
	}
	return &chainedFrame{first: first, rest: second}
}

// chainedFrame represents a frame followed by more frames, composing frame
// chains without mutating either side.
type chainedFrame struct {
	first Frame
	rest  Frame
}

func (*chainedFrame) frame() {}
