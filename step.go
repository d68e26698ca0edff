// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Stepping boundary for external runtimes: Step provides shallow,
// one-effect-at-a-time evaluation of a Program, unlike [Handle] which runs
// a handler stack to completion. This is the primitive a hand-rolled host
// loop drives directly, answering each yielded [Operation] itself instead
// of installing a [Handler] — the package gen coroutine bridge instead
// drives a Program through ordinary Bind/PerformErased composition, since
// its yield/resume rendezvous already runs on its own goroutine pair.

// stepResult bundles Suspension.Resume's two return values into the single
// R [Affine] resumes with.
type stepResult[A any] struct {
	value A
	next  *Suspension[A]
}

// Suspension represents a Program suspended on an effect operation. It
// holds the pending operation and a one-shot resumption handle built on
// [Affine]: Resume may be called at most once, matching the affine
// discipline [Continuation] enforces for handler-dispatched effects (§4.3).
type Suspension[A any] struct {
	affine *Affine[stepResult[A], Resumed]
	op     Operation
}

// Op returns the effect operation that caused the suspension.
func (s *Suspension[A]) Op() Operation { return s.op }

// Resume advances the computation with v as the operation's result.
// Returns either a completed value (with a nil suspension) or the next
// suspension. Panics if the suspension has already been resumed or
// discarded.
func (s *Suspension[A]) Resume(v Resumed) (A, *Suspension[A]) {
	r := s.affine.Resume(v)
	return r.value, r.next
}

// TryResume attempts to advance the computation, reporting false instead of
// panicking if it was already used.
func (s *Suspension[A]) TryResume(v Resumed) (A, *Suspension[A], bool) {
	r, ok := s.affine.TryResume(v)
	if !ok {
		var zero A
		return zero, nil, false
	}
	return r.value, r.next, true
}

// Discard marks the suspension as consumed without resuming it.
func (s *Suspension[A]) Discard() { s.affine.Discard() }

// newSuspension builds a Suspension whose one-shot Resume re-enters
// stepFrame against rest.
func newSuspension[A any](op Operation, rest Frame) *Suspension[A] {
	s := &Suspension[A]{op: op}
	s.affine = Once(func(v Resumed) stepResult[A] {
		value, next := stepFrame[A](Program[Erased]{Value: v, Frame: rest})
		return stepResult[A]{value: value, next: next}
	})
	return s
}

// Step drives a Program until it either completes or suspends on an effect
// operation the caller must answer itself.
//
// Example:
//
//	result, susp := Step(program)
//	for susp != nil {
//	    v := handleOp(susp.Op())
//	    result, susp = susp.Resume(v)
//	}
func Step[A any](m Program[A]) (A, *Suspension[A]) {
	return stepFrame[A](erase(m))
}

// stepFrame walks a frame chain exactly like evalProgram, except an
// EffectFrame yields a *Suspension instead of being dispatched against a
// handler stack. WithHandlerFrame/ResumeFrame/SafeFrame require a handler
// stack to cross and are a programming error at this layer — use [Handle]
// for Programs that install handlers.
func stepFrame[A any](p Program[Erased]) (A, *Suspension[A]) {
	current := p.Value
	frame := p.Frame
	for {
		if _, ok := frame.(ReturnFrame); ok {
			return current.(A), nil
		}
		var head, tail Frame
		if cf, ok := frame.(*chainedFrame); ok {
			head, tail = cf.first, cf.rest
		} else {
			head, tail = frame, Frame(ReturnFrame{})
		}
		switch f := head.(type) {
		case ReturnFrame:
			frame = tail
		case *BindFrame:
			next := f.F(current)
			current = next.Value
			frame = chainFrames(chainFrames(next.Frame, f.Next), tail)
		case *MapFrame:
			current = f.F(current)
			frame = chainFrames(f.Next, tail)
		case *ThenFrame:
			current = f.Second.Value
			frame = chainFrames(chainFrames(f.Second.Frame, f.Next), tail)
		case *EffectFrame:
			rest := chainFrames(f.Next, tail)
			var zero A
			return zero, newSuspension[A](f.Operation, rest)
		default:
			panic("doeffvm: Step cannot cross a WithHandler/Resume/Safe frame; use Handle instead")
		}
	}
}
