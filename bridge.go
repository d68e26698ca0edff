// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Reify converts a closure-based effectful computation ([Eff]) into a
// defunctionalized [Program]. The conversion is lazy: each effect step is
// converted on demand as the Program is evaluated by a [Handler] stack.
//
// The name follows Filinski (1994): reify converts a semantic value (a
// functional continuation) into its syntactic representation (data).
//
// Example:
//
//	eff := PerformCont[Ask[int], int](Ask[int]{Key: "n"})
//	prog := Reify(eff)
//	result := Handle(prog, NewReaderHandler(env))
func Reify[A any](m Eff[A]) Program[A] {
	r := m(func(a A) Resumed { return a })
	return reifyResumed[A](r)
}

// reifyResumed converts a Resumed value — either a final A or a
// [contSuspension] recording a pending [PerformCont] — into a Program.
// Suspensions become an EffectFrame whose continuation re-enters
// reifyResumed on whatever the captured Cont-world continuation produces
// next, so arbitrarily long effect chains convert one step at a time.
func reifyResumed[A any](r Resumed) Program[A] {
	if susp, ok := r.(contSuspension); ok {
		return programSuspend[A](&EffectFrame{
			Operation: susp.op,
			Resume:    identityResume,
			Next: &BindFrame{
				F: func(v Erased) Program[Erased] {
					return erase(reifyResumed[A](susp.k(v)))
				},
				Next: ReturnFrame{},
			},
		})
	}
	if r == nil {
		var zero A
		return Pure(zero)
	}
	return Pure(r.(A))
}

// Reflect converts a [Program] back into a closure-based [Eff]: the inverse
// of [Reify]. Effects the Program performs are not dispatched by Reflect
// itself — they surface to the Eff's own continuation as [contSuspension]
// markers, exactly as [PerformCont] produces them, so the result can be
// driven by hand-written CPS code or turned back into a Program with
// [Reify].
//
// The name follows Filinski (1994): reflect converts a syntactic
// representation (data) into a semantic value (a functional continuation).
func Reflect[A any](m Program[A]) Eff[A] {
	return func(k func(A) Resumed) Resumed {
		return reflectWalk(erase(m), func(v Erased) Resumed { return k(v.(A)) })
	}
}

// reflectWalk drives a Program frame chain the way evalProgram does, but
// without a handler stack: BindFrame/MapFrame/ThenFrame reduce in place,
// and an EffectFrame becomes a [contSuspension] instead of being
// dispatched, so the caller's own Cont-world code decides how to answer it.
func reflectWalk(p Program[Erased], k func(Erased) Resumed) Resumed {
	current := p.Value
	frame := p.Frame
	for {
		if _, ok := frame.(ReturnFrame); ok {
			return k(current)
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
			return contSuspension{
				op: f.Operation,
				k: func(v Resumed) Resumed {
					return reflectWalk(Program[Erased]{Value: v, Frame: rest}, k)
				},
			}
		default:
			panic("doeffvm: Reflect cannot cross a WithHandler/Resume/Safe frame; dispatch it with Handle first")
		}
	}
}
