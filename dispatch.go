// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import "fmt"

// handlerName renders a Handler's dynamic type for diagnostics — the Go
// counterpart of the source's handler.__class__.__name__ in its contract-
// violation messages.
func handlerName(h Handler) string {
	return fmt.Sprintf("%T", h)
}

// evalProgram is the iterative evaluator for Program frame chains. It is
// the generalization of the teacher's evalFrames: instead of dispatching to
// one F-bounded Handler known at compile time, EffectFrame dispatch walks a
// runtime stack of heterogeneous [Handler] values. evalProgram never
// recurses for Bind/Map/Then sequencing, so long chains do not grow the Go
// call stack; it recurses once per active handler-nesting level, either
// entering a WithHandlerFrame's body or a found handler's own response
// Program (see dispatchOp).
func evalProgram(p Program[Erased], stack []*handlerEntry) Resumed {
	current := p.Value
	frame := p.Frame
	for {
		if _, ok := frame.(ReturnFrame); ok {
			return current
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
			return dispatchOp(stack, len(stack)-1, f.Operation, rest, f.Site)

		case *WithHandlerFrame:
			inner := make([]*handlerEntry, len(stack)+1)
			copy(inner, stack)
			inner[len(stack)] = &handlerEntry{handler: f.Handler, site: f.Site.String()}
			result := evalProgram(f.Body, inner)
			current = result
			frame = chainFrames(f.Next, tail)

		case *ResumeFrame:
			return f.Run()

		case *SafeFrame:
			current = f.Wrap(runSafe(f.Body, stack))
			frame = chainFrames(f.Next, tail)

		default:
			panic("doeffvm: unknown frame type in program evaluation")
		}
	}
}

// dispatchOp searches stack[from], stack[from-1], ... for a handler that
// accepts op, captures a Continuation resuming with rest against the full
// stack in scope at the call site, and evaluates the accepting handler's
// response Program against stack[:i] — excluding that handler and
// everything above it, so a handler's own effects (including those raised
// via [Delegate] or [Pass]) can never reach back into the handler itself.
func dispatchOp(stack []*handlerEntry, from int, op Operation, rest Frame, site siteInfo) Resumed {
	k := newContinuation[Erased](rest, stack)
	for i := from; i >= 0; i-- {
		ctx := &HandlerContext{From: i, Op: op, Stack: stack}
		resp, ok := stack[i].handler.Handle(op, k, ctx)
		if ok {
			if resp.Frame == nil {
				panic(&HandlerContractError{
					Handler: handlerName(stack[i].handler),
					Reason:  "Handle reported handled=true but returned no Program; must return Resume(k, ...), Delegate(k, ...), Pass(k, ctx), or an explicit Pure abandoning k",
				})
			}
			return evalProgram(resp, stack[:i])
		}
	}
	panic(&MissingHandlerError{Op: op, Site: site})
}

// Handle evaluates m to completion against the given handlers, consulted
// innermost-first: handlers[len(handlers)-1] is tried before
// handlers[len(handlers)-2], and so on. This is the Program counterpart of
// the teacher's HandleExpr, generalized from one F-bounded Handler to a
// runtime-composable stack.
func Handle[A any](m Program[A], handlers ...Handler) A {
	stack := make([]*handlerEntry, len(handlers))
	for i, h := range handlers {
		stack[i] = &handlerEntry{handler: h}
	}
	result := evalProgram(erase(m), stack)
	return result.(A)
}
