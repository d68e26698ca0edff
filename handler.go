// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// handlerEntry is one frame of the runtime handler stack a dispatch carries
// through evalProgram. Unlike the teacher's compile-time, single F-bounded
// Handler[H, R] composition, evalProgram pushes and pops heterogeneous
// handlers at runtime, in any order, any number of times (see
// WithHandlerFrame in dispatch.go).
type handlerEntry struct {
	handler Handler
	site    string // optional install-site label, surfaced in traces
}

// HandlerContext accompanies the operation passed to a [Handler]'s Handle
// method. From is the handler's own index in the stack that was active at
// the point [Perform] suspended; Op is the operation currently being
// handled, needed by [Pass] to re-raise it unmodified.
type HandlerContext struct {
	From int
	Op   Operation
	// Stack is the full handler stack active at the dispatch site,
	// exposed read-only so [SchedulerHandler] can snapshot State/Reader
	// handlers into a spawned task's own stack (§5) without every
	// Handler having to thread that information through some other
	// channel.
	Stack []*handlerEntry
}

// Handler interprets effect operations raised by [Perform]. Handle returns
// (_, false) when op does not belong to this handler — dispatch continues
// searching the next handler out — or (resp, true) when it does, where resp
// is a Program describing how the suspended computation proceeds.
//
// Typically resp is [Resume](k, v): resume the captured continuation with a
// value. A handler body may also perform further effects of its own before
// resuming or in place of resuming — those effects dispatch starting one
// position further out than this handler (see dispatch.go), so a handler
// never intercepts an effect it raises itself.
type Handler interface {
	Handle(op Operation, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool)
}

// HandlerFunc adapts a plain function to [Handler].
type HandlerFunc func(op Operation, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool)

// Handle implements [Handler].
func (f HandlerFunc) Handle(op Operation, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool) {
	return f(op, k, ctx)
}

// WithHandler installs h for the evaluation of body, popping it again once
// body completes, short-circuits, or panics.
func WithHandler[A any](h Handler, body Program[A]) Program[A] {
	return programSuspend[A](&WithHandlerFrame{
		Handler: h,
		Body:    erase(body),
		Next:    ReturnFrame{},
		Site:    captureSite(0),
	})
}

// Resume continues the computation suspended at a Perform site with value.
// This is the ordinary response a [Handler] gives to an accepted operation.
func Resume[A any](k *Continuation[A], value A) Program[Erased] {
	return programSuspend[Erased](&ResumeFrame{Run: func() Resumed {
		return k.Resume(value)
	}})
}

// ResumeContinuation is the low-level, side-effecting form of [Resume]:
// it resumes k immediately and returns the fully-reduced result, rather
// than building a Program node for later evaluation. Used internally by the
// dispatch engine and available to callers driving a Continuation outside
// of a handler body (for example a generator bridge or the Step API).
func ResumeContinuation[A any](k *Continuation[A], value A) Resumed {
	return k.Resume(value)
}

// Transfer resumes k with whatever expr evaluates to, letting expr perform
// further effects of its own before producing the resume value. This is
// the low-level counterpart of sequencing Bind(expr, func(v) { return
// Resume(k, v) }) by hand.
func Transfer[A any](k *Continuation[A], expr Program[A]) Program[Erased] {
	return Bind(expr, func(v A) Program[Erased] { return Resume(k, v) })
}

// Delegate forwards op to the next outer handler — the one below ctx's
// handler in the stack — and resumes k with whatever value that handler's
// chain eventually produces. Use Delegate when a handler wants an operation
// (possibly transformed along the way) handled further out while staying
// transparent to the continuation it originally captured.
func Delegate[A any](k *Continuation[A], op Operation) Program[Erased] {
	return Bind(performErased(op), func(v Erased) Program[Erased] {
		return Resume(k, v.(A))
	})
}

// Pass re-raises the operation currently being handled, unmodified, to the
// next outer handler. Because Handle already runs with its own handler
// excluded from the search (see dispatch.go), Pass is just Delegate applied
// to the operation ctx already carries.
func Pass[A any](k *Continuation[A], ctx *HandlerContext) Program[Erased] {
	return Delegate(k, ctx.Op)
}

// Call applies f to a. It is the named Kleisli-arrow application combinator
// used by [ApplyKleisli] and [ApplyTransforms]: a plain function call kept
// as a Program-level name so pipelines read uniformly whether the next
// step is an effect, a pure transform, or another Program-producing call.
func Call[A, B any](f func(A) Program[B], a A) Program[B] {
	return f(a)
}
