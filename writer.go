// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// Writer effect operations.
// Writer[W] provides accumulating output (logging, tracing) alongside a
// Program's ordinary result.

// Tell is the effect operation for appending output.
// Perform(Tell[W]{Value: w}) appends w to the accumulated output.
type Tell[W any] struct{ Value W }

func (Tell[W]) OpResult() struct{} { panic("phantom") }

// Listen is the effect operation for observing output.
// Perform(Listen[W, A]{Body: m}) runs m and returns its result paired with
// whatever it wrote during its own evaluation.
type Listen[W, A any] struct{ Body Program[A] }

func (Listen[W, A]) OpResult() Pair[A, []W] { panic("phantom") }

// Censor is the effect operation for rewriting output.
// Perform(Censor[W, A]{F: f, Body: m}) runs m and replaces whatever it
// wrote with f applied to that output.
type Censor[W, A any] struct {
	F    func([]W) []W
	Body Program[A]
}

func (Censor[W, A]) OpResult() A { panic("phantom") }

// Pair holds two values, used as the result shape for [Listen].
type Pair[A, B any] struct {
	Fst A
	Snd B
}

// writerOp is satisfied by every Writer operation regardless of its body's
// result type A, sidestepping the type-switch limitation that a plain
// switch on Listen[W, Resumed] would not match Listen[W, int]: Go generic
// methods are matched by receiver type parameters actually used in the
// interface signature, and W is the only one writerOp mentions.
type writerOp[W any] interface {
	dispatchWriter(h *WriterHandler[W], ctx *HandlerContext) Resumed
}

func (o Tell[W]) dispatchWriter(h *WriterHandler[W], _ *HandlerContext) Resumed {
	h.Output = append(h.Output, o.Value)
	return struct{}{}
}

// dispatchWriter for Listen/Censor evaluates Body against ctx.Stack — the
// full ambient stack dispatchOp handed this Handle call, which still
// includes this WriterHandler at ctx.From — instead of an isolated
// one-handler stack, so Body can perform any other ambient effect and still
// find its handler.
func (o Listen[W, A]) dispatchWriter(h *WriterHandler[W], ctx *HandlerContext) Resumed {
	start := len(h.Output)
	result := evalProgram(erase(o.Body), ctx.Stack).(A)
	written := append([]W(nil), h.Output[start:]...)
	return Pair[A, []W]{Fst: result, Snd: written}
}

func (o Censor[W, A]) dispatchWriter(h *WriterHandler[W], ctx *HandlerContext) Resumed {
	start := len(h.Output)
	result := evalProgram(erase(o.Body), ctx.Stack).(A)
	newOutput := o.F(h.Output[start:])
	h.Output = append(h.Output[:start], newOutput...)
	return result
}

// WriterHandler interprets Tell/Listen/Censor[W] against an accumulated
// output slice it owns.
type WriterHandler[W any] struct {
	Output []W
}

// NewWriterHandler creates an empty Writer handler.
func NewWriterHandler[W any]() *WriterHandler[W] {
	return &WriterHandler[W]{}
}

// cloneForSpawnHandler and mergeFromHandler implement
// [spawnSnapshotter]/[spawnMerger] (scheduler.go): a spawned task gets its
// own empty output slice, and its entries are appended to the parent's
// log only once something joins it, in program order rather than
// completion order (§5 Shared-resource policy).
func (h *WriterHandler[W]) cloneForSpawnHandler() Handler {
	return NewWriterHandler[W]()
}

func (h *WriterHandler[W]) mergeFromHandler(child Handler) {
	c, ok := child.(*WriterHandler[W])
	if !ok {
		return
	}
	h.Output = append(h.Output, c.Output...)
}

// Handle implements [Handler].
func (h *WriterHandler[W]) Handle(op Operation, k *Continuation[Erased], ctx *HandlerContext) (Program[Erased], bool) {
	if wop, ok := op.(writerOp[W]); ok {
		return Resume(k, wop.dispatchWriter(h, ctx)), true
	}
	return nil, false
}

// TellWriter fuses Tell with Then: performs Tell, then runs next.
func TellWriter[W, B any](w W, next Program[B]) Program[B] {
	return Then[struct{}, B](Perform(Tell[W]{Value: w}), next)
}

// ListenWriter runs body and returns its result alongside its own output.
func ListenWriter[W, A any](body Program[A]) Program[Pair[A, []W]] {
	return Perform(Listen[W, A]{Body: body})
}

// CensorWriter runs body and rewrites its output with f.
func CensorWriter[W, A any](f func([]W) []W, body Program[A]) Program[A] {
	return Perform(Censor[W, A]{F: f, Body: body})
}

// RunWriter runs a writer Program and returns both the result and the
// accumulated output.
func RunWriter[W, A any](m Program[A]) (A, []W) {
	h := NewWriterHandler[W]()
	result := Handle(m, h)
	return result, h.Output
}

// ExecWriter runs a writer Program and returns only the accumulated output.
func ExecWriter[W, A any](m Program[A]) []W {
	_, output := RunWriter[W, A](m)
	return output
}
