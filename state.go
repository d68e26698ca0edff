// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

// State effect operations.
// State[S] provides mutable state threading through a Program.

// Get is the effect operation for reading state.
// Perform(Get[S]{}) returns the current state of type S.
type Get[S any] struct{}

func (Get[S]) OpResult() S { panic("phantom") }

// Put is the effect operation for writing state.
// Perform(Put[S]{Value: s}) replaces the current state.
type Put[S any] struct{ Value S }

func (Put[S]) OpResult() struct{} { panic("phantom") }

// Modify is the effect operation for updating state from its current value.
// Perform(Modify[S]{F: f}) applies f to the state and returns the new value.
type Modify[S any] struct{ F func(S) S }

func (Modify[S]) OpResult() S { panic("phantom") }

// StateHandler interprets Get/Put/Modify[S] against a mutable cell it owns.
// Unlike the teacher's stateHandler[S, R], it is not parameterized by the
// enclosing computation's result type R — a [Handler] is type-erased, so
// the same *StateHandler[S] value serves any Program[A] it is installed
// under via [WithHandler] or [Handle].
type StateHandler[S any] struct {
	State S
}

// NewStateHandler creates a State handler seeded with the given value.
func NewStateHandler[S any](initial S) *StateHandler[S] {
	return &StateHandler[S]{State: initial}
}

// cloneForSpawnHandler and mergeFromHandler implement
// [spawnSnapshotter]/[spawnMerger] (scheduler.go). State has no key-wise
// diffing the way Store does: the whole value is copied at spawn, and at
// join the parent simply takes the child's final value, last-writer-wins,
// since there is no notion of "the parts of S the parent touched".
func (h *StateHandler[S]) cloneForSpawnHandler() Handler {
	return NewStateHandler(h.State)
}

func (h *StateHandler[S]) mergeFromHandler(child Handler) {
	c, ok := child.(*StateHandler[S])
	if !ok {
		return
	}
	h.State = c.State
}

// Handle implements [Handler].
func (h *StateHandler[S]) Handle(op Operation, k *Continuation[Erased], _ *HandlerContext) (Program[Erased], bool) {
	switch o := op.(type) {
	case Get[S]:
		return Resume(k, Erased(h.State)), true
	case Put[S]:
		h.State = o.Value
		return Resume(k, Erased(struct{}{})), true
	case Modify[S]:
		h.State = o.F(h.State)
		return Resume(k, Erased(h.State)), true
	default:
		return nil, false
	}
}

// GetState fuses Get with Bind: performs Get, then passes the state to f.
func GetState[S, B any](f func(S) Program[B]) Program[B] {
	return Bind(Perform(Get[S]{}), f)
}

// PutState fuses Put with Then: performs Put, then runs next.
func PutState[S, B any](s S, next Program[B]) Program[B] {
	return Then[struct{}, B](Perform(Put[S]{Value: s}), next)
}

// ModifyState fuses Modify with Bind: performs Modify, then passes the new
// state to then.
func ModifyState[S, B any](f func(S) S, then func(S) Program[B]) Program[B] {
	return Bind(Perform(Modify[S]{F: f}), then)
}

// RunState runs a stateful Program and returns both the result and the
// final state.
func RunState[S, A any](initial S, m Program[A]) (A, S) {
	h := NewStateHandler(initial)
	result := Handle(m, h)
	return result, h.State
}

// EvalState runs a stateful Program and returns only the result.
func EvalState[S, A any](initial S, m Program[A]) A {
	result, _ := RunState(initial, m)
	return result
}

// ExecState runs a stateful Program and returns only the final state.
func ExecState[S, A any](initial S, m Program[A]) S {
	_, state := RunState(initial, m)
	return state
}
