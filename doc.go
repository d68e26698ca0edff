// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package doeffvm is an algebraic-effects interpreter: a small virtual
// machine that runs programs — lazy sequences of effects and pure values —
// under a stack of handlers that interpret those effects.
//
// # Core type
//
// [Program] represents a computation that produces a value of type A. It is
// built from a chain of [Frame]s: [ReturnFrame] for a finished value,
// [EffectFrame] for a suspended effect operation awaiting a handler, and a
// handful of control frames ([WithHandlerFrame], [ResumeFrame], [SafeFrame])
// that realize the handler-dispatch protocol below. Programs evaluate
// iteratively, so deep sequencing and long running loops do not grow the Go
// call stack.
//
// # Handler dispatch
//
// evalProgram walks Program against an ordered stack of [Handler] values
// (dispatch.go). [Perform] suspends at the innermost handler that accepts
// the yielded [Operation]; a handler body may [Resume] the captured
// [Continuation], [Delegate] or [Pass] the effect to the next outer
// handler, or perform further effects of its own — dispatched starting at
// the next handler outward from its own stack position, never at the
// innermost frame, so a handler never intercepts its own effects. See dispatch.go for the
// algorithm and handler.go for the constructors.
//
// # Concurrency
//
// The scheduler (scheduler.go, promise.go, semaphore.go, spawn.go) is
// single-threaded and cooperative: Wait (and Gather/Parallel, built on it),
// Race, semaphore acquisition and [Await] are the only suspension points;
// Spawn enqueues the child and returns at once. Concurrency across OS threads
// enters only through [ExternalPromise] (future.go), completed from
// arbitrary goroutines.
//
// # Built-in effects
//
// state.go, reader.go and writer.go provide State/Reader/Writer; result.go
// provides Safe/Recover/Fail; cache.go and future.go provide the Cache and
// Future effect families. [Run] builds the standard stack itself (extended
// via [WithHandlers]); [DefaultHandlers] returns the same stack as a slice
// for callers driving [Handle] directly.
//
// # Continuation-passing core
//
// Underneath Program sits [Cont], a closure-based continuation-passing
// value used by [Shift]/[Reset] and by the [Reify] /
// [Reflect] bridge between closure-based and data-based representations
// (terms from Filinski 1994). Most callers never touch Cont directly.
package doeffvm
