// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import (
	"fmt"
	"log/slog"
	"os"
)

// Run/AsyncRun assemble the standard handler stack (§6 Public API) and
// drive a [Program] to completion, reporting a [RunResult] instead of
// letting the runtime's own panics (§7 error taxonomy) escape to the
// caller — the Go counterpart of the source's try/except around the whole
// interpreter loop.

// runConfig accumulates the options a [RunOption] mutates.
type runConfig struct {
	handlers   []Handler
	env        map[string]Erased
	store      map[string]Erased
	printTrace bool
	logger     *slog.Logger
	metrics    *Metrics
}

// RunOption configures [Run]/[AsyncRun].
type RunOption func(*runConfig)

// WithHandlers installs additional domain handlers between the built-in
// Store/Reader/Writer/Result handlers and Future/Scheduler: dispatch tries
// Scheduler and Future first, then these handlers, then the built-ins
// (§6: "the core defines only the handler contract" domain libraries
// implement — this is where an embedder plugs one in).
func WithHandlers(hs ...Handler) RunOption {
	return func(c *runConfig) { c.handlers = append(c.handlers, hs...) }
}

// WithEnv seeds the Reader's base environment.
func WithEnv(env map[string]Erased) RunOption {
	return func(c *runConfig) { c.env = env }
}

// WithStore seeds the Store's initial key/value mapping.
func WithStore(store map[string]Erased) RunOption {
	return func(c *runConfig) { c.store = store }
}

// WithPrintTrace additionally renders a failure's [Trace] to stderr
// (§6: `print_trace=true`).
func WithPrintTrace() RunOption {
	return func(c *runConfig) { c.printTrace = true }
}

// WithLogger sets the *slog.Logger the scheduler reports the unjoined-task
// warning to; a nil logger (the default) uses [slog.Default].
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// WithMetrics attaches Prometheus instrumentation to the scheduler
// (metrics.go).
func WithMetrics(m *Metrics) RunOption {
	return func(c *runConfig) { c.metrics = m }
}

// RunResult is the outcome of [Run]/[AsyncRun] (§6).
type RunResult struct {
	Value Erased
	Err   error
	Store map[string]Erased
	Log   []string
	Trace *Trace
}

// IsOk reports whether the run completed without error.
func (r RunResult) IsOk() bool { return r.Err == nil }

// IsErr reports whether the run ended in failure.
func (r RunResult) IsErr() bool { return r.Err != nil }

// Report renders a deterministic text summary of the run, folding in the
// trace when one was captured (§4.8: "renderable as a deterministic text
// block used by both the CLI and test assertions").
func (r RunResult) Report() string {
	if r.IsOk() {
		return fmt.Sprintf("ok: %v", r.Value)
	}
	if r.Trace != nil {
		return r.Trace.Render()
	}
	return fmt.Sprintf("error: %v", r.Err)
}

// coreStack is the handler set every [Run]/[AsyncRun] call builds: the
// instances are kept so the final Store/Writer contents can be read back
// into [RunResult] once the scheduler drains, something an opaque []Handler
// slice alone could not do.
type coreStack struct {
	store  *StoreHandler
	reader *ReaderHandler
	writer *WriterHandler[string]
	errs   *ErrorHandler[error]
	future *FutureHandler
	sched  *SchedulerHandler
	stack  []*handlerEntry
}

func buildCoreStack(cfg runConfig) *coreStack {
	store := NewStoreHandler(cfg.store)
	reader := NewReaderHandler(cfg.env)
	writer := NewWriterHandler[string]()
	errs := &ErrorHandler[error]{}
	sched := NewScheduler(cfg.logger)
	if cfg.metrics != nil {
		sched.SetMetrics(cfg.metrics)
	}
	future := NewFutureHandler(sched)

	stack := make([]*handlerEntry, 0, 6+len(cfg.handlers))
	stack = append(stack,
		&handlerEntry{handler: errs},
		&handlerEntry{handler: writer},
		&handlerEntry{handler: reader},
		&handlerEntry{handler: store},
	)
	for _, h := range cfg.handlers {
		stack = append(stack, &handlerEntry{handler: h})
	}
	stack = append(stack,
		&handlerEntry{handler: future},
		&handlerEntry{handler: sched},
	)
	return &coreStack{store: store, reader: reader, writer: writer, errs: errs, future: future, sched: sched, stack: stack}
}

// DefaultHandlers assembles the standard handler stack (§6) as a plain
// []Handler, for callers driving [Handle] directly instead of [Run]. Order
// is innermost-last: Result (Fail/Recover), Writer, Reader, Store, Future
// (Await), Scheduler (Spawn/Wait/Gather/Race/semaphores) tried first.
func DefaultHandlers(env, store map[string]Erased) []Handler {
	cs := buildCoreStack(runConfig{env: env, store: store})
	out := make([]Handler, len(cs.stack))
	for i, e := range cs.stack {
		out[i] = e.handler
	}
	return out
}

// Run drives program to completion against the default handler stack
// (optionally extended via [WithHandlers]), catching every recoverable
// runtime panic (§7) into [RunResult] instead of propagating it.
func Run[A any](program Program[A], opts ...RunOption) (result RunResult) {
	var cfg runConfig
	for _, o := range opts {
		o(&cfg)
	}
	cs := buildCoreStack(cfg)

	defer func() {
		if r := recover(); r != nil {
			err := recoverToError(r)
			result = RunResult{
				Err:   err,
				Store: cs.store.values,
				Log:   cs.writer.Output,
				Trace: buildTrace(err, cs.stack, cs.sched),
			}
			if cfg.printTrace {
				fmt.Fprint(os.Stderr, result.Trace.Render())
			}
		}
	}()

	value, err := cs.sched.runRoot(erase(program), cs.stack)
	if err != nil {
		result = RunResult{
			Err:   err,
			Store: cs.store.values,
			Log:   cs.writer.Output,
			Trace: buildTrace(err, cs.stack, cs.sched),
		}
		if cfg.printTrace {
			fmt.Fprint(os.Stderr, result.Trace.Render())
		}
		return result
	}
	return RunResult{Value: value, Store: cs.store.values, Log: cs.writer.Output}
}

// AsyncHandle is the Future[RunResult] [AsyncRun] returns (§6): the run
// executes on its own goroutine — the only place in this module the
// machine genuinely shares CPU with other goroutines, since [AsyncRun]'s
// caller keeps running concurrently with it.
type AsyncHandle struct {
	done   chan struct{}
	result RunResult
}

// Wait blocks until the asynchronous run completes and returns its result.
func (a *AsyncHandle) Wait() RunResult {
	<-a.done
	return a.result
}

// Done returns a channel closed when the run completes, for use in a
// select alongside other readiness signals.
func (a *AsyncHandle) Done() <-chan struct{} { return a.done }

// AsyncRun starts program on a dedicated goroutine and returns immediately
// with an [AsyncHandle] (§6 `async_run`).
func AsyncRun[A any](program Program[A], opts ...RunOption) *AsyncHandle {
	h := &AsyncHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.result = Run(program, opts...)
	}()
	return h
}

// recoverToError normalizes a recovered panic value to an error, the same
// conversion [runSafe] and [SchedulerHandler.runTick] apply per-scope.
func recoverToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &Failure{Err: errAny{r}}
}

// buildTrace assembles §4.8's structured traceback for a failure that
// escaped the top of [Run]. The spawn-chain section is populated only when
// the failure names a task id the scheduler still knows about (a
// cancellation propagating out of a spawned task); other failures carry no
// spawn chain since they were never attributed to one.
func buildTrace(err error, stack []*handlerEntry, sched *SchedulerHandler) *Trace {
	t := &Trace{
		HandlerChain: buildHandlerChainTrace(stack),
		EffectSites:  buildEffectSiteTrace(err),
		Cause:        err,
	}
	if tce, ok := err.(*TaskCancelledError); ok {
		if tk, found := sched.tasks[tce.TaskID]; found {
			t.SpawnChain = buildSpawnChainTrace(tk)
		}
	}
	return t
}
