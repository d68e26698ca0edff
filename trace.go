// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
)

// siteCaptureEnabled gates runtime.Caller-based site capture. Off by
// default; [EnableEffectSiteCapture] turns it on, typically driven by a
// loaded [Config].Debug at process startup.
var siteCaptureEnabled atomic.Bool

// EnableEffectSiteCapture turns effect/spawn/handler-install site capture
// on or off for every subsequent [Perform], [Spawn] and [WithHandler] call.
// Capture costs a runtime.Caller walk per call site, so it defaults to off
// (§6: DOEFF_DEBUG gates it).
func EnableEffectSiteCapture(on bool) { siteCaptureEnabled.Store(on) }

// captureSite records the caller `skip` frames up from its own caller, or
// the zero siteInfo when capture is disabled.
func captureSite(skip int) siteInfo {
	if !siteCaptureEnabled.Load() {
		return siteInfo{}
	}
	pc, file, line, ok := runtime.Caller(skip + 2)
	if !ok {
		return siteInfo{}
	}
	name := "<unknown>"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
	}
	return siteInfo{File: file, Line: line, Func: name}
}

// siteInfo is a source location captured for diagnostics: an effect's
// creation site, a spawn site, or a handler's install site. Capture is
// gated by [EnableEffectSiteCapture] since runtime.Caller is not free; the
// package does not read [Config.Debug] itself.
type siteInfo struct {
	File string
	Line int
	Func string
}

func (s siteInfo) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d (%s)", s.File, s.Line, s.Func)
}

// frameStatus marks what a handler frame was doing when a failure was
// captured, surfaced in the rendered trace's handler-chain section.
type frameStatus int

const (
	frameRunning frameStatus = iota
	frameDelegated
	frameResumed
	frameFailed
)

func (s frameStatus) String() string {
	switch s {
	case frameRunning:
		return "running"
	case frameDelegated:
		return "delegated"
	case frameResumed:
		return "resumed"
	case frameFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// handlerFrameTrace describes one handler stack entry at the moment a
// failure was captured.
type handlerFrameTrace struct {
	HandlerType string
	Status      frameStatus
	Site        siteInfo
}

// spawnFrameTrace describes one ancestor task in a failing task's spawn
// chain, rendered as a "── in task N spawned at … ──" separator (§4.8).
type spawnFrameTrace struct {
	TaskID string
	Site   siteInfo
}

// Trace is the structured traceback §4.8 requires: the handler chain at
// the failure site, the effect-creation stack of the closest failing
// effect, the spawn-site chain of ancestor tasks (for failures inside
// spawned tasks), and the underlying Go error chain.
type Trace struct {
	HandlerChain []handlerFrameTrace
	EffectSites  []siteInfo
	SpawnChain   []spawnFrameTrace
	Cause        error
}

// Render formats the trace as the deterministic text block §4.8 requires,
// used by both a CLI front-end (out of core) and test assertions.
func (t *Trace) Render() string {
	var b strings.Builder
	if t.Cause != nil {
		fmt.Fprintf(&b, "error: %v\n", t.Cause)
	}
	if len(t.HandlerChain) > 0 {
		b.WriteString("handler chain (innermost first):\n")
		for i := len(t.HandlerChain) - 1; i >= 0; i-- {
			hf := t.HandlerChain[i]
			fmt.Fprintf(&b, "  %s [%s] at %s\n", hf.HandlerType, hf.Status, hf.Site)
		}
	}
	if len(t.EffectSites) > 0 {
		b.WriteString("effect creation stack:\n")
		for _, s := range t.EffectSites {
			fmt.Fprintf(&b, "  at %s\n", s)
		}
	}
	for i := len(t.SpawnChain) - 1; i >= 0; i-- {
		sp := t.SpawnChain[i]
		fmt.Fprintf(&b, "── in task %s spawned at %s ──\n", sp.TaskID, sp.Site)
	}
	return b.String()
}

// TracedError pairs an error with a structured [Trace]. [Run]/[AsyncRun]
// do not build one: they report a failure and its trace separately, in
// RunResult.Err and RunResult.Trace.
type TracedError struct {
	Err   error
	Trace *Trace
}

func (e *TracedError) Error() string { return e.Err.Error() }

func (e *TracedError) Unwrap() error { return e.Err }

// buildHandlerChainTrace snapshots the handler stack active at a failure
// site. Called by the dispatch engine's panic-recovery path (see run.go).
func buildHandlerChainTrace(stack []*handlerEntry) []handlerFrameTrace {
	out := make([]handlerFrameTrace, len(stack))
	for i, e := range stack {
		out[i] = handlerFrameTrace{
			HandlerType: fmt.Sprintf("%T", e.handler),
			Status:      frameRunning,
			Site:        siteInfo{Func: e.site},
		}
	}
	return out
}

// buildSpawnChainTrace walks t's ancestor chain, innermost (t itself) first,
// for the "in task N spawned at …" separators §4.8 requires on a failure
// inside a spawned task.
func buildSpawnChainTrace(t *task) []spawnFrameTrace {
	var out []spawnFrameTrace
	for cur := t; cur != nil; cur = cur.parent {
		out = append(out, spawnFrameTrace{TaskID: cur.id, Site: cur.createdSite})
	}
	return out
}

// buildEffectSiteTrace extracts the creation site of the effect nearest a
// failure, when the failure carries one (currently [MissingHandlerError]).
func buildEffectSiteTrace(err error) []siteInfo {
	if mhe, ok := err.(*MissingHandlerError); ok && mhe.Site.File != "" {
		return []siteInfo{mhe.Site}
	}
	return nil
}
