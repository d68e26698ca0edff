// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"strings"
	"testing"

	"code.hybscloud.com/doeffvm"
)

func TestRunAssemblesStoreReaderWriterInOneResult(t *testing.T) {
	prog := doeffvm.Bind(doeffvm.PutStore("seen", 1), func(struct{}) doeffvm.Program[int] {
		return doeffvm.Bind(doeffvm.TellWriter[string, int]("step", doeffvm.Perform[doeffvm.Ask[int], int](doeffvm.Ask[int]{Key: "limit"})), func(v int) doeffvm.Program[int] {
			return doeffvm.Pure(v * 2)
		})
	})
	result := doeffvm.Run(prog, doeffvm.WithEnv(map[string]doeffvm.Erased{"limit": 10}))
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if result.Value != 20 {
		t.Fatalf("got %v, want 20", result.Value)
	}
	if result.Store["seen"] != 1 {
		t.Fatalf("got store %v, want seen=1", result.Store)
	}
	if len(result.Log) != 1 || result.Log[0] != "step" {
		t.Fatalf("got log %v, want [step]", result.Log)
	}
}

func TestRunWithStoreSeedsInitialValues(t *testing.T) {
	result := doeffvm.Run(doeffvm.GetStore[int]("counter"), doeffvm.WithStore(map[string]doeffvm.Erased{"counter": 5}))
	if !result.IsOk() || result.Value != 5 {
		t.Fatalf("got %v err=%v, want 5", result.Value, result.Err)
	}
}

func TestRunReportRendersOkValue(t *testing.T) {
	result := doeffvm.Run(doeffvm.Pure(7))
	report := result.Report()
	if report != "ok: 7" {
		t.Fatalf("got %q, want %q", report, "ok: 7")
	}
}

func TestRunReportRendersTraceOnMissingHandler(t *testing.T) {
	result := doeffvm.Run(doeffvm.Perform[myEffect, int](myEffect{}))
	if result.IsOk() {
		t.Fatal("expected a MissingHandlerError escaping a bare Perform")
	}
	report := result.Report()
	if !strings.Contains(report, "error:") {
		t.Fatalf("got report %q, want it to mention the error", report)
	}
	if !strings.Contains(report, "handler chain") {
		t.Fatalf("got report %q, want a rendered handler chain", report)
	}
}

func TestAsyncRunCompletesWithoutBlockingCaller(t *testing.T) {
	handle := doeffvm.AsyncRun(doeffvm.Pure(99))
	result := handle.Wait()
	if !result.IsOk() || result.Value != 99 {
		t.Fatalf("got %v err=%v, want 99", result.Value, result.Err)
	}
	select {
	case <-handle.Done():
	default:
		t.Fatal("expected Done() to be closed after Wait returned")
	}
}

func TestDefaultHandlersDriveHandleDirectly(t *testing.T) {
	handlers := doeffvm.DefaultHandlers(map[string]doeffvm.Erased{"k": "v"}, nil)
	got := doeffvm.Handle(doeffvm.Perform[doeffvm.Ask[string], string](doeffvm.Ask[string]{Key: "k"}), handlers...)
	if got != "v" {
		t.Fatalf("got %q, want v", got)
	}
}
