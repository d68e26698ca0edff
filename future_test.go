// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/doeffvm"
)

func TestAwaitExternalPromiseCompletedFromAnotherGoroutine(t *testing.T) {
	// Scenario 8 (spec.md §8): a promise completed from a host thread
	// after a short delay.
	p := doeffvm.NewExternalPromise[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Complete(5)
	}()
	result := doeffvm.Run(doeffvm.Await(p))
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if result.Value != 5 {
		t.Fatalf("got %v, want 5", result.Value)
	}
}

func TestAwaitExternalPromiseFailedFromAnotherGoroutine(t *testing.T) {
	p := doeffvm.NewExternalPromise[int]()
	boom := errors.New("backend unavailable")
	go func() {
		time.Sleep(5 * time.Millisecond)
		p.Fail(boom)
	}()
	result := doeffvm.Run(doeffvm.Await(p))
	if result.IsOk() {
		t.Fatal("expected failure")
	}
	if !errors.Is(result.Err, boom) {
		t.Fatalf("got error %v, want %v", result.Err, boom)
	}
}

func TestAwaitDoesNotBlockOtherReadyTasks(t *testing.T) {
	p := doeffvm.NewExternalPromise[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Complete(1)
	}()
	sibling := doeffvm.TellWriter[string, struct{}]("sibling-ran", doeffvm.Pure(struct{}{}))
	prog := doeffvm.Bind(doeffvm.Spawn(sibling, doeffvm.FireAndForget()), func(*doeffvm.TaskHandle[struct{}]) doeffvm.Program[int] {
		return doeffvm.Await(p)
	})
	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if len(result.Log) != 1 || result.Log[0] != "sibling-ran" {
		t.Fatalf("got log %v, want the fire-and-forget sibling to have run while Await was pending", result.Log)
	}
}
