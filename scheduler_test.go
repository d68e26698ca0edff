// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"bytes"
	"log/slog"
	"testing"

	"code.hybscloud.com/doeffvm"
)

func TestStateRoundTrip(t *testing.T) {
	// Scenario 2 (spec.md §8): Put("x", 7); v = yield Get("x"); return v.
	prog := doeffvm.Bind(doeffvm.PutStore("x", 7), func(struct{}) doeffvm.Program[int] {
		return doeffvm.GetStore[int]("x")
	})
	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if result.Value != 7 {
		t.Fatalf("got value %v, want 7", result.Value)
	}
	if result.Store["x"] != 7 {
		t.Fatalf("got store %v, want x=7", result.Store)
	}
}

func TestGatherSequentialStateMerge(t *testing.T) {
	// Scenario 3 (spec.md §8): Gather is sequential, so three increments of
	// shared state each observe the previous one's write.
	inc := doeffvm.ModifyStore[int]("c", func(c int) int { return c + 1 })
	prog := doeffvm.Bind(doeffvm.PutStore("c", 0), func(struct{}) doeffvm.Program[[]int] {
		return doeffvm.Gather(inc, inc, inc)
	})
	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	got := result.Value.([]int)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if result.Store["c"] != 3 {
		t.Fatalf("got final store c=%v, want 3", result.Store["c"])
	}
}

func TestSpawnWaitRoundTrip(t *testing.T) {
	prog := doeffvm.Bind(doeffvm.Spawn(doeffvm.Pure(42)), func(h *doeffvm.TaskHandle[int]) doeffvm.Program[int] {
		return doeffvm.Wait(h)
	})
	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if result.Value != 42 {
		t.Fatalf("got %v, want 42", result.Value)
	}
}

func TestSpawnPriorityOrderingObservedViaWriterLog(t *testing.T) {
	// HIGH priority beats spawn order: c is spawned last but should run
	// before the two earlier NORMAL-priority tasks a and b.
	tellA := doeffvm.TellWriter[string, struct{}]("a", doeffvm.Pure(struct{}{}))
	tellB := doeffvm.TellWriter[string, struct{}]("b", doeffvm.Pure(struct{}{}))
	tellC := doeffvm.TellWriter[string, struct{}]("c", doeffvm.Pure(struct{}{}))

	prog := doeffvm.Bind(doeffvm.Spawn(tellA), func(ha *doeffvm.TaskHandle[struct{}]) doeffvm.Program[struct{}] {
		return doeffvm.Bind(doeffvm.Spawn(tellB), func(hb *doeffvm.TaskHandle[struct{}]) doeffvm.Program[struct{}] {
			return doeffvm.Bind(doeffvm.Spawn(tellC, doeffvm.WithPriority(doeffvm.PriorityHigh)), func(hc *doeffvm.TaskHandle[struct{}]) doeffvm.Program[struct{}] {
				return doeffvm.Bind(doeffvm.Wait(ha), func(struct{}) doeffvm.Program[struct{}] {
					return doeffvm.Bind(doeffvm.Wait(hb), func(struct{}) doeffvm.Program[struct{}] {
						return doeffvm.Wait(hc)
					})
				})
			})
		})
	})

	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	want := []string{"c", "a", "b"}
	if len(result.Log) != len(want) {
		t.Fatalf("got log %v, want %v", result.Log, want)
	}
	for i := range want {
		if result.Log[i] != want[i] {
			t.Fatalf("got log %v, want %v", result.Log, want)
		}
	}
}

func TestRaceReturnsFirstCompletion(t *testing.T) {
	prog := doeffvm.Race(doeffvm.Pure(2), doeffvm.Pure(1))
	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	rr := result.Value.(doeffvm.RaceResult[int])
	if rr.Index != 0 || rr.Value != 2 {
		t.Fatalf("got %+v, want index 0 value 2", rr)
	}
}

func TestCancelIsIdempotentOnFinishedTask(t *testing.T) {
	prog := doeffvm.Bind(doeffvm.Spawn(doeffvm.Pure(1)), func(h *doeffvm.TaskHandle[int]) doeffvm.Program[int] {
		return doeffvm.Bind(doeffvm.Wait(h), func(v int) doeffvm.Program[int] {
			return doeffvm.Bind(doeffvm.Cancel(h), func(struct{}) doeffvm.Program[int] {
				return doeffvm.Pure(v)
			})
		})
	})
	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if result.Value != 1 {
		t.Fatalf("got %v, want 1", result.Value)
	}
}

func TestUnjoinedTaskWarningIsLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	prog := doeffvm.Bind(doeffvm.Spawn(doeffvm.Pure(1)), func(*doeffvm.TaskHandle[int]) doeffvm.Program[int] {
		return doeffvm.Pure(0)
	})
	result := doeffvm.Run(prog, doeffvm.WithLogger(logger))
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("never joined")) {
		t.Fatalf("expected unjoined-task warning in log, got %q", buf.String())
	}
}

func TestFireAndForgetTaskDoesNotWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	prog := doeffvm.Bind(doeffvm.Spawn(doeffvm.Pure(1), doeffvm.FireAndForget()), func(*doeffvm.TaskHandle[int]) doeffvm.Program[int] {
		return doeffvm.Pure(0)
	})
	result := doeffvm.Run(prog, doeffvm.WithLogger(logger))
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if bytes.Contains(buf.Bytes(), []byte("never joined")) {
		t.Fatalf("fire-and-forget task should not trigger the unjoined warning, got %q", buf.String())
	}
}

func TestParallelJoinsInProgramOrderRegardlessOfCompletionOrder(t *testing.T) {
	ms := []doeffvm.Program[int]{doeffvm.Pure(1), doeffvm.Pure(2), doeffvm.Pure(3)}
	result := doeffvm.Run(doeffvm.Parallel(ms...))
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	got := result.Value.([]int)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
