// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"testing"

	"code.hybscloud.com/doeffvm"
)

func TestPureComputation(t *testing.T) {
	// Scenario 1 (spec.md §8): Pure(42) under default handlers.
	result := doeffvm.Run(doeffvm.Pure(42))
	if !result.IsOk() {
		t.Fatalf("expected ok, got error: %v", result.Err)
	}
	if result.Value != 42 {
		t.Fatalf("got value %v, want 42", result.Value)
	}
	if len(result.Store) != 0 {
		t.Fatalf("got store %v, want empty", result.Store)
	}
	if len(result.Log) != 0 {
		t.Fatalf("got log %v, want empty", result.Log)
	}
}

func TestBindSequencesComputations(t *testing.T) {
	m := doeffvm.Bind(doeffvm.Pure(1), func(a int) doeffvm.Program[int] {
		return doeffvm.Bind(doeffvm.Pure(2), func(b int) doeffvm.Program[int] {
			return doeffvm.Pure(a + b)
		})
	})
	got := doeffvm.Handle(m)
	if got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestMapAppliesPureFunction(t *testing.T) {
	m := doeffvm.Map(doeffvm.Pure(21), func(a int) int { return a * 2 })
	got := doeffvm.Handle(m)
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestThenDiscardsFirstResult(t *testing.T) {
	m := doeffvm.Then(doeffvm.Pure("discarded"), doeffvm.Pure(7))
	got := doeffvm.Handle(m)
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestLongBindChainDoesNotGrowGoStack(t *testing.T) {
	// Exercises evalProgram's iterative trampoline: a long chain of Bind
	// calls must not recurse once per step.
	const n = 200000
	m := doeffvm.Pure(0)
	for i := 0; i < n; i++ {
		m = doeffvm.Bind(m, func(a int) doeffvm.Program[int] {
			return doeffvm.Pure(a + 1)
		})
	}
	got := doeffvm.Handle(m)
	if got != n {
		t.Fatalf("got %d, want %d", got, n)
	}
}

func TestSequenceOfPureProgramsCollectsResultsInOrder(t *testing.T) {
	ms := []doeffvm.Program[int]{doeffvm.Pure(1), doeffvm.Pure(2), doeffvm.Pure(3)}
	got := doeffvm.Handle(doeffvm.Sequence(ms))
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

func TestTraverseAppliesFunctionInOrder(t *testing.T) {
	xs := []int{1, 2, 3}
	m := doeffvm.Traverse(xs, func(x int) doeffvm.Program[int] {
		return doeffvm.Pure(x * 10)
	})
	got := doeffvm.Handle(m)
	want := []int{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestApplyKleisliThreadsArrowsInOrder(t *testing.T) {
	add := func(n int) func(int) doeffvm.Program[int] {
		return func(a int) doeffvm.Program[int] { return doeffvm.Pure(a + n) }
	}
	m := doeffvm.ApplyKleisli(doeffvm.Pure(0), add(1), add(2), add(3))
	got := doeffvm.Handle(m)
	if got != 6 {
		t.Fatalf("got %d, want 6", got)
	}
}

func TestApplyTransformsFoldsOverProgram(t *testing.T) {
	double := func(m doeffvm.Program[int]) doeffvm.Program[int] {
		return doeffvm.Map(m, func(a int) int { return a * 2 })
	}
	m := doeffvm.ApplyTransforms(doeffvm.Pure(1), double, double, double)
	got := doeffvm.Handle(m)
	if got != 8 {
		t.Fatalf("got %d, want 8", got)
	}
}
