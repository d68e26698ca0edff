// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"testing"

	"code.hybscloud.com/doeffvm"
)

func TestAffineResume(t *testing.T) {
	k := func(x int) string { return "received" }
	aff := doeffvm.Once(k)

	got := aff.Resume(42)
	if got != "received" {
		t.Fatalf("got %q, want %q", got, "received")
	}

	_, ok := aff.TryResume(0)
	if ok {
		t.Fatal("expected TryResume to fail after Resume")
	}
}

func TestAffinePanicOnReuse(t *testing.T) {
	k := func(x int) int { return x * 2 }
	aff := doeffvm.Once(k)

	_ = aff.Resume(10)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on second Resume")
		}
	}()

	_ = aff.Resume(20)
}

func TestAffineTryResume(t *testing.T) {
	k := func(x int) int { return x * 2 }
	aff := doeffvm.Once(k)

	got, ok := aff.TryResume(10)
	if !ok || got != 20 {
		t.Fatalf("got %d ok=%v, want 20 true", got, ok)
	}

	got, ok = aff.TryResume(10)
	if ok {
		t.Fatalf("expected second TryResume to fail, got %d", got)
	}
}

func TestAffineDiscardPreventsResume(t *testing.T) {
	var called bool
	aff := doeffvm.Once(func(int) struct{} {
		called = true
		return struct{}{}
	})
	aff.Discard()

	if _, ok := aff.TryResume(0); ok {
		t.Fatal("expected TryResume to fail after Discard")
	}
	if called {
		t.Fatal("expected the wrapped continuation to never run after Discard")
	}
}
