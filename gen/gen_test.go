// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package gen_test

import (
	"testing"

	"code.hybscloud.com/doeffvm"
	"code.hybscloud.com/doeffvm/gen"
)

func TestDoReturnsImmediatelyWithoutYielding(t *testing.T) {
	prog := gen.Do(func(yield func(doeffvm.Operation) doeffvm.Erased) int {
		return 42
	})
	result := doeffvm.Run(prog)
	if !result.IsOk() || result.Value != 42 {
		t.Fatalf("got %v err=%v, want 42", result.Value, result.Err)
	}
}

func TestDoPerformsSequentialEffectsLikeOrdinaryCode(t *testing.T) {
	prog := gen.Do(func(yield func(doeffvm.Operation) doeffvm.Erased) int {
		yield(doeffvm.StorePut{Key: "x", Value: 1})
		cur := yield(doeffvm.StoreGet{Key: "x"}).(int)
		yield(doeffvm.StorePut{Key: "x", Value: cur + 1})
		return yield(doeffvm.StoreGet{Key: "x"}).(int)
	})
	result := doeffvm.Run(prog)
	if !result.IsOk() {
		t.Fatalf("expected ok, got %v", result.Err)
	}
	if result.Value != 2 {
		t.Fatalf("got %v, want 2", result.Value)
	}
	if result.Store["x"] != 2 {
		t.Fatalf("got store %v, want x=2", result.Store)
	}
}

func TestDoComposesWithBindAndMap(t *testing.T) {
	prog := gen.Do(func(yield func(doeffvm.Operation) doeffvm.Erased) int {
		return 10
	})
	composed := doeffvm.Map(prog, func(v int) int { return v * 3 })
	result := doeffvm.Run(composed)
	if !result.IsOk() || result.Value != 30 {
		t.Fatalf("got %v err=%v, want 30", result.Value, result.Err)
	}
}

func TestDoPanicInsideGeneratorPropagatesToDriver(t *testing.T) {
	boom := "generator exploded"
	defer func() {
		r := recover()
		if r != boom {
			t.Fatalf("got recovered %v, want %q", r, boom)
		}
	}()
	gen.Do(func(yield func(doeffvm.Operation) doeffvm.Erased) int {
		panic(boom)
	})
}

func TestDoPanicAfterYieldPropagatesToDriver(t *testing.T) {
	boom := "generator exploded after a yield"
	prog := gen.Do(func(yield func(doeffvm.Operation) doeffvm.Erased) int {
		yield(doeffvm.StorePut{Key: "x", Value: 1})
		panic(boom)
	})
	defer func() {
		r := recover()
		if r != boom {
			t.Fatalf("got recovered %v, want %q", r, boom)
		}
	}()
	doeffvm.Handle(prog, doeffvm.NewStoreHandler(nil))
}
