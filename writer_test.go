// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"testing"

	"code.hybscloud.com/doeffvm"
)

func TestTellWriterAccumulatesOutput(t *testing.T) {
	prog := doeffvm.TellWriter[string, string]("a", doeffvm.TellWriter[string, string]("b", doeffvm.Pure("done")))
	result, output := doeffvm.RunWriter[string, string](prog)
	if result != "done" {
		t.Fatalf("got %q, want done", result)
	}
	want := []string{"a", "b"}
	if len(output) != len(want) {
		t.Fatalf("got %v, want %v", output, want)
	}
	for i := range want {
		if output[i] != want[i] {
			t.Fatalf("got %v, want %v", output, want)
		}
	}
}

func TestListenObservesOnlyItsOwnBodyOutput(t *testing.T) {
	inner := doeffvm.TellWriter[string, int]("inner", doeffvm.Pure(1))
	prog := doeffvm.Bind(doeffvm.TellWriter[string, doeffvm.Pair[int, []string]]("before", doeffvm.ListenWriter[string](inner)), func(p doeffvm.Pair[int, []string]) doeffvm.Program[doeffvm.Pair[int, []string]] {
		return doeffvm.TellWriter[string, doeffvm.Pair[int, []string]]("after", doeffvm.Pure(p))
	})
	result, output := doeffvm.RunWriter[string, doeffvm.Pair[int, []string]](prog)
	if result.Fst != 1 {
		t.Fatalf("got result %d, want 1", result.Fst)
	}
	if len(result.Snd) != 1 || result.Snd[0] != "inner" {
		t.Fatalf("got Listen-scoped output %v, want [inner]", result.Snd)
	}
	want := []string{"before", "inner", "after"}
	if len(output) != len(want) {
		t.Fatalf("got overall output %v, want %v", output, want)
	}
	for i := range want {
		if output[i] != want[i] {
			t.Fatalf("got overall output %v, want %v", output, want)
		}
	}
}

// TestListenObservesOnlyItsOwnBodyOutputUnderComposedStack exercises Listen
// against the full default handler stack ([DefaultHandlers]) rather than an
// isolated Writer-only one: Listen's body reads and writes the Store in
// between Tells, which only works if Listen dispatches its body against the
// ambient stack instead of a one-handler stack containing only the Writer.
func TestListenObservesOnlyItsOwnBodyOutputUnderComposedStack(t *testing.T) {
	handlers := doeffvm.DefaultHandlers(nil, map[string]doeffvm.Erased{"n": 1})
	inner := doeffvm.Bind(doeffvm.GetStore[int]("n"), func(n int) doeffvm.Program[int] {
		return doeffvm.TellWriter[string, int]("inner", doeffvm.Then(doeffvm.PutStore("n", n+1), doeffvm.Pure(n+1)))
	})
	prog := doeffvm.ListenWriter[string](inner)
	got := doeffvm.Handle(prog, handlers...)
	pair := got
	if pair.Fst != 2 {
		t.Fatalf("got Listen result %d, want 2 (Store round-tripped through Listen's body)", pair.Fst)
	}
	if len(pair.Snd) != 1 || pair.Snd[0] != "inner" {
		t.Fatalf("got Listen-scoped output %v, want [inner]", pair.Snd)
	}
}

func TestCensorRewritesBodyOutput(t *testing.T) {
	inner := doeffvm.TellWriter[string, int]("secret", doeffvm.Pure(42))
	redact := func(ws []string) []string {
		out := make([]string, len(ws))
		for i := range ws {
			out[i] = "[redacted]"
		}
		return out
	}
	prog := doeffvm.CensorWriter(redact, inner)
	result, output := doeffvm.RunWriter[string, int](prog)
	if result != 42 {
		t.Fatalf("got %d, want 42", result)
	}
	if len(output) != 1 || output[0] != "[redacted]" {
		t.Fatalf("got %v, want [[redacted]]", output)
	}
}

// TestCensorRewritesBodyOutputUnderComposedStack mirrors
// TestListenObservesOnlyItsOwnBodyOutputUnderComposedStack for Censor: its
// body reads the Store before Telling, which only works if Censor
// dispatches its body against the full ambient stack.
func TestCensorRewritesBodyOutputUnderComposedStack(t *testing.T) {
	handlers := doeffvm.DefaultHandlers(nil, map[string]doeffvm.Erased{"secret": "swordfish"})
	var writer *doeffvm.WriterHandler[string]
	for _, h := range handlers {
		if w, ok := h.(*doeffvm.WriterHandler[string]); ok {
			writer = w
		}
	}
	redact := func(ws []string) []string {
		out := make([]string, len(ws))
		for i := range ws {
			out[i] = "[redacted]"
		}
		return out
	}
	inner := doeffvm.Bind(doeffvm.GetStore[string]("secret"), func(s string) doeffvm.Program[int] {
		return doeffvm.TellWriter[string, int](s, doeffvm.Pure(42))
	})
	prog := doeffvm.CensorWriter(redact, inner)
	got := doeffvm.Handle(prog, handlers...)
	if got != 42 {
		t.Fatalf("got %v, want 42", got)
	}
	if len(writer.Output) != 1 || writer.Output[0] != "[redacted]" {
		t.Fatalf("got %v, want [[redacted]] (Store-read value redacted by Censor)", writer.Output)
	}
}
