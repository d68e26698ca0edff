// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/doeffvm"
)

func TestBracketReleasesAfterSuccessfulUse(t *testing.T) {
	var released bool
	prog := doeffvm.Bracket[myError, int, int](
		doeffvm.Pure(7),
		func(int) doeffvm.Program[struct{}] {
			released = true
			return doeffvm.Pure(struct{}{})
		},
		func(r int) doeffvm.Program[int] {
			return doeffvm.Pure(r * 2)
		},
	)
	got := doeffvm.Handle(prog, &doeffvm.ErrorHandler[myError]{})
	require.True(t, released, "expected release to run after a successful use")
	require.True(t, got.IsRight())
	v, _ := got.GetRight()
	require.Equal(t, 14, v)
}

func TestBracketReleasesEvenWhenUseFails(t *testing.T) {
	var released bool
	prog := doeffvm.Bracket[myError, int, int](
		doeffvm.Pure(7),
		func(int) doeffvm.Program[struct{}] {
			released = true
			return doeffvm.Pure(struct{}{})
		},
		func(int) doeffvm.Program[int] {
			return doeffvm.Fail[myError, int](myError{msg: "use failed"})
		},
	)
	got := doeffvm.Handle(prog, &doeffvm.ErrorHandler[myError]{})
	require.True(t, released, "expected release to run even when use fails")
	require.True(t, got.IsLeft())
	e, _ := got.GetLeft()
	require.Equal(t, "use failed", e.msg)
}

// TestBracketUseCanPerformAmbientEffectsUnderRun exercises Bracket the way
// Run()'s composed stack actually puts it: use spawns and joins a child
// task, which only succeeds if use still runs against the full ambient
// stack (Scheduler included) rather than an isolated error-only one.
func TestBracketUseCanPerformAmbientEffectsUnderRun(t *testing.T) {
	var released bool
	prog := doeffvm.Bracket[error, int, int](
		doeffvm.Pure(7),
		func(int) doeffvm.Program[struct{}] {
			released = true
			return doeffvm.Pure(struct{}{})
		},
		func(r int) doeffvm.Program[int] {
			return doeffvm.Bind(doeffvm.Spawn(doeffvm.Pure(r*2)), func(h *doeffvm.TaskHandle[int]) doeffvm.Program[int] {
				return doeffvm.Wait(h)
			})
		},
	)
	result := doeffvm.Run(prog)
	require.True(t, result.IsOk(), "expected ok, got %v", result.Err)
	require.True(t, released)
	either := result.Value.(doeffvm.Either[error, int])
	require.True(t, either.IsRight())
	v, _ := either.GetRight()
	require.Equal(t, 14, v)
}

func TestOnErrorRunsCleanupThenRePanicsTheSameError(t *testing.T) {
	var cleaned bool
	body := doeffvm.OnError[myError, int](
		doeffvm.Fail[myError, int](myError{msg: "boom"}),
		func(myError) doeffvm.Program[struct{}] {
			cleaned = true
			return doeffvm.Pure(struct{}{})
		},
	)
	got := doeffvm.RunError[myError, int](body)
	require.True(t, cleaned)
	require.True(t, got.IsLeft())
	e, _ := got.GetLeft()
	require.Equal(t, "boom", e.msg)
}

func TestOnErrorSkipsCleanupOnSuccess(t *testing.T) {
	var cleaned bool
	body := doeffvm.OnError[myError, int](
		doeffvm.Pure(5),
		func(myError) doeffvm.Program[struct{}] {
			cleaned = true
			return doeffvm.Pure(struct{}{})
		},
	)
	got := doeffvm.RunError[myError, int](body)
	require.False(t, cleaned, "expected cleanup to be skipped on success")
	require.True(t, got.IsRight())
	v, _ := got.GetRight()
	require.Equal(t, 5, v)
}

// TestOnErrorCleanupCanPerformAmbientEffectsUnderComposedStack exercises
// OnError the way a composed handler stack puts it: cleanup tells the
// Writer log, which only succeeds if cleanup runs against the full ambient
// stack rather than an isolated error-only one. The outer TryRecover here
// stands in for whatever ambient ErrorHandler a real Run() call installs,
// turning the re-raised error into an inspectable Either instead of relying
// on OnError's own Program[A] result type.
func TestOnErrorCleanupCanPerformAmbientEffectsUnderComposedStack(t *testing.T) {
	writer := doeffvm.NewWriterHandler[string]()
	inner := doeffvm.OnError[error, int](
		doeffvm.Fail[error, int](myError{msg: "boom"}),
		func(error) doeffvm.Program[struct{}] {
			return doeffvm.TellWriter[string, struct{}]("cleaned up", doeffvm.Pure(struct{}{}))
		},
	)
	caught := doeffvm.TryRecover[error, doeffvm.Either[error, int]](
		doeffvm.Map(inner, func(v int) doeffvm.Either[error, int] { return doeffvm.Right[error, int](v) }),
		func(e error) doeffvm.Program[doeffvm.Either[error, int]] {
			return doeffvm.Pure(doeffvm.Left[error, int](e))
		},
	)
	got := doeffvm.Handle(caught, writer, &doeffvm.ErrorHandler[error]{})
	require.True(t, got.IsLeft())
	e, _ := got.GetLeft()
	require.Equal(t, "boom", e.Error())
	require.Equal(t, []string{"cleaned up"}, writer.Output)
}
