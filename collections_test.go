// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/doeffvm"
)

func TestSequenceCollectsResultsInOrder(t *testing.T) {
	ms := []doeffvm.Program[int]{doeffvm.Pure(1), doeffvm.Pure(2), doeffvm.Pure(3)}
	got := doeffvm.Handle(doeffvm.Sequence(ms))
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestSequenceOfEmptySliceYieldsEmptySlice(t *testing.T) {
	got := doeffvm.Handle(doeffvm.Sequence[int](nil))
	require.Empty(t, got)
}

func TestTraverseAppliesFToEachElementInOrder(t *testing.T) {
	xs := []int{1, 2, 3}
	got := doeffvm.Handle(doeffvm.Traverse(xs, func(x int) doeffvm.Program[int] {
		return doeffvm.Pure(x * x)
	}))
	require.Equal(t, []int{1, 4, 9}, got)
}

func TestApplyKleisliThreadsEachArrowInTurn(t *testing.T) {
	double := func(x int) doeffvm.Program[int] { return doeffvm.Pure(x * 2) }
	incr := func(x int) doeffvm.Program[int] { return doeffvm.Pure(x + 1) }
	got := doeffvm.Handle(doeffvm.ApplyKleisli(doeffvm.Pure(3), double, incr, double))
	require.Equal(t, 14, got)
}

func TestApplyTransformsFoldsOverTheWholeProgram(t *testing.T) {
	double := func(m doeffvm.Program[int]) doeffvm.Program[int] {
		return doeffvm.Map(m, func(v int) int { return v * 2 })
	}
	got := doeffvm.Handle(doeffvm.ApplyTransforms(doeffvm.Pure(5), double, double))
	require.Equal(t, 20, got)
}
