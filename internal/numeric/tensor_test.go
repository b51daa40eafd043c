// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		shape         []int
		data          []float64
		expectedError error
	}{
		"matrix": {
			shape: []int{2, 3},
			data:  []float64{1, 2, 3, 4, 5, 6},
		},
		"scalar": {
			shape: nil,
			data:  []float64{1},
		},
		"empty": {
			shape: []int{0},
			data:  nil,
		},
		"wrong data length": {
			shape:         []int{2, 2},
			data:          []float64{1, 2, 3},
			expectedError: ErrShapeMismatch,
		},
		"negative dimension": {
			shape:         []int{-1},
			data:          nil,
			expectedError: ErrShapeMismatch,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tensor, err := New(test.shape, test.data)
			if test.expectedError != nil {
				require.ErrorIs(t, err, test.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, len(test.shape), tensor.Rank())
			assert.Equal(t, len(test.data), tensor.Size())
		})
	}
}

func TestTensorAccessors(t *testing.T) {
	t.Parallel()

	matrix := MustNew([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []int{2, 3}, matrix.Shape())

	_, err := matrix.Item()
	require.ErrorIs(t, err, ErrShapeMismatch)

	item, err := Scalar(4.5).Item()
	require.NoError(t, err)
	assert.Equal(t, 4.5, item)

	values := matrix.Values()
	values[0] = 100
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, matrix.Values(), "Values must return a copy")

	assert.Equal(t, 0, Scalar(1).Rank())
	assert.Equal(t, 1, Vector(1, 2).Rank())
}

func TestTensorString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.5", Scalar(0.5).String())
	assert.Equal(t, "[1 2 3]", Vector(1, 2, 3).String())
	assert.Equal(t, "[[1 2] [3 4]]", MustNew([]int{2, 2}, []float64{1, 2, 3, 4}).String())
	assert.Equal(t, "[]", Vector().String())
}

func TestBroadcast(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		shapes        [][]int
		expected      []int
		expectedError bool
	}{
		"scalar with vector":  {shapes: [][]int{nil, {3}}, expected: []int{3}},
		"row with column":     {shapes: [][]int{{1, 3}, {2, 1}}, expected: []int{2, 3}},
		"lower rank aligned":  {shapes: [][]int{{2, 3}, {3}}, expected: []int{2, 3}},
		"zero sized":          {shapes: [][]int{{0}, {1}}, expected: []int{0}},
		"incompatible":        {shapes: [][]int{{2}, {3}}, expectedError: true},
		"incompatible nested": {shapes: [][]int{{2, 3}, {2}}, expectedError: true},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			shape, err := Broadcast(test.shapes...)
			if test.expectedError {
				require.ErrorIs(t, err, ErrShapeMismatch)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expected, shape)
		})
	}
}

func TestBroadcastToAndSumTo(t *testing.T) {
	t.Parallel()

	column := MustNew([]int{2, 1}, []float64{1, 2})
	expanded, err := BroadcastTo(column, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2}, expanded.Values())

	_, err = BroadcastTo(Vector(1, 2, 3), []int{2})
	require.ErrorIs(t, err, ErrShapeMismatch)

	reduced, err := SumTo(expanded, []int{2, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6}, reduced.Values())

	total, err := SumTo(expanded, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total.Rank())
	item, err := total.Item()
	require.NoError(t, err)
	assert.Equal(t, 9.0, item)

	rows, err := SumTo(expanded, []int{3})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 3}, rows.Values())

	_, err = SumTo(Vector(1, 2), []int{2, 2})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestWhere(t *testing.T) {
	t.Parallel()

	mask := NotEqual(Vector(0, 2, 0, 4), 0)
	assert.Equal(t, []float64{0, 1, 0, 1}, mask.Values())

	selected, err := Where(mask, Vector(10, 20, 30, 40), Scalar(-1))
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 20, -1, 40}, selected.Values())

	_, err = Where(mask, Vector(1, 2, 3), Scalar(0))
	require.ErrorIs(t, err, ErrShapeMismatch)
}
