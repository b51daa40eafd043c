// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package numeric

import (
	"fmt"
	"slices"
)

// Broadcast returns the shape obtained by broadcasting shapes together with NumPy rules:
// dimensions are aligned from the right and every pair must be equal or contain a 1.
func Broadcast(shapes ...[]int) ([]int, error) {
	rank := 0
	for _, shape := range shapes {
		rank = max(rank, len(shape))
	}

	out := make([]int, rank)
	for i := range out {
		out[i] = 1
	}

	for _, shape := range shapes {
		for i, dim := range shape {
			j := rank - len(shape) + i
			switch {
			case dim == out[j] || dim == 1:
			case out[j] == 1:
				out[j] = dim
			default:
				return nil, fmt.Errorf("%w: cannot broadcast %v", ErrShapeMismatch, shapes)
			}
		}
	}

	return out, nil
}

// BroadcastTo expands t to shape, which must be reachable by broadcasting.
func BroadcastTo(t Tensor, shape []int) (Tensor, error) {
	out, err := Broadcast(t.shape, shape)
	if err != nil {
		return Tensor{}, err
	}
	if !slices.Equal(out, shape) {
		return Tensor{}, fmt.Errorf("%w: cannot broadcast %v to %v", ErrShapeMismatch, t.shape, shape)
	}

	return mapN(shape, func(v []float64) float64 { return v[0] }, t), nil
}

// SumTo reduces t to shape by summing over the broadcast dimensions. It is the adjoint of
// BroadcastTo and is used to bring gradients back to the shape of the inputs.
func SumTo(t Tensor, shape []int) (Tensor, error) {
	out, err := Broadcast(shape, t.shape)
	if err != nil {
		return Tensor{}, err
	}
	if !slices.Equal(out, t.shape) {
		return Tensor{}, fmt.Errorf("%w: cannot reduce %v to %v", ErrShapeMismatch, t.shape, shape)
	}

	data := make([]float64, shapeSize(shape))
	strides := broadcastStrides(shape, t.shape)
	walk(t.shape, [][]int{strides}, func(k int, offsets []int) {
		data[offsets[0]] += t.data[k]
	})

	return Tensor{shape: slices.Clone(shape), data: data}, nil
}

// broadcastStrides returns, for every dimension of out, the step in the flat data of a tensor
// shaped in. Broadcast dimensions get a zero stride so the same element is read again.
func broadcastStrides(in, out []int) []int {
	strides := make([]int, len(out))
	stride := 1
	for i := len(in) - 1; i >= 0; i-- {
		if in[i] != 1 {
			strides[len(out)-len(in)+i] = stride
		}
		stride *= in[i]
	}
	return strides
}

// walk visits every element of shape in row-major order, passing its flat index and the
// matching flat offsets of each strided operand.
func walk(shape []int, strides [][]int, visit func(k int, offsets []int)) {
	size := shapeSize(shape)
	index := make([]int, len(shape))
	offsets := make([]int, len(strides))

	for k := range size {
		visit(k, offsets)

		for d := len(shape) - 1; d >= 0; d-- {
			index[d]++
			for i := range strides {
				offsets[i] += strides[i][d]
			}
			if index[d] < shape[d] {
				break
			}

			for i := range strides {
				offsets[i] -= strides[i][d] * shape[d]
			}
			index[d] = 0
		}
	}
}

// mapN applies fn elementwise over operands already known to broadcast to shape.
func mapN(shape []int, fn func(values []float64) float64, operands ...Tensor) Tensor {
	strides := make([][]int, len(operands))
	for i, operand := range operands {
		strides[i] = broadcastStrides(operand.shape, shape)
	}

	data := make([]float64, shapeSize(shape))
	values := make([]float64, len(operands))
	walk(shape, strides, func(k int, offsets []int) {
		for i, operand := range operands {
			values[i] = operand.data[offsets[i]]
		}
		data[k] = fn(values)
	})

	return Tensor{shape: slices.Clone(shape), data: data}
}
