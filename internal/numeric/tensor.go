// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package numeric

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrShapeMismatch reports shapes that cannot be broadcast together or that do not match the data.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Tensor is a dense row-major array of float64 values. A zero-rank tensor is a scalar.
// Tensors are treated as immutable: every operation returns a new value.
type Tensor struct {
	shape []int
	data  []float64
}

// New returns a tensor with the given shape backed by a copy of data.
func New(shape []int, data []float64) (Tensor, error) {
	for _, dim := range shape {
		if dim < 0 {
			return Tensor{}, fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, shape)
		}
	}

	if size := shapeSize(shape); size != len(data) {
		return Tensor{}, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShapeMismatch, shape, size, len(data))
	}

	return Tensor{shape: slices.Clone(shape), data: slices.Clone(data)}, nil
}

// MustNew is like New but panics on error.
func MustNew(shape []int, data []float64) Tensor {
	t, err := New(shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar returns a zero-rank tensor holding v.
func Scalar(v float64) Tensor {
	return Tensor{data: []float64{v}}
}

// Vector returns a rank 1 tensor holding values.
func Vector(values ...float64) Tensor {
	return Tensor{shape: []int{len(values)}, data: slices.Clone(values)}
}

// Shape returns a copy of the tensor dimensions, nil for scalars.
func (t Tensor) Shape() []int {
	if len(t.shape) == 0 {
		return nil
	}
	return slices.Clone(t.shape)
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int {
	return len(t.shape)
}

// Size returns the number of elements.
func (t Tensor) Size() int {
	return len(t.data)
}

// Values returns a copy of the elements in row-major order.
func (t Tensor) Values() []float64 {
	return slices.Clone(t.data)
}

// Item returns the only element of a tensor holding exactly one value.
func (t Tensor) Item() (float64, error) {
	if len(t.data) != 1 {
		return 0, fmt.Errorf("%w: tensor of shape %v has %d elements, not one", ErrShapeMismatch, t.shape, len(t.data))
	}
	return t.data[0], nil
}

// String formats the tensor the way NumPy prints arrays: scalars as plain numbers and
// nested brackets for every dimension.
func (t Tensor) String() string {
	if len(t.shape) == 0 {
		if len(t.data) == 0 {
			return "[]"
		}
		return formatFloat(t.data[0])
	}

	builder := new(strings.Builder)
	t.format(builder, 0, 0)
	return builder.String()
}

func (t Tensor) format(builder *strings.Builder, dim, offset int) {
	builder.WriteByte('[')
	stride := shapeSize(t.shape[dim+1:])
	for i := range t.shape[dim] {
		if i > 0 {
			builder.WriteByte(' ')
		}
		if dim == len(t.shape)-1 {
			builder.WriteString(formatFloat(t.data[offset+i]))
			continue
		}
		t.format(builder, dim+1, offset+i*stride)
	}
	builder.WriteByte(']')
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func shapeSize(shape []int) int {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}
