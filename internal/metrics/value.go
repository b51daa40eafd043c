// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package metrics

import (
	"fmt"

	"github.com/mia-platform/fedlog/internal/summary"
)

// shaped is implemented by array values able to describe their dimensions, like numeric.Tensor.
type shaped interface {
	Shape() []int
}

// elements is implemented by array values exposing their elements in row-major order.
type elements interface {
	Values() []float64
}

// record writes value as a histogram when it has at least one dimension and as a scalar otherwise.
func record(writer summary.Writer, tag string, value any, step int64) error {
	values, isArray, err := arrayValues(value)
	if err != nil {
		return err
	}
	if isArray {
		return writer.Histogram(tag, values, step)
	}

	scalar, err := scalarValue(value)
	if err != nil {
		return err
	}
	return writer.Scalar(tag, scalar, step)
}

// arrayValues reports whether value has rank > 0 and returns its elements.
func arrayValues(value any) ([]float64, bool, error) {
	switch v := value.(type) {
	case []float64:
		return v, true, nil
	case []float32:
		return convertSlice(v), true, nil
	case []int:
		return convertSlice(v), true, nil
	case []int32:
		return convertSlice(v), true, nil
	case []int64:
		return convertSlice(v), true, nil
	case shaped:
		if len(v.Shape()) == 0 {
			return nil, false, nil
		}
		if e, ok := value.(elements); ok {
			return e.Values(), true, nil
		}
		return nil, true, fmt.Errorf("%w: value of shape %v does not expose its elements", summary.ErrUnimplemented, v.Shape())
	default:
		return nil, false, nil
	}
}

func convertSlice[T float32 | int | int32 | int64](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// scalarValue converts value to a float64 summary value.
func scalarValue(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case interface{ Item() (float64, error) }:
		item, err := v.Item()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", summary.ErrValue, err)
		}
		return item, nil
	default:
		return 0, fmt.Errorf("%w: cannot convert %T to a number", summary.ErrValue, value)
	}
}
