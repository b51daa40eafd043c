// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package numeric

// Map2 applies fn elementwise over the broadcast of a and b.
func Map2(a, b Tensor, fn func(x, y float64) float64) (Tensor, error) {
	shape, err := Broadcast(a.shape, b.shape)
	if err != nil {
		return Tensor{}, err
	}

	return mapN(shape, func(v []float64) float64 { return fn(v[0], v[1]) }, a, b), nil
}

// Div divides a by b elementwise with plain IEEE semantics.
func Div(a, b Tensor) (Tensor, error) {
	return Map2(a, b, func(x, y float64) float64 { return x / y })
}

// NotEqual returns a mask holding 1 where t differs from v and 0 elsewhere.
func NotEqual(t Tensor, v float64) Tensor {
	return mapN(t.shape, func(x []float64) float64 {
		if x[0] != v {
			return 1
		}
		return 0
	}, t)
}

// Where selects elements from x where mask is nonzero and from y elsewhere.
// The three operands are broadcast together.
func Where(mask, x, y Tensor) (Tensor, error) {
	shape, err := Broadcast(mask.shape, x.shape, y.shape)
	if err != nil {
		return Tensor{}, err
	}

	return mapN(shape, func(v []float64) float64 {
		if v[0] != 0 {
			return v[1]
		}
		return v[2]
	}, mask, x, y), nil
}
