// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package numeric

var (
	one  = Scalar(1)
	zero = Scalar(0)
)

// TrySafeDiv divides a by b elementwise, returning 0 wherever b is exactly 0.
//
// The zero positions are never divided: b is first replaced by 1 there and the quotient is
// masked afterwards. Computing a/b and masking the result instead would leave NaN in the
// derivative of the masked positions (0 * Inf), see SafeDivVJP.
func TrySafeDiv(a, b Tensor) (Tensor, error) {
	safe := NotEqual(b, 0)

	divisor, err := Where(safe, b, one)
	if err != nil {
		return Tensor{}, err
	}

	quotient, err := Div(a, divisor)
	if err != nil {
		return Tensor{}, err
	}

	return Where(safe, quotient, zero)
}

// SafeDiv is TrySafeDiv for operands known to broadcast together. It panics on a shape mismatch.
func SafeDiv(a, b Tensor) Tensor {
	out, err := TrySafeDiv(a, b)
	if err != nil {
		panic(err)
	}
	return out
}

// SafeDivFloat is the scalar form of SafeDiv.
func SafeDivFloat(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// SafeDivVJP returns the vector-Jacobian product of SafeDiv at (a, b) for the upstream gradient g,
// reduced to the shapes of a and b. g must broadcast to the shape of SafeDiv(a, b).
//
// The gradient follows the same path as the forward pass: it is masked by the outer selection,
// flows through the quotient computed with the placeholder divisor and is masked again by the
// inner selection, so it is exactly 0 wherever b is 0.
func SafeDivVJP(a, b, g Tensor) (Tensor, Tensor, error) {
	shape, err := Broadcast(a.shape, b.shape)
	if err != nil {
		return Tensor{}, Tensor{}, err
	}

	upstream, err := BroadcastTo(g, shape)
	if err != nil {
		return Tensor{}, Tensor{}, err
	}

	safe := NotEqual(b, 0)
	divisor := mapN(b.shape, func(v []float64) float64 {
		if v[0] != 0 {
			return v[0]
		}
		return 1
	}, b)

	// outer where: the quotient only receives gradient where b is nonzero
	dQuotient := mapN(shape, func(v []float64) float64 {
		if v[0] != 0 {
			return v[1]
		}
		return 0
	}, safe, upstream)

	dNumerator := mapN(shape, func(v []float64) float64 { return v[0] / v[1] }, dQuotient, divisor)
	dDivisor := mapN(shape, func(v []float64) float64 { return -v[0] * v[1] / (v[2] * v[2]) }, dQuotient, a, divisor)

	da, err := SumTo(dNumerator, a.shape)
	if err != nil {
		return Tensor{}, Tensor{}, err
	}

	dDivisorReduced, err := SumTo(dDivisor, b.shape)
	if err != nil {
		return Tensor{}, Tensor{}, err
	}

	// inner where: the placeholder 1 is a constant, b only receives gradient where it was kept
	db := mapN(b.shape, func(v []float64) float64 {
		if v[0] != 0 {
			return v[1]
		}
		return 0
	}, safe, dDivisorReduced)

	return da, db, nil
}
