// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package tfevents

import (
	"fmt"
	"math"

	"github.com/mia-platform/fedlog/internal/summary"
)

// defaultBucketCount matches the bucket count TensorBoard uses for histogram summaries.
const defaultBucketCount = 30

// newHistogram buckets values into count equal width buckets spanning [min, max].
func newHistogram(values []float64, count int) (*Histogram, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: histogram of an empty value", summary.ErrValue)
	}

	h := &Histogram{
		Min: math.Inf(1),
		Max: math.Inf(-1),
		Num: float64(len(values)),
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: histogram values must be finite, got %v", summary.ErrValue, v)
		}
		h.Min = min(h.Min, v)
		h.Max = max(h.Max, v)
		h.Sum += v
		h.SumSquares += v * v
	}

	if h.Min == h.Max {
		h.BucketLimit = []float64{h.Max}
		h.Bucket = []float64{h.Num}
		return h, nil
	}

	// the range of finite values can exceed float64, so positions are computed on scaled bounds
	n := float64(count)
	low, span := h.Min/n, h.Max/n-h.Min/n
	h.BucketLimit = make([]float64, count)
	h.Bucket = make([]float64, count)
	for i := range count - 1 {
		t := float64(i+1) / n
		h.BucketLimit[i] = h.Min*(1-t) + h.Max*t
	}
	h.BucketLimit[count-1] = h.Max

	for _, v := range values {
		index := int((v/n - low) / span * n)
		h.Bucket[min(max(index, 0), count-1)]++
	}
	return h, nil
}
