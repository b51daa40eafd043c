// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package tfevents

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

const fileVersion = "brain.Event:2"

// Field numbers of tensorflow.Event, tensorflow.Summary, tensorflow.Summary.Value and
// tensorflow.HistogramProto.
const (
	eventWallTime    protowire.Number = 1
	eventStep        protowire.Number = 2
	eventFileVersion protowire.Number = 3
	eventSummary     protowire.Number = 5

	summaryValue protowire.Number = 1

	valueTag         protowire.Number = 1
	valueSimpleValue protowire.Number = 2
	valueHisto       protowire.Number = 5

	histoMin         protowire.Number = 1
	histoMax         protowire.Number = 2
	histoNum         protowire.Number = 3
	histoSum         protowire.Number = 4
	histoSumSquares  protowire.Number = 5
	histoBucketLimit protowire.Number = 6
	histoBucket      protowire.Number = 7
)

// Event is the decoded form of a record in an event file.
type Event struct {
	WallTime    float64
	Step        int64
	FileVersion string
	Values      []Value
}

// Value is a single summary value. Exactly one of Scalar and Histogram is set.
type Value struct {
	Tag       string
	Scalar    *float32
	Histogram *Histogram
}

// Histogram mirrors tensorflow.HistogramProto: Bucket[i] counts the values in
// (BucketLimit[i-1], BucketLimit[i]], the first bucket starting at Min.
type Histogram struct {
	Min         float64
	Max         float64
	Num         float64
	Sum         float64
	SumSquares  float64
	BucketLimit []float64
	Bucket      []float64
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendPackedDoubles(b []byte, num protowire.Number, values []float64) []byte {
	packed := make([]byte, 0, 8*len(values))
	for _, v := range values {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendMessage(b []byte, num protowire.Number, message []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, message)
}

// marshal encodes the event in the protocol buffer wire format.
func (e Event) marshal() []byte {
	b := appendDouble(nil, eventWallTime, e.WallTime)
	if e.Step != 0 {
		b = protowire.AppendTag(b, eventStep, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Step))
	}

	if e.FileVersion != "" {
		b = protowire.AppendTag(b, eventFileVersion, protowire.BytesType)
		return protowire.AppendString(b, e.FileVersion)
	}

	var summary []byte
	for _, value := range e.Values {
		summary = appendMessage(summary, summaryValue, value.marshal())
	}
	return appendMessage(b, eventSummary, summary)
}

func (v Value) marshal() []byte {
	b := protowire.AppendTag(nil, valueTag, protowire.BytesType)
	b = protowire.AppendString(b, v.Tag)

	switch {
	case v.Scalar != nil:
		b = protowire.AppendTag(b, valueSimpleValue, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(*v.Scalar))
	case v.Histogram != nil:
		b = appendMessage(b, valueHisto, v.Histogram.marshal())
	}
	return b
}

func (h Histogram) marshal() []byte {
	b := appendDouble(nil, histoMin, h.Min)
	b = appendDouble(b, histoMax, h.Max)
	b = appendDouble(b, histoNum, h.Num)
	b = appendDouble(b, histoSum, h.Sum)
	b = appendDouble(b, histoSumSquares, h.SumSquares)
	b = appendPackedDoubles(b, histoBucketLimit, h.BucketLimit)
	return appendPackedDoubles(b, histoBucket, h.Bucket)
}

// fieldVisitor receives every field of a message. raw holds the varint or fixed value and
// data the content of length delimited fields.
type fieldVisitor func(num protowire.Number, typ protowire.Type, raw uint64, data []byte) error

func consumeFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var raw uint64
		var data []byte
		switch typ {
		case protowire.VarintType:
			raw, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			raw = uint64(v)
		case protowire.Fixed64Type:
			raw, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			data, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := visit(num, typ, raw, data); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalEvent(b []byte) (Event, error) {
	var event Event
	err := consumeFields(b, func(num protowire.Number, _ protowire.Type, raw uint64, data []byte) error {
		switch num {
		case eventWallTime:
			event.WallTime = math.Float64frombits(raw)
		case eventStep:
			event.Step = int64(raw)
		case eventFileVersion:
			event.FileVersion = string(data)
		case eventSummary:
			return consumeFields(data, func(num protowire.Number, _ protowire.Type, _ uint64, data []byte) error {
				if num != summaryValue {
					return nil
				}
				value, err := unmarshalValue(data)
				if err != nil {
					return err
				}
				event.Values = append(event.Values, value)
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return event, nil
}

func unmarshalValue(b []byte) (Value, error) {
	var value Value
	err := consumeFields(b, func(num protowire.Number, _ protowire.Type, raw uint64, data []byte) error {
		switch num {
		case valueTag:
			value.Tag = string(data)
		case valueSimpleValue:
			scalar := math.Float32frombits(uint32(raw))
			value.Scalar = &scalar
		case valueHisto:
			histogram, err := unmarshalHistogram(data)
			if err != nil {
				return err
			}
			value.Histogram = &histogram
		}
		return nil
	})
	return value, err
}

func unmarshalHistogram(b []byte) (Histogram, error) {
	var histogram Histogram
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, raw uint64, data []byte) error {
		switch num {
		case histoMin:
			histogram.Min = math.Float64frombits(raw)
		case histoMax:
			histogram.Max = math.Float64frombits(raw)
		case histoNum:
			histogram.Num = math.Float64frombits(raw)
		case histoSum:
			histogram.Sum = math.Float64frombits(raw)
		case histoSumSquares:
			histogram.SumSquares = math.Float64frombits(raw)
		case histoBucketLimit:
			histogram.BucketLimit = append(histogram.BucketLimit, unpackDoubles(typ, raw, data)...)
		case histoBucket:
			histogram.Bucket = append(histogram.Bucket, unpackDoubles(typ, raw, data)...)
		}
		return nil
	})
	return histogram, err
}

// unpackDoubles handles both the packed and the unpacked encoding of repeated doubles.
func unpackDoubles(typ protowire.Type, raw uint64, data []byte) []float64 {
	if typ == protowire.Fixed64Type {
		return []float64{math.Float64frombits(raw)}
	}

	values := make([]float64, 0, len(data)/8)
	for len(data) >= 8 {
		v, n := protowire.ConsumeFixed64(data)
		values = append(values, math.Float64frombits(v))
		data = data[n:]
	}
	return values
}
