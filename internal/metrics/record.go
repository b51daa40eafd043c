// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/fedlog/internal/numeric"
)

var (
	// ErrInvalidRecord reports a record missing required fields or holding a malformed value.
	ErrInvalidRecord = errors.New("invalid metric record")
)

// Record is a single metric observation as read from files or received by the ingest server.
type Record struct {
	Writer string   `json:"writer" yaml:"writer"`
	Metric string   `json:"metric" yaml:"metric"`
	Round  int      `json:"round" yaml:"round"`
	Value  Value    `json:"value" yaml:"value"`
	Count  *float64 `json:"count,omitempty" yaml:"count,omitempty"`
}

// Validate checks the required fields of the record.
func (r Record) Validate() error {
	missing := make([]string, 0)
	if r.Writer == "" {
		missing = append(missing, "writer")
	}
	if r.Metric == "" {
		missing = append(missing, "metric")
	}
	if r.Value.Size() == 0 && r.Value.Rank() == 0 {
		missing = append(missing, "value")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return nil
}

// Resolve returns the value to log. When Count is set Value holds a sum and the mean is
// returned, 0 for a zero count.
func (r Record) Resolve() numeric.Tensor {
	if r.Count == nil {
		return r.Value.Tensor
	}
	return numeric.SafeDiv(r.Value.Tensor, numeric.Scalar(*r.Count))
}

// LogRecord validates record and logs its resolved value.
func (l *Logger) LogRecord(record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return l.Log(record.Writer, record.Metric, record.Resolve(), record.Round)
}

// Value is a metric value decoded from a number or a, possibly nested, list of numbers.
type Value struct {
	numeric.Tensor
}

// UnmarshalJSON decodes a number or a rectangular nested array of numbers.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return v.set(raw)
}

// UnmarshalYAML decodes a number or a rectangular nested sequence of numbers.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return v.set(raw)
}

func (v *Value) set(raw any) error {
	shape := make([]int, 0)
	data := make([]float64, 0)
	if err := flatten(raw, 0, &shape, &data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	tensor, err := numeric.New(shape, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	v.Tensor = tensor
	return nil
}

// flatten walks raw depth first, recording the length of each nesting level in shape the first
// time it is reached and rejecting ragged arrays.
func flatten(raw any, depth int, shape *[]int, data *[]float64) error {
	switch value := raw.(type) {
	case []any:
		switch {
		case depth == len(*shape):
			*shape = append(*shape, len(value))
		case (*shape)[depth] != len(value):
			return fmt.Errorf("ragged array: expected %d elements at depth %d, got %d", (*shape)[depth], depth, len(value))
		}
		for _, element := range value {
			if err := flatten(element, depth+1, shape, data); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return errors.New("null is not a number")
	default:
		if depth != len(*shape) {
			return fmt.Errorf("ragged array: number found at depth %d", depth)
		}
		number, err := toFloat(value)
		if err != nil {
			return err
		}
		*data = append(*data, number)
		return nil
	}
}

func toFloat(raw any) (float64, error) {
	switch value := raw.(type) {
	case float64:
		return value, nil
	case int:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case uint64:
		return float64(value), nil
	default:
		return 0, fmt.Errorf("%v (%T) is not a number", raw, raw)
	}
}

// DecodeRecords decodes a JSON object or array of objects into records. Unknown fields are rejected.
func DecodeRecords(body []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidRecord)
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()

	if trimmed[0] == '[' {
		records := make([]Record, 0)
		if err := decoder.Decode(&records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		return records, nil
	}

	record := Record{}
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return []Record{record}, nil
}
