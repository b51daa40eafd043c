// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/fedlog/internal/metrics"
)

var (
	// ErrParsing reports failures that occur while decoding record files.
	ErrParsing = errors.New("error parsing")
)

// NewRecordsFromPath parses the file at path and returns the metric records it contains in order.
// Every YAML document of the file holds one record; JSON files holding one object are accepted too.
func NewRecordsFromPath(path string) ([]metrics.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	records := make([]metrics.Record, 0)
	for {
		record := new(metrics.Record)
		err := decoder.Decode(&record)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
		}

		// Skip empty documents.
		if record == nil {
			continue
		}

		if err := record.Validate(); err != nil {
			return nil, fmt.Errorf("%w %q: document %d: %w", ErrParsing, path, len(records)+1, err)
		}

		records = append(records, *record)
	}

	return records, nil
}
