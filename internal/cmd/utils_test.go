// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mia-platform/fedlog/internal/logger"
)

// setupTestFileStructure creates a test file structure under the given baseDir.
func setupTestFileStructure(tb testing.TB, baseDir string) {
	tb.Helper()

	require.NoError(tb, os.MkdirAll(filepath.Join(baseDir, "valid", "subdir"), os.ModePerm))
	require.NoError(tb, os.WriteFile(filepath.Join(baseDir, "valid", "records.yaml"), []byte(testRecords), os.ModePerm))
	require.NoError(tb, os.WriteFile(filepath.Join(baseDir, "valid", "subdir", "file.txt"), []byte("txt file"), os.ModePerm))
	require.NoError(tb, os.WriteFile(filepath.Join(baseDir, "invalid.yaml"), []byte("\tinvalid yaml file"), os.ModePerm))
}

const testRecords = `writer: train
metric: loss
round: 1
value: 0.5
---
writer: train
metric: loss
round: 2
value: 0.25
---
writer: eval
metric: client_weights
round: 2
value: [1, 2, 3]
---
writer: eval
metric: mean_loss
round: 2
value: 4
count: 0
`

// testContext returns a context carrying a logger writing to the returned buffer.
func testContext(tb testing.TB) (context.Context, *bytes.Buffer) {
	tb.Helper()

	buffer := new(bytes.Buffer)
	return logger.WithContext(tb.Context(), logger.NewLogger(buffer)), buffer
}
