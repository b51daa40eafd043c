// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/fedlog/internal/summary"
	"github.com/mia-platform/fedlog/internal/summary/tfevents"
)

func TestCmds(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		cmd                  *cobra.Command
		args                 []string
		expectedError        error
		expectedErrorMessage string
		expectedUsage        bool
	}{
		"log command with no arguments returns no error and print usage": {
			cmd:           LogCmd(),
			args:          []string{},
			expectedUsage: true,
		},
		"log command with missing value returns error and usage": {
			cmd:                  LogCmd(),
			args:                 []string{"train", "loss", "1"},
			expectedError:        errInvalidArguments,
			expectedErrorMessage: errInvalidArguments.Error() + ": expected WRITER METRIC ROUND VALUE..., got 3 arguments\n",
			expectedUsage:        true,
		},
		"log command with invalid round": {
			cmd:                  LogCmd(),
			args:                 []string{"train", "loss", "first", "1"},
			expectedError:        errInvalidArguments,
			expectedErrorMessage: errInvalidArguments.Error() + ": round \"first\" is not an integer\n",
			expectedUsage:        true,
		},
		"log command with invalid value": {
			cmd:                  LogCmd(),
			args:                 []string{"train", "loss", "1", "high"},
			expectedError:        errInvalidArguments,
			expectedErrorMessage: errInvalidArguments.Error() + ": value \"high\" is not a number\n",
			expectedUsage:        true,
		},
		"log command without root dir only logs": {
			cmd:  LogCmd(),
			args: []string{"train", "loss", "1", "0.5", "--" + rootDirFlagName, ""},
		},
		"replay command with no files print usage": {
			cmd:           ReplayCmd(),
			args:          []string{},
			expectedUsage: true,
		},
		"replay command missing path, return error no usage": {
			cmd:                  ReplayCmd(),
			args:                 []string{"--" + recordsFileFlagName, filepath.Join("testdata", "missing")},
			expectedError:        syscall.ENOENT,
			expectedErrorMessage: fmt.Sprintf("records file %q: %s\n", filepath.Join("testdata", "missing"), syscall.ENOENT),
		},
		"inspect command with no arguments print usage": {
			cmd:           InspectCmd(),
			args:          []string{},
			expectedUsage: true,
		},
		"inspect command missing directory": {
			cmd:           InspectCmd(),
			args:          []string{filepath.Join("testdata", "missing")},
			expectedError: syscall.ENOENT,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			ctx, _ := testContext(t)
			stderr := new(bytes.Buffer)
			stdout := new(bytes.Buffer)
			test.cmd.SetErr(stderr)
			test.cmd.SetOut(stdout)
			test.cmd.SetArgs(test.args)

			err := test.cmd.ExecuteContext(ctx)
			if test.expectedError != nil {
				require.ErrorIs(t, err, test.expectedError)
			} else {
				require.NoError(t, err)
			}

			if test.expectedErrorMessage != "" {
				assert.Equal(t, test.expectedErrorMessage, stderr.String())
			}
			assert.Equal(t, test.expectedUsage, bytes.Contains(stdout.Bytes(), []byte("Usage:")))
		})
	}
}

func TestLogCmdWritesSummaries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ctx, logs := testContext(t)

	for _, args := range [][]string{
		{"train", "loss", "1", "0.5"},
		{"train", "weights", "1", "1", "2", "3"},
		{"train", "single", "1", "4", "--" + histogramFlagName},
		{"eval", "mean", "2", "9", "--" + countFlagName, "0"},
	} {
		cmd := LogCmd()
		cmd.SetArgs(append(args, "--"+rootDirFlagName, root))
		require.NoError(t, cmd.ExecuteContext(ctx))
	}

	assert.Contains(t, logs.String(), "round 1 train: loss = 0.5")
	assert.Contains(t, logs.String(), "round 1 train: weights = [1 2 3]")
	assert.Contains(t, logs.String(), "round 2 eval: mean = 0")

	train, err := tfevents.ReadDir(filepath.Join(root, "train"))
	require.NoError(t, err)
	// every invocation opens a new event file, each starting with the file version event
	require.Len(t, train, 6)

	kinds := make(map[string]string)
	for _, event := range train {
		for _, value := range event.Values {
			kind := "scalar"
			if value.Histogram != nil {
				kind = "histogram"
			}
			kinds[value.Tag] = kind
		}
	}
	assert.Equal(t, map[string]string{"loss": "scalar", "weights": "histogram", "single": "histogram"}, kinds)

	eval, err := tfevents.ReadDir(filepath.Join(root, "eval"))
	require.NoError(t, err)
	require.Len(t, eval, 2)
	require.NotNil(t, eval[1].Values[0].Scalar)
	assert.Equal(t, float32(0), *eval[1].Values[0].Scalar)
	assert.Equal(t, int64(2), eval[1].Step)
}

func TestLogCmdMissingBackend(t *testing.T) {
	t.Parallel()

	ctx, _ := testContext(t)
	stderr := new(bytes.Buffer)
	cmd := LogCmd()
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"train", "loss", "1", "0.5", "--" + rootDirFlagName, t.TempDir(), "--" + backendFlagName, "unknown"})

	err := cmd.ExecuteContext(ctx)
	require.ErrorIs(t, err, summary.ErrMissingDependency)
	assert.Contains(t, stderr.String(), "pip install tensorflow-cpu")
	assert.Contains(t, stderr.String(), "Available summary backends: "+summary.DefaultBackend)
}

func TestReplayAndInspectCmds(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	setupTestFileStructure(t, tmpDir)
	root := filepath.Join(tmpDir, "summaries")
	ctx, _ := testContext(t)

	replay := ReplayCmd()
	replay.SetArgs([]string{"-f", filepath.Join(tmpDir, "valid"), "--" + rootDirFlagName, root})
	require.NoError(t, replay.ExecuteContext(ctx))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	stdout := new(bytes.Buffer)
	inspect := InspectCmd()
	inspect.SetOut(stdout)
	inspect.SetArgs([]string{root})
	require.NoError(t, inspect.ExecuteContext(ctx))

	expected := `round 2 eval: client_weights = histogram(num=3 min=1 max=3 mean=2)
round 2 eval: mean_loss = 0
round 1 train: loss = 0.5
round 2 train: loss = 0.25
`
	assert.Equal(t, expected, stdout.String())
}

func TestReplayCmdInvalidFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	setupTestFileStructure(t, tmpDir)
	ctx, _ := testContext(t)

	replay := ReplayCmd()
	replay.SetErr(new(bytes.Buffer))
	replay.SetArgs([]string{"-f", filepath.Join(tmpDir, "invalid.yaml"), "--" + rootDirFlagName, filepath.Join(tmpDir, "summaries")})
	require.Error(t, replay.ExecuteContext(ctx))

	_, err := os.Stat(filepath.Join(tmpDir, "summaries"))
	require.ErrorIs(t, err, os.ErrNotExist, "nothing is written when a file cannot be parsed")
}

func TestBackendFlagListsRegisteredBackends(t *testing.T) {
	t.Parallel()

	for _, cmd := range []*cobra.Command{LogCmd(), ReplayCmd(), ServeCmd()} {
		flag := cmd.Flags().Lookup(backendFlagName)
		require.NotNil(t, flag, cmd.Name())
		assert.Contains(t, flag.Usage, summary.DefaultBackend, cmd.Name())
	}
}
