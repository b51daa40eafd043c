// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mia-platform/fedlog/internal/config"
	"github.com/mia-platform/fedlog/internal/metrics"
	"github.com/mia-platform/fedlog/internal/server"
)

var (
	errNoArguments      = errors.New("no arguments provided")
	errInvalidArguments = errors.New("invalid arguments")

	// serverGetter returns the server used by the serve command.
	// It can be overridden for testing purposes.
	serverGetter = server.NewServer
)

// handleError will do custom print error handling based on the type of error received.
// it will return nil if the command must return 0 exit code, otherwise it will return
// the original error.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errNoArguments):
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return nil
	case errors.Is(err, errInvalidArguments):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

// unwrappedError returns the unwrapped error if available, otherwise it returns the original error.
func unwrappedError(err error) error {
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		return unwrapped
	}

	return err
}

// collectPaths expands every path to the files it contains. Directories are not walked recursively.
func collectPaths(paths []string) ([]string, error) {
	collected := make([]string, 0)
	for _, p := range paths {
		cleanedPath := filepath.Clean(p)
		err := filepath.Walk(cleanedPath, func(walkedPath string, info fs.FileInfo, err error) error {
			if err != nil {
				return fmt.Errorf("records file %q: %w", walkedPath, unwrappedError(err))
			}

			switch {
			case !info.IsDir(): // it's a file add to the collection
				collected = append(collected, walkedPath)
			case info.IsDir() && cleanedPath != walkedPath: // skip directories if is not the root path
				return filepath.SkipDir
			}

			return nil
		})

		if err != nil {
			return nil, err
		}
	}

	return collected, nil
}

// loadRecords reads the records of every path, keeping file order.
func loadRecords(paths []string) ([]metrics.Record, error) {
	records := make([]metrics.Record, 0)
	for _, path := range paths {
		fileRecords, err := config.NewRecordsFromPath(path)
		if err != nil {
			return nil, err
		}

		records = append(records, fileRecords...)
	}

	return records, nil
}

// summaryOptions holds the resolved persistence settings of a command.
type summaryOptions struct {
	rootDir string
	backend string
}

// metricLogger creates the metric logger described by the options.
func (o summaryOptions) metricLogger(ctx context.Context) *metrics.Logger {
	return metrics.NewLogger(ctx, o.rootDir, metrics.WithBackendName(o.backend))
}
