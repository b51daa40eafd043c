// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mia-platform/fedlog/internal/config"
	"github.com/mia-platform/fedlog/internal/summary"
)

const (
	rootDirFlagName  = "root-dir"
	rootDirFlagShort = "d"
	rootDirFlagUsage = "Directory where summaries are written, one subdirectory per writer. Summaries are not persisted if empty (env SUMMARY_ROOT_DIR)"

	backendFlagName  = "backend"
	backendFlagUsage = "Name of the summary backend used to persist summaries, one of: %s (env SUMMARY_BACKEND)"

	recordsFileFlagName  = "records-file"
	recordsFileFlagShort = "f"
	recordsFileFlagUsage = "Path to a file or directory containing metric records. Can be specified multiple times."

	histogramFlagName  = "histogram"
	histogramFlagUsage = "Record the values as a histogram even when a single value is given"

	countFlagName  = "count"
	countFlagUsage = "Divide the values by count before logging them; a zero count logs 0"
)

// summaryFlags collects the persistence flags shared by the commands writing summaries.
type summaryFlags struct {
	rootDir string
	backend string
}

// addFlags registers the persistence flags on cmd.
func (f *summaryFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.rootDir, rootDirFlagName, rootDirFlagShort, "", rootDirFlagUsage)
	cmd.Flags().StringVar(&f.backend, backendFlagName, "", fmt.Sprintf(backendFlagUsage, strings.Join(summary.Backends(), ", ")))
}

// toOptions merges the flags with the environment configuration, flags taking precedence.
func (f *summaryFlags) toOptions(cmd *cobra.Command) (summaryOptions, error) {
	cfg, err := config.LoadSummaryConfig()
	if err != nil {
		return summaryOptions{}, err
	}

	opts := summaryOptions{rootDir: cfg.RootDir, backend: cfg.Backend}
	if cmd.Flags().Changed(rootDirFlagName) {
		opts.rootDir = f.rootDir
	}
	if cmd.Flags().Changed(backendFlagName) {
		opts.backend = f.backend
	}
	return opts, nil
}

// logFlags holds the flags of the log command.
type logFlags struct {
	summaryFlags

	histogram bool
	count     float64
}

func (f *logFlags) addFlags(cmd *cobra.Command) {
	f.summaryFlags.addFlags(cmd)
	cmd.Flags().BoolVar(&f.histogram, histogramFlagName, false, histogramFlagUsage)
	cmd.Flags().Float64Var(&f.count, countFlagName, 0, countFlagUsage)
}

// replayFlags holds the flags of the replay command.
type replayFlags struct {
	summaryFlags

	recordsPaths []string
}

func (f *replayFlags) addFlags(cmd *cobra.Command) {
	f.summaryFlags.addFlags(cmd)
	cmd.Flags().StringArrayVarP(
		&f.recordsPaths,
		recordsFileFlagName,
		recordsFileFlagShort,
		nil,
		recordsFileFlagUsage)
}
