// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mia-platform/fedlog/internal/logger"
	"github.com/mia-platform/fedlog/internal/metrics"
	"github.com/mia-platform/fedlog/internal/numeric"
	"github.com/mia-platform/fedlog/internal/server"
	"github.com/mia-platform/fedlog/internal/summary/tfevents"
)

const (
	loggerName  = "fedlog:cmd"
	metricsPath = "/metrics"
)

// logOptions configures a single metric log.
type logOptions struct {
	summaryOptions

	record metrics.Record
}

func (f *logFlags) toOptions(cmd *cobra.Command, args []string) (*logOptions, error) {
	if len(args) == 0 {
		return nil, errNoArguments
	}
	if len(args) < 4 {
		return nil, fmt.Errorf("%w: expected WRITER METRIC ROUND VALUE..., got %d arguments", errInvalidArguments, len(args))
	}

	round, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, fmt.Errorf("%w: round %q is not an integer", errInvalidArguments, args[2])
	}

	values := make([]float64, 0, len(args)-3)
	for _, arg := range args[3:] {
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q is not a number", errInvalidArguments, arg)
		}
		values = append(values, value)
	}

	value := numeric.Vector(values...)
	if len(values) == 1 && !f.histogram {
		value = numeric.Scalar(values[0])
	}

	record := metrics.Record{
		Writer: args[0],
		Metric: args[1],
		Round:  round,
		Value:  metrics.Value{Tensor: value},
	}
	if cmd.Flags().Changed(countFlagName) {
		count := f.count
		record.Count = &count
	}

	summaryOpts, err := f.summaryFlags.toOptions(cmd)
	if err != nil {
		return nil, err
	}

	return &logOptions{summaryOptions: summaryOpts, record: record}, nil
}

func (o *logOptions) validate() error {
	if err := o.record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errInvalidArguments, err)
	}
	return nil
}

func (o *logOptions) execute(ctx context.Context) error {
	metricLogger := o.metricLogger(ctx)
	err := metricLogger.LogRecord(o.record)
	return errors.Join(err, metricLogger.Close())
}

// replayOptions configures the replay of record files.
type replayOptions struct {
	summaryOptions

	recordsPaths []string
}

func (f *replayFlags) toOptions(cmd *cobra.Command) (*replayOptions, error) {
	paths, err := collectPaths(f.recordsPaths)
	if err != nil {
		return nil, err
	}

	summaryOpts, err := f.summaryFlags.toOptions(cmd)
	if err != nil {
		return nil, err
	}

	return &replayOptions{summaryOptions: summaryOpts, recordsPaths: paths}, nil
}

func (o *replayOptions) validate() error {
	if len(o.recordsPaths) == 0 {
		return errNoArguments
	}
	return nil
}

func (o *replayOptions) execute(ctx context.Context) error {
	records, err := loadRecords(o.recordsPaths)
	if err != nil {
		return err
	}

	metricLogger := o.metricLogger(ctx)
	for _, record := range records {
		if err := metricLogger.LogRecord(record); err != nil {
			return errors.Join(err, metricLogger.Close())
		}
	}

	logger.NamedFromContext(ctx, loggerName).Debug("replay completed", "records", len(records), "files", len(o.recordsPaths))
	return metricLogger.Close()
}

// serveOptions configures the ingest server.
type serveOptions struct {
	summaryOptions

	serverGetter func(context.Context) (server.Server, error)
}

func (o *serveOptions) execute(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := o.serverGetter(ctx)
	if err != nil {
		return err
	}

	metricLogger := o.metricLogger(ctx)
	srv.AddRoute(http.MethodPost, metricsPath, ingestHandler(metricLogger))

	log := logger.NamedFromContext(ctx, loggerName)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(srv.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down ingest server")
		return srv.Stop()
	})

	return errors.Join(group.Wait(), metricLogger.Close())
}

// ingestHandler logs every record of the request body and flushes the writers before answering.
func ingestHandler(metricLogger *metrics.Logger) server.Handler {
	return func(_ context.Context, _ http.Header, body []byte) error {
		records, err := metrics.DecodeRecords(body)
		if err != nil {
			return fmt.Errorf("%w: %w", server.ErrBadRequest, err)
		}

		for _, record := range records {
			if err := record.Validate(); err != nil {
				return fmt.Errorf("%w: %w", server.ErrBadRequest, err)
			}
		}

		for _, record := range records {
			if err := metricLogger.LogRecord(record); err != nil {
				return err
			}
		}
		return metricLogger.Flush()
	}
}

// inspectOptions configures the dump of persisted summaries.
type inspectOptions struct {
	rootDir string
	out     io.Writer
}

func (o *inspectOptions) validate() error {
	if o.rootDir == "" {
		return errNoArguments
	}

	info, err := os.Stat(o.rootDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", errInvalidArguments, o.rootDir)
	}
	return nil
}

// execute prints every summary found under the root directory, one writer subdirectory at a time.
func (o *inspectOptions) execute() error {
	entries, err := os.ReadDir(o.rootDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		events, err := tfevents.ReadDir(filepath.Join(o.rootDir, entry.Name()))
		if err != nil {
			return err
		}

		for _, event := range events {
			for _, value := range event.Values {
				fmt.Fprintf(o.out, "round %d %s: %s = %s\n", event.Step, entry.Name(), value.Tag, formatSummaryValue(value))
			}
		}
	}
	return nil
}

func formatSummaryValue(value tfevents.Value) string {
	switch {
	case value.Scalar != nil:
		return strconv.FormatFloat(float64(*value.Scalar), 'g', -1, 32)
	case value.Histogram != nil:
		h := value.Histogram
		return fmt.Sprintf("histogram(num=%g min=%g max=%g mean=%g)", h.Num, h.Min, h.Max, numeric.SafeDivFloat(h.Sum, h.Num))
	default:
		return "<unsupported>"
	}
}
