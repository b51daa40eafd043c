// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	logCmdUse   = "log WRITER METRIC ROUND VALUE..."
	logCmdShort = "log a single metric for a training round"
	logCmdLong  = `Log a single metric for a training round.
	The metric is always written to the diagnostic log. When a root directory is
	configured it is also persisted as a summary in the WRITER subdirectory: a single
	VALUE is recorded as a scalar, more values as a histogram.`

	logCmdExample = `# Log the training loss of round 3
	fedlog log train loss 3 0.42 --root-dir ./summaries

	# Log the mean loss of a client from its sum, reporting 0 for clients without examples
	fedlog log train loss 3 12.6 --count 30 --root-dir ./summaries`

	replayCmdUse   = "replay"
	replayCmdShort = "log every metric record contained in the given files"
	replayCmdLong  = `Log every metric record contained in the given files.
	Record files are YAML documents, one record per document, with the fields
	writer, metric, round, value and the optional count. Records are logged in
	file order.`

	replayCmdExample = `# Replay the records of a simulation into TensorBoard event files
	fedlog replay -f records.yaml --root-dir ./summaries`

	serveCmdUse   = "serve"
	serveCmdShort = "start the metric ingest server"
	serveCmdLong  = `Start the metric ingest server.
	Federated clients can POST metric records, a JSON object or an array of
	objects, to the /metrics path. The server is configured with the HTTP_HOST and
	HTTP_PORT environment variables and stops on SIGINT or SIGTERM after
	closing every summary writer.`

	serveCmdExample = `# Collect the metrics sent by clients
	HTTP_PORT=8080 fedlog serve --root-dir ./summaries`

	inspectCmdUse   = "inspect ROOT_DIR"
	inspectCmdShort = "print the summaries persisted under a root directory"
	inspectCmdLong  = `Print the summaries persisted under a root directory.
	Every writer subdirectory is read and its summaries are printed in the same
	format used by the diagnostic log.`

	inspectCmdExample = `# Print the summaries written by a training run
	fedlog inspect ./summaries`
)

// LogCmd returns the Cobra command that logs a single metric.
func LogCmd() *cobra.Command {
	flags := &logFlags{}
	cmd := &cobra.Command{
		Use:     logCmdUse,
		Short:   heredoc.Doc(logCmdShort),
		Long:    heredoc.Doc(logCmdLong),
		Example: heredoc.Doc(logCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// ReplayCmd returns the Cobra command that logs the records of files.
func ReplayCmd() *cobra.Command {
	flags := &replayFlags{}
	cmd := &cobra.Command{
		Use:     replayCmdUse,
		Short:   heredoc.Doc(replayCmdShort),
		Long:    heredoc.Doc(replayCmdLong),
		Example: heredoc.Doc(replayCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.toOptions(cmd)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// ServeCmd returns the Cobra command that starts the ingest server.
func ServeCmd() *cobra.Command {
	flags := &summaryFlags{}
	cmd := &cobra.Command{
		Use:     serveCmdUse,
		Short:   heredoc.Doc(serveCmdShort),
		Long:    heredoc.Doc(serveCmdLong),
		Example: heredoc.Doc(serveCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summaryOpts, err := flags.toOptions(cmd)
			if err != nil {
				return handleError(cmd, err)
			}

			opts := &serveOptions{summaryOptions: summaryOpts, serverGetter: serverGetter}
			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// InspectCmd returns the Cobra command that prints persisted summaries.
func InspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     inspectCmdUse,
		Short:   heredoc.Doc(inspectCmdShort),
		Long:    heredoc.Doc(inspectCmdLong),
		Example: heredoc.Doc(inspectCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return nil, cobra.ShellCompDirectiveFilterDirs
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &inspectOptions{out: cmd.OutOrStdout()}
			if len(args) > 0 {
				opts.rootDir = args[0]
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	return cmd
}
