// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package metrics records per round training metrics.
//
// Every call to Logger.Log emits a diagnostic log line. When the Logger has a root directory it
// also persists the metric as a summary: one summary writer is opened lazily per writer name,
// in a subdirectory of the root named after it, and reused for the lifetime of the Logger.
// Values with at least one dimension are recorded as histograms, everything else as scalars.
package metrics
