// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package summary defines the contracts of the summary persistence layer: a Backend opens
// one Writer per output directory and a Writer records scalar and histogram summaries keyed
// by step.
// Backends are optional capabilities. They register themselves by name from an init function
// and are enabled with a blank import, so a binary that never persists summaries does not
// link any of them.
package summary
