// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package config loads the fedlog configuration: summary settings from the environment and
// metric record files used for replays.
package config
