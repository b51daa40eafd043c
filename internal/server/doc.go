// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package server contains the HTTP server used to ingest metrics from federated clients.
// It sets up the Fiber application, configures the request logging middleware,
// and exposes the health and readiness routes.
package server
