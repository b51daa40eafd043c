// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package tfevents implements a summary backend writing TensorBoard event files.
//
// Every writer owns one events.out.tfevents.* file made of TFRecord framed Event protocol
// buffer messages. Importing the package registers the backend as summary.DefaultBackend:
//
//	import _ "github.com/mia-platform/fedlog/internal/summary/tfevents"
package tfevents
