// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package numeric holds the small dense tensor type used for metric values and the
// elementwise helpers needed by gradient computations, most notably SafeDiv.
package numeric
