// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package clipboard reads and writes the live system clipboard.
package clipboard

import (
	"context"
	"errors"
)

// DefaultMimetype is reported for an empty or unreadable clipboard.
const DefaultMimetype = "text/plain"

// ErrGateway is returned when the clipboard rejects a write.
var ErrGateway = errors.New("clipboard write failed")

// Snapshot is the clipboard content at one point in time.
type Snapshot struct {
	Mimetype string
	Data     []byte
}

// Empty returns the snapshot of an empty clipboard.
func Empty() Snapshot {
	return Snapshot{Mimetype: DefaultMimetype, Data: []byte{}}
}

// Gateway is the live clipboard.
type Gateway interface {
	// Get never fails: an empty or unreadable clipboard yields Empty().
	Get(ctx context.Context) Snapshot

	// Set replaces the clipboard content. Failures wrap ErrGateway.
	Set(ctx context.Context, s Snapshot) error
}
