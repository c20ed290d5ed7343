// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import "errors"

var (
	// ErrCorruptStore means the history file is missing, unreadable or malformed.
	// It is never repaired automatically; `clear` initializes a fresh store.
	ErrCorruptStore = errors.New("corrupt history store")

	// ErrIndexOutOfRange is returned by Take for selectors that do not name an entry.
	ErrIndexOutOfRange = errors.New("history index out of range")
)
