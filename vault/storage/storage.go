// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "errors"

var (
	// ErrCorruptBlobName is returned when the blob directory holds a file
	// whose name is not a decimal number and strict naming is enabled.
	ErrCorruptBlobName = errors.New("corrupt blob name")

	// ErrForeignReference is returned for references that do not name a
	// numbered file inside the blob directory.
	ErrForeignReference = errors.New("foreign blob reference")
)

// Reference is the value a binary history entry keeps in place of its payload.
// It is the path of the blob file.
type Reference string

// Backend is the interface for blob storage implementations.
//
// Every reference handed out by Write is owned by exactly one history entry;
// callers must only Read or Delete references they know to be live.
type Backend interface {
	// Next returns the number the next blob should be written under.
	Next() (int, error)

	// Write stores data under number n, replacing any existing blob.
	Write(n int, data []byte) (Reference, error)

	// Read returns the full payload of a blob.
	Read(ref Reference) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is an error.
	Delete(ref Reference) error

	// Purge removes every file in the blob directory, referenced or not.
	Purge() error
}
