// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Sealer protects clipboard payloads at rest.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Nop returns a Sealer that stores payloads as they are.
func Nop() Sealer { return nopSealer{} }

type nopSealer struct{}

func (nopSealer) Seal(p []byte) ([]byte, error) { return p, nil }
func (nopSealer) Open(p []byte) ([]byte, error) { return p, nil }

// Envelope provides AES-256-GCM sealing for history payloads and blob files.
type Envelope struct {
	aead cipher.AEAD
}

// NewEnvelope creates a new envelope from a hex-encoded 256-bit AES key.
func NewEnvelope(hexKey string) (*Envelope, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 256 bits (32 bytes), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Envelope{aead: gcm}, nil
}

// Seal encrypts plaintext with a random nonce.
// Returns ciphertext (nonce prepended).
func (e *Envelope) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext that was produced by Seal.
func (e *Envelope) Open(sealed []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
