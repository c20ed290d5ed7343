// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/nostalgicskinco/clipvault/vault/storage"
)

// Class says where an entry's payload lives.
type Class int

const (
	// Inline payloads are kept in the history file.
	Inline Class = iota
	// Binary payloads are kept in the blob store; the entry holds a reference.
	Binary
)

func (c Class) String() string {
	if c == Binary {
		return "binary"
	}
	return "inline"
}

const binaryPrefix = "image"

// Classify returns Binary iff mimetype starts with "image".
func Classify(mimetype string) Class {
	if strings.HasPrefix(mimetype, binaryPrefix) {
		return Binary
	}
	return Inline
}

// Entry is one history record.
type Entry struct {
	Mimetype string  `yaml:"mimetype"`
	Payload  Payload `yaml:"payload"`
}

// Class classifies the entry by its mimetype.
func (e Entry) Class() Class { return Classify(e.Mimetype) }

// Reference returns the blob reference of a binary entry.
func (e Entry) Reference() storage.Reference { return storage.Reference(e.Payload) }

const (
	binaryTag = "!!binary"
	nullTag   = "!!null"
	strTag    = "!!str"
)

// Payload is raw entry content. Valid UTF-8 is always written as a
// double-quoted YAML string so indentation and line breaks survive; anything
// else becomes a base64 !!binary scalar.
type Payload []byte

// MarshalYAML implements yaml.Marshaler.
func (p Payload) MarshalYAML() (any, error) {
	if utf8.Valid(p) {
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   strTag,
			Style: yaml.DoubleQuotedStyle,
			Value: string(p),
		}, nil
	}
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   binaryTag,
		Value: base64.StdEncoding.EncodeToString(p),
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Payload) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: payload must be a scalar", n.Line)
	}
	switch n.ShortTag() {
	case binaryTag:
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return fmt.Errorf("line %d: bad binary payload: %w", n.Line, err)
		}
		*p = data
	case nullTag:
		*p = nil
	default:
		*p = Payload(n.Value)
	}
	return nil
}
