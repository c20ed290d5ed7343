// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/collector/confmap"
	"go.opentelemetry.io/collector/confmap/provider/envprovider"
	"go.opentelemetry.io/collector/confmap/provider/fileprovider"
	"go.uber.org/zap/zapcore"

	"github.com/nostalgicskinco/clipvault/vault/crypto"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted.
const DefaultCapacity = 1000

// Config holds the configuration for clipvault.
type Config struct {
	// History configures the history file.
	History HistoryConfig `mapstructure:"history"`

	// Blobs configures where binary payloads are stored.
	Blobs BlobsConfig `mapstructure:"blobs"`

	// Clipboard configures the clipboard tools.
	Clipboard ClipboardConfig `mapstructure:"clipboard"`

	// Render configures how images are shown by `history`.
	Render RenderConfig `mapstructure:"render"`

	// Crypto configures optional at-rest encryption of payloads.
	Crypto CryptoConfig `mapstructure:"crypto"`

	// Log configures diagnostics on stderr.
	Log LogConfig `mapstructure:"log"`
}

// HistoryConfig configures the history file.
type HistoryConfig struct {
	// Path is the YAML file holding the ordered entries.
	Path string `mapstructure:"path"`
	// Capacity is the maximum number of entries.
	Capacity int `mapstructure:"capacity"`
}

// BlobsConfig configures the blob directory.
type BlobsConfig struct {
	// Dir holds one numbered file per binary entry. It is wiped by `clear`.
	Dir string `mapstructure:"dir"`
	// StrictNames fails on non-numeric files in Dir instead of skipping them.
	StrictNames bool `mapstructure:"strict_names"`
}

// ClipboardConfig configures the clipboard tools.
type ClipboardConfig struct {
	PasteCommand string `mapstructure:"paste_command"`
	CopyCommand  string `mapstructure:"copy_command"`
	// IgnoreMimetypes lists glob patterns; matching snapshots are not stored.
	IgnoreMimetypes []string `mapstructure:"ignore_mimetypes"`
}

// RenderConfig configures the image renderer.
type RenderConfig struct {
	// ImageCommand receives the image on stdin and prints it.
	ImageCommand []string `mapstructure:"image_command"`
}

// CryptoConfig configures optional envelope encryption for stored payloads.
type CryptoConfig struct {
	// Enable turns on envelope encryption.
	Enable bool `mapstructure:"enable"`

	// KeySource is how the encryption key is provided: "env" or "static".
	KeySource string `mapstructure:"key_source"`

	// StaticKey is a hex-encoded 256-bit AES key (used when key_source = "static").
	StaticKey string `mapstructure:"static_key"`

	// EnvVar is the environment variable name containing the hex-encoded key
	// (used when key_source = "env").
	EnvVar string `mapstructure:"env_var"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the configuration used when no config file exists.
// All paths live under home/.clipvault.
func DefaultConfig(home string) *Config {
	base := filepath.Join(home, ".clipvault")
	return &Config{
		History: HistoryConfig{
			Path:     filepath.Join(base, "history.yaml"),
			Capacity: DefaultCapacity,
		},
		Blobs: BlobsConfig{
			Dir: filepath.Join(base, "images"),
		},
		Clipboard: ClipboardConfig{
			PasteCommand: "wl-paste",
			CopyCommand:  "wl-copy",
		},
		Render: RenderConfig{
			ImageCommand: []string{"img2sixel"},
		},
		Crypto: CryptoConfig{
			Enable:    false,
			KeySource: "env",
			EnvVar:    "CLIPVAULT_KEY",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// LoadConfig resolves the YAML file at path, expanding ${env:VAR} references,
// and overlays it on defaults.
func LoadConfig(ctx context.Context, path string, defaults *Config) (*Config, error) {
	cfg := *defaults
	cfg.Clipboard.IgnoreMimetypes = slices.Clone(defaults.Clipboard.IgnoreMimetypes)
	cfg.Render.ImageCommand = slices.Clone(defaults.Render.ImageCommand)
	if path == "" {
		return &cfg, cfg.Validate()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	resolver, err := confmap.NewResolver(confmap.ResolverSettings{
		URIs: []string{"file:" + abs},
		ProviderFactories: []confmap.ProviderFactory{
			fileprovider.NewFactory(),
			envprovider.NewFactory(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config resolver: %w", err)
	}
	defer func() { _ = resolver.Shutdown(ctx) }()

	conf, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", abs, err)
	}
	if err := conf.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", abs, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", abs, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.History.Path == "" {
		return fmt.Errorf("history.path is required")
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("history.capacity must be at least 1, got %d", c.History.Capacity)
	}
	if c.Blobs.Dir == "" {
		return fmt.Errorf("blobs.dir is required")
	}
	// clear wipes the blob directory, so the history file must live outside it.
	if within(c.Blobs.Dir, c.History.Path) {
		return fmt.Errorf("history.path must not be inside blobs.dir")
	}

	if c.Clipboard.PasteCommand == "" || c.Clipboard.CopyCommand == "" {
		return fmt.Errorf("clipboard.paste_command and clipboard.copy_command are required")
	}
	if _, err := c.Clipboard.CompileIgnore(); err != nil {
		return err
	}

	if len(c.Render.ImageCommand) == 0 || c.Render.ImageCommand[0] == "" {
		return fmt.Errorf("render.image_command is required")
	}

	if c.Crypto.Enable {
		switch c.Crypto.KeySource {
		case "env", "static":
			// ok
		default:
			return fmt.Errorf("unsupported crypto key_source: %q", c.Crypto.KeySource)
		}
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}

// within reports whether path is dir itself or lies anywhere below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// CompileIgnore compiles the ignore patterns.
func (c ClipboardConfig) CompileIgnore() ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(c.IgnoreMimetypes))
	for _, p := range c.IgnoreMimetypes {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard.ignore_mimetypes pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Sealer builds the payload sealer described by the config.
func (c CryptoConfig) Sealer() (crypto.Sealer, error) {
	if !c.Enable {
		return crypto.Nop(), nil
	}
	hexKey := c.StaticKey
	if c.KeySource == "env" {
		hexKey = os.Getenv(c.EnvVar)
		if hexKey == "" {
			return nil, fmt.Errorf("%s env var required for encrypted history", c.EnvVar)
		}
	}
	env, err := crypto.NewEnvelope(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init encryption: %w", err)
	}
	return env, nil
}
