// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nostalgicskinco/clipvault/clipboard"
	"github.com/nostalgicskinco/clipvault/render"
	"github.com/nostalgicskinco/clipvault/vault"
	"github.com/nostalgicskinco/clipvault/vault/storage"
)

// watcher starts the background process that runs `store` on clipboard changes.
type watcher interface {
	Watch(argv []string) (int, error)
}

// app carries what every subcommand needs. Fields left nil are built from
// the loaded config.
type app struct {
	stdout     io.Writer
	home       string
	configPath string
	logLevel   string

	fs       afero.Fs
	logger   *zap.Logger
	gateway  clipboard.Gateway
	renderer vault.Renderer
	watcher  watcher
	exe      func() (string, error)

	cfg *vault.Config
}

func newApp(stdout io.Writer) *app {
	return &app{
		stdout: stdout,
		fs:     afero.NewOsFs(),
		exe:    os.Executable,
	}
}

// setup loads the configuration and builds the logger and collaborators.
func (a *app) setup(ctx context.Context) error {
	if a.home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot locate home directory: %w", err)
		}
		a.home = home
	}

	path := a.configPath
	if path == "" {
		// The default config file is optional.
		def := filepath.Join(a.home, ".clipvault", "config.yaml")
		if _, err := a.fs.Stat(def); err == nil {
			path = def
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := vault.LoadConfig(ctx, path, vault.DefaultConfig(a.home))
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	if a.logger == nil {
		logger, err := newLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		a.logger = logger
	}

	if a.gateway == nil || a.watcher == nil {
		wl := clipboard.NewWayland(cfg.Clipboard.PasteCommand, cfg.Clipboard.CopyCommand, a.logger)
		if a.gateway == nil {
			a.gateway = wl
		}
		if a.watcher == nil {
			a.watcher = wl
		}
	}
	if a.renderer == nil {
		r, err := render.NewCommand(cfg.Render.ImageCommand)
		if err != nil {
			return err
		}
		a.renderer = r
	}
	return nil
}

// history builds an unloaded history store from the config.
func (a *app) history() (*vault.History, error) {
	sealer, err := a.cfg.Crypto.Sealer()
	if err != nil {
		return nil, err
	}
	blobs, err := storage.NewFilesystem(a.cfg.Blobs.Dir,
		storage.WithFs(a.fs),
		storage.WithSealer(sealer),
		storage.WithStrictNames(a.cfg.Blobs.StrictNames),
		storage.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	ignore, err := a.cfg.Clipboard.CompileIgnore()
	if err != nil {
		return nil, err
	}
	return vault.New(a.cfg.History.Path, blobs,
		vault.WithFs(a.fs),
		vault.WithCapacity(a.cfg.History.Capacity),
		vault.WithSealer(sealer),
		vault.WithGateway(a.gateway),
		vault.WithRenderer(a.renderer),
		vault.WithIgnore(ignore...),
		vault.WithLogger(a.logger),
	), nil
}

// loadedHistory builds the history store and loads it from disk.
func (a *app) loadedHistory() (*vault.History, error) {
	h, err := a.history()
	if err != nil {
		return nil, err
	}
	if err := h.Load(); err != nil {
		if errors.Is(err, vault.ErrCorruptStore) {
			return nil, fmt.Errorf("%w (run `clipvault clear` to initialize a new history)", err)
		}
		return nil, err
	}
	return h, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.Sampling = nil
	zcfg.DisableStacktrace = true
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
