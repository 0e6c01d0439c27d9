// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package xdg provides XDG Base Directory paths for devroot.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "devroot"

// File names inside the devroot directories.
const (
	ConfigFileName  = "config.yaml"
	SessionFileName = "session.yaml"
)

// ConfigDir returns the XDG config directory for devroot.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	return dir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for devroot.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() (string, error) {
	return dir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, ConfigFileName), nil
}

// SessionFile returns the default session snapshot path.
func SessionFile() (string, error) {
	d, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, SessionFileName), nil
}

func dir(envVar, homeRel string) (string, error) {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName), nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", oops.Code("XDG_NO_HOME").
			With("env", envVar).
			Errorf("neither %s nor HOME is set", envVar)
	}
	return filepath.Join(home, homeRel, appName), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR").With("path", path).Wrap(err)
	}
	return nil
}
