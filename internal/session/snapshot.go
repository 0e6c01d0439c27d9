// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// FileSnapshotter persists session snapshots as YAML.
type FileSnapshotter struct {
	path string

	// Cookies, if set, supplies the credentials saved next to the session.
	Cookies func() []Cookie
}

// NewFileSnapshotter creates a snapshotter writing to path.
func NewFileSnapshotter(path string) (*FileSnapshotter, error) {
	if path == "" {
		return nil, oops.Code(CodeSnapshotIO).Errorf("snapshot path cannot be empty")
	}
	return &FileSnapshotter{path: path}, nil
}

// Path returns the snapshot file location.
func (f *FileSnapshotter) Path() string {
	return f.path
}

// Save writes snap atomically (temp file + rename, mode 0600).
// It has the CommitHook signature so it can be installed on a Store.
func (f *FileSnapshotter) Save(snap Snapshot) error {
	if f.Cookies != nil && snap.Authenticated {
		snap.Cookies = f.Cookies()
	}
	if !snap.Authenticated {
		snap.Cookies = nil
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return oops.Code(CodeSnapshotIO).With("operation", "marshal snapshot").Wrap(err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.Code(CodeSnapshotIO).With("operation", "create state dir").With("dir", dir).Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return oops.Code(CodeSnapshotIO).With("operation", "create temp file").With("dir", dir).Wrap(err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return oops.Code(CodeSnapshotIO).With("operation", "write snapshot").Wrap(err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return oops.Code(CodeSnapshotIO).With("operation", "chmod snapshot").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.Code(CodeSnapshotIO).With("operation", "close snapshot").Wrap(err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return oops.Code(CodeSnapshotIO).With("operation", "rename snapshot").With("path", f.path).Wrap(err)
	}
	return nil
}

// Load reads the snapshot. A missing file yields an anonymous snapshot.
func (f *FileSnapshotter) Load() (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, nil
		}
		return Snapshot{}, oops.Code(CodeSnapshotIO).With("operation", "read snapshot").With("path", f.path).Wrap(err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, oops.Code(CodeInvalidRestore).With("path", f.path).Wrap(err)
	}
	return snap, nil
}

// Remove deletes the snapshot file. Removing a missing file is not an error.
func (f *FileSnapshotter) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code(CodeSnapshotIO).With("operation", "remove snapshot").With("path", f.path).Wrap(err)
	}
	return nil
}
