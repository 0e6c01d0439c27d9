// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package route

import (
	"strings"
	"sync"

	"github.com/samber/oops"
)

// CodeInvalidPath is returned when navigating to an empty path.
const CodeInvalidPath = "ROUTE_INVALID_PATH"

// NavigateOptions controls a navigation.
type NavigateOptions struct {
	// Replace overwrites the current entry instead of pushing a new one.
	Replace bool
}

// Navigator moves the client to another page.
type Navigator interface {
	Navigate(path string, opts NavigateOptions) error
}

// History is an in-memory Navigator.
type History struct {
	mu      sync.Mutex
	entries []string
}

// NewHistory starts a history at start ("/" when empty).
func NewHistory(start string) *History {
	if strings.TrimSpace(start) == "" {
		start = "/"
	}
	return &History{entries: []string{Clean(start)}}
}

// Navigate pushes path, or replaces the current entry when opts.Replace is set.
func (h *History) Navigate(p string, opts NavigateOptions) error {
	if strings.TrimSpace(p) == "" {
		return oops.Code(CodeInvalidPath).Errorf("navigation path cannot be empty")
	}
	clean := Clean(p)

	h.mu.Lock()
	defer h.mu.Unlock()
	if opts.Replace && len(h.entries) > 0 {
		h.entries[len(h.entries)-1] = clean
		return nil
	}
	h.entries = append(h.entries, clean)
	return nil
}

// Back pops the current entry. It reports false at the first entry.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) <= 1 {
		return false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return true
}

// Current returns the page being shown.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
