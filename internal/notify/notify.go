// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package notify delivers user-facing success and error messages.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Kind classifies a notification.
type Kind string

// Notification kinds.
const (
	Success Kind = "success"
	Error   Kind = "error"
)

// Notifier shows a message to the user.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Func adapts a function to Notifier.
type Func func(kind Kind, message string)

// Notify calls f.
func (f Func) Notify(kind Kind, message string) { f(kind, message) }

// Discard drops every notification.
var Discard Notifier = Func(func(Kind, string) {})

// WriterNotifier prints "[kind] message" lines.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify writes one line. Write errors are ignored; there is nowhere to report them.
func (n *WriterNotifier) Notify(kind Kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s\n", kind, message) //nolint:errcheck // best-effort terminal output
}

// Notification is one recorded message.
type Notification struct {
	Kind    Kind
	Message string
}

// Recorder keeps every notification in order.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records the notification.
func (r *Recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Kind: kind, Message: message})
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset forgets every recorded notification.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
