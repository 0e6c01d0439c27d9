// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package session

import (
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/devroot/devroot/pkg/errutil"
)

// Commit describes a session transition applied by Store.Commit.
type Commit struct {
	// User is the profile to install. Required.
	User *UserProfile
	// ClearRequests empties every request cache in the same critical section.
	ClearRequests bool
}

// Snapshot is the durable part of a session, handed to a CommitHook.
type Snapshot struct {
	Authenticated bool         `yaml:"authenticated"`
	User          *UserProfile `yaml:"user,omitempty"`
	Cookies       []Cookie     `yaml:"cookies,omitempty"`
}

// Cookie is a persisted session credential for the identity service.
type Cookie struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Path  string `yaml:"path,omitempty"`
	// Expires is zero for a cookie that lasts as long as the session.
	Expires time.Time `yaml:"expires,omitempty"`
	Secure  bool      `yaml:"secure,omitempty"`
}

// CommitHook is called with the session a mutation is about to install.
// Returning an error aborts the mutation.
type CommitHook func(Snapshot) error

// Store manages the session and request caches of one client.
type Store struct {
	mu       sync.RWMutex
	session  Session
	requests map[RequestKind][]Request
	hook     CommitHook
	version  uint64
}

// NewStore creates an anonymous store with empty caches.
func NewStore() *Store {
	return &Store{
		requests: make(map[RequestKind][]Request),
	}
}

// SetCommitHook installs h; nil removes the hook.
func (s *Store) SetCommitHook(h CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		Authenticated: s.session.Authenticated,
		User:          s.session.User.Clone(),
	}
}

// Authenticated reports whether a user is installed.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Authenticated
}

// User returns a copy of the current user, or nil while anonymous.
func (s *Store) User() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User.Clone()
}

// Version increases by one on every session change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// View is a consistent read of the whole store.
type View struct {
	Session  Session
	Requests map[RequestKind][]Request
}

// View returns the session and every cache read under a single lock.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		Session: Session{
			Authenticated: s.session.Authenticated,
			User:          s.session.User.Clone(),
		},
		Requests: make(map[RequestKind][]Request, len(s.requests)),
	}
	for kind, reqs := range s.requests {
		cp := make([]Request, len(reqs))
		copy(cp, reqs)
		v.Requests[kind] = cp
	}
	return v
}

// Requests returns a copy of the cache for kind.
func (s *Store) Requests(kind RequestKind) []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.requests[kind]
	if len(src) == 0 {
		return nil
	}
	out := make([]Request, len(src))
	copy(out, src)
	return out
}

// SetRequests replaces the cache for kind.
func (s *Store) SetRequests(kind RequestKind, reqs []Request) error {
	if !kind.Valid() {
		return oops.Code(CodeUnknownKind).With("kind", string(kind)).Errorf("unknown request kind %q", kind)
	}
	cp := make([]Request, len(reqs))
	copy(cp, reqs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[kind] = cp
	return nil
}

// Clear empties the cache for kind. Clearing an empty cache is a no-op.
func (s *Store) Clear(kind RequestKind) error {
	if !kind.Valid() {
		return oops.Code(CodeUnknownKind).With("kind", string(kind)).Errorf("unknown request kind %q", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, kind)
	return nil
}

// ClearInterested empties the interested-requests cache.
func (s *Store) ClearInterested() { s.clearKnown(KindInterested) }

// ClearConnection empties the connection-requests cache.
func (s *Store) ClearConnection() { s.clearKnown(KindConnection) }

// ClearFollower empties the follower-requests cache.
func (s *Store) ClearFollower() { s.clearKnown(KindFollower) }

// ClearFollowing empties the following-requests cache.
func (s *Store) ClearFollowing() { s.clearKnown(KindFollowing) }

// ClearIgnored empties the ignored-requests cache.
func (s *Store) ClearIgnored() { s.clearKnown(KindIgnored) }

// ClearRejected empties the rejected-requests cache.
func (s *Store) ClearRejected() { s.clearKnown(KindRejected) }

func (s *Store) clearKnown(kind RequestKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, kind)
}

// SetUser installs user, which also marks the session authenticated.
// A nil user is rejected; use SetAuthenticated(false) or Reset to sign out.
func (s *Store) SetUser(user *UserProfile) error {
	if user == nil {
		return oops.Code(CodeUserRequired).Errorf("user cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.install(Session{Authenticated: true, User: user.Clone()}, false)
}

// SetAuthenticated sets the authenticated flag.
// Setting true requires an installed user. Setting false drops the user.
func (s *Store) SetAuthenticated(authenticated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if authenticated {
		if s.session.User == nil {
			return oops.Code(CodeUserRequired).Errorf("cannot authenticate without a user")
		}
		if s.session.Authenticated {
			return nil
		}
		return s.install(Session{Authenticated: true, User: s.session.User}, false)
	}
	return s.install(Session{}, false)
}

// Commit applies c as one unit: caches are cleared (when requested), the user
// is installed and the session is marked authenticated. Either all of it
// happens or, on error, none of it does.
func (s *Store) Commit(c Commit) error {
	if c.User == nil {
		return oops.Code(CodeUserRequired).Errorf("commit requires a user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.install(Session{Authenticated: true, User: c.User.Clone()}, c.ClearRequests)
}

// Reset returns the store to the anonymous state with empty caches.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.install(Session{}, true)
}

// Restore installs a previously persisted snapshot without invoking the hook.
func (s *Store) Restore(snap Snapshot) error {
	if snap.Authenticated != (snap.User != nil) {
		return oops.Code(CodeInvalidRestore).
			With("authenticated", snap.Authenticated).
			Errorf("snapshot authenticated flag does not match user presence")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{Authenticated: snap.Authenticated, User: snap.User.Clone()}
	s.requests = make(map[RequestKind][]Request)
	s.version++
	return nil
}

// install must be called with mu held.
func (s *Store) install(next Session, clearRequests bool) error {
	if s.hook != nil {
		snap := Snapshot{Authenticated: next.Authenticated, User: next.User.Clone()}
		if err := s.hook(snap); err != nil {
			// Not wrapped: oops reports the innermost code, and callers
			// branch on CodeCommitFailed.
			return oops.Code(CodeCommitFailed).
				With("authenticated", next.Authenticated).
				With("cause_code", errutil.CodeOf(err)).
				Errorf("session commit aborted: %v", err)
		}
	}
	if clearRequests {
		s.requests = make(map[RequestKind][]Request)
	}
	s.session = next
	s.version++
	return nil
}
