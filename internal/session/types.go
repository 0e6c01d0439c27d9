// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package session

import (
	"strings"
	"time"

	"github.com/samber/oops"
)

// RequestKind names one of the relationship request caches.
type RequestKind string

// Request cache kinds.
const (
	KindInterested RequestKind = "interested"
	KindConnection RequestKind = "connection"
	KindFollower   RequestKind = "follower"
	KindFollowing  RequestKind = "following"
	KindIgnored    RequestKind = "ignored"
	KindRejected   RequestKind = "rejected"
)

// RequestKinds returns every cache kind in the order caches are cleared on a
// session change.
func RequestKinds() []RequestKind {
	return []RequestKind{
		KindInterested,
		KindConnection,
		KindFollower,
		KindFollowing,
		KindIgnored,
		KindRejected,
	}
}

// Valid reports whether k is one of the known cache kinds.
func (k RequestKind) Valid() bool {
	for _, known := range RequestKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ParseRequestKind parses a cache kind name (case-insensitive).
func ParseRequestKind(s string) (RequestKind, error) {
	k := RequestKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", oops.Code(CodeUnknownKind).
			With("kind", s).
			Errorf("unknown request kind %q", s)
	}
	return k, nil
}

// UserProfile is the identity returned by the identity service.
type UserProfile struct {
	ID        string   `json:"_id" yaml:"id" jsonschema:"required"`
	FirstName string   `json:"firstName" yaml:"first_name"`
	LastName  string   `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	Username  string   `json:"username" yaml:"username"`
	Email     string   `json:"email" yaml:"email"`
	PhotoURL  string   `json:"photoUrl,omitempty" yaml:"photo_url,omitempty"`
	About     string   `json:"about,omitempty" yaml:"about,omitempty"`
	Skills    []string `json:"skills,omitempty" yaml:"skills,omitempty"`
}

// Clone returns a deep copy of the profile. Clone of nil is nil.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	if u.Skills != nil {
		c.Skills = make([]string, len(u.Skills))
		copy(c.Skills, u.Skills)
	}
	return &c
}

// DisplayName returns "First Last", falling back to the username.
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Request is a pending relationship request held in a cache.
type Request struct {
	ID        string      `json:"_id"`
	Status    string      `json:"status"`
	From      UserProfile `json:"fromUserId"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Session is the authenticated/anonymous status plus the current user.
type Session struct {
	Authenticated bool
	User          *UserProfile
}

// Anonymous reports whether no user is installed.
func (s Session) Anonymous() bool {
	return !s.Authenticated
}
