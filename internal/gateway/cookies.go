// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package gateway

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/devroot/devroot/internal/session"
)

// cookieAttrs are the attributes a cookie jar keeps but never hands back.
type cookieAttrs struct {
	path    string
	expires time.Time
	secure  bool
}

// recordingJar is a cookie jar that also remembers the attributes the
// identity service set, so a session snapshot can carry them.
type recordingJar struct {
	http.CookieJar
	host string
	now  func() time.Time

	mu    sync.Mutex
	attrs map[string]cookieAttrs
}

func newRecordingJar(jar http.CookieJar, base *url.URL) *recordingJar {
	return &recordingJar{
		CookieJar: jar,
		host:      base.Hostname(),
		now:       time.Now,
		attrs:     make(map[string]cookieAttrs),
	}
}

// SetCookies stores cookies in the underlying jar and records their
// attributes when they belong to the identity service.
func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.CookieJar.SetCookies(u, cookies)
	if u.Hostname() != j.host {
		return
	}

	now := j.now()
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, ck := range cookies {
		attrs := cookieAttrs{path: ck.Path, secure: ck.Secure}
		switch {
		case ck.MaxAge < 0:
			delete(j.attrs, ck.Name)
			continue
		case ck.MaxAge > 0:
			attrs.expires = now.Add(time.Duration(ck.MaxAge) * time.Second).UTC().Truncate(time.Second)
		case !ck.Expires.IsZero():
			if !ck.Expires.After(now) {
				delete(j.attrs, ck.Name)
				continue
			}
			attrs.expires = ck.Expires.UTC()
		}
		j.attrs[ck.Name] = attrs
	}
}

// snapshot returns the live cookies for u with their recorded attributes.
func (j *recordingJar) snapshot(u *url.URL) []session.Cookie {
	live := j.CookieJar.Cookies(u)
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]session.Cookie, 0, len(live))
	for _, ck := range live {
		attrs := j.attrs[ck.Name]
		if !attrs.expires.IsZero() && !attrs.expires.After(now) {
			continue
		}
		path := attrs.path
		if path == "" {
			path = "/"
		}
		out = append(out, session.Cookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    path,
			Expires: attrs.expires,
			Secure:  attrs.secure,
		})
	}
	return out
}

// restore seeds the jar from persisted cookies, skipping expired ones.
func (j *recordingJar) restore(u *url.URL, cookies []session.Cookie) {
	now := j.now()
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		if !ck.Expires.IsZero() && !ck.Expires.After(now) {
			continue
		}
		p := ck.Path
		if p == "" {
			p = "/"
		}
		httpCookies = append(httpCookies, &http.Cookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    p,
			Expires: ck.Expires,
			Secure:  ck.Secure,
		})
	}
	if len(httpCookies) > 0 {
		j.SetCookies(u, httpCookies)
	}
}

// clear expires every cookie for u.
func (j *recordingJar) clear(u *url.URL) {
	live := j.CookieJar.Cookies(u)
	expired := make([]*http.Cookie, 0, len(live))
	for _, ck := range live {
		path := "/"
		j.mu.Lock()
		if attrs, ok := j.attrs[ck.Name]; ok && attrs.path != "" {
			path = attrs.path
		}
		j.mu.Unlock()
		expired = append(expired, &http.Cookie{Name: ck.Name, Path: path, MaxAge: -1})
	}
	j.SetCookies(u, expired)
}
