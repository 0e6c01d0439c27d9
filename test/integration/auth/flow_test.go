// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

//go:build integration

package auth_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/devroot/devroot/internal/authflow"
	"github.com/devroot/devroot/internal/form"
	"github.com/devroot/devroot/internal/gateway"
	"github.com/devroot/devroot/internal/notify"
	"github.com/devroot/devroot/internal/route"
	"github.com/devroot/devroot/internal/session"
	"github.com/devroot/devroot/pkg/errutil"
)

var _ = Describe("Auth flow against an identity service", func() {
	var (
		svc *identityService
		c   *client
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = newIdentityService()
		DeferCleanup(svc.server.Close)
		c = newClient(svc.server.URL, GinkgoT().TempDir(), 2*time.Second)
	})

	Describe("login from a protected page", func() {
		It("redirects to login and returns to the page afterwards", func() {
			decision := c.guard.Check("/requests/incoming")
			Expect(decision.Allowed).To(BeFalse())
			Expect(c.history.Navigate(decision.Redirect, route.NavigateOptions{})).To(Succeed())

			Expect(c.store.SetRequests(session.KindFollower, []session.Request{{ID: "r1"}})).To(Succeed())

			out, err := c.flow.Login(ctx, form.Login{Identifier: "ada@example.com", Password: "secret"}, decision.From)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Succeeded()).To(BeTrue())
			Expect(out.Message).To(Equal(authflow.MessageLoginSuccess))

			Expect(c.history.Current()).To(Equal("/requests/incoming"))
			Expect(c.store.Authenticated()).To(BeTrue())
			Expect(c.store.User().ID).To(Equal("u1"))
			Expect(c.store.Requests(session.KindFollower)).To(BeEmpty())
			Expect(c.guard.Check("/requests/incoming").Allowed).To(BeTrue())

			last, ok := c.notes.Last()
			Expect(ok).To(BeTrue())
			Expect(last).To(Equal(notify.Notification{Kind: notify.Success, Message: authflow.MessageLoginSuccess}))
		})

		It("restores the session and cookies in a new client", func() {
			_, err := c.flow.Login(ctx, form.Login{Identifier: "ada@example.com", Password: "secret"}, "")
			Expect(err).NotTo(HaveOccurred())

			next := newClient(svc.server.URL, c.stateDir, 2*time.Second)
			Expect(next.store.Authenticated()).To(BeTrue())
			Expect(next.store.User().Username).To(Equal("ada"))

			profile, err := next.gateway.FetchProfile(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.About).To(Equal("Analyst"))
		})
	})

	Describe("rejected login", func() {
		It("keeps the anonymous session and shows the server message", func() {
			before := c.store.Version()

			out, err := c.flow.Login(ctx, form.Login{Identifier: "ada@example.com", Password: "wrong"}, "")
			Expect(errutil.CodeOf(err)).To(Equal(gateway.CodeServerRejected))
			Expect(out.State).To(Equal(authflow.StateFailed))
			Expect(out.Message).To(Equal("Invalid credentials"))

			Expect(c.store.Authenticated()).To(BeFalse())
			Expect(c.store.Version()).To(Equal(before))
			Expect(c.history.Current()).To(Equal("/"))

			loaded, loadErr := c.snap.Load()
			Expect(loadErr).NotTo(HaveOccurred())
			Expect(loaded.Authenticated).To(BeFalse())
		})
	})

	Describe("invalid form", func() {
		It("never reaches the identity service", func() {
			out, err := c.flow.Login(ctx, form.Login{Kind: form.IdentifierUsername, Identifier: "ab", Password: "secret"}, "")
			Expect(errutil.CodeOf(err)).To(Equal(authflow.CodeInvalid))
			Expect(out.Validation.Valid()).To(BeFalse())
			Expect(svc.logins.Load()).To(BeZero())
			Expect(c.notes.All()).To(BeEmpty())
		})
	})

	Describe("concurrent submits", func() {
		It("accepts one attempt and turns the other away", func() {
			svc.setDelay(200 * time.Millisecond)

			var wg sync.WaitGroup
			first := make(chan error, 1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, err := c.flow.Login(ctx, form.Login{Identifier: "ada@example.com", Password: "secret"}, "")
				first <- err
			}()

			Eventually(c.flow.Busy).Should(BeTrue())
			_, err := c.flow.Login(ctx, form.Login{Identifier: "ada@example.com", Password: "secret"}, "")
			Expect(errutil.CodeOf(err)).To(Equal(authflow.CodeBusy))

			wg.Wait()
			Expect(<-first).NotTo(HaveOccurred())
			Expect(svc.logins.Load()).To(Equal(int32(1)))
			Expect(c.flow.Busy()).To(BeFalse())
		})
	})

	Describe("slow identity service", func() {
		It("fails with a timeout and accepts the next attempt", func() {
			c = newClient(svc.server.URL, GinkgoT().TempDir(), 50*time.Millisecond)
			svc.setDelay(time.Second)

			out, err := c.flow.Login(ctx, form.Login{Identifier: "ada@example.com", Password: "secret"}, "")
			Expect(errutil.CodeOf(err)).To(Equal(gateway.CodeTimeout))
			Expect(out.State).To(Equal(authflow.StateFailed))
			Expect(c.store.Authenticated()).To(BeFalse())

			svc.setDelay(0)
			_, err = c.flow.Login(ctx, form.Login{Identifier: "ada@example.com", Password: "secret"}, "")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("signup", func() {
		It("installs the session, opens the profile and rehydrates it", func() {
			out, err := c.flow.Signup(ctx, form.Signup{
				Email:     "ada@example.com",
				Username:  "adalove",
				FirstName: "Augusta",
				Password:  "Passw0rd!",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Message).To(Equal("Welcome aboard"))
			Expect(out.Redirect).To(Equal(route.SignupTarget))
			Expect(c.history.Entries()).To(Equal([]string{"/", route.SignupTarget}))

			Expect(svc.profiles.Load()).To(Equal(int32(1)))
			Expect(c.store.User().About).To(Equal("Analyst"))

			loaded, loadErr := c.snap.Load()
			Expect(loadErr).NotTo(HaveOccurred())
			Expect(loaded.User.About).To(Equal("Analyst"))
			Expect(loaded.Cookies).To(ContainElement(session.Cookie{Name: "token", Value: "fresh", Path: "/"}))
		})
	})
})
