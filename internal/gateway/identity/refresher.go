// Package identity keeps the gateway's merged user record consistent with
// the identity session and the platform backend's role data.
package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stridehq/stride/internal/gateway/backend"
	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/pkg/idp"
)

// SessionSource exposes the identity client surface the refresher needs.
// *idp.Client satisfies this.
type SessionSource interface {
	CurrentSession() *idp.Session
	OnAuthStateChange(fn func(idp.AuthEvent, *idp.Session)) func()
}

// ProfileFetcher fetches the backend's authoritative profile for the
// signed-in user. *backend.Client satisfies this.
type ProfileFetcher interface {
	Me(ctx context.Context) (*backend.Profile, error)
}

const mergeTimeout = 10 * time.Second

// Refresher subscribes to auth-state changes and maintains the MergedUser.
//
// Every session transition runs the same sequence: publish the identity
// user's profile immediately, then fetch the backend profile and republish
// the merged record. A failed merge fetch keeps the unmerged fallback with
// no role set; there is no automatic retry until the next transition.
//
// Events are processed one at a time on a background worker so a slow
// backend never blocks the identity client's callbacks.
type Refresher struct {
	Sessions SessionSource
	Profiles ProfileFetcher
	Logger   *slog.Logger

	mu      sync.RWMutex
	user    *domain.MergedUser
	loading bool

	events chan *idp.Session
	stopCh chan struct{}
	doneCh chan struct{}

	unsubscribe func()
}

// NewRefresher creates a refresher; call Start to begin processing.
func NewRefresher(sessions SessionSource, profiles ProfileFetcher, logger *slog.Logger) *Refresher {
	return &Refresher{
		Sessions: sessions,
		Profiles: profiles,
		Logger:   logger,
		loading:  true,
		events:   make(chan *idp.Session, 16),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start subscribes to auth-state changes and resolves the current session.
// Loading stays true until that first resolution lands.
func (r *Refresher) Start() {
	r.unsubscribe = r.Sessions.OnAuthStateChange(func(event idp.AuthEvent, session *idp.Session) {
		select {
		case r.events <- session:
		case <-r.stopCh:
		}
	})

	go r.run()
	r.events <- r.Sessions.CurrentSession()

	r.Logger.Info("identity refresher started")
}

// Stop unsubscribes and waits for the worker to finish any in-progress merge.
func (r *Refresher) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	close(r.stopCh)
	<-r.doneCh
	r.Logger.Info("identity refresher stopped")
}

// Snapshot returns the current MergedUser and whether the first resolution
// is still pending. The user is nil while signed out or loading.
func (r *Refresher) Snapshot() (*domain.MergedUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user, r.loading
}

func (r *Refresher) publish(user *domain.MergedUser) {
	r.mu.Lock()
	r.user = user
	r.loading = false
	r.mu.Unlock()
}

// run processes session transitions in order. A merged publish for one
// transition always lands before the next transition starts.
func (r *Refresher) run() {
	defer close(r.doneCh)

	for {
		select {
		case session := <-r.events:
			r.resolve(session)
		case <-r.stopCh:
			return
		}
	}
}

// resolve publishes the identity user immediately, then overlays the
// backend profile when the merge fetch succeeds.
func (r *Refresher) resolve(session *idp.Session) {
	if session == nil {
		r.publish(nil)
		return
	}

	// Optimistic publish: the UI keeps a name and email even while the
	// backend fetch is in flight or failing.
	r.publish(identityOnly(session.User))

	ctx, cancel := context.WithTimeout(context.Background(), mergeTimeout)
	defer cancel()

	profile, err := r.Profiles.Me(ctx)
	if err != nil {
		r.Logger.Warn("merge fetch failed, using identity profile without roles",
			"user_id", session.User.ID,
			"error", err,
		)
		return
	}

	r.publish(merge(session.User, profile))
}

// identityOnly builds a MergedUser from provider data alone. The role set is
// empty; PrimaryRole carries the provider's self-asserted role.
func identityOnly(user idp.IdentityUser) *domain.MergedUser {
	return &domain.MergedUser{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.Metadata.FirstName,
		LastName:    user.Metadata.LastName,
		AvatarURL:   user.Metadata.AvatarURL,
		PrimaryRole: user.Metadata.Role,
	}
}

// merge overlays the backend's authoritative record on the identity profile.
// Backend fields win when present.
func merge(user idp.IdentityUser, profile *backend.Profile) *domain.MergedUser {
	merged := identityOnly(user)
	merged.Roles = profile.Roles
	merged.MentorshipEligible = profile.MentorshipEligible

	if profile.PrimaryRole != "" {
		merged.PrimaryRole = profile.PrimaryRole
	}
	if profile.FirstName != "" {
		merged.FirstName = profile.FirstName
	}
	if profile.LastName != "" {
		merged.LastName = profile.LastName
	}
	if profile.AvatarURL != "" {
		merged.AvatarURL = profile.AvatarURL
	}

	return merged
}
