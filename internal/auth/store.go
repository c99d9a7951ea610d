package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/shared"
)

// ErrScopeNotAllowed is returned when a non company-admin tries to switch tenant scope.
var ErrScopeNotAllowed = errors.New("auth: tenant scope is reserved to company administrators")

// Scope is the tenant pointer a company administrator is viewing.
type Scope struct {
	ClientID  string
	ProjectID string
}

// Store is the request-scoped owner of the authentication state. Only its
// methods mutate the credential keys of the session.
type Store struct {
	manager *Manager

	mu          sync.Mutex
	sess        *shared.Session
	user        *shared.Identity
	restored    bool
	invalidated bool
	forced      bool
}

// Snapshot returns the current session state. Loading stays true until
// Restore has completed.
func (s *Store) Snapshot() shared.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() shared.SessionState {
	state := shared.SessionState{Loading: !s.restored}
	if s.user != nil {
		user := *s.user
		state.User = &user
	}
	return state
}

// Token returns the persisted bearer token, or "" once the credential is gone.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.invalidated {
		return ""
	}
	return s.sess.Get(shared.KeyToken)
}

// ForcedLogout reports whether an authentication failure cleared the
// credential during this request. Handlers redirect to the login page when set.
func (s *Store) ForcedLogout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forced
}

// Restore resolves the persisted credential into an identity. It runs at most
// once per Store; later calls return the first result. Any failure leaves the
// visitor unauthenticated with the credential removed.
func (s *Store) Restore(ctx context.Context) shared.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return s.snapshotLocked()
	}
	s.restored = true

	if s.sess == nil {
		return shared.SessionState{}
	}
	token := s.sess.Get(shared.KeyToken)
	if token == "" {
		s.user = nil
		s.sess.Delete(shared.KeyUser)
		return shared.SessionState{}
	}
	if tokenExpired(token, s.manager.now()) {
		s.manager.logger.Debug("stored credential expired", slog.String("session_id", s.sess.ID))
		s.clearLocked()
		return shared.SessionState{}
	}

	identity, err := s.manager.api.MeWithToken(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			// Nobody reads this response; keep the credential for the next load.
			s.user = nil
			return shared.SessionState{}
		}
		s.manager.logger.Info("restore session failed", slog.String("session_id", s.sess.ID), slog.Any("error", err))
		s.clearLocked()
		return shared.SessionState{}
	}
	s.setUserLocked(identity)
	return s.snapshotLocked()
}

// Login authenticates against the API and persists the credential on success.
// On failure the session is left untouched and the error is returned as is.
func (s *Store) Login(ctx context.Context, email, password string) (shared.Identity, error) {
	result, err := s.manager.api.Login(ctx, email, password)
	if err != nil {
		return shared.Identity{}, err
	}
	s.adopt(result)
	return result.User, nil
}

// Register creates a tenant company and logs its administrator in.
func (s *Store) Register(ctx context.Context, in pactum.CompanyRegistration) (shared.Identity, error) {
	result, err := s.manager.api.RegisterCompany(ctx, in)
	if err != nil {
		return shared.Identity{}, err
	}
	if result.AccessToken == "" {
		return result.User, nil
	}
	s.adopt(result)
	return result.User, nil
}

func (s *Store) adopt(result pactum.LoginResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return
	}
	s.sess.Delete(shared.KeyClientScope, shared.KeyProjectScope, shared.KeyViewingProject)
	s.sess.Set(shared.KeyToken, result.AccessToken)
	s.setUserLocked(result.User)
	s.restored = true
	s.invalidated = false
	s.forced = false
}

// Logout clears the credential, the tenant scope and the identity. It never
// calls the API and is safe to repeat.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.forced = true
	s.manager.persist(ctx, s.sess)
}

// Invalidate is called by the resource client when the API answers 401.
func (s *Store) Invalidate(ctx context.Context) {
	s.TryInvalidate(ctx)
}

// TryInvalidate clears the credential after an authentication failure and
// reports whether this call performed it. Only the first call on a Store does;
// concurrent invalidations of the same browser session are collapsed into a
// single persisted logout.
func (s *Store) TryInvalidate(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return false
	}
	s.invalidated = true
	s.forced = true
	s.clearLocked()
	sess := s.sess
	if sess == nil {
		return true
	}
	sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: pactum.MsgAuthExpired})
	_, _, _ = s.manager.collapse.Do(sess.ID, func() (any, error) {
		s.manager.persist(ctx, sess)
		if s.manager.recorder != nil {
			s.manager.recorder.IncForcedLogout()
		}
		s.manager.logger.Info("credential invalidated", slog.String("session_id", sess.ID))
		return nil, nil
	})
	return true
}

// ProjectScope returns the tenant pointer. It is only meaningful for company
// administrators; every other role gets the zero Scope.
func (s *Store) ProjectScope() Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.user == nil || s.user.Role != shared.RoleCompanyAdmin {
		return Scope{}
	}
	return Scope{
		ClientID:  s.sess.Get(shared.KeyClientScope),
		ProjectID: s.sess.Get(shared.KeyProjectScope),
	}
}

// SetProjectScope points a company administrator at another client's project
// and reports whether the pointer changed.
func (s *Store) SetProjectScope(ctx context.Context, scope Scope) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.user == nil || s.user.Role != shared.RoleCompanyAdmin {
		return false, ErrScopeNotAllowed
	}
	changed := s.sess.Get(shared.KeyClientScope) != scope.ClientID ||
		s.sess.Get(shared.KeyProjectScope) != scope.ProjectID
	s.sess.Set(shared.KeyClientScope, scope.ClientID)
	s.sess.Set(shared.KeyProjectScope, scope.ProjectID)
	s.sess.Set(shared.KeyViewingProject, scope.ProjectID)
	if changed {
		s.manager.persist(ctx, s.sess)
	}
	return changed, nil
}

// SessionID identifies the browser session, used to scope published events.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return ""
	}
	return s.sess.ID
}

func (s *Store) setUserLocked(identity shared.Identity) {
	s.user = &identity
	if s.sess == nil {
		return
	}
	if data, err := json.Marshal(identity); err == nil {
		s.sess.Set(shared.KeyUser, string(data))
	}
}

func (s *Store) clearLocked() {
	s.user = nil
	if s.sess == nil {
		return
	}
	s.sess.Delete(shared.KeyToken, shared.KeyUser, shared.KeyClientScope, shared.KeyProjectScope, shared.KeyViewingProject)
}

// tokenExpired peeks at the exp claim of a JWT without verifying it. Opaque or
// claim-less tokens are left for the API to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
