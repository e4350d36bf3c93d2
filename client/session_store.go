package client

import (
	"context"
	"sync"

	"coahub/app/models"
)

// SessionStore holds the signed-in user and their token. It is the
// TokenSource for the API it was built with.
type SessionStore struct {
	subscribers

	api      *API
	notifier Notifier

	mu      sync.RWMutex
	user    *models.User
	token   string
	loading bool
}

var (
	_ Store       = (*SessionStore)(nil)
	_ TokenSource = (*SessionStore)(nil)
)

// NewSessionStore returns an empty session and installs it as api's token
// source.
func NewSessionStore(api *API, notifier Notifier) *SessionStore {
	s := &SessionStore{api: api, notifier: notifierOrDefault(notifier)}
	api.SetTokenSource(s)
	return s
}

// Restore seeds the session from a previously saved user and token.
func (s *SessionStore) Restore(user *models.User, token string) {
	s.mu.Lock()
	s.user, s.token = user, token
	s.mu.Unlock()
	s.notify()
}

func (s *SessionStore) Login(ctx context.Context, email, password string) (*models.User, error) {
	return s.authenticate("Login successful", "Login failed", func() (*Session, error) {
		return s.api.Login(ctx, email, password)
	})
}

func (s *SessionStore) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	return s.authenticate("Account created successfully", "Signup failed", func() (*Session, error) {
		return s.api.Signup(ctx, req)
	})
}

// UpdateProfile replaces the cached user with the server's response.
func (s *SessionStore) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*models.User, error) {
	s.setLoading(true)
	user, err := s.api.UpdateProfile(ctx, upd)

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.user = user
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.notifier.Error(messageOf(err, "Failed to update profile"))
		return nil, err
	}
	s.notifier.Success("Profile updated successfully")
	return user, nil
}

func (s *SessionStore) Logout() {
	s.mu.Lock()
	s.user, s.token = nil, ""
	s.mu.Unlock()
	s.notify()
	s.notifier.Success("Logged out successfully")
}

func (s *SessionStore) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SessionStore) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *SessionStore) authenticate(okMsg, failMsg string, call func() (*Session, error)) (*models.User, error) {
	s.setLoading(true)
	sess, err := call()

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.user, s.token = sess.User, sess.Token
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.notifier.Error(messageOf(err, failMsg))
		return nil, err
	}
	s.notifier.Success(okMsg)
	return sess.User, nil
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}
