// Package services contains application services for the tracker client.
// This file defines the authentication service: register, login, session
// restore between runs, liveness probe, and sign-out housekeeping.
package services

import (
	"context"
	"fmt"

	"github.com/sultumov/allergyTracker/internal/client/localstore"
	"github.com/sultumov/allergyTracker/internal/client/remote"
)

// Authenticator is the slice of the remote store the auth service needs.
// Implemented by remote.HTTPStore.
type Authenticator interface {
	Register(ctx context.Context, login, password string) error
	Login(ctx context.Context, login, password string) (remote.Session, error)
	Ping(ctx context.Context) error
}

// AuthService signs users in and out, persisting the session in the local
// cache so a restart does not require re-entering credentials.
type AuthService struct {
	remote Authenticator
	store  *localstore.Store
}

func NewAuthService(remote Authenticator, store *localstore.Store) *AuthService {
	return &AuthService{remote: remote, store: store}
}

// Register creates a new account on the server. It does not sign the user
// in; call Login afterwards.
func (a *AuthService) Register(ctx context.Context, login, password string) error {
	return a.remote.Register(ctx, login, password)
}

// Login exchanges credentials for a session and persists it. Returns the
// signed-in user id.
func (a *AuthService) Login(ctx context.Context, login, password string) (string, error) {
	sess, err := a.remote.Login(ctx, login, password)
	if err != nil {
		return "", err
	}

	if err := a.store.SetTokens(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		return "", fmt.Errorf("persisting tokens: %w", err)
	}
	if err := a.store.SetUserID(ctx, sess.UserID); err != nil {
		return "", fmt.Errorf("persisting user id: %w", err)
	}
	return sess.UserID, nil
}

// RestoreSession returns the user id of a previously persisted session, or
// false when no usable session exists. Token freshness is not checked here;
// the remote store refreshes expired access tokens on demand.
func (a *AuthService) RestoreSession(ctx context.Context) (string, bool) {
	userID := a.store.UserID(ctx)
	if userID == "" {
		return "", false
	}
	if _, refresh := a.store.Tokens(ctx); refresh == "" {
		return "", false
	}
	return userID, true
}

// Logout drops the persisted session. Cached collection data stays so the
// next sign-in starts warm.
func (a *AuthService) Logout(ctx context.Context) error {
	return a.store.ClearSession(ctx)
}

// Ping proxies a liveness check to the server.
func (a *AuthService) Ping(ctx context.Context) error {
	return a.remote.Ping(ctx)
}
