// MIT License
//
// Copyright (c) 2023 Lack
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package lock holds pessimistic edit locks on process instance activities
// for the length of an edit.
package lock

//go:generate mockgen -destination mock/mock_locker.go -package mock github.com/vine-io/formflow/lock Locker

import (
	"context"
	"fmt"

	log "github.com/vine-io/vine/lib/logger"
	"golang.org/x/oauth2"

	"github.com/vine-io/formflow/api"
)

// Locker is the remote lock record. Implementations talk to the backend, they
// keep no lock state of their own.
type Locker interface {
	// Lock tries to take the lock. A lock held by someone else is not an
	// error: the status reports Available false with the holder.
	Lock(ctx context.Context, req *api.LockRequest, token *oauth2.Token) (*api.LockStatus, error)
	// Unlock releases the lock. An empty session token releases it whoever
	// holds it.
	Unlock(ctx context.Context, req *api.UnlockRequest, token *oauth2.Token) error
	// Status reports whether the lock could be taken now.
	Status(ctx context.Context, instanceID, activityName string, token *oauth2.Token) (*api.LockStatus, error)
}

// HeldError is returned when another session holds the lock. User and Reason
// come from the backend and are advisory.
type HeldError struct {
	InstanceID   string
	ActivityName string
	User         string
	Reason       string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("Instance is locked by %s. Reason: %s", e.User, e.Reason)
}

func (e *HeldError) Unwrap() error {
	return api.Conflict("instance %s activity %s is locked by %s", e.InstanceID, e.ActivityName, e.User)
}

const userKey = "user"

// WithUser returns a copy of token that names the user taking locks.
func WithUser(token *oauth2.Token, user string) *oauth2.Token {
	if token == nil {
		token = &oauth2.Token{}
	}
	return token.WithExtra(map[string]interface{}{userKey: user})
}

// User returns the user named by token, or "".
func User(token *oauth2.Token) string {
	if token == nil {
		return ""
	}
	if v, ok := token.Extra(userKey).(string); ok {
		return v
	}
	return ""
}

// Credentials returns a static token source for user.
func Credentials(accessToken, user string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(WithUser(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, user))
}

// Body runs while the lock is held. sessionToken identifies the lock.
type Body func(ctx context.Context, sessionToken string) error

type Manager struct {
	locker Locker
}

func NewManager(locker Locker) *Manager {
	return &Manager{locker: locker}
}

func token(creds oauth2.TokenSource) (*oauth2.Token, error) {
	if creds == nil {
		return nil, nil
	}
	t, err := creds.Token()
	if err != nil {
		return nil, api.Unauthorized("get credentials: %v", err)
	}
	return t, nil
}

// Acquire takes the lock and returns its session token. A lock held by
// another session is a *HeldError.
func (m *Manager) Acquire(ctx context.Context, req *api.LockRequest, creds oauth2.TokenSource) (string, error) {
	if err := req.Validate(); err != nil {
		return "", api.BadRequest("%v", err)
	}
	t, err := token(creds)
	if err != nil {
		return "", err
	}
	return m.acquire(ctx, req, t)
}

func (m *Manager) acquire(ctx context.Context, req *api.LockRequest, t *oauth2.Token) (string, error) {
	status, err := m.locker.Lock(ctx, req, t)
	if err != nil {
		return "", fmt.Errorf("lock instance %s: %w", req.InstanceID, err)
	}
	if status == nil || !status.Available {
		held := &HeldError{InstanceID: req.InstanceID, ActivityName: req.ActivityName}
		if status != nil {
			held.User = status.User
			held.Reason = status.Reason
		}
		return "", held
	}
	return status.SessionToken, nil
}

// Release gives back a lock taken by Acquire.
func (m *Manager) Release(ctx context.Context, instanceID, activityName, sessionToken string, creds oauth2.TokenSource) error {
	t, err := token(creds)
	if err != nil {
		return err
	}
	return m.locker.Unlock(ctx, &api.UnlockRequest{
		InstanceID:   instanceID,
		ActivityName: activityName,
		SessionToken: sessionToken,
	}, t)
}

// WithLock runs body while holding the lock described by req. When the lock
// is held elsewhere it returns a *HeldError and body does not run. Otherwise
// the lock is released exactly once after body returns or panics, and the
// result of body is what the caller sees: a failed release is only logged.
func (m *Manager) WithLock(ctx context.Context, req *api.LockRequest, creds oauth2.TokenSource, body Body) error {
	_, err := WithLock(ctx, m, req, creds, func(ctx context.Context, sessionToken string) (struct{}, error) {
		return struct{}{}, body(ctx, sessionToken)
	})
	return err
}

// WithLock is Manager.WithLock for a body that returns a value.
func WithLock[T any](ctx context.Context, m *Manager, req *api.LockRequest, creds oauth2.TokenSource, body func(ctx context.Context, sessionToken string) (T, error)) (T, error) {
	var zero T
	if err := req.Validate(); err != nil {
		return zero, api.BadRequest("%v", err)
	}
	t, err := token(creds)
	if err != nil {
		return zero, err
	}

	sessionToken, err := m.acquire(ctx, req, t)
	if err != nil {
		return zero, err
	}

	defer m.release(ctx, req, sessionToken, t)

	return body(ctx, sessionToken)
}

// release outlives the caller's cancellation so an abandoned edit still
// gives the lock back.
func (m *Manager) release(ctx context.Context, req *api.LockRequest, sessionToken string, t *oauth2.Token) {
	ctx = context.WithoutCancel(ctx)
	err := m.locker.Unlock(ctx, &api.UnlockRequest{
		InstanceID:   req.InstanceID,
		ActivityName: req.ActivityName,
		SessionToken: sessionToken,
	}, t)
	if err != nil {
		log.Errorf("release lock of instance %s activity %s: %v", req.InstanceID, req.ActivityName, err)
	}
}

// ForceUnlock releases the lock whoever holds it.
func (m *Manager) ForceUnlock(ctx context.Context, instanceID, activityName string, creds oauth2.TokenSource) error {
	req := &api.UnlockRequest{InstanceID: instanceID, ActivityName: activityName}
	if err := req.Validate(); err != nil {
		return api.BadRequest("%v", err)
	}
	t, err := token(creds)
	if err != nil {
		return err
	}
	return m.locker.Unlock(ctx, req, t)
}

// Status reports whether the lock is free, and who holds it when it is not.
func (m *Manager) Status(ctx context.Context, instanceID, activityName string, creds oauth2.TokenSource) (*api.LockStatus, error) {
	t, err := token(creds)
	if err != nil {
		return nil, err
	}
	return m.locker.Status(ctx, instanceID, activityName, t)
}
