// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/contracthub/internal/database"
	"github.com/tomtom215/contracthub/internal/models"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized is returned when a token cannot be tied to a live session and user.
	ErrUnauthorized = errors.New("unauthorized")
)

// UserStore is the subset of the persistence layer authentication needs.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User      *models.User
	SessionID string
}

// Service issues and verifies logins.
type Service struct {
	jwt      *JWTManager
	sessions SessionStore
	users    UserStore
}

// NewService wires the token manager, session store and user lookup together.
func NewService(jwtManager *JWTManager, sessions SessionStore, users UserStore) *Service {
	return &Service{jwt: jwtManager, sessions: sessions, users: users}
}

// Sessions returns the session store.
func (s *Service) Sessions() SessionStore {
	return s.sessions
}

// Login checks the credentials, creates a session and signs a token for it.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	session := NewSession(user.ID, user.Email, s.jwt.Timeout())
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, session.ID, session.ExpiresAt)
	if err != nil {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, err
	}

	return &LoginResult{Token: token, User: user, ExpiresAt: session.ExpiresAt}, nil
}

// Logout deletes the session. Unknown sessions are ignored.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Verify resolves a token to its caller. The token must be valid, its session
// live and owned by the token's subject, and the user must still exist.
func (s *Service) Verify(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	session, err := s.sessions.Get(ctx, claims.SessionID())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if session.UserID != claims.UserID() {
		return nil, fmt.Errorf("%w: session subject mismatch", ErrUnauthorized)
	}

	user, err := s.users.GetUser(ctx, claims.UserID())
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return &Principal{User: user, SessionID: session.ID}, nil
}
