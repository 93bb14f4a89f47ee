// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services enforce the rules;
// repositories talk to the database. Services receive repository
// interfaces, never concrete types, so tests inject in-memory fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/auth"
	"github.com/muzerhq/muzer/internal/model"
	"github.com/muzerhq/muzer/internal/repository"
)

// AuthService handles the sign-in business logic.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignIn completes an OAuth sign-in: upsert the user record keyed by
// email, then issue a session token.
//
// FAIL CLOSED:
// Email is the identity key. If the provider did not give us one (some
// accounts hide it), we cannot upsert and must deny the sign-in rather
// than create a half-identified account. Persistence failures also deny
// the sign-in — the caller sees only a generic denial, the detail goes
// to the log.
//
// The upsert makes sign-in idempotent and provider-switch tolerant:
// first Google then GitHub yields one account whose provider column
// tracks the latest sign-in.
func (s *AuthService) SignIn(ctx context.Context, profile *auth.Profile) (*AuthResult, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/auth: profile must not be nil")
	}
	if profile.Email == "" {
		s.logger.Warn("sign-in denied: provider returned no email",
			slog.String("provider", string(profile.Provider)),
		)
		return nil, apperror.Unauthorized()
	}

	user := &model.User{
		Email:    profile.Email,
		Name:     profile.Name,
		Provider: profile.Provider,
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user: %w", err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("provider", string(user.Provider)),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{
		User:  user,
		Token: token,
	}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// /auth/me handler after the middleware has validated the session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized()
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}
