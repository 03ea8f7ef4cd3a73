package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"songcatalog/internal/auth"
	"songcatalog/internal/store"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, username, password string) (store.User, error)
	Authenticate(ctx context.Context, username, password string) (store.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, error)
}

// TokenValidator checks session tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Service exposes user-related workflows.
type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
	Authorize(ctx context.Context, token string) (store.User, error)
	EnsureUser(ctx context.Context, username, password string) (bool, error)
}

// TokenManager issues and validates tokens.
type TokenManager interface {
	TokenIssuer
	TokenValidator
}

type service struct {
	store  Store
	tokens TokenManager
}

// New wires a Service backed by the provided Store and token manager.
func New(userStore Store, tokens TokenManager) Service {
	return &service{store: userStore, tokens: tokens}
}

func (s *service) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", store.ErrInvalidCredentials
	}

	user, err := s.store.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID, user.Username)
}

func (s *service) Authorize(ctx context.Context, token string) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return store.User{}, err
	}
	return store.User{ID: claims.UserID, Username: claims.Username}, nil
}

// EnsureUser creates the account unless the username is already taken. It
// reports whether a new account was created.
func (s *service) EnsureUser(ctx context.Context, username, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if _, err := s.store.CreateUser(ctx, username, password); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return false, nil
		}
		return false, fmt.Errorf("create user %q: %w", username, err)
	}
	return true, nil
}
