package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"finwise/internal/auth"
	"finwise/internal/core"
	"finwise/internal/log"
	"finwise/internal/ports"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameLength     = errors.New("username must be 3 to 30 characters")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

type AccountService struct {
	users  ports.UserStore
	issuer *auth.Issuer
	logger *log.Logger
}

// NewAccountService wires account operations. issuer may be nil when no
// tokens are needed (the CLI).
func NewAccountService(users ports.UserStore, issuer *auth.Issuer, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AccountService{users: users, issuer: issuer, logger: logger.WithComponent(log.ComponentAccount)}
}

func (s *AccountService) Register(ctx context.Context, username, password, email string) (core.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return core.User{}, &core.ValidationError{Field: "username", Err: ErrUsernameLength}
	}
	if utf8.RuneCountInString(password) < 6 {
		return core.User{}, &core.ValidationError{Field: "password", Err: ErrPasswordTooShort}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.users.CreateUser(ctx, core.User{
		Username:     username,
		PasswordHash: hash,
		Email:        strings.TrimSpace(email),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("register %q: %w", username, err)
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID, log.FieldUsername, u.Username)
	return u, nil
}

// Authenticate returns the user when the password matches. Unknown users and
// wrong passwords yield the same error.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ports.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		s.logger.WarnContext(ctx, "Failed login", log.FieldUsername, u.Username)
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues a bearer token.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, core.User, error) {
	if s.issuer == nil {
		return "", core.User{}, errors.New("token issuer not configured")
	}
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", core.User{}, err
	}
	token, err := s.issuer.Issue(u.ID, u.Username)
	if err != nil {
		return "", core.User{}, err
	}
	return token, u, nil
}
