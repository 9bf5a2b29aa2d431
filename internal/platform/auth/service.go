package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Avii12105/medlab/internal/platform/apperr"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// Session is what a successful login or registration hands back.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	users  UserRepository
	tokens *TokenIssuer
}

func NewService(users UserRepository, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// CreateUser stores a new account with the given role.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if len(username) < minUsernameLen {
		return nil, apperr.Validation("username must be at least %d characters", minUsernameLen)
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	if !ValidRole(role) {
		return nil, apperr.Validation("unknown role %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Register creates a staff account and signs the caller in.
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.CreateUser(ctx, username, password, RoleStaff)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	u, err := s.users.GetByUsername(ctx, username)
	if apperr.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        u.ID.String(),
		Username:  u.Username,
		Role:      u.Role,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}
