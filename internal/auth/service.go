// Package auth registers users, checks their credentials and issues and
// verifies stateless HS256 session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = time.Hour

// BcryptCost is the work factor used for new password hashes.
const BcryptCost = 10

// ErrInvalidCredentials is returned for both an unknown user and a wrong
// password so callers cannot tell them apart.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", core.ErrAuth)

type Service struct {
	users  storage.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(log.ComponentAuth) }
}

func NewService(users storage.UserStore, secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	s := &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentAuth),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user and returns its id.
func (s *Service) Register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, core.ErrEmptyUsername
	}
	if password == "" {
		return 0, core.ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, username, string(hash))
	if err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldUserID, id,
		log.FieldUsername, username,
		log.FieldOperation, log.OpRegister)
	return id, nil
}

// Login checks the credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger.WarnContext(ctx, "Login failed",
			log.FieldUserID, u.ID,
			log.FieldErrorType, log.ErrorTypeAuth)
		return "", ErrInvalidCredentials
	}

	token, err := s.sign(u)
	if err != nil {
		return "", err
	}
	return token, nil
}
