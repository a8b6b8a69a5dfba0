package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"storefront/internal/domain"
	"storefront/internal/logger"
	userrepo "storefront/internal/repository/user"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken is returned when a request carries no token.
	ErrMissingToken = errors.New("access denied: no token provided")
	// ErrInvalidToken covers bad signatures, malformed, expired and revoked tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

const minPasswordLength = 8

// Denylist remembers revoked token ids until they would have expired.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service handles signup, login and token verification.
type Service struct {
	repo     userrepo.Repository
	tokens   *tokenManager
	denylist Denylist
	logger   *slog.Logger
}

type Option func(*Service)

// WithDenylist enables logout by token revocation.
func WithDenylist(d Denylist) Option {
	return func(s *Service) { s.denylist = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service issuing HS256 tokens signed with secret.
func New(repo userrepo.Repository, secret []byte, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tokens: newTokenManager(secret, ttl),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrDiscard(s.logger)
	return s
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Session is the result of a successful signup or login.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Signup registers a user and returns a fresh session.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", domain.ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: valid email required", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("user %w", domain.ErrAlreadyExists)
		}
		return nil, err
	}
	s.logger.Info("auth: signup", "user_id", u.ID)
	return s.session(u.ID)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u.ID)
}

// Verify resolves a raw bearer token to the identity it was issued for.
func (s *Service) Verify(ctx context.Context, raw string) (*Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingToken
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		s.logger.Debug("auth: reject token", "error", err)
		return nil, ErrInvalidToken
	}
	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check denylist: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return &Identity{UserID: claims.UserID, TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Logout revokes the token until it expires. Without a denylist the call
// succeeds and the token lives out its TTL.
func (s *Service) Logout(ctx context.Context, id Identity) error {
	if s.denylist == nil || id.TokenID == "" {
		return nil
	}
	if err := s.denylist.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("auth: logout", "user_id", id.UserID)
	return nil
}

// TokenTTL exposes the token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.ttl
}

func (s *Service) session(userID string) (*Session, error) {
	token, exp, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: userID, Token: token, ExpiresAt: exp}, nil
}
