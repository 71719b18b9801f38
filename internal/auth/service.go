// Package auth implements account sessions: bcrypt credentials, signed
// access and refresh tokens, email confirmation tokens, and the gin
// middleware that guards protected routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mhalushka/rolodex/internal/config"
	"github.com/mhalushka/rolodex/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidCredentials       = errors.New("invalid email")
	ErrInvalidPassword          = errors.New("invalid password")
	ErrEmailNotConfirmed        = errors.New("email not confirmed")
	ErrInvalidRefreshToken      = errors.New("invalid or expired refresh token")
	ErrUnauthorized             = errors.New("invalid or expired access token")
	ErrInvalidConfirmationToken = errors.New("invalid confirmation token")
)

// UserStore is the slice of the users store that auth needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailFresh(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRefreshToken(ctx context.Context, email string, token *string) error
	UpdateAvatar(ctx context.Context, email, avatarURL string) (*models.User, error)
	ConfirmEmail(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
}

// TokenPair is the body returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// sessionClaims adds a type discriminator so an access token can never be
// replayed as a refresh token or vice versa.
type sessionClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Service issues and validates session tokens.
type Service struct {
	users      UserStore
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(users UserStore, cfg *config.Config) (*Service, error) {
	method, err := signingMethodFromName(cfg.JWTAlgorithm)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:      users,
		secret:     []byte(cfg.JWTSecret),
		method:     method,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

func signingMethodFromName(name string) (jwt.SigningMethod, error) {
	switch name {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm %q", name)
	}
}

// Authenticate verifies credentials and issues a fresh token pair. The new
// refresh token replaces the stored one, so any earlier session loses its
// ability to refresh.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(user.Password, password) {
		return nil, ErrInvalidPassword
	}
	if !user.Confirmed {
		return nil, ErrEmailNotConfirmed
	}

	pair, err := s.IssueTokenPair(email)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, email, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// Refresh rotates the session for a presented refresh token. The token must
// parse with type "refresh" and match the stored token byte for byte;
// anything else is ErrInvalidRefreshToken. Two concurrent refreshes can both
// pass the equality check before either rotation lands; the second persisted
// pair wins. Accepted, no row lock.
func (s *Service) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	claims, err := s.parseToken(raw, tokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// Read through to storage: a cached row could still carry the
	// pre-rotation token and accept a stale credential.
	user, err := s.users.GetByEmailFresh(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil || user.RefreshToken == nil || *user.RefreshToken != raw {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.IssueTokenPair(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, user.Email, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// RequireAccess resolves an access token to its user. Lookups go through the
// cache since this runs on every authenticated request.
func (s *Service) RequireAccess(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.parseToken(raw, tokenTypeAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// IssueTokenPair signs a new access and refresh token for email.
func (s *Service) IssueTokenPair(email string) (*TokenPair, error) {
	access, err := s.IssueAccessToken(email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// IssueAccessToken signs a short-lived token that RequireAccess accepts.
func (s *Service) IssueAccessToken(email string) (string, error) {
	return s.signToken(email, tokenTypeAccess, s.accessTTL)
}

// IssueRefreshToken signs a longer-lived token that Refresh accepts, provided
// it also matches the copy stored on the user row.
func (s *Service) IssueRefreshToken(email string) (string, error) {
	return s.signToken(email, tokenTypeRefresh, s.refreshTTL)
}

func (s *Service) signToken(email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

func (s *Service) parseToken(raw, wantType string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{s.method.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("token type %q where %q is required", claims.TokenType, wantType)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
