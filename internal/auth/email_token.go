package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mhalushka/rolodex/internal/config"
)

// EmailTokens issues and resolves the long-lived tokens embedded in email
// confirmation links. They are signed with a secret separate from session
// tokens, so a leaked confirmation link can never authenticate a request.
type EmailTokens struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

func NewEmailTokens(cfg *config.Config) (*EmailTokens, error) {
	method, err := signingMethodFromName(cfg.JWTAlgorithm)
	if err != nil {
		return nil, err
	}
	return &EmailTokens{
		secret: []byte(cfg.EmailTokenSecret),
		method: method,
		ttl:    cfg.EmailTokenTTL,
	}, nil
}

// Issue signs a confirmation token for email.
func (e *EmailTokens) Issue(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(e.ttl)),
	}
	return jwt.NewWithClaims(e.method, claims).SignedString(e.secret)
}

// Resolve returns the email a confirmation token was issued for. Expired,
// tampered, or foreign tokens all come back as ErrInvalidConfirmationToken.
func (e *EmailTokens) Resolve(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return e.secret, nil
	}, jwt.WithValidMethods([]string{e.method.Alg()}))
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidConfirmationToken
	}
	return claims.Subject, nil
}
