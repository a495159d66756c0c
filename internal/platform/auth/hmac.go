package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer   = "ecochamps"
	defaultTokenTTL = 24 * time.Hour
	minSecretLength = 32
)

var errMissingSubject = errors.New("token missing subject claim")

// hmacTokens signs and validates HS256 tokens with a secret only this service knows.
type hmacTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func newHMACTokens(cfg Config) (TokenService, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("auth secret must be at least %d bytes", minSecretLength)
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &hmacTokens{secret: []byte(cfg.Secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

func (h *hmacTokens) Issue(_ context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id must not be empty")
	}
	now := h.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    h.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (h *hmacTokens) Verify(_ context.Context, token string) (AuthenticatedUser, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil {
		return AuthenticatedUser{}, fmt.Errorf("token verification failed: %w", err)
	}
	if claims.Subject == "" {
		return AuthenticatedUser{}, errMissingSubject
	}

	var expiresAt int64
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Unix()
	}
	return AuthenticatedUser{UserID: claims.Subject, ExpiresAt: expiresAt, Token: token}, nil
}
