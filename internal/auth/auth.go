package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
)

// DevEmail is the fixed identity produced by the local development bypass.
const DevEmail = "dev@localhost"

const bearerPrefix = "Bearer "

var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
	// ErrMissingClaims indicates a valid token without the identity claims.
	ErrMissingClaims = errors.New("missing required claims")
)

// Config contains authentication settings.
type Config struct {
	JWTSecret   string        `env:"AUTH_JWT_SECRET"`
	DevBypass   bool          `env:"AUTH_DEV_BYPASS"   envDefault:"false"`
	AdminEmails []string      `env:"AUTH_ADMIN_EMAILS" envSeparator:","`
	TokenTTL    time.Duration `env:"AUTH_TOKEN_TTL"    envDefault:"24h"`
}

// Claims are the claims carried by session tokens.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	secret    []byte
	devBypass bool
	admins    map[string]struct{}
	tokenTTL  time.Duration
}

// NewAuthenticator creates an authenticator (DI constructor).
func NewAuthenticator(cfg *Config) *Authenticator {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = struct{}{}
		}
	}

	return &Authenticator{
		secret:    []byte(cfg.JWTSecret),
		devBypass: cfg.DevBypass,
		admins:    admins,
		tokenTTL:  cfg.TokenTTL,
	}
}

// Authenticate validates the Authorization header value and returns the caller.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (domain.Identity, error) {
	if a.devBypass {
		observability.FromContext(ctx).Debug("development bypass identity used")
		return domain.Identity{UserID: DevEmail, Email: DevEmail, Development: true}, nil
	}

	if !strings.HasPrefix(authorization, bearerPrefix) {
		return domain.Identity{}, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}

	claims, err := a.parse(strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix)))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	return domain.Identity{
		UserID: claims.Subject,
		Email:  strings.ToLower(claims.Email),
	}, nil
}

// IsAdmin reports whether the identity may hard-set balances.
func (a *Authenticator) IsAdmin(id domain.Identity) bool {
	if id.Development {
		return true
	}
	_, ok := a.admins[strings.ToLower(id.Email)]
	return ok
}

// IssueToken signs a session token for the given subject and email that
// expires after AUTH_TOKEN_TTL.
func (a *Authenticator) IssueToken(subject, email string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: AUTH_JWT_SECRET", domain.ErrConfiguration)
	}

	now := time.Now().UTC()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrMissingClaims
	}

	return claims, nil
}
