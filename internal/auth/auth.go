package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crypticpy/COA-AI-Template/internal/config"
)

// ErrInvalidToken is returned for credentials that fail verification.
var ErrInvalidToken = errors.New("invalid authentication token")

// Verifier checks a bearer credential and returns the subject it belongs
// to.
type Verifier interface {
	Verify(token string) (subject string, err error)
}

// FromConfig picks the verifier the configuration names: a static API
// token wins, then an HS256 JWT secret. Nil means auth is disabled.
func FromConfig(cfg config.AuthConfig) Verifier {
	if cfg.APIToken != "" {
		return NewStaticVerifier(cfg.APIToken)
	}
	if cfg.JWTSecret != "" {
		return NewHS256Verifier(cfg.JWTSecret)
	}
	return nil
}

// StaticVerifier accepts a single pre-shared token.
type StaticVerifier struct {
	token string
}

func NewStaticVerifier(token string) *StaticVerifier {
	return &StaticVerifier{token: token}
}

func (v *StaticVerifier) Verify(token string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return "", ErrInvalidToken
	}
	return "api-token", nil
}

// HS256Verifier validates JWTs signed with a shared HS256 secret, the
// scheme hosted identity providers use for their issued access tokens.
type HS256Verifier struct {
	secret []byte
}

func NewHS256Verifier(secret string) *HS256Verifier {
	return &HS256Verifier{secret: []byte(secret)}
}

func (v *HS256Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}
	return sub, nil
}

// MintHS256 signs a short-lived token that HS256Verifier accepts. The CLI
// uses it to call a server configured with a JWT secret.
func MintHS256(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

type subjectKey struct{}

// WithSubject attaches the verified principal to the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the verified principal, or "" when the request was
// not authenticated.
func SubjectFrom(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}
