package auth

import (
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
	ErrInvalidUsername = errors.New("username must be 3-16 letters, digits, '_' or '-'")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,16}$`)

// ValidUsername reports whether name is acceptable as a display name.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate issues a token for username valid from now for the manager's TTL.
func (m *TokenManager) Generate(username string, now time.Time) (string, error) {
	if !ValidUsername(username) {
		return "", ErrInvalidUsername
	}
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify returns the username a valid token was issued for.
func (m *TokenManager) Verify(tokenString string, now time.Time) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case err != nil || !token.Valid:
		return "", ErrInvalidToken
	case !ValidUsername(claims.Username):
		return "", ErrInvalidToken
	}
	return claims.Username, nil
}
