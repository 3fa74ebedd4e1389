// Package token issues and verifies the admin session JWTs.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is the fixed lifetime of an admin token.
const TTL = 7 * 24 * time.Hour

var (
	ErrNoSecret = errors.New("jwt secret is not configured")
	ErrInvalid  = errors.New("invalid token")
	ErrExpired  = errors.New("token has expired")
)

type Claims struct {
	jwt.RegisteredClaims
	AdminID  uint   `json:"adminId"`
	Username string `json:"username"`
}

type Manager struct {
	secret []byte
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of m that reads the time from now.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	c := *m
	c.now = now
	return &c
}

func (m *Manager) Configured() bool { return len(m.secret) > 0 }

// Issue signs a token for the admin valid for TTL from now.
func (m *Manager) Issue(adminID uint, username string) (string, time.Time, error) {
	if !m.Configured() {
		return "", time.Time{}, ErrNoSecret
	}

	now := m.now()
	expiresAt := now.Add(TTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AdminID:  adminID,
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature first and the expiry second, so a forged
// token past its exp reports ErrInvalid rather than ErrExpired.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	if !m.Configured() {
		return nil, ErrNoSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tok.Valid || claims.AdminID == 0 {
		return nil, ErrInvalid
	}
	return claims, nil
}
