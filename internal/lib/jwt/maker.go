// Package jwt implements generation and parsing of JWT tokens carrying the
// caller identity (username, role, user uid) as custom claims.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker describes the interface for issuing and parsing JWT tokens.
type Maker interface {
	// GenerateToken issues a token for the given username, role and uid.
	GenerateToken(username, role, userUID string) (string, error)
	// ParseToken validates a token and returns its custom claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl implements Maker with an HS256 secret key and a token TTL.
type MakerImpl struct {
	secretKey string        // Signing secret
	tokenTTL  time.Duration // Token lifetime
}

// NewJWTMaker creates a MakerImpl from a secret key and TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// GenerateToken creates an HS256-signed token with the given identity.
func (j *MakerImpl) GenerateToken(username, role, userUID string) (string, error) {
	claims := CustomClaims{
		Username: username,
		Role:     role,
		UserUID:  userUID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken checks the token signature and validity and returns the
// embedded custom claims.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
