package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims extends the registered JWT claims with the caller identity.
type CustomClaims struct {
	Username             string `json:"username"`
	Role                 string `json:"role"`
	UserUID              string `json:"user_uid"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt and friends
}
