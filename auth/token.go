// Package auth issues and validates the bearer tokens that bind HTTP and
// WebSocket requests to a stable user identity.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the registered claims plus the user id the token was
// issued for.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// GenerateToken signs an HS256 token for the given user id.
func GenerateToken(userID int64, secret []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		UserID: userID,
	})

	return token.SignedString(secret)
}

// UserIDFromToken validates the token signature and expiry and returns the
// user id it was issued for.
func UserIDFromToken(tokenString string, secret []byte) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}

	if !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}
