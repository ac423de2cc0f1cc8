package jwt

import (
	"errors"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature,
// expiry, or a subject that is missing or not an integer user id.
var ErrInvalidToken = errors.New("jwt: invalid token")

// GenerateToken issues a signed HS256 JWT whose subject is the user id.
func GenerateToken(userID int64, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtlib.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token and extracts the user id from its subject.
func ParseToken(token string, secret string) (int64, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &jwtlib.RegisteredClaims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		return 0, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwtlib.RegisteredClaims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
