// Package auth mints and verifies the HS256 bearer tokens of the record
// store. The token subject is the actor recorded on writes.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims — стандартные утверждения; Subject хранит имя автора изменений.
type Claims struct {
	jwt.RegisteredClaims
}

func GenerateToken(actor string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ActorFromToken verifies tokenString and returns its subject. Expired
// tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func ActorFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
