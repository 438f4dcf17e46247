package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const tokenIssuer = "crosspost"

// GenerateToken signs a session token for owner. Production tokens are minted by
// the external auth service with the same secret; this is used by tests and local tooling.
func GenerateToken(secretKey, owner string, tokenDuration time.Duration) (string, error) {
	now := time.Now()
	claims := transfer.CustomClaims{
		UserID: owner,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return signedToken, nil
}

func ValidateToken(secretKey, tokenString string) (*transfer.CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &transfer.CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if claims, ok := token.Claims.(*transfer.CustomClaims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
