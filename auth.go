package confluo

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

// tokenIssuer names this service in the iss claim so tokens minted for
// other services signed with a shared secret are rejected.
const tokenIssuer = "confluod"

const tokenTTL = 24 * time.Hour

// clientClaims carries the API client name alongside the registered
// claim set.
type clientClaims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 token identifying an API client.
func GenerateToken(client string, secret []byte) (string, error) {
	now := time.Now()
	claims := clientClaims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken checks a token and returns the client name it carries.
// Only HMAC-signed tokens issued by this service are accepted.
func ValidateToken(tokenString string, secret []byte) (string, error) {
	claims := &clientClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Issuer != tokenIssuer {
		return "", errors.New("invalid issuer")
	}
	if claims.Client == "" {
		return "", errors.New("client not found in token")
	}
	return claims.Client, nil
}

// requireAuth wraps a handler with bearer-token validation. With no
// secret configured the handler is served as-is.
func requireAuth(secret []byte, next http.HandlerFunc) http.HandlerFunc {
	if len(secret) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := ValidateToken(tokenString, secret); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
