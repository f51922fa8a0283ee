package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminRole = "admin"

// JWTMiddleware checks an HS256 bearer token carrying the admin role and stores its claims in the context.
func JWTMiddleware(jwtSecret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				// Only HS256 is accepted.
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, errors.New("unexpected signing method")
				}
				return jwtSecret, nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				logger.Warn("JWT validation failed", "error", err)
				writeJSONError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			if !hasRole(claims, adminRole) {
				logger.Warn("JWT lacks admin role", "sub", claims["sub"])
				writeJSONError(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTMiddleware guards routes only when a secret is configured.
func OptionalJWTMiddleware(jwtSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	if jwtSecret == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return JWTMiddleware([]byte(jwtSecret), logger)
}

func hasRole(claims jwt.MapClaims, role string) bool {
	raw, ok := claims["roles"].([]interface{})
	if !ok {
		return false
	}
	return slices.ContainsFunc(raw, func(v interface{}) bool {
		s, ok := v.(string)
		return ok && s == role
	})
}

// IssueAdminToken signs a short-lived admin token for operator tooling.
func IssueAdminToken(jwtSecret, subject string, ttl time.Duration) (string, error) {
	if jwtSecret == "" {
		return "", errors.New("admin jwt secret is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": []string{adminRole},
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
