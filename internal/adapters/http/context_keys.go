package http

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a typed key for the context.
type contextKey string

// claimsContextKey holds the verified JWT claims.
const claimsContextKey contextKey = "claims"

// SubjectFromContext returns the "sub" claim of the authenticated admin.
func SubjectFromContext(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(claimsContextKey).(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}
