package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const adminContextKey contextKey = "admin"

const jwtClaimAdminID = "admin_id"

// Authenticate проверяет Bearer-токен и кладёт claims в контекст запроса.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminIDFromContext достаёт admin_id из claims, положенных Authenticate.
func GetAdminIDFromContext(ctx context.Context) (int64, error) {
	claims, ok := ctx.Value(adminContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("admin claims not found in context or invalid type")
	}

	idClaim, ok := claims[jwtClaimAdminID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimAdminID)
	}

	// JSON-числа приходят как float64.
	idFloat, ok := idClaim.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number, got %T", jwtClaimAdminID, idClaim)
	}
	if idFloat != float64(int64(idFloat)) {
		return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimAdminID, idFloat)
	}

	adminID := int64(idFloat)
	if adminID == 0 {
		return 0, fmt.Errorf("invalid admin ID value in '%s' claim: %d", jwtClaimAdminID, adminID)
	}
	return adminID, nil
}
