package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthenticate(t *testing.T) {
	var gotAdminID int64
	var handlerCalled bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		id, err := GetAdminIDFromContext(r.Context())
		if err != nil {
			t.Errorf("GetAdminIDFromContext: %v", err)
		}
		gotAdminID = id
	})
	handler := Authenticate(testSecret)(next)

	valid := signToken(t, testSecret, jwt.MapClaims{
		"admin_id": 777,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", jwt.MapClaims{"admin_id": 777}), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"admin_id": 777,
			"exp":      time.Now().Add(-time.Hour).Unix(),
		}), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false
			req := httptest.NewRequest(http.MethodGet, "/admin/overview", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if !handlerCalled {
					t.Error("next handler was not called")
				}
				if gotAdminID != 777 {
					t.Errorf("admin id = %d, want 777", gotAdminID)
				}
			} else if handlerCalled {
				t.Error("next handler must not run for rejected requests")
			}
		})
	}
}

func TestGetAdminIDFromContextWithoutClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := GetAdminIDFromContext(req.Context()); err == nil {
		t.Error("expected an error without claims in context")
	}
}
