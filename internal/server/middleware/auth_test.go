package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testIdentity struct {
	userID uuid.UUID
	email  string
}

func (c testIdentity) GetUserID() uuid.UUID { return c.userID }
func (c testIdentity) GetEmail() string     { return c.email }

// testTokenValidator accepts only tokens registered with add.
type testTokenValidator struct {
	valid map[string]testIdentity
}

func newTestTokenValidator() *testTokenValidator {
	return &testTokenValidator{valid: make(map[string]testIdentity)}
}

func (v *testTokenValidator) add(token string, id testIdentity) {
	v.valid[token] = id
}

func (v *testTokenValidator) ValidateToken(tokenString string) (Identity, error) {
	id, ok := v.valid[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return id, nil
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	validator := newTestTokenValidator()
	want := testIdentity{userID: uuid.New(), email: "asha@example.com"}
	validator.add("valid-test-token-123", want)

	var gotID uuid.UUID
	var gotEmail string
	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserID(r)
		require.NoError(t, err)
		gotID, gotEmail = id, GetEmail(r)
		w.WriteHeader(http.StatusOK)
	}))

	for _, scheme := range []string{"Bearer", "bearer", "BeArEr"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", scheme+" valid-test-token-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, scheme)
		assert.Equal(t, want.userID, gotID)
		assert.Equal(t, want.email, gotEmail)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	validator := newTestTokenValidator()
	validator.add("token123", testIdentity{userID: uuid.New()})

	tests := []struct {
		name       string
		authHeader string
		message    string
	}{
		{"missing header", "", "Missing or malformed"},
		{"missing Bearer prefix", "token123", "Missing or malformed"},
		{"only Bearer", "Bearer", "Missing or malformed"},
		{"empty token", "Bearer ", "Missing or malformed"},
		{"basic scheme", "Basic token123", "Missing or malformed"},
		{"extra parts", "Bearer token123 extra", "Missing or malformed"},
		{"unknown token", "Bearer not.a.valid.jwt", "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(validator)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(t, called, "handler should not be called")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.message)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestGetUserID(t *testing.T) {
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(WithIdentity(req.Context(), userID, "a@b.c"))

	got, err := GetUserID(req)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "a@b.c", GetEmail(req))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	_, err = GetUserID(req)
	assert.Error(t, err)
	assert.Empty(t, GetEmail(req))

	req = req.WithContext(context.WithValue(req.Context(), userIDKey, "not-a-uuid"))
	_, err = GetUserID(req)
	assert.Error(t, err)
}
