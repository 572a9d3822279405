package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockVerifier implements TokenVerifier for testing
type mockVerifier struct {
	verifyFunc func(ctx context.Context, idToken string) (*auth.Token, error)
}

func (m *mockVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, idToken)
	}
	return nil, errors.New("not implemented")
}

func TestRequireAuth_ValidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, idToken string) (*auth.Token, error) {
			return &auth.Token{
				UID: "test-user-123",
				Claims: map[string]interface{}{
					"email": "test@example.com",
				},
			}, nil
		},
	}

	m := NewAuthMiddleware(verifier)

	var capturedUserID string
	var capturedAuthInfo AuthInfo
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		require.True(t, ok, "UserID should be in context")
		capturedUserID = userID

		authInfo, ok := GetAuth(r)
		require.True(t, ok, "AuthInfo should be in context")
		capturedAuthInfo = authInfo

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer valid-token-123")

	w := httptest.NewRecorder()
	m.RequireAuth(handler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
	assert.Equal(t, "test-user-123", capturedUserID)
	assert.Equal(t, "test-user-123", capturedAuthInfo.UserID)
	assert.Equal(t, "test@example.com", capturedAuthInfo.Email)
}

func TestRequireAuth_MissingAuthorizationHeader(t *testing.T) {
	m := NewAuthMiddleware(&mockVerifier{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called when auth header is missing")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	w := httptest.NewRecorder()
	m.RequireAuth(handler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Missing authorization header")
}

func TestRequireAuth_InvalidHeaderFormat(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "missing Bearer prefix", authHeader: "token-without-bearer"},
		{name: "wrong prefix", authHeader: "Basic token-123"},
		{name: "lowercase bearer", authHeader: "bearer token-123"},
		{name: "no token after Bearer", authHeader: "Bearer"},
		{name: "too many parts", authHeader: "Bearer token-123 extra-part"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(&mockVerifier{})

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("Handler should not be called for invalid auth header")
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", tt.authHeader)

			w := httptest.NewRecorder()
			m.RequireAuth(handler).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "Invalid authorization header format")
		})
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, idToken string) (*auth.Token, error) {
			return nil, errors.New("invalid token signature")
		},
	}

	m := NewAuthMiddleware(verifier)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called for invalid token")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")

	w := httptest.NewRecorder()
	m.RequireAuth(handler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
}

func TestRequireAuth_TokenWithoutEmail(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, idToken string) (*auth.Token, error) {
			return &auth.Token{
				UID:    "user-without-email",
				Claims: map[string]interface{}{},
			}, nil
		},
	}

	m := NewAuthMiddleware(verifier)

	var capturedAuthInfo AuthInfo
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authInfo, ok := GetAuth(r)
		require.True(t, ok)
		capturedAuthInfo = authInfo
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer token-no-email")

	w := httptest.NewRecorder()
	m.RequireAuth(handler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-without-email", capturedAuthInfo.UserID)
	assert.Equal(t, "", capturedAuthInfo.Email)
}

func TestRequireAuth_EmailClaimTypes(t *testing.T) {
	tests := []struct {
		name          string
		emailClaim    interface{}
		expectedEmail string
	}{
		{name: "valid string email", emailClaim: "user@example.com", expectedEmail: "user@example.com"},
		{name: "non-string email claim (int)", emailClaim: 12345, expectedEmail: ""},
		{name: "non-string email claim (bool)", emailClaim: true, expectedEmail: ""},
		{name: "nil email claim", emailClaim: nil, expectedEmail: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{
				verifyFunc: func(ctx context.Context, idToken string) (*auth.Token, error) {
					claims := map[string]interface{}{}
					if tt.emailClaim != nil {
						claims["email"] = tt.emailClaim
					}
					return &auth.Token{
						UID:    "test-user",
						Claims: claims,
					}, nil
				},
			}

			m := NewAuthMiddleware(verifier)

			var capturedAuthInfo AuthInfo
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authInfo, _ := GetAuth(r)
				capturedAuthInfo = authInfo
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", "Bearer test-token")

			w := httptest.NewRecorder()
			m.RequireAuth(handler).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.expectedEmail, capturedAuthInfo.Email)
		})
	}
}

func TestRequireAuth_MalformedTokens(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "injection attempt in token", authHeader: "Bearer ';drop--"},
		{name: "very long token", authHeader: "Bearer " + strings.Repeat("a", 10000)},
		{name: "null bytes in token", authHeader: "Bearer token\x00withnull"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{
				verifyFunc: func(ctx context.Context, idToken string) (*auth.Token, error) {
					return nil, errors.New("invalid token")
				},
			}

			m := NewAuthMiddleware(verifier)

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", tt.authHeader)

			w := httptest.NewRecorder()
			m.RequireAuth(handler).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, handlerCalled, "Handler should not run for rejected token")
		})
	}
}

func TestGetUserID_NoAuthInContext(t *testing.T) {
	userID, ok := GetUserID(context.Background())
	assert.False(t, ok, "GetUserID should return false when no auth in context")
	assert.Equal(t, "", userID)
}

func TestGetUserID_ValidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "test-user-456")
	userID, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "test-user-456", userID)
}

func TestGetAuth_NoAuthInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	authInfo, ok := GetAuth(req)
	assert.False(t, ok, "GetAuth should return false when no auth in context")
	assert.Equal(t, AuthInfo{}, authInfo)
}

func TestGetAuth_WrongTypeInContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), AuthKey, "not-an-authinfo")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(ctx)

	authInfo, ok := GetAuth(req)
	assert.False(t, ok, "GetAuth should return false for wrong type")
	assert.Equal(t, AuthInfo{}, authInfo)
}
