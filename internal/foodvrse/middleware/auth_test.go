package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25x8/foodvrse/internal/foodvrse/repository"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("u-1", testSecret)
	require.NoError(t, err)

	userID, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	repo := repository.NewMemoryRepository()
	userID, err := repo.CreateUser(context.Background(), "amina", "hash", "Amina")
	require.NoError(t, err)

	handler := AuthMiddleware(&JWTConfig{SecretKey: testSecret, Repo: repo})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetUserID(r.Context())
			require.True(t, ok)
			w.Write([]byte(id))
		}),
	)

	valid, err := GenerateToken(userID, testSecret)
	require.NoError(t, err)
	ghost, err := GenerateToken("deleted-user", testSecret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"unknown user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ghost) }, http.StatusUnauthorized},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: authCookieName, Value: valid}) }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID, rec.Body.String())
			}
		})
	}
}
