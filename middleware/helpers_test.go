package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticator(t *testing.T) {
	const secret = "test-secret"

	var gotUserID int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		gotUserID = userID
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticator(secret)(next)

	serve := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token", func(t *testing.T) {
		token := signTestToken(t, secret, jwt.MapClaims{
			"user_id": 42,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		rec := serve("Bearer " + token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 42, gotUserID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		rec := serve("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signTestToken(t, "other-secret", jwt.MapClaims{
			"user_id": 42,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		rec := serve("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signTestToken(t, secret, jwt.MapClaims{
			"user_id": 42,
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		rec := serve("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	cases := []struct {
		name    string
		claims  jwt.MapClaims
		want    int
		wantErr bool
	}{
		{name: "float64 claim", claims: jwt.MapClaims{"user_id": float64(7)}, want: 7},
		{name: "string claim", claims: jwt.MapClaims{"user_id": "7"}, want: 7},
		{name: "non-integer float", claims: jwt.MapClaims{"user_id": 7.5}, wantErr: true},
		{name: "zero id", claims: jwt.MapClaims{"user_id": float64(0)}, wantErr: true},
		{name: "negative string id", claims: jwt.MapClaims{"user_id": "-3"}, wantErr: true},
		{name: "junk string", claims: jwt.MapClaims{"user_id": "abc"}, wantErr: true},
		{name: "missing claim", claims: jwt.MapClaims{}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.WithValue(context.Background(), userContextKey, tc.claims)
			got, err := GetUserIDFromContext(ctx)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("no claims in context", func(t *testing.T) {
		_, err := GetUserIDFromContext(context.Background())
		require.Error(t, err)
	})
}
