package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestVerifyJWT(t *testing.T) {
	good, err := SignJWT(testSecret, NewToken("user-1", RoleAdmin, time.Hour))
	require.NoError(t, err)
	expired, err := SignJWT(testSecret, NewToken("user-1", "", -time.Minute))
	require.NoError(t, err)
	noSubject, err := SignJWT(testSecret, NewToken("", "", time.Hour))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := VerifyJWT(testSecret, good)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	for name, token := range map[string]string{
		"expired":      expired,
		"no subject":   noSubject,
		"alg none":     none,
		"wrong secret": good + "x",
		"garbage":      "a.b",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := VerifyJWT(testSecret, token)
			assert.Error(t, err)
		})
	}
}

func TestAuthMiddlewares(t *testing.T) {
	admin, err := SignJWT(testSecret, NewToken("admin-1", RoleAdmin, time.Hour))
	require.NoError(t, err)
	donor, err := SignJWT(testSecret, NewToken("donor-1", "", time.Hour))
	require.NoError(t, err)

	var seen string
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		handler  http.Handler
		token    string
		wantCode int
		wantUser string
	}{
		{"required without token", AuthJWT(testSecret)(ok), "", http.StatusUnauthorized, ""},
		{"required with token", AuthJWT(testSecret)(ok), donor, http.StatusNoContent, "donor-1"},
		{"optional without token", OptionalAuthJWT(testSecret)(ok), "", http.StatusNoContent, ""},
		{"optional with bad token", OptionalAuthJWT(testSecret)(ok), "bogus", http.StatusUnauthorized, ""},
		{"admin route as donor", AuthJWT(testSecret)(RequireAdmin(ok)), donor, http.StatusForbidden, ""},
		{"admin route as admin", AuthJWT(testSecret)(RequireAdmin(ok)), admin, http.StatusNoContent, "admin-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantUser, seen)
		})
	}
}
