package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "tripplanner-test"}

func TestParseRoundTrip(t *testing.T) {
	token, err := Sign(testConfig, "user-1", "Ana@Example.com", []string{ScopeProjectsRead}, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "ana@example.com", claims.Email)
	require.True(t, claims.CanRead())
	require.False(t, claims.CanWrite())
}

func TestParseRejectsBadTokens(t *testing.T) {
	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)

	expired, err := Sign(testConfig, "user-1", "", nil, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer, err := Sign(Config{Secret: testConfig.Secret, Issuer: "someone-else"}, "user-1", "", nil, time.Hour)
	require.NoError(t, err)
	_, err = Parse(otherIssuer, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongSecret, err := Sign(Config{Secret: "nope", Issuer: testConfig.Issuer}, "user-1", "", nil, time.Hour)
	require.NoError(t, err)
	_, err = Parse(wrongSecret, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = Parse(none, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAcceptsScopeArrays(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "user-2",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeProjectsWrite},
	}).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.True(t, claims.CanWrite())
	require.True(t, claims.CanRead())
}

func TestMiddleware(t *testing.T) {
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig).Wrap(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Nil(t, seen)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/projects", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"type":"unauthorized","detail":"missing bearer token"}`, rr.Body.String())

	token, err := Sign(testConfig, "user-1", "ana@example.com", []string{ScopeProjectsWrite}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-1", seen.Subject)

	req = httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set("Authorization", "Basic abc")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
