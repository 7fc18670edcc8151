package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "unit-test-secret", Issuer: "challenge.identity"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return signed
}

func TestParseValidToken(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{"health:write", "challenges:read"},
	})

	claims, err := Parse(signed, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopeHealthWrite))
	require.True(t, claims.HasScope(ScopeChallengesRead))
	require.False(t, claims.HasScope("admin"))
}

func TestParseAcceptsSpaceSeparatedScopes(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "health:write challenges:read",
	})

	claims, err := Parse(signed, testConfig)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeHealthWrite))
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(signed, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := Parse(signed, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{"health:write"},
	})

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := NewMiddleware(testConfig, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/health-data/sync", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-1", seen.Subject)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/health-data/sync", nil)
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareSkipperBypassesAuth(t *testing.T) {
	skipper := func(r *http.Request) bool { return r.URL.Path == "/healthz" }
	mw := NewMiddleware(testConfig, skipper)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}
