package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTAuth_IssueAndParse(t *testing.T) {
	a := NewJWTAuth("secret", time.Hour, nil)
	tok, err := a.Issue(UserClaims{UserID: "uid-7", Email: "t@x", TruckID: "TRUCK007", Role: RoleDriver})
	require.NoError(t, err)

	claims, err := a.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "TRUCK007", claims.TruckID)

	_, err = NewJWTAuth("other", time.Hour, nil).Parse(tok)
	require.Error(t, err)

	expired, err := NewJWTAuth("secret", -time.Minute, nil).Issue(UserClaims{UserID: "uid-7"})
	require.NoError(t, err)
	_, err = a.Parse(expired)
	require.Error(t, err)
}

func TestJWTAuth_Middleware(t *testing.T) {
	a := NewJWTAuth("secret", time.Hour, nil)
	var got UserClaims
	h := a.Auth(RequireRole(RoleDriver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserFromContext(r)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.Issue(UserClaims{UserID: "uid-7", Role: RoleDriver})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "uid-7", got.UserID)

	tok, err = a.Issue(UserClaims{UserID: "uid-8", Role: "supervisor"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
