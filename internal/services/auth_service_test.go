package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vatelanka-driver/internal/models"

	"github.com/stretchr/testify/require"
)

func newAuthTestServer(t *testing.T, handler http.HandlerFunc) *AuthService {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewAuthService("test-key", nil, nil)
	s.baseURL = srv.URL
	return s
}

func TestAuthService_SignIn(t *testing.T) {
	s := newAuthTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req signInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "truck007@vatelanka.lk", req.Email)
		require.True(t, req.ReturnSecureToken)

		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken": "tok",
			"email":   req.Email,
			"localId": "uid-7",
		})
	})

	var seen []*models.Principal
	unsubscribe := s.OnAuthStateChanged(func(p *models.Principal) { seen = append(seen, p) })
	defer unsubscribe()

	p, err := s.SignIn(context.Background(), "truck007@vatelanka.lk", "secret")
	require.NoError(t, err)
	require.Equal(t, "uid-7", p.UID)
	require.Equal(t, "tok", p.IDToken)

	require.NoError(t, s.SignOut(context.Background()))
	require.Len(t, seen, 3)
	require.Nil(t, seen[0])
	require.Equal(t, "uid-7", seen[1].UID)
	require.Nil(t, seen[2])
}

func TestAuthService_ErrorMapping(t *testing.T) {
	cases := map[string]error{
		"INVALID_LOGIN_CREDENTIALS":                             models.ErrInvalidCredentials,
		"INVALID_PASSWORD":                                      models.ErrInvalidCredentials,
		"USER_DISABLED : The user account has been disabled.": models.ErrAccountDisabled,
	}

	for msg, want := range cases {
		s := newAuthTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 400, "message": msg},
			})
		})

		_, err := s.SignIn(context.Background(), "a@b.c", "x")
		require.ErrorIs(t, err, want, msg)
		require.Nil(t, s.Current())
	}
}

func TestAuthService_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	s := NewAuthService("k", nil, nil)
	s.baseURL = srv.URL

	_, err := s.SignIn(context.Background(), "a@b.c", "x")
	require.ErrorIs(t, err, models.ErrAuthNetwork)
}
