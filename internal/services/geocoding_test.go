package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "6.900000,79.850000", r.URL.Query().Get("latlng"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Galle Rd, Colombo"}]}`))
	}))
	defer srv.Close()

	s := NewGeocodingService("key")
	s.baseURL = srv.URL

	addr, err := s.ReverseGeocode(context.Background(), 6.9, 79.85)
	require.NoError(t, err)
	require.Equal(t, "Galle Rd, Colombo", addr.FormattedAddress)
}

func TestReverseGeocode_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	s := NewGeocodingService("key")
	s.baseURL = srv.URL

	_, err := s.ReverseGeocode(context.Background(), 0, 0)
	require.Error(t, err)
	require.Nil(t, NewGeocodingService(""))
}
