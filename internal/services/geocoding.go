package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GeocodingService turns the truck's position into a street address using Google Maps
type GeocodingService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Address is a reverse-geocoded position
type Address struct {
	FormattedAddress string  `json:"formattedAddress"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

type googleGeocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"`
}

// NewGeocodingService returns nil when no API key is configured
func NewGeocodingService(apiKey string) *GeocodingService {
	if apiKey == "" {
		return nil
	}
	return &GeocodingService{
		apiKey:  apiKey,
		baseURL: googleGeocodeURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ReverseGeocode converts coordinates to an address
func (s *GeocodingService) ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error) {
	params := url.Values{}
	params.Add("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Add("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build geocode request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "geocode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("geocoding API returned status code %d", resp.StatusCode)
	}

	var result googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode geocode response")
	}

	if result.Status != "OK" {
		return nil, errors.Errorf("geocoding API returned status: %s", result.Status)
	}
	if len(result.Results) == 0 {
		return nil, errors.New("no results found")
	}

	return &Address{
		FormattedAddress: result.Results[0].FormattedAddress,
		Latitude:         lat,
		Longitude:        lng,
	}, nil
}
