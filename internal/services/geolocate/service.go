package geolocate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Service resolves the caller's approximate position through an
// IP-geolocation endpoint. It stands in for the browser's
// current-position capability.
type Service struct {
	httpClient *http.Client
	endpoint   string
}

func NewService(endpoint string) *Service {
	return &Service{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoint: endpoint,
	}
}

// Locate fetches the current position and returns coordinates rounded
// to 4 decimal places.
func (s *Service) Locate(ctx context.Context) (float64, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var data struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, 0, err
	}

	return round4(data.Latitude), round4(data.Longitude), nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
