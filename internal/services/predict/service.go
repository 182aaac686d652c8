package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Asjal001/saferoute/internal/types"
)

// ErrServiceUnreachable is the fallback when the prediction service
// fails without a usable message of its own.
var ErrServiceUnreachable = errors.New("unable to reach prediction service")

type Service struct {
	httpClient *http.Client
	endpoint   string
}

// NewService creates a prediction service client for the given endpoint.
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

// Assess posts a sanitized route payload to the prediction service and
// returns its assessment. A single attempt per call: no retries.
func (s *Service) Assess(ctx context.Context, payload types.RoutePayload) (*types.PredictionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding route payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ErrServiceUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Surface the service's own message when it sent one.
		var remote struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil && remote.Message != "" {
			return nil, errors.New(remote.Message)
		}
		return nil, fmt.Errorf("prediction service returned status %d", resp.StatusCode)
	}

	var result types.PredictionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, ErrServiceUnreachable
	}

	return &result, nil
}
