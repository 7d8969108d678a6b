package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Discover resolves the shared API base endpoint from the deployment
// manifest before any account processing begins. A failure refuses the whole
// scheduler start.
func Discover(ctx context.Context, manifestURL string) (string, error) {
	if manifestURL == "" {
		return "", errors.New("discovery url is empty")
	}

	resp, err := resty.New().
		SetTimeout(requestTimeout).
		R().
		SetContext(ctx).
		Get(manifestURL)
	if err != nil {
		return "", fmt.Errorf("fetch endpoint manifest: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("fetch endpoint manifest: status %d", resp.StatusCode())
	}

	var manifest struct {
		Endpoint string `json:"endpoint"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &manifest); err != nil {
		return "", fmt.Errorf("decode endpoint manifest: %w", err)
	}
	if manifest.Endpoint == "" {
		return "", errors.New("endpoint manifest has no endpoint")
	}

	return manifest.Endpoint, nil
}

// DiscoverWithRetry retries discovery a few times before giving up; the
// manifest host occasionally flaps.
func DiscoverWithRetry(ctx context.Context, manifestURL string, attempts int, backoff time.Duration) (string, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		endpoint, err := Discover(ctx, manifestURL)
		if err == nil {
			return endpoint, nil
		}
		lastErr = err
		if i < attempts-1 {
			if err := wait(ctx, backoff); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}
