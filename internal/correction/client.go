// Package correction is the HTTP client for the city name correction
// service.
package correction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/freight/internal/config"
	"github.com/JonMunkholm/freight/internal/core"
)

// CorrectPath is appended to the configured base URL.
const CorrectPath = "/correct_city"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("correction service returned %d", e.Code)
	}
	return fmt.Sprintf("correction service returned %d: %s", e.Code, e.Body)
}

// Client calls the correction service.
type Client struct {
	baseURL     string
	session     *http.Client
	maxAttempts int
	backoff     time.Duration
}

var _ core.CityCorrector = (*Client)(nil)

// NewClient creates a Client from cfg with its own http.Client.
func NewClient(cfg config.CorrectionConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP creates a Client that sends requests through session.
func NewClientWithHTTP(cfg config.CorrectionConfig, session *http.Client) *Client {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		session:     session,
		maxAttempts: attempts,
		backoff:     cfg.Backoff,
	}
}

type correctRequest struct {
	City string `json:"city"`
}

type correctResponse struct {
	Original   string   `json:"original"`
	Corrected  string   `json:"corrected"`
	Confidence *float64 `json:"confidence"`
}

// CorrectCity sends the trimmed, lower-cased city and returns the service's
// answer. A missing confidence stays nil.
func (c *Client) CorrectCity(ctx context.Context, city string) (core.CityCorrection, error) {
	payload, err := json.Marshal(correctRequest{City: strings.ToLower(strings.TrimSpace(city))})
	if err != nil {
		return core.CityCorrection{}, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, c.baseURL+CorrectPath, bytes.NewReader(payload))
	})
	if err != nil {
		return core.CityCorrection{}, err
	}
	defer resp.Body.Close()

	var out correctResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.CityCorrection{}, fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.Corrected) == "" {
		return core.CityCorrection{}, errors.New("response has no corrected city")
	}

	return core.CityCorrection{
		Original:   out.Original,
		Corrected:  out.Corrected,
		Confidence: out.Confidence,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries rate limiting, 5xx responses and network errors with
// exponential backoff. The context bounds the whole sequence.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.backoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
