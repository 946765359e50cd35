package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to a vision-capable model server over its generate endpoint.
// The model itself is a black box: it takes a prompt plus an image sequence
// and returns unstructured text.
type Client struct {
	logger      zerolog.Logger
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	maxRetries  int
}

// ClientOptions configures the model client.
type ClientOptions struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxRetries  int
	Timeout     time.Duration
}

// NewClient creates a model client. Timeout bounds each request; a timed-out
// request counts as a transient failure and is retried.
func NewClient(logger zerolog.Logger, opts ClientOptions) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}
	return &Client{
		logger:      logger.With().Str("component", "vision-client").Logger(),
		httpClient:  &http.Client{Timeout: opts.Timeout},
		baseURL:     opts.BaseURL,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxRetries:  opts.MaxRetries,
	}
}

type generateRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Images      []string `json:"images"`
	Stream      bool     `json:"stream"`
	Temperature float64  `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate submits a prompt with an ordered image sequence and returns the
// raw response text. Transport failures are retried up to the configured
// attempt cap with exponential backoff.
func (c *Client) Generate(ctx context.Context, prompt string, images [][]byte) (string, error) {
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	body, err := json.Marshal(generateRequest{
		Model:       c.model,
		Prompt:      prompt,
		Images:      encoded,
		Stream:      false,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.logger.Debug().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying model request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.generateOnce(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("model request failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("model request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return parsed.Response, nil
}
