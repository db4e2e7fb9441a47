package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
)

var (
	// ErrNotFound means the upstream answered 404 (or reported the entity invalid).
	ErrNotFound = errors.New("upstream resource not found")
	// ErrTimeout means the request exceeded its deadline.
	ErrTimeout = errors.New("upstream request timed out")
	// ErrUnavailable covers connection refused, DNS failures and the like.
	ErrUnavailable = errors.New("upstream unavailable")
)

type baseClient struct {
	baseURL string
	tokens  *security.TokenSource
	client  *http.Client
	lg      zerolog.Logger
}

func newBaseClient(baseURL string, tokens *security.TokenSource, timeout time.Duration, lg zerolog.Logger, component string) baseClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return baseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		lg:      lg.With().Str("component", component).Logger(),
	}
}

// getJSON performs an authenticated GET and decodes the body into out.
// 404 maps to ErrNotFound so callers can branch without inspecting status codes.
func (c *baseClient) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.lg.Warn().Err(err).Str("url", url).Dur("duration", time.Since(start)).Msg("upstream request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrUnavailable
	}
	defer resp.Body.Close()

	c.lg.Debug().Str("url", url).Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("upstream request completed")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned %d for %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}
