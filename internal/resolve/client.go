package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimforge/internal/worker"
)

const maxBodyBytes = 4 << 20

// Client is the shared HTTP client for the provider resolvers: one
// timeout policy, a per-host rate limiter, and a provenance-friendly
// User-Agent.
type Client struct {
	http      *http.Client
	limiter   *worker.Limiter
	userAgent string
	log       *zap.Logger
}

// NewClient creates a resolver HTTP client. A nil logger disables logging.
func NewClient(timeout time.Duration, requestsPerSecond float64, userAgent string, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   worker.NewLimiter(requestsPerSecond, 3),
		userAgent: userAgent,
		log:       log,
	}

	// Provider politeness differs: NCBI E-utilities cap at 3 req/s
	// without an API key, OpenAlex's polite pool tolerates 10.
	c.limiter.SetHostRate("eutils.ncbi.nlm.nih.gov", 3, 3)
	c.limiter.SetHostRate("api.openalex.org", 10, 10)

	return c
}

// GetJSON fetches rawURL (rate-limited per host) and decodes the JSON
// body into out. A non-2xx status is an error.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// GetText fetches rawURL (rate-limited per host) and returns the raw body.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("resolver request failed",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
