package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	requestTimeout = 5 * time.Second
	maxRetries     = 3
)

var (
	// ErrInvalidAPIKey means the upstream rejected our credentials.
	ErrInvalidAPIKey = errors.New("invalid weather API key")
	// ErrUnavailable is the generic upstream failure after retries.
	ErrUnavailable = errors.New("failed to fetch weather data")
)

// Client proxies current-weather lookups to OpenWeather. Network failures
// and 5xx responses are retried with exponential backoff; client errors are
// not.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// retryInterval seeds the backoff; tests shrink it.
	retryInterval time.Duration
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

func WithRetryInterval(interval time.Duration) Option {
	return func(c *Client) { c.retryInterval = interval }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: requestTimeout},
		baseURL:       defaultBaseURL,
		apiKey:        apiKey,
		retryInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current fetches the current weather for a city in metric units and
// returns the upstream payload untouched.
func (c *Client) Current(ctx context.Context, city string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	endpoint := c.baseURL + "/weather?" + query.Encode()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	var payload json.RawMessage
	operation := func() error {
		body, err := c.fetch(ctx, endpoint)
		if err != nil {
			return err
		}
		payload = body
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	if err != nil {
		if errors.Is(err, ErrInvalidAPIKey) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return payload, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, backoff.Permanent(ErrInvalidAPIKey)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("upstream returned status %d", resp.StatusCode))
	}
}
