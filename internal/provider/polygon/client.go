package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/go-resty/resty/v2"

	"github.com/elvin-stowell/csds-312-final-project/internal/ratelimit"
)

// DefaultBaseURL is the public REST endpoint.
const DefaultBaseURL = "https://api.polygon.io"

// Options configures a Client.
type Options struct {
	BaseURL           string
	APIKey            string
	RequestsPerMinute int // <= 0 disables request limiting
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	Timeout           time.Duration
	FinancialsLimit   int
}

// Client issues parameterized GET requests to the provider and decodes JSON
// bodies. 429 and 5xx responses are retried with backoff; every other
// failure surfaces as *TransportError.
type Client struct {
	http            *resty.Client
	limiter         *ratelimit.Limiter
	forms           *form.Encoder
	maxRetries      int
	financialsLimit int
}

// NewClient constructs a Client. The API key is sent as the apiKey query
// parameter on every request, including cursor URLs.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("polygon: API key not set")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.FinancialsLimit <= 0 {
		opts.FinancialsLimit = 100
	}

	rc := resty.New().
		SetTransport(baseTransportConfig()).
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetQueryParam("apiKey", opts.APIKey)

	return &Client{
		http:            rc,
		limiter:         ratelimit.NewLimiter(opts.RequestsPerMinute, opts.RetryBaseDelay, opts.RetryMaxDelay),
		forms:           form.NewEncoder(),
		maxRetries:      opts.MaxRetries,
		financialsLimit: opts.FinancialsLimit,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// get requests target (a path relative to the base URL, or an absolute
// cursor URL) and decodes the body into out.
func (c *Client) get(ctx context.Context, endpoint, target string, params any, out any) error {
	var query url.Values
	if params != nil {
		var err error
		query, err = c.forms.Encode(params)
		if err != nil {
			return fmt.Errorf("%s: encode params: %w", endpoint, err)
		}
	}

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req := c.http.R().SetContext(ctx)
		if query != nil {
			req.SetQueryParamsFromValues(query)
		}
		resp, err := req.Get(target)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err = redact(err)
			terr := &TransportError{Endpoint: endpoint, URL: stripCredential(target), Err: err}
			if attempt > c.maxRetries {
				return terr
			}
			wait := c.limiter.Backoff(attempt, nil)
			slog.Warn("request failed, retrying", "endpoint", endpoint, "attempt", attempt, "wait", wait, "error", err)
			if err := ratelimit.Sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		status := resp.StatusCode()
		if status == http.StatusOK {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return &TransportError{Endpoint: endpoint, URL: stripCredential(target), StatusCode: status, Err: fmt.Errorf("parse JSON: %w", err)}
			}
			return nil
		}

		terr := &TransportError{Endpoint: endpoint, URL: stripCredential(target), StatusCode: status, Err: errors.New(truncate(resp.String(), 256))}
		if !retryable(status) || attempt > c.maxRetries {
			return terr
		}
		wait := c.limiter.Backoff(attempt, resp.Header())
		slog.Warn("throttled, retrying", "endpoint", endpoint, "status", status, "attempt", attempt, "wait", wait)
		if err := ratelimit.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// redact strips the credential from the request URL a network error carries.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = stripCredential(uerr.URL)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
