package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weathercast/internal/weather"
)

// Cache is the response cache adapters consult before any network call.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, payload json.RawMessage)
}

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

// Options configures an adapter.
type Options struct {
	HTTPClient *http.Client
	Cache      Cache

	// MaxRetries is the number of retries after a transient failure. Zero
	// surfaces the first failure to the caller.
	MaxRetries int

	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
}

var (
	errServerError   = errors.New("server error")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// httpResult is a completed HTTP exchange with its body fully read.
type httpResult struct {
	status int
	body   []byte
}

// client is the per-adapter transport: cache-aside lookups, circuit breaker
// and status classification.
type client struct {
	provider     weather.ProviderID
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
	cache        Cache
	parseMessage func(body []byte) string
}

func newClient(provider weather.ProviderID, opts Options, parseMessage func([]byte) string) *client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(provider),
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &client{
		provider: provider,
		httpCfg: HTTPClientConfig{
			Client: httpClient,
			Backoff: BackoffConfig{
				MaxRetries:      retries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit:      cb,
		cache:        opts.Cache,
		parseMessage: parseMessage,
	}
}

// fetch returns the cached body for key or performs the request, caching a
// successful JSON response under key.
func (c *client) fetch(ctx context.Context, key string, buildRequest func() (*http.Request, error)) ([]byte, error) {
	logger := loggerFrom(ctx)

	if c.cache != nil {
		if payload, ok := c.cache.Get(ctx, key); ok {
			logger.Debug().Str("key", key).Msg("cache hit")
			return payload, nil
		}
	}

	body, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, func(res *httpResult) error {
		return weather.NewAPIError(c.provider, res.status, c.parseMessage(res.body))
	}, buildRequest)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: response is not valid JSON", c.provider)
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, body)
	}
	return body, nil
}

// doRequestWithResilience executes the HTTP request through the circuit
// breaker, retrying transient failures with exponential backoff when
// configured. Non-2xx responses are converted with classify.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	classify func(res *httpResult) error,
	buildRequest func() (*http.Request, error),
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		var res *httpResult
		_, err = cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			defer resp.Body.Close()

			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, readErr
			}
			res = &httpResult{status: resp.StatusCode, body: body}

			// Only rate limiting and server errors count against the breaker.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, errServerError
			}
			return nil, nil
		})

		switch {
		case err == nil && res.status >= 200 && res.status < 300:
			return res.body, nil
		case err == nil:
			// Client errors are final.
			return nil, classify(res)
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, fmt.Errorf("%w: circuit breaker open: %v", weather.ErrTransient, err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case res != nil:
			lastErr = classify(res)
		default:
			lastErr = fmt.Errorf("%w: %v", weather.ErrTransient, err)
		}

		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

// tolerate logs an enrichment failure once and reports whether the caller
// should fall back to an absent result.
func tolerate(ctx context.Context, provider weather.ProviderID, cap weather.Capability, err error) bool {
	if err == nil {
		return false
	}
	loggerFrom(ctx).Warn().
		Err(fmt.Errorf("%w: %v", weather.ErrEnrichment, err)).
		Str("provider", string(provider)).
		Str("capability", string(cap)).
		Msg("enrichment fetch failed; treating as absent")
	return true
}

// loggerFrom returns the request logger attached by the gateway, falling back
// to the global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// unixTime converts provider epoch seconds, mapping 0 to the zero time.
func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func unixTimePtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
