// Package geo resolves the user's approximate position.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/weathercast/internal/weather"
)

const ipAPIBaseURL = "http://ip-api.com"

// ErrUnavailable is returned when no position could be determined.
var ErrUnavailable = errors.New("unable to access your location")

// Locator provides the device position.
type Locator interface {
	CurrentPosition(ctx context.Context) (weather.Coordinates, error)
}

// IPLocator estimates the position from the public IP address.
type IPLocator struct {
	baseURL    string
	httpClient *http.Client
}

var _ Locator = (*IPLocator)(nil)

// NewIPLocator creates an IPLocator. An empty baseURL uses ip-api.com and a
// nil client gets a 5 second timeout.
func NewIPLocator(baseURL string, httpClient *http.Client) *IPLocator {
	if baseURL == "" {
		baseURL = ipAPIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &IPLocator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (l *IPLocator) CurrentPosition(ctx context.Context) (weather.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/json?fields=status,message,lat,lon,city", nil)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("building geolocation request: %w", err)
	}

	res, err := l.httpClient.Do(req)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return weather.Coordinates{}, fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode)
	}

	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		City    string  `json:"city"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if payload.Status != "success" {
		return weather.Coordinates{}, fmt.Errorf("%w: %s", ErrUnavailable, payload.Message)
	}

	c := weather.Coordinates{Lat: payload.Lat, Lon: payload.Lon}
	if err := c.Validate(); err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log.Debug().Str("city", payload.City).Str("coords", c.Key()).Msg("resolved position from IP")
	return c, nil
}

// Static is a Locator returning a fixed position.
type Static weather.Coordinates

func (s Static) CurrentPosition(context.Context) (weather.Coordinates, error) {
	return weather.Coordinates(s), nil
}
