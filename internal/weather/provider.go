package weather

import (
	"context"
	"fmt"
)

// ProviderID identifies a weather data source. The set is closed: every value
// must be handled by Adapters.For.
type ProviderID string

const (
	ProviderOpenWeather ProviderID = "openweather"
	ProviderWeatherAPI  ProviderID = "weatherapi"
	ProviderAccuWeather ProviderID = "accuweather"
	ProviderGoogle      ProviderID = "google"
)

// Providers lists every supported provider in display order.
var Providers = []ProviderID{
	ProviderOpenWeather,
	ProviderWeatherAPI,
	ProviderAccuWeather,
	ProviderGoogle,
}

// Valid reports whether p is one of the supported providers.
func (p ProviderID) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// Capability names one read operation an adapter may support.
type Capability string

const (
	CapabilityCurrent    Capability = "current"
	CapabilityForecast   Capability = "forecast"
	CapabilityAirQuality Capability = "airquality"
	CapabilityAlerts     Capability = "alerts"
	CapabilitySearch     Capability = "locations"
)

// Adapter abstracts a weather data source. Implementations translate a
// normalized request into provider HTTP calls and normalize the response.
//
// CurrentWeather and Forecast return every failure. AirQuality and Alerts are
// enrichments: provider-side failures yield an absent result and a nil error;
// only ErrNotImplemented is returned, so callers can tell "unsupported" apart.
type Adapter interface {
	Name() ProviderID
	CurrentWeather(ctx context.Context, q LocationQuery, unit Unit, credential string) (*Current, error)
	Forecast(ctx context.Context, q LocationQuery, unit Unit, credential string) (*Forecast, error)
	AirQuality(ctx context.Context, c Coordinates, credential string) (*AirQuality, error)
	Alerts(ctx context.Context, c Coordinates, credential string) ([]Alert, error)
}

// PlaceSearcher is implemented by adapters offering place lookup.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query, credential string) ([]Place, error)
}

// Adapters holds one adapter per supported provider.
type Adapters struct {
	OpenWeather Adapter
	WeatherAPI  Adapter
	AccuWeather Adapter
	Google      Adapter
}

// For returns the adapter registered for p.
func (a Adapters) For(p ProviderID) (Adapter, error) {
	var adapter Adapter
	switch p {
	case ProviderOpenWeather:
		adapter = a.OpenWeather
	case ProviderWeatherAPI:
		adapter = a.WeatherAPI
	case ProviderAccuWeather:
		adapter = a.AccuWeather
	case ProviderGoogle:
		adapter = a.Google
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
	if adapter == nil {
		return nil, fmt.Errorf("%w: no adapter registered for %q", ErrUnknownProvider, p)
	}
	return adapter, nil
}

// Credentials maps each provider to its API key.
type Credentials map[ProviderID]string

// For returns the credential for p or ErrMissingCredential.
func (c Credentials) For(p ProviderID) (string, error) {
	if key := c[p]; key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: API key for %s is missing", ErrMissingCredential, p)
}
