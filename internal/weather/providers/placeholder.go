package providers

import (
	"context"

	"github.com/i474232898/weathercast/internal/weather"
)

// PlaceholderProvider reserves a slot in the provider set for a source whose
// API is not wired up. Every capability fails with weather.ErrNotImplemented.
type PlaceholderProvider struct {
	id     weather.ProviderID
	reason string
}

var _ weather.Adapter = (*PlaceholderProvider)(nil)

// NewAccuWeatherProvider returns the AccuWeather placeholder.
func NewAccuWeatherProvider() *PlaceholderProvider {
	return &PlaceholderProvider{
		id:     weather.ProviderAccuWeather,
		reason: "AccuWeather API requires a premium subscription",
	}
}

// NewGoogleProvider returns the Google Weather placeholder.
func NewGoogleProvider() *PlaceholderProvider {
	return &PlaceholderProvider{
		id:     weather.ProviderGoogle,
		reason: "Google Weather API requires API key setup",
	}
}

func (p *PlaceholderProvider) Name() weather.ProviderID {
	return p.id
}

func (p *PlaceholderProvider) CurrentWeather(context.Context, weather.LocationQuery, weather.Unit, string) (*weather.Current, error) {
	return nil, weather.NotImplemented(p.id, weather.CapabilityCurrent, p.reason)
}

func (p *PlaceholderProvider) Forecast(context.Context, weather.LocationQuery, weather.Unit, string) (*weather.Forecast, error) {
	return nil, weather.NotImplemented(p.id, weather.CapabilityForecast, p.reason)
}

func (p *PlaceholderProvider) AirQuality(context.Context, weather.Coordinates, string) (*weather.AirQuality, error) {
	return nil, weather.NotImplemented(p.id, weather.CapabilityAirQuality, p.reason)
}

func (p *PlaceholderProvider) Alerts(context.Context, weather.Coordinates, string) ([]weather.Alert, error) {
	return nil, weather.NotImplemented(p.id, weather.CapabilityAlerts, p.reason)
}
