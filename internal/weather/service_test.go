package weather

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter implements Adapter with overridable behavior per capability.
type fakeAdapter struct {
	id          ProviderID
	current     func(q LocationQuery, unit Unit) (*Current, error)
	forecast    func(q LocationQuery, unit Unit) (*Forecast, error)
	airQuality  func(c Coordinates) (*AirQuality, error)
	alerts      func(c Coordinates) ([]Alert, error)
	enrichCalls atomic.Int32
}

func (f *fakeAdapter) Name() ProviderID { return f.id }

func (f *fakeAdapter) CurrentWeather(_ context.Context, q LocationQuery, unit Unit, _ string) (*Current, error) {
	if f.current == nil {
		return &Current{Provider: f.id, LocationName: q.Key(), Unit: unit, Coordinates: &Coordinates{Lat: 48.85, Lon: 2.35}}, nil
	}
	return f.current(q, unit)
}

func (f *fakeAdapter) Forecast(_ context.Context, q LocationQuery, unit Unit, _ string) (*Forecast, error) {
	if f.forecast == nil {
		return &Forecast{Provider: f.id, LocationName: q.Key(), Unit: unit}, nil
	}
	return f.forecast(q, unit)
}

func (f *fakeAdapter) AirQuality(_ context.Context, c Coordinates, _ string) (*AirQuality, error) {
	f.enrichCalls.Add(1)
	if f.airQuality == nil {
		return &AirQuality{Level: 2}, nil
	}
	return f.airQuality(c)
}

func (f *fakeAdapter) Alerts(_ context.Context, c Coordinates, _ string) ([]Alert, error) {
	f.enrichCalls.Add(1)
	if f.alerts == nil {
		return nil, nil
	}
	return f.alerts(c)
}

var testCreds = Credentials{
	ProviderOpenWeather: "owm-key",
	ProviderAccuWeather: "accu-key",
}

func TestGetWeatherCombinesResults(t *testing.T) {
	adapter := &fakeAdapter{
		id: ProviderOpenWeather,
		alerts: func(Coordinates) ([]Alert, error) {
			return []Alert{{Event: "Heat", Start: time.Unix(1717236000, 0)}}, nil
		},
	}
	gw := NewGateway(Adapters{OpenWeather: adapter})

	report, err := gw.GetWeather(context.Background(), ProviderOpenWeather, ByCity("Paris"), UnitImperial, testCreds)
	require.NoError(t, err)
	require.NotNil(t, report.Current)
	require.NotNil(t, report.Forecast)
	assert.Equal(t, "Paris", report.Current.LocationName)
	assert.Equal(t, UnitImperial, report.Forecast.Unit)
	require.NotNil(t, report.AirQuality)
	assert.Equal(t, 2, report.AirQuality.Level)
	assert.Len(t, report.Alerts, 1)
	assert.Empty(t, report.Unavailable)
}

func TestGetWeatherForecastFailureFailsWholeCall(t *testing.T) {
	adapter := &fakeAdapter{
		id: ProviderOpenWeather,
		forecast: func(LocationQuery, Unit) (*Forecast, error) {
			return nil, NewAPIError(ProviderOpenWeather, 503, "")
		},
	}
	gw := NewGateway(Adapters{OpenWeather: adapter})

	report, err := gw.GetWeather(context.Background(), ProviderOpenWeather, ByCity("Paris"), UnitMetric, testCreds)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Contains(t, err.Error(), "forecast")
	assert.Zero(t, adapter.enrichCalls.Load())
}

func TestGetWeatherEnrichmentIsolation(t *testing.T) {
	adapter := &fakeAdapter{
		id: ProviderOpenWeather,
		alerts: func(Coordinates) ([]Alert, error) {
			return nil, errors.New("boom")
		},
	}
	gw := NewGateway(Adapters{OpenWeather: adapter})

	report, err := gw.GetWeather(context.Background(), ProviderOpenWeather, ByCity("Paris"), UnitMetric, testCreds)
	require.NoError(t, err)
	require.NotNil(t, report.AirQuality)
	assert.NotNil(t, report.Alerts)
	assert.Empty(t, report.Alerts)
	assert.Empty(t, report.Unavailable)
}

func TestGetWeatherSkipsEnrichmentWithoutCoordinates(t *testing.T) {
	adapter := &fakeAdapter{
		id: ProviderOpenWeather,
		current: func(q LocationQuery, unit Unit) (*Current, error) {
			return &Current{LocationName: q.Key(), Unit: unit}, nil
		},
	}
	gw := NewGateway(Adapters{OpenWeather: adapter})

	report, err := gw.GetWeather(context.Background(), ProviderOpenWeather, ByCity("Paris"), UnitMetric, testCreds)
	require.NoError(t, err)
	assert.Nil(t, report.AirQuality)
	assert.Empty(t, report.Alerts)
	assert.Zero(t, adapter.enrichCalls.Load())
}

func TestGetWeatherReportsUnsupportedEnrichment(t *testing.T) {
	adapter := &fakeAdapter{
		id: ProviderAccuWeather,
		airQuality: func(Coordinates) (*AirQuality, error) {
			return nil, NotImplemented(ProviderAccuWeather, CapabilityAirQuality, "not available")
		},
		alerts: func(Coordinates) ([]Alert, error) {
			return nil, NotImplemented(ProviderAccuWeather, CapabilityAlerts, "not available")
		},
	}
	gw := NewGateway(Adapters{AccuWeather: adapter})

	report, err := gw.GetWeather(context.Background(), ProviderAccuWeather, ByCity("Paris"), UnitMetric, testCreds)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Capability{CapabilityAirQuality, CapabilityAlerts}, report.Unavailable)
}

func TestGetWeatherConfigurationErrors(t *testing.T) {
	gw := NewGateway(Adapters{OpenWeather: &fakeAdapter{id: ProviderOpenWeather}})
	ctx := context.Background()

	_, err := gw.GetWeather(ctx, ProviderWeatherAPI, ByCity("Paris"), UnitMetric, testCreds)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.True(t, IsConfigurationError(err))

	_, err = gw.GetWeather(ctx, ProviderID("metoffice"), ByCity("Paris"), UnitMetric, Credentials{"metoffice": "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = gw.GetWeather(ctx, ProviderAccuWeather, ByCity("Paris"), UnitMetric, testCreds)
	assert.ErrorIs(t, err, ErrUnknownProvider, "no adapter registered")

	_, err = gw.GetWeather(ctx, ProviderOpenWeather, LocationQuery{}, UnitMetric, testCreds)
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = gw.GetWeather(ctx, ProviderOpenWeather, ByCoords(123, 0), UnitMetric, testCreds)
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestGetWeatherDefaultsInvalidUnit(t *testing.T) {
	gw := NewGateway(Adapters{OpenWeather: &fakeAdapter{id: ProviderOpenWeather}})

	report, err := gw.GetWeather(context.Background(), ProviderOpenWeather, ByCity("Paris"), Unit("kelvin"), testCreds)
	require.NoError(t, err)
	assert.Equal(t, UnitMetric, report.Current.Unit)
}

func TestNewAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, ErrUnauthorized},
		{403, ErrUnauthorized},
		{404, ErrNotFound},
		{400, ErrNotFound},
		{429, ErrTransient},
		{500, ErrTransient},
		{503, ErrTransient},
	}
	for _, tt := range tests {
		err := NewAPIError(ProviderOpenWeather, tt.status, "msg")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		assert.Equal(t, "msg", ProviderMessage(err))
	}

	err := NewAPIError(ProviderOpenWeather, 418, "")
	assert.False(t, errors.Is(err, ErrTransient))
	assert.Empty(t, ProviderMessage(errors.New("plain")))
}
