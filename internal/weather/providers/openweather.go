package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weathercast/internal/cache"
	"github.com/i474232898/weathercast/internal/weather"
)

const openWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider implements weather.Adapter and weather.PlaceSearcher for OpenWeatherMap.
type OpenWeatherProvider struct {
	baseURL string
	client  *client
}

var (
	_ weather.Adapter       = (*OpenWeatherProvider)(nil)
	_ weather.PlaceSearcher = (*OpenWeatherProvider)(nil)
)

func NewOpenWeatherProvider(opts Options) *OpenWeatherProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = openWeatherBaseURL
	}
	return &OpenWeatherProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newClient(weather.ProviderOpenWeather, opts, parseOpenWeatherMessage),
	}
}

func (p *OpenWeatherProvider) Name() weather.ProviderID {
	return weather.ProviderOpenWeather
}

type owmCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p *OpenWeatherProvider) CurrentWeather(ctx context.Context, q weather.LocationQuery, unit weather.Unit, credential string) (*weather.Current, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityCurrent), q.Key(), string(unit))
	body, err := p.client.fetch(ctx, key, p.locationRequest("/data/2.5/weather", q, unit, credential))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Coord   *owmCoord      `json:"coord"`
		Weather []owmCondition `json:"weather"`
		Main    struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Pressure  float64 `json:"pressure"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Dt  int64 `json:"dt"`
		Sys struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding openweather current weather: %w", err)
	}

	cond := firstCondition(payload.Weather)
	cur := &weather.Current{
		Provider:      p.Name(),
		LocationName:  payload.Name,
		CountryCode:   payload.Sys.Country,
		Unit:          unit,
		Temp:          payload.Main.Temp,
		FeelsLike:     payload.Main.FeelsLike,
		Humidity:      payload.Main.Humidity,
		Pressure:      payload.Main.Pressure,
		WindSpeed:     payload.Wind.Speed,
		ConditionCode: cond.ID,
		Condition:     mapOpenWeatherCondition(cond.ID),
		Description:   cond.Description,
		Sunrise:       unixTimePtr(payload.Sys.Sunrise),
		Sunset:        unixTimePtr(payload.Sys.Sunset),
		ObservedAt:    unixTime(payload.Dt),
	}
	if payload.Coord != nil {
		cur.Coordinates = &weather.Coordinates{Lat: payload.Coord.Lat, Lon: payload.Coord.Lon}
	}
	return cur, nil
}

func (p *OpenWeatherProvider) Forecast(ctx context.Context, q weather.LocationQuery, unit weather.Unit, credential string) (*weather.Forecast, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityForecast), q.Key(), string(unit))
	body, err := p.client.fetch(ctx, key, p.locationRequest("/data/2.5/forecast", q, unit, credential))
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
		City struct {
			Name string `json:"name"`
		} `json:"city"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding openweather forecast: %w", err)
	}

	fc := &weather.Forecast{
		Provider:     p.Name(),
		LocationName: payload.City.Name,
		Unit:         unit,
		Points:       make([]weather.ForecastPoint, 0, len(payload.List)),
	}
	for _, item := range payload.List {
		cond := firstCondition(item.Weather)
		fc.Points = append(fc.Points, weather.ForecastPoint{
			Time:          unixTime(item.Dt),
			Temp:          item.Main.Temp,
			ConditionCode: cond.ID,
			Condition:     mapOpenWeatherCondition(cond.ID),
			Description:   cond.Description,
		})
	}
	return fc, nil
}

// AirQuality returns nil without error when the provider call fails.
func (p *OpenWeatherProvider) AirQuality(ctx context.Context, c weather.Coordinates, credential string) (*weather.AirQuality, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityAirQuality), c.Key())
	body, err := p.client.fetch(ctx, key, p.request("/data/2.5/air_pollution", coordValues(c), credential))
	if tolerate(ctx, p.Name(), weather.CapabilityAirQuality, err) {
		return nil, nil
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components map[string]float64 `json:"components"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &payload); tolerate(ctx, p.Name(), weather.CapabilityAirQuality, err) {
		return nil, nil
	}
	if len(payload.List) == 0 {
		return nil, nil
	}

	sample := payload.List[0]
	components := sample.Components
	if components == nil {
		components = map[string]float64{}
	}
	return &weather.AirQuality{
		Level:      sample.Main.AQI,
		Components: components,
		ObservedAt: unixTime(sample.Dt),
	}, nil
}

// Alerts returns an empty list without error when the provider call fails.
// The One Call endpoint needs a separate subscription, so failures are common.
func (p *OpenWeatherProvider) Alerts(ctx context.Context, c weather.Coordinates, credential string) ([]weather.Alert, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityAlerts), c.Key())
	values := coordValues(c)
	values.Set("exclude", "current,minutely,hourly,daily")
	body, err := p.client.fetch(ctx, key, p.request("/data/3.0/onecall", values, credential))
	if tolerate(ctx, p.Name(), weather.CapabilityAlerts, err) {
		return []weather.Alert{}, nil
	}

	var payload struct {
		Alerts []struct {
			SenderName  string   `json:"sender_name"`
			Event       string   `json:"event"`
			Start       int64    `json:"start"`
			End         int64    `json:"end"`
			Description string   `json:"description"`
			Tags        []string `json:"tags"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(body, &payload); tolerate(ctx, p.Name(), weather.CapabilityAlerts, err) {
		return []weather.Alert{}, nil
	}

	alerts := make([]weather.Alert, 0, len(payload.Alerts))
	for _, a := range payload.Alerts {
		severity := "unknown"
		if len(a.Tags) > 0 {
			severity = a.Tags[0]
		}
		alerts = append(alerts, weather.Alert{
			Event:       a.Event,
			Description: a.Description,
			Severity:    severity,
			Start:       unixTime(a.Start),
			End:         unixTime(a.End),
			Sender:      a.SenderName,
		})
	}
	return alerts, nil
}

// SearchPlaces resolves a free-text query through the geocoding API.
func (p *OpenWeatherProvider) SearchPlaces(ctx context.Context, query, credential string) ([]weather.Place, error) {
	key := cache.BuildKey("search", string(weather.CapabilitySearch), query)
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "5")
	body, err := p.client.fetch(ctx, key, p.request("/geo/1.0/direct", values, credential))
	if err != nil {
		return nil, err
	}

	var payload []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
		State   string  `json:"state"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding openweather places: %w", err)
	}

	places := make([]weather.Place, 0, len(payload))
	for _, pl := range payload {
		places = append(places, weather.Place{
			Name:    pl.Name,
			Country: pl.Country,
			State:   pl.State,
			Coords:  weather.Coordinates{Lat: pl.Lat, Lon: pl.Lon},
		})
	}
	return places, nil
}

func (p *OpenWeatherProvider) locationRequest(path string, q weather.LocationQuery, unit weather.Unit, credential string) func() (*http.Request, error) {
	values := url.Values{}
	if q.City != "" {
		values.Set("q", q.City)
	} else if q.Coords != nil {
		values = coordValues(*q.Coords)
	}
	values.Set("units", string(unit))
	return p.request(path, values, credential)
}

func (p *OpenWeatherProvider) request(path string, values url.Values, credential string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		v := url.Values{}
		for k, vs := range values {
			v[k] = vs
		}
		v.Set("appid", credential)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, v.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}
}

func coordValues(c weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	return values
}

func firstCondition(items []owmCondition) owmCondition {
	if len(items) == 0 {
		return owmCondition{}
	}
	return items[0]
}

// parseOpenWeatherMessage extracts "message" from an error body such as
// {"cod":"404","message":"city not found"}.
func parseOpenWeatherMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// mapOpenWeatherCondition groups OpenWeather condition ids into categories.
func mapOpenWeatherCondition(id int) weather.Condition {
	switch {
	case id >= 200 && id < 300:
		return weather.ConditionStorm
	case id >= 300 && id < 600:
		return weather.ConditionRain
	case id >= 600 && id < 700:
		return weather.ConditionSnow
	case id >= 700 && id < 800:
		return weather.ConditionMist
	case id == 800:
		return weather.ConditionClear
	case id > 800 && id < 900:
		return weather.ConditionCloudy
	default:
		return weather.ConditionUnknown
	}
}
