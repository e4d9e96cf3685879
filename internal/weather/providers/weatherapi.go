package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/biter777/countries"

	"github.com/i474232898/weathercast/internal/cache"
	"github.com/i474232898/weathercast/internal/common"
	"github.com/i474232898/weathercast/internal/weather"
)

const weatherAPIBaseURL = "https://api.weatherapi.com/v1"

// WeatherAPIProvider implements weather.Adapter for WeatherAPI.com.
type WeatherAPIProvider struct {
	baseURL string
	client  *client
}

var _ weather.Adapter = (*WeatherAPIProvider)(nil)

func NewWeatherAPIProvider(opts Options) *WeatherAPIProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = weatherAPIBaseURL
	}
	return &WeatherAPIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newClient(weather.ProviderWeatherAPI, opts, parseWeatherAPIMessage),
	}
}

func (p *WeatherAPIProvider) Name() weather.ProviderID {
	return weather.ProviderWeatherAPI
}

type wapiLocation struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type wapiCondition struct {
	Text string `json:"text"`
	Code int    `json:"code"`
}

func (p *WeatherAPIProvider) CurrentWeather(ctx context.Context, q weather.LocationQuery, unit weather.Unit, credential string) (*weather.Current, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityCurrent), q.Key())
	values := url.Values{}
	values.Set("aqi", "no")
	body, err := p.client.fetch(ctx, key, p.request("/current.json", q, values, credential))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Location wapiLocation `json:"location"`
		Current  struct {
			LastUpdatedEpoch int64         `json:"last_updated_epoch"`
			TempC            float64       `json:"temp_c"`
			TempF            float64       `json:"temp_f"`
			FeelsLikeC       float64       `json:"feelslike_c"`
			FeelsLikeF       float64       `json:"feelslike_f"`
			Humidity         float64       `json:"humidity"`
			PressureMb       float64       `json:"pressure_mb"`
			WindKph          float64       `json:"wind_kph"`
			WindMph          float64       `json:"wind_mph"`
			Condition        wapiCondition `json:"condition"`
		} `json:"current"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding weatherapi current weather: %w", err)
	}

	c := payload.Current
	cur := &weather.Current{
		Provider:      p.Name(),
		LocationName:  payload.Location.Name,
		CountryCode:   countryCode(payload.Location.Country),
		Coordinates:   &weather.Coordinates{Lat: payload.Location.Lat, Lon: payload.Location.Lon},
		Unit:          unit,
		Humidity:      c.Humidity,
		Pressure:      c.PressureMb,
		ConditionCode: c.Condition.Code,
		Condition:     mapWeatherAPICondition(c.Condition.Text),
		Description:   strings.ToLower(c.Condition.Text),
		ObservedAt:    unixTime(c.LastUpdatedEpoch),
	}
	// Both unit systems come back in one response; the cache key therefore omits the unit.
	if unit == weather.UnitImperial {
		cur.Temp, cur.FeelsLike, cur.WindSpeed = c.TempF, c.FeelsLikeF, c.WindMph
	} else {
		// Convert wind from kph to m/s to match the metric convention of the other providers.
		cur.Temp, cur.FeelsLike, cur.WindSpeed = c.TempC, c.FeelsLikeC, c.WindKph/3.6
	}
	return cur, nil
}

func (p *WeatherAPIProvider) Forecast(ctx context.Context, q weather.LocationQuery, unit weather.Unit, credential string) (*weather.Forecast, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityForecast), q.Key())
	values := url.Values{}
	values.Set("days", "5")
	values.Set("aqi", "no")
	values.Set("alerts", "no")
	body, err := p.client.fetch(ctx, key, p.request("/forecast.json", q, values, credential))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Location wapiLocation `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch int64         `json:"time_epoch"`
					TempC     float64       `json:"temp_c"`
					TempF     float64       `json:"temp_f"`
					Condition wapiCondition `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding weatherapi forecast: %w", err)
	}

	fc := &weather.Forecast{
		Provider:     p.Name(),
		LocationName: payload.Location.Name,
		Unit:         unit,
	}
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			ts := unixTime(h.TimeEpoch)
			// Keep the 3-hour granularity the series uses for every provider.
			if ts.Hour()%3 != 0 {
				continue
			}
			temp := h.TempC
			if unit == weather.UnitImperial {
				temp = h.TempF
			}
			fc.Points = append(fc.Points, weather.ForecastPoint{
				Time:          ts,
				Temp:          temp,
				ConditionCode: h.Condition.Code,
				Condition:     mapWeatherAPICondition(h.Condition.Text),
				Description:   strings.ToLower(h.Condition.Text),
			})
		}
	}
	return fc, nil
}

// AirQuality maps the US EPA index (1-6) onto the 1-5 scale, folding
// "Hazardous" into Very Poor. Failures yield nil without error.
func (p *WeatherAPIProvider) AirQuality(ctx context.Context, c weather.Coordinates, credential string) (*weather.AirQuality, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityAirQuality), c.Key())
	values := url.Values{}
	values.Set("aqi", "yes")
	body, err := p.client.fetch(ctx, key, p.request("/current.json", weather.LocationQuery{Coords: &c}, values, credential))
	if tolerate(ctx, p.Name(), weather.CapabilityAirQuality, err) {
		return nil, nil
	}

	var payload struct {
		Current struct {
			LastUpdatedEpoch int64              `json:"last_updated_epoch"`
			AirQuality       map[string]float64 `json:"air_quality"`
		} `json:"current"`
	}
	if err := json.Unmarshal(body, &payload); tolerate(ctx, p.Name(), weather.CapabilityAirQuality, err) {
		return nil, nil
	}
	raw := payload.Current.AirQuality
	if len(raw) == 0 {
		return nil, nil
	}

	level := int(raw["us-epa-index"])
	if level > 5 {
		level = 5
	}
	components := make(map[string]float64, len(raw))
	for k, v := range raw {
		if k == "us-epa-index" || k == "gb-defra-index" {
			continue
		}
		components[k] = v
	}
	return &weather.AirQuality{
		Level:      level,
		Components: components,
		ObservedAt: unixTime(payload.Current.LastUpdatedEpoch),
	}, nil
}

// Alerts returns an empty list without error when the provider call fails.
func (p *WeatherAPIProvider) Alerts(ctx context.Context, c weather.Coordinates, credential string) ([]weather.Alert, error) {
	key := cache.BuildKey(string(p.Name()), string(weather.CapabilityAlerts), c.Key())
	values := url.Values{}
	values.Set("days", "1")
	values.Set("alerts", "yes")
	body, err := p.client.fetch(ctx, key, p.request("/forecast.json", weather.LocationQuery{Coords: &c}, values, credential))
	if tolerate(ctx, p.Name(), weather.CapabilityAlerts, err) {
		return []weather.Alert{}, nil
	}

	var payload struct {
		Alerts struct {
			Alert []struct {
				Headline  string `json:"headline"`
				Severity  string `json:"severity"`
				Event     string `json:"event"`
				Effective string `json:"effective"`
				Expires   string `json:"expires"`
				Desc      string `json:"desc"`
			} `json:"alert"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(body, &payload); tolerate(ctx, p.Name(), weather.CapabilityAlerts, err) {
		return []weather.Alert{}, nil
	}

	alerts := make([]weather.Alert, 0, len(payload.Alerts.Alert))
	for _, a := range payload.Alerts.Alert {
		severity := a.Severity
		if severity == "" {
			severity = "unknown"
		}
		alerts = append(alerts, weather.Alert{
			Event:       a.Event,
			Description: a.Desc,
			Severity:    strings.ToLower(severity),
			Start:       parseWeatherAPITime(a.Effective),
			End:         parseWeatherAPITime(a.Expires),
			Sender:      a.Headline,
		})
	}
	return alerts, nil
}

func (p *WeatherAPIProvider) request(path string, q weather.LocationQuery, values url.Values, credential string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		v := url.Values{}
		for k, vs := range values {
			v[k] = vs
		}
		v.Set("key", credential)
		// WeatherAPI uses "q" for location; it accepts a name or "lat,lon".
		v.Set("q", q.Key())

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, v.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}
}

// countryCode maps WeatherAPI's full country name to ISO-3166 alpha-2.
// Unrecognized names are returned unchanged.
func countryCode(name string) string {
	code := countries.ByName(name)
	if code == countries.Unknown {
		return name
	}
	return code.Alpha2()
}

func parseWeatherAPITime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseWeatherAPIMessage extracts the message from {"error":{"code":1006,"message":"..."}}.
func parseWeatherAPIMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

func mapWeatherAPICondition(text string) weather.Condition {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return weather.ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(t, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.HasAny(t, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(t, "fog", "mist"):
		return weather.ConditionMist
	case common.HasAny(t, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(t, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
