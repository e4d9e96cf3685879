package weather

import (
	"fmt"
	"strconv"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Unit is the measurement system requested from a provider.
type Unit string

const (
	UnitMetric   Unit = "metric"
	UnitImperial Unit = "imperial"
)

// Valid reports whether u is a supported unit system.
func (u Unit) Valid() bool {
	return u == UnitMetric || u == UnitImperial
}

// TemperatureSymbol returns the display suffix for temperatures in this unit system.
func (u Unit) TemperatureSymbol() string {
	if u == UnitImperial {
		return "°F"
	}
	return "°C"
}

// SpeedSymbol returns the display suffix for wind speed in this unit system.
func (u Unit) SpeedSymbol() string {
	if u == UnitImperial {
		return "mph"
	}
	return "m/s"
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns the canonical "lat,lon" form used in cache keys and query strings.
func (c Coordinates) Key() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Validate checks the pair is within WGS84 bounds.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("invalid latitude: %f", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("invalid longitude: %f", c.Lon)
	}
	return nil
}

// LocationQuery identifies a place either by free-text name or by coordinates.
// City takes precedence when both are set.
type LocationQuery struct {
	City   string       `json:"city,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

// ByCity builds a name-based query.
func ByCity(city string) LocationQuery {
	return LocationQuery{City: city}
}

// ByCoords builds a coordinate-based query.
func ByCoords(lat, lon float64) LocationQuery {
	return LocationQuery{Coords: &Coordinates{Lat: lat, Lon: lon}}
}

// Key returns the canonical string form of the query.
func (q LocationQuery) Key() string {
	if q.City != "" {
		return q.City
	}
	if q.Coords != nil {
		return q.Coords.Key()
	}
	return ""
}

// Validate reports ErrInvalidLocation when the query names no place.
func (q LocationQuery) Validate() error {
	if q.City != "" {
		return nil
	}
	if q.Coords == nil {
		return ErrInvalidLocation
	}
	if err := q.Coords.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return nil
}

// Current is the normalized current-conditions view of a location.
type Current struct {
	Provider      ProviderID   `json:"provider"`
	LocationName  string       `json:"locationName"`
	CountryCode   string       `json:"countryCode"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	Unit          Unit         `json:"unit"`
	Temp          float64      `json:"temp"`
	FeelsLike     float64      `json:"feelsLike"`
	Humidity      float64      `json:"humidity"`
	Pressure      float64      `json:"pressure"`
	WindSpeed     float64      `json:"windSpeed"`
	ConditionCode int          `json:"conditionCode"`
	Condition     Condition    `json:"condition"`
	Description   string       `json:"description"`
	Sunrise       *time.Time   `json:"sunrise,omitempty"`
	Sunset        *time.Time   `json:"sunset,omitempty"`
	ObservedAt    time.Time    `json:"observedAt"` // always UTC
}

// DisplayName returns "Name, CC" or just the name when no country is known.
func (c Current) DisplayName() string {
	if c.CountryCode == "" {
		return c.LocationName
	}
	return c.LocationName + ", " + c.CountryCode
}

// ForecastPoint is a single timestamped sample of a forecast series.
type ForecastPoint struct {
	Time          time.Time `json:"time"`
	Temp          float64   `json:"temp"`
	ConditionCode int       `json:"conditionCode"`
	Condition     Condition `json:"condition"`
	Description   string    `json:"description,omitempty"`
}

// Forecast is an ordered forecast series. Points are ordered by Time ascending.
type Forecast struct {
	Provider     ProviderID      `json:"provider"`
	LocationName string          `json:"locationName"`
	Unit         Unit            `json:"unit"`
	Points       []ForecastPoint `json:"points"`
}

// DailySummary aggregates one UTC day of forecast points.
type DailySummary struct {
	Date          time.Time `json:"date"`
	AvgTemp       float64   `json:"avgTemp"`
	MinTemp       float64   `json:"minTemp"`
	MaxTemp       float64   `json:"maxTemp"`
	ConditionCode int       `json:"conditionCode"`
	Condition     Condition `json:"condition"`
}

// AirQuality is a normalized air-quality sample. Level uses the 1 (Good) to 5 (Very Poor) scale.
type AirQuality struct {
	Level      int                `json:"level"`
	Components map[string]float64 `json:"components"`
	ObservedAt time.Time          `json:"observedAt"`
}

// Label returns the human name of the AQI level.
func (a AirQuality) Label() string {
	return AQILabel(a.Level)
}

// AQILabel maps a 1-5 AQI level to its name.
func AQILabel(level int) string {
	switch level {
	case 1:
		return "Good"
	case 2:
		return "Fair"
	case 3:
		return "Moderate"
	case 4:
		return "Poor"
	case 5:
		return "Very Poor"
	default:
		return "Unknown"
	}
}

// Alert is a severe weather alert issued for a location.
type Alert struct {
	Event       string    `json:"event"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Sender      string    `json:"sender,omitempty"`
}

// Place is a location search match.
type Place struct {
	Name    string      `json:"name"`
	Country string      `json:"country"`
	State   string      `json:"state,omitempty"`
	Coords  Coordinates `json:"coords"`
}

// Report is the combined result of one gateway fetch.
type Report struct {
	Current    *Current    `json:"current"`
	Forecast   *Forecast   `json:"forecast,omitempty"`
	AirQuality *AirQuality `json:"airQuality,omitempty"`
	Alerts     []Alert     `json:"alerts"`

	// Unavailable lists enrichment capabilities the provider does not implement.
	Unavailable []Capability `json:"unavailable,omitempty"`
}
