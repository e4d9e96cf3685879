package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weathercast/internal/weather"
)

// DefaultAQIThreshold is the "Poor" level on the 1-5 scale.
const DefaultAQIThreshold = 4

// ErrInvalidSettings is returned when a settings change fails validation.
var ErrInvalidSettings = errors.New("invalid settings")

var validate = validator.New()

// Settings are the user preferences persisted under store.KeySettings.
type Settings struct {
	APIProvider          weather.ProviderID `json:"apiProvider" validate:"required,oneof=openweather weatherapi accuweather google"`
	Unit                 weather.Unit       `json:"unit" validate:"required,oneof=metric imperial"`
	NotificationsEnabled bool               `json:"notificationsEnabled"`
	TemperatureThreshold *float64           `json:"temperatureThreshold,omitempty" validate:"omitempty,gte=-100,lte=150"`
	AQIThreshold         int                `json:"aqiThreshold" validate:"min=1,max=5"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		APIProvider:  weather.ProviderOpenWeather,
		Unit:         weather.UnitMetric,
		AQIThreshold: DefaultAQIThreshold,
	}
}

// Validate checks the struct tags.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

func (s Settings) clone() Settings {
	if s.TemperatureThreshold != nil {
		t := *s.TemperatureThreshold
		s.TemperatureThreshold = &t
	}
	return s
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	APIProvider          *weather.ProviderID
	Unit                 *weather.Unit
	NotificationsEnabled *bool
	TemperatureThreshold *float64
	// ClearTemperatureThreshold removes the threshold; it wins over TemperatureThreshold.
	ClearTemperatureThreshold bool
	AQIThreshold              *int
}

// Apply returns s with the patch merged over it.
func (p SettingsPatch) Apply(s Settings) Settings {
	next := s.clone()
	if p.APIProvider != nil {
		next.APIProvider = *p.APIProvider
	}
	if p.Unit != nil {
		next.Unit = *p.Unit
	}
	if p.NotificationsEnabled != nil {
		next.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.TemperatureThreshold != nil {
		t := *p.TemperatureThreshold
		next.TemperatureThreshold = &t
	}
	if p.ClearTemperatureThreshold {
		next.TemperatureThreshold = nil
	}
	if p.AQIThreshold != nil {
		next.AQIThreshold = *p.AQIThreshold
	}
	return next
}

// decodeSettings merges a persisted record over the defaults. Fields missing
// from raw keep their default value.
func decodeSettings(raw string) (Settings, error) {
	s := DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return DefaultSettings(), fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}
