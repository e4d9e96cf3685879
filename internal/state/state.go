// Package state holds the application state shared by the CLI commands:
// the last report, settings, favorites and preferences.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/weathercast/internal/notify"
	"github.com/i474232898/weathercast/internal/store"
	"github.com/i474232898/weathercast/internal/weather"
)

// Fetcher is the gateway operation the store depends on.
type Fetcher interface {
	GetWeather(ctx context.Context, provider weather.ProviderID, q weather.LocationQuery, unit weather.Unit, creds weather.Credentials) (*weather.Report, error)
}

// FetchError is the user-facing form of a failed fetch.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures New.
type Options struct {
	KV          store.Store
	Gateway     Fetcher
	Dispatcher  *notify.Dispatcher
	Credentials weather.Credentials
}

// Store is the single owner of application state. It is safe for concurrent
// use; the mutex is never held across network calls.
type Store struct {
	kv          store.Store
	gateway     Fetcher
	dispatcher  *notify.Dispatcher
	credentials weather.Credentials

	// settingsMu serializes UpdateSettings calls end to end, including the
	// permission prompt, so concurrent patches are applied in turn.
	settingsMu sync.Mutex

	mu         sync.Mutex
	report     *weather.Report
	location   string
	loading    bool
	lastErr    *FetchError
	settings   Settings
	favorites  []Favorite
	darkMode   bool
	lastCity   string
	lastCoords *weather.Coordinates
	generation uint64
}

// Snapshot is a consistent copy of the store for rendering.
type Snapshot struct {
	Report     *weather.Report
	Location   string
	Loading    bool
	Error      string
	Settings   Settings
	Favorites  []Favorite
	DarkMode   bool
	Permission notify.Permission
}

// New loads persisted settings, favorites and dark mode from opts.KV.
// Unreadable records fall back to defaults.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.KV == nil {
		return nil, errors.New("state: key/value store is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("state: gateway is required")
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = notify.NewDispatcher(nil)
	}

	s := &Store{
		kv:          opts.KV,
		gateway:     opts.Gateway,
		dispatcher:  opts.Dispatcher,
		credentials: opts.Credentials,
		settings:    DefaultSettings(),
		favorites:   []Favorite{},
	}

	if raw, ok := s.load(ctx, store.KeySettings); ok {
		settings, err := decodeSettings(raw)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring stored settings")
		}
		s.settings = settings
	}
	if raw, ok := s.load(ctx, store.KeyFavorites); ok {
		var favorites []Favorite
		if err := json.Unmarshal([]byte(raw), &favorites); err != nil {
			log.Warn().Err(err).Msg("ignoring stored favorites")
		} else if favorites != nil {
			s.favorites = favorites
		}
	}
	if raw, ok := s.load(ctx, store.KeyDarkMode); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			s.darkMode = v
		}
	}
	if raw, ok := s.load(ctx, store.KeyLastLocation); ok {
		var q weather.LocationQuery
		if err := json.Unmarshal([]byte(raw), &q); err != nil || q.Validate() != nil {
			log.Warn().Str("key", store.KeyLastLocation).Msg("ignoring stored location")
		} else {
			s.lastCity, s.lastCoords = q.City, q.Coords
		}
	}

	if s.settings.NotificationsEnabled {
		s.dispatcher.EnsurePermission(ctx)
	}
	return s, nil
}

func (s *Store) load(ctx context.Context, key string) (string, bool) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("failed to read stored state")
		}
		return "", false
	}
	return raw, true
}

func (s *Store) persist(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// FetchWeather loads the report for a city name. A blank name is a no-op.
func (s *Store) FetchWeather(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil
	}
	s.mu.Lock()
	s.lastCity = city
	s.lastCoords = nil
	s.mu.Unlock()

	q := weather.ByCity(city)
	s.rememberLocation(ctx, q)
	return s.fetch(ctx, q)
}

// FetchWeatherByCoords loads the report for a position. The (0, 0) pair is
// treated as unset and ignored.
func (s *Store) FetchWeatherByCoords(ctx context.Context, lat, lon float64) error {
	if lat == 0 && lon == 0 {
		return nil
	}
	c := weather.Coordinates{Lat: lat, Lon: lon}
	s.mu.Lock()
	s.lastCity = ""
	s.lastCoords = &c
	s.mu.Unlock()

	q := weather.ByCoords(lat, lon)
	s.rememberLocation(ctx, q)
	return s.fetch(ctx, q)
}

// rememberLocation persists q as the location Refresh falls back to in a
// later session. Failures are logged only.
func (s *Store) rememberLocation(ctx context.Context, q weather.LocationQuery) {
	if err := s.persist(ctx, store.KeyLastLocation, q); err != nil {
		log.Warn().Err(err).Msg("failed to save last location")
	}
}

// Refresh re-fetches the last requested location, if any.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	city, coords := s.lastCity, s.lastCoords
	s.mu.Unlock()

	switch {
	case city != "":
		return s.fetch(ctx, weather.ByCity(city))
	case coords != nil:
		return s.fetch(ctx, weather.ByCoords(coords.Lat, coords.Lon))
	default:
		return nil
	}
}

// fetch runs one gateway call. Only the most recently started fetch may
// update the store; older responses are dropped.
func (s *Store) fetch(ctx context.Context, q weather.LocationQuery) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.loading = true
	s.lastErr = nil
	provider, unit := s.settings.APIProvider, s.settings.Unit
	s.mu.Unlock()

	report, err := s.gateway.GetWeather(ctx, provider, q, unit, s.credentials)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		log.Debug().Str("location", q.Key()).Msg("discarding stale weather response")
		return nil
	}
	s.loading = false
	if err != nil {
		s.lastErr = &FetchError{Message: userMessage(err, provider, q), Err: err}
		fetchErr := s.lastErr
		s.mu.Unlock()
		log.Error().Err(err).Str("location", q.Key()).Msg("weather fetch failed")
		return fetchErr
	}
	s.report = report
	if report.Current != nil {
		s.location = report.Current.DisplayName()
	}
	rules := s.rulesLocked()
	s.mu.Unlock()

	s.dispatcher.Evaluate(ctx, rules, report)
	return nil
}

func (s *Store) rulesLocked() notify.Rules {
	return notify.Rules{
		Enabled:              s.settings.NotificationsEnabled,
		TemperatureThreshold: s.settings.TemperatureThreshold,
		AQIThreshold:         s.settings.AQIThreshold,
	}
}

// userMessage prefers the provider's own explanation and otherwise falls
// back to a message for the error class.
func userMessage(err error, provider weather.ProviderID, q weather.LocationQuery) string {
	if msg := weather.ProviderMessage(err); msg != "" {
		return msg
	}
	switch {
	case errors.Is(err, weather.ErrMissingCredential):
		return fmt.Sprintf("Missing API key for %s. Please configure it and try again.", provider)
	case errors.Is(err, weather.ErrUnknownProvider):
		return fmt.Sprintf("Weather provider %q is not available.", provider)
	case errors.Is(err, weather.ErrUnauthorized):
		return fmt.Sprintf("The API key for %s was rejected.", provider)
	case errors.Is(err, weather.ErrNotImplemented):
		return fmt.Sprintf("%s is not supported yet. Please choose another provider.", provider)
	case errors.Is(err, weather.ErrTransient):
		return "Weather service is unavailable. Please try again later."
	case q.City == "":
		return "Unable to fetch weather data for your location."
	default:
		return "City not found. Please try another location."
	}
}

// UpdateSettings merges patch into the settings, validates and persists the
// result. Switching to a provider without a credential is rejected and
// leaves the settings unchanged. Turning notifications on requests
// permission; when it is not granted notifications stay off and the
// permission error is returned. A unit or provider change re-fetches the
// last location.
func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) error {
	return s.updateSettings(ctx, func(Settings) SettingsPatch { return patch })
}

// ToggleUnit switches between metric and imperial.
func (s *Store) ToggleUnit(ctx context.Context) error {
	return s.updateSettings(ctx, func(cur Settings) SettingsPatch {
		unit := weather.UnitImperial
		if cur.Unit == weather.UnitImperial {
			unit = weather.UnitMetric
		}
		return SettingsPatch{Unit: &unit}
	})
}

// updateSettings builds the patch from the settings current at the time the
// update runs and commits it before the next update may start.
func (s *Store) updateSettings(ctx context.Context, build func(Settings) SettingsPatch) error {
	s.settingsMu.Lock()
	prev, next, permErr, err := s.commitSettings(ctx, build)
	s.settingsMu.Unlock()
	if err != nil {
		return err
	}

	if next.Unit != prev.Unit || next.APIProvider != prev.APIProvider {
		if err := s.Refresh(ctx); err != nil {
			log.Debug().Err(err).Msg("refresh after settings change failed")
		}
	}
	return permErr
}

// commitSettings must be called with settingsMu held.
func (s *Store) commitSettings(ctx context.Context, build func(Settings) SettingsPatch) (prev, next Settings, permErr, err error) {
	s.mu.Lock()
	prev = s.settings.clone()
	s.mu.Unlock()

	next = build(prev.clone()).Apply(prev)
	if err := next.Validate(); err != nil {
		return prev, next, nil, err
	}
	if next.APIProvider != prev.APIProvider {
		if _, err := s.credentials.For(next.APIProvider); err != nil {
			return prev, next, nil, err
		}
	}

	if next.NotificationsEnabled && !prev.NotificationsEnabled {
		if err := s.dispatcher.RequestPermission(ctx); err != nil {
			next.NotificationsEnabled = false
			permErr = err
		}
	}

	if err := s.persist(ctx, store.KeySettings, next); err != nil {
		return prev, next, nil, err
	}
	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	return prev, next, permErr, nil
}

// AddFavorite appends f unless a favorite with the same ID exists.
func (s *Store) AddFavorite(ctx context.Context, f Favorite) error {
	s.mu.Lock()
	for _, existing := range s.favorites {
		if existing.ID == f.ID {
			s.mu.Unlock()
			return nil
		}
	}
	s.favorites = append(s.favorites, f)
	snapshot := append([]Favorite(nil), s.favorites...)
	s.mu.Unlock()

	return s.persist(ctx, store.KeyFavorites, snapshot)
}

// RemoveFavorite deletes the favorite with the given ID, if present.
func (s *Store) RemoveFavorite(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := make([]Favorite, 0, len(s.favorites))
	for _, f := range s.favorites {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	s.favorites = kept
	snapshot := append([]Favorite(nil), kept...)
	s.mu.Unlock()

	return s.persist(ctx, store.KeyFavorites, snapshot)
}

// Favorites returns the favorites in insertion order.
func (s *Store) Favorites() []Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Favorite(nil), s.favorites...)
}

// ToggleDarkMode flips and persists the dark mode preference.
func (s *Store) ToggleDarkMode(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.darkMode = !s.darkMode
	v := s.darkMode
	s.mu.Unlock()

	return v, s.persist(ctx, store.KeyDarkMode, v)
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.clone()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Report:     s.report,
		Location:   s.location,
		Loading:    s.loading,
		Settings:   s.settings.clone(),
		Favorites:  append([]Favorite(nil), s.favorites...),
		DarkMode:   s.darkMode,
		Permission: s.dispatcher.Permission(),
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Message
	}
	return snap
}
