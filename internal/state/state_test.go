package state

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weathercast/internal/notify"
	"github.com/i474232898/weathercast/internal/store"
	"github.com/i474232898/weathercast/internal/weather"
)

type call struct {
	provider weather.ProviderID
	query    weather.LocationQuery
	unit     weather.Unit
}

// fakeGateway records calls and answers through fn.
type fakeGateway struct {
	mu    sync.Mutex
	calls []call
	fn    func(c call) (*weather.Report, error)
}

func (f *fakeGateway) GetWeather(_ context.Context, provider weather.ProviderID, q weather.LocationQuery, unit weather.Unit, _ weather.Credentials) (*weather.Report, error) {
	c := call{provider: provider, query: q, unit: unit}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(c)
	}
	return reportFor(c), nil
}

func (f *fakeGateway) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func reportFor(c call) *weather.Report {
	temp := 20.0
	if c.unit == weather.UnitImperial {
		temp = 68
	}
	return &weather.Report{
		Current: &weather.Current{LocationName: c.query.Key(), CountryCode: "FR", Unit: c.unit, Temp: temp},
		Alerts:  []weather.Alert{},
	}
}

type grantingCapability struct {
	mu     sync.Mutex
	state  notify.Permission
	answer notify.Permission
	shown  []notify.Notification
}

func (g *grantingCapability) Permission() notify.Permission { return g.state }

func (g *grantingCapability) RequestPermission(context.Context) (notify.Permission, error) {
	g.state = g.answer
	return g.answer, nil
}

func (g *grantingCapability) Show(_ context.Context, n notify.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shown = append(g.shown, n)
	return nil
}

var creds = weather.Credentials{
	weather.ProviderOpenWeather: "owm",
	weather.ProviderWeatherAPI:  "wapi",
}

func newTestStore(t *testing.T, kv store.Store, gw Fetcher, d *notify.Dispatcher) *Store {
	t.Helper()
	s, err := New(context.Background(), Options{KV: kv, Gateway: gw, Dispatcher: d, Credentials: creds})
	require.NoError(t, err)
	return s
}

func TestFetchWeatherPopulatesState(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestStore(t, store.NewMemoryStore(), gw, nil)

	require.NoError(t, s.FetchWeather(context.Background(), " Paris "))
	snap := s.Snapshot()
	require.NotNil(t, snap.Report)
	assert.Equal(t, "Paris, FR", snap.Location)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, weather.ProviderOpenWeather, gw.Calls()[0].provider)
}

func TestFetchWeatherBlankIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestStore(t, store.NewMemoryStore(), gw, nil)

	require.NoError(t, s.FetchWeather(context.Background(), "   "))
	require.NoError(t, s.FetchWeatherByCoords(context.Background(), 0, 0))
	assert.Empty(t, gw.Calls())
}

func TestFetchErrorMessages(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		city  bool
		want  string
		class error
	}{
		{"provider message", weather.NewAPIError(weather.ProviderOpenWeather, 404, "city not found"), true, "city not found", weather.ErrNotFound},
		{"generic city", errors.New("boom"), true, "City not found. Please try another location.", nil},
		{"generic coords", errors.New("boom"), false, "Unable to fetch weather data for your location.", nil},
		{"missing credential", weather.ErrMissingCredential, true, "Missing API key for openweather. Please configure it and try again.", weather.ErrMissingCredential},
		{"not implemented", weather.NotImplemented(weather.ProviderOpenWeather, weather.CapabilityCurrent, "x"), true, "openweather is not supported yet. Please choose another provider.", weather.ErrNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{fn: func(call) (*weather.Report, error) { return nil, tt.err }}
			s := newTestStore(t, store.NewMemoryStore(), gw, nil)

			var err error
			if tt.city {
				err = s.FetchWeather(context.Background(), "Atlantis")
			} else {
				err = s.FetchWeatherByCoords(context.Background(), 10, 20)
			}
			require.Error(t, err)
			if tt.class != nil {
				assert.ErrorIs(t, err, tt.class)
			}

			snap := s.Snapshot()
			assert.Equal(t, tt.want, snap.Error)
			assert.False(t, snap.Loading)
			assert.Nil(t, snap.Report)
		})
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	gw := &fakeGateway{fn: func(c call) (*weather.Report, error) {
		if c.query.City == "Paris" {
			close(started)
			<-release
		}
		return reportFor(c), nil
	}}
	s := newTestStore(t, store.NewMemoryStore(), gw, nil)

	done := make(chan error)
	go func() { done <- s.FetchWeather(context.Background(), "Paris") }()
	<-started

	require.NoError(t, s.FetchWeather(context.Background(), "London"))
	close(release)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, "London", snap.Report.Current.LocationName)
	assert.False(t, snap.Loading)
}

func TestUnitChangeRefetches(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestStore(t, store.NewMemoryStore(), gw, nil)

	require.NoError(t, s.FetchWeather(context.Background(), "Paris"))
	require.NoError(t, s.ToggleUnit(context.Background()))

	calls := gw.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Paris", calls[1].query.City)
	assert.Equal(t, weather.UnitImperial, calls[1].unit)
	assert.Equal(t, 68.0, s.Snapshot().Report.Current.Temp)
}

func TestUnitChangeRefetchesCoordinates(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestStore(t, store.NewMemoryStore(), gw, nil)

	require.NoError(t, s.FetchWeatherByCoords(context.Background(), 48.85, 2.35))
	unit := weather.UnitImperial
	require.NoError(t, s.UpdateSettings(context.Background(), SettingsPatch{Unit: &unit}))

	calls := gw.Calls()
	require.Len(t, calls, 2)
	require.NotNil(t, calls[1].query.Coords)
	assert.Equal(t, 48.85, calls[1].query.Coords.Lat)
}

func TestProviderSwitchRequiresCredential(t *testing.T) {
	kv := store.NewMemoryStore()
	s := newTestStore(t, kv, &fakeGateway{}, nil)

	p := weather.ProviderAccuWeather
	err := s.UpdateSettings(context.Background(), SettingsPatch{APIProvider: &p})
	assert.ErrorIs(t, err, weather.ErrMissingCredential)
	assert.Equal(t, weather.ProviderOpenWeather, s.Settings().APIProvider)

	_, err = kv.Get(context.Background(), store.KeySettings)
	assert.ErrorIs(t, err, store.ErrNotFound)

	p = weather.ProviderWeatherAPI
	require.NoError(t, s.UpdateSettings(context.Background(), SettingsPatch{APIProvider: &p}))
	assert.Equal(t, weather.ProviderWeatherAPI, s.Settings().APIProvider)
}

func TestUpdateSettingsValidation(t *testing.T) {
	s := newTestStore(t, store.NewMemoryStore(), &fakeGateway{}, nil)

	aqi := 9
	err := s.UpdateSettings(context.Background(), SettingsPatch{AQIThreshold: &aqi})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	unit := weather.Unit("kelvin")
	err = s.UpdateSettings(context.Background(), SettingsPatch{Unit: &unit})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, DefaultSettings(), s.Settings())
}

func TestSettingsPersistAndMerge(t *testing.T) {
	kv := store.NewMemoryStore()
	s := newTestStore(t, kv, &fakeGateway{}, nil)

	threshold := 30.0
	require.NoError(t, s.UpdateSettings(context.Background(), SettingsPatch{TemperatureThreshold: &threshold}))

	reloaded := newTestStore(t, kv, &fakeGateway{}, nil)
	got := reloaded.Settings()
	require.NotNil(t, got.TemperatureThreshold)
	assert.Equal(t, 30.0, *got.TemperatureThreshold)
	assert.Equal(t, DefaultAQIThreshold, got.AQIThreshold)

	require.NoError(t, reloaded.UpdateSettings(context.Background(), SettingsPatch{ClearTemperatureThreshold: true}))
	assert.Nil(t, reloaded.Settings().TemperatureThreshold)
}

func TestStoredSettingsMergedOverDefaults(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), store.KeySettings, `{"unit":"imperial"}`))

	s := newTestStore(t, kv, &fakeGateway{}, nil)
	got := s.Settings()
	assert.Equal(t, weather.UnitImperial, got.Unit)
	assert.Equal(t, weather.ProviderOpenWeather, got.APIProvider)
	assert.Equal(t, DefaultAQIThreshold, got.AQIThreshold)
}

func TestCorruptStoredStateFallsBack(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, store.KeySettings, `{"aqiThreshold": 42}`))
	require.NoError(t, kv.Set(ctx, store.KeyFavorites, `not json`))

	s := newTestStore(t, kv, &fakeGateway{}, nil)
	assert.Equal(t, DefaultSettings(), s.Settings())
	assert.Empty(t, s.Favorites())
}

func TestNotificationsToggleRequestsPermission(t *testing.T) {
	capability := &grantingCapability{state: notify.PermissionDefault, answer: notify.PermissionDenied}
	s := newTestStore(t, store.NewMemoryStore(), &fakeGateway{}, notify.NewDispatcher(capability))

	on := true
	err := s.UpdateSettings(context.Background(), SettingsPatch{NotificationsEnabled: &on})
	assert.ErrorIs(t, err, notify.ErrPermissionDenied)
	assert.False(t, s.Settings().NotificationsEnabled)

	capability.answer = notify.PermissionGranted
	require.NoError(t, s.UpdateSettings(context.Background(), SettingsPatch{NotificationsEnabled: &on}))
	assert.True(t, s.Settings().NotificationsEnabled)
	assert.Equal(t, notify.PermissionGranted, s.Snapshot().Permission)
}

func TestFetchEvaluatesNotifications(t *testing.T) {
	capability := &grantingCapability{state: notify.PermissionGranted}
	s := newTestStore(t, store.NewMemoryStore(), &fakeGateway{}, notify.NewDispatcher(capability))

	on, threshold := true, 15.0
	require.NoError(t, s.UpdateSettings(context.Background(), SettingsPatch{NotificationsEnabled: &on, TemperatureThreshold: &threshold}))
	require.NoError(t, s.FetchWeather(context.Background(), "Paris"))

	require.Len(t, capability.shown, 1)
	assert.Equal(t, "Temperature is above 15°", capability.shown[0].Body)
}

func TestFavorites(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	s := newTestStore(t, kv, &fakeGateway{}, nil)

	paris := Favorite{ID: FavoriteID("Paris", "FR"), Name: "Paris", Country: "FR"}
	london := FavoriteFromCurrent(weather.Current{LocationName: "London", CountryCode: "GB"})

	require.NoError(t, s.AddFavorite(ctx, paris))
	require.NoError(t, s.AddFavorite(ctx, paris))
	require.NoError(t, s.AddFavorite(ctx, london))
	assert.Equal(t, []Favorite{paris, london}, s.Favorites())

	require.NoError(t, s.RemoveFavorite(ctx, "tokyo,jp"))
	assert.Len(t, s.Favorites(), 2)

	require.NoError(t, s.RemoveFavorite(ctx, paris.ID))
	raw, err := kv.Get(ctx, store.KeyFavorites)
	require.NoError(t, err)
	var persisted []Favorite
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, []Favorite{london}, persisted)
	assert.Equal(t, "london,gb", london.ID)
}

func TestToggleDarkModePersists(t *testing.T) {
	kv := store.NewMemoryStore()
	s := newTestStore(t, kv, &fakeGateway{}, nil)

	on, err := s.ToggleDarkMode(context.Background())
	require.NoError(t, err)
	assert.True(t, on)

	reloaded := newTestStore(t, kv, &fakeGateway{}, nil)
	assert.True(t, reloaded.Snapshot().DarkMode)
}

// blockingCapability holds RequestPermission until release is closed.
type blockingCapability struct {
	grantingCapability
	asked   chan struct{}
	release chan struct{}
}

func (b *blockingCapability) RequestPermission(ctx context.Context) (notify.Permission, error) {
	close(b.asked)
	<-b.release
	return b.grantingCapability.RequestPermission(ctx)
}

func TestConcurrentSettingsUpdatesAreNotLost(t *testing.T) {
	capability := &blockingCapability{
		grantingCapability: grantingCapability{state: notify.PermissionDefault, answer: notify.PermissionGranted},
		asked:              make(chan struct{}),
		release:            make(chan struct{}),
	}
	kv := store.NewMemoryStore()
	s := newTestStore(t, kv, &fakeGateway{}, notify.NewDispatcher(capability))
	ctx := context.Background()

	enabled, aqi := true, 2
	errs := make(chan error, 2)
	go func() { errs <- s.UpdateSettings(ctx, SettingsPatch{NotificationsEnabled: &enabled}) }()
	<-capability.asked

	go func() { errs <- s.UpdateSettings(ctx, SettingsPatch{AQIThreshold: &aqi}) }()
	time.Sleep(20 * time.Millisecond)
	close(capability.release)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	got := s.Settings()
	assert.True(t, got.NotificationsEnabled)
	assert.Equal(t, 2, got.AQIThreshold)

	reloaded := newTestStore(t, kv, &fakeGateway{}, nil)
	assert.Equal(t, got, reloaded.Settings())
}

func TestLastLocationSurvivesRestart(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	first := newTestStore(t, kv, &fakeGateway{}, nil)
	require.NoError(t, first.FetchWeather(ctx, "Paris"))

	gw := &fakeGateway{}
	s := newTestStore(t, kv, gw, nil)
	unit := weather.UnitImperial
	require.NoError(t, s.UpdateSettings(ctx, SettingsPatch{Unit: &unit}))

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, weather.ByCity("Paris"), calls[0].query)
	assert.Equal(t, weather.UnitImperial, calls[0].unit)
	assert.Equal(t, 68.0, s.Snapshot().Report.Current.Temp)

	require.NoError(t, s.FetchWeatherByCoords(ctx, 48.85, 2.35))
	again := newTestStore(t, kv, gw, nil)
	require.NoError(t, again.Refresh(ctx))
	assert.Equal(t, weather.ByCoords(48.85, 2.35), gw.Calls()[2].query)
}

func TestCorruptStoredLocationIsIgnored(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), store.KeyLastLocation, `{"coords":{"lat":123,"lon":0}}`))
	gw := &fakeGateway{}
	s := newTestStore(t, kv, gw, nil)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Empty(t, gw.Calls())
}
