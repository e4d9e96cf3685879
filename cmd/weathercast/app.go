package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/weathercast/internal/cache"
	"github.com/i474232898/weathercast/internal/config"
	"github.com/i474232898/weathercast/internal/geo"
	"github.com/i474232898/weathercast/internal/notify"
	"github.com/i474232898/weathercast/internal/search"
	"github.com/i474232898/weathercast/internal/state"
	"github.com/i474232898/weathercast/internal/store"
	"github.com/i474232898/weathercast/internal/weather"
	"github.com/i474232898/weathercast/internal/weather/providers"
)

// app holds the dependencies shared by all commands.
type app struct {
	cfg     *config.AppConfig
	kv      store.Store
	cache   *cache.Cache
	state   *state.Store
	search  *search.Service
	locator geo.Locator
	creds   weather.Credentials
}

// appOptions adjusts how newApp wires its dependencies.
type appOptions struct {
	// notifyOut receives console notifications. It must not be the stream
	// reports are rendered to, so --json output stays parseable.
	notifyOut io.Writer

	// Provider endpoint overrides; empty uses the public APIs.
	openWeatherURL string
	weatherAPIURL  string
}

func newApp(ctx context.Context, cfg *config.AppConfig, o appOptions) (*app, error) {
	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	kv, err := store.Open(ctx, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", storeOpts.Driver, err)
	}

	responses, err := cache.New(kv, cfg.CacheLRUSize)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	opts := providers.Options{
		HTTPClient: httpClient,
		Cache:      responses,
		MaxRetries: cfg.ProviderRetries,
	}
	owmOpts, wapiOpts := opts, opts
	owmOpts.BaseURL, wapiOpts.BaseURL = o.openWeatherURL, o.weatherAPIURL
	openWeather := providers.NewOpenWeatherProvider(owmOpts)
	gateway := weather.NewGateway(weather.Adapters{
		OpenWeather: openWeather,
		WeatherAPI:  providers.NewWeatherAPIProvider(wapiOpts),
		AccuWeather: providers.NewAccuWeatherProvider(),
		Google:      providers.NewGoogleProvider(),
	})

	creds := cfg.Credentials()
	st, err := state.New(ctx, state.Options{
		KV:          kv,
		Gateway:     gateway,
		Dispatcher:  notify.NewDispatcher(notify.NewConsoleNotifier(o.notifyOut)),
		Credentials: creds,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		kv:      kv,
		cache:   responses,
		state:   st,
		search:  search.NewService(openWeather),
		locator: geo.NewIPLocator("", httpClient),
		creds:   creds,
	}, nil
}

func (a *app) Close() {
	log.Debug().Interface("cache", a.cache.Stats()).Msg("closing")
	if err := a.kv.Close(); err != nil {
		log.Warn().Err(err).Msg("closing store")
	}
}
