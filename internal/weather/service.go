package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Gateway selects the adapter for a provider and composes the parallel
// sub-fetches that make up a Report.
type Gateway struct {
	adapters Adapters
}

// NewGateway creates a new Gateway.
func NewGateway(adapters Adapters) *Gateway {
	return &Gateway{
		adapters: adapters,
	}
}

// GetWeather fetches current conditions and forecast for q concurrently, then
// enriches the result with air quality and alerts when coordinates are known.
// A failure of either essential fetch fails the whole call; enrichment
// failures never do.
func (g *Gateway) GetWeather(ctx context.Context, provider ProviderID, q LocationQuery, unit Unit, creds Credentials) (*Report, error) {
	credential, err := creds.For(provider)
	if err != nil {
		return nil, err
	}
	adapter, err := g.adapters.For(provider)
	if err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if !unit.Valid() {
		unit = UnitMetric
	}

	logger := log.With().
		Str("request_id", uuid.NewString()).
		Str("provider", string(provider)).
		Str("location", q.Key()).
		Str("unit", string(unit)).
		Logger()
	ctx = logger.WithContext(ctx)
	logger.Debug().Msg("fetching weather")

	var (
		report    Report
		eg, egCtx = errgroup.WithContext(ctx)
	)
	eg.Go(func() error {
		cur, err := adapter.CurrentWeather(egCtx, q, unit, credential)
		if err != nil {
			return fmt.Errorf("current weather: %w", err)
		}
		report.Current = cur
		return nil
	})
	eg.Go(func() error {
		fc, err := adapter.Forecast(egCtx, q, unit, credential)
		if err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		report.Forecast = fc
		return nil
	})
	if err := eg.Wait(); err != nil {
		logger.Warn().Err(err).Msg("essential fetch failed")
		return nil, err
	}

	if report.Current != nil && report.Current.Coordinates != nil {
		g.enrich(ctx, adapter, *report.Current.Coordinates, credential, &report)
	}
	if report.Alerts == nil {
		report.Alerts = []Alert{}
	}

	return &report, nil
}

// enrich fetches air quality and alerts concurrently. Each result is
// independent: a failure leaves that field absent and is logged once.
func (g *Gateway) enrich(ctx context.Context, adapter Adapter, c Coordinates, credential string, report *Report) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	markUnavailable := func(cap Capability) {
		mu.Lock()
		report.Unavailable = append(report.Unavailable, cap)
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		aq, ok := Tolerate(ctx, CapabilityAirQuality, func() (*AirQuality, error) {
			return adapter.AirQuality(ctx, c, credential)
		})
		if !ok {
			markUnavailable(CapabilityAirQuality)
			return
		}
		mu.Lock()
		report.AirQuality = aq
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		alerts, ok := Tolerate(ctx, CapabilityAlerts, func() ([]Alert, error) {
			return adapter.Alerts(ctx, c, credential)
		})
		if !ok {
			markUnavailable(CapabilityAlerts)
			return
		}
		mu.Lock()
		report.Alerts = alerts
		mu.Unlock()
	}()
	wg.Wait()
}

// Tolerate runs an enrichment fetch and converts any failure into the zero
// value. The returned flag is false only when the capability is not
// implemented by the provider; other failures are logged as ErrEnrichment.
func Tolerate[T any](ctx context.Context, cap Capability, fetch func() (T, error)) (T, bool) {
	v, err := fetch()
	if err == nil {
		return v, true
	}

	var zero T
	logger := zerolog.Ctx(ctx)
	if errors.Is(err, ErrNotImplemented) {
		logger.Debug().Err(err).Str("capability", string(cap)).Msg("capability not supported by provider")
		return zero, false
	}
	logger.Warn().Err(fmt.Errorf("%w: %v", ErrEnrichment, err)).Str("capability", string(cap)).Msg("enrichment unavailable")
	return zero, true
}
