// Package notify turns weather reports into user notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weathercast/internal/weather"
)

// Permission is the user's notification consent state.
type Permission string

const (
	PermissionUnsupported Permission = "unsupported"
	PermissionDefault     Permission = "default"
	PermissionDenied      Permission = "denied"
	PermissionGranted     Permission = "granted"
)

var (
	// ErrPermissionDenied is returned when the user did not grant notification permission.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrUnsupported is returned when the runtime cannot show notifications.
	ErrUnsupported = errors.New("notifications are not supported")
)

const seenTagsSize = 128

// Notification is one message shown to the user. Notifications sharing a Tag
// replace each other.
type Notification struct {
	Title              string
	Body               string
	Tag                string
	RequireInteraction bool
}

// Capability is the runtime's notification surface.
type Capability interface {
	// Permission reports the current state without prompting.
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, n Notification) error
}

// Rules holds the user settings that drive Evaluate.
type Rules struct {
	Enabled              bool
	TemperatureThreshold *float64
	AQIThreshold         int
}

// Dispatcher evaluates reports against Rules and emits notifications through
// a Capability. A nil Capability means notifications are unsupported.
type Dispatcher struct {
	mu         sync.Mutex
	capability Capability
	permission Permission
	seen       *lru.Cache[string, struct{}]
}

func NewDispatcher(capability Capability) *Dispatcher {
	seen, _ := lru.New[string, struct{}](seenTagsSize)
	d := &Dispatcher{
		capability: capability,
		permission: PermissionUnsupported,
		seen:       seen,
	}
	if capability != nil {
		d.permission = capability.Permission()
	}
	return d
}

// Permission returns the last known permission state.
func (d *Dispatcher) Permission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

// EnsurePermission prompts only when the user has not decided yet. It is
// meant for automatic checks, so a previous denial is respected.
func (d *Dispatcher) EnsurePermission(ctx context.Context) Permission {
	d.mu.Lock()
	current := d.permission
	d.mu.Unlock()

	if current != PermissionDefault {
		return current
	}
	p, err := d.prompt(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("notification permission request failed")
	}
	return p
}

// RequestPermission prompts on an explicit user action, including after a
// previous denial. It returns nil only when permission is granted.
func (d *Dispatcher) RequestPermission(ctx context.Context) error {
	d.mu.Lock()
	current := d.permission
	d.mu.Unlock()

	switch current {
	case PermissionUnsupported:
		return ErrUnsupported
	case PermissionGranted:
		return nil
	}

	p, err := d.prompt(ctx)
	if err != nil {
		return fmt.Errorf("requesting notification permission: %w", err)
	}
	if p != PermissionGranted {
		return fmt.Errorf("%w (%s)", ErrPermissionDenied, p)
	}
	return nil
}

func (d *Dispatcher) prompt(ctx context.Context) (Permission, error) {
	p, err := d.capability.RequestPermission(ctx)
	if err != nil {
		return d.Permission(), err
	}
	d.mu.Lock()
	d.permission = p
	d.mu.Unlock()
	log.Debug().Str("permission", string(p)).Msg("notification permission updated")
	return p, nil
}

// Evaluate checks report against rules and shows the resulting
// notifications. It does nothing unless rules are enabled and permission is
// granted. Emission is best effort; the notifications actually shown are returned.
func (d *Dispatcher) Evaluate(ctx context.Context, rules Rules, report *weather.Report) []Notification {
	if !rules.Enabled || report == nil || d.Permission() != PermissionGranted {
		return nil
	}

	var pending, alerts []Notification
	if report.Current != nil && rules.TemperatureThreshold != nil {
		if n, ok := temperatureNotification(report.Current.Temp, *rules.TemperatureThreshold); ok {
			pending = append(pending, n)
		}
	}
	if report.AirQuality != nil && rules.AQIThreshold > 0 && report.AirQuality.Level >= rules.AQIThreshold {
		pending = append(pending, aqiNotification(*report.AirQuality))
	}
	for _, a := range report.Alerts {
		alerts = append(alerts, alertNotification(a))
	}

	shown := make([]Notification, 0, len(pending)+len(alerts))
	for _, n := range pending {
		if d.show(ctx, n) {
			shown = append(shown, n)
		}
	}
	// Alerts persist across refreshes; each is shown once. A failed show
	// is retried on the next evaluation.
	for _, n := range alerts {
		if d.seen.Contains(n.Tag) {
			continue
		}
		if d.show(ctx, n) {
			d.seen.Add(n.Tag, struct{}{})
			shown = append(shown, n)
		}
	}
	return shown
}

func (d *Dispatcher) show(ctx context.Context, n Notification) bool {
	if err := d.capability.Show(ctx, n); err != nil {
		log.Warn().Err(err).Str("tag", n.Tag).Msg("failed to show notification")
		return false
	}
	return true
}

// temperatureNotification fires above the threshold, or more than ten
// degrees below it.
func temperatureNotification(temp, threshold float64) (Notification, bool) {
	var direction string
	switch {
	case temp > threshold:
		direction = "above"
	case temp < threshold-10:
		direction = "below"
	default:
		return Notification{}, false
	}
	t := strconv.FormatFloat(threshold, 'f', -1, 64)
	return Notification{
		Title: "Temperature Alert",
		Body:  fmt.Sprintf("Temperature is %s %s°", direction, t),
		Tag:   "temp-" + t,
	}, true
}

func aqiNotification(aq weather.AirQuality) Notification {
	return Notification{
		Title: "High Air Quality Alert",
		Body:  fmt.Sprintf("Air Quality Index is %d (%s). Consider limiting outdoor activities.", aq.Level, aq.Label()),
		Tag:   "aqi-alert",
	}
}

func alertNotification(a weather.Alert) Notification {
	return Notification{
		Title:              "Severe Weather Alert",
		Body:               fmt.Sprintf("%s: %s", a.Event, a.Description),
		Tag:                alertTag(a),
		RequireInteraction: true,
	}
}

// alertTag identifies an alert by its start time, or by event and end time
// when the provider gives no start.
func alertTag(a weather.Alert) string {
	if !a.Start.IsZero() {
		return "alert-" + strconv.FormatInt(a.Start.Unix(), 10)
	}
	event := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(a.Event)), " ", "-")
	if a.End.IsZero() {
		return "alert-" + event
	}
	return "alert-" + event + "-" + strconv.FormatInt(a.End.Unix(), 10)
}
