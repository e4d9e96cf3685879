package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/i474232898/weathercast/internal/common"
	"github.com/i474232898/weathercast/internal/state"
	"github.com/i474232898/weathercast/internal/weather"
)

// theme picks terminal colors for the dark mode preference.
type theme struct {
	heading string
	muted   string
	warn    string
	reset   string
}

func themeFor(dark bool) theme {
	if dark {
		return theme{heading: "\033[1;96m", muted: "\033[37m", warn: "\033[1;93m", reset: "\033[0m"}
	}
	return theme{heading: "\033[1;34m", muted: "\033[90m", warn: "\033[1;31m", reset: "\033[0m"}
}

func (t theme) h(s string) string     { return t.heading + s + t.reset }
func (t theme) dim(s string) string   { return t.muted + s + t.reset }
func (t theme) alert(s string) string { return t.warn + s + t.reset }

type renderOptions struct {
	hourly bool
	daily  bool
}

func renderJSON(w io.Writer, report *weather.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func renderSnapshot(w io.Writer, snap state.Snapshot, opts renderOptions) {
	t := themeFor(snap.DarkMode)
	if snap.Error != "" {
		fmt.Fprintln(w, t.alert(snap.Error))
		return
	}
	r := snap.Report
	if r == nil || r.Current == nil {
		fmt.Fprintln(w, t.dim("No weather loaded."))
		return
	}

	c := r.Current
	unit := c.Unit
	fmt.Fprintf(w, "%s  %s\n", t.h(snap.Location), t.dim(c.ObservedAt.Local().Format("Mon 15:04")))
	fmt.Fprintf(w, "  %.1f%s  %s (feels like %.1f%s)\n", c.Temp, unit.TemperatureSymbol(), c.Description, c.FeelsLike, unit.TemperatureSymbol())
	fmt.Fprintf(w, "  Humidity %.0f%%  Pressure %.0f hPa  Wind %.1f %s\n", c.Humidity, c.Pressure, c.WindSpeed, unit.SpeedSymbol())
	if c.Sunrise != nil && c.Sunset != nil {
		fmt.Fprintf(w, "  Sunrise %s  Sunset %s\n", c.Sunrise.Local().Format("15:04"), c.Sunset.Local().Format("15:04"))
	}

	if aq := r.AirQuality; aq != nil {
		fmt.Fprintf(w, "\n%s %d (%s)\n", t.h("Air quality"), aq.Level, aq.Label())
		for _, k := range []string{"pm2_5", "pm10", "o3", "no2", "so2", "co"} {
			if v, ok := aq.Components[k]; ok {
				fmt.Fprintf(w, "  %-6s %8.1f µg/m³\n", k, v)
			}
		}
	}

	if len(r.Alerts) > 0 {
		fmt.Fprintf(w, "\n%s\n", t.alert("Weather alerts"))
		for _, al := range r.Alerts {
			fmt.Fprintf(w, "  %s [%s] %s - %s\n", al.Event, al.Severity, formatTime(al.Start), formatTime(al.End))
			if al.Description != "" {
				fmt.Fprintf(w, "    %s\n", common.Truncate(strings.Join(strings.Fields(al.Description), " "), 160))
			}
		}
	}

	if opts.hourly && r.Forecast != nil {
		fmt.Fprintf(w, "\n%s\n", t.h("Next 24 hours"))
		for _, p := range r.Forecast.Hourly(8) {
			fmt.Fprintf(w, "  %s  %5.1f%s  %s\n", p.Time.Local().Format("Mon 15:04"), p.Temp, unit.TemperatureSymbol(), p.Description)
		}
	}
	if opts.daily && r.Forecast != nil {
		fmt.Fprintf(w, "\n%s\n", t.h("5-day forecast"))
		for _, d := range r.Forecast.Daily() {
			fmt.Fprintf(w, "  %s  %5.1f%s  (%.0f / %.0f)  %s\n", d.Date.Format("Mon Jan 2"), d.AvgTemp, unit.TemperatureSymbol(), d.MinTemp, d.MaxTemp, d.Condition)
		}
	}

	if len(r.Unavailable) > 0 {
		names := make([]string, len(r.Unavailable))
		for i, capability := range r.Unavailable {
			names[i] = string(capability)
		}
		fmt.Fprintf(w, "\n%s\n", t.dim(fmt.Sprintf("Not available from %s: %s", c.Provider, strings.Join(names, ", "))))
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "?"
	}
	return ts.Local().Format("Jan 2 15:04")
}

func renderPlaces(w io.Writer, places []weather.Place) {
	if len(places) == 0 {
		fmt.Fprintln(w, "No locations found.")
		return
	}
	for i, p := range places {
		name := p.Name
		if p.State != "" {
			name += ", " + p.State
		}
		fmt.Fprintf(w, "%d. %s, %s (%s)\n", i+1, name, p.Country, p.Coords.Key())
	}
}
