package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var currentOpts struct {
	lat, lon float64
	here     bool
	asJSON   bool
	hourly   bool
	daily    bool
}

var currentCmd = &cobra.Command{
	Use:   "current [city]",
	Short: "Show current weather for a city, coordinates or your location",
	Example: `  weathercast current Paris
  weathercast current --lat 48.85 --lon 2.35 --daily
  weathercast current --here`,
	RunE: runCurrent,
}

func init() {
	f := currentCmd.Flags()
	f.Float64Var(&currentOpts.lat, "lat", 0, "latitude")
	f.Float64Var(&currentOpts.lon, "lon", 0, "longitude")
	f.BoolVar(&currentOpts.here, "here", false, "use your approximate location")
	f.BoolVar(&currentOpts.asJSON, "json", false, "print the report as JSON")
	f.BoolVar(&currentOpts.hourly, "hourly", false, "include the next 24 hours")
	f.BoolVar(&currentOpts.daily, "daily", false, "include the 5-day forecast")
	currentCmd.MarkFlagsRequiredTogether("lat", "lon")
	currentCmd.MarkFlagsMutuallyExclusive("here", "lat")
	rootCmd.AddCommand(currentCmd)
}

func runCurrent(cmd *cobra.Command, args []string) error {
	if err := fetchLocation(cmd, args, currentOpts.here); err != nil {
		return err
	}

	snap := deps.state.Snapshot()
	if currentOpts.asJSON {
		return renderJSON(cmd.OutOrStdout(), snap.Report)
	}
	renderSnapshot(cmd.OutOrStdout(), snap, renderOptions{hourly: currentOpts.hourly, daily: currentOpts.daily})
	return nil
}

// fetchLocation loads weather for the location named by args or the
// --lat/--lon and --here flags.
func fetchLocation(cmd *cobra.Command, args []string, here bool) error {
	ctx := cmd.Context()
	switch {
	case here:
		c, err := deps.locator.CurrentPosition(ctx)
		if err != nil {
			return err
		}
		return deps.state.FetchWeatherByCoords(ctx, c.Lat, c.Lon)
	case cmd.Flags().Changed("lat"):
		return deps.state.FetchWeatherByCoords(ctx, currentOpts.lat, currentOpts.lon)
	case len(args) > 0:
		return deps.state.FetchWeather(ctx, strings.Join(args, " "))
	default:
		return errors.New("provide a city, --lat and --lon, or --here")
	}
}
