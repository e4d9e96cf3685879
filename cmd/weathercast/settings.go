package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i474232898/weathercast/internal/state"
	"github.com/i474232898/weathercast/internal/weather"
)

var settingsFlags struct {
	provider           string
	unit               string
	notifications      bool
	tempThreshold      float64
	clearTempThreshold bool
	aqiThreshold       int
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printSettings(cmd, deps.state.Snapshot())
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	Example: `  weathercast settings set --provider weatherapi --unit imperial
  weathercast settings set --notifications --temp-threshold 30 --aqi-threshold 4`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var patch state.SettingsPatch
		f := cmd.Flags()
		if f.Changed("provider") {
			p := weather.ProviderID(settingsFlags.provider)
			patch.APIProvider = &p
		}
		if f.Changed("unit") {
			u := weather.Unit(settingsFlags.unit)
			patch.Unit = &u
		}
		if f.Changed("notifications") {
			patch.NotificationsEnabled = &settingsFlags.notifications
		}
		if f.Changed("temp-threshold") {
			patch.TemperatureThreshold = &settingsFlags.tempThreshold
		}
		patch.ClearTemperatureThreshold = settingsFlags.clearTempThreshold
		if f.Changed("aqi-threshold") {
			patch.AQIThreshold = &settingsFlags.aqiThreshold
		}

		err := deps.state.UpdateSettings(cmd.Context(), patch)
		snap := deps.state.Snapshot()
		printSettings(cmd, snap)
		renderRefreshed(cmd, snap)
		return err
	},
}

var toggleUnitCmd = &cobra.Command{
	Use:   "toggle-unit",
	Short: "Switch between metric and imperial units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := deps.state.ToggleUnit(cmd.Context()); err != nil {
			return err
		}
		snap := deps.state.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "Units: %s\n", snap.Settings.Unit)
		renderRefreshed(cmd, snap)
		return nil
	},
}

var darkModeCmd = &cobra.Command{
	Use:   "darkmode",
	Short: "Toggle the dark terminal color theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		on, err := deps.state.ToggleDarkMode(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dark mode: %t\n", on)
		return nil
	},
}

func init() {
	f := settingsSetCmd.Flags()
	f.StringVar(&settingsFlags.provider, "provider", "", "weather provider (openweather, weatherapi, accuweather, google)")
	f.StringVar(&settingsFlags.unit, "unit", "", "unit system (metric or imperial)")
	f.BoolVar(&settingsFlags.notifications, "notifications", false, "enable notifications")
	f.Float64Var(&settingsFlags.tempThreshold, "temp-threshold", 0, "notify above this temperature")
	f.BoolVar(&settingsFlags.clearTempThreshold, "clear-temp-threshold", false, "remove the temperature threshold")
	f.IntVar(&settingsFlags.aqiThreshold, "aqi-threshold", 0, "notify at or above this AQI level (1-5)")
	settingsSetCmd.MarkFlagsMutuallyExclusive("temp-threshold", "clear-temp-threshold")

	settingsCmd.AddCommand(settingsSetCmd, toggleUnitCmd)
	rootCmd.AddCommand(settingsCmd, darkModeCmd)
}

func printSettings(cmd *cobra.Command, snap state.Snapshot) {
	s := snap.Settings
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Provider:       %s\n", s.APIProvider)
	fmt.Fprintf(out, "Units:          %s\n", s.Unit)
	fmt.Fprintf(out, "Notifications:  %t (permission %s)\n", s.NotificationsEnabled, snap.Permission)
	if s.TemperatureThreshold != nil {
		fmt.Fprintf(out, "Temp threshold: %g%s\n", *s.TemperatureThreshold, s.Unit.TemperatureSymbol())
	} else {
		fmt.Fprintln(out, "Temp threshold: off")
	}
	fmt.Fprintf(out, "AQI threshold:  %d (%s)\n", s.AQIThreshold, weather.AQILabel(s.AQIThreshold))
	fmt.Fprintf(out, "Dark mode:      %t\n", snap.DarkMode)
}

// renderRefreshed shows the last location re-fetched by a unit or provider
// change. Nothing is printed when no refresh took place.
func renderRefreshed(cmd *cobra.Command, snap state.Snapshot) {
	if snap.Report == nil && snap.Error == "" {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout())
	renderSnapshot(cmd.OutOrStdout(), snap, renderOptions{})
}
