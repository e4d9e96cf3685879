package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i474232898/weathercast/internal/config"
)

var (
	cfgFile string
	deps    *app
)

var rootCmd = &cobra.Command{
	Use:   "weathercast",
	Short: "Current weather, forecasts, air quality and alerts in your terminal",
	Long: `weathercast fetches current conditions, a 5-day forecast, air quality and
severe weather alerts from OpenWeather or WeatherAPI. Responses are cached for
five minutes; settings and favorites persist between runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		config.InitializeLogging(cfg)

		deps, err = newApp(cmd.Context(), cfg, appOptions{notifyOut: cmd.ErrOrStderr()})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ~/.config/weathercast/config.yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// execute runs the command line and releases the shared dependencies even
// when the command fails, since cobra skips post-run hooks on error.
func execute(ctx context.Context) error {
	defer closeDeps()
	return rootCmd.ExecuteContext(ctx)
}

func closeDeps() {
	if deps != nil {
		deps.Close()
		deps = nil
	}
}
