package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/i474232898/weathercast/internal/scheduler"
)

var watchOpts struct {
	here     bool
	interval time.Duration
	hourly   bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [city]",
	Short: "Refresh weather periodically and notify on thresholds and alerts",
	RunE:  runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.BoolVar(&watchOpts.here, "here", false, "use your approximate location")
	f.DurationVar(&watchOpts.interval, "interval", 0, "refresh interval (default from config, at least 5m)")
	f.BoolVar(&watchOpts.hourly, "hourly", false, "include the next 24 hours")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := fetchLocation(cmd, args, watchOpts.here); err != nil {
		return err
	}

	interval := deps.cfg.WatchInterval
	if watchOpts.interval > 0 {
		interval = watchOpts.interval
	}
	out := cmd.OutOrStdout()
	sched := scheduler.New(deps.state, interval, func(error) {
		fmt.Fprintf(out, "\n--- %s ---\n", time.Now().Format("15:04:05"))
		renderSnapshot(out, deps.state.Snapshot(), renderOptions{hourly: watchOpts.hourly})
		log.Debug().Interface("cache", deps.cache.Stats()).Msg("cache stats")
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	fmt.Fprintf(out, "Refreshing every %s. Press Ctrl+C to stop.\n", sched.Interval())
	<-ctx.Done()
	return nil
}
