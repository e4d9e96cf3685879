package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/weathercast/internal/state"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List saved locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		favorites := deps.state.Favorites()
		if len(favorites) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet. Add one with: weathercast favorites add <city>")
			return nil
		}
		for _, f := range favorites {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s, %s\n", f.ID, f.Name, f.Country)
		}
		return nil
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <city>",
	Short: "Look up a city and save it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := deps.state.FetchWeather(cmd.Context(), strings.Join(args, " ")); err != nil {
			return err
		}
		snap := deps.state.Snapshot()
		if snap.Report == nil || snap.Report.Current == nil {
			return errors.New("no location to save")
		}
		f := state.FavoriteFromCurrent(*snap.Report.Current)
		if err := deps.state.AddFavorite(cmd.Context(), f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s, %s (%s)\n", f.Name, f.Country, f.ID)
		return nil
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a saved location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deps.state.RemoveFavorite(cmd.Context(), args[0])
	},
}

var favoritesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current weather for every saved location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, f := range deps.state.Favorites() {
			if err := deps.state.FetchWeather(cmd.Context(), f.Name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f.Name, err)
				continue
			}
			renderSnapshot(cmd.OutOrStdout(), deps.state.Snapshot(), renderOptions{})
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	favoritesCmd.AddCommand(favoritesAddCmd, favoritesRemoveCmd, favoritesShowCmd)
	rootCmd.AddCommand(favoritesCmd)
}
