package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/i474232898/weathercast/internal/search"
	"github.com/i474232898/weathercast/internal/weather"
)

var searchInteractive bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find locations by name",
	Long: `Find up to five locations matching a name. With -i, type queries line by
line; lookups are debounced and entering a result number shows its weather.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchInteractive, "interactive", "i", false, "interactive search prompt")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	credential := deps.creds[weather.ProviderOpenWeather]
	if searchInteractive {
		return interactiveSearch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), credential)
	}

	places, err := deps.search.Search(cmd.Context(), strings.Join(args, " "), credential)
	if err != nil {
		return err
	}
	renderPlaces(cmd.OutOrStdout(), places)
	return nil
}

func interactiveSearch(ctx context.Context, in io.Reader, out io.Writer, credential string) error {
	var (
		mu   sync.Mutex
		last []weather.Place
	)
	debouncer := search.NewDebouncer(search.DefaultDelay, func(query string) {
		places, err := deps.search.Search(ctx, query, credential)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		last = places
		renderPlaces(out, places)
	})
	defer debouncer.Stop()

	fmt.Fprintln(out, "Type a location (empty line to quit).")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			debouncer.Flush()
			return nil
		}

		if n, err := strconv.Atoi(line); err == nil {
			// A pick refers to the results of the query typed before it.
			debouncer.Flush()
			mu.Lock()
			picked := n >= 1 && n <= len(last)
			var place weather.Place
			if picked {
				place = last[n-1]
			}
			mu.Unlock()
			if picked {
				if err := deps.state.FetchWeather(ctx, place.Name); err != nil {
					fmt.Fprintln(out, err)
					continue
				}
				renderSnapshot(out, deps.state.Snapshot(), renderOptions{})
				continue
			}
		}
		debouncer.Trigger(line)
	}
	debouncer.Flush()
	return scanner.Err()
}
