// Command facility-search runs the facility search pipeline from a
// terminal. Each line read from stdin is treated as the current content of
// a search box: input is debounced and only the latest search is printed.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ambulance_app/internal/adapters/observability"
	"ambulance_app/internal/adapters/overpass"
	"ambulance_app/internal/app"
	"ambulance_app/internal/domain"
	"ambulance_app/internal/shared"
)

var rootCmd = &cobra.Command{
	Use:   "facility-search",
	Short: "Find nearby hospitals and clinics",
	Long: `facility-search queries OpenStreetMap (Overpass) for medical facilities
around a position and ranks them against a search term.

With --term it runs a single search. Otherwise every line on stdin replaces
the search term; searches are debounced and stale results are dropped.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().Float64("lat", -1.2864, "origin latitude (decimal degrees)")
	rootCmd.Flags().Float64("lon", 36.8172, "origin longitude (decimal degrees)")
	rootCmd.Flags().String("term", "", "run one search for this term and exit")
	rootCmd.Flags().String("lang", "", "preferred name language (default from SEARCH_LANG)")
	rootCmd.Flags().Duration("debounce", app.DefaultDebounce, "idle time before a typed term is searched")
	rootCmd.Flags().Float64("speed", 0, "average travel speed in km/h for ETA (default from AVERAGE_SPEED_KMH)")
	rootCmd.Flags().Bool("json", false, "output results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()
	cfg, err := shared.Load()
	if err != nil {
		return err
	}
	log.Logger = observability.NewLoggerTo(os.Stderr, cfg.AppEnv)

	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	term, _ := cmd.Flags().GetString("term")
	lang, _ := cmd.Flags().GetString("lang")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	speed := speedFlag(cmd, cfg.AverageSpeedKmh)
	asJSON, _ := cmd.Flags().GetBool("json")

	origin := domain.Coordinate{Lat: lat, Lon: lon}
	if err := origin.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	provider, err := overpass.New(cfg.OverpassURL, cfg.OverpassRPS, cfg.OverpassMaxRetries)
	if err != nil {
		return err
	}
	sc := cfg.SearchConfig()
	if lang != "" {
		sc.Lang = lang
	}
	search := app.NewSearchService(provider, nil, sc)

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	show := func(res app.SearchResult) {
		mu.Lock()
		defer mu.Unlock()
		if asJSON {
			if err := FormatJSON(res, speed, out); err != nil {
				log.Error().Err(err).Msg("write json")
			}
			return
		}
		FormatTable(res, speed, out)
	}

	if term != "" {
		res := search.Settle(cmd.Context(), origin, term)
		show(res)
		return res.Err
	}

	live := app.NewLiveSearch(search, debounce, show)
	defer live.Close()
	return feed(cmd.Context(), cmd.InOrStdin(), origin, live)
}

// speedFlag returns --speed when it was given, else fallback.
func speedFlag(cmd *cobra.Command, fallback float64) float64 {
	if !cmd.Flags().Changed("speed") {
		return fallback
	}
	v, _ := cmd.Flags().GetFloat64("speed")
	return v
}

// feed submits one search per input line until EOF, then waits for the
// last one.
func feed(ctx context.Context, in io.Reader, origin domain.Coordinate, live *app.LiveSearch) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				live.Flush()
				select {
				case err := <-errc:
					return err
				default:
					return ctx.Err()
				}
			}
			if t := strings.TrimSpace(line); t != "" {
				live.Submit(origin, t)
			}
		}
	}
}
