package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devbush/tabr/internal/adapters/cli/tui"
	"github.com/devbush/tabr/internal/config"
	"github.com/devbush/tabr/internal/domain"
)

// statusReport is the JSON shape of the status command
type statusReport struct {
	ConfigPath string          `json:"configPath"`
	StorePath  string          `json:"storePath"`
	ImageDir   string          `json:"imageDir"`
	Provider   string          `json:"provider"`
	Keys       map[string]bool `json:"keys"`
	Carousel   bool            `json:"carousel"`
	Favorites  int             `json:"favorites"`
	Preloaded  map[string]int  `json:"preloaded"`
	Capacity   int             `json:"preloadCapacity"`
	Images     int             `json:"images"`
	ImageBytes int64           `json:"imageBytes"`
	Current    string          `json:"current,omitempty"`
	ShownAt    time.Time       `json:"shownAt,omitzero"`
}

// NewStatusCmd creates the status subcommand
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show provider, keys, favorites and cache state",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		provider, err := app.Preferences.Provider(ctx)
		if err != nil {
			return err
		}

		report := statusReport{
			ConfigPath: config.ConfigPath(),
			StorePath:  config.StorePath(),
			ImageDir:   config.ImageCacheDir(),
			Provider:   provider.String(),
			Keys:       make(map[string]bool, len(domain.Providers)),
			Preloaded:  make(map[string]int, len(domain.Providers)),
			Capacity:   app.Preloader.Capacity(),
		}
		if ephemeralFlag {
			report.StorePath = "(memory)"
		}

		for _, p := range domain.Providers {
			key, err := app.Preferences.APIKey(ctx, p)
			if err != nil {
				return err
			}
			report.Keys[p.String()] = key != ""

			queue, err := app.PhotoCache.Preloaded(ctx, p)
			if err != nil {
				return err
			}
			report.Preloaded[p.String()] = len(queue)
		}

		if report.Carousel, err = app.Carousel.Mode(ctx); err != nil {
			return err
		}
		if report.Favorites, err = app.Favorites.Count(ctx); err != nil {
			return err
		}

		stats, err := app.CacheSvc.Stats(ctx)
		if err != nil {
			return err
		}
		report.Images = stats.ItemCount
		report.ImageBytes = stats.TotalSize

		shown, err := app.PhotoCache.Current(ctx)
		if err != nil {
			return err
		}
		if shown != nil {
			report.Current = shown.Photo.URL
			report.ShownAt = shown.ShownAt
		}

		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), report)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Status:")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Provider:  %s\n", tui.ProviderLabel(report.Provider))
		for _, p := range domain.Providers {
			state := "not set"
			if report.Keys[p.String()] {
				state = "set"
			}
			fmt.Fprintf(w, "  %-9s  key %s, %d/%d preloaded\n", tui.ProviderLabel(p.String())+":", state, report.Preloaded[p.String()], report.Capacity)
		}
		fmt.Fprintf(w, "  Carousel:  %s\n", onOff(report.Carousel))
		fmt.Fprintf(w, "  Favorites: %d\n", report.Favorites)
		fmt.Fprintf(w, "  Images:    %d (%s)\n", report.Images, tui.FormatSize(report.ImageBytes))
		if report.Current != "" {
			fmt.Fprintf(w, "  Current:   %s (%s)\n", report.Current, tui.FormatAge(report.ShownAt, time.Now()))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Config: %s\n", report.ConfigPath)
		fmt.Fprintf(w, "  Store:  %s\n", report.StorePath)
		fmt.Fprintf(w, "  Images: %s\n", report.ImageDir)
		fmt.Fprintln(w)

		return nil
	})
}
