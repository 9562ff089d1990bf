package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbush/tabr/internal/adapters/cli/tui"
	"github.com/devbush/tabr/internal/application"
	"github.com/devbush/tabr/internal/domain"
)

var (
	// Global flags
	jsonFlag      bool
	quietFlag     bool
	logLevelFlag  string
	noPreloadFlag bool
	ephemeralFlag bool

	forceFlag bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tabr",
		Short: "Fresh background photos for your new tab",
		Long: `tabr fetches background photos from Unsplash or Pixabay, keeps a small
queue of preloaded photos warm, and can rotate through your favorites.

Run without arguments for an interactive menu.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Print only the photo URL")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error, off")
	rootCmd.PersistentFlags().BoolVar(&noPreloadFlag, "no-preload", false, "Do not preload upcoming photos")
	rootCmd.PersistentFlags().BoolVar(&ephemeralFlag, "ephemeral", false, "Keep state in memory for this run only")

	// Add subcommands
	rootCmd.AddCommand(NewShowCmd())
	rootCmd.AddCommand(NewRefreshCmd())
	rootCmd.AddCommand(NewProviderCmd())
	rootCmd.AddCommand(NewKeyCmd())
	rootCmd.AddCommand(NewFavoriteCmd())
	rootCmd.AddCommand(NewCarouselCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewWatchCmd())

	return rootCmd
}

func appOptions() AppOptions {
	return AppOptions{
		LogLevel:  logLevelFlag,
		Ephemeral: ephemeralFlag,
		NoPreload: noPreloadFlag,
	}
}

// NewShowCmd creates the show subcommand
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the photo for a new tab",
		Long: `Show the photo a new tab would display. Recent photos are reused for a
couple of minutes; after that the next preloaded photo is shown.`,
		Args: cobra.NoArgs,
		RunE: runShow,
	}
	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Skip caches and fetch a new photo")
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		d, err := app.Orchestrator.Load(ctx, forceFlag)
		if err != nil {
			return err
		}
		return printDisplay(cmd.OutOrStdout(), d)
	})
}

// NewRefreshCmd creates the refresh subcommand
func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Replace the current photo with a different one",
		Args:  cobra.NoArgs,
		RunE:  runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		d, err := app.Orchestrator.Refresh(ctx)
		if err != nil {
			return err
		}
		return printDisplay(cmd.OutOrStdout(), d)
	})
}

func runRoot(cmd *cobra.Command, args []string) error {
	// No arguments - show interactive menu
	return runInteractiveMenu(cmd)
}

func runInteractiveMenu(cmd *cobra.Command) error {
	var options []tui.MenuOption
	err := withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		provider, _ := app.Preferences.Provider(ctx)
		carouselOn, _ := app.Carousel.Mode(ctx)
		favCount, _ := app.Favorites.Count(ctx)

		carouselHint := "off"
		if carouselOn {
			carouselHint = "on"
		}

		options = []tui.MenuOption{
			{Label: "Watch", Value: "watch", Hint: "live view"},
			{Label: "Show photo", Value: "show"},
			{Label: "New photo", Value: "refresh"},
			{Label: "Toggle favorite", Value: "favorite"},
			{Label: "Switch provider", Value: "provider", Hint: tui.ProviderLabel(provider.String())},
			{Label: "Carousel mode", Value: "carousel", Hint: fmt.Sprintf("%s, %d favorites", carouselHint, favCount)},
			{Label: "Manage cache", Value: "cache"},
		}
		return nil
	})
	if err != nil {
		return err
	}

	selected, err := tui.RunMenu("What would you like to do?", options)
	if err != nil {
		return err
	}

	switch selected {
	case "watch":
		return runWatch(cmd, nil)
	case "show":
		return runShow(cmd, nil)
	case "refresh":
		return runRefresh(cmd, nil)
	case "favorite":
		return runFavoriteToggle(cmd, nil)
	case "provider":
		return runProviderInteractive(cmd)
	case "carousel":
		return runCarouselToggle(cmd)
	case "cache":
		return runCacheStatus(cmd, nil)
	case "":
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
	}

	return nil
}

func printDisplay(w io.Writer, d application.Display) error {
	if jsonFlag {
		return printJSON(w, d)
	}

	if quietFlag {
		_, err := fmt.Fprintln(w, d.Photo.URL)
		return err
	}

	var b strings.Builder
	fmt.Fprintln(&b, d.Photo.URL)
	fmt.Fprintln(&b, tui.FormatAttribution(d.Photo.PhotographerName, d.Provider.String()))
	if d.Photo.PhotographerLink != "" {
		fmt.Fprintf(&b, "  Photographer: %s\n", d.Photo.PhotographerLink)
	}
	if d.Photo.OriginalLink != "" {
		fmt.Fprintf(&b, "  Original:     %s\n", d.Photo.OriginalLink)
	}
	if hint := tui.FormatFallbackHint(string(d.Photo.ErrorKind), d.Provider.String()); hint != "" {
		fmt.Fprintf(&b, "! %s\n", hint)
	}
	if d.CarouselDisabled {
		fmt.Fprintln(&b, "! Carousel mode was turned off because no favorites are saved")
	}

	var tags []string
	if d.Carousel {
		tags = append(tags, "carousel")
	}
	if d.Favorite {
		tags = append(tags, "★ favorite")
	}
	if d.Origin != "" {
		tags = append(tags, "via "+string(d.Origin))
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "  [%s]\n", strings.Join(tags, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Execute runs the CLI
func Execute() {
	ctx := context.Background()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, domain.ErrNoFavorites) {
			fmt.Fprintln(os.Stderr, "No favorites saved yet. Save one with: tabr favorite")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
