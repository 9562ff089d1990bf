package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCarouselCmd creates the carousel subcommand
func NewCarouselCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "carousel [on|off|status]",
		Short: "Rotate through saved favorites instead of fresh photos",
		Long: `With on, new tabs show a random favorite that changes every couple of
minutes. Without an argument, the mode is toggled.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off", "status"},
		RunE:      runCarousel,
	}
}

func runCarousel(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runCarouselToggle(cmd)
	}

	switch args[0] {
	case "on":
		return setCarousel(cmd, true)
	case "off":
		return setCarousel(cmd, false)
	case "status":
		return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
			on, err := app.Carousel.Mode(ctx)
			if err != nil {
				return err
			}
			count, err := app.Favorites.Count(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(cmd.OutOrStdout(), map[string]any{"carousel": on, "favorites": count})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Carousel: %s (%d favorites)\n", onOff(on), count)
			return nil
		})
	default:
		return fmt.Errorf("unknown carousel argument %q (want on, off or status)", args[0])
	}
}

func runCarouselToggle(cmd *cobra.Command) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		on, err := app.Orchestrator.CarouselMode(ctx)
		if err != nil {
			return err
		}
		return applyCarousel(ctx, cmd, app, !on)
	})
}

func setCarousel(cmd *cobra.Command, on bool) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		return applyCarousel(ctx, cmd, app, on)
	})
}

func applyCarousel(ctx context.Context, cmd *cobra.Command, app *App, on bool) error {
	d, err := app.Orchestrator.SetCarouselMode(ctx, on)
	if err != nil {
		return err
	}
	if !jsonFlag && !quietFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "Carousel %s\n\n", onOff(on))
	}
	return printDisplay(cmd.OutOrStdout(), d)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
