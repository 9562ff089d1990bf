package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/devbush/tabr/internal/adapters/cli/tui"
	"github.com/devbush/tabr/internal/application"
)

// NewWatchCmd creates the watch subcommand
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep a live view of the current photo",
		Long: `Open a full-screen view of the photo a new tab would show. Carousel
rotation and background preloading keep running while it is open.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	var program atomic.Pointer[tea.Program]

	opts := appOptions()
	// Log lines would tear the alt screen.
	if opts.LogLevel == "" {
		opts.LogLevel = "off"
	}
	opts.OnChange = func(d application.Display) {
		if p := program.Load(); p != nil {
			p.Send(tui.PhotoChanged(toView(d, time.Now())))
		}
	}

	ctx := cmd.Context()
	app, err := NewApp(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("failed to close store", slog.Any("error", err))
		}
	}()

	p := tui.NewWatchProgram(watchActions(app))
	program.Store(p)
	_, err = p.Run()
	program.Store(nil)
	return err
}

func watchActions(app *App) tui.WatchActions {
	orch := app.Orchestrator
	return tui.WatchActions{
		Load: func(ctx context.Context) (string, error) {
			_, err := orch.Load(ctx, false)
			return "", err
		},
		Refresh: func(ctx context.Context) (string, error) {
			_, err := orch.Refresh(ctx)
			return "", err
		},
		ToggleFavorite: func(ctx context.Context) (string, error) {
			_, added, err := orch.ToggleFavorite(ctx)
			if err != nil {
				return "", err
			}
			if added {
				return "★ Saved to favorites", nil
			}
			return "Removed from favorites", nil
		},
		ToggleCarousel: func(ctx context.Context) (string, error) {
			on, err := orch.CarouselMode(ctx)
			if err != nil {
				return "", err
			}
			if _, err := orch.SetCarouselMode(ctx, !on); err != nil {
				return "", err
			}
			return "Carousel " + onOff(!on), nil
		},
		NextProvider: func(ctx context.Context) (string, error) {
			current, err := app.Preferences.Provider(ctx)
			if err != nil {
				return "", err
			}
			next := nextProvider(current)
			if _, err := orch.SwitchProvider(ctx, next); err != nil {
				return "", err
			}
			return "Switched to " + tui.ProviderLabel(next.String()), nil
		},
	}
}

func toView(d application.Display, shownAt time.Time) tui.PhotoView {
	return tui.PhotoView{
		URL:              d.Photo.URL,
		Photographer:     d.Photo.PhotographerName,
		PhotographerLink: d.Photo.PhotographerLink,
		OriginalLink:     d.Photo.OriginalLink,
		Provider:         d.Provider.String(),
		Origin:           string(d.Origin),
		ErrorKind:        string(d.Photo.ErrorKind),
		Favorite:         d.Favorite,
		Carousel:         d.Carousel,
		ShownAt:          shownAt,
	}
}
