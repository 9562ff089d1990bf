package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/devbush/tabr/internal/adapters/cli/tui"
	"github.com/devbush/tabr/internal/domain"
)

var exportOutputFlag string

// NewFavoriteCmd creates the favorite subcommand
func NewFavoriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorite",
		Aliases: []string{"fav"},
		Short:   "Save or unsave the current photo",
		Args:    cobra.NoArgs,
		RunE:    runFavoriteToggle,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved photos",
		Args:  cobra.NoArgs,
		RunE:  runFavoriteList,
	}

	removeCmd := &cobra.Command{
		Use:   "remove [url]",
		Short: "Remove saved photos, picking interactively without a url",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFavoriteRemove,
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write saved photos as JSON",
		Args:  cobra.NoArgs,
		RunE:  runFavoriteExport,
	}
	exportCmd.Flags().StringVarP(&exportOutputFlag, "output", "o", "", "Output file path (default: stdout)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add saved photos from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE:  runFavoriteImport,
	}

	cmd.AddCommand(listCmd, removeCmd, exportCmd, importCmd)
	return cmd
}

func runFavoriteToggle(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		d, added, err := app.Orchestrator.ToggleFavorite(ctx)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), map[string]any{"url": d.Photo.URL, "favorite": added})
		}
		if added {
			fmt.Fprintf(cmd.OutOrStdout(), "★ Saved %s\n", d.Photo.URL)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", d.Photo.URL)
		}
		return nil
	})
}

func runFavoriteList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		list, err := app.Favorites.List(ctx)
		if err != nil {
			return err
		}

		if jsonFlag {
			if list == nil {
				list = []domain.FavoritePhoto{}
			}
			return printJSON(cmd.OutOrStdout(), list)
		}

		w := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(w, "No favorites saved yet")
			return nil
		}

		now := time.Now()
		for _, f := range list {
			if quietFlag {
				fmt.Fprintln(w, f.URL)
				continue
			}
			fmt.Fprintln(w, tui.FormatFavoriteLine(f.URL, f.Source.String(), f.SavedAt, now, 60))
		}
		return nil
	})
}

func runFavoriteRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		urls := args
		if len(urls) == 0 {
			list, err := app.Favorites.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorites saved yet")
				return nil
			}

			items := make([]tui.ListItem, len(list))
			now := time.Now()
			for i, f := range list {
				items[i] = tui.ListItem{
					Label: tui.FormatFavoriteLine(f.URL, f.Source.String(), f.SavedAt, now, 50),
					Value: f.URL,
				}
			}
			urls, err = tui.RunList("Select favorites to remove:", items)
			if err != nil {
				return err
			}
		}

		removed := 0
		for _, u := range urls {
			ok, err := app.Favorites.Remove(ctx, u)
			if err != nil {
				return err
			}
			if ok {
				removed++
			}
		}
		if removed > 0 {
			// The memoized carousel pick may be one of them.
			if err := app.Carousel.Clear(ctx); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d favorite(s)\n", removed)
		return nil
	})
}

func runFavoriteExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		list, err := app.Favorites.List(ctx)
		if err != nil {
			return err
		}
		if list == nil {
			list = []domain.FavoritePhoto{}
		}

		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return err
		}

		if exportOutputFlag != "" {
			if err := os.WriteFile(exportOutputFlag, data, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d favorite(s) to %s\n", len(list), exportOutputFlag)
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	})
}

func runFavoriteImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var list []domain.FavoritePhoto
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("invalid favorites file: %w", err)
	}

	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		added := 0
		for _, f := range list {
			if f.URL == "" {
				continue
			}
			if f.SavedAt.IsZero() {
				f.SavedAt = time.Now()
			}
			ok, err := app.Favorites.Add(ctx, domain.NewFavorite(f.Photo, f.Source, f.SavedAt))
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d favorite(s)\n", added, len(list))
		return nil
	})
}
