package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devbush/tabr/internal/adapters/cli/tui"
)

var clearAllFlag bool

// NewCacheCmd creates the cache subcommand
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage warmed images and cached photos",
		Args:  cobra.NoArgs,
		RunE:  runCacheStatus,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove expired images, or everything with --all",
		Args:  cobra.NoArgs,
		RunE:  runCacheClear,
	}
	clearCmd.Flags().BoolVar(&clearAllFlag, "all", false, "Also drop the API, preload and carousel caches")

	cmd.AddCommand(clearCmd)

	return cmd
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		stats, err := app.CacheSvc.Stats(ctx)
		if err != nil {
			return err
		}

		queued := 0
		for id := range app.Providers {
			list, err := app.PhotoCache.Preloaded(ctx, id)
			if err != nil {
				return err
			}
			queued += len(list)
		}

		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"images":    stats.ItemCount,
				"sizeBytes": stats.TotalSize,
				"preloaded": queued,
				"ttl":       app.Config.Defaults.ImageCacheTTL,
			})
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Cache Statistics:")
		fmt.Fprintf(w, "  Images:    %d\n", stats.ItemCount)
		fmt.Fprintf(w, "  Size:      %s\n", tui.FormatSize(stats.TotalSize))
		fmt.Fprintf(w, "  TTL:       %s\n", app.Config.Defaults.ImageCacheTTL)
		fmt.Fprintf(w, "  Preloaded: %d\n", queued)
		fmt.Fprintln(w)

		return nil
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), AppOptions{LogLevel: logLevelFlag, Ephemeral: ephemeralFlag, NoPreload: true}, func(ctx context.Context, app *App) error {
		if clearAllFlag {
			if err := app.CacheSvc.Clear(ctx, true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All cache entries cleared")
			return nil
		}

		cleaned, err := app.CacheSvc.CleanExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired images\n", cleaned)
		return nil
	})
}
