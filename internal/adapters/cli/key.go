package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbush/tabr/internal/adapters/cli/tui"
	"github.com/devbush/tabr/internal/domain"
)

// NewKeyCmd creates the key subcommand
func NewKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage provider API keys",
		RunE:  runKeyList,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show which providers have a key",
		Args:  cobra.NoArgs,
		RunE:  runKeyList,
	}

	setCmd := &cobra.Command{
		Use:   "set <provider> <key>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(2),
		RunE:  runKeySet,
	}

	clearCmd := &cobra.Command{
		Use:   "clear <provider>",
		Short: "Remove the stored API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeyClear,
	}

	cmd.AddCommand(listCmd, setCmd, clearCmd)
	return cmd
}

func runKeyList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		active, _ := app.Preferences.Provider(ctx)

		type keyStatus struct {
			Provider string `json:"provider"`
			Key      string `json:"key"`
			Active   bool   `json:"active"`
		}
		var rows []keyStatus
		for _, p := range domain.Providers {
			key, err := app.Preferences.APIKey(ctx, p)
			if err != nil {
				return err
			}
			rows = append(rows, keyStatus{Provider: p.String(), Key: maskKey(key), Active: p == active})
		}

		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), rows)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %-10s %-16s %s\n", "Provider", "Key", "Status")
		fmt.Fprintln(w, "  "+strings.Repeat("-", 40))
		for _, r := range rows {
			status := ""
			if r.Active {
				status = "(active)"
			}
			key := r.Key
			if key == "" {
				key = "not set"
			}
			fmt.Fprintf(w, "  %-10s %-16s %s\n", tui.ProviderLabel(r.Provider), key, status)
		}
		fmt.Fprintln(w)
		return nil
	})
}

func runKeySet(cmd *cobra.Command, args []string) error {
	id, err := domain.ParseProviderID(args[0])
	if err != nil {
		return err
	}
	key := strings.TrimSpace(args[1])
	if key == "" {
		return fmt.Errorf("key must not be empty, use 'tabr key clear %s' to remove it", id)
	}

	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		if err := app.Preferences.SetAPIKey(ctx, id, key); err != nil {
			return err
		}
		// A photo cached while the key was missing would keep showing the fallback.
		if err := app.PhotoCache.InvalidateAPIPhoto(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s key saved\n", tui.ProviderLabel(id.String()))
		return nil
	})
}

func runKeyClear(cmd *cobra.Command, args []string) error {
	id, err := domain.ParseProviderID(args[0])
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		if err := app.Preferences.SetAPIKey(ctx, id, ""); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s key removed\n", tui.ProviderLabel(id.String()))
		return nil
	})
}

// maskKey keeps the last four characters of a key visible
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
