package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devbush/tabr/internal/adapters/cli/tui"
	"github.com/devbush/tabr/internal/domain"
)

// NewProviderCmd creates the provider subcommand
func NewProviderCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "provider [unsplash|pixabay]",
		Short:     "Show or switch the photo provider",
		Long:      "Without an argument, print the active provider. With one, switch to it and show a fresh photo.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(domain.ProviderUnsplash), string(domain.ProviderPixabay)},
		RunE:      runProvider,
	}
}

func runProvider(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
			id, err := app.Preferences.Provider(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(cmd.OutOrStdout(), map[string]string{"provider": id.String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	}

	id, err := domain.ParseProviderID(args[0])
	if err != nil {
		return err
	}
	return switchProvider(cmd, id)
}

func switchProvider(cmd *cobra.Command, id domain.ProviderID) error {
	return withApp(cmd.Context(), appOptions(), func(ctx context.Context, app *App) error {
		d, err := app.Orchestrator.SwitchProvider(ctx, id)
		if err != nil {
			return err
		}
		if !jsonFlag && !quietFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n\n", tui.ProviderLabel(id.String()))
		}
		return printDisplay(cmd.OutOrStdout(), d)
	})
}

func runProviderInteractive(cmd *cobra.Command) error {
	options := make([]tui.MenuOption, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		options = append(options, tui.MenuOption{Label: tui.ProviderLabel(p.String()), Value: p.String()})
	}

	selected, err := tui.RunMenu("Which provider?", options)
	if err != nil {
		return err
	}
	if selected == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
		return nil
	}

	id, err := domain.ParseProviderID(selected)
	if err != nil {
		return err
	}
	return switchProvider(cmd, id)
}

// nextProvider returns the provider after current in display order
func nextProvider(current domain.ProviderID) domain.ProviderID {
	for i, p := range domain.Providers {
		if p == current {
			return domain.Providers[(i+1)%len(domain.Providers)]
		}
	}
	return domain.DefaultProvider
}
