package main

import (
	"context"

	"github.com/spf13/cobra"
)

// createRootCommand создает корневую команду с настроенными подкомандами
func (app *Application) createRootCommand(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "broadcast",
		Short: "A music library with a broadcast playlist, crates and a player",
		Long: `A music library: browse and search the catalog, build the broadcast playlist,
organize tracks into crates and play them from the terminal or over HTTP.`,
		SilenceUsage: true,
	}

	// Добавляем команды, передавая в них экземпляр приложения и контекст
	rootCmd.AddCommand(app.createListCommand())
	rootCmd.AddCommand(app.createSearchCommand())
	rootCmd.AddCommand(app.createPlayCommand(ctx))
	rootCmd.AddCommand(app.createAddCommand(ctx))
	rootCmd.AddCommand(app.createDeleteCommand(ctx))
	rootCmd.AddCommand(app.createTUICommand())
	rootCmd.AddCommand(app.createServeCommand(ctx))

	return rootCmd
}
