package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-broadcast/internal/tui"
	"github.com/hazadus/go-broadcast/internal/uploader"
)

// createTUICommand создает команду tui с привязкой к экземпляру приложения
func (app *Application) createTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch TUI (Terminal User Interface)",
		Long:  `Launch interactive terminal user interface for browsing, broadcasting and playing tracks.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.launchTUI()
		},
	}
}

func (app *Application) launchTUI() error {
	newDialog := func() *uploader.Dialog {
		return app.NewDialog(nil)
	}
	tuiApp := tui.NewApp(app.Session, app.Actions, newDialog, app.Logger.Named("tui"))

	if err := tuiApp.Run(); err != nil {
		return fmt.Errorf("ошибка работы TUI: %w", err)
	}
	return nil
}
