package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-broadcast/internal/notify"
	"github.com/hazadus/go-broadcast/internal/server"
)

// createServeCommand создает команду serve, запускающую HTTP API
func (app *Application) createServeCommand(ctx context.Context) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and event stream",
		Long:  `Serve the library over a JSON HTTP API with a WebSocket stream of notifications and player status.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", app.Config.ListenAddr, "address to listen on")

	return cmd
}

func (app *Application) newServer() (*server.Server, error) {
	uploadDir := filepath.Join(os.TempDir(), "broadcast-uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории загрузок: %w", err)
	}

	return server.New(server.Options{
		Session:     app.Session,
		Actions:     app.Actions,
		Previews:    app.Previews,
		Storage:     app.uploadStorage(),
		UploadDir:   uploadDir,
		UploadDelay: app.Config.UploadDelay,
		Logger:      app.Logger.Named("server"),
		Sinks:       []notify.Sink{notify.LogSink{Logger: app.Logger.Named("notify")}},
	}), nil
}

func (app *Application) serve(ctx context.Context, addr string) error {
	srv, err := app.newServer()
	if err != nil {
		return err
	}

	fmt.Printf("🌐 Сервер слушает %s\n", addr)
	if app.Storage != nil {
		fmt.Println("☁️  Загрузки сохраняются в бакет:", app.Config.AwsBucketName)
	}
	return srv.ListenAndServe(ctx, addr)
}
