package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/config"
	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/logger"
	"github.com/hazadus/go-broadcast/internal/notify"
	"github.com/hazadus/go-broadcast/internal/player"
	"github.com/hazadus/go-broadcast/internal/s3"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/uploader"
)

// Application связывает конфигурацию, библиотеку, плеер и хранилище
type Application struct {
	Config   *config.Config
	Logger   *zap.Logger
	Library  *library.Manager
	Session  *session.Session
	Storage  *s3.Uploader // nil, если хранилище не настроено
	Previews *uploader.Previews
	Actions  *notify.Actions
}

// NewApplication создает приложение. engine == nil означает воспроизведение
// через системные динамики.
func NewApplication(cfg *config.Config, appLogger *zap.Logger, engine player.Engine) (*Application, error) {
	if appLogger == nil {
		appLogger = zap.NewNop()
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:   cfg,
		Logger:   appLogger,
		Library:  library.NewManager(catalog, appLogger.Named("library")),
		Previews: uploader.NewPreviews(),
		Actions:  notify.NewActions(notify.DefaultActionsCapacity),
	}

	if s3Config := cfg.S3(); s3Config.Enabled() {
		if app.Storage, err = s3.NewUploader(s3Config); err != nil {
			return nil, fmt.Errorf("ошибка создания S3 uploader: %w", err)
		}
	}

	if engine == nil {
		engine = player.NewBeepEngine(appLogger.Named("engine"), app.Previews)
	}
	transport := player.NewTransport(engine, appLogger.Named("transport"), cfg.PlayerTick)
	transport.SetVolume(cfg.Volume)

	var storage session.Storage
	if app.Storage != nil {
		storage = app.Storage
	}
	app.Session = session.New(app.Library, transport, storage, appLogger.Named("session"))

	return app, nil
}

// loadCatalog читает каталог из файла; без файла используется демонстрационный
func loadCatalog(path string) ([]data.Track, error) {
	if path == "" {
		return data.SampleTracks(), nil
	}
	tracks, err := data.LoadCatalog(path)
	if errors.Is(err, fs.ErrNotExist) {
		return data.SampleTracks(), nil
	}
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// uploadStorage возвращает хранилище для диалога загрузки или nil
func (app *Application) uploadStorage() uploader.Storage {
	if app.Storage == nil {
		return nil
	}
	return app.Storage
}

// NewDialog создает диалог загрузки с настройками приложения
func (app *Application) NewDialog(onProgress func(name string, read, total int64)) *uploader.Dialog {
	return uploader.NewDialog(app.Library, app.Previews, uploader.Options{
		Delay:      app.Config.UploadDelay,
		Storage:    app.uploadStorage(),
		Logger:     app.Logger.Named("uploader"),
		OnProgress: onProgress,
	})
}

// SaveCatalog сохраняет каталог библиотеки в файл каталога
func (app *Application) SaveCatalog() error {
	if app.Config.CatalogPath == "" {
		return errors.New("не задан путь к файлу каталога (catalog_path)")
	}
	return data.SaveCatalog(app.Config.CatalogPath, app.Library.Catalog())
}

// Close освобождает плеер и сбрасывает буфер логов
func (app *Application) Close() {
	if err := app.Session.Transport().Close(); err != nil {
		app.Logger.Warn("Ошибка закрытия плеера", zap.Error(err))
	}
	_ = app.Logger.Sync()
}

func main() {
	// .env необязателен
	_ = config.LoadEnv()

	cfg, err := config.LoadConfigOrDefault(config.DefaultPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger())
	if err != nil {
		log.Fatalf("Ошибка создания логгера: %v", err)
	}

	app, err := NewApplication(cfg, appLogger, nil)
	if err != nil {
		log.Fatalf("Ошибка инициализации приложения: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.createRootCommand(ctx).Execute(); err != nil {
		app.Close()
		os.Exit(1)
	}
}
