package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/utils"
)

// uploadTimeout ограничивает время загрузки файлов
const uploadTimeout = 10 * time.Minute

// createAddCommand создает команду add с привязкой к экземпляру приложения
func (app *Application) createAddCommand(ctx context.Context) *cobra.Command {
	var title, artist string

	cmd := &cobra.Command{
		Use:   "add [file path]...",
		Short: "Add audio files to the catalog",
		Long: `Add audio files to the catalog. Title and artist are taken from the flags,
or suggested from the first file's tags and name. With S3 configured the files are uploaded to the bucket.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
			defer cancel()
			return app.addTracks(uploadCtx, args, library.Form{Title: title, Artist: artist})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "track title")
	cmd.Flags().StringVarP(&artist, "artist", "a", "", "track artist")

	return cmd
}

func (app *Application) addTracks(ctx context.Context, paths []string, form library.Form) error {
	dialog := app.NewDialog(printUploadProgress)
	defer dialog.Close()

	files, err := dialog.Select(paths)
	if err != nil {
		if errors.Is(err, library.ErrNoValidFiles) {
			return fmt.Errorf("среди выбранных файлов нет аудио: %w", err)
		}
		return fmt.Errorf("ошибка выбора файлов: %w", err)
	}

	// Флаги имеют приоритет над предложенными значениями
	suggested := dialog.Form()
	if strings.TrimSpace(form.Title) == "" {
		form.Title = suggested.Title
	}
	if strings.TrimSpace(form.Artist) == "" {
		form.Artist = suggested.Artist
	}
	dialog.SetForm(form)

	fmt.Printf("📤 Добавляем файлов: %d\n", len(files))
	for _, file := range files {
		fmt.Printf("   %s (%s)\n", file.Name, file.MIMEType)
	}
	if app.Storage != nil {
		fmt.Printf("   Бакет: %s\n", app.Config.AwsBucketName)
	}
	fmt.Println()

	tracks, err := dialog.Submit(ctx)
	if err != nil {
		return fmt.Errorf("ошибка загрузки: %w", err)
	}

	if err := app.SaveCatalog(); err != nil {
		return fmt.Errorf("ошибка сохранения каталога: %w", err)
	}

	fmt.Printf("\n✅ Добавлено треков: %d\n", len(tracks))
	for _, track := range tracks {
		fmt.Printf("   %s  %s - %s [%s]\n", track.ID, track.Artist, track.Title, track.Duration)
	}
	return nil
}

// printUploadProgress отображает прогресс загрузки файла в хранилище
func printUploadProgress(name string, read, total int64) {
	if total <= 0 {
		fmt.Printf("\r\033[K📊 %s: %s", name, utils.FormatFileSize(read))
		return
	}
	percentage := float64(read) / float64(total) * 100
	fmt.Printf("\r\033[K📊 %s: %.1f%% (%s / %s)",
		name, percentage, utils.FormatFileSize(read), utils.FormatFileSize(total))
}
