package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-broadcast/internal/session"
)

// createDeleteCommand создает команду delete с привязкой к экземпляру приложения
func (app *Application) createDeleteCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a track by ID",
		Long:  `Delete a track from the catalog, its crates and the playlist, and its file from S3 storage.`,
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			app.deleteTrack(ctx, args[0])
		},
	}
}

func (app *Application) deleteTrack(ctx context.Context, id string) {
	track, ok := app.Library.Track(id)
	if !ok {
		fmt.Printf("❌ Ошибка: трек с ID '%s' не найден\n", id)
		return
	}

	fmt.Printf("🗑️  Удаляем трек: %s - %s\n", track.Artist, track.Title)

	if _, err := app.Session.DeleteTrack(ctx, id); err != nil {
		if errors.Is(err, session.ErrTrackNotFound) {
			fmt.Printf("❌ Ошибка: трек с ID '%s' не найден\n", id)
			return
		}
		// Трек уже удален из библиотеки, продолжаем сохранение
		fmt.Printf("⚠️  Предупреждение: не удалось удалить файл из S3: %v\n", err)
	} else if app.Storage != nil {
		fmt.Println("✅ Файл удален из хранилища")
	}

	if err := app.SaveCatalog(); err != nil {
		fmt.Printf("❌ Ошибка сохранения каталога: %v\n", err)
		return
	}

	fmt.Println("✅ Трек успешно удален из библиотеки")
}
