package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/utils"
)

// createListCommand создает команду list с привязкой к экземпляру приложения
func (app *Application) createListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tracks from the catalog",
		Long:  `Display a list of all tracks in the catalog.`,
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			app.listTracks(app.Library.Catalog(), "📚 Библиотека пуста. Добавьте треки с помощью команды 'add'.")
		},
	}
}

// createSearchCommand создает команду search
func (app *Application) createSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search tracks by title, artist or album",
		Long:  `Display tracks whose title, artist or album contain the query, case-insensitively.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			query := strings.Join(args, " ")
			app.listTracks(app.Library.Search(query), fmt.Sprintf("🔍 По запросу «%s» ничего не найдено.", query))
		},
	}
}

func (app *Application) listTracks(tracks []data.Track, emptyMessage string) {
	if len(tracks) == 0 {
		fmt.Println(emptyMessage)
		return
	}

	fmt.Printf("📚 Найдено треков: %d\n\n", len(tracks))

	// Выводим заголовок таблицы
	fmt.Printf("%-36s %-30s %-30s %-20s %s\n",
		"ID", "Исполнитель", "Название", "Альбом", "Длительность")
	fmt.Println(strings.Repeat("-", 130))

	for _, track := range tracks {
		duration := track.Duration
		if duration == "" {
			duration = "N/A"
		}

		fmt.Printf("%-36s %-30s %-30s %-20s %s\n",
			track.ID,
			utils.TruncateString(track.Artist, 28),
			utils.TruncateString(track.Title, 28),
			utils.TruncateString(track.Album, 18),
			duration)
	}

	fmt.Println()
	fmt.Println("💡 Используйте 'broadcast play [ID]' для воспроизведения трека")
}
