package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-broadcast/internal/player"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/streaming"
	"github.com/hazadus/go-broadcast/internal/utils"
)

// seekStep шаг перемотки клавишами [ и ]
const seekStep = 5 * time.Second

// createPlayCommand создает команду play с привязкой к экземпляру приложения
func (app *Application) createPlayCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "play [trackid]",
		Short: "Play a track by its ID",
		Long:  `Play a track from the catalog by its ID with keyboard controls.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.playByID(ctx, args[0], os.Stdin)
		},
	}
}

// enableRawMode включает режим raw для терминала (без буферизации и echo)
func enableRawMode() {
	cmd := exec.Command("stty", "-echo", "-icanon")
	cmd.Stdin = os.Stdin
	_ = cmd.Run() // Без терминала управление просто недоступно
}

// disableRawMode восстанавливает нормальный режим терминала
func disableRawMode() {
	cmd := exec.Command("stty", "echo", "icanon")
	cmd.Stdin = os.Stdin
	_ = cmd.Run()
}

// readKeys пересылает нажатые клавиши в канал до ошибки чтения
func readKeys(input io.Reader, keys chan<- byte) {
	defer close(keys)
	buffer := make([]byte, 1)
	for {
		if _, err := input.Read(buffer); err != nil {
			return
		}
		keys <- buffer[0]
	}
}

func (app *Application) playByID(ctx context.Context, trackID string, input io.Reader) error {
	track, ok := app.Library.Track(trackID)
	if !ok {
		return fmt.Errorf("трек с ID %s не найден", trackID)
	}

	updates := make(chan session.Update, 16)
	app.Session.Subscribe(func(update session.Update) {
		select {
		case updates <- update:
		default:
			// Прогресс важен только последний, пропуски допустимы
		}
	})

	if err := app.Session.Play(track.ID); err != nil {
		return fmt.Errorf("ошибка запуска воспроизведения: %w", err)
	}
	defer app.Session.ClosePlayer()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go app.Session.Run(runCtx)

	fmt.Printf("🎵 Сейчас играет:\n")
	fmt.Printf("   ID: %s\n", track.ID)
	fmt.Printf("   Исполнитель: %s\n", track.Artist)
	fmt.Printf("   Название: %s\n", track.Title)
	if track.Album != "" {
		fmt.Printf("   Альбом: %s\n", track.Album)
	}
	if track.Duration != "" {
		fmt.Printf("   Продолжительность: %s\n", track.Duration)
	}
	fmt.Println()
	fmt.Printf("🎮 Управление:\n")
	fmt.Printf("   [Пробел] - пауза/воспроизведение\n")
	fmt.Printf("   [ и ]    - перемотка на %s\n", seekStep)
	fmt.Printf("   m        - выключить/включить звук\n")
	fmt.Printf("   q        - остановить и выйти\n")
	fmt.Println()

	if input == os.Stdin {
		enableRawMode()
		defer disableRawMode()
	}

	keys := make(chan byte)
	go readKeys(input, keys)

	transport := app.Session.Transport()
	for {
		select {
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			switch key {
			case ' ', '\n', '\r':
				transport.PlayPause()
			case '[':
				status := transport.Status()
				transport.Seek(status.Current - seekStep)
			case ']':
				status := transport.Status()
				transport.Seek(status.Current + seekStep)
			case 'm':
				transport.ToggleMute()
			case 'q':
				fmt.Println("\n⏹️  Воспроизведение остановлено пользователем")
				return nil
			}
		case update := <-updates:
			if update.Err != nil {
				fmt.Printf("\n❌ Ошибка воспроизведения: %v\n", update.Err)
				return update.Err
			}
			if update.Ended {
				fmt.Println("\n✅ Воспроизведение завершено")
				return nil
			}
			displayProgress(update.Status)
		case <-ctx.Done():
			fmt.Println("\n🚫 Операция отменена")
			return ctx.Err()
		}
	}
}

// displayProgress отображает прогресс воспроизведения
func displayProgress(status player.Status) {
	statusIcon := "✅"
	statusText := streaming.DescribeStalls(status.Stalls)

	switch {
	case status.IsLoading:
		statusIcon = "⏳"
		statusText = "Загрузка"
	case !status.IsPlaying:
		statusIcon = "⏸️"
		statusText = "На паузе"
	case status.Stalls > 3:
		statusIcon = "⚠️"
	}

	volume := fmt.Sprintf("🔊 %d%%", int(status.EffectiveVolume()*100+0.5))
	if status.Muted {
		volume = "🔇"
	}

	if status.Total > 0 {
		percent := float64(status.Current) / float64(status.Total) * 100
		fmt.Printf("\r\033[K%s  %.1f%% | %s / %s | %s | Статус: %s",
			statusIcon,
			percent,
			utils.FormatClock(status.Current),
			utils.FormatClock(status.Total),
			volume,
			statusText)
		return
	}

	fmt.Printf("\r\033[K%s  %s | %s | Статус: %s",
		statusIcon,
		utils.FormatClock(status.Current),
		volume,
		statusText)
}
