// Package tui содержит компоненты для текстового пользовательского интерфейса
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/notify"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/tui/app"
	tuiPlayer "github.com/hazadus/go-broadcast/internal/tui/player"
	"github.com/hazadus/go-broadcast/internal/uploader"
)

// App представляет основное TUI приложение
type App struct {
	session   *session.Session
	actions   *notify.Actions
	newDialog func() *uploader.Dialog
	logger    *zap.Logger
}

// NewApp создает новый экземпляр TUI приложения
func NewApp(sess *session.Session, actions *notify.Actions, newDialog func() *uploader.Dialog, logger *zap.Logger) *App {
	if actions == nil {
		actions = notify.NewActions(notify.DefaultActionsCapacity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		session:   sess,
		actions:   actions,
		newDialog: newDialog,
		logger:    logger,
	}
}

// Run запускает TUI приложение
func (tuiApp *App) Run() error {
	model := app.NewMainModel(tuiApp.session, tuiApp.actions, tuiApp.newDialog, tuiApp.logger)
	p := tea.NewProgram(model, tea.WithAltScreen())

	// События приходят и из цикла обновления самой программы (например,
	// переключение эфира), поэтому Send вызывается в отдельной горутине
	tuiApp.session.Library().Subscribe(func(event library.Event) {
		go p.Send(app.LibraryEventMsg{Event: event})
	})
	tuiApp.session.Subscribe(func(update session.Update) {
		go p.Send(tuiPlayer.UpdateMsg{Update: update})
	})

	ctx, cancel := context.WithCancel(context.Background())
	go tuiApp.session.Run(ctx)

	_, err := p.Run()

	cancel()
	// Закрываем плеер после завершения программы
	if closeErr := model.Close(); closeErr != nil {
		tuiApp.logger.Warn("Ошибка закрытия плеера", zap.Error(closeErr))
	}

	return err
}
