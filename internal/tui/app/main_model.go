// Package app содержит основную логику TUI приложения
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/notify"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/tui/crates"
	tuiPlayer "github.com/hazadus/go-broadcast/internal/tui/player"
	"github.com/hazadus/go-broadcast/internal/tui/toast"
	"github.com/hazadus/go-broadcast/internal/tui/tracklist"
	"github.com/hazadus/go-broadcast/internal/tui/upload"
	"github.com/hazadus/go-broadcast/internal/uploader"
)

// MobileWidth ширина терминала, начиная с которой раскладка считается мобильной
const MobileWidth = 60

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("241"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("170"))
)

// ScreenType определяет тип текущего экрана
type ScreenType int

// Константы для типов экранов
const (
	// TracklistScreen - каталог треков
	TracklistScreen ScreenType = iota
	// PlaylistScreen - эфирный плейлист
	PlaylistScreen
	// CratesScreen - крейты
	CratesScreen
	// UploadScreen - загрузка треков
	UploadScreen
)

// LibraryEventMsg доставляет событие библиотеки в цикл обновления
type LibraryEventMsg struct {
	Event library.Event
}

// MainModel представляет главную модель TUI
type MainModel struct {
	session   *session.Session
	actions   *notify.Actions
	newDialog func() *uploader.Dialog
	logger    *zap.Logger

	currentScreen  ScreenType
	previousScreen ScreenType
	tracklistModel *tracklist.Model
	playlistModel  *tracklist.Model
	cratesModel    *crates.Model
	uploadModel    *upload.Model // Создается при открытии экрана загрузки
	playerModel    *tuiPlayer.Model
	toastModel     *toast.Model

	width  int
	height int
}

// NewMainModel создает новую главную модель. newDialog создает диалог
// загрузки при каждом открытии экрана загрузки.
func NewMainModel(sess *session.Session, actions *notify.Actions, newDialog func() *uploader.Dialog, logger *zap.Logger) *MainModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	lib := sess.Library()

	return &MainModel{
		session:        sess,
		actions:        actions,
		newDialog:      newDialog,
		logger:         logger,
		currentScreen:  TracklistScreen,
		tracklistModel: tracklist.NewModel(lib, tracklist.ModeCatalog),
		playlistModel:  tracklist.NewModel(lib, tracklist.ModePlaylist),
		cratesModel:    crates.NewModel(lib),
		playerModel:    tuiPlayer.NewModel(sess),
		toastModel:     toast.NewModel(actions, 0),
	}
}

// Init инициализирует модель
func (m *MainModel) Init() tea.Cmd {
	return m.tracklistModel.Init()
}

// Update обрабатывает сообщения
func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.resize()

	case tracklist.PlayTrackMsg:
		if err := m.session.Play(msg.Track.ID); err != nil {
			return m, m.showError(err)
		}
		return m, m.resize()

	case tracklist.DeleteTrackMsg:
		if _, err := m.session.DeleteTrack(context.Background(), msg.Track.ID); err != nil {
			if errors.Is(err, session.ErrTrackNotFound) {
				return m, nil
			}
			return m, m.showError(fmt.Errorf("ошибка удаления файла: %w", err))
		}
		return m, nil

	case tracklist.NoticeMsg:
		return m, m.show(notify.New(notify.LevelInfo, msg.Text))

	case LibraryEventMsg:
		m.refresh()
		if t, ok := notify.FromEvent(msg.Event, m.actions); ok {
			return m, m.show(t)
		}
		return m, nil

	case toast.ShowMsg:
		var cmd tea.Cmd
		m.toastModel, cmd = m.toastModel.Update(msg)
		return m, tea.Batch(cmd, m.resize())

	case tuiPlayer.UpdateMsg:
		visible := m.playerModel.Visible()
		var cmd tea.Cmd
		m.playerModel, cmd = m.playerModel.Update(msg)
		if m.uploadModel != nil {
			m.uploadModel.ObserveStatus(msg.Update.Status)
		}
		if msg.Update.Err != nil {
			cmd = tea.Batch(cmd, m.showError(msg.Update.Err))
		}
		if visible != m.playerModel.Visible() {
			cmd = tea.Batch(cmd, m.resize())
		}
		return m, cmd

	case upload.PreviewMsg:
		// Повторный запрос того же превью переключает паузу
		if m.session.Transport().Status().Locator == msg.Locator {
			m.session.TogglePlayback()
			return m, nil
		}
		m.session.LoadPreview(msg.Locator)
		return m, nil

	case upload.GoBackMsg:
		m.closeUpload()
		return m, nil
	}

	// Остальные сообщения (анимация, таймеры) получают все модели
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.playerModel, cmd = m.playerModel.Update(msg)
	cmds = append(cmds, cmd)

	m.toastModel, cmd = m.toastModel.Update(msg)
	cmds = append(cmds, cmd)

	cmds = append(cmds, m.updateScreen(msg))
	return m, tea.Batch(cmds...)
}

// handleKey обрабатывает нажатия: глобальные клавиши, затем плеер, затем экран
func (m *MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.session.ClosePlayer()
		return m, tea.Quit
	}

	if m.capturing() {
		return m, m.updateScreen(msg)
	}

	switch msg.String() {
	case "q":
		m.session.ClosePlayer()
		return m, tea.Quit
	case "1":
		m.switchTo(TracklistScreen)
		return m, nil
	case "2":
		m.switchTo(PlaylistScreen)
		return m, nil
	case "3":
		m.switchTo(CratesScreen)
		return m, nil
	case "u":
		return m, m.openUpload()
	case "z":
		if !m.toastModel.Undo() {
			return m, m.show(notify.New(notify.LevelInfo, "Нечего отменять"))
		}
		m.refresh()
		return m, m.resize()
	}

	if handled, cmd := m.playerModel.HandleKey(msg); handled {
		return m, tea.Batch(cmd, m.resize())
	}

	return m, m.updateScreen(msg)
}

// capturing сообщает, что активный экран принимает текстовый ввод
func (m *MainModel) capturing() bool {
	switch m.currentScreen {
	case TracklistScreen:
		return m.tracklistModel.Capturing()
	case PlaylistScreen:
		return m.playlistModel.Capturing()
	case CratesScreen:
		return m.cratesModel.Capturing()
	case UploadScreen:
		return true
	}
	return false
}

func (m *MainModel) updateScreen(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.currentScreen {
	case TracklistScreen:
		m.tracklistModel, cmd = m.tracklistModel.Update(msg)
	case PlaylistScreen:
		m.playlistModel, cmd = m.playlistModel.Update(msg)
	case CratesScreen:
		m.cratesModel, cmd = m.cratesModel.Update(msg)
	case UploadScreen:
		if m.uploadModel != nil {
			m.uploadModel, cmd = m.uploadModel.Update(msg)
		}
	}
	return cmd
}

func (m *MainModel) switchTo(screen ScreenType) {
	m.currentScreen = screen
	m.refresh()
}

func (m *MainModel) openUpload() tea.Cmd {
	if m.newDialog == nil {
		return m.show(notify.New(notify.LevelError, "Загрузка недоступна"))
	}
	m.previousScreen = m.currentScreen
	m.currentScreen = UploadScreen
	m.uploadModel = upload.NewModel(m.newDialog())
	return tea.Batch(m.uploadModel.Init(), m.resize())
}

func (m *MainModel) closeUpload() {
	if m.uploadModel != nil {
		m.uploadModel.Close()
		m.uploadModel = nil
	}
	if m.currentScreen == UploadScreen {
		m.currentScreen = m.previousScreen
	}
	m.refresh()
}

// refresh перечитывает данные библиотеки во всех экранах
func (m *MainModel) refresh() {
	m.tracklistModel.RefreshData()
	m.playlistModel.RefreshData()
	m.cratesModel.RefreshData()
}

func (m *MainModel) show(t notify.Toast) tea.Cmd {
	return func() tea.Msg {
		return toast.ShowMsg{Toast: t}
	}
}

func (m *MainModel) showError(err error) tea.Cmd {
	m.logger.Warn("Ошибка в TUI", zap.Error(err))
	return m.show(notify.Error(err))
}

// resize распределяет высоту между экраном, уведомлениями и панелью плеера
func (m *MainModel) resize() tea.Cmd {
	if m.width == 0 || m.height == 0 {
		return nil
	}

	layout := m.session.Layout(m.width < MobileWidth)
	m.playerModel.SetCompact(layout.Compact)

	// Строка вкладок, уведомления и панель плеера
	reserved := 1 + m.toastModel.Height() + layout.PlayerRows
	screenSize := tea.WindowSizeMsg{Width: m.width, Height: max(0, m.height-reserved)}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.tracklistModel, cmd = m.tracklistModel.Update(screenSize)
	cmds = append(cmds, cmd)
	m.playlistModel, cmd = m.playlistModel.Update(screenSize)
	cmds = append(cmds, cmd)
	m.cratesModel, cmd = m.cratesModel.Update(screenSize)
	cmds = append(cmds, cmd)
	if m.uploadModel != nil {
		m.uploadModel, cmd = m.uploadModel.Update(screenSize)
		cmds = append(cmds, cmd)
	}
	m.playerModel, cmd = m.playerModel.Update(tea.WindowSizeMsg{Width: m.width, Height: layout.PlayerRows})
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

// View отображает текущий экран
func (m *MainModel) View() string {
	var screen string
	switch m.currentScreen {
	case TracklistScreen:
		screen = m.tracklistModel.View()
	case PlaylistScreen:
		screen = m.playlistModel.View()
	case CratesScreen:
		screen = m.cratesModel.View()
	case UploadScreen:
		if m.uploadModel == nil {
			return "Неизвестный экран"
		}
		screen = m.uploadModel.View()
	default:
		return "Неизвестный экран"
	}

	parts := []string{m.tabsView(), screen}
	if toasts := m.toastModel.View(); toasts != "" {
		parts = append(parts, toasts)
	}
	if bar := m.playerModel.View(); bar != "" {
		parts = append(parts, bar)
	}
	return strings.Join(parts, "\n")
}

func (m *MainModel) tabsView() string {
	tabs := []struct {
		screen ScreenType
		label  string
	}{
		{TracklistScreen, "1 Каталог"},
		{PlaylistScreen, fmt.Sprintf("2 Эфир (%d)", len(m.session.Library().Playlist()))},
		{CratesScreen, "3 Крейты"},
		{UploadScreen, "u Загрузка"},
	}

	rendered := make([]string, len(tabs))
	for i, tab := range tabs {
		style := tabStyle
		if tab.screen == m.currentScreen {
			style = activeTabStyle
		}
		rendered[i] = style.Render(tab.label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Close очищает ресурсы модели
func (m *MainModel) Close() error {
	if m.uploadModel != nil {
		m.uploadModel.Close()
	}
	return m.session.Transport().Close()
}
