// Package toast содержит модель всплывающих уведомлений для TUI
package toast

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-broadcast/internal/notify"
)

// Параметры показа уведомлений
const (
	DefaultTTL = 4 * time.Second
	MaxVisible = 3
)

var (
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).PaddingLeft(2)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).PaddingLeft(2)
	actionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// ShowMsg показывает уведомление
type ShowMsg struct {
	Toast notify.Toast
}

// expireMsg скрывает уведомление по истечении времени
type expireMsg struct {
	id string
}

// Model очередь видимых уведомлений
type Model struct {
	actions *notify.Actions
	ttl     time.Duration
	toasts  []notify.Toast
}

// NewModel создает модель уведомлений. ttl <= 0 означает DefaultTTL.
func NewModel(actions *notify.Actions, ttl time.Duration) *Model {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Model{actions: actions, ttl: ttl}
}

// Toasts возвращает видимые уведомления, последнее в конце
func (m *Model) Toasts() []notify.Toast {
	result := make([]notify.Toast, len(m.toasts))
	copy(result, m.toasts)
	return result
}

// Height количество строк, занятых уведомлениями
func (m *Model) Height() int {
	return len(m.toasts)
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ShowMsg:
		m.toasts = append(m.toasts, msg.Toast)
		if len(m.toasts) > MaxVisible {
			m.toasts = m.toasts[len(m.toasts)-MaxVisible:]
		}
		id := msg.Toast.ID
		return m, tea.Tick(m.ttl, func(time.Time) tea.Msg {
			return expireMsg{id: id}
		})

	case expireMsg:
		m.remove(msg.id)
	}
	return m, nil
}

// Undo выполняет действие последнего уведомления с кнопкой отмены.
// Возвращает false, если такого уведомления нет или действие устарело.
func (m *Model) Undo() bool {
	for i := len(m.toasts) - 1; i >= 0; i-- {
		toast := m.toasts[i]
		if toast.ActionID == "" {
			continue
		}
		m.remove(toast.ID)
		return m.actions != nil && m.actions.Run(toast.ActionID)
	}
	return false
}

func (m *Model) remove(id string) {
	for i, toast := range m.toasts {
		if toast.ID == id {
			m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
			return
		}
	}
}

// View отображает модель
func (m *Model) View() string {
	lines := make([]string, 0, len(m.toasts))
	for _, toast := range m.toasts {
		style := infoStyle
		if toast.Level == notify.LevelError {
			style = errorStyle
		}
		line := toast.Message
		if toast.ActionID != "" {
			line += "  " + actionStyle.Render("[z] "+toast.ActionLabel)
		}
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}
