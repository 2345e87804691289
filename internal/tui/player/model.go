// Package player содержит модель панели воспроизведения для TUI
package player

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/player"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/utils"
)

// Шаги управления с клавиатуры
const (
	SeekStep   = 5 * time.Second
	VolumeStep = 0.1
)

var (
	barStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1)

	compactStyle = lipgloss.NewStyle().PaddingLeft(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000ff"))

	trackInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff0000")).
			Bold(true)
)

// UpdateMsg содержит обновление состояния плеера из сессии
type UpdateMsg struct {
	Update session.Update
}

// Model представляет модель панели воспроизведения
type Model struct {
	session     *session.Session
	track       *data.Track
	status      player.Status
	progressBar progress.Model
	error       error
	compact     bool
	width       int
}

// NewModel создает новую модель панели
func NewModel(sess *session.Session) *Model {
	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	m := &Model{
		session:     sess,
		progressBar: prog,
		status:      sess.Transport().Status(),
	}
	if track, ok := sess.Current(); ok {
		m.track = &track
	}
	return m
}

// Visible сообщает, показывается ли панель
func (m *Model) Visible() bool {
	return m.track != nil
}

// Status возвращает последний полученный статус
func (m *Model) Status() player.Status {
	return m.status
}

// SetCompact переключает компактный режим для узкого экрана
func (m *Model) SetCompact(compact bool) {
	m.compact = compact
}

// HandleKey выполняет команды плеера. Возвращает false, если клавиша
// не относится к плееру или панель скрыта.
func (m *Model) HandleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if !m.Visible() {
		return false, nil
	}

	transport := m.session.Transport()
	switch msg.String() {
	case " ":
		m.session.TogglePlayback()
	case "[":
		transport.Seek(m.status.Current - SeekStep)
	case "]":
		transport.Seek(m.status.Current + SeekStep)
	case "+", "=":
		transport.SetVolume(m.status.Volume + VolumeStep)
	case "-":
		transport.SetVolume(m.status.Volume - VolumeStep)
	case "m":
		transport.ToggleMute()
	case "s":
		m.session.ClosePlayer()
	default:
		return false, nil
	}

	m.status = transport.Status()
	return true, m.progressBar.SetPercent(percent(m.status))
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(10, min(60, msg.Width-30))
		return m, nil

	case UpdateMsg:
		update := msg.Update
		m.status = update.Status
		m.track = update.Current
		if update.Err != nil {
			m.error = update.Err
		} else if update.Status.State != player.StateError {
			m.error = nil
		}
		return m, m.progressBar.SetPercent(percent(update.Status))

	case progress.FrameMsg:
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// View отображает модель
func (m *Model) View() string {
	if !m.Visible() {
		return ""
	}

	statusIcon := "⏸️"
	switch {
	case m.status.IsLoading:
		statusIcon = "⏳"
	case m.status.IsPlaying:
		statusIcon = "▶️"
	}

	title := titleStyle.Render(utils.TruncateString(m.track.Title, 40))
	artist := trackInfoStyle.Render(utils.TruncateString(m.track.Artist, 30))
	timeText := fmt.Sprintf("%s / %s",
		utils.FormatClock(m.status.Current),
		utils.FormatClock(m.status.Total))

	if m.compact {
		return compactStyle.Render(fmt.Sprintf("%s %s\n%s %s", statusIcon, title, artist, timeText))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s · %s", statusIcon, title, artist))
	b.WriteString("\n")
	b.WriteString(m.progressBar.View())
	b.WriteString("  ")
	b.WriteString(timeText)
	b.WriteString("  ")
	b.WriteString(formatVolume(m.status))
	b.WriteString("\n")
	if m.error != nil {
		b.WriteString(errorStyle.Render("❌ " + m.error.Error()))
	} else {
		b.WriteString(controlsStyle.Render("Пробел: пауза • [/]: перемотка • +/-: громкость • m: звук • s: закрыть"))
	}
	return barStyle.Render(b.String())
}

// Вспомогательные функции

func percent(status player.Status) float64 {
	if status.Total <= 0 {
		return 0
	}
	return min(1, float64(status.Current)/float64(status.Total))
}

func formatVolume(status player.Status) string {
	if status.Muted {
		return "🔇 0%"
	}
	return fmt.Sprintf("🔊 %d%%", int(status.Volume*100+0.5))
}
