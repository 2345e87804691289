// Package crates содержит модель экрана крейтов для TUI
package crates

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/tui/tracklist"
	"github.com/hazadus/go-broadcast/internal/utils"
)

const cardWidth = 22

var (
	titleStyle = lipgloss.NewStyle().MarginLeft(2).Bold(true).Foreground(lipgloss.Color("205"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(cardWidth).
			Padding(0, 1)
	selectedCardStyle = cardStyle.BorderForeground(lipgloss.Color("170"))
	countStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	emptyStyle        = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("241"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).PaddingLeft(4).MarginTop(1)
)

// Model представляет модель экрана крейтов: сетка карточек
// и содержимое открытого крейта
type Model struct {
	library *library.Manager
	crates  []data.Crate
	index   int
	width   int

	input textinput.Model

	openID     string
	tracks     []data.Track
	trackIndex int
}

// NewModel создает новую модель крейтов
func NewModel(lib *library.Manager) *Model {
	input := textinput.New()
	input.CharLimit = 64
	input.Width = cardWidth - 2

	m := &Model{
		library: lib,
		input:   input,
	}
	m.RefreshData()
	return m
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return nil
}

// Capturing сообщает, что модель сама обрабатывает ввод с клавиатуры
func (m *Model) Capturing() bool {
	return m.library.EditingCrate() != ""
}

// OpenCrate возвращает ID открытого крейта или пустую строку
func (m *Model) OpenCrate() string {
	return m.openID
}

// RefreshData перечитывает крейты из библиотеки
func (m *Model) RefreshData() {
	m.crates = m.library.Crates()
	if m.index >= len(m.crates) {
		m.index = max(0, len(m.crates)-1)
	}

	if m.openID == "" {
		return
	}
	if _, ok := m.library.Crate(m.openID); !ok {
		m.openID = ""
		m.tracks = nil
		return
	}
	m.tracks = m.library.CrateTracks(m.openID)
	if m.trackIndex >= len(m.tracks) {
		m.trackIndex = max(0, len(m.tracks)-1)
	}
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if editing := m.library.EditingCrate(); editing != "" {
			return m.updateRename(editing, msg)
		}
		if m.openID != "" {
			return m.updateOpen(msg)
		}
		return m.updateGrid(msg)
	}

	if m.library.EditingCrate() != "" {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateGrid(msg tea.KeyMsg) (*Model, tea.Cmd) {
	columns := m.columns()

	switch msg.String() {
	case "left", "h":
		if m.index > 0 {
			m.index--
		}
	case "right", "l":
		if m.index < len(m.crates)-1 {
			m.index++
		}
	case "up", "k":
		if m.index-columns >= 0 {
			m.index -= columns
		}
	case "down", "j":
		if m.index+columns < len(m.crates) {
			m.index += columns
		}

	case "n":
		crate := m.library.CreateCrate()
		m.RefreshData()
		m.index = len(m.crates) - 1
		return m, m.startRename(crate)

	case "r":
		if crate, ok := m.selected(); ok && m.library.BeginRename(crate.ID) {
			return m, m.startRename(crate)
		}

	case "d":
		if crate, ok := m.selected(); ok {
			m.library.DeleteCrate(crate.ID)
			m.RefreshData()
		}

	case "enter":
		if crate, ok := m.selected(); ok {
			m.openID = crate.ID
			m.trackIndex = 0
			m.RefreshData()
		}
	}
	return m, nil
}

func (m *Model) updateOpen(msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.openID = ""
		m.tracks = nil

	case "up", "k":
		if m.trackIndex > 0 {
			m.trackIndex--
		}
	case "down", "j":
		if m.trackIndex < len(m.tracks)-1 {
			m.trackIndex++
		}

	case "enter":
		if m.trackIndex < len(m.tracks) {
			track := m.tracks[m.trackIndex]
			return m, func() tea.Msg {
				return tracklist.PlayTrackMsg{Track: track}
			}
		}

	case "x":
		if m.trackIndex < len(m.tracks) {
			m.library.RemoveFromCrate(m.openID, m.tracks[m.trackIndex].ID)
			m.RefreshData()
		}
	}
	return m, nil
}

func (m *Model) updateRename(id string, msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if err := m.library.RenameCrate(id, m.input.Value()); err != nil {
			// Пустое имя отклоняется, режим переименования сохраняется
			return m, func() tea.Msg {
				return tracklist.NoticeMsg{Text: err.Error()}
			}
		}
		m.input.Blur()
		m.RefreshData()
		return m, nil

	case "esc":
		m.library.CancelRename()
		m.input.Blur()
		m.RefreshData()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startRename(crate data.Crate) tea.Cmd {
	m.input.SetValue(crate.Name)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) selected() (data.Crate, bool) {
	if m.index < 0 || m.index >= len(m.crates) {
		return data.Crate{}, false
	}
	return m.crates[m.index], true
}

func (m *Model) columns() int {
	return max(1, m.width/(cardWidth+4))
}

// View отображает модель
func (m *Model) View() string {
	if m.openID != "" {
		return m.openView()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Крейты"))
	b.WriteString("\n\n")

	if len(m.crates) == 0 {
		b.WriteString(emptyStyle.Render("Крейтов пока нет. Нажмите n, чтобы создать"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.gridView())
		b.WriteString("\n")
	}

	if m.library.EditingCrate() != "" {
		b.WriteString(helpStyle.Render("Enter: сохранить имя • Esc: отмена"))
	} else {
		b.WriteString(helpStyle.Render("n: новый • r: переименовать • d: удалить • Enter: открыть"))
	}
	return b.String()
}

func (m *Model) gridView() string {
	editing := m.library.EditingCrate()
	columns := m.columns()

	var rows []string
	var row []string
	for i, crate := range m.crates {
		name := utils.TruncateString(crate.Name, cardWidth-2)
		if crate.ID == editing {
			name = m.input.View()
		}
		body := fmt.Sprintf("%s\n%s", name, countStyle.Render(fmt.Sprintf("треков: %d", len(crate.Tracks))))

		style := cardStyle
		if i == m.index {
			style = selectedCardStyle
		}
		row = append(row, style.Render(body))

		if len(row) == columns {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) openView() string {
	crate, _ := m.library.Crate(m.openID)

	var b strings.Builder
	b.WriteString(titleStyle.Render(crate.Name))
	b.WriteString("\n\n")

	if len(m.tracks) == 0 {
		b.WriteString(emptyStyle.Render("В крейте нет треков"))
		b.WriteString("\n")
	}
	for i, track := range m.tracks {
		line := fmt.Sprintf("%-20s %-40s %s",
			utils.TruncateString(track.Artist, 20),
			utils.TruncateString(track.Title, 40),
			track.Duration)
		if i == m.trackIndex {
			b.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("Enter: воспроизвести • x: убрать из крейта • Esc: к крейтам"))
	return b.String()
}
