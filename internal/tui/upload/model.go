// Package upload содержит модель экрана загрузки треков для TUI
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/player"
	"github.com/hazadus/go-broadcast/internal/uploader"
	"github.com/hazadus/go-broadcast/internal/utils"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Margin(1, 0)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(15)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(2)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Margin(1, 0)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Margin(1, 0)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
)

// GoBackMsg отправляется при закрытии экрана загрузки
type GoBackMsg struct{}

// PreviewMsg запрашивает загрузку превью в плеер
type PreviewMsg struct {
	Locator string
}

// submittedMsg результат отправки
type submittedMsg struct {
	tracks []data.Track
	err    error
}

// fieldType определяет тип поля формы
type fieldType int

const (
	pathsField fieldType = iota
	titleField
	artistField
	numFields
)

// Model представляет модель экрана загрузки
type Model struct {
	dialog     *uploader.Dialog
	inputs     []textinput.Model
	focusIndex int
	submitting bool
	err        string
	success    string
}

// NewModel создает новую модель экрана загрузки
func NewModel(dialog *uploader.Dialog) *Model {
	inputs := make([]textinput.Model, numFields)

	inputs[pathsField] = textinput.New()
	inputs[pathsField].Placeholder = "Файлы или папка, через запятую"
	inputs[pathsField].Focus()
	inputs[pathsField].PromptStyle = focusedStyle
	inputs[pathsField].TextStyle = focusedStyle

	inputs[titleField] = textinput.New()
	inputs[titleField].Placeholder = "Введите название трека"

	inputs[artistField] = textinput.New()
	inputs[artistField].Placeholder = "Введите исполнителя"

	return &Model{
		dialog: dialog,
		inputs: inputs,
	}
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Submitting сообщает, выполняется ли отправка
func (m *Model) Submitting() bool {
	return m.submitting
}

// ObserveStatus сохраняет длительность превью, как только транспорт ее узнал
func (m *Model) ObserveStatus(status player.Status) {
	m.dialog.SetPreviewDuration(status.Locator, status.Total)
}

// Close закрывает диалог, прерывая отправку
func (m *Model) Close() {
	m.dialog.Close()
	m.submitting = false
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.Close()
			return m, func() tea.Msg {
				return GoBackMsg{}
			}

		case "ctrl+s":
			return m, m.submit()

		case "ctrl+p":
			if locator := m.dialog.Preview(); locator != "" {
				return m, func() tea.Msg {
					return PreviewMsg{Locator: locator}
				}
			}
			return m, nil

		case "tab", "shift+tab", "enter", "up", "down":
			s := msg.String()

			if s == "enter" && m.focusIndex == int(pathsField) {
				if !m.selectFiles() {
					return m, nil
				}
			}

			if s == "enter" && m.focusIndex == len(m.inputs) {
				return m, m.submit()
			}

			if s == "up" || s == "shift+tab" {
				m.focusIndex--
			} else {
				m.focusIndex++
			}

			if m.focusIndex > len(m.inputs) {
				m.focusIndex = 0
			} else if m.focusIndex < 0 {
				m.focusIndex = len(m.inputs)
			}

			return m, m.focus()
		}

	case submittedMsg:
		m.submitting = false
		if msg.err != nil {
			// Закрытие диалога прерывает отправку без сообщения
			if !errors.Is(msg.err, context.Canceled) {
				m.err = fmt.Sprintf("Ошибка загрузки: %v", msg.err)
			}
			return m, nil
		}
		m.err = ""
		m.success = fmt.Sprintf("Загружено треков: %d", len(msg.tracks))
		return m, tea.Tick(time.Second, func(time.Time) tea.Msg {
			return GoBackMsg{}
		})

	case tea.WindowSizeMsg:
		for i := range m.inputs {
			m.inputs[i].Width = msg.Width - 20
		}
		return m, nil
	}

	if m.focusIndex < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) focus() tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := 0; i < len(m.inputs); i++ {
		if i == m.focusIndex {
			cmds[i] = m.inputs[i].Focus()
			m.inputs[i].PromptStyle = focusedStyle
			m.inputs[i].TextStyle = focusedStyle
		} else {
			m.inputs[i].Blur()
			m.inputs[i].PromptStyle = blurredStyle
			m.inputs[i].TextStyle = blurredStyle
		}
	}
	return tea.Batch(cmds...)
}

// selectFiles передает выбранные пути в диалог и заполняет форму подсказками
func (m *Model) selectFiles() bool {
	paths := expandPaths(m.inputs[pathsField].Value())
	if len(paths) == 0 {
		m.err = "Укажите хотя бы один файл"
		return false
	}

	// Подсказки не затирают уже введенные значения
	m.dialog.SetForm(m.form())
	if _, err := m.dialog.Select(paths); err != nil {
		m.err = err.Error()
		return false
	}

	form := m.dialog.Form()
	m.inputs[titleField].SetValue(form.Title)
	m.inputs[artistField].SetValue(form.Artist)
	m.err = ""
	return true
}

func (m *Model) form() library.Form {
	return library.Form{
		Title:  m.inputs[titleField].Value(),
		Artist: m.inputs[artistField].Value(),
	}
}

// submit отправляет форму в фоне
func (m *Model) submit() tea.Cmd {
	if m.submitting {
		return nil
	}
	m.dialog.SetForm(m.form())
	if len(m.dialog.Files()) == 0 && strings.TrimSpace(m.inputs[pathsField].Value()) != "" {
		if !m.selectFiles() {
			return nil
		}
	}

	m.submitting = true
	m.success = ""
	dialog := m.dialog
	return func() tea.Msg {
		tracks, err := dialog.Submit(context.Background())
		return submittedMsg{tracks: tracks, err: err}
	}
}

// expandPaths разбирает список путей; папка заменяется файлами из нее
func expandPaths(value string) []string {
	var paths []string
	for _, part := range strings.Split(value, ",") {
		path := strings.TrimSpace(part)
		if path == "" {
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			paths = append(paths, path)
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
	}
	return paths
}

// View отображает модель
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Загрузка треков"))
	b.WriteString("\n\n")

	labels := []string{"Файлы:", "Название:", "Исполнитель:"}
	for i, input := range m.inputs {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString(" ")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	if files := m.dialog.Files(); len(files) > 0 {
		for _, file := range files {
			b.WriteString(fileStyle.Render(fmt.Sprintf("♪ %s  %s", file.Name, utils.FormatClock(file.Duration))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	button := "[ Загрузить ]"
	if m.submitting {
		button = "[ Загрузка... ]"
	}
	if m.focusIndex == len(m.inputs) {
		button = focusedStyle.Render(button)
	} else {
		button = blurredStyle.Render(button)
	}
	b.WriteString(button)
	b.WriteString("\n\n")

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}

	if m.success != "" {
		b.WriteString(successStyle.Render(m.success))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("Enter на поле файлов: выбрать • Tab: следующее поле • Ctrl+P: прослушать"))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("Ctrl+S: загрузить • Esc: закрыть"))

	return b.String()
}
