// Package tracklist содержит модель экрана списка треков для TUI
package tracklist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/search"
	"github.com/hazadus/go-broadcast/internal/utils"
)

var (
	titleStyle        = lipgloss.NewStyle().MarginLeft(2)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	paginationStyle   = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle         = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
	searchStyle       = lipgloss.NewStyle().PaddingLeft(4)
	emptyStyle        = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("241"))
	pickerStyle       = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("170")).
				Padding(0, 1).
				MarginLeft(4)
)

// Mode определяет, какие треки показывает список
type Mode int

const (
	// ModeCatalog весь каталог
	ModeCatalog Mode = iota
	// ModePlaylist только эфирный плейлист
	ModePlaylist
)

// PlayTrackMsg отправляется при выборе трека для воспроизведения
type PlayTrackMsg struct {
	Track data.Track
}

// DeleteTrackMsg отправляется при удалении трека
type DeleteTrackMsg struct {
	Track data.Track
}

// NoticeMsg короткое сообщение для пользователя
type NoticeMsg struct {
	Text string
}

// trackItem реализует интерфейс list.Item для трека
type trackItem struct {
	track      data.Track
	inPlaylist bool
}

func (i trackItem) FilterValue() string {
	return fmt.Sprintf("%s %s", i.track.Artist, i.track.Title)
}

// trackItemDelegate реализует отображение элементов списка
type trackItemDelegate struct{}

func (d trackItemDelegate) Height() int                             { return 1 }
func (d trackItemDelegate) Spacing() int                            { return 0 }
func (d trackItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d trackItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(trackItem)
	if !ok {
		return
	}

	// Отметка эфира | Исполнитель | Название | Продолжительность
	marker := " "
	if i.inPlaylist {
		marker = "●"
	}
	str := fmt.Sprintf("%s %-20s %-40s %s",
		marker,
		utils.TruncateString(i.track.Artist, 20),
		utils.TruncateString(i.track.Title, 40),
		i.track.Duration)

	fn := itemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return selectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprint(w, fn(str))
}

// cratePicker выбор крейта для добавления трека
type cratePicker struct {
	track  data.Track
	crates []data.Crate
	index  int
}

// Model представляет модель экрана списка треков
type Model struct {
	library   *library.Manager
	mode      Mode
	list      list.Model
	search    textinput.Model
	searching bool
	picker    *cratePicker
}

// NewModel создает новую модель списка треков
func NewModel(lib *library.Manager, mode Mode) *Model {
	l := list.New(nil, trackItemDelegate{}, 0, 0)
	l.Title = "Каталог"
	if mode == ModePlaylist {
		l.Title = "В эфире"
	}
	l.SetShowStatusBar(false)
	l.SetShowTitle(true)
	// Поиск выполняется по каталогу, а не по отрисованным строкам
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle

	input := textinput.New()
	input.Prompt = "🔍 "
	input.Placeholder = "Название, исполнитель или альбом"

	m := &Model{
		library: lib,
		mode:    mode,
		list:    l,
		search:  input,
	}
	m.RefreshData()
	return m
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return nil
}

// Query возвращает текущую строку поиска
func (m *Model) Query() string {
	return m.search.Value()
}

// Capturing сообщает, что модель сама обрабатывает ввод с клавиатуры
func (m *Model) Capturing() bool {
	return m.searching || m.picker != nil
}

// Tracks возвращает отображаемые треки
func (m *Model) Tracks() []data.Track {
	items := m.list.Items()
	tracks := make([]data.Track, 0, len(items))
	for _, item := range items {
		if ti, ok := item.(trackItem); ok {
			tracks = append(tracks, ti.track)
		}
	}
	return tracks
}

// RefreshData обновляет данные модели без пересоздания
func (m *Model) RefreshData() {
	var tracks []data.Track
	if m.mode == ModePlaylist {
		tracks = search.Filter(m.library.Playlist(), m.search.Value())
	} else {
		tracks = m.library.Search(m.search.Value())
	}

	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t, inPlaylist: m.library.InPlaylist(t.ID)}
	}

	index := m.list.Index()
	m.list.SetItems(items)
	if index >= len(items) {
		index = len(items) - 1
	}
	if index >= 0 {
		m.list.Select(index)
	}
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4) // Оставляем место для поиска и справки
		m.search.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		if m.picker != nil {
			return m.updatePicker(msg)
		}
		if m.searching {
			return m.updateSearch(msg)
		}

		switch msg.String() {
		case "/":
			m.searching = true
			return m, m.search.Focus()

		case "enter":
			if item, ok := m.selected(); ok {
				return m, func() tea.Msg {
					return PlayTrackMsg{Track: item.track}
				}
			}
			return m, nil

		case "b":
			if item, ok := m.selected(); ok {
				m.library.TogglePlaylistMembership(item.track)
				m.RefreshData()
			}
			return m, nil

		case "c":
			if item, ok := m.selected(); ok {
				crates := m.library.Crates()
				if len(crates) == 0 {
					return m, notice("Сначала создайте крейт")
				}
				m.picker = &cratePicker{track: item.track, crates: crates}
			}
			return m, nil

		case "d":
			if item, ok := m.selected(); ok {
				return m, func() tea.Msg {
					return DeleteTrackMsg{Track: item.track}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.RefreshData()
		return m, nil

	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.RefreshData()
	return m, cmd
}

func (m *Model) updatePicker(msg tea.KeyMsg) (*Model, tea.Cmd) {
	p := m.picker
	switch msg.String() {
	case "esc":
		m.picker = nil

	case "up", "k":
		if p.index > 0 {
			p.index--
		}

	case "down", "j":
		if p.index < len(p.crates)-1 {
			p.index++
		}

	case "enter":
		crate := p.crates[p.index]
		m.picker = nil
		if !m.library.AddToCrate(p.track.ID, crate.ID) {
			return m, notice(fmt.Sprintf("Трек уже в крейте «%s»", crate.Name))
		}
	}
	return m, nil
}

func (m *Model) selected() (trackItem, bool) {
	item, ok := m.list.SelectedItem().(trackItem)
	return item, ok
}

func notice(text string) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{Text: text}
	}
}

// View отображает модель
func (m *Model) View() string {
	var b strings.Builder

	if m.searching || m.search.Value() != "" {
		b.WriteString(searchStyle.Render(m.search.View()))
		b.WriteString("\n")
	}

	if len(m.list.Items()) == 0 {
		b.WriteString(titleStyle.Render(m.list.Title))
		b.WriteString("\n\n")
		b.WriteString(emptyStyle.Render(m.emptyText()))
		b.WriteString("\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	if m.picker != nil {
		b.WriteString(m.pickerView())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.helpText()))
	return b.String()
}

func (m *Model) emptyText() string {
	switch {
	case m.search.Value() != "":
		return "Ничего не найдено"
	case m.mode == ModePlaylist:
		return "Плейлист пуст. Нажмите b в каталоге, чтобы добавить трек"
	default:
		return "Каталог пуст"
	}
}

func (m *Model) pickerView() string {
	var b strings.Builder
	b.WriteString("Добавить в крейт:\n")
	for i, crate := range m.picker.crates {
		line := fmt.Sprintf("  %s (%d)", crate.Name, len(crate.Tracks))
		if i == m.picker.index {
			line = selectedItemStyle.Render("> " + crate.Name)
		}
		b.WriteString(line)
		if i < len(m.picker.crates)-1 {
			b.WriteString("\n")
		}
	}
	return pickerStyle.Render(b.String())
}

func (m *Model) helpText() string {
	switch {
	case m.picker != nil:
		return "↑/↓: выбор • Enter: добавить • Esc: отмена"
	case m.searching:
		return "Enter: применить • Esc: сбросить поиск"
	default:
		return "Enter: воспроизвести • b: эфир • c: в крейт • d: удалить • /: поиск"
	}
}
