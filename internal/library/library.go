// Package library содержит логику управления каталогом, эфиром (плейлистом) и крейтами
package library

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/search"
)

// ErrEmptyCrateName возвращается при попытке дать крейту пустое имя
var ErrEmptyCrateName = errors.New("имя крейта не может быть пустым")

// undoRecord состояние эфира до последнего переключения трека
type undoRecord struct {
	token     uint64
	wasMember bool
	index     int
	track     data.Track
}

// Manager единственный владелец каталога, эфира и крейтов.
// Безопасен для конкурентного использования.
type Manager struct {
	logger *zap.Logger

	mutex        sync.RWMutex
	catalog      []data.Track
	playlist     []data.Track
	crates       []data.Crate
	crateCounter int
	editingCrate string
	undo         map[string]undoRecord
	undoToken    uint64

	listenersMutex sync.RWMutex
	listeners      []Listener
}

// NewManager создает библиотеку с начальным каталогом
func NewManager(catalog []data.Track, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	tracks := make([]data.Track, len(catalog))
	copy(tracks, catalog)

	return &Manager{
		logger:       logger,
		catalog:      tracks,
		crateCounter: 1,
		undo:         make(map[string]undoRecord),
	}
}

// Subscribe добавляет слушателя событий
func (m *Manager) Subscribe(listener Listener) {
	m.listenersMutex.Lock()
	defer m.listenersMutex.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) emit(event Event) {
	if event.Kind == EventNone {
		return
	}
	m.listenersMutex.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersMutex.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Catalog возвращает копию каталога
func (m *Manager) Catalog() []data.Track {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return cloneTracks(m.catalog)
}

// Playlist возвращает копию эфира
func (m *Manager) Playlist() []data.Track {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return cloneTracks(m.playlist)
}

// Track возвращает трек каталога по ID
func (m *Manager) Track(id string) (data.Track, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	idx := indexOfTrack(m.catalog, id)
	if idx < 0 {
		return data.Track{}, false
	}
	return m.catalog[idx], true
}

// InPlaylist сообщает, есть ли трек в эфире
func (m *Manager) InPlaylist(id string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return indexOfTrack(m.playlist, id) >= 0
}

// Search фильтрует каталог по строке запроса
func (m *Manager) Search(query string) []data.Track {
	return search.Filter(m.Catalog(), query)
}

// TogglePlaylistMembership добавляет трек в эфир или убирает его оттуда.
// Возвращает итоговое членство. Трек, которого нет ни в каталоге, ни в эфире,
// игнорируется.
func (m *Manager) TogglePlaylistMembership(track data.Track) (bool, Event) {
	m.mutex.Lock()

	idx := indexOfTrack(m.playlist, track.ID)
	var event Event

	if idx >= 0 {
		removed := m.playlist[idx]
		m.playlist = removeAt(m.playlist, idx)
		token := m.recordUndo(undoRecord{wasMember: true, index: idx, track: removed})
		event = Event{Kind: EventPlaylistRemoved, Track: removed, Undo: m.undoFunc(removed.ID, token)}
	} else {
		catalogIdx := indexOfTrack(m.catalog, track.ID)
		if catalogIdx < 0 {
			m.mutex.Unlock()
			m.logger.Debug("Переключение неизвестного трека пропущено", zap.String("track_id", track.ID))
			return false, Event{}
		}
		added := m.catalog[catalogIdx]

		// Трек, только что убранный из эфира, возвращается на прежнее место
		position := 0
		if prev, ok := m.undo[added.ID]; ok && prev.wasMember {
			position = min(prev.index, len(m.playlist))
		}
		m.playlist = insertAt(m.playlist, position, added)
		token := m.recordUndo(undoRecord{wasMember: false, track: added})
		event = Event{Kind: EventPlaylistAdded, Track: added, Undo: m.undoFunc(added.ID, token)}
	}

	member := event.Kind == EventPlaylistAdded
	m.mutex.Unlock()

	m.emit(event)
	return member, event
}

// recordUndo сохраняет запись отмены, вытесняя предыдущую для того же трека
func (m *Manager) recordUndo(record undoRecord) uint64 {
	m.undoToken++
	record.token = m.undoToken
	m.undo[record.track.ID] = record
	return record.token
}

func (m *Manager) undoFunc(trackID string, token uint64) func() bool {
	return func() bool {
		return m.undoToggle(trackID, token)
	}
}

// undoToggle восстанавливает эфир до переключения, если запись отмены еще актуальна
func (m *Manager) undoToggle(trackID string, token uint64) bool {
	m.mutex.Lock()

	record, ok := m.undo[trackID]
	if !ok || record.token != token {
		m.mutex.Unlock()
		return false
	}
	delete(m.undo, trackID)

	idx := indexOfTrack(m.playlist, trackID)
	if record.wasMember {
		if idx < 0 && indexOfTrack(m.catalog, trackID) >= 0 {
			m.playlist = insertAt(m.playlist, min(record.index, len(m.playlist)), record.track)
		}
	} else if idx >= 0 {
		m.playlist = removeAt(m.playlist, idx)
	}
	m.mutex.Unlock()

	m.emit(Event{Kind: EventPlaylistUndone, Track: record.track})
	return true
}

// Crates возвращает копии всех крейтов в порядке создания
func (m *Manager) Crates() []data.Crate {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	crates := make([]data.Crate, len(m.crates))
	for i, c := range m.crates {
		crates[i] = c.Clone()
	}
	return crates
}

// Crate возвращает копию крейта по ID
func (m *Manager) Crate(id string) (data.Crate, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	idx := m.indexOfCrate(id)
	if idx < 0 {
		return data.Crate{}, false
	}
	return m.crates[idx].Clone(), true
}

// CrateTracks возвращает треки крейта в порядке добавления
func (m *Manager) CrateTracks(id string) []data.Track {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	idx := m.indexOfCrate(id)
	if idx < 0 {
		return nil
	}
	tracks := make([]data.Track, 0, len(m.crates[idx].Tracks))
	for _, trackID := range m.crates[idx].Tracks {
		if i := indexOfTrack(m.catalog, trackID); i >= 0 {
			tracks = append(tracks, m.catalog[i])
		}
	}
	return tracks
}

// EditingCrate возвращает ID крейта в режиме переименования или пустую строку
func (m *Manager) EditingCrate() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.editingCrate
}

// CreateCrate создает крейт с именем "Crate {n}" и переводит его в режим переименования.
// Номер не переиспользуется после удаления.
func (m *Manager) CreateCrate() data.Crate {
	m.mutex.Lock()
	crate := data.Crate{
		ID:     data.NewID(),
		Name:   fmt.Sprintf("Crate %d", m.crateCounter),
		Tracks: []string{},
	}
	m.crateCounter++
	m.crates = append(m.crates, crate)
	m.editingCrate = crate.ID
	m.mutex.Unlock()

	m.logger.Info("Создан крейт", zap.String("crate_id", crate.ID), zap.String("name", crate.Name))
	m.emit(Event{Kind: EventCrateCreated, Crate: crate.Clone()})
	return crate.Clone()
}

// BeginRename переводит существующий крейт в режим переименования
func (m *Manager) BeginRename(id string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.indexOfCrate(id) < 0 {
		return false
	}
	m.editingCrate = id
	return true
}

// CancelRename выходит из режима переименования, сохраняя прежнее имя
func (m *Manager) CancelRename() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.editingCrate = ""
}

// RenameCrate переименовывает крейт. Пустое после обрезки пробелов имя
// отклоняется: имя и режим переименования не меняются.
func (m *Manager) RenameCrate(id, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyCrateName
	}

	m.mutex.Lock()
	idx := m.indexOfCrate(id)
	if idx < 0 {
		m.mutex.Unlock()
		return nil
	}
	oldName := m.crates[idx].Name
	m.crates[idx].Name = trimmed
	if m.editingCrate == id {
		m.editingCrate = ""
	}
	crate := m.crates[idx].Clone()
	m.mutex.Unlock()

	if oldName != trimmed {
		m.emit(Event{Kind: EventCrateRenamed, Crate: crate, OldName: oldName})
	}
	return nil
}

// DeleteCrate удаляет крейт, не затрагивая треки и другие крейты
func (m *Manager) DeleteCrate(id string) {
	m.mutex.Lock()
	idx := m.indexOfCrate(id)
	if idx < 0 {
		m.mutex.Unlock()
		return
	}
	crate := m.crates[idx]
	m.crates = append(m.crates[:idx:idx], m.crates[idx+1:]...)
	if m.editingCrate == id {
		m.editingCrate = ""
	}
	m.mutex.Unlock()

	m.logger.Info("Удален крейт", zap.String("crate_id", id))
	m.emit(Event{Kind: EventCrateDeleted, Crate: crate})
}

// AddToCrate добавляет трек в крейт. Повторное добавление и неизвестные ID ничего не делают.
func (m *Manager) AddToCrate(trackID, crateID string) bool {
	m.mutex.Lock()
	crateIdx := m.indexOfCrate(crateID)
	trackIdx := indexOfTrack(m.catalog, trackID)
	if crateIdx < 0 || trackIdx < 0 || m.crates[crateIdx].Contains(trackID) {
		m.mutex.Unlock()
		return false
	}
	m.crates[crateIdx].Tracks = append(m.crates[crateIdx].Tracks, trackID)
	event := Event{Kind: EventCrateTrackAdded, Track: m.catalog[trackIdx], Crate: m.crates[crateIdx].Clone()}
	m.mutex.Unlock()

	m.emit(event)
	return true
}

// RemoveFromCrate убирает трек из крейта, если он там есть
func (m *Manager) RemoveFromCrate(crateID, trackID string) bool {
	m.mutex.Lock()
	crateIdx := m.indexOfCrate(crateID)
	if crateIdx < 0 {
		m.mutex.Unlock()
		return false
	}
	crate := &m.crates[crateIdx]
	idx := -1
	for i, id := range crate.Tracks {
		if id == trackID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mutex.Unlock()
		return false
	}
	crate.Tracks = append(crate.Tracks[:idx:idx], crate.Tracks[idx+1:]...)
	event := Event{Kind: EventCrateTrackRemoved, Crate: crate.Clone()}
	if i := indexOfTrack(m.catalog, trackID); i >= 0 {
		event.Track = m.catalog[i]
	}
	m.mutex.Unlock()

	m.emit(event)
	return true
}

// DeleteTrack удаляет трек из каталога, эфира и всех крейтов
func (m *Manager) DeleteTrack(id string) (data.Track, bool) {
	m.mutex.Lock()
	idx := indexOfTrack(m.catalog, id)
	if idx < 0 {
		m.mutex.Unlock()
		return data.Track{}, false
	}
	track := m.catalog[idx]
	m.catalog = removeAt(m.catalog, idx)

	if p := indexOfTrack(m.playlist, id); p >= 0 {
		m.playlist = removeAt(m.playlist, p)
	}
	for i := range m.crates {
		tracks := m.crates[i].Tracks[:0:0]
		for _, trackID := range m.crates[i].Tracks {
			if trackID != id {
				tracks = append(tracks, trackID)
			}
		}
		m.crates[i].Tracks = tracks
	}
	delete(m.undo, id)
	m.mutex.Unlock()

	m.logger.Info("Удален трек", zap.String("track_id", id), zap.String("title", track.Title))
	m.emit(Event{Kind: EventTrackDeleted, Track: track})
	return track, true
}

func (m *Manager) indexOfCrate(id string) int {
	for i, c := range m.crates {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func indexOfTrack(tracks []data.Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func cloneTracks(tracks []data.Track) []data.Track {
	result := make([]data.Track, len(tracks))
	copy(result, tracks)
	return result
}

// removeAt и insertAt всегда создают новый срез, ранее выданные копии не меняются
func removeAt(tracks []data.Track, idx int) []data.Track {
	result := make([]data.Track, 0, len(tracks)-1)
	result = append(result, tracks[:idx]...)
	return append(result, tracks[idx+1:]...)
}

func insertAt(tracks []data.Track, idx int, track data.Track) []data.Track {
	result := make([]data.Track, 0, len(tracks)+1)
	result = append(result, tracks[:idx]...)
	result = append(result, track)
	return append(result, tracks[idx:]...)
}
