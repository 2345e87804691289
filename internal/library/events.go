package library

import "github.com/hazadus/go-broadcast/internal/data"

// EventKind тип изменения библиотеки
type EventKind int

const (
	EventNone EventKind = iota
	EventPlaylistAdded
	EventPlaylistRemoved
	EventPlaylistUndone
	EventTracksUploaded
	EventTrackDeleted
	EventCrateCreated
	EventCrateRenamed
	EventCrateDeleted
	EventCrateTrackAdded
	EventCrateTrackRemoved
)

var eventNames = map[EventKind]string{
	EventNone:              "none",
	EventPlaylistAdded:     "playlist_added",
	EventPlaylistRemoved:   "playlist_removed",
	EventPlaylistUndone:    "playlist_undone",
	EventTracksUploaded:    "tracks_uploaded",
	EventTrackDeleted:      "track_deleted",
	EventCrateCreated:      "crate_created",
	EventCrateRenamed:      "crate_renamed",
	EventCrateDeleted:      "crate_deleted",
	EventCrateTrackAdded:   "crate_track_added",
	EventCrateTrackRemoved: "crate_track_removed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event описывает одно изменение: старое и новое состояние, без текста для пользователя
type Event struct {
	Kind    EventKind
	Track   data.Track   // Затронутый трек
	Tracks  []data.Track // Загруженные треки
	Crate   data.Crate   // Крейт после изменения
	OldName string       // Имя крейта до переименования
	// Undo возвращает состояние до изменения; nil, если отмена невозможна.
	// Вызов после того, как отмена стала недействительной, ничего не делает.
	Undo func() bool
}

// Listener получает события библиотеки. Вызывается вне блокировки библиотеки.
type Listener func(Event)
