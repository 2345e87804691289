package server

import (
	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/utils"
)

// StatusView представление статуса плеера для клиентов
type StatusView struct {
	State     string      `json:"state"`
	Track     *data.Track `json:"track,omitempty"`
	Locator   string      `json:"locator,omitempty"`
	IsPlaying bool        `json:"isPlaying"`
	IsLoading bool        `json:"isLoading"`
	Position  float64     `json:"position"` // секунды
	Duration  float64     `json:"duration"` // секунды, 0 если неизвестна
	Elapsed   string      `json:"elapsed"`
	Total     string      `json:"total"`
	Volume    float64     `json:"volume"`
	Muted     bool        `json:"muted"`
	Ended     bool        `json:"ended,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// NewStatusView собирает представление из обновления сессии
func NewStatusView(update session.Update) StatusView {
	status := update.Status
	view := StatusView{
		State:     status.State.String(),
		Track:     update.Current,
		Locator:   status.Locator,
		IsPlaying: status.IsPlaying,
		IsLoading: status.IsLoading,
		Position:  status.Current.Seconds(),
		Duration:  status.Total.Seconds(),
		Elapsed:   utils.FormatClock(status.Current),
		Total:     utils.FormatClock(status.Total),
		Volume:    status.Volume,
		Muted:     status.Muted,
		Ended:     update.Ended,
	}
	if update.Err != nil {
		view.Error = update.Err.Error()
	}
	return view
}

func statusOf(s *session.Session) StatusView {
	update := session.Update{Status: s.Transport().Status()}
	if track, ok := s.Current(); ok {
		update.Current = &track
	}
	return NewStatusView(update)
}

// CrateView крейт с разрешенными треками
type CrateView struct {
	data.Crate
	Count      int          `json:"count"`
	TrackItems []data.Track `json:"trackItems,omitempty"`
	Editing    bool         `json:"editing"`
}

// TrackView трек с признаком участия в эфире
type TrackView struct {
	data.Track
	InPlaylist bool `json:"inPlaylist"`
}

func trackViews(tracks []data.Track, inPlaylist func(string) bool) []TrackView {
	views := make([]TrackView, len(tracks))
	for i, t := range tracks {
		views[i] = TrackView{Track: t, InPlaylist: inPlaylist(t.ID)}
	}
	return views
}
