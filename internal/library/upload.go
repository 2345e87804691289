package library

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/metadata"
	"github.com/hazadus/go-broadcast/internal/utils"
)

// ErrNoValidFiles возвращается, если среди выбранных файлов нет аудио
var ErrNoValidFiles = errors.New("среди выбранных файлов нет аудио")

// File выбранный для загрузки файл
type File struct {
	Name     string
	MIMEType string
	Path     string        // Локальный путь к содержимому
	URL      string        // Адрес воспроизведения после загрузки в хранилище, если есть
	Duration time.Duration // Длительность, определенная по превью; 0 если неизвестна
}

// Form поля формы загрузки; пустые поля заполняются по имени файла
type Form struct {
	Title  string
	Artist string
}

// AudioFiles оставляет только файлы с MIME типом audio/*
func AudioFiles(files []File) []File {
	result := make([]File, 0, len(files))
	for _, f := range files {
		if metadata.IsAudio(f.MIMEType) {
			result = append(result, f)
		}
	}
	return result
}

// UploadTracks создает треки из аудио файлов и добавляет их в начало каталога и эфира
// в порядке выбора. Без единого аудио файла возвращает ErrNoValidFiles и ничего не меняет.
func (m *Manager) UploadTracks(files []File, form Form) ([]data.Track, error) {
	accepted := AudioFiles(files)
	if len(accepted) == 0 {
		return nil, ErrNoValidFiles
	}

	formTitle := strings.TrimSpace(form.Title)
	formArtist := strings.TrimSpace(form.Artist)

	tracks := make([]data.Track, 0, len(accepted))
	for i, f := range accepted {
		inferred := metadata.InferFromFilename(f.Name)

		title := inferred.Title
		if formTitle != "" {
			title = formTitle
			if i > 0 {
				title = fmt.Sprintf("%s (%d)", formTitle, i+1)
			}
		}
		artist := inferred.Artist
		if formArtist != "" {
			artist = formArtist
		}
		if artist == "" {
			artist = metadata.UnknownArtist
		}

		duration := data.DefaultDuration
		if f.Duration > 0 {
			duration = utils.FormatClock(f.Duration)
		}

		audioURL := f.URL
		if audioURL == "" {
			audioURL = f.Path
		}

		tracks = append(tracks, data.Track{
			ID:       data.NewID(),
			Title:    title,
			Artist:   artist,
			Duration: duration,
			AudioURL: audioURL,
		})
	}

	m.mutex.Lock()
	m.catalog = append(cloneTracks(tracks), m.catalog...)
	m.playlist = append(cloneTracks(tracks), m.playlist...)
	m.mutex.Unlock()

	m.logger.Info("Загружены треки", zap.Int("count", len(tracks)), zap.Int("skipped", len(files)-len(accepted)))
	m.emit(Event{Kind: EventTracksUploaded, Tracks: cloneTracks(tracks)})
	return tracks, nil
}
