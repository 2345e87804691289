// Package session связывает библиотеку с транспортом: текущий трек,
// удаление с остановкой воспроизведения и раскладка экрана
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/player"
)

// ErrTrackNotFound трек отсутствует в каталоге
var ErrTrackNotFound = errors.New("трек не найден")

// ErrNoAudio у трека нет адреса воспроизведения
var ErrNoAudio = errors.New("у трека нет аудио")

// Storage удаляет сохраненные объекты треков
type Storage interface {
	KeyForURL(url string) (string, bool)
	DeleteFile(ctx context.Context, key string) error
}

// Update изменение состояния плеера для подписчиков
type Update struct {
	Status  player.Status
	Current *data.Track // nil, если плеер закрыт
	Ended   bool        // трек доиграл до конца
	Err     error
}

// Listener получает обновления плеера
type Listener func(Update)

// Session хранит текущий трек и управляет транспортом
type Session struct {
	library   *library.Manager
	transport *player.Transport
	storage   Storage
	logger    *zap.Logger

	mutex     sync.RWMutex
	current   *data.Track
	listeners []Listener
}

// New создает сессию. storage может быть nil.
func New(lib *library.Manager, transport *player.Transport, storage Storage, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		library:   lib,
		transport: transport,
		storage:   storage,
		logger:    logger,
	}
	lib.Subscribe(s.handleLibraryEvent)
	return s
}

// Library возвращает библиотеку сессии
func (s *Session) Library() *library.Manager {
	return s.library
}

// Transport возвращает транспорт сессии
func (s *Session) Transport() *player.Transport {
	return s.transport
}

// Subscribe регистрирует получателя обновлений плеера
func (s *Session) Subscribe(listener Listener) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Current возвращает текущий трек
func (s *Session) Current() (data.Track, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.current == nil {
		return data.Track{}, false
	}
	return *s.current, true
}

// Play делает трек текущим и запускает его. Повторный вызов для текущего
// трека продолжает воспроизведение без перезагрузки.
func (s *Session) Play(trackID string) error {
	track, ok := s.library.Track(trackID)
	if !ok {
		return ErrTrackNotFound
	}
	if track.AudioURL == "" {
		return ErrNoAudio
	}

	if current, ok := s.Current(); ok && current.ID == track.ID {
		switch s.transport.Status().State {
		case player.StateReadyPaused:
			s.transport.PlayPause()
			return nil
		case player.StateReadyPlaying, player.StateLoading:
			return nil
		}
	}

	s.mutex.Lock()
	s.current = &track
	s.mutex.Unlock()

	s.logger.Info("Воспроизведение трека", zap.String("track_id", track.ID), zap.String("title", track.Title))
	s.transport.Load(track.AudioURL)
	// Запрос откладывается до получения метаданных
	s.transport.PlayPause()
	s.broadcast(Update{Status: s.transport.Status(), Current: &track})
	return nil
}

// LoadPreview загружает превью без запуска; текущий трек закрывается
func (s *Session) LoadPreview(locator string) {
	s.mutex.Lock()
	s.current = nil
	s.mutex.Unlock()

	s.transport.Load(locator)
	s.broadcast(Update{Status: s.transport.Status()})
}

// TogglePlayback переключает паузу текущего ресурса
func (s *Session) TogglePlayback() {
	s.transport.PlayPause()
}

// ClosePlayer останавливает воспроизведение и сбрасывает текущий трек
func (s *Session) ClosePlayer() {
	s.mutex.Lock()
	s.current = nil
	s.mutex.Unlock()

	s.transport.Stop()
	s.broadcast(Update{Status: s.transport.Status()})
}

// DeleteTrack удаляет трек из библиотеки и объект из хранилища.
// Ошибка хранилища не отменяет удаление из библиотеки.
func (s *Session) DeleteTrack(ctx context.Context, trackID string) (data.Track, error) {
	track, ok := s.library.DeleteTrack(trackID)
	if !ok {
		return data.Track{}, ErrTrackNotFound
	}

	if s.storage != nil {
		if key, ok := s.storage.KeyForURL(track.AudioURL); ok {
			if err := s.storage.DeleteFile(ctx, key); err != nil {
				s.logger.Warn("Не удалось удалить файл из хранилища", zap.String("key", key), zap.Error(err))
				return track, err
			}
		}
	}
	return track, nil
}

// handleLibraryEvent закрывает плеер, если удален текущий трек
func (s *Session) handleLibraryEvent(event library.Event) {
	if event.Kind != library.EventTrackDeleted {
		return
	}
	s.mutex.RLock()
	isCurrent := s.current != nil && s.current.ID == event.Track.ID
	s.mutex.RUnlock()

	if isCurrent {
		s.ClosePlayer()
	}
}

// Layout возвращает раскладку экрана для текущего состояния
func (s *Session) Layout(isMobile bool) Layout {
	_, hasCurrent := s.Current()
	return ComputeLayout(hasCurrent, isMobile)
}

// Run пересылает события транспорта подписчикам до отмены контекста
// или закрытия транспорта
func (s *Session) Run(ctx context.Context) {
	progress := s.transport.Progress()
	done := s.transport.Done()
	errs := s.transport.Errors()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-progress:
			if !ok {
				return
			}
			s.broadcast(Update{Status: status, Current: s.currentPtr()})
		case _, ok := <-done:
			if !ok {
				return
			}
			s.broadcast(Update{Status: s.transport.Status(), Current: s.currentPtr(), Ended: true})
		case err, ok := <-errs:
			if !ok {
				return
			}
			s.broadcast(Update{Status: s.transport.Status(), Current: s.currentPtr(), Err: err})
		}
	}
}

func (s *Session) currentPtr() *data.Track {
	if track, ok := s.Current(); ok {
		return &track
	}
	return nil
}

func (s *Session) broadcast(update Update) {
	s.mutex.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mutex.RUnlock()

	for _, listener := range listeners {
		listener(update)
	}
}
