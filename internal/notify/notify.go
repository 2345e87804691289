// Package notify содержит уведомления для пользователя: форматирование
// событий библиотеки и реестр действий отмены
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/library"
)

// Level важность уведомления
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Toast уведомление для показа пользователю
type Toast struct {
	ID          string    `json:"id"`
	Level       Level     `json:"level"`
	Message     string    `json:"message"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	ActionID    string    `json:"actionId,omitempty"` // Идентификатор действия в реестре Actions
	CreatedAt   time.Time `json:"createdAt"`
}

// Sink получатель уведомлений. Notify не должен блокироваться.
type Sink interface {
	Notify(toast Toast)
}

// SinkFunc адаптер функции к интерфейсу Sink
type SinkFunc func(Toast)

// Notify вызывает функцию
func (f SinkFunc) Notify(toast Toast) {
	f(toast)
}

// FanOut рассылает уведомления нескольким получателям
type FanOut []Sink

// Notify передает уведомление каждому получателю
func (f FanOut) Notify(toast Toast) {
	for _, sink := range f {
		sink.Notify(toast)
	}
}

// LogSink пишет уведомления в лог
type LogSink struct {
	Logger *zap.Logger
}

// Notify записывает уведомление
func (s LogSink) Notify(toast Toast) {
	if toast.Level == LevelError {
		s.Logger.Warn("Уведомление", zap.String("message", toast.Message))
		return
	}
	s.Logger.Info("Уведомление", zap.String("message", toast.Message))
}

// New создает уведомление с новым ID
func New(level Level, message string) Toast {
	return Toast{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// Error создает уведомление об ошибке
func Error(err error) Toast {
	return New(LevelError, err.Error())
}

// FromEvent формирует уведомление по событию библиотеки. Второе значение
// false означает, что событие не показывается пользователю.
// Действие отмены регистрируется в actions, если оно есть.
func FromEvent(event library.Event, actions *Actions) (Toast, bool) {
	var message string

	switch event.Kind {
	case library.EventPlaylistAdded:
		message = fmt.Sprintf("«%s» добавлен в эфир", event.Track.Title)
	case library.EventPlaylistRemoved:
		message = fmt.Sprintf("«%s» убран из эфира", event.Track.Title)
	case library.EventTracksUploaded:
		if len(event.Tracks) == 1 {
			message = fmt.Sprintf("«%s» (%s) загружен", event.Tracks[0].Title, event.Tracks[0].Artist)
		} else {
			message = fmt.Sprintf("Загружено треков: %d", len(event.Tracks))
		}
	case library.EventTrackDeleted:
		message = "Трек удален"
	case library.EventCrateCreated:
		message = fmt.Sprintf("Крейт «%s» создан", event.Crate.Name)
	case library.EventCrateDeleted:
		message = "Крейт удален"
	case library.EventCrateTrackAdded:
		message = fmt.Sprintf("«%s» добавлен в крейт «%s»", event.Track.Title, event.Crate.Name)
	default:
		return Toast{}, false
	}

	toast := New(LevelInfo, message)
	if event.Undo != nil && actions != nil {
		toast.ActionLabel = "Отменить"
		toast.ActionID = actions.Register(event.Undo)
	}
	return toast, true
}

// DefaultActionsCapacity сколько действий хранит реестр по умолчанию
const DefaultActionsCapacity = 64

// Actions реестр действий отмены, доступных по ID.
// При переполнении вытесняются самые старые действия.
type Actions struct {
	mutex    sync.Mutex
	capacity int
	order    []string
	actions  map[string]func() bool
}

// NewActions создает реестр заданной емкости
func NewActions(capacity int) *Actions {
	if capacity <= 0 {
		capacity = DefaultActionsCapacity
	}
	return &Actions{
		capacity: capacity,
		actions:  make(map[string]func() bool),
	}
}

// Register сохраняет действие и возвращает его ID
func (a *Actions) Register(action func() bool) string {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	id := uuid.NewString()
	a.actions[id] = action
	a.order = append(a.order, id)

	for len(a.order) > a.capacity {
		delete(a.actions, a.order[0])
		a.order = a.order[1:]
	}
	return id
}

// Run выполняет действие один раз. Возвращает false, если действие
// неизвестно или больше не применимо.
func (a *Actions) Run(id string) bool {
	a.mutex.Lock()
	action, ok := a.actions[id]
	if ok {
		delete(a.actions, id)
		for i, existing := range a.order {
			if existing == id {
				a.order = append(a.order[:i:i], a.order[i+1:]...)
				break
			}
		}
	}
	a.mutex.Unlock()

	if !ok {
		return false
	}
	return action()
}

// Len возвращает число хранимых действий
func (a *Actions) Len() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return len(a.actions)
}
