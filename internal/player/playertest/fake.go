// Package playertest содержит поддельный движок воспроизведения для тестов
package playertest

import (
	"context"
	"sync"
	"time"

	"github.com/hazadus/go-broadcast/internal/player"
)

// Engine открывает Media без звука и запоминает запрошенные локаторы
type Engine struct {
	Length time.Duration // Длительность открытых ресурсов, по умолчанию 2 минуты
	Err    error         // Ошибка открытия

	mutex  sync.Mutex
	opened []string
	last   *Media
}

// Open реализует player.Engine
func (e *Engine) Open(ctx context.Context, locator string) (player.Media, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.opened = append(e.opened, locator)
	if e.Err != nil {
		return nil, e.Err
	}

	length := e.Length
	if length == 0 {
		length = 2 * time.Minute
	}
	e.last = &Media{length: length, done: make(chan struct{}, 1)}
	return e.last, nil
}

// Opened возвращает запрошенные локаторы
func (e *Engine) Opened() []string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	result := make([]string, len(e.opened))
	copy(result, e.opened)
	return result
}

// Last возвращает последний открытый ресурс
func (e *Engine) Last() *Media {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.last
}

// Media ресурс, позиция которого меняется только перемоткой
type Media struct {
	length time.Duration
	done   chan struct{}

	mutex    sync.Mutex
	position time.Duration
	volume   float64
	started  bool
	closed   bool
}

func (m *Media) Duration() time.Duration { return m.length }

func (m *Media) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.started = true
	return nil
}

func (m *Media) Pause() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.started = false
}

func (m *Media) Seek(position time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.position = position
	return nil
}

func (m *Media) SetVolume(level float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.volume = level
}

func (m *Media) Position() time.Duration {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.position
}

func (m *Media) Done() <-chan struct{} { return m.done }

func (m *Media) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

// Finish имитирует окончание трека; может вызываться повторно после перезапуска
func (m *Media) Finish() {
	m.mutex.Lock()
	m.started = false
	m.mutex.Unlock()

	select {
	case m.done <- struct{}{}:
	default:
	}
}

// Volume возвращает примененную громкость
func (m *Media) Volume() float64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.volume
}

// Started сообщает, идет ли воспроизведение
func (m *Media) Started() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.started
}

// Closed сообщает, закрыт ли ресурс
func (m *Media) Closed() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.closed
}
