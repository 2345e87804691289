package player

import (
	"context"
	"errors"
	"time"
)

// ErrNotSeekable возвращается, если источник не поддерживает перемотку
var ErrNotSeekable = errors.New("источник не поддерживает перемотку")

// Media открытый аудио ресурс. Методы вызываются транспортом и должны
// быть безопасны для вызова из разных горутин.
type Media interface {
	// Duration возвращает длительность или 0, если она неизвестна
	Duration() time.Duration
	// Start начинает или продолжает воспроизведение; может блокироваться на буферизации
	Start() error
	Pause()
	Seek(position time.Duration) error
	// SetVolume устанавливает громкость в диапазоне [0, 1]
	SetVolume(level float64)
	Position() time.Duration
	// Done отдает по значению при каждом достижении конца трека и не
	// закрывается: после перемотки в начало трек можно доиграть снова
	Done() <-chan struct{}
	Close() error
}

// Engine открывает аудио ресурсы по локатору: URL, локальному пути или дескриптору превью
type Engine interface {
	Open(ctx context.Context, locator string) (Media, error)
}
