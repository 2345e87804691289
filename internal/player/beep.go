package player

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/streaming"
)

const streamBufferSize = 256 * 1024 // 256KB буфер

// Resolver сопоставляет локатор с путем к локальному файлу (например, для превью загрузки)
type Resolver interface {
	Resolve(locator string) (string, bool)
}

// BeepEngine воспроизводит MP3 через системные динамики
type BeepEngine struct {
	logger   *zap.Logger
	resolver Resolver

	mutex         sync.Mutex
	isInitialized bool
	sampleRate    beep.SampleRate
}

// NewBeepEngine создает движок воспроизведения. resolver может быть nil.
func NewBeepEngine(logger *zap.Logger, resolver Resolver) *BeepEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BeepEngine{logger: logger, resolver: resolver}
}

// Open открывает ресурс и подготавливает его к воспроизведению на паузе
func (e *BeepEngine) Open(ctx context.Context, locator string) (Media, error) {
	source := e.sourceFor(locator)

	streamer, format, seekable, err := source(ctx)
	if err != nil {
		return nil, err
	}

	if err := e.initSpeaker(format); err != nil {
		streamer.Close()
		return nil, err
	}

	m := &beepMedia{
		engine:   e,
		ctx:      ctx,
		source:   source,
		seekable: seekable,
		level:    DefaultVolume,
		done:     make(chan struct{}, 1),
	}
	m.bind(streamer, format)
	return m, nil
}

// sourceFunc открывает декодер заново; закрытие декодера закрывает и исходный поток
type sourceFunc func(ctx context.Context) (beep.StreamSeekCloser, beep.Format, bool, error)

func (e *BeepEngine) sourceFor(locator string) sourceFunc {
	path := locator
	if e.resolver != nil {
		if resolved, ok := e.resolver.Resolve(locator); ok {
			path = resolved
		}
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return func(ctx context.Context) (beep.StreamSeekCloser, beep.Format, bool, error) {
			reader, err := streaming.NewReader(ctx, path, streamBufferSize)
			if err != nil {
				return nil, beep.Format{}, false, fmt.Errorf("ошибка создания потокового ридера: %w", err)
			}
			streamer, format, err := mp3.Decode(reader)
			if err != nil {
				reader.Close()
				return nil, beep.Format{}, false, fmt.Errorf("ошибка декодирования MP3: %w", err)
			}
			return streamer, format, false, nil
		}
	}

	path = strings.TrimPrefix(path, "file://")
	return func(context.Context) (beep.StreamSeekCloser, beep.Format, bool, error) {
		file, err := os.Open(path)
		if err != nil {
			return nil, beep.Format{}, false, fmt.Errorf("ошибка открытия файла: %w", err)
		}
		streamer, format, err := mp3.Decode(file)
		if err != nil {
			file.Close()
			return nil, beep.Format{}, false, fmt.Errorf("ошибка декодирования MP3: %w", err)
		}
		return streamer, format, true, nil
	}
}

// initSpeaker инициализирует динамики один раз, по частоте первого трека
func (e *BeepEngine) initSpeaker(format beep.Format) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.isInitialized {
		return nil
	}
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/5)); err != nil {
		return fmt.Errorf("ошибка инициализации динамиков: %w", err)
	}
	e.sampleRate = format.SampleRate
	e.isInitialized = true
	e.logger.Debug("Динамики инициализированы", zap.Int("sample_rate", int(format.SampleRate)))
	return nil
}

// beepMedia один открытый трек: декодер, контроллер паузы и регулятор громкости
type beepMedia struct {
	engine   *BeepEngine
	ctx      context.Context
	source   sourceFunc
	seekable bool

	mutex    sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	closed   bool

	// queued истинно, пока поток находится в микшере динамиков;
	// epoch отличает последовательность текущего декодера от замененных
	queued atomic.Bool
	epoch  atomic.Uint64
	done   chan struct{}
}

func (m *beepMedia) bind(streamer beep.StreamSeekCloser, format beep.Format) {
	m.streamer = streamer
	m.format = format

	var s beep.Streamer = streamer
	if format.SampleRate != m.engine.sampleRate {
		s = beep.Resample(4, format.SampleRate, m.engine.sampleRate, streamer)
	}
	m.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	m.volume = &effects.Volume{Streamer: m.ctrl, Base: 2}
	m.applyVolume()
}

func (m *beepMedia) Duration() time.Duration {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	length := m.streamer.Len()
	if length <= 0 {
		return 0
	}
	return m.format.SampleRate.D(length)
}

func (m *beepMedia) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return fmt.Errorf("ресурс закрыт")
	}

	speaker.Lock()
	m.ctrl.Paused = false
	speaker.Unlock()

	m.enqueue()
	return nil
}

// enqueue ставит поток в микшер, если он еще не там
func (m *beepMedia) enqueue() {
	if !m.queued.CompareAndSwap(false, true) {
		return
	}
	epoch := m.epoch.Load()
	speaker.Play(beep.Seq(m.volume, beep.Callback(func() {
		if m.epoch.Load() != epoch {
			return
		}
		m.queued.Store(false)
		// Уведомляем о завершении воспроизведения
		select {
		case m.done <- struct{}{}:
		default:
		}
	})))
}

func (m *beepMedia) Pause() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	speaker.Lock()
	m.ctrl.Paused = true
	speaker.Unlock()
}

func (m *beepMedia) Seek(position time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return nil
	}

	if m.seekable {
		speaker.Lock()
		defer speaker.Unlock()
		sample := m.format.SampleRate.N(position)
		sample = max(0, min(sample, m.streamer.Len()-1))
		if err := m.streamer.Seek(sample); err != nil {
			return fmt.Errorf("ошибка перемотки: %w", err)
		}
		return nil
	}

	// Сетевой поток можно только переоткрыть с начала
	if position != 0 {
		return ErrNotSeekable
	}
	return m.reopenLocked()
}

func (m *beepMedia) reopenLocked() error {
	streamer, format, _, err := m.source(m.ctx)
	if err != nil {
		return err
	}

	wasQueued := m.queued.Load()

	speaker.Lock()
	m.epoch.Add(1)
	paused := m.ctrl.Paused
	oldStreamer := m.streamer
	// Старая последовательность уходит из микшера на следующем проходе
	m.ctrl.Streamer = nil
	m.bind(streamer, format)
	m.ctrl.Paused = paused
	speaker.Unlock()

	oldStreamer.Close()

	m.queued.Store(false)
	if wasQueued {
		m.enqueue()
	}
	return nil
}

func (m *beepMedia) SetVolume(level float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.level = level
	speaker.Lock()
	m.applyVolume()
	speaker.Unlock()
}

// applyVolume переводит линейную громкость [0, 1] в логарифмическую шкалу effects.Volume
func (m *beepMedia) applyVolume() {
	if m.level <= 0 {
		m.volume.Silent = true
		return
	}
	m.volume.Silent = false
	m.volume.Volume = math.Log2(m.level)
}

func (m *beepMedia) Position() time.Duration {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	speaker.Lock()
	defer speaker.Unlock()
	return m.format.SampleRate.D(m.streamer.Position())
}

func (m *beepMedia) Done() <-chan struct{} {
	return m.done
}

func (m *beepMedia) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	// Убираем только свой поток, не трогая остальные в микшере
	speaker.Lock()
	m.epoch.Add(1)
	m.ctrl.Streamer = nil
	speaker.Unlock()

	return m.streamer.Close()
}
