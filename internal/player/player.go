// Package player содержит транспорт воспроизведения: загрузку, паузу,
// перемотку, громкость и отслеживание позиции
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultVolume начальная громкость транспорта
	DefaultVolume = 0.7
	// DefaultTick период опроса позиции
	DefaultTick = 250 * time.Millisecond
	// FallbackSeekRange верхняя граница перемотки, когда длительность неизвестна
	FallbackSeekRange = 100 * time.Second
)

// State состояние транспорта
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReadyPaused
	StateReadyPlaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReadyPaused:
		return "paused"
	case StateReadyPlaying:
		return "playing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status представляет текущий статус транспорта
type Status struct {
	State     State
	Locator   string        // Загруженный ресурс
	IsPlaying bool          // Воспроизводится ли трек
	IsLoading bool          // Идет ли загрузка метаданных
	Current   time.Duration // Текущая позиция
	Total     time.Duration // Общая продолжительность, 0 если неизвестна
	Volume    float64       // Установленная громкость [0, 1]
	Muted     bool
	Stalls    int // Сколько тиков подряд позиция не двигалась во время воспроизведения
}

// EffectiveVolume громкость с учетом mute
func (s Status) EffectiveVolume() float64 {
	if s.Muted {
		return 0
	}
	return s.Volume
}

// Transport управляет одним аудио ресурсом за раз
type Transport struct {
	engine Engine
	logger *zap.Logger
	tick   time.Duration

	// Каналы для обратной связи
	progressChan chan Status
	doneChan     chan bool
	errChan      chan error

	ctx    context.Context
	cancel context.CancelFunc
	mutex  sync.RWMutex
	closed bool

	// generation увеличивается при каждой загрузке и остановке,
	// результаты устаревших загрузок отбрасываются
	generation  uint64
	loadCancel  context.CancelFunc
	media       Media
	state       State
	locator     string
	current     time.Duration
	total       time.Duration
	volume      float64
	muted       bool
	pendingPlay bool
	stalls      int

	// startMutex упорядочивает запуски движка; startSeq отличает
	// последний запрос воспроизведения от устаревших
	startMutex sync.Mutex
	startSeq   uint64
}

// NewTransport создает транспорт поверх движка. tick <= 0 означает DefaultTick.
func NewTransport(engine Engine, logger *zap.Logger, tick time.Duration) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		engine:       engine,
		logger:       logger,
		tick:         tick,
		progressChan: make(chan Status, 1),
		doneChan:     make(chan bool, 1),
		errChan:      make(chan error, 4),
		ctx:          ctx,
		cancel:       cancel,
		volume:       DefaultVolume,
	}
}

// Progress возвращает канал обновлений статуса. Медленный читатель
// получает только последнее значение.
func (t *Transport) Progress() <-chan Status {
	return t.progressChan
}

// Done возвращает канал, в который приходит сигнал о завершении трека
func (t *Transport) Done() <-chan bool {
	return t.doneChan
}

// Errors возвращает канал ошибок загрузки и воспроизведения
func (t *Transport) Errors() <-chan error {
	return t.errChan
}

// Status возвращает снимок текущего состояния
func (t *Transport) Status() Status {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.statusLocked()
}

// IsPlaying возвращает true, если трек воспроизводится
func (t *Transport) IsPlaying() bool {
	return t.Status().IsPlaying
}

// Load останавливает текущее воспроизведение и начинает загрузку нового ресурса.
// Метаданные загружаются асинхронно.
func (t *Transport) Load(locator string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return
	}

	t.stopLocked()
	t.state = StateLoading
	t.locator = locator

	ctx, cancel := context.WithCancel(t.ctx)
	t.loadCancel = cancel
	gen := t.generation

	t.logger.Debug("Загрузка ресурса", zap.String("locator", locator))
	t.publishLocked()

	go t.open(ctx, gen, locator)
}

func (t *Transport) open(ctx context.Context, gen uint64, locator string) {
	media, err := t.engine.Open(ctx, locator)

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed || gen != t.generation {
		if media != nil {
			_ = media.Close()
		}
		return
	}

	if err != nil {
		t.state = StateError
		t.pendingPlay = false
		t.emitErrorLocked(fmt.Errorf("ошибка загрузки %s: %w", locator, err))
		t.publishLocked()
		return
	}

	t.media = media
	t.total = media.Duration()
	if t.total < 0 {
		t.total = 0
	}
	media.SetVolume(t.effectiveVolumeLocked())
	t.state = StateReadyPaused

	go t.monitorProgress(gen, media)

	if t.pendingPlay {
		t.pendingPlay = false
		t.startLocked()
	}
	t.publishLocked()
}

// PlayPause переключает воспроизведение. Во время загрузки запрос
// откладывается до получения метаданных, повторный вызов его отменяет.
func (t *Transport) PlayPause() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	switch t.state {
	case StateLoading:
		t.pendingPlay = !t.pendingPlay
	case StateReadyPaused:
		t.startLocked()
	case StateReadyPlaying:
		t.media.Pause()
		t.state = StateReadyPaused
		t.stalls = 0
	default:
		return
	}
	t.publishLocked()
}

// startLocked переводит транспорт в воспроизведение и запускает движок в отдельной горутине
func (t *Transport) startLocked() {
	t.state = StateReadyPlaying
	t.startSeq++
	go t.runStart(t.generation, t.startSeq, t.media)
}

// startCurrentLocked сообщает, что запрос воспроизведения seq все еще актуален
func (t *Transport) startCurrentLocked(gen, seq uint64) bool {
	return !t.closed && gen == t.generation && seq == t.startSeq && t.state == StateReadyPlaying
}

// runStart запускает движок. Запуск, устаревший к моменту вызова, пропускается;
// устаревший после возврата Start ставится на паузу, чтобы звук не шел
// при остановленном транспорте.
func (t *Transport) runStart(gen, seq uint64, media Media) {
	t.startMutex.Lock()
	defer t.startMutex.Unlock()

	t.mutex.RLock()
	current := t.startCurrentLocked(gen, seq)
	t.mutex.RUnlock()
	if !current {
		return
	}

	err := media.Start()

	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed || gen != t.generation {
		return
	}
	if !t.startCurrentLocked(gen, seq) {
		if err == nil {
			media.Pause()
		}
		return
	}
	if err != nil {
		t.state = StateReadyPaused
		t.emitErrorLocked(fmt.Errorf("ошибка запуска воспроизведения: %w", err))
		t.publishLocked()
	}
}

// Seek перематывает в позицию, ограниченную диапазоном [0, Total] (или [0, 100s]
// при неизвестной длительности). Позиция обновляется сразу.
func (t *Transport) Seek(target time.Duration) {
	t.mutex.Lock()
	if t.media == nil || t.closed {
		t.mutex.Unlock()
		return
	}

	upper := t.total
	if upper <= 0 {
		upper = FallbackSeekRange
	}
	target = max(0, min(target, upper))
	t.current = target
	t.stalls = 0
	media := t.media
	gen := t.generation
	t.publishLocked()
	t.mutex.Unlock()

	if err := media.Seek(target); err != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		if gen == t.generation && !t.closed {
			t.emitErrorLocked(fmt.Errorf("ошибка перемотки: %w", err))
		}
	}
}

// SetVolume устанавливает громкость в диапазоне [0, 1].
// Ненулевая громкость снимает mute.
func (t *Transport) SetVolume(level float64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.volume = max(0, min(level, 1))
	if t.volume > 0 && t.muted {
		t.muted = false
	}
	t.applyVolumeLocked()
	t.publishLocked()
}

// ToggleMute включает или выключает звук, сохраняя установленную громкость
func (t *Transport) ToggleMute() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.muted = !t.muted
	t.applyVolumeLocked()
	t.publishLocked()
}

// Stop освобождает ресурс и возвращает транспорт в Idle
func (t *Transport) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return
	}
	t.stopLocked()
	t.publishLocked()
}

// Close останавливает транспорт и закрывает каналы
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return nil
	}

	t.stopLocked()
	t.cancel()
	t.closed = true
	close(t.progressChan)
	close(t.doneChan)
	close(t.errChan)
	return nil
}

// stopLocked внутренний метод остановки (должен вызываться под мьютексом)
func (t *Transport) stopLocked() {
	t.generation++

	if t.loadCancel != nil {
		t.loadCancel()
		t.loadCancel = nil
	}
	if t.media != nil {
		if err := t.media.Close(); err != nil {
			t.logger.Warn("Ошибка закрытия ресурса", zap.Error(err))
		}
		t.media = nil
	}

	t.state = StateIdle
	t.locator = ""
	t.current = 0
	t.total = 0
	t.stalls = 0
	t.pendingPlay = false
}

func (t *Transport) effectiveVolumeLocked() float64 {
	if t.muted {
		return 0
	}
	return t.volume
}

func (t *Transport) applyVolumeLocked() {
	if t.media != nil {
		t.media.SetVolume(t.effectiveVolumeLocked())
	}
}

func (t *Transport) statusLocked() Status {
	return Status{
		State:     t.state,
		Locator:   t.locator,
		IsPlaying: t.state == StateReadyPlaying,
		IsLoading: t.state == StateLoading,
		Current:   t.current,
		Total:     t.total,
		Volume:    t.volume,
		Muted:     t.muted,
		Stalls:    t.stalls,
	}
}

// publishLocked отправляет статус без блокировки, вытесняя непрочитанное значение
func (t *Transport) publishLocked() {
	if t.closed {
		return
	}
	status := t.statusLocked()
	select {
	case <-t.progressChan:
	default:
	}
	select {
	case t.progressChan <- status:
	default:
	}
}

func (t *Transport) emitErrorLocked(err error) {
	t.logger.Error("Ошибка воспроизведения", zap.Error(err))
	if t.closed {
		return
	}
	select {
	case t.errChan <- err:
	default:
		// Если канал заполнен, пропускаем ошибку
	}
}

// monitorProgress опрашивает позицию, пока ресурс текущего поколения привязан
func (t *Transport) monitorProgress(gen uint64, media Media) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	lastPosition := time.Duration(-1)
	done := media.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		case _, ok := <-done:
			if !ok {
				// Закрытый канал сигнализирует о конце только один раз
				done = nil
			}
			if !t.handleEnded(gen) {
				return
			}
			lastPosition = -1
		case <-ticker.C:
			if !t.sample(gen, media, &lastPosition) {
				return
			}
		}
	}
}

func (t *Transport) sample(gen uint64, media Media, lastPosition *time.Duration) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if gen != t.generation || t.closed {
		return false
	}
	if t.state != StateReadyPlaying {
		t.stalls = 0
		*lastPosition = -1
		return true
	}

	// Проверяем, не застрял ли поток
	position := media.Position()
	if position == *lastPosition {
		t.stalls++
	} else {
		t.stalls = 0
	}
	*lastPosition = position
	t.current = position

	t.publishLocked()
	return true
}

// handleEnded переводит транспорт на паузу в начало трека без перехода к следующему
func (t *Transport) handleEnded(gen uint64) bool {
	t.mutex.Lock()
	if gen != t.generation || t.closed {
		t.mutex.Unlock()
		return false
	}

	t.state = StateReadyPaused
	t.current = 0
	t.stalls = 0
	media := t.media

	select {
	case t.doneChan <- true:
	default:
	}
	t.publishLocked()
	t.mutex.Unlock()

	if err := media.Seek(0); err != nil {
		t.logger.Debug("Не удалось вернуться в начало трека", zap.Error(err))
	}
	return true
}
