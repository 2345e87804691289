// Package uploader содержит диалог загрузки: выбор файлов, превью
// и отменяемую отправку в библиотеку
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/metadata"
	"github.com/hazadus/go-broadcast/internal/s3"
)

var (
	// ErrMissingFields не заполнены обязательные поля формы
	ErrMissingFields = errors.New("заполните название, исполнителя и выберите файл")
	// ErrBusy отправка уже выполняется
	ErrBusy = errors.New("загрузка уже выполняется")
)

// DefaultDelay искусственная задержка отправки по умолчанию
const DefaultDelay = 2 * time.Second

// Library принимает загруженные файлы
type Library interface {
	UploadTracks(files []library.File, form library.Form) ([]data.Track, error)
}

// Storage сохраняет содержимое файлов и возвращает адрес воспроизведения
type Storage interface {
	UploadFile(ctx context.Context, reader io.Reader, key, contentType string) (string, error)
}

// Options настройки диалога
type Options struct {
	Delay      time.Duration
	Storage    Storage // nil: файлы воспроизводятся с локального диска
	Logger     *zap.Logger
	OnProgress func(name string, read, total int64)
}

// Dialog состояние диалога загрузки
type Dialog struct {
	library   Library
	previews  *Previews
	extractor *metadata.Extractor
	storage   Storage
	delay     time.Duration
	logger    *zap.Logger
	progress  func(name string, read, total int64)

	mutex   sync.Mutex
	files   []library.File
	form    library.Form
	preview string
	cancel  context.CancelFunc
	// submitSeq меняется при каждой отправке и при Close;
	// отправка с устаревшим номером не фиксируется
	submitSeq uint64
}

// NewDialog создает диалог загрузки
func NewDialog(lib Library, previews *Previews, opts Options) *Dialog {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	return &Dialog{
		library:   lib,
		previews:  previews,
		extractor: metadata.NewExtractor(),
		storage:   opts.Storage,
		delay:     delay,
		logger:    logger,
		progress:  opts.OnProgress,
	}
}

// Select выбирает файлы. Тип определяется по содержимому, остаются только
// аудио файлы; если их нет, выбор отклоняется с library.ErrNoValidFiles.
// Пустая форма заполняется по первому файлу, для него открывается превью.
func (d *Dialog) Select(paths []string) ([]library.File, error) {
	files := make([]library.File, 0, len(paths))
	for _, path := range paths {
		mimeType, err := metadata.DetectMIME(path)
		if err != nil {
			d.logger.Warn("Файл пропущен", zap.String("path", path), zap.Error(err))
			continue
		}
		if !metadata.IsAudio(mimeType) {
			d.logger.Debug("Не аудио файл пропущен", zap.String("path", path), zap.String("mime", mimeType))
			continue
		}

		file := library.File{
			Name:     filepath.Base(path),
			MIMEType: mimeType,
			Path:     path,
		}
		if duration, err := d.extractor.GetDuration(path); err == nil {
			file.Duration = duration
		}
		files = append(files, file)
	}

	if len(files) == 0 {
		return nil, library.ErrNoValidFiles
	}

	suggested := d.extractor.ExtractFromFile(files[0].Path)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.files = files
	if strings.TrimSpace(d.form.Title) == "" && strings.TrimSpace(d.form.Artist) == "" {
		d.form.Title = suggested.Title
		if suggested.Artist != metadata.UnknownArtist {
			d.form.Artist = suggested.Artist
		}
	}

	// Новое превью вытесняет предыдущее
	d.releasePreviewLocked()
	d.preview = d.previews.Open(files[0].Path)

	result := make([]library.File, len(files))
	copy(result, files)
	return result, nil
}

// SetForm задает поля формы
func (d *Dialog) SetForm(form library.Form) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.form = form
}

// Form возвращает текущие поля формы
func (d *Dialog) Form() library.Form {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.form
}

// Files возвращает выбранные файлы
func (d *Dialog) Files() []library.File {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	result := make([]library.File, len(d.files))
	copy(result, d.files)
	return result
}

// Preview возвращает локатор превью первого файла или пустую строку
func (d *Dialog) Preview() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.preview
}

// SetPreviewDuration сохраняет длительность, определенную при загрузке превью в транспорт
func (d *Dialog) SetPreviewDuration(locator string, duration time.Duration) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if locator == "" || locator != d.preview || len(d.files) == 0 || duration <= 0 {
		return
	}
	d.files[0].Duration = duration
}

// Submitting сообщает, выполняется ли отправка
func (d *Dialog) Submitting() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.cancel != nil
}

// Submit проверяет форму и отправляет файлы: задержка, загрузка в хранилище
// (если задано), добавление в библиотеку. Отмена контекста или Close
// прерывают отправку без изменений библиотеки.
func (d *Dialog) Submit(ctx context.Context) ([]data.Track, error) {
	d.mutex.Lock()
	if d.cancel != nil {
		d.mutex.Unlock()
		return nil, ErrBusy
	}
	form := library.Form{
		Title:  strings.TrimSpace(d.form.Title),
		Artist: strings.TrimSpace(d.form.Artist),
	}
	if form.Title == "" || form.Artist == "" || len(d.files) == 0 {
		d.mutex.Unlock()
		return nil, ErrMissingFields
	}
	files := make([]library.File, len(d.files))
	copy(files, d.files)

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.submitSeq++
	seq := d.submitSeq
	d.mutex.Unlock()

	defer func() {
		d.mutex.Lock()
		if d.submitSeq == seq {
			d.cancel = nil
		}
		d.mutex.Unlock()
		cancel()
	}()

	if err := wait(ctx, d.delay); err != nil {
		return nil, err
	}

	if d.storage != nil {
		for i := range files {
			url, err := d.store(ctx, files[i])
			if err != nil {
				return nil, err
			}
			files[i].URL = url
		}
	}

	tracks, err := d.commit(ctx, seq, files, form)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Отправка завершена", zap.Int("tracks", len(tracks)))
	return tracks, nil
}

// commit добавляет файлы в библиотеку под мьютексом диалога: Close либо
// успевает до проверки и библиотека не меняется, либо ждет завершения
func (d *Dialog) commit(ctx context.Context, seq uint64, files []library.File, form library.Form) ([]data.Track, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.submitSeq != seq {
		return nil, context.Canceled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracks, err := d.library.UploadTracks(files, form)
	if err != nil {
		return nil, err
	}
	d.resetLocked()
	return tracks, nil
}

func (d *Dialog) store(ctx context.Context, file library.File) (string, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if d.progress != nil {
		var size int64
		if stat, err := f.Stat(); err == nil {
			size = stat.Size()
		}
		reader = &ProgressReader{
			Reader: f,
			Size:   size,
			OnProgress: func(read, total int64) {
				d.progress(file.Name, read, total)
			},
		}
	}

	key := s3.ObjectKey(data.NewID(), file.Name)
	url, err := d.storage.UploadFile(ctx, reader, key, file.MIMEType)
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки в хранилище: %w", err)
	}
	d.logger.Debug("Файл загружен в хранилище", zap.String("key", key))
	return url, nil
}

// Close закрывает диалог: прерывает отправку, освобождает превью и очищает форму
func (d *Dialog) Close() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.submitSeq++
	d.resetLocked()
}

func (d *Dialog) resetLocked() {
	d.releasePreviewLocked()
	d.files = nil
	d.form = library.Form{}
}

func (d *Dialog) releasePreviewLocked() {
	if d.preview != "" {
		d.previews.Release(d.preview)
		d.preview = ""
	}
}

// wait ждет заданное время или отмену контекста
func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
