// Package metadata предоставляет функционал для извлечения метаданных из аудио файлов
package metadata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gopxl/beep/mp3"
)

// UnknownArtist подставляется, когда исполнителя не удалось определить
const UnknownArtist = "Unknown Artist"

// separators разделители в именах файлов вида "Artist - Title", "Artist_Title"
var separators = regexp.MustCompile(`[-–—_]`)

// TrackMetadata хранит метаданные трека
type TrackMetadata struct {
	Artist string
	Title  string
	Album  string
}

// FileInfo содержит информацию о файле
type FileInfo struct {
	Size     int64
	Duration time.Duration
	MIMEType string
}

// Extractor извлекает метаданные из аудио файлов
type Extractor struct{}

// NewExtractor создает новый экстрактор метаданных
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFromReader извлекает метаданные из io.Reader.
// Недостающие название и исполнитель берутся из имени файла.
func (e *Extractor) ExtractFromReader(reader io.ReadSeeker, source string) TrackMetadata {
	fallback := InferFromFilename(source)

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return withDefaults(fallback)
	}

	m, err := tag.ReadFrom(reader)
	if err != nil {
		return withDefaults(fallback)
	}

	result := TrackMetadata{
		Artist: strings.TrimSpace(m.Artist()),
		Title:  strings.TrimSpace(m.Title()),
		Album:  strings.TrimSpace(m.Album()),
	}
	if result.Title == "" {
		result.Title = fallback.Title
	}
	if result.Artist == "" {
		result.Artist = fallback.Artist
	}
	return withDefaults(result)
}

// ExtractFromFile извлекает метаданные из файла
func (e *Extractor) ExtractFromFile(filePath string) TrackMetadata {
	file, err := os.Open(filePath)
	if err != nil {
		return withDefaults(InferFromFilename(filePath))
	}
	defer file.Close()

	return e.ExtractFromReader(file, filePath)
}

// GetDuration получает длительность MP3 файла
func (e *Extractor) GetDuration(filePath string) (time.Duration, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	streamer, format, err := mp3.Decode(file)
	if err != nil {
		return 0, fmt.Errorf("ошибка декодирования MP3: %w", err)
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// GetFileInfo получает информацию о файле: размер, тип и длительность.
// Неизвестная длительность не считается ошибкой и остается нулевой.
func (e *Extractor) GetFileInfo(filePath string) (*FileInfo, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	mimeType, err := DetectMIME(filePath)
	if err != nil {
		return nil, err
	}

	info := &FileInfo{
		Size:     stat.Size(),
		MIMEType: mimeType,
	}
	if duration, err := e.GetDuration(filePath); err == nil {
		info.Duration = duration
	}
	return info, nil
}

// DetectMIME определяет MIME тип файла по содержимому
func DetectMIME(filePath string) (string, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return "", fmt.Errorf("ошибка определения типа файла: %w", err)
	}
	return mtype.String(), nil
}

// IsAudio сообщает, указывает ли MIME тип на аудио содержимое
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "audio/")
}

// InferFromFilename угадывает исполнителя и название по имени файла.
// Имя без расширения делится по "-", "–", "—" и "_": при двух и более частях
// первая считается исполнителем, вторая названием, иначе все имя становится названием.
func InferFromFilename(source string) TrackMetadata {
	fileName := filepath.Base(source)
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if name == "" {
		return TrackMetadata{}
	}

	parts := separators.Split(name, -1)
	if len(parts) >= 2 {
		artist := strings.TrimSpace(parts[0])
		title := strings.TrimSpace(parts[1])
		if artist != "" && title != "" {
			return TrackMetadata{Artist: artist, Title: title}
		}
	}

	return TrackMetadata{Title: strings.TrimSpace(name)}
}

func withDefaults(m TrackMetadata) TrackMetadata {
	if m.Artist == "" {
		m.Artist = UnknownArtist
	}
	return m
}
