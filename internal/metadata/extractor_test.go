package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// id3Header минимальный заголовок, по которому содержимое распознается как audio/mpeg
var id3Header = []byte("ID3\x03\x00\x00\x00\x00\x00\x00")

func TestExtractMetadata(t *testing.T) {
	// Создаем временный тестовый файл
	tempDir := t.TempDir()
	testFilePath := filepath.Join(tempDir, "test.mp3")

	content := []byte("fake mp3 content for testing")
	err := os.WriteFile(testFilePath, content, 0644)
	if err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	extractor := NewExtractor()
	metadata := extractor.ExtractFromFile(testFilePath)

	// Без тегов название берется из имени файла
	if metadata.Title != "test" {
		t.Errorf("Ожидался Title: test, получено: %s", metadata.Title)
	}
	if metadata.Artist != UnknownArtist {
		t.Errorf("Ожидался Artist: %s, получено: %s", UnknownArtist, metadata.Artist)
	}
}

func TestExtractFromCorruptedFile(t *testing.T) {
	tempDir := t.TempDir()
	testFilePath := filepath.Join(tempDir, "Unknown - Track.mp3")

	corruptedContent := []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD}
	err := os.WriteFile(testFilePath, corruptedContent, 0644)
	if err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	extractor := NewExtractor()
	metadata := extractor.ExtractFromFile(testFilePath)

	// Проверяем, что метаданные извлечены из имени файла при ошибке
	if metadata.Artist != "Unknown" {
		t.Errorf("Ожидался Artist: Unknown, получено: %s", metadata.Artist)
	}
	if metadata.Title != "Track" {
		t.Errorf("Ожидался Title: Track, получено: %s", metadata.Title)
	}
}

func TestInferFromFilename(t *testing.T) {
	tests := []struct {
		source string
		artist string
		title  string
	}{
		{"/path/to/Artist - Title.mp3", "Artist", "Title"},
		{"Artist_Title.wav", "Artist", "Title"},
		{"Artist – Title.flac", "Artist", "Title"},
		{"Artist—Title.ogg", "Artist", "Title"},
		{"Artist - Album - Title.mp3", "Artist", "Album"},
		{"SimpleTrack.mp3", "", "SimpleTrack"},
		{"- Title.mp3", "", "- Title"},
		{"noext", "", "noext"},
	}

	for _, test := range tests {
		result := InferFromFilename(test.source)
		if result.Artist != test.artist || result.Title != test.title {
			t.Errorf("InferFromFilename(%q) = %+v; ожидалось artist=%q title=%q",
				test.source, result, test.artist, test.title)
		}
	}
}

func TestExtractFromReader(t *testing.T) {
	tempDir := t.TempDir()
	testFilePath := filepath.Join(tempDir, "Test - Song.mp3")

	content := []byte("test content")
	err := os.WriteFile(testFilePath, content, 0644)
	if err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	file, err := os.Open(testFilePath)
	if err != nil {
		t.Fatalf("Ошибка открытия файла: %v", err)
	}
	defer file.Close()

	extractor := NewExtractor()
	metadata := extractor.ExtractFromReader(file, testFilePath)

	if metadata.Artist != "Test" {
		t.Errorf("Ожидался Artist: Test, получено: %s", metadata.Artist)
	}
	if metadata.Title != "Song" {
		t.Errorf("Ожидался Title: Song, получено: %s", metadata.Title)
	}
}

func TestGetFileInfo(t *testing.T) {
	tempDir := t.TempDir()
	testFilePath := filepath.Join(tempDir, "test.mp3")

	content := append(append([]byte{}, id3Header...), []byte("not really frames")...)
	err := os.WriteFile(testFilePath, content, 0644)
	if err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	extractor := NewExtractor()
	fileInfo, err := extractor.GetFileInfo(testFilePath)
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}

	if fileInfo.Size != int64(len(content)) {
		t.Errorf("Ожидался размер %d, получено %d", len(content), fileInfo.Size)
	}
	if !IsAudio(fileInfo.MIMEType) {
		t.Errorf("Ожидался аудио тип, получено %s", fileInfo.MIMEType)
	}
	// Файл не декодируется, длительность остается неизвестной
	if fileInfo.Duration != 0 {
		t.Errorf("Ожидалась нулевая длительность, получено %v", fileInfo.Duration)
	}
}

func TestGetFileInfoNonExistentFile(t *testing.T) {
	extractor := NewExtractor()
	_, err := extractor.GetFileInfo("/non/existent/file.mp3")

	if err == nil {
		t.Fatal("Ожидалась ошибка для несуществующего файла")
	}

	if !strings.Contains(err.Error(), "ошибка получения информации о файле") {
		t.Errorf("Неожиданное сообщение об ошибке: %v", err)
	}
}

func TestGetDuration(t *testing.T) {
	tempDir := t.TempDir()
	testFilePath := filepath.Join(tempDir, "test.mp3")

	err := os.WriteFile(testFilePath, []byte("test content"), 0644)
	if err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	extractor := NewExtractor()
	duration, err := extractor.GetDuration(testFilePath)

	// Ожидаем ошибку, так как файл не является валидным MP3
	if err == nil {
		t.Fatal("Ожидалась ошибка для некорректного MP3 файла")
	}
	if !strings.Contains(err.Error(), "ошибка декодирования MP3") {
		t.Errorf("Неожиданное сообщение об ошибке: %v", err)
	}
	if duration != 0 {
		t.Errorf("Ожидалась длительность 0 при ошибке, получено: %v", duration)
	}
}

func TestDetectMIME(t *testing.T) {
	tempDir := t.TempDir()

	audioPath := filepath.Join(tempDir, "a.mp3")
	if err := os.WriteFile(audioPath, id3Header, 0644); err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}
	textPath := filepath.Join(tempDir, "notes.mp3")
	if err := os.WriteFile(textPath, []byte("just some text"), 0644); err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	audioType, err := DetectMIME(audioPath)
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if audioType != "audio/mpeg" {
		t.Errorf("Ожидался audio/mpeg, получено %s", audioType)
	}

	// Расширение не влияет на результат, важно содержимое
	textType, err := DetectMIME(textPath)
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if IsAudio(textType) {
		t.Errorf("Текстовый файл не должен считаться аудио: %s", textType)
	}
}

func TestIsAudio(t *testing.T) {
	cases := map[string]bool{
		"audio/mpeg":               true,
		"Audio/WAV":                true,
		" audio/flac":              true,
		"video/mp4":                false,
		"application/octet-stream": false,
		"":                         false,
	}
	for mimeType, expected := range cases {
		if IsAudio(mimeType) != expected {
			t.Errorf("IsAudio(%q) != %v", mimeType, expected)
		}
	}
}
