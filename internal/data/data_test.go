package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCatalog(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "catalog.yaml")

	content := `tracks:
  - id: "1"
    title: OMW
    artist: PARTYNEXTDOOR, Drake
    album: $ome $exy $ongs 4 U
  - title: Blinding Lights
    artist: The Weeknd
    duration: "3:20"
    audio_url: https://example.com/blinding.mp3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Ошибка записи файла каталога: %v", err)
	}

	tracks, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("Ошибка загрузки каталога: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("Ожидалось 2 трека, получено %d", len(tracks))
	}
	if tracks[0].ID != "1" || tracks[0].Album != "$ome $exy $ongs 4 U" {
		t.Errorf("Неверно разобран первый трек: %+v", tracks[0])
	}
	// Трек без ID получает сгенерированный идентификатор
	if tracks[1].ID == "" {
		t.Error("Ожидался сгенерированный ID у второго трека")
	}
	if tracks[1].AudioURL != "https://example.com/blinding.mp3" {
		t.Errorf("Неверный AudioURL: %s", tracks[1].AudioURL)
	}
}

func TestLoadCatalogDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "tracks:\n  - id: a\n    title: A\n  - id: a\n    title: B\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Ошибка записи файла каталога: %v", err)
	}

	_, err := LoadCatalog(path)
	if err == nil || !strings.Contains(err.Error(), "повторяющийся ID") {
		t.Errorf("Ожидалась ошибка о повторяющемся ID, получено: %v", err)
	}
}

func TestLoadCatalogEmptyAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Ошибка записи файла каталога: %v", err)
	}

	tracks, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("Неожиданная ошибка для пустого файла: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("Ожидался пустой каталог, получено %d", len(tracks))
	}

	if _, err := LoadCatalog("/non/existent/catalog.yaml"); err == nil {
		t.Error("Ожидалась ошибка для несуществующего файла")
	}
}

func TestCrateCloneAndContains(t *testing.T) {
	crate := Crate{ID: "c", Name: "Favorites", Tracks: []string{"1", "2"}}
	clone := crate.Clone()
	clone.Tracks[0] = "9"

	if crate.Tracks[0] != "1" {
		t.Error("Clone не должен разделять срез треков с оригиналом")
	}
	if !crate.Contains("2") || crate.Contains("9") {
		t.Error("Contains вернул неверный результат")
	}
}

func TestSampleTracksUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, track := range SampleTracks() {
		if seen[track.ID] {
			t.Errorf("Повторяющийся ID в демонстрационном каталоге: %s", track.ID)
		}
		seen[track.ID] = true
	}
	if len(seen) != 10 {
		t.Errorf("Ожидалось 10 треков, получено %d", len(seen))
	}
}

func TestSaveCatalogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.yaml")
	tracks := []Track{
		{ID: "a", Title: "Song", Artist: "Artist", Duration: "2:05", AudioURL: "/music/song.mp3"},
	}

	if err := SaveCatalog(path, tracks); err != nil {
		t.Fatalf("Ошибка сохранения каталога: %v", err)
	}

	loaded, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("Ошибка загрузки каталога: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != tracks[0] {
		t.Errorf("Каталог после сохранения отличается: %+v", loaded)
	}
}
