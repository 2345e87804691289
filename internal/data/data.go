// Package data содержит записи треков и крейтов и загрузку начального каталога
package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultDuration отображаемая длительность, когда реальная неизвестна
const DefaultDuration = "3:30"

// Track описывает трек каталога. Значения не изменяются на месте,
// при изменении трек заменяется целиком.
type Track struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Artist   string `yaml:"artist" json:"artist"`
	Album    string `yaml:"album,omitempty" json:"album,omitempty"`
	Duration string `yaml:"duration,omitempty" json:"duration,omitempty"` // Отображаемая длительность, например "3:30"
	AudioURL string `yaml:"audio_url,omitempty" json:"audioUrl,omitempty"`
	ImageURL string `yaml:"image_url,omitempty" json:"imageUrl,omitempty"`
}

// Crate именованная коллекция, ссылающаяся на треки по ID
type Crate struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Tracks []string `json:"tracks"`
}

// Contains сообщает, есть ли трек в крейте
func (c Crate) Contains(trackID string) bool {
	for _, id := range c.Tracks {
		if id == trackID {
			return true
		}
	}
	return false
}

// Clone возвращает копию крейта с собственным срезом ID
func (c Crate) Clone() Crate {
	tracks := make([]string, len(c.Tracks))
	copy(tracks, c.Tracks)
	c.Tracks = tracks
	return c
}

// Catalog структура файла начального каталога
type Catalog struct {
	Tracks []Track `yaml:"tracks"`
}

// NewID генерирует новый уникальный идентификатор
func NewID() string {
	return uuid.NewString()
}

// LoadCatalog загружает начальный каталог из YAML файла.
// Трекам без ID присваиваются сгенерированные идентификаторы.
func LoadCatalog(filePath string) ([]Track, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := strings.Replace(filePath, "~", home, 1)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла каталога: %w", err)
	}

	catalog := &Catalog{}
	if len(raw) == 0 {
		return []Track{}, nil
	}
	if err := yaml.Unmarshal(raw, catalog); err != nil {
		return nil, fmt.Errorf("ошибка разбора каталога: %w", err)
	}

	seen := make(map[string]bool, len(catalog.Tracks))
	tracks := make([]Track, 0, len(catalog.Tracks))
	for _, t := range catalog.Tracks {
		if t.ID == "" {
			t.ID = NewID()
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("повторяющийся ID трека в каталоге: %s", t.ID)
		}
		seen[t.ID] = true
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// SaveCatalog записывает каталог в YAML файл, создавая каталог при необходимости
func SaveCatalog(filePath string, tracks []Track) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	path := strings.Replace(filePath, "~", home, 1)

	raw, err := yaml.Marshal(&Catalog{Tracks: tracks})
	if err != nil {
		return fmt.Errorf("ошибка сериализации каталога: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("ошибка создания директории каталога: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла каталога: %w", err)
	}
	return nil
}

// SampleTracks возвращает встроенный демонстрационный каталог
func SampleTracks() []Track {
	return []Track{
		{ID: "1", Title: "OMW", Artist: "PARTYNEXTDOOR, Drake", Album: "$ome $exy $ongs 4 U"},
		{ID: "2", Title: "WHEN HE'S GONE", Artist: "PARTYNEXTDOOR, Drake", Album: "$ome $exy $ongs 4 U"},
		{ID: "3", Title: "The Method", Artist: "DDG", Album: "The Method"},
		{ID: "4", Title: "SMALL TOWN FAME", Artist: "Drake", Album: "$ome $exy $ongs 4 U"},
		{ID: "5", Title: "SPIDER-MAN SUPERMAN", Artist: "PARTYNEXTDOOR, Drake", Album: "$ome $exy $ongs 4 U"},
		{ID: "6", Title: "GLORIOUS", Artist: "PARTYNEXTDOOR, Drake", Album: "$ome $exy $ongs 4 U"},
		{ID: "7", Title: "PIMMIE'S DILEMMA", Artist: "Pimmie, PARTYNEXTDOOR, Drake", Album: "$ome $exy $ongs 4 U"},
		{ID: "8", Title: "CRYING IN CHANEL", Artist: "Drake", Album: "$ome $exy $ongs 4 U"},
		{ID: "9", Title: "Afterglow", Artist: "Ed Sheeran", Album: "="},
		{ID: "10", Title: "Blinding Lights", Artist: "The Weeknd", Album: "After Hours"},
	}
}
