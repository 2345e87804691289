// Package search содержит фильтрацию каталога по строке запроса
package search

import (
	"strings"

	"github.com/hazadus/go-broadcast/internal/data"
)

// Filter возвращает треки, у которых название, исполнитель или альбом
// содержат запрос без учета регистра. Пустой запрос возвращает входной
// срез без изменений. Функция не имеет состояния и побочных эффектов.
func Filter(tracks []data.Track, query string) []data.Track {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tracks
	}

	result := make([]data.Track, 0, len(tracks))
	for _, t := range tracks {
		if Matches(t, q) {
			result = append(result, t)
		}
	}
	return result
}

// Matches проверяет трек против уже нормализованного запроса (нижний регистр, без пробелов по краям)
func Matches(t data.Track, normalized string) bool {
	return strings.Contains(strings.ToLower(t.Title), normalized) ||
		strings.Contains(strings.ToLower(t.Artist), normalized) ||
		strings.Contains(strings.ToLower(t.Album), normalized)
}
