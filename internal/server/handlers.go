package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/uploader"
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, value any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(value); err != nil {
		return fmt.Errorf("некорректный JSON: %w", err)
	}
	return nil
}

func (s *Server) listTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks := s.library.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, trackViews(tracks, s.library.InPlaylist))
}

func (s *Server) getTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	track, ok := s.library.Track(id)
	if !ok {
		writeError(w, http.StatusNotFound, "трек не найден")
		return
	}
	writeJSON(w, http.StatusOK, TrackView{Track: track, InPlaylist: s.library.InPlaylist(id)})
}

func (s *Server) deleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := s.session.DeleteTrack(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, session.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		// Трек уже удален из библиотеки, сообщаем только о хранилище
		s.logger.Warn("Ошибка удаления из хранилища", zap.String("track_id", track.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, track)
}

func (s *Server) playlistHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.library.Playlist())
}

func (s *Server) togglePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	track, ok := s.library.Track(id)
	if !ok {
		writeError(w, http.StatusNotFound, "трек не найден")
		return
	}
	inPlaylist, _ := s.library.TogglePlaylistMembership(track)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "inPlaylist": inPlaylist})
}

func (s *Server) crateView(id string, withTracks bool) (CrateView, bool) {
	crate, ok := s.library.Crate(id)
	if !ok {
		return CrateView{}, false
	}
	view := CrateView{
		Crate:   crate,
		Count:   len(crate.Tracks),
		Editing: s.library.EditingCrate() == crate.ID,
	}
	if withTracks {
		view.TrackItems = s.library.CrateTracks(id)
	}
	return view, true
}

func (s *Server) listCratesHandler(w http.ResponseWriter, r *http.Request) {
	crates := s.library.Crates()
	editing := s.library.EditingCrate()
	views := make([]CrateView, len(crates))
	for i, crate := range crates {
		views[i] = CrateView{Crate: crate, Count: len(crate.Tracks), Editing: crate.ID == editing}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createCrateHandler(w http.ResponseWriter, r *http.Request) {
	crate := s.library.CreateCrate()
	view, _ := s.crateView(crate.ID, false)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) getCrateHandler(w http.ResponseWriter, r *http.Request) {
	view, ok := s.crateView(mux.Vars(r)["id"], true)
	if !ok {
		writeError(w, http.StatusNotFound, "крейт не найден")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) renameCrateHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var request struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.library.RenameCrate(id, request.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, ok := s.crateView(id, false)
	if !ok {
		writeError(w, http.StatusNotFound, "крейт не найден")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteCrateHandler(w http.ResponseWriter, r *http.Request) {
	s.library.DeleteCrate(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addToCrateHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var request struct {
		TrackID string `json:"trackId"`
	}
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added := s.library.AddToCrate(request.TrackID, id)
	view, ok := s.crateView(id, false)
	if !ok {
		writeError(w, http.StatusNotFound, "крейт не найден")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "crate": view})
}

func (s *Server) removeFromCrateHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	removed := s.library.RemoveFromCrate(vars["id"], vars["track_id"])
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) playerStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusOf(s.session))
}

func (s *Server) playHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		TrackID string `json:"trackId"`
	}
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch err := s.session.Play(request.TrackID); {
	case errors.Is(err, session.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusOf(s.session))
}

func (s *Server) togglePlaybackHandler(w http.ResponseWriter, r *http.Request) {
	s.session.TogglePlayback()
	writeJSON(w, http.StatusOK, statusOf(s.session))
}

func (s *Server) seekHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Position float64 `json:"position"` // секунды
	}
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.session.Transport().Seek(time.Duration(request.Position * float64(time.Second)))
	writeJSON(w, http.StatusOK, statusOf(s.session))
}

func (s *Server) volumeHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Level float64 `json:"level"`
	}
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.session.Transport().SetVolume(request.Level)
	writeJSON(w, http.StatusOK, statusOf(s.session))
}

func (s *Server) muteHandler(w http.ResponseWriter, r *http.Request) {
	s.session.Transport().ToggleMute()
	writeJSON(w, http.StatusOK, statusOf(s.session))
}

func (s *Server) closePlayerHandler(w http.ResponseWriter, r *http.Request) {
	s.session.ClosePlayer()
	writeJSON(w, http.StatusOK, statusOf(s.session))
}

func (s *Server) layoutHandler(w http.ResponseWriter, r *http.Request) {
	mobile, _ := strconv.ParseBool(r.URL.Query().Get("mobile"))
	writeJSON(w, http.StatusOK, s.session.Layout(mobile))
}

func (s *Server) undoHandler(w http.ResponseWriter, r *http.Request) {
	if !s.actions.Run(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "действие недоступно")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadHandler принимает multipart форму с полями title, artist и файлами files
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "некорректная форма загрузки")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, uploader.ErrMissingFields.Error())
		return
	}

	dir, paths, err := s.saveUploads(r)
	if err != nil {
		s.logger.Error("Ошибка сохранения загрузки", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.RemoveAll(dir)
		}
	}()

	dialog := uploader.NewDialog(s.library, s.previews, uploader.Options{
		Delay:   s.uploadDelay,
		Storage: s.storage,
		Logger:  s.logger,
	})
	defer dialog.Close()

	if _, err := dialog.Select(paths); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	form := dialog.Form()
	if title := r.FormValue("title"); title != "" {
		form.Title = title
	}
	if artist := r.FormValue("artist"); artist != "" {
		form.Artist = artist
	}
	dialog.SetForm(form)

	tracks, err := dialog.Submit(r.Context())
	switch {
	case errors.Is(err, uploader.ErrMissingFields), errors.Is(err, library.ErrNoValidFiles):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("Ошибка загрузки", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Без хранилища треки воспроизводятся из сохраненных файлов
	keep = s.storage == nil
	writeJSON(w, http.StatusCreated, tracks)
}

// saveUploads сохраняет файлы формы в отдельный каталог, сохраняя имена
func (s *Server) saveUploads(r *http.Request) (string, []string, error) {
	base := s.uploadDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", nil, fmt.Errorf("ошибка создания каталога загрузок: %w", err)
	}
	dir, err := os.MkdirTemp(base, "upload-")
	if err != nil {
		return "", nil, fmt.Errorf("ошибка создания каталога загрузок: %w", err)
	}

	var paths []string
	used := make(map[string]bool)
	for i, header := range r.MultipartForm.File["files"] {
		name := uniqueName(filepath.Base(header.Filename), i, used)
		path := filepath.Join(dir, name)

		if err := copyUpload(header, path); err != nil {
			_ = os.RemoveAll(dir)
			return "", nil, err
		}
		paths = append(paths, path)
	}
	return dir, paths, nil
}

// uniqueName возвращает имя файла, не совпадающее с уже сохраненными
func uniqueName(name string, index int, used map[string]bool) string {
	if name == "." || name == "/" || name == "" {
		name = fmt.Sprintf("file-%d", index+1)
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	used[candidate] = true
	return candidate
}

func copyUpload(header *multipart.FileHeader, path string) error {
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("ошибка чтения файла формы: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания файла: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("ошибка сохранения файла: %w", err)
	}
	return nil
}
