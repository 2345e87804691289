// Package server содержит HTTP API библиотеки и поток событий по WebSocket
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/notify"
	"github.com/hazadus/go-broadcast/internal/session"
	"github.com/hazadus/go-broadcast/internal/uploader"
)

// MaxUploadSize максимальный размер multipart запроса загрузки
const MaxUploadSize = 256 << 20

// Options зависимости сервера
type Options struct {
	Session     *session.Session
	Actions     *notify.Actions
	Previews    *uploader.Previews
	Storage     uploader.Storage // nil: файлы остаются в UploadDir
	UploadDir   string
	UploadDelay time.Duration
	Logger      *zap.Logger
	Sinks       []notify.Sink // дополнительные получатели уведомлений
}

// Server HTTP сервер библиотеки
type Server struct {
	session     *session.Session
	library     *library.Manager
	actions     *notify.Actions
	previews    *uploader.Previews
	storage     uploader.Storage
	uploadDir   string
	uploadDelay time.Duration
	logger      *zap.Logger

	hub    *Hub
	sink   notify.Sink
	router *mux.Router
}

// New создает сервер и подписывает хаб на события библиотеки и плеера
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	actions := opts.Actions
	if actions == nil {
		actions = notify.NewActions(notify.DefaultActionsCapacity)
	}
	previews := opts.Previews
	if previews == nil {
		previews = uploader.NewPreviews()
	}

	s := &Server{
		session:     opts.Session,
		library:     opts.Session.Library(),
		actions:     actions,
		previews:    previews,
		storage:     opts.Storage,
		uploadDir:   opts.UploadDir,
		uploadDelay: opts.UploadDelay,
		logger:      logger,
		hub:         NewHub(logger),
	}
	s.sink = append(notify.FanOut{s.hub}, opts.Sinks...)

	s.library.Subscribe(s.handleLibraryEvent)
	s.session.Subscribe(s.handleUpdate)
	s.router = s.routes()
	return s
}

// Hub возвращает хаб событий
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler возвращает корневой обработчик. CORS оборачивает весь роутер,
// чтобы preflight запросы не упирались в ограничения методов маршрутов.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tracks", s.listTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}", s.getTrackHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}", s.deleteTrackHandler).Methods(http.MethodDelete)

	api.HandleFunc("/playlist", s.playlistHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlist/{id}/toggle", s.togglePlaylistHandler).Methods(http.MethodPost)

	api.HandleFunc("/crates", s.listCratesHandler).Methods(http.MethodGet)
	api.HandleFunc("/crates", s.createCrateHandler).Methods(http.MethodPost)
	api.HandleFunc("/crates/{id}", s.getCrateHandler).Methods(http.MethodGet)
	api.HandleFunc("/crates/{id}", s.renameCrateHandler).Methods(http.MethodPut)
	api.HandleFunc("/crates/{id}", s.deleteCrateHandler).Methods(http.MethodDelete)
	api.HandleFunc("/crates/{id}/tracks", s.addToCrateHandler).Methods(http.MethodPost)
	api.HandleFunc("/crates/{id}/tracks/{track_id}", s.removeFromCrateHandler).Methods(http.MethodDelete)

	api.HandleFunc("/player", s.playerStatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/player/play", s.playHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/toggle", s.togglePlaybackHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/seek", s.seekHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/volume", s.volumeHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/mute", s.muteHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/close", s.closePlayerHandler).Methods(http.MethodPost)
	api.HandleFunc("/layout", s.layoutHandler).Methods(http.MethodGet)

	api.HandleFunc("/uploads", s.uploadHandler).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}/undo", s.undoHandler).Methods(http.MethodPost)

	api.Handle("/events", s.hub).Methods(http.MethodGet)

	return router
}

// corsMiddleware разрешает запросы из браузерного клиента
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP запрос",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleLibraryEvent превращает события библиотеки в уведомления
func (s *Server) handleLibraryEvent(event library.Event) {
	if toast, ok := notify.FromEvent(event, s.actions); ok {
		s.sink.Notify(toast)
	}
}

// handleUpdate рассылает статус плеера и ошибки воспроизведения
func (s *Server) handleUpdate(update session.Update) {
	s.hub.PublishStatus(NewStatusView(update))
	if update.Err != nil {
		s.sink.Notify(notify.Error(update.Err))
	}
}

// ListenAndServe запускает сервер и останавливает его при отмене контекста
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go s.session.Run(ctx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Сервер запущен", zap.String("addr", addr))
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	s.logger.Info("Сервер остановлен")
	return nil
}
