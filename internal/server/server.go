package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"whatsapp-chat-analyzer/internal/core/services"
	"whatsapp-chat-analyzer/internal/domain"
	"whatsapp-chat-analyzer/internal/filter"
	"whatsapp-chat-analyzer/internal/pkg/config"
	"whatsapp-chat-analyzer/internal/stats"
)

// UploadProcessor определяет интерфейс для варианта использования,
// который обрабатывает загруженные экспорты.
type UploadProcessor interface {
	ProcessUpload(ctx context.Context, data []byte, fileName string) ([]domain.Message, *domain.ChatMetadata, error)
}

// StoreFactory создает пустое хранилище фильтров для новой сессии.
type StoreFactory func() *filter.Store

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	uploads    *UploadStore
	sessions   *SessionStore
	processor  UploadProcessor
	newStore   StoreFactory
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor UploadProcessor, uploads *UploadStore, sessions *SessionStore, newStore StoreFactory) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		uploads:   uploads,
		sessions:  sessions,
		processor: processor,
		newStore:  newStore,
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)
	// Дашборд — браузерный клиент с другого origin
	chiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		// Загрузка нового экспорта: немедленный идентификатор задачи,
		// обработка в горутине, статус по опросу.
		r.Post("/chats", s.handleUpload)
		r.Get("/uploads/{uploadID}", s.handleUploadStatus)

		r.Route("/chats/{chatID}", func(r chi.Router) {
			r.Get("/metadata", s.handleMetadata)
			r.Get("/messages", s.handleMessages)
			r.Get("/stats", s.handleStats)
			r.Delete("/", s.handleDelete)

			r.Route("/filters", func(r chi.Router) {
				r.Get("/", s.handleGetFilters)
				r.Patch("/", s.handlePatchFilters)
				r.Post("/senders/{sender}/toggle", s.handleToggleSender)
				r.Post("/apply", s.handleApplyFilters)
				r.Post("/reset", s.handleResetFilters)
			})
		})
	})

	s.HTTPServer = &http.Server{
		Addr:    cfg.Address(),
		Handler: chiRouter,
	}
	return s, nil
}

// handleUpload принимает мультипарт-файл экспорта и запускает его обработку
// в фоне. Клиент получает идентификатор загрузки для опроса статуса.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize())
	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize()); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Не удалось прочитать загруженный файл", http.StatusInternalServerError)
		return
	}
	fileName := header.Filename

	// Генерация уникального идентификатора загрузки
	uploadID := uuid.NewString()
	s.uploads.CreateUpload(uploadID, s.cfg.SessionTTL())

	// Запуск обработки в горутине
	go func() {
		_ = s.uploads.UpdateUploadStatus(uploadID, UploadStatusProcessing)

		// Контекст задачи с таймаутом из конфигурации.
		taskCtx := context.Background()
		if s.cfg.UploadTimeout() > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(context.Background(), s.cfg.UploadTimeout())
			defer cancel()
		}

		msgs, meta, err := s.processor.ProcessUpload(taskCtx, data, fileName)
		if err != nil {
			_ = s.uploads.FailUpload(uploadID, err.Error())
			return
		}

		// Новая загрузка вытесняет данные целиком: у каждой сессии
		// собственное хранилище фильтров, засеянное значениями по умолчанию.
		store := s.newStore()
		if err := store.Load(taskCtx, msgs, meta); err != nil {
			_ = s.uploads.FailUpload(uploadID, err.Error())
			return
		}

		chatID := uuid.NewString()
		s.sessions.CreateSession(chatID, fileName, store, s.cfg.SessionTTL())
		_ = s.uploads.CompleteUpload(uploadID, chatID, meta)
		slog.Info("Загрузка обработана", "upload_id", uploadID, "chat_id", chatID,
			"file", fileName, "messages", len(msgs))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"upload_id": uploadID})
}

// handleUploadStatus возвращает статус задачи загрузки; завершенная задача
// несет идентификатор чата и метаданные.
func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	upload, err := s.uploads.GetUpload(uploadID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	resp := map[string]any{
		"upload_id": upload.ID,
		"status":    upload.Status,
	}
	if upload.Status == UploadStatusCompleted {
		resp["chat_id"] = upload.ChatID
		resp["metadata"] = upload.Metadata
	}
	if upload.Status == UploadStatusFailed {
		resp["error_message"] = upload.ErrorMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Store.Metadata())
}

// handleMessages отдает текущее отфильтрованное представление — единственный
// контракт данных для компонентов визуализации, только для чтения.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	msgs := session.Store.Messages()
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":    msgs,
		"used_count":  services.CountUsed(msgs),
		"total_count": len(msgs),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(session.Store.Messages()))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if err := s.sessions.DeleteSession(chatID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"staged": session.Store.StagedFilters(),
		"active": session.Store.ActiveFilters(),
	})
}

// filterPatchRequest — частичное обновление staged-значений фильтра.
// Отсутствующее поле оставляет соответствующее измерение без изменений.
type filterPatchRequest struct {
	DateRange *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date_range"`
	ClearDateRange       bool     `json:"clear_date_range"`
	SenderShareThreshold *float64 `json:"sender_share_threshold"`
	Weekdays             []string `json:"weekdays"`
}

func (s *Server) handlePatchFilters(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req filterPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
		return
	}

	if req.ClearDateRange {
		session.Store.SetDateRange(nil)
	} else if req.DateRange != nil {
		start, err := parseBoundary(req.DateRange.Start, false)
		if err != nil {
			http.Error(w, fmt.Sprintf("Недопустимая начальная дата: %v", err), http.StatusBadRequest)
			return
		}
		end, err := parseBoundary(req.DateRange.End, true)
		if err != nil {
			http.Error(w, fmt.Sprintf("Недопустимая конечная дата: %v", err), http.StatusBadRequest)
			return
		}
		session.Store.SetDateRange(&domain.DateRange{Start: start, End: end})
	}

	if req.SenderShareThreshold != nil {
		if *req.SenderShareThreshold < 0 || *req.SenderShareThreshold > 100 {
			http.Error(w, "Порог доли должен быть процентом (0-100)", http.StatusBadRequest)
			return
		}
		session.Store.SetSenderShareThreshold(*req.SenderShareThreshold)
	}

	if req.Weekdays != nil {
		session.Store.SetWeekdays(domain.WeekdaySetOf(req.Weekdays...))
	}

	writeJSON(w, http.StatusOK, map[string]any{"staged": session.Store.StagedFilters()})
}

func (s *Server) handleToggleSender(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	sender := chi.URLParam(r, "sender")
	session.Store.ToggleSender(sender)
	writeJSON(w, http.StatusOK, map[string]any{"staged": session.Store.StagedFilters()})
}

// handleApplyFilters атомарно делает staged-значения активными и запускает
// фоновый пересчет. Если до готовности результата придет новый запрос,
// устаревший результат будет отброшен (last-request-wins).
func (s *Server) handleApplyFilters(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	seq := session.Store.ApplyFilters(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "applying", "seq": seq})
}

func (s *Server) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	seq := session.Store.ResetFilters(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "applying", "seq": seq})
}

// session извлекает сессию чата из URL; при отсутствии пишет 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*ChatSession, bool) {
	chatID := chi.URLParam(r, "chatID")
	session, err := s.sessions.GetSession(chatID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// parseBoundary разбирает границу диапазона дат: RFC3339 или локальная дата
// "YYYY-MM-DD". Для конечной границы дата без времени расширяется до конца
// дня, чтобы граница оставалась включительной. Пустая строка — нет границы.
func parseBoundary(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Не удалось закодировать ответ", "error", err)
	}
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown останавливает HTTP-сервер
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTPServer.Shutdown(ctx)
}
