package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/everlift-app/everlift/pkg/usecase"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

type Server struct {
	router       *chi.Mux
	uc           *usecase.UseCases
	maxVoiceSize int64
}

type Options func(*Server)

// WithMaxVoiceSize caps the accepted multipart voice upload size in bytes.
func WithMaxVoiceSize(limit int64) Options {
	return func(s *Server) {
		s.maxVoiceSize = limit
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:       r,
		uc:           uc,
		maxVoiceSize: 16 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session/open", s.handleOpenSession)
		r.Post("/chat", s.handleChat)
		r.Get("/history", s.handleHistory)
		r.Post("/voice", s.handleVoice)
		r.Post("/daily-progress", s.handleDailyProgress)

		r.Get("/plans", s.handleListPlans)
		r.Post("/plans/{id}/accept", s.handleAcceptPlan)
		r.Delete("/plans/{id}", s.handleDeletePlan)

		r.Get("/needs", s.handleListNeeds)
		r.Post("/need/switch", s.handleSwitchNeed)
		r.Get("/confidence", s.handleConfidence)

		r.Post("/chat/clear", s.handleClearChat)
		r.Post("/clear-all", s.handleClearAll)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck // header already committed
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
