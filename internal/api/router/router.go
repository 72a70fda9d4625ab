package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicvoice/healthie-agent/internal/actions"
	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Actions        *actions.Handler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Portal automation actions. The session manager hands out an
	// operation lock with the page, so concurrent requests queue up
	// rather than interleaving clicks on the shared browser.
	r.Route("/actions", func(r chi.Router) {
		r.Post("/find-patient", cfg.Actions.FindPatient)
		r.Post("/create-appointment", cfg.Actions.CreateAppointment)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// requestLogger logs each request on completion with status and duration.
func requestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t := middleware.GetReqID(r.Context())
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"request_id", t,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
			)
		})
	}
}
