// Package server is the collector the tracker reports to. It accepts
// form-encoded capture payloads and stores them in SQLite.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vincentbai/clicktrace-agent/internal/database"
	"github.com/vincentbai/clicktrace-agent/internal/models"
)

const maxPayloadBytes = 64 << 10

type Server struct {
	db           *database.Database
	address      string
	server       *http.Server
	pathField    string
	clientField  string
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithFields sets the form fields holding the element path and the client
// identifier. Defaults: "id" and "client".
func WithFields(pathField, clientField string) Option {
	return func(s *Server) {
		if pathField != "" {
			s.pathField = pathField
		}
		if clientField != "" {
			s.clientField = clientField
		}
	}
}

// WithTimeouts sets the HTTP read and write timeouts. Default: 5s each.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func NewServer(db *database.Database, address string, opts ...Option) *Server {
	s := &Server{
		db:           db,
		address:      address,
		pathField:    "id",
		clientField:  "client",
		readTimeout:  5 * time.Second,
		writeTimeout: 5 * time.Second,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleCapture(w http.ResponseWriter, request *http.Request) {
	// Trackers post cross-origin and never read the response; let them.
	w.Header().Set("Access-Control-Allow-Origin", "*")

	request.Body = http.MaxBytesReader(w, request.Body, maxPayloadBytes)
	if err := request.ParseForm(); err != nil {
		http.Error(w, "Invalid form payload", http.StatusBadRequest)
		return
	}

	capture := models.Capture{
		ReceivedAt: s.now().UTC(),
		Fields:     map[string]string{},
		Referer:    request.Referer(),
		UserAgent:  request.UserAgent(),
	}
	for key, values := range request.PostForm {
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		switch key {
		case s.pathField:
			capture.Path = value
		case s.clientField:
			if value != "" {
				capture.Client = &value
			}
		default:
			capture.Fields[key] = value
		}
	}
	if capture.Path == "" {
		http.Error(w, "Missing "+s.pathField, http.StatusBadRequest)
		return
	}

	if err := s.db.InsertCaptures(request.Context(), []models.Capture{capture}); err != nil {
		s.logger.Error("server: store capture failed", "error", err)
		http.Error(w, "Failed to store capture", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent) // success, no body
}

func (s *Server) handleListCaptures(w http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	filter := database.CaptureFilter{
		Client: query.Get("client"),
		Path:   query.Get("path"),
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	if since := query.Get("since"); since != "" {
		if filter.Since, err = time.Parse(time.RFC3339, since); err != nil {
			http.Error(w, "Invalid since, want RFC 3339", http.StatusBadRequest)
			return
		}
	}

	captures, err := s.db.ListCaptures(request.Context(), filter)
	if err != nil {
		s.logger.Error("server: list captures failed", "error", err)
		http.Error(w, "Failed to list captures", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, captures)
}

func (s *Server) handleTopPaths(w http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	limit, err := intParam(query.Get("limit"))
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	counts, err := s.db.TopPaths(request.Context(), query.Get("client"), limit)
	if err != nil {
		s.logger.Error("server: top paths failed", "error", err)
		http.Error(w, "Failed to count paths", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, counts)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return n, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server: encode response failed", "error", err)
	}
}

func (s *Server) setupRoutes() http.Handler {
	router := chi.NewRouter()
	router.Get("/healthz", s.handleHealthz)
	router.Post("/capture", s.handleCapture)
	router.Get("/captures", s.handleListCaptures)
	router.Get("/captures/top", s.handleTopPaths)
	return router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("clicktrace collector listening", "address", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		return err
	}

	s.logger.Info("Server exited")
	return nil
}
